// internal/domain/ad/entity.go
package ad

import (
	"time"
)

type Ad struct {
	ID           int64     `json:"id" db:"id"`
	Title        string    `json:"title" db:"title"`
	VideoKey     string    `json:"video_key" db:"video_key"`
	DurationSecs int       `json:"duration_secs" db:"duration_secs"`
	MinWatchSecs int       `json:"min_watch_secs" db:"min_watch_secs"`
	Active       bool      `json:"active" db:"active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// WatchSession is the redis-held state of one unlock attempt: an ordered ad
// pair scoped to a device, plus the set of confirmed watches. Watched only
// grows and never exceeds RequiredWatches.
type WatchSession struct {
	SessionID       string         `json:"session_id"`
	DeviceID        string         `json:"device_id"`
	AdIDs           []int64        `json:"ad_ids"`
	Watched         map[int64]bool `json:"watched"`
	RequiredWatches int            `json:"required_watches"`
	CreatedAt       time.Time      `json:"created_at"`
}

// WatchedCount returns how many distinct ads have been confirmed.
func (s *WatchSession) WatchedCount() int {
	return len(s.Watched)
}

// Contains reports whether adID belongs to this session's pair.
func (s *WatchSession) Contains(adID int64) bool {
	for _, id := range s.AdIDs {
		if id == adID {
			return true
		}
	}
	return false
}
