// internal/domain/ad/dto.go
package ad

// Descriptor is the ad shape handed to clients; never exposes MinWatchSecs
// so the client cannot decide completion locally.
type Descriptor struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	VideoKey     string `json:"video_key"`
	DurationSecs int    `json:"duration_secs"`
}

type PairResponse struct {
	SessionID string       `json:"sessionId"`
	Ads       []Descriptor `json:"ads"`
}

type WatchRequest struct {
	SessionID     string `json:"sessionId" binding:"required"`
	AdID          int64  `json:"adId" binding:"required"`
	VideoKey      string `json:"videoKey" binding:"required"`
	WatchDuration int    `json:"watchDuration"`
}

type WatchResponse struct {
	CanGenerateCoupon bool   `json:"canGenerateCoupon"`
	Token             string `json:"token,omitempty"`
}

type ExchangeRequest struct {
	Token      string `json:"token" binding:"required"`
	DiscountID int64  `json:"discountId" binding:"required"`
}
