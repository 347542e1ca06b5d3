// internal/domain/redemption/entity.go
package redemption

import (
	"database/sql"
	"time"
)

type Redemption struct {
	ID         int64          `json:"id" db:"id"`
	CouponCode string         `json:"coupon_code" db:"coupon_code"`
	StoreID    int64          `json:"store_id" db:"store_id"`
	StaffID    sql.NullInt64  `json:"staff_id,omitempty" db:"staff_id"`
	DeviceID   sql.NullString `json:"device_id,omitempty" db:"device_id"`
	Success    bool           `json:"success" db:"success"`
	Message    sql.NullString `json:"message,omitempty" db:"message"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
}

// Result is the outcome of a staff redemption attempt. LevelUp is purely
// informational; the coupon's terminal used state stands regardless.
type Result struct {
	Success   bool   `json:"success"`
	LeveledUp bool   `json:"leveledUp"`
	OldLevel  int    `json:"oldLevel,omitempty"`
	NewLevel  int    `json:"newLevel,omitempty"`
	Message   string `json:"message,omitempty"`
}
