// internal/domain/coupon/entity.go
package coupon

import (
	"database/sql"
	"time"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
	DiscountOther      DiscountType = "other"
)

// StoreSummary is the store snapshot embedded in an encrypted payload.
type StoreSummary struct {
	Name    string  `json:"name"`
	Address string  `json:"address,omitempty"`
	Phone   string  `json:"phone,omitempty"`
	Rating  float64 `json:"rating,omitempty"`
}

// AvailabilityWindow restricts a discount to certain days and hours.
type AvailabilityWindow struct {
	Days      []string `json:"days,omitempty"`
	StartTime string   `json:"startTime,omitempty"`
	EndTime   string   `json:"endTime,omitempty"`
}

// DiscountSummary is the discount snapshot embedded in an encrypted payload.
type DiscountSummary struct {
	Title        string               `json:"title"`
	Type         DiscountType         `json:"type"`
	Value        float64              `json:"value"`
	MinPurchase  float64              `json:"minPurchase,omitempty"`
	MaxDiscount  float64              `json:"maxDiscount,omitempty"`
	Availability []AvailabilityWindow `json:"availability,omitempty"`
	Restrictions string               `json:"restrictions,omitempty"`
}

// Data is the decrypted coupon payload. Code is globally unique and is the
// natural key for every subsequent operation.
type Data struct {
	Code      string          `json:"code"`
	CreatedAt time.Time       `json:"createdAt"`
	ExpiresAt time.Time       `json:"expiresAt"`
	StoreID   int64           `json:"storeId"`
	Store     StoreSummary    `json:"store"`
	Discount  DiscountSummary `json:"discount"`
}

// RedeemDetails is the server-authoritative verdict fetched by code.
type RedeemDetails struct {
	ID        int64           `json:"id"`
	Code      string          `json:"code"`
	Used      bool            `json:"used"`
	UsedAt    *time.Time      `json:"usedAt,omitempty"`
	ExpiresAt time.Time       `json:"expiresAt"`
	Valid     bool            `json:"valid"`
	StoreID   int64           `json:"storeId"`
	Store     StoreSummary    `json:"store"`
	Discount  DiscountSummary `json:"discount"`
}

// Record is the persisted coupon row. Valid can be revoked server-side
// independently of expiry.
type Record struct {
	ID         int64          `json:"id" db:"id"`
	Code       string         `json:"code" db:"code"`
	StoreID    int64          `json:"store_id" db:"store_id"`
	DiscountID int64          `json:"discount_id" db:"discount_id"`
	DeviceID   sql.NullString `json:"device_id,omitempty" db:"device_id"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
	ExpiresAt  time.Time      `json:"expires_at" db:"expires_at"`
	Used       bool           `json:"used" db:"used"`
	UsedAt     sql.NullTime   `json:"used_at,omitempty" db:"used_at"`
	Valid      bool           `json:"valid" db:"valid"`
}

type LifecycleState string

const (
	StateUnknown    LifecycleState = "unknown"
	StateValidating LifecycleState = "validating"
	StateActive     LifecycleState = "active"
	StateExpired    LifecycleState = "expired"
	StateUsed       LifecycleState = "used"
	StateInvalid    LifecycleState = "invalid"
)

// Terminal reports whether no further transition is possible.
func (s LifecycleState) Terminal() bool {
	return s == StateExpired || s == StateUsed
}

// Redeemable reports whether redemption may proceed from this state.
func (s LifecycleState) Redeemable() bool {
	return s == StateActive
}

// TimeRemaining is the countdown snapshot recomputed once per second.
// Once Expired flips to true the values are frozen at zero.
type TimeRemaining struct {
	Hours   int  `json:"hours"`
	Minutes int  `json:"minutes"`
	Seconds int  `json:"seconds"`
	Expired bool `json:"expired"`
}
