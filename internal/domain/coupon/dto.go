// internal/domain/coupon/dto.go
package coupon

type DecodeRequest struct {
	Payload string `json:"payload" binding:"required"`
}

// Verdict merges the lifecycle state with the decoded coupon for display.
// All states render full details; only StateActive enables redemption.
type Verdict struct {
	State      LifecycleState `json:"state"`
	Reason     string         `json:"reason,omitempty"`
	Coupon     *Data          `json:"coupon,omitempty"`
	Remaining  *TimeRemaining `json:"remaining,omitempty"`
	Redeemable bool           `json:"redeemable"`
}

/// IssuedCoupon is returned by the exchange endpoint: the coupon itself plus
// its encrypted payload string for QR/URL embedding.
type IssuedCoupon struct {
	Coupon  *Data  `json:"coupon"`
	Payload string `json:"payload"`
}
