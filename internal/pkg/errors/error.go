package xerrors

import (
	"errors"
	"fmt"
	"time"
)

// Common reusable application errors
var (
	// Payload decoding
	ErrPayloadFormat      = errors.New("malformed payload: expected iv.ciphertext.tag")
	ErrPayloadAuth        = errors.New("payload authentication failed")
	ErrUnsupportedPayload = errors.New("decoded text is not a coupon payload carrier")

	// Coupon lifecycle
	ErrCouponNotFound = errors.New("coupon not found")
	ErrCouponUsed     = errors.New("coupon already redeemed")

	// Redemption
	ErrPINFormat      = errors.New("staff pin must be 4 to 6 digits")
	ErrRedeemInFlight = errors.New("redemption already in progress for this coupon")

	// Unlock flow
	ErrTokenInvalid    = errors.New("unlock token invalid or expired")
	ErrTokenConsumed   = errors.New("unlock token already used")
	ErrSessionNotFound = errors.New("ad watch session not found or expired")
	ErrWatchRejected   = errors.New("ad watch report rejected")

	// Transport / infrastructure
	ErrBackend  = errors.New("backend error")
	ErrNotFound = errors.New("resource not found")
)

// SchemaError reports a decrypted payload that is structurally incomplete.
// Field names the first missing or empty required field.
type SchemaError struct {
	Field string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("payload schema violation: missing field %q", e.Field)
}

// RateLimitError carries the wait-time hint the exchange endpoint surfaces
// to the caller.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: retry after %s", e.RetryAfter.Round(time.Second))
}

// Wrap adds context to an error (similar to fmt.Errorf("%w")).
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is allows checking whether an error is a specific sentinel error.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
