// internal/service/lifecycle/lifecycle.go
package lifecycle

import (
	"context"
	"time"

	"namy-service/internal/domain/coupon"
	xerrors "namy-service/internal/pkg/errors"

	"go.uber.org/zap"
)

// DetailsSource fetches the server-authoritative verdict for a coupon code.
type DetailsSource interface {
	FindRedeemDetails(ctx context.Context, code string) (*coupon.RedeemDetails, error)
}

// Service computes the merged lifecycle verdict: the backend's used/valid
// flags combined with a local expiry check that stands alone when the
// backend is unreachable.
type Service struct {
	source DetailsSource
	logger *zap.Logger

	now func() time.Time
}

func NewService(source DetailsSource, logger *zap.Logger) *Service {
	return &Service{
		source: source,
		logger: logger,
		now:    time.Now,
	}
}

// Validate drives a coupon through Validating into its resolved state.
// localExpiresAt comes from the decrypted payload; it is evaluated regardless
// of backend availability, and a time-based expiry always pre-empts whatever
// the backend last said.
func (s *Service) Validate(ctx context.Context, code string, localExpiresAt time.Time) *coupon.Verdict {
	now := s.now()

	details, err := s.source.FindRedeemDetails(ctx, code)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrCouponNotFound) {
			return s.verdict(coupon.StateInvalid, "coupon not found", localExpiresAt, now)
		}

		// Backend unreachable: the local expiry check becomes the sole
		// source of truth.
		s.logger.Warn("redeem details lookup failed, falling back to local expiry",
			zap.String("code", code),
			zap.Error(err),
		)
		if localExpiresAt.IsZero() {
			return s.verdict(coupon.StateUnknown, "validation unavailable", localExpiresAt, now)
		}
		if !now.Before(localExpiresAt) {
			return s.verdict(coupon.StateExpired, "", localExpiresAt, now)
		}
		return s.verdict(coupon.StateActive, "", localExpiresAt, now)
	}

	expiresAt := details.ExpiresAt
	if !localExpiresAt.IsZero() && localExpiresAt.Before(expiresAt) {
		expiresAt = localExpiresAt
	}

	switch {
	case details.Used:
		return s.verdict(coupon.StateUsed, "", expiresAt, now)
	case !details.Valid:
		return s.verdict(coupon.StateInvalid, "coupon not valid", expiresAt, now)
	case !now.Before(expiresAt):
		return s.verdict(coupon.StateExpired, "", expiresAt, now)
	default:
		return s.verdict(coupon.StateActive, "", expiresAt, now)
	}
}

func (s *Service) verdict(state coupon.LifecycleState, reason string, expiresAt, now time.Time) *coupon.Verdict {
	v := &coupon.Verdict{
		State:      state,
		Reason:     reason,
		Redeemable: state.Redeemable(),
	}
	if !expiresAt.IsZero() {
		remaining := TimeRemainingAt(expiresAt, now)
		v.Remaining = &remaining
	}
	return v
}

// TimeRemainingAt computes the countdown snapshot for expiresAt as of now.
// Values freeze at zero once expired.
func TimeRemainingAt(expiresAt, now time.Time) coupon.TimeRemaining {
	if !now.Before(expiresAt) {
		return coupon.TimeRemaining{Expired: true}
	}

	left := expiresAt.Sub(now)
	return coupon.TimeRemaining{
		Hours:   int(left.Hours()),
		Minutes: int(left.Minutes()) % 60,
		Seconds: int(left.Seconds()) % 60,
	}
}
