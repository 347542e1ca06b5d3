// internal/service/unlock/unlock.go
package unlock

import (
	"context"
	"time"

	"namy-service/internal/domain/ad"
	"namy-service/internal/domain/coupon"
	domstore "namy-service/internal/domain/store"
	xerrors "namy-service/internal/pkg/errors"
	"namy-service/internal/pkg/payload"
	"namy-service/internal/pkg/token"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

type AdSource interface {
	PickActive(ctx context.Context, n int) ([]ad.Ad, error)
	FindByID(ctx context.Context, id int64) (*ad.Ad, error)
}

type SessionStore interface {
	SaveWatchSession(ctx context.Context, sess *ad.WatchSession, ttl time.Duration) error
	GetWatchSession(ctx context.Context, sessionID string) (*ad.WatchSession, error)
	DeleteWatchSession(ctx context.Context, sessionID string) error
	MarkTokenIssued(ctx context.Context, jti, deviceID string, ttl time.Duration) error
	ConsumeToken(ctx context.Context, jti string) (string, error)
}

type Limiter interface {
	CheckExchange(ctx context.Context, deviceID string, window time.Duration) (bool, time.Duration, error)
	ResetExchange(ctx context.Context, deviceID string) error
	CheckWatchReport(ctx context.Context, deviceID string) (bool, error)
}

type DiscountSource interface {
	FindByID(ctx context.Context, id int64) (*domstore.Discount, error)
}

type StoreSource interface {
	Summary(ctx context.Context, id int64) (coupon.StoreSummary, error)
}

type CouponSink interface {
	Create(ctx context.Context, rec *coupon.Record) error
}

type DeviceSink interface {
	Ensure(ctx context.Context, deviceID string) error
}

// DiscountSummary converts a stored discount into its payload snapshot.
// Injected so the service stays decoupled from the repository package.
type DiscountSummary func(*domstore.Discount) coupon.DiscountSummary

type Config struct {
	SessionTTL       time.Duration
	RequiredWatches  int
	ExchangeCooldown time.Duration
	CouponValidity   time.Duration
}

// Service sequences the two-step unlock protocol: N confirmed ad watches
// mint a single-use token, the token plus a discount id mints a coupon. The
// client never decides completion locally; only the session state held here
// does.
type Service struct {
	ads       AdSource
	discounts DiscountSource
	stores    StoreSource
	coupons   CouponSink
	devices   DeviceSink
	sessions  SessionStore
	limiter   Limiter
	tokens    *token.Manager
	cipher    payload.Cipher
	summarize DiscountSummary
	cfg       Config
	logger    *zap.Logger
}

func NewService(
	ads AdSource,
	discounts DiscountSource,
	stores StoreSource,
	coupons CouponSink,
	devices DeviceSink,
	sessions SessionStore,
	limiter Limiter,
	tokens *token.Manager,
	cipher payload.Cipher,
	summarize DiscountSummary,
	cfg Config,
	logger *zap.Logger,
) *Service {
	if cfg.RequiredWatches <= 0 {
		cfg.RequiredWatches = 2
	}
	return &Service{
		ads:       ads,
		discounts: discounts,
		stores:    stores,
		coupons:   coupons,
		devices:   devices,
		sessions:  sessions,
		limiter:   limiter,
		tokens:    tokens,
		cipher:    cipher,
		summarize: summarize,
		cfg:       cfg,
		logger:    logger,
	}
}

// StartSession fetches the ad pair for one unlock attempt, scoped to the
// device.
func (s *Service) StartSession(ctx context.Context, deviceID string) (*ad.PairResponse, error) {
	ads, err := s.ads.PickActive(ctx, s.cfg.RequiredWatches)
	if err != nil {
		return nil, xerrors.Wrap(err, "failed to pick ads")
	}
	if len(ads) < s.cfg.RequiredWatches {
		return nil, xerrors.Wrap(xerrors.ErrBackend, "not enough active ads")
	}

	sess := &ad.WatchSession{
		SessionID:       ulid.Make().String(),
		DeviceID:        deviceID,
		Watched:         make(map[int64]bool),
		RequiredWatches: s.cfg.RequiredWatches,
		CreatedAt:       time.Now(),
	}

	resp := &ad.PairResponse{SessionID: sess.SessionID}
	for _, a := range ads {
		sess.AdIDs = append(sess.AdIDs, a.ID)
		resp.Ads = append(resp.Ads, ad.Descriptor{
			ID:           a.ID,
			Title:        a.Title,
			VideoKey:     a.VideoKey,
			DurationSecs: a.DurationSecs,
		})
	}

	if err := s.sessions.SaveWatchSession(ctx, sess, s.cfg.SessionTTL); err != nil {
		return nil, err
	}

	s.logger.Info("unlock session started",
		zap.String("session_id", sess.SessionID),
		zap.String("device_id", deviceID),
	)
	return resp, nil
}

// ReportWatch records one ad-watch report. The backend alone decides whether
// the report is sufficient and whether it was the final required watch; the
// token only appears on the report that completes the set.
func (s *Service) ReportWatch(ctx context.Context, deviceID string, req *ad.WatchRequest) (*ad.WatchResponse, error) {
	allowed, err := s.limiter.CheckWatchReport(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, xerrors.Wrap(xerrors.ErrWatchRejected, "too many watch reports")
	}

	sess, err := s.sessions.GetWatchSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if sess.DeviceID != deviceID {
		return nil, xerrors.ErrSessionNotFound
	}
	if !sess.Contains(req.AdID) {
		return nil, xerrors.Wrap(xerrors.ErrWatchRejected, "ad not part of session")
	}

	watched, err := s.ads.FindByID(ctx, req.AdID)
	if err != nil {
		return nil, err
	}
	if watched.VideoKey != req.VideoKey {
		return nil, xerrors.Wrap(xerrors.ErrWatchRejected, "video key mismatch")
	}

	// Insufficient watch time: no confirmation, the session stays where it is.
	if req.WatchDuration < watched.MinWatchSecs {
		return &ad.WatchResponse{CanGenerateCoupon: false}, nil
	}

	sess.Watched[req.AdID] = true

	if sess.WatchedCount() < sess.RequiredWatches {
		if err := s.sessions.SaveWatchSession(ctx, sess, s.cfg.SessionTTL); err != nil {
			return nil, err
		}
		return &ad.WatchResponse{CanGenerateCoupon: false}, nil
	}

	// Final required watch confirmed: mint the single-use token and retire
	// the session.
	signed, jti, err := s.tokens.Mint(deviceID)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.MarkTokenIssued(ctx, jti, deviceID, s.tokens.TTL()); err != nil {
		return nil, err
	}
	if err := s.sessions.DeleteWatchSession(ctx, req.SessionID); err != nil {
		s.logger.Warn("failed to delete completed watch session", zap.Error(err))
	}

	s.logger.Info("unlock token issued",
		zap.String("session_id", req.SessionID),
		zap.String("device_id", deviceID),
	)
	return &ad.WatchResponse{CanGenerateCoupon: true, Token: signed}, nil
}

// Exchange consumes an unlock token for a freshly minted coupon. Replaying a
// consumed token fails; rate limiting surfaces the remaining cooldown as a
// hint rather than a generic failure.
func (s *Service) Exchange(ctx context.Context, deviceID string, req *ad.ExchangeRequest) (*coupon.IssuedCoupon, error) {
	allowed, retryAfter, err := s.limiter.CheckExchange(ctx, deviceID, s.cfg.ExchangeCooldown)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, &xerrors.RateLimitError{RetryAfter: retryAfter}
	}

	issued, err := s.exchange(ctx, deviceID, req)
	if err != nil {
		// A failed exchange must not burn the device's cooldown window.
		if resetErr := s.limiter.ResetExchange(ctx, deviceID); resetErr != nil {
			s.logger.Warn("failed to reset exchange cooldown", zap.Error(resetErr))
		}
		return nil, err
	}
	return issued, nil
}

func (s *Service) exchange(ctx context.Context, deviceID string, req *ad.ExchangeRequest) (*coupon.IssuedCoupon, error) {
	claims, err := s.tokens.Verify(req.Token)
	if err != nil {
		return nil, xerrors.ErrTokenInvalid
	}
	if claims.DeviceID != deviceID {
		return nil, xerrors.ErrTokenInvalid
	}
	if _, err := s.sessions.ConsumeToken(ctx, claims.ID); err != nil {
		return nil, err
	}

	discount, err := s.discounts.FindByID(ctx, req.DiscountID)
	if err != nil {
		return nil, err
	}
	if !discount.Active {
		return nil, xerrors.ErrNotFound
	}

	storeSummary, err := s.stores.Summary(ctx, discount.StoreID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	rec := &coupon.Record{
		Code:       newCouponCode(),
		StoreID:    discount.StoreID,
		DiscountID: discount.ID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.cfg.CouponValidity),
	}
	rec.DeviceID.String = deviceID
	rec.DeviceID.Valid = true

	if err := s.devices.Ensure(ctx, deviceID); err != nil {
		return nil, err
	}
	if err := s.coupons.Create(ctx, rec); err != nil {
		return nil, err
	}

	data := &coupon.Data{
		Code:      rec.Code,
		CreatedAt: rec.CreatedAt,
		ExpiresAt: rec.ExpiresAt,
		StoreID:   discount.StoreID,
		Store:     storeSummary,
		Discount:  s.summarize(discount),
	}

	encrypted, err := s.cipher.Encrypt(data)
	if err != nil {
		return nil, err
	}

	s.logger.Info("coupon issued",
		zap.String("code", rec.Code),
		zap.Int64("discount_id", discount.ID),
		zap.String("device_id", deviceID),
	)
	return &coupon.IssuedCoupon{Coupon: data, Payload: encrypted}, nil
}

// newCouponCode builds the user-facing coupon code from the random tail of a
// fresh ULID.
func newCouponCode() string {
	u := ulid.Make().String()
	return "NAMY" + u[len(u)-8:]
}
