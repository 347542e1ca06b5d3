// internal/service/scan/scan.go
package scan

import (
	"context"
	"image"
	"time"

	"namy-service/internal/domain/coupon"
	xerrors "namy-service/internal/pkg/errors"
	"namy-service/internal/pkg/payload"
	"namy-service/internal/pkg/qrscan"
	"namy-service/internal/pkg/viewcache"

	"go.uber.org/zap"
)

// Validator resolves a decoded coupon's lifecycle state.
type Validator interface {
	Validate(ctx context.Context, code string, localExpiresAt time.Time) *coupon.Verdict
}

// Service is the consumer decode path: image → cipher string → coupon →
// lifecycle verdict. Decoded coupons are parked in the short-TTL view cache
// so the coupon view can pick them up without a URL round-trip.
type Service struct {
	extractor *qrscan.Extractor
	cipher    payload.Cipher
	validator Validator
	cache     *viewcache.Cache
	logger    *zap.Logger
}

func NewService(extractor *qrscan.Extractor, cipher payload.Cipher, validator Validator, cache *viewcache.Cache, logger *zap.Logger) *Service {
	return &Service{
		extractor: extractor,
		cipher:    cipher,
		validator: validator,
		cache:     cache,
		logger:    logger,
	}
}

// ScanImage extracts a QR payload from an uploaded image and decodes it.
func (s *Service) ScanImage(ctx context.Context, img image.Image, crop image.Rectangle, enhance bool, deviceID string) (*coupon.Verdict, error) {
	text, ok := s.extractor.ExtractFromCrop(img, crop, enhance)
	if !ok {
		return nil, xerrors.Wrap(xerrors.ErrUnsupportedPayload, "no QR code found")
	}

	cipherStr, err := qrscan.ParseCarrier(text)
	if err != nil {
		return nil, err
	}

	return s.DecodePayload(ctx, cipherStr, deviceID)
}

// DecodePayload decrypts a cipher string and resolves its lifecycle verdict.
func (s *Service) DecodePayload(ctx context.Context, payloadStr, deviceID string) (*coupon.Verdict, error) {
	data, err := s.cipher.Decrypt(payloadStr)
	if err != nil {
		return nil, err
	}

	verdict := s.validator.Validate(ctx, data.Code, data.ExpiresAt)
	verdict.Coupon = data

	if deviceID != "" {
		if err := s.cache.Put(ctx, deviceID, data); err != nil {
			s.logger.Warn("failed to cache decoded coupon", zap.Error(err))
		}
	}

	return verdict, nil
}

// Cached returns the coupon parked by a previous scan for this device, if
// the slot hasn't expired.
func (s *Service) Cached(ctx context.Context, deviceID string) (*coupon.Verdict, error) {
	data, err := s.cache.Get(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, xerrors.ErrNotFound
	}

	verdict := s.validator.Validate(ctx, data.Code, data.ExpiresAt)
	verdict.Coupon = data

	// A used or invalid coupon will never become viewable again; free the
	// slot instead of waiting out the TTL.
	if verdict.State.Terminal() {
		if err := s.cache.Clear(ctx, deviceID); err != nil {
			s.logger.Warn("failed to clear cached coupon", zap.Error(err))
		}
	}
	return verdict, nil
}
