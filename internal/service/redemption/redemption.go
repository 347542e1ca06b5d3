// internal/service/redemption/redemption.go
package redemption

import (
	"context"
	"database/sql"
	"regexp"
	"sync"
	"time"

	"namy-service/internal/domain/coupon"
	"namy-service/internal/domain/redemption"
	"namy-service/internal/domain/store"
	xerrors "namy-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var pinPattern = regexp.MustCompile(`^[0-9]{4,6}$`)

type TxBeginner interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
}

type CouponStore interface {
	LockForRedeem(ctx context.Context, tx pgx.Tx, code string) (*coupon.Record, error)
	MarkUsedTx(ctx context.Context, tx pgx.Tx, id int64, usedAt time.Time) error
}

type StaffSource interface {
	FindActiveByStore(ctx context.Context, storeID int64) ([]store.Staff, error)
}

type DeviceStore interface {
	IncrementRedemptionTx(ctx context.Context, tx pgx.Tx, deviceID string) (oldLevel, newLevel int, err error)
}

type AuditStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, rec *redemption.Redemption) error
}

// Service executes the staff-PIN-gated redemption. At most one redemption is
// in flight per coupon code at the service layer; the row lock inside the
// transaction is the true arbiter of exactly-once.
type Service struct {
	db          TxBeginner
	coupons     CouponStore
	staff       StaffSource
	devices     DeviceStore
	redemptions AuditStore
	logger      *zap.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewService(db TxBeginner, coupons CouponStore, staff StaffSource, devices DeviceStore, redemptions AuditStore, logger *zap.Logger) *Service {
	return &Service{
		db:          db,
		coupons:     coupons,
		staff:       staff,
		devices:     devices,
		redemptions: redemptions,
		logger:      logger,
		inFlight:    make(map[string]struct{}),
	}
}

// Redeem marks a coupon used after validating the staff PIN. The PIN format
// gate runs before any repository call; a malformed PIN costs zero
// round-trips. Business failures (already used, invalid, expired, wrong PIN)
// come back as an unsuccessful Result with a categorized message, not an
// error.
func (s *Service) Redeem(ctx context.Context, code string, storeID int64, staffPIN, deviceID string) (*redemption.Result, error) {
	if !pinPattern.MatchString(staffPIN) {
		return nil, xerrors.ErrPINFormat
	}

	if !s.acquire(code) {
		return nil, xerrors.ErrRedeemInFlight
	}
	defer s.release(code)

	staffID, pinOK, err := s.matchStaff(ctx, storeID, staffPIN)
	if err != nil {
		return nil, xerrors.Wrap(err, "failed to load staff")
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, xerrors.Wrap(err, "failed to begin redemption")
	}
	defer tx.Rollback(ctx)

	rec, err := s.coupons.LockForRedeem(ctx, tx, code)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if msg, ok := s.rejectReason(rec, storeID, pinOK, now); !ok {
		result := &redemption.Result{Success: false, Message: msg}
		if err := s.audit(ctx, tx, code, storeID, staffID, deviceID, result); err != nil {
			return nil, err
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, xerrors.Wrap(err, "failed to commit redemption audit")
		}
		return result, nil
	}

	if err := s.coupons.MarkUsedTx(ctx, tx, rec.ID, now); err != nil {
		return nil, err
	}

	result := &redemption.Result{Success: true, Message: "coupon redeemed"}
	if deviceID != "" {
		oldLevel, newLevel, err := s.devices.IncrementRedemptionTx(ctx, tx, deviceID)
		if err != nil {
			return nil, err
		}
		if newLevel > oldLevel {
			result.LeveledUp = true
			result.OldLevel = oldLevel
			result.NewLevel = newLevel
		}
	}

	if err := s.audit(ctx, tx, code, storeID, staffID, deviceID, result); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, xerrors.Wrap(err, "failed to commit redemption")
	}

	s.logger.Info("coupon redeemed",
		zap.String("code", code),
		zap.Int64("store_id", storeID),
		zap.Bool("leveled_up", result.LeveledUp),
	)
	return result, nil
}

// rejectReason categorizes a non-redeemable coupon. Order matters: the used
// verdict outranks expiry so a post-expiry redeem attempt of a used coupon
// still says "already redeemed".
func (s *Service) rejectReason(rec *coupon.Record, storeID int64, pinOK bool, now time.Time) (string, bool) {
	switch {
	case rec.Used:
		return "already redeemed", false
	case !rec.Valid || rec.StoreID != storeID:
		return "coupon not valid", false
	case !now.Before(rec.ExpiresAt):
		return "coupon expired", false
	case !pinOK:
		return "incorrect staff pin", false
	}
	return "", true
}

// matchStaff bcrypt-compares the entered PIN against every active staff
// member of the store.
func (s *Service) matchStaff(ctx context.Context, storeID int64, staffPIN string) (int64, bool, error) {
	members, err := s.staff.FindActiveByStore(ctx, storeID)
	if err != nil {
		return 0, false, err
	}
	for _, m := range members {
		if bcrypt.CompareHashAndPassword([]byte(m.PINHash), []byte(staffPIN)) == nil {
			return m.ID, true, nil
		}
	}
	return 0, false, nil
}

func (s *Service) audit(ctx context.Context, tx pgx.Tx, code string, storeID, staffID int64, deviceID string, result *redemption.Result) error {
	rec := &redemption.Redemption{
		CouponCode: code,
		StoreID:    storeID,
		StaffID:    sql.NullInt64{Int64: staffID, Valid: staffID != 0},
		DeviceID:   sql.NullString{String: deviceID, Valid: deviceID != ""},
		Success:    result.Success,
		Message:    sql.NullString{String: result.Message, Valid: result.Message != ""},
	}
	return s.redemptions.CreateTx(ctx, tx, rec)
}

func (s *Service) acquire(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[code]; busy {
		return false
	}
	s.inFlight[code] = struct{}{}
	return true
}

func (s *Service) release(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, code)
}
