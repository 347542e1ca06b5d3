package redemption

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"namy-service/internal/domain/coupon"
	"namy-service/internal/domain/redemption"
	"namy-service/internal/domain/store"
	xerrors "namy-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// fakeTx satisfies pgx.Tx through embedding; only the methods the service
// touches are overridden.
type fakeTx struct {
	pgx.Tx
}

func (fakeTx) Commit(ctx context.Context) error   { return nil }
func (fakeTx) Rollback(ctx context.Context) error { return nil }

type fakeDB struct {
	mu     sync.Mutex
	begins int
}

func (f *fakeDB) BeginTx(ctx context.Context) (pgx.Tx, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.begins++
	return fakeTx{}, nil
}

type fakeCoupons struct {
	mu        sync.Mutex
	rec       coupon.Record
	lockCalls int
}

func (f *fakeCoupons) LockForRedeem(ctx context.Context, tx pgx.Tx, code string) (*coupon.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lockCalls++
	snapshot := f.rec
	return &snapshot, nil
}

func (f *fakeCoupons) MarkUsedTx(ctx context.Context, tx pgx.Tx, id int64, usedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rec.Used {
		return xerrors.ErrCouponUsed
	}
	f.rec.Used = true
	return nil
}

type fakeStaff struct {
	mu      sync.Mutex
	members []store.Staff
	calls   int
	err     error
}

func (f *fakeStaff) FindActiveByStore(ctx context.Context, storeID int64) ([]store.Staff, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.members, f.err
}

type fakeDevices struct {
	oldLevel, newLevel int
}

func (f *fakeDevices) IncrementRedemptionTx(ctx context.Context, tx pgx.Tx, deviceID string) (int, int, error) {
	return f.oldLevel, f.newLevel, nil
}

type fakeAudit struct {
	mu   sync.Mutex
	rows []redemption.Redemption
}

func (f *fakeAudit) CreateTx(ctx context.Context, tx pgx.Tx, rec *redemption.Redemption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, *rec)
	return nil
}

const testPIN = "4321"

func pinHash(t *testing.T) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(testPIN), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(h)
}

type fixture struct {
	svc     *Service
	db      *fakeDB
	coupons *fakeCoupons
	staff   *fakeStaff
	audit   *fakeAudit
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := &fakeDB{}
	coupons := &fakeCoupons{rec: coupon.Record{
		ID:        1,
		Code:      "NAMY1234",
		StoreID:   7,
		Valid:     true,
		ExpiresAt: time.Now().Add(time.Hour),
	}}
	staff := &fakeStaff{members: []store.Staff{{ID: 11, StoreID: 7, PINHash: pinHash(t)}}}
	audit := &fakeAudit{}
	devices := &fakeDevices{oldLevel: 1, newLevel: 1}

	return &fixture{
		svc:     NewService(db, coupons, staff, devices, audit, zap.NewNop()),
		db:      db,
		coupons: coupons,
		staff:   staff,
		audit:   audit,
	}
}

func TestRedeemSuccess(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Redeem(context.Background(), "NAMY1234", 7, testPIN, "device-1")
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	if !res.Success {
		t.Fatalf("result = %+v, want success", res)
	}
	if !f.coupons.rec.Used {
		t.Fatal("coupon not marked used")
	}
	if len(f.audit.rows) != 1 {
		t.Fatalf("%d audit rows, want 1", len(f.audit.rows))
	}
	row := f.audit.rows[0]
	if !row.Success || row.StaffID.Int64 != 11 || row.DeviceID.String != "device-1" {
		t.Fatalf("audit row = %+v", row)
	}
}

// A malformed PIN is rejected before any repository or transaction work.
func TestRedeemPINFormatFastFail(t *testing.T) {
	f := newFixture(t)

	for _, pin := range []string{"", "12", "1234567", "12ab", "12 34"} {
		if _, err := f.svc.Redeem(context.Background(), "NAMY1234", 7, pin, ""); !errors.Is(err, xerrors.ErrPINFormat) {
			t.Errorf("pin %q: err = %v, want ErrPINFormat", pin, err)
		}
	}
	if f.staff.calls != 0 || f.db.begins != 0 || f.coupons.lockCalls != 0 {
		t.Fatalf("repository touched on malformed PIN: staff=%d begins=%d locks=%d",
			f.staff.calls, f.db.begins, f.coupons.lockCalls)
	}
}

func TestRedeemRejections(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(f *fixture)
		storeID int64
		pin     string
		wantMsg string
	}{
		{
			name:    "already used",
			mutate:  func(f *fixture) { f.coupons.rec.Used = true },
			storeID: 7, pin: testPIN,
			wantMsg: "already redeemed",
		},
		{
			name:    "revoked",
			mutate:  func(f *fixture) { f.coupons.rec.Valid = false },
			storeID: 7, pin: testPIN,
			wantMsg: "coupon not valid",
		},
		{
			name:    "wrong store",
			mutate:  func(f *fixture) {},
			storeID: 99, pin: testPIN,
			wantMsg: "coupon not valid",
		},
		{
			name:    "expired",
			mutate:  func(f *fixture) { f.coupons.rec.ExpiresAt = time.Now().Add(-time.Minute) },
			storeID: 7, pin: testPIN,
			wantMsg: "coupon expired",
		},
		{
			name:    "wrong pin",
			mutate:  func(f *fixture) {},
			storeID: 7, pin: "9999",
			wantMsg: "incorrect staff pin",
		},
		{
			name: "used outranks expired",
			mutate: func(f *fixture) {
				f.coupons.rec.Used = true
				f.coupons.rec.ExpiresAt = time.Now().Add(-time.Minute)
			},
			storeID: 7, pin: testPIN,
			wantMsg: "already redeemed",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			tc.mutate(f)

			res, err := f.svc.Redeem(context.Background(), "NAMY1234", tc.storeID, tc.pin, "device-1")
			if err != nil {
				t.Fatalf("Redeem: %v", err)
			}
			if res.Success {
				t.Fatal("rejected redemption reported success")
			}
			if res.Message != tc.wantMsg {
				t.Fatalf("message = %q, want %q", res.Message, tc.wantMsg)
			}

			// Rejections still leave an audit trail.
			if len(f.audit.rows) != 1 || f.audit.rows[0].Success {
				t.Fatalf("audit rows = %+v", f.audit.rows)
			}
			if tc.name != "already used" && tc.name != "used outranks expired" && f.coupons.rec.Used {
				t.Fatal("rejected coupon was marked used")
			}
		})
	}
}

func TestRedeemConcurrentSingleSuccess(t *testing.T) {
	f := newFixture(t)

	const workers = 8
	results := make(chan *redemption.Result, workers)
	errs := make(chan error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.svc.Redeem(context.Background(), "NAMY1234", 7, testPIN, "device-1")
			if err != nil {
				errs <- err
				return
			}
			results <- res
		}()
	}
	wg.Wait()
	close(results)
	close(errs)

	successes := 0
	for res := range results {
		if res.Success {
			successes++
		} else if res.Message != "already redeemed" {
			t.Errorf("unexpected rejection: %q", res.Message)
		}
	}
	for err := range errs {
		if !errors.Is(err, xerrors.ErrRedeemInFlight) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("%d successful redemptions, want exactly 1", successes)
	}
}

func TestRedeemSecondAttemptAlreadyRedeemed(t *testing.T) {
	f := newFixture(t)

	if res, err := f.svc.Redeem(context.Background(), "NAMY1234", 7, testPIN, "d"); err != nil || !res.Success {
		t.Fatalf("first redeem: res=%+v err=%v", res, err)
	}

	res, err := f.svc.Redeem(context.Background(), "NAMY1234", 7, testPIN, "d")
	if err != nil {
		t.Fatalf("second redeem: %v", err)
	}
	if res.Success || res.Message != "already redeemed" {
		t.Fatalf("second redeem res = %+v", res)
	}
}

func TestRedeemLevelUp(t *testing.T) {
	db := &fakeDB{}
	coupons := &fakeCoupons{rec: coupon.Record{
		ID: 1, Code: "NAMY1234", StoreID: 7, Valid: true,
		ExpiresAt: time.Now().Add(time.Hour),
	}}
	staff := &fakeStaff{members: []store.Staff{{ID: 11, StoreID: 7, PINHash: pinHash(t)}}}
	devices := &fakeDevices{oldLevel: 1, newLevel: 2}
	svc := NewService(db, coupons, staff, devices, &fakeAudit{}, zap.NewNop())

	res, err := svc.Redeem(context.Background(), "NAMY1234", 7, testPIN, "device-1")
	if err != nil {
		t.Fatal(err)
	}
	if !res.LeveledUp || res.OldLevel != 1 || res.NewLevel != 2 {
		t.Fatalf("result = %+v, want level-up 1->2", res)
	}
}

func TestRedeemStaffLookupError(t *testing.T) {
	f := newFixture(t)
	f.staff.err = errors.New("connection reset")

	if _, err := f.svc.Redeem(context.Background(), "NAMY1234", 7, testPIN, ""); err == nil {
		t.Fatal("staff lookup failure not surfaced")
	}
	if f.coupons.rec.Used {
		t.Fatal("coupon mutated despite failure")
	}
}
