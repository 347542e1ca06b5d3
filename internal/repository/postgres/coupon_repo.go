// internal/repository/postgres/coupon_repo.go
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"namy-service/internal/domain/coupon"
	xerrors "namy-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CouponRepository struct {
	db *pgxpool.Pool
}

func NewCouponRepository(db *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{db: db}
}

// Create inserts a freshly issued coupon row.
func (r *CouponRepository) Create(ctx context.Context, rec *coupon.Record) error {
	query := `
		INSERT INTO coupons (code, store_id, discount_id, device_id, created_at, expires_at, used, valid)
		VALUES ($1, $2, $3, $4, $5, $6, false, true)
		RETURNING id
	`

	err := r.db.QueryRow(
		ctx, query,
		rec.Code, rec.StoreID, rec.DiscountID, rec.DeviceID, rec.CreatedAt, rec.ExpiresAt,
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("failed to create coupon: %w", err)
	}

	rec.Valid = true
	return nil
}

// FindRedeemDetails returns the authoritative verdict for a code, joined with
// the store and discount snapshots the coupon view renders.
func (r *CouponRepository) FindRedeemDetails(ctx context.Context, code string) (*coupon.RedeemDetails, error) {
	query := `
		SELECT c.id, c.code, c.used, c.used_at, c.expires_at, c.valid, c.store_id,
		       s.name, COALESCE(s.address, ''), COALESCE(s.phone, ''), s.rating,
		       d.title, d.type, d.value,
		       COALESCE(d.min_purchase, 0), COALESCE(d.max_discount, 0),
		       d.availability, COALESCE(d.restrictions, '')
		FROM coupons c
		JOIN stores s ON s.id = c.store_id
		JOIN discounts d ON d.id = c.discount_id
		WHERE c.code = $1
	`

	var details coupon.RedeemDetails
	var availabilityJSON []byte

	err := r.db.QueryRow(ctx, query, code).Scan(
		&details.ID, &details.Code, &details.Used, &details.UsedAt, &details.ExpiresAt, &details.Valid, &details.StoreID,
		&details.Store.Name, &details.Store.Address, &details.Store.Phone, &details.Store.Rating,
		&details.Discount.Title, &details.Discount.Type, &details.Discount.Value,
		&details.Discount.MinPurchase, &details.Discount.MaxDiscount,
		&availabilityJSON, &details.Discount.Restrictions,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrCouponNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find redeem details: %w", err)
	}

	if len(availabilityJSON) > 0 {
		json.Unmarshal(availabilityJSON, &details.Discount.Availability)
	}

	return &details, nil
}

// LockForRedeem loads the coupon row under FOR UPDATE so a concurrent redeem
// of the same code blocks until this transaction settles.
func (r *CouponRepository) LockForRedeem(ctx context.Context, tx pgx.Tx, code string) (*coupon.Record, error) {
	query := `
		SELECT id, code, store_id, discount_id, device_id, created_at, expires_at, used, used_at, valid
		FROM coupons
		WHERE code = $1
		FOR UPDATE
	`

	var rec coupon.Record
	err := tx.QueryRow(ctx, query, code).Scan(
		&rec.ID, &rec.Code, &rec.StoreID, &rec.DiscountID, &rec.DeviceID,
		&rec.CreatedAt, &rec.ExpiresAt, &rec.Used, &rec.UsedAt, &rec.Valid,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrCouponNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock coupon: %w", err)
	}

	return &rec, nil
}

// MarkUsedTx flips the coupon to its terminal used state.
func (r *CouponRepository) MarkUsedTx(ctx context.Context, tx pgx.Tx, id int64, usedAt time.Time) error {
	tag, err := tx.Exec(ctx, `UPDATE coupons SET used = true, used_at = $2 WHERE id = $1 AND used = false`, id, usedAt)
	if err != nil {
		return fmt.Errorf("failed to mark coupon used: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrCouponUsed
	}
	return nil
}
