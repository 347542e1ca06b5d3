// internal/repository/postgres/discount_repo.go
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"namy-service/internal/domain/coupon"
	"namy-service/internal/domain/store"
	xerrors "namy-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DiscountRepository struct {
	db *pgxpool.Pool
}

func NewDiscountRepository(db *pgxpool.Pool) *DiscountRepository {
	return &DiscountRepository{db: db}
}

func (r *DiscountRepository) FindByID(ctx context.Context, id int64) (*store.Discount, error) {
	query := `
		SELECT id, store_id, title, type, value, min_purchase, max_discount,
		       availability, restrictions, active, created_at
		FROM discounts
		WHERE id = $1
	`

	var d store.Discount
	err := r.db.QueryRow(ctx, query, id).Scan(
		&d.ID, &d.StoreID, &d.Title, &d.Type, &d.Value, &d.MinPurchase, &d.MaxDiscount,
		&d.Availability, &d.Restrictions, &d.Active, &d.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find discount: %w", err)
	}

	return &d, nil
}

// Summary builds the payload-embedded snapshot of a discount.
func Summary(d *store.Discount) coupon.DiscountSummary {
	summary := coupon.DiscountSummary{
		Title:        d.Title,
		Type:         coupon.DiscountType(d.Type),
		Value:        d.Value,
		MinPurchase:  d.MinPurchase.Float64,
		MaxDiscount:  d.MaxDiscount.Float64,
		Restrictions: d.Restrictions.String,
	}
	if len(d.Availability) > 0 {
		json.Unmarshal(d.Availability, &summary.Availability)
	}
	return summary
}
