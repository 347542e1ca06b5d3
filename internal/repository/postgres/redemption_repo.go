// internal/repository/postgres/redemption_repo.go
package postgres

import (
	"context"
	"fmt"

	"namy-service/internal/domain/redemption"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RedemptionRepository struct {
	db *pgxpool.Pool
}

func NewRedemptionRepository(db *pgxpool.Pool) *RedemptionRepository {
	return &RedemptionRepository{db: db}
}

// CreateTx writes the audit row for a redemption attempt within the
// redemption transaction.
func (r *RedemptionRepository) CreateTx(ctx context.Context, tx pgx.Tx, rec *redemption.Redemption) error {
	query := `
		INSERT INTO redemptions (coupon_code, store_id, staff_id, device_id, success, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING id, created_at
	`

	err := tx.QueryRow(
		ctx, query,
		rec.CouponCode, rec.StoreID, rec.StaffID, rec.DeviceID, rec.Success, rec.Message,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create redemption: %w", err)
	}

	return nil
}

// CountByStore returns how many successful redemptions a store has seen.
func (r *RedemptionRepository) CountByStore(ctx context.Context, storeID int64) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM redemptions WHERE store_id = $1 AND success = true`, storeID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count redemptions: %w", err)
	}
	return count, nil
}
