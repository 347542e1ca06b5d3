// internal/repository/postgres/store_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"namy-service/internal/domain/coupon"
	"namy-service/internal/domain/store"
	xerrors "namy-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type StoreRepository struct {
	db *pgxpool.Pool
}

func NewStoreRepository(db *pgxpool.Pool) *StoreRepository {
	return &StoreRepository{db: db}
}

func (r *StoreRepository) FindByID(ctx context.Context, id int64) (*store.Store, error) {
	query := `
		SELECT id, name, address, phone, rating, active, created_at, updated_at
		FROM stores
		WHERE id = $1
	`

	var s store.Store
	err := r.db.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.Name, &s.Address, &s.Phone, &s.Rating, &s.Active, &s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find store: %w", err)
	}

	return &s, nil
}

// Summary builds the payload-embedded snapshot of a store.
func (r *StoreRepository) Summary(ctx context.Context, id int64) (coupon.StoreSummary, error) {
	s, err := r.FindByID(ctx, id)
	if err != nil {
		return coupon.StoreSummary{}, err
	}
	return coupon.StoreSummary{
		Name:    s.Name,
		Address: s.Address.String,
		Phone:   s.Phone.String,
		Rating:  s.Rating,
	}, nil
}
