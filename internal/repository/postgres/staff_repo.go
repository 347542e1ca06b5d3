// internal/repository/postgres/staff_repo.go
package postgres

import (
	"context"
	"fmt"

	"namy-service/internal/domain/store"

	"github.com/jackc/pgx/v5/pgxpool"
)

type StaffRepository struct {
	db *pgxpool.Pool
}

func NewStaffRepository(db *pgxpool.Pool) *StaffRepository {
	return &StaffRepository{db: db}
}

// FindActiveByStore returns all active staff for a store; the caller matches
// the entered PIN against their hashes.
func (r *StaffRepository) FindActiveByStore(ctx context.Context, storeID int64) ([]store.Staff, error) {
	query := `
		SELECT id, store_id, name, pin_hash, active, created_at
		FROM staff
		WHERE store_id = $1 AND active = true
		ORDER BY id
	`

	rows, err := r.db.Query(ctx, query, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query staff: %w", err)
	}
	defer rows.Close()

	var members []store.Staff
	for rows.Next() {
		var m store.Staff
		if err := rows.Scan(&m.ID, &m.StoreID, &m.Name, &m.PINHash, &m.Active, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan staff row: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read staff rows: %w", err)
	}

	return members, nil
}
