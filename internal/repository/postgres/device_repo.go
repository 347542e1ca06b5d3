// internal/repository/postgres/device_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"namy-service/internal/domain/store"
	xerrors "namy-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DeviceRepository struct {
	db *pgxpool.Pool
}

func NewDeviceRepository(db *pgxpool.Pool) *DeviceRepository {
	return &DeviceRepository{db: db}
}

// Ensure upserts the device row so later counters have something to bump.
func (r *DeviceRepository) Ensure(ctx context.Context, deviceID string) error {
	query := `
		INSERT INTO devices (device_id, level, redemptions, created_at, updated_at)
		VALUES ($1, 1, 0, now(), now())
		ON CONFLICT (device_id) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, query, deviceID); err != nil {
		return fmt.Errorf("failed to ensure device: %w", err)
	}
	return nil
}

// IncrementRedemptionTx bumps the device's redemption counter and recomputes
// its loyalty level inside the redemption transaction. Returns the level
// before and after the bump.
func (r *DeviceRepository) IncrementRedemptionTx(ctx context.Context, tx pgx.Tx, deviceID string) (oldLevel, newLevel int, err error) {
	query := `
		INSERT INTO devices (device_id, level, redemptions, created_at, updated_at)
		VALUES ($1, 1, 1, now(), now())
		ON CONFLICT (device_id) DO UPDATE
		SET redemptions = devices.redemptions + 1,
		    level = 1 + (devices.redemptions + 1) / 5,
		    updated_at = now()
		RETURNING redemptions, level
	`

	var redemptions, level int
	if err := tx.QueryRow(ctx, query, deviceID).Scan(&redemptions, &level); err != nil {
		return 0, 0, fmt.Errorf("failed to increment device redemptions: %w", err)
	}

	oldLevel = 1 + (redemptions-1)/5
	return oldLevel, level, nil
}

func (r *DeviceRepository) FindByID(ctx context.Context, deviceID string) (*store.Device, error) {
	query := `
		SELECT device_id, level, redemptions, created_at, updated_at
		FROM devices
		WHERE device_id = $1
	`

	var d store.Device
	err := r.db.QueryRow(ctx, query, deviceID).Scan(
		&d.DeviceID, &d.Level, &d.Redemptions, &d.CreatedAt, &d.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find device: %w", err)
	}
	return &d, nil
}
