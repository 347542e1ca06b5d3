// internal/repository/postgres/ad_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"namy-service/internal/domain/ad"
	xerrors "namy-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AdRepository struct {
	db *pgxpool.Pool
}

func NewAdRepository(db *pgxpool.Pool) *AdRepository {
	return &AdRepository{db: db}
}

// PickActive returns up to n active ads in random order, so consecutive
// unlock attempts rotate through the inventory.
func (r *AdRepository) PickActive(ctx context.Context, n int) ([]ad.Ad, error) {
	query := `
		SELECT id, title, video_key, duration_secs, min_watch_secs, active, created_at
		FROM ads
		WHERE active = true
		ORDER BY random()
		LIMIT $1
	`

	rows, err := r.db.Query(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query ads: %w", err)
	}
	defer rows.Close()

	var ads []ad.Ad
	for rows.Next() {
		var a ad.Ad
		if err := rows.Scan(&a.ID, &a.Title, &a.VideoKey, &a.DurationSecs, &a.MinWatchSecs, &a.Active, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ad row: %w", err)
		}
		ads = append(ads, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ad rows: %w", err)
	}

	return ads, nil
}

func (r *AdRepository) FindByID(ctx context.Context, id int64) (*ad.Ad, error) {
	query := `
		SELECT id, title, video_key, duration_secs, min_watch_secs, active, created_at
		FROM ads
		WHERE id = $1
	`

	var a ad.Ad
	err := r.db.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.Title, &a.VideoKey, &a.DurationSecs, &a.MinWatchSecs, &a.Active, &a.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find ad: %w", err)
	}

	return &a, nil
}
