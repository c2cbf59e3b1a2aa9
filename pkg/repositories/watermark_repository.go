package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/nortia-io/ordersync/pkg/apperrors"
	"github.com/nortia-io/ordersync/pkg/database"
)

// WatermarkRepository persists the last-extraction watermark in the
// analytical store so it survives process restarts. One row per pipeline
// name; this system runs a single pipeline but the key keeps the table
// reusable.
type WatermarkRepository interface {
	// Get returns the stored watermark, or the zero time when no pass has
	// ever succeeded (meaning: extract everything).
	Get(ctx context.Context, pipeline string) (time.Time, error)

	// Set persists the watermark for the pipeline, inserting or overwriting.
	Set(ctx context.Context, pipeline string, ts time.Time) error
}

type watermarkRepository struct {
	db *database.DB
}

// NewWatermarkRepository creates a WatermarkRepository over the analytical store.
func NewWatermarkRepository(db *database.DB) WatermarkRepository {
	return &watermarkRepository{db: db}
}

var _ WatermarkRepository = (*watermarkRepository)(nil)

func (r *watermarkRepository) Get(ctx context.Context, pipeline string) (time.Time, error) {
	var ts time.Time
	err := r.db.QueryRow(ctx,
		`SELECT last_extraction_time FROM analytics.etl_state WHERE pipeline = $1`,
		pipeline).Scan(&ts)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read watermark: %w: %w", apperrors.ErrConnectivity, err)
	}
	return ts, nil
}

func (r *watermarkRepository) Set(ctx context.Context, pipeline string, ts time.Time) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO analytics.etl_state (pipeline, last_extraction_time)
		VALUES ($1, $2)
		ON CONFLICT (pipeline) DO UPDATE SET last_extraction_time = EXCLUDED.last_extraction_time`,
		pipeline, ts)
	if err != nil {
		return fmt.Errorf("failed to persist watermark: %w: %w", apperrors.ErrConnectivity, err)
	}
	return nil
}
