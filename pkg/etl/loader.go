package etl

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for migrations
	"go.uber.org/zap"

	"github.com/nortia-io/ordersync/pkg/database"
	"github.com/nortia-io/ordersync/pkg/models"
	"github.com/nortia-io/ordersync/pkg/repositories"
)

// Loader writes transformed records into the analytical store and owns its
// schema.
type Loader interface {
	// EnsureSchema applies the analytics schema migrations. Idempotent; safe
	// to call on every startup.
	EnsureSchema(ctx context.Context) error

	// Load upserts the orders and items of one pass. The write is
	// all-or-nothing: a rejected row aborts the whole load.
	Load(ctx context.Context, orders []*models.AnalyticalOrder, items []*models.AnalyticalOrderItem) error
}

type loader struct {
	analytics      repositories.AnalyticsRepository
	targetURL      string
	migrationsPath string
	logger         *zap.Logger
}

// NewLoader creates a Loader. targetURL is used to open a short-lived
// database/sql connection for migrations; all data writes go through the
// analytics repository's pool.
func NewLoader(analytics repositories.AnalyticsRepository, targetURL, migrationsPath string, logger *zap.Logger) Loader {
	return &loader{
		analytics:      analytics,
		targetURL:      targetURL,
		migrationsPath: migrationsPath,
		logger:         logger.Named("loader"),
	}
}

var _ Loader = (*loader)(nil)

func (l *loader) EnsureSchema(ctx context.Context) error {
	db, err := sql.Open("pgx", l.targetURL)
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping target for migrations: %w", err)
	}

	return database.RunMigrations(db, l.migrationsPath, l.logger)
}

func (l *loader) Load(ctx context.Context, orders []*models.AnalyticalOrder, items []*models.AnalyticalOrderItem) error {
	if len(orders) == 0 && len(items) == 0 {
		return nil
	}

	if err := l.analytics.UpsertBatch(ctx, orders, items); err != nil {
		return fmt.Errorf("loading analytical records: %w", err)
	}

	l.logger.Info("Loaded analytical records",
		zap.Int("orders", len(orders)),
		zap.Int("order_items", len(items)))
	return nil
}
