package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/nortia-io/ordersync/pkg/apperrors"
	"github.com/nortia-io/ordersync/pkg/database"
	"github.com/nortia-io/ordersync/pkg/models"
)

const upsertOrderSQL = `
	INSERT INTO analytics.analytical_orders (
		order_id, customer_id, customer_name, order_date, delivery_date,
		status, total_items, total_amount, created_at, updated_at,
		created_by, updated_by
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (order_id) DO UPDATE SET
		customer_id = EXCLUDED.customer_id,
		customer_name = EXCLUDED.customer_name,
		order_date = EXCLUDED.order_date,
		delivery_date = EXCLUDED.delivery_date,
		status = EXCLUDED.status,
		total_items = EXCLUDED.total_items,
		total_amount = EXCLUDED.total_amount,
		updated_at = EXCLUDED.updated_at,
		updated_by = EXCLUDED.updated_by`

const upsertOrderItemSQL = `
	INSERT INTO analytics.analytical_order_items (
		id, order_id, product_id, product_name, quantity,
		price, order_status, delivery_date, created_at, updated_at,
		created_by, updated_by
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (id) DO UPDATE SET
		order_id = EXCLUDED.order_id,
		product_id = EXCLUDED.product_id,
		product_name = EXCLUDED.product_name,
		quantity = EXCLUDED.quantity,
		price = EXCLUDED.price,
		order_status = EXCLUDED.order_status,
		delivery_date = EXCLUDED.delivery_date,
		updated_at = EXCLUDED.updated_at,
		updated_by = EXCLUDED.updated_by`

// AnalyticsRepository owns all writes to the analytical store and the
// read-only report queries that run between passes.
type AnalyticsRepository interface {
	// UpsertBatch writes the orders and their items in a single transaction.
	// Either everything lands or nothing does, so readers never observe an
	// order without its items.
	UpsertBatch(ctx context.Context, orders []*models.AnalyticalOrder, items []*models.AnalyticalOrderItem) error

	// OpenOrdersByDateStatus counts non-completed orders grouped by delivery
	// date and status.
	OpenOrdersByDateStatus(ctx context.Context) ([]*models.OpenOrdersByDateStatus, error)

	// TopDeliveryDates returns the delivery dates carrying the most open orders.
	TopDeliveryDates(ctx context.Context, limit int) ([]*models.TopDeliveryDate, error)

	// PendingItemsByProduct sums pending item quantities per product.
	PendingItemsByProduct(ctx context.Context) ([]*models.PendingItemsByProduct, error)

	// TopCustomersWithPendingOrders returns the customers with the most
	// pending orders and their total pending amount.
	TopCustomersWithPendingOrders(ctx context.Context, limit int) ([]*models.TopCustomerPending, error)
}

type analyticsRepository struct {
	db        *database.DB
	batchSize int
}

// NewAnalyticsRepository creates an AnalyticsRepository over the analytical
// store. batchSize caps the number of statements queued per wire round-trip.
func NewAnalyticsRepository(db *database.DB, batchSize int) AnalyticsRepository {
	return &analyticsRepository{db: db, batchSize: batchSize}
}

var _ AnalyticsRepository = (*analyticsRepository)(nil)

func (r *analyticsRepository) UpsertBatch(ctx context.Context, orders []*models.AnalyticalOrder, items []*models.AnalyticalOrderItem) error {
	if len(orders) == 0 && len(items) == 0 {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin load transaction: %w: %w", apperrors.ErrConnectivity, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback on defer is best-effort

	if err := r.upsertOrders(ctx, tx, orders); err != nil {
		return err
	}
	if err := r.upsertOrderItems(ctx, tx, items); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit load transaction: %w: %w", apperrors.ErrConnectivity, err)
	}
	return nil
}

func (r *analyticsRepository) upsertOrders(ctx context.Context, tx pgx.Tx, orders []*models.AnalyticalOrder) error {
	for start := 0; start < len(orders); start += r.batchSize {
		end := min(start+r.batchSize, len(orders))

		batch := &pgx.Batch{}
		for _, o := range orders[start:end] {
			batch.Queue(upsertOrderSQL,
				o.OrderID, o.CustomerID, o.CustomerName, o.OrderDate, o.DeliveryDate,
				o.Status, o.TotalItems, o.TotalAmount, o.CreatedAt, o.UpdatedAt,
				o.CreatedBy, o.UpdatedBy)
		}

		if err := r.sendBatch(ctx, tx, batch); err != nil {
			return fmt.Errorf("%w: failed to upsert analytical orders: %w", apperrors.ErrDataIntegrity, err)
		}
	}
	return nil
}

func (r *analyticsRepository) upsertOrderItems(ctx context.Context, tx pgx.Tx, items []*models.AnalyticalOrderItem) error {
	for start := 0; start < len(items); start += r.batchSize {
		end := min(start+r.batchSize, len(items))

		batch := &pgx.Batch{}
		for _, it := range items[start:end] {
			batch.Queue(upsertOrderItemSQL,
				it.ID, it.OrderID, it.ProductID, it.ProductName, it.Quantity,
				it.Price, it.OrderStatus, it.DeliveryDate, it.CreatedAt, it.UpdatedAt,
				it.CreatedBy, it.UpdatedBy)
		}

		if err := r.sendBatch(ctx, tx, batch); err != nil {
			return fmt.Errorf("%w: failed to upsert analytical order items: %w", apperrors.ErrDataIntegrity, err)
		}
	}
	return nil
}

// sendBatch executes every queued statement and surfaces the first rejection.
// A single rejected row fails the batch; the surrounding transaction rolls
// back so the pass never half-writes.
func (r *analyticsRepository) sendBatch(ctx context.Context, tx pgx.Tx, batch *pgx.Batch) error {
	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return results.Close()
}

func (r *analyticsRepository) OpenOrdersByDateStatus(ctx context.Context) ([]*models.OpenOrdersByDateStatus, error) {
	query := `
		SELECT delivery_date::date, status, COUNT(*) AS order_count
		FROM analytics.analytical_orders
		WHERE status <> 'COMPLETED' AND delivery_date IS NOT NULL
		GROUP BY delivery_date::date, status
		ORDER BY delivery_date::date, status`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query open orders by date and status: %w: %w", apperrors.ErrConnectivity, err)
	}
	defer rows.Close()

	var result []*models.OpenOrdersByDateStatus
	for rows.Next() {
		var row models.OpenOrdersByDateStatus
		if err := rows.Scan(&row.DeliveryDate, &row.Status, &row.OrderCount); err != nil {
			return nil, fmt.Errorf("failed to scan open orders row: %w", err)
		}
		result = append(result, &row)
	}
	return result, rows.Err()
}

func (r *analyticsRepository) TopDeliveryDates(ctx context.Context, limit int) ([]*models.TopDeliveryDate, error) {
	query := `
		SELECT delivery_date::date, COUNT(*) AS order_count,
		       COUNT(DISTINCT customer_id) AS unique_customers
		FROM analytics.analytical_orders
		WHERE status <> 'COMPLETED' AND delivery_date IS NOT NULL
		GROUP BY delivery_date::date
		ORDER BY order_count DESC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top delivery dates: %w: %w", apperrors.ErrConnectivity, err)
	}
	defer rows.Close()

	var result []*models.TopDeliveryDate
	for rows.Next() {
		var row models.TopDeliveryDate
		if err := rows.Scan(&row.DeliveryDate, &row.OrderCount, &row.UniqueCustomers); err != nil {
			return nil, fmt.Errorf("failed to scan top delivery dates row: %w", err)
		}
		result = append(result, &row)
	}
	return result, rows.Err()
}

func (r *analyticsRepository) PendingItemsByProduct(ctx context.Context) ([]*models.PendingItemsByProduct, error) {
	query := `
		SELECT oi.product_id, oi.product_name, SUM(oi.quantity) AS pending_items
		FROM analytics.analytical_order_items oi
		WHERE oi.order_status = 'PENDING'
		GROUP BY oi.product_id, oi.product_name
		ORDER BY pending_items DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending items by product: %w: %w", apperrors.ErrConnectivity, err)
	}
	defer rows.Close()

	var result []*models.PendingItemsByProduct
	for rows.Next() {
		var row models.PendingItemsByProduct
		if err := rows.Scan(&row.ProductID, &row.ProductName, &row.PendingItems); err != nil {
			return nil, fmt.Errorf("failed to scan pending items row: %w", err)
		}
		result = append(result, &row)
	}
	return result, rows.Err()
}

func (r *analyticsRepository) TopCustomersWithPendingOrders(ctx context.Context, limit int) ([]*models.TopCustomerPending, error) {
	query := `
		SELECT o.customer_id, o.customer_name, COUNT(*) AS pending_order_count,
		       SUM(o.total_amount) AS total_pending_amount
		FROM analytics.analytical_orders o
		WHERE o.status = 'PENDING'
		GROUP BY o.customer_id, o.customer_name
		ORDER BY pending_order_count DESC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top customers with pending orders: %w: %w", apperrors.ErrConnectivity, err)
	}
	defer rows.Close()

	var result []*models.TopCustomerPending
	for rows.Next() {
		var row models.TopCustomerPending
		if err := rows.Scan(&row.CustomerID, &row.CustomerName, &row.PendingOrderCount, &row.TotalPendingAmount); err != nil {
			return nil, fmt.Errorf("failed to scan top customers row: %w", err)
		}
		result = append(result, &row)
	}
	return result, rows.Err()
}
