package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/nortia-io/ordersync/pkg/apperrors"
	"github.com/nortia-io/ordersync/pkg/database"
	"github.com/nortia-io/ordersync/pkg/models"
)

// SourceRepository provides read-only access to the operational store.
// All lookups are batched so a pass touches the source a bounded number of
// times regardless of how many orders changed.
type SourceRepository interface {
	// OrdersUpdatedSince returns all orders with updated_at >= since,
	// ordered by order id. The bound is inclusive so same-timestamp updates
	// straddling two passes are never missed.
	OrdersUpdatedSince(ctx context.Context, since time.Time) ([]*models.Order, error)

	// OrderItemsForOrders returns the items belonging to the given orders in
	// a single query, ordered by (order_id, order_item_id).
	OrderItemsForOrders(ctx context.Context, orderIDs []int64) ([]*models.OrderItem, error)

	// CustomersByIDs returns the customers with the given ids.
	CustomersByIDs(ctx context.Context, customerIDs []int64) ([]*models.Customer, error)

	// ProductsByIDs returns the products with the given ids.
	ProductsByIDs(ctx context.Context, productIDs []int64) ([]*models.Product, error)
}

type sourceRepository struct {
	db *database.DB
}

// NewSourceRepository creates a SourceRepository over the operational store.
func NewSourceRepository(db *database.DB) SourceRepository {
	return &sourceRepository{db: db}
}

var _ SourceRepository = (*sourceRepository)(nil)

func (r *sourceRepository) OrdersUpdatedSince(ctx context.Context, since time.Time) ([]*models.Order, error) {
	query := `
		SELECT o.order_id, o.customer_id, o.order_date, o.delivery_date, o.status,
		       o.created_at, o.updated_at, o.created_by, o.updated_by
		FROM operations.orders o
		WHERE o.updated_at >= $1
		ORDER BY o.order_id`

	rows, err := r.db.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w: %w", apperrors.ErrConnectivity, err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(&o.OrderID, &o.CustomerID, &o.OrderDate, &o.DeliveryDate, &o.Status,
			&o.CreatedAt, &o.UpdatedAt, &o.CreatedBy, &o.UpdatedBy); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read orders: %w: %w", apperrors.ErrConnectivity, err)
	}
	return orders, nil
}

func (r *sourceRepository) OrderItemsForOrders(ctx context.Context, orderIDs []int64) ([]*models.OrderItem, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT oi.order_item_id, oi.order_id, oi.product_id, oi.quantity,
		       oi.created_at, oi.updated_at, oi.created_by, oi.updated_by
		FROM operations.order_items oi
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.order_id, oi.order_item_id`

	rows, err := r.db.Query(ctx, query, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w: %w", apperrors.ErrConnectivity, err)
	}
	defer rows.Close()

	var items []*models.OrderItem
	for rows.Next() {
		var it models.OrderItem
		if err := rows.Scan(&it.OrderItemID, &it.OrderID, &it.ProductID, &it.Quantity,
			&it.CreatedAt, &it.UpdatedAt, &it.CreatedBy, &it.UpdatedBy); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, &it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read order items: %w: %w", apperrors.ErrConnectivity, err)
	}
	return items, nil
}

func (r *sourceRepository) CustomersByIDs(ctx context.Context, customerIDs []int64) ([]*models.Customer, error) {
	if len(customerIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT c.customer_id, c.customer_name, c.is_active, c.customer_address,
		       c.created_at, c.updated_at, c.created_by, c.updated_by
		FROM operations.customers c
		WHERE c.customer_id = ANY($1)`

	rows, err := r.db.Query(ctx, query, customerIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query customers: %w: %w", apperrors.ErrConnectivity, err)
	}
	defer rows.Close()

	var customers []*models.Customer
	for rows.Next() {
		var c models.Customer
		if err := rows.Scan(&c.CustomerID, &c.CustomerName, &c.IsActive, &c.CustomerAddress,
			&c.CreatedAt, &c.UpdatedAt, &c.CreatedBy, &c.UpdatedBy); err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read customers: %w: %w", apperrors.ErrConnectivity, err)
	}
	return customers, nil
}

func (r *sourceRepository) ProductsByIDs(ctx context.Context, productIDs []int64) ([]*models.Product, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT p.product_id, p.product_name, p.barcode, p.unit_price, p.is_active,
		       p.created_at, p.updated_at, p.created_by, p.updated_by
		FROM operations.products p
		WHERE p.product_id = ANY($1)`

	rows, err := r.db.Query(ctx, query, productIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w: %w", apperrors.ErrConnectivity, err)
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ProductID, &p.ProductName, &p.Barcode, &p.UnitPrice, &p.IsActive,
			&p.CreatedAt, &p.UpdatedAt, &p.CreatedBy, &p.UpdatedBy); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read products: %w: %w", apperrors.ErrConnectivity, err)
	}
	return products, nil
}
