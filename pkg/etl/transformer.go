package etl

import (
	"fmt"

	"github.com/nortia-io/ordersync/pkg/apperrors"
	"github.com/nortia-io/ordersync/pkg/models"
)

// Transformer joins and aggregates an extracted batch into the denormalized
// analytical model. It is pure: no I/O, no retained state.
type Transformer interface {
	// Transform produces one analytical order per extracted order and one
	// analytical item per extracted item. A customer or product referenced
	// by the batch but absent from it is a hard error - analytical rows are
	// always fully populated or not written at all.
	Transform(batch *Batch) ([]*models.AnalyticalOrder, []*models.AnalyticalOrderItem, error)
}

type transformer struct{}

// NewTransformer creates a Transformer.
func NewTransformer() Transformer {
	return &transformer{}
}

var _ Transformer = (*transformer)(nil)

func (t *transformer) Transform(batch *Batch) ([]*models.AnalyticalOrder, []*models.AnalyticalOrderItem, error) {
	customersByID := make(map[int64]*models.Customer, len(batch.Customers))
	for _, c := range batch.Customers {
		customersByID[c.CustomerID] = c
	}

	productsByID := make(map[int64]*models.Product, len(batch.Products))
	for _, p := range batch.Products {
		productsByID[p.ProductID] = p
	}

	// Items arrive ordered by (order_id, order_item_id), so each group keeps
	// that order.
	itemsByOrder := make(map[int64][]*models.OrderItem, len(batch.Orders))
	for _, it := range batch.Items {
		itemsByOrder[it.OrderID] = append(itemsByOrder[it.OrderID], it)
	}

	orders := make([]*models.AnalyticalOrder, 0, len(batch.Orders))
	orderItems := make([]*models.AnalyticalOrderItem, 0, len(batch.Items))

	for _, order := range batch.Orders {
		customer, ok := customersByID[order.CustomerID]
		if !ok {
			return nil, nil, fmt.Errorf("%w: order %d references unknown customer %d",
				apperrors.ErrDataIntegrity, order.OrderID, order.CustomerID)
		}

		items := itemsByOrder[order.OrderID]

		var totalItems int64
		var totalAmount float64
		for _, it := range items {
			product, ok := productsByID[it.ProductID]
			if !ok {
				return nil, nil, fmt.Errorf("%w: order item %d references unknown product %d",
					apperrors.ErrDataIntegrity, it.OrderItemID, it.ProductID)
			}
			totalItems += it.Quantity
			totalAmount += float64(it.Quantity) * product.UnitPrice
		}

		orders = append(orders, &models.AnalyticalOrder{
			OrderID:      order.OrderID,
			CustomerID:   order.CustomerID,
			CustomerName: customer.CustomerName,
			OrderDate:    order.OrderDate,
			DeliveryDate: order.DeliveryDate,
			Status:       order.Status,
			TotalItems:   totalItems,
			TotalAmount:  totalAmount,
			CreatedAt:    order.CreatedAt,
			UpdatedAt:    order.UpdatedAt,
			CreatedBy:    order.CreatedBy,
			UpdatedBy:    order.UpdatedBy,
		})

		for _, it := range items {
			product := productsByID[it.ProductID]
			orderItems = append(orderItems, &models.AnalyticalOrderItem{
				ID:           it.OrderItemID,
				OrderID:      it.OrderID,
				ProductID:    it.ProductID,
				ProductName:  product.ProductName,
				Quantity:     it.Quantity,
				Price:        product.UnitPrice,
				OrderStatus:  order.Status,
				DeliveryDate: order.DeliveryDate,
				CreatedAt:    it.CreatedAt,
				UpdatedAt:    it.UpdatedAt,
				CreatedBy:    it.CreatedBy,
				UpdatedBy:    it.UpdatedBy,
			})
		}
	}

	return orders, orderItems, nil
}
