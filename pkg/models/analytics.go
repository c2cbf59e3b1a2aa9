package models

import "time"

// AnalyticalOrder is a denormalized order row in analytics.analytical_orders.
// One row per source order, replaced wholesale on every re-extraction.
type AnalyticalOrder struct {
	OrderID      int64
	CustomerID   int64
	CustomerName string
	OrderDate    time.Time
	DeliveryDate *time.Time
	Status       OrderStatus
	TotalItems   int64
	TotalAmount  float64
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CreatedBy    string
	UpdatedBy    string
}

// AnalyticalOrderItem is a denormalized item row in
// analytics.analytical_order_items. It carries the product name and price as
// of transformation time and the parent order's status - items have no
// lifecycle state of their own.
type AnalyticalOrderItem struct {
	ID           int64 // source order_item_id
	OrderID      int64
	ProductID    int64
	ProductName  string
	Quantity     int64
	Price        float64
	OrderStatus  OrderStatus
	DeliveryDate *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CreatedBy    string
	UpdatedBy    string
}
