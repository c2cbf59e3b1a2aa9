package models

import "time"

// OrderStatus enumerates the lifecycle states of an operational order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusInProgress OrderStatus = "IN_PROGRESS"
	OrderStatusCompleted  OrderStatus = "COMPLETED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

// Order is a row from operations.orders. Read-only to this system.
type Order struct {
	OrderID      int64
	CustomerID   int64
	OrderDate    time.Time
	DeliveryDate *time.Time
	Status       OrderStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CreatedBy    string
	UpdatedBy    string
}

// OrderItem is a row from operations.order_items.
type OrderItem struct {
	OrderItemID int64
	OrderID     int64
	ProductID   int64
	Quantity    int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CreatedBy   string
	UpdatedBy   string
}

// Customer is a row from operations.customers.
type Customer struct {
	CustomerID      int64
	CustomerName    string
	IsActive        bool
	CustomerAddress string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CreatedBy       string
	UpdatedBy       string
}

// Product is a row from operations.products.
type Product struct {
	ProductID   int64
	ProductName string
	Barcode     string
	UnitPrice   float64
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CreatedBy   string
	UpdatedBy   string
}
