package models

import "time"

// OpenOrdersByDateStatus is one row of the open-orders report.
type OpenOrdersByDateStatus struct {
	DeliveryDate time.Time
	Status       OrderStatus
	OrderCount   int64
}

// TopDeliveryDate is one row of the busiest-delivery-dates report.
type TopDeliveryDate struct {
	DeliveryDate    time.Time
	OrderCount      int64
	UniqueCustomers int64
}

// PendingItemsByProduct is one row of the pending-items report.
type PendingItemsByProduct struct {
	ProductID    int64
	ProductName  string
	PendingItems int64
}

// TopCustomerPending is one row of the top-pending-customers report.
type TopCustomerPending struct {
	CustomerID         int64
	CustomerName       string
	PendingOrderCount  int64
	TotalPendingAmount float64
}
