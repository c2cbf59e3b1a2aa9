package reports

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nortia-io/ordersync/pkg/models"
)

// mockAnalyticsRepo implements repositories.AnalyticsRepository for testing.
type mockAnalyticsRepo struct {
	openOrders   []*models.OpenOrdersByDateStatus
	topDates     []*models.TopDeliveryDate
	pendingItems []*models.PendingItemsByProduct
	topCustomers []*models.TopCustomerPending

	gotLimit int
}

func (m *mockAnalyticsRepo) UpsertBatch(_ context.Context, _ []*models.AnalyticalOrder, _ []*models.AnalyticalOrderItem) error {
	return nil
}

func (m *mockAnalyticsRepo) OpenOrdersByDateStatus(_ context.Context) ([]*models.OpenOrdersByDateStatus, error) {
	return m.openOrders, nil
}

func (m *mockAnalyticsRepo) TopDeliveryDates(_ context.Context, limit int) ([]*models.TopDeliveryDate, error) {
	m.gotLimit = limit
	return m.topDates, nil
}

func (m *mockAnalyticsRepo) PendingItemsByProduct(_ context.Context) ([]*models.PendingItemsByProduct, error) {
	return m.pendingItems, nil
}

func (m *mockAnalyticsRepo) TopCustomersWithPendingOrders(_ context.Context, limit int) ([]*models.TopCustomerPending, error) {
	m.gotLimit = limit
	return m.topCustomers, nil
}

func TestExportOpenOrdersByDateStatus(t *testing.T) {
	repo := &mockAnalyticsRepo{
		openOrders: []*models.OpenOrdersByDateStatus{
			{
				DeliveryDate: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
				Status:       models.OrderStatusPending,
				OrderCount:   4,
			},
		},
	}
	dir := t.TempDir()
	e := NewExporter(repo, dir, zap.NewNop())

	require.NoError(t, e.ExportOpenOrdersByDateStatus(context.Background()))

	data, err := os.ReadFile(filepath.Join(dir, "open_orders_by_date_status.csv"))
	require.NoError(t, err)
	assert.Equal(t, "delivery_date,status,order_count\n2026-07-01,PENDING,4\n", string(data))
}

func TestExportTopCustomers_FormatsAmount(t *testing.T) {
	repo := &mockAnalyticsRepo{
		topCustomers: []*models.TopCustomerPending{
			{CustomerID: 7, CustomerName: "Acme Corp", PendingOrderCount: 2, TotalPendingAmount: 25},
		},
	}
	dir := t.TempDir()
	e := NewExporter(repo, dir, zap.NewNop())

	require.NoError(t, e.ExportTopCustomersWithPendingOrders(context.Background(), 5))
	assert.Equal(t, 5, repo.gotLimit)

	data, err := os.ReadFile(filepath.Join(dir, "top_customers_pending_orders.csv"))
	require.NoError(t, err)
	assert.Equal(t,
		"customer_id,customer_name,pending_order_count,total_pending_amount\n7,Acme Corp,2,25.00\n",
		string(data))
}

func TestExportAll_WritesEveryReport(t *testing.T) {
	dir := t.TempDir()
	e := NewExporter(&mockAnalyticsRepo{}, dir, zap.NewNop())

	require.NoError(t, e.ExportAll(context.Background()))

	for _, name := range []string{
		"open_orders_by_date_status.csv",
		"top_delivery_dates.csv",
		"pending_items_by_product.csv",
		"top_customers_pending_orders.csv",
	} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, "missing report %s", name)
	}
}

func TestExportAll_CreatesOutputDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	e := NewExporter(&mockAnalyticsRepo{}, dir, zap.NewNop())

	require.NoError(t, e.ExportAll(context.Background()))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
