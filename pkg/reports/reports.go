package reports

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/nortia-io/ordersync/pkg/repositories"
)

// DefaultTopN bounds the "top" reports the same way the reporting layer
// consumes them.
const DefaultTopN = 3

const dateLayout = "2006-01-02"

// Exporter runs the analytical report queries and writes each result as a
// CSV file in the output directory. It only reads finished analytical
// tables; it never runs inside a pass.
type Exporter struct {
	analytics repositories.AnalyticsRepository
	outputDir string
	logger    *zap.Logger
}

// NewExporter creates an Exporter writing into outputDir.
func NewExporter(analytics repositories.AnalyticsRepository, outputDir string, logger *zap.Logger) *Exporter {
	return &Exporter{
		analytics: analytics,
		outputDir: outputDir,
		logger:    logger.Named("reports"),
	}
}

// ExportAll runs every report. The first failure aborts the run.
func (e *Exporter) ExportAll(ctx context.Context) error {
	if err := e.ExportOpenOrdersByDateStatus(ctx); err != nil {
		return err
	}
	if err := e.ExportTopDeliveryDates(ctx, DefaultTopN); err != nil {
		return err
	}
	if err := e.ExportPendingItemsByProduct(ctx); err != nil {
		return err
	}
	if err := e.ExportTopCustomersWithPendingOrders(ctx, DefaultTopN); err != nil {
		return err
	}
	return nil
}

// ExportOpenOrdersByDateStatus writes the count of open orders per delivery
// date and status.
func (e *Exporter) ExportOpenOrdersByDateStatus(ctx context.Context) error {
	rows, err := e.analytics.OpenOrdersByDateStatus(ctx)
	if err != nil {
		return err
	}

	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			r.DeliveryDate.Format(dateLayout),
			string(r.Status),
			strconv.FormatInt(r.OrderCount, 10),
		})
	}

	return e.writeCSV("open_orders_by_date_status.csv",
		[]string{"delivery_date", "status", "order_count"}, records)
}

// ExportTopDeliveryDates writes the delivery dates with the most open orders.
func (e *Exporter) ExportTopDeliveryDates(ctx context.Context, limit int) error {
	rows, err := e.analytics.TopDeliveryDates(ctx, limit)
	if err != nil {
		return err
	}

	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			r.DeliveryDate.Format(dateLayout),
			strconv.FormatInt(r.OrderCount, 10),
			strconv.FormatInt(r.UniqueCustomers, 10),
		})
	}

	return e.writeCSV("top_delivery_dates.csv",
		[]string{"delivery_date", "order_count", "unique_customers"}, records)
}

// ExportPendingItemsByProduct writes pending item quantities per product.
func (e *Exporter) ExportPendingItemsByProduct(ctx context.Context) error {
	rows, err := e.analytics.PendingItemsByProduct(ctx)
	if err != nil {
		return err
	}

	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			strconv.FormatInt(r.ProductID, 10),
			r.ProductName,
			strconv.FormatInt(r.PendingItems, 10),
		})
	}

	return e.writeCSV("pending_items_by_product.csv",
		[]string{"product_id", "product_name", "pending_items"}, records)
}

// ExportTopCustomersWithPendingOrders writes the customers with the most
// pending orders.
func (e *Exporter) ExportTopCustomersWithPendingOrders(ctx context.Context, limit int) error {
	rows, err := e.analytics.TopCustomersWithPendingOrders(ctx, limit)
	if err != nil {
		return err
	}

	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			strconv.FormatInt(r.CustomerID, 10),
			r.CustomerName,
			strconv.FormatInt(r.PendingOrderCount, 10),
			strconv.FormatFloat(r.TotalPendingAmount, 'f', 2, 64),
		})
	}

	return e.writeCSV("top_customers_pending_orders.csv",
		[]string{"customer_id", "customer_name", "pending_order_count", "total_pending_amount"}, records)
}

func (e *Exporter) writeCSV(filename string, header []string, records [][]string) error {
	if len(records) == 0 {
		e.logger.Warn("No data to export", zap.String("report", filename))
	}

	if err := os.MkdirAll(e.outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(e.outputDir, filename)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write report header: %w", err)
	}
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write report rows: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush report: %w", err)
	}

	e.logger.Info("Report exported", zap.String("path", path), zap.Int("rows", len(records)))
	return nil
}
