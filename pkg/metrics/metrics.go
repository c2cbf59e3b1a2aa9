package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the pipeline's Prometheus collectors behind a private
// registry so tests can create isolated instances.
type Registry struct {
	reg              *prometheus.Registry
	PassesTotal      prometheus.Counter
	PassFailures     prometheus.Counter
	OrdersLoaded     prometheus.Counter
	OrderItemsLoaded prometheus.Counter
	PassDurationSec  prometheus.Histogram
}

// NewRegistry creates and registers the pipeline collectors.
func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	passes := prometheus.NewCounter(prometheus.CounterOpts{Name: "ordersync_passes_total"})
	failures := prometheus.NewCounter(prometheus.CounterOpts{Name: "ordersync_pass_failures_total"})
	orders := prometheus.NewCounter(prometheus.CounterOpts{Name: "ordersync_orders_loaded_total"})
	items := prometheus.NewCounter(prometheus.CounterOpts{Name: "ordersync_order_items_loaded_total"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ordersync_pass_duration_seconds",
		Buckets: prometheus.DefBuckets,
	})

	r.MustRegister(passes, failures, orders, items, duration)
	return &Registry{
		reg:              r,
		PassesTotal:      passes,
		PassFailures:     failures,
		OrdersLoaded:     orders,
		OrderItemsLoaded: items,
		PassDurationSec:  duration,
	}
}

// Handler returns an HTTP handler exposing the registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
