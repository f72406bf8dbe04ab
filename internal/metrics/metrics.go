package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "checkout"

type Metrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec

	Orders           *prometheus.CounterVec
	Cancellations    *prometheus.CounterVec
	TxDurationMS     *prometheus.HistogramVec
	ExpiredOrders    *prometheus.CounterVec
	StockDecremented prometheus.Counter
	StockRestored    prometheus.Counter
}

// New creates and registers every collector on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"method", "route"}),
		Orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_placed_total",
			Help:      "Order placement attempts by final transaction state and error kind.",
		}, []string{"state", "kind"}),
		Cancellations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_canceled_total",
			Help:      "Order cancellation attempts by final transaction state and error kind.",
		}, []string{"state", "kind"}),
		TxDurationMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transaction_duration_ms",
			Help:      "Wall time of checkout transactions, lock waits included.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		}, []string{"operation", "state"}),
		ExpiredOrders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expired_orders_total",
			Help:      "Stale pending orders resolved by the expiry worker.",
		}, []string{"resolution"}),
		StockDecremented: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_units_decremented_total",
			Help:      "Units of stock taken by committed orders.",
		}),
		StockRestored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_units_restored_total",
			Help:      "Units of stock returned by committed cancellations.",
		}),
	}

	reg.MustRegister(
		m.Requests, m.LatencyMS,
		m.Orders, m.Cancellations, m.TxDurationMS, m.ExpiredOrders,
		m.StockDecremented, m.StockRestored,
	)
	return m
}

func (m *Metrics) ObserveTx(operation, state string, kind string, started time.Time) {
	elapsed := float64(time.Since(started).Microseconds()) / 1000
	m.TxDurationMS.WithLabelValues(operation, state).Observe(elapsed)

	switch operation {
	case "place_order":
		m.Orders.WithLabelValues(state, kind).Inc()
	case "cancel_order":
		m.Cancellations.WithLabelValues(state, kind).Inc()
	}
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
