package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProductsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "products_created_total",
		Help: "Total number of products added to the catalog",
	})

	ProductCreateFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "product_create_failed_total",
		Help: "Total number of rejected product creations",
	}, []string{"reason"})

	CartAddsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cart_adds_total",
		Help: "Total number of line items added to carts",
	})

	CartAddsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_adds_rejected_total",
		Help: "Total number of rejected cart adds",
	}, []string{"reason"})

	SalesCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sales_completed_total",
		Help: "Total number of committed sales",
	})

	SaleLinesFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sale_lines_failed_total",
		Help: "Total number of sale lines whose stock decrement did not apply",
	})

	SaleCommitLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sale_commit_latency_seconds",
		Help:    "Latency of sale commits including catalog writes",
		Buckets: prometheus.DefBuckets,
	})

	LookupLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lookup_latency_seconds",
		Help:    "Latency of barcode prefill lookups",
		Buckets: prometheus.DefBuckets,
	})

	LookupCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lookup_cache_hits_total",
		Help: "Total number of prefill lookups served from cache",
	})

	BarcodesScannedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "barcodes_scanned_total",
		Help: "Total number of barcode scans routed to a cart",
	}, []string{"result"})

	LowStockProducts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "low_stock_products",
		Help: "Number of products currently at or below their reorder threshold",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
