package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Global metrics, registered on the default registry through promauto.

var (
	// HttpRequestsTotal counts shard HTTP requests by method, route and status code.
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kektorgraph_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	// HttpRequestDuration measures shard HTTP response time.
	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kektorgraph_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"method", "route"},
	)

	// FetchesTotal counts fan-out fetches by result ("ok" or "error").
	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kektorgraph_traversal_fetches_total",
			Help: "Total number of edge fan-out fetches",
		},
		[]string{"result"},
	)

	// FetchDuration measures a whole fan-out, i.e. the slowest engine.
	FetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kektorgraph_traversal_fetch_duration_seconds",
			Help:    "Duration of edge fan-out fetches in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// EngineRequestsTotal counts per-engine requests made by the fan-out.
	EngineRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kektorgraph_traversal_engine_requests_total",
			Help: "Total number of requests sent to storage engines",
		},
		[]string{"engine", "result"},
	)

	// EdgesFetched counts edges appended to cursor sequences.
	EdgesFetched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kektorgraph_traversal_edges_fetched_total",
			Help: "Total number of edges delivered into edge cursors",
		},
	)

	// EdgesSkipped counts returned edges dropped because their path was already filtered.
	EdgesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kektorgraph_traversal_edges_skipped_total",
			Help: "Total number of fetched edges skipped as filtered paths",
		},
	)

	// DocumentsRead mirrors the read-documents counters of all steps.
	DocumentsRead = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kektorgraph_traversal_documents_read_total",
			Help: "Total number of documents physically read by storage engines",
		},
	)

	// ShardEdgesStored counts edges inserted into a shard engine.
	ShardEdgesStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kektorgraph_shard_edges_inserted_total",
			Help: "Total number of edges inserted into the shard",
		},
		[]string{"database"},
	)

	// ShardDocumentsScanned counts documents scanned while answering reads.
	ShardDocumentsScanned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kektorgraph_shard_documents_scanned_total",
			Help: "Total number of edge documents scanned by shard reads",
		},
		[]string{"database"},
	)
)
