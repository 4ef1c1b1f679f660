package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
// Following the explicit dependency injection pattern, this struct
// is passed to all components that need to record metrics.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Ledger RPC Metrics
	ledgerRPCCallsTotal       *prometheus.CounterVec
	ledgerRPCCallDuration     *prometheus.HistogramVec
	ledgerRPCRecordsPerCall   *prometheus.HistogramVec
	transactionsFetchedTotal  *prometheus.CounterVec
	candidatesClassifiedTotal *prometheus.CounterVec
	historyTruncatedTotal     *prometheus.CounterVec

	// Identity Metrics
	identityLookupsTotal   *prometheus.CounterVec
	identityLookupDuration *prometheus.HistogramVec
	identityCacheTotal     *prometheus.CounterVec

	// Feed Metrics
	feedOperationDuration *prometheus.HistogramVec
	feedOperationsTotal   *prometheus.CounterVec

	// Sync Metrics
	syncActivityDuration *prometheus.HistogramVec
	syncRecordsTotal     *prometheus.CounterVec

	// Database Metrics
	dbQueryDuration   *prometheus.HistogramVec
	dbOperationsTotal *prometheus.CounterVec

	// HTTP Metrics
	httpRequestDuration *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		ledgerRPCCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_rpc_calls_total",
				Help: "Total number of ledger RPC calls by method and status",
			},
			[]string{"method", "status", "endpoint"},
		),
		ledgerRPCCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_rpc_call_duration_seconds",
				Help:    "Duration of ledger RPC calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method", "endpoint"},
		),
		ledgerRPCRecordsPerCall: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_rpc_records_per_call",
				Help:    "Number of transaction records returned per account_tx call",
				Buckets: []float64{1, 10, 50, 100, 200, 400},
			},
			[]string{"endpoint"},
		),
		transactionsFetchedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transactions_fetched_total",
				Help: "Total number of transaction records fetched by source",
			},
			[]string{"account", "source"},
		),
		historyTruncatedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_history_truncated_total",
				Help: "Total number of account_tx fetches stopped by the page cap with history left",
			},
			[]string{"account", "endpoint"},
		),
		candidatesClassifiedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "candidates_classified_total",
				Help: "Total number of records classified as feed candidates by kind",
			},
			[]string{"kind"},
		),

		identityLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "identity_lookups_total",
				Help: "Total number of identity lookups by source and status",
			},
			[]string{"source", "status"},
		),
		identityLookupDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "identity_lookup_duration_seconds",
				Help:    "Duration of identity lookups in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"source"},
		),
		identityCacheTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "identity_cache_total",
				Help: "Identity cache lookups by result (hit, miss, error)",
			},
			[]string{"result"},
		),

		feedOperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "feed_operation_duration_seconds",
				Help:    "Duration of feed read operations in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"operation"},
		),
		feedOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feed_operations_total",
				Help: "Total number of feed read operations by status",
			},
			[]string{"operation", "status"},
		),

		syncActivityDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sync_activity_duration_seconds",
				Help:    "Duration of archive sync workflow activities in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"activity", "account"},
		),
		syncRecordsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sync_records_total",
				Help: "Total number of transaction records handled by archive sync, by result (fetched, written)",
			},
			[]string{"account", "result"},
		),

		dbQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "db_query_duration_seconds",
				Help:    "Duration of database queries in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
			[]string{"operation", "table"},
		),
		dbOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "db_operations_total",
				Help: "Total number of database operations",
			},
			[]string{"operation", "status"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"handler", "method", "status"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"handler", "method", "status"},
		),
	}
}

// Ledger metric helpers

// RecordRPCCall records a ledger RPC call with duration.
func (m *Metrics) RecordRPCCall(method, status, endpoint string, duration float64) {
	if m == nil {
		return
	}
	m.ledgerRPCCallsTotal.WithLabelValues(method, status, endpoint).Inc()
	m.ledgerRPCCallDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordRPCRecordsPerCall records the number of records returned by one account_tx page.
func (m *Metrics) RecordRPCRecordsPerCall(endpoint string, count float64) {
	if m == nil {
		return
	}
	m.ledgerRPCRecordsPerCall.WithLabelValues(endpoint).Observe(count)
}

// RecordTransactionsFetched records transaction records loaded from a source.
func (m *Metrics) RecordTransactionsFetched(account, source string, count int) {
	if m == nil {
		return
	}
	m.transactionsFetchedTotal.WithLabelValues(account, source).Add(float64(count))
}

// RecordHistoryTruncated records a fetch that hit the page cap before the end of history.
func (m *Metrics) RecordHistoryTruncated(account, endpoint string) {
	if m == nil {
		return
	}
	m.historyTruncatedTotal.WithLabelValues(account, endpoint).Inc()
}

// RecordCandidates records how many records were classified as the given kind.
func (m *Metrics) RecordCandidates(kind string, count int) {
	if m == nil {
		return
	}
	m.candidatesClassifiedTotal.WithLabelValues(kind).Add(float64(count))
}

// Identity metric helpers

// RecordIdentityLookup records an external identity lookup.
// Status is one of "found", "absent" or "error".
func (m *Metrics) RecordIdentityLookup(source, status string, duration float64) {
	if m == nil {
		return
	}
	m.identityLookupsTotal.WithLabelValues(source, status).Inc()
	m.identityLookupDuration.WithLabelValues(source).Observe(duration)
}

// RecordIdentityCache records an identity cache lookup result.
func (m *Metrics) RecordIdentityCache(result string) {
	if m == nil {
		return
	}
	m.identityCacheTotal.WithLabelValues(result).Inc()
}

// Feed metric helpers

// RecordFeedOperation records a feed read operation.
func (m *Metrics) RecordFeedOperation(operation string, err error, duration float64) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.feedOperationDuration.WithLabelValues(operation).Observe(duration)
	m.feedOperationsTotal.WithLabelValues(operation, status).Inc()
}

// Sync metric helpers

// RecordActivityDuration records sync activity execution duration.
func (m *Metrics) RecordActivityDuration(activity, account string, duration float64) {
	if m == nil {
		return
	}
	m.syncActivityDuration.WithLabelValues(activity, account).Observe(duration)
}

// RecordSyncRecords records records fetched from the ledger or written to the archive.
func (m *Metrics) RecordSyncRecords(account, result string, count int) {
	if m == nil {
		return
	}
	m.syncRecordsTotal.WithLabelValues(account, result).Add(float64(count))
}

// Database metric helpers

// RecordDBQuery records a database query with duration.
func (m *Metrics) RecordDBQuery(operation, table string, duration float64, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.dbQueryDuration.WithLabelValues(operation, table).Observe(duration)
	m.dbOperationsTotal.WithLabelValues(operation, status).Inc()
}

// HTTP metric helpers

// RecordHTTPRequest records an HTTP request with duration.
func (m *Metrics) RecordHTTPRequest(handler, method string, statusCode int, duration float64) {
	if m == nil {
		return
	}
	status := statusCodeToString(statusCode)
	m.httpRequestDuration.WithLabelValues(handler, method, status).Observe(duration)
	m.httpRequestsTotal.WithLabelValues(handler, method, status).Inc()
}

// Helper functions

func statusCodeToString(code int) string {
	// Group status codes by class
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "unknown"
	}
}
