package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	EmailProcessedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "email_processed_count",
			Help: "Total number of emails examined by the ingestion loop",
		},
		[]string{"status"}, // status: success, no_match, failed, duplicate
	)

	RowInsertCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "row_insert_count",
			Help: "Total number of CSV rows inserted into document tables",
		},
		[]string{"doc_type"},
	)

	TableCreatedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "table_created_count",
			Help: "Total number of document tables created on demand",
		},
		[]string{"doc_type"},
	)

	MessageIngestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "message_ingest_duration_seconds",
			Help:    "Time spent ingesting a single email message",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
		[]string{"status"},
	)

	SlowQueryCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "slow_query_count",
			Help: "Total number of SQL statements slower than the slow-query threshold",
		},
	)
)

// IncrementEmailProcessed 增加邮件处理计数
func IncrementEmailProcessed(status string) {
	EmailProcessedCount.WithLabelValues(status).Inc()
}

// IncrementRowInserted 增加行写入计数
func IncrementRowInserted(docType string) {
	RowInsertCount.WithLabelValues(docType).Inc()
}

// IncrementTableCreated 增加建表计数
func IncrementTableCreated(docType string) {
	TableCreatedCount.WithLabelValues(docType).Inc()
}

// RecordMessageIngestDuration 记录单封邮件的摄取耗时
func RecordMessageIngestDuration(status string, duration time.Duration) {
	MessageIngestDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// IncrementSlowQuery 增加慢查询计数
func IncrementSlowQuery() {
	SlowQueryCount.Inc()
}

// Serve exposes /metrics on addr. Run it in a goroutine; an ingestion pass is
// short-lived, so scrape failures after the run ends are expected.
func Serve(addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	logger.Info("Metrics listener started", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("Metrics listener stopped", zap.Error(err))
	}
}
