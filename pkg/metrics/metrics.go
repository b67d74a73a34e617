package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// 数据库查询延迟（秒）
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"operation", "table"},
	)

	// 慢查询计数
	SlowQueryCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "db_slow_query_total",
			Help: "Total number of queries slower than the configured threshold",
		},
	)

	// 进度视图刷新
	ProgressRefreshCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progress_view_refresh_total",
			Help: "Progress view refreshes by scope and result",
		},
		[]string{"scope", "result"}, // scope: full, categories; result: success, failed
	)

	ProgressRefreshDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "progress_view_refresh_duration_seconds",
			Help:    "Progress view refresh duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"scope"},
	)

	// 阶段重算
	StageRecomputeCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stage_recompute_total",
			Help: "Stage progress recomputations by result",
		},
		[]string{"result"},
	)

	// 分类分配
	AssignmentCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "category_assignment_total",
			Help: "Category to stage assignments by result",
		},
		[]string{"result"}, // assigned, unassigned, not_found, invalid, error
	)

	CrossProjectAssignmentCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assignment_cross_project_total",
			Help: "Assignments whose target stage belongs to a different project",
		},
	)

	// 缓存命中
	ProgressCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progress_cache_lookups_total",
			Help: "Progress cache lookups by outcome",
		},
		[]string{"outcome"}, // hit, miss, error
	)

	// Outbox 事件
	OutboxEventCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_events_total",
			Help: "Outbox events by result",
		},
		[]string{"routing_key", "result"}, // published, failed, replayed
	)

	// MQ 消费延迟（毫秒）
	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10),
		},
		[]string{"routing_key", "queue"},
	)
)

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordDBQueryDuration 记录数据库查询延迟
func RecordDBQueryDuration(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// IncrementSlowQuery 增加慢查询计数
func IncrementSlowQuery() {
	SlowQueryCount.Inc()
}

// RecordProgressRefresh 记录一次视图刷新
func RecordProgressRefresh(scope string, err error, duration time.Duration) {
	result := "success"
	if err != nil {
		result = "failed"
	}
	ProgressRefreshCount.WithLabelValues(scope, result).Inc()
	ProgressRefreshDuration.WithLabelValues(scope).Observe(duration.Seconds())
}

// RecordStageRecompute 记录一次阶段重算
func RecordStageRecompute(err error) {
	if err != nil {
		StageRecomputeCount.WithLabelValues("failed").Inc()
		return
	}
	StageRecomputeCount.WithLabelValues("success").Inc()
}

// IncrementAssignment 增加分配计数
func IncrementAssignment(result string) {
	AssignmentCount.WithLabelValues(result).Inc()
}

// IncrementCrossProjectAssignment 增加跨项目分配计数
func IncrementCrossProjectAssignment() {
	CrossProjectAssignmentCount.Inc()
}

// IncrementCacheLookup 增加缓存查询计数
func IncrementCacheLookup(outcome string, n int) {
	if n <= 0 {
		return
	}
	ProgressCacheLookups.WithLabelValues(outcome).Add(float64(n))
}

// IncrementOutboxEvent 增加 outbox 事件计数
func IncrementOutboxEvent(routingKey, result string) {
	OutboxEventCount.WithLabelValues(routingKey, result).Inc()
}

// RecordMQConsumeLatency 记录 MQ 消费延迟
func RecordMQConsumeLatency(routingKey, queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue).Observe(float64(duration.Milliseconds()))
}
