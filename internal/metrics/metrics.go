// Package metrics 提供 signet 服务的 Prometheus 监控指标
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "signet"

// HTTP 请求指标
var (
	// HTTPRequestsTotal HTTP 请求总数
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP 请求总数",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration HTTP 请求耗时
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP 请求耗时(秒)",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// HTTPRequestSize HTTP 请求大小
	HTTPRequestSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_size_bytes",
			Help:      "HTTP 请求大小(字节)",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 8), // 64B 到 1MB
		},
		[]string{"method", "path"},
	)

	// HTTPResponseSize HTTP 响应大小
	HTTPResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_response_size_bytes",
			Help:      "HTTP 响应大小(字节)",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
		},
		[]string{"method", "path"},
	)
)

// 签名验证指标
var (
	// VerificationsTotal 签名验证总数
	VerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_total",
			Help:      "签名验证总数",
		},
		[]string{"workflow", "outcome"}, // workflow: typed_data/personal_sign/unwrapped, outcome: accepted/rejected
	)

	// VerificationDuration 签名验证耗时
	VerificationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "verification_duration_seconds",
			Help:      "签名验证耗时(秒)",
			Buckets:   []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05},
		},
		[]string{"workflow"},
	)

	// SupportQueriesTotal 能力探测请求总数
	SupportQueriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "support_queries_total",
			Help:      "能力探测请求总数",
		},
	)
)

// 账户域缓存指标
var (
	// DomainCacheRequestsTotal 账户域缓存请求总数
	DomainCacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "domain_cache_requests_total",
			Help:      "账户域缓存请求总数",
		},
		[]string{"result"}, // hit, miss, error
	)
)

// 链上访问指标
var (
	// ChainRequestsTotal 链上请求总数
	ChainRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chain_requests_total",
			Help:      "链上请求总数",
		},
		[]string{"method", "result"}, // result: success, error
	)

	// ChainRequestDuration 链上请求耗时
	ChainRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chain_request_duration_seconds",
			Help:      "链上请求耗时(秒)",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method"},
	)
)

// Kafka 指标
var (
	// KafkaMessagesSent Kafka 消息发送总数
	KafkaMessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_messages_sent_total",
			Help:      "Kafka 消息发送总数",
		},
		[]string{"topic", "result"}, // result: success, error
	)
)

// 定时任务指标
var (
	// JobExecutionsTotal 任务执行总数
	JobExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_executions_total",
			Help:      "任务执行总数",
		},
		[]string{"job", "status"}, // status: success, failed, skipped
	)

	// JobDuration 任务执行耗时
	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "任务执行耗时(秒)",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"job"},
	)
)

// RecordHTTPRequest 记录 HTTP 请求指标，未知的大小（<=0）不观测
func RecordHTTPRequest(method, path, status string, durationSeconds float64, reqBytes, respBytes int64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(durationSeconds)
	if reqBytes > 0 {
		HTTPRequestSize.WithLabelValues(method, path).Observe(float64(reqBytes))
	}
	if respBytes > 0 {
		HTTPResponseSize.WithLabelValues(method, path).Observe(float64(respBytes))
	}
}

// RecordVerification 记录签名验证结果
func RecordVerification(workflow, outcome string, durationSeconds float64) {
	VerificationsTotal.WithLabelValues(workflow, outcome).Inc()
	VerificationDuration.WithLabelValues(workflow).Observe(durationSeconds)
}

// RecordSupportQuery 记录能力探测请求
func RecordSupportQuery() {
	SupportQueriesTotal.Inc()
}

// RecordDomainCache 记录账户域缓存结果
func RecordDomainCache(result string) {
	DomainCacheRequestsTotal.WithLabelValues(result).Inc()
}

// RecordChainRequest 记录链上请求
func RecordChainRequest(method string, success bool, durationSeconds float64) {
	result := "success"
	if !success {
		result = "error"
	}
	ChainRequestsTotal.WithLabelValues(method, result).Inc()
	ChainRequestDuration.WithLabelValues(method).Observe(durationSeconds)
}

// RecordKafkaMessage 记录 Kafka 消息发送结果
func RecordKafkaMessage(topic string, success bool) {
	result := "success"
	if !success {
		result = "error"
	}
	KafkaMessagesSent.WithLabelValues(topic, result).Inc()
}

// RecordJobExecution 记录任务执行结果
func RecordJobExecution(job, status string, durationSeconds float64) {
	JobExecutionsTotal.WithLabelValues(job, status).Inc()
	JobDuration.WithLabelValues(job).Observe(durationSeconds)
}
