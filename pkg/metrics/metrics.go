// Package metrics Prometheus 指标定义与 gin 中间件
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 15},
		},
		[]string{"method", "endpoint"},
	)

	PapersGenerated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "exam_papers_generated_total",
		Help: "Number of exam papers persisted",
	})

	AssemblyShortfall = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exam_assembly_shortfall_total",
			Help: "Questions requested by a rule but not available in the pool",
		},
		[]string{"q_type"},
	)

	AIRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exam_ai_generate_requests_total",
			Help: "AI question generation requests by outcome mode",
		},
		[]string{"mode"}, // mock | llm | masked_error | error
	)

	DomainEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exam_domain_events_total",
			Help: "Domain events consumed",
		},
		[]string{"topic"},
	)
)

var registerOnce sync.Once

// Register 注册全部指标，可重复调用
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			PapersGenerated,
			AssemblyShortfall,
			AIRequests,
			DomainEvents,
		)
	})
}

// Middleware 记录请求数与耗时，endpoint 使用路由模板避免高基数
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(time.Since(start).Seconds())
	}
}

// Handler /metrics 端点
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
