package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Login outcomes.
const (
	LoginSuccess           = "success"
	LoginInvalidCredential = "invalid_credential"
	LoginInternal          = "internal"
)

// Bearer token check outcomes.
const (
	TokenAdmitted = "admitted"
	TokenAbsent   = "absent"
	TokenRejected = "rejected"
)

var (
	loginTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_login_total",
			Help: "Login attempts by outcome.",
		},
		[]string{"outcome"},
	)

	tokenChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_token_checks_total",
			Help: "Bearer token checks performed by the auth middleware, by outcome.",
		},
		[]string{"outcome"},
	)

	tokenRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_token_rejections_total",
			Help: "Rejected bearer tokens by coarse reason.",
		},
		[]string{"reason"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		loginTotal,
		tokenChecksTotal,
		tokenRejectionsTotal,
		httpRequestsTotal,
		httpRequestDuration,
	}
}

// Register adds all collectors to reg. Registering twice is not an error.
func Register(reg prometheus.Registerer) error {
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}

// Handler serves the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func ObserveLogin(outcome string) {
	loginTotal.WithLabelValues(outcome).Inc()
}

// LoginCounter exposes the login counter for one outcome.
func LoginCounter(outcome string) prometheus.Counter {
	return loginTotal.WithLabelValues(outcome)
}

// TokenCheckCounter exposes the token check counter for one outcome.
func TokenCheckCounter(outcome string) prometheus.Counter {
	return tokenChecksTotal.WithLabelValues(outcome)
}

func ObserveTokenCheck(outcome string) {
	tokenChecksTotal.WithLabelValues(outcome).Inc()
}

func ObserveTokenRejection(reason string) {
	tokenChecksTotal.WithLabelValues(TokenRejected).Inc()
	tokenRejectionsTotal.WithLabelValues(reason).Inc()
}

// Middleware records request count and latency labelled by route template,
// never by raw path, to keep label cardinality bounded.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method

		httpRequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	}
}
