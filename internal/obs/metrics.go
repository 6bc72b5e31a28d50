package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Общие HTTP-метрики
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

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

	// Доменные метрики: сессии и симулятор.
	sessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ticker_sessions_active",
		Help: "Currently tracked sessions.",
	})

	sessionEvictions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticker_session_evictions_total",
			Help: "Sessions removed, by reason.",
		},
		[]string{"reason"},
	)

	marketTicks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ticker_market_ticks_total",
		Help: "Simulator ticks applied across all sessions.",
	})
)

// Init registers all metrics in the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration,
		sessionsActive, sessionEvictions, marketTicks,
	)
}

// Handler возвращает Prometheus-хэндлер.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SetActiveSessions updates the session gauge.
func SetActiveSessions(n int) {
	sessionsActive.Set(float64(n))
}

// CountEviction increments the eviction counter for the given reason
// (logout, expired, limit, admin).
func CountEviction(reason string) {
	sessionEvictions.WithLabelValues(reason).Inc()
}

// CountTick records one applied simulator tick.
func CountTick() {
	marketTicks.Inc()
}

// Instrument оборачивает хэндлер для измерения RPS/latency/в полёте.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// statusWriter — локальная копия, чтобы знать код ответа.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush сохраняет поддержку SSE сквозь обёртку.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
