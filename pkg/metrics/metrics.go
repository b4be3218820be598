package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/syncwave/crm/internal/common/config"
)

type Metrics struct {
	registry     *prometheus.Registry
	namespace    string
	httpReqCnt   *prometheus.CounterVec
	httpDur      *prometheus.HistogramVec
	httpInfl     *prometheus.GaugeVec
	dispatchRuns *prometheus.CounterVec
	dispatchInfl prometheus.Gauge
	sendCnt      *prometheus.CounterVec
	sendDur      *prometheus.HistogramVec
}

func New(cfg config.MetricsConfig) *Metrics {
	ns := cfg.Namespace
	r := prometheus.NewRegistry()
	// Register standard process and Go collectors
	r.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	r.MustRegister(collectors.NewGoCollector())

	// Register basic HTTP metrics
	httpReqCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "http_requests_total"}, []string{"method", "route", "status"})
	httpDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: ns, Name: "http_request_duration_seconds", Buckets: cfg.Buckets}, []string{"method", "route", "status"})
	httpInfl := prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: ns, Name: "http_requests_inflight"}, []string{"route"})
	r.MustRegister(httpReqCnt, httpDur, httpInfl)

	dispatchRuns := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "dispatch_runs_total"}, []string{"status"})
	dispatchInfl := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: ns, Name: "dispatch_runs_inflight"})
	r.MustRegister(dispatchRuns, dispatchInfl)

	sendCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "provider_sends_total"}, []string{"provider", "status"})
	sendDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: ns, Name: "provider_send_duration_seconds", Buckets: cfg.Buckets}, []string{"provider", "status"})
	r.MustRegister(sendCnt, sendDur)

	return &Metrics{
		registry:     r,
		namespace:    ns,
		httpReqCnt:   httpReqCnt,
		httpDur:      httpDur,
		httpInfl:     httpInfl,
		dispatchRuns: dispatchRuns,
		dispatchInfl: dispatchInfl,
		sendCnt:      sendCnt,
		sendDur:      sendDur,
	}
}

// DispatchStart marks a message run as in flight
func (m *Metrics) DispatchStart() {
	if m == nil {
		return
	}
	m.dispatchInfl.Inc()
}

// DispatchDone records the final status of a message run
func (m *Metrics) DispatchDone(status string) {
	if m == nil {
		return
	}
	m.dispatchRuns.WithLabelValues(status).Inc()
	m.dispatchInfl.Dec()
}

// SendDone records one provider call
func (m *Metrics) SendDone(provider, status string, since time.Time) {
	if m == nil {
		return
	}
	m.sendCnt.WithLabelValues(provider, status).Inc()
	m.sendDur.WithLabelValues(provider, status).Observe(time.Since(since).Seconds())
}

func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpInfl.WithLabelValues(route).Inc()
		start := time.Now()
		c.Next()
		status := httpStatus(c.Writer.Status())
		m.httpReqCnt.WithLabelValues(c.Request.Method, route, status).Inc()
		m.httpDur.WithLabelValues(c.Request.Method, route, status).Observe(time.Since(start).Seconds())
		m.httpInfl.WithLabelValues(route).Dec()
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func httpStatus(code int) string { return strconv.Itoa(code) }
