package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syncwave/crm/internal/common/config"
)

func TestMetrics_MiddlewareAndDispatch(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New(config.MetricsConfig{Namespace: "test"})

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/api/tags/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", gin.WrapH(m.Handler()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/tags/42", nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	m.DispatchStart()
	m.SendDone("simulated", "sent", time.Now())
	m.DispatchDone("sent")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()
	assert.Contains(t, body, `test_http_requests_total{method="GET",route="/api/tags/:id",status="204"} 1`)
	assert.Contains(t, body, `test_dispatch_runs_total{status="sent"} 1`)
	assert.Contains(t, body, `test_dispatch_runs_inflight 0`)
	assert.Contains(t, body, `test_provider_sends_total{provider="simulated",status="sent"} 1`)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.DispatchStart()
	m.DispatchDone("sent")
	m.SendDone("p", "sent", time.Now())
}
