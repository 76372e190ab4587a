package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestInstancesDoNotCollide(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()
	a.RecordDispatch("SOS", "HIGH")
	a.RecordDispatch("SOS", "HIGH")
	b.RecordDispatch("SOS", "HIGH")

	assert.Equal(t, 2.0, testutil.ToFloat64(a.dispatchTotal.WithLabelValues("SOS", "HIGH")))
	assert.Equal(t, 1.0, testutil.ToFloat64(b.dispatchTotal.WithLabelValues("SOS", "HIGH")))
}

func TestCountersAndHandler(t *testing.T) {
	m := NewMetrics()
	m.RecordDispatchUnavailable("DOCTOR_CONNECT")
	m.RecordResolution("resolved")
	m.RecordReconcileFlagged(3)
	m.ObserveLocatorScan(time.Millisecond)
	m.OnDeny("/api/dispatch/sos", "ip:1.2.3.4")

	assert.Equal(t, 3.0, testutil.ToFloat64(m.reconcileFlagged))
	m.SetPendingRequests(4)
	assert.Equal(t, 4.0, testutil.ToFloat64(m.pendingRequests))

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "mediroute_dispatch_unavailable_total")
	assert.Contains(t, body, "mediroute_rate_limit_deny_total")
	assert.Contains(t, body, "mediroute_locator_scan_seconds")
}

func TestMonitorMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()
	r := gin.New()
	r.Use(MonitorMiddleware(m))
	r.GET("/ping/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for i := 0; i < 2; i++ {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping/"+string(rune('a'+i)), nil))
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/ping/:id", "204")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "unmatched", "404")))
}
