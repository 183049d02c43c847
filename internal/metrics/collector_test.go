package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollector_Records(t *testing.T) {
	c := NewCollector("pixelart")

	c.RecordHTTPRequest(http.MethodPost, "/api/generate", http.StatusOK, 20*time.Millisecond)
	c.RecordHTTPRequest(http.MethodPost, "/api/generate", http.StatusOK, 30*time.Millisecond)
	c.RecordGeneration("success", time.Second)
	c.RecordGeneration("quota_exceeded", time.Second)
	c.RecordRateLimited("client")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.httpRequestsTotal.WithLabelValues("POST", "/api/generate", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.generationsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.generationsTotal.WithLabelValues("quota_exceeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.rateLimitedTotal.WithLabelValues("client")))
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordHTTPRequest(http.MethodGet, "/healthz", http.StatusOK, time.Millisecond)
		c.RecordGeneration("success", time.Second)
		c.RecordRateLimited("upstream")
	})
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector("pixelart")
	c.RecordGeneration("success", time.Second)

	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pixelart_image_generations_total")
}
