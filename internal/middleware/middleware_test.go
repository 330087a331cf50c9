package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/annel0/voxel-world/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestPrometheusMiddleware_BasicMetrics(t *testing.T) {
	// Отдельный регистр для изоляции тестов
	registry := prometheus.NewRegistry()

	gin.SetMode(gin.TestMode)
	r := gin.New()

	promMw := NewPrometheusMiddleware("test", registry)
	r.Use(promMw.Handler())

	r.GET("/ok", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })
	r.GET("/error", func(c *gin.Context) { c.JSON(500, gin.H{"error": "test error"}) })

	assert.Equal(t, 200, serve(r, "/ok").Code)
	assert.Equal(t, 500, serve(r, "/error").Code)
	assert.Equal(t, 404, serve(r, "/missing/123").Code)

	metricFamilies, err := registry.Gather()
	require.NoError(t, err)

	var durationFound, errorsFound bool
	for _, mf := range metricFamilies {
		switch mf.GetName() {
		case "test_http_request_duration_seconds":
			durationFound = true
			assert.Equal(t, "Длительность HTTP-запросов.", mf.GetHelp())
			// /ok, /error и один "unmatched"
			assert.Len(t, mf.Metric, 3)
		case "test_http_request_errors_total":
			errorsFound = true
			// 500 и 404
			assert.Len(t, mf.Metric, 2)
		}
	}

	assert.True(t, durationFound, "метрика длительности не найдена")
	assert.True(t, errorsFound, "метрика ошибок не найдена")
}

func TestRegisterMetricsEndpoint(t *testing.T) {
	registry := prometheus.NewRegistry()

	gin.SetMode(gin.TestMode)
	r := gin.New()
	promMw := NewPrometheusMiddleware("test", registry)
	r.Use(promMw.Handler())
	RegisterMetricsEndpoint(r, registry)

	serve(r, "/metrics")
	w := serve(r, "/metrics")
	require.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), `test_http_request_duration_seconds_count{method="GET",path="/metrics",status="200"} 1`)
}

func TestRequestLogger_TraceID(t *testing.T) {
	var buf bytes.Buffer
	log := logging.NewWriterLogger("api", &buf, logging.INFO)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(NewRequestLogger(log).Handler())

	var captured string
	r.GET("/trace", func(c *gin.Context) {
		traceID, exists := c.Get(TraceIDKey)
		require.True(t, exists, "trace_id должен быть в контексте")
		captured = traceID.(string)
		c.Status(204)
	})

	w := serve(r, "/trace")
	assert.Equal(t, 204, w.Code)
	assert.NotEmpty(t, captured)
	assert.Equal(t, captured, w.Header().Get(TraceIDHeader))
	assert.Contains(t, buf.String(), "GET /trace 204")
	assert.Contains(t, buf.String(), "trace="+captured)
	assert.NotContains(t, buf.String(), "▶", "строка начала запроса пишется только на DEBUG")
}
