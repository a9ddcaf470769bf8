package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func setupTestMeter(t *testing.T) (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = mp.Shutdown(context.Background())
	})
	return mp, reader
}

func findMetricByName(t *testing.T, reader *sdkmetric.ManualReader, name string) *metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestHTTPMetrics(t *testing.T) {
	mp, reader := setupTestMeter(t)
	mw, err := HTTPMetrics(mp.Meter("http.server"))
	require.NoError(t, err)

	pharmacyID := uuid.New()
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(PharmacyIDKey, pharmacyID)
		c.Next()
	})
	router.Use(mw)
	router.GET("/api/v1/clients/:id", okHandler)

	for range 3 {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/clients/"+uuid.NewString(), nil))
		require.Equal(t, http.StatusOK, w.Code)
	}

	total := findMetricByName(t, reader, "http_server_request_total")
	require.NotNil(t, total)
	sum, ok := total.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1, "routes are recorded by pattern")
	assert.Equal(t, int64(3), sum.DataPoints[0].Value)

	attrs := sum.DataPoints[0].Attributes
	route, _ := attrs.Value(attrHTTPRoute)
	assert.Equal(t, "/api/v1/clients/:id", route.AsString())
	pharmacy, _ := attrs.Value("pharmacy_id")
	assert.Equal(t, pharmacyID.String(), pharmacy.AsString())

	duration := findMetricByName(t, reader, "http_server_request_duration_seconds")
	require.NotNil(t, duration)
	hist, ok := duration.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(3), hist.DataPoints[0].Count)
}

func TestHTTPMetrics_UnmatchedRoute(t *testing.T) {
	mp, reader := setupTestMeter(t)
	mw, err := HTTPMetrics(mp.Meter("http.server"))
	require.NoError(t, err)

	router := gin.New()
	router.Use(mw)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))

	total := findMetricByName(t, reader, "http_server_request_total")
	require.NotNil(t, total)
	sum := total.Data.(metricdata.Sum[int64])
	route, _ := sum.DataPoints[0].Attributes.Value(attrHTTPRoute)
	assert.Equal(t, "unknown", route.AsString())
	status, _ := sum.DataPoints[0].Attributes.Value(attrHTTPStatusCode)
	assert.Equal(t, int64(http.StatusNotFound), status.AsInt64())
}
