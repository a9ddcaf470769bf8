package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pharmabill/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTP metric attribute keys
var (
	attrHTTPMethod     = attribute.Key("http_method")
	attrHTTPRoute      = attribute.Key("http_route")
	attrHTTPStatusCode = attribute.Key("http_status_code")
)

// httpDurationBuckets are request latency buckets in seconds
var httpDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// httpMetrics holds the HTTP instruments
type httpMetrics struct {
	requestTotal    *telemetry.Counter
	requestDuration *telemetry.Histogram
	activeRequests  metric.Int64UpDownCounter
}

func newHTTPMetrics(meter metric.Meter) (*httpMetrics, error) {
	requestTotal, err := telemetry.NewCounter(meter,
		"http_server_request_total", "Total number of HTTP requests", "{request}")
	if err != nil {
		return nil, err
	}
	// invoice rendering can take seconds, hence the long tail
	requestDuration, err := telemetry.NewHistogram(meter,
		"http_server_request_duration_seconds", "HTTP request latency in seconds", "s", httpDurationBuckets...)
	if err != nil {
		return nil, err
	}
	activeRequests, err := meter.Int64UpDownCounter("http_server_active_requests",
		metric.WithDescription("Number of currently active HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}
	return &httpMetrics{
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		activeRequests:  activeRequests,
	}, nil
}

// HTTPMetrics records request count, latency and in-flight requests.
// Routes are recorded by pattern, never by raw path.
func HTTPMetrics(meter metric.Meter) (gin.HandlerFunc, error) {
	m, err := newHTTPMetrics(meter)
	if err != nil {
		return nil, err
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		m.activeRequests.Add(ctx, 1)

		c.Next()

		m.activeRequests.Add(ctx, -1)
		base := []attribute.KeyValue{
			attrHTTPMethod.String(c.Request.Method),
			attrHTTPRoute.String(routePattern(c)),
		}
		m.requestDuration.RecordDuration(ctx, time.Since(start), base...)

		counted := append(base, attrHTTPStatusCode.Int(c.Writer.Status()))
		if pharmacyID, ok := GetPharmacyID(c); ok {
			counted = append(counted, telemetry.AttrPharmacyID.String(pharmacyID.String()))
		}
		m.requestTotal.Inc(ctx, counted...)
	}, nil
}

func routePattern(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unknown"
}
