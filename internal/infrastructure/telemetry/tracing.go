package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName names the tracer used for service spans
const TracerName = "pharmabill"

// Span attribute keys used by the billing services
const (
	SpanAttrPharmacyID    = "pharmacy_id"
	SpanAttrClientID      = "client_id"
	SpanAttrTransactionID = "transaction_id"
	SpanAttrTxNumber      = "transaction_number"
	SpanAttrTxType        = "transaction_type"
	SpanAttrAttempt       = "attempt"
)

// StartServiceSpan starts an internal span named "{service}.{method}".
// The caller must end the span.
func StartServiceSpan(ctx context.Context, service, method string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx,
		fmt.Sprintf("%s.%s", service, method),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// EndSpan records err on the span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// GetTraceID returns the trace id in ctx, or "" if there is none.
func GetTraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}
