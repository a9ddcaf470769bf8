package telemetry

import (
	"context"
	"slices"

	"github.com/grafana/pyroscope-go"
)

// Profiling label keys
const (
	ProfilingLabelResource   = "resource"
	ProfilingLabelRoute      = "route"
	ProfilingLabelMethod     = "method"
	ProfilingLabelPharmacyID = "pharmacy_id"
)

// maxLabelValueLength caps label values so a bad route cannot blow up cardinality
const maxLabelValueLength = 128

// highCardinalityLabels are never attached to profiles
var highCardinalityLabels = map[string]bool{
	"user_id":        true,
	"request_id":     true,
	"client_id":      true,
	"transaction_id": true,
	"trace_id":       true,
	"span_id":        true,
}

// WithProfilingLabels runs fn with Pyroscope labels attached to its goroutine.
//
//	telemetry.WithProfilingLabels(ctx, map[string]string{"resource": "transactions"}, func(ctx context.Context) {
//	    next(ctx)
//	})
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	pairs := sanitizeLabels(labels)
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}

// sanitizeLabels drops empty and high-cardinality labels and flattens the rest
// into sorted key/value pairs.
func sanitizeLabels(labels map[string]string) []string {
	keys := make([]string, 0, len(labels))
	for k, v := range labels {
		if k == "" || v == "" || highCardinalityLabels[k] {
			continue
		}
		keys = append(keys, k)
	}
	slices.Sort(keys)

	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		v := labels[k]
		if len(v) > maxLabelValueLength {
			v = v[:maxLabelValueLength]
		}
		pairs = append(pairs, k, v)
	}
	return pairs
}
