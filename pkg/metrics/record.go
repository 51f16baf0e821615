package metrics

import (
	"context"
	"time"
)

// Each recorder is a no-op when ctx carries no Provider.

func withProvider(ctx context.Context, fn func(Provider)) {
	if p := ProviderFromContext(ctx); p != nil {
		fn(p)
	}
}

func RecordCount(ctx context.Context, metricName string, count uint64) {
	withProvider(ctx, func(p Provider) { p.RecordCount(metricName, count) })
}

func RecordDuration(ctx context.Context, metricName string, duration time.Duration) {
	withProvider(ctx, func(p Provider) { p.RecordDuration(metricName, duration) })
}

// RecordEvent records a named event with its attributes.
func RecordEvent(ctx context.Context, eventName string, kvPairs map[string]interface{}) {
	withProvider(ctx, func(p Provider) { p.RecordEvent(eventName, kvPairs) })
}
