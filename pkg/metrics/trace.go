package metrics

import (
	"context"
)

// StartTrace begins a trace on the context's Provider and attaches it to the
// returned context. Without a Provider the context is returned as is, with a
// nil Trace.
func StartTrace(ctx context.Context, name string) (context.Context, Trace) {
	p := ProviderFromContext(ctx)
	if p == nil {
		return ctx, nil
	}

	trace := p.StartTrace(name)
	return NewContext(ctx, trace), trace
}

// MethodTracer is a span for one call inside the context's trace. All
// methods accept a nil receiver, which is what TraceMethodCall returns when
// nothing is being traced.
type MethodTracer struct {
	trace Trace
	span  Span
}

// TraceMethodCall opens a span named "<component> <method>".
func TraceMethodCall(ctx context.Context, component, method string) *MethodTracer {
	trace := TraceFromContext(ctx)
	if trace == nil {
		return nil
	}
	return &MethodTracer{
		trace: trace,
		span:  trace.StartSpan(component + " " + method),
	}
}

func (t *MethodTracer) AddAttribute(key string, value interface{}) {
	if t != nil {
		t.span.AddAttribute(key, value)
	}
}

func (t *MethodTracer) AddAttributes(attributes map[string]interface{}) {
	for k, v := range attributes {
		t.AddAttribute(k, v)
	}
}

// OnError flags the enclosing trace. Nil errors are ignored.
func (t *MethodTracer) OnError(err error) {
	if t != nil && err != nil {
		t.trace.OnError(err)
	}
}

func (t *MethodTracer) End() {
	if t != nil {
		t.span.End()
	}
}
