// Package newrelic backs metrics.Provider with a New Relic application.
// Traces map to transactions and spans to segments.
package newrelic

import (
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"

	"github.com/code-payments/code-escrow/pkg/metrics"
)

var (
	_ metrics.Provider = (*Provider)(nil)
	_ metrics.Trace    = (*transaction)(nil)
	_ metrics.Span     = (*segment)(nil)
)

type Provider struct {
	app *newrelic.Application
}

func NewProvider(app *newrelic.Application) *Provider {
	return &Provider{app: app}
}

// Application exposes the agent for log forwarding.
func (p *Provider) Application() *newrelic.Application {
	return p.app
}

func (p *Provider) StartTrace(name string) metrics.Trace {
	return &transaction{p.app.StartTransaction(name)}
}

func (p *Provider) RecordEvent(eventName string, attributes map[string]interface{}) {
	p.app.RecordCustomEvent(eventName, attributes)
}

func (p *Provider) RecordCount(metricName string, count uint64) {
	p.app.RecordCustomMetric(metricName, float64(count))
}

// RecordDuration reports the duration in milliseconds.
func (p *Provider) RecordDuration(metricName string, duration time.Duration) {
	p.app.RecordCustomMetric(metricName, float64(duration.Milliseconds()))
}

type transaction struct {
	*newrelic.Transaction
}

func (t *transaction) StartSpan(name string) metrics.Span {
	return &segment{t.StartSegment(name)}
}

func (t *transaction) OnError(err error) {
	t.NoticeError(err)
}

type segment struct {
	*newrelic.Segment
}
