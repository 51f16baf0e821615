// Package noop provides a metrics.Provider that discards everything.
package noop

import (
	"time"

	"github.com/code-payments/code-escrow/pkg/metrics"
)

type Provider struct{}

func NewProvider() *Provider {
	return &Provider{}
}

func (*Provider) StartTrace(string) metrics.Trace            { return trace{} }
func (*Provider) RecordEvent(string, map[string]interface{}) {}
func (*Provider) RecordCount(string, uint64)                 {}
func (*Provider) RecordDuration(string, time.Duration)       {}

type trace struct{}

func (trace) StartSpan(string) metrics.Span    { return span{} }
func (trace) AddAttribute(string, interface{}) {}
func (trace) OnError(error)                    {}
func (trace) End()                             {}

type span struct{}

func (span) AddAttribute(string, interface{}) {}
func (span) End()                             {}
