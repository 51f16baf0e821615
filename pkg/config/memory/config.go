// Package memory provides a config source whose value is pinned in process,
// used by tests and by callers that override a default explicitly.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/code-payments/code-escrow/pkg/config"
)

var errDeveloperInduced = errors.New("in memory config: developer induced error")

type Config struct {
	mu       sync.RWMutex
	value    interface{}
	failing  bool
	shutdown bool
}

// NewConfig pins value. A nil value behaves as unset.
func NewConfig(value interface{}) *Config {
	return &Config{value: value}
}

func (c *Config) Get(_ context.Context) (interface{}, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.shutdown {
		return nil, config.ErrShutdown
	}
	if c.failing {
		return nil, errDeveloperInduced
	}
	if c.value == nil {
		return nil, config.ErrNoValue
	}
	return c.value, nil
}

func (c *Config) Shutdown() {
	c.mu.Lock()
	c.shutdown = true
	c.mu.Unlock()
}

func (c *Config) SetValue(value interface{}) {
	c.mu.Lock()
	c.value = value
	c.mu.Unlock()
}

func (c *Config) ClearValue() {
	c.SetValue(nil)
}

// InduceErrors makes Get fail until StopInducingErrors is called.
func (c *Config) InduceErrors() {
	c.setFailing(true)
}

func (c *Config) StopInducingErrors() {
	c.setFailing(false)
}

func (c *Config) setFailing(failing bool) {
	c.mu.Lock()
	c.failing = failing
	c.mu.Unlock()
}
