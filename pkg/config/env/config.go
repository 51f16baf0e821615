// Package env sources configuration from environment variables.
package env

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/code-payments/code-escrow/pkg/config"
	"github.com/code-payments/code-escrow/pkg/config/wrapper"
)

type variable string

// NewConfig sources the environment variable named key, upper cased. The
// variable is looked up on every Get, so later changes are observed.
func NewConfig(key string) config.Config {
	return variable(strings.ToUpper(key))
}

func (v variable) Get(_ context.Context) (interface{}, error) {
	raw, ok := os.LookupEnv(string(v))
	if !ok || raw == "" {
		return nil, config.ErrNoValue
	}
	return []byte(raw), nil
}

func (variable) Shutdown() {}

func NewUint64Config(key string, defaultValue uint64) config.Uint64 {
	return wrapper.NewUint64Config(NewConfig(key), defaultValue)
}

func NewFloat64Config(key string, defaultValue float64) config.Float64 {
	return wrapper.NewFloat64Config(NewConfig(key), defaultValue)
}

func NewStringConfig(key string, defaultValue string) config.String {
	return wrapper.NewStringConfig(NewConfig(key), defaultValue)
}

func NewDurationConfig(key string, defaultValue time.Duration) config.Duration {
	return wrapper.NewDurationConfig(NewConfig(key), defaultValue)
}
