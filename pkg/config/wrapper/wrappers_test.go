package wrapper

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/code-escrow/pkg/config"
	"github.com/code-payments/code-escrow/pkg/config/memory"
)

// lifecycle is the sequence of source states every typed wrapper must handle
func lifecycle[T any](t *testing.T, newWrapper func(config.Config) config.Value[T], defaultValue, overridenValue T, text []byte, textValue T) {
	ctx := context.Background()
	mock := memory.NewConfig(nil)
	wrapper := newWrapper(mock)

	// Return the default value when no override is set
	val, err := wrapper.GetSafe(ctx)
	require.NoError(t, err)
	assert.Equal(t, defaultValue, val)
	assert.Equal(t, defaultValue, wrapper.Get(ctx))

	// The overriden value is returned when set
	mock.SetValue(overridenValue)
	val, err = wrapper.GetSafe(ctx)
	require.NoError(t, err)
	assert.Equal(t, overridenValue, val)

	// The last observed config value is returned on error
	mock.InduceErrors()
	val, err = wrapper.GetSafe(ctx)
	require.Error(t, err)
	assert.Equal(t, overridenValue, val)
	assert.Equal(t, overridenValue, wrapper.Get(ctx))

	// The default value is returned when the override no longer has a value
	mock.StopInducingErrors()
	mock.ClearValue()
	val, err = wrapper.GetSafe(ctx)
	require.NoError(t, err)
	assert.Equal(t, defaultValue, val)

	// Text sources are parsed
	mock.SetValue(text)
	val, err = wrapper.GetSafe(ctx)
	require.NoError(t, err)
	assert.Equal(t, textValue, val)

	// Unsupported source types keep the last value
	mock.SetValue(struct{}{})
	val, err = wrapper.GetSafe(ctx)
	assert.Equal(t, ErrUnsuportedConversion, err)
	assert.Equal(t, textValue, val)

	// Shutdown via the wrapper
	wrapper.Shutdown()
	_, err = wrapper.GetSafe(ctx)
	assert.Equal(t, config.ErrShutdown, err)
}

func TestStringConfig(t *testing.T) {
	lifecycle(t, func(c config.Config) config.Value[string] {
		return NewStringConfig(c, "finalized")
	}, "finalized", "confirmed", []byte("processed"), "processed")
}

func TestUint64Config(t *testing.T) {
	lifecycle(t, func(c config.Config) config.Value[uint64] {
		return NewUint64Config(c, math.MaxUint64)
	}, math.MaxUint64, 0, []byte("5000"), 5000)
}

func TestFloat64Config(t *testing.T) {
	lifecycle(t, func(c config.Config) config.Value[float64] {
		return NewFloat64Config(c, 10.0)
	}, 10.0, -0.5, []byte("1e3"), 1000.0)
}

func TestDurationConfig(t *testing.T) {
	lifecycle(t, func(c config.Config) config.Value[time.Duration] {
		return NewDurationConfig(c, 500*time.Millisecond)
	}, 500*time.Millisecond, -2*time.Hour, []byte("10ms"), 10*time.Millisecond)
}

func TestUint64Config_Conversions(t *testing.T) {
	ctx := context.Background()
	mock := memory.NewConfig(nil)
	wrapper := NewUint64Config(mock, 60)

	mock.SetValue(42)
	assert.EqualValues(t, 42, wrapper.Get(ctx))

	mock.SetValue(uint(7))
	assert.EqualValues(t, 7, wrapper.Get(ctx))

	// Invalid values keep the last good one
	for _, invalid := range []interface{}{-1, []byte("-1"), []byte("cannot convert")} {
		mock.SetValue(invalid)
		val, err := wrapper.GetSafe(ctx)
		assert.Error(t, err)
		assert.EqualValues(t, 7, val)
	}
}

func TestFloat64Config_Int(t *testing.T) {
	mock := memory.NewConfig(3)
	assert.Equal(t, 3.0, NewFloat64Config(mock, 1).Get(context.Background()))
}
