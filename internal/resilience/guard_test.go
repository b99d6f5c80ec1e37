package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCall_NilGuardCallsOnce(t *testing.T) {
	var calls int
	_, err := Call(context.Background(), nil, "lookup", func(_ context.Context) (int, error) {
		calls++
		return 0, NewTransientError(errors.New("temporary"), 503)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestCall_RetriesTransientThenSucceeds(t *testing.T) {
	g := NewGuard("nppes", fastRetry(3), CircuitBreakerConfig{FailureThreshold: 5, ResetTimeout: time.Minute})

	var calls int
	val, err := Call(context.Background(), g, "lookup", func(_ context.Context) (string, error) {
		calls++
		if calls < 2 {
			return "", NewTransientError(errors.New("temporary"), 503)
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", val)
	assert.Equal(t, 2, calls)
	assert.Equal(t, CircuitClosed, g.Breaker.State())
}

func TestCall_OpenCircuitStopsRetrying(t *testing.T) {
	g := NewGuard("anthropic", fastRetry(5), CircuitBreakerConfig{FailureThreshold: 2, ResetTimeout: time.Minute})

	var calls int
	_, err := Call(context.Background(), g, "generate", func(_ context.Context) (string, error) {
		calls++
		return "", NewTransientError(errors.New("overloaded"), 529)
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 2, calls)
	assert.Equal(t, CircuitOpen, g.Breaker.State())
}

func TestFromRetryConfig(t *testing.T) {
	cfg := FromRetryConfig(configRetry(4, 100, 2000, 3.0, 0))
	assert.Equal(t, 4, cfg.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, cfg.InitialBackoff)
	assert.Equal(t, 2*time.Second, cfg.MaxBackoff)
	assert.InDelta(t, 3.0, cfg.Multiplier, 1e-9)
	assert.Zero(t, cfg.JitterFraction)

	def := FromRetryConfig(configRetry(0, 0, 0, 0, -1))
	assert.Equal(t, DefaultRetryConfig().MaxAttempts, def.MaxAttempts)
	assert.InDelta(t, DefaultRetryConfig().JitterFraction, def.JitterFraction, 1e-9)
}

func TestFromCircuitConfig(t *testing.T) {
	cfg := FromCircuitConfig(configCircuit(3, 10))
	assert.Equal(t, 3, cfg.FailureThreshold)
	assert.Equal(t, 10*time.Second, cfg.ResetTimeout)

	def := FromCircuitConfig(configCircuit(0, 0))
	assert.Equal(t, 5, def.FailureThreshold)
	assert.Equal(t, 30*time.Second, def.ResetTimeout)
}
