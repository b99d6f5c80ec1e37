package resilience

import (
	"context"
	"errors"
)

// Guard combines retries and a circuit breaker for one named service. The
// breaker sees each attempt, so a run of retried failures can open it.
type Guard struct {
	Service string
	Retry   RetryConfig
	Breaker *CircuitBreaker
}

// NewGuard builds a Guard that logs retries and breaker transitions under
// the service name.
func NewGuard(service string, retry RetryConfig, circuit CircuitBreakerConfig) *Guard {
	if circuit.OnStateChange == nil {
		circuit.OnStateChange = StateLogger(service)
	}
	return &Guard{
		Service: service,
		Retry:   retry,
		Breaker: NewCircuitBreaker(circuit),
	}
}

// Call runs fn under g's retry and breaker policy. A nil Guard calls fn once.
func Call[T any](ctx context.Context, g *Guard, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	if g == nil {
		return fn(ctx)
	}

	retry := g.Retry
	if retry.OnRetry == nil {
		retry.OnRetry = RetryLogger(g.Service, op)
	}
	if retry.ShouldRetry == nil {
		// An open circuit is not worth waiting out inside one call.
		retry.ShouldRetry = func(err error) bool {
			return !errors.Is(err, ErrCircuitOpen) && IsTransient(err)
		}
	}

	return DoVal(ctx, retry, func(ctx context.Context) (T, error) {
		if g.Breaker == nil {
			return fn(ctx)
		}
		return ExecuteVal(ctx, g.Breaker, fn)
	})
}
