package resilience

import "github.com/sells-group/provider-cli/internal/config"

func configRetry(attempts, initialMs, maxMs int, mult, jitter float64) config.RetryConfig {
	return config.RetryConfig{
		MaxAttempts:      attempts,
		InitialBackoffMs: initialMs,
		MaxBackoffMs:     maxMs,
		Multiplier:       mult,
		JitterFraction:   jitter,
	}
}

func configCircuit(threshold, resetSecs int) config.CircuitConfig {
	return config.CircuitConfig{FailureThreshold: threshold, ResetTimeoutSecs: resetSecs}
}
