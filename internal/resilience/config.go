package resilience

import (
	"time"
)

// FromRetryConfig converts config values (attempts, delay in ms, backoff
// multiplier) to a RetryConfig. Non-positive values keep the defaults.
func FromRetryConfig(maxAttempts, delayMs int, multiplier float64) RetryConfig {
	cfg := DefaultRetryConfig()
	if maxAttempts > 0 {
		cfg.MaxAttempts = maxAttempts
	}
	if delayMs > 0 {
		cfg.InitialBackoff = time.Duration(delayMs) * time.Millisecond
	}
	if multiplier > 0 {
		cfg.Multiplier = multiplier
	}
	return cfg
}

// FromCircuitConfig converts the circuit config section to a BreakerConfig.
// Non-positive values keep the defaults.
func FromCircuitConfig(failureThreshold, resetTimeoutSecs int) BreakerConfig {
	return BreakerConfig{
		Threshold: failureThreshold,
		Cooldown:  time.Duration(resetTimeoutSecs) * time.Second,
	}.withDefaults()
}
