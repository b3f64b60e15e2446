package statcast

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for retry operations.
var (
	searchRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statcast_retries_total",
		Help: "Total number of retry attempts by failure kind",
	}, []string{"failure_kind"})

	searchRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "statcast_retry_backoff_seconds",
		Help:    "Backoff duration for retries by failure kind",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"failure_kind"})

	searchRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statcast_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by failure kind",
	}, []string{"failure_kind"})
)

// RetryPolicy holds the configuration for retry logic.
type RetryPolicy struct {
	// MaxAttempts is the maximum number of attempts (including the initial request).
	MaxAttempts int

	// InitialBackoff is the initial backoff duration.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration.
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64
}

// DefaultRetryPolicy returns the default retry configuration.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       3,
		InitialBackoff:    2 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// backoffFor returns the policy's backoff bounds adjusted per failure
// kind: rate limiting gets a longer initial wait than plain network
// trouble.
func (p RetryPolicy) backoffFor(kind FailureKind) (initial, max time.Duration) {
	if kind == FailureRateLimited {
		initial = p.InitialBackoff * 2
		if initial > p.MaxBackoff {
			initial = p.MaxBackoff
		}
		return initial, p.MaxBackoff
	}
	return p.InitialBackoff, p.MaxBackoff
}

// retryWithBackoff executes fn with exponential backoff retry logic.
// It respects context cancellation and adds jitter to prevent
// thundering herd against the provider.
func retryWithBackoff(ctx context.Context, policy RetryPolicy, fn func() error) error {
	var lastErr error
	var backoff time.Duration

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				log.Info().
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return nil
		}

		lastErr = err
		kind := KindOf(err)

		if !shouldRetry(kind) {
			return lastErr
		}

		if attempt >= policy.MaxAttempts {
			break
		}

		initial, max := policy.backoffFor(kind)
		if backoff == 0 {
			backoff = initial
		}

		searchRetriesTotal.WithLabelValues(string(kind)).Inc()

		// Add jitter (±20% randomness)
		jitter := time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))
		searchRetryBackoffSeconds.WithLabelValues(string(kind)).Observe(jitter.Seconds())

		log.Debug().
			Str("failure_kind", string(kind)).
			Int("attempt", attempt).
			Dur("backoff", jitter).
			Msg("Retrying request after backoff")

		select {
		case <-ctx.Done():
			log.Warn().
				Str("failure_kind", string(kind)).
				Int("attempt", attempt).
				Msg("Context cancelled during retry backoff")
			return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		case <-time.After(jitter):
		}

		backoff = time.Duration(float64(backoff) * policy.BackoffMultiplier)
		if backoff > max {
			backoff = max
		}
	}

	kind := KindOf(lastErr)
	searchRetryExhaustedTotal.WithLabelValues(string(kind)).Inc()
	log.Warn().
		Str("failure_kind", string(kind)).
		Int("max_attempts", policy.MaxAttempts).
		Msg("Retry attempts exhausted")

	return fmt.Errorf("%w after %d attempts: %v", ErrRetryExhausted, policy.MaxAttempts, lastErr)
}
