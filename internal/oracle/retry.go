package oracle

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/spigell/skillsynx/internal/utils"
	"go.uber.org/zap"
)

const (
	DefaultMaxAttempts   = 1
	DefaultBaseDelay     = time.Second
	DefaultMaxDelay      = 10 * time.Second
	DefaultMaxRetryAfter = 30 * time.Second
)

var (
	wait   = utils.WaitFor
	jitter = func(d time.Duration) time.Duration {
		if d <= 0 {
			return 0
		}
		return rand.N(d/2 + 1)
	}
)

// RetryPolicy bounds repeated oracle calls. Only transient errors are retried.
type RetryPolicy struct {
	// MaxAttempts counts the first call. Values below 2 disable retries.
	MaxAttempts int           `mapstructure:"max-attempts"`
	BaseDelay   time.Duration `mapstructure:"base-delay"`
	MaxDelay    time.Duration `mapstructure:"max-delay"`
	// MaxRetryAfter caps the delay a provider may ask for. Longer requests
	// end the loop instead of blocking the caller.
	MaxRetryAfter time.Duration `mapstructure:"max-retry-after"`
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:   DefaultMaxAttempts,
		BaseDelay:     DefaultBaseDelay,
		MaxDelay:      DefaultMaxDelay,
		MaxRetryAfter: DefaultMaxRetryAfter,
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultMaxDelay
	}
	if p.MaxRetryAfter <= 0 {
		p.MaxRetryAfter = DefaultMaxRetryAfter
	}
	return p
}

// backoff returns the delay before the given retry (1 based): exponential
// growth capped at MaxDelay plus up to 50% jitter.
func (p RetryPolicy) backoff(retry int) time.Duration {
	delay := p.BaseDelay
	for i := 1; i < retry && delay < p.MaxDelay; i++ {
		delay *= 2
	}
	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay + jitter(delay)
}

// Retry runs call until it succeeds, fails permanently or the policy is
// exhausted. The last error is returned unchanged.
func Retry(ctx context.Context, policy RetryPolicy, logger *zap.Logger, call func(ctx context.Context) (Envelope, error)) (Envelope, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	policy = policy.withDefaults()

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		envelope, err := call(ctx)
		if err == nil {
			return envelope, nil
		}
		lastErr = err

		if attempt == policy.MaxAttempts || !IsTransient(err) || ctx.Err() != nil {
			break
		}

		delay := policy.backoff(attempt)
		if hint := retryAfter(err); hint > 0 {
			if hint > policy.MaxRetryAfter {
				logger.Warn("oracle asked for a delay longer than allowed, giving up",
					zap.Duration("retry_after", hint),
					zap.Duration("max_retry_after", policy.MaxRetryAfter),
					zap.Error(err),
				)
				break
			}
			delay = hint
		}

		logger.Warn("oracle call failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", policy.MaxAttempts),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		if err := wait(ctx, delay); err != nil {
			return Envelope{}, lastErr
		}
	}

	return Envelope{}, lastErr
}

func retryAfter(err error) time.Duration {
	callErr, ok := asCallError(err)
	if !ok {
		return 0
	}
	return callErr.RetryAfter
}
