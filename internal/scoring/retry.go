package scoring

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/ahrav/go-assessor/internal/configuration"
	"github.com/ahrav/go-assessor/internal/domain"
	"github.com/ahrav/go-assessor/internal/llm/transport"
)

// RetryPolicy bounds retries of a failing scorer.
type RetryPolicy struct {
	// MaxRetries is the number of additional attempts after the first.
	MaxRetries int
	Backoff    configuration.RetryConfig
}

type retryScorer struct {
	next   Scorer
	policy RetryPolicy
	sleep  func(ctx context.Context, d time.Duration) error
	logger *slog.Logger
}

// WithRetry wraps s so that retryable errors are retried up to
// policy.MaxRetries times with exponential backoff. Non-retryable errors and
// context cancellation end the loop immediately.
func WithRetry(s Scorer, policy RetryPolicy) Scorer {
	if policy.MaxRetries <= 0 {
		return s
	}
	return &retryScorer{
		next:   s,
		policy: policy,
		sleep:  sleepCtx,
		logger: slog.Default().With("component", "scoring"),
	}
}

// Evaluate implements Scorer.
func (r *retryScorer) Evaluate(ctx context.Context, q domain.Question) (domain.Evaluation, error) {
	var lastErr error
	for attempt := 0; attempt <= r.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := Backoff(attempt, r.policy.Backoff, lastErr)
			r.logger.DebugContext(ctx, "retrying scoring call",
				"question_id", q.ID,
				"attempt", attempt+1,
				"delay", delay,
				"error", lastErr)
			if err := r.sleep(ctx, delay); err != nil {
				return domain.Evaluation{}, errors.Join(lastErr, err)
			}
		}

		eval, err := r.next.Evaluate(ctx, q)
		if err == nil {
			return eval, nil
		}
		lastErr = err
		if ctx.Err() != nil || !transport.IsRetryable(err) || errors.Is(err, ErrEmptyAnswer) {
			return domain.Evaluation{}, err
		}
	}
	return domain.Evaluation{}, lastErr
}

// Backoff returns the delay before retry number attempt (1-based). A
// provider-supplied Retry-After wins; otherwise the delay grows by
// Multiplier up to MaxInterval with optional full jitter.
func Backoff(attempt int, cfg configuration.RetryConfig, cause error) time.Duration {
	if attempt <= 0 {
		return 0
	}
	var ra transport.RetryAfterProvider
	if errors.As(cause, &ra) {
		if d := ra.GetRetryAfter(); d > 0 {
			return d
		}
	}

	backoff := cfg.InitialInterval
	if backoff <= 0 {
		backoff = time.Millisecond
	}
	multiplier := max(cfg.Multiplier, 1.0)
	for i := 1; i < attempt; i++ {
		backoff = time.Duration(float64(backoff) * multiplier)
		if cfg.MaxInterval > 0 && backoff > cfg.MaxInterval {
			backoff = cfg.MaxInterval
			break
		}
	}

	if cfg.UseJitter {
		jitterMs := rand.Int64N(backoff.Milliseconds() + 1) // #nosec G404 -- non-cryptographic jitter
		return time.Duration(jitterMs) * time.Millisecond
	}
	return backoff
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
