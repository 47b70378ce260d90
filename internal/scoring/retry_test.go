package scoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-assessor/internal/configuration"
	"github.com/ahrav/go-assessor/internal/llm/transport"
)

func noSleep(context.Context, time.Duration) error { return nil }

func newRetry(s Scorer, retries int) *retryScorer {
	r := WithRetry(s, RetryPolicy{
		MaxRetries: retries,
		Backoff:    configuration.DefaultConfig().Scoring.Retry,
	}).(*retryScorer)
	r.sleep = noSleep
	return r
}

func TestWithRetry_RecoversFromTransientFailure(t *testing.T) {
	transient := &transport.ProviderError{Provider: "openai", StatusCode: 502, Type: transport.ErrorTypeProvider}
	c := &stubCompleter{replies: []stubReply{
		{err: transient},
		{err: transient},
		{content: "SCORE: 6\nCONFIDENCE: 0.9"},
	}}

	eval, err := newRetry(NewLLMScorer(c), 2).Evaluate(context.Background(), question("q1"))
	require.NoError(t, err)
	assert.Equal(t, 6.0, eval.Score)
	assert.Equal(t, 3, c.calls)
}

func TestWithRetry_GivesUpAfterMaxRetries(t *testing.T) {
	transient := &transport.ProviderError{Provider: "openai", StatusCode: 500, Type: transport.ErrorTypeProvider}
	c := &stubCompleter{replies: []stubReply{{err: transient}}}

	_, err := newRetry(NewLLMScorer(c), 2).Evaluate(context.Background(), question("q1"))
	assert.ErrorIs(t, err, transient)
	assert.Equal(t, 3, c.calls, "one attempt plus two retries")
}

func TestWithRetry_PermanentErrorNotRetried(t *testing.T) {
	auth := &transport.ProviderError{Provider: "openai", StatusCode: 401, Type: transport.ErrorTypeAuth}
	c := &stubCompleter{replies: []stubReply{{err: auth}}}

	_, err := newRetry(NewLLMScorer(c), 5).Evaluate(context.Background(), question("q1"))
	assert.ErrorIs(t, err, auth)
	assert.Equal(t, 1, c.calls)
}

func TestWithRetry_ZeroRetriesIsIdentity(t *testing.T) {
	s := NewLLMScorer(&stubCompleter{replies: []stubReply{{content: "SCORE: 1"}}})
	assert.Same(t, s, WithRetry(s, RetryPolicy{MaxRetries: 0}))
}

func TestWithRetry_CanceledDuringBackoff(t *testing.T) {
	c := &stubCompleter{replies: []stubReply{{err: errors.New("connection reset")}}}
	r := newRetry(NewLLMScorer(c), 3)
	r.sleep = sleepCtx
	r.policy.Backoff.InitialInterval = time.Hour
	r.policy.Backoff.MaxInterval = time.Hour
	r.policy.Backoff.UseJitter = false

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := r.Evaluate(ctx, question("q1"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, c.calls)
}

func TestBackoff(t *testing.T) {
	cfg := configuration.RetryConfig{
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     time.Second,
		Multiplier:      2,
	}

	assert.Zero(t, Backoff(0, cfg, nil))
	assert.Equal(t, 100*time.Millisecond, Backoff(1, cfg, nil))
	assert.Equal(t, 200*time.Millisecond, Backoff(2, cfg, nil))
	assert.Equal(t, 400*time.Millisecond, Backoff(3, cfg, nil))
	assert.Equal(t, time.Second, Backoff(10, cfg, nil))

	ra := &transport.ProviderError{Type: transport.ErrorTypeRateLimit, RetryAfter: 4}
	assert.Equal(t, 4*time.Second, Backoff(1, cfg, ra))

	cfg.UseJitter = true
	for attempt := 1; attempt <= 6; attempt++ {
		d := Backoff(attempt, cfg, nil)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, time.Second)
	}
}
