package llm

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-assessor/internal/configuration"
	"github.com/ahrav/go-assessor/internal/llm/transport"
)

func testConfig() configuration.ScoringConfig {
	cfg := configuration.DefaultConfig().Scoring
	cfg.Provider.Timeout = time.Second
	return cfg
}

func TestClient_CompleteUsesConfiguredModel(t *testing.T) {
	var got *transport.Request
	core := transport.HandlerFunc(func(_ context.Context, req *transport.Request) (*transport.Response, error) {
		got = req
		return &transport.Response{Content: "SCORE: 5"}, nil
	})

	c, err := NewClient(context.Background(), testConfig(), WithCoreHandler(core))
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	resp, err := c.Complete(context.Background(), "system", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "SCORE: 5", resp.Content)

	require.NotNil(t, got)
	assert.Equal(t, configuration.DefaultModel, got.Model)
	assert.Equal(t, "system", got.SystemPrompt)
	assert.Equal(t, configuration.DefaultMaxTokens, got.MaxTokens)
	assert.NotEmpty(t, got.TraceID, "logging middleware assigns a trace id")
	assert.Equal(t, int64(1), c.RateLimitStats().Allowed)

	_, cacheOn := c.CacheStats()
	assert.False(t, cacheOn)
}

func TestClient_HTTPProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"SCORE: 10"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.Provider.Endpoint = srv.URL
	cfg.Provider.APIKey = "sk-test"

	c, err := NewClient(context.Background(), cfg, WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	resp, err := c.Complete(context.Background(), "", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "SCORE: 10", resp.Content)
}

func TestClient_InvalidRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = configuration.RateLimitConfig{Enabled: true}
	_, err := NewClient(context.Background(), cfg)
	assert.Error(t, err)
}

func TestLoggingMiddleware_LogsFailures(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	boom := &transport.ProviderError{Provider: "openai", StatusCode: 401, Type: transport.ErrorTypeAuth}
	h := transport.Chain(transport.HandlerFunc(func(context.Context, *transport.Request) (*transport.Response, error) {
		return nil, boom
	}), NewLoggingMiddleware(logger))

	_, err := h.Handle(context.Background(), &transport.Request{Model: "m", Prompt: "secret prompt"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))

	out := buf.String()
	assert.Contains(t, out, "llm request failed")
	assert.Contains(t, out, `"retryable":false`)
	assert.NotContains(t, out, "secret prompt")
}
