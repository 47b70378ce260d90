package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ahrav/go-assessor/internal/llm/transport"
)

// NewLoggingMiddleware logs the start and outcome of every provider call.
// Prompts are never logged; only their sizes.
func NewLoggingMiddleware(logger *slog.Logger) transport.Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next transport.Handler) transport.Handler {
		return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			if req.TraceID == "" {
				req.TraceID = uuid.NewString()
			}
			logger.DebugContext(ctx, "llm request",
				"trace_id", req.TraceID,
				"model", req.Model,
				"prompt_bytes", len(req.Prompt),
				"max_tokens", req.MaxTokens)

			start := time.Now()
			resp, err := next.Handle(ctx, req)
			elapsed := time.Since(start)

			if err != nil {
				var retryable bool
				level := slog.LevelWarn
				if retryable = transport.IsRetryable(err); !retryable {
					level = slog.LevelError
				}
				logger.Log(ctx, level, "llm request failed",
					"trace_id", req.TraceID,
					"model", req.Model,
					"duration_ms", elapsed.Milliseconds(),
					"retryable", retryable,
					"error", err)
				return nil, err
			}

			logger.InfoContext(ctx, "llm request completed",
				"trace_id", req.TraceID,
				"model", req.Model,
				"duration_ms", elapsed.Milliseconds(),
				"cached", resp.Cached,
				"total_tokens", resp.Usage.TotalTokens,
				"request_id", resp.RequestID)
			return resp, nil
		})
	}
}
