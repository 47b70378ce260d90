package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ahrav/go-assessor/internal/domain"
	"github.com/ahrav/go-assessor/internal/llm/transport"
)

// Completer sends a prompt to a language model.
// *llm.Client satisfies it.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, prompt string) (*transport.Response, error)
}

// LLMScorer scores answers by prompting a language model.
type LLMScorer struct {
	completer Completer
	now       func() time.Time
	logger    *slog.Logger
}

// LLMOption customizes an LLMScorer.
type LLMOption func(*LLMScorer)

// WithClock overrides the timestamp source for EvaluatedAt.
func WithClock(now func() time.Time) LLMOption {
	return func(s *LLMScorer) { s.now = now }
}

// NewLLMScorer creates a scorer backed by c.
func NewLLMScorer(c Completer, opts ...LLMOption) *LLMScorer {
	s := &LLMScorer{
		completer: c,
		now:       time.Now,
		logger:    slog.Default().With("component", "scoring"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Evaluate implements Scorer. Provider failures are returned as errors;
// a reply that cannot be fully parsed still yields a low-confidence evaluation.
func (s *LLMScorer) Evaluate(ctx context.Context, q domain.Question) (domain.Evaluation, error) {
	if strings.TrimSpace(q.Answer) == "" {
		return domain.Evaluation{}, fmt.Errorf("question %s: %w", q.ID, ErrEmptyAnswer)
	}

	resp, err := s.completer.Complete(ctx, SystemPrompt, BuildPrompt(q))
	if err != nil {
		return domain.Evaluation{}, fmt.Errorf("score question %s: %w", q.ID, err)
	}

	reply := ParseReply(resp.Content, q.MaxScore)
	s.logger.DebugContext(ctx, "answer scored",
		"question_id", q.ID,
		"score", reply.Score,
		"confidence", reply.Confidence,
		"cached", resp.Cached)

	return domain.Evaluation{
		QuestionID:  q.ID,
		Score:       reply.Score,
		Confidence:  reply.Confidence,
		Explanation: reply.Explanation,
		Correct:     reply.Correct,
		Status:      domain.StatusAIEvaluated,
		EvaluatedAt: s.now().UTC(),
	}, nil
}
