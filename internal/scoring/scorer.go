// Package scoring evaluates one submitted answer at a time.
//
// A Scorer turns a domain.Question into a domain.Evaluation. The production
// scorer prompts a language model and parses its structured reply; WithRetry
// wraps any scorer with bounded exponential backoff for transient failures.
// Scorers never decide whether an evaluation needs review; that is the
// confidence policy's job.
package scoring

import (
	"context"
	"errors"

	"github.com/ahrav/go-assessor/internal/domain"
)

// ErrEmptyAnswer is returned for a question without a submitted answer.
var ErrEmptyAnswer = errors.New("empty answer")

// Scorer produces an evaluation for a single question.
// Implementations must be safe for concurrent use.
type Scorer interface {
	Evaluate(ctx context.Context, q domain.Question) (domain.Evaluation, error)
}

// ScorerFunc adapts a function to the Scorer interface.
type ScorerFunc func(ctx context.Context, q domain.Question) (domain.Evaluation, error)

// Evaluate implements Scorer.
func (f ScorerFunc) Evaluate(ctx context.Context, q domain.Question) (domain.Evaluation, error) {
	return f(ctx, q)
}
