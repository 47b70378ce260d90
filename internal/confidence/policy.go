// Package confidence decides which automated evaluations must be confirmed by a
// human reviewer. Decisions are made per evaluation; no aggregate logic applies.
package confidence

import (
	"fmt"

	"github.com/ahrav/go-assessor/internal/domain"
)

// NeedsReview reports whether an evaluation must be reviewed by a human.
// A scoring failure always requires review regardless of the threshold.
func NeedsReview(eval domain.Evaluation, threshold float64) bool {
	return eval.ScoringFailed || eval.Confidence < threshold
}

// Policy binds a threshold so sessions can run under different policies concurrently.
type Policy struct {
	Threshold float64
}

// NewPolicy returns a policy for threshold, rejecting values outside [0, 1].
func NewPolicy(threshold float64) (Policy, error) {
	p := Policy{Threshold: threshold}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// Validate checks that the threshold lies in [0, 1].
func (p Policy) Validate() error {
	if p.Threshold < 0 || p.Threshold > 1 {
		return fmt.Errorf("%w: confidence threshold %.3f outside [0, 1]", domain.ErrInvalidConfig, p.Threshold)
	}
	return nil
}

// Apply returns copies of evals with NeedsReview derived from the policy,
// together with the ids requiring review in input order.
func (p Policy) Apply(evals []domain.Evaluation) ([]domain.Evaluation, []string) {
	out := make([]domain.Evaluation, len(evals))
	var review []string
	for i, e := range evals {
		e.NeedsReview = NeedsReview(e, p.Threshold)
		if e.NeedsReview {
			review = append(review, e.QuestionID)
		}
		out[i] = e
	}
	return out, review
}
