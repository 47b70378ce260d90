package domain

import (
	"fmt"
	"math"
	"time"
)

// EvaluationStatus tracks how far an evaluation has progressed.
type EvaluationStatus string

const (
	// StatusPending marks an evaluation whose automated scoring failed.
	StatusPending EvaluationStatus = "pending"

	// StatusAIEvaluated marks an evaluation produced by the scoring client.
	StatusAIEvaluated EvaluationStatus = "ai_evaluated"

	// StatusHumanReviewed marks an evaluation that received reviewer feedback.
	StatusHumanReviewed EvaluationStatus = "human_reviewed"
)

// Evaluation is the scored result for exactly one question.
// It is created by the Evaluate node and only mutated by Finalize when
// reviewer feedback is applied.
type Evaluation struct {
	QuestionID string `json:"question_id" validate:"required"`

	// Score is the awarded score, 0 <= Score <= question.MaxScore.
	Score float64 `json:"score" validate:"gte=0"`

	// Confidence is the scorer's self-reported certainty.
	Confidence float64 `json:"confidence" validate:"gte=0,lte=1"`

	Explanation string `json:"explanation"`
	Correct     bool   `json:"correct"`

	// NeedsReview is derived by the confidence policy.
	NeedsReview bool `json:"needs_review"`

	// ScoringFailed is set when the scoring client returned an error.
	// Such evaluations always require review.
	ScoringFailed bool `json:"scoring_failed,omitempty"`

	// OverrideScore replaces Score in totals when a reviewer supplied one.
	OverrideScore   *float64 `json:"override_score,omitempty" validate:"omitempty,gte=0"`
	ReviewerNotes   string   `json:"reviewer_notes,omitempty"`
	ReviewedByHuman bool     `json:"reviewed_by_human"`

	Status      EvaluationStatus `json:"status" validate:"required,oneof=pending ai_evaluated human_reviewed"`
	EvaluatedAt time.Time        `json:"evaluated_at"`
}

// FailedEvaluation builds the placeholder evaluation recorded when scoring a
// question fails. It keeps the 1:1 question mapping intact and forces review.
func FailedEvaluation(questionID string, cause error, at time.Time) Evaluation {
	return Evaluation{
		QuestionID:    questionID,
		Score:         0,
		Confidence:    0,
		Explanation:   fmt.Sprintf("Evaluation failed: %v", cause),
		NeedsReview:   true,
		ScoringFailed: true,
		Status:        StatusPending,
		EvaluatedAt:   at,
	}
}

// EffectiveScore returns the override score when present, else the awarded score.
func (e Evaluation) EffectiveScore() float64 {
	if e.OverrideScore != nil {
		return *e.OverrideScore
	}
	return e.Score
}

// Validate checks the evaluation against the question it scores.
func (e *Evaluation) Validate(q Question) error {
	if err := validate.Struct(e); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEvaluation, err)
	}
	if e.QuestionID != q.ID {
		return fmt.Errorf("%w: evaluation for %q checked against question %q", ErrInvalidEvaluation, e.QuestionID, q.ID)
	}
	if e.Score > q.MaxScore {
		return fmt.Errorf("%w: score %.2f exceeds max %.2f for %q", ErrInvalidEvaluation, e.Score, q.MaxScore, q.ID)
	}
	return nil
}

func (e Evaluation) clone() Evaluation {
	e.OverrideScore = cloneFloat(e.OverrideScore)
	return e
}

// Feedback is a reviewer's input for one question.
type Feedback struct {
	// Score, when set, overrides the automated score.
	Score *float64 `json:"score,omitempty" yaml:"score,omitempty"`
	Notes string   `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// Validate checks the override against the question's score range.
func (f Feedback) Validate(q Question) error {
	if f.Score == nil {
		return nil
	}
	if math.IsNaN(*f.Score) || math.IsInf(*f.Score, 0) {
		return fmt.Errorf("%w: override for %q is not a finite number", ErrInvalidFeedback, q.ID)
	}
	if *f.Score < 0 || *f.Score > q.MaxScore {
		return fmt.Errorf("%w: override %.2f for %q outside [0, %.2f]", ErrInvalidFeedback, *f.Score, q.ID, q.MaxScore)
	}
	return nil
}

func (f Feedback) clone() Feedback {
	f.Score = cloneFloat(f.Score)
	return f
}
