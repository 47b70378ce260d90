package domain

import (
	"fmt"
	"time"
)

// Operation contracts shared by the assessment workflow and its activities.
// Inputs carry validation tags and are checked on both sides of the boundary.

// AssessmentRequest starts an assessment workflow.
type AssessmentRequest struct {
	SessionID string     `json:"session_id" validate:"required"`
	Document  Document   `json:"document"`
	Config    *RunConfig `json:"config,omitempty"`

	// ReviewTimeout bounds how long the workflow waits for a review
	// submission. Zero waits indefinitely. On timeout the session stays
	// suspended and can still be resumed directly.
	ReviewTimeout time.Duration `json:"review_timeout,omitempty" validate:"gte=0"`
}

// Validate checks the request and its optional run configuration.
func (r *AssessmentRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if r.Config != nil {
		if err := r.Config.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
	}
	return nil
}

// StartInput returns the input of the start activity for this request.
func (r *AssessmentRequest) StartInput() StartAssessmentInput {
	return StartAssessmentInput{SessionID: r.SessionID, Document: r.Document, Config: r.Config}
}

// ReviewSubmission is the payload of the review signal.
type ReviewSubmission struct {
	Feedback map[string]Feedback `json:"feedback"`

	// ExpectedStep guards against applying a review to a newer checkpoint.
	// Zero means the step last reported by the workflow.
	ExpectedStep int64 `json:"expected_step,omitempty" validate:"gte=0"`
}

// StartAssessmentInput is the input of the start activity.
type StartAssessmentInput struct {
	SessionID string     `json:"session_id" validate:"required"`
	Document  Document   `json:"document"`
	Config    *RunConfig `json:"config,omitempty"`
}

// Validate checks required fields.
func (in *StartAssessmentInput) Validate() error {
	if err := validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return nil
}

// ResumeAssessmentInput is the input of the resume activity.
type ResumeAssessmentInput struct {
	SessionID    string              `json:"session_id" validate:"required"`
	Feedback     map[string]Feedback `json:"feedback"`
	ExpectedStep int64               `json:"expected_step" validate:"gte=0"`
}

// Validate checks required fields.
func (in *ResumeAssessmentInput) Validate() error {
	if err := validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return nil
}

// AssessmentOutput summarizes a session for workflow callers. The full state
// stays in the checkpoint store; only what a caller acts on crosses the boundary.
type AssessmentOutput struct {
	SessionID   string        `json:"session_id"`
	Node        Node          `json:"node"`
	Status      RunStatus     `json:"status"`
	Step        int64         `json:"step"`
	NeedsReview []string      `json:"needs_review,omitempty"`
	Questions   int           `json:"questions"`
	Totals      *Totals       `json:"totals,omitempty"`
	Report      *ReportHandle `json:"report,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// NewAssessmentOutput summarizes s.
func NewAssessmentOutput(s SessionState) AssessmentOutput {
	c := s.Clone()
	return AssessmentOutput{
		SessionID:   c.SessionID,
		Node:        c.Node,
		Status:      c.Status,
		Step:        c.Step,
		NeedsReview: c.NeedsReview,
		Questions:   len(c.Questions),
		Totals:      c.Totals,
		Report:      c.Report,
		Error:       c.Error,
	}
}

// Suspended reports whether the session is waiting for review.
func (o AssessmentOutput) Suspended() bool { return o.Status == RunSuspended }
