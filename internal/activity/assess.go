// Package activity implements the Temporal activities that drive assessment
// sessions through the workflow engine.
package activity

import (
	"context"
	"errors"

	"github.com/ahrav/go-assessor/internal/domain"
	"github.com/ahrav/go-assessor/internal/engine"
	"github.com/ahrav/go-assessor/pkg/activity"
)

// Runner is the subset of the engine used by the activities.
type Runner interface {
	Start(ctx context.Context, req engine.StartRequest) (engine.RunResult, error)
	Resume(ctx context.Context, req engine.ResumeRequest) (engine.RunResult, error)
	Status(ctx context.Context, sessionID string) (engine.RunResult, error)
}

// Activities exposes engine operations as Temporal activities.
type Activities struct {
	activity.BaseActivities
	runner Runner
}

// NewActivities creates assessment activities backed by runner.
func NewActivities(base activity.BaseActivities, runner Runner) *Activities {
	return &Activities{BaseActivities: base, runner: runner}
}

// recordHeartbeat is replaced in tests.
var recordHeartbeat = activity.RecordHeartbeat

// Heartbeat records engine progress as a heartbeat of the running activity.
// Outside an activity context it does nothing. Install it with
// engine.WithProgress on engines served by a Temporal worker.
func Heartbeat(ctx context.Context, p engine.Progress) {
	recordHeartbeat(ctx, p)
}

// StartAssessment ingests and scores a document, returning once the session
// suspends for review or terminates.
//
// Starting a session id that already has a checkpoint returns the persisted
// status, so a retried attempt observes the outcome of the earlier one.
func (a *Activities) StartAssessment(ctx context.Context, input domain.StartAssessmentInput) (*domain.AssessmentOutput, error) {
	if err := input.Validate(); err != nil {
		return nil, nonRetryable(ErrTypeInvalidRequest, err, "invalid input")
	}

	wfCtx := a.GetWorkflowContext(ctx)
	activity.SafeLog(ctx, "Starting assessment",
		"workflow_id", wfCtx.WorkflowID,
		"session_id", input.SessionID,
		"attempt", wfCtx.Attempt)
	a.RecordHeartbeat(ctx, input.SessionID)

	res, err := a.runner.Start(ctx, engine.StartRequest{
		SessionID: input.SessionID,
		Document:  input.Document,
		Config:    input.Config,
	})
	if errors.Is(err, engine.ErrSessionExists) {
		res, err = a.runner.Status(ctx, input.SessionID)
	}
	if err != nil {
		activity.SafeLogError(ctx, "Assessment start failed", "session_id", input.SessionID, "error", err)
		return nil, classify("StartAssessment", err)
	}

	out := domain.NewAssessmentOutput(res.State)
	activity.SafeLog(ctx, "Assessment start finished",
		"session_id", out.SessionID,
		"status", out.Status,
		"needs_review", len(out.NeedsReview))
	return &out, nil
}

// ResumeAssessment applies review feedback and runs the session to completion.
//
// Resuming a session that is already completed returns the completed status
// for the same reason.
func (a *Activities) ResumeAssessment(ctx context.Context, input domain.ResumeAssessmentInput) (*domain.AssessmentOutput, error) {
	if err := input.Validate(); err != nil {
		return nil, nonRetryable(ErrTypeInvalidRequest, err, "invalid input")
	}

	wfCtx := a.GetWorkflowContext(ctx)
	activity.SafeLog(ctx, "Resuming assessment",
		"workflow_id", wfCtx.WorkflowID,
		"session_id", input.SessionID,
		"feedback", len(input.Feedback),
		"attempt", wfCtx.Attempt)
	a.RecordHeartbeat(ctx, input.SessionID)

	res, err := a.runner.Resume(ctx, engine.ResumeRequest{
		SessionID:    input.SessionID,
		Feedback:     input.Feedback,
		ExpectedStep: input.ExpectedStep,
	})
	if errors.Is(err, engine.ErrInvalidResume) {
		if st, serr := a.runner.Status(ctx, input.SessionID); serr == nil && st.Status == domain.RunCompleted {
			res, err = st, nil
		}
	}
	if err != nil {
		activity.SafeLogError(ctx, "Assessment resume failed", "session_id", input.SessionID, "error", err)
		return nil, classify("ResumeAssessment", err)
	}

	out := domain.NewAssessmentOutput(res.State)
	return &out, nil
}

// AssessmentStatus returns the persisted status of a session.
func (a *Activities) AssessmentStatus(ctx context.Context, sessionID string) (*domain.AssessmentOutput, error) {
	res, err := a.runner.Status(ctx, sessionID)
	if err != nil {
		return nil, classify("AssessmentStatus", err)
	}
	out := domain.NewAssessmentOutput(res.State)
	return &out, nil
}
