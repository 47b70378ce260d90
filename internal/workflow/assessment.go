package workflow

import (
	"errors"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/ahrav/go-assessor/internal/activity"
	"github.com/ahrav/go-assessor/internal/domain"
)

// Signal and query names exposed by AssessmentWorkflow.
const (
	ReviewSignal = "assessment.review"
	StatusQuery  = "assessment.status"
)

// Activity timeouts. Scoring a large document is the slow path.
const (
	startToCloseTimeout = 10 * time.Minute
	heartbeatTimeout    = time.Minute
)

// AssessmentWorkflow drives one session from ingestion to a final report,
// waiting on ReviewSignal whenever the session suspends for human review.
// A review that is rejected as invalid leaves the workflow waiting for a
// corrected submission.
func AssessmentWorkflow(ctx workflow.Context, req domain.AssessmentRequest) (*domain.AssessmentOutput, error) {
	const currentVersion = 1
	_ = workflow.GetVersion(ctx, "assessment.v", workflow.DefaultVersion, currentVersion)

	if err := req.Validate(); err != nil {
		return nil, temporal.NewNonRetryableApplicationError(
			"invalid assessment request",
			activity.ErrTypeInvalidRequest,
			err,
		)
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: startToCloseTimeout,
		HeartbeatTimeout:    heartbeatTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    5,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)
	logger := workflow.GetLogger(ctx)

	var current domain.AssessmentOutput
	if err := workflow.SetQueryHandler(ctx, StatusQuery, func() (domain.AssessmentOutput, error) {
		return current, nil
	}); err != nil {
		return nil, err
	}

	var acts *activity.Activities
	if err := workflow.ExecuteActivity(ctx, acts.StartAssessment, req.StartInput()).Get(ctx, &current); err != nil {
		return nil, err
	}
	if !current.Suspended() {
		return &current, nil
	}

	reviews := workflow.GetSignalChannel(ctx, ReviewSignal)
	var timedOut bool
	var deadline workflow.Future
	if req.ReviewTimeout > 0 {
		deadline = workflow.NewTimer(ctx, req.ReviewTimeout)
	}

	for {
		logger.Info("Awaiting review", "session_id", current.SessionID, "needs_review", len(current.NeedsReview))

		var sub domain.ReviewSubmission
		sel := workflow.NewSelector(ctx)
		sel.AddReceive(reviews, func(c workflow.ReceiveChannel, _ bool) {
			c.Receive(ctx, &sub)
		})
		if deadline != nil {
			sel.AddFuture(deadline, func(workflow.Future) { timedOut = true })
		}
		sel.Select(ctx)

		if timedOut {
			logger.Warn("Review timed out, session left suspended", "session_id", current.SessionID)
			return &current, nil
		}

		step := sub.ExpectedStep
		if step == 0 {
			step = current.Step
		}
		input := domain.ResumeAssessmentInput{
			SessionID:    current.SessionID,
			Feedback:     sub.Feedback,
			ExpectedStep: step,
		}

		var resumed domain.AssessmentOutput
		err := workflow.ExecuteActivity(ctx, acts.ResumeAssessment, input).Get(ctx, &resumed)
		if err == nil {
			current = resumed
			return &current, nil
		}
		if isApplicationError(err, activity.ErrTypeInvalidRequest) {
			logger.Warn("Review rejected, awaiting corrected submission", "session_id", current.SessionID, "error", err)
			continue
		}
		return nil, err
	}
}

func isApplicationError(err error, errType string) bool {
	var appErr *temporal.ApplicationError
	return errors.As(err, &appErr) && appErr.Type() == errType
}
