package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/ahrav/go-assessor/internal/activity"
	"github.com/ahrav/go-assessor/internal/checkpoint"
	"github.com/ahrav/go-assessor/internal/domain"
	"github.com/ahrav/go-assessor/internal/engine"
	"github.com/ahrav/go-assessor/internal/report"
	"github.com/ahrav/go-assessor/internal/scoring"
	baseactivity "github.com/ahrav/go-assessor/pkg/activity"
)

const quiz = `Q: What is the chemical symbol for gold?
Expected: Au
A: Au

Q: Explain why the sky appears blue.
A: Because of Rayleigh scattering of sunlight.
`

// byQuestion scores q1 confidently and q2 with low confidence.
var byQuestion = scoring.ScorerFunc(func(_ context.Context, q domain.Question) (domain.Evaluation, error) {
	conf := 0.95
	if q.ID == "q2" {
		conf = 0.3
	}
	return domain.Evaluation{QuestionID: q.ID, Score: 5, Confidence: conf, Status: domain.StatusAIEvaluated}, nil
})

func newEnv(t *testing.T, scorer scoring.Scorer) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()

	eng, err := engine.New(checkpoint.NewMemoryStore(), scorer, report.NewStoreAssembler(report.NewMemoryArtifactStore()))
	require.NoError(t, err)
	acts := activity.NewActivities(baseactivity.NewBaseActivities(), eng)
	env.RegisterActivity(acts.StartAssessment)
	env.RegisterActivity(acts.ResumeAssessment)
	return env
}

func request(id string) domain.AssessmentRequest {
	return domain.AssessmentRequest{
		SessionID: id,
		Document:  domain.Document{Name: "quiz.txt", Text: quiz},
	}
}

func TestAssessmentWorkflow_CompletesWithoutReview(t *testing.T) {
	env := newEnv(t, scoring.ScorerFunc(func(_ context.Context, q domain.Question) (domain.Evaluation, error) {
		return domain.Evaluation{QuestionID: q.ID, Score: 9, Confidence: 0.99, Status: domain.StatusAIEvaluated}, nil
	}))

	env.ExecuteWorkflow(AssessmentWorkflow, request("wf-1"))

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	var out domain.AssessmentOutput
	require.NoError(t, env.GetWorkflowResult(&out))
	assert.Equal(t, domain.RunCompleted, out.Status)
	assert.Equal(t, 2, out.Questions)
	assert.InDelta(t, 18.0, out.Totals.TotalScore, 1e-9)
}

func TestAssessmentWorkflow_WaitsForReviewSignal(t *testing.T) {
	env := newEnv(t, byQuestion)

	env.RegisterDelayedCallback(func() {
		val, err := env.QueryWorkflow(StatusQuery)
		require.NoError(t, err)
		var st domain.AssessmentOutput
		require.NoError(t, val.Get(&st))
		assert.Equal(t, domain.RunSuspended, st.Status)
		assert.Equal(t, []string{"q2"}, st.NeedsReview)

		score := 8.0
		env.SignalWorkflow(ReviewSignal, domain.ReviewSubmission{
			Feedback: map[string]domain.Feedback{"q2": {Score: &score, Notes: "good reasoning"}},
		})
	}, time.Hour)

	env.ExecuteWorkflow(AssessmentWorkflow, request("wf-2"))

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	var out domain.AssessmentOutput
	require.NoError(t, env.GetWorkflowResult(&out))
	assert.Equal(t, domain.RunCompleted, out.Status)
	assert.Empty(t, out.NeedsReview)
	assert.InDelta(t, 13.0, out.Totals.TotalScore, 1e-9)
	require.NotNil(t, out.Report)
}

func TestAssessmentWorkflow_RejectedReviewKeepsWaiting(t *testing.T) {
	env := newEnv(t, byQuestion)

	env.RegisterDelayedCallback(func() {
		bad := 99.0
		env.SignalWorkflow(ReviewSignal, domain.ReviewSubmission{
			Feedback: map[string]domain.Feedback{"q2": {Score: &bad}},
		})
	}, time.Hour)
	env.RegisterDelayedCallback(func() {
		env.SignalWorkflow(ReviewSignal, domain.ReviewSubmission{})
	}, 2*time.Hour)

	env.ExecuteWorkflow(AssessmentWorkflow, request("wf-3"))

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	var out domain.AssessmentOutput
	require.NoError(t, env.GetWorkflowResult(&out))
	assert.Equal(t, domain.RunCompleted, out.Status)
	assert.InDelta(t, 10.0, out.Totals.TotalScore, 1e-9)
}

func TestAssessmentWorkflow_ReviewTimeoutLeavesSessionSuspended(t *testing.T) {
	env := newEnv(t, byQuestion)
	req := request("wf-4")
	req.ReviewTimeout = 24 * time.Hour

	env.ExecuteWorkflow(AssessmentWorkflow, req)

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	var out domain.AssessmentOutput
	require.NoError(t, env.GetWorkflowResult(&out))
	assert.Equal(t, domain.RunSuspended, out.Status)
	assert.Equal(t, []string{"q2"}, out.NeedsReview)
}

func TestAssessmentWorkflow_FailedSessionIsAResult(t *testing.T) {
	env := newEnv(t, byQuestion)
	req := request("wf-5")
	req.Document = domain.Document{Name: "memo.txt", Text: "Nothing to grade here."}

	env.ExecuteWorkflow(AssessmentWorkflow, req)

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	var out domain.AssessmentOutput
	require.NoError(t, env.GetWorkflowResult(&out))
	assert.Equal(t, domain.RunFailed, out.Status)
	assert.Contains(t, out.Error, "ingestion failed")
}

func TestAssessmentWorkflow_InvalidRequest(t *testing.T) {
	env := newEnv(t, byQuestion)

	env.ExecuteWorkflow(AssessmentWorkflow, domain.AssessmentRequest{})

	require.True(t, env.IsWorkflowCompleted())
	err := env.GetWorkflowError()
	require.Error(t, err)
	var appErr *temporal.ApplicationError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, activity.ErrTypeInvalidRequest, appErr.Type())
	assert.True(t, appErr.NonRetryable())
}
