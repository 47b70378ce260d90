package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssessmentRequest_Validate(t *testing.T) {
	req := AssessmentRequest{SessionID: "s1", Document: Document{Text: "Q: a A: b"}}
	require.NoError(t, req.Validate())

	assert.ErrorIs(t, (&AssessmentRequest{}).Validate(), ErrInvalidInput)

	bad := req
	bad.ReviewTimeout = -time.Second
	assert.ErrorIs(t, bad.Validate(), ErrInvalidInput)

	bad = req
	bad.Config = &RunConfig{ConfidenceThreshold: 2, ScoringConcurrency: 1}
	err := bad.Validate()
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	in := req.StartInput()
	assert.Equal(t, "s1", in.SessionID)
	require.NoError(t, in.Validate())
}

func TestResumeAssessmentInput_Validate(t *testing.T) {
	require.NoError(t, (&ResumeAssessmentInput{SessionID: "s1"}).Validate())
	assert.ErrorIs(t, (&ResumeAssessmentInput{}).Validate(), ErrInvalidInput)
	assert.ErrorIs(t, (&ResumeAssessmentInput{SessionID: "s1", ExpectedStep: -1}).Validate(), ErrInvalidInput)
}

func TestNewAssessmentOutput(t *testing.T) {
	s := scoredState()
	s.Node = NodeHumanReview
	s.Status = RunSuspended
	s.Step = 2
	s.NeedsReview = []string{"q2"}

	out := NewAssessmentOutput(s)
	assert.Equal(t, "s1", out.SessionID)
	assert.True(t, out.Suspended())
	assert.Equal(t, int64(2), out.Step)
	assert.Equal(t, 2, out.Questions)
	assert.Equal(t, []string{"q2"}, out.NeedsReview)

	out.NeedsReview[0] = "q1"
	assert.Equal(t, []string{"q2"}, s.NeedsReview, "output does not alias the state")
}
