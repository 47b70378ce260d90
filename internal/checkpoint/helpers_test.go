package checkpoint

import (
	"time"

	"github.com/ahrav/go-assessor/internal/domain"
)

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func floatPtr(v float64) *float64 { return &v }

// suspendedState builds a state parked at human review with one flagged question.
func suspendedState(sessionID string) domain.SessionState {
	s := domain.NewSessionState(sessionID, domain.Document{Format: domain.FormatText, Text: "Q: a\nA: b"}, domain.DefaultRunConfig(), fixedNow)
	s.Questions = []domain.Question{
		{ID: "q1", Text: "What is 2+2?", Answer: "4", Kind: domain.KindShortAnswer, MaxScore: 10},
		{ID: "q2", Text: "Explain goroutines", Answer: "threads", Kind: domain.KindLongAnswer, MaxScore: 10, Topic: "Go"},
	}
	s.Evaluations = []domain.Evaluation{
		{QuestionID: "q1", Score: 10, Confidence: 0.95, Explanation: "correct", Correct: true, Status: domain.StatusAIEvaluated, EvaluatedAt: fixedNow},
		{QuestionID: "q2", Score: 3, Confidence: 0.4, Explanation: "vague", NeedsReview: true, Status: domain.StatusAIEvaluated, EvaluatedAt: fixedNow},
	}
	s.NeedsReview = []string{"q2"}
	s.Feedback = map[string]domain.Feedback{"q1": {Score: floatPtr(9), Notes: "minor"}}
	s.Node = domain.NodeHumanReview
	s.Status = domain.RunSuspended
	s.Step = 1
	return s
}
