package scoring

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-assessor/internal/domain"
	"github.com/ahrav/go-assessor/internal/llm/transport"
)

func TestLLMScorer_Evaluate(t *testing.T) {
	c := &stubCompleter{replies: []stubReply{{
		content: "SCORE: 7.5\nCONFIDENCE: 0.85\nIS_CORRECT: true\nEXPLANATION: Mostly right.",
	}}}
	s := NewLLMScorer(c, WithClock(func() time.Time { return fixedNow }))

	q := question("q1")
	eval, err := s.Evaluate(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, domain.Evaluation{
		QuestionID:  "q1",
		Score:       7.5,
		Confidence:  0.85,
		Explanation: "Mostly right.",
		Correct:     true,
		Status:      domain.StatusAIEvaluated,
		EvaluatedAt: fixedNow,
	}, eval)
	require.NoError(t, eval.Validate(q))
	require.Len(t, c.prompts, 1)
	assert.Contains(t, c.prompts[0], q.Text)
}

func TestLLMScorer_ProviderError(t *testing.T) {
	boom := &transport.ProviderError{Provider: "openai", StatusCode: 503, Type: transport.ErrorTypeProvider}
	s := NewLLMScorer(&stubCompleter{replies: []stubReply{{err: boom}}})

	_, err := s.Evaluate(context.Background(), question("q1"))
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "q1")
}

func TestLLMScorer_EmptyAnswer(t *testing.T) {
	c := &stubCompleter{replies: []stubReply{{content: "SCORE: 1"}}}
	q := question("q1")
	q.Answer = "   "

	_, err := NewLLMScorer(c).Evaluate(context.Background(), q)
	assert.ErrorIs(t, err, ErrEmptyAnswer)
	assert.Zero(t, c.calls)
}

func TestScorerFunc(t *testing.T) {
	var s Scorer = ScorerFunc(func(_ context.Context, q domain.Question) (domain.Evaluation, error) {
		return domain.Evaluation{QuestionID: q.ID, Status: domain.StatusAIEvaluated}, nil
	})
	eval, err := s.Evaluate(context.Background(), question("q9"))
	require.NoError(t, err)
	assert.Equal(t, "q9", eval.QuestionID)
}
