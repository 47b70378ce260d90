package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validQuestion() Question {
	return Question{
		ID:       "q1",
		Text:     "What is the capital of France?",
		Answer:   "Paris",
		Kind:     KindShortAnswer,
		MaxScore: DefaultMaxScore,
	}
}

func TestQuestion_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Question)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Question) {}},
		{name: "missing id", mutate: func(q *Question) { q.ID = "" }, wantErr: true},
		{name: "missing text", mutate: func(q *Question) { q.Text = "" }, wantErr: true},
		{name: "blank text", mutate: func(q *Question) { q.Text = "   " }, wantErr: true},
		{name: "blank answer", mutate: func(q *Question) { q.Answer = "\n\t" }, wantErr: true},
		{name: "unknown kind", mutate: func(q *Question) { q.Kind = "matching" }, wantErr: true},
		{name: "negative max score", mutate: func(q *Question) { q.MaxScore = -1 }, wantErr: true},
		{name: "zero max score", mutate: func(q *Question) { q.MaxScore = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := validQuestion()
			tt.mutate(&q)
			err := q.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidQuestion)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestQuestionKind_Valid(t *testing.T) {
	for _, k := range []QuestionKind{KindShortAnswer, KindLongAnswer, KindTrueFalse, KindCoding, KindEssay, KindMultipleChoice} {
		assert.True(t, k.Valid(), k)
	}
	assert.False(t, QuestionKind("").Valid())
	assert.False(t, QuestionKind("matching").Valid())
}

func TestQuestion_TopicOrDefault(t *testing.T) {
	q := validQuestion()
	assert.Equal(t, "General", q.TopicOrDefault())
	q.Topic = "  Geography "
	assert.Equal(t, "Geography", q.TopicOrDefault())
}

func TestDocument_Empty(t *testing.T) {
	assert.True(t, Document{}.Empty())
	assert.True(t, Document{Text: "  \n"}.Empty())
	assert.False(t, Document{Text: "Q: x A: y"}.Empty())
	assert.False(t, Document{Records: []Question{validQuestion()}}.Empty())
}
