// Package report builds the final assessment report of a finalized session
// and stores it as an artifact.
package report

import (
	"fmt"
	"slices"
	"time"

	"github.com/ahrav/go-assessor/internal/domain"
)

// Topic performance bands, in percent.
const (
	StrengthThreshold = 80.0
	WeaknessThreshold = 60.0
)

// Finding describes a topic whose average score falls in the strength or
// weakness band.
type Finding struct {
	Topic       string  `json:"topic"`
	Description string  `json:"description"`
	Questions   int     `json:"questions"`
	Percentage  float64 `json:"percentage"`
}

// QuestionResult is the per-question breakdown.
type QuestionResult struct {
	QuestionID      string   `json:"question_id"`
	Question        string   `json:"question"`
	Answer          string   `json:"answer"`
	ReferenceAnswer string   `json:"reference_answer,omitempty"`
	Topic           string   `json:"topic"`
	Score           float64  `json:"score"`
	OverrideScore   *float64 `json:"override_score,omitempty"`
	MaxScore        float64  `json:"max_score"`
	Correct         bool     `json:"correct"`
	Confidence      float64  `json:"confidence"`
	Explanation     string   `json:"explanation"`
	ReviewerNotes   string   `json:"reviewer_notes,omitempty"`
	HumanReviewed   bool     `json:"human_reviewed"`
}

// Statistics summarizes the session.
type Statistics struct {
	TotalQuestions     int     `json:"total_questions"`
	CorrectCount       int     `json:"correct_count"`
	AverageConfidence  float64 `json:"average_confidence"`
	HumanReviewedCount int     `json:"human_reviewed_count"`
	TotalScore         float64 `json:"total_score"`
	MaxPossible        float64 `json:"max_possible_score"`
	Percentage         float64 `json:"percentage"`
}

// Report is the assembled assessment report.
type Report struct {
	SessionID       string           `json:"session_id"`
	Document        string           `json:"document,omitempty"`
	GeneratedAt     time.Time        `json:"generated_at"`
	Summary         string           `json:"summary"`
	Strengths       []Finding        `json:"strengths"`
	Weaknesses      []Finding        `json:"weaknesses"`
	Recommendations []string         `json:"recommendations"`
	Results         []QuestionResult `json:"results"`
	Statistics      Statistics       `json:"statistics"`
}

// Build derives a report from a finalized session. Scores use the reviewer
// override where one exists. Totals are recomputed when the state carries none.
func Build(state domain.SessionState, now time.Time) Report {
	totals := domain.ComputeTotals(state.Questions, state.Evaluations)
	if state.Totals != nil {
		totals = *state.Totals
	}

	evals := make(map[string]domain.Evaluation, len(state.Evaluations))
	for _, e := range state.Evaluations {
		evals[e.QuestionID] = e
	}

	r := Report{
		SessionID:   state.SessionID,
		Document:    state.Document.Name,
		GeneratedAt: now,
		Results:     make([]QuestionResult, 0, len(state.Questions)),
	}

	var confidenceSum float64
	for _, q := range state.Questions {
		e := evals[q.ID]
		r.Results = append(r.Results, QuestionResult{
			QuestionID:      q.ID,
			Question:        q.Text,
			Answer:          q.Answer,
			ReferenceAnswer: q.ReferenceAnswer,
			Topic:           q.TopicOrDefault(),
			Score:           e.Score,
			OverrideScore:   e.OverrideScore,
			MaxScore:        q.MaxScore,
			Correct:         e.Correct,
			Confidence:      e.Confidence,
			Explanation:     e.Explanation,
			ReviewerNotes:   e.ReviewerNotes,
			HumanReviewed:   e.ReviewedByHuman,
		})
		confidenceSum += e.Confidence
		if e.Correct {
			r.Statistics.CorrectCount++
		}
		if e.ReviewedByHuman {
			r.Statistics.HumanReviewedCount++
		}
	}

	r.Statistics.TotalQuestions = len(state.Questions)
	if n := len(state.Questions); n > 0 {
		r.Statistics.AverageConfidence = confidenceSum / float64(n)
	}
	r.Statistics.TotalScore = totals.TotalScore
	r.Statistics.MaxPossible = totals.MaxPossible
	r.Statistics.Percentage = totals.Percentage

	r.Strengths, r.Weaknesses = analyzeTopics(state.Questions, evals)
	r.Summary = summarize(r.Statistics)
	r.Recommendations = recommend(r.Statistics.Percentage, r.Weaknesses)
	return r
}

// analyzeTopics averages per-question percentages by topic, in first-seen order.
func analyzeTopics(questions []domain.Question, evals map[string]domain.Evaluation) (strengths, weaknesses []Finding) {
	type acc struct {
		sum float64
		n   int
	}
	var order []string
	byTopic := make(map[string]*acc)
	for _, q := range questions {
		topic := q.TopicOrDefault()
		a, ok := byTopic[topic]
		if !ok {
			a = &acc{}
			byTopic[topic] = a
			order = append(order, topic)
		}
		var pct float64
		if q.MaxScore > 0 {
			pct = evals[q.ID].EffectiveScore() / q.MaxScore * 100
		}
		a.sum += pct
		a.n++
	}

	for _, topic := range order {
		a := byTopic[topic]
		avg := a.sum / float64(a.n)
		switch {
		case avg >= StrengthThreshold:
			strengths = append(strengths, Finding{
				Topic:       topic,
				Description: fmt.Sprintf("Strong performance in %s with %.1f%% average", topic, avg),
				Questions:   a.n,
				Percentage:  avg,
			})
		case avg < WeaknessThreshold:
			weaknesses = append(weaknesses, Finding{
				Topic:       topic,
				Description: fmt.Sprintf("Needs improvement in %s with %.1f%% average", topic, avg),
				Questions:   a.n,
				Percentage:  avg,
			})
		}
	}
	return strengths, weaknesses
}

func summarize(s Statistics) string {
	band := "developing"
	switch {
	case s.Percentage >= StrengthThreshold:
		band = "strong"
	case s.Percentage >= WeaknessThreshold:
		band = "moderate"
	}
	return fmt.Sprintf("Assessment completed with %.1f%% overall score.\n\n"+
		"- Total Questions: %d\n"+
		"- Correct Answers: %d\n"+
		"- Score: %.1f/%.1f\n\n"+
		"The assessment demonstrates %s understanding of the material.",
		s.Percentage, s.TotalQuestions, s.CorrectCount, s.TotalScore, s.MaxPossible, band)
}

func recommend(percentage float64, weaknesses []Finding) []string {
	var recs []string
	if percentage < WeaknessThreshold {
		recs = append(recs, "Review fundamental concepts before proceeding to advanced topics")
	}
	for _, w := range weaknesses {
		recs = append(recs, "Focus additional study on "+w.Topic)
	}
	if len(recs) == 0 {
		recs = append(recs, "Continue building on this strong foundation")
	}
	return slices.Clip(recs)
}
