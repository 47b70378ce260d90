// Package domain provides the core types of the assessment workflow: questions
// extracted from a submitted document, their evaluations, reviewer feedback and
// the session state threaded through every workflow node.
package domain

import (
	"fmt"
	"strings"
)

// QuestionKind classifies a question so scoring can apply kind-specific criteria.
type QuestionKind string

const (
	// KindShortAnswer is a brief free-text answer. It is the default kind.
	KindShortAnswer QuestionKind = "short_answer"

	// KindLongAnswer is a multi-sentence free-text answer.
	KindLongAnswer QuestionKind = "long_answer"

	// KindTrueFalse accepts only a true or false answer.
	KindTrueFalse QuestionKind = "true_false"

	// KindCoding expects source code as the answer.
	KindCoding QuestionKind = "coding"

	// KindEssay is an extended, subjective answer.
	KindEssay QuestionKind = "essay"

	// KindMultipleChoice selects one of the enumerated options.
	KindMultipleChoice QuestionKind = "multiple_choice"
)

// DefaultMaxScore is the score ceiling assigned to questions that do not declare one.
const DefaultMaxScore = 10.0

// Valid reports whether k is one of the known question kinds.
func (k QuestionKind) Valid() bool {
	switch k {
	case KindShortAnswer, KindLongAnswer, KindTrueFalse, KindCoding, KindEssay, KindMultipleChoice:
		return true
	default:
		return false
	}
}

// Question is a single prompt together with the answer submitted for it.
// Questions are created by ingestion and never modified afterwards.
type Question struct {
	// ID is unique within a session (e.g. "q1").
	ID string `json:"id" yaml:"id" validate:"required"`

	// Text is the prompt shown to the candidate.
	Text string `json:"text" yaml:"text" validate:"required"`

	// ReferenceAnswer is the expected answer, when the document provides one.
	ReferenceAnswer string `json:"reference_answer,omitempty" yaml:"reference_answer,omitempty"`

	// Answer is the submitted answer being evaluated.
	Answer string `json:"answer" yaml:"answer" validate:"required"`

	// Topic groups questions for strengths/weaknesses analysis.
	Topic string `json:"topic,omitempty" yaml:"topic,omitempty"`

	Kind QuestionKind `json:"kind" yaml:"kind" validate:"required,oneof=short_answer long_answer true_false coding essay multiple_choice"`

	// MaxScore is the maximum achievable score for this question.
	MaxScore float64 `json:"max_score" yaml:"max_score" validate:"gte=0"`
}

// Validate checks field constraints and rejects whitespace-only text fields.
func (q *Question) Validate() error {
	if err := validate.Struct(q); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidQuestion, err)
	}
	if strings.TrimSpace(q.Text) == "" || strings.TrimSpace(q.Answer) == "" {
		return fmt.Errorf("%w: question %q has blank text or answer", ErrInvalidQuestion, q.ID)
	}
	return nil
}

// TopicOrDefault returns the question topic, falling back to "General".
func (q Question) TopicOrDefault() string {
	if t := strings.TrimSpace(q.Topic); t != "" {
		return t
	}
	return "General"
}

// DocumentFormat identifies how a raw document payload is encoded.
type DocumentFormat string

const (
	// FormatText is plain text using "Q:", "Expected:" and "A:" markers.
	FormatText DocumentFormat = "text"

	// FormatJSON is a JSON array of question records.
	FormatJSON DocumentFormat = "json"

	// FormatYAML is a YAML list of question records.
	FormatYAML DocumentFormat = "yaml"
)

// Document is the ingestion input. Either Text carries a raw payload in Format,
// or Records carries questions that were extracted upstream.
type Document struct {
	Name    string         `json:"name,omitempty"`
	Format  DocumentFormat `json:"format,omitempty"`
	Text    string         `json:"text,omitempty"`
	Records []Question     `json:"records,omitempty"`
}

// Empty reports whether the document carries no payload at all.
func (d Document) Empty() bool {
	return strings.TrimSpace(d.Text) == "" && len(d.Records) == 0
}
