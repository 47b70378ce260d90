// Package ingest turns a submitted document into the ordered question list a
// session is evaluated on. Plain text in the "Q: ... Expected: ... A: ..."
// layout is parsed directly; JSON and YAML payloads and pre-extracted records
// are normalized the same way.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bytedance/sonic"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-assessor/internal/domain"
)

var (
	// ErrEmptyDocument is returned for a document with no payload.
	ErrEmptyDocument = errors.New("empty document")

	// ErrNoQuestions is returned when a payload yields zero questions.
	ErrNoQuestions = errors.New("no questions found")

	// ErrUnsupportedFormat is returned for an unknown document format.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrMalformedDocument is returned when a JSON or YAML payload cannot be decoded.
	ErrMalformedDocument = errors.New("malformed document")
)

// Adapter extracts questions from a document.
type Adapter interface {
	Extract(ctx context.Context, doc domain.Document) ([]domain.Question, error)
}

// AdapterFunc adapts a function to the Adapter interface.
type AdapterFunc func(ctx context.Context, doc domain.Document) ([]domain.Question, error)

// Extract implements Adapter.
func (f AdapterFunc) Extract(ctx context.Context, doc domain.Document) ([]domain.Question, error) {
	return f(ctx, doc)
}

// Parser is the default Adapter.
type Parser struct {
	logger *slog.Logger
}

// NewParser returns a parser for text, JSON and YAML documents.
func NewParser() *Parser {
	return &Parser{logger: slog.Default().With("component", "ingest")}
}

// Extract implements Adapter. Records take precedence over Text.
// The returned questions have unique ids, a kind and a max score.
func (p *Parser) Extract(ctx context.Context, doc domain.Document) ([]domain.Question, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if doc.Empty() {
		return nil, ErrEmptyDocument
	}

	var (
		questions []domain.Question
		err       error
	)
	switch {
	case len(doc.Records) > 0:
		questions, err = normalize(recordsOf(doc.Records))
	case doc.Format == "" || doc.Format == domain.FormatText:
		questions = ParseText(doc.Text)
	case doc.Format == domain.FormatJSON:
		var records []record
		if err := sonic.UnmarshalString(doc.Text, &records); err != nil {
			return nil, fmt.Errorf("%w: json: %w", ErrMalformedDocument, err)
		}
		questions, err = normalize(records)
	case doc.Format == domain.FormatYAML:
		var records []record
		if err := yaml.Unmarshal([]byte(doc.Text), &records); err != nil {
			return nil, fmt.Errorf("%w: yaml: %w", ErrMalformedDocument, err)
		}
		questions, err = normalize(records)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, doc.Format)
	}
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}

	p.logger.InfoContext(ctx, "document ingested",
		"document", doc.Name,
		"format", doc.Format,
		"questions", len(questions))
	return questions, nil
}

// record is the serialized form of a question. MaxScore is a pointer so that
// an explicit zero is kept and only an absent value takes the default.
type record struct {
	ID              string              `json:"id" yaml:"id"`
	Text            string              `json:"text" yaml:"text"`
	ReferenceAnswer string              `json:"reference_answer" yaml:"reference_answer"`
	Answer          string              `json:"answer" yaml:"answer"`
	Topic           string              `json:"topic" yaml:"topic"`
	Kind            domain.QuestionKind `json:"kind" yaml:"kind"`
	MaxScore        *float64            `json:"max_score" yaml:"max_score"`
}

// recordsOf converts pre-extracted questions. A Go value cannot tell an
// unset max score from zero, so zero takes the default here.
func recordsOf(qs []domain.Question) []record {
	out := make([]record, len(qs))
	for i, q := range qs {
		out[i] = record{
			ID:              q.ID,
			Text:            q.Text,
			ReferenceAnswer: q.ReferenceAnswer,
			Answer:          q.Answer,
			Topic:           q.Topic,
			Kind:            q.Kind,
		}
		if q.MaxScore != 0 {
			out[i].MaxScore = &q.MaxScore
		}
	}
	return out
}

// normalize fills defaults on records and validates them.
// Records without an id are numbered by position.
func normalize(records []record) ([]domain.Question, error) {
	out := make([]domain.Question, 0, len(records))
	seen := make(map[string]bool, len(records))
	for i, rec := range records {
		q := domain.Question{
			ID:              rec.ID,
			Text:            strings.TrimSpace(rec.Text),
			ReferenceAnswer: strings.TrimSpace(rec.ReferenceAnswer),
			Answer:          strings.TrimSpace(rec.Answer),
			Topic:           rec.Topic,
			Kind:            rec.Kind,
			MaxScore:        domain.DefaultMaxScore,
		}
		if rec.MaxScore != nil {
			q.MaxScore = *rec.MaxScore
		}
		if q.ID == "" {
			q.ID = fmt.Sprintf("q%d", i+1)
		}
		if q.Kind == "" {
			q.Kind = DetectKind(q.Text, q.Answer)
		}
		if seen[q.ID] {
			return nil, fmt.Errorf("%w: duplicate question id %q", domain.ErrInvalidQuestion, q.ID)
		}
		seen[q.ID] = true
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
		out = append(out, q)
	}
	return out, nil
}
