package domain

import (
	"fmt"
	"slices"
	"time"
)

// Node names a state of the assessment workflow.
type Node string

// Workflow nodes in execution order. Completed and Failed are terminal.
const (
	NodeIngest          Node = "ingest"
	NodeEvaluate        Node = "evaluate"
	NodeCheckConfidence Node = "check_confidence"
	NodeHumanReview     Node = "human_review"
	NodeFinalize        Node = "finalize"
	NodeGenerateReport  Node = "generate_report"
	NodeCompleted       Node = "completed"
	NodeFailed          Node = "failed"
)

// Terminal reports whether no further transitions leave n.
func (n Node) Terminal() bool { return n == NodeCompleted || n == NodeFailed }

// RunStatus is the coarse status reported to callers of the engine.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSuspended RunStatus = "suspended"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Default run configuration values.
const (
	DefaultConfidenceThreshold = 0.7
	DefaultScoringConcurrency  = 5
	DefaultScoringRetries      = 2
)

// RunConfig carries the per-session policy. It is stored in the session state
// so a resumed session keeps the policy it was started with.
type RunConfig struct {
	// ConfidenceThreshold below which an evaluation needs human review.
	ConfidenceThreshold float64 `json:"confidence_threshold" yaml:"confidence_threshold" validate:"gte=0,lte=1"`

	// ScoringConcurrency bounds concurrent scoring calls in the Evaluate node.
	ScoringConcurrency int `json:"scoring_concurrency" yaml:"scoring_concurrency" validate:"gte=1,lte=64"`

	// ScoringRetries is the number of additional attempts after a failed scoring call.
	ScoringRetries int `json:"scoring_retries" yaml:"scoring_retries" validate:"gte=0,lte=10"`
}

// DefaultRunConfig returns the documented defaults.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		ConfidenceThreshold: DefaultConfidenceThreshold,
		ScoringConcurrency:  DefaultScoringConcurrency,
		ScoringRetries:      DefaultScoringRetries,
	}
}

// Validate checks that every field is within its allowed range.
func (c *RunConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Totals holds the aggregate score of a finalized session.
type Totals struct {
	TotalScore  float64 `json:"total_score"`
	MaxPossible float64 `json:"max_possible"`
	Percentage  float64 `json:"percentage"`
}

// ComputeTotals sums effective scores (override if present, else awarded)
// against the sum of max scores.
func ComputeTotals(questions []Question, evaluations []Evaluation) Totals {
	var t Totals
	for _, q := range questions {
		t.MaxPossible += q.MaxScore
	}
	for _, e := range evaluations {
		t.TotalScore += e.EffectiveScore()
	}
	if t.MaxPossible > 0 {
		t.Percentage = t.TotalScore / t.MaxPossible * 100
	}
	return t
}

// ReportHandle references an assembled report held by the report store.
type ReportHandle struct {
	Key    string `json:"key"`
	Format string `json:"format"`
	Size   int64  `json:"size"`
}

// SessionState is the single unit of truth threaded through every workflow
// node and the only object persisted by the checkpoint store.
// Nodes never mutate a state in place; they return an updated copy.
type SessionState struct {
	SessionID string    `json:"session_id"`
	Config    RunConfig `json:"config"`
	Document  Document  `json:"document"`

	Questions   []Question   `json:"questions"`
	Evaluations []Evaluation `json:"evaluations"`

	// NeedsReview lists question ids awaiting review, in question order.
	NeedsReview []string            `json:"needs_review"`
	Feedback    map[string]Feedback `json:"feedback"`

	Node      Node      `json:"node"`
	Status    RunStatus `json:"status"`
	Error     string    `json:"error,omitempty"`
	Completed bool      `json:"completed"`

	// Step counts suspend cycles; it is the checkpoint version used to detect stale resumes.
	Step int64 `json:"step"`

	Totals    *Totals       `json:"totals,omitempty"`
	Report    *ReportHandle `json:"report,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// NewSessionState returns the initial state of a run, positioned at Ingest.
func NewSessionState(sessionID string, doc Document, cfg RunConfig, now time.Time) SessionState {
	return SessionState{
		SessionID: sessionID,
		Config:    cfg,
		Document:  doc,
		Feedback:  map[string]Feedback{},
		Node:      NodeIngest,
		Status:    RunRunning,
		StartedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy that shares no slices, maps or pointers with s.
func (s SessionState) Clone() SessionState {
	c := s
	c.Document.Records = slices.Clone(s.Document.Records)
	c.Questions = slices.Clone(s.Questions)
	c.NeedsReview = slices.Clone(s.NeedsReview)
	c.Feedback = cloneFeedback(s.Feedback)
	if s.Evaluations != nil {
		c.Evaluations = make([]Evaluation, len(s.Evaluations))
		for i, e := range s.Evaluations {
			c.Evaluations[i] = e.clone()
		}
	}
	if s.Totals != nil {
		t := *s.Totals
		c.Totals = &t
	}
	if s.Report != nil {
		r := *s.Report
		c.Report = &r
	}
	return c
}

// Question returns the question with the given id.
func (s SessionState) Question(id string) (Question, bool) {
	for _, q := range s.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// Validate checks the structural invariants of the state:
// question ids are unique, evaluations map 1:1 onto questions once scoring
// has run, and the needs-review set agrees with the current node.
func (s SessionState) Validate() error {
	ids := make(map[string]Question, len(s.Questions))
	for _, q := range s.Questions {
		if _, dup := ids[q.ID]; dup {
			return fmt.Errorf("%w: duplicate question id %q", ErrInvariant, q.ID)
		}
		ids[q.ID] = q
	}

	seen := make(map[string]bool, len(s.Evaluations))
	for i := range s.Evaluations {
		e := &s.Evaluations[i]
		q, ok := ids[e.QuestionID]
		if !ok {
			return fmt.Errorf("%w: evaluation references unknown question %q", ErrInvariant, e.QuestionID)
		}
		if seen[e.QuestionID] {
			return fmt.Errorf("%w: duplicate evaluation for %q", ErrInvariant, e.QuestionID)
		}
		seen[e.QuestionID] = true
		if err := e.Validate(q); err != nil {
			return fmt.Errorf("%w: %w", ErrInvariant, err)
		}
	}
	if len(s.Evaluations) > 0 && len(s.Evaluations) != len(s.Questions) {
		return fmt.Errorf("%w: %d evaluations for %d questions", ErrInvariant, len(s.Evaluations), len(s.Questions))
	}

	switch s.Node {
	case NodeHumanReview:
		if len(s.NeedsReview) == 0 {
			return fmt.Errorf("%w: human review with empty needs-review set", ErrInvariant)
		}
	case NodeGenerateReport, NodeCompleted:
		if len(s.NeedsReview) != 0 {
			return fmt.Errorf("%w: needs-review set not cleared after finalize", ErrInvariant)
		}
	}
	return nil
}
