// Package engine runs the assessment workflow: a fixed graph of nodes over a
// single session state, with a suspend point for human review and a
// checkpoint store that lets a later call resume the session.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ahrav/go-assessor/internal/checkpoint"
	"github.com/ahrav/go-assessor/internal/configuration"
	"github.com/ahrav/go-assessor/internal/domain"
	"github.com/ahrav/go-assessor/internal/ingest"
	"github.com/ahrav/go-assessor/internal/report"
	"github.com/ahrav/go-assessor/internal/scoring"
	"github.com/ahrav/go-assessor/pkg/events"
)

// Event types emitted on session lifecycle transitions.
const (
	EventSessionStarted   = "session.started"
	EventSessionSuspended = "session.suspended"
	EventSessionResumed   = "session.resumed"
	EventSessionCompleted = "session.completed"
	EventSessionFailed    = "session.failed"
	EventSessionAbandoned = "session.abandoned"
)

const eventSource = "assessor.engine"

// StartRequest starts a new session.
type StartRequest struct {
	// SessionID is optional; a random id is generated when empty.
	SessionID string
	Document  domain.Document

	// Config overrides the engine defaults for this session when non-nil.
	Config *domain.RunConfig
}

// ResumeRequest resumes a session suspended at human review.
type ResumeRequest struct {
	SessionID string

	// Feedback maps question ids to reviewer input. It may be empty, in which
	// case the automated scores stand.
	Feedback map[string]domain.Feedback

	// ExpectedStep, when non-zero, must equal the checkpoint step.
	ExpectedStep int64
}

// RunResult is what a caller sees after Start, Resume or Status.
type RunResult struct {
	State  domain.SessionState
	Node   domain.Node
	Status domain.RunStatus
}

// NeedsReview returns the question ids awaiting review.
func (r RunResult) NeedsReview() []string { return r.State.NeedsReview }

func resultOf(s domain.SessionState) RunResult {
	return RunResult{State: s, Node: s.Node, Status: s.Status}
}

// Progress describes a unit of work finished by a running session.
// QuestionID is set once per scored question; node entries leave it empty.
type Progress struct {
	SessionID  string
	Node       domain.Node
	QuestionID string
	Done       int
	Total      int
}

// ProgressFunc observes session progress. It is called from scoring
// goroutines and must be safe for concurrent use.
type ProgressFunc func(ctx context.Context, p Progress)

// Engine drives sessions through the workflow graph. It is safe for
// concurrent use; calls for the same session id are serialized.
type Engine struct {
	store     checkpoint.Store
	scorer    scoring.Scorer
	assembler report.Assembler
	adapter   ingest.Adapter

	defaults         domain.RunConfig
	backoff          configuration.RetryConfig
	deleteOnComplete bool

	emitter  *events.Emitter
	progress ProgressFunc
	now      func() time.Time
	newID    func() string
	locks    *sessionLocks
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithIngestAdapter replaces the default document parser.
func WithIngestAdapter(a ingest.Adapter) Option {
	return func(e *Engine) { e.adapter = a }
}

// WithEventSink publishes lifecycle events to sink.
func WithEventSink(sink events.EventSink) Option {
	return func(e *Engine) { e.emitter = events.NewEmitter(sink, eventSource) }
}

// WithClock sets the time source used for state and event timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator sets the generator for session ids.
func WithIDGenerator(f func() string) Option {
	return func(e *Engine) { e.newID = f }
}

// WithDefaults sets the run configuration used when a request carries none.
func WithDefaults(cfg domain.RunConfig) Option {
	return func(e *Engine) { e.defaults = cfg }
}

// WithRetryBackoff sets the backoff between scoring retries.
func WithRetryBackoff(cfg configuration.RetryConfig) Option {
	return func(e *Engine) { e.backoff = cfg }
}

// WithDeleteOnComplete removes checkpoints of sessions that reach a terminal
// node instead of retaining the final snapshot until it expires.
func WithDeleteOnComplete(on bool) Option {
	return func(e *Engine) { e.deleteOnComplete = on }
}

// WithProgress reports node entries and each scored question to f.
func WithProgress(f ProgressFunc) Option {
	return func(e *Engine) { e.progress = f }
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an engine. store, scorer and assembler are required.
func New(store checkpoint.Store, scorer scoring.Scorer, assembler report.Assembler, opts ...Option) (*Engine, error) {
	if store == nil || scorer == nil || assembler == nil {
		return nil, errors.New("engine: store, scorer and assembler are required")
	}
	e := &Engine{
		store:     store,
		scorer:    scorer,
		assembler: assembler,
		adapter:   ingest.NewParser(),
		defaults:  domain.DefaultRunConfig(),
		backoff:   configuration.DefaultConfig().Scoring.Retry,
		now:       time.Now,
		newID:     uuid.NewString,
		locks:     newSessionLocks(),
		logger:    slog.Default().With("component", "engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.emitter == nil {
		e.emitter = events.NewEmitter(nil, eventSource)
	}
	if e.progress == nil {
		e.progress = func(context.Context, Progress) {}
	}
	e.emitter = e.emitter.WithClock(e.now)
	if err := e.defaults.Validate(); err != nil {
		return nil, fmt.Errorf("engine defaults: %w", err)
	}
	return e, nil
}

// Start runs a new session from Ingest until it suspends or terminates.
//
// Document problems are not call errors: they end the session in Failed with
// the cause recorded on the state. Call errors are returned for invalid
// requests, duplicate ids, and checkpoint or report store failures.
func (e *Engine) Start(ctx context.Context, req StartRequest) (RunResult, error) {
	cfg := e.defaults
	if req.Config != nil {
		cfg = *req.Config
	}
	if err := cfg.Validate(); err != nil {
		return RunResult{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	id := req.SessionID
	if id == "" {
		id = e.newID()
	}
	release, ok := e.locks.tryAcquire(id)
	if !ok {
		return RunResult{}, fmt.Errorf("%w: %s", ErrSessionBusy, id)
	}
	defer release()

	switch _, err := e.store.Load(ctx, id); {
	case err == nil:
		return RunResult{}, fmt.Errorf("%w: %s", ErrSessionExists, id)
	case !errors.Is(err, checkpoint.ErrNotFound):
		return RunResult{}, fmt.Errorf("checking session %s: %w", id, err)
	}

	state := domain.NewSessionState(id, req.Document, cfg, e.now().UTC())
	e.logger.InfoContext(ctx, "session started", "session_id", id, "document", req.Document.Name)
	e.emitter.Emit(ctx, EventSessionStarted, id, state.Step, map[string]any{
		"document": req.Document.Name,
		"config":   cfg,
	})

	out, err := e.advance(ctx, state)
	if err != nil {
		return RunResult{}, err
	}
	return resultOf(out), nil
}

// Resume applies reviewer feedback to a suspended session and runs it to
// completion. Feedback for unknown question ids is ignored; feedback for a
// question that was not flagged is applied like any other.
func (e *Engine) Resume(ctx context.Context, req ResumeRequest) (RunResult, error) {
	if req.SessionID == "" {
		return RunResult{}, fmt.Errorf("%w: session id is required", ErrInvalidRequest)
	}
	release, ok := e.locks.tryAcquire(req.SessionID)
	if !ok {
		return RunResult{}, fmt.Errorf("%w: %s", ErrSessionBusy, req.SessionID)
	}
	defer release()

	cp, err := e.load(ctx, req.SessionID)
	if err != nil {
		return RunResult{}, err
	}
	state := cp.State
	if state.Node != domain.NodeHumanReview || state.Status != domain.RunSuspended {
		return RunResult{}, fmt.Errorf("%w: session %s is at %s (%s)", ErrInvalidResume, req.SessionID, state.Node, state.Status)
	}
	if req.ExpectedStep != 0 && req.ExpectedStep != cp.Step {
		return RunResult{}, fmt.Errorf("%w: expected step %d, checkpoint is at %d", ErrStaleResume, req.ExpectedStep, cp.Step)
	}

	state, err = e.mergeFeedback(ctx, state, req.Feedback)
	if err != nil {
		return RunResult{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	state.Node = domain.NodeFinalize
	state.Status = domain.RunRunning
	state.UpdatedAt = e.now().UTC()

	e.logger.InfoContext(ctx, "session resumed", "session_id", state.SessionID, "feedback", len(req.Feedback), "step", cp.Step)
	e.emitter.Emit(ctx, EventSessionResumed, state.SessionID, state.Step, map[string]any{
		"feedback_count": len(req.Feedback),
	})

	out, err := e.advance(ctx, state)
	if err != nil {
		return RunResult{}, err
	}
	return resultOf(out), nil
}

// Status returns the last persisted state of a session.
func (e *Engine) Status(ctx context.Context, sessionID string) (RunResult, error) {
	cp, err := e.load(ctx, sessionID)
	if err != nil {
		return RunResult{}, err
	}
	return resultOf(cp.State), nil
}

// List returns the persisted sessions in session id order. Sessions that
// expire while listing are skipped, as are unreadable checkpoints.
func (e *Engine) List(ctx context.Context) ([]RunResult, error) {
	ids, err := e.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	out := make([]RunResult, 0, len(ids))
	for _, id := range ids {
		cp, err := e.store.Load(ctx, id)
		switch {
		case errors.Is(err, checkpoint.ErrNotFound):
			continue
		case errors.Is(err, checkpoint.ErrCorrupt):
			e.logger.WarnContext(ctx, "skipping unreadable checkpoint", "session_id", id, "error", err)
			continue
		case err != nil:
			return nil, fmt.Errorf("loading checkpoint %s: %w", id, err)
		}
		out = append(out, resultOf(cp.State))
	}
	return out, nil
}

// Abandon deletes a session's checkpoint so it can no longer be resumed.
func (e *Engine) Abandon(ctx context.Context, sessionID string) error {
	release, ok := e.locks.tryAcquire(sessionID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionBusy, sessionID)
	}
	defer release()

	cp, err := e.load(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := e.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("deleting checkpoint %s: %w", sessionID, err)
	}
	e.logger.InfoContext(ctx, "session abandoned", "session_id", sessionID, "node", cp.State.Node)
	e.emitter.Emit(ctx, EventSessionAbandoned, sessionID, cp.Step, map[string]any{
		"node": cp.State.Node,
	})
	return nil
}

func (e *Engine) load(ctx context.Context, sessionID string) (checkpoint.Checkpoint, error) {
	if sessionID == "" {
		return checkpoint.Checkpoint{}, fmt.Errorf("%w: session id is required", ErrInvalidRequest)
	}
	cp, err := e.store.Load(ctx, sessionID)
	if errors.Is(err, checkpoint.ErrNotFound) {
		return checkpoint.Checkpoint{}, fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}
	if err != nil {
		return checkpoint.Checkpoint{}, fmt.Errorf("loading checkpoint %s: %w", sessionID, err)
	}
	return cp, nil
}

// mergeFeedback validates fb against the session questions and returns a
// copy of s carrying it. Nothing is merged if any override is out of range.
func (e *Engine) mergeFeedback(ctx context.Context, s domain.SessionState, fb map[string]domain.Feedback) (domain.SessionState, error) {
	accepted := make(map[string]domain.Feedback, len(fb))
	for id, f := range fb {
		q, ok := s.Question(id)
		if !ok {
			e.logger.WarnContext(ctx, "ignoring feedback for unknown question", "session_id", s.SessionID, "question_id", id)
			continue
		}
		if err := f.Validate(q); err != nil {
			return s, err
		}
		if f.Score != nil {
			v := *f.Score
			f.Score = &v
		}
		accepted[id] = f
	}

	out := s.Clone()
	if out.Feedback == nil {
		out.Feedback = make(map[string]domain.Feedback, len(accepted))
	}
	for id, f := range accepted {
		out.Feedback[id] = f
	}
	return out, nil
}
