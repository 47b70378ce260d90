package engine

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-assessor/internal/confidence"
	"github.com/ahrav/go-assessor/internal/domain"
	"github.com/ahrav/go-assessor/internal/scoring"
)

// nodeFunc is the body of a non-terminal node. It receives a private copy of
// the state and returns the updated state; routing is decided by edges.
type nodeFunc func(ctx context.Context, s domain.SessionState) (domain.SessionState, error)

func (e *Engine) body(n domain.Node) (nodeFunc, bool) {
	switch n {
	case domain.NodeIngest:
		return e.ingest, true
	case domain.NodeEvaluate:
		return e.evaluate, true
	case domain.NodeCheckConfidence:
		return e.checkConfidence, true
	case domain.NodeFinalize:
		return e.finalize, true
	case domain.NodeGenerateReport:
		return e.generateReport, true
	default:
		return nil, false
	}
}

// advance runs s from its current node until it suspends at human review or
// reaches a terminal node. An error means the run could not make progress and
// nothing past the last persisted checkpoint was stored.
func (e *Engine) advance(ctx context.Context, s domain.SessionState) (domain.SessionState, error) {
	for {
		switch s.Node {
		case domain.NodeHumanReview:
			return e.suspend(ctx, s)
		case domain.NodeCompleted, domain.NodeFailed:
			return e.terminate(ctx, s)
		}

		run, ok := e.body(s.Node)
		if !ok {
			return s, fmt.Errorf("%w: no body for node %q", domain.ErrInvariant, s.Node)
		}
		if err := ctx.Err(); err != nil {
			return s, err
		}
		e.progress(ctx, Progress{SessionID: s.SessionID, Node: s.Node})

		next, err := run(ctx, s.Clone())
		if err != nil {
			return s, fmt.Errorf("node %s: %w", s.Node, err)
		}
		route, ok := edges[s.Node]
		if !ok {
			return s, fmt.Errorf("%w: no edge from node %q", domain.ErrInvariant, s.Node)
		}
		next.Node = route(next)
		next.Status = statusOf(next.Node)
		next.UpdatedAt = e.now().UTC()
		if err := next.Validate(); err != nil {
			return s, err
		}

		e.logger.DebugContext(ctx, "node transition",
			"session_id", s.SessionID,
			"from", s.Node,
			"to", next.Node)
		s = next
	}
}

func (e *Engine) ingest(ctx context.Context, s domain.SessionState) (domain.SessionState, error) {
	questions, err := e.adapter.Extract(ctx, s.Document)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return s, ctxErr
	}
	if err != nil {
		s.Error = fmt.Sprintf("ingestion failed: %v", err)
		return s, nil
	}
	if len(questions) == 0 {
		s.Error = "ingestion failed: document contains no questions"
		return s, nil
	}
	s.Questions = questions
	return s, nil
}

// evaluate scores every question with bounded concurrency. A failing
// question never cancels its siblings; it is recorded as a failed
// evaluation that forces review.
func (e *Engine) evaluate(ctx context.Context, s domain.SessionState) (domain.SessionState, error) {
	scorer := scoring.WithRetry(e.scorer, scoring.RetryPolicy{
		MaxRetries: s.Config.ScoringRetries,
		Backoff:    e.backoff,
	})

	results := make([]domain.Evaluation, len(s.Questions))
	var done atomic.Int64
	var g errgroup.Group
	g.SetLimit(s.Config.ScoringConcurrency)
	for i, q := range s.Questions {
		g.Go(func() error {
			results[i] = e.scoreOne(ctx, scorer, s.SessionID, q)
			e.progress(ctx, Progress{
				SessionID:  s.SessionID,
				Node:       domain.NodeEvaluate,
				QuestionID: q.ID,
				Done:       int(done.Add(1)),
				Total:      len(s.Questions),
			})
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return s, err
	}
	s.Evaluations = results
	return s, nil
}

func (e *Engine) scoreOne(ctx context.Context, scorer scoring.Scorer, sessionID string, q domain.Question) domain.Evaluation {
	eval, err := scorer.Evaluate(ctx, q)
	if err == nil {
		eval = e.normalizeEvaluation(eval, q)
		err = eval.Validate(q)
	}
	if err != nil {
		e.logger.WarnContext(ctx, "scoring failed",
			"session_id", sessionID,
			"question_id", q.ID,
			"error", err)
		return domain.FailedEvaluation(q.ID, err, e.now().UTC())
	}
	return eval
}

// normalizeEvaluation strips fields that only the workflow may set.
func (e *Engine) normalizeEvaluation(eval domain.Evaluation, q domain.Question) domain.Evaluation {
	if eval.QuestionID == "" {
		eval.QuestionID = q.ID
	}
	if eval.Status == "" {
		eval.Status = domain.StatusAIEvaluated
	}
	if eval.EvaluatedAt.IsZero() {
		eval.EvaluatedAt = e.now().UTC()
	}
	eval.NeedsReview = false
	eval.OverrideScore = nil
	eval.ReviewerNotes = ""
	eval.ReviewedByHuman = false
	return eval
}

func (e *Engine) checkConfidence(_ context.Context, s domain.SessionState) (domain.SessionState, error) {
	policy := confidence.Policy{Threshold: s.Config.ConfidenceThreshold}
	s.Evaluations, s.NeedsReview = policy.Apply(s.Evaluations)
	return s, nil
}

// finalize applies reviewer feedback, computes totals and clears the
// needs-review set.
func (e *Engine) finalize(_ context.Context, s domain.SessionState) (domain.SessionState, error) {
	for i := range s.Evaluations {
		ev := &s.Evaluations[i]
		fb, ok := s.Feedback[ev.QuestionID]
		if !ok {
			continue
		}
		if fb.Score != nil {
			v := *fb.Score
			ev.OverrideScore = &v
		}
		ev.ReviewerNotes = fb.Notes
		ev.ReviewedByHuman = true
		ev.Status = domain.StatusHumanReviewed
	}
	totals := domain.ComputeTotals(s.Questions, s.Evaluations)
	s.Totals = &totals
	s.NeedsReview = nil
	return s, nil
}

func (e *Engine) generateReport(ctx context.Context, s domain.SessionState) (domain.SessionState, error) {
	handle, err := e.assembler.Assemble(ctx, s)
	if err != nil {
		return s, fmt.Errorf("assembling report: %w", err)
	}
	s.Report = &handle
	s.Completed = true
	return s, nil
}

// suspend persists s at human review. The step is advanced so that a later
// resume can detect whether it acted on the latest checkpoint.
func (e *Engine) suspend(ctx context.Context, s domain.SessionState) (domain.SessionState, error) {
	s.Status = domain.RunSuspended
	s.Step++
	s.UpdatedAt = e.now().UTC()
	if err := e.store.Save(ctx, s.SessionID, s, s.Step); err != nil {
		return s, fmt.Errorf("saving checkpoint %s: %w", s.SessionID, err)
	}

	e.logger.InfoContext(ctx, "session suspended for review",
		"session_id", s.SessionID,
		"needs_review", len(s.NeedsReview),
		"step", s.Step)
	e.emitter.Emit(ctx, EventSessionSuspended, s.SessionID, s.Step, map[string]any{
		"needs_review": s.NeedsReview,
	})
	return s, nil
}

// terminate records the terminal status. Sessions that were checkpointed
// keep their final snapshot, so a late resume is rejected as invalid rather
// than unknown, unless the engine deletes completed checkpoints.
func (e *Engine) terminate(ctx context.Context, s domain.SessionState) (domain.SessionState, error) {
	s.Status = statusOf(s.Node)
	s.Completed = s.Node == domain.NodeCompleted

	if s.Step > 0 {
		var err error
		if e.deleteOnComplete {
			err = e.store.Delete(ctx, s.SessionID)
		} else {
			err = e.store.Save(ctx, s.SessionID, s, s.Step)
		}
		if err != nil {
			return s, fmt.Errorf("persisting terminal state %s: %w", s.SessionID, err)
		}
	}

	if s.Node == domain.NodeFailed {
		e.logger.WarnContext(ctx, "session failed", "session_id", s.SessionID, "error", s.Error)
		e.emitter.Emit(ctx, EventSessionFailed, s.SessionID, s.Step, map[string]any{
			"error": s.Error,
		})
		return s, nil
	}

	payload := map[string]any{"totals": s.Totals}
	if s.Report != nil {
		payload["report_key"] = s.Report.Key
	}
	e.logger.InfoContext(ctx, "session completed", "session_id", s.SessionID, "step", s.Step)
	e.emitter.Emit(ctx, EventSessionCompleted, s.SessionID, s.Step, payload)
	return s, nil
}
