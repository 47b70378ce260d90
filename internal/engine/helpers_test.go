package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-assessor/internal/checkpoint"
	"github.com/ahrav/go-assessor/internal/configuration"
	"github.com/ahrav/go-assessor/internal/domain"
	"github.com/ahrav/go-assessor/pkg/events"
)

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

// outcome is the canned scorer result for one question.
type outcome struct {
	score      float64
	confidence float64
	err        error
	// failures makes the first n calls fail with err before succeeding.
	failures int
}

// stubScorer answers per question id and records call counts.
type stubScorer struct {
	mu       sync.Mutex
	outcomes map[string]outcome
	calls    map[string]int
	delay    time.Duration

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func newStubScorer(outcomes map[string]outcome) *stubScorer {
	return &stubScorer{outcomes: outcomes, calls: make(map[string]int)}
}

func (s *stubScorer) Evaluate(ctx context.Context, q domain.Question) (domain.Evaluation, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		m := s.maxInFlight.Load()
		if n <= m || s.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return domain.Evaluation{}, ctx.Err()
		}
	}

	s.mu.Lock()
	s.calls[q.ID]++
	call := s.calls[q.ID]
	o, ok := s.outcomes[q.ID]
	s.mu.Unlock()
	if !ok {
		o = outcome{score: 8, confidence: 0.9}
	}

	if o.err != nil && (o.failures == 0 || call <= o.failures) {
		return domain.Evaluation{}, o.err
	}
	return domain.Evaluation{
		QuestionID:  q.ID,
		Score:       o.score,
		Confidence:  o.confidence,
		Explanation: "stub",
		Correct:     o.score >= q.MaxScore/2,
		Status:      domain.StatusAIEvaluated,
		EvaluatedAt: fixedNow,
	}, nil
}

func (s *stubScorer) callsFor(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[id]
}

func (s *stubScorer) totalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	for _, c := range s.calls {
		n += c
	}
	return n
}

// stubAssembler hands out sequential report keys.
type stubAssembler struct {
	mu    sync.Mutex
	calls int
	err   error
	seen  []domain.SessionState
}

func (a *stubAssembler) Assemble(_ context.Context, s domain.SessionState) (domain.ReportHandle, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	a.seen = append(a.seen, s.Clone())
	if a.err != nil {
		return domain.ReportHandle{}, a.err
	}
	return domain.ReportHandle{Key: "reports/" + s.SessionID + "/r.json", Format: "json", Size: 42}, nil
}

type harness struct {
	engine    *Engine
	store     *checkpoint.MemoryStore
	scorer    *stubScorer
	assembler *stubAssembler
	sink      *events.MemorySink
}

func newHarness(t *testing.T, scorer *stubScorer, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		store:     checkpoint.NewMemoryStore(checkpoint.WithMemoryClock(clock)),
		scorer:    scorer,
		assembler: &stubAssembler{},
		sink:      events.NewMemorySink(),
	}
	base := []Option{
		WithClock(clock),
		WithEventSink(h.sink),
		WithRetryBackoff(configuration.RetryConfig{InitialInterval: time.Millisecond, MaxInterval: time.Millisecond, Multiplier: 1}),
	}
	e, err := New(h.store, scorer, h.assembler, append(base, opts...)...)
	require.NoError(t, err)
	h.engine = e
	return h
}

// records builds a document of n short-answer questions q1..qn.
func records(n int) domain.Document {
	qs := make([]domain.Question, n)
	for i := range n {
		qs[i] = domain.Question{
			ID:       fmt.Sprintf("q%d", i+1),
			Text:     "What is the capital of France?",
			Answer:   "Paris",
			Topic:    "Geography",
			Kind:     domain.KindShortAnswer,
			MaxScore: 10,
		}
	}
	return domain.Document{Name: "quiz", Records: qs}
}

func runConfig(threshold float64) *domain.RunConfig {
	return &domain.RunConfig{ConfidenceThreshold: threshold, ScoringConcurrency: 4, ScoringRetries: 0}
}

func ptr(v float64) *float64 { return &v }

var errScoring = errors.New("provider unavailable")
