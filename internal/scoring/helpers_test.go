package scoring

import (
	"context"
	"sync"
	"time"

	"github.com/ahrav/go-assessor/internal/domain"
	"github.com/ahrav/go-assessor/internal/llm/transport"
)

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

// stubCompleter replays canned replies in order, then repeats the last.
type stubCompleter struct {
	mu      sync.Mutex
	replies []stubReply
	calls   int
	prompts []string
}

type stubReply struct {
	content string
	err     error
}

func (s *stubCompleter) Complete(_ context.Context, _ string, prompt string) (*transport.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	r := s.replies[min(s.calls, len(s.replies)-1)]
	s.calls++
	if r.err != nil {
		return nil, r.err
	}
	return &transport.Response{Content: r.content}, nil
}

func question(id string) domain.Question {
	return domain.Question{
		ID:       id,
		Text:     "Define photosynthesis.",
		Answer:   "Plants turn light into chemical energy.",
		Kind:     domain.KindShortAnswer,
		MaxScore: 10,
	}
}
