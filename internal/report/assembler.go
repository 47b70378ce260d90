package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"github.com/ahrav/go-assessor/internal/domain"
)

// Artifact formats.
const (
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// ErrNotFinalized is returned when a session still has questions awaiting review.
var ErrNotFinalized = errors.New("session not finalized")

// Assembler produces the report of a finalized session and returns a handle
// to the stored artifact.
type Assembler interface {
	Assemble(ctx context.Context, state domain.SessionState) (domain.ReportHandle, error)
}

// AssemblerFunc adapts a function to the Assembler interface.
type AssemblerFunc func(ctx context.Context, state domain.SessionState) (domain.ReportHandle, error)

// Assemble implements Assembler.
func (f AssemblerFunc) Assemble(ctx context.Context, state domain.SessionState) (domain.ReportHandle, error) {
	return f(ctx, state)
}

// StoreAssembler builds a Report, stores its JSON encoding and a Markdown
// rendering side by side, and returns a handle to the JSON artifact.
type StoreAssembler struct {
	store  ArtifactStore
	now    func() time.Time
	newID  func(domain.SessionState) string
	logger *slog.Logger
}

// AssemblerOption customizes a StoreAssembler.
type AssemblerOption func(*StoreAssembler)

// WithClock sets the report generation clock.
func WithClock(now func() time.Time) AssemblerOption {
	return func(a *StoreAssembler) { a.now = now }
}

// WithIDGenerator sets the generator for report ids used in artifact keys.
func WithIDGenerator(f func(domain.SessionState) string) AssemblerOption {
	return func(a *StoreAssembler) { a.newID = f }
}

// NewStoreAssembler creates an assembler that writes into store.
func NewStoreAssembler(store ArtifactStore, opts ...AssemblerOption) *StoreAssembler {
	a := &StoreAssembler{
		store:  store,
		now:    time.Now,
		newID:  ReportID,
		logger: slog.Default().With("component", "report"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

var reportNamespace = uuid.MustParse("6f0c2a8e-3c1d-4b7e-9a51-2d8f4e6b1c07")

// ReportID derives the report id from the session id and step, so assembling
// the same session state again overwrites its artifacts.
func ReportID(s domain.SessionState) string {
	return uuid.NewSHA1(reportNamespace, fmt.Appendf(nil, "%s/%d", s.SessionID, s.Step)).String()
}

// Key returns the artifact key of a report.
func Key(sessionID, reportID string) string {
	return fmt.Sprintf("reports/%s/%s.json", sessionID, reportID)
}

// MarkdownKey returns the key of the Markdown rendering stored next to a JSON report.
func MarkdownKey(jsonKey string) string {
	return jsonKey[:len(jsonKey)-len(".json")] + ".md"
}

// Assemble implements Assembler.
func (a *StoreAssembler) Assemble(ctx context.Context, state domain.SessionState) (domain.ReportHandle, error) {
	if len(state.NeedsReview) > 0 {
		return domain.ReportHandle{}, fmt.Errorf("%w: %d questions awaiting review", ErrNotFinalized, len(state.NeedsReview))
	}

	r := Build(state, a.now().UTC())
	body, err := sonic.ConfigStd.Marshal(r)
	if err != nil {
		return domain.ReportHandle{}, fmt.Errorf("encode report: %w", err)
	}

	key := Key(state.SessionID, a.newID(state))
	if err := a.store.Put(ctx, key, body); err != nil {
		return domain.ReportHandle{}, fmt.Errorf("store report %s: %w", key, err)
	}
	if err := a.store.Put(ctx, MarkdownKey(key), []byte(Markdown(r))); err != nil {
		return domain.ReportHandle{}, fmt.Errorf("store markdown report %s: %w", key, err)
	}

	a.logger.InfoContext(ctx, "report assembled",
		"session_id", state.SessionID,
		"key", key,
		"percentage", r.Statistics.Percentage)

	return domain.ReportHandle{Key: key, Format: FormatJSON, Size: int64(len(body))}, nil
}

// Load fetches and decodes the report behind h.
func Load(ctx context.Context, store ArtifactStore, h domain.ReportHandle) (Report, error) {
	body, err := store.Get(ctx, h.Key)
	if err != nil {
		return Report{}, err
	}
	var r Report
	if err := sonic.ConfigStd.Unmarshal(body, &r); err != nil {
		return Report{}, fmt.Errorf("decode report %s: %w", h.Key, err)
	}
	return r, nil
}
