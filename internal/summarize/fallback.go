package summarize

import (
	"context"
	"log/slog"

	"github.com/arborapp/arbor-core/internal/model"
)

// Fallback tries a primary summarizer and degrades to a secondary one on
// any error. With Heuristic as the secondary it never fails, which is what
// keeps gateway outages off the checkpoint path.
type Fallback struct {
	primary   Summarizer
	secondary Summarizer
	log       *slog.Logger
}

// NewFallback composes two summarizers. A nil logger falls back to
// slog.Default.
func NewFallback(primary, secondary Summarizer, logger *slog.Logger) *Fallback {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fallback{primary: primary, secondary: secondary, log: logger}
}

// Summarize implements Summarizer.
func (f *Fallback) Summarize(ctx context.Context, session *model.WorkSession, entries []*model.WorkEntry, targetTokens int) (*Result, error) {
	res, err := f.primary.Summarize(ctx, session, entries, targetTokens)
	if err == nil {
		return res, nil
	}
	f.log.Warn("primary summarizer failed, using fallback", "session", session.ID, "error", err)
	return f.secondary.Summarize(ctx, session, entries, targetTokens)
}

// CompactText implements Summarizer.
func (f *Fallback) CompactText(ctx context.Context, content string, maxChars int) (string, error) {
	out, err := f.primary.CompactText(ctx, content, maxChars)
	if err == nil {
		return out, nil
	}
	f.log.Warn("primary compaction failed, using fallback", "error", err)
	return f.secondary.CompactText(ctx, content, maxChars)
}
