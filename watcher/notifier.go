package watcher

import (
	"context"
	"log/slog"
)

// NopNotifier discards all change records
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, []Change) error { return nil }

// LogNotifier writes one log line per change record. It is the dry-run
// dispatcher used when no posting credentials are configured.
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier creates a LogNotifier writing through the given logger
func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(ctx context.Context, changes []Change) error {
	for _, c := range changes {
		n.log.InfoContext(ctx, "Change detected",
			slog.String("account", string(c.Account)),
			slog.String("kind", string(c.Kind)),
			slog.String("change", FormatChange(c)),
		)
	}
	return nil
}

// Poster posts a single text update to a social feed
type Poster interface {
	Post(ctx context.Context, text string) (string, error)
}

// SummaryNotifier condenses a run's records into one summary post.
// Prioritization across accounts and kinds happens here, not in the
// engine.
type SummaryNotifier struct {
	poster Poster
	log    *slog.Logger
}

// NewSummaryNotifier creates a SummaryNotifier posting through the given Poster
func NewSummaryNotifier(poster Poster, log *slog.Logger) *SummaryNotifier {
	return &SummaryNotifier{poster: poster, log: log}
}

func (n *SummaryNotifier) Notify(ctx context.Context, changes []Change) error {
	text := SummaryPost(changes)
	if text == "" {
		return nil
	}
	id, err := n.poster.Post(ctx, text)
	if err != nil {
		return err
	}
	n.log.InfoContext(ctx, "Summary posted", slog.String("postID", id))
	return nil
}
