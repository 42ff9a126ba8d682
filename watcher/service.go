package watcher

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/screwyprof/efpwatch/pkg/clock"
)

// Option configures the Service
// ------------------------------------------------
type Option func(*Service)

// WithClock injects a custom Clock (e.g., for testing)
func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithMaxConcurrentFetches bounds the fetch fan-out across accounts
func WithMaxConcurrentFetches(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxConcurrent = n
		}
	}
}

// WithNotifier sets the notification dispatcher
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// Service runs one reconciliation batch: fetch the watchlist, diff against
// the previous state, notify, persist the new state.
// ---------------------------------------------------------------------
type Service struct {
	api           Client
	store         Store
	notifier      Notifier
	watchlist     []Identifier
	thresholds    Thresholds
	clock         clock.Clock
	maxConcurrent int
	events        chan Event
}

// NewService constructs a Service with required dependencies and options.
// By default it uses a real clock, a no-op notifier, and a fetch fan-out
// of 10 accounts.
func NewService(api Client, store Store, watchlist []Identifier, thresholds Thresholds, opts ...Option) *Service {
	s := &Service{
		api:           api,
		store:         store,
		notifier:      NopNotifier{},
		watchlist:     watchlist,
		thresholds:    thresholds,
		clock:         clock.SystemClock{},
		maxConcurrent: DefaultMaxConcurrentFetches,
		events:        make(chan Event, 32),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches one batch run and returns the events channel and a result
// channel that yields the run's final error (nil on success).
//
// Shutdown pattern: cancel the context to interrupt the run. An
// interrupted run is a no-op: the previous state stays authoritative and
// the next run re-derives deltas from the same baseline.
//
// Example:
//
//	events, result := service.Start(ctx)
//	closer := watcher.NewSubscriber(events, ...)
//	err := <-result
//	closer()
func (s *Service) Start(ctx context.Context) (<-chan Event, <-chan error) {
	result := make(chan error, 1)
	go func() {
		defer close(s.events)
		defer close(result)
		result <- s.run(ctx)
	}()
	return s.events, result
}

// run executes the batch: load -> fetch -> reconcile -> notify -> save
// --------------------------------------------------------------------
func (s *Service) run(ctx context.Context) error {
	if len(s.watchlist) == 0 {
		err := ErrEmptyWatchlist
		s.events <- RunError{Err: err}
		return err
	}

	start := s.clock.Now()
	s.events <- RunStarted{Accounts: len(s.watchlist), StartedAt: start}

	prev, err := s.store.Load(ctx)
	if err != nil {
		wrapped := fmt.Errorf("%w: %w", ErrStateLoadFailed, err)
		s.events <- RunError{Err: wrapped}
		return wrapped
	}

	current, skipped, err := s.fetchAll(ctx, prev)
	if err != nil {
		// only context cancellation aborts the fetch phase
		wrapped := fmt.Errorf("%w: %w", ErrRunInterrupted, err)
		s.events <- RunError{Err: wrapped}
		return wrapped
	}

	changes, next := Reconcile(prev, current, s.thresholds)
	s.events <- ChangesDetected{Changes: changes}

	if len(changes) > 0 {
		if err := s.notifier.Notify(ctx, changes); err != nil {
			s.events <- NotifyFailed{Err: fmt.Errorf("%w: %w", ErrNotifyDispatched, err)}
		}
	}

	if err := s.store.Save(ctx, next); err != nil {
		wrapped := fmt.Errorf("%w: %w", ErrStateSaveFailed, err)
		s.events <- RunError{Err: wrapped}
		return wrapped
	}
	s.events <- StateSaved{Accounts: len(next)}

	s.events <- RunCompleted{
		Accounts: len(current),
		Skipped:  skipped,
		Changes:  len(changes),
		Duration: s.clock.Now().Sub(start),
	}
	return nil
}

// fetchAll fetches every watchlist account with bounded concurrency.
// A failed account is skipped for this run: its previous snapshot (if any)
// is carried forward so the next run can still diff against a baseline.
// Results keep watchlist order regardless of fetch completion order.
func (s *Service) fetchAll(ctx context.Context, prev State) ([]Snapshot, int, error) {
	results := make([]*Snapshot, len(s.watchlist))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)

	for i, id := range s.watchlist {
		g.Go(func() error {
			data, err := s.api.FetchUserData(gctx, string(id))
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.events <- FetchFailed{Account: id, Err: fmt.Errorf("%w: %w", ErrFetchFailed, err)}
				return nil
			}
			snap := snapshotFromUserData(id, data, s.clock.Now())
			results[i] = &snap
			s.events <- SnapshotFetched{Account: id, Partial: data.Partial()}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	snapshots := make([]Snapshot, 0, len(s.watchlist))
	skipped := 0
	for i, id := range s.watchlist {
		if results[i] != nil {
			snapshots = append(snapshots, *results[i])
			continue
		}
		skipped++
		if before, ok := prev[id]; ok {
			// carried forward unchanged: diffing it against itself
			// yields no records and keeps the old baseline alive
			snapshots = append(snapshots, before)
		}
	}
	return snapshots, skipped, nil
}
