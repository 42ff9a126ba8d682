package watcher

import (
	"context"
	"errors"
	"time"

	"github.com/screwyprof/efpwatch/pkg/efp"
)

// Sentinel errors for failure cases
var (
	ErrStateLoadFailed  = errors.New("state load failed")
	ErrStateSaveFailed  = errors.New("state save failed")
	ErrFetchFailed      = errors.New("snapshot fetch failed")
	ErrEmptyWatchlist   = errors.New("watchlist is empty")
	ErrRunInterrupted   = errors.New("run interrupted")
	ErrNotifyDispatched = errors.New("notification dispatch failed")
)

// Default configuration values
const (
	DefaultMaxConcurrentFetches = 10
)

// Client fetches a user's current EFP data from the API
// ------------------------------------------------------
type Client interface {
	FetchUserData(ctx context.Context, user string) (efp.UserData, error)
}

// Store provides durable persistence of the last-known snapshot state.
// Save must replace the whole mapping atomically: a crash mid-save must
// never leave a store that a later Load would parse as valid-but-wrong.
type Store interface {
	// Load returns the persisted state, or an empty state when absent
	Load(ctx context.Context) (State, error)
	// Save overwrites the entire persisted state
	Save(ctx context.Context, state State) error
}

// Notifier dispatches the run's change records to a social feed. Failures
// are surfaced but never block state persistence.
type Notifier interface {
	Notify(ctx context.Context, changes []Change) error
}

// Event represents a run lifecycle event
// --------------------------------------
type Event any

type RunStarted struct {
	Accounts  int
	StartedAt time.Time
}

type SnapshotFetched struct {
	Account Identifier
	Partial bool
}

// FetchFailed means one account's fetch failed entirely; its previous
// snapshot is carried forward unchanged so the next run still has a
// baseline.
type FetchFailed struct {
	Account Identifier
	Err     error
}

type ChangesDetected struct {
	Changes []Change
}

type NotifyFailed struct {
	Err error
}

type StateSaved struct {
	Accounts int
}

type RunCompleted struct {
	Accounts int
	Skipped  int
	Changes  int
	Duration time.Duration
}

type RunError struct {
	Err error
}

// snapshotFromUserData converts API user data into a domain snapshot,
// preserving the nil-means-unknown semantics of each field.
func snapshotFromUserData(id Identifier, data efp.UserData, fetchedAt time.Time) Snapshot {
	snap := Snapshot{
		Identifier: id,
		ENSName:    data.ENSName,
		FetchedAt:  fetchedAt,
	}

	if data.Stats != nil {
		followers := data.Stats.FollowersCount.Int()
		following := data.Stats.FollowingCount.Int()
		snap.FollowerCount = &followers
		snap.FollowingCount = &following
	}
	if data.Lists != nil {
		snap.Lists = append([]string{}, data.Lists...)
	}
	if data.Tags != nil {
		tags := make(map[string][]string, len(data.Tags))
		for addr, ts := range data.Tags {
			tags[addr] = append([]string{}, ts...)
		}
		snap.Tags = tags
	}
	if data.Following != nil {
		snap.Relationships = edgesFromFollowing(id, data.Following)
	}
	return snap
}

// edgesFromFollowing flattens the API's following entries into directed
// edges. Every entry yields a follow edge; "block" and "mute" entry tags
// yield additional edges of those kinds.
func edgesFromFollowing(source Identifier, following []efp.FollowingEntry) []Edge {
	edges := make([]Edge, 0, len(following))
	for _, entry := range following {
		target, err := NormalizeIdentifier(entry.Address)
		if err != nil {
			continue
		}
		edges = append(edges, Edge{Source: source, Target: target, Kind: EdgeFollow})
		for _, tag := range entry.Tags {
			switch tag {
			case "block":
				edges = append(edges, Edge{Source: source, Target: target, Kind: EdgeBlock})
			case "mute":
				edges = append(edges, Edge{Source: source, Target: target, Kind: EdgeMute})
			}
		}
	}
	return edges
}
