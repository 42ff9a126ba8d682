package watcher

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ErrInvalidIdentifier indicates a watchlist entry that is neither a hex
// address nor a plausible ENS name
var ErrInvalidIdentifier = errors.New("invalid account identifier")

// Identifier is the stable, case-normalized key of a monitored account:
// a lowercased Ethereum address or a lowercased ENS name. It joins the
// previous and current snapshots across runs and must never be regenerated.
type Identifier string

// NormalizeIdentifier canonicalizes a raw watchlist entry. Hex addresses
// are validated and lowercased, everything else is treated as an ENS name
// and lowercased.
func NormalizeIdentifier(raw string) (Identifier, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidIdentifier)
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		if !common.IsHexAddress(s) {
			return "", fmt.Errorf("%w: %q is not a valid address", ErrInvalidIdentifier, raw)
		}
		return Identifier(strings.ToLower(common.HexToAddress(s).Hex())), nil
	}
	return Identifier(strings.ToLower(s)), nil
}

// EdgeKind is the kind of a directed relationship edge
type EdgeKind string

// Relationship edge kinds
const (
	EdgeFollow EdgeKind = "follow"
	EdgeBlock  EdgeKind = "block"
	EdgeMute   EdgeKind = "mute"
)

// Edge is a directed relationship (source, target, kind). The triple is
// the edge's identity: a kind change is a removal plus an addition, never
// an update.
type Edge struct {
	Source Identifier `json:"source"`
	Target Identifier `json:"target"`
	Kind   EdgeKind   `json:"kind"`
}

func (e Edge) String() string {
	return fmt.Sprintf("(%s -> %s, %s)", e.Source, e.Target, e.Kind)
}

// Snapshot is one account's EFP data as observed at a single point in
// time. It is immutable once fetched.
//
// Nil fields mean the data could not be fetched this run: the engine makes
// no assertion about them. Non-nil empty values mean the API reported the
// field as genuinely empty. JSON round-trips preserve the distinction
// (null vs [] / {}), which is why the set fields deliberately have no
// omitempty tag.
type Snapshot struct {
	Identifier     Identifier          `json:"identifier"`
	FollowerCount  *int                `json:"follower_count"`
	FollowingCount *int                `json:"following_count"`
	Lists          []string            `json:"lists"`
	Tags           map[string][]string `json:"tags"`
	Relationships  []Edge              `json:"relationships"`
	ENSName        string              `json:"ens_name,omitempty"`
	FetchedAt      time.Time           `json:"fetched_at"`
}

// DisplayName is the human-facing name for notifications
func (s Snapshot) DisplayName() string {
	if s.ENSName != "" {
		return s.ENSName
	}
	return string(s.Identifier)
}

// State is the persisted mapping from account identifier to its most
// recent snapshot. Exactly one entry per watchlist member.
type State map[Identifier]Snapshot
