package watcher

// ChangeKind identifies which snapshot field a change record describes
type ChangeKind string

// Change kinds, in emission order within one account
const (
	ChangeFollowerCount  ChangeKind = "follower_count"
	ChangeFollowingCount ChangeKind = "following_count"
	ChangeListMembership ChangeKind = "list_membership"
	ChangeTagSet         ChangeKind = "tag_set"
	ChangeRelationship   ChangeKind = "relationship"
)

// Change is one significant difference between an account's previous and
// current snapshots. A Change exists only if the underlying difference
// passed its kind's significance test.
//
// Previous/Current/Delta are set for scalar and set kinds (for set kinds
// they are the element counts). Added/Removed carry set members for
// list_membership and tag_set records; tag entries are "address:tag"
// pairs. Edge and EdgeAdded are set for relationship records only.
type Change struct {
	Account  Identifier `json:"account"`
	Kind     ChangeKind `json:"kind"`
	Previous int        `json:"previous"`
	Current  int        `json:"current"`
	Delta    int        `json:"delta"`

	Added   []string `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`

	Edge      *Edge `json:"edge,omitempty"`
	EdgeAdded bool  `json:"edge_added,omitempty"`
}

// Thresholds configures the significance policy. A threshold <= 1 reports
// any nonzero delta; zero-deltas are never reported. Relationship changes
// have no threshold: every added or removed edge is significant.
type Thresholds struct {
	FollowerChange  int
	FollowingChange int
	ListChange      int
	TagChange       int
}
