package watcher

import "sort"

// Reconcile joins every current snapshot with its previous snapshot and
// produces the significant change records, in watchlist order and then
// kind order (followers, following, lists, tags, relationships).
//
// The returned State is the current snapshots keyed by identifier; it
// becomes the new baseline regardless of whether any change qualified.
// Accounts with no previous snapshot produce no records (nothing to
// compare against), and accounts absent from the current run are pruned
// by construction.
//
// Nil snapshot fields mean "no assertion possible" and skip only the
// affected kind; a missing fetch is never conflated with a real zero.
func Reconcile(prev State, current []Snapshot, th Thresholds) ([]Change, State) {
	changes := make([]Change, 0)
	next := make(State, len(current))

	for _, snap := range current {
		next[snap.Identifier] = snap

		before, seen := prev[snap.Identifier]
		if !seen {
			continue
		}

		changes = appendScalarChange(changes, before.FollowerCount, snap.FollowerCount,
			snap.Identifier, ChangeFollowerCount, th.FollowerChange)
		changes = appendScalarChange(changes, before.FollowingCount, snap.FollowingCount,
			snap.Identifier, ChangeFollowingCount, th.FollowingChange)
		changes = appendListChange(changes, before, snap, th.ListChange)
		changes = appendTagChange(changes, before, snap, th.TagChange)
		changes = appendEdgeChanges(changes, before, snap)
	}

	return changes, next
}

func appendScalarChange(changes []Change, prev, cur *int, id Identifier, kind ChangeKind, threshold int) []Change {
	if prev == nil || cur == nil {
		return changes
	}
	delta := *cur - *prev
	if !significant(delta, threshold) {
		return changes
	}
	return append(changes, Change{
		Account:  id,
		Kind:     kind,
		Previous: *prev,
		Current:  *cur,
		Delta:    delta,
	})
}

func appendListChange(changes []Change, before, snap Snapshot, threshold int) []Change {
	if before.Lists == nil || snap.Lists == nil {
		return changes
	}
	added, removed := diffSets(before.Lists, snap.Lists)
	churn := len(added) + len(removed)
	if !significant(churn, threshold) {
		return changes
	}
	return append(changes, Change{
		Account:  snap.Identifier,
		Kind:     ChangeListMembership,
		Previous: len(before.Lists),
		Current:  len(snap.Lists),
		Delta:    len(snap.Lists) - len(before.Lists),
		Added:    added,
		Removed:  removed,
	})
}

// appendTagChange aggregates tag churn across all tagged addresses into a
// single record; the threshold applies to the aggregate, not per address.
func appendTagChange(changes []Change, before, snap Snapshot, threshold int) []Change {
	if before.Tags == nil || snap.Tags == nil {
		return changes
	}

	var added, removed []string
	for _, addr := range unionKeys(before.Tags, snap.Tags) {
		a, r := diffSets(before.Tags[addr], snap.Tags[addr])
		for _, tag := range a {
			added = append(added, addr+":"+tag)
		}
		for _, tag := range r {
			removed = append(removed, addr+":"+tag)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)

	churn := len(added) + len(removed)
	if !significant(churn, threshold) {
		return changes
	}

	prevTotal := countTags(before.Tags)
	curTotal := countTags(snap.Tags)
	return append(changes, Change{
		Account:  snap.Identifier,
		Kind:     ChangeTagSet,
		Previous: prevTotal,
		Current:  curTotal,
		Delta:    curTotal - prevTotal,
		Added:    added,
		Removed:  removed,
	})
}

// appendEdgeChanges emits one record per added or removed edge. Edges are
// discrete events, so no threshold applies. Added edges come first, each
// group in deterministic (source, target, kind) order.
func appendEdgeChanges(changes []Change, before, snap Snapshot) []Change {
	if before.Relationships == nil || snap.Relationships == nil {
		return changes
	}

	prevSet := edgeSet(before.Relationships)
	curSet := edgeSet(snap.Relationships)

	var added, removed []Edge
	for e := range curSet {
		if _, ok := prevSet[e]; !ok {
			added = append(added, e)
		}
	}
	for e := range prevSet {
		if _, ok := curSet[e]; !ok {
			removed = append(removed, e)
		}
	}
	sortEdges(added)
	sortEdges(removed)

	for _, e := range added {
		edge := e
		changes = append(changes, Change{
			Account:   snap.Identifier,
			Kind:      ChangeRelationship,
			Delta:     1,
			Edge:      &edge,
			EdgeAdded: true,
		})
	}
	for _, e := range removed {
		edge := e
		changes = append(changes, Change{
			Account: snap.Identifier,
			Kind:    ChangeRelationship,
			Delta:   -1,
			Edge:    &edge,
		})
	}
	return changes
}

// significant applies the shared threshold rule: zero deltas never
// qualify, and a threshold of zero (or less) means any nonzero delta does.
func significant(delta, threshold int) bool {
	if delta < 0 {
		delta = -delta
	}
	return delta != 0 && delta >= threshold
}

// diffSets returns the sorted elements of cur not in prev and of prev not
// in cur. Inputs are slices with set semantics; duplicates are ignored.
func diffSets(prev, cur []string) (added, removed []string) {
	prevSet := make(map[string]struct{}, len(prev))
	for _, s := range prev {
		prevSet[s] = struct{}{}
	}
	curSet := make(map[string]struct{}, len(cur))
	for _, s := range cur {
		curSet[s] = struct{}{}
	}

	for s := range curSet {
		if _, ok := prevSet[s]; !ok {
			added = append(added, s)
		}
	}
	for s := range prevSet {
		if _, ok := curSet[s]; !ok {
			removed = append(removed, s)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}

func unionKeys(a, b map[string][]string) []string {
	keys := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		keys[k] = struct{}{}
	}
	for k := range b {
		keys[k] = struct{}{}
	}
	out := make([]string, 0, len(keys))
	for k := range keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func countTags(tags map[string][]string) int {
	total := 0
	for _, ts := range tags {
		total += len(ts)
	}
	return total
}

func edgeSet(edges []Edge) map[Edge]struct{} {
	set := make(map[Edge]struct{}, len(edges))
	for _, e := range edges {
		set[e] = struct{}{}
	}
	return set
}

func sortEdges(edges []Edge) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Source != edges[j].Source {
			return edges[i].Source < edges[j].Source
		}
		if edges[i].Target != edges[j].Target {
			return edges[i].Target < edges[j].Target
		}
		return edges[i].Kind < edges[j].Kind
	})
}
