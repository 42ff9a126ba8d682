package watcher

import (
	"fmt"
	"sort"
	"strings"
)

// profileURLBase links a mentioned account to its EFP profile
const profileURLBase = "https://efp.app/"

// maxPostRunes is the hard length limit of a social post
const maxPostRunes = 280

// FormatChange renders one change record as a human-readable phrase
func FormatChange(c Change) string {
	switch c.Kind {
	case ChangeFollowerCount:
		if c.Delta > 0 {
			return fmt.Sprintf("gained %d followers", c.Delta)
		}
		return fmt.Sprintf("lost %d followers", -c.Delta)
	case ChangeFollowingCount:
		if c.Delta > 0 {
			return fmt.Sprintf("started following %d accounts", c.Delta)
		}
		return fmt.Sprintf("unfollowed %d accounts", -c.Delta)
	case ChangeListMembership:
		return fmt.Sprintf("list memberships changed (%s)", describeSetChurn(c))
	case ChangeTagSet:
		return fmt.Sprintf("tags changed (%s)", describeSetChurn(c))
	case ChangeRelationship:
		return describeEdge(c)
	}
	return string(c.Kind)
}

func describeSetChurn(c Change) string {
	parts := make([]string, 0, 2)
	if n := len(c.Added); n > 0 {
		parts = append(parts, fmt.Sprintf("%d added", n))
	}
	if n := len(c.Removed); n > 0 {
		parts = append(parts, fmt.Sprintf("%d removed", n))
	}
	return strings.Join(parts, ", ")
}

func describeEdge(c Change) string {
	if c.Edge == nil {
		return "relationship changed"
	}
	target := string(c.Edge.Target)
	switch c.Edge.Kind {
	case EdgeFollow:
		if c.EdgeAdded {
			return "followed " + target
		}
		return "unfollowed " + target
	case EdgeBlock:
		if c.EdgeAdded {
			return "blocked " + target
		}
		return "unblocked " + target
	case EdgeMute:
		if c.EdgeAdded {
			return "muted " + target
		}
		return "unmuted " + target
	}
	return "relationship changed with " + target
}

// SummaryPost condenses a run's change records into a single postable
// update: the account with the most qualifying records leads with up to
// three of its changes, up to three runner-up accounts get a mention.
// Returns "" when there is nothing to post.
func SummaryPost(changes []Change) string {
	if len(changes) == 0 {
		return ""
	}

	order := make([]Identifier, 0, 4)
	byAccount := make(map[Identifier][]Change)
	for _, c := range changes {
		if _, ok := byAccount[c.Account]; !ok {
			order = append(order, c.Account)
		}
		byAccount[c.Account] = append(byAccount[c.Account], c)
	}

	// most active account first; stable so watchlist order breaks ties
	sort.SliceStable(order, func(i, j int) bool {
		return len(byAccount[order[i]]) > len(byAccount[order[j]])
	})

	top := order[0]
	phrases := make([]string, 0, 3)
	for _, c := range byAccount[top][:min(3, len(byAccount[top]))] {
		phrases = append(phrases, FormatChange(c))
	}

	var b strings.Builder
	b.WriteString("🚀 EFP Update Alert! 🚀\n\n")
	fmt.Fprintf(&b, "%s has been busy: %s", top, strings.Join(phrases, ", "))

	if len(order) > 1 {
		others := make([]string, 0, 3)
		for _, id := range order[1:min(4, len(order))] {
			others = append(others, string(id))
		}
		fmt.Fprintf(&b, "\n\nAlso watch: %s", strings.Join(others, ", "))
	} else {
		b.WriteString("\n\nStay tuned for more EFP action! 👀")
	}

	fmt.Fprintf(&b, "\n\nMore at %s%s", profileURLBase, top)

	return truncateRunes(b.String(), maxPostRunes)
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
