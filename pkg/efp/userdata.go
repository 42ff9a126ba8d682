package efp

import (
	"context"
	"errors"
	"fmt"
)

// ErrAllEndpointsFailed means no part of a user's data could be fetched
var ErrAllEndpointsFailed = errors.New("all endpoints failed")

// UserData is one user's EFP data as observed in a single pass over the API.
// A nil field means that endpoint could not be fetched this time (no
// assertion possible), while a non-nil empty value means the API reported
// the field as genuinely empty. Callers must preserve that distinction.
type UserData struct {
	Stats     *Stats
	Lists     []string
	Tags      map[string][]string
	Following []FollowingEntry
	ENSName   string
}

// FetchUserData assembles a user's data from the per-field endpoints.
// Individual endpoint failures leave the corresponding field nil; the call
// only fails when every endpoint fails, so one flaky endpoint never costs
// a whole account.
func (c *Client) FetchUserData(ctx context.Context, user string) (UserData, error) {
	var (
		data   UserData
		errs   []error
		failed int
	)

	stats, err := c.Stats(ctx, user)
	if err != nil {
		failed++
		errs = append(errs, fmt.Errorf("stats: %w", err))
	} else {
		data.Stats = &stats
	}

	lists, err := c.Lists(ctx, user)
	if err != nil {
		failed++
		errs = append(errs, fmt.Errorf("lists: %w", err))
	} else {
		if lists == nil {
			lists = []string{}
		}
		data.Lists = lists
	}

	tags, err := c.Tags(ctx, user)
	if err != nil {
		failed++
		errs = append(errs, fmt.Errorf("tags: %w", err))
	} else {
		if tags == nil {
			tags = map[string][]string{}
		}
		data.Tags = tags
	}

	following, err := c.Following(ctx, user)
	if err != nil {
		failed++
		errs = append(errs, fmt.Errorf("following: %w", err))
	} else {
		if following == nil {
			following = []FollowingEntry{}
		}
		data.Following = following
	}

	// ENS name is cosmetic, its absence never marks the fetch as degraded
	if name, err := c.ENSName(ctx, user); err == nil {
		data.ENSName = name
	}

	if failed == 4 {
		return UserData{}, fmt.Errorf("%w for user %s: %w", ErrAllEndpointsFailed, user, errors.Join(errs...))
	}
	return data, nil
}

// Partial reports whether any diffable field is missing from this fetch
func (d UserData) Partial() bool {
	return d.Stats == nil || d.Lists == nil || d.Tags == nil || d.Following == nil
}
