// Package efp is a client for the Ethereum Follow Protocol public API.
package efp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public EFP API endpoint
const DefaultBaseURL = "https://api.ethfollow.xyz/api/v1"

// pageLimit is the page size used for paginated endpoints
const pageLimit = 100

// Sentinel errors for API failures
var (
	ErrNotFound      = errors.New("resource not found")
	ErrRequestFailed = errors.New("EFP API request failed")
)

// Client represents an EFP API client
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
}

// Option configures the Client
type Option func(*Client)

// WithRateLimit throttles outgoing requests to at most rps requests per second
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// NewClient creates a new EFP API client with the given HTTP client and base URL
func NewClient(httpClient *http.Client, baseURL string, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		limiter:    rate.NewLimiter(rate.Inf, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Stats holds an account's follower and following counts
type Stats struct {
	FollowersCount FlexInt `json:"followers_count"`
	FollowingCount FlexInt `json:"following_count"`
}

// FollowingEntry is one entry of an account's following list.
// Tags may include "block" and "mute", which the API uses to encode
// relationship kinds on top of the base follow record.
type FollowingEntry struct {
	Version    int      `json:"version"`
	RecordType string   `json:"record_type"`
	Address    string   `json:"data"`
	Tags       []string `json:"tags"`
}

// TaggedAddress is a single (address, tag) pair from the tags endpoint
type TaggedAddress struct {
	Address string `json:"address"`
	Tag     string `json:"tag"`
}

// LeaderboardEntry is one row of the follower leaderboard
type LeaderboardEntry struct {
	Address        string  `json:"address"`
	ENSName        string  `json:"name"`
	FollowersCount FlexInt `json:"followers_count"`
}

// Stats returns the follower/following counts for a user
func (c *Client) Stats(ctx context.Context, user string) (Stats, error) {
	var out Stats
	err := c.get(ctx, fmt.Sprintf("users/%s/stats", url.PathEscape(user)), nil, &out)
	return out, err
}

// Lists returns the identifiers of the EFP lists a user owns
func (c *Client) Lists(ctx context.Context, user string) ([]string, error) {
	var out struct {
		PrimaryList *FlexString  `json:"primary_list"`
		Lists       []FlexString `json:"lists"`
	}
	if err := c.get(ctx, fmt.Sprintf("users/%s/lists", url.PathEscape(user)), nil, &out); err != nil {
		return nil, err
	}
	lists := make([]string, 0, len(out.Lists))
	for _, l := range out.Lists {
		lists = append(lists, string(l))
	}
	return lists, nil
}

// Tags returns the addresses a user has tagged, keyed by tagged address
func (c *Client) Tags(ctx context.Context, user string) (map[string][]string, error) {
	var out struct {
		TaggedAddresses []TaggedAddress `json:"taggedAddresses"`
	}
	if err := c.get(ctx, fmt.Sprintf("users/%s/tags", url.PathEscape(user)), nil, &out); err != nil {
		return nil, err
	}
	tags := make(map[string][]string, len(out.TaggedAddresses))
	for _, ta := range out.TaggedAddresses {
		tags[ta.Address] = append(tags[ta.Address], ta.Tag)
	}
	return tags, nil
}

// Following returns the full following list of a user, walking all pages
func (c *Client) Following(ctx context.Context, user string) ([]FollowingEntry, error) {
	all := make([]FollowingEntry, 0, pageLimit)
	offset := 0
	for {
		var out struct {
			Following []FollowingEntry `json:"following"`
		}
		params := url.Values{
			"offset": []string{fmt.Sprintf("%d", offset)},
			"limit":  []string{fmt.Sprintf("%d", pageLimit)},
		}
		err := c.get(ctx, fmt.Sprintf("users/%s/following", url.PathEscape(user)), params, &out)
		if err != nil {
			return nil, err
		}
		all = append(all, out.Following...)
		if len(out.Following) < pageLimit {
			return all, nil
		}
		offset += pageLimit
	}
}

// ENSName returns a user's primary ENS name, or "" when none is set
func (c *Client) ENSName(ctx context.Context, user string) (string, error) {
	var out struct {
		ENS struct {
			Name string `json:"name"`
		} `json:"ens"`
	}
	if err := c.get(ctx, fmt.Sprintf("users/%s/account", url.PathEscape(user)), nil, &out); err != nil {
		return "", err
	}
	return out.ENS.Name, nil
}

// Leaderboard returns the top accounts by follower count
func (c *Client) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	var out []LeaderboardEntry
	params := url.Values{"limit": []string{fmt.Sprintf("%d", limit)}}
	if err := c.get(ctx, "leaderboard/followers", params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	u := fmt.Sprintf("%s/%s", c.baseURL, path)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status code %d for %s", ErrRequestFailed, resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response for %s: %w", path, err)
	}
	return nil
}
