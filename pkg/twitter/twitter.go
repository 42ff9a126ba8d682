// Package twitter posts status updates through the Twitter v2 API.
package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dghubble/oauth1"
)

// DefaultAPIURL is the Twitter API v2 base URL
const DefaultAPIURL = "https://api.twitter.com"

// ErrPostFailed indicates the tweet could not be created
var ErrPostFailed = errors.New("posting tweet failed")

// Credentials holds the OAuth1 user-context credentials
type Credentials struct {
	ConsumerKey       string
	ConsumerSecret    string
	AccessToken       string
	AccessTokenSecret string
}

// Configured reports whether all four credentials are present
func (c Credentials) Configured() bool {
	return c.ConsumerKey != "" && c.ConsumerSecret != "" &&
		c.AccessToken != "" && c.AccessTokenSecret != ""
}

// Client posts tweets using OAuth1 request signing
type Client struct {
	httpClient *http.Client
	apiURL     string
}

// Option configures the Client
type Option func(*Client)

// WithHTTPClient overrides the OAuth1-signed client, used in tests
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithAPIURL overrides the API base URL, used in tests
func WithAPIURL(u string) Option {
	return func(c *Client) { c.apiURL = u }
}

// NewClient creates a Client signing requests with the given credentials
func NewClient(creds Credentials, opts ...Option) *Client {
	config := oauth1.NewConfig(creds.ConsumerKey, creds.ConsumerSecret)
	token := oauth1.NewToken(creds.AccessToken, creds.AccessTokenSecret)

	c := &Client{
		httpClient: config.Client(oauth1.NoContext, token),
		apiURL:     DefaultAPIURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Post creates a tweet with the given text and returns its ID
func (c *Client) Post(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPostFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/2/tweets", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPostFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPostFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: status %d: %s", ErrPostFailed, resp.StatusCode, detail)
	}

	var out struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", ErrPostFailed, err)
	}
	return out.Data.ID, nil
}
