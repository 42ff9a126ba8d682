package twitter_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screwyprof/efpwatch/pkg/twitter"
)

func TestCredentials(t *testing.T) {
	t.Parallel()

	t.Run("it requires all four credentials", func(t *testing.T) {
		t.Parallel()

		full := twitter.Credentials{
			ConsumerKey:       "ck",
			ConsumerSecret:    "cs",
			AccessToken:       "at",
			AccessTokenSecret: "ats",
		}
		assert.True(t, full.Configured())

		partial := full
		partial.AccessTokenSecret = ""
		assert.False(t, partial.Configured())
	})
}

func TestClientPost(t *testing.T) {
	t.Parallel()

	t.Run("it creates a tweet and returns its ID", func(t *testing.T) {
		t.Parallel()

		// Arrange
		var gotBody map[string]string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/2/tweets", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"data":{"id":"1234567890"}}`))
		}))
		defer server.Close()

		client := twitter.NewClient(twitter.Credentials{},
			twitter.WithHTTPClient(http.DefaultClient),
			twitter.WithAPIURL(server.URL),
		)

		// Act
		id, err := client.Post(t.Context(), "EFP update")

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "1234567890", id)
		assert.Equal(t, "EFP update", gotBody["text"])
	})

	t.Run("it surfaces API rejections", func(t *testing.T) {
		t.Parallel()

		// Arrange
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"detail":"duplicate content"}`))
		}))
		defer server.Close()

		client := twitter.NewClient(twitter.Credentials{},
			twitter.WithHTTPClient(http.DefaultClient),
			twitter.WithAPIURL(server.URL),
		)

		// Act
		_, err := client.Post(t.Context(), "EFP update")

		// Assert
		assert.ErrorIs(t, err, twitter.ErrPostFailed)
		assert.Contains(t, err.Error(), "duplicate content")
	})
}
