package efp_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screwyprof/efpwatch/pkg/efp"
)

func TestClientEndpoints(t *testing.T) {
	t.Parallel()

	t.Run("it decodes stats with string-encoded counts", func(t *testing.T) {
		t.Parallel()

		// Arrange
		server := apiServing(map[string]string{
			"/users/vitalik.eth/stats": `{"followers_count":"802","following_count":12}`,
		})
		defer server.Close()
		client := efp.NewClient(http.DefaultClient, server.URL)

		// Act
		stats, err := client.Stats(t.Context(), "vitalik.eth")

		// Assert
		require.NoError(t, err)
		assert.Equal(t, 802, stats.FollowersCount.Int())
		assert.Equal(t, 12, stats.FollowingCount.Int())
	})

	t.Run("it decodes list identifiers from numbers or strings", func(t *testing.T) {
		t.Parallel()

		// Arrange
		server := apiServing(map[string]string{
			"/users/vitalik.eth/lists": `{"primary_list":"4","lists":[4,"12"]}`,
		})
		defer server.Close()
		client := efp.NewClient(http.DefaultClient, server.URL)

		// Act
		lists, err := client.Lists(t.Context(), "vitalik.eth")

		// Assert
		require.NoError(t, err)
		assert.Equal(t, []string{"4", "12"}, lists)
	})

	t.Run("it groups tags by tagged address", func(t *testing.T) {
		t.Parallel()

		// Arrange
		server := apiServing(map[string]string{
			"/users/vitalik.eth/tags": `{"taggedAddresses":[
				{"address":"0xaa","tag":"top8"},
				{"address":"0xaa","tag":"dev"},
				{"address":"0xbb","tag":"friend"}
			]}`,
		})
		defer server.Close()
		client := efp.NewClient(http.DefaultClient, server.URL)

		// Act
		tags, err := client.Tags(t.Context(), "vitalik.eth")

		// Assert
		require.NoError(t, err)
		assert.Equal(t, map[string][]string{
			"0xaa": {"top8", "dev"},
			"0xbb": {"friend"},
		}, tags)
	})

	t.Run("it walks all pages of the following list", func(t *testing.T) {
		t.Parallel()

		// Arrange: first page full (100 entries), second page short
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			offset := r.URL.Query().Get("offset")
			w.Header().Set("Content-Type", "application/json")
			if offset == "0" {
				fmt.Fprint(w, fullFollowingPage(100))
				return
			}
			fmt.Fprint(w, `{"following":[{"version":1,"record_type":"address","data":"0xlast","tags":[]}]}`)
		}))
		defer server.Close()
		client := efp.NewClient(http.DefaultClient, server.URL)

		// Act
		following, err := client.Following(t.Context(), "vitalik.eth")

		// Assert
		require.NoError(t, err)
		assert.Len(t, following, 101)
		assert.Equal(t, "0xlast", following[100].Address)
	})

	t.Run("it decodes the follower leaderboard", func(t *testing.T) {
		t.Parallel()

		// Arrange
		server := apiServing(map[string]string{
			"/leaderboard/followers": `[
				{"address":"0xaa","name":"vitalik.eth","followers_count":"802"},
				{"address":"0xbb","name":"","followers_count":500}
			]`,
		})
		defer server.Close()
		client := efp.NewClient(http.DefaultClient, server.URL)

		// Act
		board, err := client.Leaderboard(t.Context(), 2)

		// Assert
		require.NoError(t, err)
		require.Len(t, board, 2)
		assert.Equal(t, "vitalik.eth", board[0].ENSName)
		assert.Equal(t, 802, board[0].FollowersCount.Int())
		assert.Equal(t, 500, board[1].FollowersCount.Int())
	})

	t.Run("it reports 404 as a distinct not-found error", func(t *testing.T) {
		t.Parallel()

		// Arrange
		server := httptest.NewServer(http.NotFoundHandler())
		defer server.Close()
		client := efp.NewClient(http.DefaultClient, server.URL)

		// Act
		_, err := client.Stats(t.Context(), "ghost.eth")

		// Assert
		assert.ErrorIs(t, err, efp.ErrNotFound)
	})

	t.Run("it fails on unexpected status codes", func(t *testing.T) {
		t.Parallel()

		// Arrange
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()
		client := efp.NewClient(http.DefaultClient, server.URL)

		// Act
		_, err := client.Stats(t.Context(), "vitalik.eth")

		// Assert
		assert.ErrorIs(t, err, efp.ErrRequestFailed)
	})
}

func TestFetchUserData(t *testing.T) {
	t.Parallel()

	t.Run("it assembles a full snapshot from all endpoints", func(t *testing.T) {
		t.Parallel()

		// Arrange
		server := apiServing(map[string]string{
			"/users/vitalik.eth/stats":     `{"followers_count":802,"following_count":12}`,
			"/users/vitalik.eth/lists":     `{"lists":["4"]}`,
			"/users/vitalik.eth/tags":      `{"taggedAddresses":[]}`,
			"/users/vitalik.eth/following": `{"following":[]}`,
			"/users/vitalik.eth/account":   `{"ens":{"name":"vitalik.eth"}}`,
		})
		defer server.Close()
		client := efp.NewClient(http.DefaultClient, server.URL)

		// Act
		data, err := client.FetchUserData(t.Context(), "vitalik.eth")

		// Assert
		require.NoError(t, err)
		assert.False(t, data.Partial())
		require.NotNil(t, data.Stats)
		assert.Equal(t, 802, data.Stats.FollowersCount.Int())
		assert.NotNil(t, data.Following, "successful empty following must be known-empty, not unknown")
		assert.Equal(t, "vitalik.eth", data.ENSName)
	})

	t.Run("it leaves failed fields nil and keeps the rest", func(t *testing.T) {
		t.Parallel()

		// Arrange: tags endpoint broken, everything else fine
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			switch r.URL.Path {
			case "/users/vitalik.eth/tags":
				w.WriteHeader(http.StatusInternalServerError)
			case "/users/vitalik.eth/stats":
				fmt.Fprint(w, `{"followers_count":802,"following_count":12}`)
			case "/users/vitalik.eth/lists":
				fmt.Fprint(w, `{"lists":[]}`)
			case "/users/vitalik.eth/following":
				fmt.Fprint(w, `{"following":[]}`)
			case "/users/vitalik.eth/account":
				fmt.Fprint(w, `{"ens":{"name":""}}`)
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))
		defer server.Close()
		client := efp.NewClient(http.DefaultClient, server.URL)

		// Act
		data, err := client.FetchUserData(t.Context(), "vitalik.eth")

		// Assert
		require.NoError(t, err, "one broken endpoint must not cost the account")
		assert.True(t, data.Partial())
		assert.Nil(t, data.Tags)
		require.NotNil(t, data.Stats)
		assert.Equal(t, 802, data.Stats.FollowersCount.Int())
	})

	t.Run("it fails only when every endpoint fails", func(t *testing.T) {
		t.Parallel()

		// Arrange
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()
		client := efp.NewClient(http.DefaultClient, server.URL)

		// Act
		_, err := client.FetchUserData(t.Context(), "vitalik.eth")

		// Assert
		assert.ErrorIs(t, err, efp.ErrAllEndpointsFailed)
	})
}

// Test helpers

func apiServing(routes map[string]string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))
}

func fullFollowingPage(n int) string {
	page := `{"following":[`
	for i := range n {
		if i > 0 {
			page += ","
		}
		page += fmt.Sprintf(`{"version":1,"record_type":"address","data":"0x%02d","tags":[]}`, i)
	}
	return page + `]}`
}
