// internal/github/enrich_test.go
package github

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// usersHandler serves /users/{login} profiles, failing the logins listed in
// broken.
func usersHandler(requestCount *int32, broken ...string) http.Handler {
	failing := make(map[string]bool, len(broken))
	for _, l := range broken {
		failing[l] = true
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(requestCount, 1)
		parts := strings.Split(r.URL.Path, "/")
		login := parts[len(parts)-1]
		if failing[login] {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprintln(w, `{"message": "boom"}`)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"login": %q, "followers": 10, "public_repos": 5, "created_at": "2020-01-01T00:00:00Z"}`, login)
	})
}

func TestClient_EnrichProfiles(t *testing.T) {
	t.Run("drops failed lookups and keeps input order", func(t *testing.T) {
		var requestCount int32
		client, server := setupTestClient(t, usersHandler(&requestCount, "u3", "u7"))
		defer server.Close()

		logins := []string{"u1", "u2", "u3", "u4", "u5", "u6", "u7", "u8", "u9", "u10"}
		profiles, err := client.EnrichProfiles(context.Background(), logins, 4, 0)

		require.NoError(t, err)
		assert.Equal(t, int32(10), atomic.LoadInt32(&requestCount), "every login is attempted exactly once")
		require.Len(t, profiles, 8)
		got := make([]string, 0, len(profiles))
		for _, p := range profiles {
			got = append(got, p.Login)
		}
		assert.Equal(t, []string{"u1", "u2", "u4", "u5", "u6", "u8", "u9", "u10"}, got)
	})

	t.Run("sleeps between batches but not after the last", func(t *testing.T) {
		var requestCount int32
		client, server := setupTestClient(t, usersHandler(&requestCount))
		defer server.Close()

		start := time.Now()
		profiles, err := client.EnrichProfiles(context.Background(), []string{"a", "b", "c", "d"}, 2, 40*time.Millisecond)
		elapsed := time.Since(start)

		require.NoError(t, err)
		assert.Len(t, profiles, 4)
		assert.GreaterOrEqual(t, elapsed, 40*time.Millisecond, "one inter-batch delay for two batches")
	})

	t.Run("cancellation lands between batches", func(t *testing.T) {
		var requestCount int32
		client, server := setupTestClient(t, usersHandler(&requestCount))
		defer server.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		profiles, err := client.EnrichProfiles(ctx, []string{"a", "b", "c"}, 1, 100*time.Millisecond)

		require.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Len(t, profiles, 1, "the in-flight batch still completes")
	})

	t.Run("empty input is a no-op", func(t *testing.T) {
		var requestCount int32
		client, server := setupTestClient(t, usersHandler(&requestCount))
		defer server.Close()

		profiles, err := client.EnrichProfiles(context.Background(), nil, 10, time.Second)

		require.NoError(t, err)
		assert.Empty(t, profiles)
		assert.Equal(t, int32(0), atomic.LoadInt32(&requestCount))
	})
}
