// internal/github/client_test.go
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repolens/internal/quota"
)

// setupTestClient creates a httptest server and a github client pointing to
// it. The enterprise base URL rewrite means requests arrive under /api/v3/,
// so handlers should match on path suffix.
func setupTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)

	// An empty token is fine because we are not talking to the real GitHub.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	client := NewClient("", quota.NewTracker(logger), logger)

	// Point the wrapped go-github client at our test server.
	testClient, err := github.NewClient(server.Client()).WithEnterpriseURLs(server.URL, server.URL)
	require.NoError(t, err)
	client.gh = testClient

	// Keep the courtesy pauses out of test runtime.
	client.pagePause = 0
	client.statDelay = time.Millisecond

	return client, server
}

func TestClient_GetRepository(t *testing.T) {
	t.Run("succeeds on first try", func(t *testing.T) {
		var requestCount int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&requestCount, 1)
			assert.True(t, strings.HasSuffix(r.URL.Path, "/repos/test/repo"))
			w.WriteHeader(http.StatusOK)
			fmt.Fprintln(w, `{"id": 1, "name": "repo", "full_name": "test/repo", "owner": {"login": "test"}, "stargazers_count": 42, "language": "Go"}`)
		})
		client, server := setupTestClient(t, handler)
		defer server.Close()

		repo, err := client.GetRepository(context.Background(), "test", "repo")

		require.NoError(t, err)
		assert.Equal(t, int32(1), atomic.LoadInt32(&requestCount))
		assert.Equal(t, "repo", repo.Name)
		assert.Equal(t, "test/repo", repo.FullName)
		assert.Equal(t, 42, repo.StarsCount)
		require.NotNil(t, repo.Language)
		assert.Equal(t, "Go", *repo.Language)
	})

	t.Run("missing repository yields nil without error", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprintln(w, `{"message": "Not Found"}`)
		})
		client, server := setupTestClient(t, handler)
		defer server.Close()

		repo, err := client.GetRepository(context.Background(), "test", "gone")

		require.NoError(t, err)
		assert.Nil(t, repo)
	})

	t.Run("waits out a reported rate limit and retries once", func(t *testing.T) {
		var requestCount int32
		resetTime := time.Now().Add(2 * time.Second)
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			count := atomic.AddInt32(&requestCount, 1)
			if count == 1 {
				w.Header().Set("X-RateLimit-Limit", "60")
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("X-RateLimit-Used", "60")
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))
				w.Header().Set("X-RateLimit-Resource", "core")
				w.WriteHeader(http.StatusForbidden)
				fmt.Fprintln(w, `{"message": "API rate limit exceeded"}`)
				return
			}
			w.Header().Set("X-RateLimit-Limit", "60")
			w.Header().Set("X-RateLimit-Remaining", "59")
			w.Header().Set("X-RateLimit-Used", "1")
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10))
			w.Header().Set("X-RateLimit-Resource", "core")
			w.WriteHeader(http.StatusOK)
			fmt.Fprintln(w, `{"id": 1, "name": "repo", "owner": {"login": "test"}}`)
		})
		client, server := setupTestClient(t, handler)
		defer server.Close()

		startTime := time.Now()
		repo, err := client.GetRepository(context.Background(), "test", "repo")
		elapsed := time.Since(startTime)

		require.NoError(t, err)
		require.NotNil(t, repo)
		assert.Equal(t, int32(2), atomic.LoadInt32(&requestCount))
		// The reset header has second granularity, so the wait lands
		// somewhere inside (0s, 2s]; it must at least not return instantly.
		assert.GreaterOrEqual(t, elapsed, 500*time.Millisecond, "client should wait for rate limit reset")
	})
}

func TestClient_WalkPagination(t *testing.T) {
	// releasesHandler serves total releases in pages of the client's size,
	// counting requests.
	releasesHandler := func(total, pageSize int, requestCount *int32) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(requestCount, 1)
			page, _ := strconv.Atoi(r.URL.Query().Get("page"))
			if page < 1 {
				page = 1
			}
			start := (page - 1) * pageSize
			var rows []string
			for i := start; i < total && i < start+pageSize; i++ {
				rows = append(rows, fmt.Sprintf(`{"tag_name": "v%d"}`, i))
			}
			w.WriteHeader(http.StatusOK)
			fmt.Fprintf(w, "[%s]", strings.Join(rows, ","))
		})
	}

	t.Run("short final page stops the walk", func(t *testing.T) {
		var requestCount int32
		client, server := setupTestClient(t, releasesHandler(7, 3, &requestCount))
		defer server.Close()
		client.pageSize = 3

		releases, err := client.ListReleases(context.Background(), "test", "repo", 0)

		require.NoError(t, err)
		assert.Len(t, releases, 7)
		assert.Equal(t, int32(3), atomic.LoadInt32(&requestCount), "ceil(7/3) pages")
	})

	t.Run("exact multiple costs one empty trailing page", func(t *testing.T) {
		var requestCount int32
		client, server := setupTestClient(t, releasesHandler(6, 3, &requestCount))
		defer server.Close()
		client.pageSize = 3

		releases, err := client.ListReleases(context.Background(), "test", "repo", 0)

		require.NoError(t, err)
		assert.Len(t, releases, 6)
		assert.Equal(t, int32(3), atomic.LoadInt32(&requestCount), "6/3 pages plus the empty one")
	})

	t.Run("hard cap stops the walk and trims the result", func(t *testing.T) {
		var requestCount int32
		client, server := setupTestClient(t, releasesHandler(30, 3, &requestCount))
		defer server.Close()
		client.pageSize = 3

		releases, err := client.ListReleases(context.Background(), "test", "repo", 4)

		require.NoError(t, err)
		assert.Len(t, releases, 4)
		assert.Equal(t, int32(2), atomic.LoadInt32(&requestCount), "cap reached during page 2")
	})

	t.Run("missing repository yields empty listing", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprintln(w, `{"message": "Not Found"}`)
		})
		client, server := setupTestClient(t, handler)
		defer server.Close()

		releases, err := client.ListReleases(context.Background(), "test", "gone", 0)

		require.NoError(t, err)
		assert.Empty(t, releases)
	})
}

func TestClient_ListStargazers(t *testing.T) {
	t.Run("keeps timestamps when the server honors the media type", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Contains(t, r.Header.Get("Accept"), "star+json")
			w.WriteHeader(http.StatusOK)
			fmt.Fprintln(w, `[{"starred_at": "2024-03-01T12:00:00Z", "user": {"login": "alice"}}, {"starred_at": "2024-03-02T12:00:00Z", "user": {"login": "bob"}}]`)
		})
		client, server := setupTestClient(t, handler)
		defer server.Close()

		events, err := client.ListStargazers(context.Background(), "test", "repo", 0)

		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, "alice", events[0].Login)
		require.NotNil(t, events[0].StarredAt)
		assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), events[0].StarredAt.UTC())
	})

	t.Run("falls back to the plain listing when the media type is rejected", func(t *testing.T) {
		var timestampedSeen, plainSeen int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.Contains(r.Header.Get("Accept"), "star+json") {
				atomic.AddInt32(&timestampedSeen, 1)
				w.WriteHeader(http.StatusUnprocessableEntity)
				fmt.Fprintln(w, `{"message": "star timestamps not available"}`)
				return
			}
			atomic.AddInt32(&plainSeen, 1)
			w.WriteHeader(http.StatusOK)
			fmt.Fprintln(w, `[{"login": "alice"}, {"login": "bob"}]`)
		})
		client, server := setupTestClient(t, handler)
		defer server.Close()

		events, err := client.ListStargazers(context.Background(), "test", "repo", 0)

		require.NoError(t, err)
		assert.Equal(t, int32(1), atomic.LoadInt32(&timestampedSeen))
		assert.Equal(t, int32(1), atomic.LoadInt32(&plainSeen))
		require.Len(t, events, 2)
		assert.Equal(t, "alice", events[0].Login)
		assert.Nil(t, events[0].StarredAt, "plain listing carries no timestamps")
		assert.Equal(t, "bob", events[1].Login)
		assert.Nil(t, events[1].StarredAt)
	})
}

func TestClient_ListTrafficReferrers(t *testing.T) {
	t.Run("returns rows with push access", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.True(t, strings.HasSuffix(r.URL.Path, "/repos/test/repo/traffic/popular/referrers"))
			w.WriteHeader(http.StatusOK)
			fmt.Fprintln(w, `[{"referrer": "news.ycombinator.com", "count": 100, "uniques": 80}]`)
		})
		client, server := setupTestClient(t, handler)
		defer server.Close()

		refs, available, err := client.ListTrafficReferrers(context.Background(), "test", "repo")

		require.NoError(t, err)
		assert.True(t, available)
		require.Len(t, refs, 1)
		assert.Equal(t, "news.ycombinator.com", refs[0].Referrer)
		assert.Equal(t, 100, refs[0].Count)
		assert.Equal(t, 80, refs[0].Uniques)
	})

	t.Run("degrades to empty without push access", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprintln(w, `{"message": "Must have push access to repository"}`)
		})
		client, server := setupTestClient(t, handler)
		defer server.Close()

		refs, available, err := client.ListTrafficReferrers(context.Background(), "test", "repo")

		require.NoError(t, err)
		assert.False(t, available)
		assert.Empty(t, refs)
	})
}

func TestClient_SearchRepositories(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/search/repositories"))
		assert.Equal(t, "cli tool language:go", r.URL.Query().Get("q"))
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, `{"total_count": 1234, "items": [{"full_name": "cli/cli", "stargazers_count": 30000, "forks_count": 5000, "language": "Go"}]}`)
	})
	client, server := setupTestClient(t, handler)
	defer server.Close()

	items, total, err := client.SearchRepositories(context.Background(), "cli tool language:go", "stars", 10)

	require.NoError(t, err)
	assert.Equal(t, 1234, total)
	require.Len(t, items, 1)
	assert.Equal(t, "cli/cli", items[0].FullName)
	assert.Equal(t, 30000, items[0].Stars)
}

func TestClient_RateLimits(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/rate_limit"))
		reset := time.Now().Add(30 * time.Minute).Unix()
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"resources": {"core": {"limit": 5000, "remaining": 4000, "reset": %d}, "search": {"limit": 30, "remaining": 28, "reset": %d}}}`, reset, reset)
	})
	client, server := setupTestClient(t, handler)
	defer server.Close()

	snapshots, err := client.RateLimits(context.Background())

	require.NoError(t, err)
	require.NotEmpty(t, snapshots)

	core, ok := client.quota.Snapshot(quota.ResourceCore)
	require.True(t, ok)
	assert.Equal(t, 5000, core.Limit)
	assert.Equal(t, 4000, core.Remaining)
	assert.Equal(t, 1000, core.Used)

	search, ok := client.quota.Snapshot(quota.ResourceSearch)
	require.True(t, ok)
	assert.Equal(t, 28, search.Remaining)
}

func TestClient_ListCommitActivity(t *testing.T) {
	t.Run("polls through the statistics warm-up", func(t *testing.T) {
		var requestCount int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			count := atomic.AddInt32(&requestCount, 1)
			if count <= 2 {
				w.WriteHeader(http.StatusAccepted)
				return
			}
			w.WriteHeader(http.StatusOK)
			fmt.Fprintln(w, `[{"week": 1709424000, "total": 12, "days": [1,2,3,2,2,1,1]}, {"week": 1710028800, "total": 5, "days": [0,1,1,1,1,1,0]}]`)
		})
		client, server := setupTestClient(t, handler)
		defer server.Close()

		weeks, err := client.ListCommitActivity(context.Background(), "test", "repo")

		require.NoError(t, err)
		assert.Equal(t, int32(3), atomic.LoadInt32(&requestCount))
		require.Len(t, weeks, 2)
		assert.Equal(t, 12, weeks[0].Total)
	})

	t.Run("gives up with an empty result when warming never ends", func(t *testing.T) {
		var requestCount int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&requestCount, 1)
			w.WriteHeader(http.StatusAccepted)
		})
		client, server := setupTestClient(t, handler)
		defer server.Close()

		weeks, err := client.ListCommitActivity(context.Background(), "test", "repo")

		require.NoError(t, err)
		assert.Empty(t, weeks)
		assert.Equal(t, int32(statPollAttempts+1), atomic.LoadInt32(&requestCount), "bounded attempts plus the final one")
	})

	t.Run("missing repository yields empty without polling", func(t *testing.T) {
		var requestCount int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&requestCount, 1)
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprintln(w, `{"message": "Not Found"}`)
		})
		client, server := setupTestClient(t, handler)
		defer server.Close()

		weeks, err := client.ListCommitActivity(context.Background(), "test", "repo")

		require.NoError(t, err)
		assert.Empty(t, weeks)
		assert.Equal(t, int32(1), atomic.LoadInt32(&requestCount))
	})
}
