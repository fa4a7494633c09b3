// internal/quota/tracker.go
package quota

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"
)

const (
	// ResourceCore is the rate-limit bucket for most REST endpoints.
	ResourceCore = "core"
	// ResourceSearch is the rate-limit bucket for the search endpoints.
	ResourceSearch = "search"

	// lowWaterMark is the remaining-request threshold below which observations
	// are logged as warnings.
	lowWaterMark = 100
)

// Snapshot is a point-in-time record of remaining request allowance for one
// API resource class, parsed from response headers.
type Snapshot struct {
	Resource   string    `json:"resource"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	Used       int       `json:"used"`
	Reset      time.Time `json:"reset"`
	ObservedAt time.Time `json:"observed_at"`
}

// Tracker holds the most recently observed quota snapshot per resource class.
// A fresh snapshot always overwrites the prior one for its resource; updates
// to different resources never interact. Concurrent writers to the same
// resource are last-writer-wins, acceptable because every write reflects the
// most recent server-observed truth.
type Tracker struct {
	mu        sync.RWMutex
	snapshots map[string]Snapshot
	logger    *slog.Logger
	now       func() time.Time
}

func NewTracker(logger *slog.Logger) *Tracker {
	return &Tracker{
		snapshots: make(map[string]Snapshot),
		logger:    logger,
		now:       time.Now,
	}
}

// Observe records a snapshot from response headers. Not every response type
// carries quota headers; if any of the five fields is absent or unparseable
// the observation is silently ignored.
func (t *Tracker) Observe(h http.Header) {
	limit, err := strconv.Atoi(h.Get("X-RateLimit-Limit"))
	if err != nil {
		return
	}
	remaining, err := strconv.Atoi(h.Get("X-RateLimit-Remaining"))
	if err != nil {
		return
	}
	used, err := strconv.Atoi(h.Get("X-RateLimit-Used"))
	if err != nil {
		return
	}
	resetUnix, err := strconv.ParseInt(h.Get("X-RateLimit-Reset"), 10, 64)
	if err != nil {
		return
	}
	resource := h.Get("X-RateLimit-Resource")
	if resource == "" {
		return
	}

	t.Seed(resource, limit, remaining, used, time.Unix(resetUnix, 0))
}

// Seed records a snapshot directly, used both by Observe and by callers that
// read the rate-limit status endpoint (whose body reports all resources).
func (t *Tracker) Seed(resource string, limit, remaining, used int, reset time.Time) {
	snap := Snapshot{
		Resource:   resource,
		Limit:      limit,
		Remaining:  remaining,
		Used:       used,
		Reset:      reset,
		ObservedAt: t.now(),
	}

	t.mu.Lock()
	t.snapshots[resource] = snap
	t.mu.Unlock()

	if remaining < lowWaterMark {
		t.logger.Warn("rate limit running low",
			"resource", resource,
			"remaining", remaining,
			"reset_in", reset.Sub(snap.ObservedAt).Round(time.Second).String(),
		)
	}
}

// Snapshot returns the latest observation for a resource, if any.
func (t *Tracker) Snapshot(resource string) (Snapshot, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	snap, ok := t.snapshots[resource]
	return snap, ok
}

// Snapshots returns all current observations sorted by resource name.
func (t *Tracker) Snapshots() []Snapshot {
	t.mu.RLock()
	out := make([]Snapshot, 0, len(t.snapshots))
	for _, snap := range t.snapshots {
		out = append(out, snap)
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Resource < out[j].Resource })
	return out
}

// IsBlocked reports whether the resource has zero remaining quota and its
// reset instant has not yet passed. Once the reset passes the resource is
// considered open again even without a fresh snapshot: the next real request
// will either succeed or produce an updated snapshot.
func (t *Tracker) IsBlocked(resource string) bool {
	snap, ok := t.Snapshot(resource)
	if !ok {
		return false
	}
	return snap.Remaining == 0 && t.now().Before(snap.Reset)
}

// TimeUntilReset returns how long until the resource's quota resets, or zero
// when the resource is unknown or already past its reset.
func (t *Tracker) TimeUntilReset(resource string) time.Duration {
	snap, ok := t.Snapshot(resource)
	if !ok {
		return 0
	}
	d := snap.Reset.Sub(t.now())
	if d < 0 {
		return 0
	}
	return d
}

// Wait is the gated request hook: when the resource is blocked it sleeps the
// caller until the observed reset instant, honoring context cancellation.
// When no actionable wait exists it returns immediately and lets the request
// proceed.
func (t *Tracker) Wait(ctx context.Context, resource string) error {
	if !t.IsBlocked(resource) {
		return nil
	}
	d := t.TimeUntilReset(resource)
	if d <= 0 {
		return nil
	}

	t.logger.Warn("rate limit exhausted, sleeping until reset",
		"resource", resource,
		"wait", d.Round(time.Second).String(),
	)

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
