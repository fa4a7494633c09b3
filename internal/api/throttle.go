// internal/api/throttle.go
package api

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// idleClientTimeout is how long a client with no requests stays tracked.
	idleClientTimeout = 10 * time.Minute
	// idleCleanupInterval is how often we sweep for idle clients.
	idleCleanupInterval = time.Minute
)

// clientEntry pairs a client's limiter with its last activity.
type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Throttle enforces a per-client request rate, keyed by remote IP.
type Throttle struct {
	logger *slog.Logger
	rate   rate.Limit
	burst  int

	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once

	mu      sync.Mutex
	clients map[string]*clientEntry
}

// NewThrottle creates a Throttle allowing perSec requests with the given
// burst per client and starts its idle-entry sweeper. Callers that discard
// the throttle should Close it to stop the sweeper.
func NewThrottle(perSec float64, burst int, logger *slog.Logger) *Throttle {
	t := &Throttle{
		logger:  logger,
		rate:    rate.Limit(perSec),
		burst:   burst,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		clients: make(map[string]*clientEntry),
	}
	go t.idleCleanupLoop()
	return t
}

// Close stops the idle-entry sweeper and waits for it to exit. Safe to call
// more than once; the throttle itself keeps admitting requests.
func (t *Throttle) Close() {
	t.closeOnce.Do(func() {
		close(t.done)
		<-t.stopped
	})
}

// Middleware rejects clients above their request rate with 429.
func (t *Throttle) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !t.allow(clientKey(r)) {
			respondWithError(w, http.StatusTooManyRequests, "Request rate limit exceeded. Slow down.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (t *Throttle) allow(client string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.clients[client]
	if !ok {
		entry = &clientEntry{limiter: rate.NewLimiter(t.rate, t.burst)}
		t.clients[client] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter.Allow()
}

// ClientCount returns the number of tracked clients.
func (t *Throttle) ClientCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.clients)
}

// idleCleanupLoop periodically drops clients that have gone quiet, until
// Close.
func (t *Throttle) idleCleanupLoop() {
	defer close(t.stopped)

	ticker := time.NewTicker(idleCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.cleanIdleClients(time.Now())
		case <-t.done:
			return
		}
	}
}

func (t *Throttle) cleanIdleClients(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var removed int
	for client, entry := range t.clients {
		if now.Sub(entry.lastSeen) > idleClientTimeout {
			delete(t.clients, client)
			removed++
		}
	}
	if removed > 0 {
		t.logger.Debug("dropped idle throttle clients", "removed", removed, "tracked", len(t.clients))
	}
}

// clientKey is the throttle key for a request: the remote IP once RealIP
// middleware has resolved forwarding headers.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
