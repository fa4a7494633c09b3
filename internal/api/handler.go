// internal/api/handler.go
package api

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	custom_errors "repolens/internal/errors"
	"repolens/internal/tools"
)

// minCharBudget is the smallest accepted response budget, matching the
// configuration floor.
const minCharBudget = 1000

// Handler is the container for API dependencies.
type Handler struct {
	registry *tools.Registry
	logger   *slog.Logger
	budget   atomic.Int64
}

// NewHandler creates a Handler serving the registry's tools. charBudget caps
// serialized responses; values below the floor fall back to the default.
func NewHandler(registry *tools.Registry, logger *slog.Logger, charBudget int) *Handler {
	h := &Handler{
		registry: registry,
		logger:   logger,
	}
	if charBudget < minCharBudget {
		charBudget = defaultCharBudget
	}
	h.budget.Store(int64(charBudget))
	return h
}

// SetCharBudget swaps the response budget, typically on a config reload.
// Values below the floor are ignored.
func (h *Handler) SetCharBudget(charBudget int) {
	if charBudget < minCharBudget {
		h.logger.Warn("ignoring response budget below floor", "char_budget", charBudget)
		return
	}
	h.budget.Store(int64(charBudget))
	h.logger.Info("response budget updated", "char_budget", charBudget)
}

// Router creates and configures a chi router with all API routes. A nil
// throttle disables per-client rate limiting.
func (h *Handler) Router(throttle *Throttle) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger) // Chi's default logger
	r.Use(middleware.Recoverer)
	if throttle != nil {
		r.Use(throttle.Middleware)
	}
	r.Use(middleware.Timeout(60 * time.Second))

	// API Routes
	r.Get("/health", h.healthCheck)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/tools", h.listTools)
		r.Post("/tools/{name}", h.invokeTool)
	})

	return r
}

// healthCheck is a simple health endpoint.
func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// listTools returns the registered tool descriptors.
// GET /v1/tools
func (h *Handler) listTools(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string][]tools.Tool{"tools": h.registry.Tools()})
}

// invokeTool dispatches one tool call and serializes its result under the
// response budget.
// POST /v1/tools/{name}?char_budget=N
func (h *Handler) invokeTool(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	budget := int(h.budget.Load())
	if raw := r.URL.Query().Get("char_budget"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < minCharBudget {
			respondWithError(w, http.StatusBadRequest, "Invalid 'char_budget' parameter. Must be an integer of at least 1000.")
			return
		}
		budget = parsed
	}

	var args tools.Args
	if err := json.NewDecoder(r.Body).Decode(&args); err != nil && !stderrors.Is(err, io.EOF) {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON body.")
		return
	}

	result, err := h.registry.Invoke(r.Context(), name, args)
	if err != nil {
		h.writeToolError(w, name, err)
		return
	}

	payload, trunc, err := TruncateJSON(result, budget)
	if err != nil {
		h.logger.Error("failed to serialize tool result", "tool", name, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if trunc.Truncated {
		h.logger.Warn("truncated tool response",
			"tool", name, "field", trunc.Field,
			"total_available", trunc.TotalAvailable, "showing", trunc.Showing)
	}
	if trunc.Truncated && trunc.Showing == 0 {
		// Nothing fit. The payload is already error-shaped and names the
		// available count; the tool itself still succeeded.
		respondWithJSON(w, http.StatusOK, json.RawMessage(payload))
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]json.RawMessage{"result": payload})
}

// writeToolError maps a tool failure onto a status code with a single
// descriptive error string.
func (h *Handler) writeToolError(w http.ResponseWriter, tool string, err error) {
	var (
		unknownErr *custom_errors.UnknownToolError
		missingErr *custom_errors.MissingParamError
		formatErr  *custom_errors.ErrInvalidRepoFormat
		quotaErr   *custom_errors.QuotaExceededError
	)
	switch {
	case stderrors.As(err, &unknownErr), stderrors.As(err, &missingErr), stderrors.As(err, &formatErr):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case stderrors.As(err, &quotaErr):
		if wait := retryAfter(quotaErr); wait > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(wait.Seconds())+1))
		}
		respondWithError(w, http.StatusTooManyRequests, err.Error())
	default:
		h.logger.Error("tool invocation failed", "tool", tool, "error", err)
		respondWithError(w, http.StatusBadGateway, err.Error())
	}
}

// retryAfter extracts the wait hint from a quota error, 0 when none.
func retryAfter(err *custom_errors.QuotaExceededError) time.Duration {
	if err.RetryAfter > 0 {
		return err.RetryAfter
	}
	if !err.ResetAt.IsZero() {
		return time.Until(err.ResetAt)
	}
	return 0
}

// respondWithError sends a JSON error payload with the given status code.
func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithJSON marshals the payload and writes it with the given status code.
func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(body)
}
