package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/alias"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/client"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/core/models"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/core/ports"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/metrics"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/pkg/utils/pattern"
)

const maxBodyBytes = 64 << 10

var errRateLimited = errors.New("save rate limit exceeded")

// HTTPHandlers serves the REST store API.
type HTTPHandlers struct {
	store    ports.SuggestionAdmin
	resolver *alias.Resolver
	matcher  *pattern.Matcher
	limiter  *rate.Limiter
	clients  *client.Manager
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

type HTTPOption func(*HTTPHandlers)

// WithSaveLimit caps accepted saves per second across all callers.
func WithSaveLimit(perSecond float64, burst int) HTTPOption {
	return func(h *HTTPHandlers) {
		if perSecond > 0 {
			h.limiter = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
		}
	}
}

func WithClients(m *client.Manager) HTTPOption {
	return func(h *HTTPHandlers) {
		h.clients = m
	}
}

func WithMetrics(m *metrics.Metrics) HTTPOption {
	return func(h *HTTPHandlers) {
		h.metrics = m
	}
}

func WithLogger(l *slog.Logger) HTTPOption {
	return func(h *HTTPHandlers) {
		h.logger = l
	}
}

func NewHTTPHandlers(store ports.SuggestionAdmin, resolver *alias.Resolver, opts ...HTTPOption) *HTTPHandlers {
	h := &HTTPHandlers{
		store:    store,
		resolver: resolver,
		matcher:  pattern.NewMatcher(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the API routes on mux.
func (h *HTTPHandlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/suggestions/{key}", h.instrument("fetch", h.handleFetch))
	mux.HandleFunc("POST /api/suggestions/{key}", h.instrument("save", h.handleSave))
	mux.HandleFunc("DELETE /api/suggestions/{key}", h.instrument("delete", h.handleDelete))
	mux.HandleFunc("GET /api/suggestions/{key}/count", h.instrument("count", h.handleCount))
	mux.HandleFunc("GET /api/keys", h.instrument("keys", h.handleKeys))
	mux.HandleFunc("GET /api/fields/{fieldID}/group", h.instrument("group", h.handleGroup))
	mux.HandleFunc("GET /api/connections", h.instrument("connections", h.handleConnections))
}

type suggestionJSON struct {
	Value      string `json:"value"`
	UsageCount int    `json:"usage_count"`
	LastUsedAt string `json:"last_used_at,omitempty"`
}

func (h *HTTPHandlers) handleFetch(w http.ResponseWriter, r *http.Request) int {
	key := r.PathValue("key")
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return writeError(w, http.StatusBadRequest, errors.New("limit must be a non-negative integer"))
		}
		limit = n
	}

	list, err := h.store.Fetch(r.Context(), key, r.URL.Query().Get("q"))
	if err != nil {
		return h.storeError(w, "fetch", key, err)
	}
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}

	out := make([]suggestionJSON, 0, len(list))
	for _, sug := range list {
		item := suggestionJSON{Value: sug.Value, UsageCount: sug.UsageCount}
		if !sug.LastUsedAt.IsZero() {
			item.LastUsedAt = sug.LastUsedAt.UTC().Format(time.RFC3339Nano)
		}
		out = append(out, item)
	}
	return writeJSON(w, http.StatusOK, map[string]any{"key": key, "suggestions": out})
}

func (h *HTTPHandlers) handleSave(w http.ResponseWriter, r *http.Request) int {
	key := r.PathValue("key")
	if h.limiter != nil && !h.limiter.Allow() {
		return writeError(w, http.StatusTooManyRequests, errRateLimited)
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil || !gjson.ValidBytes(body) {
		return writeError(w, http.StatusBadRequest, errors.New("invalid JSON body"))
	}
	value := gjson.GetBytes(body, "value").String()

	if err := h.store.Save(r.Context(), key, value); err != nil {
		return h.storeError(w, "save", key, err)
	}
	return writeJSON(w, http.StatusOK, map[string]string{"key": key, "value": strings.TrimSpace(value)})
}

func (h *HTTPHandlers) handleDelete(w http.ResponseWriter, r *http.Request) int {
	key := r.PathValue("key")
	deleted, err := h.store.Delete(r.Context(), key, r.URL.Query().Get("value"))
	if err != nil {
		return h.storeError(w, "delete", key, err)
	}
	return writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

func (h *HTTPHandlers) handleCount(w http.ResponseWriter, r *http.Request) int {
	key := r.PathValue("key")
	n, err := h.store.Len(r.Context(), key)
	if err != nil {
		return h.storeError(w, "count", key, err)
	}
	return writeJSON(w, http.StatusOK, map[string]any{"key": key, "count": n})
}

func (h *HTTPHandlers) handleKeys(w http.ResponseWriter, r *http.Request) int {
	keys, err := h.store.Keys(r.Context())
	if err != nil {
		return h.storeError(w, "keys", "", err)
	}
	glob := r.URL.Query().Get("pattern")
	return writeJSON(w, http.StatusOK, map[string][]string{"keys": h.matcher.Filter(glob, keys)})
}

func (h *HTTPHandlers) handleGroup(w http.ResponseWriter, r *http.Request) int {
	fieldID := r.PathValue("fieldID")
	group := h.resolver.Resolve(fieldID)
	return writeJSON(w, http.StatusOK, map[string]any{
		"field":   fieldID,
		"group":   group,
		"primary": group.Primary(),
	})
}

func (h *HTTPHandlers) handleConnections(w http.ResponseWriter, _ *http.Request) int {
	list := []client.Info{}
	if h.clients != nil {
		list = h.clients.List()
	}
	return writeJSON(w, http.StatusOK, map[string]any{"connections": list})
}

// storeError maps a store failure onto a status code. Validation errors
// carry the bare sentinel message so remote clients can recover it.
func (h *HTTPHandlers) storeError(w http.ResponseWriter, op, key string, err error) int {
	switch {
	case errors.Is(err, models.ErrEmptyKey):
		return writeError(w, http.StatusBadRequest, models.ErrEmptyKey)
	case errors.Is(err, models.ErrEmptyValue):
		return writeError(w, http.StatusBadRequest, models.ErrEmptyValue)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return writeError(w, http.StatusGatewayTimeout, err)
	case errors.Is(err, models.ErrConflictRetries):
		h.logger.Warn("store contention", "op", op, "key", key, "error", err)
		return writeError(w, http.StatusServiceUnavailable, err)
	case errors.Is(err, models.ErrStoreUnavailable):
		h.logger.Warn("store unavailable", "op", op, "key", key, "error", err)
		return writeError(w, http.StatusBadGateway, err)
	default:
		h.logger.Error("store failure", "op", op, "key", key, "error", err)
		return writeError(w, http.StatusInternalServerError, err)
	}
}

type routeFunc func(w http.ResponseWriter, r *http.Request) int

func (h *HTTPHandlers) instrument(route string, fn routeFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := fn(w, r)
		h.metrics.ObserveHTTP(route, code)
	}
}

func writeJSON(w http.ResponseWriter, code int, body any) int {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
	return code
}

func writeError(w http.ResponseWriter, code int, err error) int {
	return writeJSON(w, code, map[string]string{"error": err.Error()})
}
