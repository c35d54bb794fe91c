package events

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// Feed is the consumer side of the outbox used by an external notification worker.
type Feed interface {
	FetchPending(ctx context.Context, limit int32) ([]OutboxEntry, error)
	MarkDelivered(ctx context.Context, id uuid.UUID) (bool, error)
}

// Handler exposes pending events over HTTP.
type Handler struct {
	feed   Feed
	logger *logging.Logger
}

func NewHandler(feed Feed, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{feed: feed, logger: logger}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListPending)
	r.Post("/{eventID}/delivered", h.MarkDelivered)
	return r
}

// ListPending returns undelivered events, oldest first.
// GET /admin/outbox?limit=50
func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	limit := int32(50)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			http.Error(w, `{"error": "limit must be between 1 and 500"}`, http.StatusBadRequest)
			return
		}
		limit = int32(n)
	}
	entries, err := h.feed.FetchPending(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to fetch outbox", "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(entries)
}

// MarkDelivered acknowledges one event.
// POST /admin/outbox/{eventID}/delivered
func (h *Handler) MarkDelivered(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "eventID"))
	if err != nil {
		http.Error(w, `{"error": "invalid event id"}`, http.StatusBadRequest)
		return
	}
	ok, err := h.feed.MarkDelivered(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to mark outbox delivered", "event_id", id, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, `{"error": "event not pending"}`, http.StatusNotFound)
		return
	}
	h.logger.Debug("outbox delivered", "event_id", id)
	w.WriteHeader(http.StatusNoContent)
}
