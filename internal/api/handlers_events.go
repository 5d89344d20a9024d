package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/babylog/babylog/internal/api/respond"
	"github.com/babylog/babylog/internal/model"
	"github.com/babylog/babylog/internal/services"
)

// EventHandler serves the /v1 event endpoints.
type EventHandler struct {
	svc          *services.EventService
	resetEnabled bool
}

func NewEventHandler(svc *services.EventService, resetEnabled bool) *EventHandler {
	return &EventHandler{svc: svc, resetEnabled: resetEnabled}
}

// eventRequest is the wire shape for create and patch bodies. Timestamps
// come in as strings so offsetless inputs can be accepted as UTC.
type eventRequest struct {
	Ts       *string                 `json:"ts,omitempty"`
	Type     *string                 `json:"type,omitempty"`
	Notes    *string                 `json:"notes,omitempty"`
	Tags     *[]string               `json:"tags,omitempty"`
	Metadata *map[string]interface{} `json:"metadata,omitempty"`
}

// parseEventTime accepts RFC3339 timestamps (converted to UTC) and
// offsetless timestamps (assumed UTC).
func parseEventTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02T15:04:05", s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		respond.WriteNotFound(w, "Event not found")
	case errors.Is(err, model.ErrInvalidPeriod), errors.Is(err, model.ErrValidation):
		respond.WriteBadRequest(w, err.Error())
	default:
		respond.WriteInternalError(w, err.Error())
	}
}

// CreateEvent POST /v1/events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	h.createEvent(w, r, "")
}

// CreateTypedEvent POST /v1/event/{type}
func (h *EventHandler) CreateTypedEvent(w http.ResponseWriter, r *http.Request) {
	h.createEvent(w, r, mux.Vars(r)["type"])
}

func (h *EventHandler) createEvent(w http.ResponseWriter, r *http.Request, pathType string) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}

	e := &model.Event{Type: pathType}
	if pathType == "" && req.Type != nil {
		e.Type = *req.Type
	}
	if req.Ts != nil {
		ts, err := parseEventTime(*req.Ts)
		if err != nil {
			respond.WriteBadRequest(w, "invalid ts")
			return
		}
		e.Timestamp = ts
	}
	e.Notes = req.Notes
	if req.Tags != nil {
		e.Tags = *req.Tags
	}
	if req.Metadata != nil {
		e.Metadata = *req.Metadata
	}

	out, err := h.svc.CreateEvent(r.Context(), e)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, out)
}

// ListEvents GET /v1/events
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := model.ListEventsRequest{
		Type:     q.Get("type"),
		Limit:    50,
		Cursor:   q.Get("cursor"),
		SortDesc: true,
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			respond.WriteBadRequest(w, "invalid limit")
			return
		}
		req.Limit = n
	}
	if s := q.Get("from"); s != "" {
		t, err := parseEventTime(s)
		if err != nil {
			respond.WriteBadRequest(w, "invalid from")
			return
		}
		req.Since = &t
	}
	if s := q.Get("to"); s != "" {
		t, err := parseEventTime(s)
		if err != nil {
			respond.WriteBadRequest(w, "invalid to")
			return
		}
		req.Until = &t
	}
	if s := q.Get("sort"); s != "" {
		switch strings.TrimPrefix(s, "ts:") {
		case "asc":
			req.SortDesc = false
		case "desc":
			req.SortDesc = true
		default:
			respond.WriteBadRequest(w, "sort must be asc or desc")
			return
		}
	}

	page, err := h.svc.ListEvents(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, page)
}

// GetEvent GET /v1/events/{id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.GetEvent(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// UpdateEvent PATCH /v1/events/{id}
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}

	patch := model.EventPatch{
		Type:     req.Type,
		Notes:    req.Notes,
		Tags:     req.Tags,
		Metadata: req.Metadata,
	}
	if req.Ts != nil {
		ts, err := parseEventTime(*req.Ts)
		if err != nil {
			respond.WriteBadRequest(w, "invalid ts")
			return
		}
		patch.Timestamp = &ts
	}

	out, err := h.svc.UpdateEvent(r.Context(), mux.Vars(r)["id"], patch)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// DeleteEvent DELETE /v1/events/{id}
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	ok, err := h.svc.DeleteEvent(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !ok {
		respond.WriteNotFound(w, "Event not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetLastByType GET /v1/event/{type}/last
func (h *EventHandler) GetLastByType(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.GetLastEvent(r.Context(), mux.Vars(r)["type"])
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			respond.WriteNotFound(w, "No events")
			return
		}
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// DeleteLastByType DELETE /v1/event/{type}/last
func (h *EventHandler) DeleteLastByType(w http.ResponseWriter, r *http.Request) {
	ok, err := h.svc.DeleteLastEvent(r.Context(), mux.Vars(r)["type"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !ok {
		respond.WriteNotFound(w, "No matching events to delete")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetStats GET /v1/stats/events?period=24h&type=feeding
func (h *EventHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	periodToken := q.Get("period")
	if periodToken == "" {
		periodToken = "24h"
	}
	eventType := q.Get("type")

	stats, err := h.svc.EventStats(r.Context(), periodToken, eventType)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := map[string]interface{}{
		"period": periodToken,
		"count":  stats.Count,
	}
	if eventType != "" {
		resp["extras"] = map[string]interface{}{"type": eventType}
	}
	respond.WriteJSON(w, http.StatusOK, resp)
}

// AdminReset POST /v1/admin/reset
func (h *EventHandler) AdminReset(w http.ResponseWriter, r *http.Request) {
	if !h.resetEnabled {
		respond.WriteForbidden(w, "Reset is disabled. Set BABYLOG_RESET_ENABLED=1 to enable.")
		return
	}
	n, err := h.svc.DeleteAllEvents(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}
