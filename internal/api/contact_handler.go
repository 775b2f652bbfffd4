package api

import (
	"errors"
	"net/http"

	"github.com/avonfire/stationhouse/internal/contact"
	"github.com/go-chi/chi/v5"
)

// contactHandler groups contact form HTTP handlers. Submission is public;
// the inbox is admin-only.
type contactHandler struct {
	store *contact.Store
}

func newContactHandler(store *contact.Store) *contactHandler {
	return &contactHandler{store: store}
}

// SubmitMessage handles POST /api/v1/contact.
func (h *contactHandler) SubmitMessage(w http.ResponseWriter, r *http.Request) {
	var req contact.CreateMessageInput
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	if err := req.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
		return
	}

	msg, err := h.store.Create(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to submit message")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"id": msg.ID})
}

// ListMessages handles GET /api/v1/admin/contact.
func (h *contactHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && !contact.ValidStatus(status) {
		writeError(w, http.StatusBadRequest, "invalid_query", "unknown status filter")
		return
	}

	msgs, err := h.store.List(r.Context(), status)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list messages")
		return
	}

	if msgs == nil {
		msgs = []*contact.Message{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"messages": msgs,
	})
}

// UpdateMessageStatus handles PUT /api/v1/admin/contact/{id}/status.
func (h *contactHandler) UpdateMessageStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_id", "message id is required")
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	msg, err := h.store.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, contact.ErrInvalidStatus):
			writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
		case errors.Is(err, contact.ErrNotFound):
			writeError(w, http.StatusNotFound, "not_found", "message not found")
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to update message")
		}
		return
	}

	writeJSON(w, http.StatusOK, msg)
}

// DeleteMessage handles DELETE /api/v1/admin/contact/{id}.
func (h *contactHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_id", "message id is required")
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, contact.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "message not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to delete message")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
