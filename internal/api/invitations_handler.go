package api

import (
	"errors"
	"net/http"

	"github.com/avonfire/stationhouse/internal/auth"
	"github.com/go-chi/chi/v5"
)

// invitationsHandler groups invitation HTTP handlers. Creation, listing, and
// revocation are admin-only; token verification is public so the signup page
// can pre-fill the invited email.
type invitationsHandler struct {
	svc *auth.Service
}

func newInvitationsHandler(svc *auth.Service) *invitationsHandler {
	return &invitationsHandler{svc: svc}
}

// CreateInvitation handles POST /api/v1/admin/invitations.
func (h *invitationsHandler) CreateInvitation(w http.ResponseWriter, r *http.Request) {
	caller := auth.UserFromContext(r.Context())
	if caller == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return
	}

	var req struct {
		Email string `json:"email"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	inv, err := h.svc.CreateInvitation(r.Context(), caller, req.Email)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, inv)
}

// ListInvitations handles GET /api/v1/admin/invitations.
func (h *invitationsHandler) ListInvitations(w http.ResponseWriter, r *http.Request) {
	invs, err := h.svc.ListInvitations(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list invitations")
		return
	}

	if invs == nil {
		invs = []*auth.Invitation{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"invitations": invs,
	})
}

// DeleteInvitation handles DELETE /api/v1/admin/invitations/{id}.
func (h *invitationsHandler) DeleteInvitation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_id", "invitation id is required")
		return
	}

	if err := h.svc.DeleteInvitation(r.Context(), id); err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "invitation not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to delete invitation")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// VerifyInvitation handles GET /api/v1/invitations/{token}. Usable tokens
// return the invited email; anything else is a 404 so the token space cannot
// be probed for status.
func (h *invitationsHandler) VerifyInvitation(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "invalid_token", "invitation token is required")
		return
	}

	inv, err := h.svc.VerifyInvitation(r.Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) || errors.Is(err, auth.ErrInvalidInvitation) {
			writeError(w, http.StatusNotFound, "not_found", "invitation not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to verify invitation")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"email":  inv.Email,
		"status": inv.Status,
	})
}
