package api

import (
	"errors"
	"net/http"

	"github.com/avonfire/stationhouse/internal/auth"
	"github.com/avonfire/stationhouse/internal/metrics"
)

// authHandler groups the authentication HTTP handlers.
type authHandler struct {
	svc     *auth.Service
	metrics *metrics.Metrics
}

func newAuthHandler(svc *auth.Service, m *metrics.Metrics) *authHandler {
	return &authHandler{svc: svc, metrics: m}
}

// writeAuthError maps service sentinel errors onto HTTP responses.
func writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
	case errors.Is(err, auth.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "already_exists", "an account with this email already exists")
	case errors.Is(err, auth.ErrInvalidInvitation):
		writeError(w, http.StatusUnprocessableEntity, "invalid_invitation", "invitation is not usable")
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
	case errors.Is(err, auth.ErrUnverified):
		writeError(w, http.StatusForbidden, "unverified", "email address is not verified")
	case errors.Is(err, auth.ErrInvalidCode):
		writeError(w, http.StatusBadRequest, "invalid_code", "code is invalid or expired")
	case errors.Is(err, auth.ErrInvalidOrExpired):
		writeError(w, http.StatusBadRequest, "invalid_or_expired", "code or token is invalid or expired")
	case errors.Is(err, auth.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate_limited", "too many attempts, try again later")
	case errors.Is(err, auth.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing, invalid, or expired session")
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", "admin access required")
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "resource not found")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

// SignUp handles POST /api/v1/auth/signup.
func (h *authHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req auth.SignUpInput
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	if err := h.svc.SignUp(r.Context(), req); err != nil {
		h.metrics.IncAuthFailure("signup")
		if errors.Is(err, auth.ErrRateLimited) {
			h.metrics.IncRateLimitRejection("signup")
		}
		writeAuthError(w, err)
		return
	}

	h.metrics.IncAuthSuccess("signup")
	writeJSON(w, http.StatusCreated, map[string]string{
		"status": "pending_verification",
	})
}

// SignIn handles POST /api/v1/auth/signin.
func (h *authHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	token, err := h.svc.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.metrics.IncAuthFailure("signin")
		writeAuthError(w, err)
		return
	}

	h.metrics.IncAuthSuccess("signin")
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// Verify handles POST /api/v1/auth/verify: completes registration with the
// emailed code and signs the user in.
func (h *authHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	token, err := h.svc.VerifyCode(r.Context(), req.Email, req.Code)
	if err != nil {
		h.metrics.IncAuthFailure("verify")
		// Unknown email and bad code look the same to the caller.
		if errors.Is(err, auth.ErrNotFound) {
			err = auth.ErrInvalidCode
		}
		writeAuthError(w, err)
		return
	}

	h.metrics.IncAuthSuccess("verify")
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// ResendCode handles POST /api/v1/auth/resend.
func (h *authHandler) ResendCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	if err := h.svc.ResendCode(r.Context(), req.Email); err != nil {
		if errors.Is(err, auth.ErrRateLimited) {
			h.metrics.IncRateLimitRejection("verify")
		}
		writeAuthError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

// SignOut handles POST /api/v1/auth/signout. Always succeeds.
func (h *authHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.SignOut(r.Context(), auth.ExtractBearerToken(r)); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to sign out")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RequestReset handles POST /api/v1/auth/reset/request. The response is the
// same whether or not the email is registered.
func (h *authHandler) RequestReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	if err := h.svc.RequestReset(r.Context(), req.Email); err != nil {
		if errors.Is(err, auth.ErrRateLimited) {
			h.metrics.IncRateLimitRejection("reset")
		}
		writeAuthError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

// VerifyResetCode handles POST /api/v1/auth/reset/verify: exchanges a valid
// reset code for a one-time confirmation token.
func (h *authHandler) VerifyResetCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	token, err := h.svc.VerifyResetCode(r.Context(), req.Email, req.Code)
	if err != nil {
		h.metrics.IncAuthFailure("reset_verify")
		writeAuthError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"reset_token": token})
}

// ConfirmReset handles POST /api/v1/auth/reset/confirm.
func (h *authHandler) ConfirmReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ResetToken  string `json:"reset_token"`
		NewPassword string `json:"new_password"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	if err := h.svc.ConfirmReset(r.Context(), req.ResetToken, req.NewPassword); err != nil {
		h.metrics.IncAuthFailure("reset_confirm")
		writeAuthError(w, err)
		return
	}

	h.metrics.IncAuthSuccess("reset_confirm")
	w.WriteHeader(http.StatusNoContent)
}

// Viewer handles GET /api/v1/auth/viewer: the current identity, or null when
// the token is absent or invalid.
func (h *authHandler) Viewer(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Viewer(r.Context(), auth.ExtractBearerToken(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to resolve viewer")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"user": u})
}

// Session handles GET /api/v1/auth/session. Unlike Viewer it sits behind
// the session middleware, so an absent or invalid token is a 401 rather
// than a null viewer.
func (h *authHandler) Session(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing, invalid, or expired session")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"user": u})
}

// HasAdmin handles GET /api/v1/auth/has-admin.
func (h *authHandler) HasAdmin(w http.ResponseWriter, r *http.Request) {
	has, err := h.svc.HasAdmin(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to check admin state")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"hasAdmin": has})
}

// RegisterFirstAdmin handles POST /api/v1/auth/register-first-admin. The call
// is idempotent: once any admin exists it is a no-op.
func (h *authHandler) RegisterFirstAdmin(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RegisterFirstAdmin(r.Context(), auth.ExtractBearerToken(r)); err != nil {
		writeAuthError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
