package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/avonfire/stationhouse/internal/auth"
	"github.com/avonfire/stationhouse/internal/metrics"
)

// captureSender records the last code handed to it instead of sending mail.
type captureSender struct {
	lastCode string
}

func (c *captureSender) SendVerificationCode(_ context.Context, _, code string, _ time.Time) error {
	c.lastCode = code
	return nil
}

func (c *captureSender) SendResetCode(_ context.Context, _, code string, _ time.Time) error {
	c.lastCode = code
	return nil
}

// newTestRouter builds a router over an in-memory store. Blog and contact
// stores are nil; those routes are not exercised here.
func newTestRouter(t *testing.T) (http.Handler, *captureSender) {
	t.Helper()
	sender := &captureSender{}
	svc := auth.NewService(auth.NewMemoryStore(), sender, nil, auth.Options{})
	handler := NewRouter(RouterDeps{
		Auth:           svc,
		Metrics:        metrics.New(),
		AllowedOrigins: []string{"*"},
	})
	return handler, sender
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *strings.Reader
	if body != "" {
		rd = strings.NewReader(body)
	} else {
		rd = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// ---------------------------------------------------------------------------
// Health check handler tests
// ---------------------------------------------------------------------------

func TestHealthCheck(t *testing.T) {
	handler, _ := newTestRouter(t)

	rec := doJSON(t, handler, http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status=ok, got %q", body["status"])
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %q", ct)
	}
}

// ---------------------------------------------------------------------------
// Signup / verify / signin flow
// ---------------------------------------------------------------------------

func TestSignupVerifySigninFlow(t *testing.T) {
	handler, sender := newTestRouter(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/signup", "",
		`{"email":"chief@example.com","password":"longenough","name":"Chief"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if sender.lastCode == "" {
		t.Fatal("signup did not dispatch a verification code")
	}

	// Signing in before verification is refused with a distinct code.
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/auth/signin", "",
		`{"email":"chief@example.com","password":"longenough"}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("unverified signin: expected 403, got %d", rec.Code)
	}
	var envelope errorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if envelope.Error.Code != "unverified" {
		t.Errorf("expected error code unverified, got %q", envelope.Error.Code)
	}

	// Verify with the emailed code; a session comes back.
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/auth/verify", "",
		`{"email":"chief@example.com","code":"`+sender.lastCode+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("verify: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var verifyResp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&verifyResp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if verifyResp["token"] == "" {
		t.Fatal("verify returned no session token")
	}

	// Now a regular signin works.
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/auth/signin", "",
		`{"email":"chief@example.com","password":"longenough"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("signin: expected 200, got %d", rec.Code)
	}

	// And the viewer resolves.
	rec = doJSON(t, handler, http.MethodGet, "/api/v1/auth/viewer", verifyResp["token"], "")
	if rec.Code != http.StatusOK {
		t.Fatalf("viewer: expected 200, got %d", rec.Code)
	}
	var viewerResp struct {
		User *auth.User `json:"user"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&viewerResp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if viewerResp.User == nil || viewerResp.User.Email != "chief@example.com" {
		t.Errorf("unexpected viewer: %+v", viewerResp.User)
	}
}

func TestSignup_DuplicateEmail(t *testing.T) {
	handler, _ := newTestRouter(t)

	body := `{"email":"dup@example.com","password":"longenough","name":"Dup"}`
	if rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/signup", "", body); rec.Code != http.StatusCreated {
		t.Fatalf("first signup: expected 201, got %d", rec.Code)
	}

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/signup", "", body)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate signup: expected 409, got %d", rec.Code)
	}
}

func TestSignup_ShortPassword(t *testing.T) {
	handler, _ := newTestRouter(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/signup", "",
		`{"email":"short@example.com","password":"short","name":"S"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestSignin_WrongPassword(t *testing.T) {
	handler, _ := newTestRouter(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/signin", "",
		`{"email":"nobody@example.com","password":"whatever1"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	var envelope errorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if envelope.Error.Code != "invalid_credentials" {
		t.Errorf("expected invalid_credentials, got %q", envelope.Error.Code)
	}
}

func TestVerify_BadCode(t *testing.T) {
	handler, _ := newTestRouter(t)

	doJSON(t, handler, http.MethodPost, "/api/v1/auth/signup", "",
		`{"email":"v@example.com","password":"longenough","name":"V"}`)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/verify", "",
		`{"email":"v@example.com","code":"000000"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestVerify_UnknownEmailLooksLikeBadCode(t *testing.T) {
	handler, _ := newTestRouter(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/verify", "",
		`{"email":"ghost@example.com","code":"123456"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var envelope errorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if envelope.Error.Code != "invalid_code" {
		t.Errorf("expected invalid_code, got %q", envelope.Error.Code)
	}
}

// ---------------------------------------------------------------------------
// Password reset flow
// ---------------------------------------------------------------------------

func TestPasswordResetFlow(t *testing.T) {
	handler, sender := newTestRouter(t)

	// Register and verify.
	doJSON(t, handler, http.MethodPost, "/api/v1/auth/signup", "",
		`{"email":"reset@example.com","password":"oldpassword","name":"R"}`)
	doJSON(t, handler, http.MethodPost, "/api/v1/auth/verify", "",
		`{"email":"reset@example.com","code":"`+sender.lastCode+`"}`)

	// Request a reset, exchange the code for a confirmation token.
	rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/reset/request", "",
		`{"email":"reset@example.com"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("reset request: expected 202, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/auth/reset/verify", "",
		`{"email":"reset@example.com","code":"`+sender.lastCode+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("reset verify: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if resp["reset_token"] == "" {
		t.Fatal("no reset token returned")
	}

	// Confirm with the token.
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/auth/reset/confirm", "",
		`{"reset_token":"`+resp["reset_token"]+`","new_password":"newpassword"}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("reset confirm: expected 204, got %d", rec.Code)
	}

	// Old password is dead, new one works.
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/auth/signin", "",
		`{"email":"reset@example.com","password":"oldpassword"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("old password: expected 401, got %d", rec.Code)
	}
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/auth/signin", "",
		`{"email":"reset@example.com","password":"newpassword"}`)
	if rec.Code != http.StatusOK {
		t.Errorf("new password: expected 200, got %d", rec.Code)
	}
}

func TestResetRequest_UnknownEmailStillAccepted(t *testing.T) {
	handler, _ := newTestRouter(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/reset/request", "",
		`{"email":"ghost@example.com"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202 for unknown email, got %d", rec.Code)
	}
}

// ---------------------------------------------------------------------------
// Viewer and sign out
// ---------------------------------------------------------------------------

func TestViewer_NoToken(t *testing.T) {
	handler, _ := newTestRouter(t)

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/auth/viewer", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		User *auth.User `json:"user"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if resp.User != nil {
		t.Errorf("expected null user, got %+v", resp.User)
	}
}

func TestSession_RequiresValidToken(t *testing.T) {
	handler, sender := newTestRouter(t)

	// Unlike the viewer endpoint, session is a hard 401 without a token.
	rec := doJSON(t, handler, http.MethodGet, "/api/v1/auth/session", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: expected 401, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/auth/session", "not-a-session-token", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: expected 401, got %d", rec.Code)
	}

	token := signupAndVerify(t, handler, sender, "member@example.com")
	rec = doJSON(t, handler, http.MethodGet, "/api/v1/auth/session", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("valid token: expected 200, got %d", rec.Code)
	}
	var resp struct {
		User *auth.User `json:"user"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if resp.User == nil || resp.User.Email != "member@example.com" {
		t.Errorf("unexpected session user: %+v", resp.User)
	}
}

func TestSignOut_InvalidatesSession(t *testing.T) {
	handler, sender := newTestRouter(t)

	doJSON(t, handler, http.MethodPost, "/api/v1/auth/signup", "",
		`{"email":"out@example.com","password":"longenough","name":"O"}`)
	rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/verify", "",
		`{"email":"out@example.com","code":"`+sender.lastCode+`"}`)
	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	token := resp["token"]

	if rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/signout", token, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("signout: expected 204, got %d", rec.Code)
	}

	// The token no longer resolves.
	rec = doJSON(t, handler, http.MethodGet, "/api/v1/auth/viewer", token, "")
	var after struct {
		User *auth.User `json:"user"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&after); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if after.User != nil {
		t.Error("expected null viewer after sign out")
	}

	// Signing out again is a harmless no-op.
	if rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/signout", token, ""); rec.Code != http.StatusNoContent {
		t.Errorf("repeat signout: expected 204, got %d", rec.Code)
	}
}

// ---------------------------------------------------------------------------
// Admin bootstrap and admin routes
// ---------------------------------------------------------------------------

func signupAndVerify(t *testing.T, handler http.Handler, sender *captureSender, email string) string {
	t.Helper()
	rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/signup", "",
		`{"email":"`+email+`","password":"longenough","name":"Member"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup %s: expected 201, got %d", email, rec.Code)
	}
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/auth/verify", "",
		`{"email":"`+email+`","code":"`+sender.lastCode+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("verify %s: expected 200, got %d", email, rec.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	return resp["token"]
}

func TestFirstAdminBootstrap(t *testing.T) {
	handler, sender := newTestRouter(t)

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/auth/has-admin", "", "")
	var hasResp map[string]bool
	if err := json.NewDecoder(rec.Body).Decode(&hasResp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if hasResp["hasAdmin"] {
		t.Fatal("fresh deployment should have no admin")
	}

	first := signupAndVerify(t, handler, sender, "first@example.com")
	second := signupAndVerify(t, handler, sender, "second@example.com")

	if rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/register-first-admin", first, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("first-admin: expected 204, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/auth/has-admin", "", "")
	if err := json.NewDecoder(rec.Body).Decode(&hasResp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if !hasResp["hasAdmin"] {
		t.Fatal("expected hasAdmin=true after bootstrap")
	}

	// The second user's attempt succeeds but is a no-op; they stay a user.
	if rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/register-first-admin", second, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("second first-admin call: expected 204, got %d", rec.Code)
	}
	rec = doJSON(t, handler, http.MethodGet, "/api/v1/auth/viewer", second, "")
	var viewer struct {
		User *auth.User `json:"user"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&viewer); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if viewer.User.Role == auth.RoleAdmin {
		t.Error("second caller must not become admin")
	}
}

func TestAdminRoutes_RequireAdminSession(t *testing.T) {
	handler, sender := newTestRouter(t)

	// No token at all.
	rec := doJSON(t, handler, http.MethodGet, "/api/v1/admin/invitations", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: expected 401, got %d", rec.Code)
	}

	// A plain verified user is forbidden.
	userTok := signupAndVerify(t, handler, sender, "plain@example.com")
	rec = doJSON(t, handler, http.MethodGet, "/api/v1/admin/invitations", userTok, "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-admin: expected 403, got %d", rec.Code)
	}

	// Promote and retry.
	doJSON(t, handler, http.MethodPost, "/api/v1/auth/register-first-admin", userTok, "")
	rec = doJSON(t, handler, http.MethodGet, "/api/v1/admin/invitations", userTok, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("admin: expected 200, got %d", rec.Code)
	}
}

// ---------------------------------------------------------------------------
// Invitations over HTTP
// ---------------------------------------------------------------------------

func TestInvitationLifecycle(t *testing.T) {
	handler, sender := newTestRouter(t)

	adminTok := signupAndVerify(t, handler, sender, "admin@example.com")
	doJSON(t, handler, http.MethodPost, "/api/v1/auth/register-first-admin", adminTok, "")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/admin/invitations", adminTok,
		`{"email":"invitee@example.com"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create invitation: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var inv auth.Invitation
	if err := json.NewDecoder(rec.Body).Decode(&inv); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if inv.Token == "" || inv.Status != auth.InvitationPending {
		t.Fatalf("unexpected invitation: %+v", inv)
	}

	// Public verification resolves the invited email.
	rec = doJSON(t, handler, http.MethodGet, "/api/v1/invitations/"+inv.Token, "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("verify invitation: expected 200, got %d", rec.Code)
	}
	var verifyResp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&verifyResp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if verifyResp["email"] != "invitee@example.com" {
		t.Errorf("expected invited email, got %q", verifyResp["email"])
	}

	// Signing up with the token consumes the invitation.
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/auth/signup", "",
		`{"email":"invitee@example.com","password":"longenough","name":"I","invitation_token":"`+inv.Token+`"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("invited signup: expected 201, got %d", rec.Code)
	}

	// The consumed token no longer verifies.
	rec = doJSON(t, handler, http.MethodGet, "/api/v1/invitations/"+inv.Token, "", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("consumed invitation: expected 404, got %d", rec.Code)
	}

	// Admin listing shows it as accepted.
	rec = doJSON(t, handler, http.MethodGet, "/api/v1/admin/invitations", adminTok, "")
	var listResp struct {
		Invitations []*auth.Invitation `json:"invitations"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&listResp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if len(listResp.Invitations) != 1 || listResp.Invitations[0].Status != auth.InvitationAccepted {
		t.Errorf("unexpected invitation listing: %+v", listResp.Invitations)
	}
}

func TestInvitation_UnknownTokenIs404(t *testing.T) {
	handler, _ := newTestRouter(t)

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/invitations/not-a-real-token", "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

// ---------------------------------------------------------------------------
// CORS middleware tests
// ---------------------------------------------------------------------------

func TestCORSMiddleware(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name            string
		allowedOrigins  []string
		requestOrigin   string
		method          string
		wantStatus      int
		wantAllowOrigin string
	}{
		{
			name:            "wildcard echoes the origin",
			allowedOrigins:  []string{"*"},
			requestOrigin:   "https://example.com",
			method:          http.MethodGet,
			wantStatus:      http.StatusOK,
			wantAllowOrigin: "https://example.com",
		},
		{
			name:            "specific origin is echoed back",
			allowedOrigins:  []string{"https://app.example.com"},
			requestOrigin:   "https://app.example.com",
			method:          http.MethodGet,
			wantStatus:      http.StatusOK,
			wantAllowOrigin: "https://app.example.com",
		},
		{
			name:            "non-matching origin gets no Allow-Origin header",
			allowedOrigins:  []string{"https://app.example.com"},
			requestOrigin:   "https://evil.com",
			method:          http.MethodGet,
			wantStatus:      http.StatusOK,
			wantAllowOrigin: "",
		},
		{
			name:            "no origin header means no CORS headers",
			allowedOrigins:  []string{"*"},
			requestOrigin:   "",
			method:          http.MethodGet,
			wantStatus:      http.StatusOK,
			wantAllowOrigin: "",
		},
		{
			name:            "preflight returns 204",
			allowedOrigins:  []string{"*"},
			requestOrigin:   "https://example.com",
			method:          http.MethodOptions,
			wantStatus:      http.StatusNoContent,
			wantAllowOrigin: "https://example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw := corsMiddleware(tt.allowedOrigins)
			handler := mw(inner)

			req := httptest.NewRequest(tt.method, "/test", nil)
			if tt.requestOrigin != "" {
				req.Header.Set("Origin", tt.requestOrigin)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status: got %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllowOrigin {
				t.Errorf("Access-Control-Allow-Origin: got %q, want %q", got, tt.wantAllowOrigin)
			}
		})
	}
}

func TestCORSMiddleware_PreflightDoesNotCallNext(t *testing.T) {
	called := false
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	mw := corsMiddleware([]string{"*"})
	handler := mw(inner)

	req := httptest.NewRequest(http.MethodOptions, "/test", nil)
	req.Header.Set("Origin", "https://example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if called {
		t.Error("preflight OPTIONS should not call the next handler")
	}
}

// ---------------------------------------------------------------------------
// writeError / writeJSON / readJSON helper tests
// ---------------------------------------------------------------------------

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, http.StatusNotFound, "not_found", "resource not found")

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %q", ct)
	}

	var envelope errorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if envelope.Error.Code != "not_found" {
		t.Errorf("expected code=not_found, got %q", envelope.Error.Code)
	}
	if envelope.Error.Message != "resource not found" {
		t.Errorf("expected message='resource not found', got %q", envelope.Error.Message)
	}
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	data := map[string]string{"hello": "world"}
	writeJSON(rec, http.StatusCreated, data)

	if rec.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body["hello"] != "world" {
		t.Errorf("expected hello=world, got %q", body["hello"])
	}
}

func TestReadJSON_InvalidJSON(t *testing.T) {
	body := strings.NewReader(`{not json`)
	req := httptest.NewRequest(http.MethodPost, "/", body)

	var result map[string]interface{}
	if err := readJSON(req, &result); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

// ---------------------------------------------------------------------------
// Router 404 test
// ---------------------------------------------------------------------------

func TestRouter_NotFound(t *testing.T) {
	handler, _ := newTestRouter(t)

	rec := doJSON(t, handler, http.MethodGet, "/nonexistent-path", "", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown path, got %d", rec.Code)
	}
}
