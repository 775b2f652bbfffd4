package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/avonfire/stationhouse/internal/email"
)

// Default lifetimes. Sessions last a month; verification codes live long
// enough for a slow mail hop, reset codes deliberately less.
const (
	DefaultSessionTTL          = 30 * 24 * time.Hour
	DefaultVerificationCodeTTL = 30 * time.Minute
	DefaultResetCodeTTL        = 15 * time.Minute
	DefaultInvitationTTL       = 7 * 24 * time.Hour
)

const minPasswordLength = 8

// CodeLimiter bounds how often code-sending operations run per identifier.
// Implementations must be shared across instances (see internal/ratelimit);
// a nil limiter allows everything.
type CodeLimiter interface {
	Allow(ctx context.Context, key string) bool
}

// Options tune the service's lifetimes. Zero values use the defaults.
type Options struct {
	SessionTTL          time.Duration
	VerificationCodeTTL time.Duration
	ResetCodeTTL        time.Duration
	InvitationTTL       time.Duration
}

// Service implements the authentication and authorization core: sign-up with
// email verification, session issuance and validation, password reset by
// code, invitation-gated registration, and the first-admin bootstrap.
type Service struct {
	store   Store
	email   email.Sender
	limiter CodeLimiter
	now     func() time.Time // injectable clock for testing

	sessionTTL time.Duration
	verifyTTL  time.Duration
	resetTTL   time.Duration
	inviteTTL  time.Duration
}

// NewService creates the auth service. sender must not be nil; limiter may be.
func NewService(store Store, sender email.Sender, limiter CodeLimiter, opts Options) *Service {
	s := &Service{
		store:      store,
		email:      sender,
		limiter:    limiter,
		now:        time.Now,
		sessionTTL: opts.SessionTTL,
		verifyTTL:  opts.VerificationCodeTTL,
		resetTTL:   opts.ResetCodeTTL,
		inviteTTL:  opts.InvitationTTL,
	}
	if s.sessionTTL <= 0 {
		s.sessionTTL = DefaultSessionTTL
	}
	if s.verifyTTL <= 0 {
		s.verifyTTL = DefaultVerificationCodeTTL
	}
	if s.resetTTL <= 0 {
		s.resetTTL = DefaultResetCodeTTL
	}
	if s.inviteTTL <= 0 {
		s.inviteTTL = DefaultInvitationTTL
	}
	return s
}

// NormalizeEmail lower-cases and trims an email address. Every operation
// that takes an email applies this once, at the service boundary.
func NormalizeEmail(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// SignUpInput holds the fields for a new registration.
type SignUpInput struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	Name            string `json:"name"`
	InvitationToken string `json:"invitation_token,omitempty"`
}

// SignUp registers a new, unverified user and dispatches a verification
// code. Role is always "user"; invitations gate access, not role. A token
// that resolves to a non-pending or expired invitation is rejected; a token
// that resolves to nothing is treated as no invitation at all.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) error {
	addr := NormalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	if addr == "" || name == "" {
		return ErrInvalidInput
	}
	if len(in.Password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	if s.limiter != nil && !s.limiter.Allow(ctx, "signup:"+addr) {
		return ErrRateLimited
	}

	var inv *Invitation
	if tok := strings.TrimSpace(in.InvitationToken); tok != "" {
		found, err := s.store.InvitationByToken(ctx, tok)
		switch {
		case errors.Is(err, ErrNotFound):
			// Unresolvable token: proceed as a plain registration.
		case err != nil:
			return err
		case !found.Usable(s.now()):
			return ErrInvalidInvitation
		case found.Email != addr:
			// The token stands in for the invited address; it cannot
			// register a different one.
			return ErrInvalidInvitation
		default:
			inv = found
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	code, err := NewNumericCode()
	if err != nil {
		return err
	}

	now := s.now()
	codeExpires := now.Add(s.verifyTTL)
	u := &User{
		ID:               uuid.NewString(),
		Email:            addr,
		Name:             name,
		PasswordHash:     string(hash),
		Role:             RoleUser,
		IsVerified:       false,
		VerificationCode: code,
		CodeExpiresAt:    &codeExpires,
		CreatedAt:        now,
	}

	if inv != nil {
		err = s.store.CreateInvitedUser(ctx, u, inv.ID)
	} else {
		err = s.store.CreateUser(ctx, u)
	}
	if err != nil {
		return err
	}

	// The registration is committed; a failed send leaves the user in
	// PendingVerification where ResendCode can recover.
	if err := s.email.SendVerificationCode(ctx, addr, code, codeExpires); err != nil {
		slog.Warn("verification email failed", "email", addr, "error", err)
	}
	return nil
}

// SignIn authenticates an email/password pair and returns a bearer token.
// Unknown email and wrong password both yield ErrInvalidCredentials; a
// correct password on an unverified account yields ErrUnverified so the
// caller can route to the verification step.
func (s *Service) SignIn(ctx context.Context, emailAddr, password string) (string, error) {
	addr := NormalizeEmail(emailAddr)
	u, err := s.store.UserByEmail(ctx, addr)
	if errors.Is(err, ErrNotFound) {
		// Burn a hash comparison anyway so the two failure modes take
		// comparable time.
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}
	if !u.IsVerified {
		return "", ErrUnverified
	}
	return s.createSession(ctx, u.ID)
}

// dummyHash is a bcrypt hash of an unguessable throwaway value, compared
// against when the email is unknown.
var dummyHash = func() []byte {
	token, err := NewBearerToken()
	if err != nil {
		panic(err)
	}
	h, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return h
}()

// VerifyCode completes registration: on a matching, unexpired code the user
// becomes verified, the code is cleared so it can never match again, and a
// session is issued.
func (s *Service) VerifyCode(ctx context.Context, emailAddr, code string) (string, error) {
	addr := NormalizeEmail(emailAddr)
	u, err := s.store.UserByEmail(ctx, addr)
	if err != nil {
		return "", err
	}
	if u.VerificationCode == "" {
		return "", ErrInvalidCode
	}
	if u.CodeExpiresAt != nil && s.now().After(*u.CodeExpiresAt) {
		return "", ErrInvalidCode
	}
	if !codesEqual(u.VerificationCode, strings.TrimSpace(code)) {
		return "", ErrInvalidCode
	}

	if err := s.store.SetVerified(ctx, u.ID); err != nil {
		return "", err
	}
	return s.createSession(ctx, u.ID)
}

// ResendCode regenerates and overwrites the verification code. An unknown
// or already-verified email is a silent no-op so the operation does not
// betray which addresses hold accounts.
func (s *Service) ResendCode(ctx context.Context, emailAddr string) error {
	addr := NormalizeEmail(emailAddr)
	if addr == "" {
		return ErrInvalidInput
	}
	if s.limiter != nil && !s.limiter.Allow(ctx, "verify:"+addr) {
		return ErrRateLimited
	}

	u, err := s.store.UserByEmail(ctx, addr)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if u.IsVerified {
		return nil
	}

	code, err := NewNumericCode()
	if err != nil {
		return err
	}
	expiresAt := s.now().Add(s.verifyTTL)
	if err := s.store.SetVerificationCode(ctx, u.ID, code, expiresAt); err != nil {
		return err
	}
	if err := s.email.SendVerificationCode(ctx, addr, code, expiresAt); err != nil {
		slog.Warn("verification email failed", "email", addr, "error", err)
	}
	return nil
}

// SignOut destroys the session for the given token. Signing out an unknown
// or already-destroyed token succeeds as a no-op.
func (s *Service) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.store.DeleteSessionByTokenHash(ctx, HashToken(token))
}

// RequestReset starts the password reset flow. For an unknown email it
// returns success with zero store writes, so the response shape never
// reveals whether the address is registered.
func (s *Service) RequestReset(ctx context.Context, emailAddr string) error {
	addr := NormalizeEmail(emailAddr)
	if addr == "" {
		return ErrInvalidInput
	}
	if s.limiter != nil && !s.limiter.Allow(ctx, "reset:"+addr) {
		return ErrRateLimited
	}

	u, err := s.store.UserByEmail(ctx, addr)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	code, err := NewNumericCode()
	if err != nil {
		return err
	}
	expiresAt := s.now().Add(s.resetTTL)
	if err := s.store.SetResetCode(ctx, u.ID, code, expiresAt); err != nil {
		return err
	}
	if err := s.email.SendResetCode(ctx, addr, code, expiresAt); err != nil {
		slog.Warn("reset email failed", "email", addr, "error", err)
	}
	return nil
}

// VerifyResetCode checks a reset code and, on success, invalidates it and
// mints a separate short-lived confirmation token for ConfirmReset. The
// code is single-use: it is cleared in the same write that stores the
// token, so it cannot double as a bearer artifact.
func (s *Service) VerifyResetCode(ctx context.Context, emailAddr, code string) (string, error) {
	addr := NormalizeEmail(emailAddr)
	u, err := s.store.UserByEmail(ctx, addr)
	if errors.Is(err, ErrNotFound) {
		return "", ErrInvalidOrExpired
	}
	if err != nil {
		return "", err
	}
	if u.ResetCode == "" || u.ResetCodeExpires == nil {
		return "", ErrInvalidOrExpired
	}
	if !s.now().Before(*u.ResetCodeExpires) {
		return "", ErrInvalidOrExpired
	}
	if !codesEqual(u.ResetCode, strings.TrimSpace(code)) {
		return "", ErrInvalidOrExpired
	}

	token, err := NewBearerToken()
	if err != nil {
		return "", err
	}
	if err := s.store.SetResetToken(ctx, u.ID, HashToken(token), s.now().Add(s.resetTTL)); err != nil {
		return "", err
	}
	return token, nil
}

// ConfirmReset consumes a confirmation token and sets the new password.
// The token is invalidated in the same write. No session is created: a
// password change is a credential change, not an authentication event.
func (s *Service) ConfirmReset(ctx context.Context, confirmToken, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	u, err := s.store.UserByResetTokenHash(ctx, HashToken(confirmToken))
	if errors.Is(err, ErrNotFound) {
		return ErrInvalidOrExpired
	}
	if err != nil {
		return err
	}
	if u.ResetTokenExpires == nil || !s.now().Before(*u.ResetTokenExpires) {
		return ErrInvalidOrExpired
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	return s.store.SetPassword(ctx, u.ID, string(hash))
}

// HasAdmin reports whether an administrator account exists yet.
func (s *Service) HasAdmin(ctx context.Context) (bool, error) {
	return s.store.HasAdmin(ctx)
}

// RegisterFirstAdmin promotes the session's user to admin if and only if no
// admin exists. The store performs the existence check and the promotion as
// one atomic conditional write, so concurrent callers cannot both win. When
// an admin already exists the call is a no-op.
func (s *Service) RegisterFirstAdmin(ctx context.Context, token string) error {
	u, err := s.ValidateSession(ctx, token)
	if err != nil {
		return err
	}
	promoted, err := s.store.PromoteFirstAdmin(ctx, u.ID)
	if err != nil {
		return err
	}
	if promoted {
		slog.Info("first admin registered", "user_id", u.ID, "email", u.Email)
	}
	return nil
}

// createSession issues a fresh bearer token for the user.
func (s *Service) createSession(ctx context.Context, userID string) (string, error) {
	token, err := NewBearerToken()
	if err != nil {
		return "", err
	}
	now := s.now()
	sess := &Session{
		TokenHash: HashToken(token),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return "", err
	}
	return token, nil
}

// ValidateSession resolves a bearer token to its user. Missing, expired,
// and orphaned sessions all fail ErrUnauthenticated; expired sessions are
// inert, not deleted here.
func (s *Service) ValidateSession(ctx context.Context, token string) (*User, error) {
	if token == "" {
		slog.Debug("session rejected", "reason", "no token")
		return nil, ErrUnauthenticated
	}
	sess, err := s.store.SessionByTokenHash(ctx, HashToken(token))
	if errors.Is(err, ErrNotFound) {
		slog.Debug("session rejected", "reason", "unknown token")
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	if !s.now().Before(sess.ExpiresAt) {
		slog.Debug("session rejected", "reason", "expired", "user_id", sess.UserID)
		return nil, ErrUnauthenticated
	}
	u, err := s.store.UserByID(ctx, sess.UserID)
	if errors.Is(err, ErrNotFound) {
		slog.Debug("session rejected", "reason", "orphaned", "user_id", sess.UserID)
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// RequireAdmin validates the session and additionally requires the admin
// role. The distinct failure causes are logged; callers only see
// ErrUnauthenticated or ErrForbidden.
func (s *Service) RequireAdmin(ctx context.Context, token string) (*User, error) {
	u, err := s.ValidateSession(ctx, token)
	if err != nil {
		return nil, err
	}
	if u.Role != RoleAdmin {
		slog.Debug("admin access rejected", "user_id", u.ID, "role", u.Role)
		return nil, ErrForbidden
	}
	return u, nil
}

// Viewer is the read-only identity lookup: it resolves a token to its user
// and returns nil for any missing, invalid, or expired token rather than an
// error. Only store unavailability is reported.
func (s *Service) Viewer(ctx context.Context, token string) (*User, error) {
	u, err := s.ValidateSession(ctx, token)
	if errors.Is(err, ErrUnauthenticated) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// CreateInvitation issues an invitation for the given email on behalf of an
// admin. The caller is responsible for the RequireAdmin check.
func (s *Service) CreateInvitation(ctx context.Context, invitedBy *User, emailAddr string) (*Invitation, error) {
	addr := NormalizeEmail(emailAddr)
	if addr == "" {
		return nil, ErrInvalidInput
	}
	if _, err := s.store.UserByEmail(ctx, addr); err == nil {
		return nil, ErrAlreadyExists
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if _, err := s.PendingInvitationForEmail(ctx, addr); err == nil {
		return nil, ErrAlreadyExists
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	token, err := NewBearerToken()
	if err != nil {
		return nil, err
	}
	now := s.now()
	inv := &Invitation{
		ID:        uuid.NewString(),
		Email:     addr,
		Token:     token,
		InvitedBy: invitedBy.ID,
		Status:    InvitationPending,
		CreatedAt: now,
		ExpiresAt: now.Add(s.inviteTTL),
	}
	if err := s.store.CreateInvitation(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// ListInvitations returns all invitations, newest first.
func (s *Service) ListInvitations(ctx context.Context) ([]*Invitation, error) {
	return s.store.ListInvitations(ctx)
}

// DeleteInvitation revokes an invitation by id.
func (s *Service) DeleteInvitation(ctx context.Context, id string) error {
	return s.store.DeleteInvitation(ctx, id)
}

// VerifyInvitation reports whether a token identifies a usable invitation,
// and for which email.
func (s *Service) VerifyInvitation(ctx context.Context, token string) (*Invitation, error) {
	inv, err := s.store.InvitationByToken(ctx, strings.TrimSpace(token))
	if err != nil {
		return nil, err
	}
	if !inv.Usable(s.now()) {
		return nil, ErrInvalidInvitation
	}
	return inv, nil
}

// PendingInvitationForEmail returns the usable invitation for an email, or
// ErrNotFound.
func (s *Service) PendingInvitationForEmail(ctx context.Context, emailAddr string) (*Invitation, error) {
	inv, err := s.store.PendingInvitationByEmail(ctx, NormalizeEmail(emailAddr))
	if err != nil {
		return nil, err
	}
	if !inv.Usable(s.now()) {
		return nil, ErrNotFound
	}
	return inv, nil
}
