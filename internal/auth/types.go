package auth

import "time"

// Roles a user account can hold. There is no stored super-admin role;
// the first admin is established via the bootstrap flow.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Invitation statuses. An invitation is usable for registration only while
// pending and unexpired; acceptance is terminal.
const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	InvitationExpired  = "expired"
)

// User represents a registered account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"` // "user" or "admin"
	IsVerified   bool      `json:"is_verified"`
	CreatedAt    time.Time `json:"created_at"`

	// VerificationCode is the pending 6-digit email verification code.
	// Empty once verification succeeds.
	VerificationCode string     `json:"-"`
	CodeExpiresAt    *time.Time `json:"-"`

	// ResetCode is the pending 6-digit password reset code. Cleared the
	// moment it is verified.
	ResetCode        string     `json:"-"`
	ResetCodeExpires *time.Time `json:"-"`

	// ResetTokenHash is the hash of the one-time confirmation token minted
	// by VerifyResetCode. Cleared when the password change completes.
	ResetTokenHash    string     `json:"-"`
	ResetTokenExpires *time.Time `json:"-"`
}

// Session represents an active bearer-token session. Only the SHA-256 hash
// of the token is stored; the plaintext exists only in the client's hands.
type Session struct {
	TokenHash string    `json:"-"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Invitation grants a specific email address permission to register,
// created by an existing admin.
type Invitation struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	InvitedBy string    `json:"invited_by"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Usable reports whether the invitation can still be consumed at time now.
func (i *Invitation) Usable(now time.Time) bool {
	return i.Status == InvitationPending && now.Before(i.ExpiresAt)
}
