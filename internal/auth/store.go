package auth

import (
	"context"
	"time"
)

// Store is the durable credential store: users, sessions, and invitations.
// Implementations must enforce uniqueness on user email, session token hash,
// and invitation token, and must make PromoteFirstAdmin and ConsumeInvitation
// conditional at the storage layer, not read-then-write in the caller.
//
// Lookups return ErrNotFound for missing rows; any other error means the
// store is unavailable and the operation is retriable.
type Store interface {
	// CreateUser inserts a new user. The insert is the authoritative
	// uniqueness check on email: a constraint violation is reported as
	// ErrAlreadyExists even if a prior read saw no user.
	CreateUser(ctx context.Context, u *User) error

	// CreateInvitedUser inserts a new user and transitions the identified
	// invitation from pending to accepted in the same atomic unit. Returns
	// ErrInvalidInvitation if the invitation is no longer pending or has
	// expired by write time, and ErrAlreadyExists on an email conflict.
	CreateInvitedUser(ctx context.Context, u *User, invitationID string) error

	UserByEmail(ctx context.Context, email string) (*User, error)
	UserByID(ctx context.Context, id string) (*User, error)

	// SetVerified marks the user verified and clears the verification code
	// in one write, so a consumed code can never match again.
	SetVerified(ctx context.Context, userID string) error

	// SetVerificationCode overwrites the pending verification code.
	SetVerificationCode(ctx context.Context, userID, code string, expiresAt time.Time) error

	// SetResetCode stores a pending password reset code.
	SetResetCode(ctx context.Context, userID, code string, expiresAt time.Time) error

	// SetResetToken stores the hash of a one-time reset confirmation token
	// and clears the reset code in the same write.
	SetResetToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error

	UserByResetTokenHash(ctx context.Context, tokenHash string) (*User, error)

	// SetPassword replaces the stored password hash and clears every
	// reset-flow field in one write.
	SetPassword(ctx context.Context, userID, passwordHash string) error

	// HasAdmin reports whether any user holds the admin role.
	HasAdmin(ctx context.Context) (bool, error)

	// PromoteFirstAdmin promotes the user to admin only if no admin exists
	// at write time. The check and the write are a single atomic operation.
	// Returns whether the promotion happened.
	PromoteFirstAdmin(ctx context.Context, userID string) (bool, error)

	CreateSession(ctx context.Context, s *Session) error
	SessionByTokenHash(ctx context.Context, tokenHash string) (*Session, error)

	// DeleteSessionByTokenHash is idempotent: deleting an absent session
	// is not an error.
	DeleteSessionByTokenHash(ctx context.Context, tokenHash string) error

	// DeleteExpiredSessions removes sessions past their expiry and returns
	// how many were removed. Validation never relies on this sweep.
	DeleteExpiredSessions(ctx context.Context) (int64, error)

	CreateInvitation(ctx context.Context, inv *Invitation) error
	InvitationByToken(ctx context.Context, token string) (*Invitation, error)
	PendingInvitationByEmail(ctx context.Context, email string) (*Invitation, error)
	ListInvitations(ctx context.Context) ([]*Invitation, error)
	DeleteInvitation(ctx context.Context, id string) error
}
