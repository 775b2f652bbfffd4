package auth

import "errors"

var (
	// ErrAlreadyExists is returned when signing up with an email that is
	// already registered.
	ErrAlreadyExists = errors.New("auth: user already exists")

	// ErrInvalidInvitation is returned when a supplied invitation token
	// resolves to an invitation that is not pending or has expired.
	ErrInvalidInvitation = errors.New("auth: invalid invitation")

	// ErrNotFound is returned when a referenced user or record does not exist.
	ErrNotFound = errors.New("auth: not found")

	// ErrInvalidCode is returned when a verification code does not match.
	ErrInvalidCode = errors.New("auth: invalid code")

	// ErrInvalidOrExpired is returned when a reset code or reset confirmation
	// token is wrong, already used, or past its expiry.
	ErrInvalidOrExpired = errors.New("auth: invalid or expired code")

	// ErrInvalidCredentials is returned on sign-in when the email is unknown
	// or the password does not match. The two cases are deliberately not
	// distinguishable to callers.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrUnverified is returned on sign-in when the credentials are correct
	// but the account has not completed email verification.
	ErrUnverified = errors.New("auth: email not verified")

	// ErrUnauthenticated is returned when a session token is missing,
	// unknown, expired, or orphaned.
	ErrUnauthenticated = errors.New("auth: unauthenticated")

	// ErrForbidden is returned when a session is valid but the user lacks
	// the required role.
	ErrForbidden = errors.New("auth: forbidden")

	// ErrRateLimited is returned when code-sending operations exceed the
	// per-email limit.
	ErrRateLimited = errors.New("auth: rate limited")

	// ErrInvalidInput is returned when a request is missing required fields
	// or a field fails validation.
	ErrInvalidInput = errors.New("auth: invalid input")
)
