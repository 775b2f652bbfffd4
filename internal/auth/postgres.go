package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgErrUniqueViolation = "23505"

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a credential store backed by the given pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// userColumns is the full list of columns used in user SELECT statements.
const userColumns = `id, email, password_hash, name, role, is_verified,
	COALESCE(verification_code, ''), code_expires_at,
	COALESCE(reset_code, ''), reset_code_expires,
	COALESCE(reset_token_hash, ''), reset_token_expires, created_at`

// scanUser scans a single user row into a User struct.
func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Name,
		&u.Role,
		&u.IsVerified,
		&u.VerificationCode,
		&u.CodeExpiresAt,
		&u.ResetCode,
		&u.ResetCodeExpires,
		&u.ResetTokenHash,
		&u.ResetTokenExpires,
		&u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation
}

// insertUser runs the user INSERT on any pgx query executor (pool or tx).
func insertUser(ctx context.Context, q interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}, u *User) error {
	_, err := q.Exec(ctx,
		`INSERT INTO users
		 (id, email, password_hash, name, role, is_verified,
		  verification_code, code_expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9)`,
		u.ID, u.Email, u.PasswordHash, u.Name, u.Role, u.IsVerified,
		u.VerificationCode, u.CodeExpiresAt, u.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

// CreateUser inserts a new user. The unique index on email is the
// authoritative duplicate check.
func (s *PostgresStore) CreateUser(ctx context.Context, u *User) error {
	return insertUser(ctx, s.pool, u)
}

// CreateInvitedUser inserts a new user and consumes the invitation in one
// transaction. The invitation update is conditional on it still being
// pending and unexpired, closing the reuse window between check and write.
func (s *PostgresStore) CreateInvitedUser(ctx context.Context, u *User, invitationID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE invitations SET status = $1
		 WHERE id = $2 AND status = $3 AND expires_at > now()`,
		InvitationAccepted, invitationID, InvitationPending,
	)
	if err != nil {
		return fmt.Errorf("consuming invitation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidInvitation
	}

	if err := insertUser(ctx, tx, u); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing invited signup: %w", err)
	}
	return nil
}

// UserByEmail retrieves a user by email address.
func (s *PostgresStore) UserByEmail(ctx context.Context, email string) (*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1`, userColumns)
	u, err := scanUser(s.pool.QueryRow(ctx, query, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by email: %w", err)
	}
	return u, nil
}

// UserByID retrieves a user by primary key.
func (s *PostgresStore) UserByID(ctx context.Context, id string) (*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	u, err := scanUser(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by id: %w", err)
	}
	return u, nil
}

// SetVerified marks the user verified and clears the code in one write.
func (s *PostgresStore) SetVerified(ctx context.Context, userID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET is_verified = true,
		 verification_code = NULL, code_expires_at = NULL
		 WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("marking user verified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetVerificationCode overwrites the pending verification code.
func (s *PostgresStore) SetVerificationCode(ctx context.Context, userID, code string, expiresAt time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET verification_code = $2, code_expires_at = $3 WHERE id = $1`,
		userID, code, expiresAt)
	if err != nil {
		return fmt.Errorf("setting verification code: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetResetCode stores a pending password reset code.
func (s *PostgresStore) SetResetCode(ctx context.Context, userID, code string, expiresAt time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET reset_code = $2, reset_code_expires = $3 WHERE id = $1`,
		userID, code, expiresAt)
	if err != nil {
		return fmt.Errorf("setting reset code: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetResetToken stores the confirmation token hash and invalidates the
// reset code in the same write.
func (s *PostgresStore) SetResetToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET reset_token_hash = $2, reset_token_expires = $3,
		 reset_code = NULL, reset_code_expires = NULL
		 WHERE id = $1`, userID, tokenHash, expiresAt)
	if err != nil {
		return fmt.Errorf("setting reset token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UserByResetTokenHash resolves a reset confirmation token to its user.
func (s *PostgresStore) UserByResetTokenHash(ctx context.Context, tokenHash string) (*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE reset_token_hash = $1`, userColumns)
	u, err := scanUser(s.pool.QueryRow(ctx, query, tokenHash))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by reset token: %w", err)
	}
	return u, nil
}

// SetPassword replaces the password hash and clears all reset fields.
func (s *PostgresStore) SetPassword(ctx context.Context, userID, passwordHash string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET password_hash = $2,
		 reset_code = NULL, reset_code_expires = NULL,
		 reset_token_hash = NULL, reset_token_expires = NULL
		 WHERE id = $1`, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("setting password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// HasAdmin reports whether any admin user exists.
func (s *PostgresStore) HasAdmin(ctx context.Context) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE role = $1)`, RoleAdmin,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking for admin: %w", err)
	}
	return exists, nil
}

// PromoteFirstAdmin promotes the user in a single conditional statement.
// The NOT EXISTS guard alone is not enough: under READ COMMITTED two
// concurrent statements each see zero admin rows, update disjoint rows, and
// both commit. The partial unique index on role = 'admin' is the real
// arbiter; the loser's write fails with a unique violation, which reports
// "not promoted" rather than an error.
func (s *PostgresStore) PromoteFirstAdmin(ctx context.Context, userID string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET role = $1, is_verified = true
		 WHERE id = $2
		   AND NOT EXISTS (SELECT 1 FROM users WHERE role = $1)`,
		RoleAdmin, userID)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("promoting first admin: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// CreateSession inserts a new session row.
func (s *PostgresStore) CreateSession(ctx context.Context, sess *Session) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sessions (token_hash, user_id, created_at, expires_at)
		 VALUES ($1, $2, $3, $4)`,
		sess.TokenHash, sess.UserID, sess.CreatedAt, sess.ExpiresAt)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	return nil
}

// SessionByTokenHash looks up a session by its token hash. Expiry is not
// checked here; the session manager re-checks it on every use.
func (s *PostgresStore) SessionByTokenHash(ctx context.Context, tokenHash string) (*Session, error) {
	sess := &Session{}
	err := s.pool.QueryRow(ctx,
		`SELECT token_hash, user_id, created_at, expires_at
		 FROM sessions WHERE token_hash = $1`, tokenHash,
	).Scan(&sess.TokenHash, &sess.UserID, &sess.CreatedAt, &sess.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}
	return sess, nil
}

// DeleteSessionByTokenHash removes a session if present.
func (s *PostgresStore) DeleteSessionByTokenHash(ctx context.Context, tokenHash string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE token_hash = $1`, tokenHash)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions deletes all sessions past their expiry.
func (s *PostgresStore) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < now()`)
	if err != nil {
		return 0, fmt.Errorf("cleaning expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// inviteColumns is the full list of columns used in invitation SELECTs.
const inviteColumns = `id, email, token, invited_by, status, created_at, expires_at`

func scanInvitation(row pgx.Row) (*Invitation, error) {
	var inv Invitation
	err := row.Scan(&inv.ID, &inv.Email, &inv.Token, &inv.InvitedBy,
		&inv.Status, &inv.CreatedAt, &inv.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// CreateInvitation inserts a new invitation.
func (s *PostgresStore) CreateInvitation(ctx context.Context, inv *Invitation) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO invitations (id, email, token, invited_by, status, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		inv.ID, inv.Email, inv.Token, inv.InvitedBy, inv.Status, inv.CreatedAt, inv.ExpiresAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("creating invitation: %w", err)
	}
	return nil
}

// InvitationByToken retrieves an invitation by its token.
func (s *PostgresStore) InvitationByToken(ctx context.Context, token string) (*Invitation, error) {
	query := fmt.Sprintf(`SELECT %s FROM invitations WHERE token = $1`, inviteColumns)
	inv, err := scanInvitation(s.pool.QueryRow(ctx, query, token))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting invitation by token: %w", err)
	}
	return inv, nil
}

// PendingInvitationByEmail returns the first pending invitation for the email.
func (s *PostgresStore) PendingInvitationByEmail(ctx context.Context, email string) (*Invitation, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM invitations
		 WHERE email = $1 AND status = $2
		 ORDER BY created_at LIMIT 1`, inviteColumns)
	inv, err := scanInvitation(s.pool.QueryRow(ctx, query, email, InvitationPending))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting pending invitation: %w", err)
	}
	return inv, nil
}

// ListInvitations returns all invitations ordered by creation time.
func (s *PostgresStore) ListInvitations(ctx context.Context) ([]*Invitation, error) {
	query := fmt.Sprintf(`SELECT %s FROM invitations ORDER BY created_at DESC`, inviteColumns)
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing invitations: %w", err)
	}
	defer rows.Close()

	var invs []*Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning invitation row: %w", err)
		}
		invs = append(invs, inv)
	}
	return invs, rows.Err()
}

// DeleteInvitation removes an invitation by id.
func (s *PostgresStore) DeleteInvitation(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM invitations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting invitation: %w", err)
	}
	return nil
}
