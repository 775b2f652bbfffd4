package contact

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a message does not exist.
var ErrNotFound = errors.New("contact: not found")

// Store provides database operations for contact messages.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new contact store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const messageColumns = `id, name, email, COALESCE(phone, ''), subject, message, status, created_at`

func scanMessage(row pgx.Row) (*Message, error) {
	var m Message
	err := row.Scan(&m.ID, &m.Name, &m.Email, &m.Phone, &m.Subject,
		&m.Message, &m.Status, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create inserts a new message with status "new".
func (s *Store) Create(ctx context.Context, in CreateMessageInput) (*Message, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`INSERT INTO contact_messages
		(id, name, email, phone, subject, message, status, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8)
		RETURNING %s`, messageColumns)
	m, err := scanMessage(s.pool.QueryRow(ctx, query,
		uuid.NewString(), in.Name, in.Email, in.Phone, in.Subject,
		in.Message, StatusNew, time.Now()))
	if err != nil {
		return nil, fmt.Errorf("creating contact message: %w", err)
	}
	return m, nil
}

// List returns messages, newest first, optionally filtered by status.
func (s *Store) List(ctx context.Context, status string) ([]*Message, error) {
	query := fmt.Sprintf(`SELECT %s FROM contact_messages`, messageColumns)
	var args []any
	if status != "" {
		query += " WHERE status = $1"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing contact messages: %w", err)
	}
	defer rows.Close()

	var msgs []*Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning contact message row: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// UpdateStatus moves a message to the given status.
func (s *Store) UpdateStatus(ctx context.Context, id, status string) (*Message, error) {
	if !ValidStatus(status) {
		return nil, ErrInvalidStatus
	}
	query := fmt.Sprintf(
		`UPDATE contact_messages SET status = $2 WHERE id = $1 RETURNING %s`,
		messageColumns)
	m, err := scanMessage(s.pool.QueryRow(ctx, query, id, status))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("updating contact message status: %w", err)
	}
	return m, nil
}

// Delete removes a message by id.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM contact_messages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting contact message: %w", err)
	}
	return nil
}
