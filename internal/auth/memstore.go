package auth

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used by tests and local development.
// All operations take a single mutex, which gives every method the same
// atomicity the Postgres store gets from single-statement writes.
type MemoryStore struct {
	mu          sync.Mutex
	users       map[string]*User       // by id
	byEmail     map[string]string      // email -> user id
	sessions    map[string]*Session    // by token hash
	invitations map[string]*Invitation // by id
	now         func() time.Time       // injectable clock for testing
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory credential store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       make(map[string]*User),
		byEmail:     make(map[string]string),
		sessions:    make(map[string]*Session),
		invitations: make(map[string]*Invitation),
		now:         time.Now,
	}
}

func cloneUser(u *User) *User {
	c := *u
	return &c
}

func cloneInvitation(inv *Invitation) *Invitation {
	c := *inv
	return &c
}

func (m *MemoryStore) createUserLocked(u *User) error {
	if _, taken := m.byEmail[u.Email]; taken {
		return ErrAlreadyExists
	}
	m.users[u.ID] = cloneUser(u)
	m.byEmail[u.Email] = u.ID
	return nil
}

// CreateUser inserts a new user, enforcing email uniqueness.
func (m *MemoryStore) CreateUser(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createUserLocked(u)
}

// CreateInvitedUser consumes the invitation and inserts the user atomically.
func (m *MemoryStore) CreateInvitedUser(_ context.Context, u *User, invitationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	inv, ok := m.invitations[invitationID]
	if !ok || !inv.Usable(m.now()) {
		return ErrInvalidInvitation
	}
	if err := m.createUserLocked(u); err != nil {
		return err
	}
	inv.Status = InvitationAccepted
	return nil
}

func (m *MemoryStore) UserByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneUser(m.users[id]), nil
}

func (m *MemoryStore) UserByID(_ context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneUser(u), nil
}

func (m *MemoryStore) SetVerified(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.IsVerified = true
	u.VerificationCode = ""
	u.CodeExpiresAt = nil
	return nil
}

func (m *MemoryStore) SetVerificationCode(_ context.Context, userID, code string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.VerificationCode = code
	u.CodeExpiresAt = &expiresAt
	return nil
}

func (m *MemoryStore) SetResetCode(_ context.Context, userID, code string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.ResetCode = code
	u.ResetCodeExpires = &expiresAt
	return nil
}

func (m *MemoryStore) SetResetToken(_ context.Context, userID, tokenHash string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.ResetTokenHash = tokenHash
	u.ResetTokenExpires = &expiresAt
	u.ResetCode = ""
	u.ResetCodeExpires = nil
	return nil
}

func (m *MemoryStore) UserByResetTokenHash(_ context.Context, tokenHash string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ResetTokenHash != "" && u.ResetTokenHash == tokenHash {
			return cloneUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) SetPassword(_ context.Context, userID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.ResetCode = ""
	u.ResetCodeExpires = nil
	u.ResetTokenHash = ""
	u.ResetTokenExpires = nil
	return nil
}

func (m *MemoryStore) HasAdmin(_ context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasAdminLocked(), nil
}

func (m *MemoryStore) hasAdminLocked() bool {
	for _, u := range m.users {
		if u.Role == RoleAdmin {
			return true
		}
	}
	return false
}

// PromoteFirstAdmin performs the existence check and the promotion under
// the same lock, matching the Postgres store's conditional UPDATE.
func (m *MemoryStore) PromoteFirstAdmin(_ context.Context, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return false, ErrNotFound
	}
	if m.hasAdminLocked() {
		return false, nil
	}
	u.Role = RoleAdmin
	u.IsVerified = true
	return true, nil
}

func (m *MemoryStore) CreateSession(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *s
	m.sessions[s.TokenHash] = &c
	return nil
}

func (m *MemoryStore) SessionByTokenHash(_ context.Context, tokenHash string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[tokenHash]
	if !ok {
		return nil, ErrNotFound
	}
	c := *s
	return &c, nil
}

func (m *MemoryStore) DeleteSessionByTokenHash(_ context.Context, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, tokenHash)
	return nil
}

func (m *MemoryStore) DeleteExpiredSessions(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	var removed int64
	for hash, s := range m.sessions {
		if s.ExpiresAt.Before(now) {
			delete(m.sessions, hash)
			removed++
		}
	}
	return removed, nil
}

func (m *MemoryStore) CreateInvitation(_ context.Context, inv *Invitation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.invitations {
		if existing.Token == inv.Token {
			return ErrAlreadyExists
		}
	}
	m.invitations[inv.ID] = cloneInvitation(inv)
	return nil
}

func (m *MemoryStore) InvitationByToken(_ context.Context, token string) (*Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.invitations {
		if inv.Token == token {
			return cloneInvitation(inv), nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) PendingInvitationByEmail(_ context.Context, email string) (*Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var oldest *Invitation
	for _, inv := range m.invitations {
		if inv.Email != email || inv.Status != InvitationPending {
			continue
		}
		if oldest == nil || inv.CreatedAt.Before(oldest.CreatedAt) {
			oldest = inv
		}
	}
	if oldest == nil {
		return nil, ErrNotFound
	}
	return cloneInvitation(oldest), nil
}

func (m *MemoryStore) ListInvitations(_ context.Context) ([]*Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	invs := make([]*Invitation, 0, len(m.invitations))
	for _, inv := range m.invitations {
		invs = append(invs, cloneInvitation(inv))
	}
	// Newest first, matching the SQL store's ordering.
	sort.Slice(invs, func(i, j int) bool {
		return invs[i].CreatedAt.After(invs[j].CreatedAt)
	})
	return invs, nil
}

func (m *MemoryStore) DeleteInvitation(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.invitations, id)
	return nil
}
