package contact

import (
	"errors"
	"strings"
	"time"
)

// Message statuses. New messages arrive as "new" and are moved along by
// admin staff.
const (
	StatusNew     = "new"
	StatusRead    = "read"
	StatusReplied = "replied"
)

// Message is a submission from the public contact form.
type Message struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateMessageInput holds the fields submitted by the contact form.
type CreateMessageInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

var (
	ErrNameRequired    = errors.New("name is required")
	ErrEmailRequired   = errors.New("email is required")
	ErrSubjectRequired = errors.New("subject is required")
	ErrMessageRequired = errors.New("message is required")
	ErrInvalidStatus   = errors.New("invalid status")
)

// Validate checks a CreateMessageInput before it reaches the store.
func (in CreateMessageInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return ErrNameRequired
	}
	if strings.TrimSpace(in.Email) == "" {
		return ErrEmailRequired
	}
	if strings.TrimSpace(in.Subject) == "" {
		return ErrSubjectRequired
	}
	if strings.TrimSpace(in.Message) == "" {
		return ErrMessageRequired
	}
	return nil
}

// ValidStatus reports whether s is a recognized message status.
func ValidStatus(s string) bool {
	switch s {
	case StatusNew, StatusRead, StatusReplied:
		return true
	}
	return false
}
