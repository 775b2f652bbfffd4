package email

import (
	"strings"
	"testing"
)

func TestNewSMTPSender_Validation(t *testing.T) {
	if _, err := NewSMTPSender("", 587, "", "", "no-reply@example.com", ""); err == nil {
		t.Error("expected error for missing host")
	}
	if _, err := NewSMTPSender("mail.example.com", 587, "", "", "", ""); err == nil {
		t.Error("expected error for missing from address")
	}

	s, err := NewSMTPSender("mail.example.com", 0, "", "", "no-reply@example.com", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.port != 587 {
		t.Errorf("expected default port 587, got %d", s.port)
	}
}

func TestBuildMessage(t *testing.T) {
	msg := buildMessage("no-reply@example.com", "Stationhouse", "user@example.com", "Verify your email address", "Your code is 123456.\n")

	wantHeaders := []string{
		"From: Stationhouse <no-reply@example.com>",
		"To: user@example.com",
		"Subject: Verify your email address",
		"MIME-Version: 1.0",
	}
	for _, h := range wantHeaders {
		if !strings.Contains(msg, h) {
			t.Errorf("message missing header %q", h)
		}
	}
	if !strings.Contains(msg, "\r\n\r\nYour code is 123456.") {
		t.Error("headers and body must be separated by a blank line")
	}
}

func TestBuildMessage_NoFromName(t *testing.T) {
	msg := buildMessage("no-reply@example.com", "", "user@example.com", "s", "b")
	if !strings.HasPrefix(msg, "From: no-reply@example.com\r\n") {
		t.Errorf("bare from header expected, got %q", msg[:40])
	}
}
