package email

import (
	"net/smtp"
	"strings"
	"testing"
)

func TestIsConfigured(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		want   bool
	}{
		{"fully configured", Config{Host: "smtp.test", Port: "587", From: "hr@test"}, true},
		{"missing host", Config{Port: "587", From: "hr@test"}, false},
		{"missing from", Config{Host: "smtp.test", Port: "587"}, false},
		{"empty", Config{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewService(tt.config).IsConfigured(); got != tt.want {
				t.Errorf("IsConfigured() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSendEmailUnconfigured(t *testing.T) {
	svc := NewService(Config{})
	if err := svc.SendEmail([]string{"a@test"}, "subject", "body"); err == nil {
		t.Fatal("expected error when not configured")
	}
}

func newCapturingService(t *testing.T) (*Service, *[]byte) {
	t.Helper()
	svc := NewService(Config{Host: "smtp.test", Port: "587", From: "hr@acme.test", FromName: "Acme HR"})
	var captured []byte
	svc.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		captured = append([]byte(nil), msg...)
		return nil
	}
	return svc, &captured
}

func TestSendCredentialsEmail(t *testing.T) {
	svc, captured := newCapturingService(t)

	err := svc.SendCredentialsEmail("priya@acme.test", CredentialsData{
		UserName:   "Priya",
		CompanyID:  "comp-1",
		EmployeeID: "EMP-001",
		Password:   "s3cret-pass",
		PortalURL:  "https://portal.acme.test",
	})
	if err != nil {
		t.Fatalf("SendCredentialsEmail failed: %v", err)
	}

	body := string(*captured)
	for _, want := range []string{"EMP-001", "comp-1", "s3cret-pass", "https://portal.acme.test", "Priya"} {
		if !strings.Contains(body, want) {
			t.Errorf("email missing %q", want)
		}
	}
	if !strings.Contains(body, "Subject: Your HR Support account is ready") {
		t.Error("missing default app name in subject")
	}
}

func TestSendNotificationEmail(t *testing.T) {
	svc, captured := newCapturingService(t)

	err := svc.SendNotificationEmail("ravi@acme.test", NotificationData{
		UserName: "Ravi",
		Title:    "Request approved",
		Message:  "Your leave request was approved.",
	})
	if err != nil {
		t.Fatalf("SendNotificationEmail failed: %v", err)
	}

	body := string(*captured)
	if !strings.Contains(body, "Subject: Request approved") {
		t.Error("missing subject")
	}
	if !strings.Contains(body, "Your leave request was approved.") {
		t.Error("missing message body")
	}
	if !strings.Contains(body, "To: ravi@acme.test") {
		t.Error("missing recipient")
	}
}
