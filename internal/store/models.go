package store

import "time"

type User struct {
	ID           string
	CompanyID    string
	EmployeeID   string
	DisplayName  string
	Email        string
	Phone        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Company struct {
	ID              string
	Name            string
	AdminName       string
	AdminEmail      string
	AdminPhone      string
	SupportEmail    string
	SupportPhone    string
	SupportWhatsApp string
	SupportMessage  string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ApprovalRequest statuses: pending, approved, rejected, escalated.
// Transitions out of pending are final; the database trigger in
// 0002_request_status_guard enforces it.
type ApprovalRequest struct {
	ID            string
	CompanyID     string
	RequesterID   string
	RequesterName string
	Type          string
	Context       string
	AISummary     string
	Status        string
	DecisionNote  string
	DecidedBy     string
	DecidedAt     *time.Time
	ReminderSent  bool
	Escalated     bool
	CreatedAt     time.Time
}

// AuthorityRecipient is the recipient id for notifications addressed to
// every deciding role in a company rather than one employee.
const AuthorityRecipient = "__authority__"

type Notification struct {
	ID               string
	CompanyID        string
	RecipientID      string
	Title            string
	Message          string
	Type             string
	RelatedRequestID string
	IsRead           bool
	CreatedAt        time.Time
}

type DataSource struct {
	ID         string
	CompanyID  string
	Kind       string
	ObjectName string
	SchemaMap  string // JSON-encoded sheets.SchemaMap
	IsActive   bool
	CreatedAt  time.Time
}

type Policy struct {
	ID         string
	CompanyID  string
	Kind       string
	Content    string
	ObjectName string
	FileName   string
	CreatedAt  time.Time
}
