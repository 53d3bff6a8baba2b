package gateway

import (
	"time"

	"hrsupport/internal/rbac"
)

// Session identifies the authenticated user for the lifetime of a client
// surface. It is created at login and never mutated.
type Session struct {
	Token       string
	UserID      string
	CompanyID   string
	Role        rbac.Role
	DisplayName string
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusEscalated Status = "escalated"
)

// Terminal reports whether the status never transitions further.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusEscalated
}

// Request is an approval-workflow item owned by the backend. Clients never
// create one directly; requests originate from chat-driven agent actions.
type Request struct {
	ID            string    `json:"id"`
	CompanyID     string    `json:"companyId"`
	RequesterID   string    `json:"requesterId"`
	RequesterName string    `json:"requesterName"`
	Type          string    `json:"type"`
	Context       string    `json:"context"`
	AISummary     string    `json:"aiSummary,omitempty"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
}

type Notification struct {
	ID          string    `json:"id"`
	RecipientID string    `json:"recipientId"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	IsRead      bool      `json:"isRead"`
	CreatedAt   time.Time `json:"createdAt"`
}

type ChatReply struct {
	Reply   string   `json:"reply"`
	Actions []string `json:"actions"`
}

// CompanyFields carries the registration form. Name and AdminEmail are
// required; support contact details are optional.
type CompanyFields struct {
	Name            string `json:"name"`
	AdminName       string `json:"adminName"`
	AdminEmail      string `json:"adminEmail"`
	AdminPhone      string `json:"adminPhone,omitempty"`
	SupportEmail    string `json:"supportEmail,omitempty"`
	SupportPhone    string `json:"supportPhone,omitempty"`
	SupportWhatsApp string `json:"supportWhatsapp,omitempty"`
	SupportMessage  string `json:"supportMessage,omitempty"`
}

// SourceDescriptor describes an employee data source to attach. Content is
// the raw spreadsheet payload (CSV); the backend stores it and infers the
// schema from its headers.
type SourceDescriptor struct {
	Kind    string `json:"kind"`
	Name    string `json:"name"`
	Content []byte `json:"content"`
}

// SchemaMap is the inferred column mapping for an attached data source.
type SchemaMap struct {
	PrimaryKey   string              `json:"primaryKey"`
	EmployeeName string              `json:"employeeName"`
	Email        string              `json:"email,omitempty"`
	Phone        string              `json:"phone,omitempty"`
	WhatsApp     string              `json:"whatsapp,omitempty"`
	RoleColumn   string              `json:"roleColumn,omitempty"`
	Categories   map[string][]string `json:"categories,omitempty"`
}

// RegisterResult is the registration response. The admin account is
// created server-side; DevAdminPassword is set only when the server runs
// without SMTP and surfaces the generated password directly instead of
// emailing it.
type RegisterResult struct {
	CompanyID        string `json:"companyId"`
	AdminEmployeeID  string `json:"adminEmployeeId"`
	DevAdminPassword string `json:"devAdminPassword,omitempty"`
}

type DataSourceResult struct {
	DataSourceID   string    `json:"dataSourceId"`
	InferredSchema SchemaMap `json:"inferredSchema"`
}

const (
	PolicyKindText     = "text"
	PolicyKindDocument = "document"
)

type PolicyAttachment struct {
	Kind     string `json:"kind"`
	Text     string `json:"text,omitempty"`
	FileName string `json:"fileName,omitempty"`
	Content  []byte `json:"content,omitempty"`
}

type ProvisionSummary struct {
	Count  int      `json:"count"`
	Detail []string `json:"detail"`
}

// PolicyVersion is one committed revision of a policy file.
type PolicyVersion struct {
	Hash      string    `json:"hash"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

// Letter is a generated HR document (salary certificate, employment or
// experience letter) for an approved document request.
type Letter struct {
	Data     []byte
	Filename string
	MimeType string
}

type SupportInfo struct {
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	WhatsApp string `json:"whatsapp,omitempty"`
	Message  string `json:"message,omitempty"`
}
