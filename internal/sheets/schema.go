// Package sheets reads and writes company employee data sources. A data
// source is a spreadsheet object (CSV) in object storage; the schema map
// is inferred from its headers so no manual column mapping is required.
package sheets

import "strings"

// SchemaMap is the inferred column mapping for a data source.
type SchemaMap struct {
	PrimaryKey   string              `json:"primaryKey"`
	EmployeeName string              `json:"employeeName"`
	Email        string              `json:"email,omitempty"`
	Phone        string              `json:"phone,omitempty"`
	WhatsApp     string              `json:"whatsapp,omitempty"`
	RoleColumn   string              `json:"roleColumn,omitempty"`
	Categories   map[string][]string `json:"categories,omitempty"`
}

// AnalyzeSchema classifies column headers into the roles the rest of the
// system needs: the employee key, the display name, contact channels, and
// the job-title column used for role detection.
func AnalyzeSchema(headers []string) SchemaMap {
	var pk, name, email, phone, whatsapp, role string

	for _, h := range headers {
		hl := strings.ToLower(strings.TrimSpace(h))

		if pk == "" {
			switch {
			case containsAny(hl, "employee id", "emp id", "emp_id", "staff id", "emp code", "employee_id"):
				pk = h
			case hl == "id" || hl == "code":
				pk = h
			}
		}
		if name == "" && strings.Contains(hl, "name") && !strings.Contains(hl, "id") && !strings.Contains(hl, "user") {
			name = h
		}
		if email == "" && strings.Contains(hl, "email") && !strings.Contains(hl, "password") {
			email = h
		}
		if phone == "" && containsAny(hl, "phone", "mobile", "contact") && !strings.Contains(hl, "email") {
			phone = h
		}
		if whatsapp == "" && strings.Contains(hl, "whatsapp") {
			whatsapp = h
		}
		if role == "" && containsAny(hl, "role", "designation", "position", "job title") {
			role = h
		}
	}

	// Last resort: any column mentioning "id" can serve as the key.
	if pk == "" {
		for _, h := range headers {
			if strings.Contains(strings.ToLower(h), "id") {
				pk = h
				break
			}
		}
	}
	if pk == "" && len(headers) > 0 {
		pk = headers[0]
	}
	if name == "" && len(headers) > 1 {
		name = headers[1]
	}

	classified := map[string]bool{pk: true, name: true, email: true, phone: true, whatsapp: true, role: true}
	var other []string
	for _, h := range headers {
		if !classified[h] {
			other = append(other, h)
		}
	}

	return SchemaMap{
		PrimaryKey:   pk,
		EmployeeName: name,
		Email:        email,
		Phone:        phone,
		WhatsApp:     whatsapp,
		RoleColumn:   role,
		Categories:   map[string][]string{"other": other},
	}
}

// DetectRole maps a job title from the role column to a system role.
// Anything unrecognized is an employee.
func DetectRole(designation string) string {
	d := strings.ToLower(strings.TrimSpace(designation))
	switch {
	case d == "":
		return "employee"
	case strings.Contains(d, "ceo") || strings.Contains(d, "chief executive"):
		return "ceo"
	case strings.Contains(d, "hr") || strings.Contains(d, "human resource"):
		return "hr"
	case strings.Contains(d, "admin"):
		return "admin"
	case strings.Contains(d, "manager") || strings.Contains(d, "lead") || strings.Contains(d, "head"):
		return "manager"
	default:
		return "employee"
	}
}

func containsAny(value string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(value, kw) {
			return true
		}
	}
	return false
}
