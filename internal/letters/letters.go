// Package letters generates formal HR documents for approved document
// requests: salary certificates, employment letters, and experience
// letters, rendered as HTML and optionally converted to PDF or DOCX.
package letters

import (
	"errors"
	"strings"
	"time"
)

type Kind string

const (
	KindSalaryCertificate Kind = "salary_certificate"
	KindEmploymentLetter  Kind = "employment_letter"
	KindExperienceLetter  Kind = "experience_letter"
)

type Format string

const (
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

// Data is everything a letter template needs. IssuedAt defaults to now
// when zero.
type Data struct {
	EmployeeName string
	EmployeeID   string
	Designation  string
	CompanyName  string
	IssuedAt     time.Time
}

// Result is the generated document.
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

var (
	ErrUnknownKind = errors.New("letters: unknown letter kind")
	// ErrPDFDependencyMissing indicates no Chromium binary is available.
	ErrPDFDependencyMissing = errors.New("letters: pdf dependency missing")
	// ErrDOCXDependencyMissing indicates pandoc is not installed.
	ErrDOCXDependencyMissing = errors.New("letters: docx dependency missing")
)

var kindKeywords = []struct {
	keywords []string
	kind     Kind
}{
	{[]string{"salary certificate", "salary slip", "payslip"}, KindSalaryCertificate},
	{[]string{"experience letter", "experience certificate"}, KindExperienceLetter},
	{[]string{"employment letter", "employment certificate", "employment verification"}, KindEmploymentLetter},
}

// DetectKind maps a document request's free-text context to a letter
// kind. Defaults to an employment letter when nothing more specific
// matches.
func DetectKind(text string) Kind {
	lower := strings.ToLower(text)
	for _, candidate := range kindKeywords {
		for _, kw := range candidate.keywords {
			if strings.Contains(lower, kw) {
				return candidate.kind
			}
		}
	}
	return KindEmploymentLetter
}

// Title returns the human-readable document title for a kind.
func (k Kind) Title() string {
	switch k {
	case KindSalaryCertificate:
		return "Salary Certificate"
	case KindExperienceLetter:
		return "Experience Letter"
	case KindEmploymentLetter:
		return "Employment Letter"
	default:
		return ""
	}
}

func sanitizeFilename(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('-')
		}
	}
	name := b.String()
	if len(name) > 50 {
		name = name[:50]
	}
	if name == "" {
		name = "letter"
	}
	return name
}
