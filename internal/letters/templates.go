package letters

import (
	"bytes"
	"html/template"
	"time"
)

var letterTemplate = template.Must(template.New("letter").Funcs(template.FuncMap{
	"formatDate": func(t time.Time) string { return t.Format("January 2, 2006") },
}).Parse(letterHTML))

type templateData struct {
	Title    string
	Body     []string
	Data     Data
	IssuedAt time.Time
}

// renderHTML produces the letter body for a kind. The paragraphs are
// deliberately plain; formatting lives in the shared template.
func renderHTML(kind Kind, data Data) (string, error) {
	issuedAt := data.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = time.Now()
	}

	var body []string
	switch kind {
	case KindSalaryCertificate:
		body = []string{
			"This is to certify that " + data.EmployeeName + " (Employee ID: " + data.EmployeeID + ") is employed with " + data.CompanyName + designationClause(data) + ".",
			"This certificate is issued at the employee's request for salary verification purposes. Detailed salary particulars are available from the HR department on request.",
		}
	case KindExperienceLetter:
		body = []string{
			"This is to certify that " + data.EmployeeName + " (Employee ID: " + data.EmployeeID + ") has been employed with " + data.CompanyName + designationClause(data) + ".",
			"During their tenure, their conduct and performance have been satisfactory. We wish them success in their future endeavours.",
		}
	case KindEmploymentLetter:
		body = []string{
			"This letter confirms that " + data.EmployeeName + " (Employee ID: " + data.EmployeeID + ") is currently employed with " + data.CompanyName + designationClause(data) + ".",
			"This letter is issued at the employee's request. Please contact the HR department for any further verification.",
		}
	default:
		return "", ErrUnknownKind
	}

	var buf bytes.Buffer
	err := letterTemplate.Execute(&buf, templateData{
		Title:    kind.Title(),
		Body:     body,
		Data:     data,
		IssuedAt: issuedAt,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

func designationClause(data Data) string {
	if data.Designation == "" {
		return ""
	}
	return " in the capacity of " + data.Designation
}

const letterHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <style>
    body { font-family: Georgia, serif; line-height: 1.7; max-width: 700px; margin: 3rem auto; color: #1a1a1a; }
    .letterhead { text-align: center; border-bottom: 2px solid #1a1a1a; padding-bottom: 0.75rem; margin-bottom: 2rem; }
    .letterhead h2 { margin: 0; }
    .date { text-align: right; margin-bottom: 2rem; }
    h1 { font-size: 1.3rem; text-align: center; text-decoration: underline; margin-bottom: 2rem; }
    .signature { margin-top: 4rem; }
  </style>
</head>
<body>
  <div class="letterhead"><h2>{{.Data.CompanyName}}</h2></div>
  <div class="date">{{formatDate .IssuedAt}}</div>
  <h1>{{.Title}}</h1>
  {{range .Body}}<p>{{.}}</p>
  {{end}}
  <div class="signature">
    <p>Sincerely,</p>
    <p><strong>Human Resources</strong><br>{{.Data.CompanyName}}</p>
  </div>
</body>
</html>`
