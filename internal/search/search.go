// Package search provides full-text search over approval requests and
// company policies, using Meilisearch when available with a PostgreSQL
// full-text fallback.
package search

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultRequest ResultType = "request"
	ResultPolicy  ResultType = "policy"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type      ResultType `json:"type"`
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Snippet   string     `json:"snippet"`
	CompanyID string     `json:"companyId"`
	Status    string     `json:"status,omitempty"`
}

// Query describes a search request. FilterCompanyID is always set by the
// caller so companies never see each other's records.
type Query struct {
	Text            string
	FilterType      ResultType // empty = all types
	FilterCompanyID string
	Limit           int
	Offset          int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// RequestRecord is the data we index for an approval request.
type RequestRecord struct {
	ID            string `json:"id"`
	Type          string `json:"type"`
	Context       string `json:"context"`
	AISummary     string `json:"aiSummary"`
	Status        string `json:"status"`
	CompanyID     string `json:"companyId"`
	RequesterName string `json:"requesterName"`
}

// PolicyRecord is the data we index for a policy.
type PolicyRecord struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	FileName  string `json:"fileName"`
	Content   string `json:"content"`
	CompanyID string `json:"companyId"`
}
