package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true. If Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search executes a UNION ALL query across approval_requests and policies
// using plainto_tsquery and ts_rank, with ts_headline for snippets.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	tsQuery := "plainto_tsquery('english', $1)"
	args := []any{q.Text}
	argN := 2

	var subQueries []string

	if q.FilterType == "" || q.FilterType == ResultRequest {
		reqWhere := "r.fts @@ " + tsQuery
		if q.FilterCompanyID != "" {
			reqWhere += fmt.Sprintf(" AND r.company_id = $%d", argN)
			args = append(args, q.FilterCompanyID)
			argN++
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'request'::text AS type, r.id, r.request_type AS title,
				ts_headline('english', coalesce(nullif(r.ai_summary, ''), r.context), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				r.company_id, r.status,
				ts_rank(r.fts, %s) AS rank
			FROM approval_requests r
			WHERE %s`, tsQuery, tsQuery, reqWhere))
	}

	if q.FilterType == "" || q.FilterType == ResultPolicy {
		polWhere := "p.fts @@ " + tsQuery
		if q.FilterCompanyID != "" {
			polWhere += fmt.Sprintf(" AND p.company_id = $%d", argN)
			args = append(args, q.FilterCompanyID)
			argN++
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'policy'::text AS type, p.id, coalesce(nullif(p.file_name, ''), 'Policy') AS title,
				ts_headline('english', coalesce(p.content, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				p.company_id, ''::text AS status,
				ts_rank(p.fts, %s) AS rank
			FROM policies p
			WHERE %s`, tsQuery, tsQuery, polWhere))
	}

	if len(subQueries) == 0 {
		return nil, 0, nil
	}

	countSQL := fmt.Sprintf("SELECT count(*) FROM (%s) sub",
		strings.Join(subQueries, " UNION ALL "))

	dataSQL := fmt.Sprintf(`SELECT type, id, title, snippet, company_id, status
		FROM (%s) sub
		ORDER BY rank DESC
		LIMIT %d OFFSET %d`,
		strings.Join(subQueries, " UNION ALL "),
		limit, offset)

	ctx := context.Background()

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var typ string
		if err := rows.Scan(&typ, &r.ID, &r.Title, &r.Snippet, &r.CompanyID, &r.Status); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		r.Type = ResultType(typ)
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns all searchable records for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]RequestRecord, []PolicyRecord, error) {
	reqRows, err := p.db.QueryContext(ctx, `
		SELECT id, request_type, context, ai_summary, status, company_id, requester_name
		FROM approval_requests
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load requests: %w", err)
	}
	defer reqRows.Close()

	requests := make([]RequestRecord, 0)
	for reqRows.Next() {
		var r RequestRecord
		if err := reqRows.Scan(&r.ID, &r.Type, &r.Context, &r.AISummary, &r.Status, &r.CompanyID, &r.RequesterName); err != nil {
			return nil, nil, fmt.Errorf("scan request: %w", err)
		}
		requests = append(requests, r)
	}
	if err := reqRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate requests: %w", err)
	}

	polRows, err := p.db.QueryContext(ctx, `
		SELECT id, kind, file_name, content, company_id
		FROM policies
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load policies: %w", err)
	}
	defer polRows.Close()

	policies := make([]PolicyRecord, 0)
	for polRows.Next() {
		var rec PolicyRecord
		if err := polRows.Scan(&rec.ID, &rec.Kind, &rec.FileName, &rec.Content, &rec.CompanyID); err != nil {
			return nil, nil, fmt.Errorf("scan policy: %w", err)
		}
		policies = append(policies, rec)
	}
	if err := polRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate policies: %w", err)
	}

	return requests, policies, nil
}
