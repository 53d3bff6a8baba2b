package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"hrsupport/internal/rbac"
)

// Client talks to the backend HTTP API. All calls carry the session's
// bearer credential; a missing or expired credential surfaces as
// ErrUnauthorized on every call.
type Client struct {
	baseURL string
	http    *http.Client
	session Session
}

func NewClient(baseURL string, session Session) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		session: session,
	}
}

// Login authenticates against the backend and returns a session. It is the
// only call that does not require an existing credential.
func Login(ctx context.Context, baseURL, companyID, employeeID, password string) (Session, error) {
	c := NewClient(baseURL, Session{})
	body := map[string]string{
		"companyId":  companyID,
		"employeeId": employeeID,
		"password":   password,
	}
	var out struct {
		Token     string `json:"token"`
		UserID    string `json:"userId"`
		UserName  string `json:"userName"`
		Role      string `json:"role"`
		CompanyID string `json:"companyId"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &out); err != nil {
		return Session{}, err
	}
	return Session{
		Token:       out.Token,
		UserID:      out.UserID,
		CompanyID:   out.CompanyID,
		Role:        rbac.Normalize(out.Role),
		DisplayName: out.UserName,
	}, nil
}

func (c *Client) Session() Session { return c.session }

func (c *Client) ChatSend(ctx context.Context, message string) (ChatReply, error) {
	var out ChatReply
	err := c.do(ctx, http.MethodPost, "/api/chat", map[string]string{"message": message}, &out)
	return out, err
}

func (c *Client) ListPendingApprovals(ctx context.Context) ([]Request, error) {
	var out struct {
		Requests []Request `json:"requests"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/approvals/pending", nil, &out); err != nil {
		return nil, err
	}
	return out.Requests, nil
}

func (c *Client) ListMyRequests(ctx context.Context) ([]Request, error) {
	var out struct {
		Requests []Request `json:"requests"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/approvals/mine", nil, &out); err != nil {
		return nil, err
	}
	return out.Requests, nil
}

func (c *Client) DecideApproval(ctx context.Context, id string, outcome Status, note string) error {
	body := map[string]string{"status": string(outcome), "note": note}
	return c.do(ctx, http.MethodPost, "/api/approvals/"+id+"/decision", body, nil)
}

func (c *Client) ListNotifications(ctx context.Context) ([]Notification, error) {
	var out struct {
		Notifications []Notification `json:"notifications"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/notifications", nil, &out); err != nil {
		return nil, err
	}
	return out.Notifications, nil
}

func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/api/notifications/"+id+"/read", nil, nil)
}

// RegisterCompany creates a tenant. It runs unauthenticated; the returned
// admin identity is what later onboarding steps sign in with.
func (c *Client) RegisterCompany(ctx context.Context, fields CompanyFields) (RegisterResult, error) {
	var out RegisterResult
	err := c.do(ctx, http.MethodPost, "/api/company", fields, &out)
	return out, err
}

func (c *Client) AttachDataSource(ctx context.Context, companyID string, src SourceDescriptor) (DataSourceResult, error) {
	var out DataSourceResult
	err := c.do(ctx, http.MethodPost, "/api/company/"+companyID+"/datasource", src, &out)
	return out, err
}

func (c *Client) AttachPolicy(ctx context.Context, companyID string, policy PolicyAttachment) (string, error) {
	var out struct {
		PolicyID string `json:"policyId"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/company/"+companyID+"/policy", policy, &out); err != nil {
		return "", err
	}
	return out.PolicyID, nil
}

func (c *Client) ProvisionEmployees(ctx context.Context, companyID, dataSourceID string) (ProvisionSummary, error) {
	var out ProvisionSummary
	body := map[string]string{"dataSourceId": dataSourceID}
	err := c.do(ctx, http.MethodPost, "/api/company/"+companyID+"/provision", body, &out)
	return out, err
}

func (c *Client) PolicyHistory(ctx context.Context, companyID, fileName string) ([]PolicyVersion, error) {
	var out struct {
		Versions []PolicyVersion `json:"versions"`
	}
	path := "/api/company/" + companyID + "/policyhistory?file=" + url.QueryEscape(fileName)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Versions, nil
}

// DownloadLetter fetches the generated document for an approved document
// request. Format is html, pdf, or docx.
func (c *Client) DownloadLetter(ctx context.Context, requestID, format string) (Letter, error) {
	path := "/api/approvals/" + requestID + "/letter?format=" + url.QueryEscape(format)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return Letter{}, fmt.Errorf("build request: %w", err)
	}
	if c.session.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.session.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Letter{}, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return Letter{}, decodeError(resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Letter{}, fmt.Errorf("read letter body: %w", err)
	}
	return Letter{
		Data:     data,
		Filename: filenameFromDisposition(resp.Header.Get("Content-Disposition")),
		MimeType: resp.Header.Get("Content-Type"),
	}, nil
}

func filenameFromDisposition(header string) string {
	const marker = `filename="`
	idx := strings.Index(header, marker)
	if idx < 0 {
		return ""
	}
	rest := header[idx+len(marker):]
	if end := strings.Index(rest, `"`); end >= 0 {
		return rest[:end]
	}
	return rest
}

func (c *Client) SupportInfo(ctx context.Context, companyID string) (SupportInfo, error) {
	var out SupportInfo
	err := c.do(ctx, http.MethodGet, "/api/company/"+companyID+"/support", nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		payload = bytes.NewReader(encoded)
	} else {
		payload = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.session.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.session.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusConflict:
		return ErrConflict
	}
	var body struct {
		Code  string `json:"code"`
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body.Code == "" {
		body.Code = "SERVER_ERROR"
	}
	return &APIError{Status: resp.StatusCode, Code: body.Code, Message: body.Error}
}
