package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"hrsupport/internal/gateway"
	"hrsupport/internal/provision"
)

func newTestServer(t *testing.T) (*testEnv, *httptest.Server) {
	t.Helper()
	env := newTestEnv(t)
	server := httptest.NewServer(NewHTTPServer(env.svc, "*").Handler())
	t.Cleanup(server.Close)
	return env, server
}

// registerCompanyForTest registers through the service directly so the test
// can read the dev admin password the HTTP client never sees.
func registerCompanyForTest(t *testing.T, env *testEnv) (companyID, password string) {
	t.Helper()
	env.email.configured = false
	payload, err := env.svc.RegisterCompany(context.Background(), CompanyInput{
		Name:         "Acme",
		AdminName:    "Priya",
		AdminEmail:   "priya@acme.test",
		SupportEmail: "hr@acme.test",
	})
	if err != nil {
		t.Fatalf("RegisterCompany failed: %v", err)
	}
	env.email.configured = true
	return payload["companyId"].(string), payload["devAdminPassword"].(string)
}

func TestHTTPHealth(t *testing.T) {
	_, server := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("expected X-Request-ID header")
	}
}

func TestHTTPUnauthorizedWithoutToken(t *testing.T) {
	_, server := newTestServer(t)

	client := gateway.NewClient(server.URL, gateway.Session{})
	_, err := client.ListNotifications(context.Background())
	if !errors.Is(err, gateway.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestHTTPEndToEnd(t *testing.T) {
	env, server := newTestServer(t)
	ctx := context.Background()

	companyID, adminPassword := registerCompanyForTest(t, env)

	adminSession, err := gateway.Login(ctx, server.URL, companyID, "admin", adminPassword)
	if err != nil {
		t.Fatalf("admin login failed: %v", err)
	}
	admin := gateway.NewClient(server.URL, adminSession)

	// Onboarding: attach the employee sheet, a policy, then provision.
	source, err := admin.AttachDataSource(ctx, companyID, gateway.SourceDescriptor{
		Kind:    "csv",
		Name:    "employees.csv",
		Content: []byte(provisioningCSV),
	})
	if err != nil {
		t.Fatalf("AttachDataSource failed: %v", err)
	}
	if source.InferredSchema.PrimaryKey != "Employee ID" {
		t.Fatalf("inferred primary key = %q", source.InferredSchema.PrimaryKey)
	}

	if _, err := admin.AttachPolicy(ctx, companyID, gateway.PolicyAttachment{
		Kind: gateway.PolicyKindText,
		Text: "Employees get 21 days of annual leave.",
	}); err != nil {
		t.Fatalf("AttachPolicy failed: %v", err)
	}
	if _, err := admin.AttachPolicy(ctx, companyID, gateway.PolicyAttachment{
		Kind:     gateway.PolicyKindDocument,
		FileName: "handbook.md",
		Content:  []byte("# Handbook"),
	}); err != nil {
		t.Fatalf("AttachPolicy document failed: %v", err)
	}
	versions, err := admin.PolicyHistory(ctx, companyID, "handbook.md")
	if err != nil {
		t.Fatalf("PolicyHistory failed: %v", err)
	}
	if len(versions) != 1 {
		t.Fatalf("policy versions = %d, want 1", len(versions))
	}

	summary, err := admin.ProvisionEmployees(ctx, companyID, source.DataSourceID)
	if err != nil {
		t.Fatalf("ProvisionEmployees failed: %v", err)
	}
	if summary.Count != 2 {
		t.Fatalf("provisioned %d, want 2", summary.Count)
	}

	// The engineer signs in with the emailed credentials and raises a request.
	var engineerPassword string
	for _, creds := range env.email.credentials {
		if creds.EmployeeID == "EMP-002" {
			engineerPassword = creds.Password
		}
	}
	if engineerPassword == "" {
		t.Fatal("no credentials email for EMP-002")
	}
	engineerSession, err := gateway.Login(ctx, server.URL, companyID, "EMP-002", engineerPassword)
	if err != nil {
		t.Fatalf("engineer login failed: %v", err)
	}
	engineer := gateway.NewClient(server.URL, engineerSession)

	reply, err := engineer.ChatSend(ctx, "I would like to apply for leave next Monday")
	if err != nil {
		t.Fatalf("ChatSend failed: %v", err)
	}
	if len(reply.Actions) != 1 || reply.Actions[0] != "request_created" {
		t.Fatalf("unexpected chat actions: %v", reply.Actions)
	}

	// The engineer sees only their own requests; the admin sees it pending.
	mine, err := engineer.ListMyRequests(ctx)
	if err != nil {
		t.Fatalf("ListMyRequests failed: %v", err)
	}
	if len(mine) != 1 || mine[0].Status != gateway.StatusPending {
		t.Fatalf("unexpected own requests: %+v", mine)
	}

	if _, err := engineer.ListPendingApprovals(ctx); !errors.Is(err, gateway.ErrForbidden) {
		t.Fatalf("employee pending list should be forbidden, got %v", err)
	}

	pending, err := admin.ListPendingApprovals(ctx)
	if err != nil {
		t.Fatalf("ListPendingApprovals failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}
	requestID := pending[0].ID

	// First decision wins; the second surfaces the conflict.
	if err := admin.DecideApproval(ctx, requestID, gateway.StatusApproved, "enjoy"); err != nil {
		t.Fatalf("DecideApproval failed: %v", err)
	}
	if err := admin.DecideApproval(ctx, requestID, gateway.StatusRejected, ""); !errors.Is(err, gateway.ErrConflict) {
		t.Fatalf("second decision should conflict, got %v", err)
	}

	// The requester is notified and can mark it read.
	notifications, err := engineer.ListNotifications(ctx)
	if err != nil {
		t.Fatalf("ListNotifications failed: %v", err)
	}
	var decisionNotice gateway.Notification
	for _, n := range notifications {
		if strings.Contains(n.Title, "approved") {
			decisionNotice = n
		}
	}
	if decisionNotice.ID == "" {
		t.Fatalf("no decision notification, got %+v", notifications)
	}
	if err := engineer.MarkNotificationRead(ctx, decisionNotice.ID); err != nil {
		t.Fatalf("MarkNotificationRead failed: %v", err)
	}

	// An approved document request yields a downloadable letter.
	if _, err := engineer.ChatSend(ctx, "I need a salary certificate for my bank"); err != nil {
		t.Fatalf("ChatSend failed: %v", err)
	}
	pending, err = admin.ListPendingApprovals(ctx)
	if err != nil {
		t.Fatalf("ListPendingApprovals failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}
	docRequestID := pending[0].ID
	if err := admin.DecideApproval(ctx, docRequestID, gateway.StatusApproved, ""); err != nil {
		t.Fatalf("DecideApproval failed: %v", err)
	}
	letter, err := engineer.DownloadLetter(ctx, docRequestID, "html")
	if err != nil {
		t.Fatalf("DownloadLetter failed: %v", err)
	}
	if !strings.Contains(string(letter.Data), "Salary Certificate") {
		t.Fatal("letter is not a salary certificate")
	}
	if !strings.HasSuffix(letter.Filename, ".html") {
		t.Fatalf("letter filename = %q", letter.Filename)
	}

	// Support info is readable by any employee of the company.
	support, err := engineer.SupportInfo(ctx, companyID)
	if err != nil {
		t.Fatalf("SupportInfo failed: %v", err)
	}
	if support.Email != "hr@acme.test" {
		t.Fatalf("support email = %q", support.Email)
	}
}

// TestHTTPOnboardingFlow drives the orchestrator against the real server
// the way the CLI wires it: register unauthenticated, sign in as the new
// admin, then run every later step through the authenticated client.
func TestHTTPOnboardingFlow(t *testing.T) {
	env, server := newTestServer(t)
	ctx := context.Background()

	// SMTP off during registration so the dev password comes back over
	// the wire; on afterwards so provisioning emails credentials.
	env.email.configured = false
	adminLogin := func(ctx context.Context, admin gateway.RegisterResult) (gateway.Gateway, error) {
		env.email.configured = true
		if admin.DevAdminPassword == "" {
			t.Fatal("registration response carried no dev admin password")
		}
		session, err := gateway.Login(ctx, server.URL, admin.CompanyID, admin.AdminEmployeeID, admin.DevAdminPassword)
		if err != nil {
			return nil, err
		}
		return gateway.NewClient(server.URL, session), nil
	}

	input := provision.Input{
		Company: gateway.CompanyFields{
			Name:       "Acme",
			AdminName:  "Priya",
			AdminEmail: "priya@acme.test",
		},
		Source: &gateway.SourceDescriptor{
			Kind:    "csv",
			Name:    "employees.csv",
			Content: []byte(provisioningCSV),
		},
		PolicyText: "Employees get 21 days of annual leave.",
		PolicyDoc:  &gateway.PolicyAttachment{FileName: "handbook.md", Content: []byte("# Handbook")},
	}

	client := gateway.NewClient(server.URL, gateway.Session{})
	result, err := provision.NewWithLogin(client, adminLogin).Run(ctx, input)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.StepErrors) != 0 {
		t.Fatalf("StepErrors = %v, want none", result.StepErrors)
	}
	if result.DataSourceID == "" {
		t.Fatal("no data source attached")
	}
	if result.InferredSchema.PrimaryKey != "Employee ID" {
		t.Fatalf("inferred primary key = %q", result.InferredSchema.PrimaryKey)
	}
	if !result.PoliciesAttached {
		t.Fatal("policies not attached")
	}
	if result.Provisioned == nil || result.Provisioned.Count != 2 {
		t.Fatalf("Provisioned = %+v, want 2 employees", result.Provisioned)
	}

	// The company is operational straight away: a provisioned employee
	// can sign in with the emailed credentials.
	var engineerPassword string
	for _, creds := range env.email.credentials {
		if creds.EmployeeID == "EMP-002" {
			engineerPassword = creds.Password
		}
	}
	if engineerPassword == "" {
		t.Fatal("no credentials email for EMP-002")
	}
	if _, err := gateway.Login(ctx, server.URL, result.CompanyID, "EMP-002", engineerPassword); err != nil {
		t.Fatalf("provisioned employee login failed: %v", err)
	}
}

func TestHTTPCompanyScopeHidden(t *testing.T) {
	env, server := newTestServer(t)
	ctx := context.Background()

	companyID, adminPassword := registerCompanyForTest(t, env)
	session, err := gateway.Login(ctx, server.URL, companyID, "admin", adminPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	client := gateway.NewClient(server.URL, session)

	// A company id the session doesn't belong to reads as not found, not
	// forbidden, so tenants can't probe each other.
	_, err = client.SupportInfo(ctx, "comp-other")
	var apiErr *gateway.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign company, got %v", err)
	}
}

func TestHTTPDatasourceRequiresManageCapability(t *testing.T) {
	env, server := newTestServer(t)
	ctx := context.Background()

	env.seedCompany(t, "comp-1")
	env.seedUser(t, "usr-1", "comp-1", "EMP-001", "employee", "pw-employee")

	session, err := gateway.Login(ctx, server.URL, "comp-1", "EMP-001", "pw-employee")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	client := gateway.NewClient(server.URL, session)

	_, err = client.AttachDataSource(ctx, "comp-1", gateway.SourceDescriptor{
		Kind:    "csv",
		Content: []byte(provisioningCSV),
	})
	if !errors.Is(err, gateway.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestHTTPLogoutInvalidatesToken(t *testing.T) {
	env, server := newTestServer(t)
	ctx := context.Background()

	companyID, adminPassword := registerCompanyForTest(t, env)
	session, err := gateway.Login(ctx, server.URL, companyID, "admin", adminPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	client := gateway.NewClient(server.URL, session)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, server.URL+"/api/auth/logout", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("build logout request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+session.Token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout status = %d", resp.StatusCode)
	}

	if _, err := client.ListNotifications(ctx); !errors.Is(err, gateway.ErrUnauthorized) {
		t.Fatalf("revoked token should be unauthorized, got %v", err)
	}
}
