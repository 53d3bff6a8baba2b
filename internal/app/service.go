package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"hrsupport/internal/auth"
	"hrsupport/internal/authemp"
	"hrsupport/internal/config"
	"hrsupport/internal/email"
	"hrsupport/internal/letters"
	"hrsupport/internal/policyrepo"
	"hrsupport/internal/rbac"
	"hrsupport/internal/search"
	"hrsupport/internal/sheets"
	"hrsupport/internal/store"
	"hrsupport/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	CompanyID    string
	Role         string
	JTI          string
	ExpiresAt    time.Time
}

// CompanyInput carries the registration form.
type CompanyInput struct {
	Name            string `json:"name"`
	AdminName       string `json:"adminName"`
	AdminEmail      string `json:"adminEmail"`
	AdminPhone      string `json:"adminPhone"`
	SupportEmail    string `json:"supportEmail"`
	SupportPhone    string `json:"supportPhone"`
	SupportWhatsApp string `json:"supportWhatsapp"`
	SupportMessage  string `json:"supportMessage"`
}

var allowedDecisions = map[string]struct{}{
	"approved": {},
	"rejected": {},
}

type dataStore interface {
	InsertCompany(context.Context, store.Company) error
	GetCompany(context.Context, string) (store.Company, error)
	CreateUser(context.Context, store.User) error
	GetUserByID(context.Context, string) (store.User, error)
	InsertApprovalRequest(context.Context, store.ApprovalRequest) error
	GetApprovalRequest(context.Context, string) (store.ApprovalRequest, error)
	ListPendingRequests(context.Context, string) ([]store.ApprovalRequest, error)
	ListRequestsByRequester(context.Context, string, string) ([]store.ApprovalRequest, error)
	ListStalePending(context.Context, time.Time) ([]store.ApprovalRequest, error)
	DecideRequest(context.Context, string, string, string, string) (store.ApprovalRequest, error)
	MarkRequestReminded(context.Context, string) error
	EscalateRequest(context.Context, string) error
	InsertNotification(context.Context, store.Notification) error
	ListNotificationsFor(context.Context, string, string, bool) ([]store.Notification, error)
	MarkNotificationRead(context.Context, string, string) error
	InsertDataSource(context.Context, store.DataSource) error
	GetActiveDataSource(context.Context, string) (store.DataSource, error)
	InsertPolicy(context.Context, store.Policy) error
	ListPolicies(context.Context, string) ([]store.Policy, error)
	RevokeAccessToken(context.Context, string, time.Time) error
	IsAccessTokenRevoked(context.Context, string) (bool, error)
	Ping(ctx context.Context) error
}

// sessionStore holds refresh tokens. Backed by Redis when configured,
// otherwise by the refresh_sessions table through pgSessions.
type sessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash string, user store.User, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}

type credentialService interface {
	SignIn(ctx context.Context, req authemp.SignInRequest) (store.User, error)
	ChangePassword(ctx context.Context, req authemp.ChangePasswordRequest) error
}

type emailSender interface {
	IsConfigured() bool
	SendCredentialsEmail(to string, data email.CredentialsData) error
	SendNotificationEmail(to string, data email.NotificationData) error
}

type searchService interface {
	Search(q search.Query) search.Response
	IndexRequest(rec search.RequestRecord)
	IndexPolicy(rec search.PolicyRecord)
}

type Service struct {
	cfg        config.Config
	store      dataStore
	sessions   sessionStore
	creds      credentialService
	email      emailSender
	objects    sheets.ObjectStore
	search     searchService
	letters    *letters.Service
	policyRepo *policyrepo.Service
}

func New(cfg config.Config, dataStore *store.PostgresStore, sessions sessionStore, creds *authemp.Service, emailSvc *email.Service, objects sheets.ObjectStore, searchSvc *search.Service, letterSvc *letters.Service, policyRepo *policyrepo.Service) *Service {
	s := &Service{
		cfg:        cfg,
		store:      dataStore,
		sessions:   sessions,
		creds:      creds,
		email:      emailSvc,
		objects:    objects,
		letters:    letterSvc,
		policyRepo: policyRepo,
	}
	if searchSvc != nil {
		s.search = searchSvc
	}
	return s
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) SMTPConfigured() bool {
	return s.email != nil && s.email.IsConfigured()
}

// Login authenticates an employee and issues an access/refresh token pair.
func (s *Service) Login(ctx context.Context, companyID, employeeID, password string) (Session, error) {
	user, err := s.creds.SignIn(ctx, authemp.SignInRequest{
		CompanyID:  strings.TrimSpace(companyID),
		EmployeeID: strings.TrimSpace(employeeID),
		Password:   password,
	})
	if err != nil {
		if errors.Is(err, authemp.ErrInvalidCredentials) {
			return Session{}, domainError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid company, employee id, or password", nil)
		}
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	user, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Sub:     user.ID,
		Name:    user.DisplayName,
		Role:    user.Role,
		Company: user.CompanyID,
		JTI:     jti,
		Exp:     expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.DisplayName,
		CompanyID:    user.CompanyID,
		Role:         user.Role,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.store.IsAccessTokenRevoked(ctx, claims.JTI)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}

	return Session{
		Token:     token,
		UserID:    claims.Sub,
		UserName:  claims.Name,
		CompanyID: claims.Company,
		Role:      string(rbac.Normalize(claims.Role)),
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Logout(ctx context.Context, session Session, refreshToken string) error {
	if session.JTI != "" {
		_ = s.store.RevokeAccessToken(ctx, session.JTI, session.ExpiresAt)
	}
	if refreshToken != "" {
		_ = s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

func (s *Service) ChangePassword(ctx context.Context, session Session, oldPassword, newPassword string) error {
	err := s.creds.ChangePassword(ctx, authemp.ChangePasswordRequest{
		UserID:      session.UserID,
		OldPassword: oldPassword,
		NewPassword: newPassword,
	})
	if errors.Is(err, authemp.ErrInvalidCredentials) {
		return domainError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Current password is incorrect", nil)
	}
	return err
}

func (s *Service) can(session Session, cap rbac.Capability) bool {
	return rbac.Can(rbac.Normalize(session.Role), cap)
}

// Chat handles one employee message. Request-like messages create an
// approval request and notify the company's deciding roles; everything
// else is answered from the policy corpus or the support contact.
func (s *Service) Chat(ctx context.Context, session Session, message string) (map[string]any, error) {
	text := strings.TrimSpace(message)
	if text == "" {
		return nil, validationError("message is required", nil)
	}

	intent, ok := detectIntent(text)
	if !ok {
		return s.answerQuestion(ctx, session, text), nil
	}

	request := store.ApprovalRequest{
		ID:            util.NewID("req"),
		CompanyID:     session.CompanyID,
		RequesterID:   session.UserID,
		RequesterName: session.UserName,
		Type:          intent.Type,
		Context:       text,
		AISummary:     intent.Summarize(session.UserName, text),
		Status:        "pending",
	}
	if err := s.store.InsertApprovalRequest(ctx, request); err != nil {
		return nil, err
	}

	if err := s.store.InsertNotification(ctx, store.Notification{
		ID:               util.NewID("ntf"),
		CompanyID:        session.CompanyID,
		RecipientID:      store.AuthorityRecipient,
		Title:            "New " + intent.Label + " request",
		Message:          request.AISummary,
		Type:             "approval_needed",
		RelatedRequestID: request.ID,
	}); err != nil {
		log.Printf("chat: notify authority for %s: %v", request.ID, err)
	}

	s.indexRequest(request)

	return map[string]any{
		"reply":   intent.Reply,
		"actions": []string{"request_created"},
		"request": requestPayload(request),
	}, nil
}

func (s *Service) answerQuestion(ctx context.Context, session Session, text string) map[string]any {
	if s.search != nil {
		resp := s.search.Search(search.Query{
			Text:            text,
			FilterType:      search.ResultPolicy,
			FilterCompanyID: session.CompanyID,
			Limit:           1,
		})
		if len(resp.Results) > 0 && strings.TrimSpace(resp.Results[0].Snippet) != "" {
			return map[string]any{
				"reply":   "From your company's policy: " + resp.Results[0].Snippet,
				"actions": []string{},
			}
		}
	}

	reply := "I couldn't find an answer in your company's policies."
	if company, err := s.store.GetCompany(ctx, session.CompanyID); err == nil {
		if contact := supportContactLine(company); contact != "" {
			reply += " You can reach HR support at " + contact + "."
		}
	}
	return map[string]any{"reply": reply, "actions": []string{}}
}

func supportContactLine(company store.Company) string {
	switch {
	case company.SupportEmail != "":
		return company.SupportEmail
	case company.SupportPhone != "":
		return company.SupportPhone
	case company.SupportWhatsApp != "":
		return company.SupportWhatsApp + " (WhatsApp)"
	default:
		return ""
	}
}

func (s *Service) ListPendingApprovals(ctx context.Context, session Session) (map[string]any, error) {
	if !s.can(session, rbac.CapViewPendingApprovals) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	requests, err := s.store.ListPendingRequests(ctx, session.CompanyID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"requests": requestPayloads(requests)}, nil
}

func (s *Service) ListMyRequests(ctx context.Context, session Session) (map[string]any, error) {
	requests, err := s.store.ListRequestsByRequester(ctx, session.CompanyID, session.UserID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"requests": requestPayloads(requests)}, nil
}

// DecideApproval applies a terminal decision to a pending request. A
// request already decided by someone else surfaces as 409 so the losing
// decider can refresh instead of silently overwriting.
func (s *Service) DecideApproval(ctx context.Context, session Session, requestID, status, note string) (map[string]any, error) {
	if _, ok := allowedDecisions[status]; !ok {
		return nil, validationError("status must be approved or rejected", nil)
	}
	if !s.can(session, rbac.CapDecideApproval) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}

	existing, err := s.store.GetApprovalRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if existing.CompanyID != session.CompanyID {
		return nil, sql.ErrNoRows
	}

	request, err := s.store.DecideRequest(ctx, requestID, status, note, session.UserID)
	if err != nil {
		if errors.Is(err, store.ErrAlreadyDecided) {
			return nil, domainError(http.StatusConflict, "ALREADY_DECIDED", "Request has already been decided", nil)
		}
		return nil, err
	}

	title := "Request " + status
	message := fmt.Sprintf("Your %s request was %s by %s.", request.Type, status, session.UserName)
	if strings.TrimSpace(note) != "" {
		message += " Note: " + note
	}
	if err := s.store.InsertNotification(ctx, store.Notification{
		ID:               util.NewID("ntf"),
		CompanyID:        session.CompanyID,
		RecipientID:      request.RequesterID,
		Title:            title,
		Message:          message,
		Type:             "decision",
		RelatedRequestID: request.ID,
	}); err != nil {
		log.Printf("decide: notify requester for %s: %v", request.ID, err)
	}

	s.notifyByEmail(ctx, request.RequesterID, title, message)
	s.indexRequest(request)

	return map[string]any{"request": requestPayload(request)}, nil
}

func (s *Service) Notifications(ctx context.Context, session Session) (map[string]any, error) {
	includeAuthority := rbac.IsAuthority(rbac.Normalize(session.Role))
	notifications, err := s.store.ListNotificationsFor(ctx, session.CompanyID, session.UserID, includeAuthority)
	if err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(notifications))
	for _, n := range notifications {
		items = append(items, map[string]any{
			"id":          n.ID,
			"recipientId": n.RecipientID,
			"title":       n.Title,
			"message":     n.Message,
			"isRead":      n.IsRead,
			"createdAt":   n.CreatedAt,
		})
	}
	return map[string]any{"notifications": items}, nil
}

func (s *Service) MarkNotificationRead(ctx context.Context, session Session, notificationID string) error {
	return s.store.MarkNotificationRead(ctx, session.CompanyID, notificationID)
}

// RegisterCompany creates the company record and its admin account, and
// emails the admin their credentials when SMTP is configured.
func (s *Service) RegisterCompany(ctx context.Context, input CompanyInput) (map[string]any, error) {
	name := strings.TrimSpace(input.Name)
	adminEmail := strings.TrimSpace(input.AdminEmail)
	if name == "" || adminEmail == "" {
		return nil, validationError("name and adminEmail are required", nil)
	}

	companyID := util.NewID("comp")
	if err := s.store.InsertCompany(ctx, store.Company{
		ID:              companyID,
		Name:            name,
		AdminName:       strings.TrimSpace(input.AdminName),
		AdminEmail:      adminEmail,
		AdminPhone:      strings.TrimSpace(input.AdminPhone),
		SupportEmail:    strings.TrimSpace(input.SupportEmail),
		SupportPhone:    strings.TrimSpace(input.SupportPhone),
		SupportWhatsApp: strings.TrimSpace(input.SupportWhatsApp),
		SupportMessage:  strings.TrimSpace(input.SupportMessage),
	}); err != nil {
		return nil, err
	}

	password, err := authemp.GeneratePassword(12)
	if err != nil {
		return nil, err
	}
	hash, err := authemp.HashPassword(password)
	if err != nil {
		return nil, err
	}

	adminName := strings.TrimSpace(input.AdminName)
	if adminName == "" {
		adminName = "Admin"
	}
	admin := store.User{
		ID:           util.NewID("usr"),
		CompanyID:    companyID,
		EmployeeID:   "admin",
		DisplayName:  adminName,
		Email:        adminEmail,
		PasswordHash: hash,
		Role:         string(rbac.RoleAdmin),
	}
	if err := s.store.CreateUser(ctx, admin); err != nil {
		return nil, err
	}

	response := map[string]any{
		"companyId":       companyID,
		"adminEmployeeId": admin.EmployeeID,
	}
	if s.SMTPConfigured() {
		if err := s.email.SendCredentialsEmail(adminEmail, email.CredentialsData{
			UserName:   adminName,
			CompanyID:  companyID,
			EmployeeID: admin.EmployeeID,
			Password:   password,
			PortalURL:  s.cfg.PortalURL,
		}); err != nil {
			log.Printf("register: credentials email to %s: %v", adminEmail, err)
		}
	} else {
		// Dev bypass: surface the generated password when email is off.
		response["devAdminPassword"] = password
	}

	return response, nil
}

// AttachDataSource stores the uploaded spreadsheet, infers its schema
// from the headers, and records it as the company's active source.
func (s *Service) AttachDataSource(ctx context.Context, companyID, kind, name string, content []byte) (map[string]any, error) {
	if len(content) == 0 {
		return nil, validationError("content is required", nil)
	}
	if kind == "" {
		kind = "csv"
	}
	if strings.TrimSpace(name) == "" {
		name = "employees.csv"
	}

	headers, _, err := sheets.ParseCSV(content)
	if err != nil {
		return nil, validationError("could not parse data source: "+err.Error(), nil)
	}
	schema := sheets.AnalyzeSchema(headers)

	objectName := companyID + "/sources/" + name
	if err := s.objects.Put(ctx, objectName, content, "text/csv"); err != nil {
		return nil, err
	}

	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}

	sourceID := util.NewID("ds")
	if err := s.store.InsertDataSource(ctx, store.DataSource{
		ID:         sourceID,
		CompanyID:  companyID,
		Kind:       kind,
		ObjectName: objectName,
		SchemaMap:  string(schemaJSON),
		IsActive:   true,
	}); err != nil {
		return nil, err
	}

	return map[string]any{
		"dataSourceId":   sourceID,
		"inferredSchema": schema,
	}, nil
}

// AttachPolicy stores a policy as text or as an uploaded document. Every
// attach also commits the policy file into the company's version
// repository so the wording at any point in time can be audited.
func (s *Service) AttachPolicy(ctx context.Context, session Session, companyID, kind, text, fileName string, content []byte) (map[string]any, error) {
	policy := store.Policy{
		ID:        util.NewID("pol"),
		CompanyID: companyID,
		Kind:      kind,
	}

	var versioned []byte
	switch kind {
	case "text":
		if strings.TrimSpace(text) == "" {
			return nil, validationError("text is required for text policies", nil)
		}
		policy.Content = text
		policy.FileName = policy.ID + ".txt"
		versioned = []byte(text)
	case "document":
		if len(content) == 0 {
			return nil, validationError("content is required for document policies", nil)
		}
		if strings.TrimSpace(fileName) == "" {
			fileName = "policy"
		}
		policy.FileName = fileName
		policy.ObjectName = companyID + "/policies/" + fileName
		if err := s.objects.Put(ctx, policy.ObjectName, content, "application/octet-stream"); err != nil {
			return nil, err
		}
		if plainTextFile(fileName) {
			policy.Content = string(content)
		}
		versioned = content
	default:
		return nil, validationError("kind must be text or document", nil)
	}

	if err := s.store.InsertPolicy(ctx, policy); err != nil {
		return nil, err
	}

	if s.policyRepo != nil {
		author := session.UserName
		if author == "" {
			author = "HR Support"
		}
		if _, err := s.policyRepo.Commit(companyID, policy.FileName, versioned, author, "Attach policy "+policy.FileName); err != nil {
			log.Printf("policy: version commit for %s: %v", policy.ID, err)
		}
	}

	if s.search != nil {
		s.search.IndexPolicy(search.PolicyRecord{
			ID:        policy.ID,
			Kind:      policy.Kind,
			FileName:  policy.FileName,
			Content:   policy.Content,
			CompanyID: policy.CompanyID,
		})
	}

	return map[string]any{"policyId": policy.ID}, nil
}

// PolicyHistory lists the committed revisions of one policy file.
func (s *Service) PolicyHistory(ctx context.Context, companyID, fileName string) (map[string]any, error) {
	if strings.TrimSpace(fileName) == "" {
		return nil, validationError("file is required", nil)
	}
	versions := []policyrepo.Version{}
	if s.policyRepo != nil {
		found, err := s.policyRepo.History(companyID, fileName, 50)
		if err != nil {
			return nil, err
		}
		if found != nil {
			versions = found
		}
	}
	return map[string]any{"versions": versions}, nil
}

// GenerateLetter produces the formal document behind an approved
// document request: a salary certificate, employment letter, or
// experience letter depending on what the request asked for.
func (s *Service) GenerateLetter(ctx context.Context, session Session, requestID, format string) (letters.Result, error) {
	if s.letters == nil {
		return letters.Result{}, validationError("letter generation is not available", nil)
	}

	request, err := s.store.GetApprovalRequest(ctx, requestID)
	if err != nil {
		return letters.Result{}, err
	}
	if request.CompanyID != session.CompanyID {
		return letters.Result{}, sql.ErrNoRows
	}
	if request.RequesterID != session.UserID && !s.can(session, rbac.CapDecideApproval) {
		return letters.Result{}, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	if request.Type != "document" {
		return letters.Result{}, validationError("letters are generated for document requests only", nil)
	}
	if request.Status != "approved" {
		return letters.Result{}, domainError(http.StatusUnprocessableEntity, "INVALID_STATE", "letter is available once the request is approved", nil)
	}

	data := letters.Data{
		EmployeeName: request.RequesterName,
		CompanyName:  session.CompanyID,
	}
	if user, err := s.store.GetUserByID(ctx, request.RequesterID); err == nil {
		data.EmployeeName = user.DisplayName
		data.EmployeeID = user.EmployeeID
	}
	if company, err := s.store.GetCompany(ctx, request.CompanyID); err == nil {
		data.CompanyName = company.Name
	}

	return s.letters.Generate(ctx, letters.DetectKind(request.Context), data, letters.Format(format))
}

func plainTextFile(fileName string) bool {
	lower := strings.ToLower(fileName)
	return strings.HasSuffix(lower, ".txt") || strings.HasSuffix(lower, ".md")
}

// ProvisionEmployees creates an account for every row of the active data
// source. Individual row failures are recorded in the detail list and do
// not stop the run.
func (s *Service) ProvisionEmployees(ctx context.Context, companyID string) (map[string]any, error) {
	source, err := s.store.GetActiveDataSource(ctx, companyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, validationError("company has no active data source", nil)
		}
		return nil, err
	}

	var schema sheets.SchemaMap
	if err := json.Unmarshal([]byte(source.SchemaMap), &schema); err != nil {
		return nil, fmt.Errorf("decode schema map: %w", err)
	}
	if schema.PrimaryKey == "" {
		return nil, validationError("data source has no employee id column", nil)
	}

	adapter := sheets.NewCSVAdapter(s.objects, source.ObjectName)
	records, err := adapter.Records(ctx)
	if err != nil {
		return nil, err
	}

	const provisionedColumn = "Provisioned"
	writeback := adapter.AddColumn(ctx, provisionedColumn) == nil

	count := 0
	detail := make([]string, 0, len(records))
	for i, rec := range records {
		employeeID := strings.TrimSpace(rec[schema.PrimaryKey])
		if employeeID == "" {
			detail = append(detail, fmt.Sprintf("row %d: missing employee id", i+2))
			continue
		}

		password, err := authemp.GeneratePassword(12)
		if err != nil {
			return nil, err
		}
		hash, err := authemp.HashPassword(password)
		if err != nil {
			return nil, err
		}

		role := string(rbac.RoleEmployee)
		if schema.RoleColumn != "" {
			role = sheets.DetectRole(rec[schema.RoleColumn])
		}
		user := store.User{
			ID:           util.NewID("usr"),
			CompanyID:    companyID,
			EmployeeID:   employeeID,
			DisplayName:  strings.TrimSpace(rec[schema.EmployeeName]),
			Email:        strings.TrimSpace(rec[schema.Email]),
			Phone:        strings.TrimSpace(rec[schema.Phone]),
			PasswordHash: hash,
			Role:         role,
		}
		if err := s.store.CreateUser(ctx, user); err != nil {
			detail = append(detail, fmt.Sprintf("%s: %v", employeeID, err))
			continue
		}
		count++
		detail = append(detail, fmt.Sprintf("provisioned %s (%s)", employeeID, role))

		if user.Email != "" && s.SMTPConfigured() {
			if err := s.email.SendCredentialsEmail(user.Email, email.CredentialsData{
				UserName:   user.DisplayName,
				CompanyID:  companyID,
				EmployeeID: employeeID,
				Password:   password,
				PortalURL:  s.cfg.PortalURL,
			}); err != nil {
				detail = append(detail, fmt.Sprintf("%s: credentials email failed: %v", employeeID, err))
			}
		}
		if writeback {
			if err := adapter.UpdateRecord(ctx, schema.PrimaryKey, employeeID, map[string]string{
				provisionedColumn: time.Now().Format("2006-01-02"),
			}); err != nil {
				log.Printf("provision: sheet writeback for %s: %v", employeeID, err)
			}
		}
	}

	return map[string]any{"count": count, "detail": detail}, nil
}

func (s *Service) SupportInfo(ctx context.Context, companyID string) (map[string]any, error) {
	company, err := s.store.GetCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"email":    company.SupportEmail,
		"phone":    company.SupportPhone,
		"whatsapp": company.SupportWhatsApp,
		"message":  company.SupportMessage,
	}, nil
}

func (s *Service) Search(ctx context.Context, session Session, text, filterType string, limit, offset int) (search.Response, error) {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: text}, nil
	}
	return s.search.Search(search.Query{
		Text:            text,
		FilterType:      search.ResultType(filterType),
		FilterCompanyID: session.CompanyID,
		Limit:           limit,
		Offset:          offset,
	}), nil
}

// CheckPendingReminders sweeps stale pending requests: a reminder
// notification after the reminder threshold and an escalation after the
// escalation threshold. Run periodically from main.
func (s *Service) CheckPendingReminders(ctx context.Context) error {
	now := time.Now()
	stale, err := s.store.ListStalePending(ctx, now.Add(-s.cfg.ReminderThreshold))
	if err != nil {
		return err
	}

	for _, request := range stale {
		age := now.Sub(request.CreatedAt)

		if age >= s.cfg.EscalateThreshold && !request.Escalated {
			if err := s.store.EscalateRequest(ctx, request.ID); err != nil {
				log.Printf("sweep: escalate %s: %v", request.ID, err)
				continue
			}
			if err := s.store.InsertNotification(ctx, store.Notification{
				ID:               util.NewID("ntf"),
				CompanyID:        request.CompanyID,
				RecipientID:      store.AuthorityRecipient,
				Title:            "Request escalated",
				Message:          fmt.Sprintf("%s's %s request was pending for over %s and has been escalated.", request.RequesterName, request.Type, s.cfg.EscalateThreshold),
				Type:             "escalation",
				RelatedRequestID: request.ID,
			}); err != nil {
				log.Printf("sweep: notify escalation %s: %v", request.ID, err)
			}
			continue
		}

		if !request.ReminderSent {
			if err := s.store.InsertNotification(ctx, store.Notification{
				ID:               util.NewID("ntf"),
				CompanyID:        request.CompanyID,
				RecipientID:      store.AuthorityRecipient,
				Title:            "Pending approval reminder",
				Message:          fmt.Sprintf("%s's %s request is still waiting for a decision.", request.RequesterName, request.Type),
				Type:             "reminder",
				RelatedRequestID: request.ID,
			}); err != nil {
				log.Printf("sweep: notify reminder %s: %v", request.ID, err)
				continue
			}
			if err := s.store.MarkRequestReminded(ctx, request.ID); err != nil {
				log.Printf("sweep: mark reminded %s: %v", request.ID, err)
			}
		}
	}
	return nil
}

func (s *Service) notifyByEmail(ctx context.Context, userID, title, message string) {
	if !s.SMTPConfigured() {
		return
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil || user.Email == "" {
		return
	}
	if err := s.email.SendNotificationEmail(user.Email, email.NotificationData{
		UserName: user.DisplayName,
		Title:    title,
		Message:  message,
	}); err != nil {
		log.Printf("email: notification to %s: %v", user.Email, err)
	}
}

func (s *Service) indexRequest(request store.ApprovalRequest) {
	if s.search == nil {
		return
	}
	s.search.IndexRequest(search.RequestRecord{
		ID:            request.ID,
		Type:          request.Type,
		Context:       request.Context,
		AISummary:     request.AISummary,
		Status:        request.Status,
		CompanyID:     request.CompanyID,
		RequesterName: request.RequesterName,
	})
}

func requestPayload(r store.ApprovalRequest) map[string]any {
	return map[string]any{
		"id":            r.ID,
		"companyId":     r.CompanyID,
		"requesterId":   r.RequesterID,
		"requesterName": r.RequesterName,
		"type":          r.Type,
		"context":       r.Context,
		"aiSummary":     r.AISummary,
		"status":        r.Status,
		"createdAt":     r.CreatedAt,
	}
}

func requestPayloads(requests []store.ApprovalRequest) []map[string]any {
	items := make([]map[string]any, 0, len(requests))
	for _, r := range requests {
		items = append(items, requestPayload(r))
	}
	return items
}
