package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrAlreadyDecided is returned when a decision targets a request that has
// already left the pending state.
var ErrAlreadyDecided = errors.New("request already decided")

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Companies

func (s *PostgresStore) InsertCompany(ctx context.Context, company Company) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO companies (id, name, admin_name, admin_email, admin_phone,
			support_email, support_phone, support_whatsapp, support_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, company.ID, company.Name, company.AdminName, company.AdminEmail, company.AdminPhone,
		company.SupportEmail, company.SupportPhone, company.SupportWhatsApp, company.SupportMessage)
	if err != nil {
		return fmt.Errorf("insert company: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetCompany(ctx context.Context, companyID string) (Company, error) {
	const query = `
		SELECT id, name, admin_name, admin_email, admin_phone,
			support_email, support_phone, support_whatsapp, support_message, created_at
		FROM companies WHERE id = $1
	`
	var company Company
	err := s.db.QueryRowContext(ctx, query, companyID).Scan(
		&company.ID, &company.Name, &company.AdminName, &company.AdminEmail, &company.AdminPhone,
		&company.SupportEmail, &company.SupportPhone, &company.SupportWhatsApp, &company.SupportMessage,
		&company.CreatedAt)
	if err != nil {
		return Company{}, err
	}
	return company, nil
}

// Users

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, company_id, employee_id, display_name, email, phone, password_hash, role)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (company_id, employee_id) DO UPDATE
			SET display_name=EXCLUDED.display_name, email=EXCLUDED.email,
				phone=EXCLUDED.phone, password_hash=EXCLUDED.password_hash,
				role=EXCLUDED.role, updated_at=NOW()
	`, user.ID, user.CompanyID, user.EmployeeID, user.DisplayName, user.Email, user.Phone,
		user.PasswordHash, user.Role)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	const query = `
		SELECT id, company_id, employee_id, display_name, email, phone, password_hash, role
		FROM users WHERE id = $1
	`
	var user User
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&user.ID, &user.CompanyID, &user.EmployeeID, &user.DisplayName,
		&user.Email, &user.Phone, &user.PasswordHash, &user.Role)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) GetUserByEmployeeID(ctx context.Context, companyID, employeeID string) (User, error) {
	const query = `
		SELECT id, company_id, employee_id, display_name, email, phone, password_hash, role
		FROM users WHERE company_id = $1 AND LOWER(employee_id) = LOWER($2)
	`
	var user User
	err := s.db.QueryRowContext(ctx, query, companyID, employeeID).Scan(
		&user.ID, &user.CompanyID, &user.EmployeeID, &user.DisplayName,
		&user.Email, &user.Phone, &user.PasswordHash, &user.Role)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET password_hash=$2, updated_at=NOW() WHERE id=$1`, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// Approval requests

func (s *PostgresStore) InsertApprovalRequest(ctx context.Context, request ApprovalRequest) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO approval_requests
			(id, company_id, requester_id, requester_name, request_type, context, ai_summary, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, request.ID, request.CompanyID, request.RequesterID, request.RequesterName,
		request.Type, request.Context, request.AISummary, request.Status)
	if err != nil {
		return fmt.Errorf("insert approval request: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetApprovalRequest(ctx context.Context, requestID string) (ApprovalRequest, error) {
	requests, err := s.queryRequests(ctx,
		selectRequest+` WHERE id = $1`, requestID)
	if err != nil {
		return ApprovalRequest{}, err
	}
	if len(requests) == 0 {
		return ApprovalRequest{}, sql.ErrNoRows
	}
	return requests[0], nil
}

func (s *PostgresStore) ListPendingRequests(ctx context.Context, companyID string) ([]ApprovalRequest, error) {
	return s.queryRequests(ctx,
		selectRequest+` WHERE company_id = $1 AND status = 'pending' ORDER BY created_at DESC`,
		companyID)
}

func (s *PostgresStore) ListRequestsByRequester(ctx context.Context, companyID, requesterID string) ([]ApprovalRequest, error) {
	return s.queryRequests(ctx,
		selectRequest+` WHERE company_id = $1 AND LOWER(requester_id) = LOWER($2) ORDER BY created_at DESC`,
		companyID, requesterID)
}

// ListStalePending returns pending requests created before the cutoff. The
// reminder sweep uses it for both the 48h and 72h thresholds.
func (s *PostgresStore) ListStalePending(ctx context.Context, cutoff time.Time) ([]ApprovalRequest, error) {
	return s.queryRequests(ctx,
		selectRequest+` WHERE status = 'pending' AND created_at <= $1 ORDER BY created_at`,
		cutoff)
}

// DecideRequest moves a pending request to a terminal status. Returns
// ErrAlreadyDecided when the request exists but is no longer pending, so
// the caller can surface a conflict to the losing decider.
func (s *PostgresStore) DecideRequest(ctx context.Context, requestID, status, note, decidedBy string) (ApprovalRequest, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE approval_requests
		SET status=$2, decision_note=$3, decided_by=$4, decided_at=NOW()
		WHERE id=$1 AND status='pending'
	`, requestID, status, note, decidedBy)
	if err != nil {
		return ApprovalRequest{}, fmt.Errorf("decide request: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return ApprovalRequest{}, fmt.Errorf("decide request: %w", err)
	}
	if affected == 0 {
		if _, err := s.GetApprovalRequest(ctx, requestID); err != nil {
			return ApprovalRequest{}, err
		}
		return ApprovalRequest{}, ErrAlreadyDecided
	}
	return s.GetApprovalRequest(ctx, requestID)
}

func (s *PostgresStore) MarkRequestReminded(ctx context.Context, requestID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE approval_requests SET reminder_sent=TRUE WHERE id=$1`, requestID)
	if err != nil {
		return fmt.Errorf("mark reminded: %w", err)
	}
	return nil
}

func (s *PostgresStore) EscalateRequest(ctx context.Context, requestID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE approval_requests SET status='escalated', escalated=TRUE
		WHERE id=$1 AND status='pending'
	`, requestID)
	if err != nil {
		return fmt.Errorf("escalate request: %w", err)
	}
	return nil
}

const selectRequest = `
	SELECT id, company_id, requester_id, requester_name, request_type, context,
		ai_summary, status, decision_note, decided_by, decided_at,
		reminder_sent, escalated, created_at
	FROM approval_requests`

func (s *PostgresStore) queryRequests(ctx context.Context, query string, args ...any) ([]ApprovalRequest, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query requests: %w", err)
	}
	defer rows.Close()

	var requests []ApprovalRequest
	for rows.Next() {
		var request ApprovalRequest
		if err := rows.Scan(
			&request.ID, &request.CompanyID, &request.RequesterID, &request.RequesterName,
			&request.Type, &request.Context, &request.AISummary, &request.Status,
			&request.DecisionNote, &request.DecidedBy, &request.DecidedAt,
			&request.ReminderSent, &request.Escalated, &request.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		requests = append(requests, request)
	}
	return requests, rows.Err()
}

// Notifications

func (s *PostgresStore) InsertNotification(ctx context.Context, notification Notification) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications
			(id, company_id, recipient_id, title, message, notification_type, related_request_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, notification.ID, notification.CompanyID, notification.RecipientID, notification.Title,
		notification.Message, notification.Type, notification.RelatedRequestID)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ListNotificationsFor returns an employee's notifications, newest first.
// Deciding roles also receive the company-wide authority feed.
func (s *PostgresStore) ListNotificationsFor(ctx context.Context, companyID, recipientID string, includeAuthority bool) ([]Notification, error) {
	query := `
		SELECT id, company_id, recipient_id, title, message, notification_type,
			related_request_id, is_read, created_at
		FROM notifications
		WHERE company_id = $1 AND recipient_id = $2
		ORDER BY created_at DESC
	`
	args := []any{companyID, recipientID}
	if includeAuthority {
		query = `
			SELECT id, company_id, recipient_id, title, message, notification_type,
				related_request_id, is_read, created_at
			FROM notifications
			WHERE company_id = $1 AND recipient_id IN ($2, $3)
			ORDER BY created_at DESC
		`
		args = append(args, AuthorityRecipient)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []Notification
	for rows.Next() {
		var notification Notification
		if err := rows.Scan(
			&notification.ID, &notification.CompanyID, &notification.RecipientID,
			&notification.Title, &notification.Message, &notification.Type,
			&notification.RelatedRequestID, &notification.IsRead, &notification.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, notification)
	}
	return notifications, rows.Err()
}

// MarkNotificationRead is idempotent: marking an already-read notification
// succeeds without effect. The company filter keeps the update inside the
// caller's tenant; a foreign id reads as not found.
func (s *PostgresStore) MarkNotificationRead(ctx context.Context, companyID, notificationID string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET is_read=TRUE WHERE id=$1 AND company_id=$2`, notificationID, companyID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Data sources

func (s *PostgresStore) InsertDataSource(ctx context.Context, source DataSource) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert data source: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// One active source per company: attaching a new one retires the rest.
	if _, err := tx.ExecContext(ctx,
		`UPDATE data_sources SET is_active=FALSE WHERE company_id=$1`, source.CompanyID); err != nil {
		return fmt.Errorf("retire data sources: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO data_sources (id, company_id, kind, object_name, schema_map, is_active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
	`, source.ID, source.CompanyID, source.Kind, source.ObjectName, source.SchemaMap); err != nil {
		return fmt.Errorf("insert data source: %w", err)
	}
	return tx.Commit()
}

func (s *PostgresStore) GetActiveDataSource(ctx context.Context, companyID string) (DataSource, error) {
	const query = `
		SELECT id, company_id, kind, object_name, schema_map::text, is_active, created_at
		FROM data_sources
		WHERE company_id = $1 AND is_active
		ORDER BY created_at DESC
		LIMIT 1
	`
	var source DataSource
	err := s.db.QueryRowContext(ctx, query, companyID).Scan(
		&source.ID, &source.CompanyID, &source.Kind, &source.ObjectName,
		&source.SchemaMap, &source.IsActive, &source.CreatedAt)
	if err != nil {
		return DataSource{}, err
	}
	return source, nil
}

// Policies

func (s *PostgresStore) InsertPolicy(ctx context.Context, policy Policy) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO policies (id, company_id, kind, content, object_name, file_name)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, policy.ID, policy.CompanyID, policy.Kind, policy.Content, policy.ObjectName, policy.FileName)
	if err != nil {
		return fmt.Errorf("insert policy: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListPolicies(ctx context.Context, companyID string) ([]Policy, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, company_id, kind, content, object_name, file_name, created_at
		FROM policies WHERE company_id = $1 ORDER BY created_at
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("query policies: %w", err)
	}
	defer rows.Close()

	var policies []Policy
	for rows.Next() {
		var policy Policy
		if err := rows.Scan(&policy.ID, &policy.CompanyID, &policy.Kind, &policy.Content,
			&policy.ObjectName, &policy.FileName, &policy.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan policy: %w", err)
		}
		policies = append(policies, policy)
	}
	return policies, rows.Err()
}

// Refresh sessions (Postgres fallback when Redis is not configured)

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET user_id=EXCLUDED.user_id, expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, tokenHash, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (User, error) {
	const query = `
		SELECT u.id, u.company_id, u.employee_id, u.display_name, u.role
		FROM refresh_sessions rs
		JOIN users u ON u.id = rs.user_id
		WHERE rs.token_hash = $1
			AND rs.revoked_at IS NULL
			AND rs.expires_at > NOW()
	`
	var user User
	err := s.db.QueryRowContext(ctx, query, tokenHash).Scan(
		&user.ID, &user.CompanyID, &user.EmployeeID, &user.DisplayName, &user.Role)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

// Access token revocation (logout before expiry)

func (s *PostgresStore) RevokeAccessToken(ctx context.Context, jti string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO revoked_tokens (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING
	`, jti, expiresAt)
	if err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE jti=$1 AND expires_at > NOW())`, jti).
		Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return revoked, nil
}
