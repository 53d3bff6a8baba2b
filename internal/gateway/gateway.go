// Package gateway is the typed client-side contract for the HR Support
// backend. The Gateway interface is everything the sync engine needs from
// the network; Client implements it over HTTP.
package gateway

import "context"

type Gateway interface {
	ChatSend(ctx context.Context, message string) (ChatReply, error)

	ListPendingApprovals(ctx context.Context) ([]Request, error)
	ListMyRequests(ctx context.Context) ([]Request, error)
	DecideApproval(ctx context.Context, id string, outcome Status, note string) error

	ListNotifications(ctx context.Context) ([]Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error

	RegisterCompany(ctx context.Context, fields CompanyFields) (RegisterResult, error)
	AttachDataSource(ctx context.Context, companyID string, src SourceDescriptor) (DataSourceResult, error)
	AttachPolicy(ctx context.Context, companyID string, policy PolicyAttachment) (string, error)
	ProvisionEmployees(ctx context.Context, companyID, dataSourceID string) (ProvisionSummary, error)
	SupportInfo(ctx context.Context, companyID string) (SupportInfo, error)
}
