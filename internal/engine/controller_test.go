package engine

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"hrsupport/internal/gateway"
	"hrsupport/internal/rbac"
)

type fakeGateway struct {
	chatSendFn    func(context.Context, string) (gateway.ChatReply, error)
	listPendingFn func(context.Context) ([]gateway.Request, error)
	listMineFn    func(context.Context) ([]gateway.Request, error)
	decideFn      func(context.Context, string, gateway.Status, string) error
	listNotifsFn  func(context.Context) ([]gateway.Notification, error)
	markReadFn    func(context.Context, string) error

	decideCalls   int
	markReadCalls int
}

func (f *fakeGateway) ChatSend(ctx context.Context, message string) (gateway.ChatReply, error) {
	if f.chatSendFn != nil {
		return f.chatSendFn(ctx, message)
	}
	return gateway.ChatReply{Reply: "ok"}, nil
}

func (f *fakeGateway) ListPendingApprovals(ctx context.Context) ([]gateway.Request, error) {
	if f.listPendingFn != nil {
		return f.listPendingFn(ctx)
	}
	return nil, nil
}

func (f *fakeGateway) ListMyRequests(ctx context.Context) ([]gateway.Request, error) {
	if f.listMineFn != nil {
		return f.listMineFn(ctx)
	}
	return nil, nil
}

func (f *fakeGateway) DecideApproval(ctx context.Context, id string, outcome gateway.Status, note string) error {
	f.decideCalls++
	if f.decideFn != nil {
		return f.decideFn(ctx, id, outcome, note)
	}
	return nil
}

func (f *fakeGateway) ListNotifications(ctx context.Context) ([]gateway.Notification, error) {
	if f.listNotifsFn != nil {
		return f.listNotifsFn(ctx)
	}
	return nil, nil
}

func (f *fakeGateway) MarkNotificationRead(ctx context.Context, id string) error {
	f.markReadCalls++
	if f.markReadFn != nil {
		return f.markReadFn(ctx, id)
	}
	return nil
}

func (f *fakeGateway) RegisterCompany(context.Context, gateway.CompanyFields) (gateway.RegisterResult, error) {
	return gateway.RegisterResult{}, nil
}

func (f *fakeGateway) AttachDataSource(context.Context, string, gateway.SourceDescriptor) (gateway.DataSourceResult, error) {
	return gateway.DataSourceResult{}, nil
}

func (f *fakeGateway) AttachPolicy(context.Context, string, gateway.PolicyAttachment) (string, error) {
	return "", nil
}

func (f *fakeGateway) ProvisionEmployees(context.Context, string, string) (gateway.ProvisionSummary, error) {
	return gateway.ProvisionSummary{}, nil
}

func (f *fakeGateway) SupportInfo(context.Context, string) (gateway.SupportInfo, error) {
	return gateway.SupportInfo{}, nil
}

func managerSession() gateway.Session {
	return gateway.Session{
		UserID:      "emp-100",
		CompanyID:   "comp-1",
		Role:        rbac.RoleManager,
		DisplayName: "Priya",
	}
}

func pendingRequest(id string) gateway.Request {
	return gateway.Request{
		ID:            id,
		CompanyID:     "comp-1",
		RequesterID:   "emp-200",
		RequesterName: "Arjun",
		Type:          "leave_request",
		Context:       "Two days off next week",
		Status:        gateway.StatusPending,
		CreatedAt:     time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC),
	}
}

func drainEvent(t *testing.T, ctrl *Controller) Event {
	t.Helper()
	select {
	case ev := <-ctrl.Events():
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event emitted")
		return Event{}
	}
}

func TestDecideRequestCommits(t *testing.T) {
	gw := &fakeGateway{}
	ctrl := NewController(managerSession(), gw)
	ctrl.Requests().Put(pendingRequest("req-1"))

	if err := ctrl.DecideRequest(context.Background(), "req-1", gateway.StatusApproved, "fine"); err != nil {
		t.Fatalf("DecideRequest() error = %v", err)
	}

	rec, ok := ctrl.Requests().Get("req-1")
	if !ok || rec.Status != gateway.StatusApproved {
		t.Fatalf("cached record = %+v, want approved", rec)
	}
	ev := drainEvent(t, ctrl)
	if ev.Type != EventCommitted || ev.Kind != KindRequest || ev.ID != "req-1" {
		t.Fatalf("event = %+v, want committed req-1", ev)
	}
	if gw.decideCalls != 1 {
		t.Fatalf("decide calls = %d, want 1", gw.decideCalls)
	}
}

func TestDecideRequestRollsBackOnConflict(t *testing.T) {
	gw := &fakeGateway{
		decideFn: func(context.Context, string, gateway.Status, string) error {
			return gateway.ErrConflict
		},
	}
	ctrl := NewController(managerSession(), gw)
	before := pendingRequest("req-1")
	ctrl.Requests().Put(before)

	err := ctrl.DecideRequest(context.Background(), "req-1", gateway.StatusApproved, "")
	if !errors.Is(err, gateway.ErrConflict) {
		t.Fatalf("DecideRequest() error = %v, want ErrConflict", err)
	}

	after, _ := ctrl.Requests().Get("req-1")
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("cache diverged from snapshot: before %+v after %+v", before, after)
	}
	ev := drainEvent(t, ctrl)
	if ev.Type != EventRolledBack || !errors.Is(ev.Reason, gateway.ErrConflict) {
		t.Fatalf("event = %+v, want rolled_back with conflict reason", ev)
	}
}

func TestDecideRequestRollsBackOnNetworkError(t *testing.T) {
	gw := &fakeGateway{
		decideFn: func(context.Context, string, gateway.Status, string) error {
			return &gateway.NetworkError{Err: errors.New("connection reset")}
		},
	}
	ctrl := NewController(managerSession(), gw)
	before := pendingRequest("req-1")
	ctrl.Requests().Put(before)

	if err := ctrl.DecideRequest(context.Background(), "req-1", gateway.StatusRejected, "no"); err == nil {
		t.Fatal("expected network error")
	}
	after, _ := ctrl.Requests().Get("req-1")
	if after.Status != gateway.StatusPending {
		t.Fatalf("status = %q, want pending after rollback", after.Status)
	}
}

func TestDecideRequestForbiddenForEmployee(t *testing.T) {
	gw := &fakeGateway{}
	session := managerSession()
	session.Role = rbac.RoleEmployee
	ctrl := NewController(session, gw)
	before := pendingRequest("req-1")
	ctrl.Requests().Put(before)

	err := ctrl.DecideRequest(context.Background(), "req-1", gateway.StatusApproved, "")
	if !errors.Is(err, gateway.ErrForbidden) {
		t.Fatalf("DecideRequest() error = %v, want ErrForbidden", err)
	}
	after, _ := ctrl.Requests().Get("req-1")
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("forbidden mutation touched the cache: %+v", after)
	}
	if gw.decideCalls != 0 {
		t.Fatalf("decide calls = %d, want 0", gw.decideCalls)
	}
}

func TestDecideRequestInvalidState(t *testing.T) {
	gw := &fakeGateway{}
	ctrl := NewController(managerSession(), gw)

	if err := ctrl.DecideRequest(context.Background(), "missing", gateway.StatusApproved, ""); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("absent id: error = %v, want ErrInvalidState", err)
	}

	decided := pendingRequest("req-2")
	decided.Status = gateway.StatusRejected
	ctrl.Requests().Put(decided)
	if err := ctrl.DecideRequest(context.Background(), "req-2", gateway.StatusApproved, ""); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("terminal status: error = %v, want ErrInvalidState", err)
	}
	if gw.decideCalls != 0 {
		t.Fatalf("decide calls = %d, want 0", gw.decideCalls)
	}
}

func TestDecideRequestRejectsBadOutcome(t *testing.T) {
	ctrl := NewController(managerSession(), &fakeGateway{})
	ctrl.Requests().Put(pendingRequest("req-1"))

	err := ctrl.DecideRequest(context.Background(), "req-1", gateway.StatusEscalated, "")
	var vErr *gateway.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
}

func TestDecideRequestDuplicateInFlight(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	gw := &fakeGateway{
		decideFn: func(context.Context, string, gateway.Status, string) error {
			close(entered)
			<-release
			return nil
		},
	}
	ctrl := NewController(managerSession(), gw)
	ctrl.Requests().Put(pendingRequest("req-1"))

	done := make(chan error, 1)
	go func() {
		done <- ctrl.DecideRequest(context.Background(), "req-1", gateway.StatusApproved, "")
	}()
	<-entered

	if err := ctrl.DecideRequest(context.Background(), "req-1", gateway.StatusRejected, ""); !errors.Is(err, ErrAlreadyInProgress) {
		t.Fatalf("duplicate mutation: error = %v, want ErrAlreadyInProgress", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first mutation failed: %v", err)
	}
}

func TestMarkNotificationReadIdempotent(t *testing.T) {
	gw := &fakeGateway{}
	ctrl := NewController(managerSession(), gw)
	ctrl.Notifications().Put(gateway.Notification{ID: "ntf-1", RecipientID: "emp-100", Title: "hi"})

	if err := ctrl.MarkNotificationRead(context.Background(), "ntf-1"); err != nil {
		t.Fatalf("first MarkNotificationRead() error = %v", err)
	}
	if err := ctrl.MarkNotificationRead(context.Background(), "ntf-1"); err != nil {
		t.Fatalf("second MarkNotificationRead() error = %v", err)
	}

	rec, _ := ctrl.Notifications().Get("ntf-1")
	if !rec.IsRead {
		t.Fatal("notification not marked read")
	}
	if gw.markReadCalls != 1 {
		t.Fatalf("markRead calls = %d, want 1 (second call is a local no-op)", gw.markReadCalls)
	}
}

func TestMarkNotificationReadRollsBack(t *testing.T) {
	gw := &fakeGateway{
		markReadFn: func(context.Context, string) error {
			return &gateway.NetworkError{Err: errors.New("timeout")}
		},
	}
	ctrl := NewController(managerSession(), gw)
	ctrl.Notifications().Put(gateway.Notification{ID: "ntf-1", RecipientID: "emp-100"})

	if err := ctrl.MarkNotificationRead(context.Background(), "ntf-1"); err == nil {
		t.Fatal("expected error")
	}
	rec, _ := ctrl.Notifications().Get("ntf-1")
	if rec.IsRead {
		t.Fatal("rollback left notification marked read")
	}
}
