package engine

import (
	"context"
	"log"

	"hrsupport/internal/gateway"
	"hrsupport/internal/rbac"
)

type EventType string

const (
	EventCommitted  EventType = "committed"
	EventRolledBack EventType = "rolled_back"
)

type Kind string

const (
	KindRequest      Kind = "request"
	KindNotification Kind = "notification"
)

// Event reports the outcome of an optimistic mutation, for transient UI
// notices. Reason is set only for rollbacks.
type Event struct {
	Type   EventType
	Kind   Kind
	ID     string
	Reason error
}

// Controller applies local mutations optimistically and reconciles them
// with the backend: snapshot, apply, issue the remote call, then commit or
// restore the snapshot. The per-id cache lock is held for the whole
// round-trip, so nothing can build on optimistic state that may revert.
type Controller struct {
	session       gateway.Session
	gw            gateway.Gateway
	requests      *Cache[gateway.Request]
	notifications *Cache[gateway.Notification]
	events        chan Event
}

func NewController(session gateway.Session, gw gateway.Gateway) *Controller {
	return &Controller{
		session:       session,
		gw:            gw,
		requests:      NewCache(func(r gateway.Request) string { return r.ID }),
		notifications: NewCache(func(n gateway.Notification) string { return n.ID }),
		events:        make(chan Event, 32),
	}
}

func (c *Controller) Requests() *Cache[gateway.Request]           { return c.requests }
func (c *Controller) Notifications() *Cache[gateway.Notification] { return c.notifications }

// Events delivers commit/rollback outcomes. The channel is buffered; if a
// consumer falls behind, events are dropped rather than blocking mutations.
func (c *Controller) Events() <-chan Event { return c.events }

// DecideRequest approves or rejects a pending request. The cached record
// flips to the outcome immediately; a failed remote call restores it.
func (c *Controller) DecideRequest(ctx context.Context, id string, outcome gateway.Status, note string) error {
	if outcome != gateway.StatusApproved && outcome != gateway.StatusRejected {
		return gateway.Validationf("outcome must be approved or rejected, got %q", outcome)
	}
	if !rbac.Can(c.session.Role, rbac.CapDecideApproval) {
		return gateway.ErrForbidden
	}
	return withOptimisticMutation(ctx, c, KindRequest, c.requests, id,
		func(rec gateway.Request) (gateway.Request, error) {
			if rec.Status != gateway.StatusPending {
				return rec, ErrInvalidState
			}
			rec.Status = outcome
			return rec, nil
		},
		func(ctx context.Context) error {
			return c.gw.DecideApproval(ctx, id, outcome, note)
		},
	)
}

// MarkNotificationRead flips a notification to read. Idempotent: marking an
// already-read notification is a silent no-op, no remote call, no event.
func (c *Controller) MarkNotificationRead(ctx context.Context, id string) error {
	if current, ok := c.notifications.Get(id); ok && current.IsRead {
		return nil
	}
	return withOptimisticMutation(ctx, c, KindNotification, c.notifications, id,
		func(rec gateway.Notification) (gateway.Notification, error) {
			rec.IsRead = true
			return rec, nil
		},
		func(ctx context.Context) error {
			return c.gw.MarkNotificationRead(ctx, id)
		},
	)
}

func (c *Controller) emit(event Event) {
	select {
	case c.events <- event:
	default:
		log.Printf("engine: event buffer full, dropping %s for %s %s", event.Type, event.Kind, event.ID)
	}
}

// withOptimisticMutation is the shared apply-then-confirm-or-revert
// protocol. The snapshot is taken under the id lock before the optimistic
// value becomes visible, so no second mutation can observe (and build on)
// state that a rollback would erase.
func withOptimisticMutation[T any](
	ctx context.Context,
	ctrl *Controller,
	kind Kind,
	cache *Cache[T],
	id string,
	mutate func(T) (T, error),
	remote func(context.Context) error,
) error {
	if !cache.TryLock(id) {
		return ErrAlreadyInProgress
	}
	defer cache.Unlock(id)

	snapshot, ok := cache.Get(id)
	if !ok {
		return ErrInvalidState
	}
	next, err := mutate(snapshot)
	if err != nil {
		return err
	}
	cache.Put(next)

	if err := remote(ctx); err != nil {
		cache.Put(snapshot)
		ctrl.emit(Event{Type: EventRolledBack, Kind: kind, ID: id, Reason: err})
		return err
	}
	ctrl.emit(Event{Type: EventCommitted, Kind: kind, ID: id})
	return nil
}
