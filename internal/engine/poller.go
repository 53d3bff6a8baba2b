package engine

import (
	"context"
	"log"
	"time"

	"hrsupport/internal/gateway"
	"hrsupport/internal/rbac"
)

const DefaultPollInterval = 15 * time.Second

// Poller periodically refreshes the request and notification caches from
// the gateway while a surface that renders them is active. Run it with a
// context scoped to that surface; cancelling the context stops the loop.
type Poller struct {
	session  gateway.Session
	gw       gateway.Gateway
	ctrl     *Controller
	interval time.Duration
}

func NewPoller(session gateway.Session, gw gateway.Gateway, ctrl *Controller, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{session: session, gw: gw, ctrl: ctrl, interval: interval}
}

// Run refreshes immediately, then on every tick until ctx is cancelled. A
// failed tick is logged and retried on the next tick; the caches are never
// cleared on failure.
func (p *Poller) Run(ctx context.Context) {
	p.Refresh(ctx)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Refresh(ctx)
		}
	}
}

// Refresh performs one tick: two independent refreshes, requests and
// notifications. A failure in one does not skip the other.
func (p *Poller) Refresh(ctx context.Context) {
	if err := p.refreshRequests(ctx); err != nil {
		log.Printf("poller: request refresh failed: %v", err)
	}
	if err := p.refreshNotifications(ctx); err != nil {
		log.Printf("poller: notification refresh failed: %v", err)
	}
}

// refreshRequests pulls the pending queue for deciding roles plus the
// user's own requests, deduplicated by id.
func (p *Poller) refreshRequests(ctx context.Context) error {
	var merged []gateway.Request
	seen := make(map[string]struct{})

	if rbac.Can(p.session.Role, rbac.CapViewPendingApprovals) {
		pending, err := p.gw.ListPendingApprovals(ctx)
		if err != nil {
			return err
		}
		for _, req := range pending {
			merged = append(merged, req)
			seen[req.ID] = struct{}{}
		}
	}

	mine, err := p.gw.ListMyRequests(ctx)
	if err != nil {
		return err
	}
	for _, req := range mine {
		if _, dup := seen[req.ID]; dup {
			continue
		}
		merged = append(merged, req)
	}

	p.ctrl.Requests().ReplaceAll(merged)
	return nil
}

func (p *Poller) refreshNotifications(ctx context.Context) error {
	notifications, err := p.gw.ListNotifications(ctx)
	if err != nil {
		return err
	}
	p.ctrl.Notifications().ReplaceAll(notifications)
	return nil
}
