package app

import (
	"context"
	"time"

	"hrsupport/internal/store"
)

// PGSessions keeps refresh tokens in the refresh_sessions table. Used
// when no Redis URL is configured.
type PGSessions struct {
	store *store.PostgresStore
}

func NewPGSessions(s *store.PostgresStore) *PGSessions {
	return &PGSessions{store: s}
}

func (p *PGSessions) SaveRefreshSession(ctx context.Context, tokenHash string, user store.User, expiresAt time.Time) error {
	return p.store.SaveRefreshSession(ctx, tokenHash, user.ID, expiresAt)
}

func (p *PGSessions) LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error) {
	return p.store.LookupRefreshSession(ctx, tokenHash)
}

func (p *PGSessions) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	return p.store.RevokeRefreshSession(ctx, tokenHash)
}
