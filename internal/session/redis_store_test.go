package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"hrsupport/internal/store"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	st, err := NewRedisStore("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	return st, s
}

func testUser() store.User {
	return store.User{
		ID:          "usr-1",
		CompanyID:   "comp-1",
		EmployeeID:  "EMP-001",
		DisplayName: "Priya",
		Role:        "manager",
	}
}

func TestNewRedisStore(t *testing.T) {
	s := miniredis.RunT(t)
	defer s.Close()

	st, err := NewRedisStore("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("NewRedisStore failed: %v", err)
	}
	defer st.Close()

	if err := st.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestSaveAndLookupRefreshSession(t *testing.T) {
	st, s := setupTestRedis(t)
	defer st.Close()
	defer s.Close()

	ctx := context.Background()
	tokenHash := "test-token-hash"
	expiresAt := time.Now().Add(24 * time.Hour)

	if err := st.SaveRefreshSession(ctx, tokenHash, testUser(), expiresAt); err != nil {
		t.Fatalf("SaveRefreshSession failed: %v", err)
	}

	user, err := st.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		t.Fatalf("LookupRefreshSession failed: %v", err)
	}
	if user.ID != "usr-1" || user.CompanyID != "comp-1" || user.Role != "manager" {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestLookupExpiredSession(t *testing.T) {
	st, s := setupTestRedis(t)
	defer st.Close()
	defer s.Close()

	ctx := context.Background()
	tokenHash := "expired-token"

	expiresAt := time.Now().Add(1 * time.Millisecond)
	if err := st.SaveRefreshSession(ctx, tokenHash, testUser(), expiresAt); err != nil {
		t.Fatalf("SaveRefreshSession failed: %v", err)
	}

	s.FastForward(2 * time.Millisecond)

	if _, err := st.LookupRefreshSession(ctx, tokenHash); err == nil {
		t.Fatal("expected lookup of expired token to fail")
	}
}

func TestRevokeRefreshSession(t *testing.T) {
	st, s := setupTestRedis(t)
	defer st.Close()
	defer s.Close()

	ctx := context.Background()
	tokenHash := "revoke-me"

	if err := st.SaveRefreshSession(ctx, tokenHash, testUser(), time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("SaveRefreshSession failed: %v", err)
	}
	if err := st.RevokeRefreshSession(ctx, tokenHash); err != nil {
		t.Fatalf("RevokeRefreshSession failed: %v", err)
	}
	if _, err := st.LookupRefreshSession(ctx, tokenHash); err == nil {
		t.Fatal("expected lookup of revoked token to fail")
	}
}

func TestLookupDefaultsRole(t *testing.T) {
	st, s := setupTestRedis(t)
	defer st.Close()
	defer s.Close()

	ctx := context.Background()
	user := testUser()
	user.Role = ""
	if err := st.SaveRefreshSession(ctx, "hash", user, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("SaveRefreshSession failed: %v", err)
	}
	got, err := st.LookupRefreshSession(ctx, "hash")
	if err != nil {
		t.Fatalf("LookupRefreshSession failed: %v", err)
	}
	if got.Role != "employee" {
		t.Fatalf("role = %q, want employee default", got.Role)
	}
}
