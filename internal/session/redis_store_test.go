package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	store, err := NewRedisStore("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, s
}

func TestNewRedisStore(t *testing.T) {
	store, _ := setupTestRedis(t)
	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestNewRedisStoreRejectsBadURL(t *testing.T) {
	if _, err := NewRedisStore("not a url"); err == nil {
		t.Fatal("expected error for malformed redis url")
	}
}

func TestSaveAndConsumeRefreshSession(t *testing.T) {
	store, s := setupTestRedis(t)
	ctx := context.Background()

	if err := store.SaveRefreshSession(ctx, "test-token-hash", "user-123", time.Now().Add(24*time.Hour)); err != nil {
		t.Fatalf("SaveRefreshSession failed: %v", err)
	}
	if !s.Exists("refresh:test-token-hash") {
		t.Error("session not stored under refresh:<hash>")
	}
	if ttl := s.TTL("refresh:test-token-hash"); ttl <= 23*time.Hour || ttl > 24*time.Hour {
		t.Errorf("TTL = %v, want about 24h", ttl)
	}

	user, err := store.ConsumeRefreshSession(ctx, "test-token-hash")
	if err != nil {
		t.Fatalf("ConsumeRefreshSession failed: %v", err)
	}
	if user.ID != "user-123" {
		t.Errorf("expected user ID user-123, got %s", user.ID)
	}
	if s.Exists("refresh:test-token-hash") {
		t.Error("consumed session still stored")
	}
	if _, err := store.ConsumeRefreshSession(ctx, "test-token-hash"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("second ConsumeRefreshSession() error = %v, want ErrSessionNotFound", err)
	}
}

func TestConsumeRefreshSessionConcurrently(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()

	if err := store.SaveRefreshSession(ctx, "contested", "user-1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("SaveRefreshSession failed: %v", err)
	}

	const callers = 8
	results := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.ConsumeRefreshSession(ctx, "contested")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	winners := 0
	for err := range results {
		switch {
		case err == nil:
			winners++
		case !errors.Is(err, ErrSessionNotFound):
			t.Errorf("unexpected error: %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one successful consume, got %d", winners)
	}
}

func TestConsumeExpiredSession(t *testing.T) {
	store, s := setupTestRedis(t)
	ctx := context.Background()

	if err := store.SaveRefreshSession(ctx, "expiring", "user-456", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("SaveRefreshSession failed: %v", err)
	}
	s.FastForward(2 * time.Hour)

	if _, err := store.ConsumeRefreshSession(ctx, "expiring"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("ConsumeRefreshSession() error = %v, want ErrSessionNotFound", err)
	}
}

func TestSaveAlreadyExpiredSessionIsNoop(t *testing.T) {
	store, s := setupTestRedis(t)
	ctx := context.Background()

	if err := store.SaveRefreshSession(ctx, "stale", "user-1", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("SaveRefreshSession failed: %v", err)
	}
	if s.Exists("refresh:stale") {
		t.Error("expired session was stored")
	}
}

func TestConsumeNonExistentSession(t *testing.T) {
	store, _ := setupTestRedis(t)

	if _, err := store.ConsumeRefreshSession(context.Background(), "non-existent-token"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("ConsumeRefreshSession() error = %v, want ErrSessionNotFound", err)
	}
}

func TestRevokeRefreshSession(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()
	expiresAt := time.Now().Add(24 * time.Hour)

	if err := store.SaveRefreshSession(ctx, "token-1", "user-1", expiresAt); err != nil {
		t.Fatalf("SaveRefreshSession 1 failed: %v", err)
	}
	if err := store.SaveRefreshSession(ctx, "token-2", "user-2", expiresAt); err != nil {
		t.Fatalf("SaveRefreshSession 2 failed: %v", err)
	}

	if err := store.RevokeRefreshSession(ctx, "token-1"); err != nil {
		t.Fatalf("Revoke token-1 failed: %v", err)
	}
	if _, err := store.ConsumeRefreshSession(ctx, "token-1"); err == nil {
		t.Error("expected error for revoked token-1, got nil")
	}

	user2, err := store.ConsumeRefreshSession(ctx, "token-2")
	if err != nil {
		t.Fatalf("Consume token-2 after revoke failed: %v", err)
	}
	if user2.ID != "user-2" {
		t.Errorf("expected user-2 after revoke, got %s", user2.ID)
	}

	// Revoking an unknown token is not an error.
	if err := store.RevokeRefreshSession(ctx, "non-existent-token"); err != nil {
		t.Errorf("RevokeRefreshSession for non-existent token failed: %v", err)
	}
}

func TestRevokeAccessToken(t *testing.T) {
	store, s := setupTestRedis(t)
	ctx := context.Background()

	revoked, err := store.IsAccessTokenRevoked(ctx, "jti-1")
	if err != nil || revoked {
		t.Fatalf("IsAccessTokenRevoked() before revoke = %v, %v", revoked, err)
	}

	if err := store.RevokeAccessToken(ctx, "jti-1", time.Now().Add(15*time.Minute)); err != nil {
		t.Fatalf("RevokeAccessToken() error = %v", err)
	}
	revoked, err = store.IsAccessTokenRevoked(ctx, "jti-1")
	if err != nil || !revoked {
		t.Fatalf("IsAccessTokenRevoked() after revoke = %v, %v", revoked, err)
	}

	// The denial entry lives only as long as the token could.
	s.FastForward(16 * time.Minute)
	revoked, err = store.IsAccessTokenRevoked(ctx, "jti-1")
	if err != nil || revoked {
		t.Fatalf("IsAccessTokenRevoked() after expiry = %v, %v", revoked, err)
	}
}

func TestRedisErrorsSurface(t *testing.T) {
	store, s := setupTestRedis(t)
	s.SetError("boom")

	if _, err := store.ConsumeRefreshSession(context.Background(), "x"); err == nil || errors.Is(err, ErrSessionNotFound) {
		t.Errorf("ConsumeRefreshSession() error = %v, want backend error", err)
	}
}
