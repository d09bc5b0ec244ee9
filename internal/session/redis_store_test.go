package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"inkpress/api/internal/store"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStoreWithClient(client), mr
}

func TestSaveAndLookup(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	user := store.User{ID: "usr_1", Name: "Ada", Email: "ada@example.com", Role: "author", Photo: "ada.png"}
	if err := s.SaveRefreshSession(ctx, "hash1", user, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.LookupRefreshSession(ctx, "hash1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.ID != user.ID || got.Name != user.Name || got.Role != user.Role || got.Photo != user.Photo {
		t.Fatalf("got %+v, want %+v", got, user)
	}
}

func TestLookupUnknownToken(t *testing.T) {
	s, _ := newTestStore(t)
	if _, err := s.LookupRefreshSession(context.Background(), "nope"); err == nil {
		t.Fatal("expected error for unknown token")
	}
}

func TestRevoke(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	user := store.User{ID: "usr_1", Name: "Ada", Role: "reader"}
	if err := s.SaveRefreshSession(ctx, "hash1", user, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.RevokeRefreshSession(ctx, "hash1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := s.LookupRefreshSession(ctx, "hash1"); err == nil {
		t.Fatal("expected error after revoke")
	}
}

func TestExpiry(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	user := store.User{ID: "usr_1", Name: "Ada", Role: "reader"}
	if err := s.SaveRefreshSession(ctx, "hash1", user, time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("save: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if _, err := s.LookupRefreshSession(ctx, "hash1"); err == nil {
		t.Fatal("expected error after expiry")
	}
}

func TestEmptyRoleDefaultsToReader(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveRefreshSession(ctx, "hash1", store.User{ID: "usr_1"}, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.LookupRefreshSession(ctx, "hash1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.Role != "reader" {
		t.Fatalf("role = %q, want reader", got.Role)
	}
}
