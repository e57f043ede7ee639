package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/jstnrme77/scalerrs-portal-sub001/internal/airtable"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/fields"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	store, err := NewRedisStore("redis://"+s.Addr(), time.Minute)
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, s
}

func TestNewRedisStoreRejectsBadURL(t *testing.T) {
	if _, err := NewRedisStore("not a url", time.Minute); err == nil {
		t.Fatal("expected error for invalid url")
	}
}

func TestSaveAndLoadRecords(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()
	key := Key{Kind: "articles", Month: "May 2025", Client: "recA"}

	records := []airtable.Record{
		{ID: "rec1", Fields: fields.Bag{"Article Title": "One", "Clients": []any{"recA"}}},
		{ID: "rec2", Fields: fields.Bag{"Article Title": "Two"}},
	}
	if err := store.SaveRecords(ctx, key, records); err != nil {
		t.Fatalf("SaveRecords failed: %v", err)
	}

	got, ok, err := store.LoadRecords(ctx, key)
	if err != nil || !ok {
		t.Fatalf("LoadRecords = %v, %v", ok, err)
	}
	if len(got) != 2 || got[0].ID != "rec1" || got[1].Fields["Article Title"] != "Two" {
		t.Fatalf("unexpected records %+v", got)
	}
	clients, _ := got[0].Fields["Clients"].([]any)
	if len(clients) != 1 || clients[0] != "recA" {
		t.Fatalf("expected linked clients to survive the round trip, got %v", got[0].Fields["Clients"])
	}
}

func TestLoadMissIsNotAnError(t *testing.T) {
	store, _ := setupTestRedis(t)

	got, ok, err := store.LoadRecords(context.Background(), Key{Kind: "keywords"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok || got != nil {
		t.Fatalf("expected miss, got %v %v", ok, got)
	}
}

func TestEntriesExpire(t *testing.T) {
	store, s := setupTestRedis(t)
	ctx := context.Background()
	key := Key{Kind: "briefs"}

	if err := store.SaveRecords(ctx, key, nil); err != nil {
		t.Fatalf("SaveRecords failed: %v", err)
	}
	if _, ok, _ := store.LoadRecords(ctx, key); !ok {
		t.Fatal("expected hit before expiry")
	}

	s.FastForward(2 * time.Minute)

	if _, ok, _ := store.LoadRecords(ctx, key); ok {
		t.Fatal("expected miss after expiry")
	}
}

func TestKeysAreIsolated(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()

	a := Key{Kind: "keywords", Month: "May 2025", Client: "recA"}
	b := Key{Kind: "keywords", Month: "May 2025", Client: "recB"}
	if err := store.SaveRecords(ctx, a, []airtable.Record{{ID: "only-a"}}); err != nil {
		t.Fatalf("SaveRecords failed: %v", err)
	}
	if _, ok, _ := store.LoadRecords(ctx, b); ok {
		t.Fatal("client B must not read client A's entry")
	}
}

func TestKeyString(t *testing.T) {
	if got := (Key{Kind: "keywords"}).String(); got != "keywords:any:all" {
		t.Fatalf("Key.String() = %q", got)
	}
	if got := (Key{Kind: "briefs", Month: "May 2025", Client: "recA"}).String(); got != "briefs:May_2025:recA" {
		t.Fatalf("Key.String() = %q", got)
	}
}

func TestRevoke(t *testing.T) {
	store, s := setupTestRedis(t)
	ctx := context.Background()

	if err := store.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	revoked, err := store.IsRevoked(ctx, "jti-1")
	if err != nil || !revoked {
		t.Fatalf("IsRevoked = %v, %v", revoked, err)
	}
	if revoked, _ := store.IsRevoked(ctx, "jti-2"); revoked {
		t.Fatal("unrelated token reported revoked")
	}

	s.FastForward(2 * time.Hour)
	if revoked, _ := store.IsRevoked(ctx, "jti-1"); revoked {
		t.Fatal("revocation should lapse with the token")
	}

	if err := store.Revoke(ctx, "jti-old", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("Revoke of expired token failed: %v", err)
	}
}
