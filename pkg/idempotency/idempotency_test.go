package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeStore struct {
	setNXResult bool
	setNXError  error
	lastKey     string
	lastTTL     time.Duration
	lastDeleted string
}

func (f *fakeStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	f.lastKey = key
	f.lastTTL = ttl
	return f.setNXResult, f.setNXError
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return "kp:idempotency:" + scope + ":" + id
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	if len(keys) > 0 {
		f.lastDeleted = keys[0]
	}
	return nil
}

func TestCheckAndMarkProcessed_FirstTime(t *testing.T) {
	store := &fakeStore{setNXResult: true}
	manager, err := NewManager(store, 72*time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	already, err := manager.CheckAndMarkProcessed(context.Background(), SourceWhatsAppMessage, "wamid.HBgM")
	if err != nil {
		t.Fatalf("CheckAndMarkProcessed: %v", err)
	}
	if already {
		t.Fatalf("expected first call to return false, got true")
	}
	if store.lastKey != "kp:idempotency:whatsapp-message:wamid.HBgM" {
		t.Fatalf("unexpected key: %q", store.lastKey)
	}
	if store.lastTTL != 72*time.Hour {
		t.Fatalf("unexpected ttl: %v", store.lastTTL)
	}
}

func TestCheckAndMarkProcessed_AlreadyProcessed(t *testing.T) {
	store := &fakeStore{setNXResult: false}
	manager, err := NewManager(store, time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	already, err := manager.CheckAndMarkProcessed(context.Background(), SourceFlutterwave, "4567")
	if err != nil {
		t.Fatalf("CheckAndMarkProcessed: %v", err)
	}
	if !already {
		t.Fatalf("expected already processed, got false")
	}
}

func TestCheckAndMarkProcessed_StoreError(t *testing.T) {
	store := &fakeStore{setNXError: errors.New("redis down")}
	manager, _ := NewManager(store, time.Hour)

	if _, err := manager.CheckAndMarkProcessed(context.Background(), SourceFlutterwave, "4567"); err == nil {
		t.Fatal("expected store error to surface")
	}
}

func TestCheckAndMarkProcessed_RequiresID(t *testing.T) {
	manager, _ := NewManager(&fakeStore{setNXResult: true}, time.Hour)
	if _, err := manager.CheckAndMarkProcessed(context.Background(), SourceWhatsAppMessage, "  "); err == nil {
		t.Fatal("expected empty id to be rejected")
	}
}

func TestDeleteRemovesKey(t *testing.T) {
	store := &fakeStore{}
	manager, _ := NewManager(store, time.Hour)

	if err := manager.Delete(context.Background(), SourceWhatsAppMessage, "wamid.1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if store.lastDeleted != "kp:idempotency:whatsapp-message:wamid.1" {
		t.Fatalf("unexpected deleted key: %q", store.lastDeleted)
	}
}

func TestNewManagerValidation(t *testing.T) {
	if _, err := NewManager(nil, time.Hour); err == nil {
		t.Fatal("expected nil store to fail")
	}
	if _, err := NewManager(&fakeStore{}, -time.Second); err == nil {
		t.Fatal("expected negative ttl to fail")
	}
}
