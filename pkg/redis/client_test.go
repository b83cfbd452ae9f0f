package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/angelmondragon/kwetupizza-backend/pkg/config"
	"github.com/redis/go-redis/v9"
)

func TestSetNXAndDelIfValue(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	ok, err := client.SetNX(ctx, "kp:lock:conversation:1", "owner-a", time.Second)
	if err != nil || !ok {
		t.Fatalf("expected first SetNX to win, ok=%v err=%v", ok, err)
	}
	ok, err = client.SetNX(ctx, "kp:lock:conversation:1", "owner-b", time.Second)
	if err != nil || ok {
		t.Fatalf("expected second SetNX to lose, ok=%v err=%v", ok, err)
	}

	removed, err := client.DelIfValue(ctx, "kp:lock:conversation:1", "owner-b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed {
		t.Fatalf("non-owner must not release the lock")
	}

	removed, err = client.DelIfValue(ctx, "kp:lock:conversation:1", "owner-a")
	if err != nil || !removed {
		t.Fatalf("owner release failed removed=%v err=%v", removed, err)
	}
	if _, err := client.Get(ctx, "kp:lock:conversation:1"); !errors.Is(err, Nil) {
		t.Fatalf("expected Nil after release, got %v", err)
	}
}

func TestExpireIfValueOnlyExtendsOwner(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	if ok, err := client.SetNX(ctx, "kp:lock:conversation:1", "owner-a", time.Second); err != nil || !ok {
		t.Fatalf("expected SetNX to win, ok=%v err=%v", ok, err)
	}
	extended, err := client.ExpireIfValue(ctx, "kp:lock:conversation:1", "owner-b", 30*time.Second)
	if err != nil || extended {
		t.Fatalf("non-owner must not extend the lock, extended=%v err=%v", extended, err)
	}
	extended, err = client.ExpireIfValue(ctx, "kp:lock:conversation:1", "owner-a", 30*time.Second)
	if err != nil || !extended {
		t.Fatalf("owner extend failed extended=%v err=%v", extended, err)
	}
	if got := mock.ttls["kp:lock:conversation:1"]; got != 30*time.Second {
		t.Fatalf("expected ttl 30s, got %v", got)
	}
	if extended, _ := client.ExpireIfValue(ctx, "kp:lock:conversation:2", "owner-a", time.Second); extended {
		t.Fatal("missing key must not be reported as extended")
	}
}

func TestUninitializedClient(t *testing.T) {
	client := &Client{}
	if err := client.Set(context.Background(), "k", "v", 0); err == nil {
		t.Fatal("expected error from uninitialized client")
	}
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected ping error from uninitialized client")
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	if got := client.IdempotencyKey("whatsapp-message", "wamid.1"); got != "kp:idempotency:whatsapp-message:wamid.1" {
		t.Fatalf("unexpected idempotency key %s", got)
	}
	if got := client.ConversationKey("255700000001"); got != "kp:conversation:255700000001" {
		t.Fatalf("unexpected conversation key %s", got)
	}
	if got := client.LockKey("conversation", " 255700000001 "); got != "kp:lock:conversation:255700000001" {
		t.Fatalf("unexpected lock key %s", got)
	}
	if got := client.LockKey("cron", ""); got != "kp:lock:cron" {
		t.Fatalf("empty parts should be skipped, got %s", got)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected error without url or address")
	}
	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://localhost:6379/2", PoolSize: 7, DialTimeout: time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.DB != 2 || opts.PoolSize != 7 || opts.DialTimeout != time.Second {
		t.Fatalf("unexpected options %+v", opts)
	}
	opts, err = optionsFromConfig(config.RedisConfig{Address: "cache:6379", DB: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Addr != "cache:6379" || opts.DB != 3 {
		t.Fatalf("unexpected address options %+v", opts)
	}
}

type mockCmdable struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (m *mockCmdable) Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd {
	if len(keys) != 1 || len(args) == 0 {
		return redis.NewCmdResult(nil, errors.New("unexpected script arguments"))
	}
	current, ok := m.data[keys[0]]
	if !ok || current != fmt.Sprint(args[0]) {
		return redis.NewCmdResult(int64(0), nil)
	}
	switch script {
	case compareAndDelete:
		delete(m.data, keys[0])
	case compareAndExpire:
		ms, _ := args[1].(int64)
		m.ttls[keys[0]] = time.Duration(ms) * time.Millisecond
	default:
		return redis.NewCmdResult(nil, errors.New("unexpected script"))
	}
	return redis.NewCmdResult(int64(1), nil)
}
