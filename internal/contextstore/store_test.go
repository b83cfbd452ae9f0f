package contextstore

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/kwetupizza-backend/internal/conversation"
	pkgerrors "github.com/angelmondragon/kwetupizza-backend/pkg/errors"
	"github.com/angelmondragon/kwetupizza-backend/pkg/redis"
)

// fakeRedis expires keys on the wall clock like Redis does.
type fakeRedis struct {
	mu        sync.Mutex
	values    map[string]string
	ttls      map[string]time.Duration
	deadlines map[string]time.Time
	extends   int
	getErr    error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}, ttls: map[string]time.Duration{}, deadlines: map[string]time.Time{}}
}

func (f *fakeRedis) expire(key string, ttl time.Duration) {
	f.ttls[key] = ttl
	if ttl > 0 {
		f.deadlines[key] = time.Now().Add(ttl)
	}
}

// live must be called with mu held.
func (f *fakeRedis) live(key string) bool {
	if deadline, ok := f.deadlines[key]; ok && time.Now().After(deadline) {
		delete(f.values, key)
		delete(f.deadlines, key)
	}
	_, ok := f.values[key]
	return ok
}

func (f *fakeRedis) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.live(key)
}

func (f *fakeRedis) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return "", f.getErr
	}
	if !f.live(key) {
		return "", redis.Nil
	}
	return f.values[key], nil
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		f.values[key] = string(v)
	case string:
		f.values[key] = v
	}
	f.expire(key, ttl)
	return nil
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.values, k)
	}
	return nil
}

func (f *fakeRedis) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.live(key) {
		return false, nil
	}
	f.values[key] = value.(string)
	f.expire(key, ttl)
	return true, nil
}

func (f *fakeRedis) DelIfValue(_ context.Context, key, value string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.live(key) || f.values[key] != value {
		return false, nil
	}
	delete(f.values, key)
	delete(f.deadlines, key)
	return true, nil
}

func (f *fakeRedis) ExpireIfValue(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.live(key) || f.values[key] != value {
		return false, nil
	}
	f.expire(key, ttl)
	f.extends++
	return true, nil
}

func (f *fakeRedis) ConversationKey(identity string) string { return "kp:conversation:" + identity }
func (f *fakeRedis) LockKey(scope, id string) string        { return "kp:lock:" + scope + ":" + id }

func newTestStore(t *testing.T, client *fakeRedis, now time.Time) *Store {
	t.Helper()
	store, err := New(Params{
		Client:   client,
		LockWait: 200 * time.Millisecond,
		Clock:    func() time.Time { return now },
	})
	require.NoError(t, err)
	return store
}

func TestStoreGetReturnsIdleWhenMissing(t *testing.T) {
	store := newTestStore(t, newFakeRedis(), time.Now())
	got, err := store.Get(context.Background(), "255700000001")
	require.NoError(t, err)
	assert.True(t, got.Idle())
}

func TestStorePutStampsActivityAndTTL(t *testing.T) {
	client := newFakeRedis()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	store := newTestStore(t, client, now)
	ctx := context.Background()

	in := conversation.Context{
		Awaiting: conversation.StateQuantity,
		Cart: conversation.Cart{conversation.DraftCartLine{LineProduct: conversation.LineProduct{
			ProductID: 3, ProductName: "Margherita", UnitPrice: decimal.NewFromInt(18000),
		}}},
	}
	saved, err := store.Put(ctx, "255700000001", in)
	require.NoError(t, err)
	assert.True(t, saved.LastActivity.Equal(now))
	assert.Equal(t, 24*time.Hour, client.ttls["kp:conversation:255700000001"])

	got, err := store.Get(ctx, "255700000001")
	require.NoError(t, err)
	assert.Equal(t, conversation.StateQuantity, got.Awaiting)
	assert.True(t, got.LastActivity.Equal(now))
	require.Len(t, got.Cart, 1)
}

func TestStoreSaveClearsIdleContext(t *testing.T) {
	client := newFakeRedis()
	store := newTestStore(t, client, time.Now())
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "255700000001", conversation.Context{Awaiting: conversation.StateAddress}))
	assert.Contains(t, client.values, "kp:conversation:255700000001")

	require.NoError(t, store.Save(ctx, "255700000001", conversation.Context{}))
	assert.NotContains(t, client.values, "kp:conversation:255700000001")
	require.NoError(t, store.Clear(ctx, "255700000001"))
}

func TestStoreGetDiscardsCorruptRecord(t *testing.T) {
	client := newFakeRedis()
	client.values["kp:conversation:255700000001"] = `{"awaiting":"awaiting_quantity"}`
	store := newTestStore(t, client, time.Now())

	got, err := store.Get(context.Background(), "255700000001")
	require.NoError(t, err)
	assert.True(t, got.Idle())
}

func TestStoreGetSurfacesRedisFailure(t *testing.T) {
	client := newFakeRedis()
	client.getErr = errors.New("connection refused")
	store := newTestStore(t, client, time.Now())

	_, err := store.Get(context.Background(), "255700000001")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestStoreLockSerializesIdentity(t *testing.T) {
	client := newFakeRedis()
	store := newTestStore(t, client, time.Now())
	ctx := context.Background()

	unlock, err := store.Lock(ctx, "255700000001")
	require.NoError(t, err)

	_, err = store.Lock(ctx, "255700000001")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	other, err := store.Lock(ctx, "255700000002")
	require.NoError(t, err)
	require.NoError(t, other(ctx))

	require.NoError(t, unlock(ctx))
	again, err := store.Lock(ctx, "255700000001")
	require.NoError(t, err)
	require.NoError(t, again(ctx))
}

func TestStoreLockWaitsForRelease(t *testing.T) {
	client := newFakeRedis()
	store, err := New(Params{Client: client, LockWait: 2 * time.Second})
	require.NoError(t, err)
	ctx := context.Background()

	unlock, err := store.Lock(ctx, "255700000001")
	require.NoError(t, err)
	go func() {
		time.Sleep(100 * time.Millisecond)
		_ = unlock(ctx)
	}()

	second, err := store.Lock(ctx, "255700000001")
	require.NoError(t, err)
	client.mu.Lock()
	for key := range client.values {
		assert.True(t, strings.HasPrefix(key, "kp:lock:conversation:"))
	}
	client.mu.Unlock()
	require.NoError(t, second(ctx))
}

func TestStoreLockOutlivesItsTTLWhileHeld(t *testing.T) {
	client := newFakeRedis()
	store, err := New(Params{Client: client, LockTTL: 60 * time.Millisecond, LockWait: 30 * time.Millisecond})
	require.NoError(t, err)
	ctx := context.Background()

	unlock, err := store.Lock(ctx, "255700000001")
	require.NoError(t, err)

	// a slow turn holds the identity for several TTLs
	time.Sleep(250 * time.Millisecond)
	_, err = store.Lock(ctx, "255700000001")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	require.NoError(t, unlock(ctx))
	assert.False(t, client.has("kp:lock:conversation:255700000001"))
	client.mu.Lock()
	extends := client.extends
	client.mu.Unlock()
	assert.Positive(t, extends)

	next, err := store.Lock(ctx, "255700000001")
	require.NoError(t, err)
	require.NoError(t, next(ctx))
}

func TestStoreLockExpiresWithoutRenewal(t *testing.T) {
	client := newFakeRedis()
	store, err := New(Params{Client: client, LockTTL: 40 * time.Millisecond, LockWait: 200 * time.Millisecond})
	require.NoError(t, err)
	ctx := context.Background()

	// a crashed holder leaves a lock nobody renews
	_, err = client.SetNX(ctx, "kp:lock:conversation:255700000001", "crashed-worker", 40*time.Millisecond)
	require.NoError(t, err)

	unlock, err := store.Lock(ctx, "255700000001")
	require.NoError(t, err)
	require.NoError(t, unlock(ctx))
}
