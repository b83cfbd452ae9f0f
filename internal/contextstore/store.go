package contextstore

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/angelmondragon/kwetupizza-backend/internal/conversation"
	pkgerrors "github.com/angelmondragon/kwetupizza-backend/pkg/errors"
	"github.com/angelmondragon/kwetupizza-backend/pkg/logger"
	"github.com/angelmondragon/kwetupizza-backend/pkg/redis"
)

const (
	defaultTTL      = 24 * time.Hour
	defaultLockTTL  = 30 * time.Second
	defaultLockWait = 10 * time.Second
	lockPoll        = 50 * time.Millisecond
	lockScope       = "conversation"
)

// ErrLockTimeout is returned when another invocation holds the identity for
// longer than the configured wait.
var ErrLockTimeout = pkgerrors.New(pkgerrors.CodeConflict, "conversation is busy")

// redisStore defines the operations used by Store.
type redisStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	DelIfValue(ctx context.Context, key, value string) (bool, error)
	ExpireIfValue(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	ConversationKey(identity string) string
	LockKey(scope, id string) string
}

// Unlock releases a per-identity lock.
type Unlock func(ctx context.Context) error

// Store keeps one conversation.Context per identity in Redis.
type Store struct {
	client   redisStore
	logg     *logger.Logger
	ttl      time.Duration
	lockTTL  time.Duration
	lockWait time.Duration
	now      func() time.Time
}

// Params wires Store.
type Params struct {
	Client   redisStore
	Logger   *logger.Logger
	TTL      time.Duration
	LockTTL  time.Duration
	LockWait time.Duration
	Clock    func() time.Time
}

// New constructs a Store.
func New(p Params) (*Store, error) {
	if p.Client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "redis client required")
	}
	s := &Store{
		client:   p.Client,
		logg:     p.Logger,
		ttl:      p.TTL,
		lockTTL:  p.LockTTL,
		lockWait: p.LockWait,
		now:      p.Clock,
	}
	if s.ttl <= 0 {
		s.ttl = defaultTTL
	}
	if s.lockTTL <= 0 {
		s.lockTTL = defaultLockTTL
	}
	if s.lockWait <= 0 {
		s.lockWait = defaultLockWait
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// Get returns the stored context, or a fresh idle one when absent. An
// unreadable record is treated as absent.
func (s *Store) Get(ctx context.Context, identity string) (conversation.Context, error) {
	raw, err := s.client.Get(ctx, s.client.ConversationKey(identity))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return conversation.Context{}, nil
		}
		return conversation.Context{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read conversation context")
	}
	var out conversation.Context
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithPhone(ctx, identity), "discarding unreadable conversation context")
		}
		return conversation.Context{}, nil
	}
	return out, nil
}

// Put stores the whole context, stamping LastActivity and resetting the TTL.
func (s *Store) Put(ctx context.Context, identity string, c conversation.Context) (conversation.Context, error) {
	c.LastActivity = s.now().UTC()
	raw, err := json.Marshal(c)
	if err != nil {
		return c, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode conversation context")
	}
	if err := s.client.Set(ctx, s.client.ConversationKey(identity), raw, s.ttl); err != nil {
		return c, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write conversation context")
	}
	return c, nil
}

// Clear deletes the context. Deleting a missing key is not an error.
func (s *Store) Clear(ctx context.Context, identity string) error {
	if err := s.client.Del(ctx, s.client.ConversationKey(identity)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear conversation context")
	}
	return nil
}

// Save puts non-idle contexts and clears idle ones.
func (s *Store) Save(ctx context.Context, identity string, c conversation.Context) error {
	if c.Idle() {
		return s.Clear(ctx, identity)
	}
	_, err := s.Put(ctx, identity, c)
	return err
}

// Lock serializes read-modify-write cycles for one identity. It polls until
// the lock is free or the wait elapses. While held, the lock TTL is renewed
// every third of its length, so a turn slower than the TTL keeps exclusive
// ownership until Unlock runs. A crashed holder frees the identity after one
// TTL.
func (s *Store) Lock(ctx context.Context, identity string) (Unlock, error) {
	key := s.client.LockKey(lockScope, identity)
	owner := uuid.NewString()

	backoff := retry.WithMaxDuration(s.lockWait, retry.NewConstant(lockPoll))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		ok, err := s.client.SetNX(ctx, key, owner, s.lockTTL)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire conversation lock")
		}
		if !ok {
			return retry.RetryableError(ErrLockTimeout)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go s.keepAlive(context.WithoutCancel(ctx), identity, key, owner, stop, done)

	var once sync.Once
	return func(ctx context.Context) error {
		once.Do(func() {
			close(stop)
			<-done
		})
		if _, err := s.client.DelIfValue(ctx, key, owner); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release conversation lock")
		}
		return nil
	}, nil
}

func (s *Store) keepAlive(ctx context.Context, identity, key, owner string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.lockTTL / 3)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			extended, err := s.client.ExpireIfValue(ctx, key, owner, s.lockTTL)
			if err != nil {
				if s.logg != nil {
					s.logg.Error(s.logg.WithPhone(ctx, identity), "failed to extend conversation lock", err)
				}
				continue
			}
			if !extended {
				if s.logg != nil {
					s.logg.Warn(s.logg.WithPhone(ctx, identity), "conversation lock lost before release")
				}
				return
			}
		}
	}
}
