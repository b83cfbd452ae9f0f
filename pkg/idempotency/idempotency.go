package idempotency

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/angelmondragon/kwetupizza-backend/pkg/redis"
)

// Source names a webhook stream whose deliveries are deduplicated.
const (
	SourceWhatsAppMessage = "whatsapp-message"
	SourceFlutterwave     = "flutterwave-event"
)

// Manager tracks processed delivery ids per source using Redis SETNX with a TTL.
// Keys follow the `kp:idempotency:<source>:<id>` pattern.
type Manager struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

// NewManager builds an idempotency guard that marks deliveries as processed for the given TTL.
func NewManager(store redis.IdempotencyStore, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Manager{
		store: store,
		ttl:   ttl,
	}, nil
}

// CheckAndMarkProcessed returns true if the delivery has already been seen and
// otherwise marks it with the configured TTL.
func (m *Manager) CheckAndMarkProcessed(ctx context.Context, source, id string) (bool, error) {
	key, err := m.processedKey(source, id)
	if err != nil {
		return false, err
	}
	set, err := m.store.SetNX(ctx, key, "1", m.ttl)
	if err != nil {
		return false, err
	}
	return !set, nil
}

// Delete forgets a delivery so a provider retry is processed again.
func (m *Manager) Delete(ctx context.Context, source, id string) error {
	key, err := m.processedKey(source, id)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

func (m *Manager) processedKey(source, id string) (string, error) {
	if source == "" {
		return "", errors.New("source name is required")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.New("delivery id is required")
	}
	return m.store.IdempotencyKey(source, id), nil
}
