package webhooks

import (
	"context"
	"io"
	"sync"

	"github.com/angelmondragon/kwetupizza-backend/pkg/logger"
)

type memGuard struct {
	mu      sync.Mutex
	seen    map[string]bool
	deletes []string
	err     error
}

func newMemGuard() *memGuard {
	return &memGuard{seen: map[string]bool{}}
}

func (g *memGuard) CheckAndMarkProcessed(_ context.Context, source, id string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return false, g.err
	}
	key := source + ":" + id
	if g.seen[key] {
		return true, nil
	}
	g.seen[key] = true
	return false, nil
}

func (g *memGuard) Delete(_ context.Context, source, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	key := source + ":" + id
	delete(g.seen, key)
	g.deletes = append(g.deletes, key)
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "webhooks-test", Output: io.Discard})
}
