package gateway

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"automl-orchestrator/internal/eventbus"
)

// eventsPerProject bounds the in-memory LRU so a single noisy project
// can't grow the cache without limit.
const eventsPerProject = 20

// StatusCache keeps the most recent project-status-changed events per
// project in memory, fed by the eventbus fanout, so GET .../events can
// answer without a DB round trip. Never authoritative: the Project row's
// status column always wins on any disagreement.
type StatusCache struct {
	mu     sync.Mutex
	events map[string][]eventbus.ProjectStatusChanged
	logger *zap.Logger
}

func NewStatusCache(logger *zap.Logger) *StatusCache {
	return &StatusCache{events: make(map[string][]eventbus.ProjectStatusChanged), logger: logger}
}

// Start subscribes to the fanout exchange until ctx is canceled.
func (c *StatusCache) Start(ctx context.Context, bus *eventbus.Bus) error {
	if bus == nil {
		return nil
	}
	return bus.Subscribe(ctx, c.record)
}

func (c *StatusCache) record(event eventbus.ProjectStatusChanged) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := append(c.events[event.ProjectID], event)
	if len(entries) > eventsPerProject {
		entries = entries[len(entries)-eventsPerProject:]
	}
	c.events[event.ProjectID] = entries
}

// Recent returns the cached events for a project, oldest first.
func (c *StatusCache) Recent(projectID string) []eventbus.ProjectStatusChanged {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := c.events[projectID]
	out := make([]eventbus.ProjectStatusChanged, len(entries))
	copy(out, entries)
	return out
}
