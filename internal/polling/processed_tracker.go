package polling

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ProcessedCountTracker mirrors a Runtime's processed-project counter in
// Redis, following crs-scheduler's SaveBroadcastedTask/RemoveBroadcastedTask
// pair (service/task_service.go) but generalized from "a set of in-flight
// task ids" to "a single counter". It exists purely so /polling/status can
// report a processed_projects_count that survives a process restart; it is
// never read to decide whether a project may be processed, only to report
// the metric, since the in-flight set and the database row remain the sole
// correctness mechanisms.
type ProcessedCountTracker struct {
	client *redis.Client
	key    string
}

// NewProcessedCountTracker builds a tracker namespaced per agent so two
// agent binaries never share a counter.
func NewProcessedCountTracker(client *redis.Client, agentNamespace string) *ProcessedCountTracker {
	return &ProcessedCountTracker{client: client, key: fmt.Sprintf("automl:%s:processed_count", agentNamespace)}
}

// Increment bumps the persisted counter by one.
func (t *ProcessedCountTracker) Increment(ctx context.Context) error {
	return t.client.Incr(ctx, t.key).Err()
}

// Get returns the persisted counter, 0 if never recorded.
func (t *ProcessedCountTracker) Get(ctx context.Context) (int64, error) {
	val, err := t.client.Get(ctx, t.key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return val, err
}
