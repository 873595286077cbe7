package polling

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// FailureTracker mirrors crs-scheduler's Redis-backed failure counters
// (TaskFailureCountKey), repurposed here as an advisory per-project counter
// only: the database row (not Redis) remains the source of truth for
// whether to keep retrying, since AdvanceStatus's own status check is what
// actually gates re-processing. No agent in this repository wires it in.
type FailureTracker struct {
	client *redis.Client
	prefix string
}

// NewFailureTracker builds a tracker namespaced per agent (e.g.
// "dataset_agent"), so two agents' counters never collide in the same
// Redis instance.
func NewFailureTracker(client *redis.Client, agentNamespace string) *FailureTracker {
	return &FailureTracker{client: client, prefix: fmt.Sprintf("automl:%s:failure_count", agentNamespace)}
}

func (t *FailureTracker) key(projectID string) string {
	return t.prefix + ":" + projectID
}

// Increment bumps and returns the new failure count for a project.
func (t *FailureTracker) Increment(ctx context.Context, projectID string) (int64, error) {
	return t.client.Incr(ctx, t.key(projectID)).Result()
}

// Get returns the current failure count, 0 if never recorded.
func (t *FailureTracker) Get(ctx context.Context, projectID string) (int64, error) {
	val, err := t.client.Get(ctx, t.key(projectID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return val, err
}

// Reset clears the failure count.
func (t *FailureTracker) Reset(ctx context.Context, projectID string) error {
	return t.client.Del(ctx, t.key(projectID)).Err()
}
