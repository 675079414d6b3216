package events

import (
	"context"
	"encoding/json"

	"example.com/clubsync/internal/cache"
)

// InvalidationHandler drops cached leaderboards when a sync run lands. The
// driver does the same in-process; this path keeps replicas that did not run
// the sync consistent.
type InvalidationHandler struct {
	invalidator cache.Invalidator
}

// NewInvalidationHandler constructs an invalidation handler.
func NewInvalidationHandler(invalidator cache.Invalidator) Handler {
	return &InvalidationHandler{invalidator: invalidator}
}

// Handle invalidates all cached leaderboards on sync.completed events.
func (h *InvalidationHandler) Handle(ctx context.Context, msg Message) error {
	if msg.Headers["event_type"] != TypeSyncCompleted {
		return nil
	}

	var evt SyncCompleted
	if err := json.Unmarshal(msg.Payload, &evt); err != nil {
		return err
	}
	if evt.Succeeded == 0 {
		return nil
	}
	return h.invalidator.InvalidateAll(ctx)
}
