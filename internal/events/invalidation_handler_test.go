package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/clubsync/internal/cache"
)

func TestInvalidationOnSyncCompleted(t *testing.T) {
	ctx := context.Background()

	c := cache.NewLeaderboards(0)
	c.Set(cache.Key{GroupID: "club-a", Year: 2026}, "stale")

	handler := NewInvalidationHandler(c)

	payload, err := json.Marshal(SyncCompleted{RunID: "r-1", Accounts: 2, Succeeded: 2})
	require.NoError(t, err)

	msg := Message{
		Payload: payload,
		Headers: map[string]string{"event_type": TypeSyncCompleted},
	}
	require.NoError(t, handler.Handle(ctx, msg))

	_, ok := c.Get(cache.Key{GroupID: "club-a", Year: 2026})
	require.False(t, ok)
}

func TestInvalidationSkipsOtherEvents(t *testing.T) {
	ctx := context.Background()

	c := cache.NewLeaderboards(0)
	c.Set(cache.Key{GroupID: "club-a", Year: 2026}, "fresh")

	handler := NewInvalidationHandler(c)

	msg := Message{
		Payload: json.RawMessage(`{"athlete_id":42}`),
		Headers: map[string]string{"event_type": TypeAccountSynced},
	}
	require.NoError(t, handler.Handle(ctx, msg))

	got, ok := c.Get(cache.Key{GroupID: "club-a", Year: 2026})
	require.True(t, ok)
	require.Equal(t, "fresh", got)
}

func TestInvalidationKeepsCacheWhenNothingSynced(t *testing.T) {
	ctx := context.Background()

	c := cache.NewLeaderboards(0)
	c.Set(cache.Key{GroupID: "club-a", Year: 2026}, "fresh")

	handler := NewInvalidationHandler(c)

	payload, err := json.Marshal(SyncCompleted{RunID: "r-2", Accounts: 3, Failed: 3})
	require.NoError(t, err)

	require.NoError(t, handler.Handle(ctx, Message{
		Payload: payload,
		Headers: map[string]string{"event_type": TypeSyncCompleted},
	}))

	_, ok := c.Get(cache.Key{GroupID: "club-a", Year: 2026})
	require.True(t, ok)
}
