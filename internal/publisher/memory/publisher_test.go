package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublisherStoresMessages(t *testing.T) {
	t.Parallel()

	pub := New()
	id1, err := pub.Publish(context.Background(), "tasks", map[string]string{"kind": "TASK_CREATED"})
	require.NoError(t, err)
	require.Equal(t, "memory-1", id1)
	id2, err := pub.Publish(context.Background(), "audit", "payload")
	require.NoError(t, err)
	require.Equal(t, "memory-2", id2)

	msgs := pub.Messages()
	require.Len(t, msgs, 2)
	require.Len(t, pub.MessagesFor("tasks"), 1)
	require.Empty(t, pub.MessagesFor("missing"))

	msgs[0].Topic = "modified"
	require.Equal(t, "tasks", pub.Messages()[0].Topic, "Messages() must return a copy")
}

func TestPublisherRejectsCanceledContextAndNilPayload(t *testing.T) {
	t.Parallel()

	pub := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := pub.Publish(ctx, "tasks", "payload")
	require.Error(t, err)

	_, err = pub.Publish(context.Background(), "tasks", nil)
	require.Error(t, err)
	require.Empty(t, pub.Messages())
}

func TestPublisherKeepsMostRecentMessages(t *testing.T) {
	t.Parallel()

	pub := NewWithRetention(3)
	var lastID string
	for i := 1; i <= 5; i++ {
		id, err := pub.Publish(context.Background(), "tasks", i)
		require.NoError(t, err)
		lastID = id
	}

	msgs := pub.Messages()
	require.Len(t, msgs, 3)
	require.Equal(t, []any{3, 4, 5}, []any{msgs[0].Payload, msgs[1].Payload, msgs[2].Payload})
	require.Equal(t, "memory-5", lastID)
	require.EqualValues(t, 5, pub.Published())
}

func TestNewWithRetentionDefaults(t *testing.T) {
	t.Parallel()

	require.Equal(t, DefaultRetention, NewWithRetention(0).retention)
	require.Equal(t, DefaultRetention, New().retention)
}
