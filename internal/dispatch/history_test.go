package dispatch

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory_BoundedFIFO(t *testing.T) {
	d := newTestDispatcher(WithHistoryCapacity(5))
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		_, err := d.Publish(ctx, fmt.Sprintf("ev.%d", i), i)
		require.NoError(t, err)
	}

	got := d.History(0)
	require.Len(t, got, 5, "history must never exceed capacity")
	// Oldest entry evicted, newest present, publish order preserved.
	assert.Equal(t, "ev.1", got[0].Name)
	assert.Equal(t, "ev.5", got[4].Name)
}

func TestHistory_Limit(t *testing.T) {
	d := newTestDispatcher()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := d.Publish(ctx, fmt.Sprintf("ev.%d", i), nil)
		require.NoError(t, err)
	}

	got := d.History(3)
	require.Len(t, got, 3)
	assert.Equal(t, "ev.7", got[0].Name)
	assert.Equal(t, "ev.9", got[2].Name)
}

func TestHistory_ForName(t *testing.T) {
	d := newTestDispatcher()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := d.Publish(ctx, "keep", i)
		require.NoError(t, err)
		_, err = d.Publish(ctx, "skip", i)
		require.NoError(t, err)
	}

	got := d.HistoryFor("keep", 2)
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].Payload)
	assert.Equal(t, 3, got[1].Payload)
}

func TestHistory_RecordsPreMiddlewareEvent(t *testing.T) {
	d := newTestDispatcher()
	d.Use(func(ev Event) (Event, error) {
		ev.Payload = "rewritten"
		return ev, nil
	})

	_, err := d.Publish(context.Background(), "x", "original")
	require.NoError(t, err)

	got := d.History(1)
	require.Len(t, got, 1)
	assert.Equal(t, "original", got[0].Payload)
}

func TestHistory_EventMetadata(t *testing.T) {
	d := newTestDispatcher()

	_, err := d.Publish(context.Background(), "x", nil,
		WithSource("dashboard"), WithField("batch", 7))
	require.NoError(t, err)

	got := d.History(1)
	require.Len(t, got, 1)
	assert.NotEmpty(t, got[0].ID)
	assert.False(t, got[0].Timestamp.IsZero())
	assert.Equal(t, "dashboard", got[0].Source)
	assert.Equal(t, 7, got[0].Fields["batch"])
}
