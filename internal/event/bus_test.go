package event

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInMemoryBus(t *testing.T) {
	t.Parallel()

	t.Run("publish reaches a live subscriber", func(t *testing.T) {
		bus := NewBus()
		events, unsubscribe := bus.Subscribe()
		defer unsubscribe()

		bus.Publish(Event{ID: "e-1", Type: TypeRecordRestored})

		e := <-events
		require.Equal(t, "e-1", e.ID)
		require.Equal(t, TypeRecordRestored, e.Type)
	})

	t.Run("unsubscribe closes the channel", func(t *testing.T) {
		bus := NewBus()
		events, unsubscribe := bus.Subscribe()

		unsubscribe()

		_, open := <-events
		require.False(t, open)

		// Publishing to a bus with no subscribers must not panic.
		bus.Publish(Event{ID: "e-2", Type: TypeRestoreFailed})
	})

	t.Run("a full subscriber never blocks the publisher", func(t *testing.T) {
		bus := NewBus()
		_, unsubscribe := bus.Subscribe()
		defer unsubscribe()

		for i := 0; i < 250; i++ {
			bus.Publish(Event{ID: "flood", Type: TypeRestoreRejected})
		}
	})
}

func TestLogSubscriber(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	events := make(chan Event, 2)
	events <- Event{ID: "e-9", Type: TypeRecordRestored, ActorID: "u-1", Timestamp: "2026-08-30T10:00:00Z"}
	close(events)

	LogSubscriber(logger, events)

	out := buf.String()
	require.Contains(t, out, "record.restored")
	require.Contains(t, out, "e-9")
	require.Contains(t, out, "u-1")
}
