package broadcast

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryBusDeliversToMatchingSubscriber(t *testing.T) {
	bus := NewMemoryBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := bus.Subscribe(ctx, "folder-1", "COURSE_OUTLINE")
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), Event{
		FolderID: "folder-1",
		Section:  "COURSE_OUTLINE",
		Channel:  "COORDINATOR",
	}))

	select {
	case event := <-events:
		require.Equal(t, "folder-1", event.FolderID)
		require.Equal(t, "COORDINATOR", event.Channel)
	case <-time.After(time.Second):
		t.Fatal("expected event was not delivered")
	}
}

func TestMemoryBusFiltersByKey(t *testing.T) {
	bus := NewMemoryBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := bus.Subscribe(ctx, "folder-1", "ASSIGNMENTS")
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), Event{FolderID: "folder-2", Section: "ASSIGNMENTS"}))
	require.NoError(t, bus.Publish(context.Background(), Event{FolderID: "folder-1", Section: "QUIZZES"}))

	select {
	case event := <-events:
		t.Fatalf("unexpected event delivered: %+v", event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryBusSectionWildcard(t *testing.T) {
	bus := NewMemoryBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := bus.Subscribe(ctx, "folder-1", "")
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), Event{FolderID: "folder-1", Section: "MIDTERM"}))

	select {
	case event := <-events:
		require.Equal(t, "MIDTERM", event.Section)
	case <-time.After(time.Second):
		t.Fatal("wildcard subscriber should receive any section")
	}
}

func TestMemoryBusUnsubscribeOnCancel(t *testing.T) {
	bus := NewMemoryBus()
	ctx, cancel := context.WithCancel(context.Background())

	events, err := bus.Subscribe(ctx, "folder-1", "")
	require.NoError(t, err)

	cancel()
	require.Eventually(t, func() bool {
		_, open := <-events
		return !open
	}, time.Second, 10*time.Millisecond)
}
