package eventbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relengworks/shipit/pkg/channels/gochannel"
	"github.com/relengworks/shipit/pkg/eventbus"
	"github.com/relengworks/shipit/pkg/events"
)

func TestWatermillEventBus_PublishSubscribe(t *testing.T) {
	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)

	defer func() {
		err := bus.Close()
		if err != nil {
			t.Logf("Failed to close event bus: %v", err)
		}
	}()

	received := make(chan *events.PhaseSubmitted, 1)

	err = bus.Handle(events.PhaseSubmittedEvent, func(_ context.Context, event any) error {
		submitted, ok := event.(*events.PhaseSubmitted)
		if ok {
			received <- submitted
		}

		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	err = bus.Publish(ctx, "firefox-133.0-build1", events.PhaseSubmitted{
		BaseEvent: events.BaseEvent{
			ID:        bus.GenerateID(),
			Type:      events.PhaseSubmittedEvent,
			Timestamp: time.Now().UTC(),
			Release:   "firefox-133.0-build1",
		},
		Phase:       "promote_firefox",
		TaskID:      "cHJvbW90ZV90YXNrX2lkXzA",
		CompletedBy: "releng@example.com",
	})
	require.NoError(t, err)

	select {
	case event := <-received:
		assert.Equal(t, "firefox-133.0-build1", event.Release)
		assert.Equal(t, "promote_firefox", event.Phase)
		assert.Equal(t, "releng@example.com", event.CompletedBy)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)

	first := bus.GenerateID()
	second := bus.GenerateID()

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}
