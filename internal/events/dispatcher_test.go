package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherDeliversToSubscribers(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	var seen []Event
	dispatcher.Subscribe(EventTicketCreated, func(ctx context.Context, event Event) error {
		seen = append(seen, event)
		return nil
	})

	err := dispatcher.Publish(context.Background(), Event{Type: EventTicketCreated, TicketID: "ticket-1"})
	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.Equal(t, "ticket-1", seen[0].TicketID)
}

func TestDispatcherIgnoresOtherEventTypes(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	called := false
	dispatcher.Subscribe(EventTicketCreated, func(ctx context.Context, event Event) error {
		called = true
		return nil
	})

	err := dispatcher.Publish(context.Background(), Event{Type: EventAttachmentAdded})
	require.NoError(t, err)
	assert.False(t, called)
}

func TestDispatcherContinuesPastHandlerErrors(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	order := []string{}
	dispatcher.Subscribe(EventResponseRecorded, func(ctx context.Context, event Event) error {
		order = append(order, "first")
		return errors.New("handler failed")
	})
	dispatcher.Subscribe(EventResponseRecorded, func(ctx context.Context, event Event) error {
		order = append(order, "second")
		return nil
	})

	err := dispatcher.Publish(context.Background(), Event{Type: EventResponseRecorded})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, order)
}
