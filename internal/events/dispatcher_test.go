package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDispatcherDeliversToSubscribers(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	var seen []string
	dispatcher.Subscribe(EventThreadCreated, func(_ context.Context, event Event) error {
		seen = append(seen, event.TicketKey)
		return nil
	})
	dispatcher.Subscribe(EventThreadCreated, func(_ context.Context, event Event) error {
		seen = append(seen, event.TicketKey+"-second")
		return nil
	})

	err := dispatcher.Publish(context.Background(), Event{Type: EventThreadCreated, TicketKey: "PROJ-9"})
	assert.NoError(t, err)
	assert.Equal(t, []string{"PROJ-9", "PROJ-9-second"}, seen)
}

func TestDispatcherHandlerErrorDoesNotBlockOthers(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	reached := false
	dispatcher.Subscribe(EventReplySynced, func(context.Context, Event) error {
		return errors.New("handler broke")
	})
	dispatcher.Subscribe(EventReplySynced, func(context.Context, Event) error {
		reached = true
		return nil
	})

	err := dispatcher.Publish(context.Background(), Event{Type: EventReplySynced})
	assert.NoError(t, err)
	assert.True(t, reached)
}

func TestDispatcherIgnoresUnsubscribedTypes(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	called := false
	dispatcher.Subscribe(EventClosureNotified, func(context.Context, Event) error {
		called = true
		return nil
	})

	err := dispatcher.Publish(context.Background(), Event{Type: EventWebhookIgnored})
	assert.NoError(t, err)
	assert.False(t, called)
}
