package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDispatcher_PublishRunsAllHandlers(t *testing.T) {
	d := NewInMemoryDispatcher()

	var calls []string
	d.Subscribe(EventBookingCreated, func(_ context.Context, e Event) error {
		calls = append(calls, "first:"+e.BookingID)
		return errors.New("first failed")
	})
	d.Subscribe(EventBookingCreated, func(_ context.Context, e Event) error {
		calls = append(calls, "second:"+e.BookingID)
		return nil
	})
	d.Subscribe(EventBookingDeleted, func(context.Context, Event) error {
		t.Fatal("unexpected handler")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventBookingCreated, BookingID: "b1"})

	assert.ErrorContains(t, err, "first failed")
	assert.Equal(t, []string{"first:b1", "second:b1"}, calls)
}

func TestDispatcher_NoListeners(t *testing.T) {
	d := NewInMemoryDispatcher()
	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventBookingExpired}))
}
