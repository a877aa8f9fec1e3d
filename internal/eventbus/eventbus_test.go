package eventbus_test

import (
	"testing"

	"pos-core/internal/eventbus"

	"github.com/stretchr/testify/assert"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	bus := eventbus.New()

	var got1, got2 []eventbus.Event
	bus.Subscribe(func(ev eventbus.Event) { got1 = append(got1, ev) })
	bus.Subscribe(func(ev eventbus.Event) { got2 = append(got2, ev) })

	bus.Publish(eventbus.KindTables, 0)
	bus.Publish(eventbus.KindTableItems, 7)

	assert.Len(t, got1, 2)
	assert.Len(t, got2, 2)
	assert.Equal(t, eventbus.KindTableItems, got1[1].Kind)
	assert.Equal(t, int64(7), got1[1].Subject)
}

func TestCancelStopsDelivery(t *testing.T) {
	bus := eventbus.New()

	var got []eventbus.Event
	sub := bus.Subscribe(func(ev eventbus.Event) { got = append(got, ev) })

	bus.Publish(eventbus.KindSales, 0)
	sub.Cancel()
	bus.Publish(eventbus.KindSales, 0)

	assert.Len(t, got, 1)
}

func TestPublishWithoutSubscribersIsSafe(t *testing.T) {
	bus := eventbus.New()
	assert.NotPanics(t, func() {
		bus.Publish(eventbus.KindCustomers, 9)
	})
}
