package eventbus_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/felixgeelhaar/carebook/internal/shared/infrastructure/eventbus"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	policyUpdated      = "availability.policy.updated"
	appointmentChanged = "booking.appointment.changed"
)

type mockConsumer struct {
	eventTypes []string
	events     []*eventbus.ConsumedEvent
	err        error
}

func (m *mockConsumer) EventTypes() []string {
	return m.eventTypes
}

func (m *mockConsumer) Handle(ctx context.Context, event *eventbus.ConsumedEvent) error {
	m.events = append(m.events, event)
	return m.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func TestConsumerRegistry_Register(t *testing.T) {
	registry := eventbus.NewConsumerRegistry(testLogger())

	consumer := &mockConsumer{
		eventTypes: []string{appointmentChanged, policyUpdated},
	}
	registry.Register(consumer)

	assert.Len(t, registry.GetConsumers(policyUpdated), 1)
	assert.Len(t, registry.GetConsumers(appointmentChanged), 1)
	assert.Empty(t, registry.GetConsumers("unknown.event"))
	assert.Equal(t, []string{policyUpdated, appointmentChanged}, registry.GetAllEventTypes())
}

func TestConsumerRegistry_Unregister(t *testing.T) {
	registry := eventbus.NewConsumerRegistry(testLogger())

	first := &mockConsumer{eventTypes: []string{policyUpdated}}
	second := &mockConsumer{eventTypes: []string{policyUpdated, appointmentChanged}}
	registry.Register(first)
	registry.Register(second)

	registry.Unregister(second)

	assert.Equal(t, []string{policyUpdated}, registry.GetAllEventTypes())
	consumers := registry.GetConsumers(policyUpdated)
	require.Len(t, consumers, 1)
	assert.Same(t, first, consumers[0])

	t.Run("unknown consumer is ignored", func(t *testing.T) {
		registry.Unregister(&mockConsumer{eventTypes: []string{policyUpdated}})
		assert.Len(t, registry.GetConsumers(policyUpdated), 1)
	})
}

func TestConsumerRegistry_GetConsumersReturnsCopy(t *testing.T) {
	registry := eventbus.NewConsumerRegistry(testLogger())
	registry.Register(&mockConsumer{eventTypes: []string{policyUpdated}})

	consumers := registry.GetConsumers(policyUpdated)
	consumers[0] = nil

	assert.NotNil(t, registry.GetConsumers(policyUpdated)[0])
}

func TestConsumerRegistry_Dispatch(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers to every matching consumer", func(t *testing.T) {
		registry := eventbus.NewConsumerRegistry(testLogger())
		a := &mockConsumer{eventTypes: []string{policyUpdated}}
		b := &mockConsumer{eventTypes: []string{policyUpdated}}
		other := &mockConsumer{eventTypes: []string{appointmentChanged}}
		registry.Register(a)
		registry.Register(b)
		registry.Register(other)

		event := &eventbus.ConsumedEvent{EventID: uuid.New(), RoutingKey: policyUpdated}
		require.NoError(t, registry.Dispatch(ctx, event))

		assert.Len(t, a.events, 1)
		assert.Len(t, b.events, 1)
		assert.Empty(t, other.events)
	})

	t.Run("no consumers is not an error", func(t *testing.T) {
		registry := eventbus.NewConsumerRegistry(testLogger())
		assert.NoError(t, registry.Dispatch(ctx, &eventbus.ConsumedEvent{RoutingKey: policyUpdated}))
	})

	t.Run("failures are joined and later consumers still run", func(t *testing.T) {
		registry := eventbus.NewConsumerRegistry(testLogger())
		errBoom := errors.New("boom")
		failing := &mockConsumer{eventTypes: []string{policyUpdated}, err: errBoom}
		healthy := &mockConsumer{eventTypes: []string{policyUpdated}}
		registry.Register(failing)
		registry.Register(healthy)

		err := registry.Dispatch(ctx, &eventbus.ConsumedEvent{RoutingKey: policyUpdated})
		assert.ErrorIs(t, err, errBoom)
		assert.Len(t, healthy.events, 1)
	})
}
