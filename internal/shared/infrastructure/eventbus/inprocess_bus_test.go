package eventbus_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/carebook/internal/shared/domain"
	"github.com/felixgeelhaar/carebook/internal/shared/infrastructure/eventbus"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type physicianEvent struct {
	domain.BaseEvent
	PhysicianID uuid.UUID `json:"physician_id"`
}

func newPhysicianEvent(id uuid.UUID) *physicianEvent {
	return &physicianEvent{
		BaseEvent:   domain.NewBaseEventAt(id, "PhysicianPolicy", policyUpdated, time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)),
		PhysicianID: id,
	}
}

func TestInProcessEventBus_Publish(t *testing.T) {
	bus := eventbus.NewInProcessEventBus(testLogger())
	consumer := &mockConsumer{eventTypes: []string{policyUpdated}}
	bus.RegisterConsumer(consumer)

	event := &eventbus.ConsumedEvent{
		EventID:       uuid.New(),
		AggregateID:   uuid.New(),
		AggregateType: "PhysicianPolicy",
		RoutingKey:    policyUpdated,
		OccurredAt:    time.Now(),
	}
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), policyUpdated, payload))

	require.Len(t, consumer.events, 1)
	assert.Equal(t, event.EventID, consumer.events[0].EventID)
}

func TestInProcessEventBus_PublishFillsRoutingKey(t *testing.T) {
	bus := eventbus.NewInProcessEventBus(testLogger())
	consumer := &mockConsumer{eventTypes: []string{appointmentChanged}}
	bus.RegisterConsumer(consumer)

	payload, err := json.Marshal(&eventbus.ConsumedEvent{EventID: uuid.New()})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), appointmentChanged, payload))
	require.Len(t, consumer.events, 1)
	assert.Equal(t, appointmentChanged, consumer.events[0].RoutingKey)
}

func TestInProcessEventBus_PublishSwallowsFailures(t *testing.T) {
	bus := eventbus.NewInProcessEventBus(testLogger())
	bus.RegisterConsumer(&mockConsumer{eventTypes: []string{policyUpdated}, err: errors.New("reader down")})

	payload, err := json.Marshal(&eventbus.ConsumedEvent{RoutingKey: policyUpdated})
	require.NoError(t, err)

	assert.NoError(t, bus.Publish(context.Background(), policyUpdated, payload))
	assert.NoError(t, bus.Publish(context.Background(), policyUpdated, []byte("not json")))
}

func TestInProcessEventBus_UnregisterConsumer(t *testing.T) {
	bus := eventbus.NewInProcessEventBus(testLogger())
	consumer := &mockConsumer{eventTypes: []string{policyUpdated}}
	bus.RegisterConsumer(consumer)
	bus.UnregisterConsumer(consumer)

	payload, err := json.Marshal(&eventbus.ConsumedEvent{RoutingKey: policyUpdated})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), policyUpdated, payload))
	assert.Empty(t, consumer.events)
}

func TestInProcessEventBus_StartBlocksUntilCancelled(t *testing.T) {
	bus := eventbus.NewInProcessEventBus(testLogger())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- bus.Start(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
	assert.NoError(t, bus.Close())
}

func TestEnvelope(t *testing.T) {
	physicianID := uuid.New()
	event := newPhysicianEvent(physicianID)
	actor := uuid.New()
	event.SetMetadata(domain.NewEventMetadata(actor))

	envelope, err := eventbus.Envelope(event)
	require.NoError(t, err)

	assert.Equal(t, event.EventID(), envelope.EventID)
	assert.Equal(t, physicianID, envelope.AggregateID)
	assert.Equal(t, "PhysicianPolicy", envelope.AggregateType)
	assert.Equal(t, policyUpdated, envelope.RoutingKey)
	assert.Equal(t, event.OccurredAt(), envelope.OccurredAt)
	assert.Equal(t, actor, envelope.Metadata.ActorID)
	assert.NotEmpty(t, envelope.Metadata.CorrelationID)
	assert.JSONEq(t, `{"physician_id":"`+physicianID.String()+`"}`, string(envelope.Payload))
}

func TestPublishEvent_RoundTripsThroughBus(t *testing.T) {
	bus := eventbus.NewInProcessEventBus(testLogger())
	consumer := &mockConsumer{eventTypes: []string{policyUpdated}}
	bus.RegisterConsumer(consumer)

	physicianID := uuid.New()
	require.NoError(t, eventbus.PublishEvent(context.Background(), bus, newPhysicianEvent(physicianID)))

	require.Len(t, consumer.events, 1)
	got := consumer.events[0]
	assert.Equal(t, physicianID, got.AggregateID)

	var payload struct {
		PhysicianID uuid.UUID `json:"physician_id"`
	}
	require.NoError(t, json.Unmarshal(got.Payload, &payload))
	assert.Equal(t, physicianID, payload.PhysicianID)
}

func TestNoopPublisher(t *testing.T) {
	p := eventbus.NewNoopPublisher(nil)
	assert.NoError(t, eventbus.PublishEvent(context.Background(), p, newPhysicianEvent(uuid.New())))
	assert.NoError(t, p.Close())
}
