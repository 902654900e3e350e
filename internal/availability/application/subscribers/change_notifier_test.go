package subscribers_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/felixgeelhaar/carebook/internal/availability/application/subscribers"
	"github.com/felixgeelhaar/carebook/internal/availability/domain"
	"github.com/felixgeelhaar/carebook/internal/shared/infrastructure/eventbus"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	calls []uuid.UUID
}

func (r *recorder) record(id uuid.UUID) { r.calls = append(r.calls, id) }

func TestChangeNotifier_EventTypes(t *testing.T) {
	n := subscribers.NewChangeNotifier(nil)
	assert.ElementsMatch(t, []string{
		"availability.policy.updated",
		"booking.appointment.changed",
	}, n.EventTypes())
}

func TestChangeNotifier_PolicySubscriptionsArePerPhysician(t *testing.T) {
	n := subscribers.NewChangeNotifier(nil)
	a, b := uuid.New(), uuid.New()
	var gotA, gotB recorder
	n.SubscribePolicyChanges(a, gotA.record)
	n.SubscribePolicyChanges(b, gotB.record)

	n.NotifyPolicyChanged(a)

	assert.Equal(t, []uuid.UUID{a}, gotA.calls)
	assert.Empty(t, gotB.calls)
}

func TestChangeNotifier_Unsubscribe(t *testing.T) {
	n := subscribers.NewChangeNotifier(nil)
	id := uuid.New()
	var policy, appts recorder

	ps := n.SubscribePolicyChanges(id, policy.record)
	as := n.SubscribeAppointmentChanges(appts.record)
	require.Equal(t, 2, n.SubscriberCount())

	ps.Unsubscribe()
	as.Unsubscribe()
	ps.Unsubscribe()

	n.NotifyPolicyChanged(id)
	n.NotifyAppointmentsChanged(id)

	assert.Empty(t, policy.calls)
	assert.Empty(t, appts.calls)
	assert.Equal(t, 0, n.SubscriberCount())
}

func TestChangeNotifier_CallbackMaySubscribe(t *testing.T) {
	n := subscribers.NewChangeNotifier(nil)
	id := uuid.New()

	var inner recorder
	n.SubscribeAppointmentChanges(func(physicianID uuid.UUID) {
		n.SubscribePolicyChanges(physicianID, inner.record)
	})

	n.NotifyAppointmentsChanged(id)
	n.NotifyPolicyChanged(id)

	assert.Equal(t, []uuid.UUID{id}, inner.calls)
}

func TestChangeNotifier_Handle(t *testing.T) {
	ctx := context.Background()
	physicianID := uuid.New()

	t.Run("policy event from published envelope", func(t *testing.T) {
		n := subscribers.NewChangeNotifier(nil)
		var got recorder
		n.SubscribePolicyChanges(physicianID, got.record)

		envelope, err := eventbus.Envelope(domain.NewPolicyUpdated(physicianID, time.Now()))
		require.NoError(t, err)
		require.NoError(t, n.Handle(ctx, envelope))

		assert.Equal(t, []uuid.UUID{physicianID}, got.calls)
	})

	t.Run("policy event falls back to aggregate id", func(t *testing.T) {
		n := subscribers.NewChangeNotifier(nil)
		var got recorder
		n.SubscribePolicyChanges(physicianID, got.record)

		require.NoError(t, n.Handle(ctx, &eventbus.ConsumedEvent{
			RoutingKey:  domain.RoutingKeyPolicyUpdated,
			AggregateID: physicianID,
		}))

		assert.Equal(t, []uuid.UUID{physicianID}, got.calls)
	})

	t.Run("appointment event carries physician", func(t *testing.T) {
		n := subscribers.NewChangeNotifier(nil)
		var got recorder
		n.SubscribeAppointmentChanges(got.record)

		appt := domain.BookedAppointment{
			ID:          uuid.New(),
			PhysicianID: physicianID,
			DateTime:    time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC),
			Status:      domain.AppointmentStatusScheduled,
		}
		envelope, err := eventbus.Envelope(domain.NewAppointmentChanged(appt, time.Now()))
		require.NoError(t, err)
		require.NoError(t, n.Handle(ctx, envelope))

		assert.Equal(t, []uuid.UUID{physicianID}, got.calls)
	})

	t.Run("appointment event without physician is dropped", func(t *testing.T) {
		n := subscribers.NewChangeNotifier(nil)
		var got recorder
		n.SubscribeAppointmentChanges(got.record)

		payload, _ := json.Marshal(map[string]string{"status": "scheduled"})
		require.NoError(t, n.Handle(ctx, &eventbus.ConsumedEvent{
			RoutingKey:  domain.RoutingKeyAppointmentChanged,
			AggregateID: uuid.New(),
			Payload:     payload,
		}))

		assert.Empty(t, got.calls)
	})

	t.Run("malformed payload is not an error", func(t *testing.T) {
		n := subscribers.NewChangeNotifier(nil)
		assert.NoError(t, n.Handle(ctx, &eventbus.ConsumedEvent{
			RoutingKey: domain.RoutingKeyAppointmentChanged,
			Payload:    json.RawMessage(`{"physician_id":`),
		}))
	})
}

func TestChangeNotifier_ThroughInProcessBus(t *testing.T) {
	bus := eventbus.NewInProcessEventBus(nil)
	n := subscribers.NewChangeNotifier(nil)
	bus.RegisterConsumer(n)

	physicianID := uuid.New()
	var got recorder
	n.SubscribePolicyChanges(physicianID, got.record)

	require.NoError(t, eventbus.PublishEvent(context.Background(), bus, domain.NewPolicyUpdated(physicianID, time.Now())))
	assert.Equal(t, []uuid.UUID{physicianID}, got.calls)
}
