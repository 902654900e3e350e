package subscribers

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/felixgeelhaar/carebook/internal/availability/domain"
	"github.com/felixgeelhaar/carebook/internal/shared/infrastructure/eventbus"
	"github.com/google/uuid"
)

// ChangeNotifier turns policy and appointment events from the bus into
// change callbacks. It implements domain.ChangeNotifier and
// eventbus.EventConsumer.
type ChangeNotifier struct {
	mu           sync.Mutex
	nextID       uint64
	policy       map[uuid.UUID]map[uint64]func(uuid.UUID)
	appointments map[uint64]func(uuid.UUID)
	logger       *slog.Logger
}

var (
	_ domain.ChangeNotifier  = (*ChangeNotifier)(nil)
	_ eventbus.EventConsumer = (*ChangeNotifier)(nil)
)

// NewChangeNotifier creates a notifier with no subscribers.
func NewChangeNotifier(logger *slog.Logger) *ChangeNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChangeNotifier{
		policy:       make(map[uuid.UUID]map[uint64]func(uuid.UUID)),
		appointments: make(map[uint64]func(uuid.UUID)),
		logger:       logger,
	}
}

// EventTypes returns the event types this notifier handles.
func (n *ChangeNotifier) EventTypes() []string {
	return []string{
		domain.RoutingKeyPolicyUpdated,
		domain.RoutingKeyAppointmentChanged,
	}
}

// physicianPayload is the part of both event payloads the notifier reads.
type physicianPayload struct {
	PhysicianID uuid.UUID `json:"physician_id"`
}

// Handle fans an event out to the matching subscribers. Undecodable events
// are logged and dropped.
func (n *ChangeNotifier) Handle(ctx context.Context, event *eventbus.ConsumedEvent) error {
	var payload physicianPayload
	if len(event.Payload) > 0 {
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			n.logger.Warn("failed to unmarshal change payload",
				"routing_key", event.RoutingKey,
				"event_id", event.EventID,
				"error", err,
			)
		}
	}

	switch event.RoutingKey {
	case domain.RoutingKeyPolicyUpdated:
		physicianID := payload.PhysicianID
		if physicianID == uuid.Nil {
			physicianID = event.AggregateID
		}
		n.NotifyPolicyChanged(physicianID)
	case domain.RoutingKeyAppointmentChanged:
		if payload.PhysicianID == uuid.Nil {
			n.logger.Warn("appointment change without physician",
				"event_id", event.EventID,
				"appointment_id", event.AggregateID,
			)
			return nil
		}
		n.NotifyAppointmentsChanged(payload.PhysicianID)
	default:
		n.logger.Warn("unknown event type",
			"routing_key", event.RoutingKey,
		)
	}
	return nil
}

// SubscribePolicyChanges registers fn for policy changes of one physician.
func (n *ChangeNotifier) SubscribePolicyChanges(physicianID uuid.UUID, fn func(uuid.UUID)) domain.Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	id := n.nextID
	if n.policy[physicianID] == nil {
		n.policy[physicianID] = make(map[uint64]func(uuid.UUID))
	}
	n.policy[physicianID][id] = fn

	return subscriptionFunc(func() {
		n.mu.Lock()
		defer n.mu.Unlock()

		subs := n.policy[physicianID]
		delete(subs, id)
		if len(subs) == 0 {
			delete(n.policy, physicianID)
		}
	})
}

// SubscribeAppointmentChanges registers fn for appointment changes of any physician.
func (n *ChangeNotifier) SubscribeAppointmentChanges(fn func(uuid.UUID)) domain.Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	id := n.nextID
	n.appointments[id] = fn

	return subscriptionFunc(func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.appointments, id)
	})
}

// NotifyPolicyChanged calls the physician's policy subscribers.
func (n *ChangeNotifier) NotifyPolicyChanged(physicianID uuid.UUID) {
	n.mu.Lock()
	fns := make([]func(uuid.UUID), 0, len(n.policy[physicianID]))
	for _, fn := range n.policy[physicianID] {
		fns = append(fns, fn)
	}
	n.mu.Unlock()

	n.logger.Debug("policy changed",
		"physician_id", physicianID,
		"subscribers", len(fns),
	)
	for _, fn := range fns {
		fn(physicianID)
	}
}

// NotifyAppointmentsChanged calls every appointment subscriber.
func (n *ChangeNotifier) NotifyAppointmentsChanged(physicianID uuid.UUID) {
	n.mu.Lock()
	fns := make([]func(uuid.UUID), 0, len(n.appointments))
	for _, fn := range n.appointments {
		fns = append(fns, fn)
	}
	n.mu.Unlock()

	n.logger.Debug("appointments changed",
		"physician_id", physicianID,
		"subscribers", len(fns),
	)
	for _, fn := range fns {
		fn(physicianID)
	}
}

// SubscriberCount returns the number of live registrations.
func (n *ChangeNotifier) SubscriberCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	count := len(n.appointments)
	for _, subs := range n.policy {
		count += len(subs)
	}
	return count
}

type subscriptionFunc func()

func (f subscriptionFunc) Unsubscribe() { f() }
