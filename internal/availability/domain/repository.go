package domain

import (
	"context"

	"github.com/google/uuid"
)

// PolicyRepository reads and writes physician booking policies.
type PolicyRepository interface {
	// FindByPhysician returns the physician's policy, or nil without error
	// when the physician has not configured one.
	FindByPhysician(ctx context.Context, physicianID uuid.UUID) (*Policy, error)

	// Save creates or replaces the physician's policy.
	Save(ctx context.Context, physicianID uuid.UUID, policy *Policy) error
}

// AppointmentFeed lists a physician's appointments.
type AppointmentFeed interface {
	ListByPhysician(ctx context.Context, physicianID uuid.UUID) ([]BookedAppointment, error)
}

// AppointmentRepository persists appointment records.
type AppointmentRepository interface {
	AppointmentFeed

	// Save creates or replaces an appointment record.
	Save(ctx context.Context, appointment BookedAppointment) error
}

// Subscription is a registered change callback.
type Subscription interface {
	Unsubscribe()
}

// ChangeNotifier pushes policy and appointment change notifications.
type ChangeNotifier interface {
	// SubscribePolicyChanges calls fn whenever the physician's policy changes.
	SubscribePolicyChanges(physicianID uuid.UUID, fn func(physicianID uuid.UUID)) Subscription

	// SubscribeAppointmentChanges calls fn with the affected physician
	// whenever any appointment changes.
	SubscribeAppointmentChanges(fn func(physicianID uuid.UUID)) Subscription
}
