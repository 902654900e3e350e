package domain

import (
	"time"

	sharedDomain "github.com/felixgeelhaar/carebook/internal/shared/domain"
	"github.com/google/uuid"
)

const (
	AggregateTypePolicy      = "PhysicianPolicy"
	AggregateTypeAppointment = "Appointment"

	RoutingKeyPolicyUpdated      = "availability.policy.updated"
	RoutingKeyAppointmentChanged = "booking.appointment.changed"
)

// PolicyUpdated is emitted after a physician's policy is written.
type PolicyUpdated struct {
	sharedDomain.BaseEvent
	PhysicianID uuid.UUID `json:"physician_id"`
}

// NewPolicyUpdated creates a PolicyUpdated event.
func NewPolicyUpdated(physicianID uuid.UUID, at time.Time) PolicyUpdated {
	return PolicyUpdated{
		BaseEvent:   sharedDomain.NewBaseEventAt(physicianID, AggregateTypePolicy, RoutingKeyPolicyUpdated, at),
		PhysicianID: physicianID,
	}
}

// AppointmentChanged is emitted when an appointment is created or its status changes.
type AppointmentChanged struct {
	sharedDomain.BaseEvent
	AppointmentID uuid.UUID         `json:"appointment_id"`
	PhysicianID   uuid.UUID         `json:"physician_id"`
	DateTime      time.Time         `json:"date_time"`
	Status        AppointmentStatus `json:"status"`
}

// NewAppointmentChanged creates an AppointmentChanged event.
func NewAppointmentChanged(appt BookedAppointment, at time.Time) AppointmentChanged {
	return AppointmentChanged{
		BaseEvent:     sharedDomain.NewBaseEventAt(appt.ID, AggregateTypeAppointment, RoutingKeyAppointmentChanged, at),
		AppointmentID: appt.ID,
		PhysicianID:   appt.PhysicianID,
		DateTime:      appt.DateTime,
		Status:        appt.Status,
	}
}
