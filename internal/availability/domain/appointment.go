package domain

import (
	"time"

	"github.com/google/uuid"
)

// AppointmentStatus is the lifecycle state of a booked appointment.
type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusArchived  AppointmentStatus = "archived"
)

// OccupiesSlot reports whether an appointment in this status holds its slot.
// Unknown statuses hold the slot so they are never offered twice.
func (s AppointmentStatus) OccupiesSlot() bool {
	switch s {
	case AppointmentStatusCancelled, AppointmentStatusArchived:
		return false
	default:
		return true
	}
}

// BookedAppointment is a read-only record from the appointment feed.
type BookedAppointment struct {
	ID          uuid.UUID         `json:"id"`
	PhysicianID uuid.UUID         `json:"physician_id"`
	PatientID   uuid.UUID         `json:"patient_id"`
	DateTime    time.Time         `json:"date_time"`
	Status      AppointmentStatus `json:"status"`
	Archived    bool              `json:"archived,omitempty"`
}

// Occupies reports whether the appointment counts against capacity.
func (a BookedAppointment) Occupies() bool {
	return !a.Archived && a.Status.OccupiesSlot()
}
