package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/carebook/internal/availability/domain"
	"github.com/felixgeelhaar/carebook/internal/shared/application"
	"github.com/felixgeelhaar/carebook/internal/shared/infrastructure/eventbus"
	"github.com/google/uuid"
)

// RecordAppointmentCommand creates or updates an appointment record. A nil
// AppointmentID creates a new one. No slot conflict check is made; the
// booking system owns that decision.
type RecordAppointmentCommand struct {
	AppointmentID uuid.UUID
	PhysicianID   uuid.UUID
	PatientID     uuid.UUID
	ActorID       uuid.UUID
	DateTime      time.Time
	Status        domain.AppointmentStatus
	Archived      bool
}

// RecordAppointmentResult contains the result of recording an appointment.
type RecordAppointmentResult struct {
	AppointmentID uuid.UUID
	EventID       uuid.UUID
	Published     bool
}

// RecordAppointmentHandler handles the RecordAppointmentCommand.
type RecordAppointmentHandler struct {
	appointmentRepo domain.AppointmentRepository
	publisher       eventbus.Publisher
	uow             application.UnitOfWork
	cache           CacheInvalidator
	clock           domain.Clock
	logger          *slog.Logger
}

// NewRecordAppointmentHandler creates a new RecordAppointmentHandler.
func NewRecordAppointmentHandler(
	appointmentRepo domain.AppointmentRepository,
	publisher eventbus.Publisher,
	uow application.UnitOfWork,
	cache CacheInvalidator,
	clock domain.Clock,
	logger *slog.Logger,
) *RecordAppointmentHandler {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordAppointmentHandler{
		appointmentRepo: appointmentRepo,
		publisher:       publisher,
		uow:             uow,
		cache:           cache,
		clock:           clock,
		logger:          logger,
	}
}

// Handle executes the RecordAppointmentCommand.
func (h *RecordAppointmentHandler) Handle(ctx context.Context, cmd RecordAppointmentCommand) (*RecordAppointmentResult, error) {
	if cmd.PhysicianID == uuid.Nil {
		return nil, ErrPhysicianRequired
	}
	if cmd.DateTime.IsZero() {
		return nil, ErrDateTimeRequired
	}

	appt := domain.BookedAppointment{
		ID:          cmd.AppointmentID,
		PhysicianID: cmd.PhysicianID,
		PatientID:   cmd.PatientID,
		DateTime:    cmd.DateTime,
		Status:      cmd.Status,
		Archived:    cmd.Archived,
	}
	if appt.ID == uuid.Nil {
		appt.ID = uuid.New()
	}
	if appt.Status == "" {
		appt.Status = domain.AppointmentStatusScheduled
	}

	err := application.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		return h.appointmentRepo.Save(txCtx, appt)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save appointment: %w", err)
	}

	if h.cache != nil {
		h.cache.Invalidate(appt.PhysicianID)
	}

	event := domain.NewAppointmentChanged(appt, h.clock.Now())
	published := publishChange(ctx, h.publisher, h.logger, cmd.ActorID, &event)

	h.logger.Info("appointment recorded",
		"appointment_id", appt.ID,
		"physician_id", appt.PhysicianID,
		"status", appt.Status,
		"published", published,
	)

	return &RecordAppointmentResult{
		AppointmentID: appt.ID,
		EventID:       event.EventID(),
		Published:     published,
	}, nil
}
