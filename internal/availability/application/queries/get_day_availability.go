package queries

import (
	"context"
	"time"

	"github.com/felixgeelhaar/carebook/internal/availability/domain"
	"github.com/google/uuid"
)

// DayAvailabilityDTO is what the booking dialog shows for one date.
type DayAvailabilityDTO struct {
	PhysicianID    uuid.UUID
	Date           domain.Date
	Status         domain.DayStatus
	Bookable       bool
	AvailableTimes []domain.TimeOfDay
	FirstAvailable *domain.TimeOfDay
	Booked         int
	Capacity       int
	Blocked        []domain.BlockedTimeSlot
	Source         string
	Degraded       bool
	FetchedAt      time.Time
}

// GetDayAvailabilityQuery contains the parameters for a day lookup.
// A zero Date means today in the clinic's time zone.
type GetDayAvailabilityQuery struct {
	PhysicianID uuid.UUID
	Date        domain.Date
}

// GetDayAvailabilityHandler handles the GetDayAvailabilityQuery.
type GetDayAvailabilityHandler struct {
	source SnapshotSource
	clock  domain.Clock
}

// NewGetDayAvailabilityHandler creates a new GetDayAvailabilityHandler.
func NewGetDayAvailabilityHandler(source SnapshotSource, clock domain.Clock) *GetDayAvailabilityHandler {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &GetDayAvailabilityHandler{source: source, clock: clock}
}

// Handle executes the GetDayAvailabilityQuery.
func (h *GetDayAvailabilityHandler) Handle(ctx context.Context, query GetDayAvailabilityQuery) (*DayAvailabilityDTO, error) {
	if query.PhysicianID == uuid.Nil {
		return nil, ErrPhysicianRequired
	}

	snap := h.source.Get(ctx, query.PhysicianID)
	eval := snap.Evaluator(h.clock)

	day := query.Date
	if day.IsZero() {
		day = domain.DateOf(h.clock.Now().In(snap.Index.Location()))
	}

	status := eval.Status(day)
	dto := &DayAvailabilityDTO{
		PhysicianID:    query.PhysicianID,
		Date:           day,
		Status:         status,
		Bookable:       status.Bookable(),
		AvailableTimes: eval.AvailableTimes(day),
		Booked:         snap.Index.Count(day),
		Capacity:       snap.Policy.Capacity(),
		Blocked:        snap.Policy.BlockedOn(day),
		Source:         snap.Source.String(),
		Degraded:       snap.Degraded(),
		FetchedAt:      snap.FetchedAt,
	}
	if first, ok := eval.FirstAvailable(day); ok {
		dto.FirstAvailable = &first
	}
	return dto, nil
}
