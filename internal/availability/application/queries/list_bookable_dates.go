package queries

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/carebook/internal/availability/domain"
	"github.com/google/uuid"
)

// DefaultMaxRangeDays bounds a single calendar request.
const DefaultMaxRangeDays = 366

// CalendarDayDTO is one date in the calendar view.
type CalendarDayDTO struct {
	Date     domain.Date
	Status   domain.DayStatus
	Bookable bool
}

// BookableDatesDTO is the calendar view for a date range.
type BookableDatesDTO struct {
	PhysicianID uuid.UUID
	From        domain.Date
	To          domain.Date
	Dates       []domain.Date
	Days        []CalendarDayDTO
	Source      string
	Degraded    bool
}

// ListBookableDatesQuery contains the parameters for a calendar lookup.
// A zero From means today; a zero To means From plus 30 days.
type ListBookableDatesQuery struct {
	PhysicianID uuid.UUID
	From        domain.Date
	To          domain.Date
}

// ListBookableDatesHandler handles the ListBookableDatesQuery.
type ListBookableDatesHandler struct {
	source       SnapshotSource
	clock        domain.Clock
	maxRangeDays int
}

// NewListBookableDatesHandler creates a new ListBookableDatesHandler.
// maxRangeDays <= 0 uses DefaultMaxRangeDays.
func NewListBookableDatesHandler(source SnapshotSource, clock domain.Clock, maxRangeDays int) *ListBookableDatesHandler {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	if maxRangeDays <= 0 {
		maxRangeDays = DefaultMaxRangeDays
	}
	return &ListBookableDatesHandler{source: source, clock: clock, maxRangeDays: maxRangeDays}
}

// Handle executes the ListBookableDatesQuery.
func (h *ListBookableDatesHandler) Handle(ctx context.Context, query ListBookableDatesQuery) (*BookableDatesDTO, error) {
	if query.PhysicianID == uuid.Nil {
		return nil, ErrPhysicianRequired
	}

	snap := h.source.Get(ctx, query.PhysicianID)

	from, to := query.From, query.To
	if from.IsZero() {
		from = domain.DateOf(h.clock.Now().In(snap.Index.Location()))
	}
	if to.IsZero() {
		to = from.AddDays(30)
	}
	if to.Before(from) {
		return nil, ErrInvalidRange
	}
	if from.AddDays(h.maxRangeDays - 1).Before(to) {
		return nil, fmt.Errorf("%w: %s to %s is more than %d days", ErrRangeTooLarge, from, to, h.maxRangeDays)
	}

	eval := snap.Evaluator(h.clock)
	dto := &BookableDatesDTO{
		PhysicianID: query.PhysicianID,
		From:        from,
		To:          to,
		Dates:       eval.BookableDates(from, to),
		Source:      snap.Source.String(),
		Degraded:    snap.Degraded(),
	}
	for d := from; !d.After(to); d = d.AddDays(1) {
		status := eval.Status(d)
		dto.Days = append(dto.Days, CalendarDayDTO{Date: d, Status: status, Bookable: status.Bookable()})
	}
	return dto, nil
}
