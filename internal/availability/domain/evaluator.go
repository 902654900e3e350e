package domain

import "time"

// DayStatus explains why a date is or is not bookable.
type DayStatus string

const (
	DayStatusUnconfigured         DayStatus = "unconfigured"
	DayStatusOutsideBookingWindow DayStatus = "outside_booking_window"
	DayStatusNonWorkingDay        DayStatus = "non_working_day"
	DayStatusHoliday              DayStatus = "holiday"
	DayStatusFullyBooked          DayStatus = "fully_booked"
	DayStatusNoOpenSlots          DayStatus = "no_open_slots"
	DayStatusAvailable            DayStatus = "available"
)

// Bookable reports whether the status allows booking.
func (s DayStatus) Bookable() bool {
	return s == DayStatusAvailable
}

// Evaluator answers availability questions for one physician from a policy
// and booking index snapshot. A nil policy makes every date unavailable.
type Evaluator struct {
	policy *Policy
	index  *BookingIndex
	clock  Clock
	loc    *time.Location
}

// NewEvaluator creates an evaluator. A nil clock reads the system clock and
// a nil location falls back to the index location.
func NewEvaluator(policy *Policy, index *BookingIndex, clock Clock, loc *time.Location) *Evaluator {
	if clock == nil {
		clock = SystemClock{}
	}
	if loc == nil {
		loc = index.Location()
	}
	return &Evaluator{
		policy: policy,
		index:  index,
		clock:  clock,
		loc:    loc,
	}
}

// Policy returns the evaluated policy, nil when unconfigured.
func (e *Evaluator) Policy() *Policy { return e.policy }

// Index returns the evaluated booking index.
func (e *Evaluator) Index() *BookingIndex { return e.index }

// IsDateAvailable reports whether at least one slot on d can be booked.
func (e *Evaluator) IsDateAvailable(d Date) bool {
	return e.Status(d).Bookable()
}

// IsDateFullyBooked reports whether d has reached the daily capacity.
func (e *Evaluator) IsDateFullyBooked(d Date) bool {
	return e.index.Count(d) >= e.policy.Capacity()
}

// AvailableTimes returns the open slots on d in ascending order.
func (e *Evaluator) AvailableTimes(d Date) []TimeOfDay {
	if e.policy == nil {
		return []TimeOfDay{}
	}

	now := e.clock.Now()
	candidates := GenerateSlots(e.policy.DailyWindow)
	open := candidates[:0]
	for _, slot := range candidates {
		if e.policy.IsBlocked(d, slot) {
			continue
		}
		if !d.At(slot, e.loc).After(now) {
			continue
		}
		if e.index.IsBooked(d, slot) {
			continue
		}
		open = append(open, slot)
	}
	return open
}

// FirstAvailable returns the earliest open slot on d.
func (e *Evaluator) FirstAvailable(d Date) (TimeOfDay, bool) {
	if !e.IsDateAvailable(d) {
		return TimeOfDay{}, false
	}
	times := e.AvailableTimes(d)
	return times[0], true
}

// Status classifies d. Checks run in a fixed order so the first failing
// rule names the reason.
func (e *Evaluator) Status(d Date) DayStatus {
	switch {
	case e.policy == nil:
		return DayStatusUnconfigured
	case !e.policy.InBookingWindow(d):
		return DayStatusOutsideBookingWindow
	case !e.policy.WorksOn(d.Weekday()):
		return DayStatusNonWorkingDay
	case e.policy.IsHoliday(d):
		return DayStatusHoliday
	case e.IsDateFullyBooked(d):
		return DayStatusFullyBooked
	case len(e.AvailableTimes(d)) == 0:
		return DayStatusNoOpenSlots
	default:
		return DayStatusAvailable
	}
}

// BookableDates returns the available dates in [from, to], ascending.
func (e *Evaluator) BookableDates(from, to Date) []Date {
	out := []Date{}
	for d := from; !d.After(to); d = d.AddDays(1) {
		if e.IsDateAvailable(d) {
			out = append(out, d)
		}
	}
	return out
}

// CanBook reports whether an appointment may start at t.
func (e *Evaluator) CanBook(t time.Time) bool {
	local := t.In(e.loc)
	d := DateOf(local)
	if !e.IsDateAvailable(d) {
		return false
	}
	want := TimeOfDayOf(local)
	if local.Second() != 0 || local.Nanosecond() != 0 {
		return false
	}
	for _, slot := range e.AvailableTimes(d) {
		if slot == want {
			return true
		}
	}
	return false
}
