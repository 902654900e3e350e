package domain

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// DefaultMaxAppointmentsPerDay applies when a policy leaves capacity unset.
const DefaultMaxAppointmentsPerDay = 10

var (
	ErrInvalidWeekday       = errors.New("working day must be between 0 (Sunday) and 6 (Saturday)")
	ErrInvalidDailyWindow   = errors.New("daily window hours must satisfy 0 <= start < end < 24")
	ErrInvalidCapacity      = errors.New("max appointments per day must not be negative")
	ErrInvalidBookingWindow = errors.New("booking window start must not be after its end")
	ErrInvalidBlockedSlot   = errors.New("blocked time slot start must be before its end")
)

// DailyWindow is the working-hours range of a day, in whole hours.
type DailyWindow struct {
	StartHour int `json:"start_hour"`
	EndHour   int `json:"end_hour"`
}

// Valid reports whether the window is non-degenerate and within the day.
func (w DailyWindow) Valid() bool {
	return w.StartHour >= 0 && w.EndHour < 24 && w.StartHour < w.EndHour
}

// DateRange is an inclusive range of calendar dates.
type DateRange struct {
	Start Date `json:"start_date"`
	End   Date `json:"end_date"`
}

// Contains reports whether d lies within the range, bounds included.
func (r DateRange) Contains(d Date) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// BlockedTimeSlot excludes part of one specific date.
type BlockedTimeSlot struct {
	Date      Date      `json:"date"`
	StartTime TimeOfDay `json:"start_time"`
	EndTime   TimeOfDay `json:"end_time"`
	Reason    string    `json:"reason,omitempty"`
}

// Valid reports whether the entry describes a non-empty range.
func (b BlockedTimeSlot) Valid() bool {
	return b.StartTime.Valid() && b.EndTime.Valid() && b.StartTime.Minutes() < b.EndTime.Minutes()
}

// Blocks reports whether a slot starting at tod on d is excluded.
// Malformed entries block nothing.
func (b BlockedTimeSlot) Blocks(d Date, tod TimeOfDay) bool {
	if d != b.Date || !b.Valid() {
		return false
	}
	m := tod.Minutes()
	return b.StartTime.Minutes() <= m && m < b.EndTime.Minutes()
}

// Policy holds one physician's booking rules.
type Policy struct {
	WorkingDays           []time.Weekday    `json:"working_days"`
	DailyWindow           *DailyWindow      `json:"daily_window,omitempty"`
	Holidays              []Date            `json:"holidays,omitempty"`
	BookingWindow         *DateRange        `json:"booking_window,omitempty"`
	MaxAppointmentsPerDay int               `json:"max_appointments_per_day,omitempty"`
	BlockedTimeSlots      []BlockedTimeSlot `json:"blocked_time_slots,omitempty"`
}

// Capacity returns the effective daily appointment limit.
func (p *Policy) Capacity() int {
	if p == nil || p.MaxAppointmentsPerDay <= 0 {
		return DefaultMaxAppointmentsPerDay
	}
	return p.MaxAppointmentsPerDay
}

// WorksOn reports whether the weekday is a working day.
func (p *Policy) WorksOn(day time.Weekday) bool {
	if p == nil {
		return false
	}
	return slices.Contains(p.WorkingDays, day)
}

// IsHoliday reports whether d is a configured holiday.
func (p *Policy) IsHoliday(d Date) bool {
	if p == nil {
		return false
	}
	return slices.Contains(p.Holidays, d)
}

// InBookingWindow reports whether d may be booked into. An unset window is unbounded.
func (p *Policy) InBookingWindow(d Date) bool {
	if p == nil {
		return false
	}
	if p.BookingWindow == nil {
		return true
	}
	return p.BookingWindow.Contains(d)
}

// IsBlocked reports whether any blocked entry excludes tod on d.
func (p *Policy) IsBlocked(d Date, tod TimeOfDay) bool {
	if p == nil {
		return false
	}
	for _, b := range p.BlockedTimeSlots {
		if b.Blocks(d, tod) {
			return true
		}
	}
	return false
}

// BlockedOn returns the entries that apply to d, in policy order.
func (p *Policy) BlockedOn(d Date) []BlockedTimeSlot {
	if p == nil {
		return nil
	}
	var out []BlockedTimeSlot
	for _, b := range p.BlockedTimeSlots {
		if b.Date == d {
			out = append(out, b)
		}
	}
	return out
}

// Validate checks the policy before it is written. Evaluation never requires
// a valid policy: malformed parts are simply inert.
func (p *Policy) Validate() error {
	if p == nil {
		return nil
	}

	var errs []error
	for _, day := range p.WorkingDays {
		if day < time.Sunday || day > time.Saturday {
			errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidWeekday, day))
		}
	}
	if p.DailyWindow != nil && !p.DailyWindow.Valid() {
		errs = append(errs, fmt.Errorf("%w: %d-%d", ErrInvalidDailyWindow, p.DailyWindow.StartHour, p.DailyWindow.EndHour))
	}
	if p.MaxAppointmentsPerDay < 0 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidCapacity, p.MaxAppointmentsPerDay))
	}
	if p.BookingWindow != nil && p.BookingWindow.Start.After(p.BookingWindow.End) {
		errs = append(errs, fmt.Errorf("%w: %s > %s", ErrInvalidBookingWindow, p.BookingWindow.Start, p.BookingWindow.End))
	}
	for i, b := range p.BlockedTimeSlots {
		if !b.Valid() {
			errs = append(errs, fmt.Errorf("%w: entry %d on %s (%s-%s)", ErrInvalidBlockedSlot, i, b.Date, b.StartTime, b.EndTime))
		}
	}
	return errors.Join(errs...)
}

// Clone returns a deep copy.
func (p *Policy) Clone() *Policy {
	if p == nil {
		return nil
	}
	c := &Policy{
		WorkingDays:           slices.Clone(p.WorkingDays),
		Holidays:              slices.Clone(p.Holidays),
		MaxAppointmentsPerDay: p.MaxAppointmentsPerDay,
		BlockedTimeSlots:      slices.Clone(p.BlockedTimeSlots),
	}
	if p.DailyWindow != nil {
		w := *p.DailyWindow
		c.DailyWindow = &w
	}
	if p.BookingWindow != nil {
		r := *p.BookingWindow
		c.BookingWindow = &r
	}
	return c
}

// Equal reports structural equality. Working days and holidays compare as
// sets; blocked slots compare as an ordered list.
func (p *Policy) Equal(other *Policy) bool {
	if p == nil || other == nil {
		return p == other
	}
	if p.MaxAppointmentsPerDay != other.MaxAppointmentsPerDay {
		return false
	}
	if !equalPtr(p.DailyWindow, other.DailyWindow) || !equalPtr(p.BookingWindow, other.BookingWindow) {
		return false
	}
	if !sameSet(p.WorkingDays, other.WorkingDays) || !sameSet(p.Holidays, other.Holidays) {
		return false
	}
	return slices.Equal(p.BlockedTimeSlots, other.BlockedTimeSlots)
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sameSet[T comparable](a, b []T) bool {
	for _, v := range a {
		if !slices.Contains(b, v) {
			return false
		}
	}
	for _, v := range b {
		if !slices.Contains(a, v) {
			return false
		}
	}
	return true
}
