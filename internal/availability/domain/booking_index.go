package domain

import (
	"context"
	"runtime"
	"slices"
	"time"
)

// DefaultIndexBatchSize is the number of appointments indexed between yields.
const DefaultIndexBatchSize = 500

// BookingIndex groups slot-occupying appointments by calendar date.
// A nil index behaves as an empty one.
type BookingIndex struct {
	loc  *time.Location
	days map[Date][]time.Time
}

func newBookingIndex(loc *time.Location) *BookingIndex {
	if loc == nil {
		loc = time.Local
	}
	return &BookingIndex{loc: loc, days: make(map[Date][]time.Time)}
}

func (ix *BookingIndex) add(appt BookedAppointment) {
	if !appt.Occupies() {
		return
	}
	at := appt.DateTime.In(ix.loc)
	day := DateOf(at)
	ix.days[day] = append(ix.days[day], at)
}

func (ix *BookingIndex) seal() {
	for day, times := range ix.days {
		slices.SortFunc(times, func(a, b time.Time) int { return a.Compare(b) })
		ix.days[day] = times
	}
}

// BuildIndex indexes the appointments in one pass.
func BuildIndex(appointments []BookedAppointment, loc *time.Location) *BookingIndex {
	ix := newBookingIndex(loc)
	for _, appt := range appointments {
		ix.add(appt)
	}
	ix.seal()
	return ix
}

// IndexBuilder indexes large feeds in batches, yielding between batches.
type IndexBuilder struct {
	BatchSize int
	Location  *time.Location
}

// Build produces the same index as BuildIndex, or the context error if the
// context ends between batches.
func (b IndexBuilder) Build(ctx context.Context, appointments []BookedAppointment) (*BookingIndex, error) {
	size := b.BatchSize
	if size <= 0 {
		size = DefaultIndexBatchSize
	}

	ix := newBookingIndex(b.Location)
	for start := 0; start < len(appointments); start += size {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+size, len(appointments))
		for _, appt := range appointments[start:end] {
			ix.add(appt)
		}
		if end < len(appointments) {
			runtime.Gosched()
		}
	}
	ix.seal()
	return ix, nil
}

// Location returns the location dates are grouped in.
func (ix *BookingIndex) Location() *time.Location {
	if ix == nil || ix.loc == nil {
		return time.Local
	}
	return ix.loc
}

// Count returns the number of slot-occupying appointments on d.
func (ix *BookingIndex) Count(d Date) int {
	if ix == nil {
		return 0
	}
	return len(ix.days[d])
}

// Times returns the booked timestamps on d in ascending order.
func (ix *BookingIndex) Times(d Date) []time.Time {
	if ix == nil {
		return nil
	}
	return slices.Clone(ix.days[d])
}

// IsBooked reports whether an appointment starts exactly at tod on d.
func (ix *BookingIndex) IsBooked(d Date, tod TimeOfDay) bool {
	if ix == nil {
		return false
	}
	for _, at := range ix.days[d] {
		if at.Hour() == tod.Hour && at.Minute() == tod.Minute {
			return true
		}
	}
	return false
}

// Dates returns every date with at least one booking, ascending.
func (ix *BookingIndex) Dates() []Date {
	if ix == nil {
		return nil
	}
	out := make([]Date, 0, len(ix.days))
	for d := range ix.days {
		out = append(out, d)
	}
	slices.SortFunc(out, Date.Compare)
	return out
}

// Total returns the number of indexed appointments.
func (ix *BookingIndex) Total() int {
	if ix == nil {
		return 0
	}
	n := 0
	for _, times := range ix.days {
		n += len(times)
	}
	return n
}

// Equal reports whether both indexes hold the same timestamps per date.
func (ix *BookingIndex) Equal(other *BookingIndex) bool {
	if ix.Total() != other.Total() {
		return false
	}
	if ix == nil || other == nil {
		return true
	}
	for d, times := range ix.days {
		if !slices.EqualFunc(times, other.days[d], time.Time.Equal) {
			return false
		}
	}
	return true
}
