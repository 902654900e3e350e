package domain_test

import (
	"testing"
	"time"

	"github.com/felixgeelhaar/carebook/internal/availability/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Wednesday 2026-10-14, 10:15 UTC.
var evalNow = time.Date(2026, 10, 14, 10, 15, 0, 0, time.UTC)

var (
	today      = domain.NewDate(2026, time.October, 14)
	nextMonday = domain.NewDate(2026, time.October, 19)
)

func fixedClock(t time.Time) domain.Clock {
	return domain.ClockFunc(func() time.Time { return t })
}

func newEvaluator(policy *domain.Policy, appts ...domain.BookedAppointment) *domain.Evaluator {
	return domain.NewEvaluator(policy, domain.BuildIndex(appts, time.UTC), fixedClock(evalNow), time.UTC)
}

func bookingsOn(d domain.Date, times ...domain.TimeOfDay) []domain.BookedAppointment {
	out := make([]domain.BookedAppointment, 0, len(times))
	for _, at := range times {
		out = append(out, appointmentAt(d.At(at, time.UTC), domain.AppointmentStatusScheduled))
	}
	return out
}

func allWorkingSlots() []domain.TimeOfDay {
	return []domain.TimeOfDay{
		tod(8, 0), tod(8, 30), tod(9, 0), tod(9, 30), tod(10, 0), tod(10, 30), tod(11, 0), tod(11, 30),
		tod(13, 0), tod(13, 30), tod(14, 0), tod(14, 30), tod(15, 0), tod(15, 30), tod(16, 0), tod(16, 30),
	}
}

func TestEvaluator_FailClosed(t *testing.T) {
	empty := weekdayPolicy()
	empty.WorkingDays = nil

	for name, policy := range map[string]*domain.Policy{"absent policy": nil, "no working days": empty} {
		t.Run(name, func(t *testing.T) {
			e := newEvaluator(policy)
			for d := today; !d.After(today.AddDays(60)); d = d.AddDays(1) {
				assert.False(t, e.IsDateAvailable(d), d.String())
			}
			assert.Empty(t, e.BookableDates(today, today.AddDays(60)))
		})
	}

	assert.Equal(t, domain.DayStatusUnconfigured, newEvaluator(nil).Status(nextMonday))
	assert.Empty(t, newEvaluator(nil).AvailableTimes(nextMonday))
}

func TestEvaluator_BookingWindowBounds(t *testing.T) {
	p := weekdayPolicy()
	p.BookingWindow = &domain.DateRange{Start: nextMonday, End: nextMonday.AddDays(4)}
	e := newEvaluator(p)

	for d := today; !d.After(nextMonday.AddDays(30)); d = d.AddDays(1) {
		if d.Before(p.BookingWindow.Start) || d.After(p.BookingWindow.End) {
			assert.False(t, e.IsDateAvailable(d), d.String())
			assert.Equal(t, domain.DayStatusOutsideBookingWindow, e.Status(d))
		}
	}
	assert.True(t, e.IsDateAvailable(nextMonday))
	assert.True(t, e.IsDateAvailable(nextMonday.AddDays(4)), "window end is inclusive")
	assert.Len(t, e.BookableDates(today, nextMonday.AddDays(30)), 5)
}

func TestEvaluator_CapacityCeiling(t *testing.T) {
	booked := bookingsOn(nextMonday,
		tod(8, 0), tod(8, 30), tod(9, 0), tod(9, 30), tod(10, 0),
		tod(10, 30), tod(11, 0), tod(11, 30), tod(13, 0), tod(13, 30),
	)
	e := newEvaluator(weekdayPolicy(), booked...)

	assert.True(t, e.IsDateFullyBooked(nextMonday))
	assert.False(t, e.IsDateAvailable(nextMonday))
	assert.Equal(t, domain.DayStatusFullyBooked, e.Status(nextMonday))
	assert.Len(t, e.AvailableTimes(nextMonday), 6, "slots remain by time")
}

func TestEvaluator_DefaultCapacity(t *testing.T) {
	p := weekdayPolicy()
	p.MaxAppointmentsPerDay = 0

	nine := bookingsOn(nextMonday, allWorkingSlots()[:9]...)
	assert.False(t, newEvaluator(p, nine...).IsDateFullyBooked(nextMonday))

	ten := bookingsOn(nextMonday, allWorkingSlots()[:10]...)
	assert.True(t, newEvaluator(p, ten...).IsDateFullyBooked(nextMonday))
}

func TestEvaluator_BlockedWindowExclusion(t *testing.T) {
	p := weekdayPolicy()
	p.BlockedTimeSlots = []domain.BlockedTimeSlot{
		{Date: nextMonday, StartTime: tod(9, 0), EndTime: tod(10, 0), Reason: "rounds"},
	}
	e := newEvaluator(p)

	times := e.AvailableTimes(nextMonday)
	assert.NotContains(t, times, tod(9, 0))
	assert.NotContains(t, times, tod(9, 30))
	assert.Contains(t, times, tod(10, 0))

	tuesday := nextMonday.AddDays(1)
	assert.Equal(t, allWorkingSlots(), e.AvailableTimes(tuesday))
}

func TestEvaluator_MalformedBlockIsInert(t *testing.T) {
	p := weekdayPolicy()
	p.BlockedTimeSlots = []domain.BlockedTimeSlot{
		{Date: nextMonday, StartTime: tod(11, 0), EndTime: tod(9, 0)},
	}

	assert.Equal(t, allWorkingSlots(), newEvaluator(p).AvailableTimes(nextMonday))
}

func TestEvaluator_NoPastSlots(t *testing.T) {
	e := newEvaluator(weekdayPolicy())

	times := e.AvailableTimes(today)
	require.NotEmpty(t, times)
	assert.Equal(t, tod(10, 30), times[0])
	for _, slot := range times {
		assert.True(t, today.At(slot, time.UTC).After(evalNow))
	}

	t.Run("slot at the current instant is excluded", func(t *testing.T) {
		atSlot := domain.NewEvaluator(weekdayPolicy(), nil, fixedClock(today.At(tod(10, 30), time.UTC)), time.UTC)
		assert.NotContains(t, atSlot.AvailableTimes(today), tod(10, 30))
		assert.Contains(t, atSlot.AvailableTimes(today), tod(11, 0))
	})

	t.Run("past dates have no slots", func(t *testing.T) {
		assert.Empty(t, e.AvailableTimes(today.AddDays(-2)))
		assert.Equal(t, domain.DayStatusNoOpenSlots, e.Status(today.AddDays(-2)))
	})

	t.Run("today after hours is unavailable", func(t *testing.T) {
		late := domain.NewEvaluator(weekdayPolicy(), nil, fixedClock(today.At(tod(16, 30), time.UTC)), time.UTC)
		assert.False(t, late.IsDateAvailable(today))
	})
}

func TestEvaluator_WorkingDaysAndHolidays(t *testing.T) {
	p := weekdayPolicy()
	p.Holidays = []domain.Date{nextMonday.AddDays(1)}
	e := newEvaluator(p)

	assert.Equal(t, domain.DayStatusNonWorkingDay, e.Status(nextMonday.AddDays(-1)))
	assert.Equal(t, domain.DayStatusHoliday, e.Status(nextMonday.AddDays(1)))
	assert.False(t, e.IsDateAvailable(nextMonday.AddDays(1)))
	assert.Equal(t, domain.DayStatusAvailable, e.Status(nextMonday))
}

func TestEvaluator_EveryOpenSlotBlocked(t *testing.T) {
	p := weekdayPolicy()
	p.BlockedTimeSlots = []domain.BlockedTimeSlot{
		{Date: nextMonday, StartTime: tod(8, 0), EndTime: tod(12, 0)},
		{Date: nextMonday, StartTime: tod(13, 0), EndTime: tod(17, 0)},
	}
	e := newEvaluator(p)

	assert.False(t, e.IsDateFullyBooked(nextMonday))
	assert.False(t, e.IsDateAvailable(nextMonday))
	assert.Equal(t, domain.DayStatusNoOpenSlots, e.Status(nextMonday))
}

func TestEvaluator_Scenarios(t *testing.T) {
	t.Run("open future monday", func(t *testing.T) {
		e := newEvaluator(weekdayPolicy())

		assert.True(t, e.IsDateAvailable(nextMonday))
		assert.Equal(t, allWorkingSlots(), e.AvailableTimes(nextMonday))
	})

	t.Run("ten bookings fill the monday", func(t *testing.T) {
		e := newEvaluator(weekdayPolicy(), bookingsOn(nextMonday, allWorkingSlots()[6:]...)...)

		assert.True(t, e.IsDateFullyBooked(nextMonday))
		assert.False(t, e.IsDateAvailable(nextMonday))
	})

	t.Run("blocked slot and existing booking", func(t *testing.T) {
		p := weekdayPolicy()
		p.BlockedTimeSlots = []domain.BlockedTimeSlot{
			{Date: nextMonday, StartTime: tod(9, 0), EndTime: tod(9, 30)},
		}
		e := newEvaluator(p, bookingsOn(nextMonday, tod(10, 0))...)

		times := e.AvailableTimes(nextMonday)
		assert.NotContains(t, times, tod(9, 0))
		assert.NotContains(t, times, tod(10, 0))
		for _, want := range []domain.TimeOfDay{tod(8, 0), tod(8, 30), tod(9, 30), tod(10, 30)} {
			assert.Contains(t, times, want)
		}
		assert.Len(t, times, 14)
	})
}

func TestEvaluator_FirstAvailableAndCanBook(t *testing.T) {
	e := newEvaluator(weekdayPolicy(), bookingsOn(nextMonday, tod(8, 0))...)

	first, ok := e.FirstAvailable(nextMonday)
	require.True(t, ok)
	assert.Equal(t, tod(8, 30), first)

	_, ok = e.FirstAvailable(nextMonday.AddDays(-1))
	assert.False(t, ok)

	assert.True(t, e.CanBook(nextMonday.At(tod(8, 30), time.UTC)))
	assert.False(t, e.CanBook(nextMonday.At(tod(8, 0), time.UTC)), "already booked")
	assert.False(t, e.CanBook(nextMonday.At(tod(8, 45), time.UTC)), "not a slot boundary")
	assert.False(t, e.CanBook(nextMonday.At(tod(12, 0), time.UTC)), "lunch")
}

func TestEvaluator_SlotsAscending(t *testing.T) {
	times := newEvaluator(weekdayPolicy()).AvailableTimes(nextMonday)
	for i := 1; i < len(times); i++ {
		assert.Less(t, times[i-1].Minutes(), times[i].Minutes())
	}
}
