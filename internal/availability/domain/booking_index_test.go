package domain_test

import (
	"context"
	"testing"
	"time"

	"github.com/felixgeelhaar/carebook/internal/availability/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appointmentAt(t time.Time, status domain.AppointmentStatus) domain.BookedAppointment {
	return domain.BookedAppointment{
		ID:       uuid.New(),
		DateTime: t,
		Status:   status,
	}
}

func TestBuildIndex_GroupsByDate(t *testing.T) {
	monday := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	appts := []domain.BookedAppointment{
		appointmentAt(monday.Add(14*time.Hour), domain.AppointmentStatusScheduled),
		appointmentAt(monday.Add(9*time.Hour), domain.AppointmentStatusConfirmed),
		appointmentAt(monday.Add(33*time.Hour), domain.AppointmentStatusPending),
	}

	ix := domain.BuildIndex(appts, time.UTC)

	day := domain.DateOf(monday)
	assert.Equal(t, 2, ix.Count(day))
	assert.Equal(t, 1, ix.Count(day.AddDays(1)))
	assert.Equal(t, 3, ix.Total())
	assert.Equal(t, []time.Time{monday.Add(9 * time.Hour), monday.Add(14 * time.Hour)}, ix.Times(day))
	assert.Equal(t, []domain.Date{day, day.AddDays(1)}, ix.Dates())
}

func TestBuildIndex_FiltersCancelledAndArchived(t *testing.T) {
	at := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	archived := appointmentAt(at.Add(time.Hour), domain.AppointmentStatusScheduled)
	archived.Archived = true

	appts := []domain.BookedAppointment{
		appointmentAt(at, domain.AppointmentStatusCancelled),
		appointmentAt(at, domain.AppointmentStatusArchived),
		archived,
		appointmentAt(at.Add(2*time.Hour), domain.AppointmentStatusCompleted),
		appointmentAt(at.Add(3*time.Hour), domain.AppointmentStatus("no_show")),
	}

	ix := domain.BuildIndex(appts, time.UTC)

	assert.Equal(t, 2, ix.Count(domain.DateOf(at)))
	assert.False(t, ix.IsBooked(domain.DateOf(at), tod(9, 0)))
	assert.False(t, ix.IsBooked(domain.DateOf(at), tod(10, 0)))
	assert.True(t, ix.IsBooked(domain.DateOf(at), tod(11, 0)))
}

func TestBuildIndex_GroupsInLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	// 22:30 UTC on the 18th is 01:30 on the 19th at UTC+3.
	appt := appointmentAt(time.Date(2026, 10, 18, 22, 30, 0, 0, time.UTC), domain.AppointmentStatusScheduled)

	ix := domain.BuildIndex([]domain.BookedAppointment{appt}, loc)

	assert.Equal(t, 0, ix.Count(domain.NewDate(2026, time.October, 18)))
	assert.Equal(t, 1, ix.Count(domain.NewDate(2026, time.October, 19)))
	assert.True(t, ix.IsBooked(domain.NewDate(2026, time.October, 19), tod(1, 30)))
}

func TestBookingIndex_IsBookedIsExact(t *testing.T) {
	at := time.Date(2026, 10, 19, 10, 15, 0, 0, time.UTC)
	ix := domain.BuildIndex([]domain.BookedAppointment{appointmentAt(at, domain.AppointmentStatusScheduled)}, time.UTC)

	day := domain.DateOf(at)
	assert.True(t, ix.IsBooked(day, tod(10, 15)))
	assert.False(t, ix.IsBooked(day, tod(10, 0)))
	assert.False(t, ix.IsBooked(day, tod(10, 30)))
}

func TestIndexBuilder_MatchesSinglePass(t *testing.T) {
	start := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	appts := make([]domain.BookedAppointment, 0, 1000)
	for i := 0; i < 1000; i++ {
		status := domain.AppointmentStatusScheduled
		if i%7 == 0 {
			status = domain.AppointmentStatusCancelled
		}
		appts = append(appts, appointmentAt(start.Add(time.Duration(i)*97*time.Minute), status))
	}

	builder := domain.IndexBuilder{BatchSize: 64, Location: time.UTC}
	batched, err := builder.Build(context.Background(), appts)
	require.NoError(t, err)

	single := domain.BuildIndex(appts, time.UTC)
	assert.True(t, single.Equal(batched))
	assert.Equal(t, single.Dates(), batched.Dates())
}

func TestIndexBuilder_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	appts := []domain.BookedAppointment{appointmentAt(time.Now(), domain.AppointmentStatusScheduled)}
	ix, err := domain.IndexBuilder{BatchSize: 1}.Build(ctx, appts)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, ix)
}

func TestBookingIndex_NilIsEmpty(t *testing.T) {
	var ix *domain.BookingIndex
	day := domain.NewDate(2026, time.October, 19)

	assert.Equal(t, 0, ix.Count(day))
	assert.Equal(t, 0, ix.Total())
	assert.False(t, ix.IsBooked(day, tod(9, 0)))
	assert.Empty(t, ix.Times(day))
	assert.True(t, ix.Equal(domain.BuildIndex(nil, time.UTC)))
}
