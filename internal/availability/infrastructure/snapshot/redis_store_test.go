package snapshot

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/felixgeelhaar/carebook/internal/availability/application/cache"
	"github.com/felixgeelhaar/carebook/internal/availability/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() cache.Record {
	return cache.Record{
		Policy: &domain.Policy{
			WorkingDays:           []time.Weekday{time.Monday, time.Wednesday},
			DailyWindow:           &domain.DailyWindow{StartHour: 8, EndHour: 17},
			Holidays:              []domain.Date{domain.NewDate(2026, time.December, 25)},
			MaxAppointmentsPerDay: 6,
			BlockedTimeSlots: []domain.BlockedTimeSlot{{
				Date:      domain.NewDate(2026, time.October, 19),
				StartTime: domain.TimeOfDay{Hour: 9},
				EndTime:   domain.TimeOfDay{Hour: 10},
				Reason:    "rounds",
			}},
		},
		Appointments: []domain.BookedAppointment{{
			ID:          uuid.New(),
			PhysicianID: uuid.New(),
			PatientID:   uuid.New(),
			DateTime:    time.Date(2026, 10, 19, 13, 0, 0, 0, time.UTC),
			Status:      domain.AppointmentStatusConfirmed,
		}},
		FetchedAt: time.Date(2026, 10, 14, 10, 15, 0, 0, time.UTC),
	}
}

func TestKey(t *testing.T) {
	id := uuid.MustParse("6f1c2b1e-8d2a-4f67-9a35-5f0c3f1b2a10")
	assert.Equal(t, "carebook:availability:snapshot:6f1c2b1e-8d2a-4f67-9a35-5f0c3f1b2a10", Key(id))
}

func TestCodec(t *testing.T) {
	record := sampleRecord()

	data, err := encode(record)
	require.NoError(t, err)

	decoded, err := decode(data)
	require.NoError(t, err)
	require.NotNil(t, decoded)
	assert.True(t, record.Policy.Equal(decoded.Policy))
	assert.Equal(t, record.Appointments, decoded.Appointments)
	assert.True(t, record.FetchedAt.Equal(decoded.FetchedAt))
}

func TestDecode_UnknownVersionIsAbsent(t *testing.T) {
	decoded, err := decode([]byte(`{"version":99,"record":{"appointments":[]}}`))
	require.NoError(t, err)
	assert.Nil(t, decoded)

	_, err = decode([]byte(`{`))
	assert.Error(t, err)
}

func TestRedisStore_Integration(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}

	ctx := context.Background()
	client, err := Connect(ctx, url)
	require.NoError(t, err)
	defer client.Close()

	store := NewRedisStore(client, time.Minute)
	id := uuid.New()
	defer func() { _ = store.Delete(ctx, id) }()

	missing, err := store.Load(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, missing)

	record := sampleRecord()
	require.NoError(t, store.Save(ctx, id, record))

	loaded, err := store.Load(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.True(t, record.Policy.Equal(loaded.Policy))

	ttl, err := client.TTL(ctx, Key(id)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}
