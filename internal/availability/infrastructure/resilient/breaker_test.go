package resilient_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/carebook/internal/availability/domain"
	"github.com/felixgeelhaar/carebook/internal/availability/infrastructure/resilient"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyPolicies struct {
	err   error
	calls int
}

func (f *flakyPolicies) FindByPhysician(ctx context.Context, physicianID uuid.UUID) (*domain.Policy, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Policy{MaxAppointmentsPerDay: 4}, nil
}

func (f *flakyPolicies) Save(ctx context.Context, physicianID uuid.UUID, policy *domain.Policy) error {
	f.calls++
	return f.err
}

type flakyFeed struct {
	err   error
	calls int
}

func (f *flakyFeed) ListByPhysician(ctx context.Context, physicianID uuid.UUID) ([]domain.BookedAppointment, error) {
	f.calls++
	return nil, f.err
}

var errDB = errors.New("connection refused")

func TestPolicyRepository_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := &flakyPolicies{err: errDB}
	cfg := resilient.BreakerConfig{FailureThreshold: 3, Timeout: time.Hour}
	repo := resilient.NewPolicyRepository(inner, cfg, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := repo.FindByPhysician(ctx, uuid.New())
		assert.ErrorIs(t, err, errDB)
	}
	assert.Equal(t, "open", repo.State())

	_, err := repo.FindByPhysician(ctx, uuid.New())
	assert.ErrorIs(t, err, resilient.ErrStoreUnavailable)
	assert.Equal(t, 3, inner.calls, "open breaker does not reach the store")
}

func TestPolicyRepository_PassesResultsThrough(t *testing.T) {
	repo := resilient.NewPolicyRepository(&flakyPolicies{}, resilient.DefaultBreakerConfig(), nil)

	policy, err := repo.FindByPhysician(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 4, policy.MaxAppointmentsPerDay)
	assert.Equal(t, "closed", repo.State())
}

func TestPolicyRepository_SaveBypassesBreaker(t *testing.T) {
	inner := &flakyPolicies{err: errDB}
	repo := resilient.NewPolicyRepository(inner, resilient.BreakerConfig{FailureThreshold: 1, Timeout: time.Hour}, nil)

	_, _ = repo.FindByPhysician(context.Background(), uuid.New())
	require.Equal(t, "open", repo.State())

	err := repo.Save(context.Background(), uuid.New(), &domain.Policy{})
	assert.ErrorIs(t, err, errDB)
	assert.Equal(t, 2, inner.calls)
}

func TestAppointmentFeed_CancellationDoesNotTrip(t *testing.T) {
	inner := &flakyFeed{err: context.Canceled}
	feed := resilient.NewAppointmentFeed(inner, resilient.BreakerConfig{FailureThreshold: 1, Timeout: time.Hour}, nil)

	for i := 0; i < 3; i++ {
		_, err := feed.ListByPhysician(context.Background(), uuid.New())
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, "closed", feed.State())
	assert.Equal(t, 3, inner.calls)
}

func TestAppointmentFeed_HalfOpenProbe(t *testing.T) {
	inner := &flakyFeed{err: errDB}
	feed := resilient.NewAppointmentFeed(inner, resilient.BreakerConfig{FailureThreshold: 1, Timeout: 10 * time.Millisecond}, nil)

	_, _ = feed.ListByPhysician(context.Background(), uuid.New())
	require.Equal(t, "open", feed.State())

	time.Sleep(20 * time.Millisecond)
	inner.err = nil

	_, err := feed.ListByPhysician(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, "closed", feed.State())
}
