// Package resilient wraps availability stores in circuit breakers so a
// failing store fails fast into the cache's stale path.
package resilient

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/carebook/internal/availability/domain"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
)

// ErrStoreUnavailable is returned while a breaker is open.
var ErrStoreUnavailable = errors.New("store unavailable")

// BreakerConfig configures store circuit breakers.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens the breaker.
	FailureThreshold uint32
	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration
	// MaxRequests is the number of probes allowed while half-open.
	MaxRequests uint32
	// Interval clears the closed-state counts; zero never clears them.
	Interval time.Duration
}

// DefaultBreakerConfig returns the default breaker configuration.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		Timeout:          30 * time.Second,
		MaxRequests:      1,
	}
}

func newBreaker[T any](name string, cfg BreakerConfig, logger *slog.Logger) *gobreaker.CircuitBreaker[T] {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = DefaultBreakerConfig().FailureThreshold
	}
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		// A cancelled caller says nothing about the store's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state changed",
				"store", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}
	return gobreaker.NewCircuitBreaker[T](settings)
}

func execute[T any](breaker *gobreaker.CircuitBreaker[T], fn func() (T, error)) (T, error) {
	result, err := breaker.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		var zero T
		return zero, errors.Join(ErrStoreUnavailable, err)
	}
	return result, err
}

// PolicyRepository guards policy reads with a circuit breaker. Writes pass
// straight through so an administrator sees the real error.
type PolicyRepository struct {
	next    domain.PolicyRepository
	breaker *gobreaker.CircuitBreaker[*domain.Policy]
}

var _ domain.PolicyRepository = (*PolicyRepository)(nil)

// NewPolicyRepository wraps next in a breaker.
func NewPolicyRepository(next domain.PolicyRepository, cfg BreakerConfig, logger *slog.Logger) *PolicyRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PolicyRepository{
		next:    next,
		breaker: newBreaker[*domain.Policy]("policy_store", cfg, logger),
	}
}

func (r *PolicyRepository) FindByPhysician(ctx context.Context, physicianID uuid.UUID) (*domain.Policy, error) {
	return execute(r.breaker, func() (*domain.Policy, error) {
		return r.next.FindByPhysician(ctx, physicianID)
	})
}

func (r *PolicyRepository) Save(ctx context.Context, physicianID uuid.UUID, policy *domain.Policy) error {
	return r.next.Save(ctx, physicianID, policy)
}

// State returns the breaker state name.
func (r *PolicyRepository) State() string {
	return r.breaker.State().String()
}

// AppointmentFeed guards appointment reads with a circuit breaker.
type AppointmentFeed struct {
	next    domain.AppointmentFeed
	breaker *gobreaker.CircuitBreaker[[]domain.BookedAppointment]
}

var _ domain.AppointmentFeed = (*AppointmentFeed)(nil)

// NewAppointmentFeed wraps next in a breaker.
func NewAppointmentFeed(next domain.AppointmentFeed, cfg BreakerConfig, logger *slog.Logger) *AppointmentFeed {
	if logger == nil {
		logger = slog.Default()
	}
	return &AppointmentFeed{
		next:    next,
		breaker: newBreaker[[]domain.BookedAppointment]("appointment_feed", cfg, logger),
	}
}

func (f *AppointmentFeed) ListByPhysician(ctx context.Context, physicianID uuid.UUID) ([]domain.BookedAppointment, error) {
	return execute(f.breaker, func() ([]domain.BookedAppointment, error) {
		return f.next.ListByPhysician(ctx, physicianID)
	})
}

// State returns the breaker state name.
func (f *AppointmentFeed) State() string {
	return f.breaker.State().String()
}
