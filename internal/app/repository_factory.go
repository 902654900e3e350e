package app

import (
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/carebook/internal/availability/domain"
	"github.com/felixgeelhaar/carebook/internal/availability/infrastructure/persistence"
	"github.com/felixgeelhaar/carebook/internal/availability/infrastructure/resilient"
	"github.com/felixgeelhaar/carebook/internal/shared/infrastructure/database"
)

// RepositoryFactory creates repositories based on the database driver.
// Read paths used by the availability cache are wrapped in circuit breakers.
type RepositoryFactory struct {
	conn    database.Connection
	driver  database.Driver
	breaker resilient.BreakerConfig
	logger  *slog.Logger
}

// NewRepositoryFactory creates a new repository factory.
func NewRepositoryFactory(conn database.Connection, breaker resilient.BreakerConfig, logger *slog.Logger) *RepositoryFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &RepositoryFactory{
		conn:    conn,
		driver:  conn.Driver(),
		breaker: breaker,
		logger:  logger,
	}
}

// PolicyRepository creates a breaker-guarded policy repository for the configured driver.
func (f *RepositoryFactory) PolicyRepository() (*resilient.PolicyRepository, error) {
	var repo domain.PolicyRepository
	switch f.driver {
	case database.DriverPostgres:
		repo = persistence.NewPostgresPolicyRepository(f.conn)
	case database.DriverSQLite:
		repo = persistence.NewSQLitePolicyRepository(f.conn)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", f.driver)
	}
	return resilient.NewPolicyRepository(repo, f.breaker, f.logger), nil
}

// AppointmentRepository creates an appointment repository for the configured driver.
func (f *RepositoryFactory) AppointmentRepository() (domain.AppointmentRepository, error) {
	switch f.driver {
	case database.DriverPostgres:
		return persistence.NewPostgresAppointmentRepository(f.conn), nil
	case database.DriverSQLite:
		return persistence.NewSQLiteAppointmentRepository(f.conn), nil
	default:
		return nil, fmt.Errorf("unsupported driver: %s", f.driver)
	}
}

// AppointmentFeed wraps the appointment repository's reads in a circuit breaker.
func (f *RepositoryFactory) AppointmentFeed(repo domain.AppointmentFeed) *resilient.AppointmentFeed {
	return resilient.NewAppointmentFeed(repo, f.breaker, f.logger)
}

// Driver returns the database driver.
func (f *RepositoryFactory) Driver() database.Driver {
	return f.driver
}

// Connection returns the underlying connection.
func (f *RepositoryFactory) Connection() database.Connection {
	return f.conn
}
