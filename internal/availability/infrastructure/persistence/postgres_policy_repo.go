package persistence

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/carebook/internal/availability/domain"
	"github.com/felixgeelhaar/carebook/internal/shared/infrastructure/database"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgresPolicyRepository stores physician policies in PostgreSQL.
type PostgresPolicyRepository struct {
	conn database.Connection
}

var _ domain.PolicyRepository = (*PostgresPolicyRepository)(nil)

// NewPostgresPolicyRepository creates a new PostgreSQL policy repository.
func NewPostgresPolicyRepository(conn database.Connection) *PostgresPolicyRepository {
	return &PostgresPolicyRepository{conn: conn}
}

// FindByPhysician returns the physician's policy, or nil if none is stored.
func (r *PostgresPolicyRepository) FindByPhysician(ctx context.Context, physicianID uuid.UUID) (*domain.Policy, error) {
	query := `
		SELECT working_days::text, daily_window, holidays, booking_window,
			max_appointments_per_day, blocked_time_slots
		FROM physician_policies
		WHERE physician_id = $1
	`

	var cols policyColumns
	err := database.ExecutorFromContext(ctx, r.conn).QueryRow(ctx, query, physicianID).Scan(
		(*pq.Int64Array)(&cols.workingDays),
		&cols.dailyWindow,
		&cols.holidays,
		&cols.bookingWindow,
		&cols.maxPerDay,
		&cols.blockedSlots,
	)
	if database.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find policy: %w", err)
	}
	return cols.policy()
}

// Save creates or replaces the physician's policy.
func (r *PostgresPolicyRepository) Save(ctx context.Context, physicianID uuid.UUID, policy *domain.Policy) error {
	cols, err := splitPolicy(policy)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO physician_policies (
			physician_id, working_days, daily_window, holidays, booking_window,
			max_appointments_per_day, blocked_time_slots, updated_at
		) VALUES ($1, $2::smallint[], $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (physician_id) DO UPDATE SET
			working_days = EXCLUDED.working_days,
			daily_window = EXCLUDED.daily_window,
			holidays = EXCLUDED.holidays,
			booking_window = EXCLUDED.booking_window,
			max_appointments_per_day = EXCLUDED.max_appointments_per_day,
			blocked_time_slots = EXCLUDED.blocked_time_slots,
			updated_at = NOW()
	`

	_, err = database.ExecutorFromContext(ctx, r.conn).Exec(ctx, query,
		physicianID,
		pq.Array(cols.workingDays),
		cols.dailyWindow,
		cols.holidays,
		cols.bookingWindow,
		cols.maxPerDay,
		cols.blockedSlots,
	)
	if err != nil {
		return fmt.Errorf("save policy: %w", err)
	}
	return nil
}
