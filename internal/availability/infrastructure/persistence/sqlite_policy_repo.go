package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/felixgeelhaar/carebook/internal/availability/domain"
	"github.com/felixgeelhaar/carebook/internal/shared/infrastructure/database"
	"github.com/google/uuid"
)

// SQLitePolicyRepository stores physician policies in SQLite.
type SQLitePolicyRepository struct {
	conn database.Connection
}

var _ domain.PolicyRepository = (*SQLitePolicyRepository)(nil)

// NewSQLitePolicyRepository creates a new SQLite policy repository.
func NewSQLitePolicyRepository(conn database.Connection) *SQLitePolicyRepository {
	return &SQLitePolicyRepository{conn: conn}
}

// FindByPhysician returns the physician's policy, or nil if none is stored.
func (r *SQLitePolicyRepository) FindByPhysician(ctx context.Context, physicianID uuid.UUID) (*domain.Policy, error) {
	query := `
		SELECT working_days, daily_window, holidays, booking_window,
			max_appointments_per_day, blocked_time_slots
		FROM physician_policies
		WHERE physician_id = ?
	`

	var (
		workingDays   string
		dailyWindow   sql.NullString
		holidays      string
		bookingWindow sql.NullString
		cols          policyColumns
		blocked       string
	)
	err := database.ExecutorFromContext(ctx, r.conn).QueryRow(ctx, query, physicianID.String()).Scan(
		&workingDays, &dailyWindow, &holidays, &bookingWindow, &cols.maxPerDay, &blocked,
	)
	if database.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find policy: %w", err)
	}

	if err := json.Unmarshal([]byte(workingDays), &cols.workingDays); err != nil {
		return nil, fmt.Errorf("decode working days: %w", err)
	}
	if dailyWindow.Valid {
		cols.dailyWindow = []byte(dailyWindow.String)
	}
	if bookingWindow.Valid {
		cols.bookingWindow = []byte(bookingWindow.String)
	}
	cols.holidays = []byte(holidays)
	cols.blockedSlots = []byte(blocked)

	return cols.policy()
}

// Save creates or replaces the physician's policy.
func (r *SQLitePolicyRepository) Save(ctx context.Context, physicianID uuid.UUID, policy *domain.Policy) error {
	cols, err := splitPolicy(policy)
	if err != nil {
		return err
	}
	workingDays, err := json.Marshal(cols.workingDays)
	if err != nil {
		return fmt.Errorf("encode working days: %w", err)
	}

	query := `
		INSERT INTO physician_policies (
			physician_id, working_days, daily_window, holidays, booking_window,
			max_appointments_per_day, blocked_time_slots, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(physician_id) DO UPDATE SET
			working_days = excluded.working_days,
			daily_window = excluded.daily_window,
			holidays = excluded.holidays,
			booking_window = excluded.booking_window,
			max_appointments_per_day = excluded.max_appointments_per_day,
			blocked_time_slots = excluded.blocked_time_slots,
			updated_at = excluded.updated_at
	`

	_, err = database.ExecutorFromContext(ctx, r.conn).Exec(ctx, query,
		physicianID.String(),
		string(workingDays),
		nullString(cols.dailyWindow),
		string(cols.holidays),
		nullString(cols.bookingWindow),
		cols.maxPerDay,
		string(cols.blockedSlots),
		time.Now().UTC().Format(sqliteTimeLayout),
	)
	if err != nil {
		return fmt.Errorf("save policy: %w", err)
	}
	return nil
}

func nullString(b []byte) sql.NullString {
	if b == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}
