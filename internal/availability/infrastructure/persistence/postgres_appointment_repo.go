package persistence

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/carebook/internal/availability/domain"
	"github.com/felixgeelhaar/carebook/internal/shared/infrastructure/database"
	"github.com/google/uuid"
)

// PostgresAppointmentRepository stores appointment records in PostgreSQL.
type PostgresAppointmentRepository struct {
	conn database.Connection
}

var _ domain.AppointmentRepository = (*PostgresAppointmentRepository)(nil)

// NewPostgresAppointmentRepository creates a new PostgreSQL appointment repository.
func NewPostgresAppointmentRepository(conn database.Connection) *PostgresAppointmentRepository {
	return &PostgresAppointmentRepository{conn: conn}
}

// Save creates or replaces an appointment record.
func (r *PostgresAppointmentRepository) Save(ctx context.Context, appt domain.BookedAppointment) error {
	query := `
		INSERT INTO appointments (id, physician_id, patient_id, date_time, status, archived, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (id) DO UPDATE SET
			physician_id = EXCLUDED.physician_id,
			patient_id = EXCLUDED.patient_id,
			date_time = EXCLUDED.date_time,
			status = EXCLUDED.status,
			archived = EXCLUDED.archived,
			updated_at = NOW()
	`

	_, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx, query,
		appt.ID, appt.PhysicianID, appt.PatientID, appt.DateTime.UTC(), string(appt.Status), appt.Archived,
	)
	if err != nil {
		return fmt.Errorf("save appointment: %w", err)
	}
	return nil
}

// ListByPhysician returns the physician's appointments ordered by time.
func (r *PostgresAppointmentRepository) ListByPhysician(ctx context.Context, physicianID uuid.UUID) ([]domain.BookedAppointment, error) {
	query := `
		SELECT id, physician_id, patient_id, date_time, status, archived
		FROM appointments
		WHERE physician_id = $1
		ORDER BY date_time
	`

	rows, err := database.ExecutorFromContext(ctx, r.conn).Query(ctx, query, physicianID)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	appts := make([]domain.BookedAppointment, 0)
	for rows.Next() {
		var (
			appt   domain.BookedAppointment
			status string
		)
		if err := rows.Scan(&appt.ID, &appt.PhysicianID, &appt.PatientID, &appt.DateTime, &status, &appt.Archived); err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		appt.Status = domain.AppointmentStatus(status)
		appts = append(appts, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appts, nil
}
