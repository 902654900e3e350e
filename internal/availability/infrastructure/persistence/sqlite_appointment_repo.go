package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/carebook/internal/availability/domain"
	"github.com/felixgeelhaar/carebook/internal/shared/infrastructure/database"
	"github.com/google/uuid"
)

// SQLiteAppointmentRepository stores appointment records in SQLite.
type SQLiteAppointmentRepository struct {
	conn database.Connection
}

var _ domain.AppointmentRepository = (*SQLiteAppointmentRepository)(nil)

// NewSQLiteAppointmentRepository creates a new SQLite appointment repository.
func NewSQLiteAppointmentRepository(conn database.Connection) *SQLiteAppointmentRepository {
	return &SQLiteAppointmentRepository{conn: conn}
}

// Save creates or replaces an appointment record.
func (r *SQLiteAppointmentRepository) Save(ctx context.Context, appt domain.BookedAppointment) error {
	query := `
		INSERT INTO appointments (id, physician_id, patient_id, date_time, status, archived, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			physician_id = excluded.physician_id,
			patient_id = excluded.patient_id,
			date_time = excluded.date_time,
			status = excluded.status,
			archived = excluded.archived,
			updated_at = excluded.updated_at
	`

	_, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx, query,
		appt.ID.String(),
		appt.PhysicianID.String(),
		appt.PatientID.String(),
		appt.DateTime.UTC().Format(sqliteTimeLayout),
		string(appt.Status),
		boolToInt(appt.Archived),
		time.Now().UTC().Format(sqliteTimeLayout),
	)
	if err != nil {
		return fmt.Errorf("save appointment: %w", err)
	}
	return nil
}

// ListByPhysician returns the physician's appointments ordered by time.
// Cancelled and archived records are included; the booking index skips them.
func (r *SQLiteAppointmentRepository) ListByPhysician(ctx context.Context, physicianID uuid.UUID) ([]domain.BookedAppointment, error) {
	query := `
		SELECT id, physician_id, patient_id, date_time, status, archived
		FROM appointments
		WHERE physician_id = ?
		ORDER BY date_time
	`

	rows, err := database.ExecutorFromContext(ctx, r.conn).Query(ctx, query, physicianID.String())
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	appts := make([]domain.BookedAppointment, 0)
	for rows.Next() {
		var (
			appt                         domain.BookedAppointment
			idStr, physicianStr, patient string
			dateTime, status             string
			archived                     int
		)
		if err := rows.Scan(&idStr, &physicianStr, &patient, &dateTime, &status, &archived); err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}

		if appt.ID, err = uuid.Parse(idStr); err != nil {
			return nil, fmt.Errorf("parse appointment id: %w", err)
		}
		if appt.PhysicianID, err = uuid.Parse(physicianStr); err != nil {
			return nil, fmt.Errorf("parse appointment %s physician id: %w", idStr, err)
		}
		if appt.PatientID, err = uuid.Parse(patient); err != nil {
			return nil, fmt.Errorf("parse appointment %s patient id: %w", idStr, err)
		}
		if appt.DateTime, err = time.Parse(sqliteTimeLayout, dateTime); err != nil {
			return nil, fmt.Errorf("parse appointment time: %w", err)
		}
		appt.Status = domain.AppointmentStatus(status)
		appt.Archived = archived == 1

		appts = append(appts, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appts, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
