package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hms/hms/internal/platform/db"
	"github.com/hms/hms/pkg/apperr"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Querier {
	if q := db.QuerierFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

// liveGuard excludes bookings that no longer hold their slot.
const liveGuard = `status NOT IN ('cancelled','no-show','rescheduled')`

const apptCols = `id, appointment_number, patient_id, doctor_id, appointment_date,
	slot_start, slot_end, appointment_type, status, reason, symptoms, notes, fee,
	payment_status, opd_visit_id, cancelled_by, cancellation_reason,
	rescheduled_from, booked_by, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.AppointmentNumber, &a.PatientID, &a.DoctorID, &a.AppointmentDate,
		&a.SlotStart, &a.SlotEnd, &a.Type, &a.Status, &a.Reason, &a.Symptoms, &a.Notes, &a.Fee,
		&a.PaymentStatus, &a.OPDVisitID, &a.CancelledBy, &a.CancellationReason,
		&a.RescheduledFrom, &a.BookedBy, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("appointment not found")
	}
	return &a, err
}

func (r *repoPG) CreateIfSlotFree(ctx context.Context, a *Appointment) (bool, error) {
	a.ID = uuid.New()
	tag, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointment (id, appointment_number, patient_id, doctor_id,
			appointment_date, slot_start, slot_end, appointment_type, status, reason,
			symptoms, notes, fee, payment_status, rescheduled_from, booked_by)
		SELECT $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16
		WHERE NOT EXISTS (
			SELECT 1 FROM appointment
			WHERE doctor_id = $4 AND appointment_date = $5 AND slot_start = $6
			AND `+liveGuard+`
		)`,
		a.ID, a.AppointmentNumber, a.PatientID, a.DoctorID,
		a.AppointmentDate, a.SlotStart, a.SlotEnd, a.Type, a.Status, a.Reason,
		a.Symptoms, a.Notes, a.Fee, a.PaymentStatus, a.RescheduledFrom, a.BookedBy)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+apptCols+` FROM appointment WHERE id = $1`, id))
}

func (r *repoPG) GetByNumber(ctx context.Context, number string) (*Appointment, error) {
	return scanAppointment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+apptCols+` FROM appointment WHERE appointment_number = $1`, number))
}

func (r *repoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Appointment, int, error) {
	query := `SELECT ` + apptCols + ` FROM appointment WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM appointment WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, idx)
		countQuery += fmt.Sprintf(` AND status = $%d`, idx)
		args = append(args, f.Status)
		idx++
	}
	if f.Type != "" {
		query += fmt.Sprintf(` AND appointment_type = $%d`, idx)
		countQuery += fmt.Sprintf(` AND appointment_type = $%d`, idx)
		args = append(args, f.Type)
		idx++
	}
	if f.DoctorID != nil {
		query += fmt.Sprintf(` AND doctor_id = $%d`, idx)
		countQuery += fmt.Sprintf(` AND doctor_id = $%d`, idx)
		args = append(args, *f.DoctorID)
		idx++
	}
	if f.PatientID != nil {
		query += fmt.Sprintf(` AND patient_id = $%d`, idx)
		countQuery += fmt.Sprintf(` AND patient_id = $%d`, idx)
		args = append(args, *f.PatientID)
		idx++
	}
	if f.OnDate != nil {
		day := f.OnDate.Truncate(24 * time.Hour)
		query += fmt.Sprintf(` AND appointment_date >= $%d AND appointment_date < $%d`, idx, idx+1)
		countQuery += fmt.Sprintf(` AND appointment_date >= $%d AND appointment_date < $%d`, idx, idx+1)
		args = append(args, day, day.Add(24*time.Hour))
		idx += 2
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY appointment_date DESC, slot_start LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, nil
}

func (r *repoPG) Today(ctx context.Context) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+apptCols+` FROM appointment
		WHERE appointment_date >= CURRENT_DATE
		AND appointment_date < CURRENT_DATE + INTERVAL '1 day'
		AND status <> 'cancelled'
		ORDER BY slot_start`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *repoPG) BookedSlotStarts(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]string, error) {
	day := date.Truncate(24 * time.Hour)
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT slot_start FROM appointment
		WHERE doctor_id = $1 AND appointment_date >= $2 AND appointment_date < $3
		AND `+liveGuard,
		doctorID, day, day.Add(24*time.Hour))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var starts []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		starts = append(starts, s)
	}
	return starts, rows.Err()
}

func (r *repoPG) SetStatusGuarded(ctx context.Context, id uuid.UUID, from, to string) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE appointment SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`,
		id, from, to)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) Cancel(ctx context.Context, id uuid.UUID, by, reason string) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointment SET status = 'cancelled', cancelled_by = $2,
			cancellation_reason = $3, updated_at = NOW()
		WHERE id = $1 AND status NOT IN ('completed','cancelled','rescheduled')`,
		id, by, reason)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) MarkRescheduled(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointment SET status = 'rescheduled', updated_at = NOW()
		WHERE id = $1 AND status IN ('scheduled','confirmed')`,
		id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) SetPaymentStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE appointment SET payment_status = $2, updated_at = NOW() WHERE id = $1`,
		id, status)
	return err
}

func (r *repoPG) LinkOPDVisit(ctx context.Context, id, visitID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE appointment SET opd_visit_id = $2, updated_at = NOW() WHERE id = $1`,
		id, visitID)
	return err
}
