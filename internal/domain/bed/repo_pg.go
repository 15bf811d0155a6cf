package bed

import (
	"context"
	"errors"
	"fmt"

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

const bedCols = `id, bed_number, ward, floor, room_number, bed_type, status,
	charges_per_day, features, current_patient_id, current_admission_id, occupied_since,
	reserved_for_id, last_cleaned_at, notes, is_active, created_at, updated_at`

func scanBed(row pgx.Row) (*Bed, error) {
	var b Bed
	err := row.Scan(&b.ID, &b.BedNumber, &b.Ward, &b.Floor, &b.RoomNumber, &b.Type, &b.Status,
		&b.ChargesPerDay, &b.Features, &b.CurrentPatientID, &b.CurrentAdmissionID, &b.OccupiedSince,
		&b.ReservedForID, &b.LastCleanedAt, &b.Notes, &b.IsActive, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("bed not found")
	}
	return &b, err
}

func (r *repoPG) Create(ctx context.Context, b *Bed) error {
	b.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO bed (id, bed_number, ward, floor, room_number, bed_type, status,
			charges_per_day, features, notes, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		b.ID, b.BedNumber, b.Ward, b.Floor, b.RoomNumber, b.Type, b.Status,
		b.ChargesPerDay, b.Features, b.Notes, b.IsActive)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Bed, error) {
	return scanBed(r.conn(ctx).QueryRow(ctx, `SELECT `+bedCols+` FROM bed WHERE id = $1`, id))
}

func (r *repoPG) GetByNumber(ctx context.Context, ward, bedNumber string) (*Bed, error) {
	return scanBed(r.conn(ctx).QueryRow(ctx,
		`SELECT `+bedCols+` FROM bed WHERE ward = $1 AND bed_number = $2`, ward, bedNumber))
}

func (r *repoPG) Update(ctx context.Context, b *Bed) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE bed SET bed_number=$2, ward=$3, floor=$4, room_number=$5, bed_type=$6,
			charges_per_day=$7, features=$8, notes=$9, updated_at=NOW()
		WHERE id = $1`,
		b.ID, b.BedNumber, b.Ward, b.Floor, b.RoomNumber, b.Type,
		b.ChargesPerDay, b.Features, b.Notes)
	return err
}

func (r *repoPG) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE bed SET is_active=$2, updated_at=NOW() WHERE id = $1`, id, active)
	return err
}

func (r *repoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Bed, int, error) {
	query := `SELECT ` + bedCols + ` FROM bed WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM bed WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.Ward != "" {
		query += fmt.Sprintf(` AND ward = $%d`, idx)
		countQuery += fmt.Sprintf(` AND ward = $%d`, idx)
		args = append(args, f.Ward)
		idx++
	}
	if f.Type != "" {
		query += fmt.Sprintf(` AND bed_type = $%d`, idx)
		countQuery += fmt.Sprintf(` AND bed_type = $%d`, idx)
		args = append(args, f.Type)
		idx++
	}
	if f.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, idx)
		countQuery += fmt.Sprintf(` AND status = $%d`, idx)
		args = append(args, f.Status)
		idx++
	}
	if f.ActiveOnly {
		query += ` AND is_active`
		countQuery += ` AND is_active`
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY ward, bed_number LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Bed
	for rows.Next() {
		b, err := scanBed(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, b)
	}
	return items, total, nil
}

// Conditional transitions. Each is a single guarded UPDATE; the row count
// tells the caller whether the guard held.

func (r *repoPG) AssignIfAvailable(ctx context.Context, bedID, patientID, admissionID uuid.UUID) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE bed SET status=$4, current_patient_id=$2, current_admission_id=$3,
			occupied_since=NOW(), reserved_for_id=NULL, updated_at=NOW()
		WHERE id = $1 AND status = $5 AND is_active`,
		bedID, patientID, admissionID, StatusOccupied, StatusAvailable)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) AssignIfReservedFor(ctx context.Context, bedID, patientID, admissionID uuid.UUID) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE bed SET status=$4, current_patient_id=$2, current_admission_id=$3,
			occupied_since=NOW(), reserved_for_id=NULL, updated_at=NOW()
		WHERE id = $1 AND status = $5 AND reserved_for_id = $2 AND is_active`,
		bedID, patientID, admissionID, StatusOccupied, StatusReserved)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) ReserveIfAvailable(ctx context.Context, bedID, patientID uuid.UUID) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE bed SET status=$3, reserved_for_id=$2, updated_at=NOW()
		WHERE id = $1 AND status = $4 AND is_active`,
		bedID, patientID, StatusReserved, StatusAvailable)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) FreeReservation(ctx context.Context, bedID uuid.UUID) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE bed SET status=$2, reserved_for_id=NULL, updated_at=NOW()
		WHERE id = $1 AND status = $3`,
		bedID, StatusAvailable, StatusReserved)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ReleaseIfOccupied returns the occupant it cleared, read through a locked
// self-join because RETURNING alone would only see the post-update NULLs.
func (r *repoPG) ReleaseIfOccupied(ctx context.Context, bedID uuid.UUID) (*ReleasedOccupant, error) {
	var occ ReleasedOccupant
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE bed b SET status=$2, current_patient_id=NULL, current_admission_id=NULL,
			occupied_since=NULL, updated_at=NOW()
		FROM (SELECT id, current_patient_id, current_admission_id, occupied_since
			FROM bed WHERE id = $1 FOR UPDATE) prev
		WHERE b.id = prev.id AND b.status = $3
		RETURNING prev.current_patient_id, prev.current_admission_id, prev.occupied_since`,
		bedID, StatusCleaning, StatusOccupied).
		Scan(&occ.PatientID, &occ.AdmissionID, &occ.OccupiedSince)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &occ, nil
}

func (r *repoPG) CompleteCleaning(ctx context.Context, bedID uuid.UUID) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE bed SET status=$2, last_cleaned_at=NOW(), updated_at=NOW()
		WHERE id = $1 AND status = $3`,
		bedID, StatusAvailable, StatusCleaning)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) SetMaintenance(ctx context.Context, bedID uuid.UUID, note *string) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE bed SET status=$2, notes=COALESCE($3, notes), updated_at=NOW()
		WHERE id = $1 AND status IN ($4, $5)`,
		bedID, StatusMaintenance, note, StatusAvailable, StatusCleaning)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) EndMaintenance(ctx context.Context, bedID uuid.UUID) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE bed SET status=$2, updated_at=NOW()
		WHERE id = $1 AND status = $3`,
		bedID, StatusAvailable, StatusMaintenance)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) WardSummary(ctx context.Context) ([]*WardOccupancy, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT ward, COUNT(*),
			COUNT(*) FILTER (WHERE status = 'available'),
			COUNT(*) FILTER (WHERE status = 'occupied'),
			COUNT(*) FILTER (WHERE status = 'reserved'),
			COUNT(*) FILTER (WHERE status = 'maintenance'),
			COUNT(*) FILTER (WHERE status = 'cleaning')
		FROM bed WHERE is_active GROUP BY ward ORDER BY ward`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*WardOccupancy
	for rows.Next() {
		var w WardOccupancy
		if err := rows.Scan(&w.Ward, &w.Total, &w.Available, &w.Occupied,
			&w.Reserved, &w.Maintenance, &w.Cleaning); err != nil {
			return nil, err
		}
		items = append(items, &w)
	}
	return items, nil
}

func (r *repoPG) AddHistory(ctx context.Context, rec *OccupancyRecord) error {
	rec.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO bed_occupancy_history (id, bed_id, patient_id, admission_id, event, occupied_since, occurred_at, note)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		rec.ID, rec.BedID, rec.PatientID, rec.AdmissionID, rec.Event, rec.OccupiedSince, rec.OccurredAt, rec.Note)
	return err
}

func (r *repoPG) ListHistory(ctx context.Context, bedID uuid.UUID, limit, offset int) ([]*OccupancyRecord, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM bed_occupancy_history WHERE bed_id = $1`, bedID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, bed_id, patient_id, admission_id, event, occupied_since, occurred_at, note
		FROM bed_occupancy_history WHERE bed_id = $1
		ORDER BY occurred_at DESC LIMIT $2 OFFSET $3`, bedID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*OccupancyRecord
	for rows.Next() {
		var rec OccupancyRecord
		if err := rows.Scan(&rec.ID, &rec.BedID, &rec.PatientID, &rec.AdmissionID,
			&rec.Event, &rec.OccupiedSince, &rec.OccurredAt, &rec.Note); err != nil {
			return nil, 0, err
		}
		items = append(items, &rec)
	}
	return items, total, nil
}
