package ipd

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

// =========== Admission Repository ===========

type admissionRepoPG struct{ pool *pgxpool.Pool }

func NewAdmissionRepoPG(pool *pgxpool.Pool) AdmissionRepository {
	return &admissionRepoPG{pool: pool}
}

func (r *admissionRepoPG) conn(ctx context.Context) db.Querier {
	if q := db.QuerierFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

const admissionCols = `id, admission_number, patient_id, bed_id, admitting_doctor_id, department,
	admission_type, chief_complaint, provisional_diagnosis, final_diagnosis, status,
	admitted_at, expected_discharge_at, discharged_at, discharge_type, discharge_summary,
	advance_deposit, attendant_name, attendant_phone, attendant_relation,
	emergency_case_id, created_by, created_at, updated_at`

func scanAdmission(row pgx.Row) (*Admission, error) {
	var a Admission
	err := row.Scan(&a.ID, &a.AdmissionNumber, &a.PatientID, &a.BedID, &a.AdmittingDoctorID, &a.Department,
		&a.AdmissionType, &a.ChiefComplaint, &a.ProvisionalDiagnosis, &a.FinalDiagnosis, &a.Status,
		&a.AdmittedAt, &a.ExpectedDischargeAt, &a.DischargedAt, &a.DischargeType, &a.DischargeSummary,
		&a.AdvanceDeposit, &a.AttendantName, &a.AttendantPhone, &a.AttendantRelation,
		&a.EmergencyCaseID, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("admission not found")
	}
	return &a, err
}

func (r *admissionRepoPG) Create(ctx context.Context, a *Admission) error {
	a.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO ipd_admission (id, admission_number, patient_id, bed_id, admitting_doctor_id,
			department, admission_type, chief_complaint, provisional_diagnosis, status,
			admitted_at, expected_discharge_at, advance_deposit,
			attendant_name, attendant_phone, attendant_relation, emergency_case_id, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		a.ID, a.AdmissionNumber, a.PatientID, a.BedID, a.AdmittingDoctorID,
		a.Department, a.AdmissionType, a.ChiefComplaint, a.ProvisionalDiagnosis, a.Status,
		a.AdmittedAt, a.ExpectedDischargeAt, a.AdvanceDeposit,
		a.AttendantName, a.AttendantPhone, a.AttendantRelation, a.EmergencyCaseID, a.CreatedBy)
	return err
}

func (r *admissionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Admission, error) {
	return scanAdmission(r.conn(ctx).QueryRow(ctx,
		`SELECT `+admissionCols+` FROM ipd_admission WHERE id = $1`, id))
}

func (r *admissionRepoPG) GetByNumber(ctx context.Context, admissionNumber string) (*Admission, error) {
	return scanAdmission(r.conn(ctx).QueryRow(ctx,
		`SELECT `+admissionCols+` FROM ipd_admission WHERE admission_number = $1`, admissionNumber))
}

func (r *admissionRepoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Admission, int, error) {
	query := `SELECT ` + admissionCols + ` FROM ipd_admission WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM ipd_admission WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.PatientID != nil {
		query += fmt.Sprintf(` AND patient_id = $%d`, idx)
		countQuery += fmt.Sprintf(` AND patient_id = $%d`, idx)
		args = append(args, *f.PatientID)
		idx++
	}
	if f.DoctorID != nil {
		query += fmt.Sprintf(` AND admitting_doctor_id = $%d`, idx)
		countQuery += fmt.Sprintf(` AND admitting_doctor_id = $%d`, idx)
		args = append(args, *f.DoctorID)
		idx++
	}
	if f.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, idx)
		countQuery += fmt.Sprintf(` AND status = $%d`, idx)
		args = append(args, f.Status)
		idx++
	}
	if f.Department != "" {
		query += fmt.Sprintf(` AND department = $%d`, idx)
		countQuery += fmt.Sprintf(` AND department = $%d`, idx)
		args = append(args, f.Department)
		idx++
	}
	if f.ActiveOnly {
		query += ` AND status NOT IN ('transferred','discharged','ama','expired')`
		countQuery += ` AND status NOT IN ('transferred','discharged','ama','expired')`
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY admitted_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Admission
	for rows.Next() {
		a, err := scanAdmission(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, nil
}

func (r *admissionRepoPG) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT status, COUNT(*) FROM ipd_admission GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, nil
}

func (r *admissionRepoPG) SetStatusIfActive(ctx context.Context, id uuid.UUID, status string) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE ipd_admission SET status=$2, updated_at=NOW()
		WHERE id = $1 AND status NOT IN ('transferred','discharged','ama','expired')`,
		id, status)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *admissionRepoPG) SetBedIfActive(ctx context.Context, id, bedID uuid.UUID) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE ipd_admission SET bed_id=$2, updated_at=NOW()
		WHERE id = $1 AND status NOT IN ('transferred','discharged','ama','expired')`,
		id, bedID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *admissionRepoPG) CloseIfActive(ctx context.Context, a *Admission) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE ipd_admission SET status=$2, bed_id=NULL, discharged_at=$3, discharge_type=$4,
			discharge_summary=$5, final_diagnosis=COALESCE($6, final_diagnosis), updated_at=NOW()
		WHERE id = $1 AND status NOT IN ('transferred','discharged','ama','expired')`,
		a.ID, a.Status, a.DischargedAt, a.DischargeType, a.DischargeSummary, a.FinalDiagnosis)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *admissionRepoPG) UpdateDetails(ctx context.Context, a *Admission) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE ipd_admission SET department=$2, chief_complaint=$3, provisional_diagnosis=$4,
			final_diagnosis=$5, expected_discharge_at=$6, advance_deposit=$7,
			attendant_name=$8, attendant_phone=$9, attendant_relation=$10, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.Department, a.ChiefComplaint, a.ProvisionalDiagnosis,
		a.FinalDiagnosis, a.ExpectedDischargeAt, a.AdvanceDeposit,
		a.AttendantName, a.AttendantPhone, a.AttendantRelation)
	return err
}

func (r *admissionRepoPG) AddStatusChange(ctx context.Context, sc *StatusChange) error {
	sc.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO admission_status_history (id, admission_id, status, changed_at, changed_by, note)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		sc.ID, sc.AdmissionID, sc.Status, sc.ChangedAt, sc.ChangedBy, sc.Note)
	return err
}

func (r *admissionRepoPG) ListStatusChanges(ctx context.Context, admissionID uuid.UUID) ([]*StatusChange, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, admission_id, status, changed_at, changed_by, note
		FROM admission_status_history WHERE admission_id = $1 ORDER BY changed_at`, admissionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*StatusChange
	for rows.Next() {
		var sc StatusChange
		if err := rows.Scan(&sc.ID, &sc.AdmissionID, &sc.Status, &sc.ChangedAt, &sc.ChangedBy, &sc.Note); err != nil {
			return nil, err
		}
		items = append(items, &sc)
	}
	return items, nil
}

func (r *admissionRepoPG) AddBedTransfer(ctx context.Context, bt *BedTransfer) error {
	bt.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO admission_bed_transfer (id, admission_id, from_bed_id, to_bed_id, reason, transferred_by, transferred_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		bt.ID, bt.AdmissionID, bt.FromBedID, bt.ToBedID, bt.Reason, bt.TransferredBy, bt.TransferredAt)
	return err
}

func (r *admissionRepoPG) ListBedTransfers(ctx context.Context, admissionID uuid.UUID) ([]*BedTransfer, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, admission_id, from_bed_id, to_bed_id, reason, transferred_by, transferred_at
		FROM admission_bed_transfer WHERE admission_id = $1 ORDER BY transferred_at`, admissionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*BedTransfer
	for rows.Next() {
		var bt BedTransfer
		if err := rows.Scan(&bt.ID, &bt.AdmissionID, &bt.FromBedID, &bt.ToBedID, &bt.Reason, &bt.TransferredBy, &bt.TransferredAt); err != nil {
			return nil, err
		}
		items = append(items, &bt)
	}
	return items, nil
}

// =========== Chart Repository ===========

type chartRepoPG struct{ pool *pgxpool.Pool }

func NewChartRepoPG(pool *pgxpool.Pool) ChartRepository {
	return &chartRepoPG{pool: pool}
}

func (r *chartRepoPG) conn(ctx context.Context) db.Querier {
	if q := db.QuerierFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

func (r *chartRepoPG) AddVital(ctx context.Context, v *VitalRecord) error {
	v.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO admission_vital (id, admission_id, temperature, pulse, bp_systolic, bp_diastolic,
			respiratory_rate, oxygen_saturation, blood_sugar, note, recorded_by, recorded_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		v.ID, v.AdmissionID, v.Temperature, v.Pulse, v.BPSystolic, v.BPDiastolic,
		v.RespiratoryRate, v.OxygenSaturation, v.BloodSugar, v.Note, v.RecordedBy, v.RecordedAt)
	return err
}

func (r *chartRepoPG) ListVitals(ctx context.Context, admissionID uuid.UUID, limit, offset int) ([]*VitalRecord, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM admission_vital WHERE admission_id = $1`, admissionID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, admission_id, temperature, pulse, bp_systolic, bp_diastolic,
			respiratory_rate, oxygen_saturation, blood_sugar, note, recorded_by, recorded_at
		FROM admission_vital WHERE admission_id = $1
		ORDER BY recorded_at DESC LIMIT $2 OFFSET $3`, admissionID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*VitalRecord
	for rows.Next() {
		var v VitalRecord
		if err := rows.Scan(&v.ID, &v.AdmissionID, &v.Temperature, &v.Pulse, &v.BPSystolic, &v.BPDiastolic,
			&v.RespiratoryRate, &v.OxygenSaturation, &v.BloodSugar, &v.Note, &v.RecordedBy, &v.RecordedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &v)
	}
	return items, total, nil
}

func (r *chartRepoPG) AddNote(ctx context.Context, n *ProgressNote) error {
	n.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO admission_progress_note (id, admission_id, note, authored_by, authored_at)
		VALUES ($1,$2,$3,$4,$5)`,
		n.ID, n.AdmissionID, n.Note, n.AuthoredBy, n.AuthoredAt)
	return err
}

func (r *chartRepoPG) ListNotes(ctx context.Context, admissionID uuid.UUID, limit, offset int) ([]*ProgressNote, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM admission_progress_note WHERE admission_id = $1`, admissionID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, admission_id, note, authored_by, authored_at
		FROM admission_progress_note WHERE admission_id = $1
		ORDER BY authored_at DESC LIMIT $2 OFFSET $3`, admissionID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*ProgressNote
	for rows.Next() {
		var n ProgressNote
		if err := rows.Scan(&n.ID, &n.AdmissionID, &n.Note, &n.AuthoredBy, &n.AuthoredAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &n)
	}
	return items, total, nil
}

func (r *chartRepoPG) AddMedicationOrder(ctx context.Context, o *MedicationOrder) error {
	o.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO admission_medication_order (id, admission_id, medicine, dose, route, frequency,
			status, start_at, end_at, ordered_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		o.ID, o.AdmissionID, o.Medicine, o.Dose, o.Route, o.Frequency,
		o.Status, o.StartAt, o.EndAt, o.OrderedBy)
	return err
}

func (r *chartRepoPG) GetMedicationOrder(ctx context.Context, id uuid.UUID) (*MedicationOrder, error) {
	var o MedicationOrder
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, admission_id, medicine, dose, route, frequency, status, start_at, end_at,
			ordered_by, created_at, updated_at
		FROM admission_medication_order WHERE id = $1`, id).
		Scan(&o.ID, &o.AdmissionID, &o.Medicine, &o.Dose, &o.Route, &o.Frequency, &o.Status,
			&o.StartAt, &o.EndAt, &o.OrderedBy, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("medication order not found")
	}
	return &o, err
}

func (r *chartRepoPG) SetOrderStatus(ctx context.Context, id uuid.UUID, status string) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE admission_medication_order SET status=$2, end_at=COALESCE(end_at, NOW()), updated_at=NOW()
		WHERE id = $1 AND status = 'active'`, id, status)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *chartRepoPG) ListMedicationOrders(ctx context.Context, admissionID uuid.UUID) ([]*MedicationOrder, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, admission_id, medicine, dose, route, frequency, status, start_at, end_at,
			ordered_by, created_at, updated_at
		FROM admission_medication_order WHERE admission_id = $1 ORDER BY created_at`, admissionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*MedicationOrder
	for rows.Next() {
		var o MedicationOrder
		if err := rows.Scan(&o.ID, &o.AdmissionID, &o.Medicine, &o.Dose, &o.Route, &o.Frequency, &o.Status,
			&o.StartAt, &o.EndAt, &o.OrderedBy, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, &o)
	}
	return items, nil
}

func (r *chartRepoPG) AddAdministration(ctx context.Context, m *MedicationAdministration) error {
	m.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO admission_medication_admin (id, admission_id, order_id, outcome, note,
			administered_by, administered_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		m.ID, m.AdmissionID, m.OrderID, m.Outcome, m.Note, m.AdministeredBy, m.AdministeredAt)
	return err
}

func (r *chartRepoPG) ListAdministrations(ctx context.Context, admissionID uuid.UUID, limit, offset int) ([]*MedicationAdministration, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM admission_medication_admin WHERE admission_id = $1`, admissionID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, admission_id, order_id, outcome, note, administered_by, administered_at
		FROM admission_medication_admin WHERE admission_id = $1
		ORDER BY administered_at DESC LIMIT $2 OFFSET $3`, admissionID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*MedicationAdministration
	for rows.Next() {
		var m MedicationAdministration
		if err := rows.Scan(&m.ID, &m.AdmissionID, &m.OrderID, &m.Outcome, &m.Note,
			&m.AdministeredBy, &m.AdministeredAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &m)
	}
	return items, total, nil
}

func (r *chartRepoPG) AddDressing(ctx context.Context, d *DressingRecord) error {
	d.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO admission_dressing (id, admission_id, wound_site, note, performed_by, performed_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		d.ID, d.AdmissionID, d.WoundSite, d.Note, d.PerformedBy, d.PerformedAt)
	return err
}

func (r *chartRepoPG) ListDressings(ctx context.Context, admissionID uuid.UUID, limit, offset int) ([]*DressingRecord, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM admission_dressing WHERE admission_id = $1`, admissionID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, admission_id, wound_site, note, performed_by, performed_at
		FROM admission_dressing WHERE admission_id = $1
		ORDER BY performed_at DESC LIMIT $2 OFFSET $3`, admissionID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*DressingRecord
	for rows.Next() {
		var d DressingRecord
		if err := rows.Scan(&d.ID, &d.AdmissionID, &d.WoundSite, &d.Note, &d.PerformedBy, &d.PerformedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &d)
	}
	return items, total, nil
}

func (r *chartRepoPG) AddProcedure(ctx context.Context, p *ProcedureRecord) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO admission_procedure (id, admission_id, name, description, outcome, notes, performed_by, performed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		p.ID, p.AdmissionID, p.Name, p.Description, p.Outcome, p.Notes, p.PerformedBy, p.PerformedAt)
	return err
}

func (r *chartRepoPG) ListProcedures(ctx context.Context, admissionID uuid.UUID, limit, offset int) ([]*ProcedureRecord, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM admission_procedure WHERE admission_id = $1`, admissionID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, admission_id, name, description, outcome, notes, performed_by, performed_at
		FROM admission_procedure WHERE admission_id = $1
		ORDER BY performed_at DESC LIMIT $2 OFFSET $3`, admissionID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*ProcedureRecord
	for rows.Next() {
		var p ProcedureRecord
		if err := rows.Scan(&p.ID, &p.AdmissionID, &p.Name, &p.Description, &p.Outcome,
			&p.Notes, &p.PerformedBy, &p.PerformedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &p)
	}
	return items, total, nil
}

func (r *chartRepoPG) AddSurgery(ctx context.Context, sr *SurgeryRecord) error {
	sr.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO admission_surgery (id, admission_id, name, surgeons, anesthetist,
			scheduled_at, performed_at, duration_minutes, outcome, notes, recorded_by, recorded_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		sr.ID, sr.AdmissionID, sr.Name, sr.Surgeons, sr.Anesthetist,
		sr.ScheduledAt, sr.PerformedAt, sr.DurationMinutes, sr.Outcome, sr.Notes, sr.RecordedBy, sr.RecordedAt)
	return err
}

func (r *chartRepoPG) ListSurgeries(ctx context.Context, admissionID uuid.UUID, limit, offset int) ([]*SurgeryRecord, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM admission_surgery WHERE admission_id = $1`, admissionID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, admission_id, name, surgeons, anesthetist, scheduled_at, performed_at,
			duration_minutes, outcome, notes, recorded_by, recorded_at
		FROM admission_surgery WHERE admission_id = $1
		ORDER BY recorded_at DESC LIMIT $2 OFFSET $3`, admissionID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*SurgeryRecord
	for rows.Next() {
		var sr SurgeryRecord
		if err := rows.Scan(&sr.ID, &sr.AdmissionID, &sr.Name, &sr.Surgeons, &sr.Anesthetist,
			&sr.ScheduledAt, &sr.PerformedAt, &sr.DurationMinutes, &sr.Outcome, &sr.Notes,
			&sr.RecordedBy, &sr.RecordedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &sr)
	}
	return items, total, nil
}
