package emergency

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

const openGuard = `status NOT IN ('discharged','admitted-ipd','transferred','expired','left-without-being-seen')`

const caseCols = `id, case_number, patient_id, unknown_name, unknown_age, unknown_gender,
	bystander_name, bystander_phone, bystander_relation, arrival_mode, arrived_at,
	triage_level, chief_complaint, injury_mechanism, triaged_by, triaged_at,
	attending_doctor_id, bed_id, status, disposition_type, disposition_notes,
	admission_id, discharged_at, is_mlc, mlc_police_station, mlc_report_number,
	mlc_officer_name, mlc_reported_at, registered_by, created_at, updated_at`

func scanCase(row pgx.Row) (*Case, error) {
	var c Case
	err := row.Scan(&c.ID, &c.CaseNumber, &c.PatientID, &c.UnknownName, &c.UnknownAge, &c.UnknownGender,
		&c.BystanderName, &c.BystanderPhone, &c.BystanderRelation, &c.ArrivalMode, &c.ArrivedAt,
		&c.TriageLevel, &c.ChiefComplaint, &c.InjuryMechanism, &c.TriagedBy, &c.TriagedAt,
		&c.AttendingDoctorID, &c.BedID, &c.Status, &c.DispositionType, &c.DispositionNotes,
		&c.AdmissionID, &c.DischargedAt, &c.IsMLC, &c.MLCPoliceStation, &c.MLCReportNumber,
		&c.MLCOfficerName, &c.MLCReportedAt, &c.RegisteredBy, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("emergency case not found")
	}
	return &c, err
}

func (r *repoPG) Create(ctx context.Context, c *Case) error {
	c.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO emergency_case (id, case_number, patient_id, unknown_name, unknown_age,
			unknown_gender, bystander_name, bystander_phone, bystander_relation,
			arrival_mode, arrived_at, triage_level, chief_complaint, injury_mechanism,
			triaged_by, triaged_at, attending_doctor_id, bed_id, status,
			is_mlc, mlc_police_station, mlc_report_number, mlc_officer_name, mlc_reported_at,
			registered_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25)`,
		c.ID, c.CaseNumber, c.PatientID, c.UnknownName, c.UnknownAge,
		c.UnknownGender, c.BystanderName, c.BystanderPhone, c.BystanderRelation,
		c.ArrivalMode, c.ArrivedAt, c.TriageLevel, c.ChiefComplaint, c.InjuryMechanism,
		c.TriagedBy, c.TriagedAt, c.AttendingDoctorID, c.BedID, c.Status,
		c.IsMLC, c.MLCPoliceStation, c.MLCReportNumber, c.MLCOfficerName, c.MLCReportedAt,
		c.RegisteredBy)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Case, error) {
	return scanCase(r.conn(ctx).QueryRow(ctx,
		`SELECT `+caseCols+` FROM emergency_case WHERE id = $1`, id))
}

func (r *repoPG) GetByNumber(ctx context.Context, caseNumber string) (*Case, error) {
	return scanCase(r.conn(ctx).QueryRow(ctx,
		`SELECT `+caseCols+` FROM emergency_case WHERE case_number = $1`, caseNumber))
}

func (r *repoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Case, int, error) {
	query := `SELECT ` + caseCols + ` FROM emergency_case WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM emergency_case WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, idx)
		countQuery += fmt.Sprintf(` AND status = $%d`, idx)
		args = append(args, f.Status)
		idx++
	}
	if f.TriageLevel != "" {
		query += fmt.Sprintf(` AND triage_level = $%d`, idx)
		countQuery += fmt.Sprintf(` AND triage_level = $%d`, idx)
		args = append(args, f.TriageLevel)
		idx++
	}
	if f.PatientID != nil {
		query += fmt.Sprintf(` AND patient_id = $%d`, idx)
		countQuery += fmt.Sprintf(` AND patient_id = $%d`, idx)
		args = append(args, *f.PatientID)
		idx++
	}
	if f.ArrivedOn != nil {
		day := f.ArrivedOn.Truncate(24 * time.Hour)
		query += fmt.Sprintf(` AND arrived_at >= $%d AND arrived_at < $%d`, idx, idx+1)
		countQuery += fmt.Sprintf(` AND arrived_at >= $%d AND arrived_at < $%d`, idx, idx+1)
		args = append(args, day, day.Add(24*time.Hour))
		idx += 2
	}
	if f.MLCOnly {
		query += ` AND is_mlc`
		countQuery += ` AND is_mlc`
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY arrived_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, nil
}

func (r *repoPG) Update(ctx context.Context, c *Case) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE emergency_case SET unknown_name=$2, unknown_age=$3, unknown_gender=$4,
			bystander_name=$5, bystander_phone=$6, bystander_relation=$7,
			patient_id=$8, triage_level=$9, chief_complaint=$10, injury_mechanism=$11,
			triaged_by=$12, triaged_at=$13, attending_doctor_id=$14,
			is_mlc=$15, mlc_police_station=$16, mlc_report_number=$17,
			mlc_officer_name=$18, mlc_reported_at=$19, updated_at=NOW()
		WHERE id = $1`,
		c.ID, c.UnknownName, c.UnknownAge, c.UnknownGender,
		c.BystanderName, c.BystanderPhone, c.BystanderRelation,
		c.PatientID, c.TriageLevel, c.ChiefComplaint, c.InjuryMechanism,
		c.TriagedBy, c.TriagedAt, c.AttendingDoctorID,
		c.IsMLC, c.MLCPoliceStation, c.MLCReportNumber,
		c.MLCOfficerName, c.MLCReportedAt)
	return err
}

func (r *repoPG) SetStatusIfOpen(ctx context.Context, id uuid.UUID, status string) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE emergency_case SET status = $2, updated_at = NOW() WHERE id = $1 AND `+openGuard,
		id, status)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) SetBedIfOpen(ctx context.Context, id uuid.UUID, bedID *uuid.UUID) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE emergency_case SET bed_id = $2, updated_at = NOW() WHERE id = $1 AND `+openGuard,
		id, bedID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) CloseIfOpen(ctx context.Context, c *Case) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE emergency_case SET status=$2, disposition_type=$3, disposition_notes=$4,
			admission_id=$5, discharged_at=$6, bed_id=NULL, updated_at=NOW()
		WHERE id = $1 AND `+openGuard,
		c.ID, c.Status, c.DispositionType, c.DispositionNotes, c.AdmissionID, c.DischargedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) AddVital(ctx context.Context, v *Vital) error {
	v.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO emergency_vital (id, case_id, blood_pressure, heart_rate, temperature,
			respiratory_rate, oxygen_saturation, glasgow_coma_score, pain_score,
			recorded_by, recorded_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		v.ID, v.CaseID, v.BloodPressure, v.HeartRate, v.Temperature,
		v.RespiratoryRate, v.OxygenSaturation, v.GlasgowComaScore, v.PainScore,
		v.RecordedBy, v.RecordedAt)
	return err
}

func (r *repoPG) ListVitals(ctx context.Context, caseID uuid.UUID) ([]*Vital, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, case_id, blood_pressure, heart_rate, temperature, respiratory_rate,
			oxygen_saturation, glasgow_coma_score, pain_score, recorded_by, recorded_at
		FROM emergency_vital WHERE case_id = $1 ORDER BY recorded_at`, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Vital
	for rows.Next() {
		var v Vital
		if err := rows.Scan(&v.ID, &v.CaseID, &v.BloodPressure, &v.HeartRate, &v.Temperature,
			&v.RespiratoryRate, &v.OxygenSaturation, &v.GlasgowComaScore, &v.PainScore,
			&v.RecordedBy, &v.RecordedAt); err != nil {
			return nil, err
		}
		items = append(items, &v)
	}
	return items, rows.Err()
}

func (r *repoPG) AddTreatmentNote(ctx context.Context, n *TreatmentNote) error {
	n.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO emergency_treatment_note (id, case_id, note, written_by, written_at)
		VALUES ($1,$2,$3,$4,$5)`,
		n.ID, n.CaseID, n.Note, n.WrittenBy, n.WrittenAt)
	return err
}

func (r *repoPG) ListTreatmentNotes(ctx context.Context, caseID uuid.UUID) ([]*TreatmentNote, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, case_id, note, written_by, written_at
		FROM emergency_treatment_note WHERE case_id = $1 ORDER BY written_at`, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*TreatmentNote
	for rows.Next() {
		var n TreatmentNote
		if err := rows.Scan(&n.ID, &n.CaseID, &n.Note, &n.WrittenBy, &n.WrittenAt); err != nil {
			return nil, err
		}
		items = append(items, &n)
	}
	return items, rows.Err()
}

func (r *repoPG) Stats(ctx context.Context, now time.Time) (*Stats, error) {
	s := &Stats{ByTriage: make(map[string]int)}
	dayStart := now.Truncate(24 * time.Hour)

	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE `+openGuard+`),
			COUNT(*) FILTER (WHERE arrived_at >= $1)
		FROM emergency_case`, dayStart).Scan(&s.ActiveCases, &s.TodayTotal)
	if err != nil {
		return nil, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT COALESCE(triage_level, 'untriaged'), COUNT(*)
		FROM emergency_case WHERE `+openGuard+`
		GROUP BY triage_level`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var level string
		var count int
		if err := rows.Scan(&level, &count); err != nil {
			return nil, err
		}
		s.ByTriage[level] = count
	}
	return s, rows.Err()
}
