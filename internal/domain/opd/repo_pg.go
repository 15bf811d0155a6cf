package opd

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

const visitCols = `id, visit_number, patient_id, doctor_id, visit_date, token_number,
	status, visit_type, chief_complaint, symptoms, diagnosis, icd_code,
	clinical_findings, treatment_plan, notes, referred_to, referral_hospital,
	referral_reason, referral_urgency, consultation_fee, payment_status,
	registered_by, created_at, updated_at`

func scanVisit(row pgx.Row) (*Visit, error) {
	var v Visit
	err := row.Scan(&v.ID, &v.VisitNumber, &v.PatientID, &v.DoctorID, &v.VisitDate, &v.TokenNumber,
		&v.Status, &v.VisitType, &v.ChiefComplaint, &v.Symptoms, &v.Diagnosis, &v.ICDCode,
		&v.ClinicalFindings, &v.TreatmentPlan, &v.Notes, &v.ReferredTo, &v.ReferralHospital,
		&v.ReferralReason, &v.ReferralUrgency, &v.ConsultationFee, &v.PaymentStatus,
		&v.RegisteredBy, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("visit not found")
	}
	return &v, err
}

func (r *repoPG) Create(ctx context.Context, v *Visit) error {
	v.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO opd_visit (id, visit_number, patient_id, doctor_id, visit_date,
			token_number, status, visit_type, chief_complaint, symptoms,
			consultation_fee, payment_status, registered_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		v.ID, v.VisitNumber, v.PatientID, v.DoctorID, v.VisitDate,
		v.TokenNumber, v.Status, v.VisitType, v.ChiefComplaint, v.Symptoms,
		v.ConsultationFee, v.PaymentStatus, v.RegisteredBy)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Visit, error) {
	return scanVisit(r.conn(ctx).QueryRow(ctx,
		`SELECT `+visitCols+` FROM opd_visit WHERE id = $1`, id))
}

func (r *repoPG) GetByNumber(ctx context.Context, visitNumber string) (*Visit, error) {
	return scanVisit(r.conn(ctx).QueryRow(ctx,
		`SELECT `+visitCols+` FROM opd_visit WHERE visit_number = $1`, visitNumber))
}

func (r *repoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Visit, int, error) {
	query := `SELECT ` + visitCols + ` FROM opd_visit WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM opd_visit WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, idx)
		countQuery += fmt.Sprintf(` AND status = $%d`, idx)
		args = append(args, f.Status)
		idx++
	}
	if f.VisitType != "" {
		query += fmt.Sprintf(` AND visit_type = $%d`, idx)
		countQuery += fmt.Sprintf(` AND visit_type = $%d`, idx)
		args = append(args, f.VisitType)
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
	if f.VisitedOn != nil {
		day := f.VisitedOn.Truncate(24 * time.Hour)
		query += fmt.Sprintf(` AND visit_date >= $%d AND visit_date < $%d`, idx, idx+1)
		countQuery += fmt.Sprintf(` AND visit_date >= $%d AND visit_date < $%d`, idx, idx+1)
		args = append(args, day, day.Add(24*time.Hour))
		idx += 2
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Visit
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, v)
	}
	return items, total, nil
}

func (r *repoPG) TodayQueue(ctx context.Context, doctorID *uuid.UUID) ([]*Visit, error) {
	query := `SELECT ` + visitCols + ` FROM opd_visit
		WHERE visit_date >= CURRENT_DATE AND visit_date < CURRENT_DATE + INTERVAL '1 day'
		AND status NOT IN ('completed','cancelled','no-show')`
	var args []interface{}
	if doctorID != nil {
		query += ` AND doctor_id = $1`
		args = append(args, *doctorID)
	}
	query += ` ORDER BY created_at`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Visit
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, rows.Err()
}

func (r *repoPG) UpdateConsultation(ctx context.Context, v *Visit) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE opd_visit SET chief_complaint=$2, symptoms=$3, diagnosis=$4, icd_code=$5,
			clinical_findings=$6, treatment_plan=$7, notes=$8, referred_to=$9,
			referral_hospital=$10, referral_reason=$11, referral_urgency=$12,
			updated_at=NOW()
		WHERE id = $1`,
		v.ID, v.ChiefComplaint, v.Symptoms, v.Diagnosis, v.ICDCode,
		v.ClinicalFindings, v.TreatmentPlan, v.Notes, v.ReferredTo,
		v.ReferralHospital, v.ReferralReason, v.ReferralUrgency)
	return err
}

func (r *repoPG) SetStatusGuarded(ctx context.Context, id uuid.UUID, from, to string) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE opd_visit SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`,
		id, from, to)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) SetPaymentStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE opd_visit SET payment_status = $2, updated_at = NOW() WHERE id = $1`,
		id, status)
	return err
}

func (r *repoPG) UpsertVitals(ctx context.Context, v *VitalsSnapshot) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO opd_vitals (visit_id, blood_pressure, heart_rate, temperature,
			weight_kg, height_cm, bmi, oxygen_saturation, respiratory_rate,
			blood_sugar, recorded_by, recorded_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (visit_id) DO UPDATE SET
			blood_pressure=EXCLUDED.blood_pressure, heart_rate=EXCLUDED.heart_rate,
			temperature=EXCLUDED.temperature, weight_kg=EXCLUDED.weight_kg,
			height_cm=EXCLUDED.height_cm, bmi=EXCLUDED.bmi,
			oxygen_saturation=EXCLUDED.oxygen_saturation,
			respiratory_rate=EXCLUDED.respiratory_rate,
			blood_sugar=EXCLUDED.blood_sugar, recorded_by=EXCLUDED.recorded_by,
			recorded_at=EXCLUDED.recorded_at`,
		v.VisitID, v.BloodPressure, v.HeartRate, v.Temperature,
		v.WeightKg, v.HeightCm, v.BMI, v.OxygenSaturation, v.RespiratoryRate,
		v.BloodSugar, v.RecordedBy, v.RecordedAt)
	return err
}

func (r *repoPG) GetVitals(ctx context.Context, visitID uuid.UUID) (*VitalsSnapshot, error) {
	var v VitalsSnapshot
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT visit_id, blood_pressure, heart_rate, temperature, weight_kg, height_cm,
			bmi, oxygen_saturation, respiratory_rate, blood_sugar, recorded_by, recorded_at
		FROM opd_vitals WHERE visit_id = $1`, visitID).
		Scan(&v.VisitID, &v.BloodPressure, &v.HeartRate, &v.Temperature, &v.WeightKg,
			&v.HeightCm, &v.BMI, &v.OxygenSaturation, &v.RespiratoryRate, &v.BloodSugar,
			&v.RecordedBy, &v.RecordedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("vitals not recorded")
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *repoPG) SavePrescription(ctx context.Context, p *Prescription) error {
	conn := r.conn(ctx)
	_, err := conn.Exec(ctx, `
		INSERT INTO opd_prescription (visit_id, instructions, follow_up_date, follow_up_notes)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (visit_id) DO UPDATE SET
			instructions=EXCLUDED.instructions, follow_up_date=EXCLUDED.follow_up_date,
			follow_up_notes=EXCLUDED.follow_up_notes`,
		p.VisitID, p.Instructions, p.FollowUpDate, p.FollowUpNotes)
	if err != nil {
		return err
	}
	if _, err := conn.Exec(ctx, `DELETE FROM opd_prescription_item WHERE visit_id = $1`, p.VisitID); err != nil {
		return err
	}
	for i := range p.Items {
		item := &p.Items[i]
		item.ID = uuid.New()
		item.VisitID = p.VisitID
		if _, err := conn.Exec(ctx, `
			INSERT INTO opd_prescription_item (id, visit_id, medicine_id, name, dosage,
				frequency, duration, route, instructions, quantity)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			item.ID, item.VisitID, item.MedicineID, item.Name, item.Dosage,
			item.Frequency, item.Duration, item.Route, item.Instructions, item.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) GetPrescription(ctx context.Context, visitID uuid.UUID) (*Prescription, error) {
	var p Prescription
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT visit_id, instructions, follow_up_date, follow_up_notes
		FROM opd_prescription WHERE visit_id = $1`, visitID).
		Scan(&p.VisitID, &p.Instructions, &p.FollowUpDate, &p.FollowUpNotes)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("prescription not found")
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, visit_id, medicine_id, name, dosage, frequency, duration, route,
			instructions, quantity
		FROM opd_prescription_item WHERE visit_id = $1 ORDER BY name`, visitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var item PrescriptionItem
		if err := rows.Scan(&item.ID, &item.VisitID, &item.MedicineID, &item.Name,
			&item.Dosage, &item.Frequency, &item.Duration, &item.Route,
			&item.Instructions, &item.Quantity); err != nil {
			return nil, err
		}
		p.Items = append(p.Items, item)
	}
	return &p, rows.Err()
}
