package patient

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

const patientCols = `id, patient_number, name, date_of_birth, gender, blood_group, photo_url,
	phone, email, address_street, address_city, address_state, address_zip, address_country,
	em_contact_name, em_contact_relation, em_contact_phone,
	allergies, chronic_conditions, medications,
	insurance_provider, insurance_policy_no, insurance_group_no, insurance_expiry,
	insurance_coverage, assigned_doctor_id, registered_by, is_active, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.PatientNumber, &p.Name, &p.DateOfBirth, &p.Gender, &p.BloodGroup, &p.PhotoURL,
		&p.Phone, &p.Email, &p.AddressStreet, &p.AddressCity, &p.AddressState, &p.AddressZip, &p.AddressCountry,
		&p.EmContactName, &p.EmContactRelation, &p.EmContactPhone,
		&p.Allergies, &p.ChronicConditions, &p.Medications,
		&p.InsuranceProvider, &p.InsurancePolicyNo, &p.InsuranceGroupNo, &p.InsuranceExpiry,
		&p.InsuranceCoverage, &p.AssignedDoctorID, &p.RegisteredBy, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("patient not found")
	}
	return &p, err
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient (id, patient_number, name, date_of_birth, gender, blood_group,
			photo_url, phone, email, address_street, address_city, address_state,
			address_zip, address_country, em_contact_name, em_contact_relation, em_contact_phone,
			allergies, chronic_conditions, medications,
			insurance_provider, insurance_policy_no, insurance_group_no, insurance_expiry,
			insurance_coverage, assigned_doctor_id, registered_by, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,
			$21,$22,$23,$24,$25,$26,$27,$28)`,
		p.ID, p.PatientNumber, p.Name, p.DateOfBirth, p.Gender, p.BloodGroup,
		p.PhotoURL, p.Phone, p.Email, p.AddressStreet, p.AddressCity, p.AddressState,
		p.AddressZip, p.AddressCountry, p.EmContactName, p.EmContactRelation, p.EmContactPhone,
		p.Allergies, p.ChronicConditions, p.Medications,
		p.InsuranceProvider, p.InsurancePolicyNo, p.InsuranceGroupNo, p.InsuranceExpiry,
		p.InsuranceCoverage, p.AssignedDoctorID, p.RegisteredBy, p.IsActive)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
}

func (r *repoPG) GetByNumber(ctx context.Context, patientNumber string) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE patient_number = $1`, patientNumber))
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient SET name=$2, date_of_birth=$3, gender=$4, blood_group=$5, photo_url=$6,
			phone=$7, email=$8, address_street=$9, address_city=$10, address_state=$11,
			address_zip=$12, address_country=$13, em_contact_name=$14, em_contact_relation=$15,
			em_contact_phone=$16, allergies=$17, chronic_conditions=$18, medications=$19,
			insurance_provider=$20, insurance_policy_no=$21, insurance_group_no=$22,
			insurance_expiry=$23, insurance_coverage=$24, assigned_doctor_id=$25,
			updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.Name, p.DateOfBirth, p.Gender, p.BloodGroup, p.PhotoURL,
		p.Phone, p.Email, p.AddressStreet, p.AddressCity, p.AddressState,
		p.AddressZip, p.AddressCountry, p.EmContactName, p.EmContactRelation,
		p.EmContactPhone, p.Allergies, p.ChronicConditions, p.Medications,
		p.InsuranceProvider, p.InsurancePolicyNo, p.InsuranceGroupNo,
		p.InsuranceExpiry, p.InsuranceCoverage, p.AssignedDoctorID)
	return err
}

func (r *repoPG) SetActive(ctx context.Context, id uuid.UUID, active bool) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE patient SET is_active = $2, updated_at = NOW() WHERE id = $1 AND is_active <> $2`,
		id, active)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Patient, int, error) {
	query := `SELECT ` + patientCols + ` FROM patient WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM patient WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.ActiveOnly {
		query += ` AND is_active`
		countQuery += ` AND is_active`
	}
	if f.Gender != "" {
		query += fmt.Sprintf(` AND gender = $%d`, idx)
		countQuery += fmt.Sprintf(` AND gender = $%d`, idx)
		args = append(args, f.Gender)
		idx++
	}
	if f.BloodGroup != "" {
		query += fmt.Sprintf(` AND blood_group = $%d`, idx)
		countQuery += fmt.Sprintf(` AND blood_group = $%d`, idx)
		args = append(args, f.BloodGroup)
		idx++
	}
	if f.AssignedDoctorID != nil {
		query += fmt.Sprintf(` AND assigned_doctor_id = $%d`, idx)
		countQuery += fmt.Sprintf(` AND assigned_doctor_id = $%d`, idx)
		args = append(args, *f.AssignedDoctorID)
		idx++
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
	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, nil
}

func (r *repoPG) Search(ctx context.Context, q string, limit int) ([]*Patient, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+patientCols+` FROM patient
		WHERE is_active AND (name ILIKE $1 OR phone ILIKE $1 OR patient_number ILIKE $1)
		ORDER BY name LIMIT $2`, "%"+q+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (r *repoPG) AddDocument(ctx context.Context, d *Document) error {
	d.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient_document (id, patient_id, name, doc_type, url, uploaded_by, uploaded_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		d.ID, d.PatientID, d.Name, d.DocType, d.URL, d.UploadedBy, d.UploadedAt)
	return err
}

func (r *repoPG) ListDocuments(ctx context.Context, patientID uuid.UUID) ([]*Document, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, patient_id, name, doc_type, url, uploaded_by, uploaded_at
		FROM patient_document WHERE patient_id = $1 ORDER BY uploaded_at`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.PatientID, &d.Name, &d.DocType, &d.URL, &d.UploadedBy, &d.UploadedAt); err != nil {
			return nil, err
		}
		items = append(items, &d)
	}
	return items, rows.Err()
}
