package staff

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

type doctorRepoPG struct{ pool *pgxpool.Pool }

func NewDoctorRepoPG(pool *pgxpool.Pool) DoctorRepository { return &doctorRepoPG{pool: pool} }

func (r *doctorRepoPG) conn(ctx context.Context) db.Querier {
	if q := db.QuerierFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

const doctorCols = `id, doctor_number, name, email, phone, specialization, department,
	qualifications, license_number, experience_years, consultation_fee,
	opd_enabled, ipd_enabled, bio, is_available, created_at, updated_at`

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.DoctorNumber, &d.Name, &d.Email, &d.Phone, &d.Specialization,
		&d.Department, &d.Qualifications, &d.LicenseNumber, &d.ExperienceYears,
		&d.ConsultationFee, &d.OPDEnabled, &d.IPDEnabled, &d.Bio, &d.IsAvailable,
		&d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("doctor not found")
	}
	return &d, err
}

func (r *doctorRepoPG) Create(ctx context.Context, d *Doctor) error {
	d.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO doctor (id, doctor_number, name, email, phone, specialization,
			department, qualifications, license_number, experience_years,
			consultation_fee, opd_enabled, ipd_enabled, bio, is_available)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		d.ID, d.DoctorNumber, d.Name, d.Email, d.Phone, d.Specialization,
		d.Department, d.Qualifications, d.LicenseNumber, d.ExperienceYears,
		d.ConsultationFee, d.OPDEnabled, d.IPDEnabled, d.Bio, d.IsAvailable)
	return err
}

func (r *doctorRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return scanDoctor(r.conn(ctx).QueryRow(ctx,
		`SELECT `+doctorCols+` FROM doctor WHERE id = $1`, id))
}

func (r *doctorRepoPG) GetByLicense(ctx context.Context, licenseNumber string) (*Doctor, error) {
	return scanDoctor(r.conn(ctx).QueryRow(ctx,
		`SELECT `+doctorCols+` FROM doctor WHERE license_number = $1`, licenseNumber))
}

func (r *doctorRepoPG) Update(ctx context.Context, d *Doctor) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE doctor SET name=$2, email=$3, phone=$4, specialization=$5, department=$6,
			qualifications=$7, experience_years=$8, consultation_fee=$9,
			opd_enabled=$10, ipd_enabled=$11, bio=$12, updated_at=NOW()
		WHERE id = $1`,
		d.ID, d.Name, d.Email, d.Phone, d.Specialization, d.Department,
		d.Qualifications, d.ExperienceYears, d.ConsultationFee,
		d.OPDEnabled, d.IPDEnabled, d.Bio)
	return err
}

func (r *doctorRepoPG) SetAvailable(ctx context.Context, id uuid.UUID, available bool) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE doctor SET is_available = $2, updated_at = NOW() WHERE id = $1 AND is_available <> $2`,
		id, available)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *doctorRepoPG) List(ctx context.Context, f DoctorFilter, limit, offset int) ([]*Doctor, int, error) {
	query := `SELECT ` + doctorCols + ` FROM doctor WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM doctor WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.Specialization != "" {
		query += fmt.Sprintf(` AND specialization = $%d`, idx)
		countQuery += fmt.Sprintf(` AND specialization = $%d`, idx)
		args = append(args, f.Specialization)
		idx++
	}
	if f.Department != "" {
		query += fmt.Sprintf(` AND department ILIKE $%d`, idx)
		countQuery += fmt.Sprintf(` AND department ILIKE $%d`, idx)
		args = append(args, "%"+f.Department+"%")
		idx++
	}
	if f.AvailableOnly {
		query += ` AND is_available`
		countQuery += ` AND is_available`
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
	var items []*Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, nil
}

func (r *doctorRepoPG) ReplaceSchedule(ctx context.Context, doctorID uuid.UUID, slots []ScheduleSlot) error {
	conn := r.conn(ctx)
	if _, err := conn.Exec(ctx, `DELETE FROM doctor_schedule WHERE doctor_id = $1`, doctorID); err != nil {
		return err
	}
	for i := range slots {
		slots[i].ID = uuid.New()
		slots[i].DoctorID = doctorID
		if _, err := conn.Exec(ctx, `
			INSERT INTO doctor_schedule (id, doctor_id, weekday, start_time, end_time, max_appointments)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			slots[i].ID, doctorID, slots[i].Weekday, slots[i].StartTime,
			slots[i].EndTime, slots[i].MaxAppointments); err != nil {
			return err
		}
	}
	return nil
}

func (r *doctorRepoPG) GetSchedule(ctx context.Context, doctorID uuid.UUID) ([]*ScheduleSlot, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, doctor_id, weekday, start_time, end_time, max_appointments
		FROM doctor_schedule WHERE doctor_id = $1
		ORDER BY array_position(ARRAY['Monday','Tuesday','Wednesday','Thursday','Friday','Saturday','Sunday'], weekday)`,
		doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*ScheduleSlot
	for rows.Next() {
		var s ScheduleSlot
		if err := rows.Scan(&s.ID, &s.DoctorID, &s.Weekday, &s.StartTime, &s.EndTime, &s.MaxAppointments); err != nil {
			return nil, err
		}
		items = append(items, &s)
	}
	return items, rows.Err()
}

type staffRepoPG struct{ pool *pgxpool.Pool }

func NewStaffRepoPG(pool *pgxpool.Pool) StaffRepository { return &staffRepoPG{pool: pool} }

func (r *staffRepoPG) conn(ctx context.Context) db.Querier {
	if q := db.QuerierFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

const staffCols = `id, staff_number, name, email, phone, role, designation, department,
	date_of_birth, gender, joining_date, employment_type, shift, salary,
	license_number, is_active, created_at, updated_at`

func scanStaff(row pgx.Row) (*Staff, error) {
	var s Staff
	err := row.Scan(&s.ID, &s.StaffNumber, &s.Name, &s.Email, &s.Phone, &s.Role,
		&s.Designation, &s.Department, &s.DateOfBirth, &s.Gender, &s.JoiningDate,
		&s.EmploymentType, &s.Shift, &s.Salary, &s.LicenseNumber, &s.IsActive,
		&s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("staff member not found")
	}
	return &s, err
}

func (r *staffRepoPG) Create(ctx context.Context, s *Staff) error {
	s.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO staff_member (id, staff_number, name, email, phone, role, designation,
			department, date_of_birth, gender, joining_date, employment_type, shift,
			salary, license_number, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		s.ID, s.StaffNumber, s.Name, s.Email, s.Phone, s.Role, s.Designation,
		s.Department, s.DateOfBirth, s.Gender, s.JoiningDate, s.EmploymentType,
		s.Shift, s.Salary, s.LicenseNumber, s.IsActive)
	return err
}

func (r *staffRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Staff, error) {
	return scanStaff(r.conn(ctx).QueryRow(ctx,
		`SELECT `+staffCols+` FROM staff_member WHERE id = $1`, id))
}

func (r *staffRepoPG) Update(ctx context.Context, s *Staff) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE staff_member SET name=$2, email=$3, phone=$4, role=$5, designation=$6,
			department=$7, date_of_birth=$8, gender=$9, employment_type=$10, shift=$11,
			salary=$12, license_number=$13, updated_at=NOW()
		WHERE id = $1`,
		s.ID, s.Name, s.Email, s.Phone, s.Role, s.Designation,
		s.Department, s.DateOfBirth, s.Gender, s.EmploymentType, s.Shift,
		s.Salary, s.LicenseNumber)
	return err
}

func (r *staffRepoPG) SetActive(ctx context.Context, id uuid.UUID, active bool) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE staff_member SET is_active = $2, updated_at = NOW() WHERE id = $1 AND is_active <> $2`,
		id, active)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *staffRepoPG) List(ctx context.Context, f StaffFilter, limit, offset int) ([]*Staff, int, error) {
	query := `SELECT ` + staffCols + ` FROM staff_member WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM staff_member WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.ActiveOnly {
		query += ` AND is_active`
		countQuery += ` AND is_active`
	}
	if f.Role != "" {
		query += fmt.Sprintf(` AND role = $%d`, idx)
		countQuery += fmt.Sprintf(` AND role = $%d`, idx)
		args = append(args, f.Role)
		idx++
	}
	if f.Department != "" {
		query += fmt.Sprintf(` AND department ILIKE $%d`, idx)
		countQuery += fmt.Sprintf(` AND department ILIKE $%d`, idx)
		args = append(args, "%"+f.Department+"%")
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
	var items []*Staff
	for rows.Next() {
		s, err := scanStaff(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, nil
}

func (r *staffRepoPG) CountByDepartment(ctx context.Context) ([]*DepartmentCount, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT department, COUNT(*) FROM staff_member
		WHERE is_active GROUP BY department ORDER BY department`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*DepartmentCount
	for rows.Next() {
		var d DepartmentCount
		if err := rows.Scan(&d.Department, &d.Count); err != nil {
			return nil, err
		}
		items = append(items, &d)
	}
	return items, rows.Err()
}
