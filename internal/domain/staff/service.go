package staff

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hms/hms/pkg/apperr"
)

// NumberSource allocates doctor and staff numbers.
type NumberSource interface {
	NextDoctorNumber(ctx context.Context) (string, error)
	NextStaffNumber(ctx context.Context) (string, error)
}

type Service struct {
	doctors DoctorRepository
	staff   StaffRepository
	numbers NumberSource
	log     zerolog.Logger
}

func NewService(doctors DoctorRepository, staff StaffRepository, numbers NumberSource, log zerolog.Logger) *Service {
	return &Service{doctors: doctors, staff: staff, numbers: numbers, log: log}
}

func validateDoctor(d *Doctor) error {
	if d.Name == "" {
		return apperr.Validationf("name is required")
	}
	if !ValidSpecialization(d.Specialization) {
		return apperr.Validationf("invalid specialization %q", d.Specialization)
	}
	if d.Department == "" {
		return apperr.Validationf("department is required")
	}
	if d.LicenseNumber == "" {
		return apperr.Validationf("license_number is required")
	}
	if d.ConsultationFee < 0 {
		return apperr.Validationf("consultation_fee must not be negative")
	}
	return nil
}

// CreateDoctor registers a doctor. The license number is the natural key.
func (s *Service) CreateDoctor(ctx context.Context, d *Doctor) error {
	if err := validateDoctor(d); err != nil {
		return err
	}
	if existing, err := s.doctors.GetByLicense(ctx, d.LicenseNumber); err == nil && existing != nil {
		return apperr.Conflictf("license number %s is already registered", d.LicenseNumber)
	}
	number, err := s.numbers.NextDoctorNumber(ctx)
	if err != nil {
		return err
	}
	d.DoctorNumber = number
	d.IsAvailable = true
	if !d.IPDEnabled {
		d.OPDEnabled = true
	}
	return s.doctors.Create(ctx, d)
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.doctors.GetByID(ctx, id)
}

func (s *Service) UpdateDoctor(ctx context.Context, id uuid.UUID, d *Doctor) (*Doctor, error) {
	existing, err := s.doctors.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	d.ID = existing.ID
	d.DoctorNumber = existing.DoctorNumber
	d.LicenseNumber = existing.LicenseNumber
	d.IsAvailable = existing.IsAvailable
	if err := validateDoctor(d); err != nil {
		return nil, err
	}
	if err := s.doctors.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) DeactivateDoctor(ctx context.Context, id uuid.UUID) error {
	ok, err := s.doctors.SetAvailable(ctx, id, false)
	if err != nil {
		return err
	}
	if !ok {
		if _, err := s.doctors.GetByID(ctx, id); err != nil {
			return err
		}
		return apperr.InvalidStatef("doctor is already deactivated")
	}
	return nil
}

func (s *Service) ReactivateDoctor(ctx context.Context, id uuid.UUID) error {
	ok, err := s.doctors.SetAvailable(ctx, id, true)
	if err != nil {
		return err
	}
	if !ok {
		if _, err := s.doctors.GetByID(ctx, id); err != nil {
			return err
		}
		return apperr.InvalidStatef("doctor is already available")
	}
	return nil
}

func (s *Service) ListDoctors(ctx context.Context, f DoctorFilter, limit, offset int) ([]*Doctor, int, error) {
	if f.Specialization != "" && !ValidSpecialization(f.Specialization) {
		return nil, 0, apperr.Validationf("invalid specialization %q", f.Specialization)
	}
	return s.doctors.List(ctx, f, limit, offset)
}

func parseClock(v string) (int, bool) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}

// SetSchedule replaces a doctor's weekly consultation schedule. One entry
// per weekday, HH:MM times, start strictly before end.
func (s *Service) SetSchedule(ctx context.Context, doctorID uuid.UUID, slots []ScheduleSlot) ([]*ScheduleSlot, error) {
	if _, err := s.doctors.GetByID(ctx, doctorID); err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(slots))
	for i := range slots {
		slot := &slots[i]
		if !ValidWeekday(slot.Weekday) {
			return nil, apperr.Validationf("invalid weekday %q", slot.Weekday)
		}
		if seen[slot.Weekday] {
			return nil, apperr.Validationf("duplicate schedule entry for %s", slot.Weekday)
		}
		seen[slot.Weekday] = true
		start, ok := parseClock(slot.StartTime)
		if !ok {
			return nil, apperr.Validationf("invalid start_time %q, expected HH:MM", slot.StartTime)
		}
		end, ok := parseClock(slot.EndTime)
		if !ok {
			return nil, apperr.Validationf("invalid end_time %q, expected HH:MM", slot.EndTime)
		}
		if start >= end {
			return nil, apperr.Validationf("start_time must be before end_time on %s", slot.Weekday)
		}
		if slot.MaxAppointments <= 0 {
			slot.MaxAppointments = 20
		}
	}
	if err := s.doctors.ReplaceSchedule(ctx, doctorID, slots); err != nil {
		return nil, err
	}
	return s.doctors.GetSchedule(ctx, doctorID)
}

func (s *Service) Schedule(ctx context.Context, doctorID uuid.UUID) ([]*ScheduleSlot, error) {
	return s.doctors.GetSchedule(ctx, doctorID)
}

// ScheduleFor returns the schedule entry for one weekday, or nil when the
// doctor does not consult that day.
func (s *Service) ScheduleFor(ctx context.Context, doctorID uuid.UUID, weekday time.Weekday) (*ScheduleSlot, error) {
	slots, err := s.doctors.GetSchedule(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	name := weekday.String()
	for _, slot := range slots {
		if slot.Weekday == name {
			return slot, nil
		}
	}
	return nil, nil
}

// ConsultationFee is the fee lookup used when registering visits.
func (s *Service) ConsultationFee(ctx context.Context, doctorID uuid.UUID) (float64, error) {
	d, err := s.doctors.GetByID(ctx, doctorID)
	if err != nil {
		return 0, err
	}
	if !d.IsAvailable {
		return 0, apperr.InvalidStatef("doctor is not available")
	}
	return d.ConsultationFee, nil
}

func validateStaff(m *Staff) error {
	if m.Name == "" {
		return apperr.Validationf("name is required")
	}
	if !ValidStaffRole(m.Role) {
		return apperr.Validationf("invalid role %q", m.Role)
	}
	if m.Designation == "" {
		return apperr.Validationf("designation is required")
	}
	if m.Department == "" {
		return apperr.Validationf("department is required")
	}
	if m.EmploymentType != "" && !ValidEmploymentType(m.EmploymentType) {
		return apperr.Validationf("invalid employment_type %q", m.EmploymentType)
	}
	if m.Shift != nil && !ValidShift(*m.Shift) {
		return apperr.Validationf("invalid shift %q", *m.Shift)
	}
	return nil
}

func (s *Service) CreateStaff(ctx context.Context, m *Staff) error {
	if err := validateStaff(m); err != nil {
		return err
	}
	if m.EmploymentType == "" {
		m.EmploymentType = "full-time"
	}
	if m.JoiningDate.IsZero() {
		m.JoiningDate = time.Now().UTC()
	}
	number, err := s.numbers.NextStaffNumber(ctx)
	if err != nil {
		return err
	}
	m.StaffNumber = number
	m.IsActive = true
	return s.staff.Create(ctx, m)
}

func (s *Service) GetStaff(ctx context.Context, id uuid.UUID) (*Staff, error) {
	return s.staff.GetByID(ctx, id)
}

func (s *Service) UpdateStaff(ctx context.Context, id uuid.UUID, m *Staff) (*Staff, error) {
	existing, err := s.staff.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !existing.IsActive {
		return nil, apperr.InvalidStatef("staff member is deactivated")
	}
	m.ID = existing.ID
	m.StaffNumber = existing.StaffNumber
	m.JoiningDate = existing.JoiningDate
	if m.EmploymentType == "" {
		m.EmploymentType = existing.EmploymentType
	}
	if err := validateStaff(m); err != nil {
		return nil, err
	}
	if err := s.staff.Update(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) DeactivateStaff(ctx context.Context, id uuid.UUID) error {
	ok, err := s.staff.SetActive(ctx, id, false)
	if err != nil {
		return err
	}
	if !ok {
		if _, err := s.staff.GetByID(ctx, id); err != nil {
			return err
		}
		return apperr.InvalidStatef("staff member is already deactivated")
	}
	return nil
}

func (s *Service) ListStaff(ctx context.Context, f StaffFilter, limit, offset int) ([]*Staff, int, error) {
	if f.Role != "" && !ValidStaffRole(f.Role) {
		return nil, 0, apperr.Validationf("invalid role %q", f.Role)
	}
	return s.staff.List(ctx, f, limit, offset)
}

func (s *Service) StaffByDepartment(ctx context.Context) ([]*DepartmentCount, error) {
	return s.staff.CountByDepartment(ctx)
}
