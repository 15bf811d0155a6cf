package staff

import (
	"context"

	"github.com/google/uuid"
)

// DoctorRepository persists doctor records and their weekly schedules.
type DoctorRepository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetByLicense(ctx context.Context, licenseNumber string) (*Doctor, error)
	Update(ctx context.Context, d *Doctor) error
	SetAvailable(ctx context.Context, id uuid.UUID, available bool) (bool, error)
	List(ctx context.Context, f DoctorFilter, limit, offset int) ([]*Doctor, int, error)

	ReplaceSchedule(ctx context.Context, doctorID uuid.UUID, slots []ScheduleSlot) error
	GetSchedule(ctx context.Context, doctorID uuid.UUID) ([]*ScheduleSlot, error)
}

// StaffRepository persists non-doctor staff records.
type StaffRepository interface {
	Create(ctx context.Context, s *Staff) error
	GetByID(ctx context.Context, id uuid.UUID) (*Staff, error)
	Update(ctx context.Context, s *Staff) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) (bool, error)
	List(ctx context.Context, f StaffFilter, limit, offset int) ([]*Staff, int, error)
	CountByDepartment(ctx context.Context) ([]*DepartmentCount, error)
}
