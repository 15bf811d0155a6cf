package staff

import (
	"time"

	"github.com/google/uuid"
)

var validSpecializations = map[string]bool{
	"General Practice": true, "Cardiology": true, "Neurology": true,
	"Orthopedics": true, "Pediatrics": true, "Dermatology": true,
	"Oncology": true, "Radiology": true, "Surgery": true, "Psychiatry": true,
	"Gynecology": true, "Urology": true, "ENT": true, "Ophthalmology": true,
	"Anesthesiology": true, "Pathology": true, "Emergency Medicine": true,
	"Other": true,
}

var validStaffRoles = map[string]bool{
	"nurse": true, "receptionist": true, "pharmacist": true,
	"lab_technician": true, "admin": true, "accountant": true,
	"ward_boy": true, "cleaner": true, "security": true, "other": true,
}

var validEmploymentTypes = map[string]bool{
	"full-time": true, "part-time": true, "contract": true, "intern": true,
}

var validShifts = map[string]bool{
	"morning": true, "afternoon": true, "night": true, "rotating": true,
}

var validWeekdays = map[string]bool{
	"Monday": true, "Tuesday": true, "Wednesday": true, "Thursday": true,
	"Friday": true, "Saturday": true, "Sunday": true,
}

func ValidSpecialization(s string) bool { return validSpecializations[s] }
func ValidStaffRole(r string) bool      { return validStaffRoles[r] }
func ValidEmploymentType(e string) bool { return validEmploymentTypes[e] }
func ValidShift(s string) bool          { return validShifts[s] }
func ValidWeekday(d string) bool        { return validWeekdays[d] }

// Doctor maps to the doctor table.
type Doctor struct {
	ID              uuid.UUID `db:"id" json:"id"`
	DoctorNumber    string    `db:"doctor_number" json:"doctor_number"`
	Name            string    `db:"name" json:"name"`
	Email           *string   `db:"email" json:"email,omitempty"`
	Phone           *string   `db:"phone" json:"phone,omitempty"`
	Specialization  string    `db:"specialization" json:"specialization"`
	Department      string    `db:"department" json:"department"`
	Qualifications  []string  `db:"qualifications" json:"qualifications,omitempty"`
	LicenseNumber   string    `db:"license_number" json:"license_number"`
	ExperienceYears int       `db:"experience_years" json:"experience_years"`
	ConsultationFee float64   `db:"consultation_fee" json:"consultation_fee"`
	OPDEnabled      bool      `db:"opd_enabled" json:"opd_enabled"`
	IPDEnabled      bool      `db:"ipd_enabled" json:"ipd_enabled"`
	Bio             *string   `db:"bio" json:"bio,omitempty"`
	IsAvailable     bool      `db:"is_available" json:"is_available"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// ScheduleSlot is one weekday entry of a doctor's consultation schedule.
// Times are HH:MM, 24 hour.
type ScheduleSlot struct {
	ID              uuid.UUID `db:"id" json:"id"`
	DoctorID        uuid.UUID `db:"doctor_id" json:"doctor_id"`
	Weekday         string    `db:"weekday" json:"weekday"`
	StartTime       string    `db:"start_time" json:"start_time"`
	EndTime         string    `db:"end_time" json:"end_time"`
	MaxAppointments int       `db:"max_appointments" json:"max_appointments"`
}

// Staff maps to the staff_member table.
type Staff struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	StaffNumber    string     `db:"staff_number" json:"staff_number"`
	Name           string     `db:"name" json:"name"`
	Email          *string    `db:"email" json:"email,omitempty"`
	Phone          *string    `db:"phone" json:"phone,omitempty"`
	Role           string     `db:"role" json:"role"`
	Designation    string     `db:"designation" json:"designation"`
	Department     string     `db:"department" json:"department"`
	DateOfBirth    *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender         *string    `db:"gender" json:"gender,omitempty"`
	JoiningDate    time.Time  `db:"joining_date" json:"joining_date"`
	EmploymentType string     `db:"employment_type" json:"employment_type"`
	Shift          *string    `db:"shift" json:"shift,omitempty"`
	Salary         *float64   `db:"salary" json:"salary,omitempty"`
	LicenseNumber  *string    `db:"license_number" json:"license_number,omitempty"`
	IsActive       bool       `db:"is_active" json:"is_active"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// DepartmentCount is one row of the active staff per department summary.
type DepartmentCount struct {
	Department string `db:"department" json:"department"`
	Count      int    `db:"count" json:"count"`
}

// DoctorFilter narrows doctor listings.
type DoctorFilter struct {
	Specialization string
	Department     string
	AvailableOnly  bool
}

// StaffFilter narrows staff listings.
type StaffFilter struct {
	Role       string
	Department string
	ActiveOnly bool
}
