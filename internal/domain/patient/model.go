package patient

import (
	"time"

	"github.com/google/uuid"
)

const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

const (
	DocLabReport    = "lab_report"
	DocPrescription = "prescription"
	DocImaging      = "imaging"
	DocConsent      = "consent"
	DocOther        = "other"
)

var validGenders = map[string]bool{
	GenderMale:   true,
	GenderFemale: true,
	GenderOther:  true,
}

var validBloodGroups = map[string]bool{
	"A+": true, "A-": true, "B+": true, "B-": true,
	"AB+": true, "AB-": true, "O+": true, "O-": true,
	"Unknown": true,
}

var validDocTypes = map[string]bool{
	DocLabReport:    true,
	DocPrescription: true,
	DocImaging:      true,
	DocConsent:      true,
	DocOther:        true,
}

func ValidGender(g string) bool     { return validGenders[g] }
func ValidBloodGroup(b string) bool { return validBloodGroups[b] }
func ValidDocType(t string) bool    { return validDocTypes[t] }

// Patient maps to the patient table.
type Patient struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	PatientNumber     string     `db:"patient_number" json:"patient_number"`
	Name              string     `db:"name" json:"name"`
	DateOfBirth       time.Time  `db:"date_of_birth" json:"date_of_birth"`
	Gender            string     `db:"gender" json:"gender"`
	BloodGroup        *string    `db:"blood_group" json:"blood_group,omitempty"`
	PhotoURL          *string    `db:"photo_url" json:"photo_url,omitempty"`
	Phone             string     `db:"phone" json:"phone"`
	Email             *string    `db:"email" json:"email,omitempty"`
	AddressStreet     *string    `db:"address_street" json:"address_street,omitempty"`
	AddressCity       *string    `db:"address_city" json:"address_city,omitempty"`
	AddressState      *string    `db:"address_state" json:"address_state,omitempty"`
	AddressZip        *string    `db:"address_zip" json:"address_zip,omitempty"`
	AddressCountry    string     `db:"address_country" json:"address_country"`
	EmContactName     *string    `db:"em_contact_name" json:"em_contact_name,omitempty"`
	EmContactRelation *string    `db:"em_contact_relation" json:"em_contact_relation,omitempty"`
	EmContactPhone    *string    `db:"em_contact_phone" json:"em_contact_phone,omitempty"`
	Allergies         []string   `db:"allergies" json:"allergies,omitempty"`
	ChronicConditions []string   `db:"chronic_conditions" json:"chronic_conditions,omitempty"`
	Medications       []string   `db:"medications" json:"medications,omitempty"`
	InsuranceProvider *string    `db:"insurance_provider" json:"insurance_provider,omitempty"`
	InsurancePolicyNo *string    `db:"insurance_policy_no" json:"insurance_policy_no,omitempty"`
	InsuranceGroupNo  *string    `db:"insurance_group_no" json:"insurance_group_no,omitempty"`
	InsuranceExpiry   *time.Time `db:"insurance_expiry" json:"insurance_expiry,omitempty"`
	InsuranceCoverage *string    `db:"insurance_coverage" json:"insurance_coverage,omitempty"`
	AssignedDoctorID  *uuid.UUID `db:"assigned_doctor_id" json:"assigned_doctor_id,omitempty"`
	RegisteredBy      *uuid.UUID `db:"registered_by" json:"registered_by,omitempty"`
	IsActive          bool       `db:"is_active" json:"is_active"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// Age in whole years as of now.
func (p *Patient) Age(now time.Time) int {
	years := now.Year() - p.DateOfBirth.Year()
	if now.YearDay() < p.DateOfBirth.YearDay() {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

// Document is an uploaded file attached to a patient record.
type Document struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	PatientID  uuid.UUID  `db:"patient_id" json:"patient_id"`
	Name       string     `db:"name" json:"name"`
	DocType    string     `db:"doc_type" json:"doc_type"`
	URL        string     `db:"url" json:"url"`
	UploadedBy *uuid.UUID `db:"uploaded_by" json:"uploaded_by,omitempty"`
	UploadedAt time.Time  `db:"uploaded_at" json:"uploaded_at"`
}

// Filter narrows patient listings. ActiveOnly defaults to true at the
// service boundary.
type Filter struct {
	Gender           string
	BloodGroup       string
	AssignedDoctorID *uuid.UUID
	ActiveOnly       bool
}
