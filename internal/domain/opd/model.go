package opd

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusWaiting        = "waiting"
	StatusInConsultation = "in-consultation"
	StatusCompleted      = "completed"
	StatusCancelled      = "cancelled"
	StatusNoShow         = "no-show"
	StatusReferred       = "referred"
)

const (
	TypeNew       = "new"
	TypeFollowUp  = "follow-up"
	TypeEmergency = "emergency"
	TypeReferral  = "referral"
)

const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
	PaymentWaived  = "waived"
)

var validStatuses = map[string]bool{
	StatusWaiting:        true,
	StatusInConsultation: true,
	StatusCompleted:      true,
	StatusCancelled:      true,
	StatusNoShow:         true,
	StatusReferred:       true,
}

var terminalStatuses = map[string]bool{
	StatusCompleted: true,
	StatusCancelled: true,
	StatusNoShow:    true,
}

// allowedTransitions is the visit status flow. Referred visits may still be
// completed once the referral consult ends.
var allowedTransitions = map[string]map[string]bool{
	StatusWaiting: {
		StatusInConsultation: true,
		StatusCancelled:      true,
		StatusNoShow:         true,
	},
	StatusInConsultation: {
		StatusCompleted: true,
		StatusReferred:  true,
		StatusCancelled: true,
	},
	StatusReferred: {
		StatusCompleted: true,
		StatusCancelled: true,
	},
}

var validTypes = map[string]bool{
	TypeNew:       true,
	TypeFollowUp:  true,
	TypeEmergency: true,
	TypeReferral:  true,
}

var validRoutes = map[string]bool{
	"oral": true, "iv": true, "im": true, "topical": true, "inhaled": true, "other": true,
}

var validUrgencies = map[string]bool{
	"routine": true, "urgent": true, "emergency": true,
}

func ValidStatus(s string) bool  { return validStatuses[s] }
func IsTerminal(s string) bool   { return terminalStatuses[s] }
func ValidType(t string) bool    { return validTypes[t] }
func ValidRoute(r string) bool   { return validRoutes[r] }
func ValidUrgency(u string) bool { return validUrgencies[u] }

// CanTransition reports whether a visit may move from one status to another.
func CanTransition(from, to string) bool {
	return allowedTransitions[from][to]
}

// Visit maps to the opd_visit table. Vitals are a single snapshot replaced
// on re-recording, unlike the inpatient append log.
type Visit struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	VisitNumber      string     `db:"visit_number" json:"visit_number"`
	PatientID        uuid.UUID  `db:"patient_id" json:"patient_id"`
	DoctorID         uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	VisitDate        time.Time  `db:"visit_date" json:"visit_date"`
	TokenNumber      string     `db:"token_number" json:"token_number"`
	Status           string     `db:"status" json:"status"`
	VisitType        string     `db:"visit_type" json:"visit_type"`
	ChiefComplaint   *string    `db:"chief_complaint" json:"chief_complaint,omitempty"`
	Symptoms         []string   `db:"symptoms" json:"symptoms,omitempty"`
	Diagnosis        *string    `db:"diagnosis" json:"diagnosis,omitempty"`
	ICDCode          *string    `db:"icd_code" json:"icd_code,omitempty"`
	ClinicalFindings *string    `db:"clinical_findings" json:"clinical_findings,omitempty"`
	TreatmentPlan    *string    `db:"treatment_plan" json:"treatment_plan,omitempty"`
	Notes            *string    `db:"notes" json:"notes,omitempty"`
	ReferredTo       *string    `db:"referred_to" json:"referred_to,omitempty"`
	ReferralHospital *string    `db:"referral_hospital" json:"referral_hospital,omitempty"`
	ReferralReason   *string    `db:"referral_reason" json:"referral_reason,omitempty"`
	ReferralUrgency  *string    `db:"referral_urgency" json:"referral_urgency,omitempty"`
	ConsultationFee  float64    `db:"consultation_fee" json:"consultation_fee"`
	PaymentStatus    string     `db:"payment_status" json:"payment_status"`
	RegisteredBy     *uuid.UUID `db:"registered_by" json:"registered_by,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// VitalsSnapshot maps to the opd_vitals table, one row per visit.
type VitalsSnapshot struct {
	VisitID          uuid.UUID  `db:"visit_id" json:"visit_id"`
	BloodPressure    *string    `db:"blood_pressure" json:"blood_pressure,omitempty"`
	HeartRate        *int       `db:"heart_rate" json:"heart_rate,omitempty"`
	Temperature      *float64   `db:"temperature" json:"temperature,omitempty"`
	WeightKg         *float64   `db:"weight_kg" json:"weight_kg,omitempty"`
	HeightCm         *float64   `db:"height_cm" json:"height_cm,omitempty"`
	BMI              *float64   `db:"bmi" json:"bmi,omitempty"`
	OxygenSaturation *int       `db:"oxygen_saturation" json:"oxygen_saturation,omitempty"`
	RespiratoryRate  *int       `db:"respiratory_rate" json:"respiratory_rate,omitempty"`
	BloodSugar       *float64   `db:"blood_sugar" json:"blood_sugar,omitempty"`
	RecordedBy       *uuid.UUID `db:"recorded_by" json:"recorded_by,omitempty"`
	RecordedAt       time.Time  `db:"recorded_at" json:"recorded_at"`
}

// PrescriptionItem is one medication line on a visit prescription.
type PrescriptionItem struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	VisitID      uuid.UUID  `db:"visit_id" json:"visit_id"`
	MedicineID   *uuid.UUID `db:"medicine_id" json:"medicine_id,omitempty"`
	Name         string     `db:"name" json:"name"`
	Dosage       string     `db:"dosage" json:"dosage"`
	Frequency    string     `db:"frequency" json:"frequency"`
	Duration     *string    `db:"duration" json:"duration,omitempty"`
	Route        string     `db:"route" json:"route"`
	Instructions *string    `db:"instructions" json:"instructions,omitempty"`
	Quantity     *int       `db:"quantity" json:"quantity,omitempty"`
}

// Prescription is the consult outcome saved in one step.
type Prescription struct {
	VisitID       uuid.UUID          `db:"visit_id" json:"visit_id"`
	Items         []PrescriptionItem `db:"-" json:"items"`
	Instructions  *string            `db:"instructions" json:"instructions,omitempty"`
	FollowUpDate  *time.Time         `db:"follow_up_date" json:"follow_up_date,omitempty"`
	FollowUpNotes *string            `db:"follow_up_notes" json:"follow_up_notes,omitempty"`
}

// Filter narrows visit listings.
type Filter struct {
	Status    string
	VisitType string
	DoctorID  *uuid.UUID
	PatientID *uuid.UUID
	VisitedOn *time.Time
}
