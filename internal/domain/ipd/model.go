package ipd

import (
	"time"

	"github.com/google/uuid"
)

// Admission statuses. Discharge-family statuses are terminal.
const (
	StatusAdmitted       = "admitted"
	StatusUnderTreatment = "under-treatment"
	StatusStable         = "stable"
	StatusCritical       = "critical"
	StatusTransferred    = "transferred"
	StatusDischarged     = "discharged"
	StatusAMA            = "ama"
	StatusExpired        = "expired"
)

// Discharge types.
const (
	DischargeNormal   = "normal"
	DischargeAMA      = "against-medical-advice"
	DischargeTransfer = "transfer"
	DischargeDeath    = "death"
	DischargeReferral = "referral"
)

// Admission types.
const (
	AdmissionPlanned   = "planned"
	AdmissionEmergency = "emergency"
	AdmissionTransfer  = "transfer"
)

// Medication administration outcomes.
const (
	MARGiven   = "given"
	MARMissed  = "missed"
	MARRefused = "refused"
	MARHeld    = "held"
)

// Medication order statuses.
const (
	OrderActive    = "active"
	OrderStopped   = "stopped"
	OrderCompleted = "completed"
)

var validStatuses = map[string]bool{
	StatusAdmitted:       true,
	StatusUnderTreatment: true,
	StatusStable:         true,
	StatusCritical:       true,
	StatusTransferred:    true,
	StatusDischarged:     true,
	StatusAMA:            true,
	StatusExpired:        true,
}

var terminalStatuses = map[string]bool{
	StatusTransferred: true,
	StatusDischarged:  true,
	StatusAMA:         true,
	StatusExpired:     true,
}

var validDischargeTypes = map[string]bool{
	DischargeNormal:   true,
	DischargeAMA:      true,
	DischargeTransfer: true,
	DischargeDeath:    true,
	DischargeReferral: true,
}

var validMAROutcomes = map[string]bool{
	MARGiven:   true,
	MARMissed:  true,
	MARRefused: true,
	MARHeld:    true,
}

func ValidStatus(s string) bool        { return validStatuses[s] }
func IsTerminal(s string) bool         { return terminalStatuses[s] }
func ValidDischargeType(t string) bool { return validDischargeTypes[t] }
func ValidMAROutcome(o string) bool    { return validMAROutcomes[o] }

// dischargeStatusFor maps a discharge type to the terminal admission status.
func dischargeStatusFor(dischargeType string) string {
	switch dischargeType {
	case DischargeAMA:
		return StatusAMA
	case DischargeDeath:
		return StatusExpired
	case DischargeTransfer, DischargeReferral:
		return StatusTransferred
	default:
		return StatusDischarged
	}
}

// Admission maps to the ipd_admission table.
type Admission struct {
	ID                   uuid.UUID  `db:"id" json:"id"`
	AdmissionNumber      string     `db:"admission_number" json:"admission_number"`
	PatientID            uuid.UUID  `db:"patient_id" json:"patient_id"`
	BedID                *uuid.UUID `db:"bed_id" json:"bed_id,omitempty"`
	AdmittingDoctorID    uuid.UUID  `db:"admitting_doctor_id" json:"admitting_doctor_id"`
	Department           *string    `db:"department" json:"department,omitempty"`
	AdmissionType        string     `db:"admission_type" json:"admission_type"`
	ChiefComplaint       *string    `db:"chief_complaint" json:"chief_complaint,omitempty"`
	ProvisionalDiagnosis string     `db:"provisional_diagnosis" json:"provisional_diagnosis"`
	FinalDiagnosis       *string    `db:"final_diagnosis" json:"final_diagnosis,omitempty"`
	Status               string     `db:"status" json:"status"`
	AdmittedAt           time.Time  `db:"admitted_at" json:"admitted_at"`
	ExpectedDischargeAt  *time.Time `db:"expected_discharge_at" json:"expected_discharge_at,omitempty"`
	DischargedAt         *time.Time `db:"discharged_at" json:"discharged_at,omitempty"`
	DischargeType        *string    `db:"discharge_type" json:"discharge_type,omitempty"`
	DischargeSummary     *string    `db:"discharge_summary" json:"discharge_summary,omitempty"`
	AdvanceDeposit       float64    `db:"advance_deposit" json:"advance_deposit"`
	AttendantName        *string    `db:"attendant_name" json:"attendant_name,omitempty"`
	AttendantPhone       *string    `db:"attendant_phone" json:"attendant_phone,omitempty"`
	AttendantRelation    *string    `db:"attendant_relation" json:"attendant_relation,omitempty"`
	EmergencyCaseID      *uuid.UUID `db:"emergency_case_id" json:"emergency_case_id,omitempty"`
	CreatedBy            *uuid.UUID `db:"created_by" json:"created_by,omitempty"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
}

// StatusChange maps to the admission_status_history table. Append only.
type StatusChange struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	AdmissionID uuid.UUID  `db:"admission_id" json:"admission_id"`
	Status      string     `db:"status" json:"status"`
	ChangedAt   time.Time  `db:"changed_at" json:"changed_at"`
	ChangedBy   *uuid.UUID `db:"changed_by" json:"changed_by,omitempty"`
	Note        *string    `db:"note" json:"note,omitempty"`
}

// BedTransfer maps to the admission_bed_transfer table. Append only. A nil
// FromBedID marks the first bed assignment of an unbedded admission.
type BedTransfer struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	AdmissionID   uuid.UUID  `db:"admission_id" json:"admission_id"`
	FromBedID     *uuid.UUID `db:"from_bed_id" json:"from_bed_id,omitempty"`
	ToBedID       uuid.UUID  `db:"to_bed_id" json:"to_bed_id"`
	Reason        *string    `db:"reason" json:"reason,omitempty"`
	TransferredBy *uuid.UUID `db:"transferred_by" json:"transferred_by,omitempty"`
	TransferredAt time.Time  `db:"transferred_at" json:"transferred_at"`
}

// VitalRecord maps to the admission_vital table. Append only.
type VitalRecord struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	AdmissionID      uuid.UUID  `db:"admission_id" json:"admission_id"`
	Temperature      *float64   `db:"temperature" json:"temperature,omitempty"`
	Pulse            *int       `db:"pulse" json:"pulse,omitempty"`
	BPSystolic       *int       `db:"bp_systolic" json:"bp_systolic,omitempty"`
	BPDiastolic      *int       `db:"bp_diastolic" json:"bp_diastolic,omitempty"`
	RespiratoryRate  *int       `db:"respiratory_rate" json:"respiratory_rate,omitempty"`
	OxygenSaturation *int       `db:"oxygen_saturation" json:"oxygen_saturation,omitempty"`
	BloodSugar       *float64   `db:"blood_sugar" json:"blood_sugar,omitempty"`
	Note             *string    `db:"note" json:"note,omitempty"`
	RecordedBy       *uuid.UUID `db:"recorded_by" json:"recorded_by,omitempty"`
	RecordedAt       time.Time  `db:"recorded_at" json:"recorded_at"`
}

// ProgressNote maps to the admission_progress_note table. Append only.
type ProgressNote struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	AdmissionID uuid.UUID  `db:"admission_id" json:"admission_id"`
	Note        string     `db:"note" json:"note"`
	AuthoredBy  *uuid.UUID `db:"authored_by" json:"authored_by,omitempty"`
	AuthoredAt  time.Time  `db:"authored_at" json:"authored_at"`
}

// MedicationOrder maps to the admission_medication_order table.
type MedicationOrder struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	AdmissionID uuid.UUID  `db:"admission_id" json:"admission_id"`
	Medicine    string     `db:"medicine" json:"medicine"`
	Dose        string     `db:"dose" json:"dose"`
	Route       *string    `db:"route" json:"route,omitempty"`
	Frequency   string     `db:"frequency" json:"frequency"`
	Status      string     `db:"status" json:"status"`
	StartAt     time.Time  `db:"start_at" json:"start_at"`
	EndAt       *time.Time `db:"end_at" json:"end_at,omitempty"`
	OrderedBy   *uuid.UUID `db:"ordered_by" json:"ordered_by,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// MedicationAdministration maps to the admission_medication_admin table.
// Append only; corrections are new rows with an explanatory note.
type MedicationAdministration struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	AdmissionID    uuid.UUID  `db:"admission_id" json:"admission_id"`
	OrderID        uuid.UUID  `db:"order_id" json:"order_id"`
	Outcome        string     `db:"outcome" json:"outcome"`
	Note           *string    `db:"note" json:"note,omitempty"`
	AdministeredBy *uuid.UUID `db:"administered_by" json:"administered_by,omitempty"`
	AdministeredAt time.Time  `db:"administered_at" json:"administered_at"`
}

// DressingRecord maps to the admission_dressing table. Append only.
type DressingRecord struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	AdmissionID uuid.UUID  `db:"admission_id" json:"admission_id"`
	WoundSite   *string    `db:"wound_site" json:"wound_site,omitempty"`
	Note        *string    `db:"note" json:"note,omitempty"`
	PerformedBy *uuid.UUID `db:"performed_by" json:"performed_by,omitempty"`
	PerformedAt time.Time  `db:"performed_at" json:"performed_at"`
}

// ProcedureRecord maps to the admission_procedure table. Append only.
type ProcedureRecord struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	AdmissionID uuid.UUID  `db:"admission_id" json:"admission_id"`
	Name        string     `db:"name" json:"name"`
	Description *string    `db:"description" json:"description,omitempty"`
	Outcome     *string    `db:"outcome" json:"outcome,omitempty"`
	Notes       *string    `db:"notes" json:"notes,omitempty"`
	PerformedBy *uuid.UUID `db:"performed_by" json:"performed_by,omitempty"`
	PerformedAt time.Time  `db:"performed_at" json:"performed_at"`
}

// SurgeryRecord maps to the admission_surgery table. Surgeries may be
// recorded ahead of time with only ScheduledAt set and the outcome filled
// in once performed.
type SurgeryRecord struct {
	ID              uuid.UUID   `db:"id" json:"id"`
	AdmissionID     uuid.UUID   `db:"admission_id" json:"admission_id"`
	Name            string      `db:"name" json:"name"`
	Surgeons        []uuid.UUID `db:"surgeons" json:"surgeons,omitempty"`
	Anesthetist     *uuid.UUID  `db:"anesthetist" json:"anesthetist,omitempty"`
	ScheduledAt     *time.Time  `db:"scheduled_at" json:"scheduled_at,omitempty"`
	PerformedAt     *time.Time  `db:"performed_at" json:"performed_at,omitempty"`
	DurationMinutes *int        `db:"duration_minutes" json:"duration_minutes,omitempty"`
	Outcome         *string     `db:"outcome" json:"outcome,omitempty"`
	Notes           *string     `db:"notes" json:"notes,omitempty"`
	RecordedBy      *uuid.UUID  `db:"recorded_by" json:"recorded_by,omitempty"`
	RecordedAt      time.Time   `db:"recorded_at" json:"recorded_at"`
}

// Filter narrows admission listings.
type Filter struct {
	PatientID  *uuid.UUID
	DoctorID   *uuid.UUID
	Status     string
	Department string
	ActiveOnly bool
}
