package emergency

import (
	"time"

	"github.com/google/uuid"
)

// Case statuses. Terminal statuses are only reachable through Disposition.
const (
	StatusActive         = "active"
	StatusUnderTreatment = "under-treatment"
	StatusStable         = "stable"
	StatusCritical       = "critical"
	StatusDischarged     = "discharged"
	StatusAdmittedIPD    = "admitted-ipd"
	StatusTransferred    = "transferred"
	StatusExpired        = "expired"
	StatusLWBS           = "left-without-being-seen"
)

// Triage levels, most to least severe.
const (
	TriageImmediate  = "immediate"
	TriageUrgent     = "urgent"
	TriageLessUrgent = "less-urgent"
	TriageNonUrgent  = "non-urgent"
)

const (
	ArrivalAmbulance = "ambulance"
	ArrivalWalkIn    = "walk-in"
	ArrivalPolice    = "police"
	ArrivalReferred  = "referred"
	ArrivalOther     = "other"
)

const (
	DispositionDischarged  = "discharged"
	DispositionAdmitted    = "admitted"
	DispositionTransferred = "transferred"
	DispositionExpired     = "expired"
	DispositionLWBS        = "lwbs"
)

var validStatuses = map[string]bool{
	StatusActive:         true,
	StatusUnderTreatment: true,
	StatusStable:         true,
	StatusCritical:       true,
	StatusDischarged:     true,
	StatusAdmittedIPD:    true,
	StatusTransferred:    true,
	StatusExpired:        true,
	StatusLWBS:           true,
}

var terminalStatuses = map[string]bool{
	StatusDischarged:  true,
	StatusAdmittedIPD: true,
	StatusTransferred: true,
	StatusExpired:     true,
	StatusLWBS:        true,
}

var validTriageLevels = map[string]bool{
	TriageImmediate:  true,
	TriageUrgent:     true,
	TriageLessUrgent: true,
	TriageNonUrgent:  true,
}

var validArrivalModes = map[string]bool{
	ArrivalAmbulance: true,
	ArrivalWalkIn:    true,
	ArrivalPolice:    true,
	ArrivalReferred:  true,
	ArrivalOther:     true,
}

var validDispositions = map[string]bool{
	DispositionDischarged:  true,
	DispositionAdmitted:    true,
	DispositionTransferred: true,
	DispositionExpired:     true,
	DispositionLWBS:        true,
}

func ValidStatus(s string) bool      { return validStatuses[s] }
func IsTerminal(s string) bool       { return terminalStatuses[s] }
func ValidTriageLevel(l string) bool { return validTriageLevels[l] }
func ValidArrivalMode(m string) bool { return validArrivalModes[m] }
func ValidDisposition(d string) bool { return validDispositions[d] }

// dispositionStatusFor maps a disposition type to the case status it closes
// the case with.
func dispositionStatusFor(dispositionType string) string {
	switch dispositionType {
	case DispositionAdmitted:
		return StatusAdmittedIPD
	case DispositionTransferred:
		return StatusTransferred
	case DispositionExpired:
		return StatusExpired
	case DispositionLWBS:
		return StatusLWBS
	default:
		return StatusDischarged
	}
}

// Case maps to the emergency_case table. PatientID is nil for unidentified
// arrivals; the unknown_* and bystander_* columns carry what is known.
type Case struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	CaseNumber        string     `db:"case_number" json:"case_number"`
	PatientID         *uuid.UUID `db:"patient_id" json:"patient_id,omitempty"`
	UnknownName       *string    `db:"unknown_name" json:"unknown_name,omitempty"`
	UnknownAge        *int       `db:"unknown_age" json:"unknown_age,omitempty"`
	UnknownGender     *string    `db:"unknown_gender" json:"unknown_gender,omitempty"`
	BystanderName     *string    `db:"bystander_name" json:"bystander_name,omitempty"`
	BystanderPhone    *string    `db:"bystander_phone" json:"bystander_phone,omitempty"`
	BystanderRelation *string    `db:"bystander_relation" json:"bystander_relation,omitempty"`
	ArrivalMode       string     `db:"arrival_mode" json:"arrival_mode"`
	ArrivedAt         time.Time  `db:"arrived_at" json:"arrived_at"`
	TriageLevel       *string    `db:"triage_level" json:"triage_level,omitempty"`
	ChiefComplaint    *string    `db:"chief_complaint" json:"chief_complaint,omitempty"`
	InjuryMechanism   *string    `db:"injury_mechanism" json:"injury_mechanism,omitempty"`
	TriagedBy         *uuid.UUID `db:"triaged_by" json:"triaged_by,omitempty"`
	TriagedAt         *time.Time `db:"triaged_at" json:"triaged_at,omitempty"`
	AttendingDoctorID *uuid.UUID `db:"attending_doctor_id" json:"attending_doctor_id,omitempty"`
	BedID             *uuid.UUID `db:"bed_id" json:"bed_id,omitempty"`
	Status            string     `db:"status" json:"status"`
	DispositionType   *string    `db:"disposition_type" json:"disposition_type,omitempty"`
	DispositionNotes  *string    `db:"disposition_notes" json:"disposition_notes,omitempty"`
	AdmissionID       *uuid.UUID `db:"admission_id" json:"admission_id,omitempty"`
	DischargedAt      *time.Time `db:"discharged_at" json:"discharged_at,omitempty"`
	IsMLC             bool       `db:"is_mlc" json:"is_mlc"`
	MLCPoliceStation  *string    `db:"mlc_police_station" json:"mlc_police_station,omitempty"`
	MLCReportNumber   *string    `db:"mlc_report_number" json:"mlc_report_number,omitempty"`
	MLCOfficerName    *string    `db:"mlc_officer_name" json:"mlc_officer_name,omitempty"`
	MLCReportedAt     *time.Time `db:"mlc_reported_at" json:"mlc_reported_at,omitempty"`
	RegisteredBy      *uuid.UUID `db:"registered_by" json:"registered_by,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// Vital is one append-only vitals reading on a case.
type Vital struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	CaseID           uuid.UUID  `db:"case_id" json:"case_id"`
	BloodPressure    *string    `db:"blood_pressure" json:"blood_pressure,omitempty"`
	HeartRate        *int       `db:"heart_rate" json:"heart_rate,omitempty"`
	Temperature      *float64   `db:"temperature" json:"temperature,omitempty"`
	RespiratoryRate  *int       `db:"respiratory_rate" json:"respiratory_rate,omitempty"`
	OxygenSaturation *int       `db:"oxygen_saturation" json:"oxygen_saturation,omitempty"`
	GlasgowComaScore *int       `db:"glasgow_coma_score" json:"glasgow_coma_score,omitempty"`
	PainScore        *int       `db:"pain_score" json:"pain_score,omitempty"`
	RecordedBy       *uuid.UUID `db:"recorded_by" json:"recorded_by,omitempty"`
	RecordedAt       time.Time  `db:"recorded_at" json:"recorded_at"`
}

// TreatmentNote is one append-only treatment entry on a case.
type TreatmentNote struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	CaseID    uuid.UUID  `db:"case_id" json:"case_id"`
	Note      string     `db:"note" json:"note"`
	WrittenBy *uuid.UUID `db:"written_by" json:"written_by,omitempty"`
	WrittenAt time.Time  `db:"written_at" json:"written_at"`
}

// Stats is the live department snapshot.
type Stats struct {
	ActiveCases int            `json:"active_cases"`
	TodayTotal  int            `json:"today_total"`
	ByTriage    map[string]int `json:"by_triage"`
}

// Filter narrows case listings.
type Filter struct {
	Status      string
	TriageLevel string
	PatientID   *uuid.UUID
	ArrivedOn   *time.Time
	MLCOnly     bool
}
