package lab

import (
	"time"

	"github.com/google/uuid"
)

const (
	OrderPending    = "pending"
	OrderInProgress = "in-progress"
	OrderCompleted  = "completed"
	OrderCancelled  = "cancelled"
)

const (
	TestPending         = "pending"
	TestSampleCollected = "sample-collected"
	TestProcessing      = "processing"
	TestCompleted       = "completed"
	TestCancelled       = "cancelled"
)

const (
	PriorityRoutine = "routine"
	PriorityUrgent  = "urgent"
	PriorityStat    = "stat"
)

const (
	SourceOPD       = "opd"
	SourceIPD       = "ipd"
	SourceEmergency = "emergency"
	SourceDirect    = "direct"
)

const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
	PaymentWaived  = "waived"
)

var validCategories = map[string]bool{
	"hematology": true, "biochemistry": true, "microbiology": true,
	"pathology": true, "radiology": true, "serology": true,
	"urine": true, "other": true,
}

var validSampleTypes = map[string]bool{
	"blood": true, "urine": true, "stool": true, "sputum": true,
	"swab": true, "csf": true, "tissue": true, "other": true,
}

var validPriorities = map[string]bool{
	PriorityRoutine: true, PriorityUrgent: true, PriorityStat: true,
}

var validSources = map[string]bool{
	SourceOPD: true, SourceIPD: true, SourceEmergency: true, SourceDirect: true,
}

var validFlags = map[string]bool{
	"normal": true, "low": true, "high": true,
	"critical-low": true, "critical-high": true,
}

func ValidCategory(c string) bool   { return validCategories[c] }
func ValidSampleType(s string) bool { return validSampleTypes[s] }
func ValidPriority(p string) bool   { return validPriorities[p] }
func ValidSource(s string) bool     { return validSources[s] }
func ValidFlag(f string) bool       { return validFlags[f] }

// TestDef maps to the lab_test catalog table.
type TestDef struct {
	ID             uuid.UUID   `db:"id" json:"id"`
	Name           string      `db:"name" json:"name"`
	Code           *string     `db:"code" json:"code,omitempty"`
	Category       string      `db:"category" json:"category"`
	Department     *string     `db:"department" json:"department,omitempty"`
	Price          float64     `db:"price" json:"price"`
	TurnaroundTime *string     `db:"turnaround_time" json:"turnaround_time,omitempty"`
	SampleType     *string     `db:"sample_type" json:"sample_type,omitempty"`
	SampleVolume   *string     `db:"sample_volume" json:"sample_volume,omitempty"`
	Instructions   *string     `db:"instructions" json:"instructions,omitempty"`
	Parameters     []Parameter `db:"-" json:"parameters,omitempty"`
	IsActive       bool        `db:"is_active" json:"is_active"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at" json:"updated_at"`
}

// Parameter is one measurable value on a catalog test, with reference ranges
// per cohort.
type Parameter struct {
	ID        uuid.UUID `db:"id" json:"id"`
	TestID    uuid.UUID `db:"test_id" json:"test_id"`
	Name      string    `db:"name" json:"name"`
	Unit      *string   `db:"unit" json:"unit,omitempty"`
	MaleMin   *float64  `db:"male_min" json:"male_min,omitempty"`
	MaleMax   *float64  `db:"male_max" json:"male_max,omitempty"`
	FemaleMin *float64  `db:"female_min" json:"female_min,omitempty"`
	FemaleMax *float64  `db:"female_max" json:"female_max,omitempty"`
	ChildMin  *float64  `db:"child_min" json:"child_min,omitempty"`
	ChildMax  *float64  `db:"child_max" json:"child_max,omitempty"`
	Method    *string   `db:"method" json:"method,omitempty"`
}

// Order maps to the lab_order table.
type Order struct {
	ID                uuid.UUID    `db:"id" json:"id"`
	OrderNumber       string       `db:"order_number" json:"order_number"`
	PatientID         uuid.UUID    `db:"patient_id" json:"patient_id"`
	OrderedBy         uuid.UUID    `db:"ordered_by" json:"ordered_by"`
	SourceType        string       `db:"source_type" json:"source_type"`
	SourceRef         *uuid.UUID   `db:"source_ref" json:"source_ref,omitempty"`
	Tests             []*OrderTest `db:"-" json:"tests,omitempty"`
	SampleCollected   bool         `db:"sample_collected" json:"sample_collected"`
	SampleCollectedAt *time.Time   `db:"sample_collected_at" json:"sample_collected_at,omitempty"`
	SampleCollectedBy *uuid.UUID   `db:"sample_collected_by" json:"sample_collected_by,omitempty"`
	SampleBarcode     *string      `db:"sample_barcode" json:"sample_barcode,omitempty"`
	TotalAmount       float64      `db:"total_amount" json:"total_amount"`
	PaymentStatus     string       `db:"payment_status" json:"payment_status"`
	Status            string       `db:"status" json:"status"`
	ReportReadyAt     *time.Time   `db:"report_ready_at" json:"report_ready_at,omitempty"`
	Notes             *string      `db:"notes" json:"notes,omitempty"`
	RegisteredBy      *uuid.UUID   `db:"registered_by" json:"registered_by,omitempty"`
	CreatedAt         time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time    `db:"updated_at" json:"updated_at"`
}

// OrderTest maps to the lab_order_test table, one ordered test with its
// per-parameter results.
type OrderTest struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	OrderID     uuid.UUID  `db:"order_id" json:"order_id"`
	TestID      uuid.UUID  `db:"test_id" json:"test_id"`
	TestName    string     `db:"test_name" json:"test_name"`
	Status      string     `db:"status" json:"status"`
	Priority    string     `db:"priority" json:"priority"`
	Results     []Result   `db:"-" json:"results,omitempty"`
	ReportNotes *string    `db:"report_notes" json:"report_notes,omitempty"`
	ResultFile  *string    `db:"result_file" json:"result_file,omitempty"`
	ProcessedBy *uuid.UUID `db:"processed_by" json:"processed_by,omitempty"`
	ProcessedAt *time.Time `db:"processed_at" json:"processed_at,omitempty"`
	VerifiedBy  *uuid.UUID `db:"verified_by" json:"verified_by,omitempty"`
	VerifiedAt  *time.Time `db:"verified_at" json:"verified_at,omitempty"`
}

// Result maps to the lab_result table, one measured parameter value.
type Result struct {
	ID             uuid.UUID `db:"id" json:"id"`
	OrderTestID    uuid.UUID `db:"order_test_id" json:"order_test_id"`
	Parameter      string    `db:"parameter" json:"parameter"`
	Value          string    `db:"value" json:"value"`
	Unit           *string   `db:"unit" json:"unit,omitempty"`
	ReferenceRange *string   `db:"reference_range" json:"reference_range,omitempty"`
	Flag           *string   `db:"flag" json:"flag,omitempty"`
}

// TestFilter narrows catalog listings.
type TestFilter struct {
	Category   string
	Search     string
	ActiveOnly bool
}

// OrderFilter narrows order listings.
type OrderFilter struct {
	Status    string
	PatientID *uuid.UUID
	OrderedOn *time.Time
}
