package billing

import (
	"time"

	"github.com/google/uuid"
)

// Bill statuses. Cancelled, refunded and written-off are terminal.
const (
	StatusDraft         = "draft"
	StatusGenerated     = "generated"
	StatusPartiallyPaid = "partially-paid"
	StatusPaid          = "paid"
	StatusOverdue       = "overdue"
	StatusCancelled     = "cancelled"
	StatusRefunded      = "refunded"
	StatusWrittenOff    = "written-off"
)

// Bill types.
const (
	TypeOPD       = "opd"
	TypeIPD       = "ipd"
	TypeEmergency = "emergency"
	TypePharmacy  = "pharmacy"
	TypeLab       = "lab"
)

// Line item categories.
const (
	CategoryConsultation = "consultation"
	CategoryBed          = "bed"
	CategoryNursing      = "nursing"
	CategorySurgery      = "surgery"
	CategoryProcedure    = "procedure"
	CategoryMedicine     = "medicine"
	CategoryLab          = "lab"
	CategoryRadiology    = "radiology"
	CategoryEquipment    = "equipment"
	CategoryOxygen       = "oxygen"
	CategoryBlood        = "blood"
	CategoryOther        = "other"
)

// Payment methods.
const (
	MethodCash       = "cash"
	MethodCard       = "card"
	MethodUPI        = "upi"
	MethodNetBanking = "netbanking"
	MethodCheque     = "cheque"
	MethodInsurance  = "insurance"
	MethodNEFT       = "neft"
	MethodOther      = "other"
)

var terminalStatuses = map[string]bool{
	StatusCancelled:  true,
	StatusRefunded:   true,
	StatusWrittenOff: true,
}

var validTypes = map[string]bool{
	TypeOPD:       true,
	TypeIPD:       true,
	TypeEmergency: true,
	TypePharmacy:  true,
	TypeLab:       true,
}

var validCategories = map[string]bool{
	CategoryConsultation: true,
	CategoryBed:          true,
	CategoryNursing:      true,
	CategorySurgery:      true,
	CategoryProcedure:    true,
	CategoryMedicine:     true,
	CategoryLab:          true,
	CategoryRadiology:    true,
	CategoryEquipment:    true,
	CategoryOxygen:       true,
	CategoryBlood:        true,
	CategoryOther:        true,
}

var validMethods = map[string]bool{
	MethodCash:       true,
	MethodCard:       true,
	MethodUPI:        true,
	MethodNetBanking: true,
	MethodCheque:     true,
	MethodInsurance:  true,
	MethodNEFT:       true,
	MethodOther:      true,
}

func IsTerminal(s string) bool    { return terminalStatuses[s] }
func ValidType(t string) bool     { return validTypes[t] }
func ValidCategory(c string) bool { return validCategories[c] }
func ValidMethod(m string) bool   { return validMethods[m] }

// Bill maps to the bill table. Version increments on every write; writers
// carry the version they read so concurrent updates cannot silently clobber
// each other.
type Bill struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	BillNumber     *string    `db:"bill_number" json:"bill_number,omitempty"`
	BillType       string     `db:"bill_type" json:"bill_type"`
	PatientID      uuid.UUID  `db:"patient_id" json:"patient_id"`
	AdmissionID    *uuid.UUID `db:"admission_id" json:"admission_id,omitempty"`
	Items          []LineItem `db:"-" json:"items"`
	SubTotal       float64    `db:"sub_total" json:"sub_total"`
	TotalDiscount  float64    `db:"total_discount" json:"total_discount"`
	TotalTax       float64    `db:"total_tax" json:"total_tax"`
	TotalAmount    float64    `db:"total_amount" json:"total_amount"`
	AdvanceDeposit float64    `db:"advance_deposit" json:"advance_deposit"`
	RoundOff       float64    `db:"round_off" json:"round_off"`
	NetAmount      float64    `db:"net_amount" json:"net_amount"`
	PaidAmount     float64    `db:"paid_amount" json:"paid_amount"`
	BalanceDue     float64    `db:"balance_due" json:"balance_due"`
	Status         string     `db:"status" json:"status"`
	Version        int64      `db:"version" json:"version"`
	Notes          *string    `db:"notes" json:"notes,omitempty"`
	CreatedBy      *uuid.UUID `db:"created_by" json:"created_by,omitempty"`
	GeneratedAt    *time.Time `db:"generated_at" json:"generated_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// LineItem maps to the bill_line_item table.
type LineItem struct {
	ID          uuid.UUID `db:"id" json:"id"`
	BillID      uuid.UUID `db:"bill_id" json:"bill_id"`
	Category    string    `db:"category" json:"category"`
	Description string    `db:"description" json:"description"`
	Quantity    float64   `db:"quantity" json:"quantity"`
	UnitPrice   float64   `db:"unit_price" json:"unit_price"`
	DiscountPct float64   `db:"discount_pct" json:"discount_pct"`
	TaxPct      float64   `db:"tax_pct" json:"tax_pct"`
	TaxAmount   float64   `db:"tax_amount" json:"tax_amount"`
	LineTotal   float64   `db:"line_total" json:"line_total"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Payment maps to the bill_payment table. Append only.
type Payment struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	BillID     uuid.UUID  `db:"bill_id" json:"bill_id"`
	Amount     float64    `db:"amount" json:"amount"`
	Method     string     `db:"method" json:"method"`
	Reference  *string    `db:"reference" json:"reference,omitempty"`
	Note       *string    `db:"note" json:"note,omitempty"`
	ReceivedBy *uuid.UUID `db:"received_by" json:"received_by,omitempty"`
	PaidAt     time.Time  `db:"paid_at" json:"paid_at"`
}

// Filter narrows bill listings.
type Filter struct {
	PatientID   *uuid.UUID
	AdmissionID *uuid.UUID
	BillType    string
	Status      string
}

// RevenueBucket is one grouped slice of the revenue projection.
type RevenueBucket struct {
	Key   string  `db:"key" json:"key"`
	Count int     `db:"count" json:"count"`
	Total float64 `db:"total" json:"total"`
	Paid  float64 `db:"paid" json:"paid"`
}

// StatusBucket counts bills per status over the whole ledger.
type StatusBucket struct {
	Key   string  `db:"key" json:"key"`
	Count int     `db:"count" json:"count"`
	Total float64 `db:"total" json:"total"`
}

// RevenueStats is a read-only projection. TotalRevenue and ByType are
// scoped to bills created since the period cutoff; OutstandingBalance and
// ByStatus cover the whole ledger.
type RevenueStats struct {
	Period             string          `json:"period"`
	Since              time.Time       `json:"since"`
	TotalRevenue       float64         `json:"total_revenue"`
	OutstandingBalance float64         `json:"outstanding_balance"`
	ByType             []RevenueBucket `json:"by_type"`
	ByStatus           []StatusBucket  `json:"by_status"`
}

// OutstandingSummary aggregates unpaid balances for one patient.
type OutstandingSummary struct {
	PatientID  uuid.UUID `db:"patient_id" json:"patient_id"`
	BillCount  int       `db:"bill_count" json:"bill_count"`
	NetTotal   float64   `db:"net_total" json:"net_total"`
	PaidTotal  float64   `db:"paid_total" json:"paid_total"`
	BalanceDue float64   `db:"balance_due" json:"balance_due"`
}
