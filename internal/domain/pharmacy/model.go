package pharmacy

import (
	"time"

	"github.com/google/uuid"
)

const (
	CategoryTablet      = "tablet"
	CategoryCapsule     = "capsule"
	CategorySyrup       = "syrup"
	CategoryInjection   = "injection"
	CategoryCream       = "cream"
	CategoryDrops       = "drops"
	CategoryInhaler     = "inhaler"
	CategoryPowder      = "powder"
	CategorySolution    = "solution"
	CategorySuppository = "suppository"
	CategoryPatch       = "patch"
	CategoryOther       = "other"
)

const (
	MovementPurchase   = "purchase"
	MovementDispensed  = "dispensed"
	MovementReturned   = "returned"
	MovementExpired    = "expired"
	MovementAdjustment = "adjustment"
	MovementTransfer   = "transfer"
)

var validCategories = map[string]bool{
	CategoryTablet: true, CategoryCapsule: true, CategorySyrup: true,
	CategoryInjection: true, CategoryCream: true, CategoryDrops: true,
	CategoryInhaler: true, CategoryPowder: true, CategorySolution: true,
	CategorySuppository: true, CategoryPatch: true, CategoryOther: true,
}

var validMovements = map[string]bool{
	MovementPurchase: true, MovementDispensed: true, MovementReturned: true,
	MovementExpired: true, MovementAdjustment: true, MovementTransfer: true,
}

func ValidCategory(c string) bool { return validCategories[c] }
func ValidMovement(m string) bool { return validMovements[m] }

// Medicine maps to the medicine table. StockQuantity is the authoritative
// on-hand total; batches break it down for expiry tracking.
type Medicine struct {
	ID                   uuid.UUID  `db:"id" json:"id"`
	Name                 string     `db:"name" json:"name"`
	GenericName          *string    `db:"generic_name" json:"generic_name,omitempty"`
	Brand                *string    `db:"brand" json:"brand,omitempty"`
	Category             string     `db:"category" json:"category"`
	Composition          *string    `db:"composition" json:"composition,omitempty"`
	Strength             *string    `db:"strength" json:"strength,omitempty"`
	Unit                 string     `db:"unit" json:"unit"`
	Manufacturer         *string    `db:"manufacturer" json:"manufacturer,omitempty"`
	SupplierID           *uuid.UUID `db:"supplier_id" json:"supplier_id,omitempty"`
	StockQuantity        int        `db:"stock_quantity" json:"stock_quantity"`
	MinThreshold         int        `db:"min_threshold" json:"min_threshold"`
	MaxThreshold         *int       `db:"max_threshold" json:"max_threshold,omitempty"`
	StorageLocation      *string    `db:"storage_location" json:"storage_location,omitempty"`
	PurchasePrice        float64    `db:"purchase_price" json:"purchase_price"`
	SellingPrice         float64    `db:"selling_price" json:"selling_price"`
	GSTPercent           float64    `db:"gst_percent" json:"gst_percent"`
	RequiresPrescription bool       `db:"requires_prescription" json:"requires_prescription"`
	IsScheduledDrug      bool       `db:"is_scheduled_drug" json:"is_scheduled_drug"`
	ScheduleType         *string    `db:"schedule_type" json:"schedule_type,omitempty"`
	Barcode              *string    `db:"barcode" json:"barcode,omitempty"`
	HSNCode              *string    `db:"hsn_code" json:"hsn_code,omitempty"`
	IsActive             bool       `db:"is_active" json:"is_active"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
}

// LowStock reports whether the on-hand total is at or below the reorder
// threshold.
func (m *Medicine) LowStock() bool { return m.StockQuantity <= m.MinThreshold }

// Batch maps to the medicine_batch table.
type Batch struct {
	ID            uuid.UUID `db:"id" json:"id"`
	MedicineID    uuid.UUID `db:"medicine_id" json:"medicine_id"`
	BatchNumber   string    `db:"batch_number" json:"batch_number"`
	Quantity      int       `db:"quantity" json:"quantity"`
	ExpiryDate    time.Time `db:"expiry_date" json:"expiry_date"`
	MRP           *float64  `db:"mrp" json:"mrp,omitempty"`
	PurchasePrice *float64  `db:"purchase_price" json:"purchase_price,omitempty"`
	ReceivedAt    time.Time `db:"received_at" json:"received_at"`
}

// Movement maps to the stock_movement table, the append-only audit trail of
// every quantity change.
type Movement struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	MedicineID    uuid.UUID  `db:"medicine_id" json:"medicine_id"`
	Type          string     `db:"movement_type" json:"type"`
	Quantity      int        `db:"quantity" json:"quantity"`
	BatchNumber   *string    `db:"batch_number" json:"batch_number,omitempty"`
	ReferenceID   *string    `db:"reference_id" json:"reference_id,omitempty"`
	ReferenceType *string    `db:"reference_type" json:"reference_type,omitempty"`
	PerformedBy   *uuid.UUID `db:"performed_by" json:"performed_by,omitempty"`
	Notes         *string    `db:"notes" json:"notes,omitempty"`
	OccurredAt    time.Time  `db:"occurred_at" json:"occurred_at"`
}

// Supplier maps to the supplier table.
type Supplier struct {
	ID            uuid.UUID `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	ContactPerson *string   `db:"contact_person" json:"contact_person,omitempty"`
	Phone         string    `db:"phone" json:"phone"`
	Email         *string   `db:"email" json:"email,omitempty"`
	Address       *string   `db:"address" json:"address,omitempty"`
	GSTNumber     *string   `db:"gst_number" json:"gst_number,omitempty"`
	IsActive      bool      `db:"is_active" json:"is_active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// AlertItem is one medicine flagged by the stock alert report.
type AlertItem struct {
	MedicineID    uuid.UUID `json:"medicine_id"`
	Name          string    `json:"name"`
	StockQuantity int       `json:"stock_quantity"`
	MinThreshold  int       `json:"min_threshold,omitempty"`
}

// ExpiryItem is one batch flagged as expired or expiring soon.
type ExpiryItem struct {
	MedicineID  uuid.UUID `json:"medicine_id"`
	Name        string    `json:"name"`
	BatchNumber string    `json:"batch_number"`
	Quantity    int       `json:"quantity"`
	ExpiryDate  time.Time `json:"expiry_date"`
}

// Alerts is the stock alert report.
type Alerts struct {
	LowStock     []AlertItem  `json:"low_stock"`
	Expired      []ExpiryItem `json:"expired"`
	ExpiringSoon []ExpiryItem `json:"expiring_soon"`
}

// Filter narrows medicine listings.
type Filter struct {
	Category             string
	Search               string
	RequiresPrescription *bool
	LowStockOnly         bool
	ActiveOnly           bool
}
