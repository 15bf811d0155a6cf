package bed

import (
	"time"

	"github.com/google/uuid"
)

// Bed statuses. A bed cycles available -> occupied -> cleaning -> available;
// reserved and maintenance are side branches off available.
const (
	StatusAvailable   = "available"
	StatusOccupied    = "occupied"
	StatusReserved    = "reserved"
	StatusMaintenance = "maintenance"
	StatusCleaning    = "cleaning"
)

// Bed types.
const (
	TypeGeneral     = "general"
	TypePrivate     = "private"
	TypeSemiPrivate = "semi-private"
	TypeICU         = "icu"
	TypeNICU        = "nicu"
	TypePICU        = "picu"
	TypeHDU         = "hdu"
	TypeEmergency   = "emergency"
	TypeMaternity   = "maternity"
	TypeIsolation   = "isolation"
)

// Occupancy events recorded in the bed history log.
const (
	EventAssigned         = "assigned"
	EventReleased         = "released"
	EventReserved         = "reserved"
	EventReservationFreed = "reservation-freed"
	EventMaintenanceSet   = "maintenance-set"
	EventCleaningDone     = "cleaning-done"
)

var validStatuses = map[string]bool{
	StatusAvailable:   true,
	StatusOccupied:    true,
	StatusReserved:    true,
	StatusMaintenance: true,
	StatusCleaning:    true,
}

var validTypes = map[string]bool{
	TypeGeneral:     true,
	TypePrivate:     true,
	TypeSemiPrivate: true,
	TypeICU:         true,
	TypeNICU:        true,
	TypePICU:        true,
	TypeHDU:         true,
	TypeEmergency:   true,
	TypeMaternity:   true,
	TypeIsolation:   true,
}

func ValidStatus(s string) bool { return validStatuses[s] }
func ValidType(t string) bool   { return validTypes[t] }

// Bed maps to the bed table.
type Bed struct {
	ID                 uuid.UUID  `db:"id" json:"id"`
	BedNumber          string     `db:"bed_number" json:"bed_number"`
	Ward               string     `db:"ward" json:"ward"`
	Floor              *int       `db:"floor" json:"floor,omitempty"`
	RoomNumber         *string    `db:"room_number" json:"room_number,omitempty"`
	Type               string     `db:"bed_type" json:"bed_type"`
	Status             string     `db:"status" json:"status"`
	ChargesPerDay      float64    `db:"charges_per_day" json:"charges_per_day"`
	Features           []string   `db:"features" json:"features,omitempty"`
	CurrentPatientID   *uuid.UUID `db:"current_patient_id" json:"current_patient_id,omitempty"`
	CurrentAdmissionID *uuid.UUID `db:"current_admission_id" json:"current_admission_id,omitempty"`
	OccupiedSince      *time.Time `db:"occupied_since" json:"occupied_since,omitempty"`
	ReservedForID      *uuid.UUID `db:"reserved_for_id" json:"reserved_for_id,omitempty"`
	LastCleanedAt      *time.Time `db:"last_cleaned_at" json:"last_cleaned_at,omitempty"`
	Notes              *string    `db:"notes" json:"notes,omitempty"`
	IsActive           bool       `db:"is_active" json:"is_active"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// OccupancyRecord maps to the bed_occupancy_history table. Append only. A
// released event carries the occupant it freed and OccupiedSince, so the
// stay is reconstructable from the single row.
type OccupancyRecord struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	BedID         uuid.UUID  `db:"bed_id" json:"bed_id"`
	PatientID     *uuid.UUID `db:"patient_id" json:"patient_id,omitempty"`
	AdmissionID   *uuid.UUID `db:"admission_id" json:"admission_id,omitempty"`
	Event         string     `db:"event" json:"event"`
	OccupiedSince *time.Time `db:"occupied_since" json:"occupied_since,omitempty"`
	OccurredAt    time.Time  `db:"occurred_at" json:"occurred_at"`
	Note          *string    `db:"note" json:"note,omitempty"`
}

// ReleasedOccupant reports who held a bed at the moment it was released.
type ReleasedOccupant struct {
	PatientID     *uuid.UUID
	AdmissionID   *uuid.UUID
	OccupiedSince *time.Time
}

// WardOccupancy is an aggregate row of bed counts for one ward.
type WardOccupancy struct {
	Ward        string `db:"ward" json:"ward"`
	Total       int    `db:"total" json:"total"`
	Available   int    `db:"available" json:"available"`
	Occupied    int    `db:"occupied" json:"occupied"`
	Reserved    int    `db:"reserved" json:"reserved"`
	Maintenance int    `db:"maintenance" json:"maintenance"`
	Cleaning    int    `db:"cleaning" json:"cleaning"`
}

// OccupancyRate returns occupied beds over usable beds. Maintenance beds do
// not count toward capacity.
func (w WardOccupancy) OccupancyRate() float64 {
	usable := w.Total - w.Maintenance
	if usable <= 0 {
		return 0
	}
	return float64(w.Occupied) / float64(usable)
}

// Filter narrows bed listings.
type Filter struct {
	Ward       string
	Type       string
	Status     string
	ActiveOnly bool
}
