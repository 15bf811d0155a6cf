package appointment

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusScheduled      = "scheduled"
	StatusConfirmed      = "confirmed"
	StatusCheckedIn      = "checked-in"
	StatusInConsultation = "in-consultation"
	StatusCompleted      = "completed"
	StatusCancelled      = "cancelled"
	StatusNoShow         = "no-show"
	StatusRescheduled    = "rescheduled"
)

const (
	TypeOPD              = "opd"
	TypeFollowUp         = "follow-up"
	TypeProcedure        = "procedure"
	TypeTeleconsultation = "teleconsultation"
)

const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
	PaymentWaived  = "waived"
)

var validStatuses = map[string]bool{
	StatusScheduled: true, StatusConfirmed: true, StatusCheckedIn: true,
	StatusInConsultation: true, StatusCompleted: true, StatusCancelled: true,
	StatusNoShow: true, StatusRescheduled: true,
}

var terminalStatuses = map[string]bool{
	StatusCompleted: true, StatusCancelled: true,
	StatusNoShow: true, StatusRescheduled: true,
}

var allowedTransitions = map[string]map[string]bool{
	StatusScheduled: {
		StatusConfirmed: true,
		StatusCheckedIn: true,
		StatusNoShow:    true,
	},
	StatusConfirmed: {
		StatusCheckedIn: true,
		StatusNoShow:    true,
	},
	StatusCheckedIn: {
		StatusInConsultation: true,
	},
	StatusInConsultation: {
		StatusCompleted: true,
	},
}

var validTypes = map[string]bool{
	TypeOPD: true, TypeFollowUp: true, TypeProcedure: true, TypeTeleconsultation: true,
}

func ValidStatus(s string) bool { return validStatuses[s] }
func IsTerminal(s string) bool  { return terminalStatuses[s] }
func ValidType(t string) bool   { return validTypes[t] }

// CanTransition reports whether an appointment may move between two
// statuses. Cancellation and rescheduling have their own operations and are
// not part of this flow.
func CanTransition(from, to string) bool {
	return allowedTransitions[from][to]
}

// Appointment maps to the appointment table. A doctor holds one live
// appointment per date and slot start; cancelled and no-show bookings free
// the slot.
type Appointment struct {
	ID                 uuid.UUID  `db:"id" json:"id"`
	AppointmentNumber  string     `db:"appointment_number" json:"appointment_number"`
	PatientID          uuid.UUID  `db:"patient_id" json:"patient_id"`
	DoctorID           uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	AppointmentDate    time.Time  `db:"appointment_date" json:"appointment_date"`
	SlotStart          string     `db:"slot_start" json:"slot_start"`
	SlotEnd            string     `db:"slot_end" json:"slot_end"`
	Type               string     `db:"appointment_type" json:"type"`
	Status             string     `db:"status" json:"status"`
	Reason             *string    `db:"reason" json:"reason,omitempty"`
	Symptoms           []string   `db:"symptoms" json:"symptoms,omitempty"`
	Notes              *string    `db:"notes" json:"notes,omitempty"`
	Fee                float64    `db:"fee" json:"fee"`
	PaymentStatus      string     `db:"payment_status" json:"payment_status"`
	OPDVisitID         *uuid.UUID `db:"opd_visit_id" json:"opd_visit_id,omitempty"`
	CancelledBy        *string    `db:"cancelled_by" json:"cancelled_by,omitempty"`
	CancellationReason *string    `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	RescheduledFrom    *uuid.UUID `db:"rescheduled_from" json:"rescheduled_from,omitempty"`
	BookedBy           *uuid.UUID `db:"booked_by" json:"booked_by,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// Slot is one bookable window on a doctor's day.
type Slot struct {
	Start     string `json:"start"`
	End       string `json:"end"`
	Available bool   `json:"available"`
}

// Filter narrows appointment listings.
type Filter struct {
	Status    string
	Type      string
	DoctorID  *uuid.UUID
	PatientID *uuid.UUID
	OnDate    *time.Time
}
