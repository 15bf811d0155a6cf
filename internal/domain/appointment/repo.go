package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists appointments.
//
// CreateIfSlotFree inserts the appointment only when no live booking holds
// the same doctor, date and slot start, and reports false when the slot was
// taken. Cancelled, no-show and rescheduled bookings do not hold slots.
type Repository interface {
	CreateIfSlotFree(ctx context.Context, a *Appointment) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetByNumber(ctx context.Context, number string) (*Appointment, error)
	List(ctx context.Context, f Filter, limit, offset int) ([]*Appointment, int, error)
	Today(ctx context.Context) ([]*Appointment, error)
	BookedSlotStarts(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]string, error)

	SetStatusGuarded(ctx context.Context, id uuid.UUID, from, to string) (bool, error)
	Cancel(ctx context.Context, id uuid.UUID, by, reason string) (bool, error)
	MarkRescheduled(ctx context.Context, id uuid.UUID) (bool, error)
	SetPaymentStatus(ctx context.Context, id uuid.UUID, status string) error
	LinkOPDVisit(ctx context.Context, id, visitID uuid.UUID) error
}
