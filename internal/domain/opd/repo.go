package opd

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists outpatient visits.
//
// SetStatusGuarded moves a visit from one exact status to another in a
// single conditional write and reports false when the visit was no longer
// in the expected status.
type Repository interface {
	Create(ctx context.Context, v *Visit) error
	GetByID(ctx context.Context, id uuid.UUID) (*Visit, error)
	GetByNumber(ctx context.Context, visitNumber string) (*Visit, error)
	List(ctx context.Context, f Filter, limit, offset int) ([]*Visit, int, error)
	TodayQueue(ctx context.Context, doctorID *uuid.UUID) ([]*Visit, error)

	UpdateConsultation(ctx context.Context, v *Visit) error
	SetStatusGuarded(ctx context.Context, id uuid.UUID, from, to string) (bool, error)
	SetPaymentStatus(ctx context.Context, id uuid.UUID, status string) error

	UpsertVitals(ctx context.Context, v *VitalsSnapshot) error
	GetVitals(ctx context.Context, visitID uuid.UUID) (*VitalsSnapshot, error)

	SavePrescription(ctx context.Context, p *Prescription) error
	GetPrescription(ctx context.Context, visitID uuid.UUID) (*Prescription, error)
}
