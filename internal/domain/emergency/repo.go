package emergency

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists emergency cases and their append-only records.
//
// SetStatusIfOpen, SetBedIfOpen and CloseIfOpen are conditional writes
// guarded on the case not having reached a terminal status; they report
// false when the guard does not hold.
type Repository interface {
	Create(ctx context.Context, c *Case) error
	GetByID(ctx context.Context, id uuid.UUID) (*Case, error)
	GetByNumber(ctx context.Context, caseNumber string) (*Case, error)
	List(ctx context.Context, f Filter, limit, offset int) ([]*Case, int, error)

	Update(ctx context.Context, c *Case) error
	SetStatusIfOpen(ctx context.Context, id uuid.UUID, status string) (bool, error)
	SetBedIfOpen(ctx context.Context, id uuid.UUID, bedID *uuid.UUID) (bool, error)
	CloseIfOpen(ctx context.Context, c *Case) (bool, error)

	AddVital(ctx context.Context, v *Vital) error
	ListVitals(ctx context.Context, caseID uuid.UUID) ([]*Vital, error)
	AddTreatmentNote(ctx context.Context, n *TreatmentNote) error
	ListTreatmentNotes(ctx context.Context, caseID uuid.UUID) ([]*TreatmentNote, error)

	Stats(ctx context.Context, now time.Time) (*Stats, error)
}
