package patient

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists patient records.
type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByNumber(ctx context.Context, patientNumber string) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) (bool, error)
	List(ctx context.Context, f Filter, limit, offset int) ([]*Patient, int, error)
	Search(ctx context.Context, q string, limit int) ([]*Patient, error)

	AddDocument(ctx context.Context, d *Document) error
	ListDocuments(ctx context.Context, patientID uuid.UUID) ([]*Document, error)
}
