package pharmacy

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists the medicine catalog, batch stock and movement log.
//
// AdjustQuantityGuarded applies a signed delta in a single conditional write
// and reports false when the decrement would take the on-hand total below
// zero, so concurrent dispenses cannot oversell.
type Repository interface {
	Create(ctx context.Context, m *Medicine) error
	GetByID(ctx context.Context, id uuid.UUID) (*Medicine, error)
	Update(ctx context.Context, m *Medicine) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) (bool, error)
	List(ctx context.Context, f Filter, limit, offset int) ([]*Medicine, int, error)

	AdjustQuantityGuarded(ctx context.Context, id uuid.UUID, delta int) (bool, error)
	SetQuantity(ctx context.Context, id uuid.UUID, quantity int) error

	AddBatch(ctx context.Context, b *Batch) error
	ListBatches(ctx context.Context, medicineID uuid.UUID) ([]*Batch, error)

	AddMovement(ctx context.Context, mv *Movement) error
	ListMovements(ctx context.Context, medicineID uuid.UUID, limit, offset int) ([]*Movement, int, error)

	LowStock(ctx context.Context) ([]AlertItem, error)
	ExpiredBatches(ctx context.Context, now time.Time) ([]ExpiryItem, error)
	ExpiringBatches(ctx context.Context, now time.Time, within time.Duration) ([]ExpiryItem, error)
}

// SupplierRepository persists suppliers.
type SupplierRepository interface {
	Create(ctx context.Context, s *Supplier) error
	GetByID(ctx context.Context, id uuid.UUID) (*Supplier, error)
	Update(ctx context.Context, s *Supplier) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) (bool, error)
	List(ctx context.Context, activeOnly bool) ([]*Supplier, error)
}
