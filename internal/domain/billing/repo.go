package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists bills with their line items and payments. Get methods
// return the bill fully hydrated. UpdateGuarded writes derived totals and
// status only when the stored version still matches b.Version; it bumps the
// version on success and returns false on a lost race.
type Repository interface {
	Create(ctx context.Context, b *Bill) error
	GetByID(ctx context.Context, id uuid.UUID) (*Bill, error)
	GetByNumber(ctx context.Context, billNumber string) (*Bill, error)
	List(ctx context.Context, f Filter, limit, offset int) ([]*Bill, int, error)
	UpdateGuarded(ctx context.Context, b *Bill) (bool, error)

	AddLineItem(ctx context.Context, li *LineItem) error
	DeleteLineItem(ctx context.Context, billID, itemID uuid.UUID) (bool, error)

	AddPayment(ctx context.Context, p *Payment) error
	ListPayments(ctx context.Context, billID uuid.UUID) ([]*Payment, error)

	Outstanding(ctx context.Context, patientID uuid.UUID) (*OutstandingSummary, error)
	RevenueStats(ctx context.Context, since time.Time) (*RevenueStats, error)
}
