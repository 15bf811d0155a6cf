package lab

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TestRepository persists the test catalog.
type TestRepository interface {
	Create(ctx context.Context, t *TestDef) error
	GetByID(ctx context.Context, id uuid.UUID) (*TestDef, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*TestDef, error)
	Update(ctx context.Context, t *TestDef) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) (bool, error)
	List(ctx context.Context, f TestFilter) ([]*TestDef, error)
}

// OrderRepository persists lab orders. Reads return orders with their tests
// and results attached.
type OrderRepository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	GetByNumber(ctx context.Context, orderNumber string) (*Order, error)
	List(ctx context.Context, f OrderFilter, limit, offset int) ([]*Order, int, error)
	PendingQueue(ctx context.Context) ([]*Order, error)

	SetStatusGuarded(ctx context.Context, id uuid.UUID, from []string, to string) (bool, error)
	SetPaymentStatus(ctx context.Context, id uuid.UUID, status string) error
	MarkSampleCollected(ctx context.Context, id uuid.UUID, by *uuid.UUID, barcode *string, at time.Time) error
	SetReportReady(ctx context.Context, id uuid.UUID, at time.Time) error

	SetTestStatusAll(ctx context.Context, orderID uuid.UUID, from, to string) error
	UpdateTest(ctx context.Context, t *OrderTest) error
	ReplaceResults(ctx context.Context, orderTestID uuid.UUID, results []Result) error
}
