package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hms/hms/pkg/apperr"
)

// NumberSource allocates bill numbers.
type NumberSource interface {
	NextBillNumber(ctx context.Context, now time.Time) (string, error)
}

// TxRunner runs fn atomically. Repository calls inside fn share one
// transaction through the context.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service struct {
	repo    Repository
	numbers NumberSource
	tx      TxRunner
	log     zerolog.Logger
}

func NewService(repo Repository, numbers NumberSource, tx TxRunner, log zerolog.Logger) *Service {
	return &Service{repo: repo, numbers: numbers, tx: tx, log: log}
}

func validateLine(li *LineItem) error {
	if li.Category == "" {
		li.Category = CategoryOther
	}
	if !ValidCategory(li.Category) {
		return apperr.Validationf("invalid item category %q", li.Category)
	}
	if li.Description == "" {
		return apperr.Validationf("item description is required")
	}
	if li.Quantity <= 0 {
		return apperr.Validationf("item quantity must be positive")
	}
	if li.UnitPrice < 0 {
		return apperr.Validationf("item unit_price must not be negative")
	}
	if li.DiscountPct < 0 || li.DiscountPct > 100 {
		return apperr.Validationf("item discount_pct must be between 0 and 100")
	}
	if li.TaxPct < 0 {
		return apperr.Validationf("item tax_pct must not be negative")
	}
	return nil
}

// CreateBill opens a draft bill. Totals are derived immediately so a draft
// always carries reconciled figures.
func (s *Service) CreateBill(ctx context.Context, b *Bill) error {
	if b.PatientID == uuid.Nil {
		return apperr.Validationf("patient_id is required")
	}
	if b.BillType == "" {
		b.BillType = TypeOPD
	}
	if !ValidType(b.BillType) {
		return apperr.Validationf("invalid bill_type %q", b.BillType)
	}
	if b.AdvanceDeposit < 0 {
		return apperr.Validationf("advance_deposit must not be negative")
	}
	for i := range b.Items {
		if err := validateLine(&b.Items[i]); err != nil {
			return err
		}
	}
	b.Status = StatusDraft
	b.PaidAmount = 0
	RecomputeTotals(b)
	return s.repo.Create(ctx, b)
}

func (s *Service) GetBill(ctx context.Context, id uuid.UUID) (*Bill, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetBillByNumber(ctx context.Context, number string) (*Bill, error) {
	return s.repo.GetByNumber(ctx, number)
}

func (s *Service) ListBills(ctx context.Context, f Filter, limit, offset int) ([]*Bill, int, error) {
	return s.repo.List(ctx, f, limit, offset)
}

// AddLineItem appends a charge and rebuilds totals under the version guard.
func (s *Service) AddLineItem(ctx context.Context, billID uuid.UUID, li *LineItem) (*Bill, error) {
	if err := validateLine(li); err != nil {
		return nil, err
	}
	b, err := s.repo.GetByID(ctx, billID)
	if err != nil {
		return nil, err
	}
	if IsTerminal(b.Status) || b.Status == StatusPaid {
		return nil, apperr.InvalidStatef("bill in %s state cannot take new charges", b.Status)
	}

	li.BillID = billID
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.repo.AddLineItem(ctx, li); err != nil {
			return err
		}
		b.Items = append(b.Items, *li)
		RecomputeTotals(b)
		return s.guardedUpdate(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// RemoveLineItem drops a charge from a draft and rebuilds totals.
func (s *Service) RemoveLineItem(ctx context.Context, billID, itemID uuid.UUID) (*Bill, error) {
	b, err := s.repo.GetByID(ctx, billID)
	if err != nil {
		return nil, err
	}
	if b.Status != StatusDraft {
		return nil, apperr.InvalidStatef("only draft bills can drop charges")
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		ok, err := s.repo.DeleteLineItem(ctx, billID, itemID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFoundf("line item not found")
		}
		for i := range b.Items {
			if b.Items[i].ID == itemID {
				b.Items = append(b.Items[:i], b.Items[i+1:]...)
				break
			}
		}
		RecomputeTotals(b)
		return s.guardedUpdate(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Generate issues a draft: it gets a bill number and becomes payable.
func (s *Service) Generate(ctx context.Context, billID uuid.UUID) (*Bill, error) {
	b, err := s.repo.GetByID(ctx, billID)
	if err != nil {
		return nil, err
	}
	if b.Status != StatusDraft {
		return nil, apperr.InvalidStatef("bill is already generated")
	}
	if len(b.Items) == 0 {
		return nil, apperr.Validationf("bill has no charges")
	}

	now := time.Now().UTC()
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		number, err := s.numbers.NextBillNumber(ctx, now)
		if err != nil {
			return err
		}
		b.BillNumber = &number
		b.GeneratedAt = &now
		b.Status = StatusGenerated
		RecomputeTotals(b)
		return s.guardedUpdate(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// RecordPayment appends a payment and settles the derived figures under the
// version guard. Losing the guard means another payment landed first; the
// caller retries against the fresh bill.
func (s *Service) RecordPayment(ctx context.Context, billID uuid.UUID, p *Payment) (*Bill, error) {
	if p.Amount <= 0 {
		return nil, apperr.Validationf("payment amount must be positive")
	}
	if p.Method == "" {
		p.Method = MethodCash
	}
	if !ValidMethod(p.Method) {
		return nil, apperr.Validationf("invalid payment method %q", p.Method)
	}

	b, err := s.repo.GetByID(ctx, billID)
	if err != nil {
		return nil, err
	}
	switch b.Status {
	case StatusGenerated, StatusPartiallyPaid, StatusOverdue:
	case StatusDraft:
		return nil, apperr.InvalidStatef("bill must be generated before payment")
	case StatusPaid:
		return nil, apperr.InvalidStatef("bill is already settled")
	default:
		return nil, apperr.InvalidStatef("bill in %s state cannot take payments", b.Status)
	}
	if p.Amount > b.BalanceDue {
		return nil, apperr.Validationf("payment %.2f exceeds balance due %.2f", p.Amount, b.BalanceDue)
	}

	p.BillID = billID
	if p.PaidAt.IsZero() {
		p.PaidAt = time.Now().UTC()
	}
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.repo.AddPayment(ctx, p); err != nil {
			return err
		}
		b.PaidAmount += p.Amount
		RecomputeTotals(b)
		return s.guardedUpdate(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Cancel voids an unpaid bill. Settled bills go through Refund instead.
func (s *Service) Cancel(ctx context.Context, billID uuid.UUID, note *string) (*Bill, error) {
	return s.close(ctx, billID, StatusCancelled, note, func(b *Bill) error {
		if IsTerminal(b.Status) {
			return apperr.InvalidStatef("bill is already closed")
		}
		if b.PaidAmount > 0 {
			return apperr.InvalidStatef("bill with payments must be refunded, not cancelled")
		}
		return nil
	})
}

// Refund reverses a settled bill.
func (s *Service) Refund(ctx context.Context, billID uuid.UUID, note *string) (*Bill, error) {
	return s.close(ctx, billID, StatusRefunded, note, func(b *Bill) error {
		if b.Status != StatusPaid && b.Status != StatusPartiallyPaid {
			return apperr.InvalidStatef("only bills with payments can be refunded")
		}
		return nil
	})
}

// WriteOff forgives an uncollectable balance.
func (s *Service) WriteOff(ctx context.Context, billID uuid.UUID, note *string) (*Bill, error) {
	return s.close(ctx, billID, StatusWrittenOff, note, func(b *Bill) error {
		switch b.Status {
		case StatusGenerated, StatusPartiallyPaid, StatusOverdue:
			return nil
		}
		return apperr.InvalidStatef("bill in %s state cannot be written off", b.Status)
	})
}

// MarkOverdue flags a generated bill past its payment window.
func (s *Service) MarkOverdue(ctx context.Context, billID uuid.UUID) (*Bill, error) {
	return s.close(ctx, billID, StatusOverdue, nil, func(b *Bill) error {
		if b.Status != StatusGenerated && b.Status != StatusPartiallyPaid {
			return apperr.InvalidStatef("bill in %s state cannot become overdue", b.Status)
		}
		return nil
	})
}

func (s *Service) close(ctx context.Context, billID uuid.UUID, status string, note *string, check func(*Bill) error) (*Bill, error) {
	b, err := s.repo.GetByID(ctx, billID)
	if err != nil {
		return nil, err
	}
	if err := check(b); err != nil {
		return nil, err
	}
	b.Status = status
	if note != nil {
		b.Notes = note
	}
	if err := s.guardedUpdate(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Service) Payments(ctx context.Context, billID uuid.UUID) ([]*Payment, error) {
	return s.repo.ListPayments(ctx, billID)
}

func (s *Service) Outstanding(ctx context.Context, patientID uuid.UUID) (*OutstandingSummary, error) {
	return s.repo.Outstanding(ctx, patientID)
}

// RevenueStats projects revenue since the start of the given period. An
// empty period defaults to month.
func (s *Service) RevenueStats(ctx context.Context, period string) (*RevenueStats, error) {
	now := time.Now().UTC()
	var since time.Time
	switch period {
	case "today":
		since = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	case "week":
		since = now.AddDate(0, 0, -7)
	case "", "month":
		period = "month"
		since = now.AddDate(0, -1, 0)
	case "year":
		since = now.AddDate(-1, 0, 0)
	default:
		return nil, apperr.Validationf("period must be one of today, week, month, year")
	}
	st, err := s.repo.RevenueStats(ctx, since)
	if err != nil {
		return nil, err
	}
	st.Period = period
	st.Since = since
	return st, nil
}

func (s *Service) guardedUpdate(ctx context.Context, b *Bill) error {
	ok, err := s.repo.UpdateGuarded(ctx, b)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Conflictf("bill was modified concurrently, retry with the fresh version")
	}
	return nil
}
