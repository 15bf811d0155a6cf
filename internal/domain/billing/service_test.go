package billing

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/hms/hms/pkg/apperr"
)

// mockRepo stores bills in memory and enforces the version guard the same
// way the guarded UPDATE does.
type mockRepo struct {
	mu       sync.Mutex
	bills    map[uuid.UUID]*Bill
	payments []*Payment
}

func newMockRepo() *mockRepo {
	return &mockRepo{bills: make(map[uuid.UUID]*Bill)}
}

func cloneBill(b *Bill) *Bill {
	cp := *b
	cp.Items = append([]LineItem(nil), b.Items...)
	return &cp
}

func (m *mockRepo) Create(_ context.Context, b *Bill) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b.ID = uuid.New()
	b.Version = 1
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	for i := range b.Items {
		b.Items[i].ID = uuid.New()
		b.Items[i].BillID = b.ID
	}
	m.bills[b.ID] = cloneBill(b)
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Bill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bills[id]
	if !ok {
		return nil, apperr.NotFoundf("bill not found")
	}
	return cloneBill(b), nil
}

func (m *mockRepo) GetByNumber(_ context.Context, number string) (*Bill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bills {
		if b.BillNumber != nil && *b.BillNumber == number {
			return cloneBill(b), nil
		}
	}
	return nil, apperr.NotFoundf("bill not found")
}

func (m *mockRepo) List(_ context.Context, f Filter, limit, offset int) ([]*Bill, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []*Bill
	for _, b := range m.bills {
		if f.PatientID != nil && b.PatientID != *f.PatientID {
			continue
		}
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		items = append(items, cloneBill(b))
	}
	return items, len(items), nil
}

func (m *mockRepo) UpdateGuarded(_ context.Context, b *Bill) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.bills[b.ID]
	if !ok || stored.Version != b.Version {
		return false, nil
	}
	b.Version++
	m.bills[b.ID] = cloneBill(b)
	return true, nil
}

func (m *mockRepo) AddLineItem(_ context.Context, li *LineItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if li.ID == uuid.Nil {
		li.ID = uuid.New()
	}
	if b, ok := m.bills[li.BillID]; ok {
		b.Items = append(b.Items, *li)
	}
	return nil
}

func (m *mockRepo) DeleteLineItem(_ context.Context, billID, itemID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bills[billID]
	if !ok {
		return false, nil
	}
	for i := range b.Items {
		if b.Items[i].ID == itemID {
			b.Items = append(b.Items[:i], b.Items[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepo) AddPayment(_ context.Context, p *Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = uuid.New()
	m.payments = append(m.payments, p)
	return nil
}

func (m *mockRepo) ListPayments(_ context.Context, billID uuid.UUID) ([]*Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []*Payment
	for _, p := range m.payments {
		if p.BillID == billID {
			items = append(items, p)
		}
	}
	return items, nil
}

func (m *mockRepo) Outstanding(_ context.Context, patientID uuid.UUID) (*OutstandingSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &OutstandingSummary{PatientID: patientID}
	for _, b := range m.bills {
		if b.PatientID != patientID {
			continue
		}
		switch b.Status {
		case StatusGenerated, StatusPartiallyPaid, StatusOverdue:
			s.BillCount++
			s.NetTotal += b.NetAmount
			s.PaidTotal += b.PaidAmount
			s.BalanceDue += b.BalanceDue
		}
	}
	return s, nil
}

func (m *mockRepo) RevenueStats(_ context.Context, since time.Time) (*RevenueStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := &RevenueStats{}
	byType := make(map[string]*RevenueBucket)
	byStatus := make(map[string]*StatusBucket)
	for _, b := range m.bills {
		switch b.Status {
		case StatusGenerated, StatusPartiallyPaid, StatusOverdue:
			st.OutstandingBalance += b.BalanceDue
		}
		sb := byStatus[b.Status]
		if sb == nil {
			sb = &StatusBucket{Key: b.Status}
			byStatus[b.Status] = sb
		}
		sb.Count++
		sb.Total += b.NetAmount

		if b.CreatedAt.Before(since) {
			continue
		}
		if b.Status == StatusPaid {
			st.TotalRevenue += b.PaidAmount
		}
		tb := byType[b.BillType]
		if tb == nil {
			tb = &RevenueBucket{Key: b.BillType}
			byType[b.BillType] = tb
		}
		tb.Count++
		tb.Total += b.NetAmount
		tb.Paid += b.PaidAmount
	}
	for _, b := range byType {
		st.ByType = append(st.ByType, *b)
	}
	for _, b := range byStatus {
		st.ByStatus = append(st.ByStatus, *b)
	}
	return st, nil
}

type mockNumbers struct{ n int }

func (m *mockNumbers) NextBillNumber(_ context.Context, now time.Time) (string, error) {
	m.n++
	return fmt.Sprintf("BILL-%d-%06d", now.Year(), m.n), nil
}

// passTx runs fn directly; the mock repo applies writes immediately, so the
// version guard is what the concurrency tests exercise.
type passTx struct{}

func (passTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestService() (*Service, *mockRepo) {
	repo := newMockRepo()
	return NewService(repo, &mockNumbers{}, passTx{}, zerolog.Nop()), repo
}

func draftBill(t *testing.T, svc *Service) *Bill {
	t.Helper()
	b := &Bill{
		BillType:  TypeIPD,
		PatientID: uuid.New(),
		Items: []LineItem{
			{Category: CategoryBed, Description: "general ward, 2 days", Quantity: 2, UnitPrice: 100, DiscountPct: 10, TaxPct: 5},
		},
	}
	require.NoError(t, svc.CreateBill(context.Background(), b))
	return b
}

func generatedBill(t *testing.T, svc *Service) *Bill {
	t.Helper()
	b := draftBill(t, svc)
	gen, err := svc.Generate(context.Background(), b.ID)
	require.NoError(t, err)
	return gen
}

func TestCreateBillComputesTotals(t *testing.T) {
	svc, _ := newTestService()
	b := draftBill(t, svc)

	require.Equal(t, StatusDraft, b.Status)
	require.InDelta(t, 189.0, b.NetAmount, 1e-9)
	require.InDelta(t, 189.0, b.BalanceDue, 1e-9)
}

func TestCreateBillRejectsBadItem(t *testing.T) {
	svc, _ := newTestService()
	b := &Bill{
		PatientID: uuid.New(),
		Items:     []LineItem{{Category: CategoryBed, Description: "bed", Quantity: 0, UnitPrice: 100}},
	}
	require.ErrorIs(t, svc.CreateBill(context.Background(), b), apperr.Validation)
}

func TestGenerateAssignsNumber(t *testing.T) {
	svc, _ := newTestService()
	b := generatedBill(t, svc)

	require.Equal(t, StatusGenerated, b.Status)
	require.NotNil(t, b.BillNumber)
	require.Equal(t, "BILL-"+time.Now().UTC().Format("2006")+"-000001", *b.BillNumber)
	require.NotNil(t, b.GeneratedAt)
}

func TestGenerateEmptyBillFails(t *testing.T) {
	svc, _ := newTestService()
	b := &Bill{BillType: TypeOPD, PatientID: uuid.New()}
	require.NoError(t, svc.CreateBill(context.Background(), b))

	_, err := svc.Generate(context.Background(), b.ID)
	require.ErrorIs(t, err, apperr.Validation)
}

func TestGenerateTwiceFails(t *testing.T) {
	svc, _ := newTestService()
	b := generatedBill(t, svc)
	_, err := svc.Generate(context.Background(), b.ID)
	require.ErrorIs(t, err, apperr.InvalidState)
}

func TestPaymentBeforeGenerateFails(t *testing.T) {
	svc, _ := newTestService()
	b := draftBill(t, svc)
	_, err := svc.RecordPayment(context.Background(), b.ID, &Payment{Amount: 50, Method: MethodCash})
	require.ErrorIs(t, err, apperr.InvalidState)
}

func TestPartialThenFinalPaymentFlow(t *testing.T) {
	svc, _ := newTestService()
	b := generatedBill(t, svc)

	got, err := svc.RecordPayment(context.Background(), b.ID, &Payment{Amount: 100, Method: MethodCash})
	require.NoError(t, err)
	require.Equal(t, StatusPartiallyPaid, got.Status)
	require.InDelta(t, 89.0, got.BalanceDue, 1e-9)

	got, err = svc.RecordPayment(context.Background(), b.ID, &Payment{Amount: 89, Method: MethodUPI})
	require.NoError(t, err)
	require.Equal(t, StatusPaid, got.Status)
	require.InDelta(t, 0.0, got.BalanceDue, 1e-9)

	payments, err := svc.Payments(context.Background(), b.ID)
	require.NoError(t, err)
	require.Len(t, payments, 2)
}

func TestPaymentExceedingBalanceFails(t *testing.T) {
	svc, _ := newTestService()
	b := generatedBill(t, svc)
	_, err := svc.RecordPayment(context.Background(), b.ID, &Payment{Amount: 500, Method: MethodCash})
	require.ErrorIs(t, err, apperr.Validation)
}

func TestPaymentOnSettledBillFails(t *testing.T) {
	svc, _ := newTestService()
	b := generatedBill(t, svc)
	_, err := svc.RecordPayment(context.Background(), b.ID, &Payment{Amount: 189, Method: MethodCash})
	require.NoError(t, err)

	_, err = svc.RecordPayment(context.Background(), b.ID, &Payment{Amount: 1, Method: MethodCash})
	require.ErrorIs(t, err, apperr.InvalidState)
}

func TestPaymentInvalidMethodFails(t *testing.T) {
	svc, _ := newTestService()
	b := generatedBill(t, svc)
	_, err := svc.RecordPayment(context.Background(), b.ID, &Payment{Amount: 10, Method: "barter"})
	require.ErrorIs(t, err, apperr.Validation)
}

// A writer holding a stale version must lose to the version guard.
func TestStaleVersionLosesGuard(t *testing.T) {
	svc, repo := newTestService()
	b := generatedBill(t, svc)

	// Another writer bumps the version behind our back.
	fresh, err := repo.GetByID(context.Background(), b.ID)
	require.NoError(t, err)
	ok, err := repo.UpdateGuarded(context.Background(), fresh)
	require.NoError(t, err)
	require.True(t, ok)

	stale := cloneBill(b)
	ok, err = repo.UpdateGuarded(context.Background(), stale)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestConcurrentPaymentsNeverOverpay(t *testing.T) {
	svc, _ := newTestService()
	b := generatedBill(t, svc) // net 189

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RecordPayment(context.Background(), b.ID, &Payment{Amount: 100, Method: MethodCash})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var succeeded int
	for err := range errs {
		if err == nil {
			succeeded++
		}
	}
	// At most one 100 landed before the balance dropped below 100; the rest
	// failed on validation or the version guard.
	require.LessOrEqual(t, succeeded, 1)

	got, err := svc.GetBill(context.Background(), b.ID)
	require.NoError(t, err)
	require.LessOrEqual(t, got.PaidAmount, got.NetAmount)
	require.InDelta(t, got.NetAmount-got.PaidAmount, got.BalanceDue, 1e-9)
}

func TestAddLineItemRecomputes(t *testing.T) {
	svc, _ := newTestService()
	b := generatedBill(t, svc)

	got, err := svc.AddLineItem(context.Background(), b.ID, &LineItem{
		Category: CategoryMedicine, Description: "ceftriaxone 1g", Quantity: 1, UnitPrice: 61,
	})
	require.NoError(t, err)
	require.InDelta(t, 250.0, got.NetAmount, 1e-9)
	require.Len(t, got.Items, 2)
}

func TestAddLineItemToSettledBillFails(t *testing.T) {
	svc, _ := newTestService()
	b := generatedBill(t, svc)
	_, err := svc.RecordPayment(context.Background(), b.ID, &Payment{Amount: 189, Method: MethodCash})
	require.NoError(t, err)

	_, err = svc.AddLineItem(context.Background(), b.ID, &LineItem{
		Category: CategoryOther, Description: "late charge", Quantity: 1, UnitPrice: 10,
	})
	require.ErrorIs(t, err, apperr.InvalidState)
}

func TestRemoveLineItemDraftOnly(t *testing.T) {
	svc, _ := newTestService()
	b := generatedBill(t, svc)
	_, err := svc.RemoveLineItem(context.Background(), b.ID, b.Items[0].ID)
	require.ErrorIs(t, err, apperr.InvalidState)
}

func TestCancelUnpaidBill(t *testing.T) {
	svc, _ := newTestService()
	b := generatedBill(t, svc)
	got, err := svc.Cancel(context.Background(), b.ID, nil)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, got.Status)
}

func TestCancelPaidBillFails(t *testing.T) {
	svc, _ := newTestService()
	b := generatedBill(t, svc)
	_, err := svc.RecordPayment(context.Background(), b.ID, &Payment{Amount: 100, Method: MethodCash})
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), b.ID, nil)
	require.ErrorIs(t, err, apperr.InvalidState)
}

func TestRefundPaidBill(t *testing.T) {
	svc, _ := newTestService()
	b := generatedBill(t, svc)
	_, err := svc.RecordPayment(context.Background(), b.ID, &Payment{Amount: 189, Method: MethodCash})
	require.NoError(t, err)

	got, err := svc.Refund(context.Background(), b.ID, nil)
	require.NoError(t, err)
	require.Equal(t, StatusRefunded, got.Status)
}

func TestRefundedBillStaysRefunded(t *testing.T) {
	svc, _ := newTestService()
	b := generatedBill(t, svc)
	_, err := svc.RecordPayment(context.Background(), b.ID, &Payment{Amount: 189, Method: MethodCash})
	require.NoError(t, err)
	_, err = svc.Refund(context.Background(), b.ID, nil)
	require.NoError(t, err)

	// Terminal statuses survive recomputation.
	got, _ := svc.GetBill(context.Background(), b.ID)
	RecomputeTotals(got)
	require.Equal(t, StatusRefunded, got.Status)
}

func TestWriteOff(t *testing.T) {
	svc, _ := newTestService()
	b := generatedBill(t, svc)
	_, err := svc.RecordPayment(context.Background(), b.ID, &Payment{Amount: 50, Method: MethodCash})
	require.NoError(t, err)

	got, err := svc.WriteOff(context.Background(), b.ID, nil)
	require.NoError(t, err)
	require.Equal(t, StatusWrittenOff, got.Status)
}

func TestOutstandingAggregates(t *testing.T) {
	svc, _ := newTestService()
	patientID := uuid.New()

	for i := 0; i < 2; i++ {
		b := &Bill{
			BillType:  TypeOPD,
			PatientID: patientID,
			Items:     []LineItem{{Category: CategoryConsultation, Description: "visit", Quantity: 1, UnitPrice: 100}},
		}
		require.NoError(t, svc.CreateBill(context.Background(), b))
		_, err := svc.Generate(context.Background(), b.ID)
		require.NoError(t, err)
	}

	s, err := svc.Outstanding(context.Background(), patientID)
	require.NoError(t, err)
	require.Equal(t, 2, s.BillCount)
	require.InDelta(t, 200.0, s.BalanceDue, 1e-9)
}

func TestRevenueStats(t *testing.T) {
	svc, _ := newTestService()

	paid := generatedBill(t, svc) // net 189
	_, err := svc.RecordPayment(context.Background(), paid.ID, &Payment{Amount: 189, Method: MethodCash})
	require.NoError(t, err)

	open := &Bill{
		BillType:  TypeOPD,
		PatientID: uuid.New(),
		Items:     []LineItem{{Category: CategoryConsultation, Description: "visit", Quantity: 1, UnitPrice: 100}},
	}
	require.NoError(t, svc.CreateBill(context.Background(), open))
	_, err = svc.Generate(context.Background(), open.ID)
	require.NoError(t, err)

	st, err := svc.RevenueStats(context.Background(), "month")
	require.NoError(t, err)
	require.Equal(t, "month", st.Period)
	require.InDelta(t, 189.0, st.TotalRevenue, 1e-9)
	require.InDelta(t, 100.0, st.OutstandingBalance, 1e-9)
	require.Len(t, st.ByType, 2)
	require.Len(t, st.ByStatus, 2)
}

func TestRevenueStatsDefaultsToMonth(t *testing.T) {
	svc, _ := newTestService()
	st, err := svc.RevenueStats(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, "month", st.Period)
	require.False(t, st.Since.IsZero())
}

func TestRevenueStatsRejectsUnknownPeriod(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.RevenueStats(context.Background(), "quarter")
	require.ErrorIs(t, err, apperr.Validation)
}
