package lab

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hms/hms/pkg/apperr"
)

// NumberSource allocates lab order numbers.
type NumberSource interface {
	NextLabOrderNumber(ctx context.Context, now time.Time) (string, error)
}

type Service struct {
	tests   TestRepository
	orders  OrderRepository
	numbers NumberSource
	log     zerolog.Logger
	now     func() time.Time
}

func NewService(tests TestRepository, orders OrderRepository, numbers NumberSource, log zerolog.Logger) *Service {
	return &Service{tests: tests, orders: orders, numbers: numbers, log: log, now: time.Now}
}

func validateTest(t *TestDef) error {
	if t.Name == "" {
		return apperr.Validationf("name is required")
	}
	if !ValidCategory(t.Category) {
		return apperr.Validationf("invalid category %q", t.Category)
	}
	if t.Price < 0 {
		return apperr.Validationf("price must not be negative")
	}
	if t.SampleType != nil && !ValidSampleType(*t.SampleType) {
		return apperr.Validationf("invalid sample_type %q", *t.SampleType)
	}
	for i := range t.Parameters {
		if t.Parameters[i].Name == "" {
			return apperr.Validationf("parameter %d: name is required", i+1)
		}
	}
	return nil
}

func (s *Service) CreateTest(ctx context.Context, t *TestDef) error {
	if err := validateTest(t); err != nil {
		return err
	}
	t.IsActive = true
	return s.tests.Create(ctx, t)
}

func (s *Service) GetTest(ctx context.Context, id uuid.UUID) (*TestDef, error) {
	return s.tests.GetByID(ctx, id)
}

func (s *Service) UpdateTest(ctx context.Context, id uuid.UUID, t *TestDef) (*TestDef, error) {
	existing, err := s.tests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	t.ID = existing.ID
	t.IsActive = existing.IsActive
	if err := validateTest(t); err != nil {
		return nil, err
	}
	if err := s.tests.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) DeactivateTest(ctx context.Context, id uuid.UUID) error {
	ok, err := s.tests.SetActive(ctx, id, false)
	if err != nil {
		return err
	}
	if !ok {
		if _, err := s.tests.GetByID(ctx, id); err != nil {
			return err
		}
		return apperr.InvalidStatef("lab test is already deactivated")
	}
	return nil
}

func (s *Service) ListTests(ctx context.Context, f TestFilter) ([]*TestDef, error) {
	if f.Category != "" && !ValidCategory(f.Category) {
		return nil, apperr.Validationf("invalid category %q", f.Category)
	}
	return s.tests.List(ctx, f)
}

// OrderRequest places a lab order.
type OrderRequest struct {
	PatientID  uuid.UUID  `json:"patient_id"`
	OrderedBy  uuid.UUID  `json:"ordered_by"`
	SourceType string     `json:"source_type"`
	SourceRef  *uuid.UUID `json:"source_ref"`
	Tests      []struct {
		TestID   uuid.UUID `json:"test_id"`
		Priority string    `json:"priority"`
	} `json:"tests"`
	Notes        *string    `json:"notes"`
	RegisteredBy *uuid.UUID `json:"-"`
}

// CreateOrder places an order and prices it from the catalog.
func (s *Service) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if req.PatientID == uuid.Nil {
		return nil, apperr.Validationf("patient_id is required")
	}
	if req.OrderedBy == uuid.Nil {
		return nil, apperr.Validationf("ordered_by is required")
	}
	if req.SourceType == "" {
		req.SourceType = SourceOPD
	}
	if !ValidSource(req.SourceType) {
		return nil, apperr.Validationf("invalid source_type %q", req.SourceType)
	}
	if len(req.Tests) == 0 {
		return nil, apperr.Validationf("at least one test is required")
	}

	ids := make([]uuid.UUID, 0, len(req.Tests))
	for i, t := range req.Tests {
		if t.Priority != "" && !ValidPriority(t.Priority) {
			return nil, apperr.Validationf("test %d: invalid priority %q", i+1, t.Priority)
		}
		ids = append(ids, t.TestID)
	}
	defs, err := s.tests.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*TestDef, len(defs))
	for _, d := range defs {
		byID[d.ID] = d
	}

	var total float64
	orderTests := make([]*OrderTest, 0, len(req.Tests))
	for i, t := range req.Tests {
		def, ok := byID[t.TestID]
		if !ok {
			return nil, apperr.NotFoundf("test %d: not in catalog", i+1)
		}
		if !def.IsActive {
			return nil, apperr.InvalidStatef("test %s is deactivated", def.Name)
		}
		priority := t.Priority
		if priority == "" {
			priority = PriorityRoutine
		}
		total += def.Price
		orderTests = append(orderTests, &OrderTest{
			TestID:   def.ID,
			TestName: def.Name,
			Status:   TestPending,
			Priority: priority,
		})
	}

	now := s.now().UTC()
	number, err := s.numbers.NextLabOrderNumber(ctx, now)
	if err != nil {
		return nil, err
	}
	o := &Order{
		OrderNumber:   number,
		PatientID:     req.PatientID,
		OrderedBy:     req.OrderedBy,
		SourceType:    req.SourceType,
		SourceRef:     req.SourceRef,
		Tests:         orderTests,
		TotalAmount:   total,
		PaymentStatus: PaymentPending,
		Status:        OrderPending,
		Notes:         req.Notes,
		RegisteredBy:  req.RegisteredBy,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, err
	}
	s.log.Info().Str("order_number", o.OrderNumber).Int("tests", len(o.Tests)).
		Msg("lab order placed")
	return o, nil
}

// GetOrder resolves an order by id or by order number.
func (s *Service) GetOrder(ctx context.Context, ref string) (*Order, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return s.orders.GetByID(ctx, id)
	}
	return s.orders.GetByNumber(ctx, ref)
}

func (s *Service) ListOrders(ctx context.Context, f OrderFilter, limit, offset int) ([]*Order, int, error) {
	return s.orders.List(ctx, f, limit, offset)
}

// PendingQueue lists open orders oldest first.
func (s *Service) PendingQueue(ctx context.Context) ([]*Order, error) {
	return s.orders.PendingQueue(ctx)
}

// CollectSample marks the order's sample as drawn and moves the order and
// its pending tests forward. The guard makes a second collection fail.
func (s *Service) CollectSample(ctx context.Context, id uuid.UUID, barcode *string, by *uuid.UUID) (*Order, error) {
	ok, err := s.orders.SetStatusGuarded(ctx, id, []string{OrderPending}, OrderInProgress)
	if err != nil {
		return nil, err
	}
	if !ok {
		o, err := s.orders.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, apperr.InvalidStatef("order is %s, sample already handled", o.Status)
	}
	now := s.now().UTC()
	if err := s.orders.MarkSampleCollected(ctx, id, by, barcode, now); err != nil {
		return nil, err
	}
	if err := s.orders.SetTestStatusAll(ctx, id, TestPending, TestSampleCollected); err != nil {
		return nil, err
	}
	return s.orders.GetByID(ctx, id)
}

// ResultsRequest records measured values for one test on an order.
type ResultsRequest struct {
	OrderTestID uuid.UUID  `json:"order_test_id"`
	Results     []Result   `json:"results"`
	ReportNotes *string    `json:"report_notes"`
	ResultFile  *string    `json:"result_file"`
	ProcessedBy *uuid.UUID `json:"-"`
}

// EnterResults completes one test. When every test on the order is complete
// the order itself completes and the report timestamp is set.
func (s *Service) EnterResults(ctx context.Context, orderID uuid.UUID, req ResultsRequest) (*Order, error) {
	if len(req.Results) == 0 {
		return nil, apperr.Validationf("at least one result is required")
	}
	for i := range req.Results {
		res := &req.Results[i]
		if res.Parameter == "" {
			return nil, apperr.Validationf("result %d: parameter is required", i+1)
		}
		if res.Value == "" {
			return nil, apperr.Validationf("result %d: value is required", i+1)
		}
		if res.Flag != nil && !ValidFlag(*res.Flag) {
			return nil, apperr.Validationf("result %d: invalid flag %q", i+1, *res.Flag)
		}
	}

	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status == OrderCancelled {
		return nil, apperr.InvalidStatef("order is cancelled")
	}
	if !o.SampleCollected {
		return nil, apperr.InvalidStatef("sample has not been collected")
	}
	var target *OrderTest
	for _, t := range o.Tests {
		if t.ID == req.OrderTestID {
			target = t
			break
		}
	}
	if target == nil {
		return nil, apperr.NotFoundf("test not found on order")
	}
	if target.Status == TestCancelled {
		return nil, apperr.InvalidStatef("test is cancelled")
	}

	now := s.now().UTC()
	target.Status = TestCompleted
	target.ReportNotes = req.ReportNotes
	target.ResultFile = req.ResultFile
	target.ProcessedBy = req.ProcessedBy
	target.ProcessedAt = &now
	if err := s.orders.ReplaceResults(ctx, target.ID, req.Results); err != nil {
		return nil, err
	}
	if err := s.orders.UpdateTest(ctx, target); err != nil {
		return nil, err
	}

	allDone := true
	for _, t := range o.Tests {
		if t.Status != TestCompleted && t.Status != TestCancelled {
			allDone = false
			break
		}
	}
	if allDone {
		if _, err := s.orders.SetStatusGuarded(ctx, orderID,
			[]string{OrderPending, OrderInProgress}, OrderCompleted); err != nil {
			return nil, err
		}
		if err := s.orders.SetReportReady(ctx, orderID, now); err != nil {
			return nil, err
		}
		s.log.Info().Str("order_number", o.OrderNumber).Msg("lab report ready")
	}
	return s.orders.GetByID(ctx, orderID)
}

// VerifyResults signs off a completed test's results.
func (s *Service) VerifyResults(ctx context.Context, orderID, orderTestID uuid.UUID, by *uuid.UUID) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	var target *OrderTest
	for _, t := range o.Tests {
		if t.ID == orderTestID {
			target = t
			break
		}
	}
	if target == nil {
		return nil, apperr.NotFoundf("test not found on order")
	}
	if target.Status != TestCompleted {
		return nil, apperr.InvalidStatef("results have not been entered")
	}
	if target.VerifiedAt != nil {
		return nil, apperr.InvalidStatef("results are already verified")
	}
	now := s.now().UTC()
	target.VerifiedBy = by
	target.VerifiedAt = &now
	if err := s.orders.UpdateTest(ctx, target); err != nil {
		return nil, err
	}
	return s.orders.GetByID(ctx, orderID)
}

// CancelOrder cancels an order that has not completed.
func (s *Service) CancelOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	ok, err := s.orders.SetStatusGuarded(ctx, id, []string{OrderPending, OrderInProgress}, OrderCancelled)
	if err != nil {
		return nil, err
	}
	if !ok {
		o, err := s.orders.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, apperr.InvalidStatef("cannot cancel a %s order", o.Status)
	}
	if err := s.orders.SetTestStatusAll(ctx, id, TestPending, TestCancelled); err != nil {
		return nil, err
	}
	if err := s.orders.SetTestStatusAll(ctx, id, TestSampleCollected, TestCancelled); err != nil {
		return nil, err
	}
	if err := s.orders.SetTestStatusAll(ctx, id, TestProcessing, TestCancelled); err != nil {
		return nil, err
	}
	return s.orders.GetByID(ctx, id)
}

// MarkPayment settles or waives the order amount.
func (s *Service) MarkPayment(ctx context.Context, id uuid.UUID, status string) (*Order, error) {
	if status != PaymentPaid && status != PaymentWaived {
		return nil, apperr.Validationf("payment status must be %s or %s", PaymentPaid, PaymentWaived)
	}
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.PaymentStatus != PaymentPending {
		return nil, apperr.InvalidStatef("order payment is already %s", o.PaymentStatus)
	}
	if err := s.orders.SetPaymentStatus(ctx, id, status); err != nil {
		return nil, err
	}
	o.PaymentStatus = status
	return o, nil
}
