package pharmacy

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hms/hms/pkg/apperr"
)

// expiringSoonWindow is how far ahead the alert report looks for batches
// about to expire.
const expiringSoonWindow = 30 * 24 * time.Hour

type Service struct {
	repo      Repository
	suppliers SupplierRepository
	log       zerolog.Logger
	now       func() time.Time
}

func NewService(repo Repository, suppliers SupplierRepository, log zerolog.Logger) *Service {
	return &Service{repo: repo, suppliers: suppliers, log: log, now: time.Now}
}

func validateMedicine(m *Medicine) error {
	if m.Name == "" {
		return apperr.Validationf("name is required")
	}
	if !ValidCategory(m.Category) {
		return apperr.Validationf("invalid category %q", m.Category)
	}
	if m.PurchasePrice < 0 || m.SellingPrice < 0 {
		return apperr.Validationf("prices must not be negative")
	}
	if m.GSTPercent < 0 || m.GSTPercent > 100 {
		return apperr.Validationf("gst_percent must be between 0 and 100")
	}
	if m.StockQuantity < 0 {
		return apperr.Validationf("stock_quantity must not be negative")
	}
	return nil
}

func (s *Service) CreateMedicine(ctx context.Context, m *Medicine) error {
	if m.Unit == "" {
		m.Unit = "units"
	}
	if m.MinThreshold <= 0 {
		m.MinThreshold = 20
	}
	if err := validateMedicine(m); err != nil {
		return err
	}
	if m.SupplierID != nil {
		if _, err := s.suppliers.GetByID(ctx, *m.SupplierID); err != nil {
			return err
		}
	}
	m.IsActive = true
	return s.repo.Create(ctx, m)
}

func (s *Service) GetMedicine(ctx context.Context, id uuid.UUID) (*Medicine, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateMedicine edits catalog fields. Stock quantity only moves through the
// stock operations so the movement log stays complete.
func (s *Service) UpdateMedicine(ctx context.Context, id uuid.UUID, m *Medicine) (*Medicine, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !existing.IsActive {
		return nil, apperr.InvalidStatef("medicine is deactivated")
	}
	m.ID = existing.ID
	m.StockQuantity = existing.StockQuantity
	m.IsActive = existing.IsActive
	if m.Unit == "" {
		m.Unit = existing.Unit
	}
	if m.MinThreshold <= 0 {
		m.MinThreshold = existing.MinThreshold
	}
	if err := validateMedicine(m); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) DeactivateMedicine(ctx context.Context, id uuid.UUID) error {
	ok, err := s.repo.SetActive(ctx, id, false)
	if err != nil {
		return err
	}
	if !ok {
		if _, err := s.repo.GetByID(ctx, id); err != nil {
			return err
		}
		return apperr.InvalidStatef("medicine is already deactivated")
	}
	return nil
}

func (s *Service) ListMedicines(ctx context.Context, f Filter, limit, offset int) ([]*Medicine, int, error) {
	if f.Category != "" && !ValidCategory(f.Category) {
		return nil, 0, apperr.Validationf("invalid category %q", f.Category)
	}
	return s.repo.List(ctx, f, limit, offset)
}

// AddStockRequest receives a purchase batch into stock.
type AddStockRequest struct {
	Quantity      int        `json:"quantity"`
	BatchNumber   string     `json:"batch_number"`
	ExpiryDate    time.Time  `json:"expiry_date"`
	MRP           *float64   `json:"mrp"`
	PurchasePrice *float64   `json:"purchase_price"`
	Notes         *string    `json:"notes"`
	PerformedBy   *uuid.UUID `json:"-"`
}

// AddStock receives a batch, bumps the on-hand total and logs a purchase
// movement.
func (s *Service) AddStock(ctx context.Context, id uuid.UUID, req AddStockRequest) (*Medicine, error) {
	if req.Quantity <= 0 {
		return nil, apperr.Validationf("quantity must be positive")
	}
	if req.BatchNumber == "" {
		return nil, apperr.Validationf("batch_number is required")
	}
	if req.ExpiryDate.IsZero() {
		return nil, apperr.Validationf("expiry_date is required")
	}
	now := s.now().UTC()
	if !req.ExpiryDate.After(now) {
		return nil, apperr.Validationf("expiry_date must be in the future")
	}
	m, err := s.activeMedicine(ctx, id)
	if err != nil {
		return nil, err
	}

	if ok, err := s.repo.AdjustQuantityGuarded(ctx, id, req.Quantity); err != nil {
		return nil, err
	} else if !ok {
		return nil, apperr.InvalidStatef("stock update failed")
	}
	if err := s.repo.AddBatch(ctx, &Batch{
		MedicineID:    id,
		BatchNumber:   req.BatchNumber,
		Quantity:      req.Quantity,
		ExpiryDate:    req.ExpiryDate,
		MRP:           req.MRP,
		PurchasePrice: req.PurchasePrice,
		ReceivedAt:    now,
	}); err != nil {
		return nil, err
	}
	if err := s.logMovement(ctx, id, MovementPurchase, req.Quantity, &req.BatchNumber, nil, nil, req.PerformedBy, req.Notes); err != nil {
		return nil, err
	}
	s.log.Info().Str("medicine", m.Name).Int("quantity", req.Quantity).
		Str("batch", req.BatchNumber).Msg("stock received")
	return s.repo.GetByID(ctx, id)
}

// DispenseRequest issues stock against a visit, admission or bill.
type DispenseRequest struct {
	Quantity      int        `json:"quantity"`
	BatchNumber   *string    `json:"batch_number"`
	ReferenceID   *string    `json:"reference_id"`
	ReferenceType *string    `json:"reference_type"`
	Notes         *string    `json:"notes"`
	PerformedBy   *uuid.UUID `json:"-"`
}

// Dispense decrements stock through the guarded write, so two dispensers
// racing for the last units cannot both succeed.
func (s *Service) Dispense(ctx context.Context, id uuid.UUID, req DispenseRequest) (*Medicine, error) {
	if req.Quantity <= 0 {
		return nil, apperr.Validationf("quantity must be positive")
	}
	if _, err := s.activeMedicine(ctx, id); err != nil {
		return nil, err
	}
	ok, err := s.repo.AdjustQuantityGuarded(ctx, id, -req.Quantity)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.InvalidStatef("insufficient stock")
	}
	if err := s.logMovement(ctx, id, MovementDispensed, req.Quantity, req.BatchNumber,
		req.ReferenceID, req.ReferenceType, req.PerformedBy, req.Notes); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// ReturnRequest restocks previously dispensed units.
type ReturnRequest struct {
	Quantity    int        `json:"quantity"`
	BatchNumber *string    `json:"batch_number"`
	ReferenceID *string    `json:"reference_id"`
	Reason      *string    `json:"reason"`
	PerformedBy *uuid.UUID `json:"-"`
}

func (s *Service) Return(ctx context.Context, id uuid.UUID, req ReturnRequest) (*Medicine, error) {
	if req.Quantity <= 0 {
		return nil, apperr.Validationf("quantity must be positive")
	}
	if _, err := s.activeMedicine(ctx, id); err != nil {
		return nil, err
	}
	if ok, err := s.repo.AdjustQuantityGuarded(ctx, id, req.Quantity); err != nil {
		return nil, err
	} else if !ok {
		return nil, apperr.InvalidStatef("stock update failed")
	}
	if err := s.logMovement(ctx, id, MovementReturned, req.Quantity, req.BatchNumber,
		req.ReferenceID, nil, req.PerformedBy, req.Reason); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// AdjustStock sets the on-hand total to a counted value and logs the signed
// difference.
func (s *Service) AdjustStock(ctx context.Context, id uuid.UUID, newQuantity int, reason string, performedBy *uuid.UUID) (*Medicine, error) {
	if newQuantity < 0 {
		return nil, apperr.Validationf("quantity must not be negative")
	}
	if reason == "" {
		return nil, apperr.Validationf("reason is required")
	}
	m, err := s.activeMedicine(ctx, id)
	if err != nil {
		return nil, err
	}
	diff := newQuantity - m.StockQuantity
	if diff == 0 {
		return m, nil
	}
	if err := s.repo.SetQuantity(ctx, id, newQuantity); err != nil {
		return nil, err
	}
	notes := fmt.Sprintf("%+d: %s", diff, reason)
	qty := diff
	if qty < 0 {
		qty = -qty
	}
	if err := s.logMovement(ctx, id, MovementAdjustment, qty, nil, nil, nil, performedBy, &notes); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Batches(ctx context.Context, id uuid.UUID) ([]*Batch, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListBatches(ctx, id)
}

func (s *Service) Movements(ctx context.Context, id uuid.UUID, limit, offset int) ([]*Movement, int, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, 0, err
	}
	return s.repo.ListMovements(ctx, id, limit, offset)
}

// StockAlerts reports low-stock medicines plus expired and soon-to-expire
// batches.
func (s *Service) StockAlerts(ctx context.Context) (*Alerts, error) {
	now := s.now().UTC()
	low, err := s.repo.LowStock(ctx)
	if err != nil {
		return nil, err
	}
	expired, err := s.repo.ExpiredBatches(ctx, now)
	if err != nil {
		return nil, err
	}
	expiring, err := s.repo.ExpiringBatches(ctx, now, expiringSoonWindow)
	if err != nil {
		return nil, err
	}
	return &Alerts{LowStock: low, Expired: expired, ExpiringSoon: expiring}, nil
}

func (s *Service) CreateSupplier(ctx context.Context, sp *Supplier) error {
	if sp.Name == "" {
		return apperr.Validationf("name is required")
	}
	if sp.Phone == "" {
		return apperr.Validationf("phone is required")
	}
	sp.IsActive = true
	return s.suppliers.Create(ctx, sp)
}

func (s *Service) UpdateSupplier(ctx context.Context, id uuid.UUID, sp *Supplier) (*Supplier, error) {
	existing, err := s.suppliers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	sp.ID = existing.ID
	sp.IsActive = existing.IsActive
	if sp.Name == "" {
		return nil, apperr.Validationf("name is required")
	}
	if sp.Phone == "" {
		return nil, apperr.Validationf("phone is required")
	}
	if err := s.suppliers.Update(ctx, sp); err != nil {
		return nil, err
	}
	return sp, nil
}

func (s *Service) DeactivateSupplier(ctx context.Context, id uuid.UUID) error {
	ok, err := s.suppliers.SetActive(ctx, id, false)
	if err != nil {
		return err
	}
	if !ok {
		if _, err := s.suppliers.GetByID(ctx, id); err != nil {
			return err
		}
		return apperr.InvalidStatef("supplier is already deactivated")
	}
	return nil
}

func (s *Service) ListSuppliers(ctx context.Context) ([]*Supplier, error) {
	return s.suppliers.List(ctx, true)
}

func (s *Service) activeMedicine(ctx context.Context, id uuid.UUID) (*Medicine, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !m.IsActive {
		return nil, apperr.InvalidStatef("medicine is deactivated")
	}
	return m, nil
}

func (s *Service) logMovement(ctx context.Context, id uuid.UUID, typ string, qty int, batch, refID, refType *string, by *uuid.UUID, notes *string) error {
	return s.repo.AddMovement(ctx, &Movement{
		MedicineID:    id,
		Type:          typ,
		Quantity:      qty,
		BatchNumber:   batch,
		ReferenceID:   refID,
		ReferenceType: refType,
		PerformedBy:   by,
		Notes:         notes,
		OccurredAt:    s.now().UTC(),
	})
}
