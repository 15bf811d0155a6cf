package pharmacy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hms/hms/internal/platform/db"
	"github.com/hms/hms/pkg/apperr"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Querier {
	if q := db.QuerierFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

const medicineCols = `id, name, generic_name, brand, category, composition, strength, unit,
	manufacturer, supplier_id, stock_quantity, min_threshold, max_threshold,
	storage_location, purchase_price, selling_price, gst_percent,
	requires_prescription, is_scheduled_drug, schedule_type, barcode, hsn_code,
	is_active, created_at, updated_at`

func scanMedicine(row pgx.Row) (*Medicine, error) {
	var m Medicine
	err := row.Scan(&m.ID, &m.Name, &m.GenericName, &m.Brand, &m.Category, &m.Composition,
		&m.Strength, &m.Unit, &m.Manufacturer, &m.SupplierID, &m.StockQuantity,
		&m.MinThreshold, &m.MaxThreshold, &m.StorageLocation, &m.PurchasePrice,
		&m.SellingPrice, &m.GSTPercent, &m.RequiresPrescription, &m.IsScheduledDrug,
		&m.ScheduleType, &m.Barcode, &m.HSNCode, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("medicine not found")
	}
	return &m, err
}

func (r *repoPG) Create(ctx context.Context, m *Medicine) error {
	m.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO medicine (id, name, generic_name, brand, category, composition,
			strength, unit, manufacturer, supplier_id, stock_quantity, min_threshold,
			max_threshold, storage_location, purchase_price, selling_price, gst_percent,
			requires_prescription, is_scheduled_drug, schedule_type, barcode, hsn_code,
			is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)`,
		m.ID, m.Name, m.GenericName, m.Brand, m.Category, m.Composition,
		m.Strength, m.Unit, m.Manufacturer, m.SupplierID, m.StockQuantity, m.MinThreshold,
		m.MaxThreshold, m.StorageLocation, m.PurchasePrice, m.SellingPrice, m.GSTPercent,
		m.RequiresPrescription, m.IsScheduledDrug, m.ScheduleType, m.Barcode, m.HSNCode,
		m.IsActive)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Medicine, error) {
	return scanMedicine(r.conn(ctx).QueryRow(ctx,
		`SELECT `+medicineCols+` FROM medicine WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, m *Medicine) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE medicine SET name=$2, generic_name=$3, brand=$4, category=$5,
			composition=$6, strength=$7, unit=$8, manufacturer=$9, supplier_id=$10,
			min_threshold=$11, max_threshold=$12, storage_location=$13,
			purchase_price=$14, selling_price=$15, gst_percent=$16,
			requires_prescription=$17, is_scheduled_drug=$18, schedule_type=$19,
			barcode=$20, hsn_code=$21, updated_at=NOW()
		WHERE id = $1`,
		m.ID, m.Name, m.GenericName, m.Brand, m.Category,
		m.Composition, m.Strength, m.Unit, m.Manufacturer, m.SupplierID,
		m.MinThreshold, m.MaxThreshold, m.StorageLocation,
		m.PurchasePrice, m.SellingPrice, m.GSTPercent,
		m.RequiresPrescription, m.IsScheduledDrug, m.ScheduleType,
		m.Barcode, m.HSNCode)
	return err
}

func (r *repoPG) SetActive(ctx context.Context, id uuid.UUID, active bool) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE medicine SET is_active = $2, updated_at = NOW() WHERE id = $1 AND is_active <> $2`,
		id, active)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Medicine, int, error) {
	query := `SELECT ` + medicineCols + ` FROM medicine WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM medicine WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.ActiveOnly {
		query += ` AND is_active`
		countQuery += ` AND is_active`
	}
	if f.Category != "" {
		query += fmt.Sprintf(` AND category = $%d`, idx)
		countQuery += fmt.Sprintf(` AND category = $%d`, idx)
		args = append(args, f.Category)
		idx++
	}
	if f.RequiresPrescription != nil {
		query += fmt.Sprintf(` AND requires_prescription = $%d`, idx)
		countQuery += fmt.Sprintf(` AND requires_prescription = $%d`, idx)
		args = append(args, *f.RequiresPrescription)
		idx++
	}
	if f.Search != "" {
		cond := fmt.Sprintf(` AND (name ILIKE $%d OR generic_name ILIKE $%d OR brand ILIKE $%d)`, idx, idx, idx)
		query += cond
		countQuery += cond
		args = append(args, "%"+f.Search+"%")
		idx++
	}
	if f.LowStockOnly {
		query += ` AND stock_quantity <= min_threshold`
		countQuery += ` AND stock_quantity <= min_threshold`
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY name LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Medicine
	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, m)
	}
	return items, total, nil
}

func (r *repoPG) AdjustQuantityGuarded(ctx context.Context, id uuid.UUID, delta int) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE medicine SET stock_quantity = stock_quantity + $2, updated_at = NOW()
		WHERE id = $1 AND stock_quantity + $2 >= 0`,
		id, delta)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) SetQuantity(ctx context.Context, id uuid.UUID, quantity int) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE medicine SET stock_quantity = $2, updated_at = NOW() WHERE id = $1`,
		id, quantity)
	return err
}

func (r *repoPG) AddBatch(ctx context.Context, b *Batch) error {
	b.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO medicine_batch (id, medicine_id, batch_number, quantity, expiry_date,
			mrp, purchase_price, received_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		b.ID, b.MedicineID, b.BatchNumber, b.Quantity, b.ExpiryDate,
		b.MRP, b.PurchasePrice, b.ReceivedAt)
	return err
}

func (r *repoPG) ListBatches(ctx context.Context, medicineID uuid.UUID) ([]*Batch, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, medicine_id, batch_number, quantity, expiry_date, mrp, purchase_price, received_at
		FROM medicine_batch WHERE medicine_id = $1 ORDER BY expiry_date`, medicineID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Batch
	for rows.Next() {
		var b Batch
		if err := rows.Scan(&b.ID, &b.MedicineID, &b.BatchNumber, &b.Quantity,
			&b.ExpiryDate, &b.MRP, &b.PurchasePrice, &b.ReceivedAt); err != nil {
			return nil, err
		}
		items = append(items, &b)
	}
	return items, rows.Err()
}

func (r *repoPG) AddMovement(ctx context.Context, mv *Movement) error {
	mv.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO stock_movement (id, medicine_id, movement_type, quantity, batch_number,
			reference_id, reference_type, performed_by, notes, occurred_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		mv.ID, mv.MedicineID, mv.Type, mv.Quantity, mv.BatchNumber,
		mv.ReferenceID, mv.ReferenceType, mv.PerformedBy, mv.Notes, mv.OccurredAt)
	return err
}

func (r *repoPG) ListMovements(ctx context.Context, medicineID uuid.UUID, limit, offset int) ([]*Movement, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM stock_movement WHERE medicine_id = $1`, medicineID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, medicine_id, movement_type, quantity, batch_number, reference_id,
			reference_type, performed_by, notes, occurred_at
		FROM stock_movement WHERE medicine_id = $1
		ORDER BY occurred_at DESC LIMIT $2 OFFSET $3`, medicineID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Movement
	for rows.Next() {
		var mv Movement
		if err := rows.Scan(&mv.ID, &mv.MedicineID, &mv.Type, &mv.Quantity, &mv.BatchNumber,
			&mv.ReferenceID, &mv.ReferenceType, &mv.PerformedBy, &mv.Notes, &mv.OccurredAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &mv)
	}
	return items, total, nil
}

func (r *repoPG) LowStock(ctx context.Context) ([]AlertItem, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, name, stock_quantity, min_threshold
		FROM medicine WHERE is_active AND stock_quantity <= min_threshold
		ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AlertItem
	for rows.Next() {
		var a AlertItem
		if err := rows.Scan(&a.MedicineID, &a.Name, &a.StockQuantity, &a.MinThreshold); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *repoPG) ExpiredBatches(ctx context.Context, now time.Time) ([]ExpiryItem, error) {
	return r.expiryItems(ctx, `
		SELECT m.id, m.name, b.batch_number, b.quantity, b.expiry_date
		FROM medicine_batch b JOIN medicine m ON m.id = b.medicine_id
		WHERE m.is_active AND b.quantity > 0 AND b.expiry_date < $1
		ORDER BY b.expiry_date`, now)
}

func (r *repoPG) ExpiringBatches(ctx context.Context, now time.Time, within time.Duration) ([]ExpiryItem, error) {
	return r.expiryItems(ctx, `
		SELECT m.id, m.name, b.batch_number, b.quantity, b.expiry_date
		FROM medicine_batch b JOIN medicine m ON m.id = b.medicine_id
		WHERE m.is_active AND b.quantity > 0 AND b.expiry_date >= $1 AND b.expiry_date < $2
		ORDER BY b.expiry_date`, now, now.Add(within))
}

func (r *repoPG) expiryItems(ctx context.Context, query string, args ...interface{}) ([]ExpiryItem, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ExpiryItem
	for rows.Next() {
		var e ExpiryItem
		if err := rows.Scan(&e.MedicineID, &e.Name, &e.BatchNumber, &e.Quantity, &e.ExpiryDate); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

type supplierRepoPG struct{ pool *pgxpool.Pool }

func NewSupplierRepoPG(pool *pgxpool.Pool) SupplierRepository { return &supplierRepoPG{pool: pool} }

func (r *supplierRepoPG) conn(ctx context.Context) db.Querier {
	if q := db.QuerierFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

const supplierCols = `id, name, contact_person, phone, email, address, gst_number,
	is_active, created_at, updated_at`

func scanSupplier(row pgx.Row) (*Supplier, error) {
	var s Supplier
	err := row.Scan(&s.ID, &s.Name, &s.ContactPerson, &s.Phone, &s.Email, &s.Address,
		&s.GSTNumber, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("supplier not found")
	}
	return &s, err
}

func (r *supplierRepoPG) Create(ctx context.Context, s *Supplier) error {
	s.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO supplier (id, name, contact_person, phone, email, address, gst_number, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		s.ID, s.Name, s.ContactPerson, s.Phone, s.Email, s.Address, s.GSTNumber, s.IsActive)
	return err
}

func (r *supplierRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Supplier, error) {
	return scanSupplier(r.conn(ctx).QueryRow(ctx,
		`SELECT `+supplierCols+` FROM supplier WHERE id = $1`, id))
}

func (r *supplierRepoPG) Update(ctx context.Context, s *Supplier) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE supplier SET name=$2, contact_person=$3, phone=$4, email=$5, address=$6,
			gst_number=$7, updated_at=NOW()
		WHERE id = $1`,
		s.ID, s.Name, s.ContactPerson, s.Phone, s.Email, s.Address, s.GSTNumber)
	return err
}

func (r *supplierRepoPG) SetActive(ctx context.Context, id uuid.UUID, active bool) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE supplier SET is_active = $2, updated_at = NOW() WHERE id = $1 AND is_active <> $2`,
		id, active)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *supplierRepoPG) List(ctx context.Context, activeOnly bool) ([]*Supplier, error) {
	query := `SELECT ` + supplierCols + ` FROM supplier`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY name`
	rows, err := r.conn(ctx).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Supplier
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}
