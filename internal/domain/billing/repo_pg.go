package billing

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

const billCols = `id, bill_number, bill_type, patient_id, admission_id,
	sub_total, total_discount, total_tax, total_amount, advance_deposit,
	round_off, net_amount, paid_amount, balance_due, status, version,
	notes, created_by, generated_at, created_at, updated_at`

func scanBill(row pgx.Row) (*Bill, error) {
	var b Bill
	err := row.Scan(&b.ID, &b.BillNumber, &b.BillType, &b.PatientID, &b.AdmissionID,
		&b.SubTotal, &b.TotalDiscount, &b.TotalTax, &b.TotalAmount, &b.AdvanceDeposit,
		&b.RoundOff, &b.NetAmount, &b.PaidAmount, &b.BalanceDue, &b.Status, &b.Version,
		&b.Notes, &b.CreatedBy, &b.GeneratedAt, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("bill not found")
	}
	return &b, err
}

func (r *repoPG) Create(ctx context.Context, b *Bill) error {
	b.ID = uuid.New()
	b.Version = 1
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO bill (id, bill_number, bill_type, patient_id, admission_id,
			sub_total, total_discount, total_tax, total_amount, advance_deposit,
			round_off, net_amount, paid_amount, balance_due, status, version, notes, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		b.ID, b.BillNumber, b.BillType, b.PatientID, b.AdmissionID,
		b.SubTotal, b.TotalDiscount, b.TotalTax, b.TotalAmount, b.AdvanceDeposit,
		b.RoundOff, b.NetAmount, b.PaidAmount, b.BalanceDue, b.Status, b.Version, b.Notes, b.CreatedBy)
	if err != nil {
		return err
	}
	for i := range b.Items {
		b.Items[i].BillID = b.ID
		if err := r.AddLineItem(ctx, &b.Items[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) hydrate(ctx context.Context, b *Bill) error {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, bill_id, category, description, quantity, unit_price,
			discount_pct, tax_pct, tax_amount, line_total, created_at
		FROM bill_line_item WHERE bill_id = $1 ORDER BY created_at`, b.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var li LineItem
		if err := rows.Scan(&li.ID, &li.BillID, &li.Category, &li.Description, &li.Quantity,
			&li.UnitPrice, &li.DiscountPct, &li.TaxPct, &li.TaxAmount, &li.LineTotal, &li.CreatedAt); err != nil {
			return err
		}
		b.Items = append(b.Items, li)
	}
	return rows.Err()
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Bill, error) {
	b, err := scanBill(r.conn(ctx).QueryRow(ctx, `SELECT `+billCols+` FROM bill WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := r.hydrate(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *repoPG) GetByNumber(ctx context.Context, billNumber string) (*Bill, error) {
	b, err := scanBill(r.conn(ctx).QueryRow(ctx,
		`SELECT `+billCols+` FROM bill WHERE bill_number = $1`, billNumber))
	if err != nil {
		return nil, err
	}
	if err := r.hydrate(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *repoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Bill, int, error) {
	query := `SELECT ` + billCols + ` FROM bill WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM bill WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.PatientID != nil {
		query += fmt.Sprintf(` AND patient_id = $%d`, idx)
		countQuery += fmt.Sprintf(` AND patient_id = $%d`, idx)
		args = append(args, *f.PatientID)
		idx++
	}
	if f.AdmissionID != nil {
		query += fmt.Sprintf(` AND admission_id = $%d`, idx)
		countQuery += fmt.Sprintf(` AND admission_id = $%d`, idx)
		args = append(args, *f.AdmissionID)
		idx++
	}
	if f.BillType != "" {
		query += fmt.Sprintf(` AND bill_type = $%d`, idx)
		countQuery += fmt.Sprintf(` AND bill_type = $%d`, idx)
		args = append(args, f.BillType)
		idx++
	}
	if f.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, idx)
		countQuery += fmt.Sprintf(` AND status = $%d`, idx)
		args = append(args, f.Status)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, b)
	}
	return items, total, nil
}

func (r *repoPG) UpdateGuarded(ctx context.Context, b *Bill) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE bill SET bill_number=$3, sub_total=$4, total_discount=$5, total_tax=$6,
			total_amount=$7, advance_deposit=$8, round_off=$9, net_amount=$10,
			paid_amount=$11, balance_due=$12, status=$13, notes=$14, generated_at=$15,
			version=version+1, updated_at=NOW()
		WHERE id = $1 AND version = $2`,
		b.ID, b.Version, b.BillNumber, b.SubTotal, b.TotalDiscount, b.TotalTax,
		b.TotalAmount, b.AdvanceDeposit, b.RoundOff, b.NetAmount,
		b.PaidAmount, b.BalanceDue, b.Status, b.Notes, b.GeneratedAt)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 1 {
		b.Version++
		return true, nil
	}
	return false, nil
}

func (r *repoPG) AddLineItem(ctx context.Context, li *LineItem) error {
	if li.ID == uuid.Nil {
		li.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO bill_line_item (id, bill_id, category, description, quantity,
			unit_price, discount_pct, tax_pct, tax_amount, line_total)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		li.ID, li.BillID, li.Category, li.Description, li.Quantity,
		li.UnitPrice, li.DiscountPct, li.TaxPct, li.TaxAmount, li.LineTotal)
	return err
}

func (r *repoPG) DeleteLineItem(ctx context.Context, billID, itemID uuid.UUID) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM bill_line_item WHERE id = $1 AND bill_id = $2`, itemID, billID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) AddPayment(ctx context.Context, p *Payment) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO bill_payment (id, bill_id, amount, method, reference, note, received_by, paid_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		p.ID, p.BillID, p.Amount, p.Method, p.Reference, p.Note, p.ReceivedBy, p.PaidAt)
	return err
}

func (r *repoPG) ListPayments(ctx context.Context, billID uuid.UUID) ([]*Payment, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, bill_id, amount, method, reference, note, received_by, paid_at
		FROM bill_payment WHERE bill_id = $1 ORDER BY paid_at`, billID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.BillID, &p.Amount, &p.Method, &p.Reference,
			&p.Note, &p.ReceivedBy, &p.PaidAt); err != nil {
			return nil, err
		}
		items = append(items, &p)
	}
	return items, nil
}

func (r *repoPG) Outstanding(ctx context.Context, patientID uuid.UUID) (*OutstandingSummary, error) {
	var s OutstandingSummary
	s.PatientID = patientID
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(net_amount), 0), COALESCE(SUM(paid_amount), 0),
			COALESCE(SUM(balance_due), 0)
		FROM bill
		WHERE patient_id = $1 AND status IN ('generated','partially-paid','overdue')`,
		patientID).Scan(&s.BillCount, &s.NetTotal, &s.PaidTotal, &s.BalanceDue)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repoPG) RevenueStats(ctx context.Context, since time.Time) (*RevenueStats, error) {
	conn := r.conn(ctx)
	var st RevenueStats
	err := conn.QueryRow(ctx, `
		SELECT COALESCE(SUM(paid_amount), 0) FROM bill
		WHERE status = 'paid' AND created_at >= $1`, since).Scan(&st.TotalRevenue)
	if err != nil {
		return nil, err
	}
	err = conn.QueryRow(ctx, `
		SELECT COALESCE(SUM(balance_due), 0) FROM bill
		WHERE status IN ('generated','partially-paid','overdue')`).Scan(&st.OutstandingBalance)
	if err != nil {
		return nil, err
	}

	rows, err := conn.Query(ctx, `
		SELECT bill_type, COUNT(*), COALESCE(SUM(net_amount), 0), COALESCE(SUM(paid_amount), 0)
		FROM bill WHERE created_at >= $1
		GROUP BY bill_type ORDER BY bill_type`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var b RevenueBucket
		if err := rows.Scan(&b.Key, &b.Count, &b.Total, &b.Paid); err != nil {
			return nil, err
		}
		st.ByType = append(st.ByType, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = conn.Query(ctx, `
		SELECT status, COUNT(*), COALESCE(SUM(net_amount), 0)
		FROM bill GROUP BY status ORDER BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var b StatusBucket
		if err := rows.Scan(&b.Key, &b.Count, &b.Total); err != nil {
			return nil, err
		}
		st.ByStatus = append(st.ByStatus, b)
	}
	return &st, rows.Err()
}
