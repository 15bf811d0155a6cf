package lab

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

type testRepoPG struct{ pool *pgxpool.Pool }

func NewTestRepoPG(pool *pgxpool.Pool) TestRepository { return &testRepoPG{pool: pool} }

func (r *testRepoPG) conn(ctx context.Context) db.Querier {
	if q := db.QuerierFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

const testCols = `id, name, code, category, department, price, turnaround_time,
	sample_type, sample_volume, instructions, is_active, created_at, updated_at`

func scanTest(row pgx.Row) (*TestDef, error) {
	var t TestDef
	err := row.Scan(&t.ID, &t.Name, &t.Code, &t.Category, &t.Department, &t.Price,
		&t.TurnaroundTime, &t.SampleType, &t.SampleVolume, &t.Instructions,
		&t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("lab test not found")
	}
	return &t, err
}

func (r *testRepoPG) Create(ctx context.Context, t *TestDef) error {
	t.ID = uuid.New()
	conn := r.conn(ctx)
	_, err := conn.Exec(ctx, `
		INSERT INTO lab_test (id, name, code, category, department, price,
			turnaround_time, sample_type, sample_volume, instructions, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		t.ID, t.Name, t.Code, t.Category, t.Department, t.Price,
		t.TurnaroundTime, t.SampleType, t.SampleVolume, t.Instructions, t.IsActive)
	if err != nil {
		return err
	}
	return r.insertParameters(ctx, t)
}

func (r *testRepoPG) insertParameters(ctx context.Context, t *TestDef) error {
	conn := r.conn(ctx)
	for i := range t.Parameters {
		p := &t.Parameters[i]
		p.ID = uuid.New()
		p.TestID = t.ID
		if _, err := conn.Exec(ctx, `
			INSERT INTO lab_test_parameter (id, test_id, name, unit, male_min, male_max,
				female_min, female_max, child_min, child_max, method)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			p.ID, p.TestID, p.Name, p.Unit, p.MaleMin, p.MaleMax,
			p.FemaleMin, p.FemaleMax, p.ChildMin, p.ChildMax, p.Method); err != nil {
			return err
		}
	}
	return nil
}

func (r *testRepoPG) loadParameters(ctx context.Context, tests []*TestDef) error {
	for _, t := range tests {
		rows, err := r.conn(ctx).Query(ctx, `
			SELECT id, test_id, name, unit, male_min, male_max, female_min, female_max,
				child_min, child_max, method
			FROM lab_test_parameter WHERE test_id = $1 ORDER BY name`, t.ID)
		if err != nil {
			return err
		}
		for rows.Next() {
			var p Parameter
			if err := rows.Scan(&p.ID, &p.TestID, &p.Name, &p.Unit, &p.MaleMin, &p.MaleMax,
				&p.FemaleMin, &p.FemaleMax, &p.ChildMin, &p.ChildMax, &p.Method); err != nil {
				rows.Close()
				return err
			}
			t.Parameters = append(t.Parameters, p)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
	}
	return nil
}

func (r *testRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*TestDef, error) {
	t, err := scanTest(r.conn(ctx).QueryRow(ctx,
		`SELECT `+testCols+` FROM lab_test WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadParameters(ctx, []*TestDef{t}); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *testRepoPG) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*TestDef, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+testCols+` FROM lab_test WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*TestDef
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

func (r *testRepoPG) Update(ctx context.Context, t *TestDef) error {
	conn := r.conn(ctx)
	_, err := conn.Exec(ctx, `
		UPDATE lab_test SET name=$2, code=$3, category=$4, department=$5, price=$6,
			turnaround_time=$7, sample_type=$8, sample_volume=$9, instructions=$10,
			updated_at=NOW()
		WHERE id = $1`,
		t.ID, t.Name, t.Code, t.Category, t.Department, t.Price,
		t.TurnaroundTime, t.SampleType, t.SampleVolume, t.Instructions)
	if err != nil {
		return err
	}
	if _, err := conn.Exec(ctx, `DELETE FROM lab_test_parameter WHERE test_id = $1`, t.ID); err != nil {
		return err
	}
	return r.insertParameters(ctx, t)
}

func (r *testRepoPG) SetActive(ctx context.Context, id uuid.UUID, active bool) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE lab_test SET is_active = $2, updated_at = NOW() WHERE id = $1 AND is_active <> $2`,
		id, active)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *testRepoPG) List(ctx context.Context, f TestFilter) ([]*TestDef, error) {
	query := `SELECT ` + testCols + ` FROM lab_test WHERE 1=1`
	var args []interface{}
	idx := 1
	if f.ActiveOnly {
		query += ` AND is_active`
	}
	if f.Category != "" {
		query += fmt.Sprintf(` AND category = $%d`, idx)
		args = append(args, f.Category)
		idx++
	}
	if f.Search != "" {
		query += fmt.Sprintf(` AND name ILIKE $%d`, idx)
		args = append(args, "%"+f.Search+"%")
		idx++
	}
	query += ` ORDER BY name`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*TestDef
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadParameters(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

type orderRepoPG struct{ pool *pgxpool.Pool }

func NewOrderRepoPG(pool *pgxpool.Pool) OrderRepository { return &orderRepoPG{pool: pool} }

func (r *orderRepoPG) conn(ctx context.Context) db.Querier {
	if q := db.QuerierFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

const orderCols = `id, order_number, patient_id, ordered_by, source_type, source_ref,
	sample_collected, sample_collected_at, sample_collected_by, sample_barcode,
	total_amount, payment_status, status, report_ready_at, notes, registered_by,
	created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.OrderNumber, &o.PatientID, &o.OrderedBy, &o.SourceType,
		&o.SourceRef, &o.SampleCollected, &o.SampleCollectedAt, &o.SampleCollectedBy,
		&o.SampleBarcode, &o.TotalAmount, &o.PaymentStatus, &o.Status, &o.ReportReadyAt,
		&o.Notes, &o.RegisteredBy, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("lab order not found")
	}
	return &o, err
}

func (r *orderRepoPG) Create(ctx context.Context, o *Order) error {
	o.ID = uuid.New()
	conn := r.conn(ctx)
	_, err := conn.Exec(ctx, `
		INSERT INTO lab_order (id, order_number, patient_id, ordered_by, source_type,
			source_ref, total_amount, payment_status, status, notes, registered_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		o.ID, o.OrderNumber, o.PatientID, o.OrderedBy, o.SourceType,
		o.SourceRef, o.TotalAmount, o.PaymentStatus, o.Status, o.Notes, o.RegisteredBy)
	if err != nil {
		return err
	}
	for _, t := range o.Tests {
		t.ID = uuid.New()
		t.OrderID = o.ID
		if _, err := conn.Exec(ctx, `
			INSERT INTO lab_order_test (id, order_id, test_id, test_name, status, priority)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			t.ID, t.OrderID, t.TestID, t.TestName, t.Status, t.Priority); err != nil {
			return err
		}
	}
	return nil
}

func (r *orderRepoPG) loadTests(ctx context.Context, orders []*Order) error {
	conn := r.conn(ctx)
	for _, o := range orders {
		rows, err := conn.Query(ctx, `
			SELECT id, order_id, test_id, test_name, status, priority, report_notes,
				result_file, processed_by, processed_at, verified_by, verified_at
			FROM lab_order_test WHERE order_id = $1 ORDER BY test_name`, o.ID)
		if err != nil {
			return err
		}
		for rows.Next() {
			var t OrderTest
			if err := rows.Scan(&t.ID, &t.OrderID, &t.TestID, &t.TestName, &t.Status,
				&t.Priority, &t.ReportNotes, &t.ResultFile, &t.ProcessedBy, &t.ProcessedAt,
				&t.VerifiedBy, &t.VerifiedAt); err != nil {
				rows.Close()
				return err
			}
			o.Tests = append(o.Tests, &t)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		for _, t := range o.Tests {
			resRows, err := conn.Query(ctx, `
				SELECT id, order_test_id, parameter, value, unit, reference_range, flag
				FROM lab_result WHERE order_test_id = $1 ORDER BY parameter`, t.ID)
			if err != nil {
				return err
			}
			for resRows.Next() {
				var res Result
				if err := resRows.Scan(&res.ID, &res.OrderTestID, &res.Parameter, &res.Value,
					&res.Unit, &res.ReferenceRange, &res.Flag); err != nil {
					resRows.Close()
					return err
				}
				t.Results = append(t.Results, res)
			}
			resRows.Close()
			if err := resRows.Err(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *orderRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := scanOrder(r.conn(ctx).QueryRow(ctx,
		`SELECT `+orderCols+` FROM lab_order WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadTests(ctx, []*Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *orderRepoPG) GetByNumber(ctx context.Context, orderNumber string) (*Order, error) {
	o, err := scanOrder(r.conn(ctx).QueryRow(ctx,
		`SELECT `+orderCols+` FROM lab_order WHERE order_number = $1`, orderNumber))
	if err != nil {
		return nil, err
	}
	if err := r.loadTests(ctx, []*Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *orderRepoPG) List(ctx context.Context, f OrderFilter, limit, offset int) ([]*Order, int, error) {
	query := `SELECT ` + orderCols + ` FROM lab_order WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM lab_order WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, idx)
		countQuery += fmt.Sprintf(` AND status = $%d`, idx)
		args = append(args, f.Status)
		idx++
	}
	if f.PatientID != nil {
		query += fmt.Sprintf(` AND patient_id = $%d`, idx)
		countQuery += fmt.Sprintf(` AND patient_id = $%d`, idx)
		args = append(args, *f.PatientID)
		idx++
	}
	if f.OrderedOn != nil {
		day := f.OrderedOn.Truncate(24 * time.Hour)
		query += fmt.Sprintf(` AND created_at >= $%d AND created_at < $%d`, idx, idx+1)
		countQuery += fmt.Sprintf(` AND created_at >= $%d AND created_at < $%d`, idx, idx+1)
		args = append(args, day, day.Add(24*time.Hour))
		idx += 2
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
	var items []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if err := r.loadTests(ctx, items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *orderRepoPG) PendingQueue(ctx context.Context) ([]*Order, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+orderCols+` FROM lab_order
		WHERE status IN ('pending','in-progress') ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadTests(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *orderRepoPG) SetStatusGuarded(ctx context.Context, id uuid.UUID, from []string, to string) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE lab_order SET status = $3, updated_at = NOW() WHERE id = $1 AND status = ANY($2)`,
		id, from, to)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *orderRepoPG) SetPaymentStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE lab_order SET payment_status = $2, updated_at = NOW() WHERE id = $1`,
		id, status)
	return err
}

func (r *orderRepoPG) MarkSampleCollected(ctx context.Context, id uuid.UUID, by *uuid.UUID, barcode *string, at time.Time) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE lab_order SET sample_collected = TRUE, sample_collected_at = $2,
			sample_collected_by = $3, sample_barcode = $4, updated_at = NOW()
		WHERE id = $1`,
		id, at, by, barcode)
	return err
}

func (r *orderRepoPG) SetReportReady(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE lab_order SET report_ready_at = $2, updated_at = NOW() WHERE id = $1`,
		id, at)
	return err
}

func (r *orderRepoPG) SetTestStatusAll(ctx context.Context, orderID uuid.UUID, from, to string) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE lab_order_test SET status = $3 WHERE order_id = $1 AND status = $2`,
		orderID, from, to)
	return err
}

func (r *orderRepoPG) UpdateTest(ctx context.Context, t *OrderTest) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE lab_order_test SET status=$2, report_notes=$3, result_file=$4,
			processed_by=$5, processed_at=$6, verified_by=$7, verified_at=$8
		WHERE id = $1`,
		t.ID, t.Status, t.ReportNotes, t.ResultFile,
		t.ProcessedBy, t.ProcessedAt, t.VerifiedBy, t.VerifiedAt)
	return err
}

func (r *orderRepoPG) ReplaceResults(ctx context.Context, orderTestID uuid.UUID, results []Result) error {
	conn := r.conn(ctx)
	if _, err := conn.Exec(ctx, `DELETE FROM lab_result WHERE order_test_id = $1`, orderTestID); err != nil {
		return err
	}
	for i := range results {
		res := &results[i]
		res.ID = uuid.New()
		res.OrderTestID = orderTestID
		if _, err := conn.Exec(ctx, `
			INSERT INTO lab_result (id, order_test_id, parameter, value, unit, reference_range, flag)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			res.ID, res.OrderTestID, res.Parameter, res.Value, res.Unit, res.ReferenceRange, res.Flag); err != nil {
			return err
		}
	}
	return nil
}
