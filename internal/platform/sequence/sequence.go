// Package sequence allocates gapless human-readable record numbers such as
// admission and bill numbers. Counters live in a database table and advance
// through a single atomic upsert, so concurrent allocations never collide.
package sequence

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hms/hms/internal/platform/db"
)

const nextSQL = `
	INSERT INTO sequence_counters (scope, value)
	VALUES ($1, 1)
	ON CONFLICT (scope) DO UPDATE SET value = sequence_counters.value + 1
	RETURNING value`

// Allocator hands out monotonically increasing numbers per scope.
type Allocator struct {
	pool *pgxpool.Pool
}

func NewAllocator(pool *pgxpool.Pool) *Allocator {
	return &Allocator{pool: pool}
}

func (a *Allocator) conn(ctx context.Context) db.Querier {
	if q := db.QuerierFromContext(ctx); q != nil {
		return q
	}
	return a.pool
}

// Next returns the next value for the given scope, starting at 1.
func (a *Allocator) Next(ctx context.Context, scope string) (int64, error) {
	var value int64
	if err := a.conn(ctx).QueryRow(ctx, nextSQL, scope).Scan(&value); err != nil {
		return 0, fmt.Errorf("advancing sequence %q: %w", scope, err)
	}
	return value, nil
}

// NextAdmissionNumber returns ids of the form IPD-2025-000042, scoped per year.
func (a *Allocator) NextAdmissionNumber(ctx context.Context, now time.Time) (string, error) {
	year := now.Year()
	n, err := a.Next(ctx, fmt.Sprintf("ipd:%d", year))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("IPD-%d-%06d", year, n), nil
}

// NextBillNumber returns ids of the form BILL-2025-000042, scoped per year.
func (a *Allocator) NextBillNumber(ctx context.Context, now time.Time) (string, error) {
	year := now.Year()
	n, err := a.Next(ctx, fmt.Sprintf("bill:%d", year))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("BILL-%d-%06d", year, n), nil
}

// NextEmergencyNumber returns ids of the form EM-20250817-0042, scoped per day.
func (a *Allocator) NextEmergencyNumber(ctx context.Context, now time.Time) (string, error) {
	day := now.Format("20060102")
	n, err := a.Next(ctx, "em:"+day)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("EM-%s-%04d", day, n), nil
}

// NextPatientNumber returns ids of the form PAT-2025-000042, scoped per year.
func (a *Allocator) NextPatientNumber(ctx context.Context, now time.Time) (string, error) {
	year := now.Year()
	n, err := a.Next(ctx, fmt.Sprintf("pat:%d", year))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("PAT-%d-%06d", year, n), nil
}

// NextDoctorNumber returns ids of the form DOC-00042.
func (a *Allocator) NextDoctorNumber(ctx context.Context) (string, error) {
	n, err := a.Next(ctx, "doctor")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("DOC-%05d", n), nil
}

// NextStaffNumber returns ids of the form STF-00042.
func (a *Allocator) NextStaffNumber(ctx context.Context) (string, error) {
	n, err := a.Next(ctx, "staff")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("STF-%05d", n), nil
}

// NextAppointmentNumber returns ids of the form APT-0000042.
func (a *Allocator) NextAppointmentNumber(ctx context.Context) (string, error) {
	n, err := a.Next(ctx, "appointment")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("APT-%07d", n), nil
}

// NextLabOrderNumber returns ids of the form LAB-2025-000042, scoped per year.
func (a *Allocator) NextLabOrderNumber(ctx context.Context, now time.Time) (string, error) {
	year := now.Year()
	n, err := a.Next(ctx, fmt.Sprintf("lab:%d", year))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("LAB-%d-%06d", year, n), nil
}

// NextOPDVisitNumber returns ids of the form OPD-202508-00042, scoped per month.
func (a *Allocator) NextOPDVisitNumber(ctx context.Context, now time.Time) (string, error) {
	month := now.Format("200601")
	n, err := a.Next(ctx, "opdvisit:"+month)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("OPD-%s-%05d", month, n), nil
}

// NextOPDToken returns the next queue token for one doctor on one day.
func (a *Allocator) NextOPDToken(ctx context.Context, doctorID string, day time.Time) (int, error) {
	scope := fmt.Sprintf("opd:%s:%s", doctorID, day.Format("20060102"))
	n, err := a.Next(ctx, scope)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
