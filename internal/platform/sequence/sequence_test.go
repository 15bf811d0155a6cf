package sequence

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hms/hms/internal/platform/db"
)

// fakeCounter implements db.Querier over an in-memory scope map.
type fakeCounter struct {
	mu     sync.Mutex
	values map[string]int64
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{values: make(map[string]int64)}
}

type fakeRow struct {
	value int64
}

func (r fakeRow) Scan(dest ...interface{}) error {
	*(dest[0].(*int64)) = r.value
	return nil
}

func (f *fakeCounter) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	f.mu.Lock()
	defer f.mu.Unlock()
	scope := args[0].(string)
	f.values[scope]++
	return fakeRow{value: f.values[scope]}
}

func (f *fakeCounter) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	return nil, nil
}

func (f *fakeCounter) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func testContext(f *fakeCounter) context.Context {
	return db.WithQuerier(context.Background(), f)
}

func TestNextIsMonotonicPerScope(t *testing.T) {
	a := NewAllocator(nil)
	ctx := testContext(newFakeCounter())

	for want := int64(1); want <= 3; want++ {
		got, err := a.Next(ctx, "ipd:2025")
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("Next = %d, want %d", got, want)
		}
	}

	got, err := a.Next(ctx, "bill:2025")
	if err != nil {
		t.Fatal(err)
	}
	if got != 1 {
		t.Errorf("independent scope should start at 1, got %d", got)
	}
}

func TestNumberFormats(t *testing.T) {
	a := NewAllocator(nil)
	ctx := testContext(newFakeCounter())
	at := time.Date(2025, 8, 17, 10, 0, 0, 0, time.UTC)

	adm, err := a.NextAdmissionNumber(ctx, at)
	if err != nil {
		t.Fatal(err)
	}
	if adm != "IPD-2025-000001" {
		t.Errorf("admission number = %q", adm)
	}

	bill, err := a.NextBillNumber(ctx, at)
	if err != nil {
		t.Fatal(err)
	}
	if bill != "BILL-2025-000001" {
		t.Errorf("bill number = %q", bill)
	}

	em, err := a.NextEmergencyNumber(ctx, at)
	if err != nil {
		t.Fatal(err)
	}
	if em != "EM-20250817-0001" {
		t.Errorf("emergency number = %q", em)
	}

	pat, err := a.NextPatientNumber(ctx, at)
	if err != nil {
		t.Fatal(err)
	}
	if pat != "PAT-2025-000001" {
		t.Errorf("patient number = %q", pat)
	}

	doc, err := a.NextDoctorNumber(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if doc != "DOC-00001" {
		t.Errorf("doctor number = %q", doc)
	}

	stf, err := a.NextStaffNumber(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stf != "STF-00001" {
		t.Errorf("staff number = %q", stf)
	}
}

func TestOPDTokenScopedPerDoctorAndDay(t *testing.T) {
	a := NewAllocator(nil)
	ctx := testContext(newFakeCounter())
	day := time.Date(2025, 8, 17, 0, 0, 0, 0, time.UTC)

	t1, _ := a.NextOPDToken(ctx, "doc-1", day)
	t2, _ := a.NextOPDToken(ctx, "doc-1", day)
	t3, _ := a.NextOPDToken(ctx, "doc-2", day)

	if t1 != 1 || t2 != 2 {
		t.Errorf("doc-1 tokens = %d, %d; want 1, 2", t1, t2)
	}
	if t3 != 1 {
		t.Errorf("doc-2 token = %d; want 1", t3)
	}
}
