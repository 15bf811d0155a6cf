package billing

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeLine(t *testing.T) {
	li := LineItem{Quantity: 2, UnitPrice: 100, DiscountPct: 10, TaxPct: 5}
	ComputeLine(&li)

	// 2*100 = 200, minus 10% = 180, tax 5% = 9, total 189.
	require.InDelta(t, 9.0, li.TaxAmount, 1e-9)
	require.InDelta(t, 189.0, li.LineTotal, 1e-9)
}

func TestComputeLineNoDiscountNoTax(t *testing.T) {
	li := LineItem{Quantity: 3, UnitPrice: 50}
	ComputeLine(&li)
	require.InDelta(t, 0.0, li.TaxAmount, 1e-9)
	require.InDelta(t, 150.0, li.LineTotal, 1e-9)
}

func TestRecomputeTotals(t *testing.T) {
	b := &Bill{
		Status: StatusGenerated,
		Items: []LineItem{
			{Quantity: 2, UnitPrice: 100, DiscountPct: 10, TaxPct: 5},
			{Quantity: 1, UnitPrice: 250},
		},
	}
	RecomputeTotals(b)

	require.InDelta(t, 450.0, b.SubTotal, 1e-9)
	require.InDelta(t, 20.0, b.TotalDiscount, 1e-9)
	require.InDelta(t, 9.0, b.TotalTax, 1e-9)
	require.InDelta(t, 439.0, b.TotalAmount, 1e-9)
	require.InDelta(t, 439.0, b.NetAmount, 1e-9)
	require.InDelta(t, 439.0, b.BalanceDue, 1e-9)
}

func TestRecomputeTotalsRoundOff(t *testing.T) {
	b := &Bill{
		Status: StatusGenerated,
		Items:  []LineItem{{Quantity: 1, UnitPrice: 100, TaxPct: 18.5}},
	}
	RecomputeTotals(b)

	// 100 + 18.50 tax = 118.50, rounds to 119 with +0.50 round off.
	require.InDelta(t, 119.0, b.NetAmount, 1e-9)
	require.InDelta(t, 0.5, b.RoundOff, 1e-9)
	// Stored figures reconcile: net = total - advance + round_off.
	require.InDelta(t, b.NetAmount, b.TotalAmount-b.AdvanceDeposit+b.RoundOff, 1e-9)
}

func TestRecomputeTotalsAdvanceDeposit(t *testing.T) {
	b := &Bill{
		Status:         StatusGenerated,
		AdvanceDeposit: 200,
		Items:          []LineItem{{Quantity: 1, UnitPrice: 500}},
	}
	RecomputeTotals(b)
	require.InDelta(t, 300.0, b.NetAmount, 1e-9)
	require.InDelta(t, 300.0, b.BalanceDue, 1e-9)
}

func TestPartialThenFinalPayment(t *testing.T) {
	b := &Bill{
		Status: StatusGenerated,
		Items:  []LineItem{{Quantity: 2, UnitPrice: 100, DiscountPct: 10, TaxPct: 5}},
	}
	RecomputeTotals(b)
	require.InDelta(t, 189.0, b.NetAmount, 1e-9)

	b.PaidAmount += 100
	RecomputeTotals(b)
	require.Equal(t, StatusPartiallyPaid, b.Status)
	require.InDelta(t, 89.0, b.BalanceDue, 1e-9)

	b.PaidAmount += 89
	RecomputeTotals(b)
	require.Equal(t, StatusPaid, b.Status)
	require.InDelta(t, 0.0, b.BalanceDue, 1e-9)
}

func TestDeriveStatus(t *testing.T) {
	cases := []struct {
		name    string
		current string
		paid    float64
		net     float64
		want    string
	}{
		{"unpaid stays generated", StatusGenerated, 0, 100, StatusGenerated},
		{"partial", StatusGenerated, 40, 100, StatusPartiallyPaid},
		{"settled", StatusPartiallyPaid, 100, 100, StatusPaid},
		{"overpaid still settled", StatusPartiallyPaid, 120, 100, StatusPaid},
		{"zero net settles", StatusGenerated, 0, 0, StatusPaid},
		{"draft untouched", StatusDraft, 0, 100, StatusDraft},
		{"overdue stays overdue while unpaid", StatusOverdue, 0, 100, StatusOverdue},
		{"overdue advances on payment", StatusOverdue, 40, 100, StatusPartiallyPaid},
		{"cancelled is terminal", StatusCancelled, 100, 100, StatusCancelled},
		{"refunded is terminal", StatusRefunded, 100, 100, StatusRefunded},
		{"written off is terminal", StatusWrittenOff, 0, 100, StatusWrittenOff},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, DeriveStatus(tc.current, tc.paid, tc.net))
		})
	}
}

// Incremental payment application and a from-scratch recompute must agree on
// every derived figure.
func TestIncrementalMatchesFullRecompute(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 100; trial++ {
		var items []LineItem
		n := 1 + rng.Intn(6)
		for i := 0; i < n; i++ {
			items = append(items, LineItem{
				Quantity:    float64(1 + rng.Intn(5)),
				UnitPrice:   float64(rng.Intn(10000)) / 10,
				DiscountPct: float64(rng.Intn(50)),
				TaxPct:      float64(rng.Intn(28)),
			})
		}
		advance := float64(rng.Intn(500))

		incremental := &Bill{Status: StatusGenerated, AdvanceDeposit: advance, Items: append([]LineItem(nil), items...)}
		RecomputeTotals(incremental)
		var paid float64
		for incremental.BalanceDue > 0 && paid < incremental.NetAmount {
			step := incremental.BalanceDue
			if rng.Intn(2) == 0 {
				step = float64(int(incremental.BalanceDue / 2))
				if step <= 0 {
					step = incremental.BalanceDue
				}
			}
			paid += step
			incremental.PaidAmount += step
			RecomputeTotals(incremental)
		}

		full := &Bill{Status: StatusGenerated, AdvanceDeposit: advance, Items: append([]LineItem(nil), items...), PaidAmount: paid}
		RecomputeTotals(full)

		require.InDelta(t, full.NetAmount, incremental.NetAmount, 1e-6)
		require.InDelta(t, full.BalanceDue, incremental.BalanceDue, 1e-6)
		require.Equal(t, full.Status, incremental.Status)
	}
}
