package billing

import (
	"errors"
	"math"
	"testing"
)

func TestCompute_Water(t *testing.T) {
	bill, err := Compute(Water, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if bill.SubTotal != 12000 {
		t.Errorf("subTotal = %v, want 12000", bill.SubTotal)
	}
	if bill.VAT != 1920 {
		t.Errorf("vat = %v, want 1920", bill.VAT)
	}
	if bill.TaxLevy != 600 {
		t.Errorf("taxLevy = %v, want 600", bill.TaxLevy)
	}
	if got := bill.FixedChargesTotal(); got != 200 {
		t.Errorf("fixed charges total = %v, want 200", got)
	}
	if bill.Amount != 14720 {
		t.Errorf("amount = %v, want 14720", bill.Amount)
	}

	want := []string{"Sewage Charges", "Service Charge"}
	if len(bill.FixedCharges) != len(want) {
		t.Fatalf("expected %d fixed charges, got %d", len(want), len(bill.FixedCharges))
	}
	for i, name := range want {
		if bill.FixedCharges[i].Name != name {
			t.Errorf("fixed charge %d = %q, want %q", i, bill.FixedCharges[i].Name, name)
		}
	}
}

func TestCompute_Electricity(t *testing.T) {
	bill, err := Compute(Electricity, 500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 500 kWh at 24 lands on the same totals as 100 gallons at 120.
	if bill.SubTotal != 12000 || bill.VAT != 1920 || bill.TaxLevy != 600 || bill.Amount != 14720 {
		t.Errorf("unexpected breakdown: %+v", bill)
	}
	if bill.FixedCharges[0].Name != "ERC Levy" || bill.FixedCharges[1].Name != "REP Levy" {
		t.Errorf("unexpected fixed charges: %+v", bill.FixedCharges)
	}
}

func TestCompute_NegativeUsageRejected(t *testing.T) {
	if _, err := Compute(Water, -1); !errors.Is(err, ErrInvalidUsage) {
		t.Fatalf("expected ErrInvalidUsage, got %v", err)
	}
}

func TestCompute_AmountInvariant(t *testing.T) {
	for _, ty := range []UtilityType{Water, Electricity} {
		for _, usage := range []float64{0, 1, 37.5, 100, 941, 12345.678} {
			bill, err := Compute(ty, usage)
			if err != nil {
				t.Fatalf("Compute(%s, %v) failed: %v", ty, usage, err)
			}
			sum := bill.SubTotal + bill.VAT + bill.TaxLevy + bill.FixedChargesTotal()
			if bill.Amount != sum {
				t.Errorf("Compute(%s, %v): amount %v != component sum %v", ty, usage, bill.Amount, sum)
			}
		}
	}
}

func TestRecalculate_ReadingDelta(t *testing.T) {
	bill, err := Compute(Water, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bill.BillNumber = "W0000001"
	bill.PreviousBalance = 500
	bill.TotalDue = bill.Amount + bill.PreviousBalance

	out := Recalculate(bill, 1200, 1250)
	if out.UsageAmount != 50 {
		t.Errorf("usage = %v, want 50", out.UsageAmount)
	}
	if out.SubTotal != 6000 {
		t.Errorf("subTotal = %v, want 6000", out.SubTotal)
	}
	if out.TotalDue != out.Amount+500 {
		t.Errorf("totalDue = %v, want amount+500 = %v", out.TotalDue, out.Amount+500)
	}
	if out.BillNumber != "W0000001" || out.PreviousBalance != 500 {
		t.Errorf("frozen fields changed: %+v", out)
	}
}

func TestRecalculate_ClampsNegativeDelta(t *testing.T) {
	bill, _ := Compute(Electricity, 500)

	out := Recalculate(bill, 5000, 4000)
	if out.UsageAmount != 0 {
		t.Errorf("usage = %v, want 0", out.UsageAmount)
	}
	if out.SubTotal != 0 || out.VAT != 0 || out.TaxLevy != 0 {
		t.Errorf("zero-usage baseline violated: %+v", out)
	}
	// Only the fixed charges remain.
	if out.Amount != out.FixedChargesTotal() {
		t.Errorf("amount = %v, want fixed charges %v", out.Amount, out.FixedChargesTotal())
	}
}

func TestRecalculate_Idempotent(t *testing.T) {
	cases := []struct {
		prev, cur float64
	}{
		{1200, 1300},
		{1200, 1200},
		{1300, 1200}, // clamped
		{0, 12345.25},
	}
	for _, tc := range cases {
		bill, _ := Compute(Water, 100)
		bill.PreviousBalance = 4999
		bill.TotalDue = bill.Amount + bill.PreviousBalance

		once := Recalculate(bill, tc.prev, tc.cur)
		twice := Recalculate(once, tc.prev, tc.cur)
		if once.UsageAmount != twice.UsageAmount ||
			math.Float64bits(once.SubTotal) != math.Float64bits(twice.SubTotal) ||
			math.Float64bits(once.VAT) != math.Float64bits(twice.VAT) ||
			math.Float64bits(once.TaxLevy) != math.Float64bits(twice.TaxLevy) ||
			math.Float64bits(once.Amount) != math.Float64bits(twice.Amount) ||
			math.Float64bits(once.TotalDue) != math.Float64bits(twice.TotalDue) {
			t.Errorf("recalculate(%v, %v) not idempotent: %+v vs %+v", tc.prev, tc.cur, once, twice)
		}
	}
}

func TestLookup_TotalOverBothTypes(t *testing.T) {
	if Lookup(Water).UnitPrice != 120 {
		t.Errorf("water unit price = %v, want 120", Lookup(Water).UnitPrice)
	}
	if Lookup(Electricity).UnitPrice != 24 {
		t.Errorf("electricity unit price = %v, want 24", Lookup(Electricity).UnitPrice)
	}
}
