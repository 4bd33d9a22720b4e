package pdfgen

import (
	"bytes"
	"io"
	"math/rand"
	"strings"
	"testing"
	"time"

	ledongthuc "github.com/ledongthuc/pdf"

	"github.com/bher20/ubill/internal/billing"
)

func frozenBill(t *testing.T, ty billing.UtilityType, usage float64) billing.BillData {
	t.Helper()
	fixed := time.Date(2025, 3, 15, 10, 30, 0, 0, time.UTC)
	b := billing.NewBuilderWithSource(rand.New(rand.NewSource(1)), func() time.Time { return fixed })
	data, err := b.Build(billing.CustomerInfo{
		Name:    "Jane Wanjiku",
		Address: "12 Riverside Drive",
		City:    "Nairobi",
		State:   "Nairobi County",
		Zip:     "00100",
	}, ty, usage)
	if err != nil {
		t.Fatalf("build bill: %v", err)
	}
	return data
}

// extractText pulls the plain text back out of a rendered document.
func extractText(t *testing.T, doc []byte) string {
	t.Helper()
	r, err := ledongthuc.NewReader(bytes.NewReader(doc), int64(len(doc)))
	if err != nil {
		t.Fatalf("open rendered pdf: %v", err)
	}
	rc, err := r.GetPlainText()
	if err != nil {
		t.Fatalf("extract pdf text: %v", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rc); err != nil {
		t.Fatalf("read pdf text: %v", err)
	}
	return buf.String()
}

// Repeated renders guard against hidden wall-clock state and map-ordered
// object emission, both of which vary between runs rather than between a
// single pair of renders.
func TestRender_Deterministic(t *testing.T) {
	data := frozenBill(t, billing.Water, 100)

	base, err := Render(data)
	if err != nil {
		t.Fatalf("first render: %v", err)
	}
	for i := 1; i < 50; i++ {
		doc, err := Render(data)
		if err != nil {
			t.Fatalf("render %d: %v", i, err)
		}
		if !bytes.Equal(base, doc) {
			for j := range base {
				if j >= len(doc) || base[j] != doc[j] {
					t.Fatalf("render %d differs from first at byte %d (%d vs %d bytes total)", i, j, len(base), len(doc))
				}
			}
			t.Fatalf("render %d differs from first (%d vs %d bytes)", i, len(base), len(doc))
		}
	}
}

func TestRender_WaterBillContent(t *testing.T) {
	data := frozenBill(t, billing.Water, 100)
	doc, err := Render(data)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	text := extractText(t, doc)
	for _, want := range []string{
		"WATER BILL",
		data.Bill.BillNumber,
		"Pure Water Utilities Inc.",
		"Jane Wanjiku",
		"Sewage Charges",
		"Service Charge",
		"VAT (16%)",
		"Tax Levy (5%)",
		"Total Amount Due:",
		FormatCurrency(data.Bill.TotalDue),
		FormatDate(data.Bill.DueDate),
	} {
		if !strings.Contains(text, want) {
			t.Errorf("rendered document missing %q", want)
		}
	}
}

func TestRender_ElectricityCharges(t *testing.T) {
	data := frozenBill(t, billing.Electricity, 500)
	doc, err := Render(data)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	text := extractText(t, doc)
	for _, want := range []string{"ELECTRICITY BILL", "ERC Levy", "REP Levy", "500 kWh"} {
		if !strings.Contains(text, want) {
			t.Errorf("rendered document missing %q", want)
		}
	}
	if strings.Contains(text, "Sewage Charges") {
		t.Errorf("electricity bill should not carry water charges")
	}
}

func TestRender_ZeroFixedChargeRowOmitted(t *testing.T) {
	data := frozenBill(t, billing.Water, 100)
	data.Bill.FixedCharges = []billing.ChargeLine{
		{Name: "Sewage Charges", Amount: 100},
		{Name: "Service Charge", Amount: 0},
	}

	doc, err := Render(data)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	text := extractText(t, doc)
	if strings.Contains(text, "Service Charge") {
		t.Errorf("zero-amount charge row should be omitted")
	}
	if !strings.Contains(text, "Sewage Charges") {
		t.Errorf("non-zero charge row missing")
	}
}

func TestRender_SurvivesBadLogo(t *testing.T) {
	for name, logo := range map[string][]byte{
		"missing": nil,
		"corrupt": []byte("definitely not a png"),
	} {
		data := frozenBill(t, billing.Water, 100)
		data.Company.Logo = logo

		doc, err := Render(data)
		if err != nil {
			t.Fatalf("%s logo: render failed: %v", name, err)
		}
		if !strings.Contains(extractText(t, doc), "WATER BILL") {
			t.Errorf("%s logo: document content lost", name)
		}
	}
}

func TestFilename(t *testing.T) {
	data := frozenBill(t, billing.Water, 100)
	got := Filename(data)
	want := "water-bill-" + data.Bill.BillNumber + ".pdf"
	if got != want {
		t.Errorf("filename = %q, want %q", got, want)
	}
}

func TestLayoutCursorAdvance(t *testing.T) {
	cur := LayoutCursor(100)
	cur = cur.Advance(5).Advance(5)
	if cur.Y() != 110 {
		t.Errorf("cursor = %v, want 110", cur.Y())
	}
}
