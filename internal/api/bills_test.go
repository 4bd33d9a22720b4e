package api

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bher20/ubill/internal/accesscode"
	"github.com/bher20/ubill/internal/billing"
	"github.com/bher20/ubill/internal/notification"
	"github.com/bher20/ubill/internal/storage"
)

func testMux(t *testing.T) (*http.ServeMux, *storage.MemoryStorage, *accesscode.Service) {
	t.Helper()

	st := storage.NewMemory()
	codes := accesscode.NewService(st)
	if err := codes.Init(context.Background()); err != nil {
		t.Fatalf("codes.Init: %v", err)
	}

	rng := rand.New(rand.NewSource(1))
	clock := func() time.Time { return time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC) }
	builder := billing.NewBuilderWithSource(rng, clock)

	mux := http.NewServeMux()
	registerBillRoutes(mux, builder, st, codes, nil, notification.NewService(st))
	return mux, st, codes
}

func postJSON(t *testing.T, mux *http.ServeMux, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func validCustomer() billing.CustomerInfo {
	return billing.CustomerInfo{
		Name:    "John Mwangi",
		Address: "12 Riverside Dr",
		City:    "Nairobi",
		State:   "Nairobi",
		Zip:     "00100",
	}
}

func TestCreateBillArchivesRecord(t *testing.T) {
	mux, st, _ := testMux(t)

	rec := postJSON(t, mux, "/api/v1/bills", CreateBillRequest{
		Customer:    validCustomer(),
		Type:        "water",
		UsageAmount: 100,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var data billing.BillData
	if err := json.Unmarshal(rec.Body.Bytes(), &data); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if data.Bill.BillNumber == "" || data.Bill.BillNumber[0] != 'W' {
		t.Errorf("bill number = %q, want W prefix", data.Bill.BillNumber)
	}
	if data.Bill.Amount != 14720 {
		t.Errorf("amount = %v, want 14720", data.Bill.Amount)
	}

	saved, err := st.GetBill(context.Background(), data.Bill.BillNumber)
	if err != nil {
		t.Fatalf("GetBill: %v", err)
	}
	if saved == nil {
		t.Fatal("bill was not archived")
	}
	if saved.UtilityType != "water" {
		t.Errorf("archived type = %q, want water", saved.UtilityType)
	}
}

func TestCreateBillMissingFields(t *testing.T) {
	mux, _, _ := testMux(t)

	customer := validCustomer()
	customer.Address = ""
	customer.Zip = ""

	rec := postJSON(t, mux, "/api/v1/bills", CreateBillRequest{
		Customer:    customer,
		Type:        "electricity",
		UsageAmount: 50,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	var resp struct {
		Fields []string `json:"fields"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	want := []string{"address", "zip"}
	if len(resp.Fields) != len(want) {
		t.Fatalf("fields = %v, want %v", resp.Fields, want)
	}
	for i := range want {
		if resp.Fields[i] != want[i] {
			t.Fatalf("fields = %v, want %v", resp.Fields, want)
		}
	}
}

func TestCreateBillUnknownType(t *testing.T) {
	mux, _, _ := testMux(t)

	rec := postJSON(t, mux, "/api/v1/bills", CreateBillRequest{
		Customer:    validCustomer(),
		Type:        "gas",
		UsageAmount: 10,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRecalculateClampsNegativeDelta(t *testing.T) {
	mux, _, _ := testMux(t)

	create := postJSON(t, mux, "/api/v1/bills", CreateBillRequest{
		Customer:    validCustomer(),
		Type:        "water",
		UsageAmount: 100,
	})
	var data billing.BillData
	if err := json.Unmarshal(create.Body.Bytes(), &data); err != nil {
		t.Fatalf("decode create response: %v", err)
	}

	rec := postJSON(t, mux, "/api/v1/bills/recalculate", RecalculateRequest{
		Bill:            data.Bill,
		PreviousReading: 500,
		CurrentReading:  300,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var updated billing.BillInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if updated.UsageAmount != 0 {
		t.Errorf("usage = %v, want 0 after clamp", updated.UsageAmount)
	}
	if updated.BillNumber != data.Bill.BillNumber {
		t.Errorf("bill number changed: %q -> %q", data.Bill.BillNumber, updated.BillNumber)
	}
}

func TestDownloadRejectsInvalidCode(t *testing.T) {
	mux, _, _ := testMux(t)

	create := postJSON(t, mux, "/api/v1/bills", CreateBillRequest{
		Customer:    validCustomer(),
		Type:        "water",
		UsageAmount: 100,
	})
	var data billing.BillData
	if err := json.Unmarshal(create.Body.Bytes(), &data); err != nil {
		t.Fatalf("decode create response: %v", err)
	}

	rec := postJSON(t, mux, "/api/v1/bills/download", DownloadRequest{
		AccessCode: "WRONG123",
		BillNumber: data.Bill.BillNumber,
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestDownloadStreamsPDF(t *testing.T) {
	mux, _, codes := testMux(t)

	create := postJSON(t, mux, "/api/v1/bills", CreateBillRequest{
		Customer:    validCustomer(),
		Type:        "electricity",
		UsageAmount: 500,
	})
	var data billing.BillData
	if err := json.Unmarshal(create.Body.Bytes(), &data); err != nil {
		t.Fatalf("decode create response: %v", err)
	}

	active, err := codes.Active(context.Background())
	if err != nil {
		t.Fatalf("Active: %v", err)
	}

	rec := postJSON(t, mux, "/api/v1/bills/download", DownloadRequest{
		AccessCode: active,
		BillNumber: data.Bill.BillNumber,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type = %q, want application/pdf", ct)
	}
	wantName := "electricity-bill-" + data.Bill.BillNumber + ".pdf"
	if cd := rec.Header().Get("Content-Disposition"); cd != "attachment; filename="+wantName {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Error("body is not a PDF document")
	}
}

func TestGetBillNotFoundWithoutAuth(t *testing.T) {
	mux, _, _ := testMux(t)

	// No auth service wired, reads on the archive are refused.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/bills/W1234567", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}
