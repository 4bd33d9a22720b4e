package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/bher20/ubill/internal/accesscode"
	"github.com/bher20/ubill/internal/auth"
	"github.com/bher20/ubill/internal/billing"
	"github.com/bher20/ubill/internal/metrics"
	"github.com/bher20/ubill/internal/notification"
	"github.com/bher20/ubill/internal/pdfgen"
	"github.com/bher20/ubill/internal/storage"
)

// CreateBillRequest is the body for POST /api/v1/bills.
type CreateBillRequest struct {
	Customer    billing.CustomerInfo `json:"customer"`
	Type        string               `json:"type"`
	UsageAmount float64              `json:"usageAmount"`
}

// RecalculateRequest replays a pair of meter readings against an issued bill.
type RecalculateRequest struct {
	Bill            billing.BillInfo `json:"bill"`
	PreviousReading float64          `json:"previousReading"`
	CurrentReading  float64          `json:"currentReading"`
}

// DownloadRequest gates document download behind an access code. Either
// BillNumber (archived bill) or Data (inline bill) must be set.
type DownloadRequest struct {
	AccessCode string            `json:"accessCode"`
	BillNumber string            `json:"billNumber,omitempty"`
	Data       *billing.BillData `json:"data,omitempty"`
}

// EmailBillRequest sends an archived bill's document to a recipient.
type EmailBillRequest struct {
	BillNumber string `json:"billNumber"`
	To         string `json:"to"`
	Subject    string `json:"subject,omitempty"`
	Body       string `json:"body,omitempty"`
}

type billHandler struct {
	builder *billing.Builder
	st      storage.Storage
	codes   *accesscode.Service
	authSvc *auth.Service
	notif   *notification.Service
}

func registerBillRoutes(mux *http.ServeMux, builder *billing.Builder, st storage.Storage, codes *accesscode.Service, authSvc *auth.Service, notif *notification.Service) {
	h := &billHandler{builder: builder, st: st, codes: codes, authSvc: authSvc, notif: notif}

	withAuth := func(handler http.HandlerFunc) http.Handler {
		if authSvc == nil {
			return handler
		}
		return authSvc.Middleware(handler)
	}

	mux.Handle("/api/v1/bills", withAuth(h.handleBills))
	mux.HandleFunc("/api/v1/bills/recalculate", h.handleRecalculate)
	mux.HandleFunc("/api/v1/bills/download", h.handleDownload)
	mux.Handle("/api/v1/bills/email", withAuth(h.handleEmail))
	mux.Handle("/api/v1/bills/", withAuth(h.handleGetBill))
}

// handleBills serves POST (public bill generation) and GET (authenticated
// listing) on the collection route.
func (h *billHandler) handleBills(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createBill(w, r)
	case http.MethodGet:
		h.listBills(w, r)
	default:
		errorJSON(w, "/api/v1/bills", "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *billHandler) createBill(w http.ResponseWriter, r *http.Request) {
	const path = "/api/v1/bills"

	var req CreateBillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, path, "invalid request body", http.StatusBadRequest)
		return
	}

	t, err := billing.ParseUtilityType(req.Type)
	if err != nil {
		errorJSON(w, path, err.Error(), http.StatusBadRequest)
		return
	}

	data, err := h.builder.Build(req.Customer, t, req.UsageAmount)
	if err != nil {
		var mf *billing.MissingFieldsError
		if errors.As(err, &mf) {
			w.Header().Set("Content-Type", "application/json")
			metrics.RequestErrorsTotal.WithLabelValues(path, "400").Inc()
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error":  mf.Error(),
				"fields": mf.Fields,
			})
			return
		}
		if errors.Is(err, billing.ErrInvalidUsage) {
			errorJSON(w, path, err.Error(), http.StatusBadRequest)
			return
		}
		log.Printf("bill build failed: %v", err)
		errorJSON(w, path, "internal error", http.StatusInternalServerError)
		return
	}

	payload, err := json.Marshal(data)
	if err != nil {
		log.Printf("bill payload marshal failed: %v", err)
		errorJSON(w, path, "internal error", http.StatusInternalServerError)
		return
	}
	rec := storage.BillRecord{
		BillNumber:  data.Bill.BillNumber,
		UtilityType: string(t),
		Payload:     payload,
		CreatedAt:   data.Bill.BillDate,
	}
	if err := h.st.SaveBill(r.Context(), rec); err != nil {
		log.Printf("bill archive failed: %v", err)
		errorJSON(w, path, "internal error", http.StatusInternalServerError)
		return
	}

	metrics.BillsGeneratedTotal.WithLabelValues(string(t)).Inc()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

func (h *billHandler) listBills(w http.ResponseWriter, r *http.Request) {
	const path = "/api/v1/bills"

	if !h.enforce(r, "bills", "read") {
		errorJSON(w, path, "forbidden", http.StatusForbidden)
		return
	}

	recs, err := h.st.ListBills(r.Context())
	if err != nil {
		log.Printf("list bills failed: %v", err)
		errorJSON(w, path, "internal error", http.StatusInternalServerError)
		return
	}
	if recs == nil {
		recs = []storage.BillRecord{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(recs)
}

// handleGetBill serves GET /api/v1/bills/{billNumber}.
func (h *billHandler) handleGetBill(w http.ResponseWriter, r *http.Request) {
	const path = "/api/v1/bills/{billNumber}"

	if r.Method != http.MethodGet {
		errorJSON(w, path, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !h.enforce(r, "bills", "read") {
		errorJSON(w, path, "forbidden", http.StatusForbidden)
		return
	}

	billNumber := strings.TrimPrefix(r.URL.Path, "/api/v1/bills/")
	if billNumber == "" || strings.Contains(billNumber, "/") {
		http.NotFound(w, r)
		return
	}

	data, err := h.loadBill(r, billNumber)
	if err != nil {
		log.Printf("get bill %s failed: %v", billNumber, err)
		errorJSON(w, path, "internal error", http.StatusInternalServerError)
		return
	}
	if data == nil {
		errorJSON(w, path, "bill not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

func (h *billHandler) handleRecalculate(w http.ResponseWriter, r *http.Request) {
	const path = "/api/v1/bills/recalculate"

	if r.Method != http.MethodPost {
		errorJSON(w, path, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req RecalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, path, "invalid request body", http.StatusBadRequest)
		return
	}
	if _, err := billing.ParseUtilityType(string(req.Bill.Type)); err != nil {
		errorJSON(w, path, err.Error(), http.StatusBadRequest)
		return
	}

	updated := billing.Recalculate(req.Bill, req.PreviousReading, req.CurrentReading)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(updated)
}

func (h *billHandler) handleDownload(w http.ResponseWriter, r *http.Request) {
	const path = "/api/v1/bills/download"

	if r.Method != http.MethodPost {
		errorJSON(w, path, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req DownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, path, "invalid request body", http.StatusBadRequest)
		return
	}

	valid, err := h.codes.Validate(r.Context(), req.AccessCode)
	if err != nil {
		log.Printf("access code validation failed: %v", err)
		errorJSON(w, path, "internal error", http.StatusInternalServerError)
		return
	}
	if !valid {
		metrics.CodeValidationsTotal.WithLabelValues("invalid").Inc()
		errorJSON(w, path, accesscode.ErrInvalidCode.Error(), http.StatusForbidden)
		return
	}
	metrics.CodeValidationsTotal.WithLabelValues("valid").Inc()

	data := req.Data
	if data == nil {
		if req.BillNumber == "" {
			errorJSON(w, path, "billNumber or data is required", http.StatusBadRequest)
			return
		}
		data, err = h.loadBill(r, req.BillNumber)
		if err != nil {
			log.Printf("load bill %s failed: %v", req.BillNumber, err)
			errorJSON(w, path, "internal error", http.StatusInternalServerError)
			return
		}
		if data == nil {
			errorJSON(w, path, "bill not found", http.StatusNotFound)
			return
		}
	} else {
		// Inline payloads never carry logo bytes.
		data.Company = billing.CompanyFor(data.Bill.Type)
	}

	h.streamDocument(w, path, *data)
}

func (h *billHandler) handleEmail(w http.ResponseWriter, r *http.Request) {
	const path = "/api/v1/bills/email"

	if r.Method != http.MethodPost {
		errorJSON(w, path, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !h.enforce(r, "bills", "write") {
		errorJSON(w, path, "forbidden", http.StatusForbidden)
		return
	}

	var req EmailBillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, path, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.BillNumber == "" || req.To == "" {
		errorJSON(w, path, "billNumber and to are required", http.StatusBadRequest)
		return
	}

	data, err := h.loadBill(r, req.BillNumber)
	if err != nil {
		log.Printf("load bill %s failed: %v", req.BillNumber, err)
		errorJSON(w, path, "internal error", http.StatusInternalServerError)
		return
	}
	if data == nil {
		errorJSON(w, path, "bill not found", http.StatusNotFound)
		return
	}

	doc, err := h.render(*data)
	if err != nil {
		log.Printf("render bill %s failed: %v", req.BillNumber, err)
		errorJSON(w, path, "internal error", http.StatusInternalServerError)
		return
	}

	subject := req.Subject
	if subject == "" {
		subject = fmt.Sprintf("%s bill %s", data.Bill.Type.Label(), data.Bill.BillNumber)
	}
	body := req.Body
	if body == "" {
		body = fmt.Sprintf("Please find attached %s bill %s, due %s.",
			strings.ToLower(data.Bill.Type.Label()), data.Bill.BillNumber,
			pdfgen.FormatDate(data.Bill.DueDate))
	}

	if err := h.notif.SendBill(r.Context(), req.To, subject, body, pdfgen.Filename(*data), doc); err != nil {
		log.Printf("email bill %s failed: %v", req.BillNumber, err)
		errorJSON(w, path, err.Error(), http.StatusBadGateway)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// loadBill reads an archived record and reattaches the issuing company,
// whose logo bytes are never serialized. Returns (nil, nil) when not found.
func (h *billHandler) loadBill(r *http.Request, billNumber string) (*billing.BillData, error) {
	rec, err := h.st.GetBill(r.Context(), billNumber)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	var data billing.BillData
	if err := json.Unmarshal(rec.Payload, &data); err != nil {
		return nil, err
	}
	data.Company = billing.CompanyFor(data.Bill.Type)
	return &data, nil
}

func (h *billHandler) render(data billing.BillData) ([]byte, error) {
	start := time.Now()
	doc, err := pdfgen.Render(data)
	if err != nil {
		return nil, err
	}
	metrics.RendersTotal.WithLabelValues(string(data.Bill.Type)).Inc()
	metrics.RenderDurationSeconds.WithLabelValues(string(data.Bill.Type)).Observe(time.Since(start).Seconds())
	return doc, nil
}

func (h *billHandler) streamDocument(w http.ResponseWriter, path string, data billing.BillData) {
	doc, err := h.render(data)
	if err != nil {
		log.Printf("render bill %s failed: %v", data.Bill.BillNumber, err)
		errorJSON(w, path, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", pdfgen.Filename(data)))
	_, _ = w.Write(doc)
}

// enforce checks the token in the request context against the RBAC policy.
// Requests without a token are always refused.
func (h *billHandler) enforce(r *http.Request, obj, act string) bool {
	if h.authSvc == nil {
		return false
	}
	token, ok := r.Context().Value(auth.TokenContextKey).(*storage.Token)
	if !ok {
		return false
	}
	allowed, err := h.authSvc.Enforce(token.UserID, obj, act)
	if err != nil {
		log.Printf("enforce %s %s failed: %v", obj, act, err)
		return false
	}
	return allowed
}
