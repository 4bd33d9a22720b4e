package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/bher20/ubill/internal/metrics"
	"github.com/bher20/ubill/internal/payment"
)

func registerPaymentRoutes(mux *http.ServeMux, paySvc *payment.Service) {
	mux.HandleFunc("/api/v1/payments", func(w http.ResponseWriter, r *http.Request) {
		const path = "/api/v1/payments"

		if r.Method != http.MethodPost {
			errorJSON(w, path, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req payment.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errorJSON(w, path, "invalid request body", http.StatusBadRequest)
			return
		}

		res, err := paySvc.Initiate(r.Context(), req)
		metrics.PaymentsTotal.WithLabelValues(string(res.Status)).Inc()
		if err != nil {
			if errors.Is(err, payment.ErrInvalidPhone) {
				errorJSON(w, path, err.Error(), http.StatusBadRequest)
				return
			}
			log.Printf("payment initiation failed: %v", err)
			errorJSON(w, path, "internal error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(res)
	})
}
