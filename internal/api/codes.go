package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/bher20/ubill/internal/accesscode"
	"github.com/bher20/ubill/internal/auth"
	"github.com/bher20/ubill/internal/metrics"
	"github.com/bher20/ubill/internal/storage"
)

// LoginRequest is the body for POST /api/v1/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func registerCodeRoutes(mux *http.ServeMux, codes *accesscode.Service, authSvc *auth.Service) {
	// Public code validation, mirrors the check the download route performs.
	mux.HandleFunc("/api/v1/codes/validate", func(w http.ResponseWriter, r *http.Request) {
		const path = "/api/v1/codes/validate"

		if r.Method != http.MethodPost {
			errorJSON(w, path, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Code string `json:"code"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errorJSON(w, path, "invalid request body", http.StatusBadRequest)
			return
		}
		valid, err := codes.Validate(r.Context(), req.Code)
		if err != nil {
			log.Printf("code validation failed: %v", err)
			errorJSON(w, path, "internal error", http.StatusInternalServerError)
			return
		}
		result := "invalid"
		if valid {
			result = "valid"
		}
		metrics.CodeValidationsTotal.WithLabelValues(result).Inc()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]bool{"valid": valid})
	})

	if authSvc == nil {
		return
	}

	mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		const path = "/api/v1/auth/login"

		if r.Method != http.MethodPost {
			errorJSON(w, path, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errorJSON(w, path, "invalid request body", http.StatusBadRequest)
			return
		}

		user, err := authSvc.Authenticate(r.Context(), req.Username, req.Password)
		if err != nil {
			errorJSON(w, path, "invalid credentials", http.StatusUnauthorized)
			return
		}

		_, raw, err := authSvc.CreateToken(r.Context(), user.ID, "login", user.Role, nil)
		if err != nil {
			log.Printf("token creation failed: %v", err)
			errorJSON(w, path, "internal error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"token":    raw,
			"username": user.Username,
			"role":     user.Role,
		})
	})

	mux.Handle("/api/v1/admin/codes", authSvc.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const path = "/api/v1/admin/codes"

		token, ok := r.Context().Value(auth.TokenContextKey).(*storage.Token)
		if !ok {
			errorJSON(w, path, "unauthorized", http.StatusUnauthorized)
			return
		}

		switch r.Method {
		case http.MethodGet:
			if !permit(authSvc, token, "codes", "read") {
				errorJSON(w, path, "forbidden", http.StatusForbidden)
				return
			}
			list, err := codes.List(r.Context())
			if err != nil {
				log.Printf("list codes failed: %v", err)
				errorJSON(w, path, "internal error", http.StatusInternalServerError)
				return
			}
			active, err := codes.Active(r.Context())
			if err != nil {
				log.Printf("get active code failed: %v", err)
				errorJSON(w, path, "internal error", http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"codes":  list,
				"active": active,
			})

		case http.MethodPost:
			if !permit(authSvc, token, "codes", "write") {
				errorJSON(w, path, "forbidden", http.StatusForbidden)
				return
			}
			var req struct {
				Code string `json:"code"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				errorJSON(w, path, "invalid request body", http.StatusBadRequest)
				return
			}
			if req.Code == "" {
				errorJSON(w, path, "code is required", http.StatusBadRequest)
				return
			}
			if err := codes.Add(r.Context(), req.Code); err != nil {
				log.Printf("add code failed: %v", err)
				errorJSON(w, path, "internal error", http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusOK)

		default:
			errorJSON(w, path, "method not allowed", http.StatusMethodNotAllowed)
		}
	})))

	mux.Handle("/api/v1/admin/codes/regenerate", authSvc.Middleware(authSvc.RequirePermission("codes", "write",
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const path = "/api/v1/admin/codes/regenerate"

			if r.Method != http.MethodPost {
				errorJSON(w, path, "method not allowed", http.StatusMethodNotAllowed)
				return
			}
			list, err := codes.Regenerate(r.Context())
			if err != nil {
				log.Printf("regenerate codes failed: %v", err)
				errorJSON(w, path, "internal error", http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"codes":  list,
				"active": list[0],
			})
		}))))

	mux.Handle("/api/v1/admin/codes/active", authSvc.Middleware(authSvc.RequirePermission("codes", "write",
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const path = "/api/v1/admin/codes/active"

			if r.Method != http.MethodPut {
				errorJSON(w, path, "method not allowed", http.StatusMethodNotAllowed)
				return
			}
			var req struct {
				Code string `json:"code"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				errorJSON(w, path, "invalid request body", http.StatusBadRequest)
				return
			}
			if req.Code == "" {
				errorJSON(w, path, "code is required", http.StatusBadRequest)
				return
			}
			if err := codes.SetActive(r.Context(), req.Code); err != nil {
				log.Printf("set active code failed: %v", err)
				errorJSON(w, path, "internal error", http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))))
}
