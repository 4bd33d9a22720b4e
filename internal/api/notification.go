package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/bher20/ubill/internal/auth"
	"github.com/bher20/ubill/internal/notification"
	"github.com/bher20/ubill/internal/storage"
)

func registerNotificationRoutes(mux *http.ServeMux, authSvc *auth.Service, notifSvc *notification.Service) {
	if authSvc == nil {
		return
	}

	mux.Handle("/api/v1/settings/email", authSvc.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const path = "/api/v1/settings/email"

		token, ok := r.Context().Value(auth.TokenContextKey).(*storage.Token)
		if !ok {
			errorJSON(w, path, "unauthorized", http.StatusUnauthorized)
			return
		}

		switch r.Method {
		case http.MethodGet:
			if !permit(authSvc, token, "settings", "read") {
				errorJSON(w, path, "forbidden", http.StatusForbidden)
				return
			}
			cfg, err := notifSvc.GetConfig(r.Context())
			if err != nil {
				log.Printf("get email config failed: %v", err)
				errorJSON(w, path, "internal error", http.StatusInternalServerError)
				return
			}
			if cfg == nil {
				cfg = &storage.EmailConfig{}
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(cfg)

		case http.MethodPut:
			if !permit(authSvc, token, "settings", "write") {
				errorJSON(w, path, "forbidden", http.StatusForbidden)
				return
			}
			var req storage.EmailConfig
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				errorJSON(w, path, "invalid request body", http.StatusBadRequest)
				return
			}
			if err := notifSvc.SaveConfig(r.Context(), req); err != nil {
				log.Printf("save email config failed: %v", err)
				errorJSON(w, path, err.Error(), http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusOK)

		default:
			errorJSON(w, path, "method not allowed", http.StatusMethodNotAllowed)
		}
	})))

	mux.Handle("/api/v1/settings/email/test", authSvc.Middleware(authSvc.RequirePermission("settings", "write",
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const path = "/api/v1/settings/email/test"

			if r.Method != http.MethodPost {
				errorJSON(w, path, "method not allowed", http.StatusMethodNotAllowed)
				return
			}
			var req struct {
				Config storage.EmailConfig `json:"config"`
				To     string              `json:"to"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				errorJSON(w, path, "invalid request body", http.StatusBadRequest)
				return
			}
			if err := notifSvc.TestConfig(r.Context(), req.Config, req.To); err != nil {
				errorJSON(w, path, err.Error(), http.StatusBadRequest)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))))
}

func permit(authSvc *auth.Service, token *storage.Token, obj, act string) bool {
	allowed, err := authSvc.Enforce(token.UserID, obj, act)
	if err != nil {
		log.Printf("enforce %s %s failed: %v", obj, act, err)
		return false
	}
	return allowed
}
