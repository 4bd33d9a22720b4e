package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bher20/ubill/internal/accesscode"
	"github.com/bher20/ubill/internal/api/swagger"
	"github.com/bher20/ubill/internal/auth"
	"github.com/bher20/ubill/internal/billing"
	"github.com/bher20/ubill/internal/cron"
	"github.com/bher20/ubill/internal/metrics"
	migrate "github.com/bher20/ubill/internal/migrate"
	"github.com/bher20/ubill/internal/notification"
	"github.com/bher20/ubill/internal/payment"
	"github.com/bher20/ubill/internal/storage"
	"github.com/bher20/ubill/internal/ui"
)

// NewMux constructs the HTTP mux, wiring in storage, the billing services,
// metrics, and health endpoints.
func NewMux() *http.ServeMux {
	ctx := context.Background()

	driver := os.Getenv("UBILL_DB_DRIVER")
	dsn := os.Getenv("UBILL_DB_DSN")
	if driver == "" {
		driver = "sqlite"
	}
	if dsn == "" {
		dsn = "ubill.db"
	}

	// Optional auto-migration: run `goose up` on startup when enabled.
	if truthy(os.Getenv("UBILL_AUTO_MIGRATE")) && driver != "memory" {
		if err := migrate.Up(ctx, driver, dsn); err != nil {
			log.Printf("auto-migration failed: %v", err)
		}
	}

	st, err := storage.Open(ctx, storage.Config{Driver: driver, DSN: dsn})
	if err != nil {
		log.Printf("storage.Open failed (driver=%s dsn=%s): %v; falling back to in-memory storage", driver, dsn, err)
		st = storage.NewMemory()
	} else {
		log.Printf("storage backend ready driver=%s", driver)
	}

	codes := accesscode.NewService(st)
	if err := codes.Init(ctx); err != nil {
		log.Printf("access code seeding failed: %v", err)
	}

	var authSvc *auth.Service
	if svc, err := auth.NewService(st); err != nil {
		log.Printf("auth service init failed: %v; admin API disabled", err)
	} else {
		authSvc = svc
		adminUser := os.Getenv("UBILL_ADMIN_USER")
		adminPass := os.Getenv("UBILL_ADMIN_PASSWORD")
		if adminUser == "" {
			adminUser = "admin"
		}
		if adminPass == "" {
			adminPass = "Bruce@254"
		}
		if err := authSvc.SeedAdmin(ctx, adminUser, adminPass); err != nil {
			log.Printf("admin seeding failed: %v", err)
		}
	}

	notifSvc := notification.NewService(st)
	paySvc := payment.NewService(codes)
	builder := billing.NewBuilder()

	mux := http.NewServeMux()

	// Metrics endpoint.
	mux.Handle("/metrics", promhttp.Handler())

	// Health / readiness / liveness.
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := st.Ping(r.Context()); err != nil {
			log.Printf("readyz: db ping failed: %v", err)
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("live"))
	})

	registerBillRoutes(mux, builder, st, codes, authSvc, notifSvc)
	registerPaymentRoutes(mux, paySvc)
	registerCodeRoutes(mux, codes, authSvc)
	registerNotificationRoutes(mux, authSvc, notifSvc)

	// API documentation.
	mux.Handle("/swagger/", http.StripPrefix("/swagger", swagger.Handler()))

	// Web UI
	mux.Handle("/ui/", http.StripPrefix("/ui/", ui.Handler()))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/ui/", http.StatusFound)
	})

	// Background access-code rotation, single-flight via advisory lock.
	if truthy(os.Getenv("UBILL_CODE_ROTATE_ENABLED")) {
		go func() {
			if err := cron.Run(context.Background(), st, codes); err != nil && err != context.Canceled {
				log.Printf("rotation worker stopped: %v", err)
			}
		}()
	}

	return mux
}

func truthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// errorJSON writes a JSON error body and records the error metric.
func errorJSON(w http.ResponseWriter, path, msg string, code int) {
	metrics.RequestErrorsTotal.WithLabelValues(path, strconv.Itoa(code)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
