package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"crm-backend/internal/auth"
	"crm-backend/internal/cache"
	"crm-backend/internal/clock"
	"crm-backend/internal/config"
	"crm-backend/internal/database"
	"crm-backend/internal/db"
	"crm-backend/internal/email"
	"crm-backend/internal/handlers"
	"crm-backend/internal/health"
	h "crm-backend/internal/http"
	"crm-backend/internal/middleware"
	"crm-backend/internal/repositories"
	"crm-backend/internal/services"
)

func main() {
	port := flag.Int("port", 0, "Server port (overrides config)")
	memory := flag.Bool("memory", false, "Run with the in-memory store (no PostgreSQL required)")
	flag.Parse()

	cfg := config.Load()
	if *port != 0 {
		cfg.Server.Port = *port
	}

	clk := clock.System{}

	// Connect to PostgreSQL unless in-memory mode was requested. A failed
	// connection falls back to the in-memory store so the API stays usable
	// in development.
	var store services.Store
	healthChecker := health.NewHealthChecker(nil)

	if !*memory {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		pool, err := db.Connect(ctx, cfg)
		cancel()
		if err != nil {
			log.Printf("[DB] Connection failed: %v (falling back to in-memory store)", err)
		} else {
			defer pool.Close()

			migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := database.NewMigrator(pool).RunMigrations(migrateCtx); err != nil {
				log.Fatalf("Failed to run migrations: %v", err)
			}

			store = repositories.NewInvoiceRepository(pool)
			healthChecker = health.NewHealthChecker(pool)
		}
	}
	if store == nil {
		log.Println("[Store] Using in-memory store")
		store = repositories.NewMemoryStore()
	}

	// Redis cache is optional - graceful fallback if unavailable
	if err := cache.Init(cfg); err != nil {
		log.Printf("[Redis] Cache unavailable: %v (summary queries will hit the store)", err)
	} else {
		log.Println("[Redis] Cache connected successfully")
	}

	jwtManager := auth.NewJWTManager(cfg)

	notifier := email.NewSender(cfg.Mail.APIURL, cfg.Mail.APIKey, cfg.Mail.CompanyName, clk)
	invoiceService := services.NewInvoiceService(store, notifier, clk)
	pdfService := services.NewPDFService(invoiceService, cfg.Mail.CompanyName)
	gateway := services.NewPaymentGateway(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret, invoiceService)

	invoiceHandler := handlers.NewInvoiceHandler(invoiceService, pdfService)
	paymentHandler := handlers.NewPaymentHandler(invoiceService)
	gatewayHandler := handlers.NewGatewayHandler(gateway)
	reportHandler := handlers.NewReportHandler(invoiceService)
	healthHandler := handlers.NewHealthHandler(healthChecker)

	authMiddleware := middleware.NewAuthMiddleware(jwtManager)
	corsMiddleware := middleware.NewCORS(cfg)

	router := h.NewRouter(
		invoiceHandler,
		paymentHandler,
		gatewayHandler,
		reportHandler,
		healthHandler,
		authMiddleware,
	)

	handler := middleware.PanicRecovery(middleware.MetricsMiddleware(corsMiddleware(router)))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("CRM backend running on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
