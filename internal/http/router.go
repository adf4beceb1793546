package http

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"crm-backend/internal/handlers"
	"crm-backend/internal/middleware"
)

func NewRouter(
	invoiceHandler *handlers.InvoiceHandler,
	paymentHandler *handlers.PaymentHandler,
	gatewayHandler *handlers.GatewayHandler,
	reportHandler *handlers.ReportHandler,
	healthHandler *handlers.HealthHandler,
	authMiddleware *middleware.AuthMiddleware,
) *mux.Router {
	r := mux.NewRouter()

	// Protected API routes - Invoices
	invoicesAPI := r.PathPrefix("/api/invoices").Subrouter()
	invoicesAPI.Use(authMiddleware.Authenticate)
	invoicesAPI.HandleFunc("", invoiceHandler.ListInvoices).Methods("GET")
	invoicesAPI.HandleFunc("", invoiceHandler.CreateInvoice).Methods("POST")
	invoicesAPI.HandleFunc("/overdue", invoiceHandler.GetOverdue).Methods("GET")
	invoicesAPI.HandleFunc("/upcoming", invoiceHandler.GetUpcoming).Methods("GET")
	invoicesAPI.HandleFunc("/status-summary", invoiceHandler.GetStatusSummary).Methods("GET")
	invoicesAPI.HandleFunc("/{id}", invoiceHandler.GetInvoice).Methods("GET")
	invoicesAPI.HandleFunc("/{id}", invoiceHandler.UpdateInvoice).Methods("PUT")
	invoicesAPI.HandleFunc("/{id}", invoiceHandler.DeleteInvoice).Methods("DELETE")
	invoicesAPI.HandleFunc("/{id}/send", invoiceHandler.MarkSent).Methods("POST")
	invoicesAPI.HandleFunc("/{id}/view", invoiceHandler.MarkViewed).Methods("POST")
	invoicesAPI.HandleFunc("/{id}/cancel", invoiceHandler.Cancel).Methods("POST")
	invoicesAPI.HandleFunc("/{id}/remind", invoiceHandler.SendReminder).Methods("POST")
	invoicesAPI.HandleFunc("/{id}/pdf", invoiceHandler.DownloadPDF).Methods("GET")

	// Protected API routes - Payments (nested under invoices)
	invoicesAPI.HandleFunc("/{id}/payments", paymentHandler.ListPayments).Methods("GET")
	invoicesAPI.HandleFunc("/{id}/payments", paymentHandler.RecordPayment).Methods("POST")

	paymentsAPI := r.PathPrefix("/api/payments").Subrouter()
	paymentsAPI.Use(authMiddleware.Authenticate)
	paymentsAPI.HandleFunc("/{payment_id}", paymentHandler.DeletePayment).Methods("DELETE")

	// Protected API routes - Reports
	reportsAPI := r.PathPrefix("/api/reports").Subrouter()
	reportsAPI.Use(authMiddleware.Authenticate)
	reportsAPI.HandleFunc("/monthly-revenue", reportHandler.GetMonthlyRevenue).Methods("GET")

	// Online payment routes - the status and verify endpoints are public
	// since checkout callbacks arrive without a user session
	r.HandleFunc("/api/gateway/status", gatewayHandler.GetStatus).Methods("GET")
	r.HandleFunc("/api/gateway/verify", gatewayHandler.VerifyPayment).Methods("POST")

	gatewayAPI := r.PathPrefix("/api/gateway").Subrouter()
	gatewayAPI.Use(authMiddleware.Authenticate)
	gatewayAPI.HandleFunc("/invoices/{id}/order", gatewayHandler.CreateOrder).Methods("POST")

	// Health endpoints (no auth required - for Kubernetes probes)
	r.HandleFunc("/health", healthHandler.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", healthHandler.ReadinessHealth).Methods("GET")
	r.HandleFunc("/health/detailed", healthHandler.DetailedHealth).Methods("GET")

	// Metrics endpoint (Prometheus format)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
