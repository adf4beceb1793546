package handlers

import (
	"encoding/json"
	"net/http"

	"crm-backend/internal/cache"
	"crm-backend/internal/middleware"
	"crm-backend/internal/models"
	"crm-backend/internal/services"
)

type PaymentHandler struct {
	Service *services.InvoiceService
}

func NewPaymentHandler(service *services.InvoiceService) *PaymentHandler {
	return &PaymentHandler{Service: service}
}

func (h *PaymentHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	invoiceID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid invoice ID", http.StatusBadRequest)
		return
	}

	var rec models.PaymentRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	rec.InvoiceID = invoiceID

	if userID, ok := middleware.GetUserIDFromContext(r.Context()); ok {
		rec.CreatedByID = userID
	}

	paymentID, err := h.Service.RecordPayment(r.Context(), rec)
	if err != nil {
		http.Error(w, err.Error(), statusCode(err))
		return
	}
	cache.InvalidateStatusSummary(r.Context())

	inv, err := h.Service.GetInvoice(r.Context(), invoiceID)
	if err != nil {
		http.Error(w, err.Error(), statusCode(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"payment_id": paymentID,
		"invoice":    inv,
	})
}

func (h *PaymentHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	invoiceID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid invoice ID", http.StatusBadRequest)
		return
	}

	payments, err := h.Service.GetInvoicePayments(r.Context(), invoiceID)
	if err != nil {
		http.Error(w, err.Error(), statusCode(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payments)
}

// DeletePayment reverses a payment. Only admins may delete payments.
func (h *PaymentHandler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	role, _ := middleware.GetRoleFromContext(r.Context())
	if role != "admin" {
		http.Error(w, "Admin access required", http.StatusForbidden)
		return
	}

	paymentID, err := pathID(r, "payment_id")
	if err != nil {
		http.Error(w, "Invalid payment ID", http.StatusBadRequest)
		return
	}

	if err := h.Service.DeletePayment(r.Context(), paymentID); err != nil {
		http.Error(w, err.Error(), statusCode(err))
		return
	}
	cache.InvalidateStatusSummary(r.Context())

	w.WriteHeader(http.StatusNoContent)
}
