package handlers

import (
	"encoding/json"
	"net/http"

	"crm-backend/internal/services"
)

type GatewayHandler struct {
	Gateway *services.PaymentGateway
}

func NewGatewayHandler(gateway *services.PaymentGateway) *GatewayHandler {
	return &GatewayHandler{Gateway: gateway}
}

// GetStatus tells the frontend whether online payments are available
func (h *GatewayHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"enabled": h.Gateway.IsEnabled()})
}

// CreateOrder creates a gateway order for an invoice's outstanding balance
func (h *GatewayHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	invoiceID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid invoice ID", http.StatusBadRequest)
		return
	}

	resp, err := h.Gateway.CreateOrder(r.Context(), invoiceID)
	if err != nil {
		http.Error(w, err.Error(), statusCode(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// VerifyPayment handles the checkout callback and records the payment
func (h *GatewayHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req services.VerifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	inv, err := h.Gateway.VerifyPayment(r.Context(), &req)
	if err != nil {
		http.Error(w, err.Error(), statusCode(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(inv)
}
