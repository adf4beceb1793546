package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"crm-backend/internal/cache"
	"crm-backend/internal/middleware"
	"crm-backend/internal/models"
	"crm-backend/internal/services"
	"crm-backend/internal/timeutil"
)

type InvoiceHandler struct {
	Service *services.InvoiceService
	PDF     *services.PDFService
}

func NewInvoiceHandler(service *services.InvoiceService, pdf *services.PDFService) *InvoiceHandler {
	return &InvoiceHandler{Service: service, PDF: pdf}
}

// statusCode maps service errors to HTTP status codes
func statusCode(err error) int {
	switch {
	case errors.Is(err, services.ErrInvoiceNotFound),
		errors.Is(err, services.ErrPaymentNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvoiceNotDraft),
		errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrMissingClient):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *InvoiceHandler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var rec models.InvoiceRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if userID, ok := middleware.GetUserIDFromContext(r.Context()); ok {
		rec.CreatedByID = &userID
	}

	id, err := h.Service.CreateInvoice(r.Context(), rec)
	if err != nil {
		http.Error(w, err.Error(), statusCode(err))
		return
	}
	cache.InvalidateStatusSummary(r.Context())

	inv, err := h.Service.GetInvoice(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), statusCode(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(inv)
}

func (h *InvoiceHandler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid invoice ID", http.StatusBadRequest)
		return
	}

	inv, err := h.Service.GetInvoice(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), statusCode(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(inv)
}

func (h *InvoiceHandler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	filter := models.InvoiceFilter{}
	q := r.URL.Query()

	if s := q.Get("status"); s != "" {
		filter.Status = models.InvoiceStatus(s)
	}
	if s := q.Get("client_id"); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			filter.ClientID = v
		}
	}
	if s := q.Get("project_id"); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			filter.ProjectID = v
		}
	}
	if s := q.Get("date_from"); s != "" {
		if d, err := timeutil.ParseDate(s); err == nil {
			filter.DateFrom = &d
		}
	}
	if s := q.Get("date_to"); s != "" {
		if d, err := timeutil.ParseDate(s); err == nil {
			filter.DateTo = &d
		}
	}
	if s := q.Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			filter.Limit = v
		}
	}
	if s := q.Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			filter.Offset = v
		}
	}

	invoices, err := h.Service.ListInvoices(r.Context(), filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(invoices)
}

func (h *InvoiceHandler) UpdateInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid invoice ID", http.StatusBadRequest)
		return
	}

	var rec models.InvoiceRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	inv, err := h.Service.UpdateInvoice(r.Context(), id, rec)
	if err != nil {
		http.Error(w, err.Error(), statusCode(err))
		return
	}
	cache.InvalidateStatusSummary(r.Context())

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(inv)
}

// DeleteInvoice removes a draft invoice. Only admins may delete.
func (h *InvoiceHandler) DeleteInvoice(w http.ResponseWriter, r *http.Request) {
	role, _ := middleware.GetRoleFromContext(r.Context())
	if role != "admin" {
		http.Error(w, "Admin access required", http.StatusForbidden)
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid invoice ID", http.StatusBadRequest)
		return
	}

	if err := h.Service.DeleteInvoice(r.Context(), id); err != nil {
		http.Error(w, err.Error(), statusCode(err))
		return
	}
	cache.InvalidateStatusSummary(r.Context())

	w.WriteHeader(http.StatusNoContent)
}

func (h *InvoiceHandler) MarkSent(w http.ResponseWriter, r *http.Request) {
	h.markAndRespond(w, r, h.Service.MarkInvoiceAsSent)
}

func (h *InvoiceHandler) MarkViewed(w http.ResponseWriter, r *http.Request) {
	h.markAndRespond(w, r, h.Service.MarkInvoiceAsViewed)
}

func (h *InvoiceHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid invoice ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	if err := h.Service.MarkInvoiceAsCancelled(r.Context(), id, req.Reason); err != nil {
		http.Error(w, err.Error(), statusCode(err))
		return
	}
	cache.InvalidateStatusSummary(r.Context())
	h.respondWithInvoice(w, r, id)
}

func (h *InvoiceHandler) SendReminder(w http.ResponseWriter, r *http.Request) {
	h.markAndRespond(w, r, h.Service.SendInvoiceReminder)
}

func (h *InvoiceHandler) GetOverdue(w http.ResponseWriter, r *http.Request) {
	invoices, err := h.Service.GetOverdueInvoices(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(invoices)
}

func (h *InvoiceHandler) GetUpcoming(w http.ResponseWriter, r *http.Request) {
	days := 7
	if s := r.URL.Query().Get("days"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			days = v
		}
	}

	invoices, err := h.Service.GetUpcomingInvoices(r.Context(), days)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(invoices)
}

// GetStatusSummary returns invoice counts and totals grouped by status.
// The aggregate is cached with a short TTL since the dashboard polls it.
func (h *InvoiceHandler) GetStatusSummary(w http.ResponseWriter, r *http.Request) {
	if cached := cache.GetStatusSummary(r.Context()); cached != nil {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Cache", "HIT")
		json.NewEncoder(w).Encode(cached)
		return
	}

	summary, err := h.Service.GetInvoicesByStatus(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	cache.SetStatusSummary(r.Context(), summary)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", "MISS")
	json.NewEncoder(w).Encode(summary)
}

// DownloadPDF streams the invoice as a PDF attachment
func (h *InvoiceHandler) DownloadPDF(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid invoice ID", http.StatusBadRequest)
		return
	}

	data, err := h.PDF.GenerateInvoicePDF(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), statusCode(err))
		return
	}

	inv, _ := h.Service.GetInvoice(r.Context(), id)
	filename := fmt.Sprintf("invoice_%d.pdf", id)
	if inv != nil {
		filename = fmt.Sprintf("invoice_%s.pdf", inv.InvoiceNumber)
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Write(data)
}

func (h *InvoiceHandler) markAndRespond(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id int) error) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid invoice ID", http.StatusBadRequest)
		return
	}

	if err := op(r.Context(), id); err != nil {
		http.Error(w, err.Error(), statusCode(err))
		return
	}
	cache.InvalidateStatusSummary(r.Context())
	h.respondWithInvoice(w, r, id)
}

func (h *InvoiceHandler) respondWithInvoice(w http.ResponseWriter, r *http.Request, id int) {
	inv, err := h.Service.GetInvoice(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), statusCode(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(inv)
}

func pathID(r *http.Request, key string) (int, error) {
	return strconv.Atoi(mux.Vars(r)[key])
}
