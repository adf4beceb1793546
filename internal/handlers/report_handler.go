package handlers

import (
	"net/http"
	"strconv"

	"crm-backend/internal/services"
	"crm-backend/pkg/utils"
)

type ReportHandler struct {
	Service *services.InvoiceService
}

func NewReportHandler(service *services.InvoiceService) *ReportHandler {
	return &ReportHandler{Service: service}
}

// GetMonthlyRevenue returns payment totals grouped by month, or by payment
// method when a specific month is requested.
func (h *ReportHandler) GetMonthlyRevenue(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	year := 0
	if s := q.Get("year"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid year")
			return
		}
		year = v
	}

	month := 0
	if s := q.Get("month"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 || v > 12 {
			utils.Error(w, http.StatusBadRequest, "Invalid month")
			return
		}
		month = v
	}

	revenue, err := h.Service.GetMonthlyRevenue(r.Context(), year, month)
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.JSON(w, http.StatusOK, revenue)
}
