package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-backend/internal/clock"
	"crm-backend/internal/models"
	"crm-backend/internal/services"
)

var testNow = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

func testInvoice() *models.Invoice {
	return &models.Invoice{
		ID:            3,
		InvoiceNumber: "INV-20240601-0003",
		ClientID:      12,
		DueDate:       time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
		BalanceDue:    decimal.NewFromInt(100),
	}
}

func TestSendInvoiceEmail(t *testing.T) {
	var got emailRequest
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	s := NewSender(server.URL, "secret", "AKC LLC Construction", clock.Fixed{T: testNow})

	t.Run("new invoice", func(t *testing.T) {
		require.NoError(t, s.SendInvoiceEmail(context.Background(), testInvoice(), services.EmailNew))

		assert.Equal(t, "Bearer secret", auth)
		assert.Equal(t, 12, got.ClientID)
		assert.Equal(t, "invoice_new", got.Template)
		assert.Equal(t, "Invoice #INV-20240601-0003 from AKC LLC Construction", got.Subject)
	})

	t.Run("reminder includes days overdue", func(t *testing.T) {
		require.NoError(t, s.SendInvoiceEmail(context.Background(), testInvoice(), services.EmailReminder))

		assert.Equal(t, "invoice_reminder", got.Template)
		assert.Equal(t, "Reminder: Invoice #INV-20240601-0003 is 5 days overdue", got.Subject)
	})

	t.Run("receipt", func(t *testing.T) {
		require.NoError(t, s.SendInvoiceEmail(context.Background(), testInvoice(), services.EmailReceipt))

		assert.Equal(t, "invoice_receipt", got.Template)
		assert.Equal(t, "Payment Receipt for Invoice #INV-20240601-0003", got.Subject)
	})
}

func TestSendInvoiceEmailErrors(t *testing.T) {
	t.Run("unconfigured sender is a no-op", func(t *testing.T) {
		s := NewSender("", "", "AKC LLC Construction", clock.Fixed{T: testNow})
		assert.NoError(t, s.SendInvoiceEmail(context.Background(), testInvoice(), services.EmailNew))
	})

	t.Run("non-2xx response is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		s := NewSender(server.URL, "secret", "AKC LLC Construction", clock.Fixed{T: testNow})
		assert.Error(t, s.SendInvoiceEmail(context.Background(), testInvoice(), services.EmailNew))
	})
}
