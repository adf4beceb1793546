package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-backend/internal/models"
	"crm-backend/internal/services"
)

func seedInvoice(t *testing.T, s *MemoryStore, clientID int, status models.InvoiceStatus, issue string) int {
	t.Helper()
	issueDate, err := time.Parse("2006-01-02", issue)
	require.NoError(t, err)

	inv, err := models.NewInvoice(clientID, issueDate, issueDate.AddDate(0, 0, 30), issueDate)
	require.NoError(t, err)
	inv.Status = status
	inv.TotalAmount = decimal.NewFromInt(100)
	inv.BalanceDue = decimal.NewFromInt(100)

	id, err := s.InsertInvoice(context.Background(), inv)
	require.NoError(t, err)
	return id
}

func TestMemoryStoreListInvoices(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	a := seedInvoice(t, s, 1, models.StatusDraft, "2024-06-01")
	b := seedInvoice(t, s, 1, models.StatusSent, "2024-06-10")
	c := seedInvoice(t, s, 2, models.StatusSent, "2024-06-05")

	t.Run("newest issue date first", func(t *testing.T) {
		got, err := s.ListInvoices(ctx, models.InvoiceFilter{})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, []int{b, c, a}, []int{got[0].ID, got[1].ID, got[2].ID})
	})

	t.Run("filter by status", func(t *testing.T) {
		got, err := s.ListInvoices(ctx, models.InvoiceFilter{Status: models.StatusSent})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("filter by client", func(t *testing.T) {
		got, err := s.ListInvoices(ctx, models.InvoiceFilter{ClientID: 2})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, c, got[0].ID)
	})

	t.Run("date range", func(t *testing.T) {
		from := time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC)
		to := time.Date(2024, 6, 6, 0, 0, 0, 0, time.UTC)
		got, err := s.ListInvoices(ctx, models.InvoiceFilter{DateFrom: &from, DateTo: &to})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, c, got[0].ID)
	})

	t.Run("pagination", func(t *testing.T) {
		got, err := s.ListInvoices(ctx, models.InvoiceFilter{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, got, 2)

		got, err = s.ListInvoices(ctx, models.InvoiceFilter{Limit: 2, Offset: 2})
		require.NoError(t, err)
		assert.Len(t, got, 1)

		got, err = s.ListInvoices(ctx, models.InvoiceFilter{Offset: 10})
		require.NoError(t, err)
		assert.Empty(t, got)

		// A negative offset from an unchecked query param is treated as 0
		got, err = s.ListInvoices(ctx, models.InvoiceFilter{Offset: -1})
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})
}

func TestMemoryStoreNotFound(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.GetInvoice(ctx, 1)
	assert.ErrorIs(t, err, services.ErrInvoiceNotFound)

	_, err = s.GetPayment(ctx, 1)
	assert.ErrorIs(t, err, services.ErrPaymentNotFound)

	assert.ErrorIs(t, s.DeleteInvoiceRow(ctx, 1), services.ErrInvoiceNotFound)
	assert.ErrorIs(t, s.DeletePaymentRow(ctx, 1), services.ErrPaymentNotFound)
}
