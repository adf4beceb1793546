package services_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-backend/internal/clock"
	"crm-backend/internal/models"
	"crm-backend/internal/repositories"
	"crm-backend/internal/services"
)

var testNow = time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)

// fakeNotifier records sent emails and can be told to fail
type fakeNotifier struct {
	sent []services.EmailKind
	fail bool
}

func (f *fakeNotifier) SendInvoiceEmail(ctx context.Context, inv *models.Invoice, kind services.EmailKind) error {
	if f.fail {
		return errors.New("smtp unreachable")
	}
	f.sent = append(f.sent, kind)
	return nil
}

func newService(t *testing.T) (*services.InvoiceService, *fakeNotifier) {
	t.Helper()
	notifier := &fakeNotifier{}
	svc := services.NewInvoiceService(repositories.NewMemoryStore(), notifier, clock.Fixed{T: testNow})
	return svc, notifier
}

func iptr(v int) *int         { return &v }
func fptr(v float64) *float64 { return &v }
func sptr(v string) *string   { return &v }

func createInvoice(t *testing.T, svc *services.InvoiceService, rec models.InvoiceRecord) int {
	t.Helper()
	if rec.ClientID == nil {
		rec.ClientID = iptr(1)
	}
	id, err := svc.CreateInvoice(context.Background(), rec)
	require.NoError(t, err)
	return id
}

func TestCreateInvoice(t *testing.T) {
	ctx := context.Background()

	t.Run("assigns number, terms and draft status", func(t *testing.T) {
		svc, _ := newService(t)

		id := createInvoice(t, svc, models.InvoiceRecord{})
		inv, err := svc.GetInvoice(ctx, id)
		require.NoError(t, err)

		assert.Equal(t, models.StatusDraft, inv.Status)
		assert.Regexp(t, regexp.MustCompile(`^INV-20240615-\d{4}$`), inv.InvoiceNumber)
		assert.Equal(t, services.DefaultTerms, inv.Terms)
		assert.Equal(t, inv.IssueDate.AddDate(0, 0, 30), inv.DueDate)
	})

	t.Run("numbers are sequential", func(t *testing.T) {
		svc, _ := newService(t)

		id1 := createInvoice(t, svc, models.InvoiceRecord{})
		id2 := createInvoice(t, svc, models.InvoiceRecord{})

		inv1, _ := svc.GetInvoice(ctx, id1)
		inv2, _ := svc.GetInvoice(ctx, id2)
		assert.Equal(t, "INV-20240615-0001", inv1.InvoiceNumber)
		assert.Equal(t, "INV-20240615-0002", inv2.InvoiceNumber)
	})

	t.Run("requires a client", func(t *testing.T) {
		svc, _ := newService(t)
		_, err := svc.CreateInvoice(ctx, models.InvoiceRecord{})
		assert.ErrorIs(t, err, models.ErrMissingClient)
	})

	t.Run("a client-supplied status cannot skip draft", func(t *testing.T) {
		svc, _ := newService(t)

		id := createInvoice(t, svc, models.InvoiceRecord{Status: sptr("Paid")})
		inv, err := svc.GetInvoice(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.StatusDraft, inv.Status)
	})

	t.Run("computes totals from supplied items", func(t *testing.T) {
		svc, _ := newService(t)

		id := createInvoice(t, svc, models.InvoiceRecord{
			TaxRate: fptr(6.4),
			Items: []models.InvoiceItemRecord{
				{Description: "Framing labor", Quantity: fptr(40), UnitPrice: fptr(5), Type: "Labor"},
				{Description: "Lumber", Quantity: fptr(1), UnitPrice: fptr(50), Type: "Material"},
			},
		})

		inv, err := svc.GetInvoice(ctx, id)
		require.NoError(t, err)

		assert.Equal(t, "250.00", inv.Subtotal.StringFixed(2))
		assert.Equal(t, "16.00", inv.TaxAmount.StringFixed(2))
		assert.Equal(t, "266.00", inv.TotalAmount.StringFixed(2))
		assert.Equal(t, "266.00", inv.BalanceDue.StringFixed(2))
		require.Len(t, inv.Items, 2)
		assert.Equal(t, 0, inv.Items[0].SortOrder)
		assert.Equal(t, 1, inv.Items[1].SortOrder)
	})
}

func TestInvoiceLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, notifier := newService(t)

	id := createInvoice(t, svc, models.InvoiceRecord{
		TaxRate: fptr(6.4),
		Items: []models.InvoiceItemRecord{
			{Description: "Site work", Quantity: fptr(1), UnitPrice: fptr(250)},
		},
	})

	// Draft -> Sent, with the "new invoice" email
	require.NoError(t, svc.MarkInvoiceAsSent(ctx, id))
	inv, err := svc.GetInvoice(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSent, inv.Status)
	require.NotNil(t, inv.SentDate)
	assert.Equal(t, []services.EmailKind{services.EmailNew}, notifier.sent)

	// Sending twice is a no-op: no status change, no second email
	require.NoError(t, svc.MarkInvoiceAsSent(ctx, id))
	inv, _ = svc.GetInvoice(ctx, id)
	assert.Equal(t, models.StatusSent, inv.Status)
	assert.Equal(t, []services.EmailKind{services.EmailNew}, notifier.sent)

	// Sent -> Viewed
	require.NoError(t, svc.MarkInvoiceAsViewed(ctx, id))
	inv, _ = svc.GetInvoice(ctx, id)
	assert.Equal(t, models.StatusViewed, inv.Status)

	// Partial payment: 266 total, pay 100
	_, err = svc.RecordPayment(ctx, models.PaymentRecord{InvoiceID: id, Amount: 100})
	require.NoError(t, err)
	inv, _ = svc.GetInvoice(ctx, id)
	assert.Equal(t, models.StatusPartiallyPaid, inv.Status)
	assert.Equal(t, "166.00", inv.BalanceDue.StringFixed(2))

	// Pay off the rest
	_, err = svc.RecordPayment(ctx, models.PaymentRecord{InvoiceID: id, Amount: 166})
	require.NoError(t, err)
	inv, _ = svc.GetInvoice(ctx, id)
	assert.Equal(t, models.StatusPaid, inv.Status)
	assert.Equal(t, "0.00", inv.BalanceDue.StringFixed(2))
	require.NotNil(t, inv.PaidDate)

	// Paid invoices cannot be cancelled
	assert.ErrorIs(t, svc.MarkInvoiceAsCancelled(ctx, id, "nope"), models.ErrInvalidTransition)
}

func TestRecordPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		svc, _ := newService(t)
		id := createInvoice(t, svc, models.InvoiceRecord{})

		_, err := svc.RecordPayment(ctx, models.PaymentRecord{InvoiceID: id, Amount: 0})
		assert.ErrorIs(t, err, services.ErrInvalidAmount)

		_, err = svc.RecordPayment(ctx, models.PaymentRecord{InvoiceID: id, Amount: -20})
		assert.ErrorIs(t, err, services.ErrInvalidAmount)
	})

	t.Run("unknown invoice", func(t *testing.T) {
		svc, _ := newService(t)
		_, err := svc.RecordPayment(ctx, models.PaymentRecord{InvoiceID: 99, Amount: 10})
		assert.ErrorIs(t, err, services.ErrInvoiceNotFound)
	})

	t.Run("sends a receipt when requested", func(t *testing.T) {
		svc, notifier := newService(t)
		id := createInvoice(t, svc, models.InvoiceRecord{
			Items: []models.InvoiceItemRecord{{UnitPrice: fptr(50)}},
		})
		require.NoError(t, svc.MarkInvoiceAsSent(ctx, id))
		notifier.sent = nil

		_, err := svc.RecordPayment(ctx, models.PaymentRecord{InvoiceID: id, Amount: 50, SendReceipt: true})
		require.NoError(t, err)
		assert.Equal(t, []services.EmailKind{services.EmailReceipt}, notifier.sent)
	})

	t.Run("a failed receipt email does not undo the payment", func(t *testing.T) {
		svc, notifier := newService(t)
		id := createInvoice(t, svc, models.InvoiceRecord{
			Items: []models.InvoiceItemRecord{{UnitPrice: fptr(50)}},
		})
		require.NoError(t, svc.MarkInvoiceAsSent(ctx, id))
		notifier.fail = true

		_, err := svc.RecordPayment(ctx, models.PaymentRecord{InvoiceID: id, Amount: 50, SendReceipt: true})
		require.NoError(t, err)

		inv, _ := svc.GetInvoice(ctx, id)
		assert.Equal(t, models.StatusPaid, inv.Status)
	})

	t.Run("overpayment is allowed", func(t *testing.T) {
		svc, _ := newService(t)
		id := createInvoice(t, svc, models.InvoiceRecord{
			Items: []models.InvoiceItemRecord{{UnitPrice: fptr(100)}},
		})
		require.NoError(t, svc.MarkInvoiceAsSent(ctx, id))

		_, err := svc.RecordPayment(ctx, models.PaymentRecord{InvoiceID: id, Amount: 150})
		require.NoError(t, err)

		inv, _ := svc.GetInvoice(ctx, id)
		assert.Equal(t, models.StatusPaid, inv.Status)
		assert.Equal(t, "-50.00", inv.BalanceDue.StringFixed(2))
	})
}

func TestDeletePayment(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	id := createInvoice(t, svc, models.InvoiceRecord{
		Items: []models.InvoiceItemRecord{{UnitPrice: fptr(100)}},
	})
	require.NoError(t, svc.MarkInvoiceAsSent(ctx, id))

	paymentID, err := svc.RecordPayment(ctx, models.PaymentRecord{InvoiceID: id, Amount: 100})
	require.NoError(t, err)

	inv, _ := svc.GetInvoice(ctx, id)
	require.Equal(t, models.StatusPaid, inv.Status)

	// Reversing the payment restores the unpaid state
	require.NoError(t, svc.DeletePayment(ctx, paymentID))

	inv, _ = svc.GetInvoice(ctx, id)
	assert.Equal(t, "0.00", inv.AmountPaid.StringFixed(2))
	assert.Equal(t, "100.00", inv.BalanceDue.StringFixed(2))
	assert.Equal(t, models.StatusSent, inv.Status)

	payments, err := svc.GetInvoicePayments(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, payments)

	t.Run("unknown payment", func(t *testing.T) {
		assert.ErrorIs(t, svc.DeletePayment(ctx, 999), services.ErrPaymentNotFound)
	})
}

func TestUpdateInvoice(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces the item set wholesale", func(t *testing.T) {
		svc, _ := newService(t)
		id := createInvoice(t, svc, models.InvoiceRecord{
			Items: []models.InvoiceItemRecord{
				{Description: "Old A", UnitPrice: fptr(10)},
				{Description: "Old B", UnitPrice: fptr(20)},
			},
		})

		inv, err := svc.UpdateInvoice(ctx, id, models.InvoiceRecord{
			Items: []models.InvoiceItemRecord{
				{Description: "New", Quantity: fptr(2), UnitPrice: fptr(75)},
			},
		})
		require.NoError(t, err)

		require.Len(t, inv.Items, 1)
		assert.Equal(t, "New", inv.Items[0].Description)
		assert.Equal(t, "150.00", inv.TotalAmount.StringFixed(2))
	})

	t.Run("nil items leave the set untouched", func(t *testing.T) {
		svc, _ := newService(t)
		id := createInvoice(t, svc, models.InvoiceRecord{
			Items: []models.InvoiceItemRecord{{UnitPrice: fptr(80)}},
		})

		inv, err := svc.UpdateInvoice(ctx, id, models.InvoiceRecord{Notes: sptr("updated")})
		require.NoError(t, err)

		assert.Equal(t, "updated", inv.Notes)
		require.Len(t, inv.Items, 1)
		assert.Equal(t, "80.00", inv.TotalAmount.StringFixed(2))
	})
}

func TestDeleteInvoice(t *testing.T) {
	ctx := context.Background()

	t.Run("only drafts can be deleted", func(t *testing.T) {
		svc, _ := newService(t)
		id := createInvoice(t, svc, models.InvoiceRecord{})
		require.NoError(t, svc.MarkInvoiceAsSent(ctx, id))

		assert.ErrorIs(t, svc.DeleteInvoice(ctx, id), services.ErrInvoiceNotDraft)
	})

	t.Run("deletes the draft and its children", func(t *testing.T) {
		svc, _ := newService(t)
		id := createInvoice(t, svc, models.InvoiceRecord{
			Items: []models.InvoiceItemRecord{{UnitPrice: fptr(10)}},
		})

		require.NoError(t, svc.DeleteInvoice(ctx, id))

		_, err := svc.GetInvoice(ctx, id)
		assert.ErrorIs(t, err, services.ErrInvoiceNotFound)
	})
}

func TestOverdueAndUpcoming(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	overdueID := createInvoice(t, svc, models.InvoiceRecord{
		IssueDate: sptr("2024-05-01"),
		DueDate:   sptr("2024-06-01"),
		Items:     []models.InvoiceItemRecord{{UnitPrice: fptr(100)}},
	})
	require.NoError(t, svc.MarkInvoiceAsSent(ctx, overdueID))

	upcomingID := createInvoice(t, svc, models.InvoiceRecord{
		IssueDate: sptr("2024-06-10"),
		DueDate:   sptr("2024-06-18"),
		Items:     []models.InvoiceItemRecord{{UnitPrice: fptr(100)}},
	})
	require.NoError(t, svc.MarkInvoiceAsSent(ctx, upcomingID))

	// Cancelled and fully paid invoices never appear
	cancelledID := createInvoice(t, svc, models.InvoiceRecord{
		DueDate: sptr("2024-06-01"),
		Items:   []models.InvoiceItemRecord{{UnitPrice: fptr(100)}},
	})
	require.NoError(t, svc.MarkInvoiceAsSent(ctx, cancelledID))
	require.NoError(t, svc.MarkInvoiceAsCancelled(ctx, cancelledID, ""))

	paidID := createInvoice(t, svc, models.InvoiceRecord{
		DueDate: sptr("2024-06-01"),
		Items:   []models.InvoiceItemRecord{{UnitPrice: fptr(100)}},
	})
	require.NoError(t, svc.MarkInvoiceAsSent(ctx, paidID))
	_, err := svc.RecordPayment(ctx, models.PaymentRecord{InvoiceID: paidID, Amount: 100})
	require.NoError(t, err)

	overdue, err := svc.GetOverdueInvoices(ctx)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, overdueID, overdue[0].ID)

	upcoming, err := svc.GetUpcomingInvoices(ctx, 7)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, upcomingID, upcoming[0].ID)
}

func TestSendInvoiceReminder(t *testing.T) {
	ctx := context.Background()

	t.Run("stamps the last reminder date", func(t *testing.T) {
		svc, notifier := newService(t)
		id := createInvoice(t, svc, models.InvoiceRecord{
			DueDate: sptr("2024-06-01"),
			Items:   []models.InvoiceItemRecord{{UnitPrice: fptr(100)}},
		})
		require.NoError(t, svc.MarkInvoiceAsSent(ctx, id))
		notifier.sent = nil

		require.NoError(t, svc.SendInvoiceReminder(ctx, id))

		inv, _ := svc.GetInvoice(ctx, id)
		require.NotNil(t, inv.LastReminderDate)
		assert.Equal(t, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), *inv.LastReminderDate)
		assert.Equal(t, []services.EmailKind{services.EmailReminder}, notifier.sent)
	})

	t.Run("a failed email leaves the reminder date unset", func(t *testing.T) {
		svc, notifier := newService(t)
		id := createInvoice(t, svc, models.InvoiceRecord{
			Items: []models.InvoiceItemRecord{{UnitPrice: fptr(100)}},
		})
		require.NoError(t, svc.MarkInvoiceAsSent(ctx, id))
		notifier.fail = true

		require.Error(t, svc.SendInvoiceReminder(ctx, id))

		inv, _ := svc.GetInvoice(ctx, id)
		assert.Nil(t, inv.LastReminderDate)
	})
}

func TestStatusSummaryAndRevenue(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	draftID := createInvoice(t, svc, models.InvoiceRecord{
		Items: []models.InvoiceItemRecord{{UnitPrice: fptr(100)}},
	})
	_ = draftID

	sentID := createInvoice(t, svc, models.InvoiceRecord{
		Items: []models.InvoiceItemRecord{{UnitPrice: fptr(200)}},
	})
	require.NoError(t, svc.MarkInvoiceAsSent(ctx, sentID))
	_, err := svc.RecordPayment(ctx, models.PaymentRecord{
		InvoiceID:     sentID,
		Amount:        200,
		PaymentDate:   "2024-06-02",
		PaymentMethod: "Credit Card",
	})
	require.NoError(t, err)

	summary, err := svc.GetInvoicesByStatus(ctx)
	require.NoError(t, err)

	byStatus := map[models.InvoiceStatus]models.StatusSummary{}
	for _, s := range summary {
		byStatus[s.Status] = s
	}
	assert.Equal(t, 1, byStatus[models.StatusDraft].Count)
	assert.Equal(t, 1, byStatus[models.StatusPaid].Count)
	assert.Equal(t, "200.00", byStatus[models.StatusPaid].Total.StringFixed(2))

	t.Run("by month for the year", func(t *testing.T) {
		revenue, err := svc.GetMonthlyRevenue(ctx, 2024, 0)
		require.NoError(t, err)
		require.Len(t, revenue, 1)
		assert.Equal(t, 6, revenue[0].Month)
		assert.Equal(t, "200.00", revenue[0].Total.StringFixed(2))
	})

	t.Run("by payment method for a month", func(t *testing.T) {
		revenue, err := svc.GetMonthlyRevenue(ctx, 2024, 6)
		require.NoError(t, err)
		require.Len(t, revenue, 1)
		assert.Equal(t, models.MethodCreditCard, revenue[0].PaymentMethod)
		assert.Equal(t, "200.00", revenue[0].Total.StringFixed(2))
	})

	t.Run("zero year defaults to the clock's year", func(t *testing.T) {
		revenue, err := svc.GetMonthlyRevenue(ctx, 0, 0)
		require.NoError(t, err)
		require.Len(t, revenue, 1)
	})
}
