package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"crm-backend/internal/models"
	"crm-backend/internal/services"
)

// MemoryStore is an in-memory implementation of services.Store. It backs the
// test suite and serves as the fallback store when the database is
// unreachable at startup. Selected once at process start, never swapped at
// runtime.
type MemoryStore struct {
	mu sync.Mutex

	invoices map[int]*models.Invoice
	items    map[int]*models.InvoiceItem
	payments map[int]*models.Payment

	nextInvoiceID int
	nextItemID    int
	nextPaymentID int
}

var _ services.Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		invoices:      make(map[int]*models.Invoice),
		items:         make(map[int]*models.InvoiceItem),
		payments:      make(map[int]*models.Payment),
		nextInvoiceID: 1,
		nextItemID:    1,
		nextPaymentID: 1,
	}
}

func copyInvoice(inv *models.Invoice) *models.Invoice {
	out := *inv
	out.Items = append([]models.InvoiceItem(nil), inv.Items...)
	return &out
}

func (s *MemoryStore) itemsFor(invoiceID int) []models.InvoiceItem {
	var items []models.InvoiceItem
	for _, item := range s.items {
		if item.InvoiceID == invoiceID {
			items = append(items, *item)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].SortOrder != items[j].SortOrder {
			return items[i].SortOrder < items[j].SortOrder
		}
		return items[i].ID < items[j].ID
	})
	return items
}

// GetInvoice retrieves an invoice by ID with its items
func (s *MemoryStore) GetInvoice(ctx context.Context, id int) (*models.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invoices[id]
	if !ok {
		return nil, services.ErrInvoiceNotFound
	}
	out := copyInvoice(inv)
	out.Items = s.itemsFor(id)
	if out.Items == nil {
		out.Items = []models.InvoiceItem{}
	}
	return out, nil
}

// ListInvoices returns invoices matching the filter, newest issue date first
func (s *MemoryStore) ListInvoices(ctx context.Context, filter models.InvoiceFilter) ([]*models.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*models.Invoice
	for _, inv := range s.invoices {
		if filter.Status != "" && inv.Status != filter.Status {
			continue
		}
		if filter.ClientID > 0 && inv.ClientID != filter.ClientID {
			continue
		}
		if filter.ProjectID > 0 && (inv.ProjectID == nil || *inv.ProjectID != filter.ProjectID) {
			continue
		}
		if filter.DateFrom != nil && inv.IssueDate.Before(*filter.DateFrom) {
			continue
		}
		if filter.DateTo != nil && inv.IssueDate.After(*filter.DateTo) {
			continue
		}
		matched = append(matched, copyInvoice(inv))
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].IssueDate.Equal(matched[j].IssueDate) {
			return matched[i].IssueDate.After(matched[j].IssueDate)
		}
		return matched[i].ID > matched[j].ID
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// InsertInvoice inserts a new invoice and returns its id
func (s *MemoryStore) InsertInvoice(ctx context.Context, inv *models.Invoice) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextInvoiceID
	s.nextInvoiceID++

	stored := copyInvoice(inv)
	stored.ID = id
	stored.Items = nil
	s.invoices[id] = stored
	return id, nil
}

// UpdateInvoiceRow writes the full invoice row back
func (s *MemoryStore) UpdateInvoiceRow(ctx context.Context, inv *models.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.invoices[inv.ID]; !ok {
		return services.ErrInvoiceNotFound
	}
	stored := copyInvoice(inv)
	stored.Items = nil
	s.invoices[inv.ID] = stored
	return nil
}

// DeleteInvoiceRow removes the invoice row
func (s *MemoryStore) DeleteInvoiceRow(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.invoices[id]; !ok {
		return services.ErrInvoiceNotFound
	}
	delete(s.invoices, id)
	return nil
}

// CountInvoices returns the total number of invoices
func (s *MemoryStore) CountInvoices(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.invoices), nil
}

// InvoiceNumberExists reports whether an invoice number is already taken
func (s *MemoryStore) InvoiceNumberExists(ctx context.Context, number string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, inv := range s.invoices {
		if inv.InvoiceNumber == number {
			return true, nil
		}
	}
	return false, nil
}

// InsertItem inserts an invoice line item and returns its id
func (s *MemoryStore) InsertItem(ctx context.Context, item *models.InvoiceItem) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextItemID
	s.nextItemID++

	stored := *item
	stored.ID = id
	s.items[id] = &stored
	return id, nil
}

// ListItems returns an invoice's items in sort order
func (s *MemoryStore) ListItems(ctx context.Context, invoiceID int) ([]models.InvoiceItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.itemsFor(invoiceID), nil
}

// DeleteItemsForInvoice removes all items belonging to an invoice
func (s *MemoryStore) DeleteItemsForInvoice(ctx context.Context, invoiceID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, item := range s.items {
		if item.InvoiceID == invoiceID {
			delete(s.items, id)
		}
	}
	return nil
}

// GetPayment retrieves a payment by ID
func (s *MemoryStore) GetPayment(ctx context.Context, id int) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[id]
	if !ok {
		return nil, services.ErrPaymentNotFound
	}
	out := *p
	return &out, nil
}

// ListPayments returns an invoice's payments, newest payment date first
func (s *MemoryStore) ListPayments(ctx context.Context, invoiceID int) ([]*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var payments []*models.Payment
	for _, p := range s.payments {
		if p.InvoiceID == invoiceID {
			out := *p
			payments = append(payments, &out)
		}
	}
	sort.Slice(payments, func(i, j int) bool {
		if !payments[i].PaymentDate.Equal(payments[j].PaymentDate) {
			return payments[i].PaymentDate.After(payments[j].PaymentDate)
		}
		return payments[i].ID > payments[j].ID
	})
	return payments, nil
}

// InsertPayment inserts a payment and returns its id
func (s *MemoryStore) InsertPayment(ctx context.Context, p *models.Payment) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextPaymentID
	s.nextPaymentID++

	stored := *p
	stored.ID = id
	s.payments[id] = &stored
	return id, nil
}

// DeletePaymentRow removes a payment row
func (s *MemoryStore) DeletePaymentRow(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.payments[id]; !ok {
		return services.ErrPaymentNotFound
	}
	delete(s.payments, id)
	return nil
}

// DeletePaymentsForInvoice removes all payments belonging to an invoice
func (s *MemoryStore) DeletePaymentsForInvoice(ctx context.Context, invoiceID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, p := range s.payments {
		if p.InvoiceID == invoiceID {
			delete(s.payments, id)
		}
	}
	return nil
}

// ListOverdueInvoices returns unpaid, uncancelled invoices due before today
func (s *MemoryStore) ListOverdueInvoices(ctx context.Context, today time.Time) ([]*models.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*models.Invoice
	for _, inv := range s.invoices {
		if inv.DueDate.Before(today) && inv.BalanceDue.Sign() > 0 && inv.Status != models.StatusCancelled {
			matched = append(matched, copyInvoice(inv))
		}
	}
	sortByDueDate(matched)
	return matched, nil
}

// ListUpcomingInvoices returns unpaid, uncancelled invoices due in [from, to]
func (s *MemoryStore) ListUpcomingInvoices(ctx context.Context, from, to time.Time) ([]*models.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*models.Invoice
	for _, inv := range s.invoices {
		if inv.DueDate.Before(from) || inv.DueDate.After(to) {
			continue
		}
		if inv.BalanceDue.Sign() > 0 && inv.Status != models.StatusCancelled {
			matched = append(matched, copyInvoice(inv))
		}
	}
	sortByDueDate(matched)
	return matched, nil
}

func sortByDueDate(invoices []*models.Invoice) {
	sort.Slice(invoices, func(i, j int) bool {
		if !invoices[i].DueDate.Equal(invoices[j].DueDate) {
			return invoices[i].DueDate.Before(invoices[j].DueDate)
		}
		return invoices[i].ID < invoices[j].ID
	})
}

// StatusSummary returns per-status counts and summed totals
func (s *MemoryStore) StatusSummary(ctx context.Context) ([]models.StatusSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byStatus := make(map[models.InvoiceStatus]*models.StatusSummary)
	for _, inv := range s.invoices {
		row, ok := byStatus[inv.Status]
		if !ok {
			row = &models.StatusSummary{Status: inv.Status, Total: decimal.Zero}
			byStatus[inv.Status] = row
		}
		row.Count++
		row.Total = row.Total.Add(inv.TotalAmount)
	}

	var summary []models.StatusSummary
	for _, row := range byStatus {
		summary = append(summary, *row)
	}
	sort.Slice(summary, func(i, j int) bool {
		return summary[i].Status < summary[j].Status
	})
	return summary, nil
}

// MonthlyRevenue returns payment sums grouped by month across a year, or by
// payment method within a single month.
func (s *MemoryStore) MonthlyRevenue(ctx context.Context, year, month int) ([]models.MonthlyRevenue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if month > 0 {
		byMethod := make(map[models.PaymentMethod]decimal.Decimal)
		for _, p := range s.payments {
			if p.PaymentDate.Year() == year && int(p.PaymentDate.Month()) == month {
				byMethod[p.PaymentMethod] = byMethod[p.PaymentMethod].Add(p.Amount)
			}
		}
		var revenue []models.MonthlyRevenue
		for method, total := range byMethod {
			revenue = append(revenue, models.MonthlyRevenue{PaymentMethod: method, Total: total})
		}
		sort.Slice(revenue, func(i, j int) bool {
			return revenue[i].PaymentMethod < revenue[j].PaymentMethod
		})
		return revenue, nil
	}

	byMonth := make(map[int]decimal.Decimal)
	for _, p := range s.payments {
		if p.PaymentDate.Year() == year {
			m := int(p.PaymentDate.Month())
			byMonth[m] = byMonth[m].Add(p.Amount)
		}
	}
	var revenue []models.MonthlyRevenue
	for m, total := range byMonth {
		revenue = append(revenue, models.MonthlyRevenue{Month: m, Total: total})
	}
	sort.Slice(revenue, func(i, j int) bool {
		return revenue[i].Month < revenue[j].Month
	})
	return revenue, nil
}
