package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"crm-backend/internal/models"
	"crm-backend/internal/services"
)

// InvoiceRepository is the Postgres implementation of services.Store
type InvoiceRepository struct {
	DB *pgxpool.Pool
}

// compile-time check that the repository satisfies the store contract
var _ services.Store = (*InvoiceRepository)(nil)

func NewInvoiceRepository(db *pgxpool.Pool) *InvoiceRepository {
	return &InvoiceRepository{DB: db}
}

const invoiceColumns = `id, invoice_number, client_id, project_id, status, issue_date, due_date,
	subtotal, tax_rate, tax_amount, discount_amount, total_amount, amount_paid, balance_due,
	notes, terms, footer, payment_instructions, sent_date, paid_date, last_reminder_date,
	created_by_id, created_at, updated_at`

func scanInvoice(row pgx.Row) (*models.Invoice, error) {
	var inv models.Invoice
	err := row.Scan(&inv.ID, &inv.InvoiceNumber, &inv.ClientID, &inv.ProjectID, &inv.Status,
		&inv.IssueDate, &inv.DueDate, &inv.Subtotal, &inv.TaxRate, &inv.TaxAmount,
		&inv.DiscountAmount, &inv.TotalAmount, &inv.AmountPaid, &inv.BalanceDue,
		&inv.Notes, &inv.Terms, &inv.Footer, &inv.PaymentInstructions,
		&inv.SentDate, &inv.PaidDate, &inv.LastReminderDate,
		&inv.CreatedByID, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// GetInvoice retrieves an invoice by ID with its items
func (r *InvoiceRepository) GetInvoice(ctx context.Context, id int) (*models.Invoice, error) {
	inv, err := scanInvoice(r.DB.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, services.ErrInvoiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	items, err := r.ListItems(ctx, id)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.InvoiceItem{}
	}
	inv.Items = items
	return inv, nil
}

// ListInvoices returns invoices matching the filter, newest issue date first
func (r *InvoiceRepository) ListInvoices(ctx context.Context, filter models.InvoiceFilter) ([]*models.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices`
	var conds []string
	var params []interface{}

	add := func(cond string, value interface{}) {
		params = append(params, value)
		conds = append(conds, fmt.Sprintf(cond, len(params)))
	}

	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.ClientID > 0 {
		add("client_id = $%d", filter.ClientID)
	}
	if filter.ProjectID > 0 {
		add("project_id = $%d", filter.ProjectID)
	}
	if filter.DateFrom != nil {
		add("issue_date >= $%d", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		add("issue_date <= $%d", *filter.DateTo)
	}

	for i, cond := range conds {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}

	query += " ORDER BY issue_date DESC, id DESC"
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	params = append(params, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(params))
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	params = append(params, offset)
	query += fmt.Sprintf(" OFFSET $%d", len(params))

	rows, err := r.DB.Query(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	return collectInvoices(rows)
}

func collectInvoices(rows pgx.Rows) ([]*models.Invoice, error) {
	var invoices []*models.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

// InsertInvoice inserts a new invoice row and returns its id
func (r *InvoiceRepository) InsertInvoice(ctx context.Context, inv *models.Invoice) (int, error) {
	var id int
	err := r.DB.QueryRow(ctx,
		`INSERT INTO invoices(invoice_number, client_id, project_id, status, issue_date, due_date,
			subtotal, tax_rate, tax_amount, discount_amount, total_amount, amount_paid, balance_due,
			notes, terms, footer, payment_instructions, sent_date, paid_date, last_reminder_date,
			created_by_id, created_at, updated_at)
		 VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
		 RETURNING id`,
		inv.InvoiceNumber, inv.ClientID, inv.ProjectID, inv.Status, inv.IssueDate, inv.DueDate,
		inv.Subtotal, inv.TaxRate, inv.TaxAmount, inv.DiscountAmount, inv.TotalAmount,
		inv.AmountPaid, inv.BalanceDue, inv.Notes, inv.Terms, inv.Footer, inv.PaymentInstructions,
		inv.SentDate, inv.PaidDate, inv.LastReminderDate, inv.CreatedByID, inv.CreatedAt, inv.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert invoice: %w", err)
	}
	return id, nil
}

// UpdateInvoiceRow writes the full invoice row back
func (r *InvoiceRepository) UpdateInvoiceRow(ctx context.Context, inv *models.Invoice) error {
	tag, err := r.DB.Exec(ctx,
		`UPDATE invoices SET invoice_number = $1, client_id = $2, project_id = $3, status = $4,
			issue_date = $5, due_date = $6, subtotal = $7, tax_rate = $8, tax_amount = $9,
			discount_amount = $10, total_amount = $11, amount_paid = $12, balance_due = $13,
			notes = $14, terms = $15, footer = $16, payment_instructions = $17,
			sent_date = $18, paid_date = $19, last_reminder_date = $20, updated_at = $21
		 WHERE id = $22`,
		inv.InvoiceNumber, inv.ClientID, inv.ProjectID, inv.Status, inv.IssueDate, inv.DueDate,
		inv.Subtotal, inv.TaxRate, inv.TaxAmount, inv.DiscountAmount, inv.TotalAmount,
		inv.AmountPaid, inv.BalanceDue, inv.Notes, inv.Terms, inv.Footer, inv.PaymentInstructions,
		inv.SentDate, inv.PaidDate, inv.LastReminderDate, inv.UpdatedAt, inv.ID)
	if err != nil {
		return fmt.Errorf("failed to update invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return services.ErrInvoiceNotFound
	}
	return nil
}

// DeleteInvoiceRow removes the invoice row
func (r *InvoiceRepository) DeleteInvoiceRow(ctx context.Context, id int) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return services.ErrInvoiceNotFound
	}
	return nil
}

// CountInvoices returns the total number of invoices
func (r *InvoiceRepository) CountInvoices(ctx context.Context) (int, error) {
	var count int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM invoices`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count invoices: %w", err)
	}
	return count, nil
}

// InvoiceNumberExists reports whether an invoice number is already taken
func (r *InvoiceRepository) InvoiceNumberExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := r.DB.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM invoices WHERE invoice_number = $1)`, number).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check invoice number: %w", err)
	}
	return exists, nil
}

// InsertItem inserts an invoice line item and returns its id
func (r *InvoiceRepository) InsertItem(ctx context.Context, item *models.InvoiceItem) (int, error) {
	var id int
	err := r.DB.QueryRow(ctx,
		`INSERT INTO invoice_items(invoice_id, description, quantity, unit_price, amount,
			type, sort_order, taxable, created_at, updated_at)
		 VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id`,
		item.InvoiceID, item.Description, item.Quantity, item.UnitPrice, item.Amount,
		item.Type, item.SortOrder, item.Taxable, item.CreatedAt, item.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert invoice item: %w", err)
	}
	return id, nil
}

// ListItems returns an invoice's items in sort order
func (r *InvoiceRepository) ListItems(ctx context.Context, invoiceID int) ([]models.InvoiceItem, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, invoice_id, description, quantity, unit_price, amount, type, sort_order,
			taxable, created_at, updated_at
		 FROM invoice_items WHERE invoice_id = $1 ORDER BY sort_order ASC, id ASC`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoice items: %w", err)
	}
	defer rows.Close()

	var items []models.InvoiceItem
	for rows.Next() {
		var item models.InvoiceItem
		err := rows.Scan(&item.ID, &item.InvoiceID, &item.Description, &item.Quantity,
			&item.UnitPrice, &item.Amount, &item.Type, &item.SortOrder, &item.Taxable,
			&item.CreatedAt, &item.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// DeleteItemsForInvoice removes all items belonging to an invoice
func (r *InvoiceRepository) DeleteItemsForInvoice(ctx context.Context, invoiceID int) error {
	if _, err := r.DB.Exec(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1`, invoiceID); err != nil {
		return fmt.Errorf("failed to delete invoice items: %w", err)
	}
	return nil
}

// GetPayment retrieves a payment by ID
func (r *InvoiceRepository) GetPayment(ctx context.Context, id int) (*models.Payment, error) {
	var p models.Payment
	err := r.DB.QueryRow(ctx,
		`SELECT id, invoice_id, amount, payment_date, payment_method, reference_number,
			notes, created_by_id, created_at, updated_at
		 FROM payments WHERE id = $1`, id,
	).Scan(&p.ID, &p.InvoiceID, &p.Amount, &p.PaymentDate, &p.PaymentMethod,
		&p.ReferenceNumber, &p.Notes, &p.CreatedByID, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, services.ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return &p, nil
}

// ListPayments returns an invoice's payments, newest payment date first
func (r *InvoiceRepository) ListPayments(ctx context.Context, invoiceID int) ([]*models.Payment, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, invoice_id, amount, payment_date, payment_method, reference_number,
			notes, created_by_id, created_at, updated_at
		 FROM payments WHERE invoice_id = $1 ORDER BY payment_date DESC, id DESC`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		var p models.Payment
		err := rows.Scan(&p.ID, &p.InvoiceID, &p.Amount, &p.PaymentDate, &p.PaymentMethod,
			&p.ReferenceNumber, &p.Notes, &p.CreatedByID, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, &p)
	}
	return payments, rows.Err()
}

// InsertPayment inserts a payment row and returns its id
func (r *InvoiceRepository) InsertPayment(ctx context.Context, p *models.Payment) (int, error) {
	var id int
	err := r.DB.QueryRow(ctx,
		`INSERT INTO payments(invoice_id, amount, payment_date, payment_method,
			reference_number, notes, created_by_id, created_at, updated_at)
		 VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		p.InvoiceID, p.Amount, p.PaymentDate, p.PaymentMethod,
		p.ReferenceNumber, p.Notes, p.CreatedByID, p.CreatedAt, p.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert payment: %w", err)
	}
	return id, nil
}

// DeletePaymentRow removes a payment row
func (r *InvoiceRepository) DeletePaymentRow(ctx context.Context, id int) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return services.ErrPaymentNotFound
	}
	return nil
}

// DeletePaymentsForInvoice removes all payments belonging to an invoice
func (r *InvoiceRepository) DeletePaymentsForInvoice(ctx context.Context, invoiceID int) error {
	if _, err := r.DB.Exec(ctx, `DELETE FROM payments WHERE invoice_id = $1`, invoiceID); err != nil {
		return fmt.Errorf("failed to delete payments: %w", err)
	}
	return nil
}

// ListOverdueInvoices returns unpaid, uncancelled invoices due before today
func (r *InvoiceRepository) ListOverdueInvoices(ctx context.Context, today time.Time) ([]*models.Invoice, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+invoiceColumns+` FROM invoices
		 WHERE due_date < $1 AND balance_due > 0 AND status != $2
		 ORDER BY due_date ASC`, today, models.StatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue invoices: %w", err)
	}
	defer rows.Close()

	return collectInvoices(rows)
}

// ListUpcomingInvoices returns unpaid, uncancelled invoices due in [from, to]
func (r *InvoiceRepository) ListUpcomingInvoices(ctx context.Context, from, to time.Time) ([]*models.Invoice, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+invoiceColumns+` FROM invoices
		 WHERE due_date BETWEEN $1 AND $2 AND balance_due > 0 AND status != $3
		 ORDER BY due_date ASC`, from, to, models.StatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming invoices: %w", err)
	}
	defer rows.Close()

	return collectInvoices(rows)
}

// StatusSummary returns per-status counts and summed totals
func (r *InvoiceRepository) StatusSummary(ctx context.Context) ([]models.StatusSummary, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT status, COUNT(*), COALESCE(SUM(total_amount), 0)
		 FROM invoices GROUP BY status ORDER BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize invoices: %w", err)
	}
	defer rows.Close()

	var summary []models.StatusSummary
	for rows.Next() {
		var row models.StatusSummary
		if err := rows.Scan(&row.Status, &row.Count, &row.Total); err != nil {
			return nil, fmt.Errorf("failed to scan status summary: %w", err)
		}
		summary = append(summary, row)
	}
	return summary, rows.Err()
}

// MonthlyRevenue returns payment sums grouped by month across a year, or by
// payment method within a single month.
func (r *InvoiceRepository) MonthlyRevenue(ctx context.Context, year, month int) ([]models.MonthlyRevenue, error) {
	var rows pgx.Rows
	var err error

	if month > 0 {
		rows, err = r.DB.Query(ctx,
			`SELECT payment_method, COALESCE(SUM(amount), 0)
			 FROM payments
			 WHERE EXTRACT(YEAR FROM payment_date) = $1 AND EXTRACT(MONTH FROM payment_date) = $2
			 GROUP BY payment_method ORDER BY payment_method`, year, month)
	} else {
		rows, err = r.DB.Query(ctx,
			`SELECT EXTRACT(MONTH FROM payment_date)::int AS month, COALESCE(SUM(amount), 0)
			 FROM payments
			 WHERE EXTRACT(YEAR FROM payment_date) = $1
			 GROUP BY month ORDER BY month`, year)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query revenue: %w", err)
	}
	defer rows.Close()

	var revenue []models.MonthlyRevenue
	for rows.Next() {
		var row models.MonthlyRevenue
		if month > 0 {
			err = rows.Scan(&row.PaymentMethod, &row.Total)
		} else {
			err = rows.Scan(&row.Month, &row.Total)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to scan revenue row: %w", err)
		}
		revenue = append(revenue, row)
	}
	return revenue, rows.Err()
}
