package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"invoiceflow/internal/common"
	"invoiceflow/internal/models"
	"invoiceflow/pkg/database"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolation          = "23505"
	invoiceNumberConstraint  = "invoices_invoice_number_key"
	invoiceSelectColumns     = `i.id, i.tenant_id, i.user_id, i.invoice_number, i.client_name, i.client_email, i.client_address,
		i.issue_date, i.due_date, i.subtotal, i.tax, i.shipping_charges, i.discount_percent, i.total,
		i.gst_percent, i.sgst_percent, i.cgst_percent, i.status, i.notes, i.created_at, i.updated_at,
		u.first_name, u.last_name, u.email`
	invoiceItemSelectColumns = `id, invoice_id, position, description, quantity, base_amount, unit_price,
		gst_percent, sgst_percent, cgst_percent, total_amount, amount`
)

type InvoiceRepository interface {
	Create(ctx context.Context, invoice *models.Invoice) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Invoice, error)
	List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Invoice, error)
	Update(ctx context.Context, tenantID, id uuid.UUID, patch *models.InvoicePatch) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	ExistsByNumber(ctx context.Context, invoiceNumber string) (bool, error)
	Stats(ctx context.Context, tenantID uuid.UUID, now time.Time) (*models.InvoiceStats, error)
}

type invoiceRepo struct {
	db database.DB
}

func NewInvoiceRepo(db database.DB) InvoiceRepository {
	return &invoiceRepo{db: db}
}

// Create writes the invoice and its items in one transaction.
func (r *invoiceRepo) Create(ctx context.Context, invoice *models.Invoice) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	query := `
		INSERT INTO invoices (id, tenant_id, user_id, invoice_number, client_name, client_email, client_address,
			issue_date, due_date, subtotal, tax, shipping_charges, discount_percent, total,
			gst_percent, sgst_percent, cgst_percent, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`
	_, err = tx.Exec(ctx, query,
		invoice.ID, invoice.TenantID, invoice.UserID, invoice.InvoiceNumber, invoice.ClientName, invoice.ClientEmail, invoice.ClientAddress,
		invoice.IssueDate, invoice.DueDate, invoice.Subtotal, invoice.Tax, invoice.ShippingCharges, invoice.DiscountPercent, invoice.Total,
		invoice.GSTPercent, invoice.SGSTPercent, invoice.CGSTPercent, invoice.Status, invoice.Notes, invoice.CreatedAt, invoice.UpdatedAt,
	)
	if err != nil {
		return mapInvoiceWriteError(err)
	}

	if err = insertItems(ctx, tx, invoice.ID, invoice.Items); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit invoice: %w", err)
	}
	return nil
}

func insertItems(ctx context.Context, tx pgx.Tx, invoiceID uuid.UUID, items []models.InvoiceItem) error {
	query := `
		INSERT INTO invoice_items (id, invoice_id, position, description, quantity, base_amount, unit_price,
			gst_percent, sgst_percent, cgst_percent, total_amount, amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	for i := range items {
		item := &items[i]
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		item.InvoiceID = invoiceID
		item.Position = i

		_, err := tx.Exec(ctx, query,
			item.ID, item.InvoiceID, item.Position, item.Description, item.Quantity, item.BaseAmount, item.UnitPrice,
			item.GSTPercent, item.SGSTPercent, item.CGSTPercent, item.TotalAmount, item.Amount,
		)
		if err != nil {
			return fmt.Errorf("failed to insert invoice item %d: %w", i, err)
		}
	}
	return nil
}

func (r *invoiceRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Invoice, error) {
	query := `
		SELECT ` + invoiceSelectColumns + `
		FROM invoices i
		JOIN users u ON u.id = i.user_id
		WHERE i.tenant_id = $1 AND i.id = $2
	`
	invoice, err := scanInvoice(r.db.QueryRow(ctx, query, tenantID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	items, err := r.itemsFor(ctx, []uuid.UUID{invoice.ID})
	if err != nil {
		return nil, err
	}
	invoice.Items = items[invoice.ID]
	if invoice.Items == nil {
		invoice.Items = []models.InvoiceItem{}
	}

	return invoice, nil
}

// List returns the tenant's invoices, newest first, each with its items.
func (r *invoiceRepo) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Invoice, error) {
	query := `
		SELECT ` + invoiceSelectColumns + `
		FROM invoices i
		JOIN users u ON u.id = i.user_id
		WHERE i.tenant_id = $1
		ORDER BY i.created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	invoices := []*models.Invoice{}
	ids := []uuid.UUID{}
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, invoice)
		ids = append(ids, invoice.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	rows.Close()

	if len(ids) == 0 {
		return invoices, nil
	}

	items, err := r.itemsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, invoice := range invoices {
		invoice.Items = items[invoice.ID]
		if invoice.Items == nil {
			invoice.Items = []models.InvoiceItem{}
		}
	}

	return invoices, nil
}

func (r *invoiceRepo) itemsFor(ctx context.Context, invoiceIDs []uuid.UUID) (map[uuid.UUID][]models.InvoiceItem, error) {
	query := `
		SELECT ` + invoiceItemSelectColumns + `
		FROM invoice_items
		WHERE invoice_id = ANY($1)
		ORDER BY invoice_id, position
	`
	rows, err := r.db.Query(ctx, query, invoiceIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load invoice items: %w", err)
	}
	defer rows.Close()

	items := make(map[uuid.UUID][]models.InvoiceItem, len(invoiceIDs))
	for rows.Next() {
		var item models.InvoiceItem
		err := rows.Scan(&item.ID, &item.InvoiceID, &item.Position, &item.Description, &item.Quantity, &item.BaseAmount, &item.UnitPrice,
			&item.GSTPercent, &item.SGSTPercent, &item.CGSTPercent, &item.TotalAmount, &item.Amount)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice item: %w", err)
		}
		items[item.InvoiceID] = append(items[item.InvoiceID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load invoice items: %w", err)
	}

	return items, nil
}

// Update applies the non-nil patch fields. When patch.Items is non-nil the
// stored items are deleted and recreated in the same transaction.
func (r *invoiceRepo) Update(ctx context.Context, tenantID, id uuid.UUID, patch *models.InvoicePatch) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	query, args, err := buildInvoiceUpdate(tenantID, id, patch)
	if err != nil {
		return fmt.Errorf("failed to build invoice update: %w", err)
	}
	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return mapInvoiceWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		err = common.ErrNotFound
		return err
	}

	if patch.Items != nil {
		if _, err = tx.Exec(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete invoice items: %w", err)
		}
		if err = insertItems(ctx, tx, id, patch.Items); err != nil {
			return err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit invoice update: %w", err)
	}
	return nil
}

func buildInvoiceUpdate(tenantID, id uuid.UUID, patch *models.InvoicePatch) (string, []any, error) {
	stmt := sq.Update("invoices").PlaceholderFormat(sq.Dollar)

	set := func(column string, value any) {
		stmt = stmt.Set(column, value)
	}

	if patch.InvoiceNumber != nil {
		set("invoice_number", *patch.InvoiceNumber)
	}
	if patch.ClientName != nil {
		set("client_name", *patch.ClientName)
	}
	if patch.ClientEmail != nil {
		set("client_email", *patch.ClientEmail)
	}
	if patch.ClientAddress != nil {
		set("client_address", *patch.ClientAddress)
	}
	if patch.IssueDate != nil {
		set("issue_date", *patch.IssueDate)
	}
	if patch.DueDate != nil {
		set("due_date", *patch.DueDate)
	}
	if patch.ShippingCharges != nil {
		set("shipping_charges", *patch.ShippingCharges)
	}
	if patch.DiscountPercent != nil {
		set("discount_percent", *patch.DiscountPercent)
	}
	if patch.Status != nil {
		set("status", *patch.Status)
	}
	if patch.Notes != nil {
		set("notes", *patch.Notes)
	}
	if patch.Subtotal != nil {
		set("subtotal", *patch.Subtotal)
	}
	if patch.Tax != nil {
		set("tax", *patch.Tax)
	}
	if patch.Total != nil {
		set("total", *patch.Total)
	}
	set("updated_at", sq.Expr("NOW()"))

	// plain predicates: sq.Eq would turn the uuid into its driver value
	return stmt.
		Where("tenant_id = ?", tenantID).
		Where("id = ?", id).
		ToSql()
}

// Delete removes the invoice; items go with it through ON DELETE CASCADE.
func (r *invoiceRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	query := `DELETE FROM invoices WHERE tenant_id = $1 AND id = $2`
	tag, err := r.db.Exec(ctx, query, tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to delete invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

// ExistsByNumber checks invoice numbers across all tenants.
func (r *invoiceRepo) ExistsByNumber(ctx context.Context, invoiceNumber string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM invoices WHERE invoice_number = $1)`
	if err := r.db.QueryRow(ctx, query, invoiceNumber).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check invoice number: %w", err)
	}
	return exists, nil
}

func (r *invoiceRepo) Stats(ctx context.Context, tenantID uuid.UUID, now time.Time) (*models.InvoiceStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'paid'),
			COUNT(*) FILTER (WHERE status = 'overdue' AND due_date < $2),
			COALESCE(SUM(total), 0),
			COALESCE(SUM(total) FILTER (WHERE status = 'paid'), 0),
			COALESCE(SUM(total) FILTER (WHERE status = 'pending'), 0)
		FROM invoices
		WHERE tenant_id = $1
	`
	stats := &models.InvoiceStats{}
	err := r.db.QueryRow(ctx, query, tenantID, now).Scan(
		&stats.TotalInvoices, &stats.PendingInvoices, &stats.PaidInvoices, &stats.OverdueInvoices,
		&stats.TotalAmount, &stats.PaidAmount, &stats.PendingAmount,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute invoice stats: %w", err)
	}
	return stats, nil
}

func scanInvoice(row pgx.Row) (*models.Invoice, error) {
	invoice := &models.Invoice{Author: &models.InvoiceAuthor{}}
	err := row.Scan(
		&invoice.ID, &invoice.TenantID, &invoice.UserID, &invoice.InvoiceNumber, &invoice.ClientName, &invoice.ClientEmail, &invoice.ClientAddress,
		&invoice.IssueDate, &invoice.DueDate, &invoice.Subtotal, &invoice.Tax, &invoice.ShippingCharges, &invoice.DiscountPercent, &invoice.Total,
		&invoice.GSTPercent, &invoice.SGSTPercent, &invoice.CGSTPercent, &invoice.Status, &invoice.Notes, &invoice.CreatedAt, &invoice.UpdatedAt,
		&invoice.Author.FirstName, &invoice.Author.LastName, &invoice.Author.Email,
	)
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

func mapInvoiceWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == invoiceNumberConstraint {
		return common.ErrDuplicateInvoiceNumber
	}
	return fmt.Errorf("failed to write invoice: %w", err)
}
