package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"invoiceflow/internal/caching"
	"invoiceflow/internal/calculator"
	"invoiceflow/internal/common"
	"invoiceflow/internal/events"
	"invoiceflow/internal/models"
	"invoiceflow/internal/rendering"
	"invoiceflow/internal/repositories"

	"github.com/google/uuid"
)

const (
	pdfContentType = "application/pdf"
	pdfCacheTTL    = time.Hour
)

// InvoiceServiceInterface defines the interface for invoice service
type InvoiceServiceInterface interface {
	CreateInvoice(ctx context.Context, invoice *models.Invoice) (*models.Invoice, error)
	GetInvoiceByID(ctx context.Context, tenantID, invoiceID uuid.UUID) (*models.Invoice, error)
	ListInvoices(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Invoice, error)
	UpdateInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID, patch *models.InvoicePatch) (*models.Invoice, error)
	DeleteInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) error

	GetStats(ctx context.Context, tenantID uuid.UUID) (*models.InvoiceStats, error)
	RefreshStats(ctx context.Context, tenantID uuid.UUID) (*models.InvoiceStats, error)

	RenderPDF(ctx context.Context, tenantID, invoiceID uuid.UUID) (*RenderedInvoice, error)
	ArchivePDF(ctx context.Context, tenantID, invoiceID uuid.UUID) (*ArchivedInvoice, error)
	SendInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (*models.Invoice, error)
}

// DocumentRenderer turns a prepared document into PDF bytes.
type DocumentRenderer interface {
	Render(doc rendering.Document) ([]byte, error)
}

type RenderedInvoice struct {
	Invoice  *models.Invoice
	Filename string
	Data     []byte
}

type ArchivedInvoice struct {
	ObjectName string    `json:"object_name"`
	URL        string    `json:"url"`
	ExpiresAt  time.Time `json:"expires_at"`
}

type InvoiceServiceConfig struct {
	BrandName string
	Bucket    string
	URLExpiry time.Duration
	StatsTTL  time.Duration
}

type invoiceService struct {
	invoiceRepo repositories.InvoiceRepository
	cacheSvc    caching.CacheService
	renderer    DocumentRenderer
	storage     StorageService
	mailer      MailService
	publisher   events.Publisher
	cfg         InvoiceServiceConfig
	now         func() time.Time
}

// NewInvoiceService creates a new invoice service
func NewInvoiceService(
	invoiceRepo repositories.InvoiceRepository,
	cacheSvc caching.CacheService,
	renderer DocumentRenderer,
	storage StorageService,
	mailer MailService,
	publisher events.Publisher,
	cfg InvoiceServiceConfig,
) InvoiceServiceInterface {
	return &invoiceService{
		invoiceRepo: invoiceRepo,
		cacheSvc:    cacheSvc,
		renderer:    renderer,
		storage:     storage,
		mailer:      mailer,
		publisher:   publisher,
		cfg:         cfg,
		now:         time.Now,
	}
}

// validateItems runs before anything touches the database.
func validateItems(items []models.InvoiceItem, verr *common.ValidationError) {
	if len(items) == 0 {
		verr.Add("items", "At least one item is required")
		return
	}
	for i, item := range items {
		if strings.TrimSpace(item.Description) == "" {
			verr.Add(fmt.Sprintf("items[%d].description", i), "Description is required")
		}
		if item.Quantity < 1 {
			verr.Add(fmt.Sprintf("items[%d].quantity", i), "Quantity must be at least 1")
		}
		if item.UnitPrice < 0 || item.BaseAmount < 0 || item.TotalAmount < 0 {
			verr.Add(fmt.Sprintf("items[%d].amount", i), "Amounts must not be negative")
		}
		if item.GSTPercent < 0 || item.SGSTPercent < 0 || item.CGSTPercent < 0 {
			verr.Add(fmt.Sprintf("items[%d].tax", i), "Tax rates must not be negative")
		}
	}
}

func validateInvoice(invoice *models.Invoice) error {
	verr := &common.ValidationError{}

	if strings.TrimSpace(invoice.InvoiceNumber) == "" {
		verr.Add("invoice_number", "Invoice number is required")
	}
	if strings.TrimSpace(invoice.ClientName) == "" {
		verr.Add("client_name", "Client name is required")
	}
	if strings.TrimSpace(invoice.ClientEmail) == "" {
		verr.Add("client_email", "Client email is required")
	}
	if invoice.IssueDate.IsZero() {
		verr.Add("issue_date", "Issue date is required")
	}
	if invoice.ShippingCharges < 0 {
		verr.Add("shipping_charges", "Shipping charges must not be negative")
	}
	if invoice.DiscountPercent < 0 || invoice.DiscountPercent > 100 {
		verr.Add("discount_percent", "Discount must be between 0 and 100")
	}
	if invoice.Status != "" && !slices.Contains(models.ValidInvoiceStatuses, invoice.Status) {
		verr.Add("status", "Invalid status")
	}
	validateItems(invoice.Items, verr)

	if verr.HasErrors() {
		return verr
	}
	return nil
}

// CreateInvoice validates, checks the number is free, computes every derived
// amount and persists the invoice with its items.
func (s *invoiceService) CreateInvoice(ctx context.Context, invoice *models.Invoice) (*models.Invoice, error) {
	if err := validateInvoice(invoice); err != nil {
		return nil, err
	}

	exists, err := s.invoiceRepo.ExistsByNumber(ctx, invoice.InvoiceNumber)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, common.ErrDuplicateInvoiceNumber
	}

	items, totals := calculator.Resolve(invoice.Items, invoice.ShippingCharges, invoice.DiscountPercent)

	now := s.now()
	invoice.ID = uuid.New()
	invoice.Items = items
	invoice.Subtotal = totals.Subtotal
	invoice.Tax = totals.ItemTax
	invoice.ShippingCharges = totals.Shipping
	invoice.DiscountPercent = calculator.Round2(invoice.DiscountPercent)
	invoice.Total = totals.Total
	invoice.GSTPercent, invoice.SGSTPercent, invoice.CGSTPercent = 0, 0, 0
	if invoice.DueDate.IsZero() {
		invoice.DueDate = invoice.IssueDate
	}
	if invoice.Status == "" {
		invoice.Status = models.InvoiceStatusDraft
	}
	if invoice.Notes == nil || strings.TrimSpace(*invoice.Notes) == "" {
		notes := models.DefaultInvoiceNotes
		invoice.Notes = &notes
	}
	invoice.CreatedAt = now
	invoice.UpdatedAt = now

	if err := s.invoiceRepo.Create(ctx, invoice); err != nil {
		return nil, err
	}

	s.afterWrite(ctx, events.InvoiceCreated, invoice)
	slog.InfoContext(ctx, "invoice created", "invoice_id", invoice.ID, "invoice_number", invoice.InvoiceNumber, "total", invoice.Total)

	return invoice, nil
}

func (s *invoiceService) GetInvoiceByID(ctx context.Context, tenantID, invoiceID uuid.UUID) (*models.Invoice, error) {
	return s.invoiceRepo.GetByID(ctx, tenantID, invoiceID)
}

func (s *invoiceService) ListInvoices(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Invoice, error) {
	return s.invoiceRepo.List(ctx, tenantID, limit, offset)
}

// UpdateInvoice applies a partial update. Totals are recomputed whenever the
// items, shipping or discount change.
func (s *invoiceService) UpdateInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID, patch *models.InvoicePatch) (*models.Invoice, error) {
	verr := &common.ValidationError{}
	if patch.Items != nil {
		validateItems(patch.Items, verr)
	}
	if patch.Status != nil && !slices.Contains(models.ValidInvoiceStatuses, *patch.Status) {
		verr.Add("status", "Invalid status")
	}
	if patch.ShippingCharges != nil && *patch.ShippingCharges < 0 {
		verr.Add("shipping_charges", "Shipping charges must not be negative")
	}
	if patch.DiscountPercent != nil && (*patch.DiscountPercent < 0 || *patch.DiscountPercent > 100) {
		verr.Add("discount_percent", "Discount must be between 0 and 100")
	}
	if verr.HasErrors() {
		return nil, verr
	}

	current, err := s.invoiceRepo.GetByID(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}

	if patch.InvoiceNumber != nil && *patch.InvoiceNumber != current.InvoiceNumber {
		exists, err := s.invoiceRepo.ExistsByNumber(ctx, *patch.InvoiceNumber)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, common.ErrDuplicateInvoiceNumber
		}
	}

	if patch.IssueDate != nil && patch.DueDate == nil {
		due := *patch.IssueDate
		patch.DueDate = &due
	}

	if patch.Items != nil || patch.ShippingCharges != nil || patch.DiscountPercent != nil {
		items := current.Items
		if patch.Items != nil {
			items = patch.Items
		}
		shipping := current.ShippingCharges
		if patch.ShippingCharges != nil {
			shipping = *patch.ShippingCharges
		}
		discount := current.DiscountPercent
		if patch.DiscountPercent != nil {
			discount = calculator.Round2(*patch.DiscountPercent)
			patch.DiscountPercent = &discount
		}

		resolved, totals := calculator.Resolve(items, shipping, discount)
		if patch.Items != nil {
			patch.Items = resolved
		}
		patch.Subtotal = &totals.Subtotal
		patch.Tax = &totals.ItemTax
		patch.ShippingCharges = &totals.Shipping
		patch.Total = &totals.Total
	}

	if err := s.invoiceRepo.Update(ctx, tenantID, invoiceID, patch); err != nil {
		return nil, err
	}

	updated, err := s.invoiceRepo.GetByID(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, events.InvoiceUpdated, updated)
	return updated, nil
}

func (s *invoiceService) DeleteInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) error {
	if err := s.invoiceRepo.Delete(ctx, tenantID, invoiceID); err != nil {
		return err
	}

	// rendered PDFs of the deleted invoice go along with the stats
	if err := s.cacheSvc.InvalidateTenantCache(ctx, tenantID); err != nil {
		slog.WarnContext(ctx, "tenant cache invalidation failed", "tenant_id", tenantID, "error", err)
	}
	s.publish(ctx, events.InvoiceDeleted, &models.Invoice{ID: invoiceID, TenantID: tenantID})
	return nil
}

// GetStats serves the dashboard figures from cache when possible.
func (s *invoiceService) GetStats(ctx context.Context, tenantID uuid.UUID) (*models.InvoiceStats, error) {
	cached, err := s.cacheSvc.GetInvoiceStats(ctx, tenantID)
	if err != nil {
		slog.WarnContext(ctx, "stats cache read failed", "tenant_id", tenantID, "error", err)
	}
	if cached != nil {
		return cached, nil
	}

	return s.RefreshStats(ctx, tenantID)
}

// RefreshStats recomputes the figures and stores them in the cache.
func (s *invoiceService) RefreshStats(ctx context.Context, tenantID uuid.UUID) (*models.InvoiceStats, error) {
	stats, err := s.invoiceRepo.Stats(ctx, tenantID, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.cacheSvc.SetInvoiceStats(ctx, tenantID, stats, s.cfg.StatsTTL); err != nil {
		slog.WarnContext(ctx, "stats cache write failed", "tenant_id", tenantID, "error", err)
	}
	return stats, nil
}

func (s *invoiceService) RenderPDF(ctx context.Context, tenantID, invoiceID uuid.UUID) (*RenderedInvoice, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}

	rendered := &RenderedInvoice{
		Invoice:  invoice,
		Filename: PDFFilename(invoice.InvoiceNumber),
	}

	data, err := s.cacheSvc.GetInvoicePDF(ctx, tenantID, invoiceID, invoice.UpdatedAt)
	if err != nil {
		slog.WarnContext(ctx, "pdf cache read failed", "invoice_id", invoiceID, "error", err)
	}
	if data != nil {
		rendered.Data = data
		return rendered, nil
	}

	data, err = s.renderer.Render(rendering.FromInvoice(invoice))
	if err != nil {
		return nil, fmt.Errorf("render invoice %s: %w", invoice.InvoiceNumber, err)
	}
	rendered.Data = data

	if err := s.cacheSvc.SetInvoicePDF(ctx, tenantID, invoiceID, invoice.UpdatedAt, data, pdfCacheTTL); err != nil {
		slog.WarnContext(ctx, "pdf cache write failed", "invoice_id", invoiceID, "error", err)
	}
	return rendered, nil
}

// ArchivePDF uploads the rendered document and returns a time-limited link.
func (s *invoiceService) ArchivePDF(ctx context.Context, tenantID, invoiceID uuid.UUID) (*ArchivedInvoice, error) {
	rendered, err := s.RenderPDF(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	objectName := fmt.Sprintf("%s/%s/%d-%s", tenantID, invoiceID, now.Unix(), rendered.Filename)
	err = s.storage.Upload(ctx, s.cfg.Bucket, objectName, bytes.NewReader(rendered.Data), int64(len(rendered.Data)), pdfContentType)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", objectName, err)
	}

	url, err := s.storage.GetPresignedURL(ctx, s.cfg.Bucket, objectName, s.cfg.URLExpiry)
	if err != nil {
		if rmErr := s.storage.Delete(ctx, s.cfg.Bucket, objectName); rmErr != nil {
			slog.WarnContext(ctx, "failed to remove unreachable archive", "object", objectName, "error", rmErr)
		}
		return nil, fmt.Errorf("presign %s: %w", objectName, err)
	}

	s.publish(ctx, events.InvoiceArchived, rendered.Invoice)
	return &ArchivedInvoice{
		ObjectName: objectName,
		URL:        url,
		ExpiresAt:  now.Add(s.cfg.URLExpiry),
	}, nil
}

// SendInvoice emails the PDF to the client and marks the invoice as sent.
func (s *invoiceService) SendInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (*models.Invoice, error) {
	rendered, err := s.RenderPDF(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	invoice := rendered.Invoice

	err = s.mailer.Send(ctx, MailMessage{
		To:       []string{invoice.ClientEmail},
		Subject:  fmt.Sprintf("Invoice %s from %s", invoice.InvoiceNumber, s.cfg.BrandName),
		TextBody: invoiceMailBody(invoice, s.cfg.BrandName),
		Attachments: []Attachment{
			{Filename: rendered.Filename, ContentType: pdfContentType, Data: rendered.Data},
		},
	})
	if err != nil {
		return nil, err
	}

	status := models.InvoiceStatusSent
	if err := s.invoiceRepo.Update(ctx, tenantID, invoiceID, &models.InvoicePatch{Status: &status}); err != nil {
		return nil, err
	}
	invoice.Status = status

	s.afterWrite(ctx, events.InvoiceSent, invoice)
	slog.InfoContext(ctx, "invoice sent", "invoice_id", invoiceID, "to", invoice.ClientEmail)
	return invoice, nil
}

// afterWrite drops the tenant's cached stats and announces the change.
func (s *invoiceService) afterWrite(ctx context.Context, eventType string, invoice *models.Invoice) {
	if err := s.cacheSvc.InvalidateInvoiceStats(ctx, invoice.TenantID); err != nil {
		slog.WarnContext(ctx, "stats cache invalidation failed", "tenant_id", invoice.TenantID, "error", err)
	}
	s.publish(ctx, eventType, invoice)
}

func (s *invoiceService) publish(ctx context.Context, eventType string, invoice *models.Invoice) {
	actorID, _ := common.GetUserIDFromContext(ctx)
	s.publisher.Publish(ctx, events.InvoiceEvent{
		Type:          eventType,
		TenantID:      invoice.TenantID,
		InvoiceID:     invoice.ID,
		InvoiceNumber: invoice.InvoiceNumber,
		Status:        invoice.Status,
		Total:         invoice.Total,
		ActorID:       actorID,
		OccurredAt:    s.now().UTC(),
	})
}

func PDFFilename(invoiceNumber string) string {
	return fmt.Sprintf("invoice-%s.pdf", invoiceNumber)
}

func invoiceMailBody(invoice *models.Invoice, brand string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", invoice.ClientName)
	fmt.Fprintf(&b, "Please find attached invoice %s for %.2f, due on %s.\n\n",
		invoice.InvoiceNumber, invoice.Total, invoice.DueDate.Format("02 Jan 2006"))
	fmt.Fprintf(&b, "Thank you for your business!\n%s\n", brand)
	return b.String()
}
