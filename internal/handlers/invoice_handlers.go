package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"invoiceflow/internal/common"
	"invoiceflow/internal/models"
	"invoiceflow/internal/services"

	"github.com/labstack/echo/v4"
)

// InvoiceHandlers handles HTTP requests for invoices
type InvoiceHandlers struct {
	invoiceService services.InvoiceServiceInterface
}

// NewInvoiceHandlers creates a new invoice handlers instance
func NewInvoiceHandlers(invoiceService services.InvoiceServiceInterface) *InvoiceHandlers {
	return &InvoiceHandlers{invoiceService: invoiceService}
}

type InvoiceItemRequest struct {
	Description string `json:"description" validate:"required"`
	Quantity    Amount `json:"quantity" validate:"gte=1"`
	BaseAmount  Amount `json:"base_amount" validate:"gte=0"`
	UnitPrice   Amount `json:"unit_price" validate:"gte=0"`
	GSTPercent  Amount `json:"gst_percent" validate:"gte=0"`
	SGSTPercent Amount `json:"sgst_percent" validate:"gte=0"`
	CGSTPercent Amount `json:"cgst_percent" validate:"gte=0"`
	TotalAmount Amount `json:"total_amount" validate:"gte=0"`
}

// CreateInvoiceRequest carries the editor's state. Amounts sent by the client
// are inputs only; every derived figure is recomputed server side.
type CreateInvoiceRequest struct {
	InvoiceNumber   string               `json:"invoice_number" validate:"required"`
	ClientName      string               `json:"client_name" validate:"required"`
	ClientEmail     string               `json:"client_email" validate:"required,email"`
	ClientAddress   *string              `json:"client_address"`
	IssueDate       string               `json:"issue_date" validate:"required"`
	DueDate         string               `json:"due_date"`
	ShippingCharges Amount               `json:"shipping_charges" validate:"gte=0"`
	DiscountPercent Amount               `json:"discount_percent" validate:"gte=0,lte=100"`
	Status          string               `json:"status" validate:"omitempty,oneof=draft sent pending paid overdue"`
	Notes           *string              `json:"notes"`
	Items           []InvoiceItemRequest `json:"items" validate:"required,min=1,dive"`
}

type UpdateInvoiceRequest struct {
	InvoiceNumber   *string              `json:"invoice_number" validate:"omitempty,min=1"`
	ClientName      *string              `json:"client_name" validate:"omitempty,min=1"`
	ClientEmail     *string              `json:"client_email" validate:"omitempty,email"`
	ClientAddress   *string              `json:"client_address"`
	IssueDate       *string              `json:"issue_date"`
	DueDate         *string              `json:"due_date"`
	ShippingCharges *Amount              `json:"shipping_charges" validate:"omitempty,gte=0"`
	DiscountPercent *Amount              `json:"discount_percent" validate:"omitempty,gte=0,lte=100"`
	Status          *string              `json:"status" validate:"omitempty,oneof=draft sent pending paid overdue"`
	Notes           *string              `json:"notes"`
	Items           []InvoiceItemRequest `json:"items" validate:"omitempty,dive"`
}

func toInvoiceItems(reqs []InvoiceItemRequest) []models.InvoiceItem {
	items := make([]models.InvoiceItem, 0, len(reqs))
	for _, r := range reqs {
		items = append(items, models.InvoiceItem{
			Description: r.Description,
			Quantity:    float64(r.Quantity),
			BaseAmount:  float64(r.BaseAmount),
			UnitPrice:   float64(r.UnitPrice),
			GSTPercent:  float64(r.GSTPercent),
			SGSTPercent: float64(r.SGSTPercent),
			CGSTPercent: float64(r.CGSTPercent),
			TotalAmount: float64(r.TotalAmount),
		})
	}
	return items
}

// ListInvoices handles GET /invoices
func (h *InvoiceHandlers) ListInvoices(c echo.Context) error {
	tenantID, _, ok := identityFromContext(c)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	limit, offset, err := common.ValidatePaginationParams(limit, offset)
	if err != nil {
		return common.SendValidationError(c, "offset", err.Error())
	}

	invoices, err := h.invoiceService.ListInvoices(c.Request().Context(), tenantID, limit, offset)
	if err != nil {
		return respondError(c, err, "invoices")
	}
	if invoices == nil {
		invoices = []*models.Invoice{}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":   invoices,
		"limit":  limit,
		"offset": offset,
	})
}

// CreateInvoice handles POST /invoices
func (h *InvoiceHandlers) CreateInvoice(c echo.Context) error {
	tenantID, userID, ok := identityFromContext(c)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req CreateInvoiceRequest
	if proceed, err := bindAndValidate(c, &req); !proceed {
		return err
	}

	issueDate, err := parseDate(req.IssueDate)
	if err != nil {
		return common.SendValidationError(c, "issue_date", dateFormatMessage)
	}

	invoice := &models.Invoice{
		TenantID:        tenantID,
		UserID:          userID,
		InvoiceNumber:   req.InvoiceNumber,
		ClientName:      req.ClientName,
		ClientEmail:     req.ClientEmail,
		ClientAddress:   req.ClientAddress,
		IssueDate:       issueDate,
		ShippingCharges: float64(req.ShippingCharges),
		DiscountPercent: float64(req.DiscountPercent),
		Status:          req.Status,
		Notes:           req.Notes,
		Items:           toInvoiceItems(req.Items),
	}
	if req.DueDate != "" {
		invoice.DueDate, err = parseDate(req.DueDate)
		if err != nil {
			return common.SendValidationError(c, "due_date", dateFormatMessage)
		}
	}

	created, err := h.invoiceService.CreateInvoice(c.Request().Context(), invoice)
	if err != nil {
		return respondError(c, err, "invoice")
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{"invoice": created})
}

// GetInvoice handles GET /invoices/:id
func (h *InvoiceHandlers) GetInvoice(c echo.Context) error {
	tenantID, _, ok := identityFromContext(c)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	invoiceID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	invoice, err := h.invoiceService.GetInvoiceByID(c.Request().Context(), tenantID, invoiceID)
	if err != nil {
		return respondError(c, err, "invoice")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"invoice": invoice})
}

// UpdateInvoice handles PUT and PATCH /invoices/:id. Only the fields present
// in the body change.
func (h *InvoiceHandlers) UpdateInvoice(c echo.Context) error {
	tenantID, _, ok := identityFromContext(c)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	invoiceID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	var req UpdateInvoiceRequest
	if proceed, err := bindAndValidate(c, &req); !proceed {
		return err
	}

	patch := &models.InvoicePatch{
		InvoiceNumber: req.InvoiceNumber,
		ClientName:    req.ClientName,
		ClientEmail:   req.ClientEmail,
		ClientAddress: req.ClientAddress,
		Status:        req.Status,
		Notes:         req.Notes,
	}
	if req.IssueDate != nil {
		issueDate, err := parseDate(*req.IssueDate)
		if err != nil {
			return common.SendValidationError(c, "issue_date", dateFormatMessage)
		}
		patch.IssueDate = &issueDate
	}
	if req.DueDate != nil {
		dueDate, err := parseDate(*req.DueDate)
		if err != nil {
			return common.SendValidationError(c, "due_date", dateFormatMessage)
		}
		patch.DueDate = &dueDate
	}
	if req.ShippingCharges != nil {
		shipping := float64(*req.ShippingCharges)
		patch.ShippingCharges = &shipping
	}
	if req.DiscountPercent != nil {
		discount := float64(*req.DiscountPercent)
		patch.DiscountPercent = &discount
	}
	if req.Items != nil {
		patch.Items = toInvoiceItems(req.Items)
	}

	updated, err := h.invoiceService.UpdateInvoice(c.Request().Context(), tenantID, invoiceID, patch)
	if err != nil {
		return respondError(c, err, "invoice")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"invoice": updated})
}

// DeleteInvoice handles DELETE /invoices/:id
func (h *InvoiceHandlers) DeleteInvoice(c echo.Context) error {
	tenantID, _, ok := identityFromContext(c)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	invoiceID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	if err := h.invoiceService.DeleteInvoice(c.Request().Context(), tenantID, invoiceID); err != nil {
		return respondError(c, err, "invoice")
	}

	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

// GetInvoiceStats handles GET /invoices/stats
func (h *InvoiceHandlers) GetInvoiceStats(c echo.Context) error {
	tenantID, _, ok := identityFromContext(c)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	stats, err := h.invoiceService.GetStats(c.Request().Context(), tenantID)
	if err != nil {
		return respondError(c, err, "invoice stats")
	}

	return c.JSON(http.StatusOK, stats)
}

// DownloadInvoicePDF handles GET /invoices/:id/pdf
func (h *InvoiceHandlers) DownloadInvoicePDF(c echo.Context) error {
	tenantID, _, ok := identityFromContext(c)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	invoiceID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	rendered, err := h.invoiceService.RenderPDF(c.Request().Context(), tenantID, invoiceID)
	if err != nil {
		return respondError(c, err, "invoice")
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", rendered.Filename))
	return c.Blob(http.StatusOK, "application/pdf", rendered.Data)
}

// ArchiveInvoicePDF handles POST /invoices/:id/pdf/archive
func (h *InvoiceHandlers) ArchiveInvoicePDF(c echo.Context) error {
	tenantID, _, ok := identityFromContext(c)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	invoiceID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	archived, err := h.invoiceService.ArchivePDF(c.Request().Context(), tenantID, invoiceID)
	if err != nil {
		return respondError(c, err, "invoice")
	}

	return c.JSON(http.StatusOK, archived)
}

// SendInvoice handles POST /invoices/:id/send
func (h *InvoiceHandlers) SendInvoice(c echo.Context) error {
	tenantID, _, ok := identityFromContext(c)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	invoiceID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	invoice, err := h.invoiceService.SendInvoice(c.Request().Context(), tenantID, invoiceID)
	if err != nil {
		return respondError(c, err, "invoice")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"invoice": invoice})
}
