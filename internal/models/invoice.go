package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	InvoiceStatusDraft   = "draft"
	InvoiceStatusSent    = "sent"
	InvoiceStatusPending = "pending"
	InvoiceStatusPaid    = "paid"
	InvoiceStatusOverdue = "overdue"
)

// DefaultInvoiceNotes is stored when an invoice is created without notes.
const DefaultInvoiceNotes = "Paid Online"

type Invoice struct {
	ID              uuid.UUID      `json:"id" db:"id"`
	TenantID        uuid.UUID      `json:"tenant_id" db:"tenant_id"`
	UserID          uuid.UUID      `json:"user_id" db:"user_id"`
	InvoiceNumber   string         `json:"invoice_number" db:"invoice_number"`
	ClientName      string         `json:"client_name" db:"client_name"`
	ClientEmail     string         `json:"client_email" db:"client_email"`
	ClientAddress   *string        `json:"client_address" db:"client_address"`
	IssueDate       time.Time      `json:"issue_date" db:"issue_date"`
	DueDate         time.Time      `json:"due_date" db:"due_date"`
	Subtotal        float64        `json:"subtotal" db:"subtotal"`
	Tax             float64        `json:"tax" db:"tax"`
	ShippingCharges float64        `json:"shipping_charges" db:"shipping_charges"`
	DiscountPercent float64        `json:"discount_percent" db:"discount_percent"`
	Total           float64        `json:"total" db:"total"`
	GSTPercent      float64        `json:"gst_percent" db:"gst_percent"`
	SGSTPercent     float64        `json:"sgst_percent" db:"sgst_percent"`
	CGSTPercent     float64        `json:"cgst_percent" db:"cgst_percent"`
	Status          string         `json:"status" db:"status"`
	Notes           *string        `json:"notes" db:"notes"`
	Items           []InvoiceItem  `json:"items"`
	Author          *InvoiceAuthor `json:"user,omitempty"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at" db:"updated_at"`
}

type InvoiceItem struct {
	ID          uuid.UUID `json:"id" db:"id"`
	InvoiceID   uuid.UUID `json:"invoice_id" db:"invoice_id"`
	Position    int       `json:"position" db:"position"`
	Description string    `json:"description" db:"description"`
	Quantity    float64   `json:"quantity" db:"quantity"`
	BaseAmount  float64   `json:"base_amount" db:"base_amount"`
	UnitPrice   float64   `json:"unit_price" db:"unit_price"`
	GSTPercent  float64   `json:"gst_percent" db:"gst_percent"`
	SGSTPercent float64   `json:"sgst_percent" db:"sgst_percent"`
	CGSTPercent float64   `json:"cgst_percent" db:"cgst_percent"`
	TotalAmount float64   `json:"total_amount" db:"total_amount"`
	Amount      float64   `json:"amount" db:"amount"`
}

// InvoiceAuthor is the subset of the authoring user returned with invoice reads.
type InvoiceAuthor struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// InvoicePatch carries a partial update. Nil fields are left untouched;
// a non-nil Items replaces the whole item collection.
type InvoicePatch struct {
	InvoiceNumber   *string
	ClientName      *string
	ClientEmail     *string
	ClientAddress   *string
	IssueDate       *time.Time
	DueDate         *time.Time
	ShippingCharges *float64
	DiscountPercent *float64
	Status          *string
	Notes           *string

	// Set by the service whenever Items or the invoice-level adjustments change.
	Subtotal *float64
	Tax      *float64
	Total    *float64
	Items    []InvoiceItem
}

type InvoiceStats struct {
	TotalInvoices   int     `json:"total_invoices"`
	PendingInvoices int     `json:"pending_invoices"`
	PaidInvoices    int     `json:"paid_invoices"`
	OverdueInvoices int     `json:"overdue_invoices"`
	TotalAmount     float64 `json:"total_amount"`
	PaidAmount      float64 `json:"paid_amount"`
	PendingAmount   float64 `json:"pending_amount"`
}

// ValidInvoiceStatuses lists the accepted status labels.
var ValidInvoiceStatuses = []string{
	InvoiceStatusDraft,
	InvoiceStatusSent,
	InvoiceStatusPending,
	InvoiceStatusPaid,
	InvoiceStatusOverdue,
}
