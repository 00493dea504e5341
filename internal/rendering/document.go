package rendering

import (
	"time"

	"invoiceflow/internal/models"
)

// Document is the already validated, plain number view of an invoice that
// the layout engine consumes.
type Document struct {
	InvoiceNumber string
	ClientName    string
	ClientEmail   string
	ClientAddress string
	IssueDate     time.Time
	DueDate       time.Time
	Status        string
	Items         []Row
	Subtotal      float64
	Tax           float64
	Total         float64
	Notes         string
}

type Row struct {
	Description string
	Quantity    float64
	UnitPrice   float64
	Amount      float64
}

// FromInvoice converts a persisted invoice. Items keep their stored order.
func FromInvoice(inv *models.Invoice) Document {
	doc := Document{
		InvoiceNumber: inv.InvoiceNumber,
		ClientName:    inv.ClientName,
		ClientEmail:   inv.ClientEmail,
		IssueDate:     inv.IssueDate,
		DueDate:       inv.DueDate,
		Status:        inv.Status,
		Subtotal:      inv.Subtotal,
		Tax:           inv.Tax,
		Total:         inv.Total,
		Items:         make([]Row, 0, len(inv.Items)),
	}
	if inv.ClientAddress != nil {
		doc.ClientAddress = *inv.ClientAddress
	}
	if inv.Notes != nil {
		doc.Notes = *inv.Notes
	}
	for _, item := range inv.Items {
		doc.Items = append(doc.Items, Row{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Amount:      item.Amount,
		})
	}
	return doc
}

// SameDay reports whether two instants fall on the same calendar date.
// Only the date part is compared, never the time of day.
func SameDay(a, b time.Time) bool {
	return a.Format("2006-01-02") == b.Format("2006-01-02")
}
