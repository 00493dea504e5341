// Package calculator derives line item amounts and invoice totals.
//
// Every derivation rounds its outputs to two decimals before returning, so a
// chain of edits (base to total and back) can drift by a cent. Callers that
// need to reproduce stored figures must apply the same sequence of steps.
package calculator

import (
	"math"

	"invoiceflow/internal/models"
)

// Field identifies which line item input was edited.
type Field string

const (
	FieldDescription Field = "description"
	FieldQuantity    Field = "quantity"
	FieldUnitPrice   Field = "unit_price"
	FieldBaseAmount  Field = "base_amount"
	FieldTotalAmount Field = "total_amount"
	FieldGSTPercent  Field = "gst_percent"
	FieldSGSTPercent Field = "sgst_percent"
	FieldCGSTPercent Field = "cgst_percent"
)

// Totals are the invoice level figures produced by Aggregate.
type Totals struct {
	Subtotal       float64 `json:"subtotal"`
	ItemTax        float64 `json:"tax"`
	DiscountAmount float64 `json:"discount_amount"`
	Shipping       float64 `json:"shipping_charges"`
	Total          float64 `json:"total"`
}

// Round2 rounds half away from zero to two decimals. NaN and infinities become 0.
func Round2(v float64) float64 {
	v = finite(v)
	return math.Round(v*100) / 100
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// quantity never returns less than 1 so unit price division is always defined.
func quantity(item models.InvoiceItem) float64 {
	q := finite(item.Quantity)
	if q < 1 {
		return 1
	}
	return q
}

// TaxRate is the combined GST, SGST and CGST percentage of an item.
func TaxRate(item models.InvoiceItem) float64 {
	return finite(item.GSTPercent) + finite(item.SGSTPercent) + finite(item.CGSTPercent)
}

// DeriveFromBase treats BaseAmount as the driving input.
func DeriveFromBase(item models.InvoiceItem) models.InvoiceItem {
	base := finite(item.BaseAmount)
	item.UnitPrice = Round2(base / quantity(item))
	item.TotalAmount = Round2(base * (1 + TaxRate(item)/100))
	return item
}

// DeriveFromTotal treats the tax inclusive TotalAmount as the driving input.
// UnitPrice is computed from the already rounded BaseAmount.
func DeriveFromTotal(item models.InvoiceItem) models.InvoiceItem {
	total := finite(item.TotalAmount)
	item.BaseAmount = Round2(total / (1 + TaxRate(item)/100))
	item.UnitPrice = Round2(item.BaseAmount / quantity(item))
	return item
}

// DeriveFromQuantityChange only refreshes UnitPrice. Base and total stay as they are.
func DeriveFromQuantityChange(item models.InvoiceItem) models.InvoiceItem {
	item.UnitPrice = Round2(finite(item.BaseAmount) / quantity(item))
	return item
}

// ApplyEdit sets one field and runs the derivation that field triggers.
// A tax rate edit keeps the tax inclusive total fixed and backs out the base.
func ApplyEdit(item models.InvoiceItem, field Field, value float64) models.InvoiceItem {
	switch field {
	case FieldQuantity:
		item.Quantity = finite(value)
		if item.Quantity == 0 {
			item.Quantity = 1
		}
		return DeriveFromQuantityChange(item)
	case FieldBaseAmount:
		item.BaseAmount = Round2(value)
		return DeriveFromBase(item)
	case FieldTotalAmount:
		item.TotalAmount = Round2(value)
		return DeriveFromTotal(item)
	case FieldGSTPercent:
		item.GSTPercent = Round2(value)
		return DeriveFromTotal(item)
	case FieldSGSTPercent:
		item.SGSTPercent = Round2(value)
		return DeriveFromTotal(item)
	case FieldCGSTPercent:
		item.CGSTPercent = Round2(value)
		return DeriveFromTotal(item)
	case FieldUnitPrice:
		item.UnitPrice = Round2(value)
	}
	return item
}

// LineAmount is the persisted display amount of an item.
func LineAmount(item models.InvoiceItem) float64 {
	return Round2(finite(item.UnitPrice) * quantity(item))
}

// Aggregate computes invoice totals. Subtotal is built from unit price times
// quantity, not from BaseAmount. The discount applies to the subtotal only.
func Aggregate(items []models.InvoiceItem, shipping, discountPercent float64) Totals {
	var subtotal, tax float64
	for _, item := range items {
		line := finite(item.UnitPrice) * quantity(item)
		subtotal += Round2(line)
		tax += line * TaxRate(item) / 100
	}

	shipping = Round2(shipping)
	discount := subtotal * Round2(discountPercent) / 100

	return Totals{
		Subtotal:       Round2(subtotal),
		ItemTax:        Round2(tax),
		DiscountAmount: Round2(discount),
		Shipping:       shipping,
		Total:          Round2(subtotal + tax + shipping - discount),
	}
}

// Resolve normalizes every item from its base amount and fills the persisted
// amount, then aggregates. Items keep their order.
func Resolve(items []models.InvoiceItem, shipping, discountPercent float64) ([]models.InvoiceItem, Totals) {
	resolved := make([]models.InvoiceItem, len(items))
	for i, item := range items {
		item.BaseAmount = Round2(item.BaseAmount)
		item.GSTPercent = Round2(item.GSTPercent)
		item.SGSTPercent = Round2(item.SGSTPercent)
		item.CGSTPercent = Round2(item.CGSTPercent)
		if item.BaseAmount == 0 && item.TotalAmount > 0 {
			item.TotalAmount = Round2(item.TotalAmount)
			item = DeriveFromTotal(item)
		} else if item.BaseAmount == 0 && item.UnitPrice > 0 {
			item.BaseAmount = Round2(item.UnitPrice * quantity(item))
			item = DeriveFromBase(item)
		} else {
			item = DeriveFromBase(item)
		}
		item.Amount = LineAmount(item)
		item.Position = i
		resolved[i] = item
	}
	return resolved, Aggregate(resolved, shipping, discountPercent)
}
