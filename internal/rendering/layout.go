package rendering

import (
	"fmt"
	"strconv"
	"strings"
)

// A4 in points. Layout coordinates grow downward from the top edge and a text
// element's Y is its baseline.
const (
	PageWidth  = 595.0
	PageHeight = 842.0
)

// Space that must remain below the cursor before an item row, before the
// totals block, before the notes block and before each note line.
const (
	minSpaceBeforeItem  = 200.0
	minSpaceBeforeTotal = 180.0
	minSpaceBeforeNotes = 100.0
	minSpaceBeforeNote  = 80.0

	pageTop       = 60.0
	continuedTop  = 100.0
	itemRowHeight = 25.0
)

type Kind int

const (
	KindText Kind = iota
	KindRect
	KindLine
)

// Role tags what an element represents on the page.
type Role string

const (
	RoleBrand           Role = "brand"
	RoleTitle           Role = "title"
	RoleInvoiceNumber   Role = "invoice_number"
	RoleIssueDate       Role = "issue_date"
	RoleDueDate         Role = "due_date"
	RoleStatus          Role = "status"
	RoleBillToLabel     Role = "bill_to_label"
	RoleClientName      Role = "client_name"
	RoleClientEmail     Role = "client_email"
	RoleClientAddress   Role = "client_address"
	RoleSeparator       Role = "separator"
	RoleTableHeader     Role = "table_header"
	RoleItemDescription Role = "item_description"
	RoleItemQuantity    Role = "item_quantity"
	RoleItemUnitPrice   Role = "item_unit_price"
	RoleItemAmount      Role = "item_amount"
	RoleTotalsRule      Role = "totals_rule"
	RoleSubtotal        Role = "subtotal"
	RoleTax             Role = "tax"
	RoleTotalBox        Role = "total_box"
	RoleTotal           Role = "total"
	RoleNotesLabel      Role = "notes_label"
	RoleNoteLine        Role = "note_line"
	RoleFooter          Role = "footer"
)

type Color struct {
	R, G, B int
}

var (
	colorPrimary  = Color{59, 130, 246}
	colorAccent   = Color{20, 184, 166}
	colorDark     = Color{3, 7, 23}
	colorGray     = Color{102, 102, 102}
	colorBlack    = Color{0, 0, 0}
	colorWhite    = Color{255, 255, 255}
	colorHeaderBg = Color{242, 247, 255}
	colorPaid     = Color{34, 139, 34}
	colorOverdue  = Color{220, 20, 60}
	statusColors  = map[string]Color{"paid": colorPaid, "sent": colorPrimary, "draft": colorGray, "overdue": colorOverdue}
)

// Element is one positioned drawing instruction. Rects use X, Y as the top
// left corner; lines run from X, Y to X2, Y2.
type Element struct {
	Kind     Kind
	Role     Role
	X, Y     float64
	X2, Y2   float64
	W, H     float64
	Text     string
	Size     float64
	Bold     bool
	Color    Color
	MaxWidth float64
}

type Page struct {
	Elements []Element
}

// Options customize branding.
type Options struct {
	BrandName      string
	CurrencyPrefix string
	DateLayout     string
}

func (o Options) withDefaults() Options {
	if o.BrandName == "" {
		o.BrandName = "InvoiceFlow"
	}
	if o.CurrencyPrefix == "" {
		o.CurrencyPrefix = "Rs."
	}
	if o.DateLayout == "" {
		o.DateLayout = "02-Jan-2006"
	}
	return o
}

type layout struct {
	opts  Options
	pages []Page
	y     float64
}

func (l *layout) remaining() float64 {
	return PageHeight - l.y
}

func (l *layout) newPage(top float64) {
	l.pages = append(l.pages, Page{})
	l.y = top
}

func (l *layout) add(e Element) {
	p := &l.pages[len(l.pages)-1]
	p.Elements = append(p.Elements, e)
}

func (l *layout) text(role Role, x, y float64, s string, size float64, bold bool, c Color) {
	l.add(Element{Kind: KindText, Role: role, X: x, Y: y, Text: s, Size: size, Bold: bold, Color: c})
}

func (l *layout) money(v float64) string {
	return fmt.Sprintf("%s%.2f", l.opts.CurrencyPrefix, v)
}

// Layout places the document on as many pages as needed. It is deterministic
// and does not touch any PDF machinery.
func Layout(doc Document, opts Options) []Page {
	l := &layout{opts: opts.withDefaults()}
	l.newPage(pageTop)

	l.header(doc)
	l.billTo(doc)

	l.add(Element{Kind: KindLine, Role: RoleSeparator, X: 50, Y: l.y, X2: PageWidth - 50, Y2: l.y, Color: colorPrimary})
	l.y += 30
	l.tableHeader()

	for _, row := range doc.Items {
		if l.remaining() < minSpaceBeforeItem {
			l.newPage(pageTop)
			l.tableHeader()
		}
		l.item(row)
	}

	l.y += 40
	if l.remaining() < minSpaceBeforeTotal {
		l.newPage(continuedTop)
	}
	l.totals(doc)

	if doc.Notes != "" {
		l.notes(doc.Notes)
	}

	l.text(RoleFooter, 50, PageHeight-50, "Thank you for your business!", 10, true, colorAccent)
	l.text(RoleFooter, 50, PageHeight-35, "Powered by "+l.opts.BrandName, 8, false, colorGray)

	return l.pages
}

func (l *layout) header(doc Document) {
	l.text(RoleBrand, 50, l.y, l.opts.BrandName, 24, true, colorPrimary)
	l.text(RoleTitle, PageWidth-150, l.y, "INVOICE", 24, true, colorDark)
	l.y += 50

	x := PageWidth - 200
	l.text(RoleInvoiceNumber, x, l.y, "Invoice #: "+doc.InvoiceNumber, 11, true, colorBlack)
	l.y += 20
	l.text(RoleIssueDate, x, l.y, "Issue Date: "+doc.IssueDate.Format(l.opts.DateLayout), 10, false, colorGray)
	l.y += 15

	if !SameDay(doc.IssueDate, doc.DueDate) {
		l.text(RoleDueDate, x, l.y, "Due Date: "+doc.DueDate.Format(l.opts.DateLayout), 10, false, colorGray)
		l.y += 15
	}

	l.y += 5
	color, ok := statusColors[doc.Status]
	if !ok {
		color = colorGray
	}
	l.text(RoleStatus, x, l.y, "Status: "+strings.ToUpper(doc.Status), 10, true, color)
	l.y += 60
}

func (l *layout) billTo(doc Document) {
	l.text(RoleBillToLabel, 50, l.y, "BILL TO:", 11, true, colorPrimary)
	l.y += 20
	l.text(RoleClientName, 50, l.y, doc.ClientName, 12, true, colorBlack)
	l.y += 18
	l.text(RoleClientEmail, 50, l.y, doc.ClientEmail, 10, false, colorGray)
	if doc.ClientAddress != "" {
		l.y += 15
		l.text(RoleClientAddress, 50, l.y, doc.ClientAddress, 10, false, colorGray)
	}
	l.y += 40
}

func (l *layout) tableHeader() {
	l.add(Element{Kind: KindRect, Role: RoleTableHeader, X: 50, Y: l.y - 5, W: PageWidth - 100, H: 25, Color: colorHeaderBg})
	baseline := l.y + 15
	l.text(RoleTableHeader, 60, baseline, "DESCRIPTION", 10, true, colorDark)
	l.text(RoleTableHeader, PageWidth-240, baseline, "QTY", 10, true, colorDark)
	l.text(RoleTableHeader, PageWidth-180, baseline, "UNIT PRICE", 10, true, colorDark)
	l.text(RoleTableHeader, PageWidth-100, baseline, "AMOUNT", 10, true, colorDark)
	l.y += 40
}

func (l *layout) item(row Row) {
	l.add(Element{Kind: KindText, Role: RoleItemDescription, X: 60, Y: l.y, Text: row.Description, Size: 10, Color: colorBlack, MaxWidth: 250})
	l.text(RoleItemQuantity, PageWidth-235, l.y, strconv.FormatFloat(row.Quantity, 'f', -1, 64), 10, false, colorBlack)
	l.text(RoleItemUnitPrice, PageWidth-180, l.y, l.money(row.UnitPrice), 10, false, colorBlack)
	l.text(RoleItemAmount, PageWidth-100, l.y, l.money(row.Amount), 10, false, colorBlack)
	l.y += itemRowHeight
}

func (l *layout) totals(doc Document) {
	l.add(Element{Kind: KindLine, Role: RoleTotalsRule, X: PageWidth - 280, Y: l.y, X2: PageWidth - 50, Y2: l.y, Color: colorGray})
	l.y += 25

	labelX, valueX := PageWidth-260, PageWidth-140
	l.text(RoleSubtotal, labelX, l.y, "Subtotal:", 11, false, colorBlack)
	l.text(RoleSubtotal, valueX, l.y, l.money(doc.Subtotal), 11, false, colorBlack)
	l.y += 20
	l.text(RoleTax, labelX, l.y, "Tax:", 11, false, colorBlack)
	l.text(RoleTax, valueX, l.y, l.money(doc.Tax), 11, false, colorBlack)
	l.y += 25

	l.add(Element{Kind: KindRect, Role: RoleTotalBox, X: PageWidth - 280, Y: l.y - 15, W: 230, H: 35, Color: colorPrimary})
	l.text(RoleTotal, labelX, l.y+8, "TOTAL:", 14, true, colorWhite)
	l.text(RoleTotal, valueX, l.y+8, l.money(doc.Total), 14, true, colorWhite)
	l.y += 60
}

func (l *layout) notes(notes string) {
	l.y += 20
	if l.remaining() < minSpaceBeforeNotes {
		l.newPage(continuedTop)
	}
	l.text(RoleNotesLabel, 50, l.y, "NOTES:", 10, true, colorPrimary)
	l.y += 18

	for _, line := range strings.Split(notes, "\n") {
		if l.remaining() < minSpaceBeforeNote {
			l.newPage(pageTop)
		}
		l.add(Element{Kind: KindText, Role: RoleNoteLine, X: 50, Y: l.y, Text: line, Size: 9, Color: colorGray, MaxWidth: PageWidth - 100})
		l.y += 15
	}
}
