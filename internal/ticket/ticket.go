// Package ticket renders orders as kitchen tickets and customer receipts and
// hands them to an optional print facility.
package ticket

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kiwari-pos/orderdesk/internal/enum"
	"github.com/kiwari-pos/orderdesk/internal/metrics"
	"github.com/kiwari-pos/orderdesk/internal/model"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Mode selects which document PrintOrder produces.
type Mode string

const (
	ModeKitchen Mode = enum.TicketModeKitchen
	ModeReceipt Mode = enum.TicketModeReceipt
)

// ParseMode maps a query value to a Mode; empty means kitchen.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case "", ModeKitchen:
		return ModeKitchen, true
	case ModeReceipt:
		return ModeReceipt, true
	}
	return "", false
}

const (
	timeLayout = "2006-01-02 15:04"
	width      = 32
)

// Document is one rendered ticket ready for output.
type Document struct {
	OrderID string
	Mode    Mode
	Text    string
}

// Printer renders a document on an output device.
type Printer interface {
	Print(ctx context.Context, doc Document) error
}

// PrintResult reports a single print request.
type PrintResult struct {
	Success bool   `json:"success"`
	OrderID string `json:"order_id"`
	Mode    Mode   `json:"mode"`
	Text    string `json:"text"`
}

// BatchPrintResult reports a batch print request.
type BatchPrintResult struct {
	Success bool `json:"success"`
	Count   int  `json:"count"`
}

// Formatter produces ticket text. Printer may be nil.
type Formatter struct {
	printer  Printer
	loc      *time.Location
	currency string
	logger   *zap.Logger
}

// NewFormatter creates a Formatter. A nil loc means time.Local.
func NewFormatter(printer Printer, loc *time.Location, currency string, logger *zap.Logger) *Formatter {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Formatter{printer: printer, loc: loc, currency: currency, logger: logger}
}

// KitchenTicket renders preparation instructions without prices.
func (f *Formatter) KitchenTicket(o model.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ORDER #%s\n", o.ID)
	fmt.Fprintf(&b, "%s\n", o.CreatedAt.In(f.loc).Format(timeLayout))
	b.WriteString(rule())
	for _, item := range o.Items {
		fmt.Fprintf(&b, "%dx %s\n", item.Quantity, item.Name)
		for _, m := range item.Modifiers {
			fmt.Fprintf(&b, "   %s: %s\n", m.Name, m.Value)
		}
		if s := strings.TrimSpace(item.SpecialInstructions); s != "" {
			fmt.Fprintf(&b, "   NOTE: %s\n", s)
		}
	}
	b.WriteString(rule())
	return b.String()
}

// Receipt renders the customer-facing copy with the money breakdown.
func (f *Formatter) Receipt(o model.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ORDER #%s\n", o.ID)
	fmt.Fprintf(&b, "%s\n", o.CreatedAt.In(f.loc).Format(timeLayout))
	if o.CustomerName != "" {
		fmt.Fprintf(&b, "Customer: %s\n", o.CustomerName)
	}
	b.WriteString(rule())
	for _, item := range o.Items {
		label := fmt.Sprintf("%dx %s", item.Quantity, item.Name)
		if total, ok := item.LineTotal(); ok {
			b.WriteString(line(label, f.money(total)))
		} else {
			fmt.Fprintf(&b, "%s\n", label)
		}
		for _, m := range item.Modifiers {
			fmt.Fprintf(&b, "   %s: %s\n", m.Name, m.Value)
		}
	}
	b.WriteString(rule())
	b.WriteString(line("Subtotal", f.money(o.Subtotal)))
	b.WriteString(line("Tax", f.money(o.Tax)))
	b.WriteString(line("Tip", f.money(o.Tip)))
	b.WriteString(line("Total", f.money(o.Total)))
	return b.String()
}

// Render returns the text for mode.
func (f *Formatter) Render(o model.Order, mode Mode) string {
	if mode == ModeReceipt {
		return f.Receipt(o)
	}
	return f.KitchenTicket(o)
}

// PrintOrder formats the order and sends it to the printer. The text is the
// deliverable, so a missing or failing printer still reports success.
func (f *Formatter) PrintOrder(ctx context.Context, o model.Order, mode Mode) PrintResult {
	doc := Document{OrderID: o.ID, Mode: mode, Text: f.Render(o, mode)}
	outcome := "skipped"
	if f.printer != nil {
		outcome = "ok"
		if err := f.printer.Print(ctx, doc); err != nil {
			outcome = "error"
			f.logger.Warn("print failed",
				zap.String("order_id", o.ID),
				zap.String("mode", string(mode)),
				zap.Error(err),
			)
		}
	}
	metrics.TicketsPrintedTotal.WithLabelValues(string(mode), outcome).Inc()
	return PrintResult{Success: true, OrderID: o.ID, Mode: mode, Text: doc.Text}
}

// BatchPrint prints every order, continuing past individual failures.
func (f *Formatter) BatchPrint(ctx context.Context, orders []model.Order, mode Mode) BatchPrintResult {
	count := 0
	for _, o := range orders {
		f.PrintOrder(ctx, o, mode)
		count++
	}
	return BatchPrintResult{Success: true, Count: count}
}

func (f *Formatter) money(d decimal.Decimal) string {
	return f.currency + d.StringFixed(2)
}

func rule() string {
	return strings.Repeat("-", width) + "\n"
}

// line right-aligns value against label within the ticket width.
func line(label, value string) string {
	pad := width - len(label) - len(value)
	if pad < 1 {
		pad = 1
	}
	return label + strings.Repeat(" ", pad) + value + "\n"
}
