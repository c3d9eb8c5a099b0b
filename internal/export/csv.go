// Package export serialises orders to CSV for bookkeeping downloads.
package export

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kiwari-pos/orderdesk/internal/model"
	"github.com/kiwari-pos/orderdesk/internal/query"
	"github.com/shopspring/decimal"
)

// Header is the fixed first row of every export.
const Header = "Order ID,Date,Customer,Email,Status,Total,Items"

const (
	dateLayout     = "2006-01-02 15:04:05"
	dayLayout      = "2006-01-02"
	openRangeLabel = "-"
)

// Options controls scoping and annotations of an export.
type Options struct {
	IncludeSummary bool
	DateFrom       *time.Time
	DateTo         *time.Time
	// Location renders the Date column; nil keeps each order's own zone.
	Location *time.Location
}

// ToCSV renders orders as CSV text. When a date bound is set the input is
// narrowed first and a Date Range line is appended after the data rows.
func ToCSV(orders []model.Order, opts Options) string {
	hasRange := opts.DateFrom != nil || opts.DateTo != nil
	if hasRange {
		orders = query.ApplyFilters(orders, query.Filters{
			DateFrom: opts.DateFrom,
			DateTo:   opts.DateTo,
		})
	}

	var b strings.Builder
	b.WriteString(Header)
	b.WriteByte('\n')

	revenue := decimal.Zero
	for _, o := range orders {
		revenue = revenue.Add(o.Total)
		writeRow(&b, []string{
			o.ID,
			formatDate(o.CreatedAt, opts.Location),
			o.CustomerName,
			o.CustomerEmail,
			string(o.Status),
			o.Total.StringFixed(2),
			itemsSummary(o.Items),
		})
	}

	if hasRange {
		b.WriteString(quoteAll("Date Range", dayOrOpen(opts.DateFrom)+" to "+dayOrOpen(opts.DateTo)))
		b.WriteByte('\n')
	}
	if opts.IncludeSummary {
		b.WriteString(quoteAll("Total Orders", strconv.Itoa(len(orders))))
		b.WriteByte('\n')
		b.WriteString(quoteAll("Total Revenue", revenue.StringFixed(2)))
		b.WriteByte('\n')
	}
	return b.String()
}

// Filename builds the attachment name used for Content-Disposition.
func Filename(prefix string, now time.Time) string {
	if prefix == "" {
		prefix = "orders"
	}
	return fmt.Sprintf("%s-%s.csv", prefix, now.Format(dayLayout))
}

// Escape quotes a field when it contains a delimiter, quote or line break,
// doubling any internal quotes.
func Escape(field string) string {
	if !strings.ContainsAny(field, ",\"\r\n") {
		return field
	}
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}

func writeRow(b *strings.Builder, fields []string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(Escape(f))
	}
	b.WriteByte('\n')
}

// quoteAll renders an annotation row with every field quoted.
func quoteAll(fields ...string) string {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	return strings.Join(quoted, ",")
}

func itemsSummary(items []model.OrderItem) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = fmt.Sprintf("%dx %s", item.Quantity, item.Name)
	}
	return strings.Join(parts, "; ")
}

func formatDate(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(dateLayout)
}

func dayOrOpen(t *time.Time) string {
	if t == nil {
		return openRangeLabel
	}
	return t.Format(dayLayout)
}
