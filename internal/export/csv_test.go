package export

import (
	"strings"
	"testing"
	"time"

	"github.com/kiwari-pos/orderdesk/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func orders() []model.Order {
	return []model.Order{
		{
			ID:            "ord-1",
			Status:        model.StatusCompleted,
			CustomerName:  "Alice Smith",
			CustomerEmail: "alice@example.com",
			Items: []model.OrderItem{
				{Name: "Burger", Quantity: 2},
				{Name: "Fries", Quantity: 1},
			},
			Total:     decimal.RequireFromString("25.5"),
			CreatedAt: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		},
		{
			ID:            "ord-2",
			Status:        model.StatusPending,
			CustomerName:  `Smith, "Bob"`,
			CustomerEmail: "bob@example.com",
			Items:         []model.OrderItem{{Name: "Tea", Quantity: 1}},
			Total:         decimal.RequireFromString("4"),
			CreatedAt:     time.Date(2024, 1, 17, 18, 0, 0, 0, time.UTC),
		},
	}
}

func TestToCSVRows(t *testing.T) {
	got := ToCSV(orders(), Options{})

	want := Header + "\n" +
		"ord-1,2024-01-15 10:30:00,Alice Smith,alice@example.com,completed,25.50,2x Burger; 1x Fries\n" +
		`ord-2,2024-01-17 18:00:00,"Smith, ""Bob""",bob@example.com,pending,4.00,1x Tea` + "\n"
	assert.Equal(t, want, got)
}

func TestToCSVEmpty(t *testing.T) {
	assert.Equal(t, Header+"\n", ToCSV(nil, Options{}))
}

func TestToCSVSummary(t *testing.T) {
	got := ToCSV(orders(), Options{IncludeSummary: true})

	lines := strings.Split(strings.TrimSuffix(got, "\n"), "\n")
	assert.Len(t, lines, 5)
	assert.Equal(t, `"Total Orders","2"`, lines[3])
	assert.Equal(t, `"Total Revenue","29.50"`, lines[4])
}

func TestToCSVDateRangeNarrowsAndAnnotates(t *testing.T) {
	from := time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 17, 0, 0, 0, 0, time.UTC)
	got := ToCSV(orders(), Options{IncludeSummary: true, DateFrom: &from, DateTo: &to})

	lines := strings.Split(strings.TrimSuffix(got, "\n"), "\n")
	assert.Equal(t, []string{
		Header,
		`ord-2,2024-01-17 18:00:00,"Smith, ""Bob""",bob@example.com,pending,4.00,1x Tea`,
		`"Date Range","2024-01-16 to 2024-01-17"`,
		`"Total Orders","1"`,
		`"Total Revenue","4.00"`,
	}, lines)
}

func TestToCSVOpenEndedRange(t *testing.T) {
	from := time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC)
	got := ToCSV(orders(), Options{DateFrom: &from})
	assert.Contains(t, got, `"Date Range","2024-01-16 to -"`)
}

func TestToCSVLocation(t *testing.T) {
	loc := time.FixedZone("WIB", 7*60*60)
	got := ToCSV(orders()[:1], Options{Location: loc})
	assert.Contains(t, got, "2024-01-15 17:30:00")
}

func TestEscape(t *testing.T) {
	tests := map[string]string{
		"plain":          "plain",
		"a,b":            `"a,b"`,
		`say "hi"`:       `"say ""hi"""`,
		"line\nbreak":    "\"line\nbreak\"",
		"carriage\rtext": "\"carriage\rtext\"",
		"":               "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Escape(in), in)
	}
}

func TestFilename(t *testing.T) {
	now := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "orders-2024-03-09.csv", Filename("orders", now))
	assert.Equal(t, "orders-2024-03-09.csv", Filename("", now))
	assert.Equal(t, "kitchen-2024-03-09.csv", Filename("kitchen", now))
}
