// Package query narrows order collections by date, status and free text.
// Every function returns a new slice and leaves its input untouched.
package query

import (
	"strings"
	"time"

	"github.com/kiwari-pos/orderdesk/internal/model"
)

// Filters is the AND-composition of the supported filters.
// Nil or empty fields do not narrow the set.
type Filters struct {
	Statuses []model.Status
	DateFrom *time.Time
	DateTo   *time.Time
}

// StartOfDay returns 00:00:00 of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last instant of t's calendar day in t's location.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// FilterByDateRange keeps orders created between the start of from's day and
// the end of to's day, both inclusive.
func FilterByDateRange(orders []model.Order, from, to time.Time) []model.Order {
	return ApplyFilters(orders, Filters{DateFrom: &from, DateTo: &to})
}

// FilterByStatus keeps orders whose status is any of statuses.
func FilterByStatus(orders []model.Order, statuses ...model.Status) []model.Order {
	return ApplyFilters(orders, Filters{Statuses: statuses})
}

// ApplyFilters keeps orders matching every present filter.
func ApplyFilters(orders []model.Order, f Filters) []model.Order {
	var start, end time.Time
	if f.DateFrom != nil {
		start = StartOfDay(*f.DateFrom)
	}
	if f.DateTo != nil {
		end = EndOfDay(*f.DateTo)
	}

	out := make([]model.Order, 0, len(orders))
	for _, o := range orders {
		if len(f.Statuses) > 0 && !hasStatus(f.Statuses, o.Status) {
			continue
		}
		if f.DateFrom != nil && o.CreatedAt.Before(start) {
			continue
		}
		if f.DateTo != nil && o.CreatedAt.After(end) {
			continue
		}
		out = append(out, o)
	}
	return out
}

// Search keeps orders where the id, customer name, customer email or any item
// name contains q, ignoring case. A blank q returns every order.
func Search(orders []model.Order, q string) []model.Order {
	needle := strings.ToLower(strings.TrimSpace(q))
	out := make([]model.Order, 0, len(orders))
	for _, o := range orders {
		if needle == "" || matches(o, needle) {
			out = append(out, o)
		}
	}
	return out
}

func matches(o model.Order, needle string) bool {
	if contains(o.ID, needle) || contains(o.CustomerName, needle) || contains(o.CustomerEmail, needle) {
		return true
	}
	for _, item := range o.Items {
		if contains(item.Name, needle) {
			return true
		}
	}
	return false
}

func contains(field, needle string) bool {
	return strings.Contains(strings.ToLower(field), needle)
}

func hasStatus(set []model.Status, s model.Status) bool {
	for _, want := range set {
		if want == s {
			return true
		}
	}
	return false
}
