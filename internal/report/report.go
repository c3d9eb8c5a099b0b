// Package report aggregates order collections for the dashboard.
package report

import (
	"sort"
	"time"

	"github.com/kiwari-pos/orderdesk/internal/model"
	"github.com/shopspring/decimal"
)

// Summary holds headline numbers for a set of orders.
type Summary struct {
	TotalOrders       int             `json:"total_orders"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
	CompletedOrders   int             `json:"completed_orders"`
}

// ItemCount is the number of units sold of one item name.
type ItemCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// SummaryStats sums every order given; callers filter beforehand when they
// want a window. An empty input yields all zeros.
func SummaryStats(orders []model.Order) Summary {
	s := Summary{
		TotalOrders:       len(orders),
		TotalRevenue:      decimal.Zero,
		AverageOrderValue: decimal.Zero,
	}
	for _, o := range orders {
		s.TotalRevenue = s.TotalRevenue.Add(o.Total)
		if o.Status == model.StatusCompleted {
			s.CompletedOrders++
		}
	}
	if s.TotalOrders > 0 {
		s.AverageOrderValue = model.Money(s.TotalRevenue.Div(decimal.NewFromInt(int64(s.TotalOrders))))
	}
	return s
}

// GroupByDate buckets orders by the YYYY-MM-DD of CreatedAt in loc, keeping
// input order within each bucket. A nil loc means time.Local.
func GroupByDate(orders []model.Order, loc *time.Location) map[string][]model.Order {
	if loc == nil {
		loc = time.Local
	}
	groups := make(map[string][]model.Order)
	for _, o := range orders {
		key := o.CreatedAt.In(loc).Format("2006-01-02")
		groups[key] = append(groups[key], o)
	}
	return groups
}

// DateKeys returns the keys of a GroupByDate result in ascending order.
func DateKeys(groups map[string][]model.Order) []string {
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// PopularItems ranks item names by total quantity, highest first. Ties keep
// the order in which names were first seen.
func PopularItems(orders []model.Order) []ItemCount {
	index := make(map[string]int)
	counts := []ItemCount{}
	for _, o := range orders {
		for _, item := range o.Items {
			i, ok := index[item.Name]
			if !ok {
				i = len(counts)
				index[item.Name] = i
				counts = append(counts, ItemCount{Name: item.Name})
			}
			counts[i].Count += item.Quantity
		}
	}
	sort.SliceStable(counts, func(a, b int) bool {
		return counts[a].Count > counts[b].Count
	})
	return counts
}
