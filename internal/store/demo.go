package store

import (
	"fmt"
	"time"

	"github.com/kiwari-pos/orderdesk/internal/model"
	"github.com/shopspring/decimal"
)

type demoLine struct {
	name  string
	qty   int
	price string
	mods  []model.Modifier
	note  string
}

// DemoOrders builds a small, valid order set spread over the three days
// before now. Used by the seed command and by the server's in-memory mode.
func DemoOrders(now time.Time) []model.Order {
	tax := decimal.RequireFromString("0.10")
	specs := []struct {
		customer, email string
		status          model.Status
		daysAgo         int
		tip             string
		lines           []demoLine
	}{
		{"Ayu Lestari", "ayu@example.com", model.StatusPending, 0, "0", []demoLine{
			{name: "Nasi Bakar Ayam", qty: 2, price: "4.50", mods: []model.Modifier{{Name: "Spice", Value: "Hot"}}},
			{name: "Es Teh Manis", qty: 2, price: "1.25"},
		}},
		{"Budi Santoso", "budi@example.com", model.StatusInProgress, 0, "1.00", []demoLine{
			{name: "Nasi Bakar Cumi", qty: 1, price: "5.75", note: "no chili"},
		}},
		{"Citra, Dewi & Co", "citra@example.com", model.StatusReady, 1, "2.00", []demoLine{
			{name: "Nasi Bakar Ayam", qty: 3, price: "4.50"},
			{name: "Tempe Mendoan", qty: 2, price: "2.00", mods: []model.Modifier{{Name: "Sauce", Value: "Kecap"}}},
		}},
		{"Dian \"DJ\" Jaya", "dian@example.com", model.StatusCompleted, 2, "0", []demoLine{
			{name: "Es Teh Manis", qty: 4, price: "1.25"},
		}},
		{"", "", model.StatusCancelled, 2, "0", []demoLine{
			{name: "Kerupuk", qty: 1},
		}},
	}

	orders := make([]model.Order, 0, len(specs))
	for i, s := range specs {
		created := now.AddDate(0, 0, -s.daysAgo).Add(-time.Duration(i) * time.Hour)
		o := model.Order{
			ID:            fmt.Sprintf("ORD-%04d", 1001+i),
			Status:        s.status,
			CustomerName:  s.customer,
			CustomerEmail: s.email,
			Subtotal:      decimal.Zero,
			Tip:           decimal.RequireFromString(s.tip),
			CreatedAt:     created,
		}
		for _, l := range s.lines {
			item := model.OrderItem{
				Name:                l.name,
				Quantity:            l.qty,
				Modifiers:           l.mods,
				SpecialInstructions: l.note,
			}
			if l.price != "" {
				p := decimal.RequireFromString(l.price)
				item.Price = &p
				o.Subtotal = o.Subtotal.Add(p.Mul(decimal.NewFromInt(int64(l.qty))))
			}
			o.Items = append(o.Items, item)
		}
		o.Tax = model.Money(o.Subtotal.Mul(tax))
		o.Total = o.Subtotal.Add(o.Tax).Add(o.Tip)
		orders = append(orders, o)
	}
	return orders
}
