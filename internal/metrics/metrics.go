package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StatusTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orderdesk_status_transitions_total",
		Help: "Order status transitions applied, by target status.",
	},
		[]string{"to"},
	)

	RejectedTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orderdesk_rejected_transitions_total",
		Help: "Status updates rejected, by reason.",
	},
		[]string{"reason"},
	)

	BatchItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orderdesk_batch_items_total",
		Help: "Items processed by batch operations, by operation and outcome.",
	},
		[]string{"operation", "outcome"},
	)

	TicketsPrintedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orderdesk_tickets_printed_total",
		Help: "Tickets handed to the print facility, by mode and outcome.",
	},
		[]string{"mode", "outcome"},
	)

	CSVExportsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orderdesk_csv_exports_total",
		Help: "CSV exports generated.",
	})

	ReportCacheItems = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "orderdesk_report_cache_items",
		Help: "Current number of entries in the report cache.",
	})

	WebsocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "orderdesk_websocket_clients",
		Help: "Connected websocket clients.",
	})
)
