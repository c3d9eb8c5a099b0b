package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kiwari-pos/orderdesk/internal/cache"
	"github.com/kiwari-pos/orderdesk/internal/events"
	"github.com/kiwari-pos/orderdesk/internal/metrics"
	"github.com/kiwari-pos/orderdesk/internal/model"
	"github.com/kiwari-pos/orderdesk/internal/query"
	"github.com/kiwari-pos/orderdesk/internal/report"
	"go.uber.org/zap"
)

// ReportsHandler handles dashboard report endpoints. Responses are cached per
// URL for the configured TTL and dropped whenever an order changes status or is
// marked printed. Orders inserted by checkout publish no event, so they show up
// in reports once the cached entry expires, at most one TTL later.
type ReportsHandler struct {
	store  OrderLister
	cache  *cache.TTL[string, any]
	loc    *time.Location
	logger *zap.Logger
}

// NewReportsHandler creates a new ReportsHandler.
func NewReportsHandler(st OrderLister, c *cache.TTL[string, any], loc *time.Location, logger *zap.Logger) *ReportsHandler {
	if loc == nil {
		loc = time.Local
	}
	return &ReportsHandler{store: st, cache: c, loc: loc, logger: logger}
}

// RegisterRoutes registers report endpoints.
// Expected to be mounted at /reports behind a manager-level role check.
func (h *ReportsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/summary", h.Summary)
	r.Get("/daily", h.Daily)
	r.Get("/popular-items", h.PopularItems)
}

// Publish drops cached reports. Registered as an event publisher so every
// status change invalidates them.
func (h *ReportsHandler) Publish(ctx context.Context, ev events.Event) error {
	h.cache.Purge()
	metrics.ReportCacheItems.Set(0)
	return nil
}

// --- Response types ---

type dailyResponse struct {
	Date string `json:"date"`
	report.Summary
}

// --- Handlers ---

// Summary returns headline numbers for the orders in range.
func (h *ReportsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(orders []model.Order) (any, error) {
		return report.SummaryStats(orders), nil
	})
}

// Daily returns one summary per calendar day, oldest first.
func (h *ReportsHandler) Daily(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(orders []model.Order) (any, error) {
		groups := report.GroupByDate(orders, h.loc)
		resp := make([]dailyResponse, 0, len(groups))
		for _, day := range report.DateKeys(groups) {
			resp = append(resp, dailyResponse{Date: day, Summary: report.SummaryStats(groups[day])})
		}
		return resp, nil
	})
}

// PopularItems ranks items by units sold. An optional limit trims the list.
func (h *ReportsHandler) PopularItems(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	h.serve(w, r, func(orders []model.Order) (any, error) {
		items := report.PopularItems(orders)
		if limit > 0 && len(items) > limit {
			items = items[:limit]
		}
		return items, nil
	})
}

// serve loads the orders in the requested range and builds the response
// through the cache.
func (h *ReportsHandler) serve(w http.ResponseWriter, r *http.Request, build func([]model.Order) (any, error)) {
	from, to, err := parseDateRange(r, h.loc)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	key := r.URL.Path + "?" + r.URL.RawQuery
	resp, err := h.cache.GetOrLoad(key, func() (any, error) {
		orders, err := h.store.ListOrders(r.Context())
		if err != nil {
			return nil, err
		}
		return build(query.ApplyFilters(orders, query.Filters{DateFrom: from, DateTo: to}))
	})
	if err != nil {
		h.logger.Error("build report", zap.String("path", r.URL.Path), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	metrics.ReportCacheItems.Set(float64(h.cache.Len()))

	writeJSON(w, http.StatusOK, resp)
}
