package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kiwari-pos/orderdesk/internal/export"
	"github.com/kiwari-pos/orderdesk/internal/metrics"
	"github.com/kiwari-pos/orderdesk/internal/model"
	"github.com/kiwari-pos/orderdesk/internal/query"
	"github.com/kiwari-pos/orderdesk/internal/service"
	"github.com/kiwari-pos/orderdesk/internal/store"
	"github.com/kiwari-pos/orderdesk/internal/ticket"
	"go.uber.org/zap"
)

// OrderLister defines the read methods the order handlers need.
// Satisfied by *store.Postgres and *store.Memory.
type OrderLister interface {
	ListOrders(ctx context.Context) ([]model.Order, error)
	GetOrder(ctx context.Context, id string) (model.Order, error)
}

// StatusUpdater is satisfied by *service.StatusService.
type StatusUpdater interface {
	UpdateOrderStatus(ctx context.Context, orderID string, to model.Status) (model.Order, error)
	GetStatusHistory(ctx context.Context, orderID string) ([]model.StatusChange, error)
	BatchUpdateStatus(ctx context.Context, orderIDs []string, to model.Status) service.BatchResult
	BatchMarkPrinted(ctx context.Context, orderIDs []string) service.BatchResult
}

// TicketPrinter is satisfied by *ticket.Formatter.
type TicketPrinter interface {
	Render(o model.Order, mode ticket.Mode) string
	PrintOrder(ctx context.Context, o model.Order, mode ticket.Mode) ticket.PrintResult
	BatchPrint(ctx context.Context, orders []model.Order, mode ticket.Mode) ticket.BatchPrintResult
}

// OrdersHandler handles order dashboard endpoints.
type OrdersHandler struct {
	store   OrderLister
	status  StatusUpdater
	tickets TicketPrinter
	loc     *time.Location
	now     func() time.Time
	logger  *zap.Logger
}

// NewOrdersHandler creates a new OrdersHandler. Date query parameters are
// read as calendar days in loc.
func NewOrdersHandler(st OrderLister, status StatusUpdater, tickets TicketPrinter, loc *time.Location, logger *zap.Logger) *OrdersHandler {
	if loc == nil {
		loc = time.Local
	}
	return &OrdersHandler{
		store:   st,
		status:  status,
		tickets: tickets,
		loc:     loc,
		now:     time.Now,
		logger:  logger,
	}
}

// RegisterRoutes registers order endpoints open to every staff role.
// Expected to be mounted at /orders.
func (h *OrdersHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/batch/status", h.BatchUpdateStatus)
	r.Post("/batch/printed", h.BatchMarkPrinted)
	r.Post("/batch/print", h.BatchPrint)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}/status", h.UpdateStatus)
	r.Get("/{id}/history", h.History)
	r.Get("/{id}/ticket", h.Ticket)
	r.Post("/{id}/print", h.Print)
}

// RegisterExportRoutes registers the CSV download. Mount behind a
// manager-level role check at /orders.
func (h *OrdersHandler) RegisterExportRoutes(r chi.Router) {
	r.Get("/export.csv", h.ExportCSV)
}

// --- Request/Response types ---

type updateStatusRequest struct {
	Status string `json:"status"`
}

type batchStatusRequest struct {
	OrderIDs []string `json:"order_ids"`
	Status   string   `json:"status"`
}

type batchPrintedRequest struct {
	OrderIDs []string `json:"order_ids"`
}

type batchPrintRequest struct {
	OrderIDs []string `json:"order_ids"`
	Mode     string   `json:"mode"`
}

type orderResponse struct {
	model.Order
	AllowedTransitions []model.Status `json:"allowed_transitions"`
}

func toOrderResponse(o model.Order) orderResponse {
	if o.StatusHistory == nil {
		o.StatusHistory = []model.StatusChange{}
	}
	return orderResponse{Order: o, AllowedTransitions: service.AllowedTransitions(o.Status)}
}

// --- Handlers ---

// List returns orders narrowed by status, date range and a free-text query.
func (h *OrdersHandler) List(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	orders, err := h.store.ListOrders(r.Context())
	if err != nil {
		h.logger.Error("list orders", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	orders = query.ApplyFilters(orders, filters)
	orders = query.Search(orders, r.URL.Query().Get("q"))

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns one order with the statuses it may move to next.
func (h *OrdersHandler) Get(w http.ResponseWriter, r *http.Request) {
	o, ok := h.loadOrder(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// UpdateStatus applies one transition.
func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	updated, err := h.status.UpdateOrderStatus(r.Context(), chi.URLParam(r, "id"), model.Status(req.Status))
	if err != nil {
		h.writeServiceError(w, "update order status", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(updated))
}

// History returns the status audit trail, oldest first.
func (h *OrdersHandler) History(w http.ResponseWriter, r *http.Request) {
	history, err := h.status.GetStatusHistory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, "get status history", err)
		return
	}
	if history == nil {
		history = []model.StatusChange{}
	}
	writeJSON(w, http.StatusOK, history)
}

// Ticket renders the kitchen ticket or receipt as plain text.
func (h *OrdersHandler) Ticket(w http.ResponseWriter, r *http.Request) {
	mode, ok := ticket.ParseMode(r.URL.Query().Get("mode"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "mode must be kitchen or receipt"})
		return
	}
	o, ok := h.loadOrder(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(h.tickets.Render(o, mode)))
}

// Print sends the order to the configured printer.
func (h *OrdersHandler) Print(w http.ResponseWriter, r *http.Request) {
	mode, ok := ticket.ParseMode(r.URL.Query().Get("mode"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "mode must be kitchen or receipt"})
		return
	}
	o, ok := h.loadOrder(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.tickets.PrintOrder(r.Context(), o, mode))
}

// BatchUpdateStatus applies one transition to many orders. Partial failure
// is reported in the body, not through the status code.
func (h *OrdersHandler) BatchUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req batchStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(req.OrderIDs) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "order_ids is required"})
		return
	}
	to := model.Status(req.Status)
	if !to.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("unknown status %q", req.Status)})
		return
	}

	writeJSON(w, http.StatusOK, h.status.BatchUpdateStatus(r.Context(), req.OrderIDs, to))
}

// BatchMarkPrinted sets the printed flag on many orders.
func (h *OrdersHandler) BatchMarkPrinted(w http.ResponseWriter, r *http.Request) {
	var req batchPrintedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(req.OrderIDs) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "order_ids is required"})
		return
	}

	writeJSON(w, http.StatusOK, h.status.BatchMarkPrinted(r.Context(), req.OrderIDs))
}

// BatchPrint prints every listed order that exists; unknown ids are skipped.
func (h *OrdersHandler) BatchPrint(w http.ResponseWriter, r *http.Request) {
	var req batchPrintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(req.OrderIDs) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "order_ids is required"})
		return
	}
	mode, ok := ticket.ParseMode(req.Mode)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "mode must be kitchen or receipt"})
		return
	}

	orders := make([]model.Order, 0, len(req.OrderIDs))
	for _, id := range req.OrderIDs {
		o, err := h.store.GetOrder(r.Context(), id)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				h.logger.Error("get order for print", zap.String("order_id", id), zap.Error(err))
			}
			continue
		}
		orders = append(orders, o)
	}

	writeJSON(w, http.StatusOK, h.tickets.BatchPrint(r.Context(), orders, mode))
}

// ExportCSV streams the filtered orders as a CSV attachment.
func (h *OrdersHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	summary, _ := strconv.ParseBool(r.URL.Query().Get("summary"))

	orders, err := h.store.ListOrders(r.Context())
	if err != nil {
		h.logger.Error("list orders for export", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	// Dates are handled by ToCSV so the Date Range line is emitted.
	orders = query.FilterByStatus(orders, filters.Statuses...)
	body := export.ToCSV(orders, export.Options{
		IncludeSummary: summary,
		DateFrom:       filters.DateFrom,
		DateTo:         filters.DateTo,
		Location:       h.loc,
	})
	metrics.CSVExportsTotal.Inc()

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.Filename("orders", h.now().In(h.loc))))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}

// --- Helpers ---

func (h *OrdersHandler) loadOrder(w http.ResponseWriter, r *http.Request) (model.Order, bool) {
	id := chi.URLParam(r, "id")
	o, err := h.store.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return model.Order{}, false
		}
		h.logger.Error("get order", zap.String("order_id", id), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return model.Order{}, false
	}
	return o, true
}

func (h *OrdersHandler) writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrUnknownStatus):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
	case errors.Is(err, service.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrStatusConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "order status changed, please retry"})
	default:
		h.logger.Error(op, zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

// parseFilters reads status (repeatable or comma separated), start_date and
// end_date (YYYY-MM-DD) from the query string.
func (h *OrdersHandler) parseFilters(r *http.Request) (query.Filters, error) {
	var f query.Filters
	for _, raw := range r.URL.Query()["status"] {
		for _, part := range strings.Split(raw, ",") {
			s := model.Status(strings.TrimSpace(part))
			if s == "" {
				continue
			}
			if !s.Valid() {
				return f, fmt.Errorf("unknown status %q", s)
			}
			f.Statuses = append(f.Statuses, s)
		}
	}

	from, to, err := parseDateRange(r, h.loc)
	if err != nil {
		return f, err
	}
	f.DateFrom, f.DateTo = from, to
	return f, nil
}

// parseDateRange reads optional start_date and end_date as calendar days in
// loc. Either bound may be absent.
func parseDateRange(r *http.Request, loc *time.Location) (*time.Time, *time.Time, error) {
	const layout = "2006-01-02"

	var from, to *time.Time
	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.ParseInLocation(layout, s, loc)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid start_date format, use YYYY-MM-DD")
		}
		from = &t
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.ParseInLocation(layout, s, loc)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid end_date format, use YYYY-MM-DD")
		}
		to = &t
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, nil, fmt.Errorf("end_date must not be before start_date")
	}
	return from, to, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
