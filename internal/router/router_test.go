package router_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiwari-pos/orderdesk/internal/auth"
	"github.com/kiwari-pos/orderdesk/internal/cache"
	"github.com/kiwari-pos/orderdesk/internal/handler"
	"github.com/kiwari-pos/orderdesk/internal/router"
	"github.com/kiwari-pos/orderdesk/internal/service"
	"github.com/kiwari-pos/orderdesk/internal/store"
	"github.com/kiwari-pos/orderdesk/internal/ticket"
	"github.com/kiwari-pos/orderdesk/internal/ws"
	"go.uber.org/zap"
)

const secret = "router-test-secret"

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	mem, err := store.NewMemory(store.DemoOrders(time.Now())...)
	if err != nil {
		t.Fatalf("new memory: %v", err)
	}
	svc := service.NewStatusService(mem)
	formatter := ticket.NewFormatter(nil, time.UTC, "$", zap.NewNop())

	return router.New(router.Deps{
		JWTSecret:   secret,
		CORSOrigins: []string{"http://localhost:3000"},
		Orders:      handler.NewOrdersHandler(mem, svc, formatter, time.UTC, zap.NewNop()),
		Reports:     handler.NewReportsHandler(mem, cache.New[string, any](time.Minute, nil), time.UTC, zap.NewNop()),
		Hub:         ws.NewHub(),
		Logger:      zap.NewNop(),
	})
}

func bearer(t *testing.T, role string) string {
	t.Helper()
	tok, err := auth.GenerateToken(secret, uuid.New(), "Test", role, time.Minute)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return "Bearer " + tok
}

func TestPublicRoutes(t *testing.T) {
	r := newRouter(t)
	for _, path := range []string{"/health", "/metrics"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest("GET", path, nil))
		if rr.Code != http.StatusOK {
			t.Errorf("%s: status got %d, want 200", path, rr.Code)
		}
	}
}

func TestWebsocketRequiresToken(t *testing.T) {
	r := newRouter(t)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("GET", "/ws/orders", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want 401", rr.Code)
	}
}

func TestRouteAccess(t *testing.T) {
	r := newRouter(t)

	tests := []struct {
		name string
		path string
		role string
		want int
	}{
		{"orders anonymous", "/orders", "", http.StatusUnauthorized},
		{"orders kitchen", "/orders", "KITCHEN", http.StatusOK},
		{"order ticket staff", "/orders/ORD-1001/ticket", "STAFF", http.StatusOK},
		{"export kitchen", "/orders/export.csv", "KITCHEN", http.StatusForbidden},
		{"export manager", "/orders/export.csv", "MANAGER", http.StatusOK},
		{"reports staff", "/reports/summary", "STAFF", http.StatusForbidden},
		{"reports owner", "/reports/summary", "OWNER", http.StatusOK},
		{"popular manager", "/reports/popular-items", "MANAGER", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			if tt.role != "" {
				req.Header.Set("Authorization", bearer(t, tt.role))
			}
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Errorf("status: got %d, want %d", rr.Code, tt.want)
			}
		})
	}
}
