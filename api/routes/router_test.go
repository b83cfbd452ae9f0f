package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/kwetupizza-backend/internal/conversation"
	"github.com/angelmondragon/kwetupizza-backend/internal/orders"
	"github.com/angelmondragon/kwetupizza-backend/pkg/config"
	"github.com/angelmondragon/kwetupizza-backend/pkg/db/models"
	"github.com/angelmondragon/kwetupizza-backend/pkg/logger"
	"github.com/angelmondragon/kwetupizza-backend/pkg/metrics"
	"github.com/angelmondragon/kwetupizza-backend/pkg/types"
	"github.com/angelmondragon/kwetupizza-backend/pkg/whatsapp"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubGuard struct{}

func (stubGuard) CheckAndMarkProcessed(context.Context, string, string) (bool, error) {
	return false, nil
}

func (stubGuard) Delete(context.Context, string, string) error { return nil }

type stubConversations struct {
	handled int
}

func (s *stubConversations) Handle(context.Context, whatsapp.InboundEvent) error {
	s.handled++
	return nil
}

func (s *stubConversations) ApplyPayment(context.Context, string, conversation.Command) error {
	return nil
}

func (s *stubConversations) Release(context.Context, string) error { return nil }

type stubOrders struct{}

func (stubOrders) Get(_ context.Context, id uint64) (*models.Order, error) {
	return &models.Order{ID: id}, nil
}

func (stubOrders) List(context.Context, orders.ListParams) (*orders.OrderList, error) {
	return &orders.OrderList{}, nil
}

func (stubOrders) History(context.Context, uint64) ([]models.OrderTracking, error) {
	return nil, nil
}

func (stubOrders) Transition(_ context.Context, input orders.TransitionInput) (*models.Order, error) {
	return &models.Order{ID: input.OrderID, Status: input.Status}, nil
}

func (stubOrders) UpdateLocation(_ context.Context, id uint64, _ types.TrackingLocation, _ *time.Time) (*models.Order, error) {
	return &models.Order{ID: id}, nil
}

func (stubOrders) MarkDelivered(_ context.Context, id uint64, _ string) (*models.Order, error) {
	return &models.Order{ID: id}, nil
}

func (stubOrders) Cancel(_ context.Context, id uint64, _ string) (*models.Order, error) {
	return &models.Order{ID: id}, nil
}

type stubInbox struct{}

func (stubInbox) Recent(context.Context, string, int) ([]models.InboxMessage, error) {
	return nil, nil
}

type stubReconciler struct{}

func (stubReconciler) Reconcile(context.Context, orders.Outcome) (*orders.ReconcileResult, error) {
	return &orders.ReconcileResult{}, nil
}

func newTestRouter(t *testing.T) (http.Handler, *stubConversations) {
	t.Helper()
	cfg := &config.Config{
		App:         config.AppConfig{Env: "dev", AdminToken: "admin-secret", AdminOrigins: []string{"http://localhost:3000"}},
		WhatsApp:    config.WhatsAppConfig{VerifyToken: "verify-me"},
		Flutterwave: config.FlutterwaveConfig{WebhookSecret: "hash"},
	}
	registry := prometheus.NewRegistry()
	convs := &stubConversations{}
	router := NewRouter(Params{
		Config:        cfg,
		Logger:        logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard}),
		DB:            stubPinger{},
		Redis:         stubPinger{},
		Gatherer:      registry,
		Metrics:       metrics.NewBotMetrics(registry),
		Guard:         stubGuard{},
		Conversations: convs,
		Payments:      stubReconciler{},
		Orders:        stubOrders{},
		Inbox:         stubInbox{},
	})
	return router, convs
}

func TestRouterServesHealthAndMetrics(t *testing.T) {
	router, _ := newTestRouter(t)
	for _, path := range []string{"/health/live", "/health/ready", "/metrics"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestRouterWebhooks(t *testing.T) {
	router, convs := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/webhooks/whatsapp?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=abc", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "abc" {
		t.Fatalf("verify handshake failed: %d %q", rec.Code, rec.Body.String())
	}

	body := `{"entry":[{"changes":[{"value":{"metadata":{"phone_number_id":"p"},"messages":[{"id":"m1","from":"255700000001","timestamp":"1700000000","type":"text","text":{"body":"hi"}}]}}]}]}`
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/whatsapp", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if convs.handled != 1 {
		t.Fatalf("expected message to be dispatched, got %d", convs.handled)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/flutterwave", strings.NewReader(`{}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected unsigned payment webhook to be rejected, got %d", rec.Code)
	}
}

func TestRouterAdminRequiresToken(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders/7", nil)
	req.Header.Set("Authorization", "Bearer admin-secret")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
