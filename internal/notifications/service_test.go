package notifications

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/kwetupizza-backend/internal/orders"
	"github.com/angelmondragon/kwetupizza-backend/pkg/db/models"
	"github.com/angelmondragon/kwetupizza-backend/pkg/enums"
	"github.com/angelmondragon/kwetupizza-backend/pkg/logger"
	"github.com/angelmondragon/kwetupizza-backend/pkg/types"
	"github.com/angelmondragon/kwetupizza-backend/pkg/whatsapp"
)

type sent struct {
	to   string
	text string
}

type recorder struct {
	mu   sync.Mutex
	msgs []sent
	fail map[string]error
}

func (r *recorder) record(to, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail[to]; err != nil {
		return err
	}
	r.msgs = append(r.msgs, sent{to: to, text: text})
	return nil
}

func (r *recorder) recipients() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.msgs))
	for _, m := range r.msgs {
		out = append(out, m.to)
	}
	sort.Strings(out)
	return out
}

func (r *recorder) textFor(to string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.msgs {
		if m.to == to {
			return m.text
		}
	}
	return ""
}

type chatRecorder struct{ recorder }

func (c *chatRecorder) SendText(_ context.Context, _ whatsapp.Metadata, to, body string) error {
	return c.record(to, body)
}

type smsRecorder struct{ recorder }

func (s *smsRecorder) Send(_ context.Context, to, text string) error {
	return s.record(to, text)
}

func newTestService(t *testing.T, chat *chatRecorder, sms SMSSender) *Service {
	t.Helper()
	svc, err := NewService(Params{
		Chat:          chat,
		SMS:           sms,
		Logger:        logger.New(logger.Options{ServiceName: "notifications-test", Output: io.Discard}),
		BusinessName:  "KwetuPizza",
		SupportPhone:  "+255 696 110 259",
		AdminWhatsApp: "255711000000",
		AdminSMS:      "255722000000",
	})
	require.NoError(t, err)
	return svc
}

func sampleOrder() *models.Order {
	ref := "order_7_a1"
	return &models.Order{
		ID:              7,
		TxRef:           &ref,
		CustomerName:    "Asha",
		CustomerPhone:   "255700000001",
		DeliveryAddress: "Plot 12, Msasani",
		Status:          enums.OrderStatusCompleted,
		Total:           decimal.NewFromInt(36000),
		Currency:        enums.CurrencyTZS,
		Items: []models.OrderItem{
			{ProductName: "Margherita", Quantity: 2},
		},
	}
}

func TestPaymentConfirmedFansOutToAllLegs(t *testing.T) {
	chat := &chatRecorder{}
	sms := &smsRecorder{}
	svc := newTestService(t, chat, sms)

	err := svc.PaymentConfirmed(context.Background(), sampleOrder(), &models.Transaction{ProviderReference: "987654"})
	require.NoError(t, err)

	assert.Equal(t, []string{"255700000001", "255711000000"}, chat.recipients())
	assert.Equal(t, []string{"255700000001", "255722000000"}, sms.recipients())
	assert.Equal(t,
		"✅ Payment Confirmed! Your payment for Order #7 has been received. Your total is 36,000.00 TZS. Thank you for choosing KwetuPizza!",
		chat.textFor("255700000001"))

	admin := chat.textFor("255711000000")
	assert.Contains(t, admin, "New Order Alert!\nOrder ID: 7\nTransaction ID: 987654\n")
	assert.Contains(t, admin, "Items:\nMargherita x2\n")
	assert.Contains(t, admin, "Payment Status: Successful")
}

func TestPaymentFailedMessage(t *testing.T) {
	chat := &chatRecorder{}
	svc := newTestService(t, chat, nil)

	order := sampleOrder()
	order.Status = enums.OrderStatusPending
	require.NoError(t, svc.PaymentFailed(context.Background(), order, nil))

	assert.Equal(t,
		"❌ Unfortunately, your payment for Order #7 has failed. Please reply 'retry' to try again or contact us at +255 696 110 259 for assistance.",
		chat.textFor("255700000001"))
	admin := chat.textFor("255711000000")
	assert.Contains(t, admin, "Transaction ID: order_7_a1")
	assert.Contains(t, admin, "Payment Status: Failed")
}

func TestFanOutContinuesPastFailedLeg(t *testing.T) {
	chat := &chatRecorder{recorder: recorder{fail: map[string]error{"255711000000": errors.New("admin unreachable")}}}
	sms := &smsRecorder{}
	svc := newTestService(t, chat, sms)

	err := svc.PaymentConfirmed(context.Background(), sampleOrder(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "admin unreachable")
	assert.Equal(t, []string{"255700000001"}, chat.recipients())
	assert.Len(t, sms.recipients(), 2)
}

func TestStatusChangedMessage(t *testing.T) {
	chat := &chatRecorder{}
	svc := newTestService(t, chat, nil)

	eta := time.Date(2026, 3, 10, 14, 45, 0, 0, time.UTC)
	order := sampleOrder()
	order.Status = enums.OrderStatusDelivering
	order.EstimatedDeliveryTime = &eta
	entry := &models.OrderTracking{
		OrderID:     order.ID,
		Status:      enums.OrderStatusDelivering,
		Description: "Rider left the shop",
		Location:    &types.TrackingLocation{Lat: -6.77, Lng: 39.24, Address: "Kinondoni"},
	}
	require.NoError(t, svc.StatusChanged(context.Background(), order, entry))

	assert.Equal(t,
		"Order #7 Update:\n🚚 Your order is on the way to you.\nDetails: Rider left the shop\n📍 Current Location: Kinondoni\n⏱ Estimated arrival: 14:45",
		chat.textFor("255700000001"))
	assert.Equal(t,
		"🔄 Order #7 Update:\nStatus: Delivering\nCustomer: Asha\nDetails: Rider left the shop\nLocation: Kinondoni",
		chat.textFor("255711000000"))
}

func TestStatusMessageTable(t *testing.T) {
	order := &models.Order{ID: 3}
	completed := StatusMessage(order, &models.OrderTracking{Status: enums.OrderStatusCompleted}, "KwetuPizza", time.UTC)
	assert.Equal(t, "Order #3 Update:\n✅ Order completed. Thank you for choosing KwetuPizza!", completed)

	cancelled := StatusMessage(order, &models.OrderTracking{Status: enums.OrderStatusCancelled, Description: "Cancelled by customer"}, "KwetuPizza", time.UTC)
	assert.Equal(t, "Order #3 Update:\n❌ Order has been cancelled.\nDetails: Cancelled by customer", cancelled)
}

func TestOrderDelayedAlertsAdmin(t *testing.T) {
	chat := &chatRecorder{}
	svc := newTestService(t, chat, &smsRecorder{})

	order := sampleOrder()
	order.Status = enums.OrderStatusPreparing
	require.NoError(t, svc.OrderDelayed(context.Background(), order))

	assert.Contains(t, chat.textFor("255700000001"), "Details: "+orders.DelayDescription)
	assert.Equal(t,
		"⚠️ DELAY ALERT - Order #7\nOrder has exceeded estimated delivery time.\nCurrent Status: Preparing\nCustomer: Asha\nPhone: 255700000001",
		chat.textFor("255711000000"))
}

func TestAlertAdminSkipsUnconfiguredContacts(t *testing.T) {
	chat := &chatRecorder{}
	sms := &smsRecorder{}
	svc, err := NewService(Params{
		Chat:          chat,
		SMS:           sms,
		Logger:        logger.New(logger.Options{ServiceName: "notifications-test", Output: io.Discard}),
		AdminWhatsApp: "255711000000",
	})
	require.NoError(t, err)

	require.NoError(t, svc.AlertAdmin(context.Background(), "🙋 Live agent requested"))
	assert.Equal(t, []string{"255711000000"}, chat.recipients())
	assert.Empty(t, sms.recipients())
}

func TestNewServiceRequiresChat(t *testing.T) {
	_, err := NewService(Params{Logger: logger.New(logger.Options{Output: io.Discard})})
	assert.Error(t, err)
}
