package notifications

import (
	"context"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/kwetupizza-backend/internal/orders"
	"github.com/angelmondragon/kwetupizza-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/kwetupizza-backend/pkg/errors"
	"github.com/angelmondragon/kwetupizza-backend/pkg/logger"
	"github.com/angelmondragon/kwetupizza-backend/pkg/metrics"
	"github.com/angelmondragon/kwetupizza-backend/pkg/whatsapp"
)

const (
	channelChat = "whatsapp"
	channelSMS  = "sms"
)

// ChatSender delivers plain chat messages.
type ChatSender interface {
	SendText(ctx context.Context, meta whatsapp.Metadata, to, body string) error
}

// SMSSender delivers text messages.
type SMSSender interface {
	Send(ctx context.Context, to, text string) error
}

// Params wires the notification fan-out.
type Params struct {
	Chat          ChatSender
	SMS           SMSSender
	Logger        *logger.Logger
	Metrics       *metrics.BotMetrics
	BusinessName  string
	SupportPhone  string
	AdminWhatsApp string
	AdminSMS      string
	Location      *time.Location
}

// Service sends customer and admin notifications over chat and SMS.
type Service struct {
	chat     ChatSender
	sms      SMSSender
	logg     *logger.Logger
	metrics  *metrics.BotMetrics
	business string
	support  string
	adminWA  string
	adminSMS string
	loc      *time.Location
}

var _ orders.Notifier = (*Service)(nil)

type leg struct {
	channel string
	to      string
	text    string
}

// NewService validates dependencies. A nil SMS sender disables the SMS legs.
func NewService(p Params) (*Service, error) {
	if p.Chat == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "chat sender required")
	}
	if p.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		chat:     p.Chat,
		sms:      p.SMS,
		logg:     p.Logger,
		metrics:  p.Metrics,
		business: p.BusinessName,
		support:  p.SupportPhone,
		adminWA:  p.AdminWhatsApp,
		adminSMS: p.AdminSMS,
		loc:      loc,
	}, nil
}

func (s *Service) PaymentConfirmed(ctx context.Context, order *models.Order, txn *models.Transaction) error {
	customer := paymentConfirmedMessage(order, s.business)
	admin := adminOrderAlert(order, txn, true)
	return s.fanOut(s.logg.WithOrderID(ctx, order.ID), []leg{
		{channel: channelChat, to: order.CustomerPhone, text: customer},
		{channel: channelSMS, to: order.CustomerPhone, text: customer},
		{channel: channelChat, to: s.adminWA, text: admin},
		{channel: channelSMS, to: s.adminSMS, text: admin},
	})
}

func (s *Service) PaymentFailed(ctx context.Context, order *models.Order, txn *models.Transaction) error {
	customer := paymentFailedMessage(order, s.support)
	admin := adminOrderAlert(order, txn, false)
	return s.fanOut(s.logg.WithOrderID(ctx, order.ID), []leg{
		{channel: channelChat, to: order.CustomerPhone, text: customer},
		{channel: channelSMS, to: order.CustomerPhone, text: customer},
		{channel: channelChat, to: s.adminWA, text: admin},
		{channel: channelSMS, to: s.adminSMS, text: admin},
	})
}

func (s *Service) StatusChanged(ctx context.Context, order *models.Order, entry *models.OrderTracking) error {
	return s.fanOut(s.logg.WithOrderID(ctx, order.ID), []leg{
		{channel: channelChat, to: order.CustomerPhone, text: StatusMessage(order, entry, s.business, s.loc)},
		{channel: channelChat, to: s.adminWA, text: adminStatusUpdate(order, entry)},
	})
}

func (s *Service) OrderDelayed(ctx context.Context, order *models.Order) error {
	entry := &models.OrderTracking{OrderID: order.ID, Status: order.Status, Description: orders.DelayDescription}
	return s.fanOut(s.logg.WithOrderID(ctx, order.ID), []leg{
		{channel: channelChat, to: order.CustomerPhone, text: StatusMessage(order, entry, s.business, s.loc)},
		{channel: channelChat, to: s.adminWA, text: adminDelayAlert(order)},
	})
}

// AlertAdmin sends free text to the configured admin contacts.
func (s *Service) AlertAdmin(ctx context.Context, text string) error {
	return s.fanOut(ctx, []leg{
		{channel: channelChat, to: s.adminWA, text: text},
		{channel: channelSMS, to: s.adminSMS, text: text},
	})
}

// fanOut sends every leg in parallel. A failed leg does not stop the others;
// all failures are returned together.
func (s *Service) fanOut(ctx context.Context, legs []leg) error {
	var g errgroup.Group
	errs := make([]error, len(legs))
	for i, l := range legs {
		if l.to == "" || (l.channel == channelSMS && s.sms == nil) {
			continue
		}
		g.Go(func() error {
			errs[i] = s.send(ctx, l)
			return nil
		})
	}
	_ = g.Wait()
	return multierr.Combine(errs...)
}

func (s *Service) send(ctx context.Context, l leg) error {
	var err error
	switch l.channel {
	case channelSMS:
		err = s.sms.Send(ctx, l.to, l.text)
	default:
		err = s.chat.SendText(ctx, whatsapp.Metadata{}, l.to, l.text)
	}
	s.metrics.Outbound(l.channel, err)
	if err != nil {
		s.logg.Error(s.logg.WithFields(ctx, map[string]any{"channel": l.channel, "to": l.to}), "notification send failed", err)
	}
	return err
}
