package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/kwetupizza-backend/api/controllers"
	admincontrollers "github.com/angelmondragon/kwetupizza-backend/api/controllers/admin"
	webhookcontrollers "github.com/angelmondragon/kwetupizza-backend/api/controllers/webhooks"
	"github.com/angelmondragon/kwetupizza-backend/api/middleware"
	"github.com/angelmondragon/kwetupizza-backend/pkg/config"
	"github.com/angelmondragon/kwetupizza-backend/pkg/logger"
	"github.com/angelmondragon/kwetupizza-backend/pkg/metrics"
)

// Conversations is what the HTTP surface needs from the dispatcher.
type Conversations interface {
	webhookcontrollers.MessageHandler
	webhookcontrollers.ConversationUpdater
	admincontrollers.ConversationReleaser
}

// Params wires the HTTP surface.
type Params struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            controllers.Pinger
	Redis         controllers.Pinger
	Gatherer      prometheus.Gatherer
	Metrics       *metrics.BotMetrics
	Guard         webhookcontrollers.EventGuard
	Conversations Conversations
	Payments      webhookcontrollers.PaymentReconciler
	Verifier      webhookcontrollers.TransactionVerifier
	Orders        admincontrollers.OrdersService
	Inbox         admincontrollers.InboxReader
}

func NewRouter(p Params) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, p.Redis))
	})
	if p.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Get("/whatsapp", webhookcontrollers.WhatsAppVerify(cfg.WhatsApp.VerifyToken, logg))
		r.Post("/whatsapp", webhookcontrollers.WhatsAppWebhook(p.Conversations, p.Guard, p.Metrics, logg))
		r.Post("/flutterwave", webhookcontrollers.FlutterwaveWebhook(webhookcontrollers.FlutterwaveDeps{
			Secret:        cfg.Flutterwave.WebhookSecret,
			Reconciler:    p.Payments,
			Verifier:      p.Verifier,
			Conversations: p.Conversations,
			Guard:         p.Guard,
			Metrics:       p.Metrics,
			Logger:        logg,
		}))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.CORS(cfg.App.AdminOrigins))
		r.Use(middleware.AdminToken(cfg.App.AdminToken, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", admincontrollers.ListOrders(p.Orders, logg))
			r.Get("/{orderId}", admincontrollers.GetOrder(p.Orders, logg))
			r.Get("/{orderId}/tracking", admincontrollers.OrderTracking(p.Orders, logg))
			r.Post("/{orderId}/status", admincontrollers.TransitionOrder(p.Orders, logg))
			r.Post("/{orderId}/location", admincontrollers.UpdateOrderLocation(p.Orders, logg))
			r.Post("/{orderId}/deliver", admincontrollers.DeliverOrder(p.Orders, logg))
			r.Post("/{orderId}/cancel", admincontrollers.CancelOrder(p.Orders, logg))
		})
		r.Route("/conversations/{phone}", func(r chi.Router) {
			r.Post("/release", admincontrollers.ReleaseConversation(p.Conversations, logg))
			r.Get("/inbox", admincontrollers.ConversationInbox(p.Inbox, logg))
		})
	})

	return r
}
