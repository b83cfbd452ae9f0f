package app

import (
	"net/http"

	"github.com/angelmondragon/kwetupizza-backend/internal/catalog"
	"github.com/angelmondragon/kwetupizza-backend/internal/conversation"
	"github.com/angelmondragon/kwetupizza-backend/internal/notifications"
	"github.com/angelmondragon/kwetupizza-backend/internal/orders"
	"github.com/angelmondragon/kwetupizza-backend/pkg/config"
	"github.com/angelmondragon/kwetupizza-backend/pkg/db"
	"github.com/angelmondragon/kwetupizza-backend/pkg/enums"
	"github.com/angelmondragon/kwetupizza-backend/pkg/flutterwave"
	"github.com/angelmondragon/kwetupizza-backend/pkg/httpretry"
	"github.com/angelmondragon/kwetupizza-backend/pkg/logger"
	"github.com/angelmondragon/kwetupizza-backend/pkg/metrics"
	"github.com/angelmondragon/kwetupizza-backend/pkg/nextsms"
	"github.com/angelmondragon/kwetupizza-backend/pkg/whatsapp"
)

// Services holds the domain services shared by the api and cron binaries.
type Services struct {
	Business      conversation.Business
	Catalog       catalog.Service
	Orders        orders.Service
	Notifications *notifications.Service
	WhatsApp      *whatsapp.Client
	Flutterwave   *flutterwave.Client
}

// Business converts the business section of the config into the value the
// state machine reads.
func Business(cfg config.BusinessConfig) (conversation.Business, error) {
	loc, err := cfg.Location()
	if err != nil {
		return conversation.Business{}, err
	}
	opens, closes, err := cfg.Hours()
	if err != nil {
		return conversation.Business{}, err
	}
	return conversation.Business{
		Name:         cfg.Name,
		SupportPhone: cfg.SupportPhone,
		Currency:     cfg.Currency,
		Location:     loc,
		Opens:        opens,
		Closes:       closes,
	}, nil
}

// NewServices builds the outbound clients, notification fan-out, catalog and
// orders service on top of an open database.
func NewServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, botMetrics *metrics.BotMetrics) (*Services, error) {
	business, err := Business(cfg.Business)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.Outbound.Timeout}
	policy := httpretry.Policy{MaxAttempts: cfg.Outbound.MaxAttempts, BaseBackoff: cfg.Outbound.BaseBackoff}

	chat, err := whatsapp.NewClient(cfg.WhatsApp.AccessToken, cfg.WhatsApp.PhoneNumberID,
		whatsapp.WithHTTPClient(httpClient),
		whatsapp.WithBaseURL(cfg.WhatsApp.BaseURL),
		whatsapp.WithAPIVersion(cfg.WhatsApp.APIVersion),
		whatsapp.WithRetryPolicy(policy),
	)
	if err != nil {
		return nil, err
	}

	gateway, err := flutterwave.NewClient(cfg.Flutterwave.SecretKey,
		flutterwave.WithHTTPClient(httpClient),
		flutterwave.WithBaseURL(cfg.Flutterwave.BaseURL),
		flutterwave.WithRetryPolicy(policy),
	)
	if err != nil {
		return nil, err
	}

	sms := nextsms.NewDisabled()
	if cfg.NextSMS.Enabled {
		sms, err = nextsms.NewClient(cfg.NextSMS.Username, cfg.NextSMS.Password,
			nextsms.WithHTTPClient(httpClient),
			nextsms.WithBaseURL(cfg.NextSMS.BaseURL),
			nextsms.WithSenderID(cfg.NextSMS.SenderID),
			nextsms.WithRetryPolicy(policy),
		)
		if err != nil {
			return nil, err
		}
	}

	notifier, err := notifications.NewService(notifications.Params{
		Chat:          chat,
		SMS:           sms,
		Logger:        logg,
		Metrics:       botMetrics,
		BusinessName:  business.Name,
		SupportPhone:  business.SupportPhone,
		AdminWhatsApp: cfg.Business.AdminWhatsApp,
		AdminSMS:      cfg.Business.AdminSMS,
		Location:      business.Location,
	})
	if err != nil {
		return nil, err
	}

	catalogService, err := catalog.NewService(catalog.NewRepository(dbClient.DB()))
	if err != nil {
		return nil, err
	}

	currency, err := enums.ParseCurrency(cfg.Business.Currency)
	if err != nil {
		return nil, err
	}
	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:           orders.NewRepository(dbClient.DB()),
		Tx:             dbClient,
		Gateway:        gateway,
		Catalog:        catalogService,
		Notifier:       notifier,
		Logger:         logg,
		Currency:       currency,
		DeliveryBuffer: cfg.Tracking.DeliveryBuffer,
	})
	if err != nil {
		return nil, err
	}

	return &Services{
		Business:      business,
		Catalog:       catalogService,
		Orders:        ordersService,
		Notifications: notifier,
		WhatsApp:      chat,
		Flutterwave:   gateway,
	}, nil
}
