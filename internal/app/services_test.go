package app

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/kwetupizza-backend/pkg/config"
	"github.com/angelmondragon/kwetupizza-backend/pkg/db"
	"github.com/angelmondragon/kwetupizza-backend/pkg/db/models"
	"github.com/angelmondragon/kwetupizza-backend/pkg/logger"
	"github.com/angelmondragon/kwetupizza-backend/pkg/metrics"
)

func testConfig() *config.Config {
	return &config.Config{
		WhatsApp:    config.WhatsAppConfig{AccessToken: "wa", PhoneNumberID: "pnid", APIVersion: "v18.0", BaseURL: "https://graph.example.com"},
		Flutterwave: config.FlutterwaveConfig{SecretKey: "FLWSECK_TEST", BaseURL: "https://flw.example.com"},
		Business: config.BusinessConfig{
			Name:         "KwetuPizza",
			Timezone:     "Africa/Nairobi",
			OpensAt:      "08:00",
			ClosesAt:     "20:30",
			Currency:     "TZS",
			SupportPhone: "+255 696 110 259",
		},
		Outbound: config.OutboundConfig{Timeout: time.Second, MaxAttempts: 3, BaseBackoff: time.Millisecond},
		Tracking: config.TrackingConfig{DeliveryBuffer: 30 * time.Minute},
	}
}

func TestBusinessFromConfig(t *testing.T) {
	business, err := Business(testConfig().Business)
	require.NoError(t, err)
	assert.Equal(t, 8*time.Hour, business.Opens)
	assert.Equal(t, 20*time.Hour+30*time.Minute, business.Closes)
	assert.Equal(t, "Africa/Nairobi", business.Location.String())

	_, err = Business(config.BusinessConfig{Timezone: "Mars/Olympus", OpensAt: "08:00", ClosesAt: "20:30"})
	assert.Error(t, err)
}

func TestNewServicesWiresDomain(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:app_services?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(models.All()...))

	logg := logger.New(logger.Options{ServiceName: "app-test", Output: io.Discard})
	services, err := NewServices(testConfig(), logg, db.NewFromGorm(conn), metrics.NewBotMetrics(nil))
	require.NoError(t, err)
	require.NotNil(t, services.Orders)
	require.NotNil(t, services.Notifications)

	_, err = services.Catalog.Menu(context.Background())
	require.NoError(t, err)

	cfg := testConfig()
	cfg.Business.Currency = "USD"
	_, err = NewServices(cfg, logg, db.NewFromGorm(conn), nil)
	assert.Error(t, err)
}
