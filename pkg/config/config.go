package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	WhatsApp     WhatsAppConfig
	Flutterwave  FlutterwaveConfig
	NextSMS      NextSMSConfig
	Business     BusinessConfig
	Conversation ConversationConfig
	Outbound     OutboundConfig
	Tracking     TrackingConfig
	Webhook      WebhookConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DriverSQLite
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Business.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Conversation.validate(cfg.Outbound); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"KWETUPIZZA_APP_ENV" required:"true"`
	Port         string   `envconfig:"KWETUPIZZA_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"KWETUPIZZA_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"KWETUPIZZA_LOG_WARN_STACK" default:"false"`
	AdminToken   string   `envconfig:"KWETUPIZZA_ADMIN_API_TOKEN"`
	AdminOrigins []string `envconfig:"KWETUPIZZA_ADMIN_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"KWETUPIZZA_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"KWETUPIZZA_DB_DSN"`
	Driver string `envconfig:"KWETUPIZZA_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"KWETUPIZZA_DB_HOST"`
	Port     int    `envconfig:"KWETUPIZZA_DB_PORT" default:"5432"`
	User     string `envconfig:"KWETUPIZZA_DB_USER"`
	Password string `envconfig:"KWETUPIZZA_DB_PASSWORD"`
	Name     string `envconfig:"KWETUPIZZA_DB_NAME"`
	SSLMode  string `envconfig:"KWETUPIZZA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"KWETUPIZZA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"KWETUPIZZA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"KWETUPIZZA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"KWETUPIZZA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"KWETUPIZZA_REDIS_URL"`
	Address      string        `envconfig:"KWETUPIZZA_REDIS_ADDR"`
	Password     string        `envconfig:"KWETUPIZZA_REDIS_PASSWORD"`
	DB           int           `envconfig:"KWETUPIZZA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"KWETUPIZZA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"KWETUPIZZA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"KWETUPIZZA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"KWETUPIZZA_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"KWETUPIZZA_REDIS_WRITE_TIMEOUT" default:"3s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"KWETUPIZZA_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"KWETUPIZZA_AUTO_MIGRATE" default:"false"`
}

type WhatsAppConfig struct {
	AccessToken   string `envconfig:"KWETUPIZZA_WHATSAPP_ACCESS_TOKEN" required:"true"`
	PhoneNumberID string `envconfig:"KWETUPIZZA_WHATSAPP_PHONE_NUMBER_ID" required:"true"`
	APIVersion    string `envconfig:"KWETUPIZZA_WHATSAPP_API_VERSION" default:"v18.0"`
	VerifyToken   string `envconfig:"KWETUPIZZA_WHATSAPP_VERIFY_TOKEN" required:"true"`
	BaseURL       string `envconfig:"KWETUPIZZA_WHATSAPP_BASE_URL" default:"https://graph.facebook.com"`
}

type FlutterwaveConfig struct {
	SecretKey     string `envconfig:"KWETUPIZZA_FLUTTERWAVE_SECRET_KEY" required:"true"`
	WebhookSecret string `envconfig:"KWETUPIZZA_FLUTTERWAVE_WEBHOOK_SECRET" required:"true"`
	BaseURL       string `envconfig:"KWETUPIZZA_FLUTTERWAVE_BASE_URL" default:"https://api.flutterwave.com"`
}

type NextSMSConfig struct {
	Enabled  bool   `envconfig:"KWETUPIZZA_NEXTSMS_ENABLED" default:"false"`
	Username string `envconfig:"KWETUPIZZA_NEXTSMS_USERNAME"`
	Password string `envconfig:"KWETUPIZZA_NEXTSMS_PASSWORD"`
	SenderID string `envconfig:"KWETUPIZZA_NEXTSMS_SENDER_ID" default:"KwetuPizza"`
	BaseURL  string `envconfig:"KWETUPIZZA_NEXTSMS_BASE_URL" default:"https://messaging-service.co.tz"`
}

type BusinessConfig struct {
	Name          string `envconfig:"KWETUPIZZA_BUSINESS_NAME" default:"KwetuPizza"`
	Timezone      string `envconfig:"KWETUPIZZA_BUSINESS_TIMEZONE" default:"Africa/Nairobi"`
	OpensAt       string `envconfig:"KWETUPIZZA_BUSINESS_OPENS_AT" default:"08:00"`
	ClosesAt      string `envconfig:"KWETUPIZZA_BUSINESS_CLOSES_AT" default:"20:30"`
	Currency      string `envconfig:"KWETUPIZZA_BUSINESS_CURRENCY" default:"TZS"`
	SupportPhone  string `envconfig:"KWETUPIZZA_BUSINESS_SUPPORT_PHONE" default:"+255 696 110 259"`
	AdminWhatsApp string `envconfig:"KWETUPIZZA_ADMIN_WHATSAPP"`
	AdminSMS      string `envconfig:"KWETUPIZZA_ADMIN_SMS"`
}

// Location loads the configured business timezone.
func (b BusinessConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading business timezone %q: %w", b.Timezone, err)
	}
	return loc, nil
}

// Hours returns the opening and closing times as offsets from local midnight.
func (b BusinessConfig) Hours() (opens, closes time.Duration, err error) {
	opens, err = clockOffset(b.OpensAt)
	if err != nil {
		return 0, 0, fmt.Errorf("%s must be HH:MM: %w", EnvBusinessOpensAt, err)
	}
	closes, err = clockOffset(b.ClosesAt)
	if err != nil {
		return 0, 0, fmt.Errorf("%s must be HH:MM: %w", EnvBusinessClosesAt, err)
	}
	if closes < opens {
		return 0, 0, fmt.Errorf("%s must not be before %s", EnvBusinessClosesAt, EnvBusinessOpensAt)
	}
	return opens, closes, nil
}

func clockOffset(value string) (time.Duration, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func (b BusinessConfig) validate() error {
	if _, err := b.Location(); err != nil {
		return err
	}
	_, _, err := b.Hours()
	return err
}

type ConversationConfig struct {
	InactivityTimeout time.Duration `envconfig:"KWETUPIZZA_CONVERSATION_INACTIVITY_TIMEOUT" default:"180s"`
	ContextTTL        time.Duration `envconfig:"KWETUPIZZA_CONVERSATION_CONTEXT_TTL" default:"24h"`
	LockTTL           time.Duration `envconfig:"KWETUPIZZA_CONVERSATION_LOCK_TTL" default:"30s"`
	LockWait          time.Duration `envconfig:"KWETUPIZZA_CONVERSATION_LOCK_WAIT" default:"10s"`
	TurnTimeout       time.Duration `envconfig:"KWETUPIZZA_CONVERSATION_TURN_TIMEOUT" default:"4m"`
}

// minLockTTL keeps the renewal tick at one second or more.
const minLockTTL = 3 * time.Second

// validate requires a turn to fit at least one outbound call with its full
// retry budget.
func (c ConversationConfig) validate(out OutboundConfig) error {
	if c.LockTTL < minLockTTL {
		return fmt.Errorf("%s must be at least %s", EnvConversationLockTTL, minLockTTL)
	}
	if worst := out.WorstCase(); c.TurnTimeout < worst {
		return fmt.Errorf("%s (%s) is shorter than one outbound call with retries (%s)", EnvConversationTurnTimeout, c.TurnTimeout, worst)
	}
	return nil
}

type OutboundConfig struct {
	Timeout     time.Duration `envconfig:"KWETUPIZZA_OUTBOUND_TIMEOUT" default:"30s"`
	MaxAttempts int           `envconfig:"KWETUPIZZA_OUTBOUND_MAX_ATTEMPTS" default:"3"`
	BaseBackoff time.Duration `envconfig:"KWETUPIZZA_OUTBOUND_BASE_BACKOFF" default:"250ms"`
}

// WorstCase bounds one outbound call: every attempt times out and every
// exponential backoff is waited in full.
func (o OutboundConfig) WorstCase() time.Duration {
	attempts := o.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	total := o.Timeout * time.Duration(attempts)
	wait := o.BaseBackoff
	for i := 1; i < attempts; i++ {
		total += wait
		wait *= 2
	}
	return total
}

type TrackingConfig struct {
	Interval       time.Duration `envconfig:"KWETUPIZZA_TRACKING_INTERVAL" default:"15m"`
	DeliveryBuffer time.Duration `envconfig:"KWETUPIZZA_TRACKING_DELIVERY_BUFFER" default:"30m"`
}

type WebhookConfig struct {
	IdempotencyTTL time.Duration `envconfig:"KWETUPIZZA_WEBHOOK_IDEMPOTENCY_TTL" default:"72h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.Driver == DriverSQLite {
		db.DSN = defaultSQLiteDSN
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range dbPartEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
