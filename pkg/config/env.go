package config

const (
	EnvPrefix = "KWETUPIZZA"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	defaultSQLiteDSN = "file:kwetupizza.db?cache=shared&_busy_timeout=5000"
)

const (
	EnvAppEnv     = "KWETUPIZZA_APP_ENV"
	EnvPort       = "KWETUPIZZA_APP_PORT"
	EnvAdminToken = "KWETUPIZZA_ADMIN_API_TOKEN"

	EnvDBDSN     = "KWETUPIZZA_DB_DSN"
	EnvDBDriver  = "KWETUPIZZA_DB_DRIVER"
	EnvDBHost    = "KWETUPIZZA_DB_HOST"
	EnvDBUser    = "KWETUPIZZA_DB_USER"
	EnvDBName    = "KWETUPIZZA_DB_NAME"
	EnvUseSQLite = "KWETUPIZZA_USE_SQLITE"

	EnvRedisURL = "KWETUPIZZA_REDIS_URL"

	EnvWhatsAppAccessToken   = "KWETUPIZZA_WHATSAPP_ACCESS_TOKEN"
	EnvWhatsAppPhoneNumberID = "KWETUPIZZA_WHATSAPP_PHONE_NUMBER_ID"
	EnvWhatsAppVerifyToken   = "KWETUPIZZA_WHATSAPP_VERIFY_TOKEN"

	EnvFlutterwaveSecretKey     = "KWETUPIZZA_FLUTTERWAVE_SECRET_KEY"
	EnvFlutterwaveWebhookSecret = "KWETUPIZZA_FLUTTERWAVE_WEBHOOK_SECRET"

	EnvBusinessTimezone = "KWETUPIZZA_BUSINESS_TIMEZONE"
	EnvBusinessOpensAt  = "KWETUPIZZA_BUSINESS_OPENS_AT"
	EnvBusinessClosesAt = "KWETUPIZZA_BUSINESS_CLOSES_AT"

	EnvConversationInactivity  = "KWETUPIZZA_CONVERSATION_INACTIVITY_TIMEOUT"
	EnvConversationLockTTL     = "KWETUPIZZA_CONVERSATION_LOCK_TTL"
	EnvConversationTurnTimeout = "KWETUPIZZA_CONVERSATION_TURN_TIMEOUT"
	EnvOutboundTimeout         = "KWETUPIZZA_OUTBOUND_TIMEOUT"
)

var dbPartEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
