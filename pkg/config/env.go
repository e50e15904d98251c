package config

const (
	EnvPrefix = "PHENOM"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	DefaultSQLiteDSN = "file:phenom.db?cache=shared"

	CartBackendRedis  = "redis"
	CartBackendSQL    = "sql"
	CartBackendFile   = "file"
	CartBackendMemory = "memory"
)

const (
	EnvAppEnv     = "PHENOM_APP_ENV"
	EnvPort       = "PHENOM_APP_PORT"
	EnvLogLevel   = "PHENOM_LOG_LEVEL"
	EnvLogFormat  = "PHENOM_LOG_FORMAT"
	EnvCORS       = "PHENOM_CORS_ORIGINS"
	EnvAdminToken = "PHENOM_ADMIN_TOKEN"

	EnvDBDSN    = "PHENOM_DB_DSN"
	EnvDBDriver = "PHENOM_DB_DRIVER"
	EnvDBHost   = "PHENOM_DB_HOST"
	EnvDBUser   = "PHENOM_DB_USER"
	EnvDBName   = "PHENOM_DB_NAME"

	EnvRedisURL  = "PHENOM_REDIS_URL"
	EnvRedisAddr = "PHENOM_REDIS_ADDR"

	EnvCartBackend = "PHENOM_CART_BACKEND"
	EnvCartTTL     = "PHENOM_CART_TTL"
	EnvCartFileDir = "PHENOM_CART_FILE_DIR"

	EnvMPAccessToken = "PHENOM_MP_ACCESS_TOKEN"
	EnvMPEnvironment = "PHENOM_MP_ENVIRONMENT"

	EnvSiteURL                 = "PHENOM_SITE_URL"
	EnvCheckoutClearOnRedirect = "PHENOM_CHECKOUT_CLEAR_ON_REDIRECT"

	EnvUseSQLite = "PHENOM_USE_SQLITE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
