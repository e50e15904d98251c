package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Cart         CartConfig
	MercadoPago  MercadoPagoConfig
	Checkout     CheckoutConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DriverSQLite
		if cfg.DB.DSN == "" {
			cfg.DB.DSN = DefaultSQLiteDSN
		}
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Cart.validate(cfg.Redis); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PHENOM_APP_ENV" required:"true"`
	Port         string `envconfig:"PHENOM_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PHENOM_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"PHENOM_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"PHENOM_LOG_WARN_STACK" default:"false"`

	CORSOrigins     []string      `envconfig:"PHENOM_CORS_ORIGINS" default:"http://localhost:3000"`
	ShutdownTimeout time.Duration `envconfig:"PHENOM_SHUTDOWN_TIMEOUT" default:"15s"`
	CartIdleTimeout time.Duration `envconfig:"PHENOM_CART_IDLE_TIMEOUT" default:"30m"`

	// AdminToken guards the order admin routes. Empty disables them.
	AdminToken string `envconfig:"PHENOM_ADMIN_TOKEN"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"PHENOM_DB_DSN"`
	Driver string `envconfig:"PHENOM_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PHENOM_DB_HOST"`
	LegacyPort     int    `envconfig:"PHENOM_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PHENOM_DB_USER"`
	LegacyPassword string `envconfig:"PHENOM_DB_PASSWORD"`
	LegacyName     string `envconfig:"PHENOM_DB_NAME"`
	LegacySSLMode  string `envconfig:"PHENOM_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PHENOM_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PHENOM_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PHENOM_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PHENOM_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"PHENOM_DB_SLOW_QUERY" default:"250ms"`
}

// IsSQLite reports whether the configured driver is sqlite.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"PHENOM_REDIS_URL"`
	Address      string        `envconfig:"PHENOM_REDIS_ADDR"`
	Password     string        `envconfig:"PHENOM_REDIS_PASSWORD"`
	DB           int           `envconfig:"PHENOM_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PHENOM_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PHENOM_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PHENOM_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PHENOM_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PHENOM_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Configured reports whether enough settings exist to dial redis.
func (r RedisConfig) Configured() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type CartConfig struct {
	Backend     string        `envconfig:"PHENOM_CART_BACKEND" default:"redis"`
	TTL         time.Duration `envconfig:"PHENOM_CART_TTL" default:"720h"`
	FileDir     string        `envconfig:"PHENOM_CART_FILE_DIR" default:".phenom/carts"`
	SaveTimeout time.Duration `envconfig:"PHENOM_CART_SAVE_TIMEOUT" default:"5s"`
}

// NormalizedBackend returns the lower-cased backend name.
func (c CartConfig) NormalizedBackend() string {
	backend := strings.ToLower(strings.TrimSpace(c.Backend))
	if backend == "" {
		return CartBackendRedis
	}
	return backend
}

func (c CartConfig) validate(redis RedisConfig) error {
	switch c.NormalizedBackend() {
	case CartBackendRedis:
		if !redis.Configured() {
			return fmt.Errorf("%s or %s is required when %s=%s", EnvRedisURL, EnvRedisAddr, EnvCartBackend, CartBackendRedis)
		}
	case CartBackendSQL, CartBackendMemory:
	case CartBackendFile:
		if strings.TrimSpace(c.FileDir) == "" {
			return fmt.Errorf("%s is required when %s=%s", EnvCartFileDir, EnvCartBackend, CartBackendFile)
		}
	default:
		return fmt.Errorf("unsupported %s %q", EnvCartBackend, c.Backend)
	}
	return nil
}

type MercadoPagoConfig struct {
	AccessToken         string `envconfig:"PHENOM_MP_ACCESS_TOKEN"`
	Environment         string `envconfig:"PHENOM_MP_ENVIRONMENT" default:"sandbox"`
	BaseURL             string `envconfig:"PHENOM_MP_BASE_URL" default:"https://api.mercadopago.com"`
	Currency            string `envconfig:"PHENOM_MP_CURRENCY" default:"ARS"`
	StatementDescriptor string `envconfig:"PHENOM_MP_STATEMENT_DESCRIPTOR" default:"PHENOM BOXING"`
	Installments        int    `envconfig:"PHENOM_MP_INSTALLMENTS" default:"12"`
	WebhookSecret       string `envconfig:"PHENOM_MP_WEBHOOK_SECRET"`
}

// IsSandbox reports whether checkout should redirect to the sandbox init point.
func (m MercadoPagoConfig) IsSandbox() bool {
	env := strings.TrimSpace(strings.ToLower(m.Environment))
	return env == "" || env == "sandbox" || env == "test"
}

type CheckoutConfig struct {
	SiteURL         string `envconfig:"PHENOM_SITE_URL" default:"http://localhost:3000"`
	ClearOnRedirect bool   `envconfig:"PHENOM_CHECKOUT_CLEAR_ON_REDIRECT" default:"false"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"PHENOM_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"PHENOM_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
