package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/sandroescobar/lovemenow-sub001/pkg/types"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Checkout     CheckoutConfig
	Stripe       StripeConfig
	Uber         UberConfig
	StoreOrigin  StoreOriginConfig
	Sendgrid     SendgridConfig
	Slack        SlackConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"LMN_APP_ENV" required:"true"`
	Port         string `envconfig:"LMN_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"LMN_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LMN_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"LMN_DB_DSN"`
	Driver string `envconfig:"LMN_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"LMN_DB_HOST"`
	LegacyPort     int    `envconfig:"LMN_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"LMN_DB_USER"`
	LegacyPassword string `envconfig:"LMN_DB_PASSWORD"`
	LegacyName     string `envconfig:"LMN_DB_NAME"`
	LegacySSLMode  string `envconfig:"LMN_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LMN_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LMN_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LMN_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LMN_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LMN_REDIS_URL" required:"true"`
	Address      string        `envconfig:"LMN_REDIS_ADDR"`
	Password     string        `envconfig:"LMN_REDIS_PASSWORD"`
	DB           int           `envconfig:"LMN_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LMN_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LMN_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LMN_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LMN_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LMN_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type CheckoutConfig struct {
	// TaxRate is a decimal string such as "0.1025" (10.25%).
	TaxRate            string        `envconfig:"LMN_CHECKOUT_TAX_RATE" default:"0.1025"`
	SessionTTL         time.Duration `envconfig:"LMN_CHECKOUT_SESSION_TTL" default:"24h"`
	QuoteTTL           time.Duration `envconfig:"LMN_CHECKOUT_QUOTE_TTL" default:"15m"`
	ProviderTimeout    time.Duration `envconfig:"LMN_CHECKOUT_PROVIDER_TIMEOUT" default:"10s"`
	AmountToleranceCts int64         `envconfig:"LMN_CHECKOUT_AMOUNT_TOLERANCE_CENTS" default:"1"`
}

type StripeConfig struct {
	APIKey        string `envconfig:"LMN_STRIPE_API_KEY"`
	WebhookSecret string `envconfig:"LMN_STRIPE_WEBHOOK_SECRET"`
	Env           string `envconfig:"LMN_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type UberConfig struct {
	ClientID     string        `envconfig:"LMN_UBER_CLIENT_ID"`
	ClientSecret string        `envconfig:"LMN_UBER_CLIENT_SECRET"`
	CustomerID   string        `envconfig:"LMN_UBER_CUSTOMER_ID"`
	BaseURL      string        `envconfig:"LMN_UBER_BASE_URL" default:"https://api.uber.com/v1"`
	AuthURL      string        `envconfig:"LMN_UBER_AUTH_URL" default:"https://auth.uber.com/oauth/v2/token"`
	Timeout      time.Duration `envconfig:"LMN_UBER_TIMEOUT" default:"15s"`
}

// StoreOriginConfig describes the fixed pickup location for courier dispatch.
type StoreOriginConfig struct {
	Name       string `envconfig:"LMN_STORE_NAME" default:"LoveMeNow"`
	Phone      string `envconfig:"LMN_STORE_PHONE"`
	Line1      string `envconfig:"LMN_STORE_ADDRESS_LINE1"`
	City       string `envconfig:"LMN_STORE_CITY"`
	State      string `envconfig:"LMN_STORE_STATE"`
	PostalCode string `envconfig:"LMN_STORE_POSTAL_CODE"`
	Country    string `envconfig:"LMN_STORE_COUNTRY" default:"US"`
}

// Address returns the store origin as a courier-ready address.
func (s StoreOriginConfig) Address() types.Address {
	return types.Address{
		Line1:      s.Line1,
		City:       s.City,
		State:      s.State,
		PostalCode: s.PostalCode,
		Country:    s.Country,
	}
}

type SendgridConfig struct {
	APIKey    string `envconfig:"LMN_SENDGRID_API_KEY"`
	FromEmail string `envconfig:"LMN_SENDGRID_FROM_EMAIL"`
	FromName  string `envconfig:"LMN_SENDGRID_FROM_NAME" default:"LoveMeNow"`
}

type SlackConfig struct {
	WebhookURL string `envconfig:"LMN_SLACK_WEBHOOK_URL"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"LMN_AUTO_MIGRATE" default:"false"`
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
