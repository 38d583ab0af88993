package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	EnvPrefix = "FULFILLMENT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv       = "FULFILLMENT_APP_ENV"
	EnvPort         = "FULFILLMENT_APP_PORT"
	EnvDBDSN        = "FULFILLMENT_DB_DSN"
	EnvDBHost       = "FULFILLMENT_DB_HOST"
	EnvDBUser       = "FULFILLMENT_DB_USER"
	EnvDBName       = "FULFILLMENT_DB_NAME"
	EnvRedisURL     = "FULFILLMENT_REDIS_URL"
	EnvJWTSecret    = "FULFILLMENT_JWT_SECRET"
	EnvJWTIssuer    = "FULFILLMENT_JWT_ISSUER"
	EnvJWTExpMins   = "FULFILLMENT_JWT_EXPIRATION_MINUTES"
	EnvBaseFee      = "FULFILLMENT_DELIVERY_BASE_FEE"
	EnvPerKmRate    = "FULFILLMENT_DELIVERY_PER_KM_RATE"
	EnvGCPProjectID = "FULFILLMENT_GCP_PROJECT_ID"
	EnvDomainTopic  = "FULFILLMENT_PUBSUB_DOMAIN_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	GoogleMaps   GoogleMapsConfig
	Delivery     DeliveryConfig
	Loyalty      LoyaltyConfig
	Cron         CronConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Metrics      MetricsConfig
	CORS         CORSConfig
	RateLimit    RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Delivery.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FULFILLMENT_APP_ENV" required:"true"`
	Port         string `envconfig:"FULFILLMENT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FULFILLMENT_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"FULFILLMENT_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"FULFILLMENT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"FULFILLMENT_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN string `envconfig:"FULFILLMENT_DB_DSN"`

	LegacyHost     string `envconfig:"FULFILLMENT_DB_HOST"`
	LegacyPort     int    `envconfig:"FULFILLMENT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FULFILLMENT_DB_USER"`
	LegacyPassword string `envconfig:"FULFILLMENT_DB_PASSWORD"`
	LegacyName     string `envconfig:"FULFILLMENT_DB_NAME"`
	LegacySSLMode  string `envconfig:"FULFILLMENT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FULFILLMENT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FULFILLMENT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FULFILLMENT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FULFILLMENT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"FULFILLMENT_DB_SLOW_QUERY" default:"250ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FULFILLMENT_REDIS_URL"`
	Address      string        `envconfig:"FULFILLMENT_REDIS_ADDR"`
	Password     string        `envconfig:"FULFILLMENT_REDIS_PASSWORD"`
	DB           int           `envconfig:"FULFILLMENT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FULFILLMENT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FULFILLMENT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FULFILLMENT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FULFILLMENT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FULFILLMENT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"FULFILLMENT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"FULFILLMENT_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"FULFILLMENT_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"FULFILLMENT_AUTO_MIGRATE" default:"false"`
}

type GoogleMapsConfig struct {
	APIKey          string        `envconfig:"FULFILLMENT_GOOGLE_MAPS_API_KEY"`
	DistanceTimeout time.Duration `envconfig:"FULFILLMENT_DISTANCE_TIMEOUT" default:"3s"`
	GeocodeTimeout  time.Duration `envconfig:"FULFILLMENT_GEOCODE_TIMEOUT" default:"5s"`
	// BreakerFailures consecutive failures open the distance circuit.
	BreakerFailures uint32        `envconfig:"FULFILLMENT_DISTANCE_BREAKER_FAILURES" default:"5"`
	BreakerCooldown time.Duration `envconfig:"FULFILLMENT_DISTANCE_BREAKER_COOLDOWN" default:"30s"`
}

// DeliveryConfig holds the single fee formula shared by preview and checkout.
type DeliveryConfig struct {
	BaseFee          string  `envconfig:"FULFILLMENT_DELIVERY_BASE_FEE" default:"1.00"`
	PerKmRate        string  `envconfig:"FULFILLMENT_DELIVERY_PER_KM_RATE" default:"0.40"`
	FallbackSpeedKmh float64 `envconfig:"FULFILLMENT_DELIVERY_FALLBACK_SPEED_KMH" default:"40"`
}

// BaseFeeDecimal parses BaseFee. Load has already validated it.
func (d DeliveryConfig) BaseFeeDecimal() decimal.Decimal {
	v, _ := decimal.NewFromString(d.BaseFee)
	return v
}

// PerKmRateDecimal parses PerKmRate. Load has already validated it.
func (d DeliveryConfig) PerKmRateDecimal() decimal.Decimal {
	v, _ := decimal.NewFromString(d.PerKmRate)
	return v
}

func (d DeliveryConfig) validate() error {
	base, err := decimal.NewFromString(d.BaseFee)
	if err != nil {
		return fmt.Errorf("%s: %w", EnvBaseFee, err)
	}
	rate, err := decimal.NewFromString(d.PerKmRate)
	if err != nil {
		return fmt.Errorf("%s: %w", EnvPerKmRate, err)
	}
	if base.IsNegative() || rate.IsNegative() {
		return fmt.Errorf("%s and %s must not be negative", EnvBaseFee, EnvPerKmRate)
	}
	if d.FallbackSpeedKmh <= 0 {
		return fmt.Errorf("fallback speed must be positive")
	}
	return nil
}

type LoyaltyConfig struct {
	// ReconcileGrace is how long after commit an order may wait for its
	// post-commit loyalty step before the reconcile job picks it up.
	ReconcileGrace time.Duration `envconfig:"FULFILLMENT_LOYALTY_RECONCILE_GRACE" default:"5m"`
	ReconcileBatch int           `envconfig:"FULFILLMENT_LOYALTY_RECONCILE_BATCH" default:"100"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"FULFILLMENT_CRON_INTERVAL" default:"1m"`
	LockTTL  time.Duration `envconfig:"FULFILLMENT_CRON_LOCK_TTL" default:"5m"`
	// JobTimeout should stay below LockTTL divided by the number of jobs.
	JobTimeout time.Duration `envconfig:"FULFILLMENT_CRON_JOB_TIMEOUT" default:"2m"`
}

// MetricsConfig controls the standalone /metrics listener of worker
// processes. The API serves /metrics on its own router.
type MetricsConfig struct {
	Addr string `envconfig:"FULFILLMENT_METRICS_ADDR" default:":9090"`
}

type CORSConfig struct {
	AllowedOrigins []string      `envconfig:"FULFILLMENT_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	MaxAge         time.Duration `envconfig:"FULFILLMENT_CORS_MAX_AGE" default:"5m"`
}

// RateLimitConfig throttles checkout attempts per user. A zero limit disables it.
type RateLimitConfig struct {
	CheckoutLimit  int           `envconfig:"FULFILLMENT_RATE_LIMIT_CHECKOUT" default:"10"`
	CheckoutWindow time.Duration `envconfig:"FULFILLMENT_RATE_LIMIT_CHECKOUT_WINDOW" default:"1m"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"FULFILLMENT_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	DomainTopic string `envconfig:"FULFILLMENT_PUBSUB_DOMAIN_TOPIC" default:"fulfillment-domain-events"`
	// LoyaltyTopic splits loyalty events off the domain topic when set.
	LoyaltyTopic string `envconfig:"FULFILLMENT_PUBSUB_LOYALTY_TOPIC"`
}

// Topics lists every distinct topic the publisher writes to.
func (c PubSubConfig) Topics() []string {
	var topics []string
	for _, t := range []string{c.DomainTopic, c.LoyaltyTopic} {
		if t = strings.TrimSpace(t); t != "" && !slices.Contains(topics, t) {
			topics = append(topics, t)
		}
	}
	return topics
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"FULFILLMENT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"FULFILLMENT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"FULFILLMENT_OUTBOX_MAX_ATTEMPTS" default:"10"`

	Retention    time.Duration `envconfig:"FULFILLMENT_OUTBOX_RETENTION" default:"720h"`
	DLQRetention time.Duration `envconfig:"FULFILLMENT_OUTBOX_DLQ_RETENTION" default:"2160h"`
	PruneBatch   int           `envconfig:"FULFILLMENT_OUTBOX_PRUNE_BATCH" default:"500"`
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
