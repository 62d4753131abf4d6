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
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Matching     MatchingConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	BigQuery     BigQueryConfig
	Stripe       StripeConfig
	Sendgrid     SendgridConfig
	Outbox       OutboxConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Matching.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"PIXIEDVC_APP_ENV" required:"true"`
	Port         string   `envconfig:"PIXIEDVC_APP_PORT" default:"8080"`
	LogLevel     string   `envconfig:"PIXIEDVC_LOG_LEVEL" default:"info"`
	LogFormat    string   `envconfig:"PIXIEDVC_LOG_FORMAT" default:"json"`
	LogWarnStack bool     `envconfig:"PIXIEDVC_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"PIXIEDVC_CORS_ORIGINS"`
	MetricsAddr  string   `envconfig:"PIXIEDVC_METRICS_ADDR"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PIXIEDVC_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"PIXIEDVC_DB_DSN"`
	Driver string `envconfig:"PIXIEDVC_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PIXIEDVC_DB_HOST"`
	LegacyPort     int    `envconfig:"PIXIEDVC_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PIXIEDVC_DB_USER"`
	LegacyPassword string `envconfig:"PIXIEDVC_DB_PASSWORD"`
	LegacyName     string `envconfig:"PIXIEDVC_DB_NAME"`
	LegacySSLMode  string `envconfig:"PIXIEDVC_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PIXIEDVC_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PIXIEDVC_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PIXIEDVC_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PIXIEDVC_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PIXIEDVC_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PIXIEDVC_REDIS_ADDR"`
	Password     string        `envconfig:"PIXIEDVC_REDIS_PASSWORD"`
	DB           int           `envconfig:"PIXIEDVC_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PIXIEDVC_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PIXIEDVC_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PIXIEDVC_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PIXIEDVC_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PIXIEDVC_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig verifies access tokens minted by the external auth provider.
type JWTConfig struct {
	Secret string `envconfig:"PIXIEDVC_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"PIXIEDVC_JWT_ISSUER" required:"true"`
}

// MatchingConfig drives owner payout rates and the matching batch.
type MatchingConfig struct {
	OwnerBaseRateCents    int64         `envconfig:"PIXIEDVC_MATCH_OWNER_BASE_RATE_CENTS" default:"1600"`
	OwnerPremiumCents     int64         `envconfig:"PIXIEDVC_MATCH_OWNER_PREMIUM_CENTS" default:"200"`
	DefaultLimit          int           `envconfig:"PIXIEDVC_MATCH_DEFAULT_LIMIT" default:"20"`
	MaxLimit              int           `envconfig:"PIXIEDVC_MATCH_MAX_LIMIT" default:"50"`
	MaxCandidates         int           `envconfig:"PIXIEDVC_MATCH_MAX_CANDIDATES" default:"200"`
	MatchTTL              time.Duration `envconfig:"PIXIEDVC_MATCH_TTL" default:"1h"`
	PublicBaseURL         string        `envconfig:"PIXIEDVC_PUBLIC_BASE_URL" default:"http://localhost:3000"`
	SendEmails            bool          `envconfig:"PIXIEDVC_MATCH_SEND_EMAILS" default:"true"`
	RunLockTTL            time.Duration `envconfig:"PIXIEDVC_MATCH_RUN_LOCK_TTL" default:"2m"`
	ExpiryBatchSize       int           `envconfig:"PIXIEDVC_MATCH_EXPIRY_BATCH_SIZE" default:"100"`
	DefaultGuestRateCents int64         `envconfig:"PIXIEDVC_DEFAULT_GUEST_RATE_CENTS" default:"2300"`
}

func (m MatchingConfig) validate() error {
	if m.OwnerBaseRateCents <= 0 {
		return fmt.Errorf("%s must be positive", EnvMatchBaseRate)
	}
	if m.OwnerPremiumCents < 0 {
		return fmt.Errorf("%s must not be negative", EnvMatchPremium)
	}
	if _, err := url.Parse(m.PublicBaseURL); err != nil {
		return fmt.Errorf("%s: %w", EnvPublicBaseURL, err)
	}
	return nil
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"PIXIEDVC_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"PIXIEDVC_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL  time.Duration `envconfig:"PIXIEDVC_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
	WebhookIdempotencyTTL time.Duration `envconfig:"PIXIEDVC_WEBHOOK_IDEMPOTENCY_TTL" default:"168h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"PIXIEDVC_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"PIXIEDVC_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"PIXIEDVC_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic         string `envconfig:"PIXIEDVC_PUBSUB_DOMAIN_TOPIC" default:"pdvc-domain-events"`
	DomainSubscription  string `envconfig:"PIXIEDVC_PUBSUB_DOMAIN_SUBSCRIPTION" default:"pdvc-domain-events-sub"`
	RentalsSubscription string `envconfig:"PIXIEDVC_PUBSUB_RENTALS_SUBSCRIPTION" default:"pdvc-rental-events-notifications"`
	MatchesTopic        string `envconfig:"PIXIEDVC_PUBSUB_MATCHES_TOPIC" default:"pdvc-match-events"`
	RentalsTopic        string `envconfig:"PIXIEDVC_PUBSUB_RENTALS_TOPIC" default:"pdvc-rental-events"`
	PaymentsTopic       string `envconfig:"PIXIEDVC_PUBSUB_PAYMENTS_TOPIC" default:"pdvc-payment-events"`
}

type BigQueryConfig struct {
	Dataset             string `envconfig:"PIXIEDVC_BIGQUERY_DATASET" default:"pixiedvc_analytics"`
	MatchingEventsTable string `envconfig:"PIXIEDVC_BIGQUERY_MATCHING_EVENTS_TABLE" default:"matching_events"`
	BatchSize           int    `envconfig:"PIXIEDVC_BIGQUERY_BATCH_SIZE" default:"1"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"PIXIEDVC_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"PIXIEDVC_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"PIXIEDVC_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Retention      time.Duration `envconfig:"PIXIEDVC_OUTBOX_RETENTION" default:"720h"`
}

// CronConfig sets the tick of the cron loop and how often each job is due.
type CronConfig struct {
	Interval                time.Duration `envconfig:"PIXIEDVC_CRON_INTERVAL" default:"1m"`
	MatchBookingsInterval   time.Duration `envconfig:"PIXIEDVC_CRON_MATCH_BOOKINGS_INTERVAL" default:"5m"`
	MatchExpiryInterval     time.Duration `envconfig:"PIXIEDVC_CRON_MATCH_EXPIRY_INTERVAL" default:"5m"`
	OutboxRetentionInterval time.Duration `envconfig:"PIXIEDVC_CRON_OUTBOX_RETENTION_INTERVAL" default:"24h"`
	JobTimeout              time.Duration `envconfig:"PIXIEDVC_CRON_JOB_TIMEOUT" default:"4m"`
}

type StripeConfig struct {
	APIKey string `envconfig:"PIXIEDVC_STRIPE_API_KEY"`
	Secret string `envconfig:"PIXIEDVC_STRIPE_SECRET"`
	Env    string `envconfig:"PIXIEDVC_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type SendgridConfig struct {
	APIKey      string `envconfig:"PIXIEDVC_SENDGRID_API_KEY"`
	DefaultFrom string `envconfig:"PIXIEDVC_SENDGRID_FROM_EMAIL" default:"owners@pixiedvc.com"`
	FromName    string `envconfig:"PIXIEDVC_SENDGRID_FROM_NAME" default:"PixieDVC"`
}

// Enabled reports whether outbound email is configured.
func (s SendgridConfig) Enabled() bool {
	return strings.TrimSpace(s.APIKey) != ""
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
