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
	FeatureFlags FeatureFlagsConfig
	Catalog      CatalogConfig
	Cart         CartConfig
	RateLimit    RateLimitConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Search       SearchConfig
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
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BASKETWISE_APP_ENV" required:"true"`
	Port         string `envconfig:"BASKETWISE_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"BASKETWISE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BASKETWISE_LOG_WARN_STACK" default:"false"`
	CORSOrigins  string `envconfig:"BASKETWISE_CORS_ORIGINS" default:"*"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// AllowedOrigins splits the comma separated CORS origin list.
func (a AppConfig) AllowedOrigins() []string {
	var out []string
	for _, origin := range strings.Split(a.CORSOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

type ServiceConfig struct {
	Kind string `envconfig:"BASKETWISE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"BASKETWISE_DB_DSN"`
	Driver string `envconfig:"BASKETWISE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BASKETWISE_DB_HOST"`
	LegacyPort     int    `envconfig:"BASKETWISE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BASKETWISE_DB_USER"`
	LegacyPassword string `envconfig:"BASKETWISE_DB_PASSWORD"`
	LegacyName     string `envconfig:"BASKETWISE_DB_NAME"`
	LegacySSLMode  string `envconfig:"BASKETWISE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BASKETWISE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BASKETWISE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BASKETWISE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BASKETWISE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver is the embedded sqlite one.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), "sqlite")
}

type RedisConfig struct {
	URL          string        `envconfig:"BASKETWISE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BASKETWISE_REDIS_ADDR"`
	Password     string        `envconfig:"BASKETWISE_REDIS_PASSWORD"`
	DB           int           `envconfig:"BASKETWISE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BASKETWISE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BASKETWISE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BASKETWISE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BASKETWISE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BASKETWISE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"BASKETWISE_AUTO_MIGRATE" default:"false"`
}

type CatalogConfig struct {
	ResolveLockTTL     time.Duration `envconfig:"BASKETWISE_CATALOG_RESOLVE_LOCK_TTL" default:"10s"`
	ResolveLockWait    time.Duration `envconfig:"BASKETWISE_CATALOG_RESOLVE_LOCK_WAIT" default:"3s"`
	MaxResolveAttempts int           `envconfig:"BASKETWISE_CATALOG_MAX_RESOLVE_ATTEMPTS" default:"3"`
	ResolveTimeout     time.Duration `envconfig:"BASKETWISE_CATALOG_RESOLVE_TIMEOUT" default:"15s"`
}

type CartConfig struct {
	MaxItems     int           `envconfig:"BASKETWISE_CART_MAX_ITEMS" default:"200"`
	FetchTimeout time.Duration `envconfig:"BASKETWISE_CART_FETCH_TIMEOUT" default:"3s"`
}

type RateLimitConfig struct {
	Window time.Duration `envconfig:"BASKETWISE_RATE_LIMIT_WINDOW" default:"1m"`
	Limit  int           `envconfig:"BASKETWISE_RATE_LIMIT_LIMIT" default:"120"`
}

type EventingConfig struct {
	IdempotencyTTL time.Duration `envconfig:"BASKETWISE_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"BASKETWISE_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"BASKETWISE_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	CatalogTopic        string `envconfig:"BASKETWISE_PUBSUB_CATALOG_TOPIC" default:"bw-catalog-events"`
	CatalogSubscription string `envconfig:"BASKETWISE_PUBSUB_CATALOG_SUBSCRIPTION" default:"bw-catalog-search-indexer"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"BASKETWISE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"BASKETWISE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"BASKETWISE_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"BASKETWISE_OUTBOX_RETENTION_DAYS" default:"30"`
}

type SearchConfig struct {
	MeiliURL    string        `envconfig:"BASKETWISE_SEARCH_MEILI_URL"`
	MeiliAPIKey string        `envconfig:"BASKETWISE_SEARCH_MEILI_API_KEY"`
	Index       string        `envconfig:"BASKETWISE_SEARCH_INDEX" default:"products"`
	Timeout     time.Duration `envconfig:"BASKETWISE_SEARCH_TIMEOUT" default:"5s"`
}

// Enabled reports whether a Meilisearch host has been configured.
func (s SearchConfig) Enabled() bool {
	return strings.TrimSpace(s.MeiliURL) != ""
}

type CronConfig struct {
	Interval         time.Duration `envconfig:"BASKETWISE_CRON_INTERVAL" default:"1h"`
	LockTTL          time.Duration `envconfig:"BASKETWISE_CRON_LOCK_TTL" default:"10m"`
	RenormalizeBatch int           `envconfig:"BASKETWISE_CRON_RENORMALIZE_BATCH" default:"500"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = "file:basketwise.db?cache=shared"
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
