package config

// EnvPrefix is the namespace envconfig uses when resolving variables.
const EnvPrefix = "BASKETWISE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "BASKETWISE_APP_ENV"
	EnvPort     = "BASKETWISE_APP_PORT"
	EnvLogLevel = "BASKETWISE_LOG_LEVEL"

	EnvDBDSN      = "BASKETWISE_DB_DSN"
	EnvDBDriver   = "BASKETWISE_DB_DRIVER"
	EnvDBHost     = "BASKETWISE_DB_HOST"
	EnvDBPort     = "BASKETWISE_DB_PORT"
	EnvDBUser     = "BASKETWISE_DB_USER"
	EnvDBPassword = "BASKETWISE_DB_PASSWORD"
	EnvDBName     = "BASKETWISE_DB_NAME"

	EnvRedisURL = "BASKETWISE_REDIS_URL"

	EnvGCPProjectID         = "BASKETWISE_GCP_PROJECT_ID"
	EnvPubSubCatalogTopic   = "BASKETWISE_PUBSUB_CATALOG_TOPIC"
	EnvPubSubCatalogSub     = "BASKETWISE_PUBSUB_CATALOG_SUBSCRIPTION"
	EnvSearchMeiliURL       = "BASKETWISE_SEARCH_MEILI_URL"
	EnvSearchMeiliAPIKey    = "BASKETWISE_SEARCH_MEILI_API_KEY"
	EnvCartMaxItems         = "BASKETWISE_CART_MAX_ITEMS"
	EnvCatalogResolveLockTT = "BASKETWISE_CATALOG_RESOLVE_LOCK_TTL"
)

// legacyDBEnvVars must all be present when no DSN is configured.
var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
