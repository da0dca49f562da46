package config

// EnvPrefix is passed to envconfig; each field still carries its full
// variable name so the prefix never doubles up.
const EnvPrefix = "FIXHUB"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "FIXHUB_APP_ENV"
	EnvPort     = "FIXHUB_APP_PORT"
	EnvLogLevel = "FIXHUB_LOG_LEVEL"

	EnvDBDSN  = "FIXHUB_DB_DSN"
	EnvDBHost = "FIXHUB_DB_HOST"
	EnvDBPort = "FIXHUB_DB_PORT"
	EnvDBUser = "FIXHUB_DB_USER"
	EnvDBName = "FIXHUB_DB_NAME"

	EnvRedisURL = "FIXHUB_REDIS_URL"

	EnvJWTSecret  = "FIXHUB_JWT_SECRET"
	EnvJWTIssuer  = "FIXHUB_JWT_ISSUER"
	EnvJWTExpMins = "FIXHUB_JWT_EXPIRATION_MINUTES"

	EnvGCPProjectID = "FIXHUB_GCP_PROJECT_ID"

	EnvPubSubOrdersTopic = "FIXHUB_PUBSUB_ORDERS_TOPIC"
	EnvPubSubOrdersSub   = "FIXHUB_PUBSUB_ORDERS_SUBSCRIPTION"
	EnvPubSubDispatchSub = "FIXHUB_PUBSUB_DISPATCH_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
