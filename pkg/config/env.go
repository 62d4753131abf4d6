package config

const (
	EnvPrefix = "PIXIEDVC"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv         = "PIXIEDVC_APP_ENV"
	EnvPort           = "PIXIEDVC_APP_PORT"
	EnvDBDSN          = "PIXIEDVC_DB_DSN"
	EnvDBHost         = "PIXIEDVC_DB_HOST"
	EnvDBUser         = "PIXIEDVC_DB_USER"
	EnvDBName         = "PIXIEDVC_DB_NAME"
	EnvRedisURL       = "PIXIEDVC_REDIS_URL"
	EnvJWTSecret      = "PIXIEDVC_JWT_SECRET"
	EnvJWTIssuer      = "PIXIEDVC_JWT_ISSUER"
	EnvGCPProjectID   = "PIXIEDVC_GCP_PROJECT_ID"
	EnvPubSubTopic    = "PIXIEDVC_PUBSUB_DOMAIN_TOPIC"
	EnvPubSubSub      = "PIXIEDVC_PUBSUB_DOMAIN_SUBSCRIPTION"
	EnvMatchBaseRate  = "PIXIEDVC_MATCH_OWNER_BASE_RATE_CENTS"
	EnvMatchPremium   = "PIXIEDVC_MATCH_OWNER_PREMIUM_CENTS"
	EnvPublicBaseURL  = "PIXIEDVC_PUBLIC_BASE_URL"
	EnvStripeEnv      = "PIXIEDVC_STRIPE_ENV"
	EnvSendgridAPIKey = "PIXIEDVC_SENDGRID_API_KEY"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
