package config

// EnvPrefix is the envconfig prefix applied when processing the environment.
// Individual fields carry explicit MANDI_-prefixed names, so the prefix
// itself stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	EnvAppEnv = "MANDI_APP_ENV"
	EnvPort   = "MANDI_APP_PORT"

	EnvDBDSN  = "MANDI_DB_DSN"
	EnvDBHost = "MANDI_DB_HOST"
	EnvDBUser = "MANDI_DB_USER"
	EnvDBName = "MANDI_DB_NAME"

	EnvRedisURL = "MANDI_REDIS_URL"

	EnvJWTSecret              = "MANDI_JWT_SECRET"
	EnvJWTIssuer              = "MANDI_JWT_ISSUER"
	EnvJWTExpMins             = "MANDI_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "MANDI_REFRESH_TOKEN_TTL_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
