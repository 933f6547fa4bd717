package config

// EnvPrefix is the envconfig prefix applied to every variable.
const EnvPrefix = "tienda"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Environment variable names referenced outside struct tags.
const (
	EnvAppEnv     = "TIENDA_APP_ENV"
	EnvPort       = "TIENDA_APP_PORT"
	EnvBaseURL    = "TIENDA_PUBLIC_BASE_URL"
	EnvDBDSN      = "TIENDA_DB_DSN"
	EnvDBHost     = "TIENDA_DB_HOST"
	EnvDBUser     = "TIENDA_DB_USER"
	EnvDBName     = "TIENDA_DB_NAME"
	EnvRedisURL   = "TIENDA_REDIS_URL"
	EnvJWTSecret  = "TIENDA_JWT_SECRET"
	EnvJWTIssuer  = "TIENDA_JWT_ISSUER"
	EnvJWTExpMins = "TIENDA_JWT_EXPIRATION_MINUTES"
	EnvMPToken    = "TIENDA_MERCADOPAGO_ACCESS_TOKEN"
	EnvCldName    = "TIENDA_CLOUDINARY_CLOUD_NAME"
	EnvCldKey     = "TIENDA_CLOUDINARY_API_KEY"
	EnvCldSecret  = "TIENDA_CLOUDINARY_API_SECRET"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
