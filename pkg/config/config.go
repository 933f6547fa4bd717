package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	MercadoPago   MercadoPagoConfig
	Cloudinary    CloudinaryConfig
	Media         MediaConfig
	Accounting    AccountingConfig
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
	Env           string `envconfig:"TIENDA_APP_ENV" required:"true"`
	Port          string `envconfig:"TIENDA_APP_PORT" required:"true"`
	LogLevel      string `envconfig:"TIENDA_LOG_LEVEL" default:"info"`
	LogWarnStack  bool   `envconfig:"TIENDA_LOG_WARN_STACK" default:"false"`
	PublicBaseURL string `envconfig:"TIENDA_PUBLIC_BASE_URL" required:"true"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"TIENDA_DB_DSN"`
	Driver string `envconfig:"TIENDA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TIENDA_DB_HOST"`
	LegacyPort     int    `envconfig:"TIENDA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TIENDA_DB_USER"`
	LegacyPassword string `envconfig:"TIENDA_DB_PASSWORD"`
	LegacyName     string `envconfig:"TIENDA_DB_NAME"`
	LegacySSLMode  string `envconfig:"TIENDA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TIENDA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TIENDA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TIENDA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TIENDA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TIENDA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TIENDA_REDIS_ADDR"`
	Password     string        `envconfig:"TIENDA_REDIS_PASSWORD"`
	DB           int           `envconfig:"TIENDA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TIENDA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TIENDA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TIENDA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TIENDA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TIENDA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"TIENDA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"TIENDA_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"TIENDA_JWT_EXPIRATION_MINUTES" required:"true"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"TIENDA_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"TIENDA_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"TIENDA_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"TIENDA_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"TIENDA_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"TIENDA_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"TIENDA_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"TIENDA_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"TIENDA_AUTO_MIGRATE" default:"false"`
}

type MercadoPagoConfig struct {
	AccessToken           string        `envconfig:"TIENDA_MERCADOPAGO_ACCESS_TOKEN" required:"true"`
	PublicKey             string        `envconfig:"TIENDA_MERCADOPAGO_PUBLIC_KEY"`
	Timeout               time.Duration `envconfig:"TIENDA_MERCADOPAGO_TIMEOUT" default:"5s"`
	StatementDescriptor   string        `envconfig:"TIENDA_MERCADOPAGO_STATEMENT_DESCRIPTOR" default:"TIENDA VIRTUAL"`
	CurrencyID            string        `envconfig:"TIENDA_MERCADOPAGO_CURRENCY" default:"MXN"`
	WebhookIdempotencyTTL time.Duration `envconfig:"TIENDA_MERCADOPAGO_WEBHOOK_IDEMPOTENCY_TTL" default:"24h"`
}

// SuccessURL is the buyer redirect after an approved payment.
func (m MercadoPagoConfig) SuccessURL(base string) string { return base + "/checkout/success" }

// FailureURL is the buyer redirect after a rejected payment.
func (m MercadoPagoConfig) FailureURL(base string) string { return base + "/checkout/failure" }

// PendingURL is the buyer redirect while a payment stays in review.
func (m MercadoPagoConfig) PendingURL(base string) string { return base + "/checkout/pending" }

// NotificationURL is the server-reachable webhook endpoint.
func (m MercadoPagoConfig) NotificationURL(base string) string {
	return base + "/api/v1/webhooks/mercadopago"
}

type CloudinaryConfig struct {
	CloudName string        `envconfig:"TIENDA_CLOUDINARY_CLOUD_NAME" required:"true"`
	APIKey    string        `envconfig:"TIENDA_CLOUDINARY_API_KEY" required:"true"`
	APISecret string        `envconfig:"TIENDA_CLOUDINARY_API_SECRET" required:"true"`
	Folder    string        `envconfig:"TIENDA_CLOUDINARY_FOLDER" default:"tienda-virtual"`
	Timeout   time.Duration `envconfig:"TIENDA_CLOUDINARY_TIMEOUT" default:"30s"`
}

type MediaConfig struct {
	MaxUploadMB int `envconfig:"TIENDA_MAX_UPLOAD_MB" default:"10"`
}

type AccountingConfig struct {
	Timezone string `envconfig:"TIENDA_ACCOUNTING_TIMEZONE" default:"America/Mexico_City"`
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
