package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string `env:"APP_ENV,default=development"`
	Port           string `env:"PORT,default=8080"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS,default=http://localhost:3000"`
	LogLevel       string `env:"LOG_LEVEL,default=info"`

	DatabaseURL     string        `env:"DATABASE_URL"`
	DBHost          string        `env:"DB_HOST,default=localhost"`
	DBUser          string        `env:"DB_USER,default=postgres"`
	DBPass          string        `env:"DB_PASS"`
	DBName          string        `env:"DB_NAME,default=tutorate"`
	DBPort          string        `env:"DB_PORT,default=5432"`
	DBMaxOpenConns  int           `env:"DB_MAX_OPEN_CONNS,default=25"`
	DBMaxIdleConns  int           `env:"DB_MAX_IDLE_CONNS,default=10"`
	DBConnLifetime  time.Duration `env:"DB_CONN_LIFETIME,default=30m"`
	DBDebug         bool          `env:"DB_DEBUG,default=false"`
	StoreTimeout    time.Duration `env:"STORE_TIMEOUT,default=5s"`
	HealthSchedule  string        `env:"STORE_HEALTH_SCHEDULE,default=@every 10s"`
	RedisURL        string        `env:"REDIS_URL"`
	ViewSyncSpec    string        `env:"VIEW_SYNC_SCHEDULE,default=@every 1m"`
	ReindexSchedule string        `env:"SEARCH_REINDEX_SCHEDULE,default=@daily"`

	MeiliSearchHost string `env:"MEILISEARCH_HOST"`
	MeiliMasterKey  string `env:"MEILI_MASTER_KEY"`

	CloudinaryURL          string `env:"CLOUDINARY_URL"`
	CloudinaryCloudName    string `env:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey       string `env:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret    string `env:"CLOUDINARY_API_SECRET"`
	CloudinaryUploadFolder string `env:"CLOUDINARY_UPLOAD_FOLDER,default=tutorate"`

	JWTSecret     string        `env:"JWT_SECRET,default=change-me"`
	JWTIssuer     string        `env:"JWT_ISSUER,default=tutorate"`
	JWTTTL        time.Duration `env:"JWT_TTL,default=24h"`
	VerifyTimeout time.Duration `env:"VERIFY_TIMEOUT,default=3s"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL"`

	StripeSecretKey     string `env:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
	Currency            string `env:"PAYMENT_CURRENCY,default=usd"`

	SentryDSN string `env:"SENTRY_DSN"`
	Release   string `env:"RELEASE,default=dev"`

	RateLimitTuition     time.Duration `env:"RATE_LIMIT_TUITION,default=1m"`
	RateLimitApplication time.Duration `env:"RATE_LIMIT_APPLICATION,default=10s"`
	PublicRPS            float64       `env:"PUBLIC_RPS,default=20"`
	PublicBurst          int           `env:"PUBLIC_BURST,default=40"`

	AdminEmail    string `env:"ADMIN_EMAIL,default=admin@tutorate.local"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
}

// Load reads .env files (when present) and decodes the environment.
func Load(files ...string) (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load(files...)

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}

	if cfg.IsProduction() && cfg.JWTSecret == "change-me" {
		return nil, errors.New("JWT_SECRET must be set in production")
	}
	return &cfg, nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

func (c *Config) Origins() []string {
	var origins []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// MeiliHost normalises bare host names the way docker compose passes them.
func (c *Config) MeiliHost() string {
	host := c.MeiliSearchHost
	if host != "" && !strings.HasPrefix(host, "http") {
		host = "http://" + host + ":7700"
	}
	return host
}
