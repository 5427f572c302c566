package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type App struct {
	Env      string `envconfig:"APP_ENV" default:"development"`
	Port     string `envconfig:"PORT" default:"8080"`
	BaseURL  string `envconfig:"APP_BASE_URL" default:"http://localhost:3000"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`

	// DB
	DBDriver string `envconfig:"DB_DRIVER" default:"postgres"`
	DBDSN    string `envconfig:"DB_DSN" required:"true"`

	// Sessions
	JWTSecret     string        `envconfig:"JWT_SECRET" required:"true"`
	AccessTTL     time.Duration `envconfig:"ACCESS_TOKEN_TTL" default:"1h"`
	RefreshTTL    time.Duration `envconfig:"REFRESH_TOKEN_TTL" default:"720h"`
	CookieDomain  string        `envconfig:"COOKIE_DOMAIN"`
	CookieSecure  bool          `envconfig:"COOKIE_SECURE" default:"false"`
	AuthRateLimit string        `envconfig:"AUTH_RATE_LIMIT" default:"20-M"`

	// Google OAuth
	GoogleClientID     string `envconfig:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `envconfig:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `envconfig:"GOOGLE_REDIRECT_URL"`

	// Stripe
	StripeSecretKey     string `envconfig:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `envconfig:"STRIPE_WEBHOOK_SECRET"`
	Currency            string `envconfig:"BILLING_CURRENCY" default:"usd"`

	// Storage
	StorageURL        string        `envconfig:"STORAGE_URL"`
	StorageServiceKey string        `envconfig:"STORAGE_SERVICE_KEY"`
	ResumeBucket      string        `envconfig:"RESUME_BUCKET" default:"resumes"`
	SignedURLTTL      time.Duration `envconfig:"SIGNED_URL_TTL" default:"10m"`

	// Realtime
	RedisURL     string `envconfig:"REDIS_URL"`
	RedisChannel string `envconfig:"REDIS_CHANNEL" default:"referify:events"`

	// SMTP
	SMTPHost   string `envconfig:"SMTP_HOST"`
	SMTPPort   int    `envconfig:"SMTP_PORT" default:"465"`
	SMTPUser   string `envconfig:"SMTP_USER"`
	SMTPPass   string `envconfig:"SMTP_PASS"`
	SMTPSender string `envconfig:"SMTP_SENDER" default:"no-reply@refer-ify.com"`

	// WhatsApp (Wati) and mobile push
	WatiURL    string `envconfig:"WATI_URL"`
	WatiAPIKey string `envconfig:"WATI_API_KEY"`
	PushURL    string `envconfig:"PUSH_URL" default:"https://exp.host/--/api/v2/push/send"`

	// Scheduler
	CronEnabled bool `envconfig:"CRON_ENABLED" default:"true"`
}

func (a App) Production() bool { return a.Env == "production" }

// Load reads a .env file when one exists and then the process environment.
func Load() (App, error) {
	_ = godotenv.Load()

	var c App
	err := envconfig.Process("", &c)
	return c, err
}
