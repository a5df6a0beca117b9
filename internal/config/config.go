package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig `envPrefix:"DB_"`
	Auth     AuthConfig
	OTP      OTPConfig
	Email    EmailConfig
	OAuth    OAuthConfig
	Admin    AdminConfig
	Audit    AuditConfig
}

type ServerConfig struct {
	Port           string        `env:"PORT" envDefault:"8080"`
	Env            string        `env:"ENV" envDefault:"development"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	ClientURL      string        `env:"CLIENT_URL,required"`
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS" envSeparator:","`
	TrustedProxies []string      `env:"TRUSTED_PROXIES" envSeparator:","`
	ReadTimeout    time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout   time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout    time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"60s"`
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" envDefault:"30s"`
}

type DatabaseConfig struct {
	Host              string        `env:"HOST" envDefault:"localhost"`
	Port              int           `env:"PORT" envDefault:"5432"`
	User              string        `env:"USER" envDefault:"postgres"`
	Password          string        `env:"PASSWORD,required"`
	Name              string        `env:"NAME" envDefault:"stayhub"`
	SSLMode           string        `env:"SSLMODE" envDefault:"disable"`
	MaxConns          int32         `env:"MAX_CONNS" envDefault:"25"`
	MinConns          int32         `env:"MIN_CONNS" envDefault:"5"`
	MaxConnLifetime   time.Duration `env:"MAX_CONN_LIFETIME" envDefault:"5m"`
	MaxConnIdleTime   time.Duration `env:"MAX_CONN_IDLE_TIME" envDefault:"1m"`
	HealthCheckPeriod time.Duration `env:"HEALTH_CHECK_PERIOD" envDefault:"1m"`
	ConnectAttempts   int           `env:"CONNECT_ATTEMPTS" envDefault:"5"`
}

type AuthConfig struct {
	JWTSecret           string        `env:"JWT_SECRET,required"`
	AccessTokenExpiry   time.Duration `env:"ACCESS_TOKEN_EXPIRY" envDefault:"15m"`
	RefreshTokenExpiry  time.Duration `env:"REFRESH_TOKEN_EXPIRY" envDefault:"168h"`
	CleanupInterval     time.Duration `env:"TOKEN_CLEANUP_INTERVAL" envDefault:"1h"`
	BcryptCost          int           `env:"BCRYPT_COST" envDefault:"12"`
	TimingDelayBaseMs   int           `env:"TIMING_DELAY_BASE_MS" envDefault:"250"`
	TimingDelayRandomMs int           `env:"TIMING_DELAY_RANDOM_MS" envDefault:"100"`
	RateLimitPerMinute  int           `env:"AUTH_RATE_LIMIT_PER_MINUTE" envDefault:"10"`
}

type OTPConfig struct {
	ExpirationMinutes          int `env:"OTP_EXPIRATION_MINUTES" envDefault:"10"`
	ResetLinkExpirationMinutes int `env:"RESET_LINK_EXPIRATION_MINUTES" envDefault:"15"`
	MaxAttempts                int `env:"OTP_MAX_ATTEMPTS" envDefault:"5"`
}

func (c OTPConfig) Expiry() time.Duration {
	return time.Duration(c.ExpirationMinutes) * time.Minute
}

func (c OTPConfig) ResetLinkExpiry() time.Duration {
	return time.Duration(c.ResetLinkExpirationMinutes) * time.Minute
}

type EmailConfig struct {
	Provider    string `env:"EMAIL_PROVIDER" envDefault:"log"`
	AWSRegion   string `env:"AWS_REGION" envDefault:"us-east-1"`
	FromAddress string `env:"EMAIL_FROM_ADDRESS" envDefault:"no-reply@stayhub.local"`
}

type OAuthConfig struct {
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL"`
}

// AuditConfig controls how long persisted audit events are kept.
type AuditConfig struct {
	Retention time.Duration `env:"AUDIT_RETENTION" envDefault:"2160h"`
}

// AdminConfig seeds the first administrator when both fields are set.
type AdminConfig struct {
	Email    string `env:"ADMIN_EMAIL"`
	Password string `env:"ADMIN_PASSWORD"`
	Name     string `env:"ADMIN_NAME" envDefault:"Admin"`
}

func (c AdminConfig) Configured() bool {
	return c.Email != "" && c.Password != ""
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg.Server.ClientURL = strings.TrimRight(cfg.Server.ClientURL, "/")
	cfg.Server.AllowedOrigins = allowedOrigins(cfg.Server)

	return cfg, nil
}

func (c *Config) validate() error {
	if err := validateJWTSecret(c.Auth.JWTSecret, c.Server.Env); err != nil {
		return err
	}

	u, err := url.Parse(c.Server.ClientURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("CLIENT_URL must be an absolute URL (got %q)", c.Server.ClientURL)
	}

	if c.OTP.ExpirationMinutes <= 0 || c.OTP.ResetLinkExpirationMinutes <= 0 {
		return fmt.Errorf("OTP_EXPIRATION_MINUTES and RESET_LINK_EXPIRATION_MINUTES must be positive")
	}
	if c.Audit.Retention <= 0 {
		return fmt.Errorf("AUDIT_RETENTION must be positive")
	}
	if c.OTP.MaxAttempts <= 0 {
		return fmt.Errorf("OTP_MAX_ATTEMPTS must be positive")
	}

	switch c.Email.Provider {
	case "ses", "log":
	default:
		return fmt.Errorf("EMAIL_PROVIDER must be one of ses, log (got %q)", c.Email.Provider)
	}
	if c.Server.Env == "production" && c.Email.Provider == "log" {
		return fmt.Errorf("EMAIL_PROVIDER=log is not allowed in production")
	}

	return nil
}

// validateJWTSecret enforces a minimum length and rejects well-known values.
func validateJWTSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}
	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if strings.Repeat(weak, len(secretLower)/len(weak)) == secretLower {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// allowedOrigins always admits the client origin. Development also admits the
// usual local dev server ports.
func allowedOrigins(s ServerConfig) []string {
	origins := make([]string, 0, len(s.AllowedOrigins)+1)
	add := func(o string) {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o != "" && !slices.Contains(origins, o) {
			origins = append(origins, o)
		}
	}

	if u, err := url.Parse(s.ClientURL); err == nil {
		add(u.Scheme + "://" + u.Host)
	}
	for _, o := range s.AllowedOrigins {
		add(o)
	}

	if s.Env != "production" {
		for _, o := range []string{
			"http://localhost:3000",
			"http://localhost:5173",
			"http://127.0.0.1:3000",
			"http://127.0.0.1:5173",
		} {
			add(o)
		}
	}
	return origins
}
