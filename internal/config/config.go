package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"portfolio-server/internal/utils"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const minSecretLength = 16

// Config holds the application configuration.
type Config struct {
	Env        string `envconfig:"ENV" default:"development"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat  string `envconfig:"LOG_FORMAT" default:"json"`
	ServerPort string `envconfig:"SERVER_PORT" default:"8000"`
	SecretsDir string `envconfig:"SECRETS_DIR" default:"/run/secrets"`

	// PostgreSQL
	DatabaseURL   string        `envconfig:"DATABASE_URL" required:"true"`
	DBMaxConns    int           `envconfig:"DB_MAX_CONNS" default:"10"`
	DBIdleTimeout time.Duration `envconfig:"DB_IDLE_TIMEOUT" default:"5m"`
	RunMigrations bool          `envconfig:"RUN_MIGRATIONS" default:"true"`

	// Redis holds guard state and rate limiter counters.
	RedisURL string `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`

	// Token settings. JWTSecret and PasswordPepper fall back to secret files.
	JWTSecret      string        `envconfig:"JWT_SECRET"`
	JWTIssuer      string        `envconfig:"JWT_ISSUER" default:"portfolio-server"`
	AccessTokenTTL time.Duration `envconfig:"ACCESS_TOKEN_TTL" default:"30m"`
	PasswordPepper string        `envconfig:"PASSWORD_PEPPER"`
	BcryptCost     int           `envconfig:"BCRYPT_COST" default:"10"`

	// Failed-login guard.
	LoginMaxFailures   int           `envconfig:"LOGIN_MAX_FAILURES" default:"5"`
	LoginFailureWindow time.Duration `envconfig:"LOGIN_FAILURE_WINDOW" default:"15m"`
	LoginBanTTL        time.Duration `envconfig:"LOGIN_BAN_TTL" default:"1h"`

	// Per-IP request limit on the /auth group.
	RateLimitPerMinute uint `envconfig:"RATE_LIMIT_PER_MINUTE" default:"30"`

	SessionIdleTimeout time.Duration `envconfig:"SESSION_IDLE_TIMEOUT" default:"30m"`

	// Admin seeding. Seeding is skipped unless email and password are set.
	AdminEmail    string `envconfig:"ADMIN_EMAIL"`
	AdminPassword string `envconfig:"ADMIN_PASSWORD"`
	AdminName     string `envconfig:"ADMIN_NAME" default:"Admin"`
	AdminUsername string `envconfig:"ADMIN_USERNAME" default:"admin"`

	InitialSetupEnabled bool `envconfig:"INITIAL_SETUP_ENABLED" default:"true"`

	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	TrustedProxies     string `envconfig:"TRUSTED_PROXIES"`
}

// GetAllowedOrigins splits CORSAllowedOrigins on commas.
func (c *Config) GetAllowedOrigins() []string {
	return splitList(c.CORSAllowedOrigins)
}

// GetTrustedProxies returns nil when no proxies are configured, which
// makes gin ignore forwarding headers.
func (c *Config) GetTrustedProxies() []string {
	return splitList(c.TrustedProxies)
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(strings.ReplaceAll(s, " ", ""), ",")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks values envconfig cannot express.
func (c *Config) Validate() error {
	var errs []error
	if len(c.JWTSecret) < minSecretLength {
		errs = append(errs, fmt.Errorf("jwt secret must be at least %d characters", minSecretLength))
	}
	if c.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_TTL must be positive"))
	}
	if c.LoginMaxFailures < 1 {
		errs = append(errs, errors.New("LOGIN_MAX_FAILURES must be at least 1"))
	}
	if c.LoginFailureWindow <= 0 || c.LoginBanTTL <= 0 {
		errs = append(errs, errors.New("LOGIN_FAILURE_WINDOW and LOGIN_BAN_TTL must be positive"))
	}
	if c.SessionIdleTimeout <= 0 {
		errs = append(errs, errors.New("SESSION_IDLE_TIMEOUT must be positive"))
	}
	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		errs = append(errs, errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set together"))
	}
	return errors.Join(errs...)
}

// LoadConfig loads configuration from an optional .env file, the
// environment and secret files, then validates it.
func LoadConfig(envFilePath string) (*Config, error) {
	if envFilePath != "" {
		if _, err := os.Stat(envFilePath); err == nil {
			if err := godotenv.Load(envFilePath); err != nil {
				log.Printf("Warning: could not load %s: %v", envFilePath, err)
			} else {
				log.Printf("Loaded configuration from %s", envFilePath)
			}
		} else if !os.IsNotExist(err) {
			log.Printf("Warning: error checking %s: %v", envFilePath, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("error processing env vars: %w", err)
	}

	// The environment wins; secret files fill in what it leaves empty.
	if cfg.JWTSecret == "" {
		secret, err := utils.ReadSecret(cfg.SecretsDir, "jwt_secret")
		if err != nil {
			return nil, fmt.Errorf("JWT_SECRET is not set: %w", err)
		}
		cfg.JWTSecret = secret
	}
	if cfg.PasswordPepper == "" {
		if pepper, err := utils.ReadSecret(cfg.SecretsDir, "password_pepper"); err == nil {
			cfg.PasswordPepper = pepper
		}
	}
	if cfg.AdminPassword == "" {
		if pass, err := utils.ReadSecret(cfg.SecretsDir, "admin_password"); err == nil {
			cfg.AdminPassword = pass
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
