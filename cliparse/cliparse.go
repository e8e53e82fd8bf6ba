package cliparse

import (
	"errors"
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultPort          = 3318
	DefaultSessionTTL    = 14 * 24 * time.Hour
	DefaultAuditRedisKey = "polls:audit"
	DefaultLoginURL      = "/accounts/login/"
)

type Config struct {
	Port          int
	DatabaseURL   string
	DatabaseType  string
	SessionSecret string
	SessionTTL    time.Duration
	LoginURL      string
	AuditRedisURL string
	AuditRedisKey string
	AdminUsername string
	AdminPassword string
	// CORSOrigins lists the exact origins allowed to make credentialed
	// cross-origin calls. Empty means none.
	CORSOrigins []string
}

// LoadEnv reads .env files into the process environment. Values already
// set are kept. A missing file is returned as an error; callers usually
// just note it and carry on with the environment.
func LoadEnv(files ...string) error {
	return godotenv.Load(files...)
}

// ParseFlags validates flags and fills the rest from the environment
func ParseFlags(args []string) (Config, error) {
	var cfg Config

	fs := flag.NewFlagSet("pollbox", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")
	fs.StringVar(&cfg.AuditRedisURL, "audit-redis", "", "Redis URL for the audit sink (optional)")
	var corsOrigins string
	fs.StringVar(&corsOrigins, "cors-origins", "", "Comma-separated origins allowed for CORS")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.SessionSecret, "session-secret", "", "Session signing secret (prefer env)")
	fs.DurationVar(&cfg.SessionTTL, "session-ttl", 0, "Session lifetime")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = DefaultPort
		}
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = "sqlite"
		}
	}
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, errors.New("database type must be sqlite or postgres")
	}

	if cfg.SessionTTL == 0 {
		if ttlStr := os.Getenv("SESSION_TTL"); ttlStr != "" {
			ttl, err := time.ParseDuration(ttlStr)
			if err != nil {
				return Config{}, errors.New("invalid SESSION_TTL env variable")
			}
			cfg.SessionTTL = ttl
		} else {
			cfg.SessionTTL = DefaultSessionTTL
		}
	}
	if cfg.SessionTTL < 0 {
		return Config{}, errors.New("session TTL must be positive")
	}

	if cfg.AuditRedisURL == "" {
		cfg.AuditRedisURL = os.Getenv("AUDIT_REDIS_URL")
	}
	cfg.AuditRedisKey = os.Getenv("AUDIT_REDIS_KEY")
	if cfg.AuditRedisKey == "" {
		cfg.AuditRedisKey = DefaultAuditRedisKey
	}

	cfg.LoginURL = DefaultLoginURL

	if corsOrigins == "" {
		corsOrigins = os.Getenv("CORS_ALLOWED_ORIGINS")
	}
	cfg.CORSOrigins = splitList(corsOrigins)

	// Optional bootstrap account
	cfg.AdminUsername = os.Getenv("ADMIN_USERNAME")
	cfg.AdminPassword = os.Getenv("ADMIN_PASSWORD")
	if cfg.AdminUsername != "" && cfg.AdminPassword == "" {
		return Config{}, errors.New("ADMIN_PASSWORD required when ADMIN_USERNAME is set")
	}

	// Secrets - MUST be provided
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	}
	if cfg.SessionSecret == "" {
		return Config{}, errors.New("SESSION_SECRET required")
	}

	return cfg, nil
}

// splitList splits a comma-separated value, dropping blank entries
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
