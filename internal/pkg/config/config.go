package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/educationerp/erp-auth/internal/core/domain"
	"github.com/educationerp/erp-auth/internal/core/token"
	"github.com/educationerp/erp-auth/internal/pkg/secret"
)

// MinSecretLength is the shortest accepted HS256 signing key, in bytes.
const MinSecretLength = 32

// Store drivers.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Port      string `env:"PORT,       default=8080"`
	Env       string `env:"ENV,        default=development"`
	LogLevel  string `env:"LOG_LEVEL,  default=info"`
	LogPretty bool   `env:"LOG_PRETTY, default=false"`

	HTTP      HTTPConfig
	JWT       JWTConfig
	Auth      AuthConfig
	Store     StoreConfig
	Mongo     MongoConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Audit     AuditConfig
	Seed      SeedConfig
}

type HTTPConfig struct {
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT,     default=15s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT,    default=15s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT, default=15s"`
}

type JWTConfig struct {
	Secret             string        `env:"JWT_SECRET, required"`
	Issuer             string        `env:"JWT_ISSUER,                default=education-erp"`
	AccessTTL          time.Duration `env:"JWT_ACCESS_TTL,            default=30m"`
	RefreshTTL         time.Duration `env:"JWT_REFRESH_TTL,           default=24h"`
	ReadOnlyAccessTTL  time.Duration `env:"JWT_READONLY_ACCESS_TTL,   default=24h"`
	ReadOnlyRefreshTTL time.Duration `env:"JWT_READONLY_REFRESH_TTL,  default=720h"`
}

type AuthConfig struct {
	MaxFailedAttempts int    `env:"AUTH_MAX_FAILED_ATTEMPTS,     default=5"`
	DefaultTenant     string `env:"AUTH_DEFAULT_TENANT,          default=default"`
	RefreshRecheck    bool   `env:"AUTH_REFRESH_RECHECK_ACCOUNT, default=true"`
	HashAlgorithm     string `env:"AUTH_HASH_ALGORITHM,          default=bcrypt"`
	BcryptCost        int    `env:"AUTH_BCRYPT_COST,             default=10"`
	TenantType        string `env:"TENANT_TYPE,                  default=SHARED_SCHEMA"`
}

type StoreConfig struct {
	Driver string `env:"STORE_DRIVER, default=mongo"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=erp_auth"`
}

type PostgresConfig struct {
	DSN          string `env:"POSTGRES_DSN"`
	MaxOpenConns int    `env:"POSTGRES_MAX_OPEN_CONNS, default=10"`
}

type RedisConfig struct {
	Enabled  bool   `env:"REDIS_ENABLED,  default=false"`
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

type RateLimitConfig struct {
	Enabled bool    `env:"RATE_LIMIT_ENABLED, default=true"`
	RPS     float64 `env:"RATE_LIMIT_RPS,     default=5"`
	Burst   int     `env:"RATE_LIMIT_BURST,   default=10"`
}

type AuditConfig struct {
	Workers int `env:"AUDIT_WORKERS, default=8"`
}

type SeedConfig struct {
	Demo     bool   `env:"SEED_DEMO_ACCOUNTS, default=false"`
	Password string `env:"SEED_PASSWORD"`
}

// Load reads configuration through lookuper and validates it. A nil
// lookuper reads the process environment.
func Load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	if lookuper == nil {
		lookuper = envconfig.OsLookuper()
	}

	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// MustLoad reads configuration from environment variables and panics when
// it is missing or invalid.
func MustLoad() *Config {
	cfg, err := Load(context.Background(), nil)
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks the settings that cannot be expressed as struct tags.
func (c *Config) Validate() error {
	var errs []error

	if len(c.JWT.Secret) < MinSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes", MinSecretLength))
	}
	if err := c.Lifetimes().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Auth.MaxFailedAttempts <= 0 {
		errs = append(errs, errors.New("AUTH_MAX_FAILED_ATTEMPTS must be positive"))
	}
	if c.Auth.DefaultTenant == "" {
		errs = append(errs, errors.New("AUTH_DEFAULT_TENANT must not be empty"))
	}
	switch c.Auth.HashAlgorithm {
	case secret.AlgorithmBcrypt, secret.AlgorithmArgon2id:
	default:
		errs = append(errs, fmt.Errorf("AUTH_HASH_ALGORITHM %q is not supported", c.Auth.HashAlgorithm))
	}
	if _, err := domain.ParseTenantType(c.Auth.TenantType); err != nil {
		errs = append(errs, err)
	}

	switch c.Store.Driver {
	case DriverMongo, DriverMemory:
	case DriverPostgres:
		if c.Postgres.DSN == "" {
			errs = append(errs, errors.New("POSTGRES_DSN is required with STORE_DRIVER=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER %q is not one of mongo, postgres, memory", c.Store.Driver))
	}

	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0) {
		errs = append(errs, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive"))
	}
	if c.Seed.Demo && c.Seed.Password == "" {
		errs = append(errs, errors.New("SEED_PASSWORD is required with SEED_DEMO_ACCOUNTS=true"))
	}

	return errors.Join(errs...)
}

// Lifetimes returns the token lifetime table.
func (c *Config) Lifetimes() token.Lifetimes {
	return token.Lifetimes{
		Access:          c.JWT.AccessTTL,
		Refresh:         c.JWT.RefreshTTL,
		ReadOnlyAccess:  c.JWT.ReadOnlyAccessTTL,
		ReadOnlyRefresh: c.JWT.ReadOnlyRefreshTTL,
	}
}

// TenantType returns the validated deployment tenant type.
func (c *Config) TenantType() domain.TenantType {
	t, _ := domain.ParseTenantType(c.Auth.TenantType)
	return t
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
