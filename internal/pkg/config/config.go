package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	// ShutdownTimeout bounds the graceful drain of the server and workers.
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT, default=15s"`
	CORSOrigins     []string      `env:"CORS_ALLOWED_ORIGINS, default=http://localhost:8080"`
	ActivityWorkers int           `env:"ACTIVITY_WORKERS, default=4"`

	Auth  AuthConfig
	Admin AdminConfig
	Mongo MongoConfig
	Redis RedisConfig
}

type AuthConfig struct {
	// JWTSecret has no default; startup aborts when it is empty.
	JWTSecret  string        `env:"JWT_SECRET"`
	JWTTTL     time.Duration `env:"JWT_TTL,     default=24h"`
	JWTIssuer  string        `env:"JWT_ISSUER"`
	BcryptCost int           `env:"BCRYPT_COST, default=12"`
}

// AdminConfig seeds an ADMIN account at startup when both fields are set.
type AdminConfig struct {
	Name     string `env:"ADMIN_NAME, default=Administrator"`
	Email    string `env:"ADMIN_EMAIL"`
	Password string `env:"ADMIN_PASSWORD"`
}

func (a AdminConfig) Enabled() bool {
	return a.Email != "" && a.Password != ""
}

type MongoConfig struct {
	URI         string        `env:"MONGO_URI,       default=mongodb://localhost:27017"`
	Database    string        `env:"MONGO_DB,        default=storefront"`
	Timeout     time.Duration `env:"MONGO_TIMEOUT,   default=10s"`
	MaxPoolSize uint64        `env:"MONGO_POOL_SIZE, default=50"`
}

type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR,      default=localhost:6379"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB,        default=0"`
	PoolSize int           `env:"REDIS_POOL_SIZE, default=10"`
	Timeout  time.Duration `env:"REDIS_TIMEOUT,   default=5s"`
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads an optional .env file and then the process environment. It
// panics on malformed values.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(fmt.Sprintf("config: failed to read .env: %v", err))
	}
	cfg, err := LoadWith(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadWith processes configuration from lookuper.
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, err
	}
	if cfg.ActivityWorkers < 0 {
		return nil, fmt.Errorf("ACTIVITY_WORKERS must not be negative, got %d", cfg.ActivityWorkers)
	}
	return &cfg, nil
}
