package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = "mandibook"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Cron         CronConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"MANDIBOOK_APP_ENV" required:"true"`
	Port         string `envconfig:"MANDIBOOK_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"MANDIBOOK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MANDIBOOK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"MANDIBOOK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"MANDIBOOK_DB_DSN"`
	Driver string `envconfig:"MANDIBOOK_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"MANDIBOOK_DB_HOST"`
	Port     int    `envconfig:"MANDIBOOK_DB_PORT" default:"5432"`
	User     string `envconfig:"MANDIBOOK_DB_USER"`
	Password string `envconfig:"MANDIBOOK_DB_PASSWORD"`
	Name     string `envconfig:"MANDIBOOK_DB_NAME"`
	SSLMode  string `envconfig:"MANDIBOOK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MANDIBOOK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MANDIBOOK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MANDIBOOK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MANDIBOOK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("either MANDIBOOK_DB_DSN or host/user/name settings are required")
	}
	dsn := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.Name,
	}
	query := dsn.Query()
	query.Set("sslmode", d.SSLMode)
	dsn.RawQuery = query.Encode()
	d.DSN = dsn.String()
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"MANDIBOOK_REDIS_URL"`
	Address      string        `envconfig:"MANDIBOOK_REDIS_ADDR"`
	Password     string        `envconfig:"MANDIBOOK_REDIS_PASSWORD"`
	DB           int           `envconfig:"MANDIBOOK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MANDIBOOK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MANDIBOOK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MANDIBOOK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MANDIBOOK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MANDIBOOK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig only covers token verification; issuing tokens is the gateway's
// concern.
type JWTConfig struct {
	Secret string `envconfig:"MANDIBOOK_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"MANDIBOOK_JWT_ISSUER" required:"true"`
}

type CronConfig struct {
	Interval    time.Duration `envconfig:"MANDIBOOK_CRON_INTERVAL" default:"15m"`
	LockTTL     time.Duration `envconfig:"MANDIBOOK_CRON_LOCK_TTL" default:"10m"`
	JobTimeout  time.Duration `envconfig:"MANDIBOOK_CRON_JOB_TIMEOUT" default:"5m"`
	MetricsPort string        `envconfig:"MANDIBOOK_CRON_METRICS_PORT" default:"9091"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"MANDIBOOK_FEATURE_AUTO_MIGRATE" default:"false"`
}
