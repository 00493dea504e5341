package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTP      HTTP
	Logger    Logger
	Postgres  Postgres
	Auth      Auth
	Redis     Redis
	Minio     Minio
	SMTP      SMTP
	Kafka     Kafka
	Invoice   Invoice
	Scheduler Scheduler
}

type HTTP struct {
	Port            int           `env:"PORT" envDefault:"8080"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	// BehindTLS enables HTTPS redirects, HSTS and Secure cookies.
	BehindTLS       bool          `env:"BEHIND_TLS" envDefault:"false"`
}

type Logger struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type Postgres struct {
	DSN            string `env:"DATABASE_URL,required"`
	MaxConns       int32  `env:"DB_MAX_CONNS" envDefault:"10"`
	MigrateOnStart bool   `env:"MIGRATE_ON_START" envDefault:"true"`
}

type Auth struct {
	// JWTSecret may be empty, in which case main generates a development secret.
	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"JWT_TTL" envDefault:"168h"`
}

type Redis struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type Minio struct {
	Endpoint  string        `env:"MINIO_ENDPOINT" envDefault:"localhost:9000"`
	AccessKey string        `env:"MINIO_ACCESS_KEY" envDefault:"minioadmin"`
	SecretKey string        `env:"MINIO_SECRET_KEY" envDefault:"minioadmin"`
	UseSSL    bool          `env:"MINIO_USE_SSL" envDefault:"false"`
	Bucket    string        `env:"MINIO_BUCKET" envDefault:"invoices"`
	URLExpiry time.Duration `env:"MINIO_URL_EXPIRY" envDefault:"24h"`
}

type SMTP struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	User     string `env:"SMTP_USER"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM" envDefault:"invoices@invoiceflow.local"`
	FromName string `env:"SMTP_FROM_NAME" envDefault:"InvoiceFlow"`
}

type Kafka struct {
	Brokers      []string `env:"KAFKA_BROKERS"`
	InvoiceTopic string   `env:"KAFKA_INVOICE_TOPIC" envDefault:"invoice-events"`
}

type Invoice struct {
	BrandName      string        `env:"BRAND_NAME" envDefault:"Oryxa InvoiceFlow"`
	CurrencyPrefix string        `env:"CURRENCY_PREFIX" envDefault:"Rs."`
	StatsCacheTTL  time.Duration `env:"STATS_CACHE_TTL" envDefault:"5m"`
}

type Scheduler struct {
	StatsRefreshInterval time.Duration `env:"STATS_REFRESH_INTERVAL" envDefault:"5m"`
}

// New loads envPath when it exists and then parses the environment.
func New(envPath string) (Config, error) {
	var c Config

	err := godotenv.Load(envPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envPath, err)
	}

	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	return c, nil
}

// MailEnabled reports whether an SMTP relay is configured.
func (c Config) MailEnabled() bool {
	return c.SMTP.Host != ""
}

// EventsEnabled reports whether Kafka brokers are configured.
func (c Config) EventsEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}
