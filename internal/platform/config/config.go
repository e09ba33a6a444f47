package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/srgjo27/puja_booking/internal/core/domain"
	"github.com/srgjo27/puja_booking/internal/core/refund"
)

type Config struct {
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"postgres"`
	LockDriver    string `env:"LOCK_DRIVER" envDefault:"redis"`

	HTTP     HTTPConfig
	DB       DBConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
	Rates    RatesConfig
	Booking  BookingConfig
}

type HTTPConfig struct {
	Addr         string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"10s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
}

type DBConfig struct {
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD"`
	Name     string `env:"DB_NAME" envDefault:"puja_booking"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"25"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`
}

type RedisConfig struct {
	Host         string        `env:"REDIS_HOST" envDefault:"localhost"`
	Port         string        `env:"REDIS_PORT" envDefault:"6379"`
	DB           int           `env:"REDIS_DB" envDefault:"0"`
	LockTTL      time.Duration `env:"REDIS_LOCK_TTL" envDefault:"10s"`
	LockWait     time.Duration `env:"REDIS_LOCK_WAIT" envDefault:"2s"`
	BreakdownTTL time.Duration `env:"BREAKDOWN_CACHE_TTL" envDefault:"24h"`
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// RabbitMQConfig leaves URL empty to run without a broker: notifications and obligations are then
// only logged.
type RabbitMQConfig struct {
	URL              string `env:"RABBITMQ_URL"`
	Exchange         string `env:"RABBITMQ_EXCHANGE" envDefault:"puja.booking"`
	PaymentFactQueue string `env:"RABBITMQ_PAYMENT_QUEUE" envDefault:"puja.payment.facts"`
}

type RatesConfig struct {
	Version                   string `env:"RATE_SHEET_VERSION" envDefault:"default"`
	PlatformCommissionPercent int64  `env:"RATE_PLATFORM_COMMISSION_PERCENT" envDefault:"20"`
	TravelServiceFeePercent   int64  `env:"RATE_TRAVEL_SERVICE_FEE_PERCENT" envDefault:"10"`
	SamagriServiceFeePercent  int64  `env:"RATE_SAMAGRI_SERVICE_FEE_PERCENT" envDefault:"10"`
	GSTPercent                int64  `env:"RATE_GST_PERCENT" envDefault:"18"`
}

func (r RatesConfig) Sheet() domain.RateSheet {
	return domain.RateSheet{
		Version:                   r.Version,
		PlatformCommissionPercent: r.PlatformCommissionPercent,
		TravelServiceFeePercent:   r.TravelServiceFeePercent,
		SamagriServiceFeePercent:  r.SamagriServiceFeePercent,
		GSTPercent:                r.GSTPercent,
	}
}

type BookingConfig struct {
	RequestWindow   time.Duration `env:"REQUEST_WINDOW" envDefault:"6h"`
	BoundaryTimeout time.Duration `env:"BOUNDARY_TIMEOUT" envDefault:"3s"`
	SweepEnabled    bool          `env:"EXPIRY_SWEEPER_ENABLED" envDefault:"false"`
	SweepInterval   time.Duration `env:"EXPIRY_SWEEP_INTERVAL" envDefault:"1m"`
	RefundTiers     string        `env:"REFUND_TIERS" envDefault:"8:90,3:50,1:20,0:0"`
}

func (b BookingConfig) RefundPolicy() (refund.Policy, error) {
	return refund.ParsePolicy(b.RefundTiers)
}

// Load reads an optional .env file and then the process environment, which wins.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.StorageDriver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("unknown LOG_FORMAT %q", c.LogFormat)
	}
	switch c.LockDriver {
	case "redis", "local":
	default:
		return fmt.Errorf("unknown LOCK_DRIVER %q", c.LockDriver)
	}
	if c.Booking.RequestWindow <= 0 {
		return errors.New("REQUEST_WINDOW must be positive")
	}
	if err := c.Rates.Sheet().Validate(); err != nil {
		return err
	}
	if _, err := c.Booking.RefundPolicy(); err != nil {
		return err
	}
	return nil
}

// StaticRates serves the configured rate sheet.
type StaticRates struct {
	sheet domain.RateSheet
}

func NewStaticRates(sheet domain.RateSheet) *StaticRates {
	return &StaticRates{sheet: sheet}
}

func (s *StaticRates) Current(ctx context.Context) (domain.RateSheet, error) {
	return s.sheet, nil
}
