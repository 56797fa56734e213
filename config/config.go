package config

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	Port               string          `mapstructure:"PORT" validate:"required"`
	LogLevel           string          `mapstructure:"LOG_LEVEL" validate:"omitempty,oneof=debug info warn error"`
	InternalAuthHeader string          `mapstructure:"INTERNAL_AUTH_HEADER" validate:"required"`
	Db                 DbConfig        `mapstructure:",squash"`
	Jwt                JwtConfig       `mapstructure:",squash"`
	Redis              RedisConfig     `mapstructure:",squash"`
	Broker             BrokerConfig    `mapstructure:",squash"`
	Otel               OtelConfig      `mapstructure:",squash"`
	Business           BusinessConfig  `mapstructure:",squash"`
	Payment            PaymentConfig   `mapstructure:",squash"`
	Scheduler          SchedulerConfig `mapstructure:",squash"`
}

type DbConfig struct {
	Host        string `mapstructure:"DB_HOST" validate:"required"`
	Port        string `mapstructure:"DB_PORT" validate:"required"`
	Username    string `mapstructure:"DB_USERNAME" validate:"required"`
	Password    string `mapstructure:"DB_PASSWORD" validate:"required"`
	DbName      string `mapstructure:"DB_DBNAME" validate:"required"`
	SSLMode     string `mapstructure:"DB_SSLMODE"`
	AutoMigrate bool   `mapstructure:"DB_AUTO_MIGRATE"`
}

type JwtConfig struct {
	SecretKey string `mapstructure:"JWT_SECRETKEY" validate:"required"`
}

type RedisConfig struct {
	Addr                 string `mapstructure:"REDIS_ADDR" validate:"required"`
	Password             string `mapstructure:"REDIS_PASSWORD"`
	DB                   int    `mapstructure:"REDIS_DB"`
	StockCacheTTLSeconds int64  `mapstructure:"STOCK_CACHE_TTL_SECONDS" validate:"gte=0"`
}

type BrokerConfig struct {
	Kind           string   `mapstructure:"EVENT_BROKER" validate:"required,oneof=nats kafka"`
	NatsUrl        string   `mapstructure:"NATS_URL" validate:"required_if=Kind nats"`
	NatsStreamName string   `mapstructure:"NATS_STREAM_NAME" validate:"required_if=Kind nats"`
	KafkaBrokers   []string `mapstructure:"KAFKA_BROKERS" validate:"required_if=Kind kafka"`
}

type OtelConfig struct {
	Endpoint    string `mapstructure:"OTEL_EXPORTER_ENDPOINT"`
	ServiceName string `mapstructure:"OTEL_SERVICE_NAME"`
}

type BusinessConfig struct {
	ReservationWindowMinutes int64           `mapstructure:"RESERVATION_WINDOW_MINUTES" validate:"gt=0"`
	SafetyBuffer             int64           `mapstructure:"STOCK_SAFETY_BUFFER" validate:"gte=0"`
	VatRate                  decimal.Decimal `mapstructure:"VAT_RATE"`
	Currency                 string          `mapstructure:"CURRENCY" validate:"required,len=3"`
	CountryCode              string          `mapstructure:"COUNTRY_CODE" validate:"required,len=2"`
	FreeShippingThreshold    decimal.Decimal `mapstructure:"FREE_SHIPPING_THRESHOLD"`
	FlatShippingFee          decimal.Decimal `mapstructure:"FLAT_SHIPPING_FEE"`
}

type PaymentConfig struct {
	Provider        string `mapstructure:"PAYMENT_PROVIDER" validate:"required"`
	CheckoutBaseURL string `mapstructure:"PAYMENT_CHECKOUT_BASE_URL" validate:"required,url"`
	WebhookSecret   string `mapstructure:"WEBHOOK_SECRET"`
	SignatureHeader string `mapstructure:"WEBHOOK_SIGNATURE_HEADER" validate:"required"`
}

type SchedulerConfig struct {
	Enabled                      bool  `mapstructure:"SCHEDULER_ENABLED"`
	ExpiryIntervalSeconds        int64 `mapstructure:"EXPIRY_INTERVAL_SECONDS" validate:"gt=0"`
	InventorySyncIntervalSeconds int64 `mapstructure:"INVENTORY_SYNC_INTERVAL_SECONDS" validate:"gt=0"`
}

func (b BusinessConfig) ReservationWindow() time.Duration {
	return time.Duration(b.ReservationWindowMinutes) * time.Minute
}

func (r RedisConfig) StockCacheTTL() time.Duration {
	return time.Duration(r.StockCacheTTLSeconds) * time.Second
}

func (s SchedulerConfig) ExpiryInterval() time.Duration {
	return time.Duration(s.ExpiryIntervalSeconds) * time.Second
}

func (s SchedulerConfig) InventorySyncInterval() time.Duration {
	return time.Duration(s.InventorySyncIntervalSeconds) * time.Second
}

func setDefaults() {
	viper.SetDefault("PORT", "3001")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("STOCK_CACHE_TTL_SECONDS", 5)
	viper.SetDefault("EVENT_BROKER", "nats")
	viper.SetDefault("NATS_STREAM_NAME", "storefront")
	viper.SetDefault("OTEL_SERVICE_NAME", "storefront-service")
	viper.SetDefault("RESERVATION_WINDOW_MINUTES", 10)
	viper.SetDefault("STOCK_SAFETY_BUFFER", 1)
	viper.SetDefault("VAT_RATE", "0.125")
	viper.SetDefault("CURRENCY", "GHS")
	viper.SetDefault("COUNTRY_CODE", "GH")
	viper.SetDefault("FREE_SHIPPING_THRESHOLD", "500")
	viper.SetDefault("FLAT_SHIPPING_FEE", "25")
	viper.SetDefault("PAYMENT_PROVIDER", "polar")
	viper.SetDefault("PAYMENT_CHECKOUT_BASE_URL", "http://localhost:3000/checkout/payment")
	viper.SetDefault("WEBHOOK_SIGNATURE_HEADER", "X-Webhook-Signature")
	viper.SetDefault("SCHEDULER_ENABLED", true)
	viper.SetDefault("EXPIRY_INTERVAL_SECONDS", 60)
	viper.SetDefault("INVENTORY_SYNC_INTERVAL_SECONDS", 300)
}

func InitConfig(ctx context.Context) (*Config, error) {
	var cfg Config

	// Reset viper to avoid any previous configuration
	viper.Reset()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.SetConfigType("env")
	setDefaults()

	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}

	_, err := os.Stat(envFile)
	if !os.IsNotExist(err) {
		viper.SetConfigFile(envFile)

		if err := viper.ReadInConfig(); err != nil {
			slog.WarnContext(ctx, "[InitConfig] ReadInConfig warning, continuing with env vars only", "error", err)
		} else {
			slog.InfoContext(ctx, "[InitConfig] Successfully loaded config file", "file", envFile)
		}
	} else {
		slog.InfoContext(ctx, "[InitConfig] No config file found, using environment variables")
	}

	viper.AutomaticEnv()

	// AutomaticEnv only resolves keys viper already knows about, so bind
	// the ones without defaults explicitly.
	envVars := []string{
		"INTERNAL_AUTH_HEADER",
		"DB_HOST",
		"DB_PORT",
		"DB_USERNAME",
		"DB_PASSWORD",
		"DB_DBNAME",
		"DB_AUTO_MIGRATE",
		"JWT_SECRETKEY",
		"REDIS_ADDR",
		"REDIS_PASSWORD",
		"REDIS_DB",
		"NATS_URL",
		"KAFKA_BROKERS",
		"OTEL_EXPORTER_ENDPOINT",
		"WEBHOOK_SECRET",
	}
	for _, key := range envVars {
		viper.BindEnv(key)
	}

	if err := viper.Unmarshal(&cfg, viper.DecodeHook(decimalHook())); err != nil {
		slog.ErrorContext(ctx, "[InitConfig] Unmarshal", "failed bind config", err)
		return nil, err
	}

	slog.InfoContext(ctx, "[InitConfig] Configuration after binding",
		"PORT", cfg.Port,
		"DB_HOST", cfg.Db.Host,
		"DB_PORT", cfg.Db.Port,
		"DB_DBNAME", cfg.Db.DbName,
		"REDIS_ADDR", cfg.Redis.Addr,
		"EVENT_BROKER", cfg.Broker.Kind,
		"RESERVATION_WINDOW_MINUTES", cfg.Business.ReservationWindowMinutes,
		"STOCK_SAFETY_BUFFER", cfg.Business.SafetyBuffer,
		"VAT_RATE", cfg.Business.VatRate.String(),
		"WEBHOOK_SECRET_SET", cfg.Payment.WebhookSecret != "")

	if cfg.Payment.WebhookSecret == "" {
		slog.WarnContext(ctx, "[InitConfig] WEBHOOK_SECRET is empty, webhook signatures will not be verified")
	}

	if err := Validate(ctx, &cfg); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "[InitConfig] Config loaded successfully")
	return &cfg, nil
}

func Validate(ctx context.Context, cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		validationErrs, ok := err.(validator.ValidationErrors)
		if ok {
			for _, validationErr := range validationErrs {
				slog.ErrorContext(ctx, "[InitConfig] Validation error",
					"field", validationErr.Field(),
					"namespace", validationErr.Namespace(),
					"tag", validationErr.Tag(),
					"value", validationErr.Value())
			}
		} else {
			slog.ErrorContext(ctx, "[InitConfig] Validation", "error", err)
		}
		return err
	}
	if cfg.Business.VatRate.IsNegative() || cfg.Business.FreeShippingThreshold.IsNegative() || cfg.Business.FlatShippingFee.IsNegative() {
		slog.ErrorContext(ctx, "[InitConfig] Validation", "error", "money settings must not be negative")
		return errNegativeMoney
	}
	return nil
}
