// Package config loads service configuration from the environment, with an
// optional .env file for local runs.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/chris/payment-reconciliation/pkg/fees"
	"github.com/chris/payment-reconciliation/pkg/providers"
	"github.com/chris/payment-reconciliation/pkg/retry"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Storage drivers.
const (
	StorageDynamoDB = "dynamodb"
	StorageMemory   = "memory"
)

// Notifier backends.
const (
	NotifierSQS  = "sqs"
	NotifierNSQ  = "nsq"
	NotifierNone = "none"
)

// Config is the typed service configuration.
type Config struct {
	AppEnv   string
	HTTPPort string

	FeePercentage decimal.Decimal
	StoreRetry    retry.Config

	StorageDriver     string
	TransactionsTable string
	CorrelationsTable string

	Notifier    string
	SQSQueueURL string
	NSQAddress  string
	NSQTopic    string

	Card         providers.Config
	MobileMoneyA providers.Config
	MobileMoneyB providers.Config

	StuckAfter time.Duration
}

// Production reports whether the service runs in production.
func (c Config) Production() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// Logger builds the service logger: JSON in production, text elsewhere.
func (c Config) Logger() *slog.Logger {
	if c.Production() {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func defaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("FEE_PERCENTAGE", fmt.Sprint(fees.DefaultPercentage))
	v.SetDefault("STORE_MAX_RETRIES", 5)
	v.SetDefault("STORE_BASE_DELAY_MS", 50)
	v.SetDefault("STORE_MAX_DELAY_MS", 2000)
	v.SetDefault("STORAGE_DRIVER", StorageDynamoDB)
	v.SetDefault("NOTIFIER", NotifierSQS)
	v.SetDefault("NSQ_TOPIC", "transaction-changes")
	v.SetDefault("PROVIDER_TIMEOUT_SECONDS", 10)
	v.SetDefault("TARGET_ENVIRONMENT", "sandbox")
	v.SetDefault("STUCK_TRANSACTION_MINUTES", 20)
}

// Load reads the environment, after loading envFiles (".env" if none given)
// when they exist. Variables already set in the environment win.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	defaults(v)

	fee, err := decimal.NewFromString(v.GetString("FEE_PERCENTAGE"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid FEE_PERCENTAGE: %w", err)
	}
	if fee.IsNegative() || fee.GreaterThan(decimal.NewFromInt(100)) {
		return Config{}, fmt.Errorf("FEE_PERCENTAGE must be between 0 and 100, got %s", fee)
	}

	timeout := time.Duration(v.GetInt("PROVIDER_TIMEOUT_SECONDS")) * time.Second
	env := v.GetString("TARGET_ENVIRONMENT")
	momoAEnv := v.GetString("MOMO_A_TARGET_ENVIRONMENT")
	if momoAEnv == "" {
		momoAEnv = env
	}

	cfg := Config{
		AppEnv:        v.GetString("APP_ENV"),
		HTTPPort:      v.GetString("HTTP_PORT"),
		FeePercentage: fee,
		StoreRetry: retry.Config{
			MaxRetries: v.GetInt("STORE_MAX_RETRIES"),
			BaseDelay:  time.Duration(v.GetInt("STORE_BASE_DELAY_MS")) * time.Millisecond,
			MaxDelay:   time.Duration(v.GetInt("STORE_MAX_DELAY_MS")) * time.Millisecond,
		},
		StorageDriver:     strings.ToLower(v.GetString("STORAGE_DRIVER")),
		TransactionsTable: v.GetString("DYNAMODB_TRANSACTIONS_TABLE_NAME"),
		CorrelationsTable: v.GetString("DYNAMODB_CORRELATIONS_TABLE_NAME"),
		Notifier:          strings.ToLower(v.GetString("NOTIFIER")),
		SQSQueueURL:       v.GetString("SQS_QUEUE_URL"),
		NSQAddress:        v.GetString("NSQ_ADDRESS"),
		NSQTopic:          v.GetString("NSQ_TOPIC"),
		Card: providers.Config{
			BaseURL: v.GetString("CARD_BASE_URL"),
			APIKey:  v.GetString("CARD_API_KEY"),
			Timeout: timeout,
		},
		MobileMoneyA: providers.Config{
			BaseURL:           v.GetString("MOMO_A_BASE_URL"),
			APIKey:            v.GetString("MOMO_A_API_KEY"),
			TargetEnvironment: momoAEnv,
			Timeout:           timeout,
		},
		MobileMoneyB: providers.Config{
			BaseURL:           v.GetString("MOMO_B_BASE_URL"),
			APIKey:            v.GetString("MOMO_B_API_KEY"),
			TargetEnvironment: env,
			Timeout:           timeout,
		},
		StuckAfter: time.Duration(v.GetInt("STUCK_TRANSACTION_MINUTES")) * time.Minute,
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.StorageDriver {
	case StorageMemory:
	case StorageDynamoDB:
		if c.TransactionsTable == "" || c.CorrelationsTable == "" {
			return errors.New("one or more DynamoDB table name environment variables are not set")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	switch c.Notifier {
	case NotifierNone:
	case NotifierSQS:
		if c.SQSQueueURL == "" {
			return errors.New("SQS_QUEUE_URL environment variable not set")
		}
	case NotifierNSQ:
		if c.NSQAddress == "" {
			return errors.New("NSQ_ADDRESS environment variable not set")
		}
	default:
		return fmt.Errorf("unknown NOTIFIER %q", c.Notifier)
	}
	return nil
}
