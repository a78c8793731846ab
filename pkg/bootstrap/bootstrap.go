// Package bootstrap wires a Config into a running engine and its HTTP surface.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/chris/payment-reconciliation/pkg/config"
	"github.com/chris/payment-reconciliation/pkg/handlers/transactions"
	"github.com/chris/payment-reconciliation/pkg/handlers/webhooks"
	"github.com/chris/payment-reconciliation/pkg/metrics"
	"github.com/chris/payment-reconciliation/pkg/middleware"
	"github.com/chris/payment-reconciliation/pkg/notifier"
	"github.com/chris/payment-reconciliation/pkg/providers"
	"github.com/chris/payment-reconciliation/pkg/reconciler"
	"github.com/chris/payment-reconciliation/pkg/storage"
	"github.com/chris/payment-reconciliation/pkg/storage/dynamodb"
	"github.com/chris/payment-reconciliation/pkg/storage/memory"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Service is the wired engine plus whatever must be released on shutdown.
type Service struct {
	Engine *reconciler.Engine
	Logger *slog.Logger

	closers []func()
}

// New builds the store, notifier and provider registry described by cfg.
// AWS configuration is only loaded when a DynamoDB store or SQS notifier is
// selected.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Service, error) {
	metrics.Init()

	s := &Service{Logger: logger}
	var awsCfg *aws.Config
	loadAWS := func() (aws.Config, error) {
		if awsCfg == nil {
			c, err := awsconfig.LoadDefaultConfig(ctx)
			if err != nil {
				return aws.Config{}, fmt.Errorf("unable to load SDK config: %w", err)
			}
			awsCfg = &c
		}
		return *awsCfg, nil
	}

	var store storage.Storage
	switch cfg.StorageDriver {
	case config.StorageDynamoDB:
		c, err := loadAWS()
		if err != nil {
			return nil, err
		}
		ddb := dynamodb.New(awsdynamodb.NewFromConfig(c), cfg.StoreRetry, logger, cfg.TransactionsTable, cfg.CorrelationsTable)
		ddb.Retrier.OnRetry(metrics.CountStoreRetry)
		store = ddb
	case config.StorageMemory:
		store = memory.New()
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}

	var n notifier.Notifier
	switch cfg.Notifier {
	case config.NotifierSQS:
		c, err := loadAWS()
		if err != nil {
			return nil, err
		}
		n = notifier.NewSQSPublisher(sqs.NewFromConfig(c), cfg.SQSQueueURL)
	case config.NotifierNSQ:
		p, err := notifier.NewNSQPublisher(cfg.NSQAddress, cfg.NSQTopic)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, p.Stop)
		n = p
	case config.NotifierNone:
		n = notifier.NoOp{}
	default:
		return nil, fmt.Errorf("unknown notifier %q", cfg.Notifier)
	}

	registry := providers.NewRegistry(
		providers.NewCard(cfg.Card),
		providers.NewMobileMoneyA(cfg.MobileMoneyA),
		providers.NewMobileMoneyB(cfg.MobileMoneyB),
	)

	s.Engine = reconciler.New(store, registry, n, cfg.FeePercentage, logger)
	return s, nil
}

// Router mounts the transaction and webhook endpoints plus /metrics.
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.NewStructuredLogger(s.Logger, "/metrics"))
	r.Use(middleware.Recover(s.Logger))
	r.Use(middleware.HTTPMetrics)

	r.Handle("/metrics", metrics.Handler())
	transactions.NewTransactionsHandler(s.Engine, s.Logger).Routes(r)
	webhooks.NewWebhooksHandler(s.Engine, s.Logger).Routes(r)
	return r
}

// Close releases long-lived connections.
func (s *Service) Close() {
	for _, c := range s.closers {
		c()
	}
}
