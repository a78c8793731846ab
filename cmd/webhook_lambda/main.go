package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/chris/payment-reconciliation/pkg/bootstrap"
	"github.com/chris/payment-reconciliation/pkg/config"
	"github.com/chris/payment-reconciliation/pkg/handlers/webhooks"
)

var handler *webhooks.WebhooksHandler

func init() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger := cfg.Logger()

	svc, err := bootstrap.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to initialise engine", slog.Any("error", err))
		os.Exit(1)
	}

	handler = webhooks.NewWebhooksHandler(svc.Engine, logger)
}

// Triggered by API Gateway on POST /webhooks/{provider}.
func main() {
	lambda.Start(handler.HandleAPIGateway)
}
