package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/chris/payment-reconciliation/pkg/bootstrap"
	"github.com/chris/payment-reconciliation/pkg/config"
	"github.com/chris/payment-reconciliation/pkg/reconciler"
)

var (
	engine *reconciler.Engine
	cfg    config.Config
	logger *slog.Logger
)

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger = cfg.Logger()

	svc, err := bootstrap.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to initialise engine", slog.Any("error", err))
		os.Exit(1)
	}
	engine = svc.Engine
}

// HandleRequest is triggered by an EventBridge Schedule.
func HandleRequest(ctx context.Context) error {
	logger.Info("starting reconciliation of stuck transactions", slog.Duration("stuck_after", cfg.StuckAfter))

	applied, err := engine.ReconcileStuck(ctx, cfg.StuckAfter)
	if err != nil {
		logger.Error("reconciliation failed", slog.Any("error", err))
		return err
	}

	logger.Info("reconciliation finished", slog.Int("applied", applied))
	return nil
}

func main() {
	lambda.Start(HandleRequest)
}
