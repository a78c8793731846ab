package notifier

import (
	"context"

	"github.com/chris/payment-reconciliation/pkg/models"
)

//go:generate mockery --name Notifier --output ./mocks --outpkg mocks

// Notifier publishes accepted transaction changes to downstream consumers.
// Delivery is at least once.
type Notifier interface {
	Notify(ctx context.Context, event models.ChangeEvent) error
}

// NoOp drops every event.
type NoOp struct{}

// Notify does nothing.
func (NoOp) Notify(context.Context, models.ChangeEvent) error {
	return nil
}
