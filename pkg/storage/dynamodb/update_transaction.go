package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/chris/payment-reconciliation/pkg/storage"
)

// UpdateTransaction applies a partial update to an existing transaction.
// A failed condition means either the record is gone or, when the update
// expected a version, someone else wrote first.
func (s *Store) UpdateTransaction(ctx context.Context, txID string, update *storage.Update) error {
	update.Stamp(time.Now())

	input, err := buildUpdateInput(s.TransactionsTableName, txID, update)
	if err != nil {
		return fmt.Errorf("failed to build update for transaction %s: %w", txID, err)
	}

	err = s.do(ctx, "UpdateItem", func(ctx context.Context) error {
		_, err := s.Client.UpdateItem(ctx, input)
		return err
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			if _, ok := update.ExpectedVersion(); ok {
				return fmt.Errorf("transaction with ID %s: %w", txID, storage.ErrVersionConflict)
			}
			return fmt.Errorf("transaction with ID %s: %w", txID, storage.ErrTransactionNotFound)
		}
		return fmt.Errorf("failed to update transaction in DynamoDB: %w", err)
	}

	return nil
}
