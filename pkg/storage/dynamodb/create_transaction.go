package dynamodb

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/chris/payment-reconciliation/pkg/models"
	"github.com/chris/payment-reconciliation/pkg/storage"
)

// CreateTransaction stores a new transaction record. The id must not be taken.
func (s *Store) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	s.logger().DebugContext(ctx, "creating transaction", slog.String("transaction_id", tx.TransactionId), slog.String("status", tx.Status))

	// Marshal the transaction for the Put operation.
	txAV, err := marshalMap(tx)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName:           aws.String(s.TransactionsTableName),
		Item:                txAV,
		ConditionExpression: aws.String("attribute_not_exists(transaction_id)"),
	}

	err = s.do(ctx, "PutItem", func(ctx context.Context) error {
		_, err := s.Client.PutItem(ctx, input)
		return err
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return fmt.Errorf("transaction with ID %s: %w", tx.TransactionId, storage.ErrTransactionExists)
		}
		return fmt.Errorf("failed to create transaction in DynamoDB: %w", err)
	}

	return nil
}
