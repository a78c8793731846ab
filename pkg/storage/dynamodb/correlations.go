package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/chris/payment-reconciliation/pkg/models"
	"github.com/chris/payment-reconciliation/pkg/storage"
)

// CorrelationTTL is how long an unresolved correlation record is kept before
// DynamoDB expires it.
const CorrelationTTL = 24 * time.Hour

const correlationKey = "correlation_id"

// PutCorrelation stores a temporary correlation record with a TTL.
func (s *Store) PutCorrelation(ctx context.Context, c *models.Correlation) error {
	if c.TTL == 0 {
		c.TTL = time.Now().Add(CorrelationTTL).Unix()
	}

	item, err := marshalMap(c)
	if err != nil {
		return fmt.Errorf("failed to marshal correlation: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(s.CorrelationsTableName),
		Item:      item,
	}

	err = s.do(ctx, "PutItem", func(ctx context.Context) error {
		_, err := s.Client.PutItem(ctx, input)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to put correlation in DynamoDB: %w", err)
	}

	return nil
}

// GetCorrelation retrieves the correlation record for a provider sub-transaction id.
func (s *Store) GetCorrelation(ctx context.Context, correlationID string) (*models.Correlation, error) {
	key, err := attributevalue.MarshalMap(map[string]string{correlationKey: correlationID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal correlation ID: %w", err)
	}

	input := &dynamodb.GetItemInput{
		TableName:      aws.String(s.CorrelationsTableName),
		Key:            key,
		ConsistentRead: aws.Bool(true),
	}

	var result *dynamodb.GetItemOutput
	err = s.do(ctx, "GetItem", func(ctx context.Context) error {
		out, err := s.Client.GetItem(ctx, input)
		result = out
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get correlation from DynamoDB: %w", err)
	}

	if result.Item == nil {
		return nil, fmt.Errorf("correlation with ID %s: %w", correlationID, storage.ErrCorrelationNotFound)
	}

	var c models.Correlation
	if err := attributevalue.UnmarshalMap(result.Item, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal correlation: %w", err)
	}

	return &c, nil
}

// DeleteCorrelation removes a resolved correlation record. Deleting a record
// that is already gone is not an error.
func (s *Store) DeleteCorrelation(ctx context.Context, correlationID string) error {
	key, err := attributevalue.MarshalMap(map[string]string{correlationKey: correlationID})
	if err != nil {
		return fmt.Errorf("failed to marshal correlation ID for deletion: %w", err)
	}

	input := &dynamodb.DeleteItemInput{
		TableName: aws.String(s.CorrelationsTableName),
		Key:       key,
	}

	err = s.do(ctx, "DeleteItem", func(ctx context.Context) error {
		_, err := s.Client.DeleteItem(ctx, input)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete correlation from DynamoDB: %w", err)
	}

	return nil
}
