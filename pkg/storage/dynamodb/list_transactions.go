package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/payment-reconciliation/pkg/models"
	"github.com/chris/payment-reconciliation/pkg/storage"
)

const (
	statusCreatedOnIndex = "status-created_on-index"
	merchantIDIndex      = "merchant_id-index"
	uniqueIDIndex        = "unique_id-index"
)

// GetStuckTransactions retrieves transactions in one of statuses that were created before now - maxAge.
func (s *Store) GetStuckTransactions(ctx context.Context, statuses []string, maxAge time.Duration) ([]models.Transaction, error) {
	// Calculate the cutoff time.
	cutoffTime := time.Now().UTC().Add(-maxAge)

	var transactions []models.Transaction
	for _, status := range statuses {
		input := &dynamodb.QueryInput{
			TableName:              aws.String(s.TransactionsTableName),
			IndexName:              aws.String(statusCreatedOnIndex),
			KeyConditionExpression: aws.String("#status = :status AND created_on < :cutoff"),
			ExpressionAttributeNames: map[string]string{
				"#status": "status",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":status": &types.AttributeValueMemberS{Value: status},
				":cutoff": &types.AttributeValueMemberS{Value: formatTime(cutoffTime)},
			},
		}

		items, err := s.query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query for stuck transactions: %w", err)
		}

		var page []models.Transaction
		if err := attributevalue.UnmarshalListOfMaps(items, &page); err != nil {
			return nil, fmt.Errorf("failed to unmarshal stuck transactions: %w", err)
		}
		transactions = append(transactions, page...)
	}

	return transactions, nil
}

// ListTransactionsByMerchantID retrieves all transactions of a merchant.
func (s *Store) ListTransactionsByMerchantID(ctx context.Context, merchantID string) ([]models.Transaction, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.TransactionsTableName),
		IndexName:              aws.String(merchantIDIndex),
		KeyConditionExpression: aws.String("merchant_id = :merchantID"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":merchantID": &types.AttributeValueMemberS{Value: merchantID},
		},
	}

	items, err := s.query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query for transactions by merchant ID: %w", err)
	}

	var transactions []models.Transaction
	if err := attributevalue.UnmarshalListOfMaps(items, &transactions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transactions: %w", err)
	}

	return transactions, nil
}

// GetTransactionByUniqueID looks a transaction up by the provider's own id for it.
func (s *Store) GetTransactionByUniqueID(ctx context.Context, uniqueID string) (*models.Transaction, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.TransactionsTableName),
		IndexName:              aws.String(uniqueIDIndex),
		KeyConditionExpression: aws.String("unique_id = :uniqueID"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uniqueID": &types.AttributeValueMemberS{Value: uniqueID},
		},
		Limit: aws.Int32(1),
	}

	var result *dynamodb.QueryOutput
	err := s.do(ctx, "Query", func(ctx context.Context) error {
		out, err := s.Client.Query(ctx, input)
		result = out
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query for transaction by unique ID: %w", err)
	}

	if len(result.Items) == 0 {
		return nil, fmt.Errorf("transaction with unique ID %s: %w", uniqueID, storage.ErrTransactionNotFound)
	}

	var tx models.Transaction
	if err := attributevalue.UnmarshalMap(result.Items[0], &tx); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transaction: %w", err)
	}

	return &tx, nil
}

// query follows LastEvaluatedKey until the result set is exhausted.
func (s *Store) query(ctx context.Context, input *dynamodb.QueryInput) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	for {
		var result *dynamodb.QueryOutput
		err := s.do(ctx, "Query", func(ctx context.Context) error {
			out, err := s.Client.Query(ctx, input)
			result = out
			return err
		})
		if err != nil {
			return nil, err
		}

		items = append(items, result.Items...)
		if len(result.LastEvaluatedKey) == 0 {
			return items, nil
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
}
