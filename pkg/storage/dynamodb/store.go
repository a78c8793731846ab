package dynamodb

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/chris/payment-reconciliation/pkg/retry"
	"github.com/chris/payment-reconciliation/pkg/storage"
)

//go:generate mockery --name DynamoDBAPI --output ./mocks --outpkg mocks

// DynamoDBAPI is the subset of the DynamoDB client used by the Store.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Store implements the Storage interface using AWS DynamoDB.
type Store struct {
	Client                DynamoDBAPI
	Retrier               *retry.Retrier
	Logger                *slog.Logger
	TransactionsTableName string
	CorrelationsTableName string
}

// New creates a new Store. Every call to DynamoDB goes through a retrier that
// only retries transient errors.
func New(client DynamoDBAPI, config retry.Config, logger *slog.Logger, transactionsTable, correlationsTable string) *Store {
	config.Retryable = IsTransient
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{
		Client:                client,
		Retrier:               retry.New(config, logger),
		Logger:                logger,
		TransactionsTableName: transactionsTable,
		CorrelationsTableName: correlationsTable,
	}
}

// Make sure we conform to the interface
var _ storage.Storage = (*Store)(nil)

func (s *Store) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.Logger
}

func (s *Store) do(ctx context.Context, operation string, fn retry.Func) error {
	if s.Retrier == nil {
		return fn(ctx)
	}
	return s.Retrier.Do(ctx, operation, fn)
}
