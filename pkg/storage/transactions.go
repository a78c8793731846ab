package storage

import (
	"context"
	"time"

	"github.com/chris/payment-reconciliation/pkg/models"
)

// TransactionReader defines the interface for reading transaction data.
type TransactionReader interface {
	// GetTransaction retrieves a transaction by its ID.
	GetTransaction(ctx context.Context, txID string) (*models.Transaction, error)

	// GetTransactionByUniqueID resolves a provider correlation id (card object id,
	// mobile-money B pay token) to its transaction.
	GetTransactionByUniqueID(ctx context.Context, uniqueID string) (*models.Transaction, error)

	// GetStuckTransactions retrieves transactions whose status is one of statuses
	// and that were created longer ago than maxAge.
	GetStuckTransactions(ctx context.Context, statuses []string, maxAge time.Duration) ([]models.Transaction, error)

	// ListTransactionsByMerchantID retrieves all transactions for a merchant.
	ListTransactionsByMerchantID(ctx context.Context, merchantID string) ([]models.Transaction, error)
}

// TransactionWriter defines the interface for creating and partially updating transactions.
type TransactionWriter interface {
	// CreateTransaction stores a new transaction. It fails with ErrTransactionExists
	// if the id is already taken.
	CreateTransaction(ctx context.Context, tx *models.Transaction) error

	// UpdateTransaction applies a partial update. Only the fields named in the
	// update are written and updated_on is always stamped.
	UpdateTransaction(ctx context.Context, txID string, update *Update) error
}

// TransactionStore combines the reader and writer interfaces.
type TransactionStore interface {
	TransactionReader
	TransactionWriter
}

// CorrelationStore manages the temporary records that map a provider
// sub-transaction id back to its parent transaction.
type CorrelationStore interface {
	PutCorrelation(ctx context.Context, c *models.Correlation) error
	GetCorrelation(ctx context.Context, correlationID string) (*models.Correlation, error)
	DeleteCorrelation(ctx context.Context, correlationID string) error
}
