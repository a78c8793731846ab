// Package memory is an in-process Storage used for local development and
// tests. Records are kept in their DynamoDB attribute-value form so partial
// updates behave the way they do against the real table.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/payment-reconciliation/pkg/models"
	"github.com/chris/payment-reconciliation/pkg/storage"
	"github.com/shopspring/decimal"
)

type item = map[string]types.AttributeValue

// Store implements storage.Storage in memory.
type Store struct {
	mu           sync.RWMutex
	transactions map[string]item
	correlations map[string]item
	now          func() time.Time
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		transactions: map[string]item{},
		correlations: map[string]item{},
		now:          time.Now,
	}
}

// Make sure we conform to the interface
var _ storage.Storage = (*Store)(nil)

func (s *Store) GetTransaction(_ context.Context, txID string) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it, ok := s.transactions[txID]
	if !ok {
		return nil, fmt.Errorf("transaction with ID %s: %w", txID, storage.ErrTransactionNotFound)
	}
	return decodeTransaction(it)
}

func (s *Store) GetTransactionByUniqueID(_ context.Context, uniqueID string) (*models.Transaction, error) {
	txs, err := s.filter(func(tx *models.Transaction) bool { return tx.UniqueId == uniqueID })
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, fmt.Errorf("transaction with unique ID %s: %w", uniqueID, storage.ErrTransactionNotFound)
	}
	return &txs[0], nil
}

func (s *Store) GetStuckTransactions(_ context.Context, statuses []string, maxAge time.Duration) ([]models.Transaction, error) {
	cutoff := s.now().Add(-maxAge)
	return s.filter(func(tx *models.Transaction) bool {
		return slices.Contains(statuses, tx.Status) && tx.CreatedOn.Before(cutoff)
	})
}

func (s *Store) ListTransactionsByMerchantID(_ context.Context, merchantID string) ([]models.Transaction, error) {
	return s.filter(func(tx *models.Transaction) bool { return tx.MerchantId == merchantID })
}

func (s *Store) CreateTransaction(_ context.Context, tx *models.Transaction) error {
	it, err := attributevalue.MarshalMap(tx)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.transactions[tx.TransactionId]; exists {
		return fmt.Errorf("transaction with ID %s: %w", tx.TransactionId, storage.ErrTransactionExists)
	}
	s.transactions[tx.TransactionId] = it
	return nil
}

func (s *Store) UpdateTransaction(_ context.Context, txID string, update *storage.Update) error {
	update.Stamp(s.now())

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.transactions[txID]
	if !ok {
		return fmt.Errorf("transaction with ID %s: %w", txID, storage.ErrTransactionNotFound)
	}
	if expected, ok := update.ExpectedVersion(); ok {
		version, err := number(current[storage.AttrVersion])
		if err != nil {
			return err
		}
		if !version.Equal(decimal.NewFromInt(expected)) {
			return fmt.Errorf("transaction with ID %s: %w", txID, storage.ErrVersionConflict)
		}
	}

	next, err := apply(current, update)
	if err != nil {
		return fmt.Errorf("failed to update transaction %s: %w", txID, err)
	}
	s.transactions[txID] = next
	return nil
}

func (s *Store) PutCorrelation(_ context.Context, c *models.Correlation) error {
	it, err := attributevalue.MarshalMap(c)
	if err != nil {
		return fmt.Errorf("failed to marshal correlation: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.correlations[c.CorrelationId] = it
	return nil
}

func (s *Store) GetCorrelation(_ context.Context, correlationID string) (*models.Correlation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it, ok := s.correlations[correlationID]
	if !ok {
		return nil, fmt.Errorf("correlation with ID %s: %w", correlationID, storage.ErrCorrelationNotFound)
	}
	var c models.Correlation
	if err := attributevalue.UnmarshalMap(it, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal correlation: %w", err)
	}
	return &c, nil
}

func (s *Store) DeleteCorrelation(_ context.Context, correlationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.correlations, correlationID)
	return nil
}

// filter returns matching transactions ordered by creation time.
func (s *Store) filter(match func(tx *models.Transaction) bool) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Transaction
	for _, it := range s.transactions {
		tx, err := decodeTransaction(it)
		if err != nil {
			return nil, err
		}
		if match(tx) {
			out = append(out, *tx)
		}
	}
	slices.SortFunc(out, func(a, b models.Transaction) int {
		return cmp.Or(a.CreatedOn.Compare(b.CreatedOn), cmp.Compare(a.TransactionId, b.TransactionId))
	})
	return out, nil
}

func decodeTransaction(it item) (*models.Transaction, error) {
	var tx models.Transaction
	if err := attributevalue.UnmarshalMap(it, &tx); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transaction: %w", err)
	}
	return &tx, nil
}
