package memory

import (
	"context"
	"sync"
	"time"

	"github.com/ledgerware/ledger-service/internal/app/domain/ledger"
	"github.com/ledgerware/ledger-service/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use; the RWMutex guards the maps themselves, not the
// read-modify-write sequences of callers.
type Store struct {
	mu       sync.RWMutex
	nextTxID int64
	accounts map[int64]ledger.Account
	history  map[int64][]ledger.Transaction
}

var _ storage.AccountStore = (*Store)(nil)
var _ storage.HistoryStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextTxID: 1,
		accounts: make(map[int64]ledger.Account),
		history:  make(map[int64][]ledger.Transaction),
	}
}

func (s *Store) nextTxIDLocked() int64 {
	id := s.nextTxID
	s.nextTxID++
	return id
}

// GetAccount returns the stored account, or a zero-balance account for ids
// never written. Accounts are never provisioned explicitly.
func (s *Store) GetAccount(_ context.Context, id int64) (ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if acct, ok := s.accounts[id]; ok {
		return acct, nil
	}
	return ledger.Account{ID: id, Balance: 0}, nil
}

// PutAccount stores the account, stamping UpdatedAt if the caller left it zero.
func (s *Store) PutAccount(_ context.Context, acct ledger.Account) (ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if acct.UpdatedAt.IsZero() {
		acct.UpdatedAt = time.Now().UTC()
	}
	s.accounts[acct.ID] = acct
	return acct, nil
}

// AppendTransaction assigns the next monotonic id and appends the record.
func (s *Store) AppendTransaction(_ context.Context, tx ledger.Transaction) (ledger.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx.ID = s.nextTxIDLocked()
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	s.history[tx.AccountID] = append(s.history[tx.AccountID], tx)
	return tx, nil
}

// ListTransactions returns a copy of the account's history in append order.
func (s *Store) ListTransactions(_ context.Context, accountID int64) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]ledger.Transaction(nil), s.history[accountID]...), nil
}
