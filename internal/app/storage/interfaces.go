// Package storage declares the persistence interfaces the ledger engine
// depends on. Implementations provide their own internal consistency but no
// per-account serialization: ordering of read-modify-write sequences is
// entirely the engine's responsibility.
package storage

import (
	"context"

	"github.com/ledgerware/ledger-service/internal/app/domain/ledger"
)

// AccountStore persists current balances keyed by account id.
type AccountStore interface {
	// GetAccount returns the account for id, implicitly creating a
	// zero-balance view for ids that were never written.
	GetAccount(ctx context.Context, id int64) (ledger.Account, error)

	// PutAccount stores the account, overwriting any previous balance.
	PutAccount(ctx context.Context, acct ledger.Account) (ledger.Account, error)
}

// HistoryStore persists the append-only transaction log per account.
type HistoryStore interface {
	// AppendTransaction assigns the next monotonic transaction id and
	// appends the record to the account's history.
	AppendTransaction(ctx context.Context, tx ledger.Transaction) (ledger.Transaction, error)

	// ListTransactions returns the account's history in append order.
	// The returned slice is a copy the caller may retain.
	ListTransactions(ctx context.Context, accountID int64) ([]ledger.Transaction, error)
}
