// Package ledger defines the domain model for account balances and their
// transaction history.
package ledger

import "time"

// Kind classifies a committed balance mutation.
type Kind string

const (
	KindCredit Kind = "credit"
	KindDebit  Kind = "debit"
)

// Account holds the current balance for an account id. Accounts are created
// implicitly at balance zero the first time an id is referenced.
type Account struct {
	ID        int64     `json:"id"`
	Balance   int64     `json:"balance"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Transaction is an immutable history record of one committed mutation.
// Per account, transaction ids increase monotonically and list order equals
// the order in which the operations committed.
type Transaction struct {
	ID        int64     `json:"id"`
	AccountID int64     `json:"account_id"`
	Amount    int64     `json:"amount"`
	Kind      Kind      `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}
