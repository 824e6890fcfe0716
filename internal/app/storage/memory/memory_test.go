package memory

import (
	"context"
	"testing"
	"time"

	"github.com/ledgerware/ledger-service/internal/app/domain/ledger"
)

func TestStore_AccountRoundTrip(t *testing.T) {
	store := New()
	ctx := context.Background()

	acct, err := store.GetAccount(ctx, 7)
	if err != nil {
		t.Fatalf("get unseen account: %v", err)
	}
	if acct.ID != 7 || acct.Balance != 0 {
		t.Fatalf("unseen account should be zero-balance: %+v", acct)
	}

	acct.Balance = 250
	stored, err := store.PutAccount(ctx, acct)
	if err != nil {
		t.Fatalf("put account: %v", err)
	}
	if stored.UpdatedAt.IsZero() {
		t.Fatal("put did not stamp UpdatedAt")
	}

	got, err := store.GetAccount(ctx, 7)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if got.Balance != 250 {
		t.Fatalf("balance not persisted: %d", got.Balance)
	}
}

func TestStore_TransactionIDsMonotonic(t *testing.T) {
	store := New()
	ctx := context.Background()

	var last int64
	for i := 0; i < 5; i++ {
		tx, err := store.AppendTransaction(ctx, ledger.Transaction{
			AccountID: 1,
			Amount:    100,
			Kind:      ledger.KindCredit,
			CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		if tx.ID <= last {
			t.Fatalf("ids not monotonic: %d after %d", tx.ID, last)
		}
		last = tx.ID
	}
}

func TestStore_ListTransactionsIsolated(t *testing.T) {
	store := New()
	ctx := context.Background()

	if _, err := store.AppendTransaction(ctx, ledger.Transaction{AccountID: 1, Amount: 100, Kind: ledger.KindCredit}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := store.AppendTransaction(ctx, ledger.Transaction{AccountID: 2, Amount: 200, Kind: ledger.KindCredit}); err != nil {
		t.Fatalf("append: %v", err)
	}

	txs, err := store.ListTransactions(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txs) != 1 || txs[0].AccountID != 1 {
		t.Fatalf("history leaked across accounts: %+v", txs)
	}

	// The returned slice is a copy; mutating it must not affect the store.
	txs[0].Amount = 999
	again, err := store.ListTransactions(ctx, 1)
	if err != nil {
		t.Fatalf("list again: %v", err)
	}
	if again[0].Amount != 100 {
		t.Fatalf("caller mutation reached the store: %d", again[0].Amount)
	}
}
