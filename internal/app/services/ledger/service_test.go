package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	domain "github.com/ledgerware/ledger-service/internal/app/domain/ledger"
	"github.com/ledgerware/ledger-service/internal/app/storage/memory"
)

func newTestService(opts ...Option) *Service {
	store := memory.New()
	return New(store, store, nil, opts...)
}

func TestService_CreditDebitLifecycle(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	const accountID = 42

	acct, err := svc.Credit(ctx, accountID, 500)
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if acct.Balance != 500 {
		t.Fatalf("balance after credit: got %d, want 500", acct.Balance)
	}

	acct, err = svc.Debit(ctx, accountID, 300)
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if acct.Balance != 200 {
		t.Fatalf("balance after debit: got %d, want 200", acct.Balance)
	}

	if _, err := svc.Debit(ctx, accountID, 500); !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("overdraft should fail with ErrInsufficientBalance, got %v", err)
	}

	acct, err = svc.Balance(ctx, accountID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if acct.Balance != 200 {
		t.Fatalf("rejected debit mutated balance: %d", acct.Balance)
	}

	txs, err := svc.History(ctx, accountID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("rejected debit should leave no record: %d transactions", len(txs))
	}
	if txs[0].Kind != domain.KindCredit || txs[0].Amount != 500 {
		t.Fatalf("unexpected first record: %+v", txs[0])
	}
	if txs[1].Kind != domain.KindDebit || txs[1].Amount != 300 {
		t.Fatalf("unexpected second record: %+v", txs[1])
	}
}

func TestService_UnseenAccountReadsZero(t *testing.T) {
	svc := newTestService()

	acct, err := svc.Balance(context.Background(), 12345)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if acct.ID != 12345 || acct.Balance != 0 {
		t.Fatalf("unseen account should read zero: %+v", acct)
	}

	txs, err := svc.History(context.Background(), 12345)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(txs) != 0 {
		t.Fatalf("unseen account should have empty history: %d", len(txs))
	}
}

func TestService_ValidationBeforeLock(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	cases := []struct {
		name      string
		op        func() error
		wantClass error
	}{
		{"zero amount", func() error { _, err := svc.Credit(ctx, 1, 0); return err }, domain.ErrInvalidArgument},
		{"negative amount", func() error { _, err := svc.Debit(ctx, 1, -10); return err }, domain.ErrInvalidArgument},
		{"below minimum", func() error { _, err := svc.Credit(ctx, 1, 5); return err }, domain.ErrPolicyViolation},
		{"not unit multiple", func() error { _, err := svc.Credit(ctx, 1, 15); return err }, domain.ErrPolicyViolation},
		{"credit over cap", func() error { _, err := svc.Credit(ctx, 1, 1_000_010); return err }, domain.ErrPolicyViolation},
		{"debit over cap", func() error { _, err := svc.Debit(ctx, 1, 500_010); return err }, domain.ErrPolicyViolation},
		{"account id zero", func() error { _, err := svc.Credit(ctx, 0, 100); return err }, domain.ErrInvalidArgument},
		{"account id negative", func() error { _, err := svc.Credit(ctx, -1, 100); return err }, domain.ErrInvalidArgument},
		{"account id too large", func() error { _, err := svc.Credit(ctx, 1_000_000_000, 100); return err }, domain.ErrInvalidArgument},
	}
	for _, tc := range cases {
		if err := tc.op(); !errors.Is(err, tc.wantClass) {
			t.Fatalf("%s: got %v, want %v", tc.name, err, tc.wantClass)
		}
	}

	// Pre-lock rejections must create neither handles nor history.
	if n := svc.ActiveLocks(); n != 0 {
		t.Fatalf("rejected requests created %d lock handles", n)
	}
	txs, err := svc.History(ctx, 1)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(txs) != 0 {
		t.Fatalf("rejected requests appended %d records", len(txs))
	}
}

func TestService_BalanceCeiling(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	for i := 0; i < 9; i++ {
		if _, err := svc.Credit(ctx, 1, 1_000_000); err != nil {
			t.Fatalf("credit %d: %v", i, err)
		}
	}
	if _, err := svc.Credit(ctx, 1, 1_000_000); err != nil {
		t.Fatalf("credit to exact ceiling: %v", err)
	}
	if _, err := svc.Credit(ctx, 1, 10); !errors.Is(err, domain.ErrPolicyViolation) {
		t.Fatalf("credit past ceiling should fail, got %v", err)
	}

	acct, err := svc.Balance(ctx, 1)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if acct.Balance != 10_000_000 {
		t.Fatalf("rejected credit mutated balance: %d", acct.Balance)
	}
}

func TestService_ConcurrentCredits(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	const goroutines = 50
	const amount = 100

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Credit(ctx, 1, amount); err != nil {
				t.Errorf("credit: %v", err)
			}
		}()
	}
	wg.Wait()

	acct, err := svc.Balance(ctx, 1)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if acct.Balance != goroutines*amount {
		t.Fatalf("lost update: balance %d, want %d", acct.Balance, goroutines*amount)
	}

	txs, err := svc.History(ctx, 1)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(txs) != goroutines {
		t.Fatalf("history has %d records, want %d", len(txs), goroutines)
	}
}

func TestService_ConcurrentOverdraining(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if _, err := svc.Credit(ctx, 1, 500); err != nil {
		t.Fatalf("seed credit: %v", err)
	}

	// 20 drains of 100 against a balance of 500: exactly 5 must commit.
	const attempts = 20
	var succeeded, rejected int64
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Debit(ctx, 1, 100)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, domain.ErrInsufficientBalance):
				rejected++
			default:
				t.Errorf("unexpected debit error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 5 || rejected != attempts-5 {
		t.Fatalf("succeeded=%d rejected=%d, want 5/%d", succeeded, rejected, attempts-5)
	}

	acct, err := svc.Balance(ctx, 1)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if acct.Balance != 0 {
		t.Fatalf("drained balance should be zero, got %d", acct.Balance)
	}

	txs, err := svc.History(ctx, 1)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(txs) != 6 { // seed credit plus five debits
		t.Fatalf("failed debits left records: %d transactions", len(txs))
	}
}

func TestService_AccountIsolation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, id := range []int64{1, 2} {
		id := id
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := svc.Credit(ctx, id, 100); err != nil {
					t.Errorf("credit account %d: %v", id, err)
				}
			}()
		}
	}
	wg.Wait()

	for _, id := range []int64{1, 2} {
		acct, err := svc.Balance(ctx, id)
		if err != nil {
			t.Fatalf("balance %d: %v", id, err)
		}
		if acct.Balance != 1000 {
			t.Fatalf("account %d: balance %d, want 1000", id, acct.Balance)
		}
	}
	if svc.ActiveLocks() != 2 {
		t.Fatalf("expected 2 lock handles, got %d", svc.ActiveLocks())
	}
}

func TestService_LockWaitTimeout(t *testing.T) {
	svc := newTestService(WithLockWaitTimeout(30 * time.Millisecond))
	ctx := context.Background()

	// Hold account 1's handle directly so the debit has to queue.
	handle := svc.Registry().Handle(1)
	if err := handle.Acquire(ctx); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	start := time.Now()
	_, err := svc.Debit(ctx, 1, 100)
	if !errors.Is(err, domain.ErrLockTimeout) {
		t.Fatalf("expected ErrLockTimeout, got %v", err)
	}
	if waited := time.Since(start); waited > time.Second {
		t.Fatalf("timed-out debit blocked for %v", waited)
	}
	handle.Release()

	// No side effects from the aborted attempt.
	txs, err := svc.History(ctx, 1)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(txs) != 0 {
		t.Fatalf("aborted debit left %d records", len(txs))
	}

	// The handle remains usable after its owner releases.
	if _, err := svc.Credit(ctx, 1, 100); err != nil {
		t.Fatalf("credit after release: %v", err)
	}
}

func TestService_SharedTimestamp(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	acct, err := svc.Credit(ctx, 1, 100)
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	txs, err := svc.History(ctx, 1)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("expected one record, got %d", len(txs))
	}
	if !txs[0].CreatedAt.Equal(acct.UpdatedAt) {
		t.Fatalf("record and account carry different timestamps: %v vs %v",
			txs[0].CreatedAt, acct.UpdatedAt)
	}
}
