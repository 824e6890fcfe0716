// Package ledger implements the ledger engine: serialized credit/debit state
// transitions per account, and lock-free balance/history reads.
package ledger

import (
	"context"
	"fmt"
	"time"

	domain "github.com/ledgerware/ledger-service/internal/app/domain/ledger"
	"github.com/ledgerware/ledger-service/internal/app/locks"
	"github.com/ledgerware/ledger-service/internal/app/metrics"
	"github.com/ledgerware/ledger-service/internal/app/policy"
	"github.com/ledgerware/ledger-service/internal/app/storage"
	"github.com/ledgerware/ledger-service/pkg/logger"
)

// Service orchestrates validate → acquire → read-modify-write → append →
// release for each mutation. Only the service, while holding an account's
// handle, mutates that account in either store.
type Service struct {
	accounts storage.AccountStore
	history  storage.HistoryStore
	registry *locks.Registry
	limits   policy.Limits
	log      *logger.Logger

	// waitTimeout bounds the time a caller may queue for an account's
	// handle. Zero waits indefinitely (FIFO ordering still guarantees
	// progress for every waiter).
	waitTimeout time.Duration
}

// Option configures the service.
type Option func(*Service)

// WithLockWaitTimeout bounds lock acquisition. On expiry the operation fails
// with ErrLockTimeout and no side effects.
func WithLockWaitTimeout(d time.Duration) Option {
	return func(s *Service) { s.waitTimeout = d }
}

// WithLimits overrides the default policy table.
func WithLimits(l policy.Limits) Option {
	return func(s *Service) { s.limits = l }
}

// New constructs a ledger service.
func New(accounts storage.AccountStore, history storage.HistoryStore, log *logger.Logger, opts ...Option) *Service {
	if log == nil {
		log = logger.NewDefault("ledger")
	}
	s := &Service{
		accounts: accounts,
		history:  history,
		registry: locks.NewRegistry(),
		limits:   policy.DefaultLimits(),
		log:      log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry exposes the lock registry for monitoring.
func (s *Service) Registry() *locks.Registry {
	return s.registry
}

// Credit adds amount to the account's balance and appends a credit record.
func (s *Service) Credit(ctx context.Context, accountID, amount int64) (domain.Account, error) {
	if err := s.limits.ValidateAccountID(accountID); err != nil {
		return domain.Account{}, err
	}
	if err := s.limits.ValidateCreditAmount(amount); err != nil {
		return domain.Account{}, err
	}

	return s.withAccountLock(ctx, accountID, func(ctx context.Context) (domain.Account, error) {
		acct, err := s.accounts.GetAccount(ctx, accountID)
		if err != nil {
			return domain.Account{}, err
		}
		if err := s.limits.CheckBalanceCeiling(acct.Balance, amount); err != nil {
			return domain.Account{}, err
		}

		now := time.Now().UTC()
		acct.Balance += amount
		acct.UpdatedAt = now

		updated, err := s.accounts.PutAccount(ctx, acct)
		if err != nil {
			return domain.Account{}, err
		}
		if _, err := s.history.AppendTransaction(ctx, domain.Transaction{
			AccountID: accountID,
			Amount:    amount,
			Kind:      domain.KindCredit,
			CreatedAt: now,
		}); err != nil {
			return domain.Account{}, err
		}

		s.log.WithField("account_id", accountID).
			WithField("amount", amount).
			WithField("balance", updated.Balance).
			Info("credit committed")
		metrics.RecordLedgerOperation("credit", "ok")
		return updated, nil
	}, "credit")
}

// Debit subtracts amount from the account's balance and appends a debit
// record. Debits exceeding the current balance are rejected before any
// mutation.
func (s *Service) Debit(ctx context.Context, accountID, amount int64) (domain.Account, error) {
	if err := s.limits.ValidateAccountID(accountID); err != nil {
		return domain.Account{}, err
	}
	if err := s.limits.ValidateDebitAmount(amount); err != nil {
		return domain.Account{}, err
	}

	return s.withAccountLock(ctx, accountID, func(ctx context.Context) (domain.Account, error) {
		acct, err := s.accounts.GetAccount(ctx, accountID)
		if err != nil {
			return domain.Account{}, err
		}
		if amount > acct.Balance {
			return domain.Account{}, insufficientBalance(acct.Balance, amount)
		}

		now := time.Now().UTC()
		acct.Balance -= amount
		acct.UpdatedAt = now

		updated, err := s.accounts.PutAccount(ctx, acct)
		if err != nil {
			return domain.Account{}, err
		}
		if _, err := s.history.AppendTransaction(ctx, domain.Transaction{
			AccountID: accountID,
			Amount:    amount,
			Kind:      domain.KindDebit,
			CreatedAt: now,
		}); err != nil {
			return domain.Account{}, err
		}

		s.log.WithField("account_id", accountID).
			WithField("amount", amount).
			WithField("balance", updated.Balance).
			Info("debit committed")
		metrics.RecordLedgerOperation("debit", "ok")
		return updated, nil
	}, "debit")
}

// Balance reads the account's current state without taking the per-account
// lock. Unseen ids yield a zero-balance account.
func (s *Service) Balance(ctx context.Context, accountID int64) (domain.Account, error) {
	if err := s.limits.ValidateAccountID(accountID); err != nil {
		return domain.Account{}, err
	}
	return s.accounts.GetAccount(ctx, accountID)
}

// History reads the account's transaction log without taking the per-account
// lock. A write committing concurrently may appear in Balance before History
// or vice versa; the two reads are individually consistent only.
func (s *Service) History(ctx context.Context, accountID int64) ([]domain.Transaction, error) {
	if err := s.limits.ValidateAccountID(accountID); err != nil {
		return nil, err
	}
	return s.history.ListTransactions(ctx, accountID)
}

// ActiveLocks reports the number of per-account handles created so far.
func (s *Service) ActiveLocks() int {
	return s.registry.Len()
}

// QueueLength reports the current waiter count for an account's handle.
func (s *Service) QueueLength(accountID int64) int {
	return s.registry.QueueLength(accountID)
}

// withAccountLock runs op while holding the account's handle, releasing it on
// every exit path. The wait is bounded by waitTimeout when configured.
func (s *Service) withAccountLock(ctx context.Context, accountID int64, op func(context.Context) (domain.Account, error), kind string) (domain.Account, error) {
	handle := s.registry.Handle(accountID)

	acquireCtx := ctx
	if s.waitTimeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, s.waitTimeout)
		defer cancel()
	}

	waitStart := time.Now()
	if err := handle.Acquire(acquireCtx); err != nil {
		s.log.WithField("account_id", accountID).
			WithField("waited", time.Since(waitStart)).
			Warnf("%s aborted waiting for account lock", kind)
		metrics.RecordLedgerOperation(kind, "lock_timeout")
		return domain.Account{}, err
	}
	defer handle.Release()
	metrics.ObserveLockWait(time.Since(waitStart))

	acct, err := op(ctx)
	if err != nil {
		metrics.RecordLedgerOperation(kind, "rejected")
		return domain.Account{}, err
	}
	return acct, nil
}

func insufficientBalance(balance, amount int64) error {
	return fmt.Errorf("%w: balance %d, debit %d", domain.ErrInsufficientBalance, balance, amount)
}
