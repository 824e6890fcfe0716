// Package policy implements the stateless range checks that screen ledger
// requests before the engine takes any lock.
package policy

import (
	"fmt"

	"github.com/ledgerware/ledger-service/internal/app/domain/ledger"
)

// Default policy limits.
const (
	DefaultMinAmount       int64 = 10
	DefaultAmountUnit      int64 = 10
	DefaultMaxCreditAmount int64 = 1_000_000
	DefaultMaxDebitAmount  int64 = 500_000
	DefaultMaxBalance      int64 = 10_000_000
	DefaultMinAccountID    int64 = 1
	DefaultMaxAccountID    int64 = 999_999_999
)

// Limits configures the validator. All checks are pure functions of the
// request; nothing here reads or mutates ledger state.
type Limits struct {
	MinAmount       int64 `yaml:"min_amount"`
	AmountUnit      int64 `yaml:"amount_unit"`
	MaxCreditAmount int64 `yaml:"max_credit_amount"`
	MaxDebitAmount  int64 `yaml:"max_debit_amount"`
	MaxBalance      int64 `yaml:"max_balance"`
	MinAccountID    int64 `yaml:"min_account_id"`
	MaxAccountID    int64 `yaml:"max_account_id"`
}

// DefaultLimits returns the standard policy table.
func DefaultLimits() Limits {
	return Limits{
		MinAmount:       DefaultMinAmount,
		AmountUnit:      DefaultAmountUnit,
		MaxCreditAmount: DefaultMaxCreditAmount,
		MaxDebitAmount:  DefaultMaxDebitAmount,
		MaxBalance:      DefaultMaxBalance,
		MinAccountID:    DefaultMinAccountID,
		MaxAccountID:    DefaultMaxAccountID,
	}
}

// ValidateAccountID rejects ids outside the configured range.
func (l Limits) ValidateAccountID(id int64) error {
	if id < l.MinAccountID || id > l.MaxAccountID {
		return fmt.Errorf("%w: account id %d out of range [%d, %d]",
			ledger.ErrInvalidArgument, id, l.MinAccountID, l.MaxAccountID)
	}
	return nil
}

// ValidateCreditAmount screens a credit amount against the policy table.
func (l Limits) ValidateCreditAmount(amount int64) error {
	if err := l.validateAmount(amount, l.MaxCreditAmount, "credit"); err != nil {
		return err
	}
	return nil
}

// ValidateDebitAmount screens a debit amount against the policy table.
func (l Limits) ValidateDebitAmount(amount int64) error {
	if err := l.validateAmount(amount, l.MaxDebitAmount, "debit"); err != nil {
		return err
	}
	return nil
}

func (l Limits) validateAmount(amount, max int64, op string) error {
	if amount <= 0 {
		return fmt.Errorf("%w: %s amount must be positive, got %d", ledger.ErrInvalidArgument, op, amount)
	}
	if amount < l.MinAmount {
		return fmt.Errorf("%w: minimum %s amount is %d", ledger.ErrPolicyViolation, op, l.MinAmount)
	}
	if amount > max {
		return fmt.Errorf("%w: maximum %s amount is %d", ledger.ErrPolicyViolation, op, max)
	}
	if l.AmountUnit > 1 && amount%l.AmountUnit != 0 {
		return fmt.Errorf("%w: %s amount must be a multiple of %d", ledger.ErrPolicyViolation, op, l.AmountUnit)
	}
	return nil
}

// CheckBalanceCeiling rejects a credit whose resulting balance would exceed
// the configured maximum. The engine calls this inside the critical section,
// after reading the current balance and before mutating anything.
func (l Limits) CheckBalanceCeiling(balance, amount int64) error {
	if balance+amount > l.MaxBalance {
		return fmt.Errorf("%w: balance ceiling is %d (current %d, credit %d)",
			ledger.ErrPolicyViolation, l.MaxBalance, balance, amount)
	}
	return nil
}
