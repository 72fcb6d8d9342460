// Package ledger provides an in-memory currency ledger with an existential
// deposit: accounts whose balance would fall below it are either kept alive
// (the transfer is refused) or reaped, depending on the caller's requirement.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"kittycore/pkg/domain"
)

var _ domain.CurrencyLedger = (*Ledger)(nil)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrKeepAlive           = errors.New("transfer would reap payer")
	ErrBelowExistential    = errors.New("amount below existential deposit")
	ErrOverflow            = errors.New("balance overflow")
	ErrSameAccount         = errors.New("payer and payee are the same account")
)

// Ledger tracks balances per account. Transfers apply in full or not at all.
type Ledger struct {
	mu                 sync.Mutex
	existentialDeposit domain.Balance
	balances           map[domain.AccountID]domain.Balance
	issuance           domain.Balance
}

// New constructs an empty ledger.
func New(existentialDeposit domain.Balance) *Ledger {
	return &Ledger{
		existentialDeposit: existentialDeposit,
		balances:           make(map[domain.AccountID]domain.Balance),
	}
}

// ExistentialDeposit returns the minimum balance of a live account.
func (l *Ledger) ExistentialDeposit() domain.Balance { return l.existentialDeposit }

// Deposit mints amount into account, creating it when needed.
func (l *Ledger) Deposit(account domain.AccountID, amount domain.Balance) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	current := l.balances[account]
	if current == 0 && amount < l.existentialDeposit {
		return fmt.Errorf("deposit %d to %s: %w", amount, account, ErrBelowExistential)
	}
	if amount > math.MaxUint64-current || amount > math.MaxUint64-l.issuance {
		return fmt.Errorf("deposit %d to %s: %w", amount, account, ErrOverflow)
	}
	if amount == 0 {
		return nil
	}
	l.balances[account] = current + amount
	l.issuance += amount
	return nil
}

// Balance returns the free balance of account.
func (l *Ledger) Balance(account domain.AccountID) domain.Balance {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account]
}

// TotalIssuance returns the sum of all live balances.
func (l *Ledger) TotalIssuance() domain.Balance {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.issuance
}

// Accounts lists live accounts in lexical order.
func (l *Ledger) Accounts() []domain.AccountID {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.AccountID, 0, len(l.balances))
	for account := range l.balances {
		out = append(out, account)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Transfer moves amount from one account to another. With KeepAlive the payer
// must retain at least the existential deposit; with AllowDeath a payer left
// below it is reaped and the dust leaves circulation.
func (l *Ledger) Transfer(_ context.Context, from, to domain.AccountID, amount domain.Balance, req domain.ExistenceRequirement) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if amount == 0 {
		return nil
	}
	if from == to {
		return ErrSameAccount
	}
	payer := l.balances[from]
	if payer < amount {
		return fmt.Errorf("%s has %d, needs %d: %w", from, payer, amount, ErrInsufficientBalance)
	}
	remaining := payer - amount
	reap := remaining < l.existentialDeposit
	if reap && req == domain.KeepAlive {
		return fmt.Errorf("%s would keep %d of required %d: %w", from, remaining, l.existentialDeposit, ErrKeepAlive)
	}
	payee := l.balances[to]
	if payee == 0 && amount < l.existentialDeposit {
		return fmt.Errorf("credit %d to new account %s: %w", amount, to, ErrBelowExistential)
	}
	if amount > math.MaxUint64-payee {
		return fmt.Errorf("credit %d to %s: %w", amount, to, ErrOverflow)
	}

	l.balances[to] = payee + amount
	if reap {
		delete(l.balances, from)
		l.issuance -= remaining
	} else {
		l.balances[from] = remaining
	}
	return nil
}
