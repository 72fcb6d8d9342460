package ledger

import (
	"context"
	"errors"
	"testing"

	"kittycore/pkg/domain"
)

func TestTransferKeepAlive(t *testing.T) {
	ctx := context.Background()
	l := New(10)
	if err := l.Deposit("bob", 110); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := l.Deposit("alice", 10); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	if err := l.Transfer(ctx, "bob", "alice", 100, domain.KeepAlive); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if l.Balance("bob") != 10 || l.Balance("alice") != 110 {
		t.Fatalf("unexpected balances bob=%d alice=%d", l.Balance("bob"), l.Balance("alice"))
	}

	err := l.Transfer(ctx, "bob", "alice", 1, domain.KeepAlive)
	if !errors.Is(err, ErrKeepAlive) {
		t.Fatalf("expected ErrKeepAlive, got %v", err)
	}
	if l.Balance("bob") != 10 || l.Balance("alice") != 110 {
		t.Fatalf("failed transfer must not move funds")
	}
}

func TestTransferAllowDeathReapsDust(t *testing.T) {
	ctx := context.Background()
	l := New(10)
	_ = l.Deposit("carol", 25)
	_ = l.Deposit("dave", 10)
	if err := l.Transfer(ctx, "carol", "dave", 20, domain.AllowDeath); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if l.Balance("carol") != 0 {
		t.Fatalf("expected carol to be reaped, got %d", l.Balance("carol"))
	}
	if l.TotalIssuance() != 30 {
		t.Fatalf("expected dust to leave issuance, got %d", l.TotalIssuance())
	}
	if accounts := l.Accounts(); len(accounts) != 1 || accounts[0] != "dave" {
		t.Fatalf("unexpected accounts %v", accounts)
	}
}

func TestTransferRejections(t *testing.T) {
	ctx := context.Background()
	l := New(10)
	_ = l.Deposit("erin", 50)

	cases := []struct {
		name   string
		from   domain.AccountID
		to     domain.AccountID
		amount domain.Balance
		want   error
	}{
		{"insufficient", "erin", "frank", 60, ErrInsufficientBalance},
		{"new account dust", "erin", "frank", 5, ErrBelowExistential},
		{"same account", "erin", "erin", 5, ErrSameAccount},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := l.Transfer(ctx, tc.from, tc.to, tc.amount, domain.AllowDeath); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if l.Balance("erin") != 50 {
				t.Fatalf("rejected transfer moved funds")
			}
		})
	}
	if err := l.Transfer(ctx, "erin", "frank", 0, domain.KeepAlive); err != nil {
		t.Fatalf("zero transfer should be a no-op, got %v", err)
	}
}

func TestDepositValidation(t *testing.T) {
	l := New(10)
	if err := l.Deposit("gina", 5); !errors.Is(err, ErrBelowExistential) {
		t.Fatalf("expected ErrBelowExistential, got %v", err)
	}
	if err := l.Deposit("gina", 10); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := l.Deposit("gina", 1); err != nil {
		t.Fatalf("top-up below deposit on live account should succeed: %v", err)
	}
	if err := l.Deposit("gina", ^domain.Balance(0)); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
	if l.ExistentialDeposit() != 10 {
		t.Fatalf("unexpected existential deposit")
	}
}
