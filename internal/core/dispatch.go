package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"kittycore/pkg/domain"
)

// CallKind selects one of the five registry operations.
type CallKind string

// Dispatchable calls.
const (
	CallCreateKitty   CallKind = "create_kitty"
	CallBreedKitty    CallKind = "breed_kitty"
	CallTransferKitty CallKind = "transfer_kitty"
	CallSetKittyPrice CallKind = "set_kitty_price"
	CallPurchaseKitty CallKind = "purchase_kitty"
)

// ErrUnknownCall is returned for a request naming no known operation.
var ErrUnknownCall = errors.New("unknown call")

// Request is an unauthenticated call as submitted to the dispatcher.
type Request struct {
	Origin  domain.Origin `json:"origin" yaml:"origin"`
	Call    CallKind      `json:"call" yaml:"call"`
	KittyID KittyID       `json:"kitty_id,omitempty" yaml:"kitty_id,omitempty"`
	Parent1 KittyID       `json:"parent1,omitempty" yaml:"parent1,omitempty"`
	Parent2 KittyID       `json:"parent2,omitempty" yaml:"parent2,omitempty"`
	To      AccountID     `json:"to,omitempty" yaml:"to,omitempty"`
	Amount  Balance       `json:"amount,omitempty" yaml:"amount,omitempty"`
}

// Receipt describes the outcome of a dispatched request.
type Receipt struct {
	Call    Call
	KittyID KittyID
	Events  []Event
	Err     error
}

// Dispatcher authenticates requests and applies them one at a time, assigning
// each request its position within the current block.
type Dispatcher struct {
	mu    sync.Mutex
	svc   *Service
	auth  domain.Authenticator
	block uint64
	index uint32
}

// NewDispatcher binds a dispatcher to svc. A nil authenticator accepts the
// signer of every origin verbatim.
func NewDispatcher(svc *Service, auth domain.Authenticator) *Dispatcher {
	if auth == nil {
		auth = SignerAuthenticator{}
	}
	return &Dispatcher{svc: svc, auth: auth}
}

// BeginBlock starts a new block and resets the in-block call index.
func (d *Dispatcher) BeginBlock(number uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.block = number
	d.index = 0
}

// Block returns the current block number.
func (d *Dispatcher) Block() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.block
}

// Dispatch authenticates and applies req. A rejected request still consumes
// its index within the block.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Receipt {
	d.mu.Lock()
	defer d.mu.Unlock()

	call := Call{Block: d.block, Index: d.index}
	d.index++

	caller, err := d.auth.Authenticate(ctx, req.Origin)
	if err != nil {
		return Receipt{Call: call, Err: fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)}
	}
	call.Caller = caller

	receipt := Receipt{Call: call, KittyID: req.KittyID}
	var res Result
	switch req.Call {
	case CallCreateKitty:
		receipt.KittyID, res, receipt.Err = d.svc.CreateKitty(ctx, call)
	case CallBreedKitty:
		receipt.KittyID, res, receipt.Err = d.svc.BreedKitty(ctx, call, req.Parent1, req.Parent2)
	case CallTransferKitty:
		res, receipt.Err = d.svc.TransferKitty(ctx, call, req.KittyID, req.To)
	case CallSetKittyPrice:
		res, receipt.Err = d.svc.SetKittyPrice(ctx, call, req.KittyID, req.Amount)
	case CallPurchaseKitty:
		res, receipt.Err = d.svc.PurchaseKitty(ctx, call, req.KittyID, req.Amount)
	default:
		receipt.Err = fmt.Errorf("%w: %q", ErrUnknownCall, req.Call)
	}
	receipt.Events = res.Events
	return receipt
}

// SignerAuthenticator trusts the signer named in the origin. It stands in for
// signature verification performed by the host ledger.
type SignerAuthenticator struct{}

// Authenticate implements domain.Authenticator.
func (SignerAuthenticator) Authenticate(_ context.Context, origin domain.Origin) (AccountID, error) {
	signer := strings.TrimSpace(origin.Signer)
	if signer == "" {
		return "", errors.New("unsigned origin")
	}
	return AccountID(signer), nil
}

// AllowlistAuthenticator accepts only the listed signers.
type AllowlistAuthenticator map[AccountID]struct{}

// NewAllowlistAuthenticator builds an authenticator accepting accounts.
func NewAllowlistAuthenticator(accounts ...AccountID) AllowlistAuthenticator {
	allow := make(AllowlistAuthenticator, len(accounts))
	for _, account := range accounts {
		allow[account] = struct{}{}
	}
	return allow
}

// Authenticate implements domain.Authenticator.
func (a AllowlistAuthenticator) Authenticate(ctx context.Context, origin domain.Origin) (AccountID, error) {
	account, err := SignerAuthenticator{}.Authenticate(ctx, origin)
	if err != nil {
		return "", err
	}
	if _, ok := a[account]; !ok {
		return "", fmt.Errorf("account %s not permitted", account)
	}
	return account, nil
}
