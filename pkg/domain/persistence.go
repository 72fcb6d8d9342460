package domain

import "context"

// Transaction exposes the registry mutations a persistence implementation must
// support within an atomic scope. Nothing written through a Transaction is
// visible outside it until the enclosing RunInTransaction commits.
type Transaction interface {
	Snapshot() TransactionView
	NextKittyID() (KittyID, error)
	FindKitty(id KittyID) (Kitty, bool)
	OwnerOf(id KittyID) (AccountID, bool)
	FindPrice(id KittyID) (Balance, bool)
	// RegisterKitty inserts the kitty, appends it to owner's enumeration and
	// records ownership in one step.
	RegisterKitty(owner AccountID, kitty Kitty) (Kitty, error)
	// ReassignKitty swap-removes id from from's enumeration, appends it to
	// to's enumeration and updates the ownership record.
	ReassignKitty(from, to AccountID, id KittyID) error
	SetPrice(id KittyID, price Balance) error
	// Emit queues an event that is published only if the transaction commits.
	Emit(Event)
	// BeforeCommit registers a hook that runs after rules pass and before the
	// new state is swapped in. A hook error aborts the transaction.
	BeforeCommit(func(context.Context) error)
}

// TransactionView provides read-only access to registry state for rules and queries.
type TransactionView interface {
	KittiesCount() KittyID
	ListKitties() []Kitty
	FindKitty(id KittyID) (Kitty, bool)
	OwnerOf(id KittyID) (AccountID, bool)
	FindPrice(id KittyID) (Balance, bool)
	ListPrices() map[KittyID]Balance
	ListOwners() []AccountID
	OwnedKitties(owner AccountID) []KittyID
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetKitty(id KittyID) (Kitty, bool)
	OwnerOf(id KittyID) (AccountID, bool)
	GetPrice(id KittyID) (Balance, bool)
	OwnedKitties(owner AccountID) []KittyID
	OwnedCount(owner AccountID) int
	OwnedKittyAt(owner AccountID, index int) (KittyID, bool)
	KittiesCount() KittyID
}
