// Package memory provides an in-memory implementation of the registry
// persistence store used for tests, ephemeral environments, and as the
// transactional layer underneath the durable backends.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"kittycore/pkg/domain"
)

// Compile-time contract assertions ensuring memory.Store adheres to the domain persistence interfaces.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Kitty aliases domain.Kitty.
	Kitty = domain.Kitty
	// KittyID aliases domain.KittyID.
	KittyID = domain.KittyID
	// AccountID aliases domain.AccountID.
	AccountID = domain.AccountID
	// Balance aliases domain.Balance.
	Balance = domain.Balance
	// Genome aliases domain.Genome.
	Genome = domain.Genome
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

// memoryState holds the four logical maps and the id counter. The counter
// doubles as the total number of kitties ever registered.
type memoryState struct {
	nextID  KittyID
	kitties map[KittyID]Genome
	owners  map[KittyID]AccountID
	owned   map[AccountID]*domain.OwnerIndex
	prices  map[KittyID]Balance
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	NextID  KittyID                 `json:"next_id"`
	Kitties map[KittyID]Genome      `json:"kitties"`
	Owners  map[KittyID]AccountID   `json:"owners"`
	Owned   map[AccountID][]KittyID `json:"owned"`
	Prices  map[KittyID]Balance     `json:"prices"`
}

func newMemoryState() memoryState {
	return memoryState{
		kitties: make(map[KittyID]Genome),
		owners:  make(map[KittyID]AccountID),
		owned:   make(map[AccountID]*domain.OwnerIndex),
		prices:  make(map[KittyID]Balance),
	}
}

func (s memoryState) clone() memoryState {
	cloned := memoryState{
		nextID:  s.nextID,
		kitties: make(map[KittyID]Genome, len(s.kitties)),
		owners:  make(map[KittyID]AccountID, len(s.owners)),
		owned:   make(map[AccountID]*domain.OwnerIndex, len(s.owned)),
		prices:  make(map[KittyID]Balance, len(s.prices)),
	}
	for k, v := range s.kitties {
		cloned.kitties[k] = v
	}
	for k, v := range s.owners {
		cloned.owners[k] = v
	}
	for k, v := range s.owned {
		cloned.owned[k] = v.Clone()
	}
	for k, v := range s.prices {
		cloned.prices[k] = v
	}
	return cloned
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{
		NextID:  state.nextID,
		Kitties: make(map[KittyID]Genome, len(state.kitties)),
		Owners:  make(map[KittyID]AccountID, len(state.owners)),
		Owned:   make(map[AccountID][]KittyID, len(state.owned)),
		Prices:  make(map[KittyID]Balance, len(state.prices)),
	}
	for k, v := range state.kitties {
		s.Kitties[k] = v
	}
	for k, v := range state.owners {
		s.Owners[k] = v
	}
	for k, v := range state.owned {
		s.Owned[k] = v.IDs()
	}
	for k, v := range state.prices {
		s.Prices[k] = v
	}
	return s
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	state.nextID = s.NextID
	for k, v := range s.Kitties {
		state.kitties[k] = v
	}
	for k, v := range s.Owners {
		state.owners[k] = v
	}
	for k, v := range s.Owned {
		if len(v) == 0 {
			continue
		}
		state.owned[k] = domain.NewOwnerIndex(v...)
	}
	for k, v := range s.Prices {
		state.prices[k] = v
	}
	return state
}

// normalizeSnapshot fills nil maps and lifts the id counter above every stored
// id so snapshots written by older tooling never cause id reuse.
func normalizeSnapshot(snapshot Snapshot) Snapshot {
	if snapshot.Kitties == nil {
		snapshot.Kitties = map[KittyID]Genome{}
	}
	if snapshot.Owners == nil {
		snapshot.Owners = map[KittyID]AccountID{}
	}
	if snapshot.Owned == nil {
		snapshot.Owned = map[AccountID][]KittyID{}
	}
	if snapshot.Prices == nil {
		snapshot.Prices = map[KittyID]Balance{}
	}
	for id := range snapshot.Kitties {
		if id >= snapshot.NextID && id < domain.MaxKittyID {
			snapshot.NextID = id + 1
		}
	}
	return snapshot
}

// Store provides an in-memory transactional store for the registry.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
	}
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot after a full
// rule evaluation over it. A snapshot with blocking violations is refused and
// the current state is kept.
func (s *Store) ImportState(ctx context.Context, snapshot Snapshot) error {
	state := memoryStateFromSnapshot(normalizeSnapshot(snapshot))
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine != nil {
		res, err := s.engine.Evaluate(ctx, newTransactionView(&state), nil)
		if err != nil {
			return err
		}
		if res.HasBlocking() {
			return domain.RuleViolationError{Result: res}
		}
	}
	s.state = state
	return nil
}

// ImportSnapshot replaces the store state; it matches the durable backends'
// signature so archive restores work against any store.
func (s *Store) ImportSnapshot(ctx context.Context, snapshot Snapshot) error {
	return s.ImportState(ctx, snapshot)
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

type transaction struct {
	state   memoryState
	changes []Change
	events  []domain.Event
	hooks   []func(context.Context) error
}

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

func (v transactionView) KittiesCount() KittyID { return v.state.nextID }

func (v transactionView) ListKitties() []Kitty {
	out := make([]Kitty, 0, len(v.state.kitties))
	for id, genome := range v.state.kitties {
		out = append(out, Kitty{ID: id, Genome: genome})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (v transactionView) FindKitty(id KittyID) (Kitty, bool) {
	return findKitty(v.state, id)
}

func (v transactionView) OwnerOf(id KittyID) (AccountID, bool) {
	owner, ok := v.state.owners[id]
	return owner, ok
}

func (v transactionView) FindPrice(id KittyID) (Balance, bool) {
	price, ok := v.state.prices[id]
	return price, ok
}

func (v transactionView) ListPrices() map[KittyID]Balance {
	out := make(map[KittyID]Balance, len(v.state.prices))
	for id, price := range v.state.prices {
		out[id] = price
	}
	return out
}

func (v transactionView) ListOwners() []AccountID {
	out := make([]AccountID, 0, len(v.state.owned))
	for owner := range v.state.owned {
		out = append(out, owner)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (v transactionView) OwnedKitties(owner AccountID) []KittyID {
	return v.state.owned[owner].IDs()
}

func findKitty(state *memoryState, id KittyID) (Kitty, bool) {
	genome, ok := state.kitties[id]
	if !ok {
		return Kitty{}, false
	}
	return Kitty{ID: id, Genome: genome}, true
}

// RunInTransaction executes fn within a transactional copy of the store state.
// Rules run against the mutated copy, then pre-commit hooks run; only when all
// of them succeed is the copy swapped in and its events returned.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{state: s.state.clone()}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	for _, hook := range tx.hooks {
		if err := hook(ctx); err != nil {
			return Result{}, err
		}
	}

	s.state = tx.state
	result.Events = tx.events
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	view := newTransactionView(&snapshot)
	return fn(view)
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

// NextKittyID returns the id the next registration must use.
func (tx *transaction) NextKittyID() (KittyID, error) {
	if tx.state.nextID == domain.MaxKittyID {
		return 0, domain.ErrIDSpaceExhausted
	}
	return tx.state.nextID, nil
}

func (tx *transaction) FindKitty(id KittyID) (Kitty, bool) {
	return findKitty(&tx.state, id)
}

func (tx *transaction) OwnerOf(id KittyID) (AccountID, bool) {
	owner, ok := tx.state.owners[id]
	return owner, ok
}

func (tx *transaction) FindPrice(id KittyID) (Balance, bool) {
	price, ok := tx.state.prices[id]
	return price, ok
}

func (tx *transaction) RegisterKitty(owner AccountID, kitty Kitty) (Kitty, error) {
	next, err := tx.NextKittyID()
	if err != nil {
		return Kitty{}, err
	}
	if kitty.ID != next {
		return Kitty{}, fmt.Errorf("kitty id %d out of sequence, expected %d", kitty.ID, next)
	}
	if _, exists := tx.state.kitties[kitty.ID]; exists {
		return Kitty{}, fmt.Errorf("kitty %d already registered", kitty.ID)
	}
	if owner == "" {
		return Kitty{}, fmt.Errorf("kitty %d requires an owner", kitty.ID)
	}

	tx.state.kitties[kitty.ID] = kitty.Genome
	idx, ok := tx.state.owned[owner]
	if !ok {
		idx = domain.NewOwnerIndex()
		tx.state.owned[owner] = idx
	}
	idx.Upsert(kitty.ID)
	tx.state.owners[kitty.ID] = owner
	tx.state.nextID = kitty.ID + 1

	tx.recordChange(Change{Entity: domain.EntityKitty, Action: domain.ActionCreate, KittyID: kitty.ID, After: kitty})
	tx.recordChange(Change{Entity: domain.EntityOwnership, Action: domain.ActionCreate, KittyID: kitty.ID, After: owner})
	tx.recordChange(Change{Entity: domain.EntityOwnerIndex, Action: domain.ActionUpdate, KittyID: kitty.ID, After: owner})
	return kitty, nil
}

func (tx *transaction) ReassignKitty(from, to AccountID, id KittyID) error {
	current, ok := tx.state.owners[id]
	if !ok {
		return domain.ErrNotFound
	}
	if current != from {
		return domain.ErrNotOwner
	}
	if to == "" {
		return fmt.Errorf("kitty %d requires a destination owner", id)
	}

	src := tx.state.owned[from]
	if !src.Remove(id) {
		return fmt.Errorf("kitty %d missing from %s enumeration", id, from)
	}
	if src.Len() == 0 {
		delete(tx.state.owned, from)
	}
	dst, ok := tx.state.owned[to]
	if !ok {
		dst = domain.NewOwnerIndex()
		tx.state.owned[to] = dst
	}
	dst.Upsert(id)
	tx.state.owners[id] = to

	tx.recordChange(Change{Entity: domain.EntityOwnerIndex, Action: domain.ActionDelete, KittyID: id, Before: from})
	tx.recordChange(Change{Entity: domain.EntityOwnerIndex, Action: domain.ActionUpdate, KittyID: id, After: to})
	tx.recordChange(Change{Entity: domain.EntityOwnership, Action: domain.ActionUpdate, KittyID: id, Before: from, After: to})
	return nil
}

func (tx *transaction) SetPrice(id KittyID, price Balance) error {
	if _, ok := tx.state.kitties[id]; !ok {
		return domain.ErrNotFound
	}
	before, existed := tx.state.prices[id]
	tx.state.prices[id] = price
	change := Change{Entity: domain.EntityListing, Action: domain.ActionCreate, KittyID: id, After: price}
	if existed {
		change.Action = domain.ActionUpdate
		change.Before = before
	}
	tx.recordChange(change)
	return nil
}

func (tx *transaction) Emit(event domain.Event) {
	tx.events = append(tx.events, event)
}

func (tx *transaction) BeforeCommit(hook func(context.Context) error) {
	if hook != nil {
		tx.hooks = append(tx.hooks, hook)
	}
}

// Read helpers ---------------------------------------------------------------

// GetKitty retrieves a kitty by id from committed state.
func (s *Store) GetKitty(id KittyID) (Kitty, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findKitty(&s.state, id)
}

// OwnerOf returns the committed owner of a kitty.
func (s *Store) OwnerOf(id KittyID) (AccountID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	owner, ok := s.state.owners[id]
	return owner, ok
}

// GetPrice returns the committed listing price of a kitty.
func (s *Store) GetPrice(id KittyID) (Balance, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	price, ok := s.state.prices[id]
	return price, ok
}

// OwnedKitties returns the owner's enumeration in positional order.
func (s *Store) OwnedKitties(owner AccountID) []KittyID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.owned[owner].IDs()
}

// OwnedCount returns the length of the owner's enumeration.
func (s *Store) OwnedCount(owner AccountID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.owned[owner].Len()
}

// OwnedKittyAt returns the kitty at position index of the owner's enumeration.
func (s *Store) OwnedKittyAt(owner AccountID, index int) (KittyID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.owned[owner].At(index)
}

// KittiesCount returns the number of kitties ever registered.
func (s *Store) KittiesCount() KittyID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.nextID
}
