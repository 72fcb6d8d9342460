package memory

import (
	"context"
	"errors"
	"slices"
	"testing"

	"kittycore/pkg/domain"
)

func registerN(t *testing.T, store *Store, owner AccountID, n int) []KittyID {
	t.Helper()
	var ids []KittyID
	for i := 0; i < n; i++ {
		_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
			id, err := tx.NextKittyID()
			if err != nil {
				return err
			}
			_, err = tx.RegisterKitty(owner, Kitty{ID: id, Genome: Genome{byte(id)}})
			ids = append(ids, id)
			return err
		})
		if err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	return ids
}

func TestStoreRunInTransactionAndSnapshots(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	res, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, ok := tx.FindKitty(0); ok {
			t.Fatalf("expected missing kitty lookup")
		}
		created, err := tx.RegisterKitty("alice", Kitty{ID: 0, Genome: Genome{1}})
		if err != nil {
			return err
		}
		view := tx.Snapshot()
		if len(view.ListKitties()) != 1 || view.KittiesCount() != 1 {
			t.Fatalf("snapshot mismatch")
		}
		tx.Emit(domain.KittyCreated("alice", created.ID))
		return nil
	})
	if err != nil {
		t.Fatalf("run transaction: %v", err)
	}
	if len(res.Events) != 1 || res.Events[0].Kind != domain.EventKittyCreated {
		t.Fatalf("expected creation event, got %+v", res.Events)
	}
	if owner, ok := store.OwnerOf(0); !ok || owner != "alice" {
		t.Fatalf("expected alice to own kitty 0")
	}
	snapshot := store.ExportState()
	if err := store.ImportState(ctx, Snapshot{}); err != nil {
		t.Fatalf("import empty: %v", err)
	}
	if store.KittiesCount() != 0 {
		t.Fatalf("expected cleared state")
	}
	if err := store.ImportState(ctx, snapshot); err != nil {
		t.Fatalf("import: %v", err)
	}
	if store.KittiesCount() != 1 || !slices.Equal(store.OwnedKitties("alice"), []KittyID{0}) {
		t.Fatalf("expected restored state")
	}
	if store.RulesEngine() == nil {
		t.Fatalf("expected rules engine")
	}
}

func TestStoreFailedTransactionLeavesStateUntouched(t *testing.T) {
	store := NewStore(nil)
	registerN(t, store, "alice", 2)
	before := store.ExportState()

	boom := errors.New("boom")
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if err := tx.ReassignKitty("alice", "bob", 0); err != nil {
			return err
		}
		if err := tx.SetPrice(1, 10); err != nil {
			return err
		}
		tx.Emit(domain.KittyTransferred("alice", "bob", 0))
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	after := store.ExportState()
	if len(after.Prices) != 0 || after.Owners[0] != "alice" || !slices.Equal(after.Owned["alice"], before.Owned["alice"]) {
		t.Fatalf("state leaked from failed transaction: %+v", after)
	}
}

func TestStoreBeforeCommitHookAborts(t *testing.T) {
	store := NewStore(nil)
	registerN(t, store, "alice", 1)
	hookErr := errors.New("ledger refused")
	res, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if err := tx.ReassignKitty("alice", "bob", 0); err != nil {
			return err
		}
		tx.Emit(domain.KittySold("alice", "bob", 0, 5))
		tx.BeforeCommit(func(context.Context) error { return hookErr })
		return nil
	})
	if !errors.Is(err, hookErr) {
		t.Fatalf("expected hook error, got %v", err)
	}
	if len(res.Events) != 0 {
		t.Fatalf("aborted transaction must not publish events")
	}
	if owner, _ := store.OwnerOf(0); owner != "alice" {
		t.Fatalf("expected ownership unchanged, got %s", owner)
	}
}

func TestStoreRuleViolation(t *testing.T) {
	store := NewStore(domain.NewRulesEngine())
	store.RulesEngine().Register(blockingRule{})
	hookRan := false
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		tx.BeforeCommit(func(context.Context) error { hookRan = true; return nil })
		_, e := tx.RegisterKitty("alice", Kitty{ID: 0})
		return e
	})
	var violation domain.RuleViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected rule violation, got %v", err)
	}
	if hookRan {
		t.Fatalf("hooks must not run when rules block")
	}
	if store.KittiesCount() != 0 {
		t.Fatalf("blocked transaction committed")
	}
}

func TestRegisterKittyValidation(t *testing.T) {
	store := NewStore(nil)
	registerN(t, store, "alice", 1)
	cases := []struct {
		name  string
		owner AccountID
		kitty Kitty
	}{
		{"out of sequence", "alice", Kitty{ID: 5}},
		{"reused id", "alice", Kitty{ID: 0}},
		{"missing owner", "", Kitty{ID: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
				_, err := tx.RegisterKitty(tc.owner, tc.kitty)
				return err
			})
			if err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestNextKittyIDExhausted(t *testing.T) {
	store := NewStore(nil)
	if err := store.ImportState(context.Background(), Snapshot{NextID: domain.MaxKittyID}); err != nil {
		t.Fatalf("import: %v", err)
	}
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.NextKittyID()
		return err
	})
	if !errors.Is(err, domain.ErrIDSpaceExhausted) {
		t.Fatalf("expected exhaustion, got %v", err)
	}
}

func TestReassignKittySwapRemoves(t *testing.T) {
	store := NewStore(nil)
	registerN(t, store, "alice", 4)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		return tx.ReassignKitty("alice", "bob", 1)
	})
	if err != nil {
		t.Fatalf("reassign: %v", err)
	}
	if got := store.OwnedKitties("alice"); !slices.Equal(got, []KittyID{0, 3, 2}) {
		t.Fatalf("unexpected alice enumeration %v", got)
	}
	if got := store.OwnedKitties("bob"); !slices.Equal(got, []KittyID{1}) {
		t.Fatalf("unexpected bob enumeration %v", got)
	}

	_, err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		return tx.ReassignKitty("alice", "carol", 1)
	})
	if !errors.Is(err, domain.ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	_, err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		return tx.ReassignKitty("alice", "carol", 42)
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReassignLastKittyDropsEmptyEnumeration(t *testing.T) {
	store := NewStore(nil)
	registerN(t, store, "alice", 1)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		return tx.ReassignKitty("alice", "bob", 0)
	})
	if err != nil {
		t.Fatalf("reassign: %v", err)
	}
	var owners []AccountID
	_ = store.View(context.Background(), func(v TransactionView) error {
		owners = v.ListOwners()
		return nil
	})
	if !slices.Equal(owners, []AccountID{"bob"}) {
		t.Fatalf("expected only bob to enumerate kitties, got %v", owners)
	}
}

func TestSetPriceOverwritesAndRecordsChanges(t *testing.T) {
	engine := domain.NewRulesEngine()
	capture := &captureRule{}
	engine.Register(capture)
	store := NewStore(engine)
	registerN(t, store, "alice", 1)

	for _, price := range []Balance{100, 40} {
		_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
			return tx.SetPrice(0, price)
		})
		if err != nil {
			t.Fatalf("set price: %v", err)
		}
	}
	if price, ok := store.GetPrice(0); !ok || price != 40 {
		t.Fatalf("expected overwritten price 40, got %d", price)
	}
	last := capture.changes[len(capture.changes)-1]
	if last.Entity != domain.EntityListing || last.Action != domain.ActionUpdate || last.Before != Balance(100) {
		t.Fatalf("unexpected listing change %+v", last)
	}
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		return tx.SetPrice(9, 1)
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestImportStateNormalizesCounter(t *testing.T) {
	store := NewStore(nil)
	err := store.ImportState(context.Background(), Snapshot{
		Kitties: map[KittyID]Genome{7: {7}},
		Owners:  map[KittyID]AccountID{7: "alice"},
		Owned:   map[AccountID][]KittyID{"alice": {7}, "ghost": {}},
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if store.KittiesCount() != 8 {
		t.Fatalf("expected counter lifted to 8, got %d", store.KittiesCount())
	}
	exported := store.ExportState()
	if _, ok := exported.Owned["ghost"]; ok {
		t.Fatalf("empty enumerations should be dropped")
	}
	if exported.Prices == nil {
		t.Fatalf("expected normalized price map")
	}
}

type blockingRule struct{}

func (blockingRule) Name() string { return "block" }
func (blockingRule) Evaluate(context.Context, domain.TransactionView, []domain.Change) (domain.Result, error) {
	return domain.Result{Violations: []domain.Violation{{Rule: "block", Severity: domain.SeverityBlock}}}, nil
}

type captureRule struct{ changes []domain.Change }

func (*captureRule) Name() string { return "capture" }
func (c *captureRule) Evaluate(_ context.Context, _ domain.TransactionView, changes []domain.Change) (domain.Result, error) {
	c.changes = append(c.changes, changes...)
	return domain.Result{}, nil
}

type orphanListingRule struct{}

func (orphanListingRule) Name() string { return "orphan-listing" }
func (orphanListingRule) Evaluate(_ context.Context, view domain.TransactionView, _ []domain.Change) (domain.Result, error) {
	var res domain.Result
	for id := range view.ListPrices() {
		if _, ok := view.FindKitty(id); !ok {
			res.Violations = append(res.Violations, domain.Violation{Rule: "orphan-listing", Severity: domain.SeverityBlock, KittyID: id})
		}
	}
	return res, nil
}

func TestImportSnapshotRefusesBlockingState(t *testing.T) {
	ctx := context.Background()
	store := NewStore(domain.NewRulesEngine())
	store.RulesEngine().Register(orphanListingRule{})
	registerN(t, store, "alice", 2)

	err := store.ImportSnapshot(ctx, Snapshot{
		NextID:  1,
		Kitties: map[KittyID]Genome{0: {1}},
		Owners:  map[KittyID]AccountID{0: "bob"},
		Owned:   map[AccountID][]KittyID{"bob": {0}},
		Prices:  map[KittyID]Balance{9: 5},
	})
	var violation domain.RuleViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected rule violation, got %v", err)
	}
	if len(violation.Result.Violations) != 1 || violation.Result.Violations[0].KittyID != 9 {
		t.Fatalf("unexpected violations %+v", violation.Result.Violations)
	}
	if store.KittiesCount() != 2 || !slices.Equal(store.OwnedKitties("alice"), []KittyID{0, 1}) {
		t.Fatalf("refused snapshot replaced state")
	}
	if _, ok := store.OwnerOf(0); !ok {
		t.Fatalf("expected kitty 0 to keep its owner")
	}
}

func TestOwnedPositionalLookups(t *testing.T) {
	store := NewStore(nil)
	registerN(t, store, "alice", 3)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		return tx.ReassignKitty("alice", "bob", 0)
	})
	if err != nil {
		t.Fatalf("reassign: %v", err)
	}
	if n := store.OwnedCount("alice"); n != 2 {
		t.Fatalf("expected 2 kitties for alice, got %d", n)
	}
	if id, ok := store.OwnedKittyAt("alice", 0); !ok || id != 2 {
		t.Fatalf("expected kitty 2 swapped into slot 0, got %d %v", id, ok)
	}
	if _, ok := store.OwnedKittyAt("alice", 2); ok {
		t.Fatalf("expected out of range position to miss")
	}
	if n := store.OwnedCount("carol"); n != 0 {
		t.Fatalf("expected empty enumeration, got %d", n)
	}
	if _, ok := store.OwnedKittyAt("carol", 0); ok {
		t.Fatalf("expected missing owner to miss")
	}
}
