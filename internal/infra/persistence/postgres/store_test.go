package postgres

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"strings"
	"testing"

	"kittycore/internal/infra/persistence/memory"
	"kittycore/internal/infra/persistence/postgres/testutil"
	"kittycore/pkg/domain"
)

func openStub(t *testing.T) (*testutil.StubConn, func()) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	return conn, restore
}

func TestNewStoreEnsuresTableAndLoadsSnapshot(t *testing.T) {
	conn, restore := openStub(t)
	defer restore()

	fixture := memory.Snapshot{
		NextID:  2,
		Kitties: map[domain.KittyID]domain.Genome{0: {1}, 1: {2}},
		Owners:  map[domain.KittyID]domain.AccountID{0: "alice", 1: "bob"},
		Owned:   map[domain.AccountID][]domain.KittyID{"alice": {0}, "bob": {1}},
		Prices:  map[domain.KittyID]domain.Balance{1: 75},
	}
	cols := []string{"bucket", "payload"}
	for _, bucket := range memory.Buckets {
		data, err := fixture.EncodeBucket(bucket)
		if err != nil {
			t.Fatalf("encode %s: %v", bucket, err)
		}
		conn.Seed("state", cols, bucket, data)
	}

	store, err := NewStore("", domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if store.KittiesCount() != 2 {
		t.Fatalf("expected 2 kitties loaded, got %d", store.KittiesCount())
	}
	if price, ok := store.GetPrice(1); !ok || price != 75 {
		t.Fatalf("expected listing for kitty 1")
	}
	var sawDDL bool
	for _, stmt := range conn.Execs {
		if strings.Contains(strings.ToUpper(stmt), "CREATE TABLE IF NOT EXISTS STATE") {
			sawDDL = true
		}
	}
	if !sawDDL {
		t.Fatalf("expected state table DDL, got execs: %v", conn.Execs)
	}
}

func TestRunInTransactionPersistsEveryBucket(t *testing.T) {
	conn, restore := openStub(t)
	defer restore()

	store, err := NewStore("ignored", domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	_, err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.RegisterKitty("alice", domain.Kitty{ID: 0, Genome: domain.Genome{3}})
		return err
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, bucket := range memory.Buckets {
		if _, ok := conn.Row("state", bucket); !ok {
			t.Fatalf("expected bucket %s persisted", bucket)
		}
	}
	row, _ := conn.Row("state", memory.BucketOwned)
	var decoded memory.Snapshot
	if err := decoded.DecodeBucket(memory.BucketOwned, row[1].([]byte)); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !slices.Equal(decoded.Owned["alice"], []domain.KittyID{0}) {
		t.Fatalf("unexpected persisted enumeration %v", decoded.Owned)
	}
}

func TestRunInTransactionSurfacesPersistErrors(t *testing.T) {
	conn, restore := openStub(t)
	defer restore()

	store, err := NewStore("ignored", nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	conn.FailCommit = true
	_, err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.RegisterKitty("alice", domain.Kitty{ID: 0})
		return err
	})
	if err == nil || !strings.Contains(err.Error(), "commit") {
		t.Fatalf("expected commit failure, got %v", err)
	}
}

func TestRunInTransactionSkipsPersistOnError(t *testing.T) {
	conn, restore := openStub(t)
	defer restore()

	store, err := NewStore("ignored", nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	boom := errors.New("boom")
	if _, err := store.RunInTransaction(context.Background(), func(domain.Transaction) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, ok := conn.Row("state", memory.BucketMeta); ok {
		t.Fatalf("failed transaction must not persist")
	}
}

func TestNewStoreErrors(t *testing.T) {
	t.Run("open", func(t *testing.T) {
		restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return nil, errors.New("dial") })
		defer restore()
		if _, err := NewStore("", nil); err == nil {
			t.Fatalf("expected open error")
		}
	})
	t.Run("ping", func(t *testing.T) {
		conn, restore := openStub(t)
		defer restore()
		conn.FailPing = true
		if _, err := NewStore("", nil); err == nil {
			t.Fatalf("expected ping error")
		}
	})
	t.Run("ddl", func(t *testing.T) {
		conn, restore := openStub(t)
		defer restore()
		conn.FailExec = true
		if _, err := NewStore("", nil); err == nil {
			t.Fatalf("expected ddl error")
		}
	})
}

func TestImportSnapshotPersists(t *testing.T) {
	conn, restore := openStub(t)
	defer restore()

	store, err := NewStore("ignored", nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := store.ImportSnapshot(context.Background(), memory.Snapshot{NextID: 4}); err != nil {
		t.Fatalf("import: %v", err)
	}
	if _, ok := conn.Row("state", memory.BucketMeta); !ok {
		t.Fatalf("expected meta bucket persisted")
	}
	if store.KittiesCount() != 4 {
		t.Fatalf("expected counter 4, got %d", store.KittiesCount())
	}
}

type danglingListingRule struct{}

func (danglingListingRule) Name() string { return "dangling-listing" }
func (danglingListingRule) Evaluate(_ context.Context, view domain.TransactionView, _ []domain.Change) (domain.Result, error) {
	var res domain.Result
	for id := range view.ListPrices() {
		if _, ok := view.FindKitty(id); !ok {
			res.Violations = append(res.Violations, domain.Violation{Rule: "dangling-listing", Severity: domain.SeverityBlock, KittyID: id})
		}
	}
	return res, nil
}

func TestNewStoreRefusesInconsistentSnapshot(t *testing.T) {
	conn, restore := openStub(t)
	defer restore()

	fixture := memory.Snapshot{
		NextID:  1,
		Kitties: map[domain.KittyID]domain.Genome{0: {1}},
		Owners:  map[domain.KittyID]domain.AccountID{0: "alice"},
		Owned:   map[domain.AccountID][]domain.KittyID{"alice": {0}},
		Prices:  map[domain.KittyID]domain.Balance{9: 10},
	}
	cols := []string{"bucket", "payload"}
	for _, bucket := range memory.Buckets {
		data, err := fixture.EncodeBucket(bucket)
		if err != nil {
			t.Fatalf("encode %s: %v", bucket, err)
		}
		conn.Seed("state", cols, bucket, data)
	}

	engine := domain.NewRulesEngine()
	engine.Register(danglingListingRule{})
	_, err := NewStore("", engine)
	var violation domain.RuleViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected rule violation on load, got %v", err)
	}
}

func TestImportSnapshotRefusesInconsistentState(t *testing.T) {
	conn, restore := openStub(t)
	defer restore()

	engine := domain.NewRulesEngine()
	engine.Register(danglingListingRule{})
	store, err := NewStore("ignored", engine)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	err = store.ImportSnapshot(context.Background(), memory.Snapshot{Prices: map[domain.KittyID]domain.Balance{3: 1}})
	var violation domain.RuleViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected rule violation, got %v", err)
	}
	if _, ok := conn.Row("state", memory.BucketPrices); ok {
		t.Fatalf("refused snapshot must not be persisted")
	}
}
