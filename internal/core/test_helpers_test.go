package core

import (
	"context"
	"reflect"
	"testing"
	"time"

	"kittycore/internal/infra/persistence/memory"
	"kittycore/internal/ledger"
	"kittycore/pkg/domain"
)

var testSeed = StaticSeed("kittycore-test-seed")

type harness struct {
	svc    *Service
	store  *memory.Store
	ledger *ledger.Ledger
	events *EventLog
	index  uint32
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		store:  memory.NewStore(NewDefaultRulesEngine()),
		ledger: ledger.New(1),
		events: NewEventLog(),
	}
	base := []Option{
		WithCurrencyLedger(h.ledger),
		WithRandomnessSource(testSeed),
		WithEventSink(h.events),
	}
	h.svc = NewService(h.store, append(base, opts...)...)
	return h
}

// call returns the next call context for caller within block 1.
func (h *harness) call(caller AccountID) Call {
	c := Call{Caller: caller, Block: 1, Index: h.index}
	h.index++
	return c
}

func (h *harness) fund(t *testing.T, account AccountID, amount Balance) {
	t.Helper()
	if err := h.ledger.Deposit(account, amount); err != nil {
		t.Fatalf("deposit %s: %v", account, err)
	}
}

func (h *harness) create(t *testing.T, caller AccountID) KittyID {
	t.Helper()
	id, _, err := h.svc.CreateKitty(context.Background(), h.call(caller))
	if err != nil {
		t.Fatalf("create kitty for %s: %v", caller, err)
	}
	return id
}

// assertUnchanged fails when any of the four maps or the id counter differ
// from before.
func assertUnchanged(t *testing.T, before memory.Snapshot, store *memory.Store) {
	t.Helper()
	if after := store.ExportState(); !reflect.DeepEqual(before, after) {
		t.Fatalf("expected state to be unchanged\nbefore: %+v\nafter:  %+v", before, after)
	}
}

func assertOwned(t *testing.T, svc *Service, owner AccountID, want ...KittyID) {
	t.Helper()
	got := svc.OwnedKitties(owner)
	if len(got) == 0 && len(want) == 0 {
		return
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %s to own %v, got %v", owner, want, got)
	}
}

type fixedClock struct {
	now  time.Time
	step time.Duration
}

func (c *fixedClock) Now() time.Time {
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

type captureLogger struct {
	entries []logEntry
}

type logEntry struct {
	level string
	msg   string
	args  []any
}

func (l *captureLogger) Debug(msg string, args ...any) { l.add("debug", msg, args) }
func (l *captureLogger) Info(msg string, args ...any)  { l.add("info", msg, args) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.add("warn", msg, args) }
func (l *captureLogger) Error(msg string, args ...any) { l.add("error", msg, args) }

func (l *captureLogger) add(level, msg string, args []any) {
	l.entries = append(l.entries, logEntry{level: level, msg: msg, args: args})
}

func (l *captureLogger) count(level string) int {
	n := 0
	for _, e := range l.entries {
		if e.level == level {
			n++
		}
	}
	return n
}

type failingLedger struct{ err error }

func (f failingLedger) Transfer(context.Context, domain.AccountID, domain.AccountID, domain.Balance, domain.ExistenceRequirement) error {
	return f.err
}
