package core

import (
	"context"
	"errors"
	"time"

	"kittycore/internal/infra/persistence/memory"
	"kittycore/pkg/domain"
)

var (
	errNoLedger      = errors.New("no currency ledger configured")
	errNoDestination = errors.New("destination account required")
)

// Service applies the five registry operations against a persistent store.
// Every operation validates against the transactional view first and only then
// writes, so a rejected call leaves all four maps untouched.
type Service struct {
	store   domain.PersistentStore
	ledger  domain.CurrencyLedger
	random  Randomness
	logger  Logger
	clock   Clock
	metrics MetricsRecorder
	tracer  Tracer
	audit   AuditRecorder
	sinks   []EventSink
}

// NewService constructs a service backed by the supplied store.
//
// Without WithRandomness or WithRandomnessSource the service hashes an empty
// seed, so genomes and breeding selectors depend only on (caller, index) and
// repeat across blocks. Production callers should supply a block seed source.
func NewService(store domain.PersistentStore, opts ...Option) *Service {
	svc := &Service{
		store:   store,
		random:  NewSeededRandomness(nil),
		logger:  noopLogger{},
		clock:   systemClock{},
		metrics: noopMetrics{},
		tracer:  noopTracer{},
		audit:   noopAudit{},
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// NewInMemoryService creates a service over a fresh in-memory store evaluating
// the given rules engine.
func NewInMemoryService(engine *RulesEngine, opts ...Option) *Service {
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.PersistentStore {
	return s.store
}

// CreateKitty registers a kitty with a freshly derived genome owned by the caller.
func (s *Service) CreateKitty(ctx context.Context, call Call) (KittyID, Result, error) {
	var created KittyID
	res, err := s.run(ctx, OpCreateKitty, call, &created, func(tx domain.Transaction) error {
		id, err := tx.NextKittyID()
		if err != nil {
			return domain.Reject(OpCreateKitty, domain.MaxKittyID, err)
		}
		genome := Genome(s.random.Random(call))

		if _, err := tx.RegisterKitty(call.Caller, Kitty{ID: id, Genome: genome}); err != nil {
			return err
		}
		tx.Emit(domain.KittyCreated(call.Caller, id))
		created = id
		return nil
	})
	if err != nil {
		return 0, res, err
	}
	return created, res, nil
}

// BreedKitty mixes two existing genomes into a new kitty owned by the caller.
func (s *Service) BreedKitty(ctx context.Context, call Call, parent1, parent2 KittyID) (KittyID, Result, error) {
	var created KittyID
	res, err := s.run(ctx, OpBreedKitty, call, &created, func(tx domain.Transaction) error {
		kitty1, ok := tx.FindKitty(parent1)
		if !ok {
			return domain.Reject(OpBreedKitty, parent1, domain.ErrInvalidParent)
		}
		kitty2, ok := tx.FindKitty(parent2)
		if !ok {
			return domain.Reject(OpBreedKitty, parent2, domain.ErrInvalidParent)
		}
		if parent1 == parent2 {
			return domain.Reject(OpBreedKitty, parent1, domain.ErrIdenticalParents)
		}
		id, err := tx.NextKittyID()
		if err != nil {
			return domain.Reject(OpBreedKitty, domain.MaxKittyID, err)
		}
		child := CombineGenomes(kitty1.Genome, kitty2.Genome, s.random.Random(call))

		if _, err := tx.RegisterKitty(call.Caller, Kitty{ID: id, Genome: child}); err != nil {
			return err
		}
		tx.Emit(domain.KittyBred(call.Caller, id, parent1, parent2))
		created = id
		return nil
	})
	if err != nil {
		return 0, res, err
	}
	return created, res, nil
}

// TransferKitty hands a kitty owned by the caller to another account. Any
// listing on the kitty stays in place.
func (s *Service) TransferKitty(ctx context.Context, call Call, id KittyID, to AccountID) (Result, error) {
	target := id
	return s.run(ctx, OpTransferKitty, call, &target, func(tx domain.Transaction) error {
		if err := requireOwner(tx, OpTransferKitty, call.Caller, id); err != nil {
			return err
		}
		if to == "" {
			return domain.Reject(OpTransferKitty, id, errNoDestination)
		}

		if err := tx.ReassignKitty(call.Caller, to, id); err != nil {
			return err
		}
		tx.Emit(domain.KittyTransferred(call.Caller, to, id))
		return nil
	})
}

// SetKittyPrice lists a kitty owned by the caller, overwriting any prior price.
func (s *Service) SetKittyPrice(ctx context.Context, call Call, id KittyID, price Balance) (Result, error) {
	target := id
	return s.run(ctx, OpSetKittyPrice, call, &target, func(tx domain.Transaction) error {
		if err := requireOwner(tx, OpSetKittyPrice, call.Caller, id); err != nil {
			return err
		}

		if err := tx.SetPrice(id, price); err != nil {
			return err
		}
		tx.Emit(domain.KittyPriceSet(call.Caller, id, price))
		return nil
	})
}

// PurchaseKitty buys a listed kitty for exactly its listed price. The currency
// transfer runs after every check and rule has passed; if it fails the kitty
// stays with its owner.
func (s *Service) PurchaseKitty(ctx context.Context, call Call, id KittyID, offer Balance) (Result, error) {
	target := id
	return s.run(ctx, OpPurchaseKitty, call, &target, func(tx domain.Transaction) error {
		if _, ok := tx.FindKitty(id); !ok {
			return domain.Reject(OpPurchaseKitty, id, domain.ErrNotFound)
		}
		seller, ok := tx.OwnerOf(id)
		if !ok {
			return domain.Reject(OpPurchaseKitty, id, domain.ErrNotFound)
		}
		if seller == call.Caller {
			return domain.Reject(OpPurchaseKitty, id, domain.ErrSelfPurchase)
		}
		price, listed := tx.FindPrice(id)
		if !listed {
			return domain.Reject(OpPurchaseKitty, id, domain.ErrNotListed)
		}
		if offer < price {
			return domain.Reject(OpPurchaseKitty, id, domain.ErrOfferTooLow)
		}

		if err := tx.ReassignKitty(seller, call.Caller, id); err != nil {
			return err
		}
		tx.BeforeCommit(func(ctx context.Context) error {
			if s.ledger == nil {
				return domain.Reject(OpPurchaseKitty, id, &domain.CurrencyError{Cause: errNoLedger})
			}
			if err := s.ledger.Transfer(ctx, call.Caller, seller, price, domain.KeepAlive); err != nil {
				return domain.Reject(OpPurchaseKitty, id, &domain.CurrencyError{Cause: err})
			}
			return nil
		})
		tx.Emit(domain.KittySold(seller, call.Caller, id, price))
		return nil
	})
}

func requireOwner(tx domain.Transaction, op string, caller AccountID, id KittyID) error {
	if _, ok := tx.FindKitty(id); !ok {
		return domain.Reject(op, id, domain.ErrNotFound)
	}
	owner, ok := tx.OwnerOf(id)
	if !ok {
		return domain.Reject(op, id, domain.ErrNotFound)
	}
	if owner != caller {
		return domain.Reject(op, id, domain.ErrNotOwner)
	}
	return nil
}

// run wraps a transactional operation with tracing, metrics, audit and logging.
// None of these feed back into the transition itself.
func (s *Service) run(ctx context.Context, op string, call Call, id *KittyID, fn func(domain.Transaction) error) (Result, error) {
	start := s.clock.Now()
	ctx, span := s.tracer.Start(ctx, op)
	s.logger.Debug("kitty operation started", "op", op, "caller", call.Caller, "block", call.Block, "index", call.Index)

	var (
		res Result
		err error
	)
	if call.Caller == "" {
		err = domain.Reject(op, *id, domain.ErrUnauthenticated)
	} else {
		res, err = s.store.RunInTransaction(ctx, fn)
	}

	duration := s.clock.Now().Sub(start)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, duration)
	s.record(ctx, op, call, *id, duration, err)

	if err != nil {
		if isRejection(err) {
			s.logger.Warn("kitty operation rejected", "op", op, "caller", call.Caller, "kitty", *id, "error", err)
		} else {
			s.logger.Error("kitty operation failed", "op", op, "caller", call.Caller, "kitty", *id, "error", err)
		}
		return res, err
	}

	for _, v := range res.Violations {
		s.logger.Warn("rule violation", "op", op, "rule", v.Rule, "severity", v.Severity, "message", v.Message)
	}
	s.logger.Info("kitty operation committed", "op", op, "caller", call.Caller, "kitty", *id, "duration", duration)
	s.publish(ctx, res.Events)
	return res, nil
}

func (s *Service) record(ctx context.Context, op string, call Call, id KittyID, duration time.Duration, err error) {
	entry := AuditEntry{
		Operation: op,
		Caller:    call.Caller,
		Block:     call.Block,
		Index:     call.Index,
		KittyID:   id,
		Status:    AuditStatusSuccess,
		Duration:  duration,
		Timestamp: s.clock.Now(),
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
	}
	s.audit.Record(ctx, entry)
}

func (s *Service) publish(ctx context.Context, events []Event) {
	if len(events) == 0 {
		return
	}
	for _, sink := range s.sinks {
		if err := sink.Publish(ctx, events); err != nil {
			s.logger.Error("event sink failed", "error", err)
		}
	}
}

func isRejection(err error) bool {
	var opErr *domain.OperationError
	if errors.As(err, &opErr) {
		return true
	}
	var ruleErr domain.RuleViolationError
	return errors.As(err, &ruleErr)
}
