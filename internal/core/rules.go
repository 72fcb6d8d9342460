package core

import "kittycore/pkg/domain"

// NewRulesEngine constructs an engine with no rules registered.
func NewRulesEngine() *RulesEngine {
	return domain.NewRulesEngine()
}

// NewDefaultRulesEngine builds a rules engine with the registry invariants.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(OwnershipConsistencyRule())
	engine.Register(ListingIntegrityRule())
	return engine
}
