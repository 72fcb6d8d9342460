package core

import (
	"context"

	"kittycore/pkg/domain"
)

// Kitty returns a registered kitty.
func (s *Service) Kitty(id KittyID) (Kitty, bool) {
	return s.store.GetKitty(id)
}

// OwnerOf returns the current owner of a kitty.
func (s *Service) OwnerOf(id KittyID) (AccountID, bool) {
	return s.store.OwnerOf(id)
}

// Price returns the listing price of a kitty, if listed.
func (s *Service) Price(id KittyID) (Balance, bool) {
	return s.store.GetPrice(id)
}

// OwnedKitties returns the owner's kitties in enumeration order.
func (s *Service) OwnedKitties(owner AccountID) []KittyID {
	return s.store.OwnedKitties(owner)
}

// OwnedCount returns how many kitties owner holds.
func (s *Service) OwnedCount(owner AccountID) int {
	return s.store.OwnedCount(owner)
}

// OwnedKittyAt returns the kitty at position index of owner's enumeration.
func (s *Service) OwnedKittyAt(owner AccountID, index int) (KittyID, bool) {
	return s.store.OwnedKittyAt(owner, index)
}

// KittiesCount returns the number of kitties ever registered, which is also the
// next id to be allocated.
func (s *Service) KittiesCount() KittyID {
	return s.store.KittiesCount()
}

// VerifyState re-evaluates every invariant rule over the full committed state.
func (s *Service) VerifyState(ctx context.Context) (Result, error) {
	engine := NewDefaultRulesEngine()
	if provider, ok := s.store.(interface{ RulesEngine() *RulesEngine }); ok && provider.RulesEngine() != nil && len(provider.RulesEngine().Rules()) > 0 {
		engine = provider.RulesEngine()
	}
	var res Result
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		var err error
		res, err = engine.Evaluate(ctx, view, nil)
		return err
	})
	return res, err
}
