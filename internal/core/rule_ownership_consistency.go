package core

import (
	"context"
	"fmt"

	"kittycore/pkg/domain"
)

const ownershipConsistencyName = "ownership_consistency"

// OwnershipConsistencyRule keeps the entity store, the ownership record and
// the owner enumerations in agreement. Given changes it inspects only the
// kitties and accounts they touch; given nil it scans the whole registry.
func OwnershipConsistencyRule() domain.Rule {
	return ownershipConsistencyRule{}
}

type ownershipConsistencyRule struct{}

func (ownershipConsistencyRule) Name() string { return ownershipConsistencyName }

func (r ownershipConsistencyRule) Evaluate(_ context.Context, view domain.TransactionView, changes []domain.Change) (domain.Result, error) {
	if changes == nil {
		return r.scan(view), nil
	}

	res := domain.Result{}
	touched := make(map[KittyID]map[AccountID]struct{})
	for _, change := range changes {
		if change.Entity == domain.EntityListing {
			continue
		}
		accounts, ok := touched[change.KittyID]
		if !ok {
			accounts = make(map[AccountID]struct{})
			touched[change.KittyID] = accounts
		}
		for _, v := range []any{change.Before, change.After} {
			if account, ok := v.(AccountID); ok && account != "" {
				accounts[account] = struct{}{}
			}
		}
	}

	for id, accounts := range touched {
		if id >= view.KittiesCount() {
			res.Violations = append(res.Violations, ownershipViolation(id, fmt.Sprintf("kitty %d at or above id counter %d", id, view.KittiesCount())))
		}
		if _, ok := view.FindKitty(id); !ok {
			res.Violations = append(res.Violations, ownershipViolation(id, fmt.Sprintf("kitty %d has no genome", id)))
			continue
		}
		owner, ok := view.OwnerOf(id)
		if !ok {
			res.Violations = append(res.Violations, ownershipViolation(id, fmt.Sprintf("kitty %d has no owner", id)))
			continue
		}
		accounts[owner] = struct{}{}
		for account := range accounts {
			n := occurrences(view.OwnedKitties(account), id)
			switch {
			case account == owner && n == 0:
				res.Violations = append(res.Violations, ownershipViolation(id, fmt.Sprintf("kitty %d missing from %s enumeration", id, account)))
			case account == owner && n > 1:
				res.Violations = append(res.Violations, ownershipViolation(id, fmt.Sprintf("kitty %d enumerated %d times for %s", id, n, account)))
			case account != owner && n > 0:
				res.Violations = append(res.Violations, ownershipViolation(id, fmt.Sprintf("kitty %d owned by %s still enumerated for %s", id, owner, account)))
			}
		}
	}
	return res, nil
}

func (ownershipConsistencyRule) scan(view domain.TransactionView) domain.Result {
	res := domain.Result{}
	count := view.KittiesCount()

	enumerated := make(map[KittyID]AccountID)
	for _, account := range view.ListOwners() {
		for _, id := range view.OwnedKitties(account) {
			if prev, dup := enumerated[id]; dup {
				res.Violations = append(res.Violations, ownershipViolation(id, fmt.Sprintf("kitty %d enumerated for both %s and %s", id, prev, account)))
				continue
			}
			enumerated[id] = account
			if owner, ok := view.OwnerOf(id); !ok || owner != account {
				res.Violations = append(res.Violations, ownershipViolation(id, fmt.Sprintf("kitty %d enumerated for %s but owned by %q", id, account, owner)))
			}
		}
	}

	for _, kitty := range view.ListKitties() {
		if kitty.ID >= count {
			res.Violations = append(res.Violations, ownershipViolation(kitty.ID, fmt.Sprintf("kitty %d at or above id counter %d", kitty.ID, count)))
		}
		owner, ok := view.OwnerOf(kitty.ID)
		if !ok {
			res.Violations = append(res.Violations, ownershipViolation(kitty.ID, fmt.Sprintf("kitty %d has no owner", kitty.ID)))
			continue
		}
		if _, ok := enumerated[kitty.ID]; !ok {
			res.Violations = append(res.Violations, ownershipViolation(kitty.ID, fmt.Sprintf("kitty %d missing from %s enumeration", kitty.ID, owner)))
		}
	}
	return res
}

func occurrences(ids []KittyID, id KittyID) int {
	n := 0
	for _, candidate := range ids {
		if candidate == id {
			n++
		}
	}
	return n
}

func ownershipViolation(id KittyID, message string) domain.Violation {
	return domain.Violation{
		Rule:     ownershipConsistencyName,
		Severity: domain.SeverityBlock,
		Message:  message,
		Entity:   domain.EntityOwnership,
		KittyID:  id,
	}
}
