package core

import (
	"context"
	"fmt"

	"kittycore/pkg/domain"
)

// ListingIntegrityRule blocks listings on kitties that do not exist.
func ListingIntegrityRule() domain.Rule {
	return listingIntegrityRule{}
}

type listingIntegrityRule struct{}

func (listingIntegrityRule) Name() string { return "listing_integrity" }

func (listingIntegrityRule) Evaluate(_ context.Context, view domain.TransactionView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	var ids []KittyID
	if changes == nil {
		for id := range view.ListPrices() {
			ids = append(ids, id)
		}
	} else {
		for _, change := range changes {
			if change.Entity == domain.EntityListing {
				ids = append(ids, change.KittyID)
			}
		}
	}

	for _, id := range ids {
		if _, listed := view.FindPrice(id); !listed {
			continue
		}
		if _, ok := view.FindKitty(id); !ok {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "listing_integrity",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("listing references missing kitty %d", id),
				Entity:   domain.EntityListing,
				KittyID:  id,
			})
		}
	}
	return res, nil
}
