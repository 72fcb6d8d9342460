package core

import "kittycore/pkg/domain"

type (
	KittyID            = domain.KittyID
	AccountID          = domain.AccountID
	Balance            = domain.Balance
	Genome             = domain.Genome
	Kitty              = domain.Kitty
	Event              = domain.Event
	Change             = domain.Change
	Violation          = domain.Violation
	Result             = domain.Result
	RuleViolationError = domain.RuleViolationError
	RulesEngine        = domain.RulesEngine
	Rule               = domain.Rule
)

const (
	EntityKitty      = domain.EntityKitty
	EntityOwnership  = domain.EntityOwnership
	EntityOwnerIndex = domain.EntityOwnerIndex
	EntityListing    = domain.EntityListing
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

// Operation names used for logging, metrics, tracing and audit entries.
const (
	OpCreateKitty   = "create_kitty"
	OpBreedKitty    = "breed_kitty"
	OpTransferKitty = "transfer_kitty"
	OpSetKittyPrice = "set_kitty_price"
	OpPurchaseKitty = "purchase_kitty"
)
