package domain

import "context"

// ExistenceRequirement controls whether a currency transfer may reap the payer.
type ExistenceRequirement int

const (
	// AllowDeath lets the payer's balance drop below the existential minimum.
	AllowDeath ExistenceRequirement = iota
	// KeepAlive requires the payer to retain at least the existential minimum.
	KeepAlive
)

// CurrencyLedger moves currency between accounts atomically: a transfer either
// applies in full or not at all.
type CurrencyLedger interface {
	Transfer(ctx context.Context, from, to AccountID, amount Balance, req ExistenceRequirement) error
}

// RandomnessSource supplies the seed for a block. The value must be identical
// on every replica executing the same block.
type RandomnessSource interface {
	RandomSeed(block uint64) []byte
}

// Origin is the raw, unauthenticated source of a call.
type Origin struct {
	Signer    string `json:"signer" yaml:"signer"`
	Signature string `json:"signature,omitempty" yaml:"signature,omitempty"`
}

// Authenticator resolves a raw origin to a concrete account or rejects it.
type Authenticator interface {
	Authenticate(ctx context.Context, origin Origin) (AccountID, error)
}
