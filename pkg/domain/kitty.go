// Package domain defines the kitty registry value types, ownership index,
// events, and rule evaluation primitives used by kittycore.
package domain

import (
	"encoding/hex"
	"fmt"
	"math"
)

// GenomeSize is the fixed length of a kitty genome in bytes.
const GenomeSize = 16

// MaxKittyID is the largest representable kitty id. It is never allocated;
// reaching it means the id space is exhausted.
const MaxKittyID KittyID = math.MaxUint32

// KittyID identifies a kitty. Ids are allocated monotonically and never reused.
type KittyID uint32

// AccountID identifies an account in the surrounding ledger.
type AccountID string

// Balance is an amount of the ledger currency.
type Balance uint64

// Genome is the opaque genetic payload of a kitty.
type Genome [GenomeSize]byte

// String renders the genome as lowercase hex.
func (g Genome) String() string {
	return hex.EncodeToString(g[:])
}

// MarshalText encodes the genome as hex so snapshots stay readable.
func (g Genome) MarshalText() ([]byte, error) {
	out := make([]byte, hex.EncodedLen(GenomeSize))
	hex.Encode(out, g[:])
	return out, nil
}

// UnmarshalText decodes a hex encoded genome.
func (g *Genome) UnmarshalText(text []byte) error {
	if len(text) != hex.EncodedLen(GenomeSize) {
		return fmt.Errorf("genome: expected %d hex chars, got %d", hex.EncodedLen(GenomeSize), len(text))
	}
	var decoded Genome
	if _, err := hex.Decode(decoded[:], text); err != nil {
		return fmt.Errorf("genome: %w", err)
	}
	*g = decoded
	return nil
}

// ParseGenome decodes a hex string into a Genome.
func ParseGenome(s string) (Genome, error) {
	var g Genome
	err := g.UnmarshalText([]byte(s))
	return g, err
}

// Kitty is a registered collectible.
type Kitty struct {
	ID     KittyID `json:"id"`
	Genome Genome  `json:"genome"`
}

// EntityType identifies the kind of record touched by a Change.
type EntityType string

// Logical stores mutated by transactions.
const (
	// EntityKitty identifies the entity store (id -> genome).
	EntityKitty EntityType = "kitty"
	// EntityOwnership identifies the ownership record (id -> owner).
	EntityOwnership EntityType = "ownership"
	// EntityOwnerIndex identifies the per-owner enumeration.
	EntityOwnerIndex EntityType = "owner_index"
	// EntityListing identifies the listing registry (id -> price).
	EntityListing EntityType = "listing"
)
