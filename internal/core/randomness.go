package core

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"

	"kittycore/pkg/domain"
)

// Call carries the authenticated caller together with the deterministic
// context of the enclosing block. Replaying the same Call against the same
// state always yields the same outcome.
type Call struct {
	Caller AccountID
	Block  uint64
	// Index is the position of the call within its block.
	Index uint32
}

// Randomness derives 16 bytes for a call. Implementations must be pure
// functions of the call so every replica derives the same value.
type Randomness interface {
	Random(call Call) [domain.GenomeSize]byte
}

// RandomnessFunc adapts a function to Randomness.
type RandomnessFunc func(call Call) [domain.GenomeSize]byte

// Random implements Randomness.
func (f RandomnessFunc) Random(call Call) [domain.GenomeSize]byte { return f(call) }

// SeededRandomness hashes (block seed, caller, call index) with BLAKE2b-128.
// The output is predictable to anyone who knows the seed; it only has to be
// reproducible, not secret.
type SeededRandomness struct {
	Source domain.RandomnessSource
}

// NewSeededRandomness wraps a block seed source.
func NewSeededRandomness(source domain.RandomnessSource) SeededRandomness {
	return SeededRandomness{Source: source}
}

// Random implements Randomness.
func (r SeededRandomness) Random(call Call) [domain.GenomeSize]byte {
	var seed []byte
	if r.Source != nil {
		seed = r.Source.RandomSeed(call.Block)
	}
	return DeriveRandom(seed, call.Caller, call.Index)
}

// DeriveRandom is the hash behind SeededRandomness. Seed and caller are length
// prefixed so distinct tuples never encode to the same preimage.
func DeriveRandom(seed []byte, caller AccountID, index uint32) [domain.GenomeSize]byte {
	h, err := blake2b.New(domain.GenomeSize, nil)
	if err != nil {
		panic(err) // size is a valid constant
	}
	var scratch [4]byte
	binary.LittleEndian.PutUint32(scratch[:], uint32(len(seed)))
	h.Write(scratch[:])
	h.Write(seed)
	binary.LittleEndian.PutUint32(scratch[:], uint32(len(caller)))
	h.Write(scratch[:])
	h.Write([]byte(caller))
	binary.LittleEndian.PutUint32(scratch[:], index)
	h.Write(scratch[:])

	var out [domain.GenomeSize]byte
	copy(out[:], h.Sum(nil))
	return out
}

// ChainSeed derives each block's seed from a genesis value, standing in for the
// host ledger's randomness beacon.
type ChainSeed struct {
	Genesis []byte
}

// RandomSeed implements domain.RandomnessSource.
func (c ChainSeed) RandomSeed(block uint64) []byte {
	var num [8]byte
	binary.LittleEndian.PutUint64(num[:], block)
	sum := blake2b.Sum256(append(append([]byte(nil), c.Genesis...), num[:]...))
	return sum[:]
}

// StaticSeed returns the same seed for every block.
type StaticSeed []byte

// RandomSeed implements domain.RandomnessSource.
func (s StaticSeed) RandomSeed(uint64) []byte { return append([]byte(nil), s...) }
