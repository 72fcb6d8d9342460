package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"kittycore/internal/core"
	"kittycore/pkg/domain"
)

// Scenario is a replayable sequence of blocks, each holding ordered calls.
type Scenario struct {
	// Seed overrides KITTYCORE_RANDOM_SEED when set (hex).
	Seed               string                              `yaml:"seed"`
	ExistentialDeposit *domain.Balance                     `yaml:"existential_deposit"`
	Balances           map[domain.AccountID]domain.Balance `yaml:"balances"`
	Blocks             []ScenarioBlock                     `yaml:"blocks"`
}

// ScenarioBlock is one block of calls.
type ScenarioBlock struct {
	Number uint64         `yaml:"number"`
	Calls  []core.Request `yaml:"calls"`
}

func loadScenario(path string) (Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("open scenario: %w", err)
	}
	defer func() { _ = f.Close() }()
	return decodeScenario(f)
}

func decodeScenario(r io.Reader) (Scenario, error) {
	var sc Scenario
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return Scenario{}, fmt.Errorf("decode scenario: %w", err)
	}
	if _, err := sc.seed(); err != nil {
		return Scenario{}, err
	}
	var last uint64
	for i, block := range sc.Blocks {
		if i > 0 && block.Number <= last {
			return Scenario{}, fmt.Errorf("block %d does not follow block %d", block.Number, last)
		}
		last = block.Number
	}
	return sc, nil
}

func (sc Scenario) seed() ([]byte, error) {
	if sc.Seed == "" {
		return nil, nil
	}
	seed, err := hex.DecodeString(strings.TrimPrefix(sc.Seed, "0x"))
	if err != nil {
		return nil, fmt.Errorf("scenario seed: %w", err)
	}
	return seed, nil
}
