package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const scenarioYAML = `
seed: "6b6974747963"
existential_deposit: 1
balances:
  alice: 10
  bob: 1000
blocks:
  - number: 1
    calls:
      - origin: {signer: alice}
        call: create_kitty
      - origin: {signer: bob}
        call: create_kitty
      - origin: {signer: alice}
        call: breed_kitty
        parent1: 0
        parent2: 1
  - number: 2
    calls:
      - origin: {signer: alice}
        call: set_kitty_price
        kitty_id: 0
        amount: 100
      - origin: {signer: bob}
        call: purchase_kitty
        kitty_id: 0
        amount: 150
      - origin: {signer: bob}
        call: purchase_kitty
        kitty_id: 2
        amount: 1
`

// setupEnv points every kittyctl command at a sqlite file and an fs archive in
// a temp dir.
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("KITTYCORE_STORAGE_DRIVER", "sqlite")
	t.Setenv("KITTYCORE_SQLITE_PATH", filepath.Join(dir, "registry.db"))
	t.Setenv("KITTYCORE_BLOB_DRIVER", "fs")
	t.Setenv("KITTYCORE_BLOB_FS_ROOT", filepath.Join(dir, "archive"))
	t.Setenv("KITTYCORE_LOG_LEVEL", "error")
	t.Setenv("KITTYCORE_TRACE_EXPORTER", "none")
	t.Setenv("KITTYCORE_METRICS_ADDR", "")
	t.Setenv("KITTYCORE_RANDOM_SEED", "")
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func writeScenario(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "scenario.yaml")
	if err := os.WriteFile(path, []byte(scenarioYAML), 0o600); err != nil {
		t.Fatalf("write scenario: %v", err)
	}
	return path
}

func TestReplayPrintsReceiptsAndSummary(t *testing.T) {
	dir := setupEnv(t)
	out, err := run(t, "replay", writeScenario(t, dir))
	if err != nil {
		t.Fatalf("replay: %v", err)
	}

	var lines []string
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if len(lines) != 7 {
		t.Fatalf("expected 6 receipts and a summary, got %d lines:\n%s", len(lines), out)
	}

	var sold receiptLine
	if err := json.Unmarshal([]byte(lines[4]), &sold); err != nil {
		t.Fatalf("decode receipt: %v", err)
	}
	if sold.Block != 2 || sold.Index != 1 || sold.Error != "" || len(sold.Events) != 1 || sold.Events[0].Price != 100 {
		t.Fatalf("unexpected purchase receipt %+v", sold)
	}
	var rejected receiptLine
	if err := json.Unmarshal([]byte(lines[5]), &rejected); err != nil {
		t.Fatalf("decode receipt: %v", err)
	}
	if !strings.Contains(rejected.Error, "not listed") {
		t.Fatalf("expected unlisted purchase to be rejected, got %+v", rejected)
	}

	var summary replaySummary
	if err := json.Unmarshal([]byte(lines[6]), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.Applied != 5 || summary.Rejected != 1 || summary.Kitties != 3 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.Balances["alice"] != 110 || summary.Balances["bob"] != 900 {
		t.Fatalf("unexpected balances %+v", summary.Balances)
	}

	if _, err := run(t, "replay", "--strict", writeScenario(t, t.TempDir())); err == nil {
		t.Fatalf("expected --strict to fail on the rejected call")
	}
}

func TestInspectAndCheckAfterReplay(t *testing.T) {
	dir := setupEnv(t)
	if _, err := run(t, "replay", writeScenario(t, dir)); err != nil {
		t.Fatalf("replay: %v", err)
	}

	out, err := run(t, "inspect", "0")
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	var kitty kittyView
	if err := json.Unmarshal([]byte(out), &kitty); err != nil {
		t.Fatalf("decode kitty: %v", err)
	}
	if kitty.Owner != "bob" || kitty.Price == nil || *kitty.Price != 100 {
		t.Fatalf("unexpected kitty %+v", kitty)
	}

	out, err = run(t, "inspect", "--owner", "bob")
	if err != nil {
		t.Fatalf("inspect owner: %v", err)
	}
	var owner ownerView
	if err := json.Unmarshal([]byte(out), &owner); err != nil {
		t.Fatalf("decode owner: %v", err)
	}
	if owner.Count != 2 || owner.Kitties[0] != 1 || owner.Kitties[1] != 0 {
		t.Fatalf("unexpected enumeration %+v", owner)
	}

	if _, err := run(t, "inspect", "42"); err == nil {
		t.Fatalf("expected missing kitty to fail")
	}

	out, err = run(t, "check")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !strings.HasPrefix(out, "ok: 3 kitties") {
		t.Fatalf("unexpected check output %q", out)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	dir := setupEnv(t)
	if _, err := run(t, "replay", writeScenario(t, dir)); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if _, err := run(t, "export", "--block", "2"); err != nil {
		t.Fatalf("export: %v", err)
	}
	if _, err := run(t, "export", "--block", "2"); err == nil {
		t.Fatalf("expected re-export of the same block to fail")
	}

	// Point at an empty database and restore into it.
	t.Setenv("KITTYCORE_SQLITE_PATH", filepath.Join(dir, "restored.db"))
	out, err := run(t, "import")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out, "restored block 2 (3 kitties)") {
		t.Fatalf("unexpected import output %q", out)
	}
	out, err = run(t, "inspect", "2")
	if err != nil {
		t.Fatalf("inspect restored: %v", err)
	}
	var kitty kittyView
	if err := json.Unmarshal([]byte(out), &kitty); err != nil {
		t.Fatalf("decode kitty: %v", err)
	}
	if kitty.Owner != "alice" {
		t.Fatalf("expected restored kitty 2 to belong to alice, got %+v", kitty)
	}
	if _, err := run(t, "import", "--block", "9"); err == nil {
		t.Fatalf("expected unknown block to fail")
	}
}

func TestInvalidConfigurationFails(t *testing.T) {
	setupEnv(t)
	t.Setenv("KITTYCORE_STORAGE_DRIVER", "etcd")
	if _, err := run(t, "check"); err == nil {
		t.Fatalf("expected unknown storage driver to fail")
	}
}

func TestJSONTraceExporter(t *testing.T) {
	dir := setupEnv(t)
	t.Setenv("KITTYCORE_TRACE_EXPORTER", "json")
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs([]string{"replay", writeScenario(t, dir)})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if got := strings.Count(stderr.String(), `"operation":`); got != 6 {
		t.Fatalf("expected 6 spans on stderr, got %d:\n%s", got, stderr.String())
	}
}

func TestDecodeScenarioRejectsUnknownFields(t *testing.T) {
	if _, err := decodeScenario(strings.NewReader("blocks: []\nunknown: 1\n")); err == nil {
		t.Fatalf("expected unknown field to fail")
	}
	if _, err := decodeScenario(strings.NewReader("blocks:\n  - number: 2\n  - number: 1\n")); err == nil {
		t.Fatalf("expected out of order blocks to fail")
	}
	if _, err := decodeScenario(strings.NewReader("seed: zz\n")); err == nil {
		t.Fatalf("expected bad seed to fail")
	}
}
