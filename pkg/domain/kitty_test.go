package domain

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestGenomeTextEncoding(t *testing.T) {
	var g Genome
	g[0], g[15] = 0xAB, 0x01
	text, err := g.MarshalText()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(text) != "ab000000000000000000000000000001" || g.String() != string(text) {
		t.Fatalf("unexpected encoding %s", text)
	}
	parsed, err := ParseGenome(string(text))
	if err != nil || parsed != g {
		t.Fatalf("parse: %v %s", err, parsed)
	}

	payload, err := json.Marshal(Kitty{ID: 3, Genome: g})
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	if !strings.Contains(string(payload), `"ab000000`) {
		t.Fatalf("expected hex genome in %s", payload)
	}
}

func TestParseGenomeRejectsBadInput(t *testing.T) {
	for _, in := range []string{"", "abcd", strings.Repeat("zz", GenomeSize)} {
		if _, err := ParseGenome(in); err == nil {
			t.Fatalf("expected %q to fail", in)
		}
	}
}
