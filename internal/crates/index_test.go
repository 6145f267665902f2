package crates

import (
	"strings"
	"testing"
	"time"
)

func TestIndexPrefixSamples(t *testing.T) {
	cases := map[string]string{
		"a":     "1",
		"ab":    "2",
		"abc":   "3/a",
		"cargo": "ca/rg",
		"serde": "se/rd",
	}
	for name, want := range cases {
		if got := IndexPrefix(name); got != want {
			t.Fatalf("prefix for %q: expected %q got %q", name, want, got)
		}
	}
}

func TestEncodeDecodeIndexRoundTrip(t *testing.T) {
	target := "cfg(windows)"
	rename := "serde_renamed"
	registry := "https://example.com/index"
	links := "native-lib"
	v := 2

	record := PackageRecord{
		Name:  "demo",
		Vers:  "1.2.3",
		Cksum: "abc123",
		Deps: []Dependency{
			{Name: "serde", Req: "^1.0", Features: []string{"derive"}, DefaultFeatures: true, Kind: DependencyKindNormal, Package: &rename},
			{Name: "cc", Req: "^1", Kind: DependencyKindBuild, Optional: true, Registry: &registry},
			{Name: "rand", Req: "0.8", Kind: DependencyKindDev, Target: &target},
		},
		Features:  map[string][]string{"default": {"std"}},
		Yanked:    true,
		Links:     &links,
		V:         &v,
		Features2: map[string][]string{"extra": {"dep:serde"}},
	}
	entry := &CrateEntry{
		Versions:         []UploadedVersion{{Package: record}},
		TimeOfLastUpdate: time.Now().UTC(),
		IsLocal:          true,
	}

	encoded, err := EncodeIndex(entry)
	if err != nil {
		t.Fatalf("encode error: %v", err)
	}
	if !strings.HasSuffix(string(encoded), "\n") {
		t.Fatalf("expected trailing newline")
	}
	if strings.Count(string(encoded), "\n") != 1 {
		t.Fatalf("expected one line, got %q", string(encoded))
	}

	decoded, err := DecodeIndex(encoded)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(decoded) != 1 {
		t.Fatalf("expected one record, got %d", len(decoded))
	}

	got := decoded[0]
	if got.Name != record.Name || got.Vers != record.Vers || got.Cksum != record.Cksum || !got.Yanked {
		t.Fatalf("record fields mismatch: %+v", got)
	}
	if len(got.Deps) != 3 {
		t.Fatalf("expected 3 deps, got %d", len(got.Deps))
	}
	for i, dep := range record.Deps {
		if got.Deps[i].Kind != dep.Kind {
			t.Fatalf("dep %d kind mismatch: expected %s got %s", i, dep.Kind, got.Deps[i].Kind)
		}
		if got.Deps[i].Req != dep.Req {
			t.Fatalf("dep %d req mismatch", i)
		}
	}
	if got.Deps[0].Package == nil || *got.Deps[0].Package != rename {
		t.Fatalf("dep rename lost in round trip")
	}
	if got.Deps[2].Target == nil || *got.Deps[2].Target != target {
		t.Fatalf("dep target lost in round trip")
	}
	if got.Links == nil || *got.Links != links {
		t.Fatalf("links lost in round trip")
	}
	if got.V == nil || *got.V != 2 {
		t.Fatalf("schema version lost in round trip")
	}
}

func TestDecodeIndexSkipsBlankLines(t *testing.T) {
	body := []byte("\n{\"name\":\"a\",\"vers\":\"1.0.0\",\"deps\":[],\"cksum\":\"x\",\"features\":{},\"yanked\":false}\n\n")
	records, err := DecodeIndex(body)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(records) != 1 || records[0].Name != "a" {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestDecodeIndexRejectsGarbage(t *testing.T) {
	if _, err := DecodeIndex([]byte("not json\n")); err == nil {
		t.Fatalf("expected error for malformed index line")
	}
}
