package crates

import (
	"encoding/json"
	"testing"
)

func TestDependencyPublishAliases(t *testing.T) {
	// Publish bodies spell req/package as version_req/explicit_name_in_toml.
	body := []byte(`{"name":"serde","version_req":"^1.0","features":[],"optional":false,"default_features":true,"target":null,"kind":"normal","registry":null,"explicit_name_in_toml":"serde_core"}`)

	var dep Dependency
	if err := json.Unmarshal(body, &dep); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if dep.Req != "^1.0" {
		t.Fatalf("expected aliased req, got %q", dep.Req)
	}
	if dep.Package == nil || *dep.Package != "serde_core" {
		t.Fatalf("expected aliased package rename, got %v", dep.Package)
	}
}

func TestDependencyCanonicalFieldsWin(t *testing.T) {
	body := []byte(`{"name":"serde","req":"^2.0","version_req":"^1.0","kind":"normal"}`)

	var dep Dependency
	if err := json.Unmarshal(body, &dep); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if dep.Req != "^2.0" {
		t.Fatalf("expected canonical req to win, got %q", dep.Req)
	}
}

func TestToPackageRecord(t *testing.T) {
	links := "foo-sys"
	meta := &Metadata{
		Name:     "demo",
		Vers:     "0.1.0",
		Deps:     []Dependency{{Name: "serde", Req: "^1.0", Kind: DependencyKindNormal}},
		Features: map[string][]string{"default": {}},
		Links:    &links,
	}

	record := meta.ToPackageRecord("deadbeef")
	if record.Cksum != "deadbeef" {
		t.Fatalf("checksum not carried over")
	}
	if record.Yanked {
		t.Fatalf("fresh record must not be yanked")
	}
	if record.V == nil || *record.V != 2 {
		t.Fatalf("expected schema version tag 2")
	}
	if record.Links == nil || *record.Links != links {
		t.Fatalf("links not carried over")
	}
}
