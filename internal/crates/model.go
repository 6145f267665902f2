package crates

import (
	"encoding/json"
	"time"
)

// DependencyKind distinguishes how a dependency participates in a build.
type DependencyKind string

const (
	DependencyKindNormal DependencyKind = "normal"
	DependencyKindBuild  DependencyKind = "build"
	DependencyKindDev    DependencyKind = "dev"
)

// Dependency is one edge of a package's dependency list, in the sparse-index
// wire shape. Registry clients match these fields by exact name, so the JSON
// tags are load-bearing.
type Dependency struct {
	Name            string         `json:"name"`
	Req             string         `json:"req"`
	Features        []string       `json:"features"`
	Optional        bool           `json:"optional"`
	DefaultFeatures bool           `json:"default_features"`
	Target          *string        `json:"target"`
	Kind            DependencyKind `json:"kind"`
	Registry        *string        `json:"registry"`
	Package         *string        `json:"package"`
}

// dependencyAlias carries the publish-body spellings of two fields that the
// index format names differently: cargo uploads `version_req` and
// `explicit_name_in_toml`, the index stores `req` and `package`.
type dependencyAlias struct {
	Name               string         `json:"name"`
	Req                string         `json:"req"`
	VersionReq         string         `json:"version_req"`
	Features           []string       `json:"features"`
	Optional           bool           `json:"optional"`
	DefaultFeatures    bool           `json:"default_features"`
	Target             *string        `json:"target"`
	Kind               DependencyKind `json:"kind"`
	Registry           *string        `json:"registry"`
	Package            *string        `json:"package"`
	ExplicitNameInToml *string        `json:"explicit_name_in_toml"`
}

// UnmarshalJSON accepts both the index spelling and the publish-body spelling
// of the aliased fields, preferring the canonical one when both are present.
func (d *Dependency) UnmarshalJSON(data []byte) error {
	var alias dependencyAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	req := alias.Req
	if req == "" {
		req = alias.VersionReq
	}
	pkg := alias.Package
	if pkg == nil {
		pkg = alias.ExplicitNameInToml
	}
	*d = Dependency{
		Name:            alias.Name,
		Req:             req,
		Features:        alias.Features,
		Optional:        alias.Optional,
		DefaultFeatures: alias.DefaultFeatures,
		Target:          alias.Target,
		Kind:            alias.Kind,
		Registry:        alias.Registry,
		Package:         pkg,
	}
	return nil
}

// PackageRecord is the canonical per-version record served line-by-line from
// the index. Cksum is always computed server-side from the stored blob.
type PackageRecord struct {
	Name      string              `json:"name"`
	Vers      string              `json:"vers"`
	Deps      []Dependency        `json:"deps"`
	Cksum     string              `json:"cksum"`
	Features  map[string][]string `json:"features"`
	Yanked    bool                `json:"yanked"`
	Links     *string             `json:"links"`
	V         *int                `json:"v"`
	Features2 map[string][]string `json:"features2"`
}

// UploadedVersion pairs an index record with the author-supplied publish
// metadata. Mirrored versions carry only the record.
type UploadedVersion struct {
	Package         PackageRecord `json:"pkg"`
	UploadMeta      *Metadata     `json:"upload_meta"`
	UploadTimestamp *time.Time    `json:"upload_timestamp"`
}

// CrateEntry is the full version history of one crate name plus the cache
// bookkeeping the mirror layer needs. Once IsLocal is set the entry is
// authoritative and no mirror fetch may touch it again.
type CrateEntry struct {
	Versions         []UploadedVersion `json:"versions"`
	TimeOfLastUpdate time.Time         `json:"time_of_last_update"`
	IsLocal          bool              `json:"is_local"`
}

// Metadata is the JSON document cargo sends in a publish body.
type Metadata struct {
	Name          string                       `json:"name"`
	Vers          string                       `json:"vers"`
	Deps          []Dependency                 `json:"deps"`
	Features      map[string][]string          `json:"features"`
	Authors       []string                     `json:"authors"`
	Description   *string                      `json:"description"`
	Documentation *string                      `json:"documentation"`
	Homepage      *string                      `json:"homepage"`
	Readme        *string                      `json:"readme"`
	ReadmeFile    *string                      `json:"readme_file"`
	Keywords      []string                     `json:"keywords"`
	Categories    []string                     `json:"categories"`
	License       *string                      `json:"license"`
	LicenseFile   *string                      `json:"license_file"`
	Repository    *string                      `json:"repository"`
	Badges        map[string]map[string]string `json:"badges"`
	Links         *string                      `json:"links"`
}

// indexSchemaVersion tags records that carry the v2 feature syntax.
const indexSchemaVersion = 2

// ToPackageRecord converts publish metadata into the index record for a fresh,
// non-yanked version with the given server-computed checksum.
func (m *Metadata) ToPackageRecord(cksum string) PackageRecord {
	v := indexSchemaVersion
	return PackageRecord{
		Name:     m.Name,
		Vers:     m.Vers,
		Deps:     m.Deps,
		Cksum:    cksum,
		Features: m.Features,
		Yanked:   false,
		Links:    m.Links,
		V:        &v,
	}
}
