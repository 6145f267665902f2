// Package publish implements the binary publish protocol and the version
// lifecycle rules (publish, yank, unyank) for locally hosted crates.
package publish

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"

	"github.com/cargohold/cargohold/internal/crates"
)

// Decode parses a publish body:
//
//	[u32 LE metadata_len][metadata JSON][u32 LE blob_len][blob]
//
// The body is attacker-controlled, so every length is bounds-checked before
// any slice is taken. It returns the decoded metadata, the blob and the hex
// SHA-256 checksum of the blob.
func Decode(body []byte) (*crates.Metadata, []byte, string, error) {
	if len(body) < 4 {
		return nil, nil, "", crates.Validationf("body too short")
	}
	metaLen := int(binary.LittleEndian.Uint32(body[:4]))
	blobLenOffset := 4 + metaLen

	if len(body) < blobLenOffset+4 {
		return nil, nil, "", crates.Validationf("body too short")
	}
	metaBytes := body[4:blobLenOffset]

	blobLen := int(binary.LittleEndian.Uint32(body[blobLenOffset : blobLenOffset+4]))
	blobOffset := blobLenOffset + 4
	if len(body) < blobOffset+blobLen {
		return nil, nil, "", crates.Validationf("body too short")
	}
	blob := body[blobOffset : blobOffset+blobLen]

	var meta crates.Metadata
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return nil, nil, "", crates.Validationf("could not parse crate metadata: %v", err)
	}

	digest := sha256.Sum256(blob)
	return &meta, blob, hex.EncodeToString(digest[:]), nil
}
