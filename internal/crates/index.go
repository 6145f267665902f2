package crates

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// IndexPrefix returns the sparse-index sharding prefix for a crate name:
// "1", "2" and "3/<first char>" for short names, "ab/cd" otherwise.
func IndexPrefix(name string) string {
	runes := []rune(name)
	switch len(runes) {
	case 0:
		return ""
	case 1:
		return "1"
	case 2:
		return "2"
	case 3:
		return fmt.Sprintf("3/%c", runes[0])
	default:
		return fmt.Sprintf("%c%c/%c%c", runes[0], runes[1], runes[2], runes[3])
	}
}

// EncodeIndex renders the entry as newline-delimited JSON, one PackageRecord
// per line, in stored (ascending semver) order.
func EncodeIndex(entry *CrateEntry) ([]byte, error) {
	var buf bytes.Buffer
	for _, version := range entry.Versions {
		line, err := json.Marshal(version.Package)
		if err != nil {
			return nil, Storagef(err, "could not encode version metadata")
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// DecodeIndex parses newline-delimited index JSON, as served by an upstream
// sparse index, into PackageRecords. Blank lines are skipped.
func DecodeIndex(data []byte) ([]PackageRecord, error) {
	var records []PackageRecord
	for _, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var record PackageRecord
		if err := json.Unmarshal(line, &record); err != nil {
			return nil, Validationf("could not parse index metadata: %v", err)
		}
		records = append(records, record)
	}
	return records, nil
}
