package publish

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cargohold/cargohold/internal/crates"
)

// buildBody assembles a publish body from metadata JSON and blob bytes.
func buildBody(meta, blob []byte) []byte {
	body := make([]byte, 0, 8+len(meta)+len(blob))
	body = binary.LittleEndian.AppendUint32(body, uint32(len(meta)))
	body = append(body, meta...)
	body = binary.LittleEndian.AppendUint32(body, uint32(len(blob)))
	body = append(body, blob...)
	return body
}

func metadataJSON(t *testing.T, name, vers string) []byte {
	t.Helper()
	meta := crates.Metadata{Name: name, Vers: vers, Features: map[string][]string{}}
	raw, err := json.Marshal(meta)
	require.NoError(t, err)
	return raw
}

func TestDecodeValidBody(t *testing.T) {
	blob := []byte("the archive")
	body := buildBody(metadataJSON(t, "demo", "1.0.0"), blob)

	meta, gotBlob, cksum, err := Decode(body)
	require.NoError(t, err)
	assert.Equal(t, "demo", meta.Name)
	assert.Equal(t, "1.0.0", meta.Vers)
	assert.Equal(t, blob, gotBlob)

	digest := sha256.Sum256(blob)
	assert.Equal(t, hex.EncodeToString(digest[:]), cksum)
}

func TestDecodeEmptyBlob(t *testing.T) {
	body := buildBody(metadataJSON(t, "demo", "1.0.0"), nil)
	_, blob, cksum, err := Decode(body)
	require.NoError(t, err)
	assert.Empty(t, blob)
	digest := sha256.Sum256(nil)
	assert.Equal(t, hex.EncodeToString(digest[:]), cksum)
}

func TestDecodeBodyTooShort(t *testing.T) {
	meta := metadataJSON(t, "demo", "1.0.0")
	full := buildBody(meta, []byte("archive"))

	cases := [][]byte{
		nil,
		{},
		{1, 2, 3},
		full[:4+len(meta)],     // missing blob length
		full[:4+len(meta)+4+2], // truncated blob
	}
	for i, body := range cases {
		_, _, _, err := Decode(body)
		require.Error(t, err, "case %d", i)
		assert.Equal(t, crates.KindValidation, crates.KindOf(err), "case %d", i)
		assert.Equal(t, "body too short", crates.Detail(err), "case %d", i)
	}
}

func TestDecodeOversizedLengthPrefix(t *testing.T) {
	// A metadata length pointing far past the body must fail the bounds
	// check, not panic.
	body := make([]byte, 8)
	binary.LittleEndian.PutUint32(body, 0xFFFFFFFF)

	_, _, _, err := Decode(body)
	require.Error(t, err)
	assert.Equal(t, "body too short", crates.Detail(err))
}

func TestDecodeMalformedMetadata(t *testing.T) {
	body := buildBody([]byte("{not json"), []byte("blob"))
	_, _, _, err := Decode(body)
	require.Error(t, err)
	assert.Equal(t, crates.KindValidation, crates.KindOf(err))
}
