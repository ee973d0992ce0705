package telegram

import (
	"encoding/base64"
	"encoding/binary"
	"testing"

	"github.com/gotd/td/tg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackFileIDLayout(t *testing.T) {
	doc := &tg.Document{ID: 12345, AccessHash: -987654321, DCID: 2}

	packed := packFileID(doc)
	raw, err := base64.RawURLEncoding.DecodeString(packed)
	require.NoError(t, err)
	require.Len(t, raw, 24)

	assert.Equal(t, uint32(5), binary.LittleEndian.Uint32(raw[0:4]))
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(raw[4:8]))
	assert.Equal(t, int64(12345), int64(binary.LittleEndian.Uint64(raw[8:16])))
	assert.Equal(t, int64(-987654321), int64(binary.LittleEndian.Uint64(raw[16:24])))
}

func TestPackFileIDDeterministic(t *testing.T) {
	doc := &tg.Document{ID: 7, AccessHash: 9, DCID: 4}
	assert.Equal(t, packFileID(doc), packFileID(doc))

	other := &tg.Document{ID: 8, AccessHash: 9, DCID: 4}
	assert.NotEqual(t, packFileID(doc), packFileID(other))
}
