package telegram

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"

	"github.com/gotd/td/tg"
)

// Bot API file type tag for plain documents.
const fileTypeDocument = 5

// packFileID encodes a document reference as an opaque, URL-safe
// identifier in the bot file id layout: type, dc, id, access hash,
// little endian.
func packFileID(doc *tg.Document) string {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint32(fileTypeDocument))
	binary.Write(&buf, binary.LittleEndian, uint32(doc.DCID))
	binary.Write(&buf, binary.LittleEndian, doc.ID)
	binary.Write(&buf, binary.LittleEndian, doc.AccessHash)
	return base64.RawURLEncoding.EncodeToString(buf.Bytes())
}
