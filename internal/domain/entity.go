package domain

import (
	"net"
	"strconv"
)

// Entity references the remote conversation a transfer reads from or
// writes to: "me", an @username, or a numeric chat/channel ID.
type Entity string

// FileKind is decided once when the File is constructed, never
// re-derived at the call site.
type FileKind int

const (
	// KindDocument is an opaque byte blob sent with a filename
	// attribute only; the declared size is passed to the protocol.
	KindDocument FileKind = iota
	// KindMedia is a type-sniffed media item; the protocol infers its
	// size and full media attributes apply.
	KindMedia
)

// Thumbnail is an optional preview image attached to an upload.
// Generated thumbnails are owned by the engine and removed after the
// send attempt; caller-supplied ones are never touched.
type Thumbnail struct {
	Path      string
	Generated bool
}

// File is a local upload candidate. It is immutable during transfer.
type File struct {
	Path      string
	FileName  string
	FileSize  int64
	ShortName string
	Kind      FileKind
}

// MediaInfo carries the media attributes sniffed for KindMedia files.
// Duration is in seconds.
type MediaInfo struct {
	MIME     string
	Duration float64
	Width    int
	Height   int
	Voice    bool
}

// Attributes is the attribute set handed to the protocol for an upload.
// Media is nil for plain documents.
type Attributes struct {
	FileName string
	Media    *MediaInfo
}

// RemoteMessage is a message in the conversation history, as far as the
// engine cares about it: its ID, whether it carries a document
// attachment, and the document's name and size.
type RemoteMessage struct {
	ID       int
	Document bool
	Name     string
	Size     int64
	// FileID is the packed remote file identifier, set by the protocol
	// adapter when derivable.
	FileID string
}

// DisplayName returns the document's filename attribute, or "Unknown"
// when the message has none.
func (m RemoteMessage) DisplayName() string {
	if m.Name == "" {
		return "Unknown"
	}
	return m.Name
}

// ProxyKind tags the ProxySpec variant.
type ProxyKind int

const (
	ProxyNone ProxyKind = iota
	ProxyMTProxy
	ProxyHTTP
	ProxySOCKS4
	ProxySOCKS5
)

// ProxySpec is the parsed proxy configuration. A well-formed proxy
// string always carries scheme, host and port; Secret is only set for
// MTProxy, Username/Password/TLS only for the generic variants.
type ProxySpec struct {
	Kind     ProxyKind
	Host     string
	Port     int
	Secret   string
	Username string
	Password string
	TLS      bool
}

// Addr returns the host:port pair of the proxy endpoint.
func (p ProxySpec) Addr() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}
