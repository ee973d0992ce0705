package domain

import "context"

// ProgressFunc is invoked synchronously from inside the blocking
// transfer call with the bytes moved so far. It must not block.
type ProgressFunc func(current, total int64)

// ProgressHandle tracks one named transfer. Finish must be called
// exactly once per handle, on success and failure alike.
type ProgressHandle interface {
	Update(current int64)
	Finish()
}

// ProgressReporter binds a named operation to an observable progress
// stream. Rendering failures are non-fatal to the transfer.
type ProgressReporter interface {
	Begin(label, name string, total int64) ProgressHandle
}

// SendRequest is one upload unit handed to the protocol.
type SendRequest struct {
	File    File
	Thumb   *Thumbnail
	Caption string
	// ForceDocument disables server-side media conversion.
	ForceDocument bool
	Attributes    Attributes
	// DeclaredSize is passed to the protocol for plain documents; zero
	// lets the protocol infer the size (media items).
	DeclaredSize int64
}

// MessageIter walks conversation history, newest first.
type MessageIter interface {
	Next(ctx context.Context) bool
	Value() RemoteMessage
	Err() error
}

// Messenger is the protocol capability set the engine consumes.
// Implementations own connection handling, authentication and the wire
// encoding; errors they return propagate through the engine unchanged.
type Messenger interface {
	SendFile(ctx context.Context, to Entity, req SendRequest, progress ProgressFunc) (RemoteMessage, error)
	SendAlbum(ctx context.Context, to Entity, reqs []SendRequest, progress ProgressFunc) ([]RemoteMessage, error)
	DownloadMedia(ctx context.Context, from Entity, msg RemoteMessage, dir string, progress ProgressFunc) (string, error)
	IterMessages(ctx context.Context, from Entity) MessageIter
	ForwardMessages(ctx context.Context, to Entity, from Entity, ids []int) error
	DeleteMessages(ctx context.Context, from Entity, ids []int) error
}

// MediaSniffer extracts upload attributes and thumbnails for local
// files. Attribute computation itself lives outside the engine.
type MediaSniffer interface {
	Attributes(file File) (Attributes, error)
	Thumbnail(file File) (*Thumbnail, error)
}

// FileSystem is the slice of local filesystem behavior the engine
// needs: post-upload deletion and free-space preflight checks.
type FileSystem interface {
	Remove(path string) error
	FreeSpace(dir string) (int64, error)
}
