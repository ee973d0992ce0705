package domain

import (
	"errors"
	"fmt"
)

// ErrMissingFiles is returned when an upload call receives zero files.
// Uploading nothing is a caller error, not a no-op success.
var ErrMissingFiles = errors.New("files do not exist")

// ProxyConfigError reports a malformed or unsupported proxy
// specification. It is fatal to session start and never retried.
type ProxyConfigError struct {
	Spec   string
	Reason string
}

func (e *ProxyConfigError) Error() string {
	return fmt.Sprintf("invalid proxy %q: %s", e.Spec, e.Reason)
}

// DataLossError reports a size mismatch between the locally declared
// size and the size the server confirmed after an upload. It signals
// silent corruption in transit and is never retried.
type DataLossError struct {
	Expected int64
	Actual   int64
}

func (e *DataLossError) Error() string {
	return fmt.Sprintf("remote document size: %d bytes (local file size: %d bytes)", e.Actual, e.Expected)
}

// InsufficientSpaceError reports that a download needs more bytes than
// the target filesystem has free. It is raised before any write.
type InsufficientSpaceError struct {
	Name      string
	Required  int64
	Available int64
}

func (e *InsufficientSpaceError) Error() string {
	return fmt.Sprintf("no disk space to download %q: %d bytes required, %d available", e.Name, e.Required, e.Available)
}
