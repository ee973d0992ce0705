package usecase

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"

	"go.uber.org/zap"

	"tgup/internal/domain"
	"tgup/internal/pkg/batch"
)

const (
	// CaptionMaxLength is the longest caption sent with an upload,
	// counted in runes. Longer captions are truncated with an ellipsis.
	CaptionMaxLength = 200
	// AlbumSize is the number of files grouped into one album message.
	AlbumSize = 10
)

// SendOptions control the side effects of an upload call.
type SendOptions struct {
	// Caption overrides the per-file short name; empty means unset.
	Caption string
	// DeleteOnSuccess removes the local file after a verified upload.
	DeleteOnSuccess bool
	// PrintFileID reports the packed remote file identifier when the
	// uploaded item is a plain document.
	PrintFileID bool
	// ForceDocument sends media-typed files as plain documents.
	ForceDocument bool
	// Forward lists destinations the resulting message is forwarded to,
	// in order.
	Forward []domain.Entity
}

// Transferer orchestrates uploads and downloads against a Messenger.
// Files within one call are processed strictly one at a time, in input
// order; the transport is a scarce serial resource.
type Transferer struct {
	msgr     domain.Messenger
	fs       domain.FileSystem
	media    domain.MediaSniffer
	reporter domain.ProgressReporter
	guard    *SpaceGuard
	log      *zap.Logger
	out      io.Writer

	downloadDir string
}

func NewTransferer(msgr domain.Messenger, fs domain.FileSystem, media domain.MediaSniffer, reporter domain.ProgressReporter, log *zap.Logger) *Transferer {
	return &Transferer{
		msgr:        msgr,
		fs:          fs,
		media:       media,
		reporter:    reporter,
		guard:       NewSpaceGuard(fs, "."),
		log:         log,
		out:         os.Stdout,
		downloadDir: ".",
	}
}

// SetOut redirects the user-facing status lines.
func (t *Transferer) SetOut(w io.Writer) {
	t.out = w
}

// SetDownloadDir sets the directory downloads are written to and the
// filesystem the space preflight checks run against.
func (t *Transferer) SetDownloadDir(dir string) {
	t.downloadDir = dir
	t.guard = NewSpaceGuard(t.fs, dir)
}

// SendFiles uploads files one by one, in input order. The first failed
// unit aborts the call; a size mismatch reported by the server is
// surfaced as DataLossError and suppresses all side effects for that
// unit.
func (t *Transferer) SendFiles(ctx context.Context, to domain.Entity, files []domain.File, opts SendOptions) error {
	if len(files) == 0 {
		return domain.ErrMissingFiles
	}
	for _, file := range files {
		msg, err := t.sendOne(ctx, to, file, opts)
		if err != nil {
			return err
		}
		if err := t.afterUpload(ctx, to, file, msg, opts); err != nil {
			return err
		}
	}
	return nil
}

// sendOne performs a single upload attempt with scoped progress and
// thumbnail cleanup on every exit path.
func (t *Transferer) sendOne(ctx context.Context, to domain.Entity, file domain.File, opts SendOptions) (domain.RemoteMessage, error) {
	handle := t.reporter.Begin("Uploading", file.FileName, file.FileSize)

	var thumb *domain.Thumbnail
	defer func() { t.removeGeneratedThumb(thumb) }()
	defer handle.Finish()

	req, thumb, err := t.buildRequest(file, opts)
	if err != nil {
		return domain.RemoteMessage{}, err
	}

	msg, err := t.msgr.SendFile(ctx, to, req, func(current, _ int64) {
		handle.Update(current)
	})
	if err != nil {
		return domain.RemoteMessage{}, err
	}
	if msg.Size > 0 && msg.Size != file.FileSize {
		return domain.RemoteMessage{}, &domain.DataLossError{Expected: file.FileSize, Actual: msg.Size}
	}
	return msg, nil
}

func (t *Transferer) buildRequest(file domain.File, opts SendOptions) (domain.SendRequest, *domain.Thumbnail, error) {
	caption := opts.Caption
	if caption == "" {
		caption = file.ShortName
	}

	thumb, err := t.media.Thumbnail(file)
	if err != nil {
		// A broken thumbnail never fails the upload itself.
		t.log.Warn("thumbnail resolution failed", zap.String("file", file.FileName), zap.Error(err))
		thumb = nil
	}

	req := domain.SendRequest{
		File:          file,
		Thumb:         thumb,
		Caption:       Truncate(caption, CaptionMaxLength),
		ForceDocument: opts.ForceDocument,
	}

	if opts.ForceDocument || file.Kind == domain.KindDocument {
		req.Attributes = domain.Attributes{FileName: file.FileName}
		req.DeclaredSize = file.FileSize
		return req, thumb, nil
	}

	attrs, err := t.media.Attributes(file)
	if err != nil {
		return req, thumb, fmt.Errorf("failed to read attributes of %s: %w", file.FileName, err)
	}
	req.Attributes = attrs
	return req, thumb, nil
}

// removeGeneratedThumb deletes thumbnails the engine owns. Thumbnails
// supplied by the caller are never touched.
func (t *Transferer) removeGeneratedThumb(thumb *domain.Thumbnail) {
	if thumb == nil || !thumb.Generated {
		return
	}
	if err := t.fs.Remove(thumb.Path); err != nil {
		t.log.Warn("failed to remove generated thumbnail", zap.String("path", thumb.Path), zap.Error(err))
	}
}

// afterUpload runs the side effects of a confirmed, verified upload.
func (t *Transferer) afterUpload(ctx context.Context, to domain.Entity, file domain.File, msg domain.RemoteMessage, opts SendOptions) error {
	if opts.PrintFileID {
		if file.Kind == domain.KindDocument && msg.FileID != "" {
			fmt.Fprintf(t.out, "Uploaded successfully %q (file_id %s)\n", file.FileName, msg.FileID)
		} else {
			t.log.Warn("file id is not available for this upload", zap.String("file", file.FileName))
		}
	}
	if opts.DeleteOnSuccess {
		fmt.Fprintf(t.out, "Deleting %q\n", file.FileName)
		if err := t.fs.Remove(file.Path); err != nil {
			return fmt.Errorf("failed to delete %s: %w", file.Path, err)
		}
	}
	return t.ForwardTo(ctx, to, msg, opts.Forward)
}

// SendFilesAsAlbum uploads files as multi-attachment album messages of
// up to AlbumSize files each. A group fails or succeeds atomically at
// the protocol layer; the engine does not split a failed group into
// individual retries.
func (t *Transferer) SendFilesAsAlbum(ctx context.Context, to domain.Entity, files []domain.File, opts SendOptions) error {
	if len(files) == 0 {
		return domain.ErrMissingFiles
	}
	for group := range batch.Chunks(slices.Values(files), AlbumSize) {
		if err := t.sendGroup(ctx, to, group, opts); err != nil {
			return err
		}
	}
	return nil
}

func (t *Transferer) sendGroup(ctx context.Context, to domain.Entity, group []domain.File, opts SendOptions) error {
	msgs, err := t.sendAlbum(ctx, to, group, opts)
	if err != nil {
		return err
	}
	for i, file := range group {
		if err := t.afterUpload(ctx, to, file, msgs[i], opts); err != nil {
			return err
		}
	}
	return nil
}

func (t *Transferer) sendAlbum(ctx context.Context, to domain.Entity, group []domain.File, opts SendOptions) ([]domain.RemoteMessage, error) {
	var total int64
	for _, f := range group {
		total += f.FileSize
	}
	handle := t.reporter.Begin("Uploading", fmt.Sprintf("album of %d files", len(group)), total)

	reqs := make([]domain.SendRequest, 0, len(group))
	thumbs := make([]*domain.Thumbnail, 0, len(group))
	defer func() {
		for _, thumb := range thumbs {
			t.removeGeneratedThumb(thumb)
		}
	}()
	defer handle.Finish()

	for _, file := range group {
		req, thumb, err := t.buildRequest(file, opts)
		thumbs = append(thumbs, thumb)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}

	msgs, err := t.msgr.SendAlbum(ctx, to, reqs, func(current, _ int64) {
		handle.Update(current)
	})
	if err != nil {
		return nil, err
	}
	if len(msgs) != len(group) {
		return nil, fmt.Errorf("album send returned %d messages for %d files", len(msgs), len(group))
	}
	for i, file := range group {
		if msgs[i].Size > 0 && msgs[i].Size != file.FileSize {
			return nil, &domain.DataLossError{Expected: file.FileSize, Actual: msgs[i].Size}
		}
	}
	return msgs, nil
}

// FindFiles walks the conversation history newest first and yields
// messages carrying a document attachment, stopping at the first
// message without one. Uploads form a contiguous run at the head of the
// history, so the scan identifies the last uploaded batch without
// walking the whole conversation.
func (t *Transferer) FindFiles(ctx context.Context, from domain.Entity) domain.MessageIter {
	return &documentRun{inner: t.msgr.IterMessages(ctx, from)}
}

type documentRun struct {
	inner   domain.MessageIter
	stopped bool
}

func (r *documentRun) Next(ctx context.Context) bool {
	if r.stopped || !r.inner.Next(ctx) {
		return false
	}
	if !r.inner.Value().Document {
		r.stopped = true
		return false
	}
	return true
}

func (r *documentRun) Value() domain.RemoteMessage { return r.inner.Value() }
func (r *documentRun) Err() error                  { return r.inner.Err() }

// DownloadFiles downloads the documents of messages in reverse of the
// order received, so that sequential downloads restore the original
// upload order. Free disk space is re-checked before every file.
func (t *Transferer) DownloadFiles(ctx context.Context, from domain.Entity, messages []domain.RemoteMessage, deleteOnSuccess bool) error {
	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]
		if err := t.downloadOne(ctx, from, msg); err != nil {
			return err
		}
		if deleteOnSuccess {
			if err := t.msgr.DeleteMessages(ctx, from, []int{msg.ID}); err != nil {
				return fmt.Errorf("failed to delete message %d: %w", msg.ID, err)
			}
		}
	}
	return nil
}

func (t *Transferer) downloadOne(ctx context.Context, from domain.Entity, msg domain.RemoteMessage) error {
	name := msg.DisplayName()
	if err := t.guard.Ensure(name, msg.Size); err != nil {
		return err
	}

	handle := t.reporter.Begin("Downloading", name, msg.Size)
	defer handle.Finish()

	_, err := t.msgr.DownloadMedia(ctx, from, msg, t.downloadDir, func(current, _ int64) {
		handle.Update(current)
	})
	return err
}

// ForwardTo forwards one message to each destination in order. Errors
// propagate; forwarding is never silently swallowed.
func (t *Transferer) ForwardTo(ctx context.Context, from domain.Entity, msg domain.RemoteMessage, destinations []domain.Entity) error {
	for _, dst := range destinations {
		if err := t.msgr.ForwardMessages(ctx, dst, from, []int{msg.ID}); err != nil {
			return fmt.Errorf("failed to forward message %d to %s: %w", msg.ID, dst, err)
		}
	}
	return nil
}

// Truncate shortens text to at most max runes, marking the cut with an
// ellipsis.
func Truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max-3]) + "..."
}
