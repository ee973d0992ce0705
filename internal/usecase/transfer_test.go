package usecase

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tgup/internal/domain"
)

// fakeMessenger is a deterministic transport: configurable reported
// sizes, failures and history.
type fakeMessenger struct {
	sends   []domain.SendRequest
	albums  [][]domain.SendRequest
	sendErr error
	// remoteSize overrides the document size reported back by the
	// server; zero echoes the local file size.
	remoteSize int64
	fileID     string

	history     []domain.RemoteMessage
	downloads   []int
	downloadErr error
	deletes     [][]int
	forwards    []forwardCall

	progressFeed []int64
}

type forwardCall struct {
	to  domain.Entity
	ids []int
}

func (m *fakeMessenger) reported(f domain.File) int64 {
	if m.remoteSize != 0 {
		return m.remoteSize
	}
	return f.FileSize
}

func (m *fakeMessenger) SendFile(_ context.Context, _ domain.Entity, req domain.SendRequest, progress domain.ProgressFunc) (domain.RemoteMessage, error) {
	m.sends = append(m.sends, req)
	if m.sendErr != nil {
		return domain.RemoteMessage{}, m.sendErr
	}
	for _, current := range m.progressFeed {
		progress(current, req.File.FileSize)
	}
	return domain.RemoteMessage{
		ID:       len(m.sends),
		Document: true,
		Name:     req.File.FileName,
		Size:     m.reported(req.File),
		FileID:   m.fileID,
	}, nil
}

func (m *fakeMessenger) SendAlbum(_ context.Context, _ domain.Entity, reqs []domain.SendRequest, _ domain.ProgressFunc) ([]domain.RemoteMessage, error) {
	m.albums = append(m.albums, reqs)
	if m.sendErr != nil {
		return nil, m.sendErr
	}
	msgs := make([]domain.RemoteMessage, len(reqs))
	for i, req := range reqs {
		msgs[i] = domain.RemoteMessage{
			ID:       len(m.albums)*1000 + i,
			Document: true,
			Name:     req.File.FileName,
			Size:     m.reported(req.File),
		}
	}
	return msgs, nil
}

func (m *fakeMessenger) DownloadMedia(_ context.Context, _ domain.Entity, msg domain.RemoteMessage, dir string, _ domain.ProgressFunc) (string, error) {
	if m.downloadErr != nil {
		return "", m.downloadErr
	}
	m.downloads = append(m.downloads, msg.ID)
	return dir + "/" + msg.DisplayName(), nil
}

func (m *fakeMessenger) IterMessages(_ context.Context, _ domain.Entity) domain.MessageIter {
	return &sliceIter{msgs: m.history}
}

func (m *fakeMessenger) ForwardMessages(_ context.Context, to domain.Entity, _ domain.Entity, ids []int) error {
	m.forwards = append(m.forwards, forwardCall{to: to, ids: ids})
	return nil
}

func (m *fakeMessenger) DeleteMessages(_ context.Context, _ domain.Entity, ids []int) error {
	m.deletes = append(m.deletes, ids)
	return nil
}

type sliceIter struct {
	msgs []domain.RemoteMessage
	pos  int
}

func (it *sliceIter) Next(_ context.Context) bool {
	if it.pos >= len(it.msgs) {
		return false
	}
	it.pos++
	return true
}

func (it *sliceIter) Value() domain.RemoteMessage { return it.msgs[it.pos-1] }
func (it *sliceIter) Err() error                  { return nil }

type fakeHandle struct {
	label    string
	name     string
	total    int64
	updates  []int64
	finishes int
}

func (h *fakeHandle) Update(current int64) { h.updates = append(h.updates, current) }
func (h *fakeHandle) Finish()              { h.finishes++ }

type fakeReporter struct {
	handles []*fakeHandle
}

func (r *fakeReporter) Begin(label, name string, total int64) domain.ProgressHandle {
	h := &fakeHandle{label: label, name: name, total: total}
	r.handles = append(r.handles, h)
	return h
}

type fakeFS struct {
	free      int64
	freeCalls int
	removed   []string
	removeErr error
}

func (f *fakeFS) Remove(path string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removed = append(f.removed, path)
	return nil
}

func (f *fakeFS) FreeSpace(string) (int64, error) {
	f.freeCalls++
	return f.free, nil
}

type fakeSniffer struct {
	thumb   *domain.Thumbnail
	attrErr error
}

func (s *fakeSniffer) Attributes(file domain.File) (domain.Attributes, error) {
	if s.attrErr != nil {
		return domain.Attributes{}, s.attrErr
	}
	return domain.Attributes{FileName: file.FileName, Media: &domain.MediaInfo{MIME: "video/mp4"}}, nil
}

func (s *fakeSniffer) Thumbnail(domain.File) (*domain.Thumbnail, error) {
	return s.thumb, nil
}

type fixture struct {
	msgr     *fakeMessenger
	fs       *fakeFS
	sniffer  *fakeSniffer
	reporter *fakeReporter
	out      *bytes.Buffer
	engine   *Transferer
}

func newFixture() *fixture {
	f := &fixture{
		msgr:     &fakeMessenger{},
		fs:       &fakeFS{free: 1 << 40},
		sniffer:  &fakeSniffer{},
		reporter: &fakeReporter{},
		out:      &bytes.Buffer{},
	}
	f.engine = NewTransferer(f.msgr, f.fs, f.sniffer, f.reporter, zap.NewNop())
	f.engine.SetOut(f.out)
	return f
}

func docFile(name string, size int64) domain.File {
	return domain.File{
		Path:      "/data/" + name,
		FileName:  name,
		FileSize:  size,
		ShortName: strings.TrimSuffix(name, ".bin"),
		Kind:      domain.KindDocument,
	}
}

func TestSendFilesPreservesOrder(t *testing.T) {
	f := newFixture()
	files := []domain.File{docFile("a.bin", 1), docFile("b.bin", 2), docFile("c.bin", 3)}

	require.NoError(t, f.engine.SendFiles(context.Background(), "me", files, SendOptions{}))

	require.Len(t, f.msgr.sends, 3)
	for i, file := range files {
		assert.Equal(t, file.FileName, f.msgr.sends[i].File.FileName)
	}
}

func TestSendFilesEmptyInput(t *testing.T) {
	f := newFixture()

	err := f.engine.SendFiles(context.Background(), "me", nil, SendOptions{})

	assert.ErrorIs(t, err, domain.ErrMissingFiles)
	assert.Empty(t, f.msgr.sends, "no network calls for an empty file list")
	assert.Empty(t, f.reporter.handles)
}

func TestSendFilesDataLoss(t *testing.T) {
	f := newFixture()
	f.msgr.remoteSize = 150

	err := f.engine.SendFiles(context.Background(), "me", []domain.File{docFile("a.bin", 100)}, SendOptions{DeleteOnSuccess: true})

	var loss *domain.DataLossError
	require.True(t, errors.As(err, &loss))
	assert.Equal(t, int64(100), loss.Expected)
	assert.Equal(t, int64(150), loss.Actual)
	assert.Empty(t, f.fs.removed, "delete-on-success must not fire on a corrupted unit")
	assert.Empty(t, f.msgr.forwards)
	require.Len(t, f.reporter.handles, 1)
	assert.Equal(t, 1, f.reporter.handles[0].finishes)
}

func TestSendFilesFinishOnTransportError(t *testing.T) {
	f := newFixture()
	f.msgr.sendErr = errors.New("FLOOD_WAIT")

	err := f.engine.SendFiles(context.Background(), "me", []domain.File{docFile("a.bin", 10)}, SendOptions{})

	require.ErrorContains(t, err, "FLOOD_WAIT")
	require.Len(t, f.reporter.handles, 1)
	assert.Equal(t, 1, f.reporter.handles[0].finishes, "handle must be released exactly once even on failure")
}

func TestSendFilesHaltsOnFirstFailure(t *testing.T) {
	f := newFixture()
	f.msgr.sendErr = errors.New("boom")

	err := f.engine.SendFiles(context.Background(), "me", []domain.File{docFile("a.bin", 1), docFile("b.bin", 2)}, SendOptions{})

	require.Error(t, err)
	assert.Len(t, f.msgr.sends, 1, "remaining units must not run after a failure")
}

func TestSendFilesProgressStream(t *testing.T) {
	f := newFixture()
	f.msgr.progressFeed = []int64{25, 50, 100}

	require.NoError(t, f.engine.SendFiles(context.Background(), "me", []domain.File{docFile("a.bin", 100)}, SendOptions{}))

	require.Len(t, f.reporter.handles, 1)
	h := f.reporter.handles[0]
	assert.Equal(t, "Uploading", h.label)
	assert.Equal(t, "a.bin", h.name)
	assert.Equal(t, int64(100), h.total)
	assert.Equal(t, []int64{25, 50, 100}, h.updates)
}

func TestSendFilesRemovesGeneratedThumbOnFailure(t *testing.T) {
	f := newFixture()
	f.sniffer.thumb = &domain.Thumbnail{Path: "/tmp/thumb.jpg", Generated: true}
	f.msgr.sendErr = errors.New("boom")

	_ = f.engine.SendFiles(context.Background(), "me", []domain.File{docFile("a.bin", 10)}, SendOptions{})

	assert.Contains(t, f.fs.removed, "/tmp/thumb.jpg")
}

func TestSendFilesKeepsCallerThumb(t *testing.T) {
	f := newFixture()
	f.sniffer.thumb = &domain.Thumbnail{Path: "/home/user/cover.jpg", Generated: false}

	require.NoError(t, f.engine.SendFiles(context.Background(), "me", []domain.File{docFile("a.bin", 10)}, SendOptions{}))

	assert.Empty(t, f.fs.removed, "caller-supplied thumbnails are never deleted")
}

func TestSendFilesCaption(t *testing.T) {
	f := newFixture()
	files := []domain.File{docFile("report.bin", 10)}

	require.NoError(t, f.engine.SendFiles(context.Background(), "me", files, SendOptions{}))
	require.NoError(t, f.engine.SendFiles(context.Background(), "me", files, SendOptions{Caption: "explicit"}))

	assert.Equal(t, "report", f.msgr.sends[0].Caption, "short name is the default caption")
	assert.Equal(t, "explicit", f.msgr.sends[1].Caption)
}

func TestSendFilesForceDocumentSkipsSniffer(t *testing.T) {
	f := newFixture()
	media := domain.File{Path: "/data/clip.mp4", FileName: "clip.mp4", FileSize: 10, ShortName: "clip", Kind: domain.KindMedia}

	require.NoError(t, f.engine.SendFiles(context.Background(), "me", []domain.File{media}, SendOptions{ForceDocument: true}))

	req := f.msgr.sends[0]
	assert.Nil(t, req.Attributes.Media, "forced documents carry a filename attribute only")
	assert.Equal(t, int64(10), req.DeclaredSize)
}

func TestSendFilesMediaAttributes(t *testing.T) {
	f := newFixture()
	media := domain.File{Path: "/data/clip.mp4", FileName: "clip.mp4", FileSize: 10, ShortName: "clip", Kind: domain.KindMedia}

	require.NoError(t, f.engine.SendFiles(context.Background(), "me", []domain.File{media}, SendOptions{}))

	req := f.msgr.sends[0]
	require.NotNil(t, req.Attributes.Media)
	assert.Zero(t, req.DeclaredSize, "media items let the protocol infer the size")
}

func TestSendFilesPrintFileID(t *testing.T) {
	f := newFixture()
	f.msgr.fileID = "AgADBAAD"

	require.NoError(t, f.engine.SendFiles(context.Background(), "me", []domain.File{docFile("a.bin", 10)}, SendOptions{PrintFileID: true}))

	assert.Contains(t, f.out.String(), `Uploaded successfully "a.bin" (file_id AgADBAAD)`)
}

func TestSendFilesDeleteOnSuccess(t *testing.T) {
	f := newFixture()

	require.NoError(t, f.engine.SendFiles(context.Background(), "me", []domain.File{docFile("a.bin", 10)}, SendOptions{DeleteOnSuccess: true}))

	assert.Equal(t, []string{"/data/a.bin"}, f.fs.removed)
	assert.Contains(t, f.out.String(), `Deleting "a.bin"`)
}

func TestSendFilesForwardOrder(t *testing.T) {
	f := newFixture()
	opts := SendOptions{Forward: []domain.Entity{"@first", "@second"}}

	require.NoError(t, f.engine.SendFiles(context.Background(), "me", []domain.File{docFile("a.bin", 10)}, opts))

	require.Len(t, f.msgr.forwards, 2)
	assert.Equal(t, domain.Entity("@first"), f.msgr.forwards[0].to)
	assert.Equal(t, domain.Entity("@second"), f.msgr.forwards[1].to)
}

func TestSendFilesAsAlbumGroups(t *testing.T) {
	f := newFixture()
	files := make([]domain.File, 25)
	for i := range files {
		files[i] = docFile("f"+strings.Repeat("x", i)+".bin", 10)
	}

	require.NoError(t, f.engine.SendFilesAsAlbum(context.Background(), "me", files, SendOptions{}))

	require.Len(t, f.msgr.albums, 3)
	assert.Len(t, f.msgr.albums[0], 10)
	assert.Len(t, f.msgr.albums[1], 10)
	assert.Len(t, f.msgr.albums[2], 5)
	assert.Equal(t, files[0].FileName, f.msgr.albums[0][0].File.FileName)
	assert.Equal(t, files[24].FileName, f.msgr.albums[2][4].File.FileName)
}

func TestSendFilesAsAlbumEmptyInput(t *testing.T) {
	f := newFixture()

	err := f.engine.SendFilesAsAlbum(context.Background(), "me", nil, SendOptions{})

	assert.ErrorIs(t, err, domain.ErrMissingFiles)
	assert.Empty(t, f.msgr.albums)
}

func TestSendFilesAsAlbumDataLoss(t *testing.T) {
	f := newFixture()
	f.msgr.remoteSize = 99

	err := f.engine.SendFilesAsAlbum(context.Background(), "me", []domain.File{docFile("a.bin", 10)}, SendOptions{DeleteOnSuccess: true})

	var loss *domain.DataLossError
	require.True(t, errors.As(err, &loss))
	assert.Empty(t, f.fs.removed)
}

func TestFindFilesStopsAtFirstNonDocument(t *testing.T) {
	f := newFixture()
	f.msgr.history = []domain.RemoteMessage{
		{ID: 4, Document: true, Name: "new.bin"},
		{ID: 3, Document: true, Name: "newer.bin"},
		{ID: 2, Document: false},
		{ID: 1, Document: true, Name: "old.bin"},
	}

	iter := f.engine.FindFiles(context.Background(), "me")
	var found []int
	for iter.Next(context.Background()) {
		found = append(found, iter.Value().ID)
	}

	require.NoError(t, iter.Err())
	assert.Equal(t, []int{4, 3}, found, "the scan must stop at the first non-document message")
}

func TestDownloadFilesReverseOrder(t *testing.T) {
	f := newFixture()
	msgs := []domain.RemoteMessage{
		{ID: 3, Document: true, Name: "c.bin", Size: 10},
		{ID: 2, Document: true, Name: "b.bin", Size: 10},
		{ID: 1, Document: true, Name: "a.bin", Size: 10},
	}

	require.NoError(t, f.engine.DownloadFiles(context.Background(), "me", msgs, false))

	assert.Equal(t, []int{1, 2, 3}, f.msgr.downloads, "oldest of the batch downloads first")
	assert.Empty(t, f.msgr.deletes)
}

func TestDownloadFilesDeleteOnSuccess(t *testing.T) {
	f := newFixture()
	msgs := []domain.RemoteMessage{
		{ID: 2, Document: true, Name: "b.bin", Size: 10},
		{ID: 1, Document: true, Name: "a.bin", Size: 10},
	}

	require.NoError(t, f.engine.DownloadFiles(context.Background(), "me", msgs, true))

	assert.Equal(t, [][]int{{1}, {2}}, f.msgr.deletes)
}

func TestDownloadFilesInsufficientSpace(t *testing.T) {
	f := newFixture()
	f.fs.free = 500000
	msgs := []domain.RemoteMessage{{ID: 1, Document: true, Name: "big.bin", Size: 1000000}}

	err := f.engine.DownloadFiles(context.Background(), "me", msgs, false)

	var space *domain.InsufficientSpaceError
	require.True(t, errors.As(err, &space))
	assert.Equal(t, int64(1000000), space.Required)
	assert.Equal(t, int64(500000), space.Available)
	assert.Empty(t, f.msgr.downloads, "the check runs before any write begins")
}

func TestDownloadFilesRechecksSpacePerFile(t *testing.T) {
	f := newFixture()
	msgs := []domain.RemoteMessage{
		{ID: 3, Document: true, Size: 10},
		{ID: 2, Document: true, Size: 10},
		{ID: 1, Document: true, Size: 10},
	}

	require.NoError(t, f.engine.DownloadFiles(context.Background(), "me", msgs, false))

	assert.Equal(t, 3, f.fs.freeCalls, "free space is never cached across files")
}

func TestDownloadFilesFinishOnFailure(t *testing.T) {
	f := newFixture()
	f.msgr.downloadErr = errors.New("timeout")
	msgs := []domain.RemoteMessage{{ID: 1, Document: true, Size: 10}}

	err := f.engine.DownloadFiles(context.Background(), "me", msgs, true)

	require.Error(t, err)
	require.Len(t, f.reporter.handles, 1)
	assert.Equal(t, 1, f.reporter.handles[0].finishes)
	assert.Empty(t, f.msgr.deletes, "remote delete must not fire after a failed download")
}

func TestDownloadFilesUnknownName(t *testing.T) {
	f := newFixture()
	msgs := []domain.RemoteMessage{{ID: 1, Document: true, Size: 10}}

	require.NoError(t, f.engine.DownloadFiles(context.Background(), "me", msgs, false))

	require.Len(t, f.reporter.handles, 1)
	assert.Equal(t, "Unknown", f.reporter.handles[0].name)
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("a", 210)

	got := Truncate(long, 200)

	assert.Len(t, []rune(got), 200)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, "short", Truncate("short", 200))
}
