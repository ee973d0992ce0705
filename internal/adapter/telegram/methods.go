package telegram

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"mime"
	"os"
	"path/filepath"
	"sort"

	"github.com/gotd/td/telegram/downloader"
	"github.com/gotd/td/telegram/message"
	"github.com/gotd/td/telegram/message/styling"
	"github.com/gotd/td/telegram/uploader"
	"github.com/gotd/td/tg"

	"tgup/internal/domain"
)

// chunkProgress adapts the engine's progress callback to the gotd
// uploader hook. offset shifts the reported position for album sends
// that span multiple files.
type chunkProgress struct {
	fn     domain.ProgressFunc
	offset int64
	total  int64
}

func (p chunkProgress) Chunk(_ context.Context, state uploader.ProgressState) error {
	if p.fn != nil {
		total := p.total
		if total == 0 {
			total = state.Total
		}
		p.fn(p.offset+state.Uploaded, total)
	}
	return nil
}

func (c *Client) newUploader(p chunkProgress) *uploader.Uploader {
	return uploader.NewUploader(c.api).
		WithPartSize(uploadPartSize).
		WithProgress(p)
}

// SendFile uploads one file and sends it as a document message.
func (c *Client) SendFile(ctx context.Context, to domain.Entity, req domain.SendRequest, progress domain.ProgressFunc) (domain.RemoteMessage, error) {
	peer, err := c.resolvePeer(ctx, to)
	if err != nil {
		return domain.RemoteMessage{}, err
	}

	media, err := c.buildDocument(ctx, req, chunkProgress{fn: progress})
	if err != nil {
		return domain.RemoteMessage{}, err
	}

	updates, err := c.sender.To(peer).Media(ctx, media)
	if err != nil {
		return domain.RemoteMessage{}, err
	}

	msgs := messagesFromUpdates(updates)
	if len(msgs) == 0 {
		return domain.RemoteMessage{}, fmt.Errorf("server did not return the sent message")
	}
	return c.remoteFromMessage(msgs[0]), nil
}

// SendAlbum uploads the group and sends it as one multi-attachment
// message. The group succeeds or fails as a whole.
func (c *Client) SendAlbum(ctx context.Context, to domain.Entity, reqs []domain.SendRequest, progress domain.ProgressFunc) ([]domain.RemoteMessage, error) {
	if len(reqs) == 0 {
		return nil, fmt.Errorf("empty album group")
	}
	peer, err := c.resolvePeer(ctx, to)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, req := range reqs {
		total += req.File.FileSize
	}

	var (
		opts []message.MultiMediaOption
		sent int64
	)
	for _, req := range reqs {
		media, err := c.buildDocument(ctx, req, chunkProgress{fn: progress, offset: sent, total: total})
		if err != nil {
			return nil, err
		}
		opts = append(opts, media)
		sent += req.File.FileSize
	}

	updates, err := c.sender.To(peer).Album(ctx, opts[0], opts[1:]...)
	if err != nil {
		return nil, err
	}

	msgs := messagesFromUpdates(updates)
	if len(msgs) < len(reqs) {
		return nil, fmt.Errorf("server returned %d messages for an album of %d", len(msgs), len(reqs))
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].ID < msgs[j].ID })

	out := make([]domain.RemoteMessage, len(reqs))
	for i := range reqs {
		out[i] = c.remoteFromMessage(msgs[i])
	}
	return out, nil
}

// buildDocument uploads the file (and its thumbnail, if any) and
// assembles the outgoing media.
func (c *Client) buildDocument(ctx context.Context, req domain.SendRequest, p chunkProgress) (*message.UploadedDocumentBuilder, error) {
	up := c.newUploader(p)
	f, err := up.FromPath(ctx, req.File.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", req.File.Path, err)
	}

	doc := message.UploadedDocument(f, styling.Plain(req.Caption)).
		Filename(req.Attributes.FileName).
		MIME(mimeFor(req))

	if req.ForceDocument {
		doc = doc.ForceFile(true)
	}

	if req.Thumb != nil {
		thumbUploader := uploader.NewUploader(c.api).WithPartSize(uploadPartSize)
		tf, err := thumbUploader.FromPath(ctx, req.Thumb.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to upload thumbnail %s: %w", req.Thumb.Path, err)
		}
		doc = doc.Thumb(tf)
	}

	if attrs := mediaAttributes(req.Attributes.Media); len(attrs) > 0 {
		doc = doc.Attributes(attrs...)
	}

	return doc, nil
}

func mimeFor(req domain.SendRequest) string {
	if m := req.Attributes.Media; m != nil && m.MIME != "" {
		return m.MIME
	}
	if t := mime.TypeByExtension(filepath.Ext(req.File.FileName)); t != "" {
		return t
	}
	return "application/octet-stream"
}

func mediaAttributes(m *domain.MediaInfo) []tg.DocumentAttributeClass {
	if m == nil {
		return nil
	}
	var attrs []tg.DocumentAttributeClass
	switch {
	case m.Width > 0 || m.Height > 0:
		attrs = append(attrs, &tg.DocumentAttributeVideo{
			Duration: m.Duration,
			W:        m.Width,
			H:        m.Height,
		})
	case m.Duration > 0 || m.Voice:
		attrs = append(attrs, &tg.DocumentAttributeAudio{
			Duration: int(m.Duration),
			Voice:    m.Voice,
		})
	}
	return attrs
}

// DownloadMedia streams the document of msg into dir, reporting
// progress per written chunk. Returns the path written.
func (c *Client) DownloadMedia(ctx context.Context, from domain.Entity, msg domain.RemoteMessage, dir string, progress domain.ProgressFunc) (string, error) {
	doc, err := c.documentFor(ctx, from, msg.ID)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, msg.DisplayName())
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	w := &progressWriter{w: f, total: doc.Size, fn: progress}
	dl := downloader.NewDownloader()
	if _, err := dl.Download(c.api, doc.AsInputDocumentFileLocation()).Stream(ctx, w); err != nil {
		return "", fmt.Errorf("failed to download %s: %w", msg.DisplayName(), err)
	}
	return path, nil
}

type progressWriter struct {
	w       io.Writer
	written int64
	total   int64
	fn      domain.ProgressFunc
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.written += int64(n)
	if p.fn != nil {
		p.fn(p.written, p.total)
	}
	return n, err
}

// documentFor returns the document attached to a message, refetching
// it when the iteration cache no longer holds it.
func (c *Client) documentFor(ctx context.Context, from domain.Entity, msgID int) (*tg.Document, error) {
	if doc, ok := c.cachedDocument(msgID); ok {
		return doc, nil
	}

	peer, err := c.resolvePeer(ctx, from)
	if err != nil {
		return nil, err
	}

	var msgs tg.MessagesMessagesClass
	if ch, ok := peer.(*tg.InputPeerChannel); ok {
		msgs, err = c.api.ChannelsGetMessages(ctx, &tg.ChannelsGetMessagesRequest{
			Channel: &tg.InputChannel{ChannelID: ch.ChannelID, AccessHash: ch.AccessHash},
			ID:      []tg.InputMessageClass{&tg.InputMessageID{ID: msgID}},
		})
	} else {
		msgs, err = c.api.MessagesGetMessages(ctx, []tg.InputMessageClass{&tg.InputMessageID{ID: msgID}})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch message %d: %w", msgID, err)
	}

	for _, m := range extractMessages(msgs) {
		if m.ID != msgID {
			continue
		}
		if doc, ok := documentOf(m); ok {
			c.cacheDocument(msgID, doc)
			return doc, nil
		}
	}
	return nil, fmt.Errorf("message %d carries no document", msgID)
}

// ForwardMessages forwards the given messages to one destination.
func (c *Client) ForwardMessages(ctx context.Context, to domain.Entity, from domain.Entity, ids []int) error {
	toPeer, err := c.resolvePeer(ctx, to)
	if err != nil {
		return err
	}
	fromPeer, err := c.resolvePeer(ctx, from)
	if err != nil {
		return err
	}

	randomIDs := make([]int64, len(ids))
	for i := range randomIDs {
		randomIDs[i] = rand.Int64()
	}

	_, err = c.api.MessagesForwardMessages(ctx, &tg.MessagesForwardMessagesRequest{
		FromPeer: fromPeer,
		ToPeer:   toPeer,
		ID:       ids,
		RandomID: randomIDs,
	})
	return err
}

// DeleteMessages removes messages from the conversation.
func (c *Client) DeleteMessages(ctx context.Context, from domain.Entity, ids []int) error {
	peer, err := c.resolvePeer(ctx, from)
	if err != nil {
		return err
	}

	if ch, ok := peer.(*tg.InputPeerChannel); ok {
		_, err = c.api.ChannelsDeleteMessages(ctx, &tg.ChannelsDeleteMessagesRequest{
			Channel: &tg.InputChannel{ChannelID: ch.ChannelID, AccessHash: ch.AccessHash},
			ID:      ids,
		})
		return err
	}
	_, err = c.api.MessagesDeleteMessages(ctx, &tg.MessagesDeleteMessagesRequest{
		ID:     ids,
		Revoke: true,
	})
	return err
}

// remoteFromMessage maps a raw message onto the domain representation,
// caching its document for a later download.
func (c *Client) remoteFromMessage(m *tg.Message) domain.RemoteMessage {
	out := domain.RemoteMessage{ID: m.ID}
	doc, ok := documentOf(m)
	if !ok {
		return out
	}
	c.cacheDocument(m.ID, doc)
	out.Document = true
	out.Size = doc.Size
	out.FileID = packFileID(doc)
	for _, attr := range doc.Attributes {
		if fn, ok := attr.(*tg.DocumentAttributeFilename); ok {
			out.Name = fn.FileName
			break
		}
	}
	return out
}

func documentOf(m *tg.Message) (*tg.Document, bool) {
	media, ok := m.Media.(*tg.MessageMediaDocument)
	if !ok {
		return nil, false
	}
	doc, ok := media.Document.(*tg.Document)
	return doc, ok
}

// messagesFromUpdates digs the sent messages out of the server reply.
func messagesFromUpdates(updates tg.UpdatesClass) []*tg.Message {
	var list []tg.UpdateClass
	switch u := updates.(type) {
	case *tg.Updates:
		list = u.Updates
	case *tg.UpdatesCombined:
		list = u.Updates
	case *tg.UpdateShortSentMessage:
		return nil
	}

	var msgs []*tg.Message
	for _, upd := range list {
		switch u := upd.(type) {
		case *tg.UpdateNewMessage:
			if m, ok := u.Message.(*tg.Message); ok {
				msgs = append(msgs, m)
			}
		case *tg.UpdateNewChannelMessage:
			if m, ok := u.Message.(*tg.Message); ok {
				msgs = append(msgs, m)
			}
		}
	}
	return msgs
}

func extractMessages(msgs tg.MessagesMessagesClass) []*tg.Message {
	var raw []tg.MessageClass
	switch m := msgs.(type) {
	case *tg.MessagesMessages:
		raw = m.Messages
	case *tg.MessagesMessagesSlice:
		raw = m.Messages
	case *tg.MessagesChannelMessages:
		raw = m.Messages
	}

	var out []*tg.Message
	for _, mc := range raw {
		if m, ok := mc.(*tg.Message); ok {
			out = append(out, m)
		}
	}
	return out
}
