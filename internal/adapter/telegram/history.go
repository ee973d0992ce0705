package telegram

import (
	"context"

	"github.com/gotd/td/tg"

	"tgup/internal/domain"
)

const historyPageSize = 100

// IterMessages walks the conversation history newest first, one page
// at a time. The peer is resolved lazily on the first Next call.
func (c *Client) IterMessages(ctx context.Context, from domain.Entity) domain.MessageIter {
	return &historyIter{client: c, entity: from}
}

type historyIter struct {
	client *Client
	entity domain.Entity

	peer     tg.InputPeerClass
	buf      []domain.RemoteMessage
	cur      domain.RemoteMessage
	offsetID int
	done     bool
	err      error
}

func (it *historyIter) Next(ctx context.Context) bool {
	if it.err != nil {
		return false
	}
	if len(it.buf) == 0 {
		if it.done || !it.fetch(ctx) {
			return false
		}
	}
	it.cur = it.buf[0]
	it.buf = it.buf[1:]
	return true
}

func (it *historyIter) Value() domain.RemoteMessage { return it.cur }
func (it *historyIter) Err() error                  { return it.err }

func (it *historyIter) fetch(ctx context.Context) bool {
	if it.peer == nil {
		peer, err := it.client.resolvePeer(ctx, it.entity)
		if err != nil {
			it.err = err
			return false
		}
		it.peer = peer
	}

	history, err := it.client.api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
		Peer:     it.peer,
		OffsetID: it.offsetID,
		Limit:    historyPageSize,
	})
	if err != nil {
		it.err = err
		return false
	}

	var messages []tg.MessageClass
	switch h := history.(type) {
	case *tg.MessagesChannelMessages:
		messages = h.Messages
	case *tg.MessagesMessagesSlice:
		messages = h.Messages
	case *tg.MessagesMessages:
		messages = h.Messages
	}

	if len(messages) == 0 {
		it.done = true
		return false
	}

	for _, mc := range messages {
		m, ok := mc.(*tg.Message)
		if !ok {
			// Service messages carry no document; represent them so
			// the contiguity scan can stop on them.
			it.buf = append(it.buf, domain.RemoteMessage{ID: mc.GetID()})
			continue
		}
		it.buf = append(it.buf, it.client.remoteFromMessage(m))
	}

	last := messages[len(messages)-1].GetID()
	if it.offsetID != 0 && last >= it.offsetID {
		it.done = true
	}
	it.offsetID = last

	return len(it.buf) > 0
}
