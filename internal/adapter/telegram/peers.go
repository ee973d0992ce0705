package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gotd/td/tg"

	"tgup/internal/domain"
)

// resolvePeer turns an Entity ("me", @username, or a numeric chat ID)
// into an input peer, caching results for the session.
func (c *Client) resolvePeer(ctx context.Context, entity domain.Entity) (tg.InputPeerClass, error) {
	if entity == "" || entity == "me" {
		return &tg.InputPeerSelf{}, nil
	}
	if peer, ok := c.cachedPeer(entity); ok {
		return peer, nil
	}

	var (
		peer tg.InputPeerClass
		err  error
	)
	if id, convErr := strconv.ParseInt(string(entity), 10, 64); convErr == nil {
		peer, err = c.peerByID(ctx, id)
	} else {
		peer, err = c.peerByUsername(ctx, strings.TrimPrefix(string(entity), "@"))
	}
	if err != nil {
		return nil, err
	}

	c.cachePeer(entity, peer)
	return peer, nil
}

func (c *Client) peerByUsername(ctx context.Context, username string) (tg.InputPeerClass, error) {
	res, err := c.api.ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{Username: username})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", username, err)
	}

	switch p := res.Peer.(type) {
	case *tg.PeerUser:
		for _, u := range res.Users {
			if user, ok := u.(*tg.User); ok && user.ID == p.UserID {
				return &tg.InputPeerUser{UserID: user.ID, AccessHash: user.AccessHash}, nil
			}
		}
	case *tg.PeerChannel:
		for _, ch := range res.Chats {
			if channel, ok := ch.(*tg.Channel); ok && channel.ID == p.ChannelID {
				return &tg.InputPeerChannel{ChannelID: channel.ID, AccessHash: channel.AccessHash}, nil
			}
		}
	case *tg.PeerChat:
		return &tg.InputPeerChat{ChatID: p.ChatID}, nil
	}
	return nil, fmt.Errorf("unexpected resolution result for %q", username)
}

// peerByID searches recent dialogs for a chat, channel or user with the
// given ID.
func (c *Client) peerByID(ctx context.Context, id int64) (tg.InputPeerClass, error) {
	dialogs, err := c.api.MessagesGetDialogs(ctx, &tg.MessagesGetDialogsRequest{
		Limit:      100,
		OffsetPeer: &tg.InputPeerEmpty{},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list dialogs: %w", err)
	}

	var (
		chats []tg.ChatClass
		users []tg.UserClass
	)
	switch d := dialogs.(type) {
	case *tg.MessagesDialogs:
		chats, users = d.Chats, d.Users
	case *tg.MessagesDialogsSlice:
		chats, users = d.Chats, d.Users
	}

	for _, chat := range chats {
		switch ch := chat.(type) {
		case *tg.Channel:
			if ch.ID == id {
				return &tg.InputPeerChannel{ChannelID: ch.ID, AccessHash: ch.AccessHash}, nil
			}
		case *tg.Chat:
			if ch.ID == id {
				return &tg.InputPeerChat{ChatID: ch.ID}, nil
			}
		}
	}
	for _, u := range users {
		if user, ok := u.(*tg.User); ok && user.ID == id {
			return &tg.InputPeerUser{UserID: user.ID, AccessHash: user.AccessHash}, nil
		}
	}

	return nil, fmt.Errorf("peer %d not found in recent dialogs", id)
}
