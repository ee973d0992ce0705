package telegram

import (
	"testing"

	"github.com/gotd/td/tg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tgup/internal/domain"
)

func TestMediaAttributesVideo(t *testing.T) {
	attrs := mediaAttributes(&domain.MediaInfo{Duration: 12.5, Width: 1920, Height: 1080})
	require.Len(t, attrs, 1)

	video, ok := attrs[0].(*tg.DocumentAttributeVideo)
	require.True(t, ok)
	assert.Equal(t, 12.5, video.Duration)
	assert.Equal(t, 1920, video.W)
	assert.Equal(t, 1080, video.H)
}

func TestMediaAttributesAudio(t *testing.T) {
	attrs := mediaAttributes(&domain.MediaInfo{Duration: 42, Voice: true})
	require.Len(t, attrs, 1)

	audio, ok := attrs[0].(*tg.DocumentAttributeAudio)
	require.True(t, ok)
	assert.Equal(t, 42, audio.Duration)
	assert.True(t, audio.Voice)
}

func TestMediaAttributesNil(t *testing.T) {
	assert.Empty(t, mediaAttributes(nil))
	assert.Empty(t, mediaAttributes(&domain.MediaInfo{}))
}

func TestMimeFor(t *testing.T) {
	withMedia := domain.SendRequest{
		File:       domain.File{FileName: "clip.mp4"},
		Attributes: domain.Attributes{Media: &domain.MediaInfo{MIME: "video/mp4"}},
	}
	assert.Equal(t, "video/mp4", mimeFor(withMedia))

	byExtension := domain.SendRequest{File: domain.File{FileName: "page.html"}}
	assert.Contains(t, mimeFor(byExtension), "text/html")

	unknown := domain.SendRequest{File: domain.File{FileName: "data.bin.weird"}}
	assert.Equal(t, "application/octet-stream", mimeFor(unknown))
}

func TestMessagesFromUpdates(t *testing.T) {
	updates := &tg.Updates{
		Updates: []tg.UpdateClass{
			&tg.UpdateNewMessage{Message: &tg.Message{ID: 10}},
			&tg.UpdateMessageID{},
			&tg.UpdateNewChannelMessage{Message: &tg.Message{ID: 11}},
		},
	}

	msgs := messagesFromUpdates(updates)
	require.Len(t, msgs, 2)
	assert.Equal(t, 10, msgs[0].ID)
	assert.Equal(t, 11, msgs[1].ID)
}

func TestMessagesFromUpdatesShort(t *testing.T) {
	assert.Empty(t, messagesFromUpdates(&tg.UpdateShortSentMessage{ID: 5}))
}
