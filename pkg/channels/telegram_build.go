package channels

import (
	"context"
	"fmt"
	"strings"

	"github.com/mymmrac/telego"

	"github.com/discogram/discogram/pkg/bus"
	"github.com/discogram/discogram/pkg/logger"
	"github.com/discogram/discogram/pkg/relay"
)

// TelegramFileResolver turns a Telegram file id into a fetchable URL.
type TelegramFileResolver interface {
	FileURL(ctx context.Context, fileID string) (string, error)
}

// TelegramBuilder turns Telegram messages into canonical messages.
type TelegramBuilder struct {
	files TelegramFileResolver
	botID int64
}

func NewTelegramBuilder(files TelegramFileResolver, botID int64) *TelegramBuilder {
	return &TelegramBuilder{files: files, botID: botID}
}

// telegramMedia is the one media item a Telegram message can carry.
type telegramMedia struct {
	fileID   string
	kind     bus.Kind
	filename string
}

func (b *TelegramBuilder) Build(ctx context.Context, ev relay.Event) (*bus.Message, error) {
	src, ok := ev.(TelegramSource)
	if !ok {
		return nil, fmt.Errorf("unexpected event type %T", ev)
	}
	m := src.Message()

	msg := &bus.Message{
		Author: telegramAuthorName(m),
		Body:   firstNonEmpty(m.Text, m.Caption),
		Quote:  b.quote(m),
	}

	if media, ok := messageMedia(m); ok {
		fileURL, err := b.files.FileURL(ctx, media.fileID)
		if err != nil {
			logger.WarnCF("telegram", "Failed to resolve attachment, relaying without it", map[string]interface{}{
				"kind":  string(media.kind),
				"error": err.Error(),
			})
		} else {
			msg.Attachments = append(msg.Attachments,
				bus.NewAttachment(fileURL, media.kind, m.HasMediaSpoiler, media.filename))
		}
	}
	return msg, nil
}

// quote renders the replied-to message. The implicit reply every forum
// topic message carries to the topic's creation message is not a reply.
func (b *TelegramBuilder) quote(m *telego.Message) *bus.Quote {
	reply := m.ReplyToMessage
	if reply == nil {
		return nil
	}
	if m.IsTopicMessage && reply.MessageID == m.MessageThreadID {
		return nil
	}

	text := firstNonEmpty(reply.Text, reply.Caption)
	if m.Quote != nil && m.Quote.Text != "" {
		text = m.Quote.Text
	}
	if text == "" {
		return nil
	}

	q := &bus.Quote{Text: text}
	switch {
	case reply.From != nil && reply.From.ID == b.botID:
	case reply.From != nil:
		q.Author = reply.From.FirstName
	case reply.SenderChat != nil:
		q.Author = reply.SenderChat.Title
	}
	return q
}

// messageMedia picks the message's media by fixed precedence. Animated
// (TGS) stickers have no raster form and are skipped.
func messageMedia(m *telego.Message) (telegramMedia, bool) {
	switch {
	case len(m.Photo) > 0:
		largest := m.Photo[0]
		for _, p := range m.Photo[1:] {
			if p.Width*p.Height > largest.Width*largest.Height {
				largest = p
			}
		}
		return telegramMedia{fileID: largest.FileID, kind: bus.KindImage}, true
	case m.Animation != nil:
		return telegramMedia{fileID: m.Animation.FileID, kind: bus.KindAnimation, filename: m.Animation.FileName}, true
	case m.Audio != nil:
		return telegramMedia{fileID: m.Audio.FileID, kind: bus.KindAudio, filename: m.Audio.FileName}, true
	case m.Sticker != nil && !m.Sticker.IsAnimated:
		if m.Sticker.IsVideo {
			return telegramMedia{fileID: m.Sticker.FileID, kind: relay.ClassifySticker(true)}, true
		}
		return telegramMedia{fileID: m.Sticker.FileID, kind: relay.ClassifySticker(false)}, true
	case m.Video != nil:
		return telegramMedia{fileID: m.Video.FileID, kind: bus.KindVideo, filename: m.Video.FileName}, true
	case m.VideoNote != nil:
		return telegramMedia{fileID: m.VideoNote.FileID, kind: bus.KindVideo}, true
	case m.Voice != nil:
		return telegramMedia{fileID: m.Voice.FileID, kind: bus.KindAudio}, true
	case m.Document != nil:
		return telegramMedia{
			fileID:   m.Document.FileID,
			kind:     relay.Classify(m.Document.MimeType, m.Document.FileName),
			filename: m.Document.FileName,
		}, true
	}
	return telegramMedia{}, false
}

func telegramAuthorName(m *telego.Message) string {
	if m.From == nil {
		if m.SenderChat != nil {
			return m.SenderChat.Title
		}
		return ""
	}
	return strings.TrimSpace(m.From.FirstName + " " + m.From.LastName)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
