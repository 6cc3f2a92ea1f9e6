package channels

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/discogram/discogram/pkg/bus"
	"github.com/discogram/discogram/pkg/relay"
)

type telegramAPI interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
	SendPhoto(ctx context.Context, params *telego.SendPhotoParams) (*telego.Message, error)
	SendAnimation(ctx context.Context, params *telego.SendAnimationParams) (*telego.Message, error)
	SendVideo(ctx context.Context, params *telego.SendVideoParams) (*telego.Message, error)
	SendAudio(ctx context.Context, params *telego.SendAudioParams) (*telego.Message, error)
	SendDocument(ctx context.Context, params *telego.SendDocumentParams) (*telego.Message, error)
	SendMediaGroup(ctx context.Context, params *telego.SendMediaGroupParams) ([]telego.Message, error)
}

// TelegramSender posts into the bridged Telegram chat (and topic). Media is
// sent by URL reference and Telegram fetches it.
type TelegramSender struct {
	api      telegramAPI
	chatID   telego.ChatID
	threadID int
	limits   relay.Limits
}

func NewTelegramSender(api telegramAPI, chatID int64, threadID int, maxPerDispatch int) *TelegramSender {
	return &TelegramSender{
		api:      api,
		chatID:   tu.ID(chatID),
		threadID: threadID,
		limits: relay.Limits{
			MaxGroupSize:   telegramMaxGroupSize,
			MaxPerDispatch: maxPerDispatch,
			MaxTextLen:     telegramMaxTextLen,
			MaxCaptionLen:  telegramMaxCaptionLen,
		},
	}
}

func (s *TelegramSender) Dialect() relay.Dialect {
	return relay.TelegramMarkdownV2
}

func (s *TelegramSender) Limits() relay.Limits {
	return s.limits
}

func (s *TelegramSender) SendText(ctx context.Context, text string) error {
	params := tu.Message(s.chatID, text)
	params.MessageThreadID = s.threadID
	params.ParseMode = telego.ModeMarkdownV2
	if _, err := s.api.SendMessage(ctx, params); err != nil {
		return fmt.Errorf("telegram sendMessage: %w", err)
	}
	return nil
}

func (s *TelegramSender) SendMedia(ctx context.Context, att bus.Attachment, caption string) error {
	op := telegramOp(att.Kind)
	if err := op.send(ctx, s, att, caption); err != nil {
		return fmt.Errorf("telegram send%s: %w", op.method, err)
	}
	return nil
}

// SendMediaGroup sends items in order as albums Telegram accepts, with
// caption on the first message. Photos and videos share an album, audio
// and documents only group with their own kind, and animations always go
// alone.
func (s *TelegramSender) SendMediaGroup(ctx context.Context, items []bus.Attachment, caption string) error {
	for _, group := range telegramAlbums(items) {
		var err error
		if len(group) == 1 {
			err = s.SendMedia(ctx, group[0], caption)
		} else {
			err = s.sendAlbum(ctx, group, caption)
		}
		if err != nil {
			return err
		}
		caption = ""
	}
	return nil
}

func (s *TelegramSender) sendAlbum(ctx context.Context, items []bus.Attachment, caption string) error {
	media := make([]telego.InputMedia, 0, len(items))
	for i, att := range items {
		entryCaption := ""
		if i == 0 {
			entryCaption = caption
		}
		media = append(media, telegramOp(att.Kind).entry(att, entryCaption))
	}

	params := tu.MediaGroup(s.chatID, media...)
	params.MessageThreadID = s.threadID
	if _, err := s.api.SendMediaGroup(ctx, params); err != nil {
		return fmt.Errorf("telegram sendMediaGroup (%d items): %w", len(items), err)
	}
	return nil
}

// telegramAlbums splits items into consecutive runs that may share one
// sendMediaGroup call. Single-item runs are sent on their own.
func telegramAlbums(items []bus.Attachment) [][]bus.Attachment {
	var groups [][]bus.Attachment
	var current []bus.Attachment
	currentAlbum := ""

	flush := func() {
		if len(current) > 0 {
			groups = append(groups, current)
		}
		current, currentAlbum = nil, ""
	}

	for _, att := range items {
		album := telegramOp(att.Kind).album
		if album == "" || album != currentAlbum {
			flush()
		}
		current = append(current, att)
		currentAlbum = album
		if album == "" {
			flush()
		}
	}
	flush()
	return groups
}

func telegramOp(kind bus.Kind) telegramMediaOp {
	if op, ok := telegramMediaOps[kind]; ok {
		return op
	}
	return telegramMediaOps[bus.KindDocument]
}

// telegramMediaOp is how one Kind is sent alone and as an album entry.
// Kinds with the same album may be grouped; an empty album never is.
type telegramMediaOp struct {
	method string
	album  string
	send   func(ctx context.Context, s *TelegramSender, att bus.Attachment, caption string) error
	entry  func(att bus.Attachment, caption string) telego.InputMedia
}

var telegramMediaOps = map[bus.Kind]telegramMediaOp{
	bus.KindImage: {
		method: "Photo",
		album:  "visual",
		send: func(ctx context.Context, s *TelegramSender, att bus.Attachment, caption string) error {
			params := tu.Photo(s.chatID, tu.FileFromURL(att.URL))
			params.MessageThreadID = s.threadID
			params.Caption = caption
			params.ParseMode = telego.ModeMarkdownV2
			params.ShowCaptionAboveMedia = true
			params.HasSpoiler = att.Spoiler
			_, err := s.api.SendPhoto(ctx, params)
			return err
		},
		entry: func(att bus.Attachment, caption string) telego.InputMedia {
			m := tu.MediaPhoto(tu.FileFromURL(att.URL))
			m.Caption = caption
			m.ParseMode = telego.ModeMarkdownV2
			m.ShowCaptionAboveMedia = true
			m.HasSpoiler = att.Spoiler
			return m
		},
	},
	bus.KindAnimation: {
		method: "Animation",
		send: func(ctx context.Context, s *TelegramSender, att bus.Attachment, caption string) error {
			params := tu.Animation(s.chatID, tu.FileFromURL(att.URL))
			params.MessageThreadID = s.threadID
			params.Caption = caption
			params.ParseMode = telego.ModeMarkdownV2
			params.ShowCaptionAboveMedia = true
			params.HasSpoiler = att.Spoiler
			_, err := s.api.SendAnimation(ctx, params)
			return err
		},
	},
	bus.KindVideo: {
		method: "Video",
		album:  "visual",
		send: func(ctx context.Context, s *TelegramSender, att bus.Attachment, caption string) error {
			params := tu.Video(s.chatID, tu.FileFromURL(att.URL))
			params.MessageThreadID = s.threadID
			params.Caption = caption
			params.ParseMode = telego.ModeMarkdownV2
			params.ShowCaptionAboveMedia = true
			params.HasSpoiler = att.Spoiler
			_, err := s.api.SendVideo(ctx, params)
			return err
		},
		entry: func(att bus.Attachment, caption string) telego.InputMedia {
			m := tu.MediaVideo(tu.FileFromURL(att.URL))
			m.Caption = caption
			m.ParseMode = telego.ModeMarkdownV2
			m.ShowCaptionAboveMedia = true
			m.HasSpoiler = att.Spoiler
			return m
		},
	},
	bus.KindAudio: {
		method: "Audio",
		album:  "audio",
		send: func(ctx context.Context, s *TelegramSender, att bus.Attachment, caption string) error {
			params := tu.Audio(s.chatID, tu.FileFromURL(att.URL))
			params.MessageThreadID = s.threadID
			params.Caption = caption
			params.ParseMode = telego.ModeMarkdownV2
			_, err := s.api.SendAudio(ctx, params)
			return err
		},
		entry: func(att bus.Attachment, caption string) telego.InputMedia {
			m := tu.MediaAudio(tu.FileFromURL(att.URL))
			m.Caption = caption
			m.ParseMode = telego.ModeMarkdownV2
			return m
		},
	},
	bus.KindDocument: {
		method: "Document",
		album:  "document",
		send: func(ctx context.Context, s *TelegramSender, att bus.Attachment, caption string) error {
			params := tu.Document(s.chatID, tu.FileFromURL(att.URL))
			params.MessageThreadID = s.threadID
			params.Caption = caption
			params.ParseMode = telego.ModeMarkdownV2
			_, err := s.api.SendDocument(ctx, params)
			return err
		},
		entry: func(att bus.Attachment, caption string) telego.InputMedia {
			m := tu.MediaDocument(tu.FileFromURL(att.URL))
			m.Caption = caption
			m.ParseMode = telego.ModeMarkdownV2
			return m
		},
	},
}
