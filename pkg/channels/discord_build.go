package channels

import (
	"context"
	"fmt"
	"mime"
	"regexp"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/discogram/discogram/pkg/bus"
	"github.com/discogram/discogram/pkg/logger"
	"github.com/discogram/discogram/pkg/relay"
	"github.com/discogram/discogram/pkg/utils"
)

const (
	discordEmojiCDN   = "https://cdn.discordapp.com/emojis/"
	discordStickerCDN = "https://media.discordapp.net/stickers/"
)

var customEmojiRe = regexp.MustCompile(`<(a?):([a-zA-Z0-9_]{0,32}):([0-9]{0,32})>`)

// DiscordMessageFetcher looks up a message by id, used to resolve replies.
type DiscordMessageFetcher interface {
	FetchMessage(ctx context.Context, channelID, messageID string) (DiscordSource, error)
}

// DiscordBuilder turns Discord messages into canonical messages.
type DiscordBuilder struct {
	fetcher DiscordMessageFetcher
	selfID  string
}

func NewDiscordBuilder(fetcher DiscordMessageFetcher, selfID string) *DiscordBuilder {
	return &DiscordBuilder{fetcher: fetcher, selfID: selfID}
}

func (b *DiscordBuilder) Build(ctx context.Context, ev relay.Event) (*bus.Message, error) {
	src, ok := ev.(DiscordSource)
	if !ok {
		return nil, fmt.Errorf("unexpected event type %T", ev)
	}
	m := src.Message()

	text, attachments := extractCustomEmoji(discordText(src))

	for _, st := range m.StickerItems {
		if att, ok := stickerAttachment(st); ok {
			attachments = append(attachments, att)
		}
	}

	for _, a := range m.Attachments {
		if a == nil {
			continue
		}
		attachments = append(attachments, bus.NewAttachment(
			a.URL,
			relay.Classify(attachmentContentType(a), a.Filename),
			strings.HasPrefix(a.Filename, "SPOILER_"),
			a.Filename,
		))
	}

	for _, e := range m.Embeds {
		mediaURL := embedMediaURL(e)
		if mediaURL == "" {
			continue
		}
		// A bare link whose preview is relayed as media needs no text.
		if text == mediaURL || text == e.URL {
			text = ""
		}
		attachments = append(attachments, bus.NewAttachment(
			mediaURL,
			relay.ClassifyEmbed(string(e.Type), mediaURL),
			false,
			"",
		))
	}

	msg := &bus.Message{
		Author:      discordDisplayName(m),
		Body:        text,
		Attachments: attachments,
	}
	if m.Type == discordgo.MessageTypeReply && m.MessageReference != nil {
		msg.Quote = b.quote(ctx, m)
	}
	return msg, nil
}

func (b *DiscordBuilder) quote(ctx context.Context, m *discordgo.Message) *bus.Quote {
	if b.fetcher == nil {
		return nil
	}
	ref := m.MessageReference
	channelID := ref.ChannelID
	if channelID == "" {
		channelID = m.ChannelID
	}
	replied, err := b.fetcher.FetchMessage(ctx, channelID, ref.MessageID)
	if err != nil {
		logger.WarnCF("discord", "Failed to fetch replied message, relaying without quote", map[string]interface{}{
			"message_id": ref.MessageID,
			"error":      err.Error(),
		})
		return nil
	}

	text := discordText(replied)
	if text == "" {
		return nil
	}
	q := &bus.Quote{Text: text}
	if author := replied.Message().Author; author != nil && author.ID != b.selfID {
		q.Author = discordUserName(author)
	}
	return q
}

// discordText is the system summary for system messages and the cleaned
// content otherwise.
func discordText(src DiscordSource) string {
	m := src.Message()
	if summary, ok := systemSummary(m); ok {
		return summary
	}
	return src.CleanContent()
}

func systemSummary(m *discordgo.Message) (string, bool) {
	name := discordDisplayName(m)
	switch m.Type {
	case discordgo.MessageTypeChannelPinnedMessage:
		return name + " pinned a message to this channel.", true
	case discordgo.MessageTypeGuildMemberJoin:
		return name + " joined the server.", true
	case discordgo.MessageTypeUserPremiumGuildSubscription:
		return name + " just boosted the server!", true
	case discordgo.MessageTypeUserPremiumGuildSubscriptionTierOne:
		return name + " just boosted the server! The server has achieved Level 1!", true
	case discordgo.MessageTypeUserPremiumGuildSubscriptionTierTwo:
		return name + " just boosted the server! The server has achieved Level 2!", true
	case discordgo.MessageTypeUserPremiumGuildSubscriptionTierThree:
		return name + " just boosted the server! The server has achieved Level 3!", true
	case discordgo.MessageTypeChannelNameChange:
		return name + " changed the channel name: " + m.Content, true
	case discordgo.MessageTypeThreadCreated:
		return name + " started a thread: " + m.Content, true
	}
	return "", false
}

func discordDisplayName(m *discordgo.Message) string {
	if m.Member != nil && m.Member.Nick != "" {
		return m.Member.Nick
	}
	return discordUserName(m.Author)
}

func discordUserName(u *discordgo.User) string {
	if u == nil {
		return ""
	}
	return u.DisplayName()
}

// extractCustomEmoji replaces each custom emoji token with :name: and
// returns an image (or animation) attachment per occurrence.
func extractCustomEmoji(text string) (string, []bus.Attachment) {
	var atts []bus.Attachment
	out := customEmojiRe.ReplaceAllStringFunc(text, func(token string) string {
		sm := customEmojiRe.FindStringSubmatch(token)
		animated := sm[1] == "a"
		atts = append(atts, bus.NewAttachment(emojiURL(sm[3], animated), relay.ClassifyEmoji(animated), false, ""))
		return ":" + sm[2] + ":"
	})
	return out, atts
}

func emojiURL(id string, animated bool) string {
	if animated {
		return discordEmojiCDN + id + ".gif"
	}
	return discordEmojiCDN + id + ".png"
}

// stickerAttachment maps a sticker to an attachment. Lottie stickers have
// no raster form and are skipped.
func stickerAttachment(st *discordgo.StickerItem) (bus.Attachment, bool) {
	if st == nil {
		return bus.Attachment{}, false
	}
	var ext string
	var animated bool
	switch st.FormatType {
	case discordgo.StickerFormatTypePNG:
		ext = ".png"
	case discordgo.StickerFormatTypeAPNG:
		ext, animated = ".png", true
	case discordgo.StickerFormatTypeGIF:
		ext, animated = ".gif", true
	default:
		return bus.Attachment{}, false
	}
	return bus.NewAttachment(discordStickerCDN+st.ID+ext, relay.ClassifySticker(animated), false, ""), true
}

// embedMediaURL picks the media behind an embed, or "" when the embed is a
// plain link card. Hosted players (embeds with a provider) are left as links.
func embedMediaURL(e *discordgo.MessageEmbed) string {
	if e == nil {
		return ""
	}
	switch {
	case e.Image != nil && e.Image.ProxyURL != "":
		return e.Image.ProxyURL
	case e.Image != nil && e.Image.URL != "":
		return e.Image.URL
	}
	switch e.Type {
	case discordgo.EmbedTypeGifv:
		if e.Video != nil && e.Video.URL != "" {
			return e.Video.URL
		}
		return e.URL
	case discordgo.EmbedTypeVideo:
		if e.Provider != nil {
			return ""
		}
		if e.Video != nil && e.Video.URL != "" {
			return e.Video.URL
		}
		return e.URL
	case discordgo.EmbedTypeImage:
		return e.URL
	}
	return ""
}

func attachmentContentType(a *discordgo.MessageAttachment) string {
	if a.ContentType != "" {
		return a.ContentType
	}
	return mime.TypeByExtension(utils.Extension(a.Filename))
}
