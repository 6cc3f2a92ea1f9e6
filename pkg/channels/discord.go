package channels

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/gabriel-vasile/mimetype"

	"github.com/discogram/discogram/pkg/bus"
	"github.com/discogram/discogram/pkg/config"
	"github.com/discogram/discogram/pkg/logger"
	"github.com/discogram/discogram/pkg/relay"
	"github.com/discogram/discogram/pkg/utils"
)

const (
	discordMaxFilesPerMessage = 10
	discordMaxContentLen      = 2000
)

// DiscordSource is an inbound Discord message as the builder sees it.
type DiscordSource interface {
	relay.Event
	Message() *discordgo.Message
	// CleanContent is the content with user, role and channel mentions
	// rendered as display names.
	CleanContent() string
}

type discordEvent struct {
	msg   *discordgo.Message
	clean string
}

func newDiscordEvent(s *discordgo.Session, m *discordgo.Message) *discordEvent {
	clean := m.ContentWithMentionsReplaced()
	if s != nil {
		if c, err := m.ContentWithMoreMentionsReplaced(s); err == nil {
			clean = c
		}
	}
	return &discordEvent{msg: m, clean: clean}
}

func (e *discordEvent) Origin() relay.Origin {
	o := relay.Origin{ChatID: e.msg.ChannelID}
	if e.msg.Author != nil {
		o.AuthorID = e.msg.Author.ID
	}
	return o
}

func (e *discordEvent) Message() *discordgo.Message {
	return e.msg
}

func (e *discordEvent) CleanContent() string {
	return e.clean
}

type DiscordChannel struct {
	*BaseChannel
	session *discordgo.Session
	config  config.DiscordConfig
	fetcher utils.Fetcher
	selfID  string
	builder *DiscordBuilder
	sender  *DiscordSender
}

func NewDiscordChannel(cfg config.DiscordConfig, fetcher utils.Fetcher) (*DiscordChannel, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent

	c := &DiscordChannel{
		BaseChannel: NewBaseChannel(bus.Discord),
		session:     session,
		config:      cfg,
		fetcher:     fetcher,
	}
	c.sender = NewDiscordSender(session, cfg.ChannelID, fetcher, cfg.MaxAttachments)
	return c, nil
}

// Connect opens the gateway. Messages seen before Run binds a handler are
// dropped.
func (c *DiscordChannel) Connect(ctx context.Context) error {
	logger.InfoC("discord", "Connecting to Discord gateway...")

	c.session.AddHandler(c.onMessageCreate)
	if err := c.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	if c.session.State != nil && c.session.State.User != nil {
		c.selfID = c.session.State.User.ID
	}
	c.builder = NewDiscordBuilder(c, c.selfID)

	logger.InfoCF("discord", "Discord bot connected", map[string]interface{}{
		"self_id": c.selfID,
		"channel": c.config.ChannelID,
	})
	return nil
}

// Run blocks until ctx is done, then closes the gateway.
func (c *DiscordChannel) Run(ctx context.Context, handler EventHandler) error {
	c.bind(ctx, handler)
	defer c.unbind()

	<-ctx.Done()

	logger.InfoC("discord", "Stopping Discord bot...")
	if err := c.session.Close(); err != nil {
		return fmt.Errorf("failed to close discord session: %w", err)
	}
	return nil
}

func (c *DiscordChannel) SelfID() string {
	return c.selfID
}

func (c *DiscordChannel) Builder() relay.Builder {
	return c.builder
}

func (c *DiscordChannel) Sender() relay.Sender {
	return c.sender
}

// FetchMessage implements DiscordMessageFetcher over the REST API.
func (c *DiscordChannel) FetchMessage(ctx context.Context, channelID, messageID string) (DiscordSource, error) {
	m, err := c.session.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	return newDiscordEvent(c.session, m), nil
}

func (c *DiscordChannel) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m == nil || m.Message == nil || m.Author == nil {
		return
	}
	msg := m.Message

	// Link previews usually land after the create event.
	if len(msg.Embeds) == 0 && msg.ChannelID == c.config.ChannelID && strings.Contains(msg.Content, "http") {
		fresh, err := s.ChannelMessage(msg.ChannelID, msg.ID)
		if err != nil {
			logger.DebugCF("discord", "Failed to refetch message for embeds", map[string]interface{}{
				"message_id": msg.ID,
				"error":      err.Error(),
			})
		} else {
			fresh.Member = msg.Member
			fresh.GuildID = msg.GuildID
			msg = fresh
		}
	}

	c.emit(newDiscordEvent(s, msg))
}

type discordAPI interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordSender posts into the bridged Discord channel. Every attachment
// kind becomes a file upload; Discord renders it by content type.
type DiscordSender struct {
	api       discordAPI
	channelID string
	fetcher   utils.Fetcher
	limits    relay.Limits
}

func NewDiscordSender(api discordAPI, channelID string, fetcher utils.Fetcher, maxPerDispatch int) *DiscordSender {
	return &DiscordSender{
		api:       api,
		channelID: channelID,
		fetcher:   fetcher,
		limits: relay.Limits{
			MaxGroupSize:   discordMaxFilesPerMessage,
			MaxPerDispatch: maxPerDispatch,
			MaxTextLen:     discordMaxContentLen,
			MaxCaptionLen:  discordMaxContentLen,
		},
	}
}

func (s *DiscordSender) Dialect() relay.Dialect {
	return relay.DiscordMarkdown
}

func (s *DiscordSender) Limits() relay.Limits {
	return s.limits
}

func (s *DiscordSender) SendText(ctx context.Context, text string) error {
	_, err := s.api.ChannelMessageSendComplex(s.channelID, &discordgo.MessageSend{
		Content:         text,
		AllowedMentions: noMentions(),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("discord send message: %w", err)
	}
	return nil
}

func (s *DiscordSender) SendMedia(ctx context.Context, att bus.Attachment, caption string) error {
	return s.SendMediaGroup(ctx, []bus.Attachment{att}, caption)
}

// SendMediaGroup uploads items as one message. Items that cannot be fetched
// are skipped; when none can, only the caption is sent.
func (s *DiscordSender) SendMediaGroup(ctx context.Context, items []bus.Attachment, caption string) error {
	files := s.fetchFiles(ctx, items)
	if len(files) == 0 {
		if caption == "" {
			return nil
		}
		return s.SendText(ctx, caption)
	}

	_, err := s.api.ChannelMessageSendComplex(s.channelID, &discordgo.MessageSend{
		Content:         caption,
		Files:           files,
		AllowedMentions: noMentions(),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("discord upload %d files: %w", len(files), err)
	}
	return nil
}

func (s *DiscordSender) fetchFiles(ctx context.Context, items []bus.Attachment) []*discordgo.File {
	files := make([]*discordgo.File, 0, len(items))
	for _, att := range items {
		data, err := s.fetcher.Fetch(ctx, att.URL)
		if err != nil {
			logger.WarnCF("discord", "Failed to fetch attachment, skipping", map[string]interface{}{
				"name":  att.Filename,
				"kind":  string(att.Kind),
				"error": err.Error(),
			})
			continue
		}
		files = append(files, &discordgo.File{
			Name:        discordFilename(att),
			ContentType: mimetype.Detect(data).String(),
			Reader:      bytes.NewReader(data),
		})
	}
	return files
}

func discordFilename(att bus.Attachment) string {
	name := utils.SanitizeFilename(att.Filename)
	if att.Spoiler && !strings.HasPrefix(name, "SPOILER_") {
		name = "SPOILER_" + name
	}
	return name
}

func noMentions() *discordgo.MessageAllowedMentions {
	return &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{}}
}
