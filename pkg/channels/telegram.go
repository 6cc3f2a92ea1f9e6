package channels

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/mymmrac/telego"

	"github.com/discogram/discogram/pkg/bus"
	"github.com/discogram/discogram/pkg/config"
	"github.com/discogram/discogram/pkg/logger"
	"github.com/discogram/discogram/pkg/relay"
)

const (
	telegramMaxGroupSize  = 10
	telegramMaxTextLen    = 4096
	telegramMaxCaptionLen = 1024
)

// TelegramSource is an inbound Telegram message as the builder sees it.
type TelegramSource interface {
	relay.Event
	Message() *telego.Message
}

type telegramEvent struct {
	msg *telego.Message
}

func (e *telegramEvent) Origin() relay.Origin {
	m := e.msg
	o := relay.Origin{
		ChatID:   strconv.FormatInt(m.Chat.ID, 10),
		Threaded: m.Chat.IsForum,
	}
	switch {
	case m.From != nil:
		o.AuthorID = strconv.FormatInt(m.From.ID, 10)
	case m.SenderChat != nil:
		o.AuthorID = strconv.FormatInt(m.SenderChat.ID, 10)
	}
	if m.Chat.IsForum && m.MessageThreadID != 0 {
		o.ThreadID = strconv.Itoa(m.MessageThreadID)
	}
	return o
}

func (e *telegramEvent) Message() *telego.Message {
	return e.msg
}

type TelegramChannel struct {
	*BaseChannel
	bot     *telego.Bot
	config  config.TelegramConfig
	botID   int64
	builder *TelegramBuilder
	sender  *TelegramSender
}

func NewTelegramChannel(cfg config.TelegramConfig) (*TelegramChannel, error) {
	var opts []telego.BotOption

	if cfg.Proxy != "" {
		proxyURL, parseErr := url.Parse(cfg.Proxy)
		if parseErr != nil {
			return nil, fmt.Errorf("invalid proxy URL %q: %w", cfg.Proxy, parseErr)
		}
		opts = append(opts, telego.WithHTTPClient(&http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyURL(proxyURL),
			},
		}))
	}

	bot, err := telego.NewBot(cfg.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	return &TelegramChannel{
		BaseChannel: NewBaseChannel(bus.Telegram),
		bot:         bot,
		config:      cfg,
		botID:       cfg.BotID,
		sender:      NewTelegramSender(bot, cfg.ChatID, cfg.ThreadID, cfg.MaxAttachments),
	}, nil
}

// Connect checks the token and resolves the bot's own user id when it is
// not configured.
func (c *TelegramChannel) Connect(ctx context.Context) error {
	logger.InfoC("telegram", "Connecting to Telegram...")

	me, err := c.bot.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("telegram getMe: %w", err)
	}
	if c.botID == 0 {
		c.botID = me.ID
	}
	c.builder = NewTelegramBuilder(c, c.botID)

	logger.InfoCF("telegram", "Telegram bot connected", map[string]interface{}{
		"username": me.Username,
		"bot_id":   c.botID,
		"chat":     c.config.ChatID,
		"thread":   c.config.ThreadID,
	})
	return nil
}

// Run long-polls for updates and hands each message to handler in order.
func (c *TelegramChannel) Run(ctx context.Context, handler EventHandler) error {
	updates, err := c.bot.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		Timeout:        30,
		AllowedUpdates: []string{"message"},
	})
	if err != nil {
		return fmt.Errorf("failed to start long polling: %w", err)
	}

	c.bind(ctx, handler)
	defer c.unbind()

	for {
		select {
		case <-ctx.Done():
			logger.InfoC("telegram", "Stopping Telegram bot...")
			return nil
		case update, ok := <-updates:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("telegram updates channel closed")
			}
			if update.Message != nil {
				c.emit(&telegramEvent{msg: update.Message})
			}
		}
	}
}

func (c *TelegramChannel) SelfID() string {
	if c.botID == 0 {
		return ""
	}
	return strconv.FormatInt(c.botID, 10)
}

func (c *TelegramChannel) Builder() relay.Builder {
	return c.builder
}

func (c *TelegramChannel) Sender() relay.Sender {
	return c.sender
}

// FileURL implements TelegramFileResolver. The returned URL embeds the bot
// token and must not be posted anywhere.
func (c *TelegramChannel) FileURL(ctx context.Context, fileID string) (string, error) {
	file, err := c.bot.GetFile(ctx, &telego.GetFileParams{FileID: fileID})
	if err != nil {
		return "", fmt.Errorf("telegram getFile: %w", err)
	}
	if file.FilePath == "" {
		return "", fmt.Errorf("telegram getFile: no file path for %s", fileID)
	}
	return c.bot.FileDownloadURL(file.FilePath), nil
}
