package bridge

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/discogram/discogram/pkg/bus"
	"github.com/discogram/discogram/pkg/channels"
	"github.com/discogram/discogram/pkg/config"
	"github.com/discogram/discogram/pkg/logger"
	"github.com/discogram/discogram/pkg/relay"
	"github.com/discogram/discogram/pkg/stats"
	"github.com/discogram/discogram/pkg/utils"
)

// Bridge connects one Discord channel with one Telegram chat.
type Bridge struct {
	discord  channels.Channel
	telegram channels.Channel
	bindings map[bus.Platform]relay.Binding
	stats    *stats.Store
}

// New builds a bridge with live platform connections from cfg.
func New(cfg *config.Config) (*Bridge, error) {
	fetcher := utils.NewHTTPFetcher(utils.FetchOptions{
		Timeout:      cfg.FetchTimeout(),
		MaxBytes:     cfg.MaxFileBytes(),
		LoggerPrefix: "fetch",
	})

	dc, err := channels.NewDiscordChannel(cfg.Discord, fetcher)
	if err != nil {
		return nil, err
	}
	tg, err := channels.NewTelegramChannel(cfg.Telegram)
	if err != nil {
		return nil, err
	}
	return NewWithChannels(cfg, dc, tg), nil
}

// NewWithChannels builds a bridge over already constructed channels.
func NewWithChannels(cfg *config.Config, discord, telegram channels.Channel) *Bridge {
	return &Bridge{
		discord:  discord,
		telegram: telegram,
		bindings: map[bus.Platform]relay.Binding{
			bus.Discord:  {ChatID: cfg.Discord.ChannelID},
			bus.Telegram: {ChatID: cfg.TelegramChatKey(), ThreadID: cfg.TelegramThreadKey()},
		},
		stats: stats.NewStore(),
	}
}

func (b *Bridge) Stats() *stats.Store {
	return b.stats
}

// Run connects both platforms, then relays until ctx is cancelled or either
// event stream fails.
func (b *Bridge) Run(ctx context.Context) error {
	chans := []channels.Channel{b.discord, b.telegram}

	g, gctx := errgroup.WithContext(ctx)
	for _, ch := range chans {
		g.Go(func() error {
			if err := ch.Connect(gctx); err != nil {
				return fmt.Errorf("connect %s: %w", ch.Platform(), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	d, err := relay.NewDispatcher(b.endpoint(b.discord), b.endpoint(b.telegram), b.stats)
	if err != nil {
		return err
	}

	logger.InfoCF("bridge", "Relay running", map[string]interface{}{
		"discord_channel": b.bindings[bus.Discord].ChatID,
		"telegram_chat":   b.bindings[bus.Telegram].ChatID,
		"telegram_thread": b.bindings[bus.Telegram].ThreadID,
	})

	g, gctx = errgroup.WithContext(ctx)
	for _, ch := range chans {
		from := ch.Platform()
		g.Go(func() error {
			return ch.Run(gctx, func(ctx context.Context, ev relay.Event) {
				// Failures are logged and counted by the dispatcher.
				_ = d.Handle(ctx, from, ev)
			})
		})
	}
	err = g.Wait()

	logger.InfoCF("bridge", "Relay stopped", map[string]interface{}{
		"summary": b.stats.Summary(),
	})
	return err
}

func (b *Bridge) endpoint(ch channels.Channel) relay.Endpoint {
	return relay.Endpoint{
		Platform: ch.Platform(),
		Binding:  b.bindings[ch.Platform()],
		SelfID:   ch.SelfID(),
		Builder:  ch.Builder(),
		Sender:   ch.Sender(),
	}
}
