package channels

import (
	"context"
	"sync"

	"github.com/discogram/discogram/pkg/bus"
	"github.com/discogram/discogram/pkg/relay"
)

// EventHandler receives every inbound event a channel observes. Filtering
// happens downstream.
type EventHandler func(ctx context.Context, ev relay.Event)

// Channel is one platform connection of the bridge.
type Channel interface {
	Platform() bus.Platform
	// Connect authenticates and resolves the bridge's own identity.
	Connect(ctx context.Context) error
	// Run delivers events to handler until ctx is done or the stream fails.
	Run(ctx context.Context, handler EventHandler) error
	SelfID() string
	Builder() relay.Builder
	Sender() relay.Sender
}

// BaseChannel holds the state shared by the platform channels.
type BaseChannel struct {
	platform bus.Platform
	mu       sync.RWMutex
	handler  EventHandler
	ctx      context.Context
}

func NewBaseChannel(platform bus.Platform) *BaseChannel {
	return &BaseChannel{platform: platform}
}

func (c *BaseChannel) Platform() bus.Platform {
	return c.platform
}

// bind registers the handler for the lifetime of ctx.
func (c *BaseChannel) bind(ctx context.Context, h EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ctx = ctx
	c.handler = h
}

func (c *BaseChannel) unbind() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ctx = nil
	c.handler = nil
}

// emit forwards ev to the bound handler. Events that arrive while no
// handler is bound are dropped.
func (c *BaseChannel) emit(ev relay.Event) bool {
	c.mu.RLock()
	h, ctx := c.handler, c.ctx
	c.mu.RUnlock()
	if h == nil {
		return false
	}
	h(ctx, ev)
	return true
}
