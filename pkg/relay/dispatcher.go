package relay

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/discogram/discogram/pkg/bus"
	"github.com/discogram/discogram/pkg/logger"
	"github.com/discogram/discogram/pkg/stats"
)

// Origin identifies where an inbound event came from.
type Origin struct {
	AuthorID string
	ChatID   string
	ThreadID string
	// Threaded is set when the chat is split into sub-threads (forum topics)
	// and ThreadID is meaningful.
	Threaded bool
}

// Binding pins the single bridged chat (and optional thread) on a platform.
type Binding struct {
	ChatID   string
	ThreadID string
}

// Matches reports whether an event from o belongs to the bridged endpoint.
func (b Binding) Matches(o Origin) bool {
	if o.ChatID != b.ChatID {
		return false
	}
	if o.Threaded {
		return o.ThreadID == b.ThreadID
	}
	return true
}

// Event is one raw inbound platform event.
type Event interface {
	Origin() Origin
}

// Builder turns a raw event from its platform into a canonical message.
// A nil message with a nil error means the event should be ignored.
type Builder interface {
	Build(ctx context.Context, ev Event) (*bus.Message, error)
}

// Limits are a destination's API constraints.
type Limits struct {
	MaxGroupSize   int
	MaxPerDispatch int
	MaxTextLen     int
	MaxCaptionLen  int
}

// Sender is the outbound side of one platform, bound to its endpoint.
type Sender interface {
	Dialect() Dialect
	Limits() Limits
	SendText(ctx context.Context, text string) error
	SendMedia(ctx context.Context, att bus.Attachment, caption string) error
	SendMediaGroup(ctx context.Context, items []bus.Attachment, caption string) error
}

// Endpoint is everything the dispatcher knows about one side of the bridge.
type Endpoint struct {
	Platform bus.Platform
	Binding  Binding
	// SelfID is the bridge's own author id on this platform.
	SelfID  string
	Builder Builder
	Sender  Sender
}

// DispatchError reports the outbound call that failed. Batches before it
// were delivered and are not rolled back.
type DispatchError struct {
	Batch int
	Total int
	Err   error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("send batch %d/%d: %v", e.Batch+1, e.Total, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// Dispatcher routes events from one endpoint to the other.
type Dispatcher struct {
	endpoints map[bus.Platform]Endpoint
	stats     *stats.Store
}

func NewDispatcher(a, b Endpoint, st *stats.Store) (*Dispatcher, error) {
	if a.Platform == b.Platform {
		return nil, fmt.Errorf("both endpoints are %s", a.Platform)
	}
	for _, ep := range []Endpoint{a, b} {
		if ep.Builder == nil || ep.Sender == nil {
			return nil, fmt.Errorf("%s endpoint is missing its builder or sender", ep.Platform)
		}
	}
	return &Dispatcher{
		endpoints: map[bus.Platform]Endpoint{
			a.Platform: a,
			b.Platform: b,
		},
		stats: st,
	}, nil
}

// Handle runs one inbound event through filter, build, render, shape
// selection and dispatch. Filtered and ignored events return nil.
func (d *Dispatcher) Handle(ctx context.Context, from bus.Platform, ev Event) error {
	src, ok := d.endpoints[from]
	if !ok {
		return fmt.Errorf("unknown source platform %q", from)
	}
	dst := d.endpoints[from.Opposite()]

	origin := ev.Origin()
	if (src.SelfID != "" && origin.AuthorID == src.SelfID) || !src.Binding.Matches(origin) {
		d.stats.Record(from, stats.Filtered, 0, 0)
		return nil
	}

	eventID := uuid.NewString()[:8]

	msg, err := src.Builder.Build(ctx, ev)
	if err != nil {
		d.stats.Record(from, stats.Failed, 0, 0)
		logger.ErrorCF("relay", "Failed to build message", map[string]interface{}{
			"event": eventID,
			"from":  string(from),
			"error": err.Error(),
		})
		return fmt.Errorf("build %s message: %w", from, err)
	}
	if msg.Empty() {
		d.stats.Record(from, stats.Ignored, 0, 0)
		return nil
	}

	sent, dropped, err := d.deliver(ctx, dst.Sender, msg)
	if err != nil {
		d.stats.Record(from, stats.Failed, sent, dropped)
		logger.ErrorCF("relay", "Failed to relay message", map[string]interface{}{
			"event": eventID,
			"from":  string(from),
			"to":    string(dst.Platform),
			"error": err.Error(),
		})
		return err
	}

	d.stats.Record(from, stats.Relayed, sent, dropped)
	logger.DebugCF("relay", "Message relayed", map[string]interface{}{
		"event":       eventID,
		"from":        string(from),
		"to":          string(dst.Platform),
		"attachments": sent,
		"dropped":     dropped,
		"quote":       msg.Quote != nil,
	})
	return nil
}

func (d *Dispatcher) deliver(ctx context.Context, dst Sender, msg *bus.Message) (sent, dropped int, err error) {
	limits := dst.Limits()
	dialect := dst.Dialect()
	text := Format(msg, dialect)

	batches := Plan(msg.Attachments, text, limits.MaxGroupSize, limits.MaxPerDispatch)
	if len(batches) == 0 {
		return 0, 0, sendText(ctx, dst, text, limits.MaxTextLen)
	}
	planned := 0
	for _, b := range batches {
		planned += len(b.Items)
	}
	dropped = len(msg.Attachments) - planned

	if limits.MaxCaptionLen > 0 && dialect.Length(text) > limits.MaxCaptionLen {
		if err := sendText(ctx, dst, text, limits.MaxTextLen); err != nil {
			return 0, dropped, err
		}
		batches[0].Caption = ""
	}

	delivered := 0
	for i, b := range batches {
		var sendErr error
		if b.Group {
			sendErr = dst.SendMediaGroup(ctx, b.Items, b.Caption)
		} else {
			sendErr = dst.SendMedia(ctx, b.Items[0], b.Caption)
		}
		if sendErr != nil {
			return delivered, dropped, &DispatchError{Batch: i, Total: len(batches), Err: sendErr}
		}
		delivered += len(b.Items)
	}

	if dropped > 0 {
		logger.WarnCF("relay", "Attachment set over destination limit, extra items dropped", map[string]interface{}{
			"limit":   limits.MaxPerDispatch,
			"dropped": dropped,
		})
	}
	return delivered, dropped, nil
}

func sendText(ctx context.Context, dst Sender, text string, maxLen int) error {
	chunks := splitText(text, maxLen, dst.Dialect())
	for i, chunk := range chunks {
		if err := dst.SendText(ctx, chunk); err != nil {
			return &DispatchError{Batch: i, Total: len(chunks), Err: err}
		}
	}
	return nil
}
