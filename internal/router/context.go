package router

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lucaspatel/kl-slack/internal/events"
	"github.com/lucaspatel/kl-slack/internal/slackclient"
)

// Context is built for a single dispatch and must not be retained after the
// handler returns.
type Context struct {
	Event  events.Event
	Files  FileInfoClient
	Logger *slog.Logger

	ack       func(ctx context.Context) error
	ackOnce   sync.Once
	ackErr    error
	responder Responder
}

func newContext(ev events.Event, caps Capabilities, rule string) *Context {
	logger := caps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	hc := &Context{
		Event:     ev,
		Files:     caps.Files,
		Logger:    logger.With("rule", rule, "kind", string(ev.Kind), "channel_id", ev.ChannelID),
		responder: caps.Responder,
	}
	if ev.Kind == events.KindAction {
		hc.ack = caps.Ack
	}
	return hc
}

// CanAck reports whether the event carries an acknowledge capability.
func (c *Context) CanAck() bool {
	return c != nil && c.ack != nil
}

// Ack acknowledges an interactive action. Only the first call reaches the
// platform; later calls return the first result.
func (c *Context) Ack(ctx context.Context) error {
	if c == nil || c.ack == nil {
		return fmt.Errorf("event %q cannot be acknowledged", c.kind())
	}
	c.ackOnce.Do(func() {
		c.ackErr = c.ack(ctx)
	})
	return c.ackErr
}

// Say posts text to the event's channel, in its thread when there is one.
func (c *Context) Say(ctx context.Context, text string) error {
	return c.SayMessage(ctx, slackclient.Message{Text: text})
}

// SayMessage posts msg to the event's channel unless msg names one.
func (c *Context) SayMessage(ctx context.Context, msg slackclient.Message) error {
	if c == nil || c.responder == nil {
		return fmt.Errorf("responder is not configured")
	}
	if msg.Channel == "" {
		msg.Channel = c.Event.ChannelID
	}
	if msg.ThreadTS == "" {
		msg.ThreadTS = c.Event.ThreadTS
	}
	return c.responder.PostMessage(ctx, msg)
}

func (c *Context) kind() events.Kind {
	if c == nil {
		return ""
	}
	return c.Event.Kind
}
