package slack

import (
	"context"
	"fmt"
	"log/slog"
)

type ErrorStage string

const (
	ErrorStageSocketConnect ErrorStage = "socket_connect"
	ErrorStageSocketRead    ErrorStage = "socket_read"
	ErrorStageDecode        ErrorStage = "decode"
	ErrorStageAck           ErrorStage = "ack"
	ErrorStageEnqueue       ErrorStage = "enqueue"
	ErrorStageDispatch      ErrorStage = "dispatch"
	ErrorStagePanic         ErrorStage = "panic"
)

// InboundEvent describes an event accepted for dispatch.
type InboundEvent struct {
	EnvelopeID string
	Kind       string
	TeamID     string
	ChannelID  string
	UserID     string
}

type ErrorEvent struct {
	Stage      ErrorStage
	EnvelopeID string
	TeamID     string
	ChannelID  string
	Err        error
}

// Hooks let an embedding program observe the runtime. Hooks run
// synchronously on the calling goroutine and must not block.
type Hooks struct {
	OnInbound func(context.Context, InboundEvent)
	OnError   func(context.Context, ErrorEvent)
}

func callInboundHook(ctx context.Context, logger *slog.Logger, hooks Hooks, ev InboundEvent) {
	if hooks.OnInbound == nil {
		return
	}
	defer recoverHook(logger, "on_inbound")
	hooks.OnInbound(ctx, ev)
}

func callErrorHook(ctx context.Context, logger *slog.Logger, hooks Hooks, ev ErrorEvent) {
	if hooks.OnError == nil {
		return
	}
	defer recoverHook(logger, "on_error")
	hooks.OnError(ctx, ev)
}

func recoverHook(logger *slog.Logger, name string) {
	if r := recover(); r != nil && logger != nil {
		logger.Warn("slack_hook_panic", "hook", name, "panic", fmt.Sprint(r))
	}
}
