// Package slack runs the bot against a Slack workspace over Socket Mode.
package slack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	runtimeworker "github.com/lucaspatel/kl-slack/internal/channelruntime/worker"
	"github.com/lucaspatel/kl-slack/internal/events"
	"github.com/lucaspatel/kl-slack/internal/handlers"
	"github.com/lucaspatel/kl-slack/internal/healthcheck"
	"github.com/lucaspatel/kl-slack/internal/metrics"
	"github.com/lucaspatel/kl-slack/internal/replytext"
	"github.com/lucaspatel/kl-slack/internal/retriever"
	"github.com/lucaspatel/kl-slack/internal/router"
	"github.com/lucaspatel/kl-slack/internal/slackclient"
	"github.com/lucaspatel/kl-slack/internal/socketmode"
)

const reconnectDelay = 2 * time.Second

type slackJob struct {
	Event events.Event
	// Ack is set for interactive envelopes only; it is safe to call twice.
	Ack func(context.Context) error
}

// acker writes Socket Mode acknowledgements.
type acker interface {
	Ack(envelopeID string) error
}

type dispatcher struct {
	logger          *slog.Logger
	hooks           Hooks
	router          *router.Router
	responder       router.Responder
	files           router.FileInfoClient
	allowedTeams    map[string]bool
	allowedChannels map[string]bool
	workersCtx      context.Context
	jobs            chan slackJob
}

func Run(ctx context.Context, d Dependencies, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	opts, err := resolveRunOptions(opts)
	if err != nil {
		return err
	}
	logger, err := loggerFromDeps(d)
	if err != nil {
		return err
	}
	hooks := opts.Hooks

	api := slackclient.New(&http.Client{Timeout: opts.RequestTimeout}, opts.BaseURL, opts.BotToken)
	auth, err := api.AuthTest(ctx)
	if err != nil {
		return fmt.Errorf("slack auth.test: %w", err)
	}
	allowedTeams := toAllowlist(opts.AllowedTeamIDs)
	allowedChannels := toAllowlist(opts.AllowedChannelIDs)
	if len(allowedTeams) == 0 && auth.TeamID != "" {
		allowedTeams[auth.TeamID] = true
	}

	store, err := storeFromDeps(ctx, d, opts.Files)
	if err != nil {
		return fmt.Errorf("file store: %w", err)
	}
	notifier, err := notifierFromDeps(ctx, d, logger, opts.Notify)
	if err != nil {
		return fmt.Errorf("notifier: %w", err)
	}
	defer func() { _ = notifier.Close() }()
	replies, err := replytext.Load(opts.RepliesPath)
	if err != nil {
		return err
	}

	fileShare := &handlers.FileShare{
		Downloader: retriever.NewDownloader(retriever.Options{
			BotToken: opts.BotToken,
			MaxBytes: opts.Files.MaxBytes,
			Timeout:  opts.RequestTimeout,
		}),
		Store:          store,
		Notifier:       notifier,
		Replies:        replies,
		RequestTimeout: opts.RequestTimeout,
		SniffContent:   opts.Files.SniffContent,
	}
	rtr := handlers.NewRouter(replies, fileShare)

	var connected atomic.Bool
	if opts.HealthListen != "" {
		ready := func(context.Context) error {
			if !connected.Load() {
				return errors.New("slack socket is not connected")
			}
			return nil
		}
		healthServer, err := healthcheck.StartServer(ctx, logger, opts.HealthListen, "slack", ready)
		if err != nil {
			logger.Warn("slack_health_server_start_error", "addr", opts.HealthListen, "error", err.Error())
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				_ = healthServer.Shutdown(shutdownCtx)
				cancel()
			}()
		}
	}

	workersCtx, stopWorkers := context.WithCancel(ctx)
	var inFlight sync.WaitGroup
	defer func() {
		stopWorkers()
		inFlight.Wait()
	}()

	disp := &dispatcher{
		logger:          logger,
		hooks:           hooks,
		router:          rtr,
		responder:       api,
		files:           api,
		allowedTeams:    allowedTeams,
		allowedChannels: allowedChannels,
		workersCtx:      workersCtx,
		jobs:            make(chan slackJob, opts.MaxConcurrency*4),
	}
	runtimeworker.Start(runtimeworker.StartOptions[slackJob]{
		Ctx:    workersCtx,
		Sem:    make(chan struct{}, opts.MaxConcurrency),
		Jobs:   disp.jobs,
		Handle: disp.dispatch,
		Wait:   &inFlight,
	})

	logger.Info("slack_start",
		"bot_user_id", auth.UserID,
		"team_id", auth.TeamID,
		"allowed_team_ids", len(allowedTeams),
		"allowed_channel_ids", len(allowedChannels),
		"max_concurrency", opts.MaxConcurrency,
		"file_backend", opts.Files.Backend,
		"rules", rtr.Len(),
	)

	for {
		if ctx.Err() != nil {
			logger.Info("slack_stop", "reason", "context_canceled")
			return nil
		}
		conn, err := socketmode.Connect(ctx, api, opts.AppToken)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("slack_stop", "reason", "context_canceled")
				return nil
			}
			logger.Warn("slack_socket_connect_error", "error", err.Error())
			callErrorHook(ctx, logger, hooks, ErrorEvent{Stage: ErrorStageSocketConnect, Err: err})
			if err := sleepWithContext(ctx, reconnectDelay); err != nil {
				return nil
			}
			continue
		}
		connected.Store(true)
		logger.Info("slack_socket_connected")
		readErr := conn.Consume(ctx, func(env socketmode.Envelope) error {
			disp.handleEnvelope(ctx, conn, env)
			return nil
		})
		connected.Store(false)
		_ = conn.Close()
		switch {
		case readErr == nil, errors.Is(readErr, context.Canceled), errors.Is(readErr, context.DeadlineExceeded):
		case errors.Is(readErr, socketmode.ErrDisconnect):
			logger.Info("slack_socket_disconnect", "reason", readErr.Error())
		default:
			logger.Warn("slack_socket_read_error", "error", readErr.Error())
			callErrorHook(ctx, logger, hooks, ErrorEvent{Stage: ErrorStageSocketRead, Err: readErr})
		}
	}
}

// handleEnvelope acks and queues one envelope. events_api envelopes are acked
// immediately; interactive acks are left to the handler, with a fallback after
// dispatch.
func (d *dispatcher) handleEnvelope(ctx context.Context, conn acker, env socketmode.Envelope) {
	ackNow := func() {
		if err := conn.Ack(env.EnvelopeID); err != nil {
			d.logger.Warn("slack_ack_error", "envelope_id", env.EnvelopeID, "error", err.Error())
			callErrorHook(ctx, d.logger, d.hooks, ErrorEvent{Stage: ErrorStageAck, EnvelopeID: env.EnvelopeID, Err: err})
		}
	}

	ev, ok, err := socketmode.Decode(env)
	if err != nil {
		ackNow()
		d.logger.Warn("slack_decode_error", "envelope_id", env.EnvelopeID, "type", env.Type, "error", err.Error())
		callErrorHook(ctx, d.logger, d.hooks, ErrorEvent{Stage: ErrorStageDecode, EnvelopeID: env.EnvelopeID, Err: err})
		return
	}
	if !ok || !d.allowed(ev) {
		ackNow()
		return
	}

	job := slackJob{Event: ev}
	if ev.Kind == events.KindAction && env.NeedsAck() {
		var once sync.Once
		var ackErr error
		job.Ack = func(context.Context) error {
			once.Do(func() { ackErr = conn.Ack(env.EnvelopeID) })
			return ackErr
		}
	} else {
		ackNow()
	}

	if err := runtimeworker.Enqueue(ctx, d.workersCtx, d.jobs, job); err != nil {
		if job.Ack != nil {
			_ = job.Ack(ctx)
		}
		callErrorHook(ctx, d.logger, d.hooks, ErrorEvent{Stage: ErrorStageEnqueue, EnvelopeID: ev.EnvelopeID, TeamID: ev.TeamID, ChannelID: ev.ChannelID, Err: err})
		return
	}
	callInboundHook(ctx, d.logger, d.hooks, InboundEvent{
		EnvelopeID: ev.EnvelopeID,
		Kind:       string(ev.Kind),
		TeamID:     ev.TeamID,
		ChannelID:  ev.ChannelID,
		UserID:     ev.UserID,
	})
}

func (d *dispatcher) allowed(ev events.Event) bool {
	if len(d.allowedTeams) > 0 && ev.TeamID != "" && !d.allowedTeams[ev.TeamID] {
		return false
	}
	if len(d.allowedChannels) > 0 && !d.allowedChannels[ev.ChannelID] {
		return false
	}
	return true
}

// dispatch runs on a worker goroutine. A failing or panicking handler is
// logged and never stops the runtime.
func (d *dispatcher) dispatch(ctx context.Context, job slackJob) {
	ev := job.Event
	logger := d.logger.With("envelope_id", ev.EnvelopeID, "kind", string(ev.Kind), "channel_id", ev.ChannelID)
	defer func() {
		if r := recover(); r != nil {
			metrics.ObserveHandlerError(string(ErrorStagePanic))
			logger.Error("slack_handler_panic", "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			callErrorHook(ctx, d.logger, d.hooks, ErrorEvent{Stage: ErrorStagePanic, EnvelopeID: ev.EnvelopeID, TeamID: ev.TeamID, ChannelID: ev.ChannelID, Err: fmt.Errorf("panic: %v", r)})
		}
		if job.Ack != nil {
			if err := job.Ack(ctx); err != nil {
				logger.Warn("slack_ack_error", "error", err.Error())
			}
		}
	}()

	matched, err := d.router.Dispatch(ctx, ev, router.Capabilities{
		Ack:       job.Ack,
		Responder: d.responder,
		Files:     d.files,
		Logger:    logger,
	})
	metrics.ObserveDispatch(string(ev.Kind), matched)
	if err != nil {
		metrics.ObserveHandlerError(string(ErrorStageDispatch))
		logger.Warn("slack_dispatch_error", "error", err.Error())
		callErrorHook(ctx, d.logger, d.hooks, ErrorEvent{Stage: ErrorStageDispatch, EnvelopeID: ev.EnvelopeID, TeamID: ev.TeamID, ChannelID: ev.ChannelID, Err: err})
		return
	}
	if !matched {
		logger.Debug("slack_event_unrouted")
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
