package slack

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lucaspatel/kl-slack/internal/events"
	"github.com/lucaspatel/kl-slack/internal/router"
	"github.com/lucaspatel/kl-slack/internal/slackclient"
	"github.com/lucaspatel/kl-slack/internal/socketmode"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeAcker struct {
	mu   sync.Mutex
	acks []string
	err  error
}

func (a *fakeAcker) Ack(id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acks = append(a.acks, id)
	return a.err
}

func (a *fakeAcker) snapshot() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.acks...)
}

type nopResponder struct{}

func (nopResponder) PostMessage(context.Context, slackclient.Message) error { return nil }

func newTestDispatcher(r *router.Router) *dispatcher {
	return &dispatcher{
		logger:          discardLogger(),
		router:          r,
		responder:       nopResponder{},
		allowedTeams:    map[string]bool{},
		allowedChannels: map[string]bool{},
		workersCtx:      context.Background(),
		jobs:            make(chan slackJob, 4),
	}
}

func messageEnvelope(id, channel, text string) socketmode.Envelope {
	payload, _ := json.Marshal(map[string]any{
		"team_id": "T1",
		"event":   map[string]any{"type": "message", "user": "U1", "channel": channel, "text": text},
	})
	return socketmode.Envelope{EnvelopeID: id, Type: socketmode.TypeEventsAPI, Payload: payload}
}

func actionEnvelope(id string) socketmode.Envelope {
	payload, _ := json.Marshal(map[string]any{
		"type":    "block_actions",
		"user":    map[string]any{"id": "U1"},
		"channel": map[string]any{"id": "C1"},
		"actions": []any{map[string]any{"action_id": "button_click"}},
	})
	return socketmode.Envelope{EnvelopeID: id, Type: socketmode.TypeInteractive, Payload: payload}
}

func TestHandleEnvelopeAcksEventsImmediately(t *testing.T) {
	d := newTestDispatcher(router.New())
	var inbound []InboundEvent
	d.hooks.OnInbound = func(_ context.Context, ev InboundEvent) { inbound = append(inbound, ev) }
	conn := &fakeAcker{}

	d.handleEnvelope(context.Background(), conn, messageEnvelope("E1", "C1", "hello"))

	if acks := conn.snapshot(); len(acks) != 1 || acks[0] != "E1" {
		t.Fatalf("acks = %v, want [E1]", acks)
	}
	job := <-d.jobs
	if job.Ack != nil {
		t.Fatalf("message jobs should not carry an ack")
	}
	if job.Event.Kind != events.KindMessage || job.Event.Text != "hello" {
		t.Fatalf("job event = %#v", job.Event)
	}
	if len(inbound) != 1 || inbound[0].EnvelopeID != "E1" {
		t.Fatalf("inbound hooks = %#v", inbound)
	}
}

func TestHandleEnvelopeDefersInteractiveAck(t *testing.T) {
	d := newTestDispatcher(router.New())
	conn := &fakeAcker{}

	d.handleEnvelope(context.Background(), conn, actionEnvelope("E2"))
	if acks := conn.snapshot(); len(acks) != 0 {
		t.Fatalf("interactive envelope acked before dispatch: %v", acks)
	}
	job := <-d.jobs
	if job.Ack == nil {
		t.Fatalf("action job should carry an ack")
	}
	_ = job.Ack(context.Background())
	_ = job.Ack(context.Background())
	if acks := conn.snapshot(); len(acks) != 1 || acks[0] != "E2" {
		t.Fatalf("acks = %v, want one E2", acks)
	}
}

func TestHandleEnvelopeFiltersChannels(t *testing.T) {
	d := newTestDispatcher(router.New())
	d.allowedChannels = map[string]bool{"C1": true}
	conn := &fakeAcker{}

	d.handleEnvelope(context.Background(), conn, messageEnvelope("E3", "C9", "hello"))
	if acks := conn.snapshot(); len(acks) != 1 {
		t.Fatalf("filtered envelope should still be acked: %v", acks)
	}
	if len(d.jobs) != 0 {
		t.Fatalf("filtered envelope was queued")
	}
}

func TestHandleEnvelopeDecodeError(t *testing.T) {
	d := newTestDispatcher(router.New())
	var stages []ErrorStage
	d.hooks.OnError = func(_ context.Context, ev ErrorEvent) { stages = append(stages, ev.Stage) }
	conn := &fakeAcker{}

	d.handleEnvelope(context.Background(), conn, socketmode.Envelope{EnvelopeID: "E4", Type: socketmode.TypeEventsAPI, Payload: json.RawMessage(`[`)})
	if acks := conn.snapshot(); len(acks) != 1 {
		t.Fatalf("acks = %v", acks)
	}
	if len(stages) != 1 || stages[0] != ErrorStageDecode {
		t.Fatalf("error stages = %v", stages)
	}
}

func TestDispatchRecoversPanicAndAcks(t *testing.T) {
	r := router.New()
	r.Register("boom", router.ActionID("button_click"), func(context.Context, *router.Context) error {
		panic("boom")
	})
	d := newTestDispatcher(r)
	var stages []ErrorStage
	d.hooks.OnError = func(_ context.Context, ev ErrorEvent) { stages = append(stages, ev.Stage) }
	conn := &fakeAcker{}

	d.handleEnvelope(context.Background(), conn, actionEnvelope("E5"))
	d.dispatch(context.Background(), <-d.jobs)

	if acks := conn.snapshot(); len(acks) != 1 || acks[0] != "E5" {
		t.Fatalf("acks = %v, want fallback ack", acks)
	}
	if len(stages) != 1 || stages[0] != ErrorStagePanic {
		t.Fatalf("error stages = %v", stages)
	}
}

func TestDispatchReportsHandlerError(t *testing.T) {
	r := router.New()
	r.Register("fails", router.TextContains("hello"), func(context.Context, *router.Context) error {
		return errors.New("post failed")
	})
	d := newTestDispatcher(r)
	var got []ErrorEvent
	d.hooks.OnError = func(_ context.Context, ev ErrorEvent) { got = append(got, ev) }

	d.handleEnvelope(context.Background(), &fakeAcker{}, messageEnvelope("E6", "C1", "hello"))
	d.dispatch(context.Background(), <-d.jobs)

	if len(got) != 1 || got[0].Stage != ErrorStageDispatch || !strings.Contains(got[0].Err.Error(), "fails: post failed") {
		t.Fatalf("error events = %#v", got)
	}
}

func TestRunAnswersHelloOverSocket(t *testing.T) {
	var (
		mu     sync.Mutex
		posted []slackclient.Message
	)
	postedCh := make(chan struct{}, 1)
	acked := make(chan string, 4)
	done := make(chan struct{})
	defer close(done)

	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/api/auth.test", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"ok":true,"user_id":"UB","team_id":"T1"}`)
	})
	mux.HandleFunc("/api/apps.connections.open", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer xapp-test" {
			_, _ = io.WriteString(w, `{"ok":false,"error":"invalid_auth"}`)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "url": "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"})
	})
	mux.HandleFunc("/api/chat.postMessage", func(w http.ResponseWriter, r *http.Request) {
		var msg slackclient.Message
		_ = json.NewDecoder(r.Body).Decode(&msg)
		mu.Lock()
		posted = append(posted, msg)
		mu.Unlock()
		_, _ = io.WriteString(w, `{"ok":true}`)
		select {
		case postedCh <- struct{}{}:
		default:
		}
	})
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"hello"}`))
		_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"envelope_id":"E1","type":"events_api","payload":{"team_id":"T1","event":{"type":"message","user":"U1","channel":"C1","text":"hello there"}}}`))
		go func() {
			<-done
			_ = ws.Close()
		}()
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			var frame struct {
				EnvelopeID string `json:"envelope_id"`
			}
			if json.Unmarshal(data, &frame) == nil {
				acked <- frame.EnvelopeID
			}
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() {
		errCh <- Run(ctx, Dependencies{
			Logger: func() (*slog.Logger, error) { return discardLogger(), nil },
		}, RunOptions{
			BotToken: "xoxb-test",
			AppToken: "xapp-test",
			BaseURL:  srv.URL + "/api",
			Files:    FileOptions{Dir: t.TempDir()},
		})
	}()

	select {
	case id := <-acked:
		if id != "E1" {
			t.Fatalf("ack = %q, want E1", id)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("envelope was not acked")
	}
	select {
	case <-postedCh:
	case <-time.After(5 * time.Second):
		t.Fatalf("no reply posted")
	}
	mu.Lock()
	msg := posted[0]
	mu.Unlock()
	if msg.Channel != "C1" || msg.Text != "Hey there <@U1>!" || len(msg.Blocks) != 1 {
		t.Fatalf("posted = %#v", msg)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not stop after cancel")
	}
}

func TestRunRequiresLogger(t *testing.T) {
	err := Run(context.Background(), Dependencies{}, RunOptions{BotToken: "xoxb", AppToken: "xapp"})
	if err == nil || !strings.Contains(err.Error(), "Logger") {
		t.Fatalf("Run() error = %v", err)
	}
}
