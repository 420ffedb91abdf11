package socketmode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeTimeout = 10 * time.Second

// ErrDisconnect is returned by Consume when Slack asks the client to
// reconnect.
var ErrDisconnect = errors.New("slack socket disconnect requested")

// Opener exchanges an app-level token for a websocket URL.
type Opener interface {
	OpenConnection(ctx context.Context, appToken string) (string, error)
}

// Conn is one Socket Mode websocket. Writes are serialized, so Ack may be
// called from any goroutine while Consume reads.
type Conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

// Connect calls apps.connections.open and dials the returned URL.
func Connect(ctx context.Context, opener Opener, appToken string) (*Conn, error) {
	if opener == nil {
		return nil, fmt.Errorf("socket mode opener is not configured")
	}
	url, err := opener.OpenConnection(ctx, appToken)
	if err != nil {
		return nil, err
	}
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("slack apps.connections.open returned empty url")
	}
	dialer := *websocket.DefaultDialer
	ws, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return &Conn{ws: ws}, nil
}

type ackFrame struct {
	EnvelopeID string `json:"envelope_id"`
}

// Ack acknowledges an envelope. Envelopes without an id need no ack.
func (c *Conn) Ack(envelopeID string) error {
	envelopeID = strings.TrimSpace(envelopeID)
	if envelopeID == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteJSON(ackFrame{EnvelopeID: envelopeID})
}

func (c *Conn) Close() error {
	return c.ws.Close()
}

// Consume reads envelopes until ctx is done, the socket fails, Slack sends a
// disconnect, or handle returns an error. hello frames are swallowed.
func (c *Conn) Consume(ctx context.Context, handle func(Envelope) error) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = c.ws.Close()
		case <-stop:
		}
	}()

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}
		switch env.Type {
		case TypeHello:
			continue
		case TypeDisconnect:
			return fmt.Errorf("%w: %s", ErrDisconnect, strings.TrimSpace(env.Reason))
		}
		if err := handle(env); err != nil {
			return err
		}
	}
}
