// Package socketmode speaks Slack's Socket Mode protocol: it opens the
// websocket, reads envelopes, acknowledges them and decodes the payloads the
// bot cares about into events.Event.
package socketmode

import (
	"encoding/json"
	"fmt"

	"github.com/lucaspatel/kl-slack/internal/events"
)

const (
	TypeHello         = "hello"
	TypeDisconnect    = "disconnect"
	TypeEventsAPI     = "events_api"
	TypeInteractive   = "interactive"
	TypeSlashCommands = "slash_commands"
)

type Envelope struct {
	EnvelopeID             string          `json:"envelope_id,omitempty"`
	Type                   string          `json:"type"`
	Payload                json.RawMessage `json:"payload,omitempty"`
	AcceptsResponsePayload bool            `json:"accepts_response_payload,omitempty"`
	RetryAttempt           int             `json:"retry_attempt,omitempty"`
	RetryReason            string          `json:"retry_reason,omitempty"`
	Reason                 string          `json:"reason,omitempty"`
}

// NeedsAck reports whether Slack expects an acknowledgement for env.
func (env Envelope) NeedsAck() bool {
	return env.EnvelopeID != ""
}

type eventsAPIPayload struct {
	TeamID  string         `json:"team_id"`
	EventID string         `json:"event_id"`
	Event   map[string]any `json:"event"`
}

// Decode turns an envelope into an Event. ok is false for envelopes that
// carry nothing the bot routes on.
func Decode(env Envelope) (events.Event, bool, error) {
	switch env.Type {
	case TypeEventsAPI:
		var payload eventsAPIPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return events.Event{}, false, fmt.Errorf("decode events_api payload: %w", err)
		}
		ev, ok := events.FromMessageEvent(payload.Event)
		if !ok {
			return events.Event{}, false, nil
		}
		if ev.TeamID == "" {
			ev.TeamID = payload.TeamID
		}
		ev.EnvelopeID = env.EnvelopeID
		return ev, true, nil
	case TypeInteractive:
		var payload map[string]any
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return events.Event{}, false, fmt.Errorf("decode interactive payload: %w", err)
		}
		ev, ok := events.FromInteractivePayload(payload)
		if !ok {
			return events.Event{}, false, nil
		}
		ev.EnvelopeID = env.EnvelopeID
		return ev, true, nil
	default:
		return events.Event{}, false, nil
	}
}
