// Package events normalizes Slack Socket Mode payloads into the three event
// shapes the bot reacts to.
package events

import (
	"strings"
)

type Kind string

const (
	KindMessage   Kind = "message"
	KindAction    Kind = "action"
	KindFileShare Kind = "file_share"
)

const (
	TypeMessage      = "message"
	TypeBlockActions = "block_actions"

	SubtypeFileShare = "file_share"
)

// Event is a single inbound notification. Fields that are not normalized stay
// reachable through Raw.
type Event struct {
	Kind       Kind
	Type       string
	Subtype    string
	EnvelopeID string
	TeamID     string
	ChannelID  string
	UserID     string
	Text       string
	ActionID   string
	TS         string
	ThreadTS   string
	Raw        map[string]any
}

// FromMessageEvent builds an Event from the inner "event" object of an
// events_api envelope. ok is false for messages the bot never reacts to:
// bot-authored messages, edits, deletions and other housekeeping subtypes.
func FromMessageEvent(raw map[string]any) (Event, bool) {
	if raw == nil {
		return Event{}, false
	}
	typ := String(raw, "type")
	if typ != TypeMessage {
		return Event{}, false
	}
	if String(raw, "bot_id") != "" {
		return Event{}, false
	}
	subtype := String(raw, "subtype")
	var kind Kind
	switch subtype {
	case "":
		kind = KindMessage
	case SubtypeFileShare:
		kind = KindFileShare
	default:
		return Event{}, false
	}
	return Event{
		Kind:      kind,
		Type:      typ,
		Subtype:   subtype,
		TeamID:    firstNonEmpty(String(raw, "team"), String(raw, "user_team")),
		ChannelID: String(raw, "channel"),
		UserID:    String(raw, "user"),
		Text:      String(raw, "text"),
		TS:        String(raw, "ts"),
		ThreadTS:  String(raw, "thread_ts"),
		Raw:       raw,
	}, true
}

// FromInteractivePayload builds an Event from a block_actions payload. Only the
// first action is considered.
func FromInteractivePayload(raw map[string]any) (Event, bool) {
	if raw == nil {
		return Event{}, false
	}
	if String(raw, "type") != TypeBlockActions {
		return Event{}, false
	}
	actions, _ := raw["actions"].([]any)
	if len(actions) == 0 {
		return Event{}, false
	}
	first, _ := actions[0].(map[string]any)
	actionID := String(first, "action_id")
	if actionID == "" {
		return Event{}, false
	}
	return Event{
		Kind:      KindAction,
		Type:      TypeBlockActions,
		TeamID:    Lookup(raw, "team", "id"),
		ChannelID: firstNonEmpty(Lookup(raw, "channel", "id"), Lookup(raw, "container", "channel_id")),
		UserID:    Lookup(raw, "user", "id"),
		ActionID:  actionID,
		TS:        Lookup(raw, "container", "message_ts"),
		ThreadTS:  Lookup(raw, "container", "thread_ts"),
		Raw:       raw,
	}, true
}

// String returns raw[key] when it is a string, trimmed.
func String(raw map[string]any, key string) string {
	if raw == nil {
		return ""
	}
	v, _ := raw[key].(string)
	return strings.TrimSpace(v)
}

// Lookup walks nested objects and returns the string at the end of path.
func Lookup(raw map[string]any, path ...string) string {
	if len(path) == 0 {
		return ""
	}
	cur := raw
	for _, key := range path[:len(path)-1] {
		next, ok := cur[key].(map[string]any)
		if !ok {
			return ""
		}
		cur = next
	}
	return String(cur, path[len(path)-1])
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
