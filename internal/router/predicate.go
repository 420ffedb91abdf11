package router

import (
	"strings"

	"github.com/lucaspatel/kl-slack/internal/events"
)

// Predicate decides whether a rule applies to an event.
type Predicate interface {
	Match(ev events.Event) bool
}

// PredicateFunc adapts a function to Predicate.
type PredicateFunc func(ev events.Event) bool

func (f PredicateFunc) Match(ev events.Event) bool {
	if f == nil {
		return false
	}
	return f(ev)
}

type textContains string

// TextContains matches plain messages whose text contains substr.
func TextContains(substr string) Predicate { return textContains(substr) }

func (p textContains) Match(ev events.Event) bool {
	if ev.Kind != events.KindMessage || p == "" {
		return false
	}
	return strings.Contains(ev.Text, string(p))
}

type actionID string

// ActionID matches interactive actions with exactly this action_id.
func ActionID(id string) Predicate { return actionID(strings.TrimSpace(id)) }

func (p actionID) Match(ev events.Event) bool {
	return ev.Kind == events.KindAction && p != "" && ev.ActionID == string(p)
}

type eventType struct {
	typ     string
	subtype string
}

// EventType matches on the {type, subtype} pair. An empty subtype only
// matches events without one.
func EventType(typ, subtype string) Predicate {
	return eventType{typ: strings.TrimSpace(typ), subtype: strings.TrimSpace(subtype)}
}

func (p eventType) Match(ev events.Event) bool {
	return p.typ != "" && ev.Type == p.typ && ev.Subtype == p.subtype
}
