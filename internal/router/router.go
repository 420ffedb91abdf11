// Package router maps inbound events to the first matching handler.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lucaspatel/kl-slack/internal/events"
	"github.com/lucaspatel/kl-slack/internal/slackclient"
)

// Handler reacts to one matched event.
type Handler func(ctx context.Context, hc *Context) error

// Responder posts messages back to the platform.
type Responder interface {
	PostMessage(ctx context.Context, msg slackclient.Message) error
}

// FileInfoClient answers secondary file lookups.
type FileInfoClient interface {
	FilesInfo(ctx context.Context, fileID string) (slackclient.FileInfo, error)
}

// Capabilities are the per-dispatch collaborators handed to the router by the
// transport.
type Capabilities struct {
	Ack       func(ctx context.Context) error
	Responder Responder
	Files     FileInfoClient
	Logger    *slog.Logger
}

type rule struct {
	name    string
	pred    Predicate
	handler Handler
}

// Router holds an ordered rule table. Register all rules before the first
// Dispatch; the table is only read afterwards, so Dispatch is safe to call
// from many goroutines.
type Router struct {
	rules []rule
}

// New returns an empty router.
func New() *Router {
	return &Router{}
}

// Register appends a rule; rules are tried in registration order.
func (r *Router) Register(name string, pred Predicate, h Handler) {
	if pred == nil || h == nil {
		panic(fmt.Sprintf("router: rule %q needs a predicate and a handler", name))
	}
	r.rules = append(r.rules, rule{name: strings.TrimSpace(name), pred: pred, handler: h})
}

// Len reports how many rules are registered.
func (r *Router) Len() int {
	if r == nil {
		return 0
	}
	return len(r.rules)
}

// Match returns the name of the first rule matching ev.
func (r *Router) Match(ev events.Event) (string, bool) {
	if idx := r.match(ev); idx >= 0 {
		return r.rules[idx].name, true
	}
	return "", false
}

func (r *Router) match(ev events.Event) int {
	if r == nil {
		return -1
	}
	for i, rl := range r.rules {
		if rl.pred.Match(ev) {
			return i
		}
	}
	return -1
}

// Dispatch invokes the first matching handler. It reports false without error
// when nothing matches.
func (r *Router) Dispatch(ctx context.Context, ev events.Event, caps Capabilities) (bool, error) {
	idx := r.match(ev)
	if idx < 0 {
		return false, nil
	}
	rl := r.rules[idx]
	hc := newContext(ev, caps, rl.name)
	if err := rl.handler(ctx, hc); err != nil {
		return true, fmt.Errorf("%s: %w", rl.name, err)
	}
	return true, nil
}
