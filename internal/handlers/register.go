// Package handlers holds the bot's behaviour and the order it is routed in.
package handlers

import (
	"github.com/lucaspatel/kl-slack/internal/events"
	"github.com/lucaspatel/kl-slack/internal/replytext"
	"github.com/lucaspatel/kl-slack/internal/router"
)

// NewRouter registers every handler. File shares go first on purpose, ahead
// of the hello greeting, so a PDF posted with "hello" in its comment is
// ingested rather than greeted.
func NewRouter(replies *replytext.Catalog, files *FileShare) *router.Router {
	if replies == nil {
		replies = replytext.Default()
	}
	r := router.New()
	if files != nil {
		if files.Replies == nil {
			files.Replies = replies
		}
		r.Register("file_share", router.EventType(events.TypeMessage, events.SubtypeFileShare), files.Handle)
	}
	r.Register("button_click", router.ActionID(ButtonActionID), ButtonClick(replies))
	r.Register("message_hello", router.TextContains(HelloTrigger), Hello(replies))
	return r
}
