package handlers

import (
	"context"

	"github.com/lucaspatel/kl-slack/internal/replytext"
	"github.com/lucaspatel/kl-slack/internal/router"
	"github.com/lucaspatel/kl-slack/internal/slackclient"
)

const (
	HelloTrigger   = "hello"
	ButtonActionID = "button_click"
)

// Hello greets the author with a section block carrying a button.
func Hello(replies *replytext.Catalog) router.Handler {
	return func(ctx context.Context, hc *router.Context) error {
		data := replytext.Data{User: hc.Event.UserID}
		greeting := replies.Render(replytext.Greeting, data)
		return hc.SayMessage(ctx, slackclient.Message{
			Text: greeting,
			Blocks: []slackclient.Block{{
				Type: "section",
				Text: &slackclient.TextObject{Type: "mrkdwn", Text: greeting},
				Accessory: &slackclient.Element{
					Type:     "button",
					Text:     &slackclient.TextObject{Type: "plain_text", Text: replies.Render(replytext.GreetingButton, data)},
					ActionID: ButtonActionID,
				},
			}},
		})
	}
}

// ButtonClick acknowledges the action before replying.
func ButtonClick(replies *replytext.Catalog) router.Handler {
	return func(ctx context.Context, hc *router.Context) error {
		if err := hc.Ack(ctx); err != nil {
			return err
		}
		return hc.Say(ctx, replies.Render(replytext.ButtonClicked, replytext.Data{User: hc.Event.UserID}))
	}
}
