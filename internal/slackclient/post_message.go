package slackclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Message is a chat.postMessage request. Text doubles as the notification
// fallback when Blocks are set.
type Message struct {
	Channel  string  `json:"channel"`
	Text     string  `json:"text,omitempty"`
	ThreadTS string  `json:"thread_ts,omitempty"`
	Blocks   []Block `json:"blocks,omitempty"`
}

type Block struct {
	Type      string      `json:"type"`
	Text      *TextObject `json:"text,omitempty"`
	Accessory *Element    `json:"accessory,omitempty"`
}

type TextObject struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type Element struct {
	Type     string      `json:"type"`
	Text     *TextObject `json:"text,omitempty"`
	ActionID string      `json:"action_id,omitempty"`
	Value    string      `json:"value,omitempty"`
}

// PostMessage sends msg. Only HTTP 429, which Slack answers without posting,
// is retried.
func (c *Client) PostMessage(ctx context.Context, msg Message) error {
	if c == nil || c.http == nil {
		return fmt.Errorf("slack client is not initialized")
	}
	msg.Channel = strings.TrimSpace(msg.Channel)
	msg.Text = strings.TrimSpace(msg.Text)
	msg.ThreadTS = strings.TrimSpace(msg.ThreadTS)
	if msg.Channel == "" {
		return fmt.Errorf("channel_id is required")
	}
	if msg.Text == "" && len(msg.Blocks) == 0 {
		return fmt.Errorf("text or blocks is required")
	}

	const maxAttempts = 3
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		respRaw, status, headers, err := c.postAuthJSON(ctx, c.botToken, "chat.postMessage", msg)
		if err != nil {
			lastErr = err
		} else {
			var out apiError
			if parseErr := json.Unmarshal(respRaw, &out); parseErr != nil {
				lastErr = parseErr
			} else if status < 200 || status >= 300 {
				lastErr = fmt.Errorf("slack chat.postMessage http %d", status)
			} else if out.OK {
				return nil
			} else {
				lastErr = out.err("chat.postMessage")
			}
		}

		if attempt >= maxAttempts {
			break
		}
		wait, retryable := retryDelay(status, headers, attempt)
		if !retryable {
			break
		}
		if err := sleepWithContext(ctx, wait); err != nil {
			return err
		}
	}
	return lastErr
}

func retryDelay(status int, headers http.Header, attempt int) (time.Duration, bool) {
	if status != http.StatusTooManyRequests {
		return 0, false
	}
	retryAfter := strings.TrimSpace(headers.Get("Retry-After"))
	if retryAfter == "" {
		return time.Duration(attempt) * time.Second, true
	}
	secs, err := strconv.Atoi(retryAfter)
	if err != nil || secs <= 0 {
		return time.Duration(attempt) * time.Second, true
	}
	return time.Duration(secs) * time.Second, true
}
