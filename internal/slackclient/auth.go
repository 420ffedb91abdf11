package slackclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

type AuthTestResult struct {
	TeamID string
	UserID string
	BotID  string
	Team   string
	User   string
}

type authTestResponse struct {
	apiError
	TeamID string `json:"team_id,omitempty"`
	UserID string `json:"user_id,omitempty"`
	BotID  string `json:"bot_id,omitempty"`
	Team   string `json:"team,omitempty"`
	User   string `json:"user,omitempty"`
}

// AuthTest verifies the bot token and reports the identity behind it.
func (c *Client) AuthTest(ctx context.Context) (AuthTestResult, error) {
	body, status, _, err := c.postAuthJSON(ctx, c.botTokenOrEmpty(), "auth.test", nil)
	if err != nil {
		return AuthTestResult{}, err
	}
	if status < 200 || status >= 300 {
		return AuthTestResult{}, fmt.Errorf("slack auth.test http %d", status)
	}
	var out authTestResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return AuthTestResult{}, err
	}
	if err := out.err("auth.test"); err != nil {
		return AuthTestResult{}, err
	}
	return AuthTestResult{
		TeamID: strings.TrimSpace(out.TeamID),
		UserID: strings.TrimSpace(out.UserID),
		BotID:  strings.TrimSpace(out.BotID),
		Team:   strings.TrimSpace(out.Team),
		User:   strings.TrimSpace(out.User),
	}, nil
}

type openConnectionResponse struct {
	apiError
	URL string `json:"url,omitempty"`
}

// OpenConnection asks for a Socket Mode websocket URL. It authenticates with
// the app-level token, not the bot token.
func (c *Client) OpenConnection(ctx context.Context, appToken string) (string, error) {
	body, status, _, err := c.postAuthJSON(ctx, appToken, "apps.connections.open", nil)
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		return "", fmt.Errorf("slack apps.connections.open http %d", status)
	}
	var out openConnectionResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", err
	}
	if err := out.err("apps.connections.open"); err != nil {
		return "", err
	}
	url := strings.TrimSpace(out.URL)
	if url == "" {
		return "", fmt.Errorf("slack apps.connections.open returned empty url")
	}
	return url, nil
}

func (c *Client) botTokenOrEmpty() string {
	if c == nil {
		return ""
	}
	return c.botToken
}
