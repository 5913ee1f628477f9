package api

import (
	"net/url"
	"strings"
)

// ChatStreamURL builds the websocket URL for a session's chat stream. The
// bearer credential rides in the query string because websocket handshakes
// cannot carry custom headers from every client environment.
func (c *Client) ChatStreamURL(sessionID string) string {
	u := c.wsBase()
	u.Path = "/ws/sessions/" + sessionID + "/chat"
	q := u.Query()
	if c.token != "" {
		q.Set("token", c.token)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// TerminalStreamURL builds the websocket URL for a terminal stream attached
// to target. sessionID is optional and links the stream to a session for
// server-side bookkeeping.
func (c *Client) TerminalStreamURL(target, sessionID string) string {
	u := c.wsBase()
	u.Path = "/ws/terminal"
	q := u.Query()
	q.Set("target", target)
	if sessionID != "" {
		q.Set("session", sessionID)
	}
	if c.token != "" {
		q.Set("token", c.token)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// DeepLinkURL builds the shareable link that activates a session on load.
// The session query parameter is the one-shot deep link the reconciler
// consumes.
func (c *Client) DeepLinkURL(sessionID string) string {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + "/?session=" + url.QueryEscape(sessionID)
	}
	q := u.Query()
	q.Set("session", sessionID)
	u.RawQuery = q.Encode()
	return u.String()
}

// wsBase returns the base URL with the scheme switched to ws/wss.
func (c *Client) wsBase() *url.URL {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		u = &url.URL{Scheme: "ws", Host: "127.0.0.1"}
		return u
	}
	switch {
	case strings.EqualFold(u.Scheme, "https"):
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	return u
}
