// Package api implements the REST client for the orchestration server.
//
// The client covers the session surface the sync layer consumes:
// list/get/start/stop/delete/send-message, plus the websocket URL builders
// for the two streams. It implements the capability interfaces in
// internal/domain/ports so callers can be handed only the slice they need.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/crewdeck/crewdeck/internal/domain"
)

// Client is a REST client for the orchestration server.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a client for the given base URL and bearer token.
func New(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// listSessionsResponse is the wire shape of a session listing.
type listSessionsResponse struct {
	Sessions []domain.Session `json:"sessions"`
}

// startSessionRequest is the wire shape of a session start.
type startSessionRequest struct {
	Provider string `json:"provider"`
}

// sendMessageRequest is the wire shape of a chat message post.
type sendMessageRequest struct {
	Content string `json:"content"`
}

// errorResponse is the wire shape of a server error body.
type errorResponse struct {
	Error string `json:"error"`
}

// ListSessions returns the authoritative session list for a scope.
func (c *Client) ListSessions(ctx context.Context, scope domain.Scope) ([]domain.Session, error) {
	if scope.IsZero() {
		return nil, domain.ErrNoScope
	}
	path := fmt.Sprintf("/api/v1/%ss/%s/sessions", scope.Kind, url.PathEscape(scope.ID))

	var resp listSessionsResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp, "list sessions"); err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}

// GetSession returns a single session by id.
func (c *Client) GetSession(ctx context.Context, id string) (domain.Session, error) {
	var s domain.Session
	path := "/api/v1/sessions/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodGet, path, nil, &s, "get session"); err != nil {
		return domain.Session{}, err
	}
	return s, nil
}

// StartSession creates and starts a session in a scope.
func (c *Client) StartSession(ctx context.Context, scope domain.Scope, provider string) (domain.Session, error) {
	if scope.IsZero() {
		return domain.Session{}, domain.ErrNoScope
	}
	path := fmt.Sprintf("/api/v1/%ss/%s/sessions", scope.Kind, url.PathEscape(scope.ID))

	var s domain.Session
	if err := c.do(ctx, http.MethodPost, path, startSessionRequest{Provider: provider}, &s, "start session"); err != nil {
		return domain.Session{}, err
	}
	return s, nil
}

// StopSession asks the server to stop a running session.
func (c *Client) StopSession(ctx context.Context, id string) error {
	path := "/api/v1/sessions/" + url.PathEscape(id) + "/stop"
	return c.do(ctx, http.MethodPost, path, nil, nil, "stop session")
}

// DeleteSession removes a session server-side.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	path := "/api/v1/sessions/" + url.PathEscape(id)
	return c.do(ctx, http.MethodDelete, path, nil, nil, "delete session")
}

// SendMessage posts a chat message to a session. Message send is REST,
// never a socket frame.
func (c *Client) SendMessage(ctx context.Context, sessionID, content string) error {
	if strings.TrimSpace(content) == "" {
		return domain.ErrEmptyMessage
	}
	path := "/api/v1/sessions/" + url.PathEscape(sessionID) + "/messages"
	return c.do(ctx, http.MethodPost, path, sendMessageRequest{Content: content}, nil, "send message")
}

// do executes one JSON request/response round trip.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}, op string) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	requestID := uuid.New().String()
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	log.Debug().
		Str("method", method).
		Str("path", path).
		Str("request_id", requestID).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("api request")

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", op, domain.ErrSessionNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e errorResponse
		msg := ""
		if data, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096)); readErr == nil {
			if json.Unmarshal(data, &e) == nil {
				msg = e.Error
			}
		}
		return domain.NewAPIError(op, resp.StatusCode, msg)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%s: decode response: %w", op, err)
		}
	}
	return nil
}
