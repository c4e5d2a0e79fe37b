// Package api talks to the game engine's start/state/action endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"truco-table/client/snapshot"
)

const (
	startPath  = "/api/start"
	statePath  = "/api/state"
	actionPath = "/api/action"

	// maxBody caps how much of a response is read. A snapshot is a few KB.
	maxBody = 1 << 20
)

// Client issues one request per call. It never retries and never keeps
// game state of its own.
type Client struct {
	base string
	http *http.Client
	log  *logrus.Entry
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

func WithLogger(l *logrus.Entry) Option { return func(c *Client) { c.log = l } }

func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http: &http.Client{Timeout: timeout},
		log:  logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Start asks the engine for a fresh game. Safe to call at any time.
func (c *Client) Start(ctx context.Context, targetScore int) error {
	status, body, err := c.do(ctx, http.MethodPost, startPath, map[string]any{"target_score": targetScore})
	if err != nil {
		return &TransportError{Op: "start", Err: err}
	}
	if status < 200 || status >= 300 {
		return &TransportError{Op: "start", Status: status, Err: errors.New(truncate(string(body), 200))}
	}
	c.log.WithField("target_score", targetScore).Debug("engine game started")
	return nil
}

// Poll fetches the full current snapshot.
func (c *Client) Poll(ctx context.Context) (snapshot.Snapshot, error) {
	status, body, err := c.do(ctx, http.MethodGet, statePath, nil)
	if err != nil {
		return snapshot.Snapshot{}, &TransportError{Op: "poll", Err: err}
	}
	if status < 200 || status >= 300 {
		return snapshot.Snapshot{}, &TransportError{Op: "poll", Status: status, Err: errors.New(engineMessage(body))}
	}
	s, err := snapshot.Decode(body)
	if err != nil {
		return snapshot.Snapshot{}, &TransportError{Op: "poll", Status: status, Err: fmt.Errorf("decode state: %w", err)}
	}
	return s, nil
}

// Act submits one action. 4xx answers are rejections and come back as
// *ActionError; anything else that is not 2xx is a *TransportError.
func (c *Client) Act(ctx context.Context, action string) error {
	status, body, err := c.do(ctx, http.MethodPost, actionPath, map[string]any{"action": action})
	if err != nil {
		return &TransportError{Op: "act", Err: err}
	}
	switch {
	case status >= 200 && status < 300:
		return nil
	case status >= 400 && status < 500:
		return &ActionError{Action: action, Status: status, Message: engineMessage(body)}
	default:
		return &TransportError{Op: "act", Status: status, Err: errors.New(truncate(string(body), 200))}
	}
}

func (c *Client) do(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	var rd io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(io.LimitReader(resp.Body, maxBody)); err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, buf.Bytes(), nil
}

// engineMessage extracts {"error": "..."} from a failure body, falling back
// to the raw text.
func engineMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err == nil && strings.TrimSpace(e.Error) != "" {
		return e.Error
	}
	if s := strings.TrimSpace(string(body)); s != "" {
		return truncate(s, 200)
	}
	return "no details"
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
