// Package channel implements the polled message channel between two named
// endpoints on top of the relay's HTTP protocol:
//
//	POST {base}/data/{destination}   body: one JSON message
//	GET  {base}/data/{self}          next pending message, or nothing
//
// Delivery is at-least-once with no ordering guarantee across kinds.
package channel

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

	"github.com/1ureka/thetacast/internal/signaling"
	"github.com/1ureka/thetacast/internal/util"
)

const (
	requestTimeout = 5 * time.Second
	maxBodySize    = 1 << 20
)

// TransportError reports a failed poll or post. The poll loop logs it and
// retries on the next tick.
type TransportError struct {
	Op  string // "poll" or "post"
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("relay %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTP is a MessageChannel client bound to a local and a remote endpoint id.
type HTTP struct {
	base   string
	self   string
	remote string
	client *http.Client
}

// NewHTTP validates baseURL and returns a client. A nil client uses a
// default with a per-request timeout.
func NewHTTP(baseURL, self, remote string, client *http.Client) (*HTTP, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid relay URL: %s", baseURL)
	}
	if client == nil {
		client = &http.Client{Timeout: requestTimeout}
	}
	return &HTTP{
		base:   strings.TrimRight(u.String(), "/"),
		self:   self,
		remote: remote,
		client: client,
	}, nil
}

func (c *HTTP) endpoint(id string) string {
	return c.base + "/data/" + url.PathEscape(id)
}

// Post delivers msg to the remote endpoint's mailbox.
func (c *HTTP) Post(ctx context.Context, msg signaling.Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return &TransportError{Op: "post", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(c.remote), bytes.NewReader(body))
	if err != nil {
		return &TransportError{Op: "post", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return &TransportError{Op: "post", Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))

	if resp.StatusCode/100 != 2 {
		return &TransportError{Op: "post", Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}
	return nil
}

// Poll fetches the next message addressed to this endpoint. It returns
// (nil, nil) when the mailbox is empty.
func (c *HTTP) Poll(ctx context.Context) (*signaling.Message, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(c.self), nil)
	if err != nil {
		return nil, &TransportError{Op: "poll", Err: err}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "poll", Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent, resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode/100 != 2:
		return nil, &TransportError{Op: "poll", Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &TransportError{Op: "poll", Err: err}
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	var msg signaling.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, &TransportError{Op: "poll", Err: fmt.Errorf("decode message: %w", err)}
	}
	if msg.Kind() == 0 && msg.Data() == "" {
		return nil, nil
	}
	return &msg, nil
}

// Watch polls once per interval and hands every received message to fn.
// Transport errors are logged and the next tick retries. It returns when ctx
// is cancelled.
func (c *HTTP) Watch(ctx context.Context, interval time.Duration, fn func(signaling.Message)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			msg, err := c.Poll(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				util.LogDebug("%v", err)
				continue
			}
			if msg != nil {
				util.Stats.AddRecv()
				util.LogDebug("← %s", msg)
				fn(*msg)
			}
		case <-ctx.Done():
			return
		}
	}
}
