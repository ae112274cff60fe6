// Package roblox provides a single-attempt client for the upstream identity
// service. Every response is classified into the project error taxonomy;
// retries and load shedding are the pipeline's responsibility, not the client's
package roblox

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	perr "veriscope/internal/platform/errors"
	"veriscope/internal/platform/logger"
)

const (
	baseURLDefault = "https://users.roblox.com"
	defaultTimeout = 5 * time.Second
	defaultUA      = "veriscope-resolver"
)

// Options configures the Client
type Options struct {
	BaseURL   string
	UserAgent string

	// Timeout is the hard per-call deadline, independent of retry timing
	Timeout time.Duration
}

// Client is a minimal upstream identity client
type Client struct {
	http *http.Client
	opts Options
	log  logger.Logger
	now  func() time.Time
}

// NewClient creates a new Client with sane defaults
func NewClient(o Options) *Client {
	if o.BaseURL == "" {
		o.BaseURL = baseURLDefault
	}
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	return &Client{
		http: &http.Client{Timeout: o.Timeout},
		opts: o,
		log:  *logger.Named("roblox"),
		now:  time.Now,
	}
}

// do issues one request and decodes a successful body into out.
// Non-2xx statuses, transport failures, and malformed payloads all come
// back as classified errors; the caller never sees a raw response
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return perr.Wrapf(err, perr.ErrorCodeUnknown, "encode request body")
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.opts.BaseURL+path, reader)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnknown, "new request failed")
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := c.now()
	resp, err := c.http.Do(req)
	lat := c.now().Sub(start)

	if err != nil {
		return classifyTransport(err)
	}
	defer func() { _ = drainAndClose(resp.Body) }()

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", lat).
		Msg("upstream response")

	if err := classifyStatus(resp); err != nil {
		return err
	}

	dec := json.NewDecoder(io.LimitReader(resp.Body, 1<<20))
	if err := dec.Decode(out); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUpstream, "malformed upstream payload")
	}
	return nil
}
