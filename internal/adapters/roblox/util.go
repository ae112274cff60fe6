package roblox

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	perr "veriscope/internal/platform/errors"
)

// classifyStatus maps a non-2xx response into the project error taxonomy.
// 429 carries the parsed Retry-After hint so backoff can honor it
func classifyStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		err := perr.RateLimitedf("upstream rate limited")
		if wait := parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()); wait > 0 {
			err = perr.WithRetryAfter(err, wait)
		}
		return err
	case resp.StatusCode == http.StatusNotFound:
		return perr.NotFoundf("upstream resource not found")
	case resp.StatusCode >= 500:
		return perr.Upstreamf("upstream returned %d", resp.StatusCode)
	default:
		return perr.Upstreamf("upstream unexpected status %d", resp.StatusCode)
	}
}

// classifyTransport maps a transport-level failure; deadline expiry is a Timeout
func classifyTransport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return perr.Wrapf(err, perr.ErrorCodeTimeout, "upstream call timed out")
	}
	var ne interface{ Timeout() bool }
	if errors.As(err, &ne) && ne.Timeout() {
		return perr.Wrapf(err, perr.ErrorCodeTimeout, "upstream call timed out")
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return perr.Wrapf(err, perr.ErrorCodeUpstream, "upstream transport failure")
}

// parseRetryAfter accepts delta-seconds or an HTTP-date, zero when absent or bogus
func parseRetryAfter(v string, now time.Time) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

func drainAndClose(rc io.ReadCloser) error {
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, 512))
	return rc.Close()
}
