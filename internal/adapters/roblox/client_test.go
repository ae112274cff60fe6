package roblox

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	perr "veriscope/internal/platform/errors"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Options{BaseURL: srv.URL, Timeout: time.Second})
}

func TestUserByID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/users/42" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":42,"name":"johndoe","displayName":"John","hasVerifiedBadge":true}`))
	})

	u, err := c.UserByID(context.Background(), 42)
	if err != nil {
		t.Fatalf("UserByID: %v", err)
	}
	if u.ID != 42 || u.Name != "johndoe" || !u.HasVerifiedBadge {
		t.Fatalf("user = %+v", u)
	}
	if u.Created != nil || u.Description != "" {
		t.Fatalf("missing optional fields must stay zero: %+v", u)
	}
}

func TestUserByNameFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/v1/usernames/users" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"data":[{"id":7,"name":"johndoe"}]}`))
	})

	u, found, err := c.UserByName(context.Background(), "johndoe")
	if err != nil || !found || u.ID != 7 {
		t.Fatalf("u=%+v found=%v err=%v", u, found, err)
	}
}

func TestUserByNameAbsent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	})

	_, found, err := c.UserByName(context.Background(), "ghost")
	if err != nil || found {
		t.Fatalf("found=%v err=%v", found, err)
	}
}

func TestSearchUsersPagination(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("keyword"); got != "john" {
			t.Errorf("keyword = %q", got)
		}
		if got := r.URL.Query().Get("cursor"); got != "abc" {
			t.Errorf("cursor = %q", got)
		}
		_, _ = w.Write([]byte(`{"previousPageCursor":null,"nextPageCursor":"def","data":[{"id":1,"name":"john"}]}`))
	})

	page, err := c.SearchUsers(context.Background(), "john", 10, "abc")
	if err != nil {
		t.Fatalf("SearchUsers: %v", err)
	}
	if len(page.Data) != 1 || page.NextPageCursor == nil || *page.NextPageCursor != "def" {
		t.Fatalf("page = %+v", page)
	}
}

func TestClassify429WithRetryAfter(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "17")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.UserByID(context.Background(), 1)
	if !perr.IsCode(err, perr.ErrorCodeRateLimited) {
		t.Fatalf("err = %v", err)
	}
	if got := perr.RetryAfterOf(err); got != 17*time.Second {
		t.Fatalf("retry after = %v", got)
	}
}

func TestClassify5xx(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.UserByID(context.Background(), 1)
	if !perr.IsCode(err, perr.ErrorCodeUpstream) {
		t.Fatalf("err = %v", err)
	}
}

func TestClassify404(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.UserByID(context.Background(), 999)
	if !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestClassifyMalformedJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": not json`))
	})

	_, err := c.UserByID(context.Background(), 1)
	if !perr.IsCode(err, perr.ErrorCodeUpstream) {
		t.Fatalf("err = %v", err)
	}
}

func TestClassifyTimeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	})
	c.http.Timeout = 20 * time.Millisecond

	_, err := c.UserByID(context.Background(), 1)
	if !perr.IsCode(err, perr.ErrorCodeTimeout) {
		t.Fatalf("err = %v", err)
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	if got := parseRetryAfter("30", now); got != 30*time.Second {
		t.Fatalf("seconds form = %v", got)
	}
	httpDate := now.Add(90 * time.Second).Format(http.TimeFormat)
	if got := parseRetryAfter(httpDate, now); got < 89*time.Second || got > 91*time.Second {
		t.Fatalf("date form = %v", got)
	}
	if got := parseRetryAfter("", now); got != 0 {
		t.Fatalf("empty = %v", got)
	}
	if got := parseRetryAfter("garbage", now); got != 0 {
		t.Fatalf("garbage = %v", got)
	}
	if got := parseRetryAfter("-5", now); got != 0 {
		t.Fatalf("negative = %v", got)
	}
}
