package roblox

import (
	"context"
	"net/url"
	"strconv"

	perr "veriscope/internal/platform/errors"
)

// UserByID fetches one user by numeric id
func (c *Client) UserByID(ctx context.Context, id int64) (User, error) {
	var u User
	if err := c.do(ctx, "GET", "/v1/users/"+strconv.FormatInt(id, 10), nil, &u); err != nil {
		return User{}, err
	}
	return u, nil
}

// UserByName resolves an exact username. A name the upstream does not know
// returns found=false rather than an error
func (c *Client) UserByName(ctx context.Context, name string) (User, bool, error) {
	req := usernameLookupRequest{Usernames: []string{name}, ExcludeBannedUsers: false}
	var out usernameLookupResponse
	if err := c.do(ctx, "POST", "/v1/usernames/users", req, &out); err != nil {
		return User{}, false, err
	}
	if len(out.Data) == 0 {
		return User{}, false, nil
	}
	return out.Data[0], true, nil
}

// SearchUsers runs a keyword search, returning one page of candidates
func (c *Client) SearchUsers(ctx context.Context, keyword string, limit int, cursor string) (SearchPage, error) {
	if keyword == "" {
		return SearchPage{}, perr.InvalidArgf("keyword must not be empty")
	}
	q := url.Values{}
	q.Set("keyword", keyword)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}

	var page SearchPage
	if err := c.do(ctx, "GET", "/v1/users/search?"+q.Encode(), nil, &page); err != nil {
		return SearchPage{}, err
	}
	return page, nil
}
