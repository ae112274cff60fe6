package roblox

import "time"

// User is one identity record as the upstream returns it.
// Optional fields stay zero-valued when the payload omits them
type User struct {
	ID               int64      `json:"id"`
	Name             string     `json:"name"`
	DisplayName      string     `json:"displayName"`
	HasVerifiedBadge bool       `json:"hasVerifiedBadge"`
	Created          *time.Time `json:"created,omitempty"`
	Description      string     `json:"description,omitempty"`
	IsBanned         bool       `json:"isBanned,omitempty"`
}

// SearchPage is one page of keyword search results with pagination cursors
type SearchPage struct {
	PreviousPageCursor *string `json:"previousPageCursor"`
	NextPageCursor     *string `json:"nextPageCursor"`
	Data               []User  `json:"data"`
}

// usernameLookupRequest is the body for the exact name endpoint
type usernameLookupRequest struct {
	Usernames          []string `json:"usernames"`
	ExcludeBannedUsers bool     `json:"excludeBannedUsers"`
}

// usernameLookupResponse wraps the exact name endpoint's data envelope
type usernameLookupResponse struct {
	Data []User `json:"data"`
}
