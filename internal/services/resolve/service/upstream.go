package service

import (
	"context"

	"veriscope/internal/adapters/roblox"
	perr "veriscope/internal/platform/errors"
	"veriscope/internal/services/resolve/domain"
)

// Upstream adapts the roblox client to the domain port. A clean upstream
// "no such user" becomes found=false here so the breaker and retry layers
// only ever see real failures
type Upstream struct {
	c *roblox.Client
}

// NewUpstream wraps a roblox client
func NewUpstream(c *roblox.Client) *Upstream {
	return &Upstream{c: c}
}

// ByID implements domain.UpstreamPort
func (u *Upstream) ByID(ctx context.Context, id int64) (domain.CandidateRecord, bool, error) {
	user, err := u.c.UserByID(ctx, id)
	if err != nil {
		if perr.IsCode(err, perr.ErrorCodeNotFound) {
			return domain.CandidateRecord{}, false, nil
		}
		return domain.CandidateRecord{}, false, err
	}
	return toRecord(user), true, nil
}

// ByName implements domain.UpstreamPort
func (u *Upstream) ByName(ctx context.Context, name string) (domain.CandidateRecord, bool, error) {
	user, found, err := u.c.UserByName(ctx, name)
	if err != nil {
		return domain.CandidateRecord{}, false, err
	}
	if !found {
		return domain.CandidateRecord{}, false, nil
	}
	return toRecord(user), true, nil
}

// Search implements domain.UpstreamPort, returning the first page only
func (u *Upstream) Search(ctx context.Context, query string, limit int) ([]domain.CandidateRecord, error) {
	page, err := u.c.SearchUsers(ctx, query, limit, "")
	if err != nil {
		return nil, err
	}
	out := make([]domain.CandidateRecord, 0, len(page.Data))
	for _, user := range page.Data {
		out = append(out, toRecord(user))
	}
	return out, nil
}

func toRecord(u roblox.User) domain.CandidateRecord {
	return domain.CandidateRecord{
		ID:          u.ID,
		Name:        u.Name,
		DisplayName: u.DisplayName,
		Verified:    u.HasVerifiedBadge,
		Created:     u.Created,
		Description: u.Description,
		Banned:      u.IsBanned,
	}
}
