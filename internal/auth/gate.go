// Package auth answers "may this caller invoke this action on this
// resource". It combines identity (authentication happens upstream, at the
// transport), role membership fetched from an external identity service and
// cached per gate, and resource ownership.
package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/v4ex/minex/internal/domain"
)

// Role names a coarse permission group assigned in the identity service.
type Role string

const (
	RoleMiner  Role = "miner"
	RoleBroker Role = "broker"
	RoleMinter Role = "minter"
)

// RoleFetcher abstracts the external identity service's role lookup.
type RoleFetcher interface {
	FetchRoles(ctx context.Context, sub string) ([]Role, error)
}

// Ownable is anything with an owning subject.
type Ownable interface {
	OwnerID() string
}

// Gate evaluates authorization queries for one authenticated caller.
// A Gate is bound to a single subject and is not shared across callers;
// its role cache is private to it.
type Gate struct {
	sub     string
	fetcher RoleFetcher
	ttl     time.Duration

	mu          sync.Mutex
	cachedRoles []Role
	fetchedAt   time.Time
}

// NewGate returns a gate for the already-authenticated subject sub.
// Roles are re-fetched once the cached set is older than ttl.
func NewGate(sub string, fetcher RoleFetcher, ttl time.Duration) *Gate {
	return &Gate{sub: sub, fetcher: fetcher, ttl: ttl}
}

// Sub returns the authenticated subject.
func (g *Gate) Sub() string {
	g.mustAuthenticated()
	return g.sub
}

// IsAuthenticated reports whether the gate carries an authenticated subject.
func (g *Gate) IsAuthenticated() bool {
	return g.sub != ""
}

// mustAuthenticated panics when no authentication happened. Authorization
// queries on an unauthenticated gate are a programming fault, not a
// user-facing error.
func (g *Gate) mustAuthenticated() {
	if !g.IsAuthenticated() {
		panic(domain.ErrNotAuthenticated)
	}
}

// IsOwnerOf reports whether the caller owns the target.
func (g *Gate) IsOwnerOf(target Ownable) (bool, error) {
	g.mustAuthenticated()

	if target == nil || target.OwnerID() == "" {
		return false, domain.ErrNotOwnable
	}
	return target.OwnerID() == g.sub, nil
}

// HasRole reports whether the caller holds the given role.
func (g *Gate) HasRole(ctx context.Context, role Role) (bool, error) {
	g.mustAuthenticated()

	roles, err := g.roles(ctx)
	if err != nil {
		return false, err
	}
	for _, r := range roles {
		if r == role {
			return true, nil
		}
	}
	return false, nil
}

// roles returns the caller's role set, re-fetching once the cache is older
// than ttl. The upstream source compared the clock the other way around and
// so never expired its cache; the window here is the intended one.
func (g *Gate) roles(ctx context.Context) ([]Role, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.cachedRoles != nil && time.Since(g.fetchedAt) < g.ttl {
		return g.cachedRoles, nil
	}

	roles, err := g.fetcher.FetchRoles(ctx, g.sub)
	if err != nil {
		return nil, fmt.Errorf("fetch roles for %q: %w", g.sub, err)
	}
	if roles == nil {
		roles = []Role{}
	}

	g.cachedRoles = roles
	g.fetchedAt = time.Now()
	return roles, nil
}
