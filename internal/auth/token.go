package auth

import (
	"context"
	"errors"
)

// ErrBadToken indicates the presented access token maps to no subject.
var ErrBadToken = errors.New("access token not recognized")

// Authenticator resolves a bearer access token to a subject. The production
// deployment fronts this with an identity provider; the interface is all the
// core depends on.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (sub string, err error)
}

// StaticAuthenticator resolves tokens from a fixed token → subject table.
// Suitable for development and tests.
type StaticAuthenticator struct {
	Tokens map[string]string
}

// Authenticate implements Authenticator.
func (a *StaticAuthenticator) Authenticate(_ context.Context, token string) (string, error) {
	sub, ok := a.Tokens[token]
	if !ok || sub == "" {
		return "", ErrBadToken
	}
	return sub, nil
}

// StaticRoles resolves roles from a fixed subject → roles table.
// Suitable for development and tests.
type StaticRoles struct {
	Roles map[string][]Role
}

// FetchRoles implements RoleFetcher.
func (r *StaticRoles) FetchRoles(_ context.Context, sub string) ([]Role, error) {
	return r.Roles[sub], nil
}
