package security

import (
	"context"
	"strings"
)

// Attributes understood by TokenStorage.IsGranted besides role names.
const (
	IsAuthenticatedAnonymously = "IS_AUTHENTICATED_ANONYMOUSLY"
	IsAuthenticatedRemembered  = "IS_AUTHENTICATED_REMEMBERED"
	IsAuthenticatedFully       = "IS_AUTHENTICATED_FULLY"
)

const rolePrefix = "ROLE_"

// Context gives read access to the identity of the current request.
type Context interface {
	// Token returns the request's token, or nil when none was stored.
	Token(ctx context.Context) Token
	// IsGranted reports whether the request's token satisfies attribute.
	IsGranted(ctx context.Context, attribute string) bool
}

type tokenContextKey struct{}

// WithToken attaches the request's token to ctx.
func WithToken(ctx context.Context, token Token) context.Context {
	return context.WithValue(ctx, tokenContextKey{}, token)
}

// TokenStorage is the Context backed by the token stored in the request context.
// It holds no per-request state and is shared by all requests.
type TokenStorage struct {
	hierarchy map[string][]string
}

// NewTokenStorage returns a TokenStorage. hierarchy maps a role to the roles it implies,
// e.g. {"ROLE_ADMIN": {"ROLE_USER", "ROLE_ALLOWED_TO_SWITCH"}}.
func NewTokenStorage(hierarchy map[string][]string) *TokenStorage {
	h := make(map[string][]string, len(hierarchy))
	for role, implied := range hierarchy {
		h[role] = append([]string(nil), implied...)
	}
	return &TokenStorage{hierarchy: h}
}

func (s *TokenStorage) Token(ctx context.Context) Token {
	if ctx == nil {
		return nil
	}
	token, _ := ctx.Value(tokenContextKey{}).(Token)
	return token
}

func (s *TokenStorage) IsGranted(ctx context.Context, attribute string) bool {
	token := s.Token(ctx)
	if token == nil {
		return false
	}

	switch attribute {
	case IsAuthenticatedAnonymously:
		return true
	case IsAuthenticatedRemembered:
		return token.Level() >= LevelRemembered
	case IsAuthenticatedFully:
		return token.Level() >= LevelFully
	}

	if !strings.HasPrefix(attribute, rolePrefix) {
		return false
	}
	_, ok := s.ReachableRoles(token)[attribute]
	return ok
}

// ReachableRoles returns the token's role names expanded through the role hierarchy.
func (s *TokenStorage) ReachableRoles(token Token) map[string]struct{} {
	reachable := make(map[string]struct{})
	var walk func(role string)
	walk = func(role string) {
		if _, seen := reachable[role]; seen {
			return
		}
		reachable[role] = struct{}{}
		for _, implied := range s.hierarchy[role] {
			walk(implied)
		}
	}
	for _, role := range token.Roles() {
		walk(role.Role())
	}
	return reachable
}
