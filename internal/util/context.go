package util

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrNoAuditContext is returned when a tracking value is set on a context that carries no AuditContext.
	ErrNoAuditContext = errors.New("no audit context in request context")
	// ErrUserValueAlreadySet is returned when the current user value is set twice in one request.
	ErrUserValueAlreadySet = errors.New("current user value already set for this request")
	// ErrUsernameAlreadySet is returned when the current username is set twice in one request.
	ErrUsernameAlreadySet = errors.New("current username already set for this request")
)

// AuditContext holds the request-scoped attribution consulted by the ORM plugins.
// One AuditContext is created per request, before any listener runs, and dies with the request.
type AuditContext struct {
	// IPAddress is the client's IP address (optional)
	IPAddress string

	// UserAgent is the client's user agent string (optional)
	UserAgent string

	mu          sync.RWMutex
	userValue   any
	hasUser     bool
	username    string
	hasUsername bool
}

// NewAuditContext returns an empty AuditContext for one request.
func NewAuditContext(ipAddress, userAgent string) *AuditContext {
	return &AuditContext{IPAddress: ipAddress, UserAgent: userAgent}
}

// SetUserValue records the actor stamped into blameable fields.
// It may be called at most once.
func (ac *AuditContext) SetUserValue(value any) error {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	if ac.hasUser {
		return ErrUserValueAlreadySet
	}
	ac.userValue = value
	ac.hasUser = true
	return nil
}

// UserValue returns the actor recorded by SetUserValue.
func (ac *AuditContext) UserValue() (any, bool) {
	ac.mu.RLock()
	defer ac.mu.RUnlock()
	return ac.userValue, ac.hasUser
}

// SetUsername records the username written to log entries.
// It may be called at most once.
func (ac *AuditContext) SetUsername(username string) error {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	if ac.hasUsername {
		return ErrUsernameAlreadySet
	}
	ac.username = username
	ac.hasUsername = true
	return nil
}

// Username returns the username recorded by SetUsername.
func (ac *AuditContext) Username() (string, bool) {
	ac.mu.RLock()
	defer ac.mu.RUnlock()
	return ac.username, ac.hasUsername
}

type auditContextKey struct{}

// SetAuditContext stores audit context information in the context.
// This is typically called by middleware at the start of a request.
func SetAuditContext(ctx context.Context, ac *AuditContext) context.Context {
	return context.WithValue(ctx, auditContextKey{}, ac)
}

// GetAuditContext retrieves audit context information from the context.
// Returns nil if no audit context is present (e.g., CLI operations, system tasks).
func GetAuditContext(ctx context.Context) *AuditContext {
	if ctx == nil {
		return nil
	}
	ac, ok := ctx.Value(auditContextKey{}).(*AuditContext)
	if !ok {
		return nil
	}
	return ac
}
