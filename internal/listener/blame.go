package listener

import (
	"context"

	"github.com/auditbridge/auditbridge/internal/kernel"
	"github.com/auditbridge/auditbridge/internal/security"
)

// UserValueSetter is the blameable tracking service.
type UserValueSetter interface {
	SetUserValue(ctx context.Context, value any) error
}

// EntityManager re-attaches a detached principal.
type EntityManager interface {
	Merge(ctx context.Context, entity any) (any, error)
}

// BlameListener feeds the acting user to the blameable service.
type BlameListener struct {
	tracker  UserValueSetter
	security security.Context
	em       EntityManager
}

// NewBlameListener returns a BlameListener. sc and em may be nil.
func NewBlameListener(tracker UserValueSetter, sc security.Context, em EntityManager) *BlameListener {
	return &BlameListener{tracker: tracker, security: sc, em: em}
}

// OnRequestStarted sets the request's blameable user value.
//
// Requests without a token, or whose token is not at least remembered, are left alone.
// When the token was obtained by switching user and an entity manager is configured,
// the original user is merged and blamed instead of the impersonated one. Without an
// entity manager the token's own user is blamed even during impersonation.
func (l *BlameListener) OnRequestStarted(ev *kernel.RequestEvent) error {
	if l.security == nil {
		return nil
	}
	ctx := ev.Context()
	token := l.security.Token(ctx)
	if token == nil || !l.security.IsGranted(ctx, security.IsAuthenticatedRemembered) {
		return nil
	}

	original, switched := security.OriginalToken(token)

	if l.em == nil || !switched {
		return l.tracker.SetUserValue(ctx, token.User())
	}

	user, err := l.em.Merge(ctx, original.User())
	if err != nil {
		return err
	}
	return l.tracker.SetUserValue(ctx, user)
}

// SubscribedEvents implements kernel.Subscriber.
func (l *BlameListener) SubscribedEvents() map[kernel.EventName]kernel.Handler {
	return map[kernel.EventName]kernel.Handler{
		kernel.EventRequest: l.OnRequestStarted,
	}
}
