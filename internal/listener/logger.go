package listener

import (
	"context"

	"github.com/auditbridge/auditbridge/internal/kernel"
	"github.com/auditbridge/auditbridge/internal/security"
)

// UsernameSetter is the loggable tracking service.
type UsernameSetter interface {
	SetUsername(ctx context.Context, value any) error
}

// LoggerListener feeds the acting username to the loggable service.
type LoggerListener struct {
	tracker  UsernameSetter
	security security.Context
}

// NewLoggerListener returns a LoggerListener. sc may be nil.
func NewLoggerListener(tracker UsernameSetter, sc security.Context) *LoggerListener {
	return &LoggerListener{tracker: tracker, security: sc}
}

// OnRequestStarted sets the request's loggable username.
// During impersonation the original token is logged, never the impersonated one.
func (l *LoggerListener) OnRequestStarted(ev *kernel.RequestEvent) error {
	if l.security == nil {
		return nil
	}
	ctx := ev.Context()
	token := l.security.Token(ctx)
	if token == nil || !l.security.IsGranted(ctx, security.IsAuthenticatedRemembered) {
		return nil
	}

	if original, ok := security.OriginalToken(token); ok {
		return l.tracker.SetUsername(ctx, original)
	}
	return l.tracker.SetUsername(ctx, token)
}

// SubscribedEvents implements kernel.Subscriber.
func (l *LoggerListener) SubscribedEvents() map[kernel.EventName]kernel.Handler {
	return map[kernel.EventName]kernel.Handler{
		kernel.EventRequest: l.OnRequestStarted,
	}
}
