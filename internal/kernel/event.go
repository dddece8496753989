// Package kernel dispatches request lifecycle events to subscribed listeners.
package kernel

import (
	"context"
	"net/http"
)

// EventName identifies a lifecycle event.
type EventName string

// EventRequest is dispatched once per request, before the request reaches its handler.
const EventRequest EventName = "kernel.request"

// RequestEvent carries the incoming request to listeners.
type RequestEvent struct {
	Request *http.Request
}

// NewRequestEvent returns the event for r.
func NewRequestEvent(r *http.Request) *RequestEvent {
	return &RequestEvent{Request: r}
}

// Context returns the request context.
func (e *RequestEvent) Context() context.Context {
	if e == nil || e.Request == nil {
		return context.Background()
	}
	return e.Request.Context()
}

// WithContext replaces the request context seen by later listeners and the handler.
func (e *RequestEvent) WithContext(ctx context.Context) {
	e.Request = e.Request.WithContext(ctx)
}

// Handler reacts to an event. A returned error stops the dispatch.
type Handler func(ev *RequestEvent) error

// Subscriber declares the events it listens to.
type Subscriber interface {
	SubscribedEvents() map[EventName]Handler
}
