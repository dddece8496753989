package kernel

import (
	"fmt"
	"sort"
	"sync"

	"github.com/auditbridge/auditbridge/internal/metrics"
	"github.com/rs/zerolog"
)

// Dispatcher calls the handlers registered for an event in registration order.
// Handlers are registered at startup; Dispatch is safe for concurrent use.
type Dispatcher struct {
	mu        sync.RWMutex
	listeners map[EventName][]Handler
	log       zerolog.Logger
}

// NewDispatcher returns an empty Dispatcher.
func NewDispatcher(log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		listeners: make(map[EventName][]Handler),
		log:       log,
	}
}

// AddListener registers h for name.
func (d *Dispatcher) AddListener(name EventName, h Handler) {
	if h == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[name] = append(d.listeners[name], h)
}

// AddSubscriber registers every handler declared by s.
// Events are registered in name order so that registration is deterministic.
func (d *Dispatcher) AddSubscriber(s Subscriber) {
	events := s.SubscribedEvents()
	names := make([]string, 0, len(events))
	for name := range events {
		names = append(names, string(name))
	}
	sort.Strings(names)
	for _, name := range names {
		d.AddListener(EventName(name), events[EventName(name)])
	}
}

// HasListeners reports whether any handler is registered for name.
func (d *Dispatcher) HasListeners(name EventName) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.listeners[name]) > 0
}

// Dispatch calls the handlers registered for name and stops at the first error.
func (d *Dispatcher) Dispatch(name EventName, ev *RequestEvent) error {
	d.mu.RLock()
	handlers := append([]Handler(nil), d.listeners[name]...)
	d.mu.RUnlock()

	for i, h := range handlers {
		if err := h(ev); err != nil {
			metrics.IncKernelEvent(string(name), "error")
			d.log.Error().Err(err).Str("event", string(name)).Int("listener", i).Msg("event listener failed")
			return fmt.Errorf("%s listener %d: %w", name, i, err)
		}
	}
	metrics.IncKernelEvent(string(name), "ok")
	return nil
}
