package session

import (
	"sync"
	"time"
)

// EndReason says why a session ended
type EndReason string

const (
	// ReasonCleared is an explicit ClearToken call (logout).
	ReasonCleared EndReason = "cleared"
	// ReasonUnauthorized is an eviction after the API answered 401.
	ReasonUnauthorized EndReason = "unauthorized"
)

// SessionEnded is published once per transition from "token present" to
// "no token". Subscribers decide what to do next (redirect, prompt, exit).
type SessionEnded struct {
	Reason     EndReason
	OccurredAt time.Time
}

// EventName implements the event naming convention used by subscribers
func (SessionEnded) EventName() string {
	return "session.ended"
}

// Handler receives SessionEnded events
type Handler func(SessionEnded)

type dispatcher struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]Handler
}

func newDispatcher() *dispatcher {
	return &dispatcher{handlers: make(map[int]Handler)}
}

func (d *dispatcher) subscribe(h Handler) func() {
	d.mu.Lock()
	id := d.nextID
	d.nextID++
	d.handlers[id] = h
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.handlers, id)
			d.mu.Unlock()
		})
	}
}

func (d *dispatcher) dispatch(event SessionEnded) {
	d.mu.RLock()
	handlers := make([]Handler, 0, len(d.handlers))
	for _, h := range d.handlers {
		handlers = append(handlers, h)
	}
	d.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}
