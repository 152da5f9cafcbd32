package menu

import (
	"fmt"
	"sync"
)

const (
	errorUnknownItemFmt      = "unknown menu item %q"
	errorNoHandlerFmt        = "no handler registered for %s"
	errorDuplicateHandlerFmt = "handler already registered for %s"
)

// Handler reacts to a front-end menu event.
type Handler func(event string) error

// Dispatcher routes menu item clicks to handlers keyed by event name.
type Dispatcher struct {
	mutex    sync.RWMutex
	handlers map[string]Handler
}

// NewDispatcher returns an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]Handler)}
}

// Register binds handler to event. Each event accepts a single handler.
func (dispatcher *Dispatcher) Register(event string, handler Handler) error {
	dispatcher.mutex.Lock()
	defer dispatcher.mutex.Unlock()
	if _, exists := dispatcher.handlers[event]; exists {
		return fmt.Errorf(errorDuplicateHandlerFmt, event)
	}
	dispatcher.handlers[event] = handler
	return nil
}

// Dispatch resolves the event for itemID and runs its handler, returning the event name.
func (dispatcher *Dispatcher) Dispatch(itemID string) (string, error) {
	event, known := EventForItem(itemID)
	if !known {
		return "", fmt.Errorf(errorUnknownItemFmt, itemID)
	}
	dispatcher.mutex.RLock()
	handler, registered := dispatcher.handlers[event]
	dispatcher.mutex.RUnlock()
	if !registered {
		return event, fmt.Errorf(errorNoHandlerFmt, event)
	}
	return event, handler(event)
}
