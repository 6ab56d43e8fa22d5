package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mediamesh/playadvisor/internal/logger"
)

const recentEventLimit = 100

// EventBus defines the interface for the event bus system
type EventBus interface {
	// PublishAsync publishes an event without blocking the caller
	PublishAsync(event Event)

	// Subscribe registers a handler for a set of event types; an empty
	// set subscribes to everything. Returns the subscription ID.
	Subscribe(types []EventType, handler EventHandler) string

	// Unsubscribe removes a subscription
	Unsubscribe(subscriptionID string)

	// RecentEvents returns the most recently published events, newest last
	RecentEvents() []Event

	// GetStats returns event bus statistics
	GetStats() EventStats

	// Start starts the event bus
	Start(ctx context.Context)

	// Stop stops the event bus gracefully
	Stop()
}

type subscription struct {
	id      string
	types   map[EventType]bool
	handler EventHandler
}

type eventBus struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	eventChannel  chan Event
	recentEvents  []Event
	stats         EventStats
	stopCh        chan struct{}
	wg            sync.WaitGroup
	running       bool
}

// NewEventBus creates a new event bus with the given buffer size
func NewEventBus(bufferSize int) EventBus {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &eventBus{
		subscriptions: make(map[string]*subscription),
		eventChannel:  make(chan Event, bufferSize),
		recentEvents:  make([]Event, 0, recentEventLimit),
		stopCh:        make(chan struct{}),
	}
}

// NewEvent creates an event with an ID and timestamp filled in
func NewEvent(eventType EventType, source, message string, data map[string]interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    source,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

func (eb *eventBus) Start(ctx context.Context) {
	eb.mu.Lock()
	if eb.running {
		eb.mu.Unlock()
		return
	}
	eb.running = true
	eb.stopCh = make(chan struct{})
	eb.mu.Unlock()

	eb.wg.Add(1)
	go eb.processEvents(ctx)
}

func (eb *eventBus) Stop() {
	eb.mu.Lock()
	if !eb.running {
		eb.mu.Unlock()
		return
	}
	eb.running = false
	close(eb.stopCh)
	eb.mu.Unlock()

	eb.wg.Wait()
}

func (eb *eventBus) PublishAsync(event Event) {
	eb.mu.Lock()
	eb.stats.Published++
	eb.recentEvents = append(eb.recentEvents, event)
	if len(eb.recentEvents) > recentEventLimit {
		eb.recentEvents = eb.recentEvents[len(eb.recentEvents)-recentEventLimit:]
	}
	eb.mu.Unlock()

	select {
	case eb.eventChannel <- event:
	default:
		eb.mu.Lock()
		eb.stats.Dropped++
		eb.mu.Unlock()
		logger.Warn("event bus buffer full, dropping event", logger.String("type", string(event.Type)))
	}
}

func (eb *eventBus) Subscribe(types []EventType, handler EventHandler) string {
	sub := &subscription{
		id:      uuid.NewString(),
		types:   make(map[EventType]bool, len(types)),
		handler: handler,
	}
	for _, t := range types {
		sub.types[t] = true
	}

	eb.mu.Lock()
	eb.subscriptions[sub.id] = sub
	eb.stats.Subscribers = len(eb.subscriptions)
	eb.mu.Unlock()

	return sub.id
}

func (eb *eventBus) Unsubscribe(subscriptionID string) {
	eb.mu.Lock()
	delete(eb.subscriptions, subscriptionID)
	eb.stats.Subscribers = len(eb.subscriptions)
	eb.mu.Unlock()
}

func (eb *eventBus) RecentEvents() []Event {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	out := make([]Event, len(eb.recentEvents))
	copy(out, eb.recentEvents)
	return out
}

func (eb *eventBus) GetStats() EventStats {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return eb.stats
}

func (eb *eventBus) processEvents(ctx context.Context) {
	defer eb.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-eb.stopCh:
			return
		case event := <-eb.eventChannel:
			eb.dispatch(event)
		}
	}
}

func (eb *eventBus) dispatch(event Event) {
	eb.mu.RLock()
	handlers := make([]EventHandler, 0, len(eb.subscriptions))
	for _, sub := range eb.subscriptions {
		if len(sub.types) == 0 || sub.types[event.Type] {
			handlers = append(handlers, sub.handler)
		}
	}
	eb.mu.RUnlock()

	for _, handler := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("event handler panicked",
						logger.String("type", string(event.Type)),
						logger.String("panic", toString(r)))
				}
			}()
			handler(event)
		}()
		eb.mu.Lock()
		eb.stats.Delivered++
		eb.mu.Unlock()
	}
}

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return "unknown panic"
}
