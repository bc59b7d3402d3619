// Package events provides an in-process publish/subscribe bus for engine
// lifecycle and trade notifications.
package events

import (
	"sync"
	"time"
)

// EventType identifies the kind of event on the bus
type EventType string

const (
	EventEngineStarted   EventType = "ENGINE_STARTED"
	EventEngineStopped   EventType = "ENGINE_STOPPED"
	EventSignalGenerated EventType = "SIGNAL_GENERATED"
	EventSignalRejected  EventType = "SIGNAL_REJECTED"
	EventTradeOpened     EventType = "TRADE_OPENED"
	EventTradeClosed     EventType = "TRADE_CLOSED"
	EventStopMoved       EventType = "STOP_MOVED"
	EventEmergencyClose  EventType = "EMERGENCY_CLOSE"
	EventDailyReset      EventType = "DAILY_RESET"
	EventError           EventType = "ERROR"
)

// Event is one bus message
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Subscriber handles delivered events
type Subscriber func(Event)

// Bus fans events out to subscribers. Delivery is asynchronous so slow
// subscribers never block a publisher.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Subscriber
	allSubs     []Subscriber
}

// NewBus creates an empty event bus
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[EventType][]Subscriber),
	}
}

// Subscribe registers a subscriber for one event type
func (b *Bus) Subscribe(eventType EventType, subscriber Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], subscriber)
}

// SubscribeAll registers a subscriber for every event type
func (b *Bus) SubscribeAll(subscriber Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.allSubs = append(b.allSubs, subscriber)
}

// Publish delivers an event to matching subscribers. The timestamp is filled
// in when missing.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	for _, sub := range b.subscribers[event.Type] {
		go sub(event)
	}
	for _, sub := range b.allSubs {
		go sub(event)
	}
}

// PublishTradeOpened publishes a trade opened notification
func (b *Bus) PublishTradeOpened(symbol, side string, ticket int64, entry, size float64) {
	b.Publish(Event{
		Type: EventTradeOpened,
		Data: map[string]interface{}{
			"symbol": symbol,
			"side":   side,
			"ticket": ticket,
			"entry":  entry,
			"size":   size,
		},
	})
}

// PublishTradeClosed publishes a resolved trade outcome
func (b *Bus) PublishTradeClosed(symbol, strategy string, ticket int64, profit float64) {
	b.Publish(Event{
		Type: EventTradeClosed,
		Data: map[string]interface{}{
			"symbol":   symbol,
			"strategy": strategy,
			"ticket":   ticket,
			"profit":   profit,
		},
	})
}

// PublishError publishes a component error notification
func (b *Bus) PublishError(component, message string) {
	b.Publish(Event{
		Type: EventError,
		Data: map[string]interface{}{
			"component": component,
			"message":   message,
		},
	})
}
