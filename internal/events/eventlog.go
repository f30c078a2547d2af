// Package events provides the append-only log of simulation events.
// Everything observable about the economy (trades, transfers, docking,
// construction, destruction) flows through here before it reaches the
// WebSocket observers or the persistence layer.
package events

import (
	"math/rand"
	"sync"
	"time"
)

// EventType defines the category of a simulation event.
type EventType string

const (
	EventTypeSimTick             EventType = "SIM_TICK"
	EventTypeTradeAccepted       EventType = "TRADE_ACCEPTED"
	EventTypeWaresTransferred    EventType = "WARES_TRANSFERRED"
	EventTypeShipDocked          EventType = "SHIP_DOCKED"
	EventTypeShipUndocked        EventType = "SHIP_UNDOCKED"
	EventTypeShipConstructed     EventType = "SHIP_CONSTRUCTED"
	EventTypeShipDestroyed       EventType = "SHIP_DESTROYED"
	EventTypeConstructionOrdered EventType = "CONSTRUCTION_ORDERED"
	EventTypeMarketScan          EventType = "MARKET_SCAN"
)

// SimEvent is an immutable record of something that happened in the
// simulation. ActorID/TargetID are entity ids rendered as "SHIP-n" or
// "STATION-n".
type SimEvent struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Type      EventType   `json:"type"`
	ActorID   string      `json:"actor_id"`
	TargetID  string      `json:"target_id"`
	Payload   interface{} `json:"payload"`
	SimTime   float64     `json:"sim_time"`
}

// Persister defines how an event is durably stored.
type Persister interface {
	Append(event SimEvent) error
}

// EventLog is the in-memory append-only log, optionally backed by a
// persister (SQLite in production).
type EventLog struct {
	mu        sync.RWMutex
	events    []SimEvent
	persister Persister
}

// NewEventLog creates a new event log with an optional persister.
func NewEventLog(persister Persister) *EventLog {
	return &EventLog{
		events:    make([]SimEvent, 0),
		persister: persister,
	}
}

// Append adds a new event to the log. Events are immutable once appended.
func (el *EventLog) Append(event SimEvent) {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.events = append(el.events, event)

	if el.persister != nil {
		// Write through to persistent storage off the hot path.
		go func(e SimEvent) {
			_ = el.persister.Append(e)
		}(event)
	}
}

// Len returns the number of events appended so far.
func (el *EventLog) Len() int {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return len(el.events)
}

// Since returns the events appended after the given index. The hub's
// poller uses this to push only new events to observers.
func (el *EventLog) Since(index int) []SimEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()
	if index >= len(el.events) {
		return nil
	}
	out := make([]SimEvent, len(el.events)-index)
	copy(out, el.events[index:])
	return out
}

// GetByActor returns all events performed by a specific actor.
func (el *EventLog) GetByActor(actorID string) []SimEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []SimEvent
	for _, e := range el.events {
		if e.ActorID == actorID {
			result = append(result, e)
		}
	}
	return result
}

// GetByType returns all events of one type.
func (el *EventLog) GetByType(t EventType) []SimEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []SimEvent
	for _, e := range el.events {
		if e.Type == t {
			result = append(result, e)
		}
	}
	return result
}

// Replay returns the full history of events.
func (el *EventLog) Replay() []SimEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return el.events
}

// GenerateEventID creates a unique event identifier.
func GenerateEventID() string {
	return time.Now().Format("20060102150405") + "-" + randomSuffix()
}

func randomSuffix() string {
	const letters = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, 6)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return string(b)
}
