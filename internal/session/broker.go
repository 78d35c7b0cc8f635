package session

import (
	"encoding/json"
	"sync"
)

const (
	EventState   = "state"
	EventDeleted = "deleted"
)

// Event is the payload pushed to live subscribers of a session.
type Event struct {
	Type     string    `json:"type"`
	Session  string    `json:"session"`
	Snapshot *Snapshot `json:"snapshot,omitempty"`
}

// StateEvent encodes s as a state event.
func StateEvent(s Snapshot) []byte {
	data, _ := json.Marshal(Event{Type: EventState, Session: s.ID, Snapshot: &s})
	return data
}

// DeletedEvent encodes the last event a subscriber of a removed session sees.
func DeletedEvent(sessionID string) []byte {
	data, _ := json.Marshal(Event{Type: EventDeleted, Session: sessionID})
	return data
}

// Broker is an in-process pub/sub for session events, keyed by session ID.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan []byte]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[chan []byte]struct{}),
	}
}

// Subscribe returns a channel that receives JSON-encoded events for the given
// session. The channel is closed when the session goes away.
func (b *Broker) Subscribe(sessionID string) chan []byte {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	if b.subs[sessionID] == nil {
		b.subs[sessionID] = make(map[chan []byte]struct{})
	}
	b.subs[sessionID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe is safe to call after Close has already dropped ch.
func (b *Broker) Unsubscribe(sessionID string, ch chan []byte) {
	b.mu.Lock()
	delete(b.subs[sessionID], ch)
	if len(b.subs[sessionID]) == 0 {
		delete(b.subs, sessionID)
	}
	b.mu.Unlock()
}

// Publish sends the snapshot to every subscriber of its session. Slow
// subscribers miss the event; the next one carries the full state anyway.
func (b *Broker) Publish(s Snapshot) {
	data := StateEvent(s)
	b.mu.RLock()
	for ch := range b.subs[s.ID] {
		select {
		case ch <- data:
		default:
		}
	}
	b.mu.RUnlock()
}

// Close drops every subscriber of a session and closes their channels.
func (b *Broker) Close(sessionID string) {
	b.mu.Lock()
	subs := b.subs[sessionID]
	delete(b.subs, sessionID)
	b.mu.Unlock()

	for ch := range subs {
		close(ch)
	}
}

// Subscribers reports how many listeners a session has.
func (b *Broker) Subscribers(sessionID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[sessionID])
}
