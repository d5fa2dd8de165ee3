// Package statusbus is an in-process publish/subscribe channel for coarse
// lifecycle events. A Bus is an explicit value handed to producers and
// consumers, so independent orchestrators and tests never share listener state.
package statusbus

import (
	"log/slog"
	"sync"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelWarn    Level = "warn"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Status is the payload carried on the "status" event.
type Status struct {
	Level Level  `json:"level"`
	Text  string `json:"text"`
}

// EventStatus is the sole event name used by the relay core.
const EventStatus = "status"

type Handler func(payload any)

type subscriber struct {
	id uint64
	fn Handler
}

type Bus struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[string][]subscriber
}

func New() *Bus {
	return &Bus{subs: make(map[string][]subscriber)}
}

// Subscribe registers fn for event and returns a disposer that removes exactly
// that registration. Every call is a distinct registration: two closures built
// from the same literal share a code pointer but not captured state, so no
// function-value comparison can tell duplicates apart safely.
func (b *Bus) Subscribe(event string, fn Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs[event] = append(b.subs[event], subscriber{id: id, fn: fn})
	return func() { b.remove(event, id) }
}

func (b *Bus) remove(event string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[event]
	for i, s := range subs {
		if s.id == id {
			b.subs[event] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Emit invokes every current subscriber for event synchronously, in
// registration order. A panicking subscriber does not block the others or
// the emitter.
func (b *Bus) Emit(event string, payload any) {
	b.mu.Lock()
	subs := make([]subscriber, len(b.subs[event]))
	copy(subs, b.subs[event])
	b.mu.Unlock()

	for _, s := range subs {
		invoke(s.fn, payload)
	}
}

func invoke(fn Handler, payload any) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("status subscriber panicked", "panic", r)
		}
	}()
	fn(payload)
}
