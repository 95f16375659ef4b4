// Package bus provides in-process publish/subscribe for journal events,
// so UI listeners learn about new entries and status changes without
// polling the database.
package bus

import (
	"log/slog"
	"sync"

	"github.com/sourcegraph/conc/panics"

	"github.com/arborapp/arbor-core/internal/model"
)

// EntryEvent is published after an entry write commits.
type EntryEvent struct {
	SessionID string
	Entry     *model.WorkEntry
}

// StatusEvent is published after a session status change commits.
type StatusEvent struct {
	SessionID string
	Status    model.SessionStatus
}

// EntryHandler receives entry events for one session.
type EntryHandler func(EntryEvent)

// StatusHandler receives status events for one session.
type StatusHandler func(StatusEvent)

// Bus is an observer registry keyed by session id. Subscriber callbacks
// are treated as untrusted: each delivery is panic-isolated so one broken
// listener cannot block the others or the write path.
type Bus struct {
	mu         sync.RWMutex
	nextID     int
	entrySubs  map[string]map[int]EntryHandler
	statusSubs map[string]map[int]StatusHandler
	log        *slog.Logger
}

// New creates a Bus. A nil logger falls back to slog.Default.
func New(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		entrySubs:  make(map[string]map[int]EntryHandler),
		statusSubs: make(map[string]map[int]StatusHandler),
		log:        logger,
	}
}

// SubscribeEntries registers a handler for entry events on a session.
// The returned func removes the subscription.
func (b *Bus) SubscribeEntries(sessionID string, h EntryHandler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	if b.entrySubs[sessionID] == nil {
		b.entrySubs[sessionID] = make(map[int]EntryHandler)
	}
	b.entrySubs[sessionID][id] = h
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.entrySubs[sessionID], id)
	}
}

// SubscribeStatus registers a handler for status events on a session.
// The returned func removes the subscription.
func (b *Bus) SubscribeStatus(sessionID string, h StatusHandler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	if b.statusSubs[sessionID] == nil {
		b.statusSubs[sessionID] = make(map[int]StatusHandler)
	}
	b.statusSubs[sessionID][id] = h
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.statusSubs[sessionID], id)
	}
}

// PublishEntry delivers an entry event to every subscriber of its session.
func (b *Bus) PublishEntry(ev EntryEvent) {
	b.mu.RLock()
	handlers := make([]EntryHandler, 0, len(b.entrySubs[ev.SessionID]))
	for _, h := range b.entrySubs[ev.SessionID] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h := h
		if r := panics.Try(func() { h(ev) }); r != nil {
			b.log.Warn("entry subscriber panicked", "session", ev.SessionID, "panic", r.Value)
		}
	}
}

// PublishStatus delivers a status event to every subscriber of its session.
func (b *Bus) PublishStatus(ev StatusEvent) {
	b.mu.RLock()
	handlers := make([]StatusHandler, 0, len(b.statusSubs[ev.SessionID]))
	for _, h := range b.statusSubs[ev.SessionID] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h := h
		if r := panics.Try(func() { h(ev) }); r != nil {
			b.log.Warn("status subscriber panicked", "session", ev.SessionID, "panic", r.Value)
		}
	}
}
