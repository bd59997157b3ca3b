package webchat

import (
	"sync"

	"dlchat/internal/reconciler"
)

// sessionEntry pairs a reconciler session with a mutex. Sessions support a
// single driver, so every handler touching the session must hold the entry
// lock for the whole send-and-await cycle.
type sessionEntry struct {
	mu      sync.Mutex
	session *reconciler.Session
}

// registry tracks the active browser conversations.
type registry struct {
	mu      sync.RWMutex
	entries map[string]*sessionEntry
}

func newRegistry() *registry {
	return &registry{entries: make(map[string]*sessionEntry)}
}

func (r *registry) add(conversationID string, session *reconciler.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[conversationID] = &sessionEntry{session: session}
}

func (r *registry) get(conversationID string) *sessionEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[conversationID]
}

func (r *registry) remove(conversationID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, conversationID)
}

func (r *registry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
