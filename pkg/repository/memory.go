package repository

import (
	"sync"

	"github.com/m-mizutani/courseguide/pkg/model"
)

// DefaultMaxConversations bounds the store when no capacity is given.
const DefaultMaxConversations = 50

// Memory is a process-lifetime conversation store. Once it holds more than
// its capacity, the oldest conversations by creation order are evicted,
// regardless of how recently they were used.
type Memory struct {
	mu      sync.RWMutex
	max     int
	entries map[model.ConversationID]model.History
	order   []model.ConversationID // creation order

	locksMu sync.Mutex
	locks   map[model.ConversationID]*keyLock

	onEvict func(id model.ConversationID)
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

type MemoryOption func(*Memory)

// WithEvictHook registers a function called for every evicted conversation.
// It runs with the store lock held and must not call back into the store.
func WithEvictHook(fn func(id model.ConversationID)) MemoryOption {
	return func(m *Memory) {
		m.onEvict = fn
	}
}

// NewMemory creates a store holding at most max conversations. A max of zero
// or less selects DefaultMaxConversations.
func NewMemory(max int, opts ...MemoryOption) *Memory {
	if max <= 0 {
		max = DefaultMaxConversations
	}

	m := &Memory{
		max:     max,
		entries: make(map[model.ConversationID]model.History),
		locks:   make(map[model.ConversationID]*keyLock),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Get(id model.ConversationID) model.History {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h, ok := m.entries[id]
	if !ok {
		return model.History{}
	}
	return h.Clone()
}

func (m *Memory) Append(id model.ConversationID, user, reply model.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.entries[id]
	if !ok {
		m.order = append(m.order, id)
	}
	m.entries[id] = append(h, user, reply)

	if !ok {
		m.evictOverflow()
	}
}

// evictOverflow must be called with m.mu held.
func (m *Memory) evictOverflow() {
	for len(m.entries) > m.max && len(m.order) > 0 {
		oldest := m.order[0]
		m.order[0] = ""
		m.order = m.order[1:]

		delete(m.entries, oldest)
		if m.onEvict != nil {
			m.onEvict(oldest)
		}
	}
}

func (m *Memory) Lock(id model.ConversationID) func() {
	m.locksMu.Lock()
	l, ok := m.locks[id]
	if !ok {
		l = &keyLock{}
		m.locks[id] = l
	}
	l.refs++
	m.locksMu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		m.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, id)
		}
		m.locksMu.Unlock()
	}
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// IDs returns the stored conversation identifiers, oldest first
func (m *Memory) IDs() []model.ConversationID {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]model.ConversationID, len(m.order))
	copy(ids, m.order)
	return ids
}

// Max returns the capacity of the store
func (m *Memory) Max() int {
	return m.max
}
