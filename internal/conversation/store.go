package conversation

import (
	"context"
	"sync"
)

// Store is the session store: a durable-enough mapping from thread ID
// to conversation state. Load returns a fresh empty conversation when
// the thread is unknown. Commit replaces the stored state wholesale.
//
// The store itself does not serialize concurrent turns for one thread;
// the engine pairs each Load with one Commit under a per-thread lock.
type Store interface {
	Load(ctx context.Context, threadID string) (*Conversation, error)
	Commit(ctx context.Context, conv *Conversation) error
}

// MemoryStore keeps conversation state in process memory. State does
// not survive a restart; enable session persistence for the sqlite
// store instead.
type MemoryStore struct {
	mu      sync.RWMutex
	threads map[string]*Conversation
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{threads: make(map[string]*Conversation)}
}

// Load returns a deep copy of the thread's conversation, or a fresh
// empty conversation if the thread has never been seen.
func (s *MemoryStore) Load(_ context.Context, threadID string) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.threads[threadID]
	if !ok {
		return New(threadID), nil
	}
	return conv.Clone(), nil
}

// Commit stores a deep copy of the conversation.
func (s *MemoryStore) Commit(_ context.Context, conv *Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads[conv.ThreadID] = conv.Clone()
	return nil
}

// Len returns the number of stored threads.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.threads)
}
