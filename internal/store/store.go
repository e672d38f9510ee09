package store

import (
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no pending request exists for an ID,
	// or when the entry was removed while a waiter was suspended on it.
	ErrNotFound = errors.New("pending request not found")

	// ErrAlreadyResolved is returned when a request is resolved a second
	// time. The stored response is the one from the first resolution.
	ErrAlreadyResolved = errors.New("pending request already resolved")

	// ErrAwaitTimeout is returned by AwaitTimeout when the wait deadline
	// passes before the entry is resolved.
	ErrAwaitTimeout = errors.New("timed out waiting for resolution")
)

// PendingRequest is the read-only view of one intercepted request.
type PendingRequest struct {
	ID        string
	Payload   json.RawMessage
	CreatedAt time.Time
}

// entry is the internal state of one pending request. done is buffered
// with capacity 1 so Resolve never blocks on a slow waiter; it is closed
// only when an unresolved entry is removed out of band.
type entry struct {
	req      *PendingRequest
	resolved bool
	result   json.RawMessage
	done     chan json.RawMessage
}

// Store is a concurrent registry of pending requests. It is the only
// mutable shared state in the proxy; all mutation goes through its
// methods.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New creates an empty store.
func New() *Store {
	return &Store{entries: make(map[string]*entry)}
}

// Create registers a new pending request for the given payload and
// returns its ID. IDs are random UUIDs and never reused while an entry
// is live.
func (s *Store) Create(payload json.RawMessage) string {
	id := uuid.New().String()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = &entry{
		req: &PendingRequest{
			ID:        id,
			Payload:   payload,
			CreatedAt: time.Now(),
		},
		done: make(chan json.RawMessage, 1),
	}
	return id
}

// Get returns the pending request for id, or ErrNotFound if the entry
// never existed or was already consumed.
func (s *Store) Get(id string) (*PendingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e.req, nil
}

// Resolve attaches a completion response to the entry and wakes its
// waiter. Resolution is all-or-nothing: on ErrNotFound or
// ErrAlreadyResolved the store is unchanged.
func (s *Store) Resolve(id string, result json.RawMessage) error {
	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	if e.resolved {
		s.mu.Unlock()
		return ErrAlreadyResolved
	}
	e.resolved = true
	e.result = result
	s.mu.Unlock()

	e.done <- result
	return nil
}

// Remove deletes the entry for id, if any. Removing an entry that was
// never resolved wakes its waiter with ErrNotFound.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return
	}
	delete(s.entries, id)
	if !e.resolved {
		close(e.done)
	}
}

// ListPending returns all unresolved requests, oldest first.
func (s *Store) ListPending() []*PendingRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := make([]*PendingRequest, 0, len(s.entries))
	for _, e := range s.entries {
		if !e.resolved {
			pending = append(pending, e.req)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	return pending
}

// Len returns the number of unresolved requests.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, e := range s.entries {
		if !e.resolved {
			n++
		}
	}
	return n
}

// Await suspends the calling goroutine until the entry for id is
// resolved, then consumes the result and removes the entry. It returns
// ErrNotFound if the entry does not exist or is removed while waiting.
// There is no deadline; see the package documentation.
func (s *Store) Await(id string) (json.RawMessage, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	result, ok := <-e.done
	if !ok {
		return nil, ErrNotFound
	}
	s.Remove(id)
	return result, nil
}

// AwaitTimeout is Await with a deadline. When the deadline passes first,
// the entry is expired (removed) and ErrAwaitTimeout is returned; a
// later Resolve for the same ID fails with ErrNotFound.
func (s *Store) AwaitTimeout(id string, d time.Duration) (json.RawMessage, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case result, ok := <-e.done:
		if !ok {
			return nil, ErrNotFound
		}
		s.Remove(id)
		return result, nil
	case <-timer.C:
		s.Remove(id)
		return nil, ErrAwaitTimeout
	}
}

func (s *Store) lookup(id string) (*entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}
