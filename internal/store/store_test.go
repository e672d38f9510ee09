package store

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndGet(t *testing.T) {
	s := New()
	payload := json.RawMessage(`{"model":"gpt-4o","messages":[]}`)

	id := s.Create(payload)
	require.NotEmpty(t, id)

	req, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, id, req.ID)
	assert.Equal(t, payload, req.Payload)
	assert.False(t, req.CreatedAt.IsZero())
}

func TestGetUnknownID(t *testing.T) {
	s := New()

	_, err := s.Get("no-such-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveWakesAwait(t *testing.T) {
	s := New()
	id := s.Create(json.RawMessage(`{}`))
	response := json.RawMessage(`{"id":"chatcmpl-test"}`)

	got := make(chan json.RawMessage, 1)
	errs := make(chan error, 1)
	go func() {
		result, err := s.Await(id)
		got <- result
		errs <- err
	}()

	// Let the waiter suspend before resolving.
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, s.Resolve(id, response))

	select {
	case result := <-got:
		assert.Equal(t, response, result)
		assert.NoError(t, <-errs)
	case <-time.After(time.Second):
		t.Fatal("Await did not wake after Resolve")
	}

	// The entry is consumed: it is gone from the store.
	_, err := s.Get(id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveErrors(t *testing.T) {
	s := New()
	id := s.Create(json.RawMessage(`{}`))

	require.NoError(t, s.Resolve(id, json.RawMessage(`{"n":1}`)))

	tests := []struct {
		name string
		id   string
		want error
	}{
		{name: "second resolve rejected", id: id, want: ErrAlreadyResolved},
		{name: "unknown id rejected", id: "no-such-id", want: ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, s.Resolve(tt.id, json.RawMessage(`{"n":2}`)), tt.want)
		})
	}

	// The stored response is still the first one.
	result, err := s.Await(id)
	require.NoError(t, err)
	assert.Equal(t, json.RawMessage(`{"n":1}`), result)
}

func TestConcurrentResolveExactlyOneWins(t *testing.T) {
	s := New()
	id := s.Create(json.RawMessage(`{}`))

	const racers = 16
	var wg sync.WaitGroup
	errCh := make(chan error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errCh <- s.Resolve(id, json.RawMessage(`{}`))
		}()
	}
	wg.Wait()
	close(errCh)

	wins := 0
	for err := range errCh {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, ErrAlreadyResolved)
		}
	}
	assert.Equal(t, 1, wins)
}

func TestRemoveWakesAwaitWithNotFound(t *testing.T) {
	s := New()
	id := s.Create(json.RawMessage(`{}`))

	errs := make(chan error, 1)
	go func() {
		_, err := s.Await(id)
		errs <- err
	}()

	time.Sleep(10 * time.Millisecond)
	s.Remove(id)

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, ErrNotFound)
	case <-time.After(time.Second):
		t.Fatal("Await did not terminate after Remove")
	}
}

func TestAwaitUnknownID(t *testing.T) {
	s := New()

	_, err := s.Await("no-such-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAwaitTimeoutExpiresEntry(t *testing.T) {
	s := New()
	id := s.Create(json.RawMessage(`{}`))

	_, err := s.AwaitTimeout(id, 20*time.Millisecond)
	require.ErrorIs(t, err, ErrAwaitTimeout)

	// The entry expired with the wait; resolving it now fails.
	assert.ErrorIs(t, s.Resolve(id, json.RawMessage(`{}`)), ErrNotFound)
}

func TestAwaitTimeoutReturnsResolution(t *testing.T) {
	s := New()
	id := s.Create(json.RawMessage(`{}`))
	response := json.RawMessage(`{"id":"chatcmpl-test"}`)

	require.NoError(t, s.Resolve(id, response))

	result, err := s.AwaitTimeout(id, time.Second)
	require.NoError(t, err)
	assert.Equal(t, response, result)
}

func TestListPending(t *testing.T) {
	s := New()

	first := s.Create(json.RawMessage(`{"n":1}`))
	time.Sleep(time.Millisecond)
	second := s.Create(json.RawMessage(`{"n":2}`))

	pending := s.ListPending()
	require.Len(t, pending, 2)
	assert.Equal(t, first, pending[0].ID)
	assert.Equal(t, second, pending[1].ID)
	assert.Equal(t, 2, s.Len())

	// Resolved entries drop out of the pending list even before they
	// are consumed.
	require.NoError(t, s.Resolve(first, json.RawMessage(`{}`)))
	pending = s.ListPending()
	require.Len(t, pending, 1)
	assert.Equal(t, second, pending[0].ID)
	assert.Equal(t, 1, s.Len())
}

func TestIDsAreUnique(t *testing.T) {
	s := New()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := s.Create(json.RawMessage(`{}`))
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}
