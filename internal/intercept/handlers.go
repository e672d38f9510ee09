// Package intercept implements the chat-completion interception
// endpoint: inbound requests are parked in the pending-request store and
// the connection is held open until a human resolves them.
package intercept

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"interactive-openai-proxy/internal/store"
)

// ServerState holds the interception endpoint's dependencies.
type ServerState struct {
	Store *store.Store
	// ResolveTimeout bounds the wait for resolution; zero keeps the
	// default behavior of waiting indefinitely.
	ResolveTimeout time.Duration
	// ReviewBase is the externally reachable base URL used when logging
	// the review link for a new pending request.
	ReviewBase string
}

// NewServerState creates the interception endpoint state.
func NewServerState(s *store.Store, resolveTimeout time.Duration, reviewBase string) *ServerState {
	return &ServerState{
		Store:          s,
		ResolveTimeout: resolveTimeout,
		ReviewBase:     reviewBase,
	}
}

// HandleChatCompletion parks the incoming completion request and
// suspends until it is resolved, then relays the human-authored
// response to the caller. The body is treated as opaque JSON: it only
// has to be well-formed, not schema-valid.
func (s *ServerState) HandleChatCompletion(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "error reading request body", http.StatusBadRequest)
		return
	}
	if !json.Valid(body) {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	id := s.Store.Create(body)
	log.Printf("New request: %s/r/%s", s.ReviewBase, id)

	var result json.RawMessage
	if s.ResolveTimeout > 0 {
		result, err = s.Store.AwaitTimeout(id, s.ResolveTimeout)
	} else {
		result, err = s.Store.Await(id)
	}
	if err != nil {
		if errors.Is(err, store.ErrAwaitTimeout) {
			http.Error(w, "timed out waiting for review", http.StatusGatewayTimeout)
			return
		}
		// The entry was removed out of band while we waited.
		http.Error(w, "request is no longer pending", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(result)
}

// RegisterHandlers registers the interception route with a router.
func (s *ServerState) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/chat/completions", s.HandleChatCompletion)
}
