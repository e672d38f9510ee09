// Package review implements the human-facing resolution surface: the
// pending-request index, the editing form with its upstream draft, and
// the submission path that resolves a pending request.
package review

import (
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log"
	"net/http"

	"interactive-openai-proxy/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// ServerState holds the review surface's dependencies.
type ServerState struct {
	Store *store.Store
	// Drafter pre-fills the review form with a candidate answer. A nil
	// Drafter disables drafting; the form starts empty.
	Drafter Drafter
	// DraftModel is the model used for draft calls and as the fallback
	// when the original request names no model.
	DraftModel string
}

// NewServerState creates the review surface state.
func NewServerState(st *store.Store, drafter Drafter, draftModel string) *ServerState {
	return &ServerState{
		Store:      st,
		Drafter:    drafter,
		DraftModel: draftModel,
	}
}

type indexView struct {
	Pending []*store.PendingRequest
}

type reviewView struct {
	ID            string
	RequestJSON   string
	Content       string
	ToolName      string
	ToolArguments string
	IsToolCall    bool
}

// HandleIndex lists the currently unresolved pending requests.
func (s *ServerState) HandleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, "index.html", indexView{Pending: s.Store.ListPending()})
}

// HandleShow renders one pending request for editing, pre-filled with a
// best-effort draft from the upstream service.
func (s *ServerState) HandleShow(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	req, err := s.Store.Get(id)
	if err != nil {
		http.Error(w, "request not found", http.StatusNotFound)
		return
	}

	draft := s.fetchDraft(r.Context(), req.Payload)
	s.render(w, "review.html", reviewView{
		ID:            id,
		RequestJSON:   prettyJSON(req.Payload),
		Content:       draft.Content,
		ToolName:      draft.ToolName,
		ToolArguments: draft.ToolArguments,
		IsToolCall:    draft.IsToolCall(),
	})
}

// HandleSubmit accepts the human-edited answer, resolves the pending
// request with it, and redirects back to the index.
func (s *ServerState) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}

	req, err := s.Store.Get(id)
	if err != nil {
		http.Error(w, "request not found", http.StatusNotFound)
		return
	}

	completion := BuildCompletion(id, req.Payload, Submission{
		Type:          r.FormValue("response_type"),
		Content:       r.FormValue("content"),
		ToolName:      r.FormValue("tool_name"),
		ToolArguments: r.FormValue("tool_arguments"),
	}, s.DraftModel)

	result, err := json.Marshal(completion)
	if err != nil {
		http.Error(w, "error encoding response", http.StatusInternalServerError)
		return
	}

	if err := s.Store.Resolve(id, result); err != nil {
		if errors.Is(err, store.ErrAlreadyResolved) {
			http.Error(w, "request already resolved", http.StatusConflict)
		} else {
			http.Error(w, "request not found", http.StatusNotFound)
		}
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// RegisterHandlers registers the review routes with a router.
func (s *ServerState) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.HandleIndex)
	mux.HandleFunc("GET /r/{id}", s.HandleShow)
	mux.HandleFunc("POST /r/{id}", s.HandleSubmit)
}

func (s *ServerState) render(w http.ResponseWriter, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.ExecuteTemplate(w, name, data); err != nil {
		log.Printf("failed to render %s: %v", name, err)
	}
}

// prettyJSON re-indents an opaque payload for display, falling back to
// the raw bytes if it cannot be re-marshaled.
func prettyJSON(raw json.RawMessage) string {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return string(raw)
	}
	return string(pretty)
}
