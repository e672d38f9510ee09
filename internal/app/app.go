// Package app assembles the proxy: the shared pending-request store,
// the interception endpoint, the review surface, and the passthrough
// proxy, all wired onto one router.
package app

import (
	"encoding/json"
	"net/http"
	"strings"

	"interactive-openai-proxy/internal/config"
	"interactive-openai-proxy/internal/intercept"
	"interactive-openai-proxy/internal/review"
	"interactive-openai-proxy/internal/store"
	"interactive-openai-proxy/internal/upstream"
)

// App represents the main application with its router and shared state.
type App struct {
	Router *http.ServeMux
	Store  *store.Store
	Config *config.Config
}

// NewApp creates and initializes a new instance of the App struct.
func NewApp(cfg *config.Config) *App {
	app := &App{
		Router: http.NewServeMux(),
		Store:  store.New(),
		Config: cfg,
	}

	app.initializeRoutes()
	return app
}

func (a *App) initializeRoutes() {
	interceptState := intercept.NewServerState(a.Store, a.Config.ResolveTimeout, reviewBase(a.Config.ListenAddr))
	interceptState.RegisterHandlers(a.Router)

	// A nil drafter leaves the review form empty instead of pre-filling
	// it from upstream.
	var drafter review.Drafter
	if !a.Config.DisableDraft {
		drafter = upstream.NewClient(a.Config)
	}
	reviewState := review.NewServerState(a.Store, drafter, a.Config.DraftModel)
	reviewState.RegisterHandlers(a.Router)

	// Everything else under the versioned namespace passes through. The
	// more specific interception pattern wins for POST /v1/chat/completions.
	a.Router.Handle("/v1/", upstream.NewProxy(a.Config))

	a.Router.HandleFunc("GET /status", a.handleStatus)
}

func (a *App) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"pending": a.Store.Len(),
	})
}

// reviewBase derives the base URL logged with each new review link from
// the listen address.
func reviewBase(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}
