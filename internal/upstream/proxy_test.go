package upstream

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interactive-openai-proxy/internal/config"
)

func newProxyServer(t *testing.T, upstreamURL string) *httptest.Server {
	t.Helper()
	p := NewProxy(&config.Config{UpstreamBaseURL: upstreamURL + "/v1"})
	mux := http.NewServeMux()
	mux.Handle("/v1/", p)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestPassthroughForwardsRequestVerbatim(t *testing.T) {
	var gotMethod, gotPath, gotQuery, gotBody, gotHeader, gotHost string

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotHeader = r.Header.Get("X-Custom")
		gotHost = r.Host
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)

		w.Header().Set("X-Upstream", "yes")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"object":"list","data":[]}`))
	}))
	defer upstream.Close()

	srv := newProxyServer(t, upstream.URL)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/v1/models?limit=5", strings.NewReader("request body"))
	require.NoError(t, err)
	req.Header.Set("X-Custom", "custom-value")
	req.Header.Set("Authorization", "Bearer client-key")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/v1/models", gotPath)
	assert.Equal(t, "limit=5", gotQuery)
	assert.Equal(t, "request body", gotBody)
	assert.Equal(t, "custom-value", gotHeader)

	// The Host header belongs to the upstream connection, not the proxy's.
	u, _ := url.Parse(upstream.URL)
	assert.Equal(t, u.Host, gotHost)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "yes", resp.Header.Get("X-Upstream"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, `{"object":"list","data":[]}`, string(body))
}

func TestPassthroughStreamsWithoutBuffering(t *testing.T) {
	release := make(chan struct{})

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)

		io.WriteString(w, "data: first\n\n")
		w.(http.Flusher).Flush()

		// Hold the stream open until the test has observed the first
		// chunk; this proves bytes are relayed before upstream finishes.
		<-release
		io.WriteString(w, "data: second\n\n")
	}))
	defer upstream.Close()

	srv := newProxyServer(t, upstream.URL)

	resp, err := http.Get(srv.URL + "/v1/chat/stream")
	require.NoError(t, err)
	defer resp.Body.Close()

	first := make([]byte, len("data: first\n\n"))
	_, err = io.ReadFull(resp.Body, first)
	require.NoError(t, err)
	assert.Equal(t, "data: first\n\n", string(first))

	close(release)

	rest, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "data: second\n\n", string(rest))
}

func TestPassthroughRelaysUpstreamStatus(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"no such model"}`, http.StatusNotFound)
	}))
	defer upstream.Close()

	srv := newProxyServer(t, upstream.URL)

	resp, err := http.Get(srv.URL + "/v1/models/unknown")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "no such model")
}

func TestPassthroughUpstreamUnreachable(t *testing.T) {
	srv := newProxyServer(t, "http://127.0.0.1:1")

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(srv.URL + "/v1/models")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}
