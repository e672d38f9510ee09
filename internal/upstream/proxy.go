package upstream

import (
	"net/http"
	"strings"

	"interactive-openai-proxy/internal/config"
	"interactive-openai-proxy/internal/telemetry"
)

// Proxy forwards any non-intercepted request to the upstream service and
// relays the response incrementally, preserving streaming semantics such
// as server-sent-event completions.
type Proxy struct {
	baseURL    string
	httpClient *http.Client
}

// NewProxy creates a passthrough proxy for the configured upstream base
// URL. The client deliberately has no overall timeout: streaming
// responses stay open as long as upstream keeps sending.
func NewProxy(cfg *config.Config) *Proxy {
	return &Proxy{
		baseURL:    strings.TrimRight(cfg.UpstreamBaseURL, "/"),
		httpClient: telemetry.NewTracedHTTPClient(nil),
	}
}

// ServeHTTP forwards the request verbatim: same method, query string,
// body, and headers (minus the connection-specific Host header), with
// the local "/v1" prefix replaced by the upstream base URL.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	target := p.baseURL + strings.TrimPrefix(r.URL.Path, "/v1")
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	req, err := http.NewRequestWithContext(r.Context(), r.Method, target, r.Body)
	if err != nil {
		http.Error(w, "failed to build upstream request: "+err.Error(), http.StatusBadGateway)
		return
	}
	req.ContentLength = r.ContentLength
	for key, values := range r.Header {
		if strings.EqualFold(key, "Host") {
			continue
		}
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		http.Error(w, "upstream request failed: "+err.Error(), http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	for key, values := range resp.Header {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.WriteHeader(resp.StatusCode)

	relayBody(w, resp)
}

// relayBody copies the upstream body to the client chunk by chunk,
// flushing after every read so streamed responses are not buffered. It
// returns when upstream closes the stream or the client goes away; the
// deferred Close in ServeHTTP releases the upstream connection either
// way.
func relayBody(w http.ResponseWriter, resp *http.Response) {
	flusher, _ := w.(http.Flusher)
	buf := make([]byte, 32*1024)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err != nil {
			return
		}
	}
}
