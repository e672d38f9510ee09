// Interactive OpenAI Proxy
//
// This application sits between a client and an OpenAI-compatible API
// and lets a human intercept chat-completion requests. Each request to
// POST /v1/chat/completions is suspended until the human supplies (or
// approves a drafted) response through the web review form; every other
// request under /v1 streams through to the upstream service untouched.
//
// CLI Usage:
//
//	The application supports the following command-line flags:
//
//	--addr=":8000"
//	  Address to listen on (overrides LISTEN_ADDR).
//
//	--config="config.yaml"
//	  Path to a YAML configuration file (overrides CONFIG_FILE).
//
//	--no-draft
//	  Disables the upstream draft call on the review page; the form
//	  starts empty instead of pre-filled with a suggested answer.
//
//	--trace
//	  Exports OpenTelemetry spans for every request to stdout.
//
// Environment Variables:
//   - OPENAI_API_BASE: Base URL of the upstream OpenAI-compatible service
//     (default "https://api.openai.com/v1")
//   - OPENAI_API_KEY: Credential for the proxy's own draft calls
//   - DRAFT_MODEL: Model used for draft calls (default "gpt-3.5-turbo")
//   - LISTEN_ADDR: Listen address (default ":8000")
//   - RESOLVE_TIMEOUT: Optional bound on how long an intercepted caller
//     waits for review (e.g. "15m"); empty means wait indefinitely
//   - CONFIG_FILE: Optional YAML configuration file
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"interactive-openai-proxy/internal/app"
	"interactive-openai-proxy/internal/config"
	"interactive-openai-proxy/internal/telemetry"
	"interactive-openai-proxy/pkg/utils"
)

const serviceName = "interactive-openai-proxy"

// loadEnvFile loads environment variables from a .env file if present.
// It attempts to load from the current directory and parent directories
// up to the root directory.
func loadEnvFile() {
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment variables from .env file in current directory")
		return
	}

	workDir, err := os.Getwd()
	if err != nil {
		log.Printf("Warning: Could not determine current directory: %v", err)
		return
	}

	for dir := workDir; dir != "/"; dir = filepath.Dir(dir) {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			if err := godotenv.Load(envPath); err == nil {
				log.Printf("Loaded environment variables from %s", envPath)
				return
			}
		}
	}

	log.Println("No .env file found. Using existing environment variables.")
}

func main() {
	loadEnvFile()

	addr := flag.String("addr", "", "Address to listen on (overrides LISTEN_ADDR)")
	configPath := flag.String("config", "", "Path to a YAML configuration file (overrides CONFIG_FILE)")
	noDraft := flag.Bool("no-draft", false, "Disable the upstream draft call on the review page")
	enableTrace := flag.Bool("trace", false, "Export OpenTelemetry spans to stdout")
	flag.Parse()

	if *configPath != "" {
		os.Setenv("CONFIG_FILE", *configPath)
	}
	cfg := config.GetConfig()
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	if *noDraft {
		cfg.DisableDraft = true
	}

	if *enableTrace {
		shutdown, err := telemetry.Initialize(serviceName)
		if err != nil {
			log.Printf("Warning: failed to initialize tracing: %v", err)
		} else {
			defer func() {
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(flushCtx); err != nil {
					log.Printf("Error shutting down tracing: %v", err)
				}
			}()
		}
	}

	log.Printf("Upstream service: %s", cfg.UpstreamBaseURL)
	if cfg.UpstreamAPIKey != "" {
		log.Printf("Using upstream API key: %s", utils.MaskToken(cfg.UpstreamAPIKey))
	} else {
		log.Println("No upstream API key configured; draft calls will go out unauthenticated")
	}
	if cfg.ResolveTimeout > 0 {
		log.Printf("Intercepted requests expire after %s without review", cfg.ResolveTimeout)
	}

	a := app.NewApp(cfg)

	// Create a context that will be canceled on program termination
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down...")
		cancel()
	}()

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: telemetry.Middleware(serviceName)(a.Router),
	}

	go func() {
		log.Printf("Starting server on %s...", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not start server: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during server shutdown: %v", err)
	} else {
		log.Println("Server gracefully stopped")
	}
}
