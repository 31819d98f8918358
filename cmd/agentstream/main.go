// Command agentstream runs the streaming substrate's HTTP server: it wires
// the event log, message store, agent registry, SSE watcher, optional wake
// hint, and cleanup sweep, then serves the HTTP API until signaled to stop.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	anthropicSDK "github.com/anthropics/anthropic-sdk-go"

	"github.com/riverrun/agentstream/pkg/agentgraph"
	"github.com/riverrun/agentstream/pkg/api"
	"github.com/riverrun/agentstream/pkg/cleanup"
	"github.com/riverrun/agentstream/pkg/config"
	"github.com/riverrun/agentstream/pkg/database"
	"github.com/riverrun/agentstream/pkg/driver"
	"github.com/riverrun/agentstream/pkg/eventstore"
	"github.com/riverrun/agentstream/pkg/messagestore"
	"github.com/riverrun/agentstream/pkg/registry"
	"github.com/riverrun/agentstream/pkg/version"
	"github.com/riverrun/agentstream/pkg/wake"
	"github.com/riverrun/agentstream/pkg/watcher"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	envFile := flag.String("env-file",
		getEnv("ENV_FILE", ".env"),
		"Path to a .env file to load before reading configuration")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil {
		log.Printf("no .env file loaded from %s: %v", *envFile, err)
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	cfg := config.Load()
	stats := cfg.Stats()
	log.Info("starting agentstream",
		"version", version.Full(),
		"db_host", stats.DBHost,
		"http_addr", stats.HTTPAddr,
		"wake_enabled", stats.WakeEnabled,
		"event_ttl_days", stats.EventTTLDays,
		"heartbeat_secs", stats.HeartbeatSecs)

	ctx := context.Background()

	pool, err := database.Open(ctx, cfg.Database)
	if err != nil {
		log.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	log.Info("connected to postgres and applied migrations")

	wakeHub, err := wake.New(cfg.Wake, log)
	if err != nil {
		log.Error("failed to build wake hub", "error", err)
		os.Exit(1)
	}
	if wakeHub != nil {
		if err := wakeHub.Ping(ctx); err != nil {
			log.Warn("wake hub configured but unreachable, continuing without it", "error", err)
		}
		defer wakeHub.Close()
	}

	store := eventstore.New(pool, cfg.Driver, log)
	store.SetNotify(func(messageID string) {
		wakeHub.Publish(context.Background(), messageID)
	})

	messages := messagestore.New(pool)
	reg := registry.New(log)
	watch := watcher.New(store, reg, wakeHub, cfg.Driver, log)

	graph := buildGraph(log)
	scope := driver.NewPinnedScopeChecker()

	cleanupSvc := cleanup.NewService(cfg.Retention, cfg.Driver.RegistryMaxAge, reg, store, log)
	cleanupSvc.Start(ctx)
	defer cleanupSvc.Stop()

	server := api.NewServer(cfg, pool, messages, store, reg, watch, graph, scope, log)

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", cfg.HTTP.Addr)
		if err := server.Start(cfg.HTTP.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Error("http server failed", "error", err)
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown error", "error", err)
	}

	// Registry.Stop blocks until every in-flight agent run reaches a
	// terminal state — an agent run's own cancellation shielding means
	// this is a real wait, not a formality.
	reg.Stop()
	log.Info("agentstream stopped")
}

// buildGraph selects the Anthropic-backed agent graph when an API key is
// configured, falling back to a small scripted graph otherwise so the
// server is still runnable for local development and demos without a key.
func buildGraph(log *slog.Logger) agentgraph.Graph {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		log.Warn("ANTHROPIC_API_KEY not set, falling back to a scripted demo graph")
		return agentgraph.NewScripted([]agentgraph.ScriptedStep{
			{Thinking: "No ANTHROPIC_API_KEY configured; returning a canned response."},
			{Final: true, FinalContent: "This is a demo response. Configure ANTHROPIC_API_KEY to talk to the real model."},
		})
	}

	model := anthropicSDK.Model(getEnv("ANTHROPIC_MODEL", string(anthropicSDK.ModelClaudeSonnet4_5_20250929)))
	system := getEnv("ANTHROPIC_SYSTEM_PROMPT", "You are a tender analysis assistant.")
	graph, err := agentgraph.NewAnthropic(apiKey, model, 4096, system)
	if err != nil {
		log.Error("failed to build anthropic graph, falling back to scripted", "error", err)
		return agentgraph.NewScripted([]agentgraph.ScriptedStep{
			{Final: true, FinalContent: "Anthropic client failed to initialize."},
		})
	}
	return graph
}
