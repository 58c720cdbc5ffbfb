// Command backend is the main entrypoint for the command-tender API and chat bot.
// It:
//   - Loads configuration and initializes structured logging.
//   - Loads the fixed command catalog and opens the custom command store
//     (JSON file, SQLite or Postgres, selected by DB_DSN).
//   - Starts the Twitch chat bot when credentials are present.
//   - Exposes the HTTP API with /commands, /healthz, /readyz and /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/onnwee/command-tender/backend/catalog"
	"github.com/onnwee/command-tender/backend/chat"
	"github.com/onnwee/command-tender/backend/commands"
	"github.com/onnwee/command-tender/backend/config"
	"github.com/onnwee/command-tender/backend/server"
	"github.com/onnwee/command-tender/backend/store"
	"github.com/onnwee/command-tender/backend/telemetry"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	setupLogging(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("command-tender", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		slog.Error("catalog load failed", slog.Any("err", err), slog.String("path", cfg.CatalogPath))
		os.Exit(1)
	}
	slog.Info("catalog loaded", slog.Int("commands", cat.Len()), slog.String("component", "catalog"))

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg)
	if err != nil {
		slog.Error("failed to open command store", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Error("failed to close command store", slog.Any("err", err))
		}
	}()

	if !cfg.WritesEnabled() {
		slog.Warn("COMMANDS_API_KEY not set; command writes over HTTP are disabled")
	}

	if err := cfg.ValidateChatReady(); err == nil {
		go chat.Start(ctx, chat.Config{
			Channel:  cfg.TwitchChannel,
			Username: cfg.TwitchBotUsername,
			OAuth:    cfg.TwitchOAuthToken,
		}, chat.NewBot(st))
	} else {
		slog.Info("chat bot disabled", slog.String("reason", err.Error()))
	}

	merger := commands.NewMerger(cat, st)
	go func() {
		if err := server.Start(ctx, cfg.HTTPAddr, server.NewMux(cfg, st, merger)); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
			stop()
		}
	}()

	// Block until shutdown signal
	<-ctx.Done()
	slog.Info("shutting down")
}

// setupLogging configures the default logger (level + format). Defaults: level=info, format=text.
func setupLogging(level, format string) {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		// unknown level -> keep info but note once using temporary logger
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", level))
	}
	json := strings.EqualFold(format, "json")
	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()), slog.String("format", map[bool]string{true: "json", false: "text"}[json]))
}
