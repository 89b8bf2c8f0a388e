// Aiko is a persona role-play conversation engine.
//
// It runs one conversation turn per request: gap detection, modality
// routing (text vs vision), model-requested tool calls, and automatic
// history compaction. The chat-platform bot layer is a separate process
// that talks to Aiko over HTTP. Configuration is loaded from a single
// YAML file discovered automatically (see [config.DefaultSearchPaths]).
//
// Usage:
//
//	aiko serve              Start the API server
//	aiko init [dir]         Initialize a working directory with defaults
//	aiko ask <message>      Run a single turn (for testing)
//	aiko version            Print version and build information
//	aiko -o json version    Output version information as JSON
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ayokoji/aiko/internal/api"
	"github.com/ayokoji/aiko/internal/buildinfo"
	"github.com/ayokoji/aiko/internal/config"
	"github.com/ayokoji/aiko/internal/conversation"
	"github.com/ayokoji/aiko/internal/engine"
	"github.com/ayokoji/aiko/internal/events"
	"github.com/ayokoji/aiko/internal/llm"
	"github.com/ayokoji/aiko/internal/lyrics"
	"github.com/ayokoji/aiko/internal/mqtt"
	"github.com/ayokoji/aiko/internal/persona"
	"github.com/ayokoji/aiko/internal/summary"
	"github.com/ayokoji/aiko/internal/tools"

	_ "modernc.org/sqlite" // SQLite driver for database/sql
)

// main is intentionally minimal. It constructs the OS-level environment
// (context, stdio, argv) and delegates immediately to [run]. This keeps
// os.Exit, os.Stdout, and os.Args out of the application logic so that
// the full startup-to-shutdown lifecycle can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point for the aiko command. Arguments are
// parsed by hand: the flag package relies on package-level globals,
// which makes it impossible to call run() concurrently from tests, and
// the argument surface is small enough that manual parsing is clearer
// than bringing in a CLI framework.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	var configPath string
	var outputFmt string // "text" (default) or "json"
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++ // skip the value
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case (args[i] == "-o" || args[i] == "--output") && i+1 < len(args):
			outputFmt = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-o="):
			outputFmt = strings.TrimPrefix(args[i], "-o=")
		case strings.HasPrefix(args[i], "--output="):
			outputFmt = strings.TrimPrefix(args[i], "--output=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			if command != "" {
				cmdArgs = append(cmdArgs, args[i])
			} else {
				return fmt.Errorf("unknown flag: %s", args[i])
			}
		}
	}

	if outputFmt == "" {
		outputFmt = "text"
	}
	if outputFmt != "text" && outputFmt != "json" {
		return fmt.Errorf("unknown output format: %q (expected text or json)", outputFmt)
	}

	// Credentials (MQTT password, etc.) may live in a .env next to the
	// config. Missing file is fine.
	_ = godotenv.Load()

	switch command {
	case "serve":
		return runServe(ctx, stdout, configPath)
	case "init":
		dir := "."
		if len(cmdArgs) > 0 {
			dir = cmdArgs[0]
		}
		return runInit(stdout, dir)
	case "ask":
		if len(cmdArgs) == 0 {
			return fmt.Errorf("usage: aiko ask <message>")
		}
		return runAsk(ctx, stdout, configPath, cmdArgs)
	case "version":
		return runVersion(stdout, outputFmt)
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// runVersion prints build metadata in the requested output format.
func runVersion(w io.Writer, outputFmt string) error {
	info := buildinfo.Info()
	if outputFmt == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintln(w, buildinfo.String())
	for _, k := range []string{"version", "git_commit", "build_time", "go_version", "os", "arch"} {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}

// printUsage writes the top-level help text to w.
func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "Aiko - Persona Role-Play Conversation Engine")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: aiko [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve        Start the API server")
	fmt.Fprintln(w, "  init [dir]   Initialize working directory with defaults (default: .)")
	fmt.Fprintln(w, "  ask          Run a single turn (for testing)")
	fmt.Fprintln(w, "  version      Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Path to config file (default: auto-discover)")
	fmt.Fprintln(w, "  -o, --output fmt  Output format: text (default) or json")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config search order:")
	fmt.Fprintln(w, "  ./aiko.yaml, ~/.config/aiko/config.yaml, /etc/aiko/config.yaml")
	return nil
}

// buildEngine wires the full turn pipeline from config. Shared between
// serve and ask so the one-shot path exercises the same machinery. The
// returned client is the one both model bindings talk through, for
// reachability checks.
func buildEngine(cfg *config.Config, bus *events.Bus, logger *slog.Logger) (*engine.Engine, *persona.Provider, *llm.OllamaClient, func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var store conversation.Store
	if cfg.Session.Persist {
		sqlStore, err := conversation.NewSQLiteStore(cfg.SessionDBPath())
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("open session database: %w", err)
		}
		closers = append(closers, func() { sqlStore.Close() })
		store = sqlStore
		logger.Info("session database opened", "path", cfg.SessionDBPath())
	} else {
		store = conversation.NewMemoryStore()
		logger.Debug("session store is in-memory; state will not survive restart")
	}

	lyricsStore, err := lyrics.NewStore(cfg.LyricsDBPath())
	if err != nil {
		closeAll()
		return nil, nil, nil, nil, fmt.Errorf("open lyrics database: %w", err)
	}
	closers = append(closers, func() { lyricsStore.Close() })

	client := llm.NewOllamaClient(cfg.Models.OllamaURL)
	router := llm.NewRouter(
		llm.NewBinding(client, cfg.Models.Text),
		llm.NewBinding(client, cfg.Models.Vision),
	)

	registry := tools.NewRegistry()
	tools.RegisterLyrics(registry, lyricsStore)
	tools.RegisterDice(registry)
	tools.RegisterRelationship(registry)
	dispatcher := tools.NewDispatcher(registry, logger)

	provider := persona.Default()
	if cfg.PersonaFile != "" {
		provider, err = persona.LoadFile(cfg.PersonaFile)
		if err != nil {
			closeAll()
			return nil, nil, nil, nil, err
		}
	}
	logger.Info("persona loaded", "name", provider.Name())

	summarizer := summary.New(cfg.Engine.SummaryWordCap, logger)
	eng := engine.New(store, router, dispatcher, summarizer, provider, bus, cfg.Engine, logger)
	return eng, provider, client, closeAll, nil
}

// runServe is the primary operating mode: loads config, opens
// databases, wires the engine, starts the API server and the optional
// MQTT bridge, and blocks until a shutdown signal arrives.
func runServe(ctx context.Context, stdout io.Writer, configPath string) error {
	logger := newLogger(stdout, slog.LevelInfo, "text")
	logger.Info("starting Aiko",
		"version", buildinfo.Version,
		"commit", buildinfo.GitCommit,
		"built", buildinfo.BuildTime)

	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	// Reconfigure the logger now that the desired level is known.
	{
		level := slog.LevelInfo
		if cfg.LogLevel != "" {
			level, _ = config.ParseLogLevel(cfg.LogLevel)
		}
		logger = newLogger(stdout, level, cfg.LogFormat)
	}

	logger.Info("config loaded",
		"path", cfgPath,
		"port", cfg.Listen.Port,
		"text_model", cfg.Models.Text,
		"vision_model", cfg.Models.Vision,
		"ollama_url", cfg.Models.OllamaURL,
	)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory %s: %w", cfg.DataDir, err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bus := events.New()

	eng, provider, client, closeStores, err := buildEngine(cfg, bus, logger)
	if err != nil {
		return err
	}
	defer closeStores()

	// A failed ping is not fatal: the model host may come up later and
	// turns will start succeeding once it does.
	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	if err := client.Ping(pingCtx); err != nil {
		logger.Warn("model host unreachable at startup", "url", cfg.Models.OllamaURL, "error", err)
	}
	pingCancel()

	if cfg.MQTT.Enabled {
		publisher := mqtt.New(cfg.MQTT, bus, logger)
		go func() {
			if err := publisher.Start(ctx); err != nil {
				logger.Error("mqtt publisher stopped", "error", err)
			}
		}()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := publisher.Stop(stopCtx); err != nil {
				logger.Warn("mqtt shutdown", "error", err)
			}
		}()
	}

	server := api.NewServer(cfg.Listen.Address, cfg.Listen.Port, eng, provider, bus, logger)
	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("api server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", "error", err)
	}
	return nil
}

// runAsk runs a single turn against a fresh in-memory thread and prints
// the persona's reply. Useful for smoke tests without starting the
// server.
func runAsk(ctx context.Context, stdout io.Writer, configPath string, args []string) error {
	logger := newLogger(stdout, slog.LevelWarn, "text")

	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	cfg.Session.Persist = false // nothing to keep for a one-shot

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory %s: %w", cfg.DataDir, err)
	}

	eng, _, _, closeStores, err := buildEngine(cfg, nil, logger)
	if err != nil {
		return err
	}
	defer closeStores()

	resp, err := eng.Run(ctx, engine.TurnRequest{
		ThreadID: "cli",
		Text:     strings.Join(args, " "),
		User:     conversation.UserContext{Username: os.Getenv("USER")},
	})
	if err != nil {
		return fmt.Errorf("ask: %w", err)
	}

	fmt.Fprintln(stdout, resp.Reply)
	return nil
}

// newLogger creates a structured logger that writes to w at the given
// level and format. Format must be "text" or "json"; any other value
// defaults to text.
func newLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// loadConfig locates and parses the YAML configuration file. If
// explicit is non-empty, that exact path is used (and must exist).
func loadConfig(explicit string) (*config.Config, string, error) {
	cfgPath, err := config.FindConfig(explicit)
	if err != nil {
		return nil, "", err
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, cfgPath, fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	return cfg, cfgPath, nil
}
