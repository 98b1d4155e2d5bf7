// RunLens answers questions about your running history.
//
// It connects an LLM to analytics tools over your Strava activities:
// the model calls tools (rankings, habits, training load, lap splits)
// until it can answer, and the server returns the grounded answer.
// Configuration is loaded from a single YAML file discovered
// automatically (see [config.DefaultSearchPaths]).
//
// Usage:
//
//	runlens serve            Start the insight API server
//	runlens init [dir]       Write an example config file
//	runlens ask <question>   Ask a single question from the terminal
//	runlens version          Print version and build information
//	runlens -o json version  Output version information as JSON
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/runlens/runlens/internal/activities"
	"github.com/runlens/runlens/internal/agent"
	"github.com/runlens/runlens/internal/buildinfo"
	"github.com/runlens/runlens/internal/cache"
	"github.com/runlens/runlens/internal/config"
	"github.com/runlens/runlens/internal/insight"
	"github.com/runlens/runlens/internal/llm"
	"github.com/runlens/runlens/internal/mcp"
	"github.com/runlens/runlens/internal/strava"
	"github.com/runlens/runlens/internal/tools"
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

// run is the real entry point for the runlens command. All OS-level
// dependencies are injected as parameters so tests can drive the full
// lifecycle. Arguments are parsed by hand; the flag package relies on
// package-level globals that interfere with parallel tests, and the
// argument surface here is small.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	var configPath string
	var outputFmt string // "text" (default) or "json"
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++
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
			return fmt.Errorf("usage: runlens ask <question>")
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
	fmt.Fprintln(w, "RunLens - Running Insights Agent")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: runlens [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve        Start the insight API server")
	fmt.Fprintln(w, "  init         Write an example config file")
	fmt.Fprintln(w, "  ask          Ask a single question from the terminal")
	fmt.Fprintln(w, "  version      Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Path to config file (default: auto-discover)")
	fmt.Fprintln(w, "  -o, --output fmt  Output format: text (default) or json")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config search order:")
	fmt.Fprintln(w, "  ./runlens.yaml, ~/.config/runlens/runlens.yaml, /etc/runlens/runlens.yaml")
	return nil
}

// newLogger builds the process logger writing structured text to w.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}))
}

// loadConfig resolves and loads the config file.
func loadConfig(explicit string) (*config.Config, string, error) {
	path, err := config.FindConfig(explicit)
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", fmt.Errorf("loading %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, path, nil
}

// createLLMClient builds the provider the conversation loop runs on.
// The provider name was already validated.
func createLLMClient(cfg *config.Config, logger *slog.Logger) llm.Client {
	switch cfg.Model.Provider {
	case "ollama":
		return llm.NewOllamaClient(cfg.Ollama.URL, logger)
	default:
		return llm.NewAnthropicClient(cfg.Anthropic.APIKey, logger)
	}
}

// buildToolStack wires the Strava source, the range cache, and the
// analytics tool registry, returning the registry and the cache.
func buildToolStack(cfg *config.Config, logger *slog.Logger) (*tools.Registry, *cache.Cache, error) {
	source := strava.NewClient(strava.Config{
		ClientID:     cfg.Strava.ClientID,
		ClientSecret: cfg.Strava.ClientSecret,
		RefreshToken: cfg.Strava.RefreshToken,
		BaseURL:      cfg.Strava.BaseURL,
	}, logger)

	store := cache.New(cfg.Cache.TTL, cfg.Cache.MaxEntries, logger)
	fetcher := activities.NewFetcher(source, store, logger)

	registry := tools.NewRegistry(logger)
	if err := tools.RegisterAll(registry, fetcher, logger); err != nil {
		return nil, nil, fmt.Errorf("registering tools: %w", err)
	}
	return registry, store, nil
}

// newAgent assembles the conversation loop against a side channel URL.
func newAgent(cfg *config.Config, channelURL string, logger *slog.Logger) *agent.Agent {
	transport := mcp.NewHTTPTransport(mcp.HTTPConfig{URL: channelURL, Logger: logger})
	channel := mcp.NewClient("analytics", transport, logger)
	return agent.New(agent.Config{
		LLM:           createLLMClient(cfg, logger),
		Provider:      cfg.Model.Provider,
		Model:         cfg.Model.Name,
		Channel:       channel,
		MaxIterations: cfg.Agent.MaxIterations,
		Logger:        logger,
	})
}

// runServe starts the insight API server and blocks until the process
// receives SIGINT/SIGTERM or the server fails.
func runServe(ctx context.Context, stdout io.Writer, configPath string) error {
	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := newLogger(stdout, level)
	logger.Info("config loaded", "path", cfgPath)
	logger.Info("starting", "version", buildinfo.Version)

	registry, store, err := buildToolStack(cfg, logger)
	if err != nil {
		return err
	}
	mcpServer := mcp.NewServer(registry, logger)

	listen := fmt.Sprintf("%s:%d", cfg.Listen.Address, cfg.Listen.Port)

	channelURL := cfg.Agent.SideChannelURL
	if channelURL == "" {
		host := cfg.Listen.Address
		if host == "" {
			host = "127.0.0.1"
		}
		channelURL = fmt.Sprintf("http://%s:%d/mcp", host, cfg.Listen.Port)
	}
	ag := newAgent(cfg, channelURL, logger)
	defer ag.Disconnect()

	srv := insight.NewServer(listen, ag, mcpServer, store, logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// runAsk answers one question from the terminal. It serves the tool
// side channel on an ephemeral loopback listener so the ask path runs
// the same MCP plumbing as the server.
func runAsk(ctx context.Context, stdout io.Writer, configPath string, args []string) error {
	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	logger := newLogger(stdout, slog.LevelWarn)
	logger.Debug("config loaded", "path", cfgPath)

	registry, _, err := buildToolStack(cfg, logger)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("starting side channel listener: %w", err)
	}
	sideChannel := &http.Server{Handler: mcp.NewServer(registry, logger)}
	go sideChannel.Serve(ln)
	defer sideChannel.Close()

	ag := newAgent(cfg, fmt.Sprintf("http://%s", ln.Addr()), logger)
	defer ag.Disconnect()

	question := strings.Join(args, " ")
	result, err := ag.GetInsight(ctx, question)
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, result.Answer)
	if result.Exhausted {
		fmt.Fprintln(stdout, "(answer was cut short by the iteration budget)")
	}
	return nil
}
