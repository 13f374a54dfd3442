// tuicommander is the native backend of a terminal-multiplexer for AI
// coding agents: it owns PTY sessions, git/worktree state, and the embedded
// HTTP/WebSocket/MCP server that a local or remote front end talks to.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sstraus/tuicommander/internal/config"
	"github.com/sstraus/tuicommander/internal/gitfacade"
	"github.com/sstraus/tuicommander/internal/httpserver"
	"github.com/sstraus/tuicommander/internal/hubcore"
	"github.com/sstraus/tuicommander/internal/plugins"
	"github.com/sstraus/tuicommander/internal/ptyhub"
	"github.com/sstraus/tuicommander/internal/qr"
	"github.com/sstraus/tuicommander/internal/usage"
	"github.com/sstraus/tuicommander/internal/worktree"
)

// Version is set at build time via ldflags.
var Version = "dev"

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	switch os.Getenv("TUICOMMANDER_LOG_LEVEL") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func buildDeps(logger *slog.Logger) (*hubcore.Deps, *config.Store, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return nil, nil, fmt.Errorf("resolve config dir: %w", err)
	}
	store := config.NewStore(dir, logger)

	sessions := ptyhub.NewStore()
	orch := ptyhub.NewOrchestrator(sessions, logger)
	engine := worktree.NewEngine(filepath.Join(dir, "worktrees"), logger)
	client := gitfacade.NewClient(gitfacade.ResolveGitHubToken())
	sandbox := plugins.New(filepath.Join(dir, "plugins"))
	usageCache := usage.NewCache(dir, logger)

	deps := hubcore.NewDeps(orch, sessions, store, engine, client, sandbox, usageCache, logger, Version)
	return deps, store, nil
}

func main() {
	logger := newLogger()
	slog.SetDefault(logger)

	rootCmd := &cobra.Command{
		Use:     "tuicommander",
		Short:   "Native backend for a terminal-multiplexer for AI coding agents",
		Version: Version,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP/WebSocket/MCP server",
		RunE:  runServe,
	}
	rootCmd.AddCommand(serveCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether a hub is currently running and its remote-access URL",
		RunE:  runStatus,
	}
	statusCmd.Flags().Bool("qr", false, "print the remote-access URL as a QR code")
	rootCmd.AddCommand(statusCmd)

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Read or change the hub's application configuration",
	}
	configGetCmd := &cobra.Command{
		Use:   "get",
		Short: "Print the current configuration as JSON",
		RunE:  runConfigGet,
	}
	configSetCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a single configuration field",
		Args:  cobra.ExactArgs(2),
		RunE:  runConfigSet,
	}
	configCmd.AddCommand(configGetCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := slog.Default()
	deps, store, err := buildDeps(logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watchStop := make(chan struct{})
	defer close(watchStop)
	if err := deps.StartPluginWatcher(filepath.Join(store.Dir(), "plugins"), watchStop); err != nil {
		logger.Warn("plugin watcher not started", "error", err)
	}

	srv := httpserver.New(deps, store, logger)
	return srv.Start(ctx)
}

func runStatus(cmd *cobra.Command, args []string) error {
	logger := slog.Default()
	_, store, err := buildDeps(logger)
	if err != nil {
		return err
	}

	portFile := filepath.Join(store.Dir(), httpserver.MCPPortFile)
	data, err := os.ReadFile(portFile)
	if err != nil {
		fmt.Println("not running")
		return nil
	}
	port := string(data)

	cfg, err := store.App()
	if err != nil {
		return err
	}

	host := "127.0.0.1"
	if cfg.RemoteAccessEnabled {
		host = "0.0.0.0"
	}
	url := fmt.Sprintf("http://%s:%s", host, port)

	// Piped output (scripts, `tuicommander status | ...`) gets the bare URL
	// only; an interactive terminal gets a human-readable summary and, if
	// requested, a QR code sized to fit the actual window.
	interactive := term.IsTerminal(int(os.Stdout.Fd()))
	if !interactive {
		fmt.Println(url)
		return nil
	}

	fmt.Printf("hub: %s\n", url)
	if cfg.RemoteAccessEnabled {
		fmt.Println("remote access: enabled")
	} else {
		fmt.Println("remote access: disabled (loopback only)")
	}

	showQR, _ := cmd.Flags().GetBool("qr")
	if showQR {
		width, height := uint16(80), uint16(40)
		if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 && h > 0 {
			width, height = uint16(w), uint16(h*2)
		}
		for _, line := range qr.GenerateLines(url, width, height) {
			fmt.Println(line)
		}
	}
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	logger := slog.Default()
	deps, _, err := buildDeps(logger)
	if err != nil {
		return err
	}
	cfg, err := deps.ConfigGet()
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	logger := slog.Default()
	deps, _, err := buildDeps(logger)
	if err != nil {
		return err
	}
	// Accept JSON literals (numbers, booleans, ...) so non-string fields can
	// be set; anything that does not parse as JSON is taken as a string.
	var value any = args[1]
	var parsed any
	if err := json.Unmarshal([]byte(args[1]), &parsed); err == nil {
		value = parsed
	}
	_, err = deps.ConfigSave(map[string]any{args[0]: value})
	return err
}
