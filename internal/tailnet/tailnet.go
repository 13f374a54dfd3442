// Package tailnet provides an optional embedded-Tailscale listener via tsnet,
// used as an alternative to the direct 0.0.0.0 bind when a hub would rather
// join a private mesh than expose a public port (spec.md §4.L).
package tailnet

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"

	"tailscale.com/tsnet"
)

// Client wraps a tsnet.Server joining a single tailnet.
type Client struct {
	server *tsnet.Server
	logger *slog.Logger
}

// Config configures a tailnet join.
type Config struct {
	// Hostname advertised on the tailnet.
	Hostname string
	// ControlURL is the coordination server URL; empty uses Tailscale's
	// public control plane, a Headscale URL joins a self-hosted tailnet.
	ControlURL string
	// AuthKey is a pre-auth key, letting the node join unattended.
	AuthKey string
	// StateDir persists node identity across restarts. Defaults to
	// {os.UserConfigDir()}/tuicommander/tsnet/{Hostname}.
	StateDir  string
	Ephemeral bool
}

// New prepares a tsnet.Server; it does not connect until Listen or Start is
// called.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.Hostname == "" {
		return nil, fmt.Errorf("tailnet: hostname is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	stateDir := cfg.StateDir
	if stateDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("tailnet: resolving state dir: %w", err)
		}
		stateDir = filepath.Join(base, "tuicommander", "tsnet", cfg.Hostname)
	}
	if err := os.MkdirAll(stateDir, 0o700); err != nil {
		return nil, fmt.Errorf("tailnet: create state dir: %w", err)
	}

	server := &tsnet.Server{
		Hostname:   cfg.Hostname,
		Dir:        stateDir,
		ControlURL: cfg.ControlURL,
		AuthKey:    cfg.AuthKey,
		Ephemeral:  cfg.Ephemeral,
		Logf:       func(format string, args ...any) { logger.Debug(fmt.Sprintf(format, args...)) },
	}

	return &Client{server: server, logger: logger}, nil
}

// Listen brings the tsnet server up (if not already) and returns a listener
// on the tailnet for network/addr (e.g. "tcp", ":8443").
func (c *Client) Listen(ctx context.Context, network, addr string) (net.Listener, error) {
	status, err := c.server.Up(ctx)
	if err != nil {
		return nil, fmt.Errorf("tailnet: connect: %w", err)
	}
	c.logger.Info("joined tailnet", "hostname", c.server.Hostname, "ips", status.TailscaleIPs, "backend_state", status.BackendState)

	ln, err := c.server.Listen(network, addr)
	if err != nil {
		return nil, fmt.Errorf("tailnet: listen: %w", err)
	}
	return ln, nil
}

// Close disconnects from the tailnet and releases local state.
func (c *Client) Close() error {
	return c.server.Close()
}
