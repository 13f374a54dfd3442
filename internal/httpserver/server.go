package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/sstraus/tuicommander/internal/config"
	"github.com/sstraus/tuicommander/internal/hubcore"
	"github.com/sstraus/tuicommander/internal/mcpserver"
	"github.com/sstraus/tuicommander/internal/tailnet"
)

// MCPPortFile is the filename the out-of-process MCP bridge binary reads to
// discover the hub's chosen port (spec.md §4.L).
const MCPPortFile = "mcp-port"

// Server is the HTTP+WebSocket+MCP transport. Its bind policy, CORS, and
// auth wrapping all depend on the AppConfig in effect at Start time.
type Server struct {
	deps   *hubcore.Deps
	store  *config.Store
	logger *slog.Logger
	mcp    *mcpserver.Handler

	httpSrv *http.Server
	ln      net.Listener
	tailnet *tailnet.Client

	// Remote reports whether the bound listener ended up accepting remote
	// connections (false if remote access was requested but the bind fell
	// back to loopback).
	Remote bool
	Addr   string

	// StaticDir, when set, roots the SPA catch-all route (GET /, GET
	// /{path...}) at a built front-end bundle directory.
	StaticDir string
}

// New builds a Server; call Start to bind and serve.
func New(deps *hubcore.Deps, store *config.Store, logger *slog.Logger) *Server {
	return &Server{deps: deps, store: store, logger: logger, mcp: mcpserver.New(deps, logger)}
}

// listen implements the bind policy: loopback-unauthenticated when remote
// access is off; when on, either 0.0.0.0:<port> with Basic Auth
// (RemoteModeDirect) or a tailnet-only listener with no public port at all
// (RemoteModeTailnet); falling back to loopback (with remote disabled) if
// the configured bind fails.
func (s *Server) listen(ctx context.Context, cfg config.AppConfig) (net.Listener, bool, error) {
	if !cfg.RemoteAccessEnabled {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		return ln, false, err
	}

	if cfg.RemoteAccessMode == config.RemoteModeTailnet {
		ln, err := s.listenTailnet(ctx, cfg)
		if err != nil {
			s.logger.Warn("tailnet bind failed, falling back to loopback", "error", err)
			ln, err := net.Listen("tcp", "127.0.0.1:0")
			return ln, false, err
		}
		return ln, true, nil
	}

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.RemoteAccessPort)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		s.logger.Warn("remote bind failed, falling back to loopback", "addr", addr, "error", err)
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		return ln, false, err
	}
	return ln, true, nil
}

// listenTailnet joins the configured tailnet and listens there instead of on
// a public interface. The client is kept on s.tailnet so Start can close it
// on shutdown.
func (s *Server) listenTailnet(ctx context.Context, cfg config.AppConfig) (net.Listener, error) {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "tuicommander"
	}
	client, err := tailnet.New(tailnet.Config{
		Hostname:   hostname,
		ControlURL: cfg.TailnetHeadscaleURL,
		AuthKey:    cfg.TailnetAuthKey,
	}, s.logger)
	if err != nil {
		return nil, err
	}

	addr := fmt.Sprintf(":%d", cfg.RemoteAccessPort)
	ln, err := client.Listen(ctx, "tcp", addr)
	if err != nil {
		client.Close()
		return nil, err
	}
	s.tailnet = client
	return ln, nil
}

// Start binds the listener per policy, writes the mcp-port file, and serves
// until ctx is canceled, at which point it shuts down gracefully and
// removes the port file.
func (s *Server) Start(ctx context.Context) error {
	cfg, err := s.store.App()
	if err != nil {
		return fmt.Errorf("load app config: %w", err)
	}

	ln, remote, err := s.listen(ctx, cfg)
	if err != nil {
		return fmt.Errorf("bind listener: %w", err)
	}
	s.ln = ln
	s.Remote = remote
	s.Addr = ln.Addr().String()

	if !remote && cfg.RemoteAccessEnabled {
		cfg.RemoteAccessEnabled = false
		if saveErr := s.store.SaveApp(cfg); saveErr != nil {
			s.logger.Warn("failed to persist remote-access fallback", "error", saveErr)
		}
	}

	portFile := filepath.Join(s.store.Dir(), MCPPortFile)
	_, port, _ := net.SplitHostPort(s.Addr)
	if err := os.WriteFile(portFile, []byte(port), 0o600); err != nil {
		s.logger.Warn("failed to write mcp-port file", "error", err)
	}
	defer os.Remove(portFile)

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	var handler http.Handler = mux
	if remote {
		handler = authMiddleware(s.store, s.logger, handler)
	}
	handler = corsMiddleware(remote, handler)

	s.httpSrv = &http.Server{Handler: handler}

	serveErr := make(chan error, 1)
	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	s.logger.Info("http server listening", "addr", s.Addr, "remote", remote)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := s.httpSrv.Shutdown(shutdownCtx)
		if s.tailnet != nil {
			if closeErr := s.tailnet.Close(); closeErr != nil {
				s.logger.Warn("tailnet close failed", "error", closeErr)
			}
		}
		return err
	case err := <-serveErr:
		return err
	}
}
