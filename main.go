// Command klotski starts the Klotski puzzle server.
//
// It supports two commands:
//  1. "serve" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags control the listen address, solver address, layout directory, log
// level, and optional ngrok tunneling for easy external access during
// development. Every flag can also be set from the environment or a .env file.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/klotski/api"
	"github.com/wricardo/klotski/game/config"
	"github.com/wricardo/klotski/game/service"
	"github.com/wricardo/klotski/game/session"
	"github.com/wricardo/klotski/transport/mcp"
	"github.com/wricardo/klotski/transport/solver"
	"github.com/wricardo/klotski/transport/websocket"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Klotski Puzzle Server"
)

// Defaults shared by the flags and the stdio fallback
const (
	defaultAddr      = "localhost:3000"
	defaultSolverURL = "http://localhost:8080"
)

// main loads .env, then runs the command line application until a signal
// arrives.
func main() {
	// Load .env file if it exists (ignore error if not found)
	envErr := godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := newApp(os.Stderr)
	app.Before = func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
		if envErr == nil {
			slog.Info("Loaded environment variables from .env file")
		} else if !errors.Is(envErr, os.ErrNotExist) {
			slog.Warn("Error loading .env file", "error", envErr)
		}
		return ctx, nil
	}

	if err := app.Run(ctx, os.Args); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

// newApp builds the command tree. Logs go to logOut; stdout stays free for
// the MCP stdio transport.
func newApp(logOut io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "klotski",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Value:   defaultAddr,
				Usage:   "HTTP listen address",
				Sources: cli.EnvVars("KLOTSKI_ADDR"),
			},
			&cli.StringFlag{
				Name:    "solver-url",
				Value:   defaultSolverURL,
				Usage:   "Base URL of the remote solver",
				Sources: cli.EnvVars("KLOTSKI_SOLVER_URL"),
			},
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "configs",
				Usage:   "Directory containing layout files",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level: debug, info, warn, error",
				Sources: cli.EnvVars("KLOTSKI_LOG_LEVEL"),
			},
			&cli.DurationFlag{
				Name:  "session-ttl",
				Value: 24 * time.Hour,
				Usage: "Remove sessions idle for longer than this",
			},
			&cli.BoolFlag{
				Name:    "ngrok",
				Usage:   "Enable ngrok tunnel",
				Sources: cli.EnvVars("NGROK_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "ngrok-auth",
				Usage:   "Ngrok auth token",
				Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "ngrok-domain",
				Usage:   "Custom ngrok domain (optional)",
				Sources: cli.EnvVars("NGROK_DOMAIN"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:    "serve",
				Aliases: []string{"server", "http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runHTTPServer(ctx, cmd, logOut)
				},
			},
			{
				Name:    "mcp",
				Aliases: []string{"stdio-mcp", "mcp-stdio"},
				Usage:   "Run MCP stdio server with internal HTTP server",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runStdioMCP(ctx, cmd, logOut)
				},
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runHTTPServer(ctx, cmd, logOut)
		},
	}
}

// setupLogger builds a text logger at the named level and makes it the
// default
func setupLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return logger, nil
}

// services holds everything one server process shares between transports
type services struct {
	game     service.GameService
	sessions *session.Manager
	hub      *websocket.Hub
	logger   *slog.Logger
}

// initializeServices wires the solver client, session and layout managers,
// the websocket hub and the game service. The hub is not started.
func initializeServices(configDir, solverURL string, logger *slog.Logger) (*services, error) {
	layoutManager, err := config.NewManager(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create layout manager: %w", err)
	}

	solverClient := solver.NewClient(solverURL, solver.WithLogger(logger.With("component", "solver")))
	sessionManager := session.NewManager(solverClient, session.WithLogger(logger.With("component", "playback")))
	hub := websocket.NewHub(logger.With("component", "websocket"))

	gameService := service.NewGameService(sessionManager, layoutManager,
		service.WithEventPublisher(hub),
		service.WithLogger(logger))

	return &services{
		game:     gameService,
		sessions: sessionManager,
		hub:      hub,
		logger:   logger,
	}, nil
}

// newHandler mounts the REST API, the WebSocket endpoint and the /mcp proxy
// behind the request logger
func newHandler(svc *services, baseURL string) http.Handler {
	apiServer := api.NewServer(svc.game, svc.hub, svc.logger)

	mcpClient := mcp.NewClient(baseURL, svc.logger.With("component", "mcp"))
	apiServer.Handle("/mcp", mcpClient.HTTPHandler())

	return api.RequestLogger(svc.logger, apiServer)
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled it also provisions a public tunnel.
func runHTTPServer(ctx context.Context, cmd *cli.Command, logOut io.Writer) error {
	logger, err := setupLogger(logOut, cmd.String("log-level"))
	if err != nil {
		return err
	}

	addr := cmd.String("addr")
	logger.Info("starting", "app", AppName, "version", Version, "mode", "serve")

	svc, err := initializeServices(cmd.String("config-dir"), cmd.String("solver-url"), logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go svc.hub.Run(ctx)
	go sessionCleanupRoutine(ctx, svc.sessions, time.Hour, cmd.Duration("session-ttl"), logger)

	handler := newHandler(svc, "http://"+addr)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	serverErr := make(chan error, 1)

	// Start regular HTTP server
	wg.Add(1)
	go func() {
		defer wg.Done()

		logger.Info("HTTP server listening",
			"addr", addr,
			"api", "http://"+addr+"/api",
			"websocket", "ws://"+addr+"/ws?session=<session_id>",
			"mcp", "http://"+addr+"/mcp",
			"solver", cmd.String("solver-url"))

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	// Start ngrok tunnel if enabled
	if cmd.Bool("ngrok") {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, cmd.String("ngrok-auth"), cmd.String("ngrok-domain"), handler, logger)
		}()
	}

	// Wait for shutdown signal or a failed listener
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err = <-serverErr:
	}
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Warn("HTTP server shutdown error", "error", shutdownErr)
	}

	// Wait for all goroutines to finish
	wg.Wait()
	logger.Info("server stopped")
	return err
}

// runNgrok serves handler through an ngrok tunnel until ctx is done
func runNgrok(ctx context.Context, authToken, domain string, handler http.Handler, logger *slog.Logger) {
	if authToken == "" {
		logger.Warn("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN)")
		return
	}

	logger.Info("starting ngrok tunnel")

	// Configure ngrok endpoint
	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		logger.Info("using custom ngrok domain", "domain", domain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		logger.Error("failed to start ngrok tunnel", "error", err)
		return
	}

	// Serve closes the tunnel when it returns; unblock it on shutdown
	go func() {
		<-ctx.Done()
		tun.Close()
	}()

	ngrokURL := tun.URL()
	logger.Info("ngrok tunnel established",
		"url", ngrokURL,
		"api", ngrokURL+"/api",
		"websocket", ngrokURL+"/ws?session=<session_id>",
		"mcp", ngrokURL+"/mcp")

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed && ctx.Err() == nil {
		logger.Error("ngrok server error", "error", err)
	}
	logger.Info("ngrok tunnel closed")
}

// sessionCleanupRoutine periodically removes sessions that have not been
// accessed within maxAge, until ctx is done
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, interval, maxAge time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(maxAge); removed > 0 {
				logger.Info("cleaned up expired sessions", "removed", removed)
			}
		}
	}
}

// runStdioMCP runs an MCP stdio server. It reuses a running API at the
// configured address when one answers; otherwise it starts an internal API
// bound to a random loopback port and targets that.
func runStdioMCP(ctx context.Context, cmd *cli.Command, logOut io.Writer) error {
	logger, err := setupLogger(logOut, cmd.String("log-level"))
	if err != nil {
		return err
	}

	externalURL := "http://" + cmd.String("addr")
	baseURL, err := probeAPI(ctx, externalURL)
	if err == nil {
		logger.Info("external API server found, using it for MCP", "url", baseURL)
	} else {
		logger.Info("no external API server found, starting internal HTTP server", "probe_error", err)

		svc, err := initializeServices(cmd.String("config-dir"), cmd.String("solver-url"), logger)
		if err != nil {
			return err
		}

		// Start internal HTTP server on a random available port
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}
		baseURL = "http://" + listener.Addr().String()

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		go svc.hub.Run(ctx)
		go sessionCleanupRoutine(ctx, svc.sessions, time.Hour, cmd.Duration("session-ttl"), logger)

		httpServer := &http.Server{Handler: newHandler(svc, baseURL)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
				logger.Error("internal HTTP server error", "error", err)
			}
		}()
		defer httpServer.Close()

		logger.Info("internal HTTP server started", "url", baseURL)
	}

	mcpClient := mcp.NewClient(baseURL, logger.With("component", "mcp"))
	logger.Info("MCP stdio server ready", "api", baseURL)

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

// probeAPI checks that a Klotski API answers at baseURL
func probeAPI(ctx context.Context, baseURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/healthz", nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("health check returned %d", resp.StatusCode)
	}
	return baseURL, nil
}
