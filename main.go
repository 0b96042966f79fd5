// Command laddergame starts the ladder game server.
//
// It supports two modes:
//  1. "server" (default) runs the HTTP server exposing the REST API, WebSocket and an /mcp HTTP endpoint
//  2. "stdio-mcp" runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Storage is selected through LADDERGAME_* environment variables (see the
// storage package). Flags control host/port, ruleset directory, logging and
// optional ngrok tunneling for external access during development.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/mcp-training/laddergame/api"
	"github.com/wricardo/mcp-training/laddergame/game/clock"
	"github.com/wricardo/mcp-training/laddergame/game/config"
	"github.com/wricardo/mcp-training/laddergame/game/service"
	"github.com/wricardo/mcp-training/laddergame/game/session"
	"github.com/wricardo/mcp-training/laddergame/storage"
	"github.com/wricardo/mcp-training/laddergame/transport/mcp"
	"github.com/wricardo/mcp-training/laddergame/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Ladder Game Server"
)

const cleanupInterval = 10 * time.Minute

// options collects everything the command line controls
type options struct {
	host        string
	port        int
	configDir   string
	resultsDir  string
	idleTimeout time.Duration
	retention   time.Duration
	ngrok       bool
	ngrokAuth   string
	ngrokDomain string
}

// app bundles the wired services for one process
type app struct {
	log     *logrus.Logger
	service service.GameService
	backend *storage.Backend
	hub     *websocket.Hub
}

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: error loading .env file: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "laddergame",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host", Sources: cli.EnvVars("HOST")},
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port", Sources: cli.EnvVars("PORT")},
			&cli.StringFlag{Name: "config-dir", Value: "configs", Usage: "Directory containing rulesets", Sources: cli.EnvVars("CONFIG_DIR")},
			&cli.StringFlag{Name: "results-dir", Usage: "Also archive finished games as JSON files in this directory", Sources: cli.EnvVars("RESULTS_DIR")},
			&cli.DurationFlag{Name: "idle-timeout", Value: 24 * time.Hour, Usage: "Abandon games idle for longer than this"},
			&cli.DurationFlag{Name: "finished-retention", Value: time.Hour, Usage: "Keep finished games queryable for this long"},
			&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging"},
			&cli.BoolFlag{Name: "log-json", Usage: "Log as JSON"},
			&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (optional)", Sources: cli.EnvVars("NGROK_DOMAIN")},
		},
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run HTTP server with API, WebSocket and MCP endpoint",
				Action:  runServerCommand,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "Run MCP stdio server with an internal HTTP server",
				Action:  runStdioCommand,
			},
		},
		Action: runServerCommand,
	}
}

func optionsFrom(cmd *cli.Command) options {
	return options{
		host:        cmd.String("host"),
		port:        int(cmd.Int("port")),
		configDir:   cmd.String("config-dir"),
		resultsDir:  cmd.String("results-dir"),
		idleTimeout: cmd.Duration("idle-timeout"),
		retention:   cmd.Duration("finished-retention"),
		ngrok:       cmd.Bool("ngrok"),
		ngrokAuth:   cmd.String("ngrok-auth"),
		ngrokDomain: cmd.String("ngrok-domain"),
	}
}

func newLogger(debug, asJSON bool, out io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)
	if debug {
		log.SetLevel(logrus.DebugLevel)
	}
	if asJSON {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	return log
}

func runServerCommand(ctx context.Context, cmd *cli.Command) error {
	log := newLogger(cmd.Bool("debug"), cmd.Bool("log-json"), os.Stderr)
	opts := optionsFrom(cmd)
	log.WithField("version", Version).Info("starting server")

	a, err := initializeServices(ctx, opts, log)
	if err != nil {
		return fmt.Errorf("initialize services: %w", err)
	}
	defer a.close()

	return runHTTPServer(ctx, a, opts)
}

func runStdioCommand(ctx context.Context, cmd *cli.Command) error {
	// stdout carries the MCP protocol
	log := newLogger(cmd.Bool("debug"), cmd.Bool("log-json"), os.Stderr)
	opts := optionsFrom(cmd)

	a, err := initializeServices(ctx, opts, log)
	if err != nil {
		return fmt.Errorf("initialize services: %w", err)
	}
	defer a.close()

	return runStdioMCPWithInternalServer(ctx, a, opts)
}

// initializeServices opens storage, loads rulesets and wires the game service
// with its collaborators. It also starts the idle-game cleanup routine.
func initializeServices(ctx context.Context, opts options, log *logrus.Logger) (*app, error) {
	rulesets, err := config.NewManager(opts.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create ruleset manager: %w", err)
	}

	storageCfg, err := storage.ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	backend, err := storage.Open(ctx, storageCfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	sinks := service.MultiSink{backend.Results}
	if opts.resultsDir != "" {
		archive, err := session.NewFileArchive(opts.resultsDir)
		if err != nil {
			backend.Close()
			return nil, fmt.Errorf("failed to create results archive: %w", err)
		}
		sinks = append(sinks, archive)
	}

	hub := websocket.NewHub(log)
	notifiers := service.MultiNotifier{hub}
	if backend.Publisher != nil {
		notifiers = append(notifiers, backend.Publisher)
	}

	sessions := session.NewManager()
	gameService := service.NewGameService(sessions, rulesets,
		service.WithInventory(backend.Inventory),
		service.WithResultSink(sinks),
		service.WithNotifier(notifiers),
		service.WithStatePublisher(hub),
		service.WithJournal(backend.Journal),
		service.WithClock(clock.New(log)),
		service.WithLogger(log),
	)

	log.WithFields(logrus.Fields{
		"storage":  backend.Driver,
		"rulesets": rulesets.Count(),
	}).Info("services initialized")

	go hub.Run(ctx)
	go cleanupRoutine(ctx, gameService, sessions, opts, log)

	return &app{log: log, service: gameService, backend: backend, hub: hub}, nil
}

func (a *app) close() {
	if err := a.backend.Close(); err != nil {
		a.log.WithError(err).Warn("failed to close storage")
	}
}

func (a *app) handler() http.Handler {
	return api.NewServer(a.service, a.hub,
		api.WithInventory(a.backend.Inventory),
		api.WithWallets(a.backend.Wallets),
		api.WithActions(a.backend.Actions),
		api.WithLogger(a.log),
	)
}

// cleanupRoutine periodically drops finished games past their retention and
// abandons running games idle for longer than the idle timeout.
func cleanupRoutine(ctx context.Context, svc service.GameService, sessions *session.Manager, opts options, log logrus.FieldLogger) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cleanupOnce(ctx, svc, sessions, opts, log)
		}
	}
}

func cleanupOnce(ctx context.Context, svc service.GameService, sessions *session.Manager, opts options, log logrus.FieldLogger) {
	if opts.retention > 0 {
		if removed := sessions.CleanupExpired(opts.retention); removed > 0 {
			log.WithField("removed", removed).Info("cleaned up finished games")
		}
	}
	if opts.idleTimeout > 0 {
		if removed := svc.PruneGames(ctx, opts.idleTimeout); removed > 0 {
			log.WithField("removed", removed).Info("pruned idle games")
		}
	}
}

// mcpHandler serves single MCP JSON-RPC messages over HTTP POST
func mcpHandler(client *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := client.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub and an
// /mcp proxy endpoint. With ngrok enabled it also provisions a public tunnel.
func runHTTPServer(ctx context.Context, a *app, opts options) error {
	addr := fmt.Sprintf("%s:%d", opts.host, opts.port)
	mcpClient := mcp.NewClient(fmt.Sprintf("http://%s", addr))

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", a.handler())
	mainRouter.HandleFunc("/mcp", mcpHandler(mcpClient))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		a.log.WithFields(logrus.Fields{
			"addr":      addr,
			"api":       fmt.Sprintf("http://%s/api", addr),
			"websocket": fmt.Sprintf("ws://%s/ws?game=<game_id>", addr),
			"mcp":       fmt.Sprintf("http://%s/mcp", addr),
		}).Info("HTTP server listening")

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	if opts.ngrok {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, a.log, opts, mainRouter)
		}()
	}

	var err error
	select {
	case <-ctx.Done():
		a.log.Info("shutting down")
	case err = <-serveErr:
		a.log.WithError(err).Error("HTTP server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		a.log.WithError(shutdownErr).Warn("HTTP server shutdown error")
	}

	wg.Wait()
	a.log.Info("server stopped")
	return err
}

func runNgrok(ctx context.Context, log logrus.FieldLogger, opts options, handler http.Handler) {
	if opts.ngrokAuth == "" {
		log.Warn("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN or NGROK_AUTH_TOKEN)")
		return
	}

	var tunnel ngrokConfig.Tunnel
	if opts.ngrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(opts.ngrokDomain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(opts.ngrokAuth))
	if err != nil {
		log.WithError(err).Error("failed to start ngrok tunnel")
		return
	}
	defer func() {
		if err := tun.Close(); err != nil {
			log.WithError(err).Warn("failed to close ngrok tunnel")
		}
	}()

	ngrokURL := tun.URL()
	log.WithFields(logrus.Fields{
		"url":       ngrokURL,
		"api":       ngrokURL + "/api",
		"websocket": ngrokURL + "/ws?game=<game_id>",
		"mcp":       ngrokURL + "/mcp",
	}).Info("ngrok tunnel established")

	go func() {
		<-ctx.Done()
		tun.Close()
	}()

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		log.WithError(err).Warn("ngrok server error")
	}
}

// externalAPIAvailable reports whether a game server already answers at baseURL
func externalAPIAvailable(baseURL string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/api/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}

// runStdioMCPWithInternalServer runs an MCP stdio server. It reuses an
// external API at host:port when one answers; otherwise it serves the API on
// a random loopback port and targets that.
func runStdioMCPWithInternalServer(ctx context.Context, a *app, opts options) error {
	externalURL := fmt.Sprintf("http://%s:%d", opts.host, opts.port)
	baseURL := externalURL

	if externalAPIAvailable(externalURL) {
		a.log.WithField("url", externalURL).Info("using external API server for MCP")
	} else {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		httpServer := &http.Server{Handler: a.handler()}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.WithError(err).Error("internal HTTP server error")
			}
		}()
		defer httpServer.Close()

		baseURL = fmt.Sprintf("http://%s", listener.Addr().String())
		a.log.WithField("url", baseURL).Info("started internal HTTP server for MCP stdio")
	}

	mcpClient := mcp.NewClient(baseURL)
	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
