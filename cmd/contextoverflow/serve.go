package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/alphabot-ai/contextoverflow/internal/client"
	"github.com/alphabot-ai/contextoverflow/internal/config"
	"github.com/alphabot-ai/contextoverflow/internal/engine"
	"github.com/alphabot-ai/contextoverflow/internal/errortypes"
	httpapp "github.com/alphabot-ai/contextoverflow/internal/http"
	"github.com/alphabot-ai/contextoverflow/internal/logging"
	"github.com/alphabot-ai/contextoverflow/internal/mcp"
	"github.com/alphabot-ai/contextoverflow/internal/rate"
	"github.com/alphabot-ai/contextoverflow/internal/store"
	"github.com/alphabot-ai/contextoverflow/internal/store/memory"
	"github.com/alphabot-ai/contextoverflow/internal/store/postgres"
	"github.com/alphabot-ai/contextoverflow/internal/store/sqlite"
	"github.com/alphabot-ai/contextoverflow/internal/tools"
)

var storeFlags = []cli.Flag{
	&cli.StringFlag{Name: "store", Usage: "Storage driver: sqlite, memory or postgres"},
	&cli.StringFlag{Name: "db", Usage: "SQLite database path"},
	&cli.StringFlag{Name: "dsn", Usage: "Postgres connection string"},
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"server"},
		Usage:   "Run the REST API server",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "Listen address (default :8000)"},
		}, storeFlags...),
		Action: runServer,
	}
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the agent tools over MCP stdio",
		Description: "In remote mode (default) every tool call becomes a REST call against --url.\n" +
			"In local mode the tools run against a store opened in-process.",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "mode", Usage: "remote or local"},
			&cli.StringFlag{Name: "user", Usage: "Default voter and author for tool calls"},
		}, storeFlags...),
		Action: runMCP,
	}
}

// loadConfig reads the environment, the optional config file and then
// command flags, in increasing precedence.
func loadConfig(c *cli.Context, logger *slog.Logger) (config.Config, error) {
	cfg, err := config.LoadFile(c.Context, c.String("config"), logger)
	if err != nil {
		return config.Config{}, err
	}
	if v := c.String("addr"); v != "" {
		cfg.Addr = v
	}
	if v := c.String("store"); v != "" {
		cfg.StoreDriver = v
	}
	if v := c.String("db"); v != "" {
		cfg.SQLitePath = v
	}
	if v := c.String("dsn"); v != "" {
		cfg.PostgresDSN = v
	}
	if v := c.String("mode"); v != "" {
		cfg.Bridge.Mode = v
	}
	if v := c.String("user"); v != "" {
		cfg.Bridge.User = v
	}
	if c.IsSet("url") {
		cfg.Bridge.BaseURL = c.String("url")
	}
	if version != "dev" {
		cfg.Version = version
	}
	return cfg, cfg.Validate()
}

func openStore(cfg config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return memory.New(), nil
	case config.DriverPostgres:
		return postgres.Open(cfg.PostgresDSN)
	default:
		return sqlite.Open(cfg.SQLitePath)
	}
}

func newEngine(st store.Store, cfg config.Config, logger *slog.Logger) *engine.Engine {
	return engine.New(st,
		engine.WithVotePolicy(cfg.VotePolicy()),
		engine.WithMaxPageSize(cfg.MaxPageSize),
		engine.WithLogger(logger),
	)
}

func runServer(c *cli.Context) error {
	bootLogger := logging.New("info", "text", os.Stderr)
	cfg, err := loadConfig(c, bootLogger)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
	slog.SetDefault(logger)

	st, err := openStore(cfg)
	if err != nil {
		return errortypes.DatabaseError(err, "failed to open store").WithField("driver", cfg.StoreDriver)
	}
	defer st.Close()

	server := httpapp.NewServer(newEngine(st, cfg, logger), rate.NewMemory(), cfg, logger)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("contextoverflow listening", "addr", cfg.Addr, "store", cfg.StoreDriver, "vote_repeat", cfg.VotePolicy())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout())
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// runMCP keeps stdout for the protocol; all logs go to stderr.
func runMCP(c *cli.Context) error {
	bootLogger := logging.New("info", "text", os.Stderr)
	cfg, err := loadConfig(c, bootLogger)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
	slog.SetDefault(logger)

	backend, closer, err := bridgeBackend(cfg, logger)
	if err != nil {
		return err
	}
	defer closer.Close()

	d := tools.NewDispatcher(backend, tools.WithDefaultUser(cfg.Bridge.User), tools.WithLogger(logger))
	srv := mcp.NewToolServer(d, logger)
	if err := srv.Initialize(); err != nil {
		return err
	}
	return srv.Start()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func bridgeBackend(cfg config.Config, logger *slog.Logger) (tools.Backend, io.Closer, error) {
	if cfg.Bridge.Mode == config.ModeLocal {
		st, err := openStore(cfg)
		if err != nil {
			return nil, nil, errortypes.DatabaseError(err, "failed to open store").WithField("driver", cfg.StoreDriver)
		}
		logger.Info("MCP bridge running in-process", "store", cfg.StoreDriver)
		return tools.NewLocal(newEngine(st, cfg, logger)), st, nil
	}

	cl := client.New(cfg.Bridge.BaseURL)
	if err := cl.Validate(); err != nil {
		return nil, nil, err
	}
	logger.Info("MCP bridge forwarding to REST API", "base_url", cl.BaseURL)
	return cl, nopCloser{}, nil
}
