// Command finwatch is the market-monitoring supervisor. It serves MCP
// tools over stdio, supervises the trading agent worker process, and
// persists monitoring state in an embedded database.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	"github.com/jdsingh122918/finwatch/internal/bridge"
	"github.com/jdsingh122918/finwatch/internal/config"
	"github.com/jdsingh122918/finwatch/internal/secrets"
	"github.com/jdsingh122918/finwatch/internal/store"
	"github.com/jdsingh122918/finwatch/internal/tools"
	"github.com/jdsingh122918/finwatch/internal/watcher"
)

const version = "0.4.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "finwatch:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := os.Getenv("FINWATCH_CONFIG")
	if configPath == "" {
		configPath = config.DefaultPath()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, closeLog, err := setupLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	st, err := store.Open(cfg.DatabasePath(), logger)
	if err != nil {
		return err
	}
	defer st.Close()

	sec := secrets.New(cfg.SecretsDir(), logger)
	if err := sec.MigrateFromDB(st); err != nil {
		// Degraded but usable: credentials stay in the database.
		logger.Printf("credential migration failed: %v", err)
	}

	mcpServer := server.NewMCPServer("finwatch", version)

	sink := newEventSink(st, mcpServer, logger)
	defer sink.Close()
	br := bridge.New(bridge.NewRouter(sink, logger), logger,
		bridge.WithRequestTimeout(cfg.Timing.RequestTimeout()),
		bridge.WithSweepInterval(cfg.Timing.SweepInterval()),
		bridge.WithPollInterval(cfg.Timing.WatchdogPoll()),
		bridge.WithProbeInterval(cfg.Timing.ProbeInterval()),
		bridge.WithSilenceWindow(cfg.Timing.SilenceWindow()),
		bridge.WithMaxRestarts(cfg.Timing.RestartBudget()),
	)

	tools.Register(mcpServer, tools.Deps{
		Bridge:  br,
		Store:   st,
		Secrets: sec,
		Config:  cfg,
		Logger:  logger,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	w := watcher.New(configPath, cfg.Watch.Dirs, logger)
	w.Start(ctx)
	go forwardWatchEvents(ctx, w, br, logger)
	defer w.Stop()

	logger.Printf("finwatch %s listening on stdio", version)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.NewStdioServer(mcpServer).Listen(ctx, os.Stdin, os.Stdout)
	}()

	select {
	case <-ctx.Done():
		logger.Printf("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
			logger.Printf("stdio server: %v", err)
		}
	}

	if err := br.Kill(); err != nil {
		logger.Printf("stopping agent: %v", err)
	}
	logger.Printf("finwatch stopped")
	return nil
}

// forwardWatchEvents relays filesystem changes into the running agent
// so it can reload config or ingest new CSV data without a restart.
func forwardWatchEvents(ctx context.Context, w *watcher.Watcher, br *bridge.Bridge, logger *log.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-w.Events():
			if !br.IsRunning() {
				continue
			}
			var method string
			switch ev.Kind {
			case watcher.ConfigChanged:
				method = "config:changed"
			case watcher.SourceFileChanged:
				method = "source:file-changed"
			default:
				continue
			}
			if err := br.SendNotification(method, map[string]string{"path": ev.Path}); err != nil {
				logger.Printf("forward %s: %v", method, err)
			}
		}
	}
}

// setupLogger writes to stderr, and additionally to the configured log
// file when one is set. Stdout stays reserved for the MCP transport.
func setupLogger(cfg *config.Config) (*log.Logger, func(), error) {
	writer := io.Writer(os.Stderr)
	closeLog := func() {}

	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		writer = io.MultiWriter(os.Stderr, f)
		closeLog = func() { f.Close() }
	}

	return log.New(writer, "[finwatch] ", log.LstdFlags), closeLog, nil
}
