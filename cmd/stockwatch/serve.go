package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"stockwatch/internal/api"
	"stockwatch/internal/config"
	"stockwatch/internal/logging"
	"stockwatch/pkg/stockwatch"
)

const shutdownTimeout = 10 * time.Second

var getppid = os.Getppid
var sleep = time.Sleep
var exit = os.Exit

func newServeCmd(opts *rootOptions) *cobra.Command {
	var host string
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()
			return runServe(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host to bind the server to")
	// Port 0 picks a free port.
	cmd.Flags().IntVar(&port, "port", 8000, "Port to run the server on")
	return cmd
}

func runServe(ctx context.Context, cfg config.Config) error {
	level, _ := logging.ParseLevel(cfg.LogLevel)
	logDir, err := cfg.ResolveLogDir()
	if err != nil {
		return fmt.Errorf("resolve log dir: %w", err)
	}
	logger, writer, err := logging.NewLogger(logDir, level)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() {
		if err := writer.Close(); err != nil {
			logger.Error("failed to close log writer", "err", err)
		}
	}()

	dbPath, err := cfg.ResolveDBPath()
	if err != nil {
		logger.Error("failed to resolve db path", "err", err)
		return err
	}
	coreOpts := cfg.CoreOptions(dbPath)
	coreOpts.Logger = logger
	core, err := stockwatch.OpenWithOptions(coreOpts)
	if err != nil {
		logger.Error("failed to initialize core", "err", err)
		return err
	}
	defer func() {
		if err := core.Close(); err != nil {
			logger.Error("failed to close core", "err", err)
		}
	}()

	if os.Getenv("STOCKWATCH_PARENT_WATCH") == "1" {
		go watchParent(logger)
	}

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           api.NewRouter(core, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * cfg.Quotes.CycleTimeout,
		IdleTimeout:       60 * time.Second,
	}
	listener, err := net.Listen("tcp", server.Addr)
	if err != nil {
		logger.Error("listen failed", "addr", server.Addr, "err", err)
		return err
	}
	return serveUntilDone(ctx, server, listener, logger)
}

// serveUntilDone serves on listener until ctx is cancelled, then shuts the
// server down gracefully.
func serveUntilDone(ctx context.Context, server *http.Server, listener net.Listener, logger *slog.Logger) error {
	logger.Info("server starting", "addr", listener.Addr().String())
	errCh := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", "err", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "err", err)
		return err
	}
	return nil
}

func watchParent(logger *slog.Logger) {
	for {
		sleep(1 * time.Second)
		if getppid() == 1 {
			logger.Info("parent process exited; shutting down")
			exit(0)
		}
	}
}
