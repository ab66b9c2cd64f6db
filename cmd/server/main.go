package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/clientbridge/agenthub/internal/auth"
	"github.com/clientbridge/agenthub/internal/server"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var (
		configPath  string
		port        string
		showVersion bool
	)

	rootCmd := &cobra.Command{
		Use:   "agenthub",
		Short: "Real-time agent notification hub",
		Long: `Agent Hub is a WebSocket service that tracks connected agent sessions,
their capabilities and liveness, and routes notifications and client
transfer announcements to the agents entitled to receive them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			if showVersion {
				fmt.Printf("agenthub version=%s commit=%s\n", version, commit)
				return nil
			}
			return run(configPath, port)
		},
	}

	rootCmd.Flags().StringVar(&configPath, "config", "", "path to config.yaml (optional)")
	rootCmd.Flags().StringVar(&port, "port", "", "listen address override (e.g. :8080)")
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "print version and exit")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run(configPath, port string) error {
	cfg := server.LoadConfig(configPath)
	if port != "" {
		cfg.Port = port
	}
	server.SetConfig(cfg)

	hub := server.NewHub()
	go hub.Run()

	authService := auth.NewService(
		auth.NewMemoryStore(),
		auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
	)

	mux := server.SetupRoutes(hub, auth.NewHandler(authService))
	httpServer := server.CreateServer(cfg.Port, mux)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.StartServer(httpServer)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	}

	if err := server.ShutdownServer(httpServer, shutdownTimeout); err != nil {
		slog.Warn("HTTP shutdown finished with error", "error", err)
	}
	if err := hub.Shutdown(shutdownTimeout); err != nil {
		slog.Warn("Hub shutdown finished with error", "error", err)
	}
	return nil
}
