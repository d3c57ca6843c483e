package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/aretw0/mosaic/internal/cli"
	"github.com/aretw0/mosaic/internal/presentation/tui"
	"github.com/aretw0/mosaic/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the shell HTTP server",
	Long: `Serves the session API under /api, the assets directory at the root and
Prometheus metrics under /metrics. Sessions are kept in Redis when the config
has a redis section and in snapshot files otherwise.`,
	Run: func(cmd *cobra.Command, args []string) {
		port, _ := cmd.Flags().GetString("port")
		sessionsDir, _ := cmd.Flags().GetString("sessions-dir")
		quiet, _ := cmd.Flags().GetBool("quiet")

		cfg, err := loadConfig(cmd)
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}
		logger, err := cli.NewLogger(cfg)
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}
		for _, dir := range cli.CheckDirs(cfg) {
			logger.Warn("directory not found", "path", dir)
		}

		reg := prometheus.NewRegistry()
		metrics, err := cli.NewMetrics(reg)
		if err != nil {
			fmt.Printf("Error registering metrics: %v\n", err)
			os.Exit(1)
		}

		backend, err := cli.OpenBackend(cfg, sessionsDir, logger)
		if err != nil {
			fmt.Printf("Error opening session store: %v\n", err)
			os.Exit(1)
		}
		defer backend.Close()

		api := cli.NewShellAPI(cfg, backend, cli.ShellOptions{
			Logger: logger,
			Hooks:  observability.Combine(metrics.Hooks(), observability.LoggingHooks(logger)),
		})

		srv := &http.Server{
			Addr:              ":" + port,
			Handler:           cli.NewServeHandler(cfg, api, reg),
			ReadHeaderTimeout: 10 * time.Second,
		}

		if !quiet && tui.IsTerminal(os.Stdout) {
			tui.PrintBanner(os.Stdout)
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("shell listening", "addr", srv.Addr, "origin", cfg.Origin, "applications", len(cfg.Applications))
			serverErrors <- srv.ListenAndServe()
		}()

		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				fmt.Printf("Server error: %v\n", err)
				os.Exit(1)
			}
		case <-sigCtx.Done():
			logger.Info("shutting down", "signal", sigCtx.Signal())

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("graceful shutdown did not complete", "err", err)
				_ = srv.Close()
			}
			logger.Info("shell stopped")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	serveCmd.Flags().String("sessions-dir", "", "Directory for session snapshots when Redis is not configured (default .mosaic/sessions)")
	serveCmd.Flags().BoolP("quiet", "q", false, "Do not print the banner")
}
