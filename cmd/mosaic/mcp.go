package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"

	"github.com/aretw0/mosaic/internal/cli"
	"github.com/aretw0/mosaic/pkg/adapters/file"
	"github.com/aretw0/mosaic/pkg/adapters/mcp"
	"github.com/aretw0/mosaic/pkg/observability"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts one shell session as an MCP Server.
This allows AI agents to navigate the shell and read its live document as tools.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	Run: func(cmd *cobra.Command, args []string) {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")
		sessionID, _ := cmd.Flags().GetString("session")

		cfg, err := loadConfig(cmd)
		if err != nil {
			log.Fatalf("Error loading config: %v", err)
		}
		// Logs go to stderr, so they never corrupt JSON-RPC on stdout.
		logger, err := cli.NewLogger(cfg)
		if err != nil {
			log.Fatalf("Error loading config: %v", err)
		}

		opts := cli.ShellOptions{Logger: logger, Hooks: observability.LoggingHooks(logger)}
		if sessionID != "" {
			opts.Store = file.NewStore("")
		}

		ctx := cli.NewSignalContext(context.Background())
		defer ctx.Cancel()

		host, err := cli.NewHost(ctx, cfg, sessionID, opts)
		if err != nil {
			log.Fatalf("Error initializing shell: %v", err)
		}
		if opts.Store != nil {
			if _, err := host.Resume(ctx); err != nil {
				logger.Info("starting a new session", "session", sessionID, "reason", err)
			}
		}

		srv := mcp.NewServer(host, Version, mcp.WithLogger(logger))

		switch transport {
		case "stdio":
			log.SetOutput(os.Stderr)
			logger.Info("Starting mosaic MCP Server (Stdio)...")
			if err := srv.ServeStdio(); err != nil {
				logger.Error("MCP Server execution failed", "err", err)
				os.Exit(1)
			}
		case "sse":
			logger.Info("Starting mosaic MCP Server (SSE)", "port", port)
			if err := srv.ServeSSE(ctx, port); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("MCP Server execution failed", "err", err)
				os.Exit(1)
			}
			logger.Info("MCP Server stopped gracefully")
		default:
			log.Fatalf("Unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
	mcpCmd.Flags().String("session", "", "Persist the session under .mosaic/sessions with this ID and resume it on start")
}
