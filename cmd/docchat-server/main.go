// Package main runs the docchat HTTP server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/bull/docchat-server/internal/api"
	"github.com/bull/docchat-server/internal/config"
	mcpserver "github.com/bull/docchat-server/internal/mcp"
	"github.com/bull/docchat-server/internal/watcher"
)

var version = "dev"

var (
	configPath string
	stdioMCP   bool
)

var rootCmd = &cobra.Command{
	Use:   "docchat-server",
	Short: "Chat and document question answering API",
	Long: `Serves the chat, small chat, suggestion and document endpoints over HTTP,
plus the same operations as MCP tools at /mcp.

Configuration is read from docchat.yaml (or --config) and overridden by
environment variables. At least GROQ_API_KEY or LLM_API_KEY must be set.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file (default $DOCCHAT_CONFIG)")
	rootCmd.Flags().BoolVar(&stdioMCP, "stdio", false, "also serve MCP over stdin/stdout")
	rootCmd.Version = version
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if configPath == "" {
		configPath = os.Getenv("DOCCHAT_CONFIG")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// Logs go to stderr so stdout stays free for the MCP stdio transport.
	logger := cfg.Log.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	app, err := build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	g, ctx := errgroup.WithContext(ctx)

	if dir := cfg.Documents.WatchDir; dir != "" {
		result, err := app.pipeline.IngestDir(ctx, dir)
		if err != nil {
			return fmt.Errorf("ingest %s: %w", dir, err)
		}
		logger.Info("Ingested watch directory",
			"dir", dir,
			"documents", result.SuccessfulDocs,
			"failed", len(result.FailedDocs),
			"duration", result.Duration,
		)

		w, err := watcher.New(app.pipeline, 0, logger)
		if err != nil {
			return err
		}
		defer w.Close()
		g.Go(func() error { return w.Run(ctx, dir) })
	}

	var mcpSrv *mcpserver.Server
	if cfg.MCP.Enabled || stdioMCP {
		mcpSrv = mcpserver.NewServer(&mcpserver.Config{
			Service: app.service,
			Version: version,
			Logger:  logger,
		})
	}

	apiCfg := &api.Config{
		Service:        app.service,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		CORSOrigins:    cfg.Server.CORSOrigins,
		Logger:         logger,
	}
	if app.health != nil {
		apiCfg.Health = app.health
	}
	if mcpSrv != nil && cfg.MCP.Enabled {
		apiCfg.MCP = mcpserver.NewHTTPHandler(mcpSrv, &mcpserver.HTTPHandlerOptions{
			Stateless: cfg.MCP.Stateless,
		})
	}
	server := api.NewServer(apiCfg)

	g.Go(func() error {
		return server.ListenAndServe(ctx, cfg.Server.Addr,
			cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout)
	})

	if stdioMCP {
		g.Go(func() error {
			if err := mcpSrv.Run(ctx); err != nil && ctx.Err() == nil {
				return fmt.Errorf("mcp stdio: %w", err)
			}
			return nil
		})
	}

	logger.Info("docchat server started",
		"version", version,
		"addr", cfg.Server.Addr,
		"retrieval", cfg.Retrieval.Mode,
		"history", cfg.History.Type,
		"extensions", app.pipeline.Extensions(),
	)
	return g.Wait()
}
