package main

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/isdmx/graphbox/ai"
	"github.com/isdmx/graphbox/api"
	"github.com/isdmx/graphbox/config"
	"github.com/isdmx/graphbox/graphsvc"
	"github.com/isdmx/graphbox/logger"
	"github.com/isdmx/graphbox/mcpserver"
	"github.com/isdmx/graphbox/prompt"
	"github.com/isdmx/graphbox/realtime"
	"github.com/isdmx/graphbox/sandbox"
	"github.com/isdmx/graphbox/store"
)

func main() {
	app := fx.New(
		// Provide dependencies
		fx.Provide(
			// Config
			config.New,

			// Logger with configuration
			logger.NewFromConfig,

			// Validator plus interpreter runner
			sandbox.NewFromConfig,

			// SQLite storage, closed on stop
			newStore,

			// WebSocket rooms, node_moved persisted through the store
			newHub,

			// Optional LLM
			ai.NewFromConfig,

			newPrompts,
			newGraphService,

			// REST server
			newAPIServer,

			// MCP Server
			newMCPServer,
		),

		// Start the transports on fx start and stop them on fx stop
		fx.Invoke(registerTransports),

		// Use the application logger for fx logs
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
	)

	// Start the application
	app.Run()
}

func newStore(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*store.Store, error) {
	st, err := store.Open(cfg.Storage.Path, logger.Component(log, "store"))
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(st.Close))
	return st, nil
}

func newHub(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, st *store.Store) *realtime.Hub {
	hub := realtime.NewHub(logger.Component(log, "realtime"), cfg.Server.CORSOrigins, realtime.WithNodeMover(st))
	lc.Append(fx.StopHook(hub.Close))
	return hub
}

func newPrompts(cfg *config.Config) (*prompt.Catalog, error) {
	return prompt.New(cfg.Sandbox.AllowedImports)
}

func newGraphService(log *zap.Logger, sb *sandbox.Service, st *store.Store, gen ai.Generator, prompts *prompt.Catalog, hub *realtime.Hub) *graphsvc.Service {
	return graphsvc.New(logger.Component(log, "graphsvc"), sb, st, gen, prompts, hub)
}

func newAPIServer(cfg *config.Config, log *zap.Logger, st *store.Store, graphs *graphsvc.Service, hub *realtime.Hub) *api.Server {
	return api.New(cfg, logger.Component(log, "api"), st, graphs, hub)
}

func newMCPServer(cfg *config.Config, log *zap.Logger, graphs *graphsvc.Service) (*mcpserver.MCPServer, error) {
	return mcpserver.New(cfg, logger.Component(log, "mcp"), graphs)
}

// registerTransports serves REST always and MCP when enabled. A transport
// that stops with an error shuts the application down.
func registerTransports(lc fx.Lifecycle, shutdowner fx.Shutdowner, cfg *config.Config, log *zap.Logger, httpServer *api.Server, mcp *mcpserver.MCPServer) {
	serve := func(name string, run func() error) {
		go func() {
			if err := run(); err != nil {
				log.Error("transport stopped", zap.String("transport", name), zap.Error(err))
				_ = shutdowner.Shutdown(fx.ExitCode(1))
			}
		}()
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			serve("http", httpServer.Start)

			if !cfg.MCP.Enabled {
				return nil
			}
			switch cfg.MCP.Transport {
			case "stdio":
				serve("mcp-stdio", mcp.ServeStdio)
			case "http":
				serve("mcp-http", mcp.ServeHTTP)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := mcp.Shutdown(ctx); err != nil {
				log.Warn("failed to stop MCP server", zap.Error(err))
			}
			return httpServer.Shutdown(ctx)
		},
	})
}
