package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/isdmx/graphbox/config"
	"github.com/isdmx/graphbox/graphsvc"
	"github.com/isdmx/graphbox/prompt"
)

// GraphService is the subset of graphsvc.Service the tools call
type GraphService interface {
	ExecuteCode(ctx context.Context, code, name string) (graphsvc.Result, error)
	Template() (prompt.ManualTemplate, error)
}

// MCPServer represents the MCP server
type MCPServer struct {
	config    *config.Config
	logger    *zap.Logger
	graphs    GraphService
	mcpServer *server.MCPServer

	mu         sync.Mutex
	httpServer *server.StreamableHTTPServer
}

// New creates a new MCPServer
func New(cfg *config.Config, logger *zap.Logger, graphs GraphService) (*MCPServer, error) {
	s := &MCPServer{
		config: cfg,
		logger: logger,
		graphs: graphs,
	}

	logger.Info("configuration loaded",
		zap.String("mcp.transport", s.config.MCP.Transport),
		zap.Int("mcp.http_port", s.config.MCP.HTTPPort),
		zap.Int("sandbox.timeout_sec", s.config.Sandbox.TimeoutSec),
		zap.String("sandbox.interpreter", s.config.Sandbox.Interpreter),
		zap.Strings("sandbox.allowed_imports", s.config.Sandbox.AllowedImports),
	)

	s.mcpServer = server.NewMCPServer("graphbox", "Builds 3D graphs from sandboxed Python code",
		server.WithToolCapabilities(false))

	s.registerExecuteGraphCodeTool()
	s.registerGenerationTemplateTool()

	return s, nil
}

// registerExecuteGraphCodeTool registers the execute_graph_code tool
func (s *MCPServer) registerExecuteGraphCodeTool() {
	tool := mcp.Tool{
		Name:        "execute_graph_code",
		Description: "Run Python code that assigns a 'result' dict with 'nodes' and 'edges' and store the graph it builds",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"code": map[string]any{
					"type":        "string",
					"description": "Python source; see get_generation_template for the expected output shape",
				},
				"graph_name": map[string]any{
					"type":        "string",
					"description": "Name of the stored graph (optional)",
				},
			},
			Required: []string{"code"},
		},
	}

	s.mcpServer.AddTool(tool, s.handleExecuteGraphCode)
}

// registerGenerationTemplateTool registers the get_generation_template tool
func (s *MCPServer) registerGenerationTemplateTool() {
	tool := mcp.Tool{
		Name:        "get_generation_template",
		Description: "Describe the code format execute_graph_code accepts, with examples and allowed imports",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}

	s.mcpServer.AddTool(tool, s.handleGenerationTemplate)
}

// handleExecuteGraphCode handles the execute_graph_code tool
func (s *MCPServer) handleExecuteGraphCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.logger.Info("graph code execution requested")

	code, err := request.RequireString("code")
	if err != nil {
		return nil, fmt.Errorf("code parameter is required: %w", err)
	}
	name := request.GetString("graph_name", "")

	result, err := s.graphs.ExecuteCode(ctx, code, name)
	if err != nil {
		s.logger.Error("graph code execution failed", zap.Error(err))
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf("Execution failed: %v", err),
				},
			},
			IsError: true,
		}, nil
	}

	if result.Success {
		s.logger.Info("graph code execution completed",
			zap.Int64("graph_id", result.Graph.ID),
			zap.Int("nodes", len(result.Graph.Nodes)),
			zap.Int("edges", len(result.Graph.Edges)))
	} else {
		s.logger.Info("graph code rejected or failed", zap.String("error_code", result.ErrorCode))
	}

	return jsonResult(result, !result.Success)
}

// handleGenerationTemplate handles the get_generation_template tool
func (s *MCPServer) handleGenerationTemplate(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tmpl, err := s.graphs.Template()
	if err != nil {
		return nil, fmt.Errorf("failed to render template: %w", err)
	}
	return jsonResult(tmpl, false)
}

func jsonResult(v any, isError bool) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tool result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: string(data),
			},
		},
		IsError: isError,
	}, nil
}

// ServeStdio starts the server on stdio
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server on stdio")
	return server.ServeStdio(s.mcpServer)
}

// ServeHTTP starts the server on HTTP
func (s *MCPServer) ServeHTTP() error {
	port := s.config.MCP.HTTPPort
	s.logger.Info("starting MCP server on HTTP", zap.Int("port", port))

	httpServer := server.NewStreamableHTTPServer(s.mcpServer)
	s.mu.Lock()
	s.httpServer = httpServer
	s.mu.Unlock()

	return httpServer.Start(fmt.Sprintf(":%d", port))
}

// Shutdown stops the HTTP transport if it was started
func (s *MCPServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	httpServer := s.httpServer
	s.mu.Unlock()

	if httpServer == nil {
		return nil
	}
	return httpServer.Shutdown(ctx)
}

// GetMCPServer returns the underlying MCP server for fx
func (s *MCPServer) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}
