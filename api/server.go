package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/isdmx/graphbox/config"
	"github.com/isdmx/graphbox/graphsvc"
	"github.com/isdmx/graphbox/prompt"
	"github.com/isdmx/graphbox/store"
)

// Version is reported by the root endpoint
const Version = "0.1.0"

const shutdownGrace = 10 * time.Second

// GraphStore is the persistence the REST handlers call
type GraphStore interface {
	Ping(ctx context.Context) error

	ListGraphs(ctx context.Context, skip, limit int) ([]*store.Graph, error)
	GetGraph(ctx context.Context, id int64) (*store.Graph, error)
	CreateGraph(ctx context.Context, in store.GraphInput) (*store.Graph, error)
	ReplaceGraph(ctx context.Context, id int64, in store.GraphInput) (*store.Graph, error)
	DeleteGraph(ctx context.Context, id int64) error
	AddNode(ctx context.Context, graphID int64, in store.NodeInput) (*store.Node, error)
	UpdateNode(ctx context.Context, nodeID int64, in store.NodeInput) (*store.Node, error)
	DeleteNode(ctx context.Context, nodeID int64) error
	AddEdge(ctx context.Context, graphID int64, in store.EdgeInput) (*store.Edge, error)
	DeleteEdge(ctx context.Context, edgeID int64) error

	ListProjects(ctx context.Context, filter store.ProjectFilter) ([]*store.Project, error)
	GetProject(ctx context.Context, id int64) (*store.Project, error)
	CreateProject(ctx context.Context, in store.ProjectInput) (*store.Project, error)
	UpdateProject(ctx context.Context, id int64, in store.ProjectUpdate) (*store.Project, error)
	DeleteProject(ctx context.Context, id int64) error
	ProjectMetadata(ctx context.Context, id int64) (*store.ProjectMetadata, error)
}

// GraphService runs the code and AI use cases
type GraphService interface {
	ExecuteCode(ctx context.Context, code, name string) (graphsvc.Result, error)
	Generate(ctx context.Context, description, name string) (graphsvc.Result, error)
	Modify(ctx context.Context, graphID int64, instruction string) (graphsvc.Result, error)
	Template() (prompt.ManualTemplate, error)
}

// Realtime serves graph WebSocket rooms
type Realtime interface {
	ServeWS(w http.ResponseWriter, r *http.Request, graphID int64)
	Broadcast(graphID int64, msg any)
}

// Server is the REST and WebSocket front end
type Server struct {
	config   *config.Config
	logger   *zap.Logger
	store    GraphStore
	graphs   GraphService
	realtime Realtime
	engine   *gin.Engine

	mu         sync.Mutex
	httpServer *http.Server
}

// New builds the router
func New(cfg *config.Config, logger *zap.Logger, st GraphStore, graphs GraphService, rt Realtime) *Server {
	s := &Server{
		config:   cfg,
		logger:   logger,
		store:    st,
		graphs:   graphs,
		realtime: rt,
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(logger), corsMiddleware(cfg.Server.CORSOrigins))
	s.engine = engine
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	r := s.engine
	r.GET("/", s.handleRoot)
	r.GET("/health", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/ws/graphs/:id", s.handleWebSocket)

	graphs := r.Group("/api/graphs")
	{
		graphs.GET("", s.handleListGraphs)
		graphs.POST("", s.handleCreateGraph)
		graphs.GET("/:id", s.handleGetGraph)
		graphs.PUT("/:id", s.handleReplaceGraph)
		graphs.DELETE("/:id", s.handleDeleteGraph)
		graphs.POST("/:id/nodes", s.handleAddNode)
		graphs.POST("/:id/edges", s.handleAddEdge)
	}

	nodes := r.Group("/api/nodes")
	{
		nodes.PUT("/:id", s.handleUpdateNode)
		nodes.DELETE("/:id", s.handleDeleteNode)
	}

	r.DELETE("/api/edges/:id", s.handleDeleteEdge)

	projects := r.Group("/api/projects")
	{
		projects.GET("", s.handleListProjects)
		projects.POST("", s.handleCreateProject)
		projects.GET("/:id", s.handleGetProject)
		projects.PUT("/:id", s.handleUpdateProject)
		projects.DELETE("/:id", s.handleDeleteProject)
		projects.GET("/:id/metadata", s.handleProjectMetadata)
	}

	aiGroup := r.Group("/api/ai")
	{
		aiGroup.POST("/execute-code", s.handleExecuteCode)
		aiGroup.POST("/generate", s.handleGenerate)
		aiGroup.POST("/modify", s.handleModify)
		aiGroup.GET("/template", s.handleTemplate)
	}
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start listens on server.http_port until Shutdown. It returns nil after a
// clean shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Server.HTTPPort)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.mu.Lock()
	s.httpServer = httpServer
	s.mu.Unlock()

	s.logger.Info("starting HTTP server", zap.String("addr", addr))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	httpServer := s.httpServer
	s.mu.Unlock()

	if httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, shutdownGrace)
	defer cancel()
	return httpServer.Shutdown(ctx)
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "3D Graphing API", "status": "running", "version": Version})
}

func (s *Server) handleHealth(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		s.logger.Warn("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) handleWebSocket(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	s.realtime.ServeWS(c.Writer, c.Request, id)
}

// requestLogger logs one line per request
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request served",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// corsMiddleware allows the configured browser origins; "*" allows any.
// Without origins no CORS headers are sent.
func corsMiddleware(origins []string) gin.HandlerFunc {
	if len(origins) == 0 {
		return func(c *gin.Context) { c.Next() }
	}

	cfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if slices.Contains(origins, "*") {
		cfg.AllowOriginFunc = func(string) bool { return true }
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

// pathID parses a positive integer path parameter, answering 422 otherwise
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": fmt.Sprintf("invalid %s: %q", name, c.Param(name))})
		return 0, false
	}
	return id, true
}
