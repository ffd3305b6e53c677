package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ldi/devflow/internal/config"
	taskmcp "github.com/ldi/devflow/internal/mcp"
	"github.com/ldi/devflow/internal/store"
	"github.com/ldi/devflow/pkg/models"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

const (
	ServiceName = "devflow-mcp"

	maxRequestSize = 1 << 20 // 1MB
)

// JSON-RPC error codes returned by the /mcp endpoint itself. Method and
// parameter errors come from the MCP server.
const (
	codeParseError    = -32700
	codeInternalError = -32603
)

// Server serves the REST and MCP-over-HTTP adapters for one working directory.
type Server struct {
	cfg    *config.Config
	store  *store.Store
	mcp    *mcpserver.MCPServer
	sse    *mcpserver.SSEServer
	router *gin.Engine
	server *http.Server
	logger *log.Logger
}

type Option func(*Server)

// WithLogger sets the logger used for request and error logging.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

func NewServer(cfg *config.Config, st *store.Store, opts ...Option) *Server {
	s := &Server{
		cfg:    cfg,
		store:  st,
		logger: log.New(os.Stderr, "devflow: ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(s)
	}

	router := gin.New()
	s.server = &http.Server{
		Addr:    cfg.Addr(),
		Handler: router,
	}

	s.mcp = taskmcp.NewServer(st, cfg.WorkDir)
	s.sse = mcpserver.NewSSEServer(s.mcp, mcpserver.WithHTTPServer(s.server))

	w := logWriter{s.logger}
	router.Use(gin.LoggerWithWriter(w), gin.RecoveryWithWriter(w))
	router.Use(cors())

	router.GET("/", s.handleHealth)
	router.GET("/health", s.handleHealth)

	router.GET("/tasks", s.handleListTasks)
	router.DELETE("/tasks/:id", s.handleDeleteTask)

	router.POST("/mcp", s.handleMCP)
	router.GET("/sse", gin.WrapH(s.sse.SSEHandler()))
	router.POST("/message", gin.WrapH(s.sse.MessageHandler()))

	s.router = router
	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured address and blocks until the server stops.
// A graceful Shutdown makes Start return nil.
func (s *Server) Start() error {
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown closes open SSE sessions and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.sse.Shutdown(ctx)
}

// logWriter routes gin's request log through the server logger.
type logWriter struct {
	l *log.Logger
}

func (w logWriter) Write(p []byte) (int, error) {
	w.l.Print(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Mcp-Session-Id")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": ServiceName})
}

func (s *Server) handleListTasks(c *gin.Context) {
	status := models.FilterFromString(c.Query("status"))
	c.JSON(http.StatusOK, s.store.List(c.Request.Context(), s.cfg.WorkDir, status))
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	id := c.Param("id")

	deleted, err := s.store.Delete(c.Request.Context(), s.cfg.WorkDir, id)
	if err != nil {
		s.logger.Printf("failed to delete task %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found", "id": id})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true, "id": id})
}

// handleMCP answers one JSON-RPC request per POST using the same MCP server
// as the stdio adapter.
func (s *Server) handleMCP(c *gin.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Printf("panic handling mcp request: %v", r)
			c.JSON(http.StatusOK, rpcError(nil, codeInternalError, fmt.Sprintf("Internal error: %v", r)))
		}
	}()

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestSize))
	if err != nil {
		c.JSON(http.StatusOK, rpcError(nil, codeParseError, "Parse error: "+err.Error()))
		return
	}
	if !json.Valid(body) {
		c.JSON(http.StatusOK, rpcError(nil, codeParseError, "Parse error"))
		return
	}

	resp := s.mcp.HandleMessage(c.Request.Context(), body)
	if resp == nil {
		c.Status(http.StatusAccepted)
		return
	}

	data, err := json.Marshal(resp)
	if err != nil {
		c.JSON(http.StatusOK, rpcError(requestID(body), codeInternalError, "Internal error: "+err.Error()))
		return
	}
	c.Data(http.StatusOK, "application/json", data)
}

func rpcError(id any, code int, message string) gin.H {
	return gin.H{
		"jsonrpc": "2.0",
		"id":      id,
		"error":   gin.H{"code": code, "message": message},
	}
}

func requestID(body []byte) any {
	var req struct {
		ID any `json:"id"`
	}
	_ = json.Unmarshal(body, &req)
	return req.ID
}
