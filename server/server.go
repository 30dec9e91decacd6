package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xhad/recall/internal/models"
	"github.com/xhad/recall/pkg/rag"
)

// RAGService is the surface the HTTP layer needs from the retrieval pipeline.
type RAGService interface {
	Ingest(ctx context.Context, fileBytes []byte, filename, ownerTag string) (*models.IngestResult, error)
	Answer(ctx context.Context, question string, topK int, ownerTag string) (*models.QueryResult, error)
	ListDocuments(ctx context.Context, ownerTag string) ([]models.Document, error)
}

type Config struct {
	Addr         string
	APIKeys      []string
	AllowOrigins []string
	RateLimit    float64
	RateBurst    int
}

type Server struct {
	config  Config
	service RAGService
	logger  *slog.Logger
	engine  *gin.Engine
}

type queryRequest struct {
	Query string `json:"query" binding:"required"`
	TopK  int    `json:"top_k"`
}

func New(config Config, service RAGService, logger *slog.Logger) *Server {
	if config.Addr == "" {
		config.Addr = ":8080"
	}
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		config:  config,
		service: service,
		logger:  logger,
		engine:  engine,
	}

	engine.Use(corsMiddleware(config.AllowOrigins))
	engine.GET("/healthz", s.handleHealth)

	authed := engine.Group("/")
	authed.Use(authMiddleware(config.APIKeys))
	authed.Use(rateLimitMiddleware(config.RateLimit, config.RateBurst))
	authed.POST("/upload", s.handleUpload)
	authed.POST("/query", s.handleQuery)
	authed.GET("/documents", s.handleListDocuments)

	return s
}

// Handler exposes the routing tree for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.config.Addr,
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", s.config.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleUpload(c *gin.Context) {
	ownerTag := c.GetString(ownerTagKey)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field 'file' is required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to open uploaded file"})
		return
	}
	defer file.Close()

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read uploaded file"})
		return
	}

	result, err := s.service.Ingest(c.Request.Context(), fileBytes, fileHeader.Filename, ownerTag)
	if err != nil {
		s.logger.Error("ingest failed", "filename", fileHeader.Filename, "error", err)
		c.JSON(ingestStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleQuery(c *gin.Context) {
	ownerTag := c.GetString(ownerTagKey)

	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "field 'query' is required"})
		return
	}

	result, err := s.service.Answer(c.Request.Context(), req.Query, req.TopK, ownerTag)
	if err != nil {
		s.logger.Error("query failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleListDocuments(c *gin.Context) {
	ownerTag := c.GetString(ownerTagKey)

	docs, err := s.service.ListDocuments(c.Request.Context(), ownerTag)
	if err != nil {
		s.logger.Error("document listing failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if docs == nil {
		docs = []models.Document{}
	}

	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

func ingestStatus(err error) int {
	switch {
	case errors.Is(err, rag.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, rag.ErrNoReadableText), errors.Is(err, rag.ErrNoValidChunks):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
