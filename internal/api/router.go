// Package api serves the search service over HTTP with gin.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/bull/docsearch/internal/search"
)

// SearchService is what the handlers need from a loaded index.
type SearchService interface {
	Search(ctx context.Context, query string, topK int) ([]search.Result, error)
	Health(ctx context.Context) error
	Len() int
	BuildID() uuid.UUID
}

// Handler serves the HTTP endpoints. A nil service means no index is loaded.
type Handler struct {
	svc         SearchService
	defaultTopK int
	logger      *slog.Logger
}

// NewHandler creates the endpoint handlers. defaultTopK <= 0 uses search.DefaultTopK.
func NewHandler(svc SearchService, defaultTopK int, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if defaultTopK <= 0 {
		defaultTopK = search.DefaultTopK
	}
	return &Handler{svc: svc, defaultTopK: defaultTopK, logger: logger}
}

// NewRouter wires the endpoints. mcpHandler, when not nil, is mounted at /mcp.
func NewRouter(h *Handler, mcpHandler http.Handler) *gin.Engine {
	useJSONFieldNames()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(RequestLogger(h.logger))

	router.GET("/", h.Landing)
	router.GET("/health", h.Health)
	router.POST("/search", h.Search)
	if mcpHandler != nil {
		router.Any("/mcp", gin.WrapH(mcpHandler))
	}
	return router
}

var tagNameOnce sync.Once

// useJSONFieldNames makes validation errors report JSON field names.
func useJSONFieldNames() {
	tagNameOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
	})
}
