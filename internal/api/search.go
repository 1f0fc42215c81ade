package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/bull/docsearch/internal/search"
)

// SearchRequest is the POST /search body. Query is a pointer so that a missing field
// and an empty string are told apart.
type SearchRequest struct {
	Query *string `json:"query" binding:"required"`
	TopK  *int    `json:"top_k" binding:"omitempty,min=1"`
}

// SearchResponse is the POST /search result.
type SearchResponse struct {
	Results []search.Result `json:"results"`
}

// ValidationError describes one rejected request field.
type ValidationError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// Search handles POST /search.
// Input errors are reported before index availability.
func (h *Handler) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}
	if *req.Query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Query cannot be empty"})
		return
	}
	if h.svc == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Index not available"})
		return
	}

	topK := h.defaultTopK
	if req.TopK != nil {
		topK = *req.TopK
	}

	results, err := h.svc.Search(c.Request.Context(), *req.Query, topK)
	if err != nil {
		h.logger.Error("Search failed", "error", err, "request_id", GetRequestID(c))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Search failed"})
		return
	}

	if results == nil {
		results = []search.Result{}
	}
	c.JSON(http.StatusOK, SearchResponse{Results: results})
}

// bindError maps a binding failure to 422 for schema problems and 400 for bodies
// that are not JSON at all.
func (h *Handler) bindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]ValidationError, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, ValidationError{
				Loc:  []string{"body", fe.Field()},
				Msg:  validationMessage(fe),
				Type: fe.Tag(),
			})
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": details})
		return
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": []ValidationError{{
			Loc:  []string{"body", typeErr.Field},
			Msg:  "value is not a valid " + typeErr.Type.String(),
			Type: "type_error",
		}}})
		return
	}

	if errors.Is(err, io.EOF) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": []ValidationError{{
			Loc:  []string{"body"},
			Msg:  "field required",
			Type: "missing",
		}}})
		return
	}

	c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid JSON body: " + err.Error()})
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field required"
	case "min":
		return "must be at least " + fe.Param()
	default:
		return "failed " + fe.Tag() + " validation"
	}
}
