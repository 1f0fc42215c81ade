package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/docsearch/internal/search"
)

// Searcher is the query side of the search service.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]search.Result, error)
}

// makeSearchHandler creates the search_chunks tool handler.
func makeSearchHandler(svc Searcher) func(
	context.Context, *mcp.CallToolRequest, SearchChunksInput,
) (*mcp.CallToolResult, SearchChunksOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchChunksInput) (
		*mcp.CallToolResult, SearchChunksOutput, error,
	) {
		topK := input.TopK
		if topK <= 0 {
			topK = search.DefaultTopK
		}

		results, err := svc.Search(ctx, input.Query, topK)
		if err != nil {
			if errors.Is(err, search.ErrEmptyQuery) {
				return nil, SearchChunksOutput{}, errors.New("query cannot be empty")
			}
			return nil, SearchChunksOutput{}, fmt.Errorf("search failed: %w", err)
		}

		if len(results) == 0 {
			return nil, SearchChunksOutput{
				Results: []search.Result{},
				Message: "No matching passages found.",
			}, nil
		}
		return nil, SearchChunksOutput{Results: results}, nil
	}
}
