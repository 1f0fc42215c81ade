// Package mcp exposes the search service as a Model Context Protocol tool.
package mcp

import "github.com/bull/docsearch/internal/search"

// SearchChunksInput defines the input parameters for the search_chunks tool.
type SearchChunksInput struct {
	// Query is the text to search for.
	Query string `json:"query" jsonschema:"text to find similar passages for"`
	// TopK is the maximum number of passages to return.
	TopK int `json:"top_k,omitempty" jsonschema:"maximum number of passages to return, default 5"`
}

// SearchChunksOutput contains the matching passages, nearest first.
type SearchChunksOutput struct {
	Results []search.Result `json:"results"`
	// Message provides informational context (e.g., "No matching passages found").
	Message string `json:"message,omitempty"`
}
