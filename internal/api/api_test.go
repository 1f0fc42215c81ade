package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/docsearch/internal/artifact"
	"github.com/bull/docsearch/internal/embedding"
	"github.com/bull/docsearch/internal/index"
	"github.com/bull/docsearch/internal/logging"
	"github.com/bull/docsearch/internal/search"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeService records calls and returns canned results.
type fakeService struct {
	results   []search.Result
	err       error
	healthErr error
	calls     int
	gotQuery  string
	gotK      int
}

func (f *fakeService) Search(ctx context.Context, query string, topK int) ([]search.Result, error) {
	f.calls++
	f.gotQuery, f.gotK = query, topK
	if query == "" {
		return nil, search.ErrEmptyQuery
	}
	return f.results, f.err
}
func (f *fakeService) Health(ctx context.Context) error { return f.healthErr }
func (f *fakeService) Len() int                         { return len(f.results) }
func (f *fakeService) BuildID() uuid.UUID               { return uuid.Nil }

func newTestRouter(svc SearchService) *gin.Engine {
	return NewRouter(NewHandler(svc, 5, logging.Discard()), nil)
}

func postSearch(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSearch_ReturnsResults(t *testing.T) {
	svc := &fakeService{results: []search.Result{
		{Filename: "medical.pdf", Page: 1, Excerpt: "Diabetes is a condition."},
	}}
	w := postSearch(t, newTestRouter(svc), `{"query": "Diabetes", "top_k": 1}`)

	require.Equal(t, http.StatusOK, w.Code)
	var resp SearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "medical.pdf", resp.Results[0].Filename)
	assert.Equal(t, 1, resp.Results[0].Page)
	assert.Equal(t, 1, svc.gotK)
	assert.JSONEq(t, `{"results":[{"filename":"medical.pdf","page":1,"excerpt":"Diabetes is a condition."}]}`, w.Body.String())
}

func TestSearch_DefaultTopK(t *testing.T) {
	svc := &fakeService{}
	w := postSearch(t, newTestRouter(svc), `{"query": "blood"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, svc.gotK)
	assert.JSONEq(t, `{"results":[]}`, w.Body.String())
}

func TestSearch_EmptyQuery(t *testing.T) {
	svc := &fakeService{}
	w := postSearch(t, newTestRouter(svc), `{"query": ""}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"detail":"Query cannot be empty"}`, w.Body.String())
	assert.Zero(t, svc.calls)
}

func TestSearch_SchemaErrors(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{name: "missing query", body: `{"top_k": 3}`, field: "query"},
		{name: "zero top_k", body: `{"query": "x", "top_k": 0}`, field: "top_k"},
		{name: "negative top_k", body: `{"query": "x", "top_k": -2}`, field: "top_k"},
		{name: "wrong type", body: `{"query": "x", "top_k": "many"}`, field: "top_k"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{}
			w := postSearch(t, newTestRouter(svc), tt.body)

			assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
			assert.Contains(t, w.Body.String(), `"`+tt.field+`"`)
			assert.Zero(t, svc.calls)
		})
	}
}

func TestSearch_EmptyBody(t *testing.T) {
	w := postSearch(t, newTestRouter(&fakeService{}), ``)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestSearch_MalformedJSON(t *testing.T) {
	svc := &fakeService{}
	w := postSearch(t, newTestRouter(svc), `{"query": `)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, svc.calls)
}

func TestSearch_IndexNotAvailable(t *testing.T) {
	w := postSearch(t, newTestRouter(nil), `{"query": "Diabetes"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"detail":"Index not available"}`, w.Body.String())
}

func TestSearch_InputErrorsBeforeIndexCheck(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{name: "empty query", body: `{"query": ""}`, status: http.StatusBadRequest},
		{name: "missing query", body: `{"top_k": 2}`, status: http.StatusUnprocessableEntity},
		{name: "wrong top_k type", body: `{"query": "x", "top_k": "a"}`, status: http.StatusUnprocessableEntity},
		{name: "malformed json", body: `{"query": `, status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postSearch(t, newTestRouter(nil), tt.body)

			assert.Equal(t, tt.status, w.Code)
			assert.NotContains(t, w.Body.String(), "Index not available")
		})
	}
}

func TestSearch_BackendFailure(t *testing.T) {
	svc := &fakeService{err: errors.New("qdrant at 10.0.0.7:6334 refused connection")}
	w := postSearch(t, newTestRouter(svc), `{"query": "Diabetes"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"detail":"Search failed"}`, w.Body.String())
}

func TestSearch_EndToEnd(t *testing.T) {
	chunks := []artifact.Chunk{
		{Filename: "medical.pdf", Page: 1, Text: "Diabetes is a condition. It affects blood sugar.."},
		{Filename: "medical.pdf", Page: 2, Text: "Hypertension affects blood pressure.."},
	}
	emb := embedding.NewHashEmbedder(embedding.DefaultHashDimension)
	vectors, err := emb.Embed(context.Background(), []string{chunks[0].Text, chunks[1].Text})
	require.NoError(t, err)
	flat := index.NewFlatL2(emb.Dimension())
	require.NoError(t, flat.Add(vectors...))
	svc := search.New(flat, &artifact.ChunkList{BuildID: uuid.New(), Chunks: chunks}, emb, logging.Discard())

	w := postSearch(t, newTestRouter(svc), `{"query": "Diabetes", "top_k": 1}`)

	require.Equal(t, http.StatusOK, w.Code)
	var resp SearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "medical.pdf", resp.Results[0].Filename)
	assert.Equal(t, 1, resp.Results[0].Page)
	assert.Contains(t, resp.Results[0].Excerpt, "Diabetes")
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name   string
		svc    SearchService
		status int
		want   string
	}{
		{name: "ready", svc: &fakeService{}, status: http.StatusOK, want: "healthy"},
		{name: "backend down", svc: &fakeService{healthErr: errors.New("unreachable")}, status: http.StatusServiceUnavailable, want: "unhealthy"},
		{name: "not loaded", svc: nil, status: http.StatusServiceUnavailable, want: "unhealthy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			w := httptest.NewRecorder()
			newTestRouter(tt.svc).ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			var resp HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.want, resp.Status)
			assert.NotEmpty(t, resp.Timestamp)
		})
	}
}

func TestLandingAndRequestID(t *testing.T) {
	router := newTestRouter(&fakeService{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "/search")
	assert.Equal(t, "abc123", w.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/nope", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMCPMounted(t *testing.T) {
	called := false
	mcpHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusAccepted)
	})
	router := NewRouter(NewHandler(&fakeService{}, 0, logging.Discard()), mcpHandler)

	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.True(t, called)
	assert.Equal(t, http.StatusAccepted, w.Code)
}
