package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pycontext/pycontext/internal/config"
	"github.com/pycontext/pycontext/internal/embedder"
	"github.com/pycontext/pycontext/internal/indexer"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	dir := t.TempDir()
	cfg := config.Default()
	cfg.Index.IndexPath = filepath.Join(dir, "index.bin")
	cfg.Index.MetadataPath = filepath.Join(dir, "metadata.json")
	cfg.Cache.Enabled = false

	ix, err := indexer.New(indexer.Options{Embedder: embedder.NewLocalProvider(32)})
	require.NoError(t, err)

	s, err := NewServer(cfg, ix)
	require.NoError(t, err)
	return s
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &payload))
	return payload
}

func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	source := `def add(a, b):
    """Add two numbers."""
    return a + b
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "calc.py"), []byte(source), 0644))
	return dir
}

func TestIndexCodebaseTool(t *testing.T) {
	s := newTestServer(t)
	project := writeProject(t)

	res, err := s.handleIndexCodebase(context.Background(), callRequest(map[string]interface{}{
		"path": project,
	}))
	require.NoError(t, err)

	payload := resultText(t, res)
	assert.Equal(t, true, payload["indexed"])
	assert.Equal(t, float64(1), payload["files_processed"])
	assert.Equal(t, float64(1), payload["chunks_created"])

	// mutation persisted both halves
	assert.FileExists(t, s.cfg.Index.IndexPath)
	assert.FileExists(t, s.cfg.Index.MetadataPath)
}

func TestIndexCodebaseToolValidation(t *testing.T) {
	s := newTestServer(t)

	_, err := s.handleIndexCodebase(context.Background(), callRequest(map[string]interface{}{}))
	require.Error(t, err)

	_, err = s.handleIndexCodebase(context.Background(), callRequest(map[string]interface{}{
		"path": "relative/path",
	}))
	require.Error(t, err)

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
}

func TestIndexCodebaseToolRefusesConcurrentRun(t *testing.T) {
	s := newTestServer(t)
	project := writeProject(t)

	require.True(t, s.lock.TryAcquire())
	defer s.lock.Release()

	_, err := s.handleIndexCodebase(context.Background(), callRequest(map[string]interface{}{
		"path": project,
	}))
	require.Error(t, err)

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeIndexingInProgress, mcpErr.Code)
}

func TestSearchCodeTool(t *testing.T) {
	s := newTestServer(t)
	project := writeProject(t)

	_, err := s.handleIndexCodebase(context.Background(), callRequest(map[string]interface{}{
		"path": project,
	}))
	require.NoError(t, err)

	res, err := s.handleSearchCode(context.Background(), callRequest(map[string]interface{}{
		"query": "add two numbers",
		"top_k": float64(5),
	}))
	require.NoError(t, err)

	payload := resultText(t, res)
	results := payload["results"].([]interface{})
	require.Len(t, results, 1)

	first := results[0].(map[string]interface{})
	assert.Equal(t, "add", first["name"])
	assert.Contains(t, first["summary"], "calc.py")
}

func TestSearchCodeToolValidation(t *testing.T) {
	s := newTestServer(t)

	_, err := s.handleSearchCode(context.Background(), callRequest(map[string]interface{}{}))
	require.Error(t, err)

	_, err = s.handleSearchCode(context.Background(), callRequest(map[string]interface{}{
		"query": "x",
		"top_k": float64(500),
	}))
	require.Error(t, err)
}

func TestRemoveFileTool(t *testing.T) {
	s := newTestServer(t)
	project := writeProject(t)
	ctx := context.Background()

	_, err := s.handleIndexCodebase(ctx, callRequest(map[string]interface{}{"path": project}))
	require.NoError(t, err)

	res, err := s.handleRemoveFile(ctx, callRequest(map[string]interface{}{
		"path": filepath.Join(project, "calc.py"),
	}))
	require.NoError(t, err)
	payload := resultText(t, res)
	assert.Equal(t, float64(1), payload["chunks_removed"])

	// second removal is a no-op, not an error
	res, err = s.handleRemoveFile(ctx, callRequest(map[string]interface{}{
		"path": filepath.Join(project, "calc.py"),
	}))
	require.NoError(t, err)
	assert.Equal(t, float64(0), resultText(t, res)["chunks_removed"])
}

func TestGetStatusTool(t *testing.T) {
	s := newTestServer(t)
	project := writeProject(t)
	ctx := context.Background()

	res, err := s.handleGetStatus(ctx, callRequest(nil))
	require.NoError(t, err)
	assert.Equal(t, float64(0), resultText(t, res)["total_chunks"])

	_, err = s.handleIndexCodebase(ctx, callRequest(map[string]interface{}{"path": project}))
	require.NoError(t, err)

	res, err = s.handleGetStatus(ctx, callRequest(nil))
	require.NoError(t, err)
	payload := resultText(t, res)
	assert.Equal(t, float64(1), payload["total_chunks"])
	assert.Equal(t, payload["total_chunks"], payload["total_metadata"])
}

func TestServerLoadsPersistedState(t *testing.T) {
	s := newTestServer(t)
	project := writeProject(t)
	ctx := context.Background()

	_, err := s.handleIndexCodebase(ctx, callRequest(map[string]interface{}{"path": project}))
	require.NoError(t, err)

	// a fresh server over the same config picks up the saved index
	ix, err := indexer.New(indexer.Options{Embedder: embedder.NewLocalProvider(32)})
	require.NoError(t, err)
	fresh, err := NewServer(s.cfg, ix)
	require.NoError(t, err)
	assert.Equal(t, 1, fresh.indexer.Size())
}
