package mcp

import (
	"context"
	"log"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/pycontext/pycontext/internal/config"
	"github.com/pycontext/pycontext/internal/indexer"
)

const (
	// ServerName is the MCP server name
	ServerName = "pycontext"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server exposes the indexer over the Model Context Protocol on stdio.
// Indexing runs are serialized with a non-blocking lock: a second
// index_codebase call while one is running is refused, not queued.
type Server struct {
	mcp     *server.MCPServer
	cfg     *config.Config
	indexer *indexer.Indexer
	lock    indexer.IndexLock
}

// NewServer wraps an already-constructed indexer. Existing index state
// is loaded when both persisted halves are present; a fresh start is not
// an error.
func NewServer(cfg *config.Config, ix *indexer.Indexer) (*Server, error) {
	s := &Server{
		mcp:     server.NewMCPServer(ServerName, ServerVersion),
		cfg:     cfg,
		indexer: ix,
	}

	if fileExists(cfg.Index.IndexPath) && fileExists(cfg.Index.MetadataPath) {
		if err := ix.Load(cfg.Index.IndexPath, cfg.Index.MetadataPath); err != nil {
			return nil, err
		}
		log.Printf("mcp: loaded %d chunks from %s", ix.Size(), cfg.Index.IndexPath)
	}

	s.registerTools()
	return s, nil
}

// Serve runs the server on stdio until the transport closes
func (s *Server) Serve(ctx context.Context) error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(indexCodebaseTool(), s.handleIndexCodebase)
	s.mcp.AddTool(searchCodeTool(), s.handleSearchCode)
	s.mcp.AddTool(removeFileTool(), s.handleRemoveFile)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}

// persist writes both index halves after a mutation. Failure is logged
// rather than failing the tool call: the in-memory index is still valid.
func (s *Server) persist() {
	if err := s.indexer.Save(s.cfg.Index.IndexPath, s.cfg.Index.MetadataPath); err != nil {
		log.Printf("mcp: persist failed: %v", err)
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
