// Package mcpserver exposes the chat runtime as Model Context Protocol
// tools over stdio.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/flemzord/ragchat/internal/backend"
	"github.com/flemzord/ragchat/internal/chat"
	"github.com/flemzord/ragchat/internal/orchestrator"
	"github.com/flemzord/ragchat/internal/retrieval"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Tool names.
const (
	ToolNewSession = "new_session"
	ToolChat       = "chat"
	ToolIngest     = "ingest"
)

// Runtime is the part of the chat runtime the tools use. *chat.Runtime
// satisfies it.
type Runtime interface {
	NewSession(ctx context.Context, previous string) (string, error)
	Turn(ctx context.Context, req chat.TurnRequest) (orchestrator.Result, error)
	IndexDocument(ctx context.Context, text string) (retrieval.IngestResult, error)
}

var _ Runtime = (*chat.Runtime)(nil)

// Server wraps an MCP server bound to a Runtime.
type Server struct {
	rt     Runtime
	mcp    *server.MCPServer
	logger *slog.Logger
}

// New registers the tools and returns the server.
func New(rt Runtime, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		rt:     rt,
		mcp:    server.NewMCPServer("ragchat", version, server.WithToolCapabilities(false), server.WithRecovery()),
		logger: logger,
	}

	s.mcp.AddTool(mcp.NewTool(ToolNewSession,
		mcp.WithDescription("Allocate a new conversation session id."),
	), s.handleNewSession)

	s.mcp.AddTool(mcp.NewTool(ToolChat,
		mcp.WithDescription("Send one user turn to a session and return the assistant reply."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id from new_session.")),
		mcp.WithString("text", mcp.Required(), mcp.Description("The user message.")),
		mcp.WithNumber("backend", mcp.Description("Backend ordinal: 0 for the primary model, 1 for the secondary."), mcp.Min(0), mcp.Max(1)),
		mcp.WithNumber("temperature", mcp.Description("Sampling temperature as a percentage."), mcp.Min(0), mcp.Max(100)),
		mcp.WithString("collection", mcp.Description("Answer from this ingested collection.")),
	), s.handleChat)

	s.mcp.AddTool(mcp.NewTool(ToolIngest,
		mcp.WithDescription("Index a document and return its collection name for use with chat."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Document text.")),
	), s.handleIngest)

	return s
}

// MCP returns the underlying server.
func (s *Server) MCP() *server.MCPServer { return s.mcp }

// Serve speaks MCP over in and out until ctx is done or in is closed.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	if err := stdio.Listen(ctx, in, out); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcpserver: %w", err)
	}
	return nil
}

func (s *Server) handleNewSession(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := s.rt.NewSession(ctx, "")
	if err != nil {
		return s.toolError("new_session", err), nil
	}
	return mcp.NewToolResultText(id), nil
}

func (s *Server) handleChat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sel, err := backend.ParseSelection(req.GetInt("backend", 0))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	turn := chat.TurnRequest{
		SessionID:  sessionID,
		Text:       text,
		Selection:  sel,
		Collection: req.GetString("collection", ""),
	}
	if _, ok := req.GetArguments()["temperature"]; ok {
		temp := req.GetInt("temperature", orchestrator.DefaultTemperature)
		turn.Temperature = &temp
	}

	res, err := s.rt.Turn(ctx, turn)
	if err != nil {
		return s.toolError("chat", err), nil
	}
	return mcp.NewToolResultText(res.Text), nil
}

func (s *Server) handleIngest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.rt.IndexDocument(ctx, text)
	if err != nil {
		return s.toolError("ingest", err), nil
	}
	return mcp.NewToolResultText(res.Collection), nil
}

// toolError reports a failure inside the tool result so the client model
// can read it.
func (s *Server) toolError(tool string, err error) *mcp.CallToolResult {
	s.logger.Warn("mcp tool failed", "tool", tool, "error", err)
	return mcp.NewToolResultErrorFromErr(tool+" failed", err)
}
