package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/furrow"
	"github.com/aretw0/furrow/internal/logging"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// WorkersURI is the resource listing the registered workers.
const WorkersURI = "furrow://workers"

// Service is the part of the supervisor exposed over MCP.
type Service interface {
	Handle(ctx context.Context, req furrow.Request) furrow.Response
	Health(ctx context.Context) furrow.HealthReport
	RefreshHealth(ctx context.Context) furrow.HealthReport
	Conversations(ctx context.Context, userID string, limit, offset int) (furrow.ConversationPage, error)
}

// AskArgs are the arguments of the ask tool.
type AskArgs struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
	UserID         string `json:"user_id,omitempty"`
}

// HealthArgs are the arguments of the health tool.
type HealthArgs struct {
	Probe bool `json:"probe,omitempty"`
}

// ConversationsArgs are the arguments of the conversations tool.
type ConversationsArgs struct {
	UserID string `json:"user_id"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// Server exposes the supervisor as an MCP server.
type Server struct {
	svc       Service
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// NewServer creates a new MCP Server instance. A nil logger discards logs.
func NewServer(svc Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		svc:    svc,
		logger: logger,
		mcpServer: server.NewMCPServer("furrow-mcp", strings.TrimSpace(furrow.Version),
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
		),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server, e.g. for in-process clients.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on addr until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	ask := mcp.NewTool("ask",
		mcp.WithDescription("Ask the agricultural assistant a question. Compound questions are split across specialist workers."),
		mcp.WithString("message", mcp.Required(), mcp.Description("The farmer's question")),
		mcp.WithString("conversation_id", mcp.Description("Continue an existing conversation (optional)")),
		mcp.WithString("user_id", mcp.Description("Owner of the conversation (optional)")),
		mcp.WithOutputSchema[furrow.Response](),
	)
	s.mcpServer.AddTool(ask, mcp.NewStructuredToolHandler(s.handleAsk))

	health := mcp.NewTool("health",
		mcp.WithDescription("Report which workers are registered and healthy."),
		mcp.WithBoolean("probe", mcp.Description("Probe every worker before answering")),
		mcp.WithOutputSchema[furrow.HealthReport](),
	)
	s.mcpServer.AddTool(health, mcp.NewStructuredToolHandler(s.handleHealth))

	conversations := mcp.NewTool("conversations",
		mcp.WithDescription("List a user's conversations, most recent first."),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("Owner of the conversations")),
		mcp.WithNumber("limit", mcp.Description("Page size (default 10)")),
		mcp.WithNumber("offset", mcp.Description("Entries to skip")),
		mcp.WithOutputSchema[furrow.ConversationPage](),
	)
	s.mcpServer.AddTool(conversations, mcp.NewStructuredToolHandler(s.handleConversations))
}

func (s *Server) handleConversations(ctx context.Context, _ mcp.CallToolRequest, args ConversationsArgs) (furrow.ConversationPage, error) {
	page, err := s.svc.Conversations(ctx, args.UserID, args.Limit, args.Offset)
	if err != nil {
		return page, fmt.Errorf("list conversations: %w", err)
	}
	return page, nil
}

func (s *Server) handleAsk(ctx context.Context, _ mcp.CallToolRequest, args AskArgs) (furrow.Response, error) {
	resp := s.svc.Handle(ctx, furrow.Request{
		ConversationID: args.ConversationID,
		UserID:         args.UserID,
		Message:        args.Message,
	})
	if !resp.Success {
		s.logger.Info("MCP ask: turn failed", "conversation_id", resp.ConversationID, "kind", resp.ErrorKind)
	}
	return resp, nil
}

func (s *Server) handleHealth(ctx context.Context, _ mcp.CallToolRequest, args HealthArgs) (furrow.HealthReport, error) {
	if args.Probe {
		return s.svc.RefreshHealth(ctx), nil
	}
	return s.svc.Health(ctx), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(WorkersURI, "Registered workers",
		mcp.WithResourceDescription("Workers known to the supervisor and their health"),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(s.svc.Health(ctx).Workers)
		if err != nil {
			return nil, fmt.Errorf("encode workers: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      WorkersURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
