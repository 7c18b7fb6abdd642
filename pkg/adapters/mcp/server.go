package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dylansturg/weakevent"
	"github.com/dylansturg/weakevent/pkg/domain"
)

// RecentResponse is the structured result of the recent_notices tool.
type RecentResponse struct {
	Notices []domain.Notice `json:"notices" jsonschema_description:"Retained notices, newest first"`
	Total   uint64          `json:"total" jsonschema_description:"Notices ever seen by this feed, including evicted ones"`
}

// Publisher sends a notice to the feed's channel on behalf of an MCP
// client.
type Publisher interface {
	Publish(ctx context.Context, origin string, n domain.Notice) error
}

// Historian is the slice of the notice history the server reads.
type Historian interface {
	Recent(n int) []domain.Notice
	Len() int
	Total() uint64
}

// Server exposes a notice feed as an MCP server, so agent tooling can
// publish and inspect notices without speaking the wire protocol.
type Server struct {
	publisher Publisher
	history   Historian
	channel   string
	mcpServer *server.MCPServer
}

// NewServer creates an MCP server over the given publisher and history.
// channel names the feed in tool output; it is informational only.
func NewServer(publisher Publisher, history Historian, channel string) *Server {
	s := &Server{
		publisher: publisher,
		history:   history,
		channel:   channel,
		mcpServer: server.NewMCPServer("weakevent-mcp", strings.TrimSpace(weakevent.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and blocks
// until the listener fails or ctx is canceled.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
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

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: publish_notice
	publishTool := mcp.NewTool("publish_notice",
		mcp.WithDescription("Publish a notice to the feed. Every relay subscribed to the channel delivers it to its live subscribers."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Short summary of the notice")),
		mcp.WithString("body", mcp.Description("Longer free-form detail (optional)")),
		mcp.WithString("level", mcp.Description("Severity: info, warn or alert (optional, defaults to info)")),
	)
	s.mcpServer.AddTool(publishTool, s.handlePublish)

	// TOOL: recent_notices
	recentTool := mcp.NewTool("recent_notices",
		mcp.WithDescription("List the most recent notices seen on the feed, newest first."),
		mcp.WithNumber("count", mcp.Description("Maximum notices to return (optional, 0 means all retained)")),
		mcp.WithOutputSchema[RecentResponse](),
	)
	s.mcpServer.AddTool(recentTool, mcp.NewStructuredToolHandler(s.handleRecent))
}

func (s *Server) handlePublish(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	n := domain.Notice{}
	n.Title, _ = args["title"].(string)
	n.Body, _ = args["body"].(string)
	if level, ok := args["level"].(string); ok {
		n.Level = domain.Level(level)
	}

	if err := n.Validate(); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("notice rejected: %v", err)), nil
	}

	if err := s.publisher.Publish(ctx, "mcp", n); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("publish failed: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("published %q to %s", n.Title, s.channel)), nil
}

func (s *Server) handleRecent(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (RecentResponse, error) {
	count := 0
	if raw, ok := args["count"].(float64); ok {
		count = int(raw)
	}

	return RecentResponse{
		Notices: s.history.Recent(count),
		Total:   s.history.Total(),
	}, nil
}

func (s *Server) registerResources() {
	// EXPOSE: weakevent://feed
	s.mcpServer.AddResource(mcp.NewResource("weakevent://feed", "Notice Feed Summary",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		summary := map[string]any{
			"channel":  s.channel,
			"retained": s.history.Len(),
			"total":    s.history.Total(),
		}
		jsonBytes, err := json.Marshal(summary)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal feed summary: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "weakevent://feed",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
