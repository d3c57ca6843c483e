// Package mcp exposes one host session as Model Context Protocol tools, so an
// agent can drive the shell: navigate, go back, read the live document.
package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/mosaic"
	"github.com/aretw0/mosaic/internal/logging"
	"github.com/aretw0/mosaic/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Resource URIs.
const (
	DocumentURI     = "mosaic://document"
	ApplicationsURI = "mosaic://applications"
)

// StateResponse is the structured result of every session tool.
type StateResponse struct {
	URL       string         `json:"url" jsonschema_description:"The current URL"`
	Mounted   string         `json:"mounted,omitempty" jsonschema_description:"Location of the mounted application, empty when idle"`
	History   []string       `json:"history" jsonschema_description:"History entries, oldest first"`
	Outcome   domain.Outcome `json:"outcome,omitempty" jsonschema_description:"What the navigation did: mounted, dispatched, unchanged or unhandled"`
	Conflict  []string       `json:"conflict,omitempty" jsonschema_description:"Locations that all claim the URL, when the navigation was refused"`
	Error     string         `json:"error,omitempty" jsonschema_description:"Why the navigation failed"`
	Unhandled bool           `json:"unhandled,omitempty" jsonschema_description:"True when no application owns the URL"`
}

// ApplicationInfo describes one declared application.
type ApplicationInfo struct {
	Location      string `json:"location"`
	Parent        string `json:"parent,omitempty"`
	ScriptsLoaded bool   `json:"scripts_loaded"`
	Mounted       bool   `json:"mounted"`
}

// NavigateArgs are the arguments of the navigate tool.
type NavigateArgs struct {
	URL string `json:"url"`
}

// HashArgs are the arguments of the change_hash tool.
type HashArgs struct {
	Fragment string `json:"fragment"`
}

// Server wraps a Host and exposes it as an MCP Server.
type Server struct {
	host      *mosaic.Host
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(host *mosaic.Host, version string, opts ...Option) *Server {
	s := &Server{
		host:      host,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("mosaic-mcp", version),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves on the given port using SSE until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

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
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("navigate",
		mcp.WithDescription("Navigate the shell to a URL, absolute or relative to the current one."),
		mcp.WithString("url", mcp.Required(), mcp.Description("The URL to navigate to")),
		mcp.WithOutputSchema[StateResponse](),
	), mcp.NewStructuredToolHandler(s.handleNavigate))

	s.mcpServer.AddTool(mcp.NewTool("back",
		mcp.WithDescription("Go back one history entry, delivered as a popstate event."),
		mcp.WithOutputSchema[StateResponse](),
	), mcp.NewStructuredToolHandler(s.handleBack))

	s.mcpServer.AddTool(mcp.NewTool("change_hash",
		mcp.WithDescription("Replace the fragment of the current URL, delivered as a hashchange event."),
		mcp.WithString("fragment", mcp.Required(), mcp.Description("The new fragment, without '#'")),
		mcp.WithOutputSchema[StateResponse](),
	), mcp.NewStructuredToolHandler(s.handleChangeHash))

	s.mcpServer.AddTool(mcp.NewTool("get_state",
		mcp.WithDescription("Get the current URL, mounted application and history."),
		mcp.WithOutputSchema[StateResponse](),
	), mcp.NewStructuredToolHandler(s.handleGetState))

	s.mcpServer.AddTool(mcp.NewTool("get_document",
		mcp.WithDescription("Get the live document as HTML."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		doc, err := s.document()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("render failed: %v", err)), nil
		}
		return mcp.NewToolResultText(doc), nil
	})
}

func (s *Server) handleNavigate(ctx context.Context, _ mcp.CallToolRequest, args NavigateArgs) (StateResponse, error) {
	if args.URL == "" {
		return StateResponse{}, errors.New("url is required")
	}
	outcome, err := s.host.Navigate(ctx, args.URL)
	return s.settle(outcome, err)
}

func (s *Server) handleBack(ctx context.Context, _ mcp.CallToolRequest, _ struct{}) (StateResponse, error) {
	outcome, err := s.host.Back(ctx)
	return s.settle(outcome, err)
}

func (s *Server) handleChangeHash(ctx context.Context, _ mcp.CallToolRequest, args HashArgs) (StateResponse, error) {
	outcome, err := s.host.ChangeHash(ctx, args.Fragment)
	return s.settle(outcome, err)
}

func (s *Server) handleGetState(_ context.Context, _ mcp.CallToolRequest, _ struct{}) (StateResponse, error) {
	return s.state(""), nil
}

// settle reports conflicts and failed transitions in the result, since the
// session itself is still usable after them. Other errors fail the call.
func (s *Server) settle(outcome domain.Outcome, err error) (StateResponse, error) {
	resp := s.state(outcome)
	if err == nil {
		return resp, nil
	}

	var conflict *domain.ConflictError
	var transition *domain.TransitionError
	switch {
	case errors.As(err, &conflict):
		resp.Conflict = conflict.Locations
	case errors.As(err, &transition):
		s.logger.Warn("MCP navigation failed", "phase", transition.Phase, "app", transition.Location, "err", err)
	default:
		return StateResponse{}, err
	}
	resp.Error = err.Error()
	return resp, nil
}

func (s *Server) state(outcome domain.Outcome) StateResponse {
	snap := s.host.Snapshot()
	return StateResponse{
		URL:       snap.URL,
		Mounted:   snap.Mounted,
		History:   snap.History,
		Outcome:   outcome,
		Unhandled: outcome == domain.OutcomeUnhandled,
	}
}

func (s *Server) document() (string, error) {
	var buf bytes.Buffer
	if err := s.host.Render(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (s *Server) applications() []ApplicationInfo {
	apps := s.host.Applications()
	out := make([]ApplicationInfo, len(apps))
	for i, app := range apps {
		out[i] = ApplicationInfo{
			Location:      app.Location,
			Parent:        app.ParentLocation,
			ScriptsLoaded: app.ScriptsLoaded,
			Mounted:       app.Mounted,
		}
	}
	return out
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(DocumentURI, "Live Document",
		mcp.WithMIMEType("text/html"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		doc, err := s.document()
		if err != nil {
			return nil, fmt.Errorf("failed to render document: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: DocumentURI, MIMEType: "text/html", Text: doc},
		}, nil
	})

	s.mcpServer.AddResource(mcp.NewResource(ApplicationsURI, "Declared Applications",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(s.applications())
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: ApplicationsURI, MIMEType: "application/json", Text: string(jsonBytes)},
		}, nil
	})
}
