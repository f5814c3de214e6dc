// Package mcp exposes the USSD dialog to AI agents over the Model Context Protocol.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/ussdgw/internal/logging"
	"github.com/aretw0/ussdgw/pkg/automaton"
	"github.com/aretw0/ussdgw/pkg/domain"
	"github.com/aretw0/ussdgw/pkg/ports"
	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

const automatonURI = "ussd://automaton"

// Gateway is the part of the USSD gateway driven by agents.
type Gateway interface {
	ports.DialogHandler
	Graph() *automaton.Graph
}

// SendResult is the structured output of send_ussd.
type SendResult struct {
	Kind     string `json:"kind" jsonschema_description:"CON to continue the dialog, END when it is over"`
	Message  string `json:"message" jsonschema_description:"Text shown on the handset"`
	Terminal bool   `json:"terminal" jsonschema_description:"True when the session was closed"`
}

// Server wraps the gateway as an MCP server.
type Server struct {
	gateway   Gateway
	mcpServer *mcpserver.MCPServer
	logger    *slog.Logger
}

// New registers the tools and resources of the gateway.
func New(gw Gateway, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		gateway: gw,
		logger:  logger,
		mcpServer: mcpserver.NewMCPServer("ussdgw", version,
			mcpserver.WithResourceCapabilities(false, false),
			mcpserver.WithToolCapabilities(false),
		),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// ServeStdio serves on standard input and output.
func (s *Server) ServeStdio() error {
	return mcpserver.ServeStdio(s.mcpServer)
}

// ServeSSE serves over Server-Sent Events until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	sse := mcpserver.NewSSEServer(s.mcpServer, mcpserver.WithBaseURL(fmt.Sprintf("http://localhost:%d", port)))

	mux := http.NewServeMux()
	mux.Handle("/sse", sse.SSEHandler())
	mux.Handle("/message", sse.MessageHandler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("mcp server listening", "transport", "sse", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("mcp: shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcplib.NewTool("send_ussd",
		mcplib.WithDescription("Send one keystroke batch to a USSD session, as a handset would. An empty input on a new session id opens the main menu."),
		mcplib.WithString("session_id", mcplib.Required(), mcplib.Description("Session identifier; reuse it to continue a dialog")),
		mcplib.WithString("phone_number", mcplib.Required(), mcplib.Description("Caller phone number, e.g. +237600000000")),
		mcplib.WithString("input", mcplib.Description("User input for the current screen")),
		mcplib.WithOutputSchema[SendResult](),
	), s.handleSend)

	s.mcpServer.AddTool(mcplib.NewTool("get_automaton",
		mcplib.WithDescription("Describe the dialog automaton in service: statistics and states."),
	), s.handleGetAutomaton)
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcplib.NewResource(automatonURI, "USSD Automaton",
		mcplib.WithResourceDescription("Statistics and states of the dialog automaton"),
		mcplib.WithMIMEType("application/json"),
	), s.handleAutomatonResource)
}

func (s *Server) handleSend(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")
	phone := request.GetString("phone_number", "")
	if sessionID == "" || phone == "" {
		return mcplib.NewToolResultError("session_id and phone_number are required"), nil
	}

	d := s.gateway.Handle(ctx, domain.Request{
		SessionID: sessionID,
		Phone:     phone,
		Input:     request.GetString("input", ""),
	})
	res := SendResult{Kind: string(d.Kind), Message: d.Message, Terminal: d.IsEnd()}
	return mcplib.NewToolResultStructured(res, d.String()), nil
}

type automatonView struct {
	Stats  automaton.Stats `json:"stats"`
	States []stateView     `json:"states"`
}

type stateView struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Message  string   `json:"message"`
	Options  []string `json:"options,omitempty"`
	Validate string   `json:"validationType,omitempty"`
	Hook     string   `json:"businessServiceMethod,omitempty"`
}

func (s *Server) describe() ([]byte, error) {
	g := s.gateway.Graph()
	view := automatonView{Stats: g.Stats()}
	for _, st := range g.States() {
		sv := stateView{
			ID:       st.ID,
			Type:     string(st.Kind),
			Message:  st.Message,
			Validate: st.ValidationType,
			Hook:     st.Hook,
		}
		for _, o := range st.Menu {
			sv.Options = append(sv.Options, o.Key+". "+o.Label)
		}
		view.States = append(view.States, sv)
	}
	return json.MarshalIndent(view, "", "  ")
}

func (s *Server) handleGetAutomaton(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	data, err := s.describe()
	if err != nil {
		return mcplib.NewToolResultError(fmt.Sprintf("describe automaton: %v", err)), nil
	}
	return mcplib.NewToolResultText(string(data)), nil
}

func (s *Server) handleAutomatonResource(ctx context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	data, err := s.describe()
	if err != nil {
		return nil, fmt.Errorf("mcp: describe automaton: %w", err)
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      automatonURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
