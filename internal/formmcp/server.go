// Package formmcp exposes a mounted form over MCP so an agent can fill it in
// step by step through the same state machine a person uses.
package formmcp

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/mark3labs/stepform/internal/definition"
	"github.com/mark3labs/stepform/internal/logger"
	"github.com/mark3labs/stepform/internal/stepform"
)

var log = logger.Default.Named("mcp")

// SubmitFunc receives the values of a valid submission.
type SubmitFunc func(ctx context.Context, values stepform.Values) error

// Server serves one form instance over streamable HTTP.
type Server struct {
	inst     *definition.Instance
	machine  *stepform.Machine
	onSubmit SubmitFunc

	mcpServer  *server.MCPServer
	httpServer *server.StreamableHTTPServer
	addr       string
	mu         sync.Mutex
}

// New creates a server for a mounted form. The server is not started until
// Start is called. onSubmit may be nil.
func New(inst *definition.Instance, m *stepform.Machine, onSubmit SubmitFunc) *Server {
	s := &Server{
		inst:     inst,
		machine:  m,
		onSubmit: onSubmit,
	}
	s.mcpServer = server.NewMCPServer(
		"stepform-"+inst.Form.Name,
		"1.0.0",
		server.WithToolCapabilities(true),
	)
	s.registerTools()
	return s
}

// Start listens on addr. A zero port picks a free one. Returns the address
// actually used.
func (s *Server) Start(ctx context.Context, addr string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.httpServer != nil {
		return "", fmt.Errorf("server already started")
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.addr = listener.Addr().String()
	// The HTTP server binds again below; the window between close and bind
	// is acceptable for a local tool server.
	_ = listener.Close()

	s.httpServer = server.NewStreamableHTTPServer(
		s.mcpServer,
		server.WithStateLess(true),
	)

	httpServer := s.httpServer
	listenAddr := s.addr
	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Start(listenAddr); err != nil {
			log.Error("MCP server error: %v", err)
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		if err != nil {
			s.httpServer = nil
			return "", fmt.Errorf("failed to start HTTP server: %w", err)
		}
	case <-time.After(100 * time.Millisecond):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	log.Info("Serving form %s on %s", s.inst.Form.Name, s.addr)
	return s.addr, nil
}

// Stop shuts the HTTP server down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}
	s.httpServer = nil
	return nil
}

// URL returns the MCP endpoint.
func (s *Server) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("http://%s/mcp", s.addr)
}

// MCPServer returns the underlying server, e.g. for stdio transport.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}
