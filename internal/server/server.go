// Package server exposes the formatter over HTTP and WebSocket.
package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/grantcarthew/tagfmt/internal/tagfmt"
)

// Config holds server configuration.
type Config struct {
	Host     string        // Bind host ("localhost" or "0.0.0.0")
	Port     int           // Server port (0 = auto-detect)
	Defaults tagfmt.Config // Settings that request overrides are layered over
	Debug    bool          // Enable debug logging
}

// Server is an HTTP server for formatting requests.
type Server struct {
	config   Config
	httpSrv  *http.Server
	listener net.Listener
	mu       sync.RWMutex
	running  bool
	debugLog func(format string, args ...any)

	// Hijacked WebSocket connections outlive http.Server.Shutdown, so they
	// run under their own context and are waited for separately.
	connCtx    context.Context
	cancelConn context.CancelFunc
	conns      sync.WaitGroup
}

// New creates a new server with the given configuration.
func New(cfg Config) (*Server, error) {
	if err := cfg.Defaults.Validate(); err != nil {
		return nil, err
	}

	if cfg.Host == "" {
		cfg.Host = "localhost"
	}

	s := &Server{
		config: cfg,
	}

	if cfg.Debug {
		s.debugLog = func(format string, args ...any) {
			log.Printf("[SERVER] "+format, args...)
		}
	} else {
		s.debugLog = func(format string, args ...any) {}
	}

	return s, nil
}

// Start starts the server in the background.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("server already running")
	}

	// Find available port if needed
	port := s.config.Port
	if port == 0 {
		var err error
		port, err = findAvailablePort(s.config.Host)
		if err != nil {
			return fmt.Errorf("failed to find available port: %w", err)
		}
		s.debugLog("Auto-detected port: %d", port)
	}

	addr := net.JoinHostPort(s.config.Host, fmt.Sprint(port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener
	s.connCtx, s.cancelConn = context.WithCancel(context.WithoutCancel(ctx))

	s.httpSrv = &http.Server{
		Handler:      s.routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	s.running = true

	go func() {
		s.debugLog("HTTP server started on http://%s", addr)
		if err := s.httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.debugLog("HTTP server error: %v", err)
		}
	}()

	return nil
}

// Stop shuts the server down, closing open WebSocket connections.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	err := s.httpSrv.Shutdown(ctx)
	s.cancelConn()
	s.conns.Wait()

	if err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.debugLog("Server stopped")
	return nil
}

// Addr returns the server's listening address.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Port returns the server's listening port.
func (s *Server) Port() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.listener == nil {
		return 0
	}
	addr := s.listener.Addr().(*net.TCPAddr)
	return addr.Port
}

// URL returns the server's full URL.
func (s *Server) URL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.listener == nil {
		return ""
	}

	addr := s.listener.Addr().(*net.TCPAddr)
	host := addr.IP.String()
	if host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, fmt.Sprint(addr.Port))
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// findAvailablePort finds an available port on the given host.
func findAvailablePort(host string) (int, error) {
	// Try the usual port first
	commonPorts := []int{7077, 8080, 8000}

	for _, port := range commonPorts {
		if isPortAvailable(host, port) {
			return port, nil
		}
	}

	// Fall back to OS-assigned port
	listener, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return 0, err
	}
	defer listener.Close()

	port := listener.Addr().(*net.TCPAddr).Port
	return port, nil
}

// isPortAvailable checks if a port is available for binding.
func isPortAvailable(host string, port int) bool {
	listener, err := net.Listen("tcp", net.JoinHostPort(host, fmt.Sprint(port)))
	if err != nil {
		return false
	}
	listener.Close()
	return true
}
