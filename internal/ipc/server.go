package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/grantcarthew/tagfmt/internal/api"
)

// MaxLineSize bounds a single request line.
const MaxLineSize = 4 << 20

// Server is a Unix socket IPC server.
type Server struct {
	socketPath string
	listener   net.Listener
	handler    Handler
	wg         sync.WaitGroup
	closed     chan struct{}
	closeOnce  sync.Once
}

// NewServer creates a new Unix socket server.
// The socket file is created at the specified path.
func NewServer(socketPath string, handler Handler) (*Server, error) {
	dir := filepath.Dir(socketPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create socket directory: %w", err)
	}

	// A stale socket from a crashed server blocks Listen.
	if err := os.Remove(socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create unix socket: %w", err)
	}

	// Set socket permissions to owner-only
	if err := os.Chmod(socketPath, 0600); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("failed to set socket permissions: %w", err)
	}

	return &Server{
		socketPath: socketPath,
		listener:   listener,
		handler:    handler,
		closed:     make(chan struct{}),
	}, nil
}

// Serve accepts connections until ctx is done or Close is called.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		select {
		case <-ctx.Done():
			_ = s.Close()
		case <-s.closed:
		}
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closed:
				return nil
			default:
				return fmt.Errorf("accept error: %w", err)
			}
		}

		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

// handleConn answers each request line on conn until the client hangs up.
func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer func() { _ = conn.Close() }()

	// Close interrupts the blocking read below. The watcher exits with
	// the connection.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-s.closed:
			_ = conn.Close()
		case <-done:
		}
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineSize)

	for scanner.Scan() {
		var req Request
		resp := api.ErrorResponse("invalid request format")
		if err := json.Unmarshal(scanner.Bytes(), &req); err == nil {
			resp = s.handler(req)
		}
		if err := writeResponse(conn, resp); err != nil {
			return
		}
	}

	err := scanner.Err()
	switch {
	case err == nil, errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
	case errors.Is(err, bufio.ErrTooLong):
		_ = writeResponse(conn, api.ErrorResponse("request too large"))
	default:
		log.Printf("ipc: unexpected read error: %v", err)
	}
}

// writeResponse sends a JSON response line to the client.
func writeResponse(conn net.Conn, resp Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = conn.Write(data)
	return err
}

// SocketPath returns the path to the Unix socket.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Close stops the server and removes the socket file.
// Safe to call multiple times concurrently.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		err = s.listener.Close()
		s.wg.Wait()
		_ = os.Remove(s.socketPath)
	})
	return err
}

// DefaultSocketPath returns the XDG-compliant socket path.
func DefaultSocketPath() string {
	if runtimeDir := os.Getenv("XDG_RUNTIME_DIR"); runtimeDir != "" {
		return filepath.Join(runtimeDir, "tagfmt", "tagfmt.sock")
	}

	// Fallback to /tmp/tagfmt-<uid>/
	return filepath.Join(fmt.Sprintf("/tmp/tagfmt-%d", os.Getuid()), "tagfmt.sock")
}
