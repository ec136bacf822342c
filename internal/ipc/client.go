package ipc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"time"
)

// ErrNotRunning is returned when no server is listening on the socket.
var ErrNotRunning = errors.New("tagfmt server is not running")

// Client is a Unix socket IPC client. It is not safe for concurrent use.
type Client struct {
	conn   net.Conn
	reader *bufio.Reader
}

// DialPath connects to the server at the specified socket path.
func DialPath(socketPath string) (*Client, error) {
	if _, err := os.Stat(socketPath); errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotRunning
	}

	conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", socketPath, err)
	}

	return &Client{
		conn:   conn,
		reader: bufio.NewReader(conn),
	}, nil
}

// Send sends a request and waits for its response.
func (c *Client) Send(req Request) (Response, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	data = append(data, '\n')
	if _, err := c.conn.Write(data); err != nil {
		return Response{}, fmt.Errorf("failed to send request: %w", err)
	}

	line, err := c.reader.ReadBytes('\n')
	if err != nil {
		return Response{}, fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return Response{}, fmt.Errorf("failed to parse response: %w", err)
	}

	return resp, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// IsRunningAt reports whether a server accepts connections at socketPath.
func IsRunningAt(socketPath string) bool {
	if _, err := os.Stat(socketPath); errors.Is(err, os.ErrNotExist) {
		return false
	}

	conn, err := net.DialTimeout("unix", socketPath, time.Second)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
