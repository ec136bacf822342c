package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/grantcarthew/tagfmt/internal/ipc"
	"github.com/grantcarthew/tagfmt/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the formatter over HTTP and WebSocket",
	Long: `Start an HTTP server exposing the formatter.

Endpoints:
  POST /api/format   {"input": "...", "config": {...}} -> {"ok": true, "data": {"output": "...", "changed": true}}
  POST /api/check    {"input": "..."}                  -> nesting issues
  GET  /api/config                                     -> effective defaults
  GET  /healthz                                        -> ok
  GET  /ws           WebSocket; each text message is a format request

With --socket the same requests are also answered on a Unix socket, one JSON
object per line: {"cmd": "format", "input": "...", "config": {...}}. Commands
are ping, format, check and config. 'tagfmt format --socket' is a client.

The "config" object takes the same keys as .tagfmt.yaml. Settings from the
config file and formatter flags become the server defaults.

Examples:
  tagfmt serve                     # Auto-detect a free port on localhost
  tagfmt serve --port 7077
  tagfmt serve --host 0.0.0.0 --tabs
  tagfmt serve --socket "$XDG_RUNTIME_DIR/tagfmt/tagfmt.sock"

Press Ctrl+C to stop.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var (
	servePort   int
	serveHost   string
	serveSocket string
	serveFlags  formatterFlags
)

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Server port (0 = auto-detect)")
	serveCmd.Flags().StringVar(&serveHost, "host", "localhost", "Bind host (localhost or 0.0.0.0)")
	serveCmd.Flags().StringVar(&serveSocket, "socket", "", "Also listen on this Unix socket (\"default\" for the XDG runtime path)")
	serveFlags.register(serveCmd.Flags())

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	s, err := resolveSettings(cmd.Flags(), &serveFlags)
	if err != nil {
		return outputError(err.Error())
	}
	debugf("host=%q port=%d", serveHost, servePort)

	srv, err := server.New(server.Config{
		Host:     serveHost,
		Port:     servePort,
		Defaults: s.Formatter,
		Debug:    Debug,
	})
	if err != nil {
		return outputError(err.Error())
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		return outputError(err.Error())
	}

	var sock *ipc.Server
	if serveSocket != "" {
		path := serveSocket
		if path == "default" {
			path = ipc.DefaultSocketPath()
		}
		if sock, err = ipc.NewServer(path, ipc.NewHandler(s.Formatter)); err != nil {
			srv.Stop(context.Background())
			return outputError(err.Error())
		}
		go func() {
			if err := sock.Serve(ctx); err != nil {
				debugf("socket server: %v", err)
			}
		}()
	}

	if JSONOutput {
		data := map[string]any{"url": srv.URL(), "port": srv.Port()}
		if sock != nil {
			data["socket"] = sock.SocketPath()
		}
		outputSuccess(data)
	} else {
		fmt.Fprintf(stdout, "Server started: %s\n", srv.URL())
		if sock != nil {
			fmt.Fprintf(stdout, "Socket: %s\n", sock.SocketPath())
		}
		fmt.Fprintln(stdout, "Press Ctrl+C to stop the server")
	}

	<-ctx.Done()
	debugf("shutting down")
	if sock != nil {
		sock.Close()
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Stop(stopCtx); err != nil {
		return outputError(err.Error())
	}
	return nil
}

// signalContext returns the command's context, cancelled on SIGINT or
// SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
}
