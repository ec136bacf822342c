package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grantcarthew/tagfmt/internal/api"
	"github.com/grantcarthew/tagfmt/internal/tagfmt"
)

// startServer starts a server on a free port and stops it when the test
// ends.
func startServer(t *testing.T) *Server {
	t.Helper()

	srv, err := New(Config{Host: "127.0.0.1", Defaults: tagfmt.DefaultConfig()})
	require.NoError(t, err)
	require.NoError(t, srv.Start(context.Background()))

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, srv.Stop(ctx))
	})
	return srv
}

// post sends a JSON body and decodes the api.Response.
func post(t *testing.T, url, body string) (int, api.Response) {
	t.Helper()

	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out api.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestNewServer(t *testing.T) {
	bad := tagfmt.DefaultConfig()
	bad.MaxLineLength = 0

	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:    "valid config",
			config:  Config{Defaults: tagfmt.DefaultConfig()},
			wantErr: false,
		},
		{
			name:    "invalid defaults",
			config:  Config{Defaults: bad},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestServerStartStop(t *testing.T) {
	srv, err := New(Config{Defaults: tagfmt.DefaultConfig()})
	require.NoError(t, err)
	assert.Equal(t, "localhost", srv.config.Host)
	assert.Empty(t, srv.URL())

	ctx := context.Background()
	require.NoError(t, srv.Start(ctx))

	assert.True(t, srv.IsRunning())
	assert.NotZero(t, srv.Port())
	assert.NotEmpty(t, srv.Addr())
	assert.True(t, strings.HasPrefix(srv.URL(), "http://"))
	assert.Error(t, srv.Start(ctx), "second Start should fail")

	resp, err := http.Get(srv.URL() + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok\n", string(body))

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(stopCtx))
	assert.False(t, srv.IsRunning())
	assert.NoError(t, srv.Stop(stopCtx), "second Stop is a no-op")
}

func TestHandleFormat(t *testing.T) {
	srv := startServer(t)
	url := srv.URL() + "/api/format"

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantOK     bool
		wantData   api.FormatData
	}{
		{
			name:       "defaults",
			body:       `{"input":"<div><p>x</p></div>"}`,
			wantStatus: http.StatusOK,
			wantOK:     true,
			wantData:   api.FormatData{Output: "<div>\n  <p>\n    x\n  </p>\n</div>", Changed: true},
		},
		{
			name:       "config overrides",
			body:       `{"input":"<p>x</p>","config":{"tabs":true}}`,
			wantStatus: http.StatusOK,
			wantOK:     true,
			wantData:   api.FormatData{Output: "<p>\n\tx\n</p>", Changed: true},
		},
		{
			name:       "unchanged",
			body:       `{"input":"<br>"}`,
			wantStatus: http.StatusOK,
			wantOK:     true,
			wantData:   api.FormatData{Output: "<br>", Changed: false},
		},
		{
			name:       "invalid json",
			body:       `{"input":`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown field",
			body:       `{"input":"x","indent":4}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid config",
			body:       `{"input":"x","config":{"raw_text_exit":"never"}}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := post(t, url, tt.body)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantOK, resp.OK)
			if !tt.wantOK {
				assert.NotEmpty(t, resp.Error)
				return
			}
			var data api.FormatData
			require.NoError(t, json.Unmarshal(resp.Data, &data))
			assert.Equal(t, tt.wantData, data)
		})
	}
}

func TestDecodeBody_Limit(t *testing.T) {
	body := `{"input":"` + strings.Repeat("a", MaxBodySize) + `"}`
	r := httptest.NewRequest(http.MethodPost, "/api/format", strings.NewReader(body))
	w := httptest.NewRecorder()

	var req api.FormatRequest
	status, err := decodeBody(w, r, &req)
	assert.Error(t, err)
	assert.Equal(t, http.StatusRequestEntityTooLarge, status)
}

func TestHandleFormat_MethodNotAllowed(t *testing.T) {
	srv := startServer(t)

	resp, err := http.Get(srv.URL() + "/api/format")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHandleCheck(t *testing.T) {
	srv := startServer(t)

	status, resp := post(t, srv.URL()+"/api/check", `{"input":"<div><span></div>"}`)
	require.Equal(t, http.StatusOK, status)
	require.True(t, resp.OK)

	var data api.CheckData
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.True(t, data.Errors)
	require.Len(t, data.Issues, 1)
	assert.Equal(t, 12, data.Issues[0].Column)
}

func TestHandleConfig(t *testing.T) {
	srv := startServer(t)

	resp, err := http.Get(srv.URL() + "/api/config")
	require.NoError(t, err)
	defer resp.Body.Close()

	var out api.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.True(t, out.OK)

	var data api.ConfigData
	require.NoError(t, json.Unmarshal(out.Data, &data))
	assert.Equal(t, api.NewConfigData(tagfmt.DefaultConfig()), data)
}

func TestWebSocket(t *testing.T) {
	srv := startServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL(), "http") + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	exchange := func(msg string) api.Response {
		t.Helper()
		require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(msg)))
		typ, data, err := conn.Read(ctx)
		require.NoError(t, err)
		require.Equal(t, websocket.MessageText, typ)
		var resp api.Response
		require.NoError(t, json.Unmarshal(data, &resp))
		return resp
	}

	resp := exchange(`{"input":"<ul><li>a</li></ul>"}`)
	require.True(t, resp.OK, resp.Error)
	var data api.FormatData
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, "<ul>\n  <li>\n    a\n  </li>\n</ul>", data.Output)

	// Errors are reported without closing the connection.
	resp = exchange(`not json`)
	assert.False(t, resp.OK)
	assert.NotEmpty(t, resp.Error)

	resp = exchange(`{"input":"<p>x</p>","config":{"max_line_length":-1}}`)
	assert.False(t, resp.OK)

	resp = exchange(`{"input":""}`)
	assert.True(t, resp.OK)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))
}

func TestWebSocket_ClosedOnStop(t *testing.T) {
	srv, err := New(Config{Host: "127.0.0.1", Defaults: tagfmt.DefaultConfig()})
	require.NoError(t, err)
	require.NoError(t, srv.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL(), "http") + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	// Make sure the handler is running before stopping.
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"input":"x"}`)))
	_, _, err = conn.Read(ctx)
	require.NoError(t, err)

	require.NoError(t, srv.Stop(ctx))

	_, _, err = conn.Read(ctx)
	assert.Error(t, err)
}

func TestPortAutoDetection(t *testing.T) {
	tests := []struct {
		name string
		host string
	}{
		{"localhost", "localhost"},
		{"127.0.0.1", "127.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			port, err := findAvailablePort(tt.host)
			if err != nil {
				t.Fatalf("findAvailablePort() error = %v", err)
			}

			if port == 0 {
				t.Error("Port should not be 0")
			}

			// Verify port is available
			if !isPortAvailable(tt.host, port) {
				t.Errorf("Port %d should be available", port)
			}
		})
	}
}
