package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/grantcarthew/tagfmt/internal/api"
)

// handleWebSocket answers every text message with one formatted response.
// Messages are api.FormatRequest values.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	if !s.running {
		s.mu.RUnlock()
		http.Error(w, "server stopping", http.StatusServiceUnavailable)
		return
	}
	s.conns.Add(1)
	s.mu.RUnlock()
	defer s.conns.Done()

	// The server's read and write timeouts must not apply to a long-lived
	// connection.
	rc := http.NewResponseController(w)
	rc.SetReadDeadline(time.Time{})
	rc.SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.debugLog("websocket accept failed: %v", err)
		return
	}
	defer conn.CloseNow()

	conn.SetReadLimit(MaxBodySize)
	ctx := s.connCtx

	s.debugLog("websocket connected: %s", r.RemoteAddr)
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				s.debugLog("websocket closed: %s", r.RemoteAddr)
			default:
				if !errors.Is(err, ctx.Err()) {
					s.debugLog("websocket read error: %v", err)
				}
			}
			return
		}
		if typ != websocket.MessageText {
			conn.Close(websocket.StatusUnsupportedData, "text messages only")
			return
		}

		out, err := json.Marshal(s.formatMessage(data))
		if err != nil {
			s.debugLog("websocket marshal error: %v", err)
			return
		}
		if err := conn.Write(ctx, websocket.MessageText, out); err != nil {
			s.debugLog("websocket write error: %v", err)
			return
		}
	}
}

func (s *Server) formatMessage(data []byte) api.Response {
	var req api.FormatRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return api.ErrorResponse("invalid request: " + err.Error())
	}
	out, err := api.Format(req, s.config.Defaults)
	if err != nil {
		return api.ErrorResponse(err.Error())
	}
	return api.SuccessResponse(out)
}
