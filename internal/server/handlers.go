package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/grantcarthew/tagfmt/internal/api"
)

// MaxBodySize limits request bodies and WebSocket messages.
const MaxBodySize = 4 << 20

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/format", s.handleFormat)
	mux.HandleFunc("POST /api/check", s.handleCheck)
	mux.HandleFunc("GET /api/config", s.handleConfig)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	return s.logRequests(mux)
}

// logRequests logs each request and how long it took.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		s.debugLog("%s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
		s.debugLog("done: %s %s (%v)", r.Method, r.URL.Path, time.Since(start))
	})
}

func (s *Server) handleFormat(w http.ResponseWriter, r *http.Request) {
	var req api.FormatRequest
	if status, err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, status, api.ErrorResponse(err.Error()))
		return
	}

	data, err := api.Format(req, s.config.Defaults)
	if err != nil {
		s.debugLog("format rejected: %v", err)
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, api.SuccessResponse(data))
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req api.CheckRequest
	if status, err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, status, api.ErrorResponse(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, api.SuccessResponse(api.Check(req)))
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.SuccessResponse(api.NewConfigData(s.config.Defaults)))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "ok")
}

// decodeBody decodes a JSON request body into v. On failure it returns the
// HTTP status to reply with.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) (int, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return http.StatusRequestEntityTooLarge, fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit)
		}
		return http.StatusBadRequest, fmt.Errorf("invalid request: %w", err)
	}
	return http.StatusOK, nil
}

func writeJSON(w http.ResponseWriter, status int, resp api.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
