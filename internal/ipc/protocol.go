// Package ipc serves the formatter over a Unix socket using
// newline-delimited JSON. Editors keep one connection open and send a
// request per buffer.
package ipc

import (
	"github.com/grantcarthew/tagfmt/internal/api"
	"github.com/grantcarthew/tagfmt/internal/config"
	"github.com/grantcarthew/tagfmt/internal/tagfmt"
)

// Commands understood by the handler.
const (
	CmdPing   = "ping"
	CmdFormat = "format"
	CmdCheck  = "check"
	CmdConfig = "config"
)

// Request is one line sent by a client.
type Request struct {
	Cmd    string            `json:"cmd"`
	Input  string            `json:"input,omitempty"`
	Config *config.Overrides `json:"config,omitempty"`
}

// Response is one line sent back. It is the same envelope the HTTP API uses.
type Response = api.Response

// Handler processes IPC requests and returns responses.
type Handler func(req Request) Response

// NewHandler returns a handler that formats with defaults unless a request
// carries its own overrides.
func NewHandler(defaults tagfmt.Config) Handler {
	return func(req Request) Response {
		switch req.Cmd {
		case CmdPing:
			return api.SuccessResponse(nil)
		case CmdFormat:
			data, err := api.Format(api.FormatRequest{Input: req.Input, Config: req.Config}, defaults)
			if err != nil {
				return api.ErrorResponse(err.Error())
			}
			return api.SuccessResponse(data)
		case CmdCheck:
			return api.SuccessResponse(api.Check(api.CheckRequest{Input: req.Input}))
		case CmdConfig:
			return api.SuccessResponse(api.NewConfigData(defaults))
		default:
			return api.ErrorResponse("unknown command: " + req.Cmd)
		}
	}
}
