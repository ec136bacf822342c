// Package api defines the JSON protocol shared by the HTTP server, the
// WebSocket channel and the CLI's --json output.
package api

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/grantcarthew/tagfmt/internal/config"
	"github.com/grantcarthew/tagfmt/internal/htmlcheck"
	"github.com/grantcarthew/tagfmt/internal/tagfmt"
)

// Response is the envelope for every API reply.
type Response struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// FormatRequest is the body of POST /api/format and of each WebSocket
// message. Config overrides are layered over the server defaults.
type FormatRequest struct {
	Input  string            `json:"input"`
	Config *config.Overrides `json:"config,omitempty"`
}

// FormatData is the response data for a format request.
type FormatData struct {
	Output  string `json:"output"`
	Changed bool   `json:"changed"`
}

// CheckRequest is the body of POST /api/check.
type CheckRequest struct {
	Input string `json:"input"`
}

// CheckData is the response data for a check request.
type CheckData struct {
	Issues []htmlcheck.Issue `json:"issues"`
	Errors bool              `json:"errors"`
}

// ConfigData describes an effective formatter configuration.
type ConfigData struct {
	Indent           string `json:"indent"`
	MaxLineLength    int    `json:"max_line_length"`
	WrapAttributes   string `json:"wrap_attributes"`
	SortAttributes   bool   `json:"sort_attributes"`
	SortLocale       string `json:"sort_locale,omitempty"`
	PreserveNewlines bool   `json:"preserve_newlines"`
	MaxNewlines      int    `json:"max_newlines"`
	RawTextExit      string `json:"raw_text_exit"`
	LeafTags         bool   `json:"leaf_tags"`
}

// NewConfigData converts cfg for display.
func NewConfigData(cfg tagfmt.Config) ConfigData {
	indent := "tab"
	if cfg.IndentUnit != tagfmt.IndentTab {
		indent = fmt.Sprintf("%d spaces", cfg.IndentWidth())
	}
	return ConfigData{
		Indent:           indent,
		MaxLineLength:    cfg.MaxLineLength,
		WrapAttributes:   string(cfg.WrapMode),
		SortAttributes:   cfg.SortAttributes,
		SortLocale:       cfg.SortLocale,
		PreserveNewlines: cfg.PreserveNewlines,
		MaxNewlines:      cfg.MaxConsecutiveNewlines,
		RawTextExit:      string(cfg.RawTextExit),
		LeafTags:         cfg.LeafTags,
	}
}

// Format layers req.Config over defaults and formats req.Input. The only
// error is an invalid config, which wraps tagfmt.ErrInvalidConfig.
func Format(req FormatRequest, defaults tagfmt.Config) (FormatData, error) {
	cfg := defaults
	if req.Config != nil {
		var err error
		cfg, err = req.Config.Apply(defaults)
		if err != nil {
			return FormatData{}, err
		}
	}
	out := tagfmt.Format(req.Input, cfg)
	return FormatData{Output: out, Changed: out != req.Input}, nil
}

// Check validates the nesting of req.Input.
func Check(req CheckRequest) CheckData {
	res := htmlcheck.Check(req.Input)
	issues := res.Issues
	if issues == nil {
		issues = []htmlcheck.Issue{}
	}
	return CheckData{Issues: issues, Errors: res.HasErrors()}
}

// SuccessResponse creates a successful response with the given data.
func SuccessResponse(data any) Response {
	var raw json.RawMessage
	if data != nil {
		var err error
		raw, err = json.Marshal(data)
		if err != nil {
			log.Printf("api: failed to marshal response data: %v", err)
			return ErrorResponse("internal error: failed to marshal response")
		}
	}
	return Response{OK: true, Data: raw}
}

// ErrorResponse creates an error response with the given message.
func ErrorResponse(msg string) Response {
	return Response{OK: false, Error: msg}
}
