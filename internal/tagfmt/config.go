package tagfmt

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// ErrInvalidConfig is wrapped by every configuration validation error.
var ErrInvalidConfig = errors.New("invalid config")

// WrapMode controls attribute wrapping of opening tags.
type WrapMode string

const (
	// WrapAuto splits attributes onto their own lines whenever a tag has any.
	WrapAuto WrapMode = "auto"
	// WrapForce behaves exactly like WrapAuto.
	WrapForce WrapMode = "force"
	// WrapNone leaves opening tags on a single line.
	WrapNone WrapMode = "none"
)

// RawTextExit selects how the end of a script or style region is detected.
type RawTextExit string

const (
	// RawTextClosingTag ends the region at the matching </script> or </style>,
	// or immediately when the opening tag is self-closing.
	RawTextClosingTag RawTextExit = "closing-tag"
	// RawTextSlashGT ends the region at the first "/>" seen inside it.
	RawTextSlashGT RawTextExit = "slash-gt"
)

// IndentTab is the indent unit for tab indentation.
const IndentTab = "\t"

// IndentSpaces returns an indent unit of n spaces.
func IndentSpaces(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat(" ", n)
}

// Config holds formatter settings. It is passed by value and never mutated
// by Format.
//
// A newline in text that does not end the line, because PreserveNewlines is
// off or MaxConsecutiveNewlines has been reached, is replaced by a single
// space rather than removed, so words on either side stay apart.
type Config struct {
	IndentUnit             string      // Text emitted per indentation level
	MaxLineLength          int         // Text runs reaching this many characters are broken (<= 0 disables)
	WrapMode               WrapMode    // Attribute wrapping: auto, force or none
	SortAttributes         bool        // Sort wrapped attributes
	SortLocale             string      // BCP 47 tag for collation; empty means byte order
	PreserveNewlines       bool        // Newlines in text end the line; otherwise they become a space
	MaxConsecutiveNewlines int         // Cap on newline-triggered line breaks; later ones become a space
	RawTextExit            RawTextExit // Script/style end detection
	LeafTags               bool        // Declarations and self-closed tags do not nest
}

// DefaultConfig returns the default formatter configuration.
func DefaultConfig() Config {
	return Config{
		IndentUnit:             IndentSpaces(2),
		MaxLineLength:          80,
		WrapMode:               WrapAuto,
		SortAttributes:         false,
		PreserveNewlines:       true,
		MaxConsecutiveNewlines: 2,
		RawTextExit:            RawTextClosingTag,
	}
}

// ParseWrapMode parses a wrap mode name, case-insensitively.
func ParseWrapMode(s string) (WrapMode, error) {
	switch m := WrapMode(strings.ToLower(strings.TrimSpace(s))); m {
	case WrapAuto, WrapForce, WrapNone:
		return m, nil
	}
	return "", fmt.Errorf("%w: unknown wrap mode %q (must be auto, force or none)", ErrInvalidConfig, s)
}

// ParseRawTextExit parses a raw-text exit strategy name, case-insensitively.
func ParseRawTextExit(s string) (RawTextExit, error) {
	switch e := RawTextExit(strings.ToLower(strings.TrimSpace(s))); e {
	case RawTextClosingTag, RawTextSlashGT:
		return e, nil
	}
	return "", fmt.Errorf("%w: unknown raw text exit %q (must be closing-tag or slash-gt)", ErrInvalidConfig, s)
}

// IndentWidth returns the number of spaces in the indent unit, or 0 when
// indenting with tabs.
func (c Config) IndentWidth() int {
	if c.IndentUnit == IndentTab {
		return 0
	}
	return len(c.IndentUnit)
}

// Validate reports whether the configuration is usable. Format accepts any
// Config; Validate exists for callers that take settings from users.
func (c Config) Validate() error {
	if c.IndentUnit != IndentTab && strings.Trim(c.IndentUnit, " ") != "" {
		return fmt.Errorf("%w: indent unit must be spaces or a single tab, got %q", ErrInvalidConfig, c.IndentUnit)
	}
	if c.MaxLineLength <= 0 {
		return fmt.Errorf("%w: max line length must be positive, got %d", ErrInvalidConfig, c.MaxLineLength)
	}
	if c.MaxConsecutiveNewlines < 0 {
		return fmt.Errorf("%w: max consecutive newlines must not be negative, got %d", ErrInvalidConfig, c.MaxConsecutiveNewlines)
	}
	if _, err := ParseWrapMode(string(c.WrapMode)); err != nil {
		return err
	}
	if _, err := ParseRawTextExit(string(c.RawTextExit)); err != nil {
		return err
	}
	if c.SortLocale != "" {
		if _, err := language.Parse(c.SortLocale); err != nil {
			return fmt.Errorf("%w: sort locale %q: %v", ErrInvalidConfig, c.SortLocale, err)
		}
	}
	return nil
}
