// Package parser provides streaming parsers for process event log formats.
package parser

import (
	"context"
	"io"
	"strings"

	"github.com/pippi2802/hlem-framework/internal/model"
)

// Parser defines the interface for parsing process event data.
// Implementations must respect context cancellation and must not retain
// references to the output channel after returning.
type Parser interface {
	// Parse reads from r and sends parsed events to out.
	// The caller is responsible for closing the out channel.
	Parse(ctx context.Context, r io.Reader, out chan<- *model.Event) error
}

// Format represents a supported input format.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatXES
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatXES:
		return "xes"
	default:
		return "unknown"
	}
}

// ParseFormat parses a format string.
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "xes":
		return FormatXES
	default:
		return FormatUnknown
	}
}

// DetectFormat guesses the format from a file path.
func DetectFormat(path string) Format {
	if strings.HasSuffix(strings.ToLower(path), ".xes") {
		return FormatXES
	}
	return FormatUnknown
}

// Config holds common parser configuration.
type Config struct {
	// BufferSize is the size of the read buffer in bytes.
	BufferSize int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BufferSize: 64 * 1024,
	}
}

// NewParser creates a parser for the given format.
func NewParser(format Format, cfg Config) (Parser, error) {
	switch format {
	case FormatXES:
		return NewXESParser(cfg), nil
	default:
		return nil, ErrUnsupportedFormat
	}
}
