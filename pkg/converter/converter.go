// Package converter is the public entry point for turning PDF documents into
// multipart fragment streams.
package converter

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/spherical/pdf-converter/internal/config"
	"github.com/spherical/pdf-converter/internal/convert"
	"github.com/spherical/pdf-converter/internal/domain"
	"github.com/spherical/pdf-converter/internal/fragment"
	"github.com/spherical/pdf-converter/internal/observability"
	"github.com/spherical/pdf-converter/internal/pdf"
)

// Re-export outcome and error types for public API
type (
	Outcome     = convert.Outcome
	Done        = convert.Done
	Failed      = convert.Failed
	Kind        = domain.Kind
	DomainError = domain.DomainError
	Fragment    = fragment.Fragment
)

// Error kind constants
const (
	KindEncryptedDocument     = domain.KindEncryptedDocument
	KindInvalidDocument       = domain.KindInvalidDocument
	KindPageProcessingFailure = domain.KindPageProcessingFailure
	KindInvalidOptions        = domain.KindInvalidOptions
	KindCanceled              = domain.KindCanceled
)

// Client is the main entry point for the converter library
type Client struct {
	service *convert.Service
	logger  *observability.Logger
}

// Config holds configuration options for the client
type Config struct {
	ThumbnailMaxDimension int // Longer thumbnail side in pixels (default 700)
	TextMaxChars          int // Per-page text cap in characters (default 100000)

	LogOutput io.Writer // Destination for JSON logs; nil discards them
	LogLevel  string    // debug, info, warn or error (default info)
}

// NewClient creates a client from the environment (.env, LOG_*,
// THUMBNAIL_MAX_DIMENSION, TEXT_MAX_CHARS and the optional config file named
// by PDF_CONVERTER_CONFIG)
func NewClient() (*Client, error) {
	cfg, err := config.Load("")
	if err != nil {
		return nil, err
	}

	return NewClientWithConfig(&Config{
		ThumbnailMaxDimension: cfg.Render.ThumbnailMaxDimension,
		TextMaxChars:          cfg.Render.TextMaxChars,
	})
}

// NewClientWithConfig creates a client with custom configuration
func NewClientWithConfig(cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	opts := pdf.DefaultOptions()
	if cfg.ThumbnailMaxDimension > 0 {
		opts.ThumbnailMaxDimension = cfg.ThumbnailMaxDimension
	}
	if cfg.TextMaxChars > 0 {
		opts.TextMaxChars = cfg.TextMaxChars
	}

	logger := observability.NopLogger()
	if cfg.LogOutput != nil {
		logger = observability.NewLogger(observability.LogConfig{
			Level:       cfg.LogLevel,
			Format:      "json",
			Output:      cfg.LogOutput,
			ServiceName: "pdf-converter",
		})
	}

	engine := pdf.NewEngine(opts, logger)
	return &Client{
		service: convert.NewService(engine, logger),
		logger:  logger,
	}, nil
}

// Convert reads a PDF from input and writes its fragment stream to w, framed
// with boundary. options is the JSON configuration object
// ({"split":true,"pageSelection":"1-3"} plus template keys).
//
// Conversion failures are reported as a Failed outcome and as the stream's
// final error fragment; the returned error is reserved for failures to write
// the stream itself.
func (c *Client) Convert(ctx context.Context, w io.Writer, boundary string, options []byte, input io.Reader) (Outcome, error) {
	return c.service.Convert(ctx, w, convert.Request{
		Boundary: boundary,
		Options:  json.RawMessage(options),
		Input:    input,
	})
}

// ConvertFile converts the PDF at path
func (c *Client) ConvertFile(ctx context.Context, w io.Writer, boundary string, options []byte, path string) (Outcome, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, domain.InvalidDocumentError("PDF file not found", err)
	}
	defer f.Close()

	return c.Convert(ctx, w, boundary, options, f)
}

// ReadFragments decodes a fragment stream produced by Convert
func ReadFragments(r io.Reader, boundary string) ([]Fragment, error) {
	return fragment.ReadAll(r, boundary)
}

// KindOf reports the failure kind of an outcome, or "" when it is Done
func KindOf(o Outcome) Kind {
	return convert.KindOf(o)
}
