// Package fragment encodes and decodes multipart/form-data fragment streams.
//
// A stream is a sequence of named parts delimited by a caller-supplied
// boundary. Each part is flushed to the underlying sink as soon as it is
// written so consumers can act on it immediately.
package fragment

import (
	"bufio"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// Writer emits fragments to a sink. It is not safe for concurrent use.
type Writer struct {
	buf      *bufio.Writer
	sink     io.Writer
	boundary string
	parts    int
	closed   bool
}

// NewWriter returns a Writer that frames fragments with boundary. The
// boundary is an opaque token: anything non-empty without CR or LF is
// accepted, including tokens longer or wider than RFC 2046 allows.
func NewWriter(w io.Writer, boundary string) (*Writer, error) {
	if boundary == "" {
		return nil, errors.New("invalid boundary: empty")
	}
	if strings.ContainsAny(boundary, "\r\n") {
		return nil, errors.Errorf("invalid boundary %q: contains a line break", boundary)
	}
	return &Writer{buf: bufio.NewWriter(w), sink: w, boundary: boundary}, nil
}

// Boundary returns the boundary token framing the stream.
func (w *Writer) Boundary() string {
	return w.boundary
}

// ContentType returns the multipart/form-data media type for the stream.
func (w *Writer) ContentType() string {
	return mime.FormatMediaType("multipart/form-data", map[string]string{"boundary": w.boundary})
}

// Write emits one fragment with body passed through unmodified.
func (w *Writer) Write(name string, body []byte) error {
	if w.closed {
		return errors.Errorf("write fragment %q: stream closed", name)
	}

	if w.parts > 0 {
		w.buf.WriteString("\r\n")
	}
	w.parts++
	w.buf.WriteString("--" + w.boundary + "\r\n")
	w.buf.WriteString(`Content-Disposition: form-data; name="` + quoteEscaper.Replace(name) + "\"\r\n\r\n")
	if _, err := w.buf.Write(body); err != nil {
		return errors.Wrapf(err, "write fragment %q body", name)
	}
	return w.flush()
}

// WriteJSON marshals v and emits it as one fragment.
func (w *Writer) WriteJSON(name string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "marshal fragment %q", name)
	}
	return w.Write(name, body)
}

// Close writes the closing delimiter. Further writes fail.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if w.parts > 0 {
		w.buf.WriteString("\r\n")
	}
	w.buf.WriteString("--" + w.boundary + "--\r\n")
	return w.flush()
}

func (w *Writer) flush() error {
	if err := w.buf.Flush(); err != nil {
		return errors.Wrap(err, "flush fragment")
	}
	if f, ok := w.sink.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
