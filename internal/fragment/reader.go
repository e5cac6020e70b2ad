package fragment

import (
	"io"
	"mime/multipart"

	"github.com/pkg/errors"
)

// Fragment is one decoded part of a stream.
type Fragment struct {
	Name string
	Body []byte
}

// Reader decodes a fragment stream part by part.
type Reader struct {
	mr *multipart.Reader
}

// NewReader returns a Reader for a stream framed with boundary.
func NewReader(r io.Reader, boundary string) *Reader {
	return &Reader{mr: multipart.NewReader(r, boundary)}
}

// Next returns the next fragment, or io.EOF after the closing delimiter.
func (r *Reader) Next() (Fragment, error) {
	part, err := r.mr.NextRawPart()
	if err != nil {
		if err == io.EOF {
			return Fragment{}, io.EOF
		}
		return Fragment{}, errors.Wrap(err, "read fragment header")
	}
	defer part.Close()

	body, err := io.ReadAll(part)
	if err != nil {
		return Fragment{}, errors.Wrapf(err, "read fragment %q", part.FormName())
	}
	return Fragment{Name: part.FormName(), Body: body}, nil
}

// ReadAll decodes every fragment in r.
func ReadAll(r io.Reader, boundary string) ([]Fragment, error) {
	fr := NewReader(r, boundary)

	var out []Fragment
	for {
		f, err := fr.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, f)
	}
}

// Names lists the fragment names in order.
func Names(frags []Fragment) []string {
	names := make([]string, len(frags))
	for i, f := range frags {
		names[i] = f.Name
	}
	return names
}
