package convert

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/spherical/pdf-converter/internal/domain"
)

// Option keys consumed by the converter. Every other key of the options
// object is carried into the page records untouched.
const (
	optionSplit         = "split"
	optionPageSelection = "pageSelection"
	templateMetadata    = "metadata"
)

// Options is the parsed conversion configuration.
type Options struct {
	Split         bool
	PageSelection string
	Template      Object
}

// ParseOptions decodes the options JSON. Blank input means defaults.
func ParseOptions(raw []byte) (Options, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return Options{}, nil
	}

	obj, err := ParseObject(raw)
	if err != nil {
		return Options{}, domain.InvalidOptionsError("Invalid options JSON", err)
	}

	var opts Options
	if v, ok := obj.Get(optionSplit); ok {
		if err := json.Unmarshal(v, &opts.Split); err != nil {
			return Options{}, domain.InvalidOptionsError(`Invalid options: "split" must be a boolean`, nil)
		}
	}
	if v, ok := obj.Get(optionPageSelection); ok && !isNull(v) {
		if err := json.Unmarshal(v, &opts.PageSelection); err != nil {
			return Options{}, domain.InvalidOptionsError(`Invalid options: "pageSelection" must be a string`, nil)
		}
	}

	opts.Template = obj.Without(optionSplit, optionPageSelection)

	if opts.Split {
		if v, ok := opts.Template.Get(templateMetadata); ok && !isNull(v) {
			if _, err := ParseObject(v); err != nil {
				return Options{}, domain.InvalidOptionsError(`Invalid options: "metadata" must be an object`, nil)
			}
		}
	}
	return opts, nil
}

// Member is one key/value pair of an Object.
type Member struct {
	Key   string
	Value json.RawMessage
}

// Object is a JSON object that keeps its members in input order.
type Object []Member

// ParseObject decodes raw, which must hold exactly one JSON object.
func ParseObject(raw []byte) (Object, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, errors.Wrap(err, "read object")
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.Errorf("expected a JSON object, got %v", tok)
	}

	obj := Object{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, errors.Wrap(err, "read key")
		}
		key, ok := tok.(string)
		if !ok {
			return nil, errors.Errorf("expected a string key, got %v", tok)
		}

		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, errors.Wrapf(err, "read value of %q", key)
		}
		obj = obj.With(key, v)
	}

	if _, err := dec.Token(); err != nil {
		return nil, errors.Wrap(err, "read object end")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after JSON object")
	}
	return obj, nil
}

// Get returns the value stored under key.
func (o Object) Get(key string) (json.RawMessage, bool) {
	for _, m := range o {
		if m.Key == key {
			return m.Value, true
		}
	}
	return nil, false
}

// Has reports whether key is present.
func (o Object) Has(key string) bool {
	_, ok := o.Get(key)
	return ok
}

// With returns a copy of o with key set to v. Existing keys keep their
// position; new keys are appended.
func (o Object) With(key string, v json.RawMessage) Object {
	out := make(Object, len(o), len(o)+1)
	copy(out, o)
	for i := range out {
		if out[i].Key == key {
			out[i].Value = v
			return out
		}
	}
	return append(out, Member{Key: key, Value: v})
}

// Without returns a copy of o without the given keys.
func (o Object) Without(keys ...string) Object {
	out := make(Object, 0, len(o))
	for _, m := range o {
		drop := false
		for _, k := range keys {
			if m.Key == k {
				drop = true
				break
			}
		}
		if !drop {
			out = append(out, m)
		}
	}
	return out
}

// MarshalJSON renders o compactly with members in order.
func (o Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(m.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(m.Value)
	}
	buf.WriteByte('}')

	var out bytes.Buffer
	if err := json.Compact(&out, buf.Bytes()); err != nil {
		return nil, errors.Wrap(err, "compact object")
	}
	return out.Bytes(), nil
}

func isNull(v json.RawMessage) bool {
	return strings.TrimSpace(string(v)) == "null"
}

// pageTemplate builds split-mode page records: the request template with a
// metadata object holding the document info and the page number.
type pageTemplate struct {
	base     Object
	metadata Object
}

func newPageTemplate(template Object, info domain.DocumentInfo) (*pageTemplate, error) {
	meta := Object{}
	if v, ok := template.Get(templateMetadata); ok && !isNull(v) {
		parsed, err := ParseObject(v)
		if err != nil {
			return nil, domain.InvalidOptionsError(`Invalid options: "metadata" must be an object`, err)
		}
		meta = parsed
	}

	for _, f := range info.Fields() {
		if meta.Has(f.Key) {
			continue
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, errors.Wrapf(err, "marshal info %q", f.Key)
		}
		meta = meta.With(f.Key, v)
	}

	return &pageTemplate{base: template, metadata: meta}, nil
}

// record renders the record for a page with the given 1-based page number.
func (t *pageTemplate) record(pageNumber int) (Object, error) {
	n, err := json.Marshal(pageNumber)
	if err != nil {
		return nil, err
	}
	meta, err := t.metadata.With("pageNumber", n).MarshalJSON()
	if err != nil {
		return nil, err
	}
	return t.base.With(templateMetadata, meta), nil
}
