package convert

import (
	"encoding/json"
	"errors"

	"github.com/spherical/pdf-converter/internal/domain"
	"github.com/spherical/pdf-converter/internal/pdf"
)

type recorded struct {
	Name string
	Body []byte
}

// recordingSink keeps every fragment in memory. failAt makes the n-th write
// (1-based) fail.
type recordingSink struct {
	frags  []recorded
	closed bool
	writes int
	failAt int
}

var errSinkGone = errors.New("broken pipe")

func (s *recordingSink) Write(name string, body []byte) error {
	s.writes++
	if s.failAt > 0 && s.writes >= s.failAt {
		return errSinkGone
	}
	s.frags = append(s.frags, recorded{Name: name, Body: append([]byte(nil), body...)})
	return nil
}

func (s *recordingSink) WriteJSON(name string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Write(name, body)
}

func (s *recordingSink) Close() error {
	s.closed = true
	return nil
}

func (s *recordingSink) names() []string {
	out := make([]string, len(s.frags))
	for i, f := range s.frags {
		out[i] = f.Name
	}
	return out
}

func (s *recordingSink) body(name string) []byte {
	for _, f := range s.frags {
		if f.Name == name {
			return f.Body
		}
	}
	return nil
}

func (s *recordingSink) bodies(name string) [][]byte {
	var out [][]byte
	for _, f := range s.frags {
		if f.Name == name {
			out = append(out, f.Body)
		}
	}
	return out
}

type fakePage struct {
	index    int
	text     string
	textErr  error
	thumbErr error
	onText   func()
}

func (p *fakePage) Index() int { return p.index }

func (p *fakePage) Text() (string, error) {
	if p.onText != nil {
		p.onText()
	}
	if p.textErr != nil {
		return "", p.textErr
	}
	return p.text, nil
}

func (p *fakePage) Thumbnail() ([]byte, error) {
	if p.thumbErr != nil {
		return nil, p.thumbErr
	}
	return []byte("png-" + p.text), nil
}

type fakeDoc struct {
	pages []*fakePage
	// info is reported by splitters built for this document.
	info   domain.DocumentInfo
	closed bool
}

func (d *fakeDoc) PageCount() int { return len(d.pages) }

func (d *fakeDoc) Page(index int) (domain.Page, error) {
	if index < 0 || index >= len(d.pages) {
		return nil, domain.PageProcessingError("Failed to read PDF page: page not found", nil)
	}
	return d.pages[index], nil
}

func (d *fakeDoc) Close() error {
	d.closed = true
	return nil
}

type fakeSplitter struct {
	pages int
	info  domain.DocumentInfo
	err   error
}

func (s *fakeSplitter) PageCount() int { return s.pages }

func (s *fakeSplitter) Info() domain.DocumentInfo { return s.info }

func (s *fakeSplitter) ExtractPage(index int) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []byte{'%', 'P', 'D', 'F', byte('0' + index)}, nil
}

type fakeBackend struct {
	doc        *fakeDoc
	openErr    error
	splitErr   error
	extractErr error
	// splitPages overrides the page count the splitter reports.
	splitPages int
	opened     []byte
}

func (b *fakeBackend) Open(data []byte) (domain.Document, error) {
	b.opened = data
	if b.openErr != nil {
		return nil, b.openErr
	}
	return b.doc, nil
}

func (b *fakeBackend) NewSplitter([]byte) (domain.Splitter, error) {
	if b.splitErr != nil {
		return nil, b.splitErr
	}
	pages := len(b.doc.pages)
	if b.splitPages != 0 {
		pages = b.splitPages
	}
	return &fakeSplitter{pages: pages, info: b.doc.info, err: b.extractErr}, nil
}

func (b *fakeBackend) SelectPages(selection string, pageCount int) ([]int, error) {
	return pdf.SelectPages(selection, pageCount)
}

func newFakeDoc(texts ...string) *fakeDoc {
	doc := &fakeDoc{}
	for i, t := range texts {
		doc.pages = append(doc.pages, &fakePage{index: i, text: t})
	}
	return doc
}
