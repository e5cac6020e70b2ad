package convert

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/spherical/pdf-converter/internal/domain"
)

// layout decides which fragments a run emits and where progress is
// reported. It is chosen once per run from the split flag.
type layout interface {
	name() string

	// begin runs before the input is read.
	begin(e *emitter) error

	// open runs once the document is open and the selection is resolved.
	open(doc domain.Document, data []byte) error

	// reportsBefore reports whether a progress fragment precedes the page at
	// position pos of the selection.
	reportsBefore(pos int) bool

	page(e *emitter, pos int, p domain.Page) error

	// finish runs after the last page, before done.
	finish(e *emitter) error
}

func newLayout(opts Options, backend domain.Backend) layout {
	if opts.Split {
		return &splitLayout{template: opts.Template, backend: backend}
	}
	return &mergedLayout{template: opts.Template}
}

// splitLayout emits one child per selected page, each with its own
// single-page PDF blob.
type splitLayout struct {
	template Object
	backend  domain.Backend
	records  *pageTemplate
	splitter domain.Splitter
}

func (l *splitLayout) name() string { return "split" }

func (l *splitLayout) begin(*emitter) error { return nil }

func (l *splitLayout) open(doc domain.Document, data []byte) error {
	splitter, err := l.backend.NewSplitter(data)
	if err != nil {
		return err
	}
	if splitter.PageCount() != doc.PageCount() {
		return domain.PageProcessingError(
			"Failed to prepare PDF for splitting",
			errors.Errorf("splitter sees %d pages, document has %d", splitter.PageCount(), doc.PageCount()),
		)
	}

	records, err := newPageTemplate(l.template, splitter.Info())
	if err != nil {
		return err
	}
	l.records = records
	l.splitter = splitter
	return nil
}

func (l *splitLayout) reportsBefore(int) bool { return true }

func (l *splitLayout) page(e *emitter, pos int, p domain.Page) error {
	record, err := l.records.record(p.Index() + 1)
	if err != nil {
		return domain.PageProcessingError("Failed to build page metadata", err)
	}
	if err := e.json(domain.MetadataName(pos), record); err != nil {
		return err
	}

	thumb, err := p.Thumbnail()
	if err != nil {
		return err
	}
	if err := e.write(domain.ThumbnailName(pos), thumb); err != nil {
		return err
	}

	text, err := p.Text()
	if err != nil {
		return err
	}
	if err := e.write(domain.TextName(pos), []byte(text)); err != nil {
		return err
	}

	blob, err := l.splitter.ExtractPage(p.Index())
	if err != nil {
		return err
	}
	return e.write(domain.BlobName(pos), blob)
}

func (l *splitLayout) finish(*emitter) error { return nil }

// mergedLayout emits a single child for the whole selection. Its blob is the
// input itself, its thumbnail is the first selected page and its text is
// every selected page's text separated by form feeds.
type mergedLayout struct {
	template Object
	texts    []string
}

func (l *mergedLayout) name() string { return "merged" }

func (l *mergedLayout) begin(e *emitter) error {
	if err := e.json(domain.MetadataName(0), l.template); err != nil {
		return err
	}
	return e.write(domain.FragmentInheritBlob, nil)
}

func (l *mergedLayout) open(domain.Document, []byte) error { return nil }

func (l *mergedLayout) reportsBefore(pos int) bool { return pos > 0 }

func (l *mergedLayout) page(e *emitter, pos int, p domain.Page) error {
	if pos == 0 {
		thumb, err := p.Thumbnail()
		if err != nil {
			return err
		}
		if err := e.write(domain.ThumbnailName(0), thumb); err != nil {
			return err
		}
	}

	text, err := p.Text()
	if err != nil {
		return err
	}
	l.texts = append(l.texts, text)
	return nil
}

func (l *mergedLayout) finish(e *emitter) error {
	return e.write(domain.TextName(0), []byte(strings.Join(l.texts, "\f")))
}
