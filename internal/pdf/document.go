// Package pdf opens PDF documents and produces per-page artifacts.
//
// Rendering and text come from MuPDF through go-fitz; single-page
// extraction, document info and page selection come from pdfcpu.
package pdf

import (
	"github.com/gen2brain/go-fitz"
	"github.com/pkg/errors"

	"github.com/spherical/pdf-converter/internal/domain"
	"github.com/spherical/pdf-converter/internal/observability"
)

// Options are the fixed rendering parameters shared by every page.
type Options struct {
	ThumbnailMaxDimension int
	TextMaxChars          int
}

// DefaultOptions matches the built-in configuration.
func DefaultOptions() Options {
	return Options{
		ThumbnailMaxDimension: 700,
		TextMaxChars:          100000,
	}
}

// Engine implements domain.Backend on top of go-fitz and pdfcpu
type Engine struct {
	opts      Options
	validator *Validator
}

// NewEngine creates a new engine with the given rendering options
func NewEngine(opts Options, logger *observability.Logger) *Engine {
	return &Engine{
		opts:      opts,
		validator: NewValidator(logger),
	}
}

// Open validates data and opens it with MuPDF
func (e *Engine) Open(data []byte) (domain.Document, error) {
	if err := e.validator.ValidateBytes(data); err != nil {
		return nil, err
	}
	return Open(data, e.opts)
}

// NewSplitter prepares data for single-page extraction
func (e *Engine) NewSplitter(data []byte) (domain.Splitter, error) {
	return NewSplitter(data)
}

// SelectPages resolves a pdfcpu page selection
func (e *Engine) SelectPages(selection string, pageCount int) ([]int, error) {
	return SelectPages(selection, pageCount)
}

// Document is an opened PDF. It keeps the input bytes alive for MuPDF.
type Document struct {
	fz    *fitz.Document
	data  []byte
	opts  Options
	pages int
}

// Open opens data as a PDF. Documents that need a user password fail with
// an encrypted-document error; owner-password-only documents open normally.
func Open(data []byte, opts Options) (*Document, error) {
	fz, err := fitz.NewFromMemory(data)
	if err != nil {
		// go-fitz hands back an allocated document alongside open errors.
		if fz != nil {
			fz.Close()
		}
		if errors.Is(err, fitz.ErrNeedsPassword) {
			return nil, domain.EncryptedDocumentError("Failed to open PDF: file is password-protected", nil)
		}
		return nil, domain.InvalidDocumentError("Failed to open PDF: file is not a valid PDF", err)
	}

	n := fz.NumPage()
	if n < 1 {
		fz.Close()
		return nil, domain.InvalidDocumentError("Failed to open PDF: document has no pages", nil)
	}

	return &Document{
		fz:    fz,
		data:  data,
		opts:  opts,
		pages: n,
	}, nil
}

// PageCount returns the number of pages, fixed at open time
func (d *Document) PageCount() int {
	return d.pages
}

// Page returns the page handle at index
func (d *Document) Page(index int) (domain.Page, error) {
	if index < 0 || index >= d.pages {
		return nil, domain.PageProcessingError(
			"Failed to read PDF page: page not found",
			errors.Errorf("page index %d out of range [0,%d)", index, d.pages),
		)
	}
	return &Page{doc: d, index: index}, nil
}

// Close releases MuPDF resources
func (d *Document) Close() error {
	if d.fz == nil {
		return nil
	}
	err := d.fz.Close()
	d.fz = nil
	return err
}

// Page produces artifacts for one page of a Document
type Page struct {
	doc   *Document
	index int
}

// Index is the zero-based page index in the document
func (p *Page) Index() int {
	return p.index
}

// Text returns the page's visible text as UTF-8 in reading order
func (p *Page) Text() (string, error) {
	raw, err := p.doc.fz.Text(p.index)
	if err != nil {
		return "", domain.PageProcessingError(
			"Failed to read text from PDF page",
			errors.Wrapf(err, "page %d", p.index),
		)
	}
	return normalizeText(raw, p.doc.opts.TextMaxChars), nil
}

// Thumbnail renders the page to a PNG whose longer side is the configured
// maximum dimension
func (p *Page) Thumbnail() ([]byte, error) {
	png, err := renderThumbnail(p.doc.fz, p.index, p.doc.opts.ThumbnailMaxDimension)
	if err != nil {
		return nil, domain.PageProcessingError(
			"Failed to render thumbnail",
			errors.Wrapf(err, "page %d", p.index),
		)
	}
	return png, nil
}
