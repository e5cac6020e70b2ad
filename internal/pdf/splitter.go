package pdf

import (
	"bytes"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pkg/errors"

	"github.com/spherical/pdf-converter/internal/domain"
)

func init() {
	// pdfcpu would otherwise create a config directory under the user's home.
	api.DisableConfigDir()
}

// Splitter extracts standalone single-page documents with pdfcpu. The
// extracted documents carry no encryption even when the source does.
type Splitter struct {
	ctx  *model.Context
	info domain.DocumentInfo
}

// NewSplitter parses data once so pages can be extracted repeatedly
func NewSplitter(data []byte) (*Splitter, error) {
	conf := model.NewDefaultConfiguration()

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, domain.PageProcessingError("Failed to prepare PDF for splitting", errors.Wrap(err, "pdfcpu read"))
	}

	if err := api.ValidateContext(ctx); err != nil {
		return nil, domain.PageProcessingError("Failed to prepare PDF for splitting", errors.Wrap(err, "pdfcpu validate"))
	}

	return &Splitter{ctx: ctx, info: infoFromContext(ctx)}, nil
}

// Info returns the document information dictionary fields
func (s *Splitter) Info() domain.DocumentInfo {
	return s.info
}

// PageCount returns the page count as seen by pdfcpu
func (s *Splitter) PageCount() int {
	return s.ctx.PageCount
}

// ExtractPage returns page index (zero-based) as a complete PDF
func (s *Splitter) ExtractPage(index int) ([]byte, error) {
	if index < 0 || index >= s.ctx.PageCount {
		return nil, domain.PageProcessingError(
			"Failed to output page",
			errors.Errorf("page index %d out of range [0,%d)", index, s.ctx.PageCount),
		)
	}

	r, err := api.ExtractPage(s.ctx, index+1)
	if err != nil {
		return nil, domain.PageProcessingError(
			"Failed to output page",
			errors.Wrapf(err, "extract page %d", index),
		)
	}

	blob, err := io.ReadAll(r)
	if err != nil {
		return nil, domain.PageProcessingError(
			"Failed to output page",
			errors.Wrapf(err, "read page %d", index),
		)
	}
	return blob, nil
}
