package pdf

import (
	"bytes"

	"github.com/spherical/pdf-converter/internal/domain"
	"github.com/spherical/pdf-converter/internal/observability"
)

const (
	// headerScanLimit is how far into the input the "%PDF-" marker may appear.
	headerScanLimit = 1024

	// largeInputBytes triggers a warning only; large inputs are still processed.
	largeInputBytes = 100 * 1024 * 1024
)

var pdfHeader = []byte("%PDF-")

// Validator provides cheap structural checks on raw input before it reaches
// the PDF library
type Validator struct {
	logger *observability.Logger
}

// NewValidator creates a new validator instance
func NewValidator(logger *observability.Logger) *Validator {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Validator{logger: logger}
}

// ValidateBytes checks that data is non-empty and starts like a PDF
func (v *Validator) ValidateBytes(data []byte) error {
	if len(data) == 0 {
		return domain.InvalidDocumentError("Failed to open PDF: input is empty", nil)
	}

	head := data
	if len(head) > headerScanLimit {
		head = head[:headerScanLimit]
	}
	if !bytes.Contains(head, pdfHeader) {
		return domain.InvalidDocumentError("Failed to open PDF: file is not a valid PDF", nil)
	}

	if len(data) > largeInputBytes {
		v.logger.Warn().
			Int("size_mb", len(data)/(1024*1024)).
			Msg("PDF input is very large, processing may take a while")
	}

	return nil
}
