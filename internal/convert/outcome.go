package convert

import "github.com/spherical/pdf-converter/internal/domain"

// Outcome is the terminal state of a run: Done or Failed.
type Outcome interface {
	outcome()
}

// Done means the stream ended with a done fragment.
type Done struct {
	// Children is the number of child records emitted.
	Children int
	// PageCount is the document's total page count.
	PageCount int
}

// Failed means the stream ended with an error fragment.
type Failed struct {
	Err *domain.DomainError
}

func (Done) outcome()   {}
func (Failed) outcome() {}

// KindOf returns the failure kind of o, or "" when o is Done.
func KindOf(o Outcome) domain.Kind {
	if f, ok := o.(Failed); ok && f.Err != nil {
		return f.Err.Kind
	}
	return ""
}
