package domain

import (
	"errors"
	"fmt"
)

// Kind discriminates the failures a conversion can end with.
type Kind string

const (
	KindEncryptedDocument     Kind = "encrypted-document"
	KindInvalidDocument       Kind = "invalid-document"
	KindPageProcessingFailure Kind = "page-processing-failure"
	KindInvalidOptions        Kind = "invalid-options"
	KindCanceled              Kind = "canceled"
)

// DomainError represents a conversion failure with its discriminator
type DomainError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewError creates a new domain error
func NewError(kind Kind, message string, err error) *DomainError {
	return &DomainError{
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Common error constructors
func EncryptedDocumentError(message string, err error) *DomainError {
	return NewError(KindEncryptedDocument, message, err)
}

func InvalidDocumentError(message string, err error) *DomainError {
	return NewError(KindInvalidDocument, message, err)
}

func PageProcessingError(message string, err error) *DomainError {
	return NewError(KindPageProcessingFailure, message, err)
}

func InvalidOptionsError(message string, err error) *DomainError {
	return NewError(KindInvalidOptions, message, err)
}

func CanceledError(message string, err error) *DomainError {
	return NewError(KindCanceled, message, err)
}

// AsDomainError returns err as a *DomainError. Errors that carry no kind are
// reported as page processing failures, since they can only come from work
// done after the document opened.
func AsDomainError(err error) *DomainError {
	var de *DomainError
	if errors.As(err, &de) {
		return de
	}
	return PageProcessingError(err.Error(), nil)
}

// KindOf reports the kind of err, or "" when err is nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	return AsDomainError(err).Kind
}
