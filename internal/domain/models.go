package domain

import (
	"strconv"
)

// Fragment names that carry no page index.
const (
	FragmentInheritBlob = "inherit-blob"
	FragmentProgress    = "progress"
	FragmentError       = "error"
	FragmentDone        = "done"
)

// MetadataName is the fragment name of child index's JSON record.
func MetadataName(index int) string {
	return strconv.Itoa(index) + ".json"
}

// ThumbnailName is the fragment name of child index's PNG thumbnail.
func ThumbnailName(index int) string {
	return strconv.Itoa(index) + "-thumbnail.png"
}

// TextName is the fragment name of child index's UTF-8 text.
func TextName(index int) string {
	return strconv.Itoa(index) + ".txt"
}

// BlobName is the fragment name of child index's single-page PDF.
func BlobName(index int) string {
	return strconv.Itoa(index) + ".blob"
}

// ProgressCounts is the inner object of a progress fragment.
type ProgressCounts struct {
	NProcessed int `json:"nProcessed"`
	NTotal     int `json:"nTotal"`
}

// ProgressEvent is the body of a progress fragment:
// {"children":{"nProcessed":1,"nTotal":4}}
type ProgressEvent struct {
	Children ProgressCounts `json:"children"`
}

// ErrorEvent is the body of the terminal error fragment.
type ErrorEvent struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// NewErrorEvent renders err for the error fragment. The message is the
// human-readable part only; wrapped library errors are appended when present.
func NewErrorEvent(err error) ErrorEvent {
	de := AsDomainError(err)
	msg := de.Message
	if de.Err != nil {
		msg += ": " + de.Err.Error()
	}
	return ErrorEvent{Kind: de.Kind, Message: msg}
}

// DocumentInfo holds the document-level information fields copied into
// split-mode page records.
type DocumentInfo struct {
	Title            string
	Author           string
	Subject          string
	Keywords         string
	CreationDate     string // ISO-8601, empty when absent or unparseable
	ModificationDate string // ISO-8601, empty when absent or unparseable
}

// Fields returns the non-empty info values keyed by their record names.
func (d DocumentInfo) Fields() []InfoField {
	all := []InfoField{
		{Key: "Title", Value: d.Title},
		{Key: "Author", Value: d.Author},
		{Key: "Subject", Value: d.Subject},
		{Key: "Keywords", Value: d.Keywords},
		{Key: "Creation Date", Value: d.CreationDate},
		{Key: "Modification Date", Value: d.ModificationDate},
	}
	fields := all[:0]
	for _, f := range all {
		if f.Value != "" {
			fields = append(fields, f)
		}
	}
	return fields
}

// InfoField is one document info entry.
type InfoField struct {
	Key   string
	Value string
}
