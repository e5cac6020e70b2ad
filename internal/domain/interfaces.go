package domain

// Backend opens documents and builds page splitters from raw PDF bytes
type Backend interface {
	// Open validates data and returns a handle with a known page count
	Open(data []byte) (Document, error)

	// NewSplitter prepares data for single-page extraction
	NewSplitter(data []byte) (Splitter, error)

	// SelectPages resolves a page selection to ascending zero-based indices
	SelectPages(selection string, pageCount int) ([]int, error)
}

// Document is an opened, validated PDF
type Document interface {
	PageCount() int
	Page(index int) (Page, error)
	Close() error
}

// Page produces the artifacts of one page on demand
type Page interface {
	// Index is the zero-based position in the document
	Index() int
	Text() (string, error)
	Thumbnail() ([]byte, error)
}

// Splitter builds standalone single-page documents. It parses the input
// independently of Document, so it also reports the page count it sees and
// the document information dictionary.
type Splitter interface {
	PageCount() int
	Info() DocumentInfo
	ExtractPage(index int) ([]byte, error)
}

// FragmentSink receives artifacts in the order they are produced
type FragmentSink interface {
	Write(name string, body []byte) error
	WriteJSON(name string, v any) error
	Close() error
}
