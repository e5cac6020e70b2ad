package convert

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/pdf-converter/internal/domain"
	"github.com/spherical/pdf-converter/internal/fragment"
	"github.com/spherical/pdf-converter/internal/observability"
)

func runFake(t *testing.T, ctx context.Context, backend *fakeBackend, options string) (*recordingSink, Outcome) {
	t.Helper()

	sink := &recordingSink{}
	svc := NewService(backend, observability.NopLogger())
	out, err := svc.Run(ctx, Request{
		Boundary: "B",
		Options:  json.RawMessage(options),
		Input:    strings.NewReader("%PDF-fake"),
	}, sink)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.True(t, sink.closed, "sink should be closed at a terminal state")
	return sink, out
}

func progressBody(processed, total int) string {
	b, _ := json.Marshal(map[string]any{"children": map[string]int{"nProcessed": processed, "nTotal": total}})
	return string(b)
}

func errorEvent(t *testing.T, sink *recordingSink) domain.ErrorEvent {
	t.Helper()
	var ev domain.ErrorEvent
	require.NoError(t, json.Unmarshal(sink.body(domain.FragmentError), &ev))
	return ev
}

func TestRun_SplitSequence(t *testing.T) {
	backend := &fakeBackend{doc: newFakeDoc("one", "two", "three")}

	sink, out := runFake(t, context.Background(), backend, `{"split":true}`)

	assert.Equal(t, []string{
		"progress", "0.json", "0-thumbnail.png", "0.txt", "0.blob",
		"progress", "1.json", "1-thumbnail.png", "1.txt", "1.blob",
		"progress", "2.json", "2-thumbnail.png", "2.txt", "2.blob",
		"done",
	}, sink.names())

	progress := sink.bodies("progress")
	require.Len(t, progress, 3)
	for i, body := range progress {
		assert.JSONEq(t, progressBody(i, 3), string(body))
	}

	assert.Equal(t, "two", string(sink.body("1.txt")))
	assert.Equal(t, "png-three", string(sink.body("2-thumbnail.png")))
	assert.Equal(t, "%PDF1", string(sink.body("1.blob")))
	assert.Empty(t, sink.body("done"))

	assert.Equal(t, Done{Children: 3, PageCount: 3}, out)
	assert.True(t, backend.doc.closed)
	assert.Equal(t, []byte("%PDF-fake"), backend.opened)
}

func TestRun_SplitRecords(t *testing.T) {
	doc := newFakeDoc("a", "b", "c")
	doc.info = domain.DocumentInfo{
		Title:        "From PDF",
		Author:       "Writer",
		CreationDate: "2015-03-12T17:52:56+0800",
	}
	backend := &fakeBackend{doc: doc}

	sink, _ := runFake(t, context.Background(), backend,
		`{"split":true,"pageSelection":"2-3","documentSetId":42,"metadata":{"Title":"From request","tag":"x"}}`)

	assert.Equal(t, []string{
		"progress", "0.json", "0-thumbnail.png", "0.txt", "0.blob",
		"progress", "1.json", "1-thumbnail.png", "1.txt", "1.blob",
		"done",
	}, sink.names())

	assert.JSONEq(t, progressBody(0, 3), string(sink.bodies("progress")[0]))
	assert.JSONEq(t, progressBody(1, 3), string(sink.bodies("progress")[1]))

	assert.Equal(t,
		`{"documentSetId":42,"metadata":{"Title":"From request","tag":"x","Author":"Writer","Creation Date":"2015-03-12T17:52:56+0800","pageNumber":2}}`,
		string(sink.body("0.json")))
	assert.Contains(t, string(sink.body("1.json")), `"pageNumber":3`)

	// Child indices follow the selection, blobs follow the document.
	assert.Equal(t, "b", string(sink.body("0.txt")))
	assert.Equal(t, "%PDF2", string(sink.body("1.blob")))
}

func TestRun_SplitAddsMetadataObject(t *testing.T) {
	doc := newFakeDoc("only")
	doc.info = domain.DocumentInfo{Keywords: "k"}

	sink, _ := runFake(t, context.Background(), &fakeBackend{doc: doc}, `{"split":true}`)

	assert.Equal(t, `{"metadata":{"Keywords":"k","pageNumber":1}}`, string(sink.body("0.json")))
}

func TestRun_MergedSequence(t *testing.T) {
	tests := []struct {
		name      string
		options   string
		texts     []string
		wantNames []string
		wantProg  []string
		wantThumb string
		wantText  string
	}{
		{
			name:      "all pages",
			options:   `{"split":false,"id":7}`,
			texts:     []string{"p1", "p2", "p3"},
			wantNames: []string{"0.json", "inherit-blob", "0-thumbnail.png", "progress", "progress", "0.txt", "done"},
			wantProg:  []string{progressBody(1, 3), progressBody(2, 3)},
			wantThumb: "png-p1",
			wantText:  "p1\fp2\fp3",
		},
		{
			name:      "single page",
			options:   `{}`,
			texts:     []string{"solo"},
			wantNames: []string{"0.json", "inherit-blob", "0-thumbnail.png", "0.txt", "done"},
			wantThumb: "png-solo",
			wantText:  "solo",
		},
		{
			name:      "subset",
			options:   `{"pageSelection":"2-3"}`,
			texts:     []string{"p1", "p2", "p3", "p4"},
			wantNames: []string{"0.json", "inherit-blob", "0-thumbnail.png", "progress", "0.txt", "done"},
			wantProg:  []string{progressBody(1, 4)},
			wantThumb: "png-p2",
			wantText:  "p2\fp3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{doc: newFakeDoc(tt.texts...)}
			sink, out := runFake(t, context.Background(), backend, tt.options)

			assert.Equal(t, tt.wantNames, sink.names())
			var prog []string
			for _, b := range sink.bodies("progress") {
				prog = append(prog, string(b))
			}
			assert.Equal(t, tt.wantProg, prog)
			assert.Equal(t, tt.wantThumb, string(sink.body("0-thumbnail.png")))
			assert.Equal(t, tt.wantText, string(sink.body("0.txt")))
			assert.Empty(t, sink.body("inherit-blob"))
			assert.Equal(t, Done{Children: 1, PageCount: len(tt.texts)}, out)
		})
	}
}

func TestRun_MergedTemplateVerbatim(t *testing.T) {
	backend := &fakeBackend{doc: newFakeDoc("x")}
	sink, _ := runFake(t, context.Background(), backend, `{"z":1, "split":false, "a":{"b":[1, 2]}}`)

	assert.Equal(t, `{"z":1,"a":{"b":[1,2]}}`, string(sink.body("0.json")))
}

func TestRun_Failures(t *testing.T) {
	tests := []struct {
		name      string
		backend   func() *fakeBackend
		options   string
		wantNames []string
		wantKind  domain.Kind
		wantMsg   string
	}{
		{
			name: "encrypted merged",
			backend: func() *fakeBackend {
				return &fakeBackend{openErr: domain.EncryptedDocumentError("Failed to open PDF: file is password-protected", nil)}
			},
			options:   `{}`,
			wantNames: []string{"0.json", "inherit-blob", "error"},
			wantKind:  domain.KindEncryptedDocument,
			wantMsg:   "Failed to open PDF: file is password-protected",
		},
		{
			name: "invalid merged",
			backend: func() *fakeBackend {
				return &fakeBackend{openErr: domain.InvalidDocumentError("Failed to open PDF: file is not a valid PDF", nil)}
			},
			options:   `{"split":false}`,
			wantNames: []string{"0.json", "inherit-blob", "error"},
			wantKind:  domain.KindInvalidDocument,
			wantMsg:   "Failed to open PDF: file is not a valid PDF",
		},
		{
			name: "encrypted split",
			backend: func() *fakeBackend {
				return &fakeBackend{openErr: domain.EncryptedDocumentError("Failed to open PDF: file is password-protected", nil)}
			},
			options:   `{"split":true}`,
			wantNames: []string{"error"},
			wantKind:  domain.KindEncryptedDocument,
		},
		{
			name:      "malformed options",
			backend:   func() *fakeBackend { return &fakeBackend{doc: newFakeDoc("x")} },
			options:   `{"split":`,
			wantNames: []string{"error"},
			wantKind:  domain.KindInvalidOptions,
			wantMsg:   "Invalid options JSON",
		},
		{
			name:      "selection matches nothing",
			backend:   func() *fakeBackend { return &fakeBackend{doc: newFakeDoc("x", "y")} },
			options:   `{"split":true,"pageSelection":"5"}`,
			wantNames: []string{"error"},
			wantKind:  domain.KindInvalidOptions,
			wantMsg:   `pageSelection "5"`,
		},
		{
			name: "splitter unavailable",
			backend: func() *fakeBackend {
				return &fakeBackend{doc: newFakeDoc("x"), splitErr: domain.PageProcessingError("Failed to prepare PDF for splitting", nil)}
			},
			options:   `{"split":true}`,
			wantNames: []string{"error"},
			wantKind:  domain.KindPageProcessingFailure,
		},
		{
			name: "splitter disagrees on page count",
			backend: func() *fakeBackend {
				return &fakeBackend{doc: newFakeDoc("a", "b"), splitPages: 3}
			},
			options:   `{"split":true}`,
			wantNames: []string{"error"},
			wantKind:  domain.KindPageProcessingFailure,
			wantMsg:   "Failed to prepare PDF for splitting",
		},
		{
			name: "text failure mid document",
			backend: func() *fakeBackend {
				doc := newFakeDoc("a", "b", "c")
				doc.pages[1].textErr = domain.PageProcessingError("Failed to read text from PDF page", nil)
				return &fakeBackend{doc: doc}
			},
			options: `{"split":true}`,
			wantNames: []string{
				"progress", "0.json", "0-thumbnail.png", "0.txt", "0.blob",
				"progress", "1.json", "1-thumbnail.png", "error",
			},
			wantKind: domain.KindPageProcessingFailure,
			wantMsg:  "Failed to read text from PDF page",
		},
		{
			name: "thumbnail failure merged",
			backend: func() *fakeBackend {
				doc := newFakeDoc("a", "b")
				doc.pages[0].thumbErr = errors.New("out of memory")
				return &fakeBackend{doc: doc}
			},
			options:   `{}`,
			wantNames: []string{"0.json", "inherit-blob", "error"},
			wantKind:  domain.KindPageProcessingFailure,
			wantMsg:   "out of memory",
		},
		{
			name: "blob failure",
			backend: func() *fakeBackend {
				return &fakeBackend{doc: newFakeDoc("a"), extractErr: domain.PageProcessingError("Failed to output page", nil)}
			},
			options:   `{"split":true}`,
			wantNames: []string{"progress", "0.json", "0-thumbnail.png", "0.txt", "error"},
			wantKind:  domain.KindPageProcessingFailure,
			wantMsg:   "Failed to output page",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink, out := runFake(t, context.Background(), tt.backend(), tt.options)

			assert.Equal(t, tt.wantNames, sink.names())
			assert.Equal(t, tt.wantKind, KindOf(out))

			ev := errorEvent(t, sink)
			assert.Equal(t, tt.wantKind, ev.Kind)
			assert.Contains(t, ev.Message, tt.wantMsg)
		})
	}
}

func TestRun_InputReadFailure(t *testing.T) {
	sink := &recordingSink{}
	svc := NewService(&fakeBackend{doc: newFakeDoc("x")}, nil)

	out, err := svc.Run(context.Background(), Request{
		Options: json.RawMessage(`{}`),
		Input:   iotest.ErrReader(errors.New("connection reset")),
	}, sink)
	require.NoError(t, err)

	assert.Equal(t, domain.KindInvalidDocument, KindOf(out))
	assert.Equal(t, []string{"0.json", "inherit-blob", "error"}, sink.names())
}

func TestRun_CanceledBeforeOpen(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	backend := &fakeBackend{doc: newFakeDoc("x")}
	sink, out := runFake(t, ctx, backend, `{}`)

	assert.Equal(t, domain.KindCanceled, KindOf(out))
	assert.Equal(t, []string{"0.json", "inherit-blob", "error"}, sink.names())
	assert.Nil(t, backend.opened, "document should not be opened after cancellation")
}

func TestRun_CanceledBetweenPages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	doc := newFakeDoc("a", "b", "c")
	// Cancellation during a page lets that page finish.
	doc.pages[0].onText = cancel

	sink, out := runFake(t, ctx, &fakeBackend{doc: doc}, `{"split":true}`)

	assert.Equal(t, domain.KindCanceled, KindOf(out))
	assert.Equal(t, []string{"progress", "0.json", "0-thumbnail.png", "0.txt", "0.blob", "error"}, sink.names())
	assert.Equal(t, domain.KindCanceled, errorEvent(t, sink).Kind)
	assert.True(t, doc.closed)
}

func TestRun_SinkFailure(t *testing.T) {
	sink := &recordingSink{failAt: 3}
	svc := NewService(&fakeBackend{doc: newFakeDoc("a", "b")}, nil)

	out, err := svc.Run(context.Background(), Request{
		Options: json.RawMessage(`{"split":true}`),
		Input:   strings.NewReader("%PDF"),
	}, sink)

	assert.ErrorIs(t, err, errSinkGone)
	assert.Nil(t, out)
	assert.Equal(t, []string{"progress", "0.json"}, sink.names())
}

func TestConvert_Stream(t *testing.T) {
	var buf bytes.Buffer
	svc := NewService(&fakeBackend{doc: newFakeDoc("a", "b")}, nil)

	out, err := svc.Convert(context.Background(), &buf, Request{
		Boundary: "frag-boundary",
		Options:  json.RawMessage(`{"split":true}`),
		Input:    strings.NewReader("%PDF"),
	})
	require.NoError(t, err)
	assert.Equal(t, Done{Children: 2, PageCount: 2}, out)
	assert.True(t, strings.HasSuffix(buf.String(), "\r\n--frag-boundary--\r\n"))

	frags, err := fragment.ReadAll(&buf, "frag-boundary")
	require.NoError(t, err)
	assert.Len(t, frags, 11)
	assert.Equal(t, "done", frags[len(frags)-1].Name)
}

func TestConvert_OpaqueBoundary(t *testing.T) {
	boundaries := []string{"MIME@BOUNDARY", strings.Repeat("z", 100), "--WebKitFormBoundary7MA4YWxk"}

	for _, boundary := range boundaries {
		t.Run(boundary, func(t *testing.T) {
			var buf bytes.Buffer
			svc := NewService(&fakeBackend{doc: newFakeDoc("a", "b")}, nil)

			out, err := svc.Convert(context.Background(), &buf, Request{
				Boundary: boundary,
				Options:  json.RawMessage(`{"split":true}`),
				Input:    strings.NewReader("%PDF-fake"),
			})
			require.NoError(t, err)
			assert.Equal(t, Done{Children: 2, PageCount: 2}, out)

			frags, err := fragment.ReadAll(&buf, boundary)
			require.NoError(t, err)
			assert.Len(t, frags, 11)
			assert.Equal(t, domain.FragmentDone, frags[len(frags)-1].Name)
		})
	}
}

func TestConvert_InvalidBoundary(t *testing.T) {
	var buf bytes.Buffer
	svc := NewService(&fakeBackend{doc: newFakeDoc("a")}, nil)

	out, err := svc.Convert(context.Background(), &buf, Request{Boundary: "", Input: strings.NewReader("")})
	assert.Error(t, err)
	assert.Nil(t, out)
	assert.Zero(t, buf.Len())
}
