package pdf

import (
	"bytes"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/pdf-converter/internal/domain"
	"github.com/spherical/pdf-converter/internal/observability"
	"github.com/spherical/pdf-converter/internal/pdftest"
)

func TestValidator_ValidateBytes(t *testing.T) {
	v := NewValidator(observability.NopLogger())

	tests := []struct {
		name    string
		data    []byte
		wantErr bool
	}{
		{"empty", nil, true},
		{"no header", []byte("hello world"), true},
		{"header too late", append(bytes.Repeat([]byte(" "), headerScanLimit), []byte("%PDF-1.4")...), true},
		{"header with junk prefix", []byte("junk%PDF-1.7\n"), false},
		{"minimal", pdftest.Pages("x"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateBytes(tt.data)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, domain.KindInvalidDocument, domain.KindOf(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestOpen_Pages(t *testing.T) {
	doc, err := Open(pdftest.Pages("Hello page one", "Hello page two"), DefaultOptions())
	require.NoError(t, err)
	defer doc.Close()

	assert.Equal(t, 2, doc.PageCount())

	page, err := doc.Page(1)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Index())

	text, err := page.Text()
	require.NoError(t, err)
	assert.Contains(t, text, "Hello page two")
	assert.NotContains(t, text, "\f")

	_, err = doc.Page(2)
	require.Error(t, err)
	assert.Equal(t, domain.KindPageProcessingFailure, domain.KindOf(err))

	_, err = doc.Page(-1)
	assert.Error(t, err)
}

func TestPage_Thumbnail(t *testing.T) {
	tests := []struct {
		name          string
		page          pdftest.Page
		wantW, wantH  int
	}{
		{"letter", pdftest.Page{Text: "portrait"}, 541, 700},
		{"landscape", pdftest.Page{Text: "landscape", Width: 792, Height: 612}, 700, 541},
		{"square", pdftest.Page{Text: "square", Width: 300, Height: 300}, 700, 700},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := pdftest.Doc{Pages: []pdftest.Page{tt.page}}.Bytes()
			doc, err := Open(data, DefaultOptions())
			require.NoError(t, err)
			defer doc.Close()

			page, err := doc.Page(0)
			require.NoError(t, err)

			out, err := page.Thumbnail()
			require.NoError(t, err)

			cfg, err := png.DecodeConfig(bytes.NewReader(out))
			require.NoError(t, err)
			assert.Equal(t, tt.wantW, cfg.Width)
			assert.Equal(t, tt.wantH, cfg.Height)

			img, err := png.Decode(bytes.NewReader(out))
			require.NoError(t, err)
			r, g, b, _ := img.At(cfg.Width-1, 0).RGBA()
			assert.Equal(t, []uint32{0xffff, 0xffff, 0xffff}, []uint32{r, g, b}, "corner should be white background")
		})
	}
}

func TestPage_ThumbnailCustomSize(t *testing.T) {
	opts := DefaultOptions()
	opts.ThumbnailMaxDimension = 100

	doc, err := Open(pdftest.Pages("small"), opts)
	require.NoError(t, err)
	defer doc.Close()

	page, err := doc.Page(0)
	require.NoError(t, err)
	out, err := page.Thumbnail()
	require.NoError(t, err)

	img, _, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 77, img.Width)
	assert.Equal(t, 100, img.Height)
}

func TestPage_TextCap(t *testing.T) {
	opts := DefaultOptions()
	opts.TextMaxChars = 5

	doc, err := Open(pdftest.Pages("abcdefghij"), opts)
	require.NoError(t, err)
	defer doc.Close()

	page, err := doc.Page(0)
	require.NoError(t, err)
	text, err := page.Text()
	require.NoError(t, err)
	assert.Equal(t, "abcde", text)
}

func TestOpen_Failures(t *testing.T) {
	plain := pdftest.Pages("secret page")

	tests := []struct {
		name     string
		data     []byte
		wantKind domain.Kind
		wantMsg  string
	}{
		{
			name:     "user password",
			data:     pdftest.Encrypt(t, plain, "user", "owner"),
			wantKind: domain.KindEncryptedDocument,
			wantMsg:  "Failed to open PDF: file is password-protected",
		},
		{
			name:     "garbage after header",
			data:     []byte("%PDF-1.4\nthis is not a pdf body at all\n"),
			wantKind: domain.KindInvalidDocument,
			wantMsg:  "Failed to open PDF",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Open(tt.data, DefaultOptions())
			require.Error(t, err)
			assert.Nil(t, doc)
			assert.Equal(t, tt.wantKind, domain.KindOf(err))
			assert.True(t, strings.HasPrefix(domain.NewErrorEvent(err).Message, tt.wantMsg))
		})
	}
}

func TestOpen_FailuresReleaseDocument(t *testing.T) {
	encrypted := pdftest.Encrypt(t, pdftest.Pages("locked"), "user", "owner")
	broken := []byte("%PDF-1.4\nthis is not a pdf body at all\n")

	// Failed opens hand their MuPDF document back to Close; repeating them
	// must neither crash nor change the reported kind.
	for i := 0; i < 50; i++ {
		_, err := Open(encrypted, DefaultOptions())
		require.Equal(t, domain.KindEncryptedDocument, domain.KindOf(err), "attempt %d", i)

		_, err = Open(broken, DefaultOptions())
		require.Equal(t, domain.KindInvalidDocument, domain.KindOf(err), "attempt %d", i)
	}

	doc, err := Open(pdftest.Pages("still fine"), DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, doc.Close())
}

func TestOpen_OwnerPasswordOnly(t *testing.T) {
	data := pdftest.Encrypt(t, pdftest.Pages("restricted but readable"), "", "owner")

	doc, err := Open(data, DefaultOptions())
	require.NoError(t, err)
	defer doc.Close()

	page, err := doc.Page(0)
	require.NoError(t, err)
	text, err := page.Text()
	require.NoError(t, err)
	assert.Contains(t, text, "restricted but readable")
}

func TestEngine_Open(t *testing.T) {
	e := NewEngine(DefaultOptions(), observability.NopLogger())

	_, err := e.Open([]byte("not a pdf"))
	assert.Equal(t, domain.KindInvalidDocument, domain.KindOf(err))

	doc, err := e.Open(pdftest.Pages("a", "b", "c"))
	require.NoError(t, err)
	defer doc.Close()
	assert.Equal(t, 3, doc.PageCount())
}

func TestDocument_CloseTwice(t *testing.T) {
	doc, err := Open(pdftest.Pages("x"), DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, doc.Close())
	assert.NoError(t, doc.Close())
}
