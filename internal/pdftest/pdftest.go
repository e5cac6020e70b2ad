// Package pdftest builds small PDF documents for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Page is one page with a single line of Helvetica text.
type Page struct {
	Text   string
	Width  float64
	Height float64
}

// Doc describes a document. Info entries become the trailer's /Info
// dictionary (keys like "Title", "CreationDate").
type Doc struct {
	Pages []Page
	Info  map[string]string
}

// Pages returns a US Letter document with one page per text.
func Pages(texts ...string) []byte {
	doc := Doc{}
	for _, t := range texts {
		doc.Pages = append(doc.Pages, Page{Text: t})
	}
	return doc.Bytes()
}

// Bytes serializes d as a PDF 1.4 file with a classic xref table.
func (d Doc) Bytes() []byte {
	var buf bytes.Buffer
	var offsets []int

	obj := func(body string) int {
		offsets = append(offsets, buf.Len())
		n := len(offsets)
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", n, body)
		return n
	}

	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")

	// Object numbers are fixed up front: 1 catalog, 2 page tree, 3 font, then
	// a (page, content) pair per page.
	kids := make([]string, len(d.Pages))
	for i := range d.Pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}

	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(d.Pages)))
	obj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	for i, p := range d.Pages {
		w, h := p.Width, p.Height
		if w <= 0 || h <= 0 {
			w, h = 612, 792
		}
		obj(fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %s %s] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>",
			num(w), num(h), 5+2*i,
		))

		stream := fmt.Sprintf("BT /F1 12 Tf 10 %s Td (%s) Tj ET", num(h/2), escape(p.Text))
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
	}

	trailerInfo := ""
	if len(d.Info) > 0 {
		keys := make([]string, 0, len(d.Info))
		for k := range d.Info {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var sb strings.Builder
		sb.WriteString("<<")
		for _, k := range keys {
			fmt.Fprintf(&sb, " /%s (%s)", k, escape(d.Info[k]))
		}
		sb.WriteString(" >>")
		n := obj(sb.String())
		trailerInfo = fmt.Sprintf(" /Info %d 0 R", n)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R%s >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, trailerInfo, xref)

	return buf.Bytes()
}

// Encrypt protects data with AES-256. An empty userPW yields a document that
// opens without a password but carries owner restrictions.
func Encrypt(tb testing.TB, data []byte, userPW, ownerPW string) []byte {
	tb.Helper()

	conf := model.NewAESConfiguration(userPW, ownerPW, 256)
	var out bytes.Buffer
	if err := api.Encrypt(bytes.NewReader(data), &out, conf); err != nil {
		tb.Fatalf("encrypt fixture: %v", err)
	}
	return out.Bytes()
}

func num(f float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", f), "0"), ".")
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}
