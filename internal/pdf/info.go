package pdf

import (
	"regexp"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/spherical/pdf-converter/internal/domain"
)

// maxInfoChars bounds each info value copied into page records.
const maxInfoChars = 250

// pdfDatePattern matches "D:YYYY[MM[DD[HH[mm[SS[Z|+HH'[mm']]]]]]]". Each
// component is only allowed when the previous one is present.
var pdfDatePattern = regexp.MustCompile(
	`^D:(\d{4})(?:(\d{2})(?:(\d{2})(?:(\d{2})(?:(\d{2})(?:(\d{2})(Z|([+-])(\d{2})'(?:(\d{2})')?)?)?)?)?)?)?$`,
)

// infoFromContext reads the document information dictionary. Values are
// taken from the dictionary itself rather than from pdfcpu's validated
// fields, which rewrite dates into a fixed form.
func infoFromContext(ctx *model.Context) domain.DocumentInfo {
	if ctx.Info == nil {
		return domain.DocumentInfo{}
	}
	d, err := ctx.DereferenceDict(*ctx.Info)
	if err != nil || d == nil {
		return domain.DocumentInfo{}
	}

	text := func(key string) string {
		v, ok := d.Find(key)
		if !ok {
			return ""
		}
		s, err := ctx.DereferenceStringOrHexLiteral(v, model.V10, nil)
		if err != nil {
			return ""
		}
		return s
	}

	return domain.DocumentInfo{
		Title:            clip(text("Title")),
		Author:           clip(text("Author")),
		Subject:          clip(text("Subject")),
		Keywords:         clip(text("Keywords")),
		CreationDate:     pdfDateToISO8601(text("CreationDate")),
		ModificationDate: pdfDateToISO8601(text("ModDate")),
	}
}

// pdfDateToISO8601 converts a PDF date string such as
// "D:20150312175256+08'00'" to "2015-03-12T17:52:56+0800". It keeps only the
// components present in the input and returns "" for anything malformed.
func pdfDateToISO8601(s string) string {
	m := pdfDatePattern.FindStringSubmatch(strings.TrimSpace(strings.TrimRight(s, "\x00")))
	if m == nil {
		return ""
	}

	year, month, day, hour, minute, second := m[1], m[2], m[3], m[4], m[5], m[6]
	zone, sign, zoneHour, zoneMinute := m[7], m[8], m[9], m[10]

	var b strings.Builder
	b.WriteString(year)
	if month == "" {
		return b.String()
	}
	b.WriteString("-" + month)
	if day == "" {
		return b.String()
	}
	b.WriteString("-" + day)
	if hour == "" {
		return b.String()
	}
	b.WriteString("T" + hour)
	if minute == "" {
		return b.String()
	}
	b.WriteString(":" + minute)
	if second == "" {
		return b.String()
	}
	b.WriteString(":" + second)

	switch {
	case zone == "Z":
		b.WriteString("Z")
	case sign != "":
		b.WriteString(sign + zoneHour + zoneMinute)
	}
	return b.String()
}
