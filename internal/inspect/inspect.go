// Package inspect renders a fragment stream for humans: one line per
// fragment plus a progress bar driven by progress fragments.
package inspect

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"

	"github.com/spherical/pdf-converter/internal/domain"
	"github.com/spherical/pdf-converter/internal/fragment"
)

// Summary describes an inspected stream.
type Summary struct {
	Fragments int
	Bytes     int
	// Terminal is "done", "error" or "" when the stream had no terminal fragment.
	Terminal string
	Error    *domain.ErrorEvent
	Progress domain.ProgressCounts
}

// OK reports whether the stream ended with done.
func (s Summary) OK() bool {
	return s.Terminal == domain.FragmentDone
}

// Options configure an Inspector.
type Options struct {
	// Out receives the fragment listing.
	Out io.Writer
	// Status receives the progress bar and spinner; nil disables both.
	Status  io.Writer
	NoColor bool
}

// Inspector prints fragment streams.
type Inspector struct {
	out     io.Writer
	status  io.Writer
	noColor bool

	bar     *progressbar.ProgressBar
	spin    *spinner.Spinner
	summary Summary
}

// New creates an Inspector.
func New(opts Options) *Inspector {
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	return &Inspector{out: out, status: opts.Status, noColor: opts.NoColor}
}

// Run reads the whole stream from r. A stream that is cut off before its
// closing delimiter still yields a summary of what was read.
func (in *Inspector) Run(r io.Reader, boundary string) (Summary, error) {
	in.summary = Summary{}
	in.startSpinner()
	defer in.stopSpinner()

	fr := fragment.NewReader(r, boundary)
	for {
		f, err := fr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			in.finishBar()
			in.line(color.FgRed, "✗ stream truncated: %v", err)
			return in.summary, errors.Wrap(err, "read stream")
		}
		in.stopSpinner()
		in.handle(f)
	}

	in.finishBar()
	if in.summary.Terminal == "" {
		in.line(color.FgYellow, "⚠ stream ended without done or error")
	}
	return in.summary, nil
}

func (in *Inspector) handle(f fragment.Fragment) {
	in.summary.Fragments++
	in.summary.Bytes += len(f.Body)

	switch {
	case f.Name == domain.FragmentProgress:
		var ev domain.ProgressEvent
		if err := json.Unmarshal(f.Body, &ev); err != nil {
			in.line(color.FgYellow, "⚠ malformed progress: %s", f.Body)
			return
		}
		in.summary.Progress = ev.Children
		in.advance(ev.Children)

	case f.Name == domain.FragmentDone:
		in.summary.Terminal = domain.FragmentDone
		in.finishBar()
		in.line(color.FgGreen, "✓ done (%d fragments, %s)", in.summary.Fragments, formatBytes(in.summary.Bytes))

	case f.Name == domain.FragmentError:
		in.summary.Terminal = domain.FragmentError
		in.finishBar()
		var ev domain.ErrorEvent
		if err := json.Unmarshal(f.Body, &ev); err != nil {
			in.line(color.FgRed, "✗ error: %s", f.Body)
			return
		}
		in.summary.Error = &ev
		in.line(color.FgRed, "✗ error [%s] %s", ev.Kind, ev.Message)

	case f.Name == domain.FragmentInheritBlob:
		in.line(color.FgMagenta, "→ %s", f.Name)

	case strings.HasSuffix(f.Name, ".json"):
		in.line(color.FgCyan, "→ %-18s %s", f.Name, preview(f.Body))

	case strings.HasSuffix(f.Name, ".txt"):
		in.line(color.FgWhite, "→ %-18s %s %s", f.Name, formatBytes(len(f.Body)), preview(f.Body))

	default:
		in.line(color.FgBlue, "→ %-18s %s", f.Name, formatBytes(len(f.Body)))
	}
}

func (in *Inspector) line(attr color.Attribute, format string, args ...any) {
	c := color.New(attr)
	if in.noColor {
		c.DisableColor()
	}
	c.Fprintf(in.out, format+"\n", args...)
}

func (in *Inspector) advance(p domain.ProgressCounts) {
	if in.status == nil || p.NTotal <= 0 {
		return
	}
	if in.bar == nil {
		in.bar = progressbar.NewOptions(
			p.NTotal,
			progressbar.OptionSetWriter(in.status),
			progressbar.OptionSetDescription("pages"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "█",
				SaucerHead:    "█",
				SaucerPadding: "░",
				BarStart:      "│",
				BarEnd:        "│",
			}),
			progressbar.OptionEnableColorCodes(!in.noColor),
		)
	}
	_ = in.bar.Set(p.NProcessed)
}

func (in *Inspector) finishBar() {
	if in.bar == nil {
		return
	}
	_ = in.bar.Finish()
	fmt.Fprintln(in.status)
	in.bar = nil
}

func (in *Inspector) startSpinner() {
	if in.status == nil {
		return
	}
	in.spin = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(in.status))
	in.spin.Suffix = " waiting for fragments"
	in.spin.Start()
}

func (in *Inspector) stopSpinner() {
	if in.spin == nil {
		return
	}
	in.spin.Stop()
	in.spin = nil
}

func preview(body []byte) string {
	s := strings.Join(strings.Fields(string(body)), " ")
	const max = 60
	if r := []rune(s); len(r) > max {
		return string(r[:max]) + "…"
	}
	return s
}

func formatBytes(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
