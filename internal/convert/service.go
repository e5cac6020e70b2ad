// Package convert drives a conversion run from options and input bytes to a
// terminated fragment stream.
package convert

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/spherical/pdf-converter/internal/domain"
	"github.com/spherical/pdf-converter/internal/fragment"
	"github.com/spherical/pdf-converter/internal/observability"
	"github.com/spherical/pdf-converter/internal/progress"
)

// Request is one conversion. It is not modified by the run.
type Request struct {
	// Boundary delimits fragments in the output stream.
	Boundary string

	// Options is the JSON configuration object.
	Options json.RawMessage

	// Input yields the PDF bytes.
	Input io.Reader
}

// Service orchestrates conversion runs. Runs share nothing, so one Service
// may serve concurrent runs.
type Service struct {
	backend domain.Backend
	logger  *observability.Logger
}

// NewService creates a new conversion service
func NewService(backend domain.Backend, logger *observability.Logger) *Service {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Service{
		backend: backend,
		logger:  logger.WithOperation("convert"),
	}
}

// Convert writes the fragment stream for req to w. The returned error is
// non-nil only when the stream itself could not be written; conversion
// failures are reported in the stream and in the Outcome.
func (s *Service) Convert(ctx context.Context, w io.Writer, req Request) (Outcome, error) {
	fw, err := fragment.NewWriter(w, req.Boundary)
	if err != nil {
		return nil, err
	}
	return s.Run(ctx, req, fw)
}

// Run drives req through Opening, Processing and a terminal state, writing
// fragments to sink. The sink is closed before Run returns.
func (s *Service) Run(ctx context.Context, req Request, sink domain.FragmentSink) (Outcome, error) {
	r := &run{
		svc:   s,
		req:   req,
		e:     &emitter{sink: sink},
		log:   s.logger.WithRun(uuid.NewString()),
		state: stateOpening,
		start: time.Now(),
	}
	return r.execute(ctx)
}

type state int

const (
	stateOpening state = iota
	stateProcessing
	stateDone
	stateFailed
)

func (s state) String() string {
	switch s {
	case stateOpening:
		return "opening"
	case stateProcessing:
		return "processing"
	case stateDone:
		return "done"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// run holds the per-conversion state.
type run struct {
	svc   *Service
	req   Request
	e     *emitter
	log   *observability.Logger
	state state
	start time.Time

	layout   layout
	doc      domain.Document
	data     []byte
	selected []int
	tracker  *progress.Tracker
	children int
}

func (r *run) execute(ctx context.Context) (Outcome, error) {
	defer func() {
		if r.doc != nil {
			if err := r.doc.Close(); err != nil {
				r.log.Warn().Err(err).Msg("Failed to close document")
			}
		}
	}()

	err := r.open(ctx)
	if err == nil {
		r.transition(stateProcessing)
		err = r.process(ctx)
	}

	if err != nil {
		var we *writeError
		if errors.As(err, &we) {
			r.log.Error().Err(we.err).Str("state", r.state.String()).Msg("Output stream failed")
			return nil, we.err
		}
		return r.fail(err)
	}
	return r.done()
}

func (r *run) transition(to state) {
	r.log.Debug().Str("from", r.state.String()).Str("to", to.String()).Msg("State change")
	r.state = to
}

func (r *run) open(ctx context.Context) error {
	opts, err := ParseOptions(r.req.Options)
	if err != nil {
		return err
	}

	r.layout = newLayout(opts, r.svc.backend)
	r.log.Info().
		Str("layout", r.layout.name()).
		Str("page_selection", opts.PageSelection).
		Bool("split", opts.Split).
		Msg("Starting conversion")

	if err := r.layout.begin(r.e); err != nil {
		return err
	}

	if r.req.Input == nil {
		return domain.InvalidDocumentError("Failed to open PDF: no input", nil)
	}
	data, err := io.ReadAll(r.req.Input)
	if err != nil {
		return domain.InvalidDocumentError("Failed to read input", err)
	}
	r.data = data

	if err := ctx.Err(); err != nil {
		return domain.CanceledError("Conversion canceled", err)
	}

	doc, err := r.svc.backend.Open(data)
	if err != nil {
		return err
	}
	r.doc = doc

	r.selected, err = r.svc.backend.SelectPages(opts.PageSelection, doc.PageCount())
	if err != nil {
		return err
	}

	if err := r.layout.open(doc, data); err != nil {
		return err
	}

	r.tracker = progress.New(doc.PageCount())
	r.log.Info().
		Int("page_count", doc.PageCount()).
		Int("selected", len(r.selected)).
		Int("input_bytes", len(data)).
		Msg("Document opened")
	return nil
}

func (r *run) process(ctx context.Context) error {
	for pos, index := range r.selected {
		if err := ctx.Err(); err != nil {
			return domain.CanceledError("Conversion canceled", err)
		}

		if r.layout.reportsBefore(pos) {
			if err := r.e.json(domain.FragmentProgress, r.tracker.State().Event()); err != nil {
				return err
			}
		}

		page, err := r.doc.Page(index)
		if err != nil {
			return err
		}

		pageStart := time.Now()
		if err := r.layout.page(r.e, pos, page); err != nil {
			return err
		}
		r.tracker.Advance()

		r.log.Debug().
			Int("position", pos).
			Int("page_index", index).
			Dur("duration", time.Since(pageStart)).
			Msg("Page processed")
	}

	if err := r.layout.finish(r.e); err != nil {
		return err
	}

	r.children = len(r.selected)
	if _, merged := r.layout.(*mergedLayout); merged {
		r.children = 1
	}
	return nil
}

func (r *run) done() (Outcome, error) {
	r.transition(stateDone)

	if err := r.e.write(domain.FragmentDone, nil); err != nil {
		return nil, unwrapWrite(err)
	}
	if err := r.e.close(); err != nil {
		return nil, unwrapWrite(err)
	}

	out := Done{Children: r.children, PageCount: r.tracker.State().Total}
	r.log.Info().
		Int("children", out.Children).
		Dur("duration", time.Since(r.start)).
		Msg("Conversion complete")
	return out, nil
}

func (r *run) fail(cause error) (Outcome, error) {
	failedIn := r.state
	r.transition(stateFailed)

	de := domain.AsDomainError(cause)
	r.log.Warn().
		Err(cause).
		Str("kind", string(de.Kind)).
		Str("state", failedIn.String()).
		Dur("duration", time.Since(r.start)).
		Msg("Conversion failed")

	if err := r.e.json(domain.FragmentError, domain.NewErrorEvent(de)); err != nil {
		return nil, unwrapWrite(err)
	}
	if err := r.e.close(); err != nil {
		return nil, unwrapWrite(err)
	}
	return Failed{Err: de}, nil
}

// emitter forwards fragments to the sink and tags sink failures so they are
// not mistaken for conversion failures.
type emitter struct {
	sink domain.FragmentSink
}

type writeError struct {
	err error
}

func (e *writeError) Error() string { return e.err.Error() }
func (e *writeError) Unwrap() error { return e.err }

func (e *emitter) write(name string, body []byte) error {
	if err := e.sink.Write(name, body); err != nil {
		return &writeError{err: err}
	}
	return nil
}

func (e *emitter) json(name string, v any) error {
	if err := e.sink.WriteJSON(name, v); err != nil {
		return &writeError{err: err}
	}
	return nil
}

func (e *emitter) close() error {
	if err := e.sink.Close(); err != nil {
		return &writeError{err: err}
	}
	return nil
}

func unwrapWrite(err error) error {
	var we *writeError
	if errors.As(err, &we) {
		return we.err
	}
	return err
}
