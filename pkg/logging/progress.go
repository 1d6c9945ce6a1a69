package logging

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/cbusmaps/agemap/pkg/humanfmt"
)

// Progress emits periodic progress events for a phase processing a known
// number of items. It is safe for concurrent use, though the pipeline only
// ticks it from the dispatcher's single collector goroutine.
type Progress struct {
	phase string
	total int64
	every int64
	start time.Time
	done  atomic.Int64
	log   zerolog.Logger
}

// NewProgress creates a progress meter that logs every `every` items.
// An every of 0 or less disables periodic events (the completion event is
// still emitted by Finish).
func NewProgress(phase string, total int64, every int) *Progress {
	return &Progress{
		phase: phase,
		total: total,
		every: int64(every),
		start: time.Now(),
		log:   WithPhase(phase),
	}
}

// Tick records one processed item and emits a snapshot on the configured
// interval. fields, if non-nil, adds phase-specific counters to the event.
func (p *Progress) Tick(fields func(e *zerolog.Event) *zerolog.Event) {
	done := p.done.Add(1)
	if p.every <= 0 || done%p.every != 0 {
		return
	}

	elapsed := time.Since(p.start)
	e := p.log.Info().
		Str("event", "progress").
		Int64("done", done).
		Int64("total", p.total).
		Str("rate", humanfmt.Rate(done, elapsed))
	if p.total > 0 {
		e = e.Float64("progress_pct", float64(done)*100.0/float64(p.total))
	}
	if fields != nil {
		e = fields(e)
	}
	e.Msg("progress")
}

// Done returns the number of items recorded so far.
func (p *Progress) Done() int64 {
	return p.done.Load()
}

// Finish emits the phase completion event. fields, if non-nil, adds the
// phase's final counters.
func (p *Progress) Finish(fields func(e *zerolog.Event) *zerolog.Event) {
	elapsed := time.Since(p.start)
	e := p.log.Info().
		Str("event", "phase_completed").
		Int64("items", p.done.Load()).
		Int64("duration_ms", elapsed.Milliseconds()).
		Str("duration", humanfmt.Duration(elapsed))
	if fields != nil {
		e = fields(e)
	}
	e.Msg("phase complete")
}
