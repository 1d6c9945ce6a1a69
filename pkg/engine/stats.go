package engine

import (
	"sync/atomic"

	"github.com/rs/zerolog"
)

// MatchStats accumulates tiered match counts. Contributions may land in any
// order, but the totals are exact once the phase completes.
type MatchStats struct {
	Full    atomic.Int64
	Partial atomic.Int64
	None    atomic.Int64
}

// Observe folds one match result into the counters.
func (s *MatchStats) Observe(res MatchResult) {
	switch res.Status {
	case MatchFull:
		s.Full.Add(1)
	case MatchPartial:
		s.Partial.Add(1)
	default:
		s.None.Add(1)
	}
}

// Total returns the number of observed results.
func (s *MatchStats) Total() int64 {
	return s.Full.Load() + s.Partial.Load() + s.None.Load()
}

// Fields adds the counters to a log event.
func (s *MatchStats) Fields(e *zerolog.Event) *zerolog.Event {
	return e.
		Int64("full", s.Full.Load()).
		Int64("partial", s.Partial.Load()).
		Int64("none", s.None.Load())
}

// DedupStats accumulates discard/keep counts for the dedup phase.
type DedupStats struct {
	Discarded atomic.Int64
	Kept      atomic.Int64
}

// Observe folds one discard decision into the counters.
func (s *DedupStats) Observe(discard bool) {
	if discard {
		s.Discarded.Add(1)
	} else {
		s.Kept.Add(1)
	}
}

// Total returns the number of observed decisions.
func (s *DedupStats) Total() int64 {
	return s.Discarded.Load() + s.Kept.Load()
}

// Fields adds the counters to a log event.
func (s *DedupStats) Fields(e *zerolog.Event) *zerolog.Event {
	return e.
		Int64("discarded", s.Discarded.Load()).
		Int64("kept", s.Kept.Load())
}
