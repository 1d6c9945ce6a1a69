// Package pipeline drives the full annotation run: load inputs, match
// footprints to parcels, tag leftovers from the age survey, dedup undated
// footprints against dated buildings, and emit the merged GeoJSON.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/cbusmaps/agemap/internal/logctx"
	"github.com/cbusmaps/agemap/pkg/dispatch"
	"github.com/cbusmaps/agemap/pkg/engine"
	"github.com/cbusmaps/agemap/pkg/geom"
	"github.com/cbusmaps/agemap/pkg/humanfmt"
	"github.com/cbusmaps/agemap/pkg/logging"
	"github.com/cbusmaps/agemap/pkg/sink"
	"github.com/cbusmaps/agemap/pkg/source"
	"github.com/cbusmaps/agemap/pkg/spatial"
	"github.com/cbusmaps/agemap/pkg/store"
)

// Config holds the inputs and knobs for one pipeline run. ParcelsPath,
// FootprintsPath and OutputPath are required; DatedPath and AgePointsPath
// are optional enrichment sources.
type Config struct {
	ParcelsPath    string
	FootprintsPath string
	DatedPath      string
	AgePointsPath  string
	OutputPath     string

	// Workers bounds match/dedup concurrency. Default: NumCPU.
	Workers int

	// Epsilon is the bbox dilation for index queries, in working
	// coordinates. Default: engine.DefaultEpsilon.
	Epsilon float64

	// ProgressEvery emits a progress event every N processed items.
	// 0 disables periodic progress.
	ProgressEvery int
}

func (c Config) validate() error {
	if c.ParcelsPath == "" {
		return errors.New("parcels path is required")
	}
	if c.FootprintsPath == "" {
		return errors.New("footprints path is required")
	}
	if c.OutputPath == "" {
		return errors.New("output path is required")
	}
	return nil
}

// Result summarizes a completed run.
type Result struct {
	Parcels    int
	Footprints int

	Full    int64
	Partial int64
	None    int64

	Tagged     int64
	DatedExtra int

	Discarded int64
	Kept      int64

	Emitted  int
	Duration time.Duration
}

// Run executes the pipeline end to end. Missing required inputs and
// unreadable files are fatal; malformed individual features were already
// absorbed by the loaders.
func Run(ctx context.Context, cfg Config) (Result, error) {
	if err := cfg.validate(); err != nil {
		return Result{}, err
	}
	start := time.Now()

	parcels, footprints, datedExtra, agePoints, err := load(ctx, cfg)
	if err != nil {
		return Result{}, err
	}
	if parcels.Len() == 0 {
		return Result{}, fmt.Errorf("no usable parcels in %s", cfg.ParcelsPath)
	}

	res := Result{Parcels: parcels.Len(), Footprints: len(footprints)}

	buildings, matchStats, err := match(ctx, cfg, parcels, footprints)
	if err != nil {
		return Result{}, err
	}
	res.Full = matchStats.Full.Load()
	res.Partial = matchStats.Partial.Load()
	res.None = matchStats.None.Load()

	if len(agePoints) > 0 {
		buildings, res.Tagged, err = tag(ctx, cfg, buildings, agePoints)
		if err != nil {
			return Result{}, err
		}
	}

	// External dated buildings join the pool before partitioning so they
	// both survive to the output and suppress duplicate footprints.
	buildings = append(buildings, datedExtra...)
	res.DatedExtra = len(datedExtra)

	dated, undated := store.PartitionByDate(buildings)

	kept, dedupStats, err := dedup(ctx, cfg, dated, undated)
	if err != nil {
		return Result{}, err
	}
	res.Discarded = dedupStats.Discarded.Load()
	res.Kept = dedupStats.Kept.Load()

	merged := append(dated, kept...)
	res.Emitted = len(merged)

	if err := sink.WriteGeoJSON(cfg.OutputPath, merged, logging.WithPhase("emit")); err != nil {
		return Result{}, err
	}

	res.Duration = time.Since(start)
	logging.L().Info().
		Str("event", "run_completed").
		Int("parcels", res.Parcels).
		Int("footprints", res.Footprints).
		Str("footprints_h", humanfmt.Count(int64(res.Footprints))).
		Int64("full", res.Full).
		Int64("partial", res.Partial).
		Int64("none", res.None).
		Int64("tagged", res.Tagged).
		Int("dated_extra", res.DatedExtra).
		Int64("discarded", res.Discarded).
		Int("emitted", res.Emitted).
		Str("emitted_h", humanfmt.Count(int64(res.Emitted))).
		Str("duration", humanfmt.Duration(res.Duration)).
		Msg("run complete")
	return res, nil
}

// load reads all configured inputs concurrently. The optional inputs are
// only read when a path is set, but once set they are load-fatal too: a
// configured input that cannot be read is a broken run, not a shrug.
func load(ctx context.Context, cfg Config) (parcels *store.ParcelSet, footprints []*geom.Polygon, datedExtra []store.Building, agePoints []engine.AgePoint, err error) {
	log := logging.WithPhase("load")
	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		parcels, err = source.LoadParcels(cfg.ParcelsPath, log)
		return err
	})
	g.Go(func() error {
		var err error
		footprints, err = source.LoadFootprints(cfg.FootprintsPath, log)
		return err
	})
	if cfg.DatedPath != "" {
		g.Go(func() error {
			var err error
			datedExtra, err = source.LoadDatedBuildings(cfg.DatedPath, log)
			return err
		})
	}
	if cfg.AgePointsPath != "" {
		g.Go(func() error {
			var err error
			agePoints, err = source.LoadAgePoints(cfg.AgePointsPath, log)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, nil, nil, err
	}
	return parcels, footprints, datedExtra, agePoints, nil
}

// phaseContext attaches a phase-tagged logger to ctx so dispatch workers
// inherit the phase field alongside their worker id.
func phaseContext(ctx context.Context, phase string) context.Context {
	return logctx.WithStr(logctx.WithLogger(ctx, *logging.L()), "phase", phase)
}

func match(ctx context.Context, cfg Config, parcels *store.ParcelSet, footprints []*geom.Polygon) ([]store.Building, *engine.MatchStats, error) {
	log := logging.WithPhase("match")
	index, err := spatial.Build(parcels.Shapes())
	if err != nil {
		return nil, nil, fmt.Errorf("index parcels: %w", err)
	}
	log.Info().Int("parcels", index.Len()).Msg("parcel index built")

	matcher := engine.NewMatcher(parcels, index, cfg.Epsilon, log)
	stats := &engine.MatchStats{}
	progress := logging.NewProgress("match", int64(len(footprints)), cfg.ProgressEvery)

	results, err := dispatch.Run(
		phaseContext(ctx, "match"),
		footprints,
		dispatch.Options{Workers: cfg.Workers},
		matcher.Match,
		func(b *geom.Polygon) engine.MatchResult {
			return engine.MatchResult{Status: engine.MatchNone, Building: b, Parcel: store.NoParcel}
		},
		func(res engine.MatchResult) {
			stats.Observe(res)
			progress.Tick(stats.Fields)
		},
	)
	if err != nil {
		return nil, nil, err
	}
	progress.Finish(stats.Fields)

	buildings := make([]store.Building, 0, len(results))
	for _, res := range results {
		buildings = append(buildings, matcher.Annotate(res))
	}
	return buildings, stats, nil
}

// taggedBuilding carries the tag outcome back through the dispatcher so
// the collector can count hits without racing the workers.
type taggedBuilding struct {
	building store.Building
	hit      bool
}

func tag(ctx context.Context, cfg Config, buildings []store.Building, points []engine.AgePoint) ([]store.Building, int64, error) {
	tagger, err := engine.NewTagger(points)
	if err != nil {
		return nil, 0, fmt.Errorf("index age points: %w", err)
	}

	var tagged int64
	progress := logging.NewProgress("tag", int64(len(buildings)), cfg.ProgressEvery)
	results, err := dispatch.Run(
		phaseContext(ctx, "tag"),
		buildings,
		dispatch.Options{Workers: cfg.Workers},
		func(b store.Building) taggedBuilding {
			if b.Dated() || b.Shape == nil {
				return taggedBuilding{building: b}
			}
			year, ok := tagger.Tag(b.Shape)
			if !ok {
				return taggedBuilding{building: b}
			}
			b.YearBuilt = year
			return taggedBuilding{building: b, hit: true}
		},
		func(b store.Building) taggedBuilding {
			return taggedBuilding{building: b}
		},
		func(tb taggedBuilding) {
			if tb.hit {
				tagged++
			}
			progress.Tick(nil)
		},
	)
	if err != nil {
		return nil, 0, err
	}
	progress.Finish(func(e *zerolog.Event) *zerolog.Event {
		return e.Int64("tagged", tagged)
	})

	out := make([]store.Building, 0, len(results))
	for _, tb := range results {
		out = append(out, tb.building)
	}
	return out, tagged, nil
}

// dedupOutcome pairs an undated building with its discard decision.
type dedupOutcome struct {
	building store.Building
	discard  bool
}

func dedup(ctx context.Context, cfg Config, dated, undated []store.Building) ([]store.Building, *engine.DedupStats, error) {
	stats := &engine.DedupStats{}
	if len(dated) == 0 || len(undated) == 0 {
		// Nothing to dedup against (or nothing to dedup): keep everything.
		stats.Kept.Store(int64(len(undated)))
		return undated, stats, nil
	}

	log := logging.WithPhase("dedup")
	datedShapes := make([]*geom.Polygon, len(dated))
	for i := range dated {
		datedShapes[i] = dated[i].Shape
	}
	index, err := spatial.Build(datedShapes)
	if err != nil {
		return nil, nil, fmt.Errorf("index dated buildings: %w", err)
	}
	deduper := engine.NewDeduper(datedShapes, index, cfg.Epsilon, log)

	progress := logging.NewProgress("dedup", int64(len(undated)), cfg.ProgressEvery)
	results, err := dispatch.Run(
		phaseContext(ctx, "dedup"),
		undated,
		dispatch.Options{Workers: cfg.Workers},
		func(b store.Building) dedupOutcome {
			return dedupOutcome{building: b, discard: deduper.ShouldDiscard(b.Shape)}
		},
		func(b store.Building) dedupOutcome {
			// Worst case for dedup is keeping a possible duplicate, never
			// dropping a unique footprint.
			return dedupOutcome{building: b, discard: false}
		},
		func(o dedupOutcome) {
			stats.Observe(o.discard)
			progress.Tick(stats.Fields)
		},
	)
	if err != nil {
		return nil, nil, err
	}
	progress.Finish(stats.Fields)

	kept := make([]store.Building, 0, len(results))
	for _, o := range results {
		if !o.discard {
			kept = append(kept, o.building)
		}
	}
	return kept, stats, nil
}
