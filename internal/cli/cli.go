// Package cli implements the command-line interface for agemap.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/cbusmaps/agemap/pkg/engine"
	"github.com/cbusmaps/agemap/pkg/logging"
	"github.com/cbusmaps/agemap/pkg/pipeline"
)

// Run executes the CLI with the given arguments.
func Run(args []string) error {
	_ = godotenv.Load(".env")

	if len(args) == 0 {
		return errors.New("usage: agemap <command> [options]\ncommands: build")
	}

	switch args[0] {
	case "build":
		return runBuild(args[1:])
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func runBuild(args []string) error {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	parcels := fs.String("parcels", "", "parcel GeoJSON with PARCELID/RESYRBLT properties")
	footprints := fs.String("footprints", "", "building footprint GeoJSON")
	dated := fs.String("dated", "", "optional GeoJSON of buildings already carrying year_built")
	ages := fs.String("ages", "", "optional CSV of surveyed construction-year points")
	out := fs.String("out", "", "output GeoJSON path")
	workers := fs.Int("workers", 0, "worker count for match/dedup (default: NumCPU)")
	epsilon := fs.Float64("epsilon", engine.DefaultEpsilon, "bbox dilation for index queries, in working coordinates")
	progressEvery := fs.Int("progress-every", 500, "emit a progress event every N items (0 disables)")
	debug := fs.Bool("debug", false, "enable debug logging")
	pretty := fs.Bool("pretty", false, "human-friendly console logging")

	if err := fs.Parse(args); err != nil {
		return err
	}

	logging.Init(*debug, *pretty)

	cfg := pipeline.Config{
		ParcelsPath:    resolve(*parcels, "AGEMAP_PARCELS"),
		FootprintsPath: resolve(*footprints, "AGEMAP_FOOTPRINTS"),
		DatedPath:      resolve(*dated, "AGEMAP_DATED"),
		AgePointsPath:  resolve(*ages, "AGEMAP_AGES"),
		OutputPath:     resolve(*out, "AGEMAP_OUT"),
		Workers:        *workers,
		Epsilon:        *epsilon,
		ProgressEvery:  *progressEvery,
	}
	if cfg.ParcelsPath == "" {
		return errors.New("--parcels is required (or set AGEMAP_PARCELS)")
	}
	if cfg.FootprintsPath == "" {
		return errors.New("--footprints is required (or set AGEMAP_FOOTPRINTS)")
	}
	if cfg.OutputPath == "" {
		return errors.New("--out is required (or set AGEMAP_OUT)")
	}
	if cfg.Workers == 0 {
		cfg.Workers = envInt("AGEMAP_WORKERS")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err := pipeline.Run(ctx, cfg)
	return err
}

// resolve applies the flag-over-environment priority for a path option.
func resolve(flagVal, envVar string) string {
	if flagVal != "" {
		return flagVal
	}
	return os.Getenv(envVar)
}

func envInt(envVar string) int {
	n, err := strconv.Atoi(os.Getenv(envVar))
	if err != nil {
		return 0
	}
	return n
}
