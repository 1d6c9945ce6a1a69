package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/cbusmaps/agemap/pkg/logging"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

// Two parcels: 0..10 built 1961, 20..30 built 1950.
const parcelsFixture = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature",
     "properties": {"PARCELID": "010-111111-00", "RESYRBLT": 1961, "SITEADDRESS": "1 FIRST AVE"},
     "geometry": {"type": "Polygon", "coordinates": [[[0,0],[10,0],[10,10],[0,10],[0,0]]]}},
    {"type": "Feature",
     "properties": {"PARCELID": "010-222222-00", "RESYRBLT": 1950, "SITEADDRESS": "2 SECOND AVE"},
     "geometry": {"type": "Polygon", "coordinates": [[[20,0],[30,0],[30,10],[20,10],[20,0]]]}}
  ]
}`

// Three footprints: inside the first parcel, straddling the second, and
// far away from both.
const footprintsFixture = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {},
     "geometry": {"type": "Polygon", "coordinates": [[[2,2],[6,2],[6,6],[2,6],[2,2]]]}},
    {"type": "Feature", "properties": {},
     "geometry": {"type": "Polygon", "coordinates": [[[18,4],[22,4],[22,8],[18,8],[18,4]]]}},
    {"type": "Feature", "properties": {},
     "geometry": {"type": "Polygon", "coordinates": [[[50,50],[54,50],[54,54],[50,54],[50,50]]]}}
  ]
}`

// One externally dated building overlapping the far-away footprint.
const datedFixture = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"year_built": 1900},
     "geometry": {"type": "Polygon", "coordinates": [[[49,49],[55,49],[55,55],[49,55],[49,49]]]}}
  ]
}`

func baseConfig(t *testing.T) (Config, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := Config{
		ParcelsPath:    writeFile(t, dir, "parcels.geojson", parcelsFixture),
		FootprintsPath: writeFile(t, dir, "footprints.geojson", footprintsFixture),
		OutputPath:     filepath.Join(dir, "out.geojson"),
		Workers:        2,
	}
	return cfg, dir
}

func TestRunMatchesAndDedups(t *testing.T) {
	cfg, dir := baseConfig(t)
	cfg.DatedPath = writeFile(t, dir, "dated.geojson", datedFixture)

	res, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Parcels != 2 || res.Footprints != 3 {
		t.Fatalf("loaded parcels=%d footprints=%d, want 2 and 3", res.Parcels, res.Footprints)
	}
	if res.Full != 1 || res.Partial != 1 || res.None != 1 {
		t.Errorf("match counts full=%d partial=%d none=%d, want 1/1/1", res.Full, res.Partial, res.None)
	}
	if res.Discarded != 1 || res.Kept != 0 {
		t.Errorf("dedup counts discarded=%d kept=%d, want 1/0", res.Discarded, res.Kept)
	}
	if res.Emitted != 3 {
		t.Errorf("emitted = %d, want 3", res.Emitted)
	}

	data, err := os.ReadFile(cfg.OutputPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	years := map[int64]bool{}
	for _, feat := range gjson.GetBytes(data, "features").Array() {
		years[feat.Get("properties.year_built").Int()] = true
	}
	for _, want := range []int64{1961, 1950, 1900} {
		if !years[want] {
			t.Errorf("output missing a building dated %d", want)
		}
	}
}

func TestRunTagsUnmatchedFromAgePoints(t *testing.T) {
	cfg, dir := baseConfig(t)
	cfg.AgePointsPath = writeFile(t, dir, "ages.csv", ""+
		"id,name,status,lat,lon,year\n"+
		"1,a,ok,52,52,1915\n")

	res, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Tagged != 1 {
		t.Fatalf("tagged = %d, want 1", res.Tagged)
	}
	// All three footprints end up dated, so nothing is discarded.
	if res.Discarded != 0 || res.Emitted != 3 {
		t.Errorf("discarded=%d emitted=%d, want 0 and 3", res.Discarded, res.Emitted)
	}

	data, err := os.ReadFile(cfg.OutputPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	found := false
	for _, feat := range gjson.GetBytes(data, "features").Array() {
		if feat.Get("properties.year_built").Int() == 1915 {
			found = true
		}
	}
	if !found {
		t.Error("tagged building with year 1915 missing from output")
	}
}

func TestRunIsDeterministic(t *testing.T) {
	cfg, dir := baseConfig(t)
	cfg.DatedPath = writeFile(t, dir, "dated.geojson", datedFixture)

	first, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	cfg.Workers = 7
	second, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}

	first.Duration = 0
	second.Duration = 0
	if first != second {
		t.Errorf("runs disagree:\n first=%+v\nsecond=%+v", first, second)
	}
}

func TestRunSummaryCarriesHumanCounts(t *testing.T) {
	var buf logBuffer
	logging.SetLogger(zerolog.New(&buf))
	defer logging.SetLogger(zerolog.New(os.Stderr).With().Timestamp().Logger())

	cfg, _ := baseConfig(t)
	if _, err := Run(context.Background(), cfg); err != nil {
		t.Fatalf("Run: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"event":"run_completed"`) {
		t.Fatalf("no run summary logged: %s", out)
	}
	if !strings.Contains(out, `"emitted_h"`) || !strings.Contains(out, `"footprints_h"`) {
		t.Errorf("summary missing humanized counts: %s", out)
	}
}

// logBuffer serializes writes so the concurrent load goroutines can share it.
type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRunMissingRequiredInput(t *testing.T) {
	cfg, _ := baseConfig(t)
	cfg.ParcelsPath = filepath.Join(t.TempDir(), "absent.geojson")
	if _, err := Run(context.Background(), cfg); err == nil {
		t.Fatal("expected an error for a missing parcels file")
	}
}

func TestRunRejectsEmptyParcels(t *testing.T) {
	cfg, dir := baseConfig(t)
	cfg.ParcelsPath = writeFile(t, dir, "noparcels.geojson",
		`{"type": "FeatureCollection", "features": []}`)
	if _, err := Run(context.Background(), cfg); err == nil {
		t.Fatal("expected an error when no usable parcels load")
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"no parcels", Config{FootprintsPath: "f", OutputPath: "o"}},
		{"no footprints", Config{ParcelsPath: "p", OutputPath: "o"}},
		{"no output", Config{ParcelsPath: "p", FootprintsPath: "f"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Run(context.Background(), tc.cfg); err == nil {
				t.Fatal("expected a validation error")
			}
		})
	}
}
