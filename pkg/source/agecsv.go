package source

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tidwall/geojson/geometry"

	"github.com/cbusmaps/agemap/pkg/engine"
)

// Column layout of the age survey export. The file carries a header row.
const (
	ageColLat  = 3
	ageColLon  = 4
	ageColYear = 5
)

// LoadAgePoints reads the surveyed construction-year points. Rows with
// missing or unparseable coordinates or an implausible year are skipped
// and counted.
func LoadAgePoints(path string, log zerolog.Logger) ([]engine.AgePoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var points []engine.AgePoint
	var skipped int64
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		if len(row) <= ageColYear {
			skipped++
			continue
		}
		lat, latErr := parseFloat(row[ageColLat])
		lon, lonErr := parseFloat(row[ageColLon])
		year, yearErr := strconv.Atoi(strings.TrimSpace(row[ageColYear]))
		if latErr != nil || lonErr != nil || yearErr != nil || !SaneYear(year) {
			skipped++
			continue
		}
		points = append(points, engine.AgePoint{
			Pos:  geometry.Point{X: lon, Y: lat},
			Year: year,
		})
	}

	log.Info().
		Str("path", path).
		Int("points", len(points)).
		Int64("skipped", skipped).
		Msg("age_points_loaded")
	return points, nil
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
