// Package sink writes annotated buildings back out as GeoJSON.
package sink

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/tidwall/geojson"

	"github.com/cbusmaps/agemap/pkg/store"
)

type featureProps struct {
	YearBuilt int    `json:"year_built"`
	Address   string `json:"address,omitempty"`
	ParcelID  string `json:"parcel_id,omitempty"`
}

// WriteGeoJSON writes buildings as a FeatureCollection. Buildings without
// a usable shape are skipped.
func WriteGeoJSON(path string, buildings []store.Building, log zerolog.Logger) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	w := bufio.NewWriterSize(f, 1<<20)

	written := 0
	if _, err := w.WriteString(`{"type":"FeatureCollection","features":[`); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	for _, b := range buildings {
		if b.Shape == nil || b.Shape.Empty() {
			continue
		}
		props, err := json.Marshal(featureProps{
			YearBuilt: b.YearBuilt,
			Address:   b.Address,
			ParcelID:  b.ParcelID,
		})
		if err != nil {
			f.Close()
			return fmt.Errorf("encode properties: %w", err)
		}
		if written > 0 {
			w.WriteByte(',')
		}
		w.WriteString(`{"type":"Feature","properties":`)
		w.Write(props)
		w.WriteString(`,"geometry":`)
		w.WriteString(geojson.NewPolygon(b.Shape.Base()).JSON())
		w.WriteByte('}')
		written++
	}
	if _, err := w.WriteString("]}\n"); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flush %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}

	log.Info().
		Str("path", path).
		Int("features", written).
		Msg("output_written")
	return nil
}
