// Package output serializes pipeline results to the static data files the
// map front end consumes.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ppd-pricemap/internal/aggregate"
	"github.com/ppd-pricemap/internal/geometry"
)

// Writer owns the output data directory. Re-running with unchanged inputs
// produces byte-identical files: series arrive pre-sorted and every map is
// encoded through encoding/json, which orders keys.
type Writer struct {
	dir       string
	trendsDir string
}

// NewWriter creates the output directory tree. Failure here is fatal to the
// run; there is nowhere to put results.
func NewWriter(dir string) (*Writer, error) {
	trendsDir := filepath.Join(dir, "trends")
	if err := os.MkdirAll(trendsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Writer{dir: dir, trendsDir: trendsDir}, nil
}

// WriteTrend writes one district's full time series, whether or not the
// district matched a polygon.
func (w *Writer) WriteTrend(series aggregate.DistrictSeries) error {
	data, err := json.Marshal(series)
	if err != nil {
		return fmt.Errorf("failed to encode trend for %s: %w", series.Code, err)
	}

	path := filepath.Join(w.trendsDir, series.Code+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write trend file for %s: %w", series.Code, err)
	}
	return nil
}

// WriteSummary writes the combined geometry-joined summary collection.
func (w *Writer) WriteSummary(collection geometry.SummaryCollection) error {
	data, err := json.Marshal(collection)
	if err != nil {
		return fmt.Errorf("failed to encode summary collection: %w", err)
	}

	path := filepath.Join(w.dir, "districts-summary.geojson")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write summary file: %w", err)
	}
	return nil
}

// ReadSeries loads every trend artifact back from dir, sorted by district
// code. The database exporter uses this to reload from a finished run.
func ReadSeries(dir string) ([]aggregate.DistrictSeries, error) {
	trendsDir := filepath.Join(dir, "trends")
	entries, err := os.ReadDir(trendsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read trends directory: %w", err)
	}

	var series []aggregate.DistrictSeries
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(trendsDir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read trend file %s: %w", entry.Name(), err)
		}

		var district aggregate.DistrictSeries
		if err := json.Unmarshal(data, &district); err != nil {
			return nil, fmt.Errorf("failed to parse trend file %s: %w", entry.Name(), err)
		}
		series = append(series, district)
	}

	sort.Slice(series, func(i, j int) bool { return series[i].Code < series[j].Code })
	return series, nil
}

// SummaryPath returns where the summary artifact lives under dir.
func SummaryPath(dir string) string {
	return filepath.Join(dir, "districts-summary.geojson")
}

// TrendPath returns the trend artifact path for a district code under dir.
func TrendPath(dir, code string) string {
	return filepath.Join(dir, "trends", code+".json")
}

// SalesDir returns the recent-sales directory under dir.
func SalesDir(dir string) string {
	return filepath.Join(dir, "sales")
}
