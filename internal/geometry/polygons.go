// Package geometry loads postcode-district boundary polygons and joins
// computed statistics onto them for the choropleth summary output.
package geometry

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppd-pricemap/internal/aggregate"
	"github.com/ppd-pricemap/internal/postcode"
)

// categories is the fixed output order for per-category breakdowns; absent
// categories are defaulted so the summary schema is uniform.
var categories = []string{"D", "S", "T", "F", "O"}

// rawFeature is the subset of an input GeoJSON feature we care about. The
// geometry is carried opaquely; it is never interpreted, only re-emitted.
type rawFeature struct {
	Type       string          `json:"type"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}

type rawCollection struct {
	Type     string       `json:"type"`
	Features []rawFeature `json:"features"`
}

// LoadPolygons reads every .geojson file in dir and returns district
// geometries keyed by normalized code (uppercase, whitespace stripped).
func LoadPolygons(dir string, logger *slog.Logger) (map[string]json.RawMessage, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read polygons directory: %w", err)
	}

	polygons := make(map[string]json.RawMessage)
	files := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".geojson") {
			continue
		}
		files++

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read polygon file %s: %w", entry.Name(), err)
		}

		var collection rawCollection
		if err := json.Unmarshal(data, &collection); err != nil {
			return nil, fmt.Errorf("failed to parse polygon file %s: %w", entry.Name(), err)
		}
		if collection.Type != "FeatureCollection" {
			continue
		}

		for _, feature := range collection.Features {
			if name := featureName(feature.Properties); name != "" {
				polygons[postcode.NormalizeCode(name)] = feature.Geometry
			}
		}
	}

	logger.Info("loaded district polygons", "files", files, "polygons", len(polygons))
	return polygons, nil
}

// featureName pulls the district code out of feature properties, trying the
// property names the boundary datasets actually use.
func featureName(properties map[string]any) string {
	for _, key := range []string{"name", "Name", "CODE"} {
		if v, ok := properties[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// SummaryProperties is the flattened latest-year view carried by each
// summary feature.
type SummaryProperties struct {
	Code             string                             `json:"code"`
	Name             string                             `json:"name"`
	AvgPrice         int                                `json:"avgPrice"`
	TransactionCount int                                `json:"transactionCount"`
	YoYChange        float64                            `json:"yoyChange"`
	LatestYear       int                                `json:"latestYear"`
	ByCategory       map[string]aggregate.CategoryStats `json:"byCategory"`
}

// SummaryFeature joins one district's statistics to its polygon.
type SummaryFeature struct {
	Type       string            `json:"type"`
	Geometry   json.RawMessage   `json:"geometry"`
	Properties SummaryProperties `json:"properties"`
}

// SummaryCollection is the combined geometry-joined output artifact.
type SummaryCollection struct {
	Type     string           `json:"type"`
	Features []SummaryFeature `json:"features"`
}

// Join matches each series to a polygon by exact normalized code. Districts
// without a polygon are skipped here but keep their trend output; coverage
// gaps lose geometry, never statistics. Returns the collection plus
// matched/unmatched counts for the run-end report.
func Join(series []aggregate.DistrictSeries, polygons map[string]json.RawMessage) (SummaryCollection, int, int) {
	collection := SummaryCollection{Type: "FeatureCollection"}
	matched, unmatched := 0, 0

	for _, district := range series {
		geometry, ok := polygons[postcode.NormalizeCode(district.Code)]
		if !ok {
			unmatched++
			continue
		}
		matched++

		latest := district.Years[len(district.Years)-1]

		yoy := 0.0
		if latest.YoYChange != nil {
			yoy = *latest.YoYChange
		}

		byCategory := make(map[string]aggregate.CategoryStats, len(categories))
		for _, category := range categories {
			byCategory[category] = latest.ByCategory[category]
		}

		collection.Features = append(collection.Features, SummaryFeature{
			Type:     "Feature",
			Geometry: geometry,
			Properties: SummaryProperties{
				Code:             district.Code,
				Name:             district.Name,
				AvgPrice:         latest.AvgPrice,
				TransactionCount: latest.TransactionCount,
				YoYChange:        yoy,
				LatestYear:       latest.Year,
				ByCategory:       byCategory,
			},
		})
	}

	return collection, matched, unmatched
}
