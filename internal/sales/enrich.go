package sales

import (
	"context"
	"log/slog"
	"sort"

	"github.com/ppd-pricemap/internal/epc"
	"github.com/ppd-pricemap/internal/postcode"
)

// EnrichResult carries the run-end counters from an enrichment pass.
type EnrichResult struct {
	Postcodes int
	Fetched   int
	CacheHits int
	Enriched  int
	Unmatched int
}

// Enrich rewrites every district sales file in salesDir in place, adding
// floor area, room count and energy rating where a certificate matches.
// Lookups go through the client's cache, so a second run with a warm cache
// issues no network calls and produces identical output.
func Enrich(ctx context.Context, salesDir string, client *epc.Client, logger *slog.Logger) (EnrichResult, error) {
	files, err := districtFiles(salesDir)
	if err != nil {
		return EnrichResult{}, err
	}
	logger.Info("enriching sales files", "files", len(files))

	// Collect every distinct postcode first so each is fetched exactly once.
	unique := make(map[string]bool)
	for _, path := range files {
		sales, err := readDistrictFile(path)
		if err != nil {
			return EnrichResult{}, err
		}
		for _, sale := range sales {
			unique[postcode.Normalize(sale.Postcode)] = true
		}
	}

	postcodes := make([]string, 0, len(unique))
	for pc := range unique {
		postcodes = append(postcodes, pc)
	}
	sort.Strings(postcodes)

	var result EnrichResult
	result.Postcodes = len(postcodes)

	recordsByPostcode := make(map[string][]epc.Record, len(postcodes))
	for i, pc := range postcodes {
		records, fromCache, err := client.Records(ctx, pc)
		if err != nil {
			return result, err
		}
		recordsByPostcode[pc] = records
		if fromCache {
			result.CacheHits++
		} else {
			result.Fetched++
		}

		if result.Fetched > 0 && result.Fetched%100 == 0 && !fromCache {
			logger.Info("fetching EPC data", "fetched", result.Fetched, "remaining", len(postcodes)-i-1)
		}
	}

	for _, path := range files {
		sales, err := readDistrictFile(path)
		if err != nil {
			return result, err
		}

		for i := range sales {
			candidates := recordsByPostcode[postcode.Normalize(sales[i].Postcode)]
			match, ok := epc.BestMatch(sales[i].Address, sales[i].Postcode, candidates)
			// A certificate without a positive floor area is unusable
			// even when the matcher picked it.
			if !ok || match.FloorArea <= 0 {
				result.Unmatched++
				continue
			}

			floorArea := match.FloorArea
			rooms := match.Rooms
			rating := match.EnergyRating
			sales[i].FloorArea = &floorArea
			sales[i].Rooms = &rooms
			sales[i].EnergyRating = &rating
			result.Enriched++
		}

		if err := writeDistrictFile(path, sales); err != nil {
			return result, err
		}
	}

	return result, nil
}
