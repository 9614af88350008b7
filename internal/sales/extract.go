package sales

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/ppd-pricemap/internal/ledger"
	"github.com/ppd-pricemap/internal/postcode"
)

// ExtractResult carries the run-end counters from an extraction pass.
type ExtractResult struct {
	Rows      int
	Kept      int
	Districts int
	Written   int
}

// Extract streams the ledger keeping transactions from minYear onwards,
// groups them per district, sorts each district's sales newest first, caps
// them at maxPerDistrict and writes one JSON file per district into outDir.
func Extract(ledgerPath, outDir string, minYear, maxPerDistrict int, logger *slog.Logger) (ExtractResult, error) {
	reader, err := ledger.Open(ledgerPath)
	if err != nil {
		return ExtractResult{}, err
	}
	defer reader.Close()

	var result ExtractResult
	districts := make(map[string][]Sale)

	err = reader.Each(func(record []string) error {
		result.Rows++
		if result.Rows%2_000_000 == 0 {
			logger.Info("extracting recent sales", "rows", result.Rows, "kept", result.Kept)
		}

		tx, ok := ledger.ParseRow(record, minYear)
		if !ok {
			return nil
		}

		district := postcode.District(tx.Postcode)
		districts[district] = append(districts[district], Sale{
			Price:    tx.Price,
			Date:     tx.Date,
			Postcode: tx.Postcode,
			Type:     tx.Category,
			Address:  tx.Address,
		})
		result.Kept++
		return nil
	})
	if err != nil {
		return result, err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return result, fmt.Errorf("failed to create sales directory: %w", err)
	}

	codes := make([]string, 0, len(districts))
	for code := range districts {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		sales := districts[code]
		sort.SliceStable(sales, func(i, j int) bool {
			return sales[i].Date > sales[j].Date
		})
		if len(sales) > maxPerDistrict {
			sales = sales[:maxPerDistrict]
		}

		if err := writeDistrictFile(filepath.Join(outDir, code+".json"), sales); err != nil {
			return result, err
		}
		result.Written += len(sales)
	}

	result.Districts = len(districts)
	return result, nil
}
