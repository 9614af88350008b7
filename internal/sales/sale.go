// Package sales extracts recent transactions per district from the ledger
// and enriches them with EPC certificate attributes.
package sales

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Sale is one recent transaction as stored in a district sales file. The
// enrichment fields are pointers so an unmatched sale serializes without
// them rather than with zero values.
type Sale struct {
	Price        int      `json:"price"`
	Date         string   `json:"date"`
	Postcode     string   `json:"postcode"`
	Type         string   `json:"type"`
	Address      string   `json:"address"`
	FloorArea    *float64 `json:"floorArea,omitempty"`
	Rooms        *int     `json:"rooms,omitempty"`
	EnergyRating *string  `json:"energyRating,omitempty"`
}

// readDistrictFile loads one district's sales list.
func readDistrictFile(path string) ([]Sale, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sales file %s: %w", path, err)
	}

	var sales []Sale
	if err := json.Unmarshal(data, &sales); err != nil {
		return nil, fmt.Errorf("failed to parse sales file %s: %w", path, err)
	}
	return sales, nil
}

// writeDistrictFile writes one district's sales list, replacing the file.
func writeDistrictFile(path string, sales []Sale) error {
	data, err := json.Marshal(sales)
	if err != nil {
		return fmt.Errorf("failed to encode sales file %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write sales file %s: %w", path, err)
	}
	return nil
}

// ReadAll loads every district sales file in dir, keyed by district code.
func ReadAll(dir string) (map[string][]Sale, error) {
	files, err := districtFiles(dir)
	if err != nil {
		return nil, err
	}

	all := make(map[string][]Sale, len(files))
	for _, path := range files {
		sales, err := readDistrictFile(path)
		if err != nil {
			return nil, err
		}
		code := strings.TrimSuffix(filepath.Base(path), ".json")
		all[code] = sales
	}
	return all, nil
}

// districtFiles lists the per-district sales files in dir, sorted by name.
func districtFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read sales directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	return files, nil
}
