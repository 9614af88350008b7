package sales

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestExtract(t *testing.T) {
	csvData := `"{1}","250000","2023-06-15 00:00","SW1A 1AA","D","N","F","10","","HIGH STREET","","LONDON","","","","A","A"
"{2}","300000","2024-01-10 00:00","SW1A 1AB","T","N","F","12","","HIGH STREET","","LONDON","","","","A","A"
"{3}","100000","2020-03-01 00:00","SW1A 1AA","T","N","L","5","","OLD STREET","","LONDON","","","","A","A"
"{4}","150000","2023-09-01 00:00","M1 1AE","F","N","L","7","","CANAL STREET","","MANCHESTER","","","","A","A"
`
	ledgerPath := filepath.Join(t.TempDir(), "pp.csv")
	if err := os.WriteFile(ledgerPath, []byte(csvData), 0o644); err != nil {
		t.Fatal(err)
	}
	outDir := filepath.Join(t.TempDir(), "sales")

	result, err := Extract(ledgerPath, outDir, 2023, 300, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	// Row 3 is before the recent-year cutoff.
	if result.Kept != 3 || result.Districts != 2 {
		t.Errorf("result = %+v, want 3 kept across 2 districts", result)
	}

	sw1a, err := readDistrictFile(filepath.Join(outDir, "SW1A.json"))
	if err != nil {
		t.Fatal(err)
	}
	if len(sw1a) != 2 {
		t.Fatalf("SW1A has %d sales, want 2", len(sw1a))
	}
	// Newest first.
	if sw1a[0].Date != "2024-01-10" || sw1a[1].Date != "2023-06-15" {
		t.Errorf("sales not sorted newest first: %s, %s", sw1a[0].Date, sw1a[1].Date)
	}
	if sw1a[1].Address != "10, HIGH STREET, LONDON" {
		t.Errorf("address = %q", sw1a[1].Address)
	}
}

func TestExtractCapsPerDistrict(t *testing.T) {
	var csvData []byte
	rows := []string{
		`"{1}","250000","2023-01-01 00:00","SW1A 1AA","D","N","F","1","","HIGH STREET","","LONDON","","","","A","A"`,
		`"{2}","250000","2023-02-01 00:00","SW1A 1AA","D","N","F","2","","HIGH STREET","","LONDON","","","","A","A"`,
		`"{3}","250000","2023-03-01 00:00","SW1A 1AA","D","N","F","3","","HIGH STREET","","LONDON","","","","A","A"`,
	}
	for _, row := range rows {
		csvData = append(csvData, row...)
		csvData = append(csvData, '\n')
	}

	ledgerPath := filepath.Join(t.TempDir(), "pp.csv")
	if err := os.WriteFile(ledgerPath, csvData, 0o644); err != nil {
		t.Fatal(err)
	}
	outDir := filepath.Join(t.TempDir(), "sales")

	result, err := Extract(ledgerPath, outDir, 2023, 2, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if result.Written != 2 {
		t.Errorf("wrote %d sales, want cap of 2", result.Written)
	}

	sales, err := readDistrictFile(filepath.Join(outDir, "SW1A.json"))
	if err != nil {
		t.Fatal(err)
	}
	if len(sales) != 2 || sales[0].Date != "2023-03-01" {
		t.Errorf("kept %d sales starting %s, want the 2 newest", len(sales), sales[0].Date)
	}
}

func TestSaleOmitsEnrichmentFieldsWhenAbsent(t *testing.T) {
	data, err := json.Marshal(Sale{Price: 100000, Date: "2023-01-01", Postcode: "M1 1AE", Type: "F", Address: "7, CANAL STREET"})
	if err != nil {
		t.Fatal(err)
	}
	for _, field := range []string{"floorArea", "rooms", "energyRating"} {
		if jsonContains(data, field) {
			t.Errorf("unenriched sale JSON contains %q: %s", field, data)
		}
	}
}

func jsonContains(data []byte, field string) bool {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return false
	}
	_, ok := m[field]
	return ok
}
