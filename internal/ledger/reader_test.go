package ledger

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pp.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReaderStreamsAllRows(t *testing.T) {
	csvData := `"{1}","250000","2020-06-15 00:00","SW1A 1AA","D","N","F","10","","HIGH STREET","","LONDON","","","","A","A"
"{2}","100000","2021-03-01 00:00","M1 1AE","T","N","L","5","","CANAL STREET","","MANCHESTER","","","","A","A"
`
	reader, err := Open(writeTempCSV(t, csvData))
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()

	var rows [][]string
	err = reader.Each(func(record []string) error {
		copied := make([]string, len(record))
		copy(copied, record)
		rows = append(rows, copied)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0][colPostcode] != "SW1A 1AA" {
		t.Errorf("row 0 postcode = %q", rows[0][colPostcode])
	}
	if rows[1][colPrice] != "100000" {
		t.Errorf("row 1 price = %q", rows[1][colPrice])
	}
}

func TestReaderQuotedDelimiter(t *testing.T) {
	// Address fields may contain the delimiter inside quotes.
	csvData := `"{1}","250000","2020-06-15 00:00","GU34 1AA","D","N","F","THE OLD FORGE, REAR","","CHURCH LANE","","ALTON","","","","A","A"
`
	reader, err := Open(writeTempCSV(t, csvData))
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()

	record, err := reader.Read()
	if err != nil {
		t.Fatal(err)
	}
	if record[colPAON] != "THE OLD FORGE, REAR" {
		t.Errorf("quoted field = %q, want embedded comma preserved", record[colPAON])
	}
}

func TestEachAbortsOnPersistentReadError(t *testing.T) {
	// Opening a directory succeeds but every subsequent read fails with the
	// same I/O error; Each must surface it rather than loop on it.
	reader, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()

	done := make(chan error, 1)
	go func() {
		done <- reader.Each(func(record []string) error { return nil })
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Error("Each() returned nil on a persistent read error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Each() did not return on a persistent read error")
	}
}

func TestOpenMissingFile(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "absent.csv")); err == nil {
		t.Error("Open() succeeded on a missing file")
	}
}
