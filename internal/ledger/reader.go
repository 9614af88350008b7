// Package ledger streams and decodes the Land Registry price-paid CSV.
// The file has no header row, tens of millions of rows and quoted fields,
// so it is read strictly forward without ever being held in memory.
package ledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
)

// Reader is a forward-only stream of raw rows from a price-paid CSV file.
type Reader struct {
	file *os.File
	csv  *csv.Reader
}

// Open opens the ledger file for streaming.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger CSV: %w", err)
	}

	reader := csv.NewReader(file)
	// No header row and occasionally ragged rows; validity is the
	// normalizer's responsibility, not the reader's.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	return &Reader{file: file, csv: reader}, nil
}

// Read returns the next raw row. The returned slice is reused between calls;
// callers must copy any field they retain. Returns io.EOF at end of file.
func (r *Reader) Read() ([]string, error) {
	return r.csv.Read()
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}

// Each calls fn for every readable row until EOF. Rows the CSV decoder
// cannot parse are skipped; an I/O error aborts the stream, since it would
// repeat identically on every read. A non-nil error from fn also stops the
// stream.
func (r *Reader) Each(fn func(record []string) error) error {
	for {
		record, err := r.csv.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				continue
			}
			return fmt.Errorf("failed to read ledger CSV: %w", err)
		}
		if err := fn(record); err != nil {
			return err
		}
	}
}
