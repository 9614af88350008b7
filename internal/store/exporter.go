package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ppd-pricemap/internal/aggregate"
	"github.com/ppd-pricemap/internal/sales"
)

// Exporter replaces the database copy of the pipeline output. Each export is
// a full reload: the tables mirror the artifacts of the latest run.
type Exporter struct {
	db *sql.DB
}

// NewExporter creates a new exporter
func NewExporter(db *sql.DB) *Exporter {
	return &Exporter{db: db}
}

// EnsureSchema creates the output tables if they do not exist.
func (e *Exporter) EnsureSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS district_year_stats (
			code              TEXT    NOT NULL,
			year              INT     NOT NULL,
			avg_price         INT     NOT NULL,
			median_price      INT     NOT NULL,
			transaction_count INT     NOT NULL,
			yoy_change        NUMERIC,
			by_category       JSONB   NOT NULL,
			PRIMARY KEY (code, year)
		)`,
		`CREATE TABLE IF NOT EXISTS recent_sales (
			id            BIGSERIAL PRIMARY KEY,
			code          TEXT NOT NULL,
			price         INT  NOT NULL,
			sale_date     DATE NOT NULL,
			postcode      TEXT NOT NULL,
			property_type TEXT NOT NULL,
			address       TEXT NOT NULL,
			floor_area    NUMERIC,
			rooms         INT,
			energy_rating TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS recent_sales_code_idx ON recent_sales (code)`,
	}

	for _, statement := range statements {
		if _, err := e.db.Exec(statement); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// ExportSeries reloads district_year_stats from the computed series.
func (e *Exporter) ExportSeries(series []aggregate.DistrictSeries) (int, error) {
	tx, err := e.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("TRUNCATE TABLE district_year_stats"); err != nil {
		return 0, fmt.Errorf("failed to truncate district_year_stats: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO district_year_stats (
			code, year, avg_price, median_price, transaction_count, yoy_change, by_category
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare stats insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, district := range series {
		for _, year := range district.Years {
			byCategory, err := json.Marshal(year.ByCategory)
			if err != nil {
				return inserted, fmt.Errorf("failed to encode categories for %s/%d: %w", district.Code, year.Year, err)
			}

			var yoy interface{}
			if year.YoYChange != nil {
				yoy = *year.YoYChange
			}

			if _, err := stmt.Exec(district.Code, year.Year, year.AvgPrice,
				year.MedianPrice, year.TransactionCount, yoy, byCategory); err != nil {
				return inserted, fmt.Errorf("failed to insert stats for %s/%d: %w", district.Code, year.Year, err)
			}
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return inserted, fmt.Errorf("failed to commit stats export: %w", err)
	}
	return inserted, nil
}

// ExportSales reloads recent_sales from the per-district sales files.
func (e *Exporter) ExportSales(salesDir string) (int, error) {
	byDistrict, err := sales.ReadAll(salesDir)
	if err != nil {
		return 0, err
	}

	tx, err := e.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("TRUNCATE TABLE recent_sales"); err != nil {
		return 0, fmt.Errorf("failed to truncate recent_sales: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO recent_sales (
			code, price, sale_date, postcode, property_type, address,
			floor_area, rooms, energy_rating
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare sales insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for code, districtSales := range byDistrict {
		for _, sale := range districtSales {
			if _, err := stmt.Exec(code, sale.Price, sale.Date, sale.Postcode,
				sale.Type, sale.Address,
				nullableFloat(sale.FloorArea), nullableInt(sale.Rooms),
				nullableString(sale.EnergyRating)); err != nil {
				return inserted, fmt.Errorf("failed to insert sale for %s: %w", code, err)
			}
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return inserted, fmt.Errorf("failed to commit sales export: %w", err)
	}
	return inserted, nil
}

func nullableFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullableInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullableString(v *string) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
