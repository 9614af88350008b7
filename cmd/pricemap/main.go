package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppd-pricemap/internal/aggregate"
	"github.com/ppd-pricemap/internal/config"
	"github.com/ppd-pricemap/internal/epc"
	"github.com/ppd-pricemap/internal/geometry"
	"github.com/ppd-pricemap/internal/ledger"
	"github.com/ppd-pricemap/internal/logging"
	"github.com/ppd-pricemap/internal/output"
	"github.com/ppd-pricemap/internal/sales"
	"github.com/ppd-pricemap/internal/store"
)

var logger *slog.Logger

func main() {
	config.LoadEnv()
	logger = logging.New()

	rootCmd := &cobra.Command{
		Use:   "pricemap",
		Short: "UK price-paid data pipeline",
		Long:  `Batch pipeline converting the Land Registry price-paid ledger into per-district statistics, recent-sales files and EPC-enriched sale records`,
	}

	rootCmd.AddCommand(createAggregateCmd())
	rootCmd.AddCommand(createRecentSalesCmd())
	rootCmd.AddCommand(createEnrichCmd())
	rootCmd.AddCommand(createExportDBCmd())

	// cobra prints the error and usage itself.
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// createAggregateCmd creates the full-table aggregation subcommand
func createAggregateCmd() *cobra.Command {
	var polygonsDir, outDir string
	var minYear int

	cmd := &cobra.Command{
		Use:   "aggregate [ledger.csv]",
		Short: "Aggregate the ledger into per-district yearly statistics",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := runAggregate(args[0], polygonsDir, outDir, minYear); err != nil {
				logger.Error("aggregation failed", "error", err)
				os.Exit(1)
			}
		},
	}

	cmd.Flags().StringVar(&polygonsDir, "polygons", config.GetEnv("POLYGONS_DIR", "raw-data/uk-postcode-polygons/geojson"), "directory of district boundary .geojson files")
	cmd.Flags().StringVar(&outDir, "out", config.GetEnv("OUTPUT_DIR", "public/data"), "output data directory")
	cmd.Flags().IntVar(&minYear, "min-year", config.GetEnvInt("MIN_YEAR", 1995), "earliest transaction year to keep")
	return cmd
}

func runAggregate(ledgerPath, polygonsDir, outDir string, minYear int) error {
	logger.Info("streaming ledger", "path", ledgerPath)

	reader, err := ledger.Open(ledgerPath)
	if err != nil {
		return err
	}
	defer reader.Close()

	agg := aggregate.New()
	rows, skipped := 0, 0

	err = reader.Each(func(record []string) error {
		rows++
		if rows%1_000_000 == 0 {
			logger.Info("processing ledger", "rows", rows, "skipped", skipped)
		}

		tx, ok := ledger.ParseRow(record, minYear)
		if !ok {
			skipped++
			return nil
		}
		agg.Add(tx)
		return nil
	})
	if err != nil {
		return err
	}
	logger.Info("ledger complete", "rows", rows, "skipped", skipped, "districts", agg.DistrictCount())

	series := agg.Compute()

	polygons, err := geometry.LoadPolygons(polygonsDir, logger)
	if err != nil {
		return err
	}

	writer, err := output.NewWriter(outDir)
	if err != nil {
		return err
	}

	// Every district keeps its trend file whether or not a polygon matched.
	for _, district := range series {
		if err := writer.WriteTrend(district); err != nil {
			return err
		}
	}

	collection, matched, unmatched := geometry.Join(series, polygons)
	if err := writer.WriteSummary(collection); err != nil {
		return err
	}

	logger.Info("aggregation complete",
		"districts", len(series),
		"polygonsMatched", matched,
		"polygonsUnmatched", unmatched,
		"summaryFeatures", len(collection.Features))
	return nil
}

// createRecentSalesCmd creates the recent-sales extraction subcommand
func createRecentSalesCmd() *cobra.Command {
	var outDir string
	var minYear, maxPerDistrict int

	cmd := &cobra.Command{
		Use:   "recent-sales [ledger.csv]",
		Short: "Extract recent sales per district from the ledger",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			salesDir := output.SalesDir(outDir)
			result, err := sales.Extract(args[0], salesDir, minYear, maxPerDistrict, logger)
			if err != nil {
				logger.Error("recent-sales extraction failed", "error", err)
				os.Exit(1)
			}
			logger.Info("recent sales written",
				"rows", result.Rows,
				"kept", result.Kept,
				"districts", result.Districts,
				"written", result.Written)
		},
	}

	cmd.Flags().StringVar(&outDir, "out", config.GetEnv("OUTPUT_DIR", "public/data"), "output data directory")
	cmd.Flags().IntVar(&minYear, "min-year", config.GetEnvInt("RECENT_MIN_YEAR", 2023), "earliest sale year to keep")
	cmd.Flags().IntVar(&maxPerDistrict, "max-per-district", config.GetEnvInt("MAX_PER_DISTRICT", 300), "cap on sales kept per district")
	return cmd
}

// createEnrichCmd creates the EPC enrichment subcommand
func createEnrichCmd() *cobra.Command {
	var outDir, cacheDir string

	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Enrich recent-sales files with EPC certificate data",
		Long:  `Fetches EPC certificates per postcode (cached on disk, rate limited) and rewrites the recent-sales files with floor area, room count and energy rating where an address match is found`,
		Run: func(cmd *cobra.Command, args []string) {
			client, err := newEPCClient(cacheDir)
			if err != nil {
				logger.Error("enrichment failed", "error", err)
				os.Exit(1)
			}

			result, err := sales.Enrich(cmd.Context(), output.SalesDir(outDir), client, logger)
			if err != nil {
				logger.Error("enrichment failed", "error", err)
				os.Exit(1)
			}
			logger.Info("enrichment complete",
				"postcodes", result.Postcodes,
				"fetched", result.Fetched,
				"cacheHits", result.CacheHits,
				"enriched", result.Enriched,
				"unmatched", result.Unmatched)
		},
	}

	cmd.Flags().StringVar(&outDir, "out", config.GetEnv("OUTPUT_DIR", "public/data"), "output data directory")
	cmd.Flags().StringVar(&cacheDir, "cache", config.GetEnv("EPC_CACHE_DIR", "raw-data/epc-cache"), "EPC response cache directory")
	return cmd
}

// createExportDBCmd creates the Postgres export subcommand
func createExportDBCmd() *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "export-db",
		Short: "Load the generated artifacts into Postgres",
		Run: func(cmd *cobra.Command, args []string) {
			if err := runExportDB(outDir); err != nil {
				logger.Error("database export failed", "error", err)
				os.Exit(1)
			}
		},
	}

	cmd.Flags().StringVar(&outDir, "out", config.GetEnv("OUTPUT_DIR", "public/data"), "output data directory")
	return cmd
}

func newEPCClient(cacheDir string) (*epc.Client, error) {
	cache, err := epc.NewCache(cacheDir)
	if err != nil {
		return nil, err
	}
	return epc.NewClient(cache, logger)
}

func runExportDB(outDir string) error {
	conn, err := store.NewConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	exporter := store.NewExporter(conn.DB)
	if err := exporter.EnsureSchema(); err != nil {
		return err
	}

	series, err := output.ReadSeries(outDir)
	if err != nil {
		return err
	}

	statsRows, err := exporter.ExportSeries(series)
	if err != nil {
		return err
	}

	salesRows, err := exporter.ExportSales(output.SalesDir(outDir))
	if err != nil {
		return err
	}

	logger.Info("database export complete", "statsRows", statsRows, "salesRows", salesRows)
	return nil
}
