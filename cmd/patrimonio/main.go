package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"patrimonio-inventory-backend/internal/config"
	"patrimonio-inventory-backend/internal/models"
	"patrimonio-inventory-backend/internal/repository"
	service "patrimonio-inventory-backend/internal/services/reconciliation"
	"patrimonio-inventory-backend/internal/spreadsheet"
)

// errDiscrepancies exits with status 2; other failures exit with 1.
var errDiscrepancies = errors.New("spreadsheet and registry diverge")

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if errors.Is(err, errDiscrepancies) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "patrimonio",
		Short:         "Asset registry tools for inventory walkthroughs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newReconcileCommand())
	cmd.AddCommand(newImportCommand())
	return cmd
}

func newReconcileCommand() *cobra.Command {
	var (
		file   string
		sheet  string
		column string
		sector string
	)

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Compare the asset codes of a spreadsheet export with the registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			rows, err := readFile(file, sheet)
			if err != nil {
				return err
			}

			db := openDB()
			svc := service.NewReconciliationService(repository.NewAssetRepository(db), repository.NewSectorRepository(db), nil)

			sectorID, err := resolveSector(ctx, db, sector)
			if err != nil {
				return err
			}
			report, err := svc.ReconcileSheet(ctx, rows, column, sectorID)
			if err != nil {
				return err
			}

			printReport(cmd.OutOrStdout(), report)
			if !report.Clean() {
				return errDiscrepancies
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Spreadsheet export (.xlsx or .csv)")
	cmd.Flags().StringVar(&sheet, "sheet", "", "Worksheet name, defaults to the first sheet")
	cmd.Flags().StringVar(&column, "column", "A", "Column holding the asset codes, as a letter or header caption")
	cmd.Flags().StringVar(&sector, "sector", "", "Limit the registry side to one sector, by name")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newImportCommand() *cobra.Command {
	var (
		file  string
		sheet string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Upsert the asset registry from a spreadsheet export",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			rows, err := readFile(file, sheet)
			if err != nil {
				return err
			}

			cfg := config.Load()
			config.SetLogLevel(cfg.LogLevel)
			db := config.InitDB(cfg.DB)
			if err := db.AutoMigrate(models.All()...); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			var locker *redislock.Client
			if cfg.Redis.Enabled() {
				rdb, lock, err := config.ConnectRedis(ctx, cfg.Redis)
				if err != nil {
					return fmt.Errorf("redis: %w", err)
				}
				defer rdb.Close()
				locker = lock
			}

			svc := service.NewReconciliationService(repository.NewAssetRepository(db), repository.NewSectorRepository(db), locker)
			result, err := svc.ImportAssets(ctx, rows)
			if err != nil {
				return err
			}
			printImport(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Registry export (.xlsx or .csv)")
	cmd.Flags().StringVar(&sheet, "sheet", "", "Worksheet name, defaults to the first sheet")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func openDB() *gorm.DB {
	cfg := config.Load()
	config.SetLogLevel(cfg.LogLevel)
	return config.InitDB(cfg.DB)
}

func readFile(path, sheet string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return spreadsheet.ReadRows(f, path, sheet)
}

// resolveSector maps a sector name to its id. An empty name means the whole registry.
func resolveSector(ctx context.Context, db *gorm.DB, name string) (*uuid.UUID, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	sector, err := repository.NewSectorRepository(db).FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if sector == nil {
		return nil, fmt.Errorf("sector %q not found", name)
	}
	return &sector.ID, nil
}

func printReport(w io.Writer, report service.Report) {
	fmt.Fprintf(w, "sheet codes:    %d\n", report.SheetCount)
	fmt.Fprintf(w, "registry codes: %d\n", report.RegistryCount)
	fmt.Fprintf(w, "in both:        %d\n", len(report.InBoth))
	printCodes(w, "only in sheet", report.OnlyInSheet)
	printCodes(w, "only in registry", report.OnlyInRegistry)
	printCodes(w, "duplicated in sheet", report.DuplicatesInSheet)
	printCodes(w, "decommissioned in registry", report.Decommissioned)
	if report.Clean() {
		fmt.Fprintln(w, "OK: sheet matches the registry")
	}
}

func printCodes(w io.Writer, label string, codes []string) {
	if len(codes) == 0 {
		return
	}
	fmt.Fprintf(w, "%s (%d):\n", label, len(codes))
	for _, code := range codes {
		fmt.Fprintf(w, "  %s\n", code)
	}
}

func printImport(w io.Writer, result service.ImportResult) {
	fmt.Fprintf(w, "rows read:       %d\n", result.Rows)
	fmt.Fprintf(w, "assets upserted: %d\n", result.Upserted)
	fmt.Fprintf(w, "sectors created: %d\n", result.SectorsCreated)
	for _, e := range result.Errors {
		fmt.Fprintf(w, "  row %d skipped: %s\n", e.Row, e.Reason)
	}
}
