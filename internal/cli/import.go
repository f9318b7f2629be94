// Package cli provides the command-line interface for the wheel tracker.
package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"wheel-tracker/internal/importer"
	"wheel-tracker/internal/logging"
	"wheel-tracker/internal/models"
	"wheel-tracker/pkg/utils"
)

// addImportCommands adds the CSV import command.
func addImportCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newImportCmd(app))
}

func newImportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import journal entries from CSV",
		Long: `Import trade history from a CSV export. Each row becomes one journal
entry, booked in file order through the same paths as the interactive
commands, so assignments build lots and rolls link their legs.

Columns: symbol, event, date, strike, expiry, contracts,
premium_per_share, amount, fees, delta, iv_rank, description.`,
		Example: `  wheel import trades.csv --dry-run
  wheel import trades.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.NewOutput(cmd)
			eng, err := app.requireEngine()
			if err != nil {
				return err
			}

			path := args[0]
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			records, err := importer.ReadFile(path)
			if err != nil {
				return err
			}

			if dryRun {
				return previewImport(output, path, records)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			summary, err := importer.Apply(ctx, eng, records)
			logging.LogImport(app.Logger, path, summary.Rows, summary.Applied, err)
			if err != nil {
				if summary.Applied > 0 && !output.IsJSON() {
					output.Warning("Stopped after %d of %d rows; the applied rows are in the journal.", summary.Applied, summary.Rows)
				}
				return err
			}

			if output.IsJSON() {
				return output.JSON(summary)
			}

			output.Success("✓ Imported %d rows from %s", summary.Applied, path)
			if len(summary.ByType) > 0 {
				output.Println()
				types := make([]models.EventType, 0, len(summary.ByType))
				for t := range summary.ByType {
					types = append(types, t)
				}
				sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
				for _, t := range types {
					output.Printf("  %-18s %d\n", t, summary.ByType[t])
				}
			}
			if len(summary.Symbols) > 0 {
				output.Println()
				output.Dim("Symbols: %s", strings.Join(summary.Symbols, ", "))
			}
			output.Println()
			output.Info("Run 'wheel doctor' to check the combined journal.")
			return nil
		},
	}

	cmd.Flags().Bool("dry-run", false, "Validate and preview without booking anything")

	return cmd
}

func previewImport(output *Output, path string, records []importer.TradeRecord) error {
	problems := importer.ValidateRecords(records)

	if output.IsJSON() {
		msgs := make([]string, 0, len(problems))
		for _, p := range problems {
			msgs = append(msgs, p.Error())
		}
		return output.JSON(struct {
			File     string   `json:"file"`
			Rows     int      `json:"rows"`
			Problems []string `json:"problems"`
		}{path, len(records), msgs})
	}

	output.Bold("Import Preview - %s", path)
	output.Println()

	if len(records) == 0 {
		output.Info("File has no data rows.")
		return nil
	}

	preview := records
	if len(preview) > 10 {
		preview = preview[:10]
	}
	table := NewTable(output, "Symbol", "Event", "Date", "Strike", "Qty", "Amount")
	for _, rec := range preview {
		strike := "-"
		if rec.Strike > 0 {
			strike = FormatStrike(rec.Strike)
		}
		qty := "-"
		if rec.Contracts > 0 {
			qty = fmt.Sprintf("%d", rec.Contracts)
		}
		amount := "-"
		if rec.Amount != 0 {
			amount = output.FormatPnL(rec.Amount)
		} else if rec.PremiumPerShare != 0 {
			amount = FormatStrike(rec.PremiumPerShare) + "/sh"
		}
		table.AddRow(
			strings.ToUpper(strings.TrimSpace(rec.Symbol)),
			strings.ToUpper(strings.TrimSpace(rec.Event)),
			utils.FormatDate(rec.Date.Time),
			strike,
			qty,
			amount,
		)
	}
	table.Render()
	if len(records) > len(preview) {
		output.Dim("... and %d more rows", len(records)-len(preview))
	}
	output.Println()

	if len(problems) > 0 {
		output.Error("%d problem(s) found:", len(problems))
		for _, p := range problems {
			output.Printf("  %s\n", p.Error())
		}
		return fmt.Errorf("%d invalid rows", len(problems))
	}

	output.Success("✓ %d rows validate; run without --dry-run to book them", len(records))
	return nil
}
