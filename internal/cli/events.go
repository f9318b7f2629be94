// Package cli provides the command-line interface for the wheel tracker.
package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"wheel-tracker/internal/models"
	"wheel-tracker/internal/store"
	"wheel-tracker/pkg/utils"
)

// addJournalCommands adds the journal read and correction commands.
func addJournalCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newEventsCmd(app))
	rootCmd.AddCommand(newCyclesCmd(app))
	rootCmd.AddCommand(newSnapshotsCmd(app))
}

func newEventsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Journal entries",
		Long:  "List, inspect and correct journal entries. The journal is append-only; corrections supersede, never overwrite.",
	}

	cmd.AddCommand(newEventsListCmd(app))
	cmd.AddCommand(newEventsShowCmd(app))
	cmd.AddCommand(newEventsEditCmd(app))

	return cmd
}

func newEventsListCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [symbol]",
		Short: "List journal entries",
		Example: `  wheel events list
  wheel events list AAPL --type CSP_SOLD
  wheel events list AAPL --all`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.NewOutput(cmd)
			if _, err := app.requireEngine(); err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			all, _ := cmd.Flags().GetBool("all")
			limit, _ := cmd.Flags().GetInt("limit")
			typeStr, _ := cmd.Flags().GetString("type")
			fromStr, _ := cmd.Flags().GetString("from")
			toStr, _ := cmd.Flags().GetString("to")

			filter := store.EventFilter{
				IncludeSuperseded: all,
				Limit:             limit,
			}
			if len(args) == 1 {
				filter.Symbol = strings.ToUpper(strings.TrimSpace(args[0]))
			}
			if typeStr != "" {
				eventType := models.EventType(strings.ToUpper(strings.TrimSpace(typeStr)))
				if !models.ValidEventType(eventType) {
					return fmt.Errorf("unknown event type %q", typeStr)
				}
				filter.Types = []models.EventType{eventType}
			}
			var err error
			if filter.StartDate, err = parseDate(fromStr); err != nil {
				return err
			}
			if filter.EndDate, err = parseDate(toStr); err != nil {
				return err
			}

			events, err := app.Store.GetEvents(ctx, filter)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(events)
			}

			if len(events) == 0 {
				output.Info("No journal entries match.")
				return nil
			}

			table := NewTable(output, "Date", "ID", "Symbol", "Type", "Strike", "Expiry", "Qty", "Amount", "")
			for _, ev := range events {
				strike := "-"
				if ev.Strike > 0 {
					strike = FormatStrike(ev.Strike)
				}
				qty := "-"
				if ev.Contracts > 0 {
					qty = fmt.Sprintf("%d", ev.Contracts)
				}
				note := ""
				if !ev.Active() {
					note = output.DimText("superseded")
				} else if ev.RollID != "" {
					note = output.DimText("roll " + utils.TruncateString(ev.RollID, 8))
				}
				table.AddRow(
					output.FormatDate(ev.Date),
					utils.TruncateString(ev.ID, 10),
					ev.Symbol,
					string(ev.Type),
					strike,
					utils.FormatDate(ev.Expiry),
					qty,
					output.FormatPnL(ev.Amount.Dollars()),
					note,
				)
			}
			table.Render()
			output.Println()
			output.Dim("%d entries. Use 'wheel events show <id>' for detail.", len(events))
			return nil
		},
	}

	cmd.Flags().Bool("all", false, "Include superseded entries")
	cmd.Flags().Int("limit", 50, "Maximum entries to list")
	cmd.Flags().String("type", "", "Filter by event type, e.g. CSP_SOLD")
	cmd.Flags().String("from", "", "Earliest date (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "Latest date (YYYY-MM-DD)")

	return cmd
}

func newEventsShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <event-id>",
		Short: "Show one journal entry in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.NewOutput(cmd)
			if _, err := app.requireEngine(); err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			ev, err := app.Store.GetEvent(ctx, args[0])
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(ev)
			}

			output.Bold("%s - %s", ev.Type, ev.Symbol)
			output.Printf("  ID:          %s\n", ev.ID)
			output.Printf("  Cycle:       %s\n", ev.CycleID)
			output.Printf("  Date:        %s\n", output.FormatDate(ev.Date))
			output.Printf("  Amount:      %s\n", output.FormatPnL(ev.Amount.Dollars()))
			if ev.Strike > 0 {
				output.Printf("  Strike:      %s\n", FormatStrike(ev.Strike))
			}
			if !ev.Expiry.IsZero() {
				output.Printf("  Expiry:      %s\n", utils.FormatDate(ev.Expiry))
			}
			if ev.Contracts > 0 {
				output.Printf("  Contracts:   %d\n", ev.Contracts)
			}
			if ev.RollID != "" {
				output.Printf("  Roll:        %s\n", ev.RollID)
			}
			if ev.Description != "" {
				output.Printf("  Note:        %s\n", ev.Description)
			}
			if ev.Meta != nil {
				if ev.Meta.Delta != nil {
					output.Printf("  Delta:       %.2f\n", *ev.Meta.Delta)
				}
				if ev.Meta.IVRank != nil {
					output.Printf("  IV Rank:     %.1f\n", *ev.Meta.IVRank)
				}
				if ev.Meta.IVPercentile != nil {
					output.Printf("  IV Pctile:   %.1f\n", *ev.Meta.IVPercentile)
				}
				if ev.Meta.Commission != nil {
					output.Printf("  Commission:  %s\n", FormatCents(*ev.Meta.Commission))
				}
			}
			output.Printf("  Status:      %s\n", ev.Status)
			if ev.SupersededBy != "" {
				output.Printf("  Replaced By: %s\n", ev.SupersededBy)
				output.Printf("  Edit Reason: %s\n", ev.EditReason)
			}
			output.Printf("  Created:     %s\n", ev.CreatedAt.Format(time.RFC3339))
			return nil
		},
	}
}

func newEventsEditCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <event-id>",
		Short: "Correct a journal entry",
		Long: `Book a corrected version of a journal entry. The original is kept,
marked superseded and linked to its replacement; --reason is mandatory
because the audit trail records why.

Only the flags you pass change; every other field carries over.`,
		Example: `  wheel events edit 01J5ZX3A --strike 96 --reason "fat-fingered strike"
  wheel events edit 01J5ZX3A --date 2025-06-21 --reason "broker settled next day"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.NewOutput(cmd)
			eng, err := app.requireEngine()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			reason, _ := cmd.Flags().GetString("reason")

			old, err := app.Store.GetEvent(ctx, args[0])
			if err != nil {
				return err
			}

			corrected := *old
			corrected.ID = ""
			corrected.Status = ""
			corrected.SupersededBy = ""
			corrected.EditReason = ""

			if cmd.Flags().Changed("date") {
				dateStr, _ := cmd.Flags().GetString("date")
				if corrected.Date, err = parseDate(dateStr); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("strike") {
				corrected.Strike, _ = cmd.Flags().GetFloat64("strike")
			}
			if cmd.Flags().Changed("expiry") {
				expiryStr, _ := cmd.Flags().GetString("expiry")
				if corrected.Expiry, err = parseExpiry(expiryStr); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("contracts") {
				corrected.Contracts, _ = cmd.Flags().GetInt("contracts")
			}
			if cmd.Flags().Changed("amount") {
				amount, _ := cmd.Flags().GetFloat64("amount")
				corrected.Amount = models.CentsFromDollars(amount)
			}
			if cmd.Flags().Changed("note") {
				corrected.Description, _ = cmd.Flags().GetString("note")
			}
			if cmd.Flags().Changed("delta") || cmd.Flags().Changed("iv-rank") {
				meta := models.EventMeta{}
				if corrected.Meta != nil {
					meta = *corrected.Meta
				}
				if cmd.Flags().Changed("delta") {
					v, _ := cmd.Flags().GetFloat64("delta")
					meta.Delta = &v
				}
				if cmd.Flags().Changed("iv-rank") {
					v, _ := cmd.Flags().GetFloat64("iv-rank")
					meta.IVRank = &v
				}
				corrected.Meta = &meta
			}

			replacement, err := eng.CorrectEvent(ctx, old.ID, corrected, reason)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(replacement)
			}

			output.Success("✓ Corrected %s", old.ID)
			output.Printf("  Replacement: %s\n", replacement.ID)
			output.Printf("  Reason:      %s\n", reason)
			output.Dim("The original entry stays in the journal, marked superseded.")
			return nil
		},
	}

	cmd.Flags().String("reason", "", "Why the entry is being corrected (required)")
	cmd.Flags().String("date", "", "Corrected date (YYYY-MM-DD)")
	cmd.Flags().Float64("strike", 0, "Corrected strike")
	cmd.Flags().String("expiry", "", "Corrected expiration (YYYY-MM-DD)")
	cmd.Flags().Int("contracts", 0, "Corrected contract count")
	cmd.Flags().Float64("amount", 0, "Corrected signed cash amount in dollars")
	cmd.Flags().String("note", "", "Corrected description")
	cmd.Flags().Float64("delta", 0, "Corrected delta")
	cmd.Flags().Float64("iv-rank", 0, "Corrected IV rank")
	cmd.MarkFlagRequired("reason")

	return cmd
}

func newCyclesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cycles [symbol]",
		Short: "List wheel cycles",
		Long:  "List wheel passes per symbol: one cycle spans first put sale to position close.",
		Example: `  wheel cycles
  wheel cycles AAPL --open`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.NewOutput(cmd)
			if _, err := app.requireEngine(); err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			openOnly, _ := cmd.Flags().GetBool("open")
			limit, _ := cmd.Flags().GetInt("limit")

			filter := store.CycleFilter{OpenOnly: openOnly, Limit: limit}
			if len(args) == 1 {
				filter.Symbol = strings.ToUpper(strings.TrimSpace(args[0]))
			}

			cycles, err := app.Store.GetCycles(ctx, filter)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(cycles)
			}

			if len(cycles) == 0 {
				output.Info("No cycles match.")
				return nil
			}

			table := NewTable(output, "ID", "Symbol", "Opened", "Closed", "Status")
			for _, c := range cycles {
				status := output.Green("open")
				closed := "-"
				if !c.Open() {
					status = output.DimText("closed")
					closed = output.FormatDate(c.ClosedAt)
				}
				table.AddRow(
					utils.TruncateString(c.ID, 10),
					c.Symbol,
					output.FormatDate(c.OpenedAt),
					closed,
					status,
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().Bool("open", false, "Only open cycles")
	cmd.Flags().Int("limit", 50, "Maximum cycles to list")

	return cmd
}

func newSnapshotsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshots <symbol>",
		Short: "Min-strike snapshots",
		Long: `Show a symbol's min-strike history: the lowest covered-call strike
that keeps the share basis whole, computed as average cost minus the
premium per share collected. One row per day; re-recording a day
replaces it.`,
		Example: `  wheel snapshots AAPL
  wheel snapshots take AAPL --premium 1.85`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.NewOutput(cmd)
			if _, err := app.requireEngine(); err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			limit, _ := cmd.Flags().GetInt("limit")
			symbol := strings.ToUpper(strings.TrimSpace(args[0]))

			snaps, err := app.Store.GetSnapshots(ctx, store.SnapshotFilter{Symbol: symbol, Limit: limit})
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(snaps)
			}

			if len(snaps) == 0 {
				output.Info("No snapshots recorded for %s.", symbol)
				output.Dim("Selling a covered call records one automatically, or run 'wheel snapshots take %s --premium <pps>'.", symbol)
				return nil
			}

			table := NewTable(output, "Date", "Shares", "Avg Cost", "Premium/Share", "Min Strike")
			for _, s := range snaps {
				table.AddRow(
					utils.FormatDate(s.Date),
					utils.FormatQuantity(int64(s.SharesOwned)),
					FormatStrike(s.AverageCost),
					FormatStrike(s.PremiumPerShare),
					FormatStrike(s.MinStrike),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().Int("limit", 30, "Maximum snapshots to list")
	cmd.AddCommand(newSnapshotsTakeCmd(app))

	return cmd
}

func newSnapshotsTakeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "take <symbol>",
		Short: "Record today's min-strike snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.NewOutput(cmd)
			eng, err := app.requireEngine()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			symbol := args[0]
			premium, _ := cmd.Flags().GetFloat64("premium")
			dateStr, _ := cmd.Flags().GetString("date")

			date, err := parseDate(dateStr)
			if err != nil {
				return err
			}

			lots, err := app.Store.GetLots(ctx, strings.ToUpper(strings.TrimSpace(symbol)))
			if err != nil {
				return err
			}

			snap, err := eng.RecordMinStrikeSnapshot(ctx, symbol, date, lots, premium)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(snap)
			}

			output.Success("✓ Snapshot recorded for %s", snap.Symbol)
			output.Printf("  Date:          %s\n", utils.FormatDate(snap.Date))
			output.Printf("  Shares:        %s\n", utils.FormatQuantity(int64(snap.SharesOwned)))
			output.Printf("  Avg Cost:      %s\n", FormatStrike(snap.AverageCost))
			output.Printf("  Premium/Share: %s\n", FormatStrike(snap.PremiumPerShare))
			output.Printf("  Min Strike:    %s\n", FormatStrike(snap.MinStrike))
			return nil
		},
	}

	cmd.Flags().Float64("premium", 0, "Premium per share being collected")
	cmd.Flags().String("date", "", "Snapshot date (YYYY-MM-DD, default today)")

	return cmd
}
