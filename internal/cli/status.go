// Package cli provides the command-line interface for the wheel tracker.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"wheel-tracker/internal/wheel"
	"wheel-tracker/pkg/utils"
)

// addStatusCommands adds the derived-state views.
func addStatusCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newStatusCmd(app))
	rootCmd.AddCommand(newExpirationsCmd(app))
	rootCmd.AddCommand(newDoctorCmd(app))
}

func newStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status [symbol]",
		Short: "Show wheel positions",
		Long: `Show the current state of every tracked wheel, or one symbol in detail.

State is never stored; it is derived by replaying the symbol's journal.`,
		Example: `  wheel status
  wheel status AAPL`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.NewOutput(cmd)
			eng, err := app.requireEngine()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if len(args) == 1 {
				var status wheel.SymbolStatus
				err := utils.Retry(ctx, utils.DefaultRetryConfig(), func() error {
					var err error
					status, err = eng.SymbolStatusView(ctx, args[0])
					return err
				})
				if err != nil {
					return err
				}
				if output.IsJSON() {
					return output.JSON(status)
				}
				renderSymbolStatus(output, status)
				return nil
			}

			var view wheel.PortfolioView
			err = utils.Retry(ctx, utils.DefaultRetryConfig(), func() error {
				var err error
				view, err = eng.PortfolioStatus(ctx)
				return err
			})
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(view)
			}
			renderPortfolio(output, view)
			return nil
		},
	}
}

func renderPortfolio(output *Output, view wheel.PortfolioView) {
	output.Bold("Wheel Portfolio - %s", output.FormatDate(time.Now()))
	output.Println()

	if len(view.Symbols) == 0 {
		output.Info("No positions tracked yet.")
		output.Dim("Tip: record your first put with 'wheel sell put <symbol>'.")
		return
	}

	table := NewTable(output, "Symbol", "State", "Shares", "Avg Cost", "Legs", "Premium", "Net Cash", "Realized", "Flags")
	for _, st := range view.Symbols {
		res := st.Result
		avgCost := "-"
		if res.SharesOwned > 0 {
			avgCost = FormatStrike(res.ShareCost)
		}
		flags := ""
		if n := len(res.Anomalies); n > 0 {
			flags = output.Yellow(fmt.Sprintf("%d", n))
		}
		table.AddRow(
			st.Symbol,
			string(res.State),
			utils.FormatQuantity(int64(res.SharesOwned)),
			avgCost,
			fmt.Sprintf("%d", len(res.OpenPuts)+len(res.OpenCalls)),
			FormatCents(res.PremiumCollected),
			output.FormatPnL(res.NetCashFlow.Dollars()),
			output.FormatPnL(res.RealizedPnL.Dollars()),
			flags,
		)
	}
	table.Render()

	output.Println()
	output.Bold("Totals")
	output.Printf("  Premium Collected: %s\n", FormatCents(view.PremiumCollected))
	output.Printf("  Net Cash Flow:     %s\n", output.FormatPnL(view.NetCashFlow.Dollars()))
	output.Printf("  Open Legs:         %d\n", view.OpenLegs)
	if view.SharesNeeded > 0 {
		output.Warning("Uncovered calls need %s more shares", utils.FormatQuantity(int64(view.SharesNeeded)))
	}
	if view.Anomalies > 0 {
		output.Warning("%d journal findings - run 'wheel doctor' for details", view.Anomalies)
	}
}

func renderSymbolStatus(output *Output, st wheel.SymbolStatus) {
	res := st.Result
	m := st.Metrics

	output.Bold("%s - %s", st.Symbol, res.State)
	if st.Cycle != nil {
		output.Dim("Cycle %s, opened %s", st.Cycle.ID, output.FormatDate(st.Cycle.OpenedAt))
	}
	output.Println()

	if res.SharesOwned > 0 {
		output.Printf("  Shares:            %s @ %s avg\n", utils.FormatQuantity(int64(res.SharesOwned)), FormatStrike(res.ShareCost))
	}
	output.Printf("  Premium Collected: %s\n", FormatCents(m.PremiumCollected))
	output.Printf("  Net Cash Flow:     %s\n", output.FormatPnL(m.NetCashFlow.Dollars()))
	output.Printf("  Realized P&L:      %s\n", output.FormatPnL(m.RealizedPnL.Dollars()))
	output.Printf("  Capital Peak:      %s\n", FormatCents(m.CapitalPeak))
	output.Printf("  Days in Pass:      %d\n", m.Days)
	output.Printf("  Annualized:        %s\n", output.FormatPercent(m.AnnualizedReturn*100))
	output.Println()

	if legs := res.OpenLegs(); len(legs) > 0 {
		output.Bold("Open Legs")
		table := NewTable(output, "Leg", "Premium", "Opened", "DTE", "")
		now := time.Now()
		for _, leg := range legs {
			note := ""
			if leg.Uncovered {
				note = output.Yellow("uncovered")
			}
			if leg.RollID != "" {
				note = output.DimText("rolled")
			}
			table.AddRow(
				FormatLeg(st.Symbol, leg),
				FormatCents(leg.Premium),
				output.FormatDate(leg.OpenDate),
				utils.FormatDTE(leg.DTE(now)),
				note,
			)
		}
		table.Render()
		output.Println()
	}

	if st.MinStrike != nil {
		output.Printf("  Min Strike: %s  (basis %s - premium %s, snapshot %s)\n",
			FormatStrike(st.MinStrike.MinStrike),
			FormatStrike(st.MinStrike.AverageCost),
			FormatStrike(st.MinStrike.PremiumPerShare),
			utils.FormatDate(st.MinStrike.Date))
		output.Println()
	}

	for _, a := range res.Anomalies {
		output.Warning("%s", a.String())
	}
	if res.ClosedEligible() {
		output.Info("No shares and no open legs - settle the pass with 'wheel close %s'", st.Symbol)
	}
}

func newExpirationsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expirations",
		Short: "Show open legs coming due",
		Long: `List open legs expiring within the window, soonest first, plus any
legs that already lapsed without a settlement entry.`,
		Example: `  wheel expirations
  wheel expirations --window 30`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.NewOutput(cmd)
			eng, err := app.requireEngine()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			window, _ := cmd.Flags().GetInt("window")
			if window == 0 {
				window = app.Config.Wheel.ExpiryWindowDays
			}

			var board wheel.ExpirationBoard
			err = utils.Retry(ctx, utils.DefaultRetryConfig(), func() error {
				var err error
				board, err = eng.UpcomingExpirations(ctx, window)
				return err
			})
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(board)
			}

			output.Bold("Expirations - next %d days", window)
			output.Println()

			if len(board.Upcoming) == 0 {
				output.Info("No open legs expire within %d days.", window)
			} else {
				table := NewTable(output, "Leg", "Premium", "DTE", "")
				for _, el := range board.Upcoming {
					note := ""
					if el.DTE <= app.Config.Wheel.AssignmentWindowDTE {
						note = output.Yellow("assignment window")
					}
					table.AddRow(
						FormatLeg(el.Symbol, el.Leg),
						FormatCents(el.Leg.Premium),
						utils.FormatDTE(el.DTE),
						note,
					)
				}
				table.Render()
			}

			if len(board.Stale) > 0 {
				output.Println()
				output.Bold("Lapsed Without Settlement")
				table := NewTable(output, "Leg", "Premium", "DTE")
				for _, el := range board.Stale {
					table.AddRow(
						output.Red(FormatLeg(el.Symbol, el.Leg)),
						FormatCents(el.Leg.Premium),
						utils.FormatDTE(el.DTE),
					)
				}
				table.Render()
				output.Println()
				output.Warning("Record what happened: 'wheel expire', 'wheel assign' or 'wheel buyback'")
			}
			return nil
		},
	}

	cmd.Flags().Int("window", 0, "Lookahead in days (default: config expiry_window_days)")

	return cmd
}

func newDoctorCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the journal for inconsistencies",
		Long: `Sweep every symbol's journal for orphaned closes, uncovered calls,
torn roll pairs, lapsed legs and cycle rows out of step with replay.

Findings are reported, never repaired; the journal stays the source of
truth and corrections go through 'wheel events edit'.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.NewOutput(cmd)
			eng, err := app.requireEngine()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			var findings []wheel.Anomaly
			err = utils.Retry(ctx, utils.DefaultRetryConfig(), func() error {
				var err error
				findings, err = eng.Doctor(ctx)
				return err
			})
			if err != nil {
				return err
			}

			symbols, err := app.Store.GetSymbols(ctx)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(struct {
					Symbols  int
					Findings []wheel.Anomaly
				}{len(symbols), findings})
			}

			output.Box("Journal Health", []string{
				fmt.Sprintf("Symbols scanned: %d", len(symbols)),
				fmt.Sprintf("Findings:        %d", len(findings)),
			})
			output.Println()

			if len(findings) == 0 {
				output.Success("✓ Journal replays clean")
				return nil
			}

			for _, a := range findings {
				switch a.Kind {
				case wheel.AnomalyUncoveredCall, wheel.AnomalyOversoldShares:
					output.Error("%s", a.String())
				default:
					output.Warning("%s", a.String())
				}
			}
			return nil
		},
	}
}
