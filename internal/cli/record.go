// Package cli provides the command-line interface for the wheel tracker.
package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	apperrors "wheel-tracker/internal/errors"
	"wheel-tracker/internal/models"
	"wheel-tracker/internal/wheel"
	"wheel-tracker/pkg/utils"
)

// addRecordCommands adds the journal mutation commands.
func addRecordCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newSellCmd(app))
	rootCmd.AddCommand(newBuyCmd(app))
	rootCmd.AddCommand(newExpireCmd(app))
	rootCmd.AddCommand(newBuybackCmd(app))
	rootCmd.AddCommand(newAssignCmd(app))
	rootCmd.AddCommand(newCloseCmd(app))
}

func newSellCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sell",
		Short: "Record a sold option leg",
		Long:  "Journal a sold option: a cash-secured put or a covered call.",
	}

	cmd.AddCommand(newSellLegCmd(app, models.OptionPut))
	cmd.AddCommand(newSellLegCmd(app, models.OptionCall))

	cmd.PersistentFlags().Float64("strike", 0, "Strike price")
	cmd.PersistentFlags().Float64("premium", 0, "Premium received per share")
	cmd.PersistentFlags().Int("contracts", 1, "Contracts sold")
	cmd.PersistentFlags().String("expiry", "", "Expiration (YYYY-MM-DD, friday or monthly)")
	cmd.PersistentFlags().String("date", "", "Trade date (YYYY-MM-DD, default today)")
	cmd.PersistentFlags().Float64("fees", 0, "Total fees and commissions")
	cmd.PersistentFlags().Float64("delta", 0, "Delta at sale")
	cmd.PersistentFlags().Float64("iv-rank", 0, "IV rank at sale")
	cmd.PersistentFlags().String("note", "", "Free-form description")

	return cmd
}

func newSellLegCmd(app *App, optType models.OptionType) *cobra.Command {
	use := "put <symbol>"
	short := "Record a sold cash-secured put"
	example := `  wheel sell put AAPL --strike 95 --premium 1.80 --contracts 2 --expiry 2025-06-20
  wheel sell put F --strike 12 --premium 0.35 --expiry friday --delta -0.30`
	if optType == models.OptionCall {
		use = "call <symbol>"
		short = "Record a sold covered call"
		example = `  wheel sell call AAPL --strike 105 --premium 1.85 --contracts 2 --expiry 2025-07-18
  wheel sell call AAPL --strike 105 --premium 1.85 --expiry monthly --iv-rank 42`
	}

	return &cobra.Command{
		Use:     use,
		Short:   short,
		Example: example,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.NewOutput(cmd)
			eng, err := app.requireEngine()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			symbol := args[0]
			strike, _ := cmd.Flags().GetFloat64("strike")
			premium, _ := cmd.Flags().GetFloat64("premium")
			contracts, _ := cmd.Flags().GetInt("contracts")
			fees, _ := cmd.Flags().GetFloat64("fees")
			note, _ := cmd.Flags().GetString("note")
			expiryStr, _ := cmd.Flags().GetString("expiry")
			dateStr, _ := cmd.Flags().GetString("date")

			expiry, err := parseExpiry(expiryStr)
			if err != nil {
				return err
			}
			date, err := parseDate(dateStr)
			if err != nil {
				return err
			}

			var meta *models.EventMeta
			if cmd.Flags().Changed("delta") || cmd.Flags().Changed("iv-rank") {
				meta = &models.EventMeta{}
				if cmd.Flags().Changed("delta") {
					v, _ := cmd.Flags().GetFloat64("delta")
					meta.Delta = &v
				}
				if cmd.Flags().Changed("iv-rank") {
					v, _ := cmd.Flags().GetFloat64("iv-rank")
					meta.IVRank = &v
				}
			}

			ev, err := eng.RecordSale(ctx, wheel.SaleInputs{
				Symbol:          symbol,
				Type:            optType,
				Strike:          strike,
				PremiumPerShare: premium,
				Contracts:       contracts,
				Expiration:      expiry,
				Date:            date,
				Fees:            models.CentsFromDollars(fees),
				Description:     note,
				Meta:            meta,
			})
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(ev)
			}

			output.Success("✓ Booked %s", ev.Type)
			output.Printf("  Event:      %s\n", ev.ID)
			output.Printf("  Leg:        %s %.2f%s %s x%d\n",
				ev.Symbol, ev.Strike, optionRight(optType), utils.FormatDate(ev.Expiry), ev.Contracts)
			output.Printf("  Credit:     %s\n", FormatCents(ev.Amount))
			if fees > 0 {
				output.Printf("  Fees:       %s\n", utils.FormatUSD(fees))
			}
			output.Printf("  Date:       %s\n", output.FormatDate(ev.Date))

			if optType == models.OptionCall {
				reportCallCoverage(ctx, output, eng, ev)
			}
			return nil
		},
	}
}

// reportCallCoverage warns when a freshly sold call lacks share backing
// or undercuts the min-strike snapshot.
func reportCallCoverage(ctx context.Context, output *Output, eng *wheel.Engine, ev models.WheelEvent) {
	res, err := eng.ReplaySymbol(ctx, ev.Symbol)
	if err == nil {
		for _, leg := range res.OpenCalls {
			if leg.EventID == ev.ID && leg.Uncovered {
				output.Warning("Call is not fully covered: %d more shares needed", res.SharesNeeded)
			}
		}
	}

	snap, err := eng.LatestSnapshot(ctx, ev.Symbol)
	if err != nil || snap == nil {
		return
	}
	output.Printf("  Min Strike: %s (snapshot %s)\n", FormatStrike(snap.MinStrike), utils.FormatDate(snap.Date))
	if ev.Strike < snap.MinStrike {
		output.Warning("Strike %s is below the break-even minimum %s - assignment would sell shares at a loss",
			FormatStrike(ev.Strike), FormatStrike(snap.MinStrike))
	}
}

func newBuyCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "buy <symbol>",
		Short: "Record a share purchase",
		Long:  "Journal shares bought outside of assignment. Lots feed average cost and call coverage.",
		Example: `  wheel buy AAPL --qty 100 --price 98.40
  wheel buy F --qty 500 --price 11.80 --date 2025-05-12`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.NewOutput(cmd)
			eng, err := app.requireEngine()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			qty, _ := cmd.Flags().GetInt("qty")
			price, _ := cmd.Flags().GetFloat64("price")
			dateStr, _ := cmd.Flags().GetString("date")

			date, err := parseDate(dateStr)
			if err != nil {
				return err
			}

			lot, err := eng.RecordBuy(ctx, wheel.BuyInputs{
				Symbol:   args[0],
				Quantity: qty,
				Price:    price,
				Date:     date,
			})
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(lot)
			}

			output.Success("✓ Booked share lot")
			output.Printf("  Lot:        %s\n", lot.ID)
			output.Printf("  Shares:     %s @ %s\n", utils.FormatQuantity(int64(lot.Quantity)), FormatStrike(lot.AverageCost))
			output.Printf("  Cost:       %s\n", FormatCents(lot.CostTotal()))
			output.Printf("  Date:       %s\n", output.FormatDate(lot.AcquiredDate))
			return nil
		},
	}

	cmd.Flags().Int("qty", 0, "Shares bought")
	cmd.Flags().Float64("price", 0, "Price per share")
	cmd.Flags().String("date", "", "Trade date (YYYY-MM-DD, default today)")

	return cmd
}

func newExpireCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expire <symbol>",
		Short: "Record a worthless expiration",
		Long:  "Journal an open leg expiring worthless. The premium was already booked at sale.",
		Example: `  wheel expire AAPL --type put --strike 95 --expiry 2025-06-20
  wheel expire AAPL --type call --strike 105 --expiry 2025-07-18`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.NewOutput(cmd)
			eng, err := app.requireEngine()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			typeStr, _ := cmd.Flags().GetString("type")
			strike, _ := cmd.Flags().GetFloat64("strike")
			contracts, _ := cmd.Flags().GetInt("contracts")
			note, _ := cmd.Flags().GetString("note")
			expiryStr, _ := cmd.Flags().GetString("expiry")
			dateStr, _ := cmd.Flags().GetString("date")

			optType, err := parseOptionType(typeStr)
			if err != nil {
				return err
			}
			expiry, err := parseExpiry(expiryStr)
			if err != nil {
				return err
			}
			date, err := parseDate(dateStr)
			if err != nil {
				return err
			}

			ev, err := eng.RecordExpiration(ctx, wheel.ExpirationInputs{
				Symbol:      args[0],
				Type:        optType,
				Strike:      strike,
				Expiry:      expiry,
				Contracts:   contracts,
				Date:        date,
				Description: note,
			})
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(ev)
			}

			output.Success("✓ Booked %s", ev.Type)
			output.Printf("  Event:      %s\n", ev.ID)
			output.Printf("  Leg:        %s %.2f%s %s x%d\n",
				ev.Symbol, ev.Strike, optionRight(optType), utils.FormatDate(ev.Expiry), ev.Contracts)
			output.Printf("  Date:       %s\n", output.FormatDate(ev.Date))
			return nil
		},
	}

	cmd.Flags().String("type", "", "Leg type (put or call)")
	cmd.Flags().Float64("strike", 0, "Strike price of the open leg")
	cmd.Flags().String("expiry", "", "Expiration of the open leg (YYYY-MM-DD)")
	cmd.Flags().Int("contracts", 0, "Contracts expired (default: whole leg)")
	cmd.Flags().String("date", "", "Settlement date (YYYY-MM-DD, default today)")
	cmd.Flags().String("note", "", "Free-form description")

	return cmd
}

func newBuybackCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "buyback <symbol>",
		Short: "Record a buy-to-close",
		Long:  "Journal buying back an open short leg. The debit reduces net cash flow.",
		Example: `  wheel buyback AAPL --type call --strike 105 --expiry 2025-07-18 --premium 0.45
  wheel buyback F --type put --strike 12 --expiry 2025-06-20 --premium 0.10 --fees 0.65`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.NewOutput(cmd)
			eng, err := app.requireEngine()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			typeStr, _ := cmd.Flags().GetString("type")
			strike, _ := cmd.Flags().GetFloat64("strike")
			premium, _ := cmd.Flags().GetFloat64("premium")
			contracts, _ := cmd.Flags().GetInt("contracts")
			fees, _ := cmd.Flags().GetFloat64("fees")
			note, _ := cmd.Flags().GetString("note")
			expiryStr, _ := cmd.Flags().GetString("expiry")
			dateStr, _ := cmd.Flags().GetString("date")

			optType, err := parseOptionType(typeStr)
			if err != nil {
				return err
			}
			expiry, err := parseExpiry(expiryStr)
			if err != nil {
				return err
			}
			date, err := parseDate(dateStr)
			if err != nil {
				return err
			}

			ev, err := eng.RecordBuyback(ctx, wheel.BuybackInputs{
				Symbol:          args[0],
				Type:            optType,
				Strike:          strike,
				Expiry:          expiry,
				PremiumPerShare: premium,
				Contracts:       contracts,
				Date:            date,
				Fees:            models.CentsFromDollars(fees),
				Description:     note,
			})
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(ev)
			}

			output.Success("✓ Booked %s", ev.Type)
			output.Printf("  Event:      %s\n", ev.ID)
			output.Printf("  Leg:        %s %.2f%s %s x%d\n",
				ev.Symbol, ev.Strike, optionRight(optType), utils.FormatDate(ev.Expiry), ev.Contracts)
			output.Printf("  Debit:      %s\n", FormatCents(ev.Amount))
			output.Printf("  Date:       %s\n", output.FormatDate(ev.Date))
			return nil
		},
	}

	cmd.Flags().String("type", "", "Leg type (put or call)")
	cmd.Flags().Float64("strike", 0, "Strike price of the open leg")
	cmd.Flags().String("expiry", "", "Expiration of the open leg (YYYY-MM-DD)")
	cmd.Flags().Float64("premium", 0, "Premium paid per share to close")
	cmd.Flags().Int("contracts", 0, "Contracts closed (default: whole leg)")
	cmd.Flags().Float64("fees", 0, "Total fees and commissions")
	cmd.Flags().String("date", "", "Trade date (YYYY-MM-DD, default today)")
	cmd.Flags().String("note", "", "Free-form description")

	return cmd
}

func newAssignCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assign <symbol>",
		Short: "Record an assignment",
		Long: `Journal an exercise notice. A put assignment books the share purchase
at the strike and opens a lot; a call assignment delivers shares at the
strike and consumes lots oldest-first.

Assignments are accepted even without a matching open leg, because the
broker's notice is authoritative; replay flags the mismatch for review.`,
		Example: `  wheel assign AAPL --type put --strike 95 --expiry 2025-06-20 --contracts 2
  wheel assign AAPL --type call --strike 105 --expiry 2025-07-18`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.NewOutput(cmd)
			eng, err := app.requireEngine()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			symbol := args[0]
			typeStr, _ := cmd.Flags().GetString("type")
			strike, _ := cmd.Flags().GetFloat64("strike")
			contracts, _ := cmd.Flags().GetInt("contracts")
			note, _ := cmd.Flags().GetString("note")
			expiryStr, _ := cmd.Flags().GetString("expiry")
			dateStr, _ := cmd.Flags().GetString("date")

			optType, err := parseOptionType(typeStr)
			if err != nil {
				return err
			}
			expiry, err := parseExpiry(expiryStr)
			if err != nil {
				return err
			}
			date, err := parseDate(dateStr)
			if err != nil {
				return err
			}

			if !output.IsJSON() {
				leg, err := eng.FindOpenLeg(ctx, symbol, optType, strike, expiry)
				switch {
				case err == nil:
					window := app.Config.Wheel.AssignmentWindowDTE
					if dte := leg.DTE(time.Now()); dte > window {
						output.Warning("Leg is %s out - assignments usually land within %d DTE", utils.FormatDTE(dte), window)
					}
				case errors.Is(err, apperrors.ErrNoOpenLeg):
					output.Warning("No matching open leg - the assignment will be journaled and flagged for review")
				default:
					return err
				}
			}

			result, err := eng.RecordAssignment(ctx, wheel.AssignmentInputs{
				Symbol:      symbol,
				Type:        optType,
				Strike:      strike,
				Expiry:      expiry,
				Contracts:   contracts,
				Date:        date,
				Description: note,
			})
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(result)
			}

			ev := result.Event
			output.Success("✓ Booked %s", ev.Type)
			output.Printf("  Event:      %s\n", ev.ID)
			output.Printf("  Leg:        %s %.2f%s %s x%d\n",
				ev.Symbol, ev.Strike, optionRight(optType), utils.FormatDate(ev.Expiry), ev.Contracts)
			if optType == models.OptionPut {
				output.Printf("  Bought:     %s shares @ %s\n", utils.FormatQuantity(int64(ev.Shares())), FormatStrike(strike))
			} else {
				output.Printf("  Delivered:  %s shares @ %s\n", utils.FormatQuantity(int64(ev.Shares())), FormatStrike(strike))
			}
			output.Println()
			output.Bold("Position After")
			output.Printf("  Shares:     %s in %d lot(s)\n", utils.FormatQuantity(int64(result.SharesOwned)), len(result.Lots))
			if result.SharesOwned > 0 {
				output.Printf("  Avg Cost:   %s\n", FormatStrike(result.AverageCost))
			}
			return nil
		},
	}

	cmd.Flags().String("type", "", "Leg type (put or call)")
	cmd.Flags().Float64("strike", 0, "Strike price of the assigned leg")
	cmd.Flags().String("expiry", "", "Expiration of the assigned leg (YYYY-MM-DD)")
	cmd.Flags().Int("contracts", 1, "Contracts assigned")
	cmd.Flags().String("date", "", "Settlement date (YYYY-MM-DD, default today)")
	cmd.Flags().String("note", "", "Free-form description")

	return cmd
}

func newCloseCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "close <symbol>",
		Short: "Record the end of a wheel pass",
		Long: `Journal the terminal entry of a wheel pass and close its cycle.

Run this once the symbol holds no shares and no open legs, for example
after the covered call was called away.`,
		Example: `  wheel close AAPL
  wheel close AAPL --amount 125.50 --note "residual interest"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.NewOutput(cmd)
			eng, err := app.requireEngine()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			symbol := args[0]
			amount, _ := cmd.Flags().GetFloat64("amount")
			note, _ := cmd.Flags().GetString("note")
			dateStr, _ := cmd.Flags().GetString("date")

			date, err := parseDate(dateStr)
			if err != nil {
				return err
			}

			ev, err := eng.RecordPositionClosed(ctx, wheel.CloseInputs{
				Symbol:      symbol,
				Amount:      models.CentsFromDollars(amount),
				Date:        date,
				Description: note,
			})
			if err != nil {
				return err
			}

			status, statusErr := eng.SymbolStatusView(ctx, symbol)

			if output.IsJSON() {
				if statusErr != nil {
					return output.JSON(ev)
				}
				return output.JSON(status)
			}

			output.Success("✓ Booked %s", ev.Type)
			output.Printf("  Event:      %s\n", ev.ID)
			output.Printf("  Date:       %s\n", output.FormatDate(ev.Date))
			if statusErr == nil {
				m := status.Metrics
				output.Println()
				output.Bold("Pass Summary")
				output.Printf("  Premium:    %s\n", FormatCents(m.PremiumCollected))
				output.Printf("  Realized:   %s\n", output.FormatPnL(m.RealizedPnL.Dollars()))
				output.Printf("  Days:       %d\n", m.Days)
				output.Printf("  Annualized: %s\n", output.FormatPercent(m.AnnualizedReturn*100))
			}
			return nil
		},
	}

	cmd.Flags().Float64("amount", 0, "Signed settlement cash, if any")
	cmd.Flags().String("date", "", "Settlement date (YYYY-MM-DD, default today)")
	cmd.Flags().String("note", "", "Free-form description")

	return cmd
}
