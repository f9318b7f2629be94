// Package cli provides the command-line interface for the wheel tracker.
package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"wheel-tracker/internal/calc"
	"wheel-tracker/internal/models"
	"wheel-tracker/pkg/utils"
)

// addCalcCommands adds the scenario calculators.
func addCalcCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Option scenario calculators",
		Long:  "Price covered-call, cash-secured-put and long-call scenarios before trading them.",
	}

	cmd.AddCommand(newCalcCoveredCallCmd(app))
	cmd.AddCommand(newCalcCashSecuredPutCmd(app))
	cmd.AddCommand(newCalcLongCallCmd(app))

	rootCmd.AddCommand(cmd)
}

// riskParams maps the configured thresholds onto the calculators.
func riskParams(app *App) calc.RiskParams {
	return calc.RiskParams{
		ROOAlertThreshold: app.Config.Wheel.ROOAlertThreshold,
		NearMoneyBand:     app.Config.Wheel.NearMoneyBand,
	}
}

func newCalcCoveredCallCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cc <symbol>",
		Short: "Evaluate a covered call",
		Long: `Evaluate a covered call against shares you hold.

Share quantity and basis default to your journal position for the symbol,
so after an assignment you only need strike, premium and expiry.`,
		Example: `  wheel calc cc AAPL --price 102.50 --strike 105 --premium 1.85 --expiry 2025-07-18
  wheel calc cc AAPL --price 102.50 --strike 105 --premium 1.85 --expiry friday --qty 200 --basis 98.40`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.NewOutput(cmd)

			symbol := args[0]
			price, _ := cmd.Flags().GetFloat64("price")
			basis, _ := cmd.Flags().GetFloat64("basis")
			qty, _ := cmd.Flags().GetInt("qty")
			strike, _ := cmd.Flags().GetFloat64("strike")
			premium, _ := cmd.Flags().GetFloat64("premium")
			fees, _ := cmd.Flags().GetFloat64("fees")
			expiryStr, _ := cmd.Flags().GetString("expiry")

			expiry, err := parseExpiry(expiryStr)
			if err != nil {
				return err
			}

			// Fill quantity and basis from the journal when not given.
			if qty == 0 || basis == 0 {
				if app.Engine != nil {
					ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
					defer cancel()
					if res, err := app.Engine.ReplaySymbol(ctx, symbol); err == nil && res.SharesOwned > 0 {
						if qty == 0 {
							qty = res.SharesOwned
						}
						if basis == 0 {
							basis = res.ShareCost
						}
					}
				}
				if qty == 0 {
					qty = models.SharesPerContract
				}
				if basis == 0 {
					basis = price
				}
			}

			cc := calc.NewCoveredCall(calc.CoveredCallInputs{
				Symbol:     symbol,
				SharePrice: price,
				ShareBasis: basis,
				ShareQty:   qty,
				Strike:     strike,
				Premium:    models.CentsFromDollars(premium * float64(qty)),
				Fees:       models.CentsFromDollars(fees),
				Expiration: expiry,
			})
			cc.Params = riskParams(app)

			m := cc.Metrics()
			risks := cc.AnalyzeRisks()

			if output.IsJSON() {
				return output.JSON(struct {
					Symbol  string
					Metrics calc.CoveredCallMetrics
					Risks   []calc.RiskFlag
				}{symbol, m, risks})
			}

			output.Bold("Covered Call - %s", symbol)
			output.Printf("  Shares:          %s @ %s basis\n", utils.FormatQuantity(int64(qty)), FormatStrike(basis))
			output.Printf("  Strike:          %s  (expires %s, %s)\n", FormatStrike(strike), utils.FormatDate(expiry), utils.FormatDTE(m.DaysToExpiration))
			output.Println()

			output.Bold("Metrics")
			output.Printf("  Premium/Share:   %s\n", utils.FormatUSD(m.PremiumPerShare))
			output.Printf("  Breakeven:       %s\n", FormatStrike(m.Breakeven))
			output.Printf("  Max Profit:      %s\n", output.FormatPnL(m.MaxProfit))
			output.Printf("  Max Loss:        %s\n", output.FormatPnL(m.MaxLoss))
			output.Printf("  Annualized ROO:  %s\n", output.FormatPercent(m.AnnualizedROO*100))
			output.Printf("  Delta:           %.2f   Theta: %.4f\n", m.Delta, m.Theta)
			output.Printf("  Moneyness:       %s\n", utils.FormatPercent(m.Moneyness*100))
			output.Printf("  Min Strike:      %s\n", FormatStrike(m.MinStrike))
			output.Println()

			if strike < m.MinStrike {
				output.Warning("Strike %s is below the break-even minimum %s - assignment would lock in a share loss",
					FormatStrike(strike), FormatStrike(m.MinStrike))
				output.Println()
			}

			renderRiskFlags(output, risks)
			return nil
		},
	}

	cmd.Flags().Float64("price", 0, "Current share price")
	cmd.Flags().Float64("basis", 0, "Share cost basis (default: journal average cost)")
	cmd.Flags().Int("qty", 0, "Shares held (default: journal position)")
	cmd.Flags().Float64("strike", 0, "Call strike")
	cmd.Flags().Float64("premium", 0, "Premium received per share")
	cmd.Flags().Float64("fees", 0, "Total fees and commissions")
	cmd.Flags().String("expiry", "", "Expiration (YYYY-MM-DD, friday or monthly)")
	cmd.MarkFlagRequired("price")
	cmd.MarkFlagRequired("strike")
	cmd.MarkFlagRequired("premium")
	cmd.MarkFlagRequired("expiry")

	return cmd
}

func newCalcCashSecuredPutCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "csp <symbol>",
		Short: "Evaluate a cash-secured put",
		Example: `  wheel calc csp AAPL --strike 95 --premium 1.80 --price 98.20 --expiry 2025-06-20
  wheel calc csp F --strike 12 --premium 0.35 --contracts 5 --price 12.40 --expiry friday`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.NewOutput(cmd)

			symbol := args[0]
			strike, _ := cmd.Flags().GetFloat64("strike")
			premium, _ := cmd.Flags().GetFloat64("premium")
			contracts, _ := cmd.Flags().GetInt("contracts")
			price, _ := cmd.Flags().GetFloat64("price")
			fees, _ := cmd.Flags().GetFloat64("fees")
			cash, _ := cmd.Flags().GetFloat64("cash")
			expiryStr, _ := cmd.Flags().GetString("expiry")

			expiry, err := parseExpiry(expiryStr)
			if err != nil {
				return err
			}

			shares := contracts * models.SharesPerContract
			if cash == 0 {
				cash = strike * float64(shares)
			}

			csp := calc.NewCashSecuredPut(calc.CashSecuredPutInputs{
				Symbol:       symbol,
				Strike:       strike,
				Premium:      models.CentsFromDollars(premium * float64(shares)),
				Fees:         models.CentsFromDollars(fees),
				CashSecured:  models.CentsFromDollars(cash),
				CurrentPrice: price,
				Expiration:   expiry,
			})
			csp.Params = riskParams(app)

			m := csp.Metrics()
			risks := csp.AnalyzeRisks()

			if output.IsJSON() {
				return output.JSON(struct {
					Symbol  string
					Metrics calc.CashSecuredPutMetrics
					Risks   []calc.RiskFlag
				}{symbol, m, risks})
			}

			output.Bold("Cash-Secured Put - %s", symbol)
			output.Printf("  Strike:          %s  (expires %s, %s)\n", FormatStrike(strike), utils.FormatDate(expiry), utils.FormatDTE(m.DaysToExpiration))
			output.Printf("  Cash Secured:    %s  (%s shares)\n", utils.FormatUSD(cash), utils.FormatQuantity(int64(m.SharesSecured)))
			output.Println()

			output.Bold("Metrics")
			output.Printf("  Premium/Share:   %s\n", utils.FormatUSD(m.PremiumPerShare))
			output.Printf("  Breakeven:       %s\n", FormatStrike(m.Breakeven))
			output.Printf("  Max Profit:      %s\n", output.FormatPnL(m.MaxProfit))
			output.Printf("  ROO:             %s\n", output.FormatPercent(m.ROO*100))
			output.Printf("  Annualized ROO:  %s\n", output.FormatPercent(m.AnnualizedROO*100))
			output.Printf("  Moneyness:       %s\n", utils.FormatPercent(m.Moneyness*100))
			output.Println()

			renderRiskFlags(output, risks)
			return nil
		},
	}

	cmd.Flags().Float64("strike", 0, "Put strike")
	cmd.Flags().Float64("premium", 0, "Premium received per share")
	cmd.Flags().Int("contracts", 1, "Contracts sold")
	cmd.Flags().Float64("price", 0, "Current share price")
	cmd.Flags().Float64("fees", 0, "Total fees and commissions")
	cmd.Flags().Float64("cash", 0, "Cash set aside (default: strike x shares)")
	cmd.Flags().String("expiry", "", "Expiration (YYYY-MM-DD, friday or monthly)")
	cmd.MarkFlagRequired("strike")
	cmd.MarkFlagRequired("premium")
	cmd.MarkFlagRequired("price")
	cmd.MarkFlagRequired("expiry")

	return cmd
}

func newCalcLongCallCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "longcall <symbol>",
		Short: "Evaluate a bought call",
		Example: `  wheel calc longcall AAPL --strike 105 --premium 2.40 --mark 3.10 --price 104.20 --expiry monthly`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.NewOutput(cmd)

			symbol := args[0]
			strike, _ := cmd.Flags().GetFloat64("strike")
			premium, _ := cmd.Flags().GetFloat64("premium")
			mark, _ := cmd.Flags().GetFloat64("mark")
			price, _ := cmd.Flags().GetFloat64("price")
			contracts, _ := cmd.Flags().GetInt("contracts")
			fees, _ := cmd.Flags().GetFloat64("fees")
			expiryStr, _ := cmd.Flags().GetString("expiry")

			expiry, err := parseExpiry(expiryStr)
			if err != nil {
				return err
			}

			lc := calc.NewLongCall(calc.LongCallInputs{
				Symbol:          symbol,
				Strike:          strike,
				PremiumPerShare: premium,
				MarkPerShare:    mark,
				CurrentPrice:    price,
				Contracts:       contracts,
				Fees:            models.CentsFromDollars(fees),
				Expiration:      expiry,
			})
			lc.Params = riskParams(app)

			m := lc.Metrics()
			risks := lc.AnalyzeRisks()

			if output.IsJSON() {
				return output.JSON(struct {
					Symbol  string
					Metrics calc.LongCallMetrics
					Risks   []calc.RiskFlag
				}{symbol, m, risks})
			}

			output.Bold("Long Call - %s", symbol)
			output.Printf("  Strike:          %s  (expires %s, %s)\n", FormatStrike(strike), utils.FormatDate(expiry), utils.FormatDTE(m.DaysToExpiration))
			output.Println()

			output.Bold("Metrics")
			output.Printf("  Breakeven:       %s\n", FormatStrike(m.Breakeven))
			output.Printf("  Intrinsic:       %s/share\n", utils.FormatUSD(m.Intrinsic))
			output.Printf("  Time Value:      %s/share\n", utils.FormatUSD(m.TimeValue))
			output.Printf("  Unrealized P&L:  %s\n", output.FormatPnL(m.UnrealizedPnL))
			output.Printf("  Moneyness:       %s\n", utils.FormatPercent(m.Moneyness*100))
			output.Println()

			renderRiskFlags(output, risks)
			return nil
		},
	}

	cmd.Flags().Float64("strike", 0, "Call strike")
	cmd.Flags().Float64("premium", 0, "Premium paid per share")
	cmd.Flags().Float64("mark", 0, "Current option price per share")
	cmd.Flags().Float64("price", 0, "Current share price")
	cmd.Flags().Int("contracts", 1, "Contracts held")
	cmd.Flags().Float64("fees", 0, "Total fees and commissions")
	cmd.Flags().String("expiry", "", "Expiration (YYYY-MM-DD, friday or monthly)")
	cmd.MarkFlagRequired("strike")
	cmd.MarkFlagRequired("premium")
	cmd.MarkFlagRequired("mark")
	cmd.MarkFlagRequired("price")
	cmd.MarkFlagRequired("expiry")

	return cmd
}

// renderRiskFlags prints risk findings most severe first.
func renderRiskFlags(output *Output, flags []calc.RiskFlag) {
	if len(flags) == 0 {
		output.Success("✓ No risk flags")
		return
	}
	output.Bold("Risk Flags")
	for _, f := range flags {
		line := f.String()
		switch f.Severity {
		case models.RiskCritical, models.RiskHigh:
			output.Printf("  %s\n", output.Red(line))
		case models.RiskMedium:
			output.Printf("  %s\n", output.Yellow(line))
		default:
			output.Printf("  %s\n", output.DimText(line))
		}
	}
}
