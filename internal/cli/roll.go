// Package cli provides the command-line interface for the wheel tracker.
package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"wheel-tracker/internal/models"
	"wheel-tracker/internal/wheel"
	"wheel-tracker/pkg/utils"
)

// addRollCommands adds the roll command.
func addRollCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newRollCmd(app))
}

func newRollCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roll <symbol>",
		Short: "Roll an open leg to a new strike or expiry",
		Long: `Close an open short leg and reopen it at a new strike and a later
expiration in one booking. Both journal entries share a roll ID so the
pair replays as one position, not a close and an unrelated sale.

Without --confirm the roll is only priced and previewed.`,
		Example: `  wheel roll AAPL --type call --strike 105 --expiry 2025-07-18 --new-strike 110 --new-expiry 2025-08-15 --new-premium 1.60 --close-premium 0.45
  wheel roll F --type put --strike 12 --expiry 2025-06-20 --new-strike 11 --new-expiry monthly --new-premium 0.42 --close-premium 0.55 --confirm`,
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
			expiryStr, _ := cmd.Flags().GetString("expiry")
			newStrike, _ := cmd.Flags().GetFloat64("new-strike")
			newExpiryStr, _ := cmd.Flags().GetString("new-expiry")
			newPremium, _ := cmd.Flags().GetFloat64("new-premium")
			closePremium, _ := cmd.Flags().GetFloat64("close-premium")
			contracts, _ := cmd.Flags().GetInt("contracts")
			fees, _ := cmd.Flags().GetFloat64("fees")
			note, _ := cmd.Flags().GetString("note")
			dateStr, _ := cmd.Flags().GetString("date")
			confirm, _ := cmd.Flags().GetBool("confirm")

			optType, err := parseOptionType(typeStr)
			if err != nil {
				return err
			}
			expiry, err := parseExpiry(expiryStr)
			if err != nil {
				return err
			}
			newExpiry, err := parseExpiry(newExpiryStr)
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

			leg, err := eng.FindOpenLeg(ctx, symbol, optType, strike, expiry)
			if err != nil {
				return err
			}

			in := wheel.RollInputs{
				NewStrike:            newStrike,
				NewExpiration:        newExpiry,
				NewPremiumPerShare:   newPremium,
				ClosePremiumPerShare: closePremium,
				Contracts:            contracts,
				Fees:                 models.CentsFromDollars(fees),
				Date:                 date,
				Description:          note,
				Meta:                 meta,
			}
			plan, err := eng.PlanRoll(symbol, leg, in)
			if err != nil {
				return err
			}

			if !confirm {
				if output.IsJSON() {
					return output.JSON(plan)
				}
				renderRollPlan(output, plan)
				output.Warning("Use --confirm to book the roll")
				return nil
			}

			result, err := eng.ExecuteRoll(ctx, plan)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(result)
			}

			output.Success("✓ Booked roll %s", result.RollID)
			output.Printf("  Closed:     %s  (%s)\n", FormatLeg(symbol, plan.Leg), result.CloseEvent.ID)
			output.Printf("  Opened:     %s %.2f%s %s x%d  (%s)\n",
				symbol, newStrike, optionRight(optType), utils.FormatDate(newExpiry), plan.Contracts, result.OpenEvent.ID)
			if result.NetCashFlow >= 0 {
				output.Printf("  Net Credit: %s\n", output.Green(FormatCents(result.NetCashFlow)))
			} else {
				output.Printf("  Net Debit:  %s\n", output.Red(FormatCents(result.NetCashFlow)))
			}
			return nil
		},
	}

	cmd.Flags().String("type", "", "Leg type (put or call)")
	cmd.Flags().Float64("strike", 0, "Strike price of the open leg")
	cmd.Flags().String("expiry", "", "Expiration of the open leg (YYYY-MM-DD)")
	cmd.Flags().Float64("new-strike", 0, "Strike of the replacement leg")
	cmd.Flags().String("new-expiry", "", "Expiration of the replacement leg (YYYY-MM-DD, friday or monthly)")
	cmd.Flags().Float64("new-premium", 0, "Premium received per share on the new leg")
	cmd.Flags().Float64("close-premium", 0, "Premium paid per share to close the old leg")
	cmd.Flags().Int("contracts", 0, "Contracts to roll (default: whole leg)")
	cmd.Flags().Float64("fees", 0, "Total fees for both legs")
	cmd.Flags().Float64("delta", 0, "Delta of the new leg")
	cmd.Flags().Float64("iv-rank", 0, "IV rank at the roll")
	cmd.Flags().String("date", "", "Trade date (YYYY-MM-DD, default today)")
	cmd.Flags().String("note", "", "Free-form description")
	cmd.Flags().Bool("confirm", false, "Book the roll instead of previewing it")

	return cmd
}

func renderRollPlan(output *Output, plan wheel.RollPlan) {
	output.Bold("Roll Preview - %s", plan.Symbol)
	output.Printf("  Close:      %s\n", FormatLeg(plan.Symbol, plan.Leg))
	output.Printf("  Open:       %s %.2f%s %s x%d\n",
		plan.Symbol, plan.Inputs.NewStrike, optionRight(plan.Leg.Type),
		utils.FormatDate(plan.Inputs.NewExpiration), plan.Contracts)
	output.Println()
	output.Printf("  Buy Back:   %s\n", FormatCents(plan.ClosePremium))
	output.Printf("  Collect:    %s\n", FormatCents(plan.OpenPremium))
	if plan.Inputs.Fees > 0 {
		output.Printf("  Fees:       %s\n", FormatCents(plan.Inputs.Fees))
	}
	if plan.Credit() {
		output.Printf("  Net Credit: %s\n", output.Green(FormatCents(plan.NetCashFlow)))
	} else {
		output.Printf("  Net Debit:  %s\n", output.Red(FormatCents(plan.NetCashFlow)))
	}
	output.Println()
}
