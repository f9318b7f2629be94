// Package cli provides the command-line interface for the wheel tracker.
package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

// addHelpCommands adds help and documentation commands.
func addHelpCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newCommandsCmd(app))
	rootCmd.AddCommand(newExamplesCmd(app))
	rootCmd.AddCommand(newQuickstartCmd(app))
}

func newCommandsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "commands",
		Short: "List all commands by category",
		Long:  "Display all available commands organized by category.",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			output.Bold("Wheel Tracker Commands")
			output.Println()

			categories := []struct {
				name     string
				commands []struct {
					cmd  string
					desc string
				}
			}{
				{
					name: "Calculators",
					commands: []struct {
						cmd  string
						desc string
					}{
						{"calc cc <symbol>", "Covered call metrics"},
						{"calc csp <symbol>", "Cash-secured put metrics"},
						{"calc longcall <symbol>", "Long call position check"},
					},
				},
				{
					name: "Recording",
					commands: []struct {
						cmd  string
						desc string
					}{
						{"sell put <symbol>", "Book a cash-secured put sale"},
						{"sell call <symbol>", "Book a covered call sale"},
						{"buy <symbol>", "Book an outright share purchase"},
						{"expire <symbol>", "Mark a leg expired worthless"},
						{"buyback <symbol>", "Buy a leg back to close"},
						{"assign <symbol>", "Book an assignment"},
						{"close <symbol>", "Settle a finished wheel pass"},
					},
				},
				{
					name: "Rolls",
					commands: []struct {
						cmd  string
						desc string
					}{
						{"roll <symbol>", "Close one leg, open its replacement"},
						{"roll <symbol> --confirm", "Book the previewed roll"},
					},
				},
				{
					name: "Views",
					commands: []struct {
						cmd  string
						desc string
					}{
						{"status", "Portfolio across all symbols"},
						{"status <symbol>", "One symbol in depth"},
						{"expirations", "Legs expiring soon, plus lapsed ones"},
						{"doctor", "Replay the journal and flag anomalies"},
					},
				},
				{
					name: "Journal",
					commands: []struct {
						cmd  string
						desc string
					}{
						{"events list [symbol]", "List journal entries"},
						{"events show <id>", "One entry in full"},
						{"events edit <id>", "Correct an entry (supersede)"},
						{"cycles [symbol]", "Wheel passes per symbol"},
						{"snapshots <symbol>", "Min-strike history"},
						{"snapshots take <symbol>", "Record today's strike floor"},
					},
				},
				{
					name: "Import",
					commands: []struct {
						cmd  string
						desc string
					}{
						{"import <file.csv>", "Import trade history"},
						{"import <file.csv> --dry-run", "Validate without booking"},
					},
				},
				{
					name: "Help",
					commands: []struct {
						cmd  string
						desc string
					}{
						{"help <command>", "Detailed help"},
						{"commands", "List all commands"},
						{"examples", "Common workflows"},
						{"quickstart", "New user guide"},
						{"config show/path/validate", "Configuration"},
						{"version", "Version information"},
					},
				},
			}

			for _, cat := range categories {
				output.Bold(cat.name)
				for _, c := range cat.commands {
					output.Printf("  %-30s %s\n", output.Cyan(c.cmd), c.desc)
				}
				output.Println()
			}

			output.Dim("Use 'wheel help <command>' for detailed help on any command")

			return nil
		},
	}
}

func newExamplesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "examples",
		Short: "Show common workflow examples",
		Long:  "Display examples of common wheel workflows.",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			output.Bold("Common Workflow Examples")
			output.Println()

			examples := []struct {
				title    string
				commands []string
			}{
				{
					title: "Size Up a Put Before Selling",
					commands: []string{
						"wheel calc csp AAPL --strike 95 --premium 1.40 --price 97.20 --expiry friday",
						"wheel calc csp AAPL --strike 95 --premium 1.40 --price 97.20 --expiry 2025-07-18",
					},
				},
				{
					title: "Start a Wheel Pass",
					commands: []string{
						"wheel sell put AAPL --strike 95 --premium 1.40 --expiry friday",
						"wheel status AAPL               # One open put, premium booked",
						"wheel expirations               # Watch the clock",
					},
				},
				{
					title: "Put Expires Worthless",
					commands: []string{
						"wheel expire AAPL --type put --strike 95 --expiry 2025-07-18",
						"wheel sell put AAPL --strike 94 --premium 1.25 --expiry friday",
					},
				},
				{
					title: "Put Gets Assigned",
					commands: []string{
						"wheel assign AAPL --type put --strike 95 --expiry 2025-07-18",
						"wheel status AAPL               # 100 shares at 95.00",
					},
				},
				{
					title: "Sell a Covered Call Above the Floor",
					commands: []string{
						"wheel calc cc AAPL --price 96.50 --strike 97 --premium 1.10 --expiry friday",
						"wheel sell call AAPL --strike 97 --premium 1.10 --expiry friday",
						"wheel snapshots AAPL            # Strike floor history",
					},
				},
				{
					title: "Roll a Threatened Call",
					commands: []string{
						"wheel roll AAPL --type call --strike 97 --expiry 2025-07-25 --new-strike 99 --new-expiry monthly --new-premium 1.40 --close-premium 1.85",
						"wheel roll AAPL ... --confirm   # Book it after the preview",
					},
				},
				{
					title: "Shares Called Away, Settle the Pass",
					commands: []string{
						"wheel assign AAPL --type call --strike 99 --expiry 2025-08-15",
						"wheel close AAPL                # Settle and realize the pass",
						"wheel cycles AAPL               # Review finished passes",
					},
				},
				{
					title: "Fix a Fat-Fingered Entry",
					commands: []string{
						"wheel events list AAPL          # Find the entry ID",
						"wheel events edit 01J5ZX3A --strike 96 --reason 'strike typo'",
						"wheel events list AAPL --all    # Superseded entry still visible",
					},
				},
				{
					title: "Import Broker History",
					commands: []string{
						"wheel import trades.csv --dry-run",
						"wheel import trades.csv",
						"wheel doctor                    # Check the combined journal",
					},
				},
			}

			for _, ex := range examples {
				output.Bold(ex.title)
				for _, c := range ex.commands {
					parts := strings.SplitN(c, "#", 2)
					if len(parts) == 2 {
						output.Printf("  %s %s\n", output.Cyan(strings.TrimSpace(parts[0])), output.DimText(strings.TrimSpace(parts[1])))
					} else {
						output.Printf("  %s\n", output.Cyan(c))
					}
				}
				output.Println()
			}

			return nil
		},
	}
}

func newQuickstartCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "quickstart",
		Short: "New user guide",
		Long:  "Step-by-step guide for new users.",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			output.Bold("Wheel Tracker - Quick Start Guide")
			output.Println()

			steps := []struct {
				step  int
				title string
				desc  string
				cmd   string
			}{
				{
					step:  1,
					title: "Find Your Config",
					desc:  "The tracker works out of the box; the config file tunes thresholds.",
					cmd:   "wheel config path  # Shows config directory",
				},
				{
					step:  2,
					title: "Size Up a Put",
					desc:  "Check breakeven and annualized return before committing cash.",
					cmd:   "wheel calc csp AAPL --strike 95 --premium 1.40 --price 97.20 --expiry friday",
				},
				{
					step:  3,
					title: "Book the Sale",
					desc:  "Record the put; the premium lands as a credit in the journal.",
					cmd:   "wheel sell put AAPL --strike 95 --premium 1.40 --expiry friday",
				},
				{
					step:  4,
					title: "Watch Expirations",
					desc:  "Legs inside the assignment window need a decision.",
					cmd:   "wheel expirations",
				},
				{
					step:  5,
					title: "Record What Happened",
					desc:  "Expired, assigned or bought back; the journal carries all three.",
					cmd:   "wheel assign AAPL --type put --strike 95 --expiry 2025-07-18",
				},
				{
					step:  6,
					title: "Sell Calls Against the Shares",
					desc:  "Stay at or above the min strike so assignment never books a share loss.",
					cmd:   "wheel sell call AAPL --strike 97 --premium 1.10 --expiry friday",
				},
				{
					step:  7,
					title: "Settle the Pass",
					desc:  "When the shares are called away, close the pass and bank the P&L.",
					cmd:   "wheel close AAPL",
				},
				{
					step:  8,
					title: "Keep the Journal Honest",
					desc:  "Replay everything and fix what the doctor flags.",
					cmd:   "wheel doctor",
				},
			}

			for _, s := range steps {
				output.Printf("%s Step %d: %s\n", output.Cyan("→"), s.step, output.BoldText(s.title))
				output.Printf("  %s\n", s.desc)
				output.Printf("  %s\n\n", output.DimText(s.cmd))
			}

			output.Bold("Configuration Files")
			output.Println()
			output.Printf("  %s - Database path, wheel thresholds, logging\n", output.Cyan("config.toml"))
			output.Println()

			output.Bold("Getting Help")
			output.Println()
			output.Printf("  %s - List all commands\n", output.Cyan("wheel commands"))
			output.Printf("  %s - Common workflows\n", output.Cyan("wheel examples"))
			output.Printf("  %s - Help for any command\n", output.Cyan("wheel help <command>"))
			output.Println()

			output.Bold("Important Notes")
			output.Println()
			output.Printf("  %s The journal is append-only; edit with 'events edit', never by hand\n", output.Yellow("⚠"))
			output.Printf("  %s Premiums are entered per share; totals multiply by shares\n", output.Yellow("⚠"))
			output.Printf("  %s Sell calls at or above the min strike to protect share basis\n", output.Yellow("⚠"))
			output.Printf("  %s Run 'wheel doctor' after imports or manual corrections\n", output.Yellow("⚠"))

			return nil
		},
	}
}
