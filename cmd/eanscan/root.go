// Package main provides the entry point for the eanscan CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for eanscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eanscan",
		Short: "Product lifecycle research tool for EAN barcodes",
		Long: `Eanscan investigates EAN barcode numbers (EAN-8, EAN-13, EAN-14) across
public web sources: general web search, the Internet Archive, marketplace
listings, and the Open Food Facts product database.

Every mention of the identifier is classified as historical (discontinued),
current (still on the market), or indeterminate, and the evidence is
aggregated into a single report. Scan results are stored so the history
command can track how a product's status changes over time.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewSearchCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
