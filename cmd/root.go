package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "smartroute",
	Short: "Cross-venue smart order routing and execution engine",
	Long: `Smartroute routes and executes orders across multiple trading venues.

The engine scores venues by price, fees, liquidity and measured latency,
splits large orders across venues when that improves the all-in price,
gates every order through a risk engine and a circuit breaker, and retries
transient venue failures with failover to the next-best venue.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
