package cmd

import (
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tokenswap/config"
	"tokenswap/logger"
	"tokenswap/pkg/api"
	"tokenswap/pkg/token"
)

var rootCmd = &cobra.Command{
	Use:   "tokenswap",
	Short: "A CLI for simulated token swaps with live exchange rates",
	Long: `tokenswap fetches live token prices, computes exchange rates, and runs
simulated swaps. No real transfer or settlement ever happens.

Examples:
  tokenswap tokens
  tokenswap rate BTC ETH
  tokenswap swap 1.5 BTC to ETH`,
	Version: "0.1.0",
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
}

func printError(err error) {
	fmt.Printf("\nError: %v\n\n", err)
}

func printSuccess(message string) {
	fmt.Printf("\n%s\n\n", message)
}

// buildLogger creates the zap logger, bumping the level to debug when
// --verbose is set
func buildLogger(cfg *config.Config, verbose bool) (*zap.Logger, error) {
	logCfg := cfg.Log
	if verbose {
		logCfg.Level = "debug"
	}
	return logger.New(logCfg)
}

// newSource wires the resilient API client into a price source from config
func newSource(cfg *config.Config, log *zap.Logger) *token.Source {
	client := api.NewClient(cfg.API.BaseURL,
		api.WithTimeout(cfg.API.Timeout),
		api.WithRetry(cfg.API.RetryAttempts, cfg.API.RetryDelay),
		api.WithLogger(log),
	)
	return token.NewSource(client, cfg.API.BaseURL+"/prices.json", cfg.Icons.BaseURL, log)
}

// newSpinner creates the standard fetch spinner used by the commands
func newSpinner(suffix string) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = suffix
	return s
}
