package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"tokenswap/config"
	"tokenswap/pkg/parser"
	"tokenswap/pkg/token"
)

var filterSymbol string

var tokensCmd = &cobra.Command{
	Use:     "tokens",
	Aliases: []string{"list-tokens", "ls"},
	Short:   "List all tradable tokens with their current prices",
	Long: `List the token catalog with current USD prices.

Prices come from the live feed when reachable and from the built-in fallback
table otherwise.

Examples:
  tokenswap tokens
  tokenswap tokens --symbol USDC`,
	Run: runListTokens,
}

func init() {
	rootCmd.AddCommand(tokensCmd)

	tokensCmd.Flags().StringVar(&filterSymbol, "symbol", "", "Filter by token symbol")
}

func runListTokens(cmd *cobra.Command, args []string) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	log, err := buildLogger(cfg, verbose)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer log.Sync()

	source := newSource(cfg, log)

	// Get tokens with spinner
	s := newSpinner(" Fetching token prices...")
	if !jsonOutput {
		s.Start()
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.API.Timeout*4)
	defer cancel()

	catalog, tier, fetchErr := source.FetchCatalog(ctx)
	if !jsonOutput {
		s.Stop()
	}

	// Apply filter
	if filterSymbol != "" {
		want := parser.NormalizeTokenSymbol(filterSymbol)
		var filtered []token.Token
		for _, t := range catalog {
			if t.Symbol == want {
				filtered = append(filtered, t)
			}
		}
		catalog = filtered
	}

	if jsonOutput {
		out := struct {
			Tokens []token.Token `json:"tokens"`
			Source string        `json:"source"`
		}{Tokens: catalog, Source: tier.String()}
		data, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(data))
		return
	}

	if tier == token.TierFallback {
		color.Yellow("\nPrice feed unreachable, showing fallback prices (%v)\n", fetchErr)
	}

	bold := color.New(color.Bold)
	bold.Printf("\n%-8s %16s  %s\n", "SYMBOL", "PRICE (USD)", "ICON")
	for _, t := range catalog {
		fmt.Printf("%-8s %16s  %s\n", t.Symbol, decimal.NewFromFloat(t.Price).String(), t.Icon)
	}
	fmt.Printf("\n%d tokens\n\n", len(catalog))
}
