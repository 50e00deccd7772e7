package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tokenswap/config"
	"tokenswap/pkg/parser"
	"tokenswap/pkg/rate"
	"tokenswap/pkg/token"
)

var rateCmd = &cobra.Command{
	Use:   "rate <from-token> <to-token>",
	Short: "Show the current exchange rate between two tokens",
	Long: `Show how many destination tokens one source token buys at current
prices, in both directions.

Examples:
  tokenswap rate BTC ETH
  tokenswap rate usdc sol`,
	Args: cobra.ExactArgs(2),
	Run:  runRate,
}

func init() {
	rootCmd.AddCommand(rateCmd)
}

func runRate(cmd *cobra.Command, args []string) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	fromSym := parser.NormalizeTokenSymbol(args[0])
	toSym := parser.NormalizeTokenSymbol(args[1])

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

	s := newSpinner(" Fetching token prices...")
	if !jsonOutput {
		s.Start()
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.API.Timeout*4)
	defer cancel()

	catalog, _, _ := source.FetchCatalog(ctx)
	if !jsonOutput {
		s.Stop()
	}

	from := token.Find(catalog, fromSym)
	to := token.Find(catalog, toSym)
	if from == nil {
		printError(fmt.Errorf("token '%s' not found", fromSym))
		os.Exit(1)
	}
	if to == nil {
		printError(fmt.Errorf("token '%s' not found", toSym))
		os.Exit(1)
	}

	forward := rate.Rate(from, to)
	backward := rate.Rate(to, from)

	if jsonOutput {
		out := struct {
			From    string  `json:"from"`
			To      string  `json:"to"`
			Rate    float64 `json:"rate"`
			Inverse float64 `json:"inverse"`
		}{From: fromSym, To: toSym, Rate: forward, Inverse: backward}
		data, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(data))
		return
	}

	if forward == 0 {
		color.Yellow("\nRate unavailable for %s/%s\n\n", fromSym, toSym)
		os.Exit(1)
	}

	bold := color.New(color.Bold)
	fmt.Println()
	bold.Printf("1 %s = %s %s\n", fromSym, rate.FormatAmount(forward), toSym)
	bold.Printf("1 %s = %s %s\n", toSym, rate.FormatAmount(backward), fromSym)
	fmt.Println()
}
