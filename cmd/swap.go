package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tokenswap/config"
	"tokenswap/pkg/form"
	"tokenswap/pkg/parser"
	"tokenswap/pkg/rate"
	"tokenswap/pkg/token"
)

var noConfirm bool

var swapCmd = &cobra.Command{
	Use:   "swap <amount> <source-token> to <dest-token>",
	Short: "Run a simulated token swap",
	Long: `Swap one token for another at the current exchange rate. The swap is
simulated: the form is validated, the converted amount is computed from live
prices, and settlement is a fixed delay with no real transfer.

Examples:
  tokenswap swap 1 BTC to ETH
  tokenswap swap 1,500.25 USDC to SOL
  tokenswap swap 0.5 ETH to BTC --yes`,
	Args: cobra.MinimumNArgs(1),
	Run:  runSwap,
}

func init() {
	rootCmd.AddCommand(swapCmd)

	swapCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Skip confirmation prompt")
}

func runSwap(cmd *cobra.Command, args []string) {
	// Parse the command
	commandStr := strings.Join(args, " ")
	req, err := parser.ParseSwapCommand(commandStr)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

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
	swapForm := form.New(source, form.Config{
		RefreshInterval: cfg.Refresh.Interval,
		SubmitDelay:     cfg.Swap.SubmitDelay,
		MessageWindow:   cfg.Swap.MessageWindow,
	}, log)

	ctx := context.Background()

	s := newSpinner(" Fetching token prices...")
	if !jsonOutput {
		s.Start()
	}
	if err := swapForm.Start(ctx); err != nil {
		s.Stop()
		printError(err)
		os.Exit(1)
	}
	defer swapForm.Stop()
	if !jsonOutput {
		s.Stop()
	}

	catalog := swapForm.Tokens()
	from := token.Find(catalog, req.FromSymbol)
	to := token.Find(catalog, req.ToSymbol)
	if from == nil {
		printError(fmt.Errorf("token '%s' not found", req.FromSymbol))
		os.Exit(1)
	}
	if to == nil {
		printError(fmt.Errorf("token '%s' not found", req.ToSymbol))
		os.Exit(1)
	}

	swapForm.SetFromToken(from)
	swapForm.SetToToken(to)
	if !swapForm.SetFromAmount(req.Amount) {
		printError(fmt.Errorf("invalid amount '%s'", req.Amount))
		os.Exit(1)
	}

	if errs := swapForm.Validate(); !errs.Valid() {
		fmt.Println()
		for _, field := range []string{form.FieldFromToken, form.FieldToToken, form.FieldFromAmount} {
			if msg, ok := errs[field]; ok {
				color.Red("  %s", msg)
			}
		}
		fmt.Println()
		os.Exit(1)
	}

	state := swapForm.State()
	if !jsonOutput {
		bold := color.New(color.Bold)
		fmt.Println()
		bold.Printf("  Swap:  %s %s -> %s %s\n", state.FromAmount, from.Symbol, state.ToAmount, to.Symbol)
		fmt.Printf("  Rate:  1 %s = %s %s\n", from.Symbol, rate.FormatAmount(rate.Rate(from, to)), to.Symbol)
		fmt.Println()

		if !noConfirm && !confirm("Proceed with swap?") {
			fmt.Println("Swap cancelled")
			return
		}
	}

	s = newSpinner(" Swapping...")
	if !jsonOutput {
		s.Start()
	}
	receipt, err := swapForm.Submit(ctx)
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		if msg := swapForm.Message(); msg != nil {
			printError(fmt.Errorf("%s", msg.Text))
		} else {
			printError(err)
		}
		os.Exit(1)
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(receipt, "", "  ")
		fmt.Println(string(data))
		return
	}

	if msg := swapForm.Message(); msg != nil {
		printSuccess(color.GreenString(msg.Text))
	}
	fmt.Printf("Receipt: %s\n\n", receipt.ID)
}

// confirm prompts for a y/n answer on stdin
func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
