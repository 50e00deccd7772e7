package parser

import (
	"fmt"
	"regexp"
	"strings"
)

// Request represents a parsed swap command
type Request struct {
	Amount     string
	FromSymbol string
	ToSymbol   string
}

// Pattern: <amount> <source_token> TO <dest_token>
// Matches: "1 SOL TO USDC", "1.5 ETH TO BTC", "1,000.25 USDC TO SOL"
var commandPattern = regexp.MustCompile(`^([\d,]*\.?\d*)\s+([A-Z0-9]+)\s+TO\s+([A-Z0-9]+)$`)

// ParseSwapCommand parses a natural language swap command
// Examples:
//   - "swap 1 BTC to ETH"
//   - "1.5 ETH to BTC"
//   - "100 USDC to SOL"
func ParseSwapCommand(command string) (*Request, error) {
	// Normalize the command
	command = strings.TrimSpace(strings.ToUpper(command))

	// Remove the word "SWAP" if present at the beginning
	command = strings.TrimPrefix(command, "SWAP ")

	matches := commandPattern.FindStringSubmatch(command)
	if matches == nil || matches[1] == "" || matches[1] == "." {
		return nil, fmt.Errorf("invalid swap command format. Expected: '<amount> <token> to <token>' (e.g., '1 BTC to ETH')")
	}

	return &Request{
		Amount:     matches[1],
		FromSymbol: matches[2],
		ToSymbol:   matches[3],
	}, nil
}

// NormalizeTokenSymbol normalizes token symbols to standard format
func NormalizeTokenSymbol(symbol string) string {
	return strings.TrimSpace(strings.ToUpper(symbol))
}
