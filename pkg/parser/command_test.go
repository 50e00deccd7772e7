package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSwapCommand(t *testing.T) {
	tests := []struct {
		in     string
		amount string
		from   string
		to     string
	}{
		{"swap 1 BTC to ETH", "1", "BTC", "ETH"},
		{"1.5 eth to btc", "1.5", "ETH", "BTC"},
		{"1,000.25 USDC to SOL", "1,000.25", "USDC", "SOL"},
		{"  swap 100 usdc TO sol  ", "100", "USDC", "SOL"},
	}
	for _, tt := range tests {
		req, err := ParseSwapCommand(tt.in)
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.amount, req.Amount)
		assert.Equal(t, tt.from, req.FromSymbol)
		assert.Equal(t, tt.to, req.ToSymbol)
	}
}

func TestParseSwapCommandRejectsMalformed(t *testing.T) {
	bad := []string{
		"",
		"BTC to ETH",
		"1 BTC",
		"1 BTC ETH",
		"one BTC to ETH",
		". BTC to ETH",
	}
	for _, in := range bad {
		_, err := ParseSwapCommand(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestNormalizeTokenSymbol(t *testing.T) {
	assert.Equal(t, "BTC", NormalizeTokenSymbol(" btc "))
	assert.Equal(t, "USDC", NormalizeTokenSymbol("usdc"))
}
