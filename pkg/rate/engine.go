package rate

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"tokenswap/pkg/token"
)

// Rate returns how many destination tokens one source token buys.
// A zero return means "rate unavailable" (a price is missing or
// non-positive), not an error.
func Rate(from, to *token.Token) float64 {
	if from == nil || to == nil {
		return 0
	}
	if from.Price <= 0 || to.Price <= 0 {
		return 0
	}
	return from.Price / to.Price
}

// ParseAmount parses canonical numeric text, tolerating thousands separators
func ParseAmount(s string) (float64, error) {
	clean := strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("invalid amount %q: not finite", s)
	}
	return v, nil
}

// FormatAmount renders a converted value with precision tiered by magnitude:
// >=1000 gets 2 decimals, [1,1000) gets 4, [0.01,1) gets 6, below that 8.
// decimal.StringFixed rounds half away from zero, matching the display
// convention the precision tiers were defined against.
func FormatAmount(v float64) string {
	d := decimal.NewFromFloat(v)
	switch {
	case v >= 1000:
		return d.StringFixed(2)
	case v >= 1:
		return d.StringFixed(4)
	case v >= 0.01:
		return d.StringFixed(6)
	default:
		return d.StringFixed(8)
	}
}

// Convert applies a rate to raw amount text and formats the result.
// ok is false when the inputs do not yield a positive finite value, in which
// case the caller should leave its displayed amount untouched.
func Convert(fromAmount string, r float64) (formatted string, ok bool) {
	v, err := ParseAmount(fromAmount)
	if err != nil {
		return "", false
	}
	converted := v * r
	if math.IsNaN(converted) || converted <= 0 {
		return "", false
	}
	return FormatAmount(converted), true
}

// Calculator derives the destination amount from (fromToken, toToken,
// fromAmount), memoized on exactly those three inputs. A catalog price tick
// alone therefore never rewrites an already-displayed amount; the conversion
// re-runs only when one of the named inputs changes.
type Calculator struct {
	hasMemo    bool
	memoFrom   string
	memoTo     string
	memoAmount string
	memoResult string
	memoOK     bool
}

// Recompute returns the destination amount for the given inputs.
// ok reports whether the result should be applied: an empty fromAmount
// clears the destination (ok with empty result); missing tokens or
// unparseable text leave the previous display untouched (not ok).
func (c *Calculator) Recompute(from, to *token.Token, fromAmount string) (result string, ok bool) {
	fromSym, toSym := "", ""
	if from != nil {
		fromSym = from.Symbol
	}
	if to != nil {
		toSym = to.Symbol
	}

	if c.hasMemo && c.memoFrom == fromSym && c.memoTo == toSym && c.memoAmount == fromAmount {
		return c.memoResult, c.memoOK
	}

	result, ok = c.compute(from, to, fromAmount)

	c.hasMemo = true
	c.memoFrom = fromSym
	c.memoTo = toSym
	c.memoAmount = fromAmount
	c.memoResult = result
	c.memoOK = ok
	return result, ok
}

func (c *Calculator) compute(from, to *token.Token, fromAmount string) (string, bool) {
	if fromAmount == "" {
		return "", true
	}
	if from == nil || to == nil {
		return "", false
	}
	return Convert(fromAmount, Rate(from, to))
}
