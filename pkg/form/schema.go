package form

import (
	"regexp"

	"tokenswap/pkg/rate"
	"tokenswap/pkg/token"
)

// Field names errors attach to
const (
	FieldFromToken  = "fromToken"
	FieldToToken    = "toToken"
	FieldFromAmount = "fromAmount"
)

// MaxAmountLength caps the raw amount text
const MaxAmountLength = 15

// amountPattern admits digits, commas and at most one decimal point
var amountPattern = regexp.MustCompile(`^[\d,]*\.?\d*$`)

// State is the swap form's field values. ToAmount is derived and is never
// itself a source of validation failure.
type State struct {
	FromToken  *token.Token
	ToToken    *token.Token
	FromAmount string
	ToAmount   string
}

// Errors maps field name to the first violated rule's message
type Errors map[string]string

// Valid reports whether no rule was violated
func (e Errors) Valid() bool {
	return len(e) == 0
}

// rule is one pure predicate over the form state. ok returns true when the
// state satisfies the rule.
type rule struct {
	field   string
	message string
	ok      func(State) bool
}

var rules = []rule{
	{
		field:   FieldFromToken,
		message: "Please select a token to swap from",
		ok:      func(s State) bool { return s.FromToken != nil },
	},
	{
		field:   FieldToToken,
		message: "Please select a token to swap to",
		ok:      func(s State) bool { return s.ToToken != nil },
	},
	{
		field:   FieldFromAmount,
		message: "Please enter a valid amount",
		ok:      validAmount,
	},
	{
		// cross-field: both tokens set implies distinct symbols
		field:   FieldToToken,
		message: "Cannot swap the same token",
		ok: func(s State) bool {
			if s.FromToken == nil || s.ToToken == nil {
				return true
			}
			return s.FromToken.Symbol != s.ToToken.Symbol
		},
	},
}

func validAmount(s State) bool {
	if s.FromAmount == "" || len(s.FromAmount) > MaxAmountLength {
		return false
	}
	v, err := rate.ParseAmount(s.FromAmount)
	if err != nil {
		return false
	}
	return v > 0
}

// Validate evaluates every rule against the state. The first violation per
// field wins; overall validity is the conjunction of all rules.
func Validate(s State) Errors {
	errs := make(Errors)
	for _, r := range rules {
		if _, taken := errs[r.field]; taken {
			continue
		}
		if !r.ok(s) {
			errs[r.field] = r.message
		}
	}
	return errs
}

// AcceptableAmount reports whether raw amount text may enter the form at
// all: matching the amount pattern and within the length cap. Rejected text
// is dropped at the input boundary, not stored and flagged.
func AcceptableAmount(s string) bool {
	return len(s) <= MaxAmountLength && amountPattern.MatchString(s)
}
