package token

import (
	"fmt"
	"sort"
)

// Token is one tradable entry of the catalog. Instances are never mutated
// after construction; a refresh replaces the whole catalog.
type Token struct {
	Symbol string  `json:"symbol"`
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
	Icon   string  `json:"icon"`
}

// IconURL derives the icon location for a symbol. Whether the asset actually
// exists is a presentation concern; broken images get a placeholder there.
func IconURL(iconBase, symbol string) string {
	return fmt.Sprintf("%s/%s.svg", iconBase, symbol)
}

// New constructs a token from a symbol and its price
func New(symbol string, price float64, iconBase string) Token {
	return Token{
		Symbol: symbol,
		Name:   symbol,
		Price:  price,
		Icon:   IconURL(iconBase, symbol),
	}
}

// BuildCatalog converts a price mapping into the catalog: one token per
// positively-priced symbol, sorted ascending by symbol.
func BuildCatalog(prices Prices, iconBase string) []Token {
	tokens := make([]Token, 0, len(prices))
	for symbol, price := range prices {
		if price > 0 {
			tokens = append(tokens, New(symbol, price, iconBase))
		}
	}

	sort.Slice(tokens, func(i, j int) bool {
		return tokens[i].Symbol < tokens[j].Symbol
	})
	return tokens
}

// Find returns the catalog entry with the given symbol, or nil
func Find(catalog []Token, symbol string) *Token {
	for i := range catalog {
		if catalog[i].Symbol == symbol {
			return &catalog[i]
		}
	}
	return nil
}
