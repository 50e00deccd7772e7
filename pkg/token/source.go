package token

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"tokenswap/pkg/api"
)

const pricesEndpoint = "/prices.json"

// directFetchTimeout bounds the unmediated fallback request
const directFetchTimeout = 10 * time.Second

// PriceEntry is one row of the remote price feed. The feed may carry several
// entries per currency; only the latest-dated one counts.
type PriceEntry struct {
	Currency string    `json:"currency"`
	Date     time.Time `json:"date"`
	Price    float64   `json:"price"`
}

// Prices maps a token symbol to its latest known USD price
type Prices map[string]float64

// Tier identifies which stage of the fallback chain produced a price set
type Tier int

const (
	TierLive     Tier = iota // resilient client, with retries
	TierDirect               // single unmediated fetch
	TierFallback             // static price table
)

func (t Tier) String() string {
	switch t {
	case TierLive:
		return "live"
	case TierDirect:
		return "direct"
	case TierFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// FallbackPrices is the last-resort price table used when every network path
// fails, so the catalog never ends up empty.
var FallbackPrices = Prices{
	"BTC":   45000,
	"ETH":   3000,
	"USDT":  1,
	"USDC":  1,
	"BNB":   300,
	"ADA":   0.5,
	"SOL":   100,
	"DOT":   7,
	"AVAX":  25,
	"MATIC": 0.8,
}

// Source fetches token prices from the remote feed with a layered fallback
// chain: retrying client, then one direct fetch, then the static table.
type Source struct {
	client     *api.Client
	directURL  string
	iconBase   string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewSource creates a price source. directURL is the full feed URL used for
// the unmediated second-tier fetch; iconBase is the icon URL prefix for
// catalog building.
func NewSource(client *api.Client, directURL, iconBase string, logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{
		client:     client,
		directURL:  directURL,
		iconBase:   iconBase,
		httpClient: &http.Client{Timeout: directFetchTimeout},
		logger:     logger,
	}
}

// strategy is one stage of the fallback chain
type strategy struct {
	tier  Tier
	fetch func(ctx context.Context) (Prices, error)
}

// FetchPrices resolves the feed through the fallback chain. The returned
// prices are always non-empty. When the chain bottoms out at the static
// table, the live-path failure is returned alongside so callers can surface
// a non-blocking message; it never means the prices are unusable.
func (s *Source) FetchPrices(ctx context.Context) (Prices, Tier, error) {
	chain := []strategy{
		{TierLive, s.fetchLive},
		{TierDirect, s.fetchDirect},
	}

	var lastErr error
	for _, st := range chain {
		prices, err := st.fetch(ctx)
		if err == nil {
			return prices, st.tier, nil
		}
		lastErr = err
		s.logger.Warn("price fetch tier failed",
			zap.String("tier", st.tier.String()),
			zap.Error(err))
	}

	s.logger.Warn("all price fetch tiers failed, using fallback table", zap.Error(lastErr))
	prices := make(Prices, len(FallbackPrices))
	for symbol, price := range FallbackPrices {
		prices[symbol] = price
	}
	return prices, TierFallback, fmt.Errorf("price feed unavailable: %w", lastErr)
}

// fetchLive goes through the retrying client
func (s *Source) fetchLive(ctx context.Context) (Prices, error) {
	var entries []PriceEntry
	if err := s.client.GetJSON(ctx, pricesEndpoint, &entries); err != nil {
		return nil, err
	}
	return dedupe(entries), nil
}

// fetchDirect performs one plain request against the feed, bypassing the
// retry layer entirely
func (s *Source) fetchDirect(ctx context.Context) (Prices, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.directURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("direct fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("direct fetch status %d: %s", resp.StatusCode, body)
	}

	var entries []PriceEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return dedupe(entries), nil
}

// dedupe keeps the latest-dated entry per currency, then drops entries whose
// winning price is not positive. Non-positive entries still take part in the
// date comparison so a stale positive price cannot shadow a newer bad one.
func dedupe(entries []PriceEntry) Prices {
	latest := make(map[string]PriceEntry, len(entries))
	for _, e := range entries {
		cur, ok := latest[e.Currency]
		if !ok || e.Date.After(cur.Date) {
			latest[e.Currency] = e
		}
	}

	prices := make(Prices, len(latest))
	for symbol, e := range latest {
		if e.Price > 0 {
			prices[symbol] = e.Price
		}
	}
	return prices
}

// FetchCatalog fetches prices through the fallback chain and builds the
// sorted token catalog from them.
func (s *Source) FetchCatalog(ctx context.Context) ([]Token, Tier, error) {
	prices, tier, err := s.FetchPrices(ctx)
	return BuildCatalog(prices, s.iconBase), tier, err
}
