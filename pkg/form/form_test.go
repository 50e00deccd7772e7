package form

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokenswap/pkg/token"
)

// stubFetcher is a scriptable CatalogFetcher
type stubFetcher struct {
	mu      sync.Mutex
	calls   int
	catalog []token.Token
	tier    token.Tier
	err     error

	// when set, FetchCatalog signals entered and then waits on release
	entered chan struct{}
	release chan struct{}
}

func (s *stubFetcher) FetchCatalog(ctx context.Context) ([]token.Token, token.Tier, error) {
	s.mu.Lock()
	s.calls++
	entered, release := s.entered, s.release
	catalog, tier, err := s.catalog, s.tier, s.err
	s.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
		<-release
	}
	return catalog, tier, err
}

func (s *stubFetcher) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubFetcher) setCatalog(catalog []token.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog = catalog
}

func twoTokens() []token.Token {
	return []token.Token{
		{Symbol: "AAA", Name: "AAA", Price: 1},
		{Symbol: "BBB", Name: "BBB", Price: 2},
	}
}

func testConfig() Config {
	return Config{
		RefreshInterval: time.Hour, // keep the ticker out of the way
		SubmitDelay:     time.Millisecond,
		MessageWindow:   30 * time.Millisecond,
	}
}

func startedForm(t *testing.T, fetcher *stubFetcher, cfg Config) *Form {
	t.Helper()
	f := New(fetcher, cfg, nil)
	require.NoError(t, f.Start(context.Background()))
	t.Cleanup(f.Stop)
	return f
}

func TestStartSeedsFirstTwoTokens(t *testing.T) {
	fetcher := &stubFetcher{catalog: twoTokens()}
	f := startedForm(t, fetcher, testConfig())

	assert.Equal(t, PhaseReady, f.Phase())

	st := f.State()
	require.NotNil(t, st.FromToken)
	require.NotNil(t, st.ToToken)
	assert.Equal(t, "AAA", st.FromToken.Symbol)
	assert.Equal(t, "BBB", st.ToToken.Symbol)
	assert.Empty(t, st.FromAmount)
	assert.Empty(t, st.ToAmount)
	assert.False(t, f.RefreshStatus().LastUpdated.IsZero())
}

func TestStartWithSingleTokenLeavesDestinationEmpty(t *testing.T) {
	fetcher := &stubFetcher{catalog: twoTokens()[:1]}
	f := startedForm(t, fetcher, testConfig())

	st := f.State()
	require.NotNil(t, st.FromToken)
	assert.Nil(t, st.ToToken)
	assert.Equal(t, PhaseReady, f.Phase())
}

func TestAmountChangeRecomputes(t *testing.T) {
	fetcher := &stubFetcher{catalog: twoTokens()}
	f := startedForm(t, fetcher, testConfig())

	// AAA -> BBB at rate 0.5
	require.True(t, f.SetFromAmount("2"))
	assert.Equal(t, "1.0000", f.State().ToAmount)

	require.True(t, f.SetFromAmount("2,000"))
	assert.Equal(t, "1000.00", f.State().ToAmount)

	// clearing the source clears the derived amount
	require.True(t, f.SetFromAmount(""))
	assert.Equal(t, "", f.State().ToAmount)
}

func TestAmountInputFiltered(t *testing.T) {
	fetcher := &stubFetcher{catalog: twoTokens()}
	f := startedForm(t, fetcher, testConfig())

	assert.False(t, f.SetFromAmount("12a"))
	assert.False(t, f.SetFromAmount("1234567890123456"))
	assert.Empty(t, f.State().FromAmount)
}

func TestReverseRoundTrip(t *testing.T) {
	fetcher := &stubFetcher{catalog: twoTokens()}
	f := startedForm(t, fetcher, testConfig())

	require.True(t, f.SetFromAmount("2.0000"))
	before := f.State()
	require.Equal(t, "1.0000", before.ToAmount)

	f.Reverse()
	mid := f.State()
	assert.Equal(t, "BBB", mid.FromToken.Symbol)
	assert.Equal(t, "AAA", mid.ToToken.Symbol)
	assert.Equal(t, "1.0000", mid.FromAmount)
	assert.Equal(t, "2.0000", mid.ToAmount)

	f.Reverse()
	after := f.State()
	assert.Equal(t, before.FromToken.Symbol, after.FromToken.Symbol)
	assert.Equal(t, before.ToToken.Symbol, after.ToToken.Symbol)
	assert.Equal(t, before.FromAmount, after.FromAmount)
	assert.Equal(t, before.ToAmount, after.ToAmount)
}

func TestManualRefreshDroppedWhileInFlight(t *testing.T) {
	fetcher := &stubFetcher{catalog: twoTokens()}
	f := startedForm(t, fetcher, testConfig())
	require.Equal(t, 1, fetcher.callCount())

	// make the next fetch hang
	fetcher.mu.Lock()
	fetcher.entered = make(chan struct{}, 1)
	fetcher.release = make(chan struct{})
	fetcher.mu.Unlock()

	first := make(chan bool, 1)
	go func() { first <- f.Refresh(context.Background()) }()
	<-fetcher.entered

	// second invocation while the first is in flight: dropped, not queued
	assert.False(t, f.Refresh(context.Background()))
	assert.Equal(t, 2, fetcher.callCount())

	close(fetcher.release)
	assert.True(t, <-first)
	assert.Equal(t, 2, fetcher.callCount())
}

func TestRefreshKeepsSelectionAndDisplayedAmount(t *testing.T) {
	fetcher := &stubFetcher{catalog: twoTokens()}
	f := startedForm(t, fetcher, testConfig())

	require.True(t, f.SetFromAmount("2"))
	require.Equal(t, "1.0000", f.State().ToAmount)

	// price tick: BBB doubles
	fetcher.setCatalog([]token.Token{
		{Symbol: "AAA", Name: "AAA", Price: 1},
		{Symbol: "BBB", Name: "BBB", Price: 4},
	})
	require.True(t, f.Refresh(context.Background()))

	st := f.State()
	assert.Equal(t, 4.0, st.ToToken.Price, "selection re-resolves against the fresh catalog")
	assert.Equal(t, "1.0000", st.ToAmount, "a bare price tick must not rewrite the displayed amount")
}

func TestRefreshErrorSurfacedNonBlocking(t *testing.T) {
	fetcher := &stubFetcher{catalog: twoTokens(), tier: token.TierFallback, err: errors.New("price feed unavailable")}
	f := startedForm(t, fetcher, testConfig())

	assert.Equal(t, PhaseReady, f.Phase(), "fallback data still renders")
	assert.Equal(t, "price feed unavailable", f.RefreshStatus().Err)
}

func TestSubmitSuccess(t *testing.T) {
	fetcher := &stubFetcher{catalog: twoTokens()}
	f := startedForm(t, fetcher, testConfig())
	require.True(t, f.SetFromAmount("2"))

	receipt, err := f.Submit(context.Background())
	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.NotEmpty(t, receipt.ID)
	assert.Equal(t, "2", receipt.FromAmount)
	assert.Equal(t, "AAA", receipt.FromSymbol)
	assert.Equal(t, "1.0000", receipt.ToAmount)
	assert.Equal(t, "BBB", receipt.ToSymbol)

	assert.Equal(t, PhaseReady, f.Phase())

	msg := f.Message()
	require.NotNil(t, msg)
	assert.Equal(t, MessageSuccess, msg.Kind)
	assert.Equal(t, "Successfully swapped 2 AAA for 1.0000 BBB", msg.Text)

	// the banner auto-clears after the display window
	require.Eventually(t, func() bool { return f.Message() == nil },
		500*time.Millisecond, 5*time.Millisecond)
}

func TestSubmitFailure(t *testing.T) {
	cfg := testConfig()
	cfg.SubmitFn = func(ctx context.Context) error { return errors.New("boom") }

	fetcher := &stubFetcher{catalog: twoTokens()}
	f := startedForm(t, fetcher, cfg)
	require.True(t, f.SetFromAmount("2"))

	receipt, err := f.Submit(context.Background())
	require.Error(t, err)
	assert.Nil(t, receipt)
	assert.Equal(t, PhaseReady, f.Phase(), "form returns to editable state")

	msg := f.Message()
	require.NotNil(t, msg)
	assert.Equal(t, MessageFailure, msg.Kind)
	assert.Equal(t, "Swap failed. Please try again.", msg.Text)

	// failure banners do not auto-clear
	time.Sleep(2 * cfg.MessageWindow)
	assert.NotNil(t, f.Message())
}

func TestSubmitRejectedWhileInvalid(t *testing.T) {
	fetcher := &stubFetcher{catalog: twoTokens()}
	f := startedForm(t, fetcher, testConfig())

	// no amount entered yet
	_, err := f.Submit(context.Background())
	assert.ErrorIs(t, err, ErrInvalid)

	// same token on both sides
	aaa := f.Tokens()[0]
	f.SetToToken(&aaa)
	require.True(t, f.SetFromAmount("2"))
	_, err = f.Submit(context.Background())
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestSubmitRejectedWhileSubmitting(t *testing.T) {
	block := make(chan struct{})
	cfg := testConfig()
	cfg.SubmitFn = func(ctx context.Context) error {
		<-block
		return nil
	}

	fetcher := &stubFetcher{catalog: twoTokens()}
	f := startedForm(t, fetcher, cfg)
	require.True(t, f.SetFromAmount("2"))

	done := make(chan error, 1)
	go func() {
		_, err := f.Submit(context.Background())
		done <- err
	}()

	require.Eventually(t, func() bool { return f.Phase() == PhaseSubmitting },
		500*time.Millisecond, time.Millisecond)

	_, err := f.Submit(context.Background())
	assert.ErrorIs(t, err, ErrSubmitInFlight)

	close(block)
	require.NoError(t, <-done)
}

func TestBackgroundRefreshTicks(t *testing.T) {
	cfg := testConfig()
	cfg.RefreshInterval = 10 * time.Millisecond

	fetcher := &stubFetcher{catalog: twoTokens()}
	f := startedForm(t, fetcher, cfg)

	require.Eventually(t, func() bool { return fetcher.callCount() >= 3 },
		time.Second, time.Millisecond)

	// teardown stops the ticker
	f.Stop()
	calls := fetcher.callCount()
	time.Sleep(5 * cfg.RefreshInterval)
	assert.LessOrEqual(t, fetcher.callCount(), calls+1, "no further fetches after Stop")
}
