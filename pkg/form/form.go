package form

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tokenswap/pkg/rate"
	"tokenswap/pkg/token"
)

const (
	DefaultRefreshInterval = 30 * time.Second
	DefaultSubmitDelay     = 1500 * time.Millisecond
	DefaultMessageWindow   = 5 * time.Second
)

var (
	// ErrInvalid is returned by Submit while any validation rule is violated
	ErrInvalid = errors.New("form is invalid")
	// ErrSubmitInFlight is returned by Submit while a swap is already running
	ErrSubmitInFlight = errors.New("a swap is already in progress")
)

// Phase is the orchestrator's lifecycle state
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseReady
	PhaseSubmitting
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhaseSubmitting:
		return "submitting"
	default:
		return "unknown"
	}
}

// MessageKind distinguishes the transient banner variants
type MessageKind int

const (
	MessageSuccess MessageKind = iota
	MessageFailure
)

// Message is the transient banner shown after a submission
type Message struct {
	Kind MessageKind
	Text string
}

// RefreshState reports the catalog fetch lifecycle. IsLoading covers the
// initial and background fetches, IsRefreshing a manual one.
type RefreshState struct {
	IsLoading    bool
	IsRefreshing bool
	LastUpdated  time.Time
	Err          string
}

// Receipt records one completed simulated swap
type Receipt struct {
	ID          string
	FromAmount  string
	FromSymbol  string
	ToAmount    string
	ToSymbol    string
	CompletedAt time.Time
}

// CatalogFetcher supplies the token catalog. *token.Source satisfies it.
type CatalogFetcher interface {
	FetchCatalog(ctx context.Context) ([]token.Token, token.Tier, error)
}

// Config tunes the orchestrator's timers. Zero values get the defaults.
type Config struct {
	RefreshInterval time.Duration
	SubmitDelay     time.Duration
	MessageWindow   time.Duration

	// SubmitFn replaces the fixed-delay simulated settlement; tests use it
	// to force failures or skip the wait.
	SubmitFn func(ctx context.Context) error
}

// Form owns the swap form state and drives its lifecycle:
// Loading -> Ready <-> Submitting, with a background catalog refresh.
// All mutation happens under one mutex; the refresh ticker and the banner
// auto-clear timer are the only background tasks.
type Form struct {
	mu      sync.Mutex
	fetcher CatalogFetcher
	cfg     Config
	logger  *zap.Logger
	calc    rate.Calculator

	phase    Phase
	state    State
	tokens   []token.Token
	refresh  RefreshState
	message  *Message
	msgTimer *time.Timer

	seeded   bool
	inFlight bool
	started  bool
	stopped  bool
	stopChan chan struct{}
}

// New creates a swap form backed by the given catalog fetcher
func New(fetcher CatalogFetcher, cfg Config, logger *zap.Logger) *Form {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}
	if cfg.SubmitDelay <= 0 {
		cfg.SubmitDelay = DefaultSubmitDelay
	}
	if cfg.MessageWindow <= 0 {
		cfg.MessageWindow = DefaultMessageWindow
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Form{
		fetcher:  fetcher,
		cfg:      cfg,
		logger:   logger,
		phase:    PhaseLoading,
		stopChan: make(chan struct{}),
	}
}

// Start performs the initial catalog fetch, seeds the token selection, and
// launches the background refresh ticker. It blocks until the first catalog
// is in place; the fallback chain guarantees that never fails outright.
func (f *Form) Start(ctx context.Context) error {
	f.mu.Lock()
	if f.started {
		f.mu.Unlock()
		return fmt.Errorf("form already started")
	}
	f.started = true
	f.mu.Unlock()

	f.fetchCatalog(ctx, false)
	go f.refreshLoop(ctx)
	return nil
}

// Stop tears down the refresh ticker and any pending banner timer so no
// state updates happen after the form is abandoned.
func (f *Form) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.started || f.stopped {
		return
	}
	f.stopped = true
	close(f.stopChan)
	if f.msgTimer != nil {
		f.msgTimer.Stop()
		f.msgTimer = nil
	}
}

func (f *Form) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(f.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.fetchCatalog(ctx, false)
		}
	}
}

// Refresh triggers a manual catalog fetch. It reports false when a fetch is
// already in flight, in which case the request is dropped, not queued.
func (f *Form) Refresh(ctx context.Context) bool {
	return f.fetchCatalog(ctx, true)
}

// fetchCatalog runs one guarded catalog fetch. The in-flight guard is shared
// by the initial load, the ticker and manual refreshes, so at most one fetch
// runs at a time.
func (f *Form) fetchCatalog(ctx context.Context, manual bool) bool {
	f.mu.Lock()
	if f.inFlight {
		f.mu.Unlock()
		if manual {
			f.logger.Debug("manual refresh dropped, fetch already in flight")
		}
		return false
	}
	f.inFlight = true
	if manual {
		f.refresh.IsRefreshing = true
	} else {
		f.refresh.IsLoading = true
	}
	f.mu.Unlock()

	catalog, tier, err := f.fetcher.FetchCatalog(ctx)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight = false
	f.refresh.IsLoading = false
	f.refresh.IsRefreshing = false

	if len(catalog) == 0 {
		// the source's fallback chain makes this unreachable, but a custom
		// fetcher may come up empty
		if err != nil {
			f.refresh.Err = err.Error()
		}
		return true
	}

	f.tokens = catalog
	f.refresh.LastUpdated = time.Now()
	if err != nil {
		f.refresh.Err = err.Error()
	} else {
		f.refresh.Err = ""
	}
	f.logger.Info("catalog updated",
		zap.Int("tokens", len(catalog)),
		zap.String("tier", tier.String()))

	if !f.seeded {
		f.state.FromToken = &catalog[0]
		if len(catalog) > 1 {
			f.state.ToToken = &catalog[1]
		}
		f.seeded = true
		f.phase = PhaseReady
		return true
	}

	// Wholesale catalog replacement: keep the selected symbols, swap in the
	// fresh token records. The displayed toAmount is intentionally not
	// recomputed on a bare price tick.
	if f.state.FromToken != nil {
		if t := token.Find(f.tokens, f.state.FromToken.Symbol); t != nil {
			f.state.FromToken = t
		}
	}
	if f.state.ToToken != nil {
		if t := token.Find(f.tokens, f.state.ToToken.Symbol); t != nil {
			f.state.ToToken = t
		}
	}
	return true
}

// SetFromToken selects the source token and recomputes the derived amount
func (f *Form) SetFromToken(t *token.Token) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.FromToken = t
	f.recomputeLocked()
}

// SetToToken selects the destination token and recomputes the derived amount
func (f *Form) SetToToken(t *token.Token) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.ToToken = t
	f.recomputeLocked()
}

// SetFromAmount updates the source amount text. Text failing the amount
// pattern or the length cap is rejected at the boundary and the state is
// left unchanged; the return reports acceptance.
func (f *Form) SetFromAmount(s string) bool {
	if !AcceptableAmount(s) {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.FromAmount = s
	f.recomputeLocked()
	return true
}

// Reverse swaps direction: fromToken<->toToken and fromAmount<->toAmount,
// all four fields together under the lock, then one recompute on the new
// consistent state.
func (f *Form) Reverse() {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.state
	f.state.FromToken, f.state.ToToken = s.ToToken, s.FromToken
	f.state.FromAmount, f.state.ToAmount = s.ToAmount, s.FromAmount
	f.recomputeLocked()
}

// recomputeLocked re-derives toAmount whenever one of its three inputs may
// have changed. Not-ok results leave the previous display untouched.
func (f *Form) recomputeLocked() {
	if result, ok := f.calc.Recompute(f.state.FromToken, f.state.ToToken, f.state.FromAmount); ok {
		f.state.ToAmount = result
	}
}

// Validate evaluates the rule set against the current state
func (f *Form) Validate() Errors {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Validate(f.state)
}

// Submit runs the simulated swap. It refuses while the form is invalid or a
// submission is already in flight. On success the form returns to Ready with
// a success banner that auto-clears after the message window; on failure it
// returns to Ready with a failure banner that stays until the next submit.
func (f *Form) Submit(ctx context.Context) (*Receipt, error) {
	f.mu.Lock()
	if f.phase == PhaseSubmitting {
		f.mu.Unlock()
		return nil, ErrSubmitInFlight
	}
	if errs := Validate(f.state); !errs.Valid() {
		f.mu.Unlock()
		return nil, ErrInvalid
	}
	f.phase = PhaseSubmitting
	f.clearMessageLocked()
	snap := f.state
	f.mu.Unlock()

	err := f.settle(ctx)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.phase = PhaseReady

	if err != nil {
		f.logger.Warn("simulated swap failed", zap.Error(err))
		f.setMessageLocked(Message{Kind: MessageFailure, Text: "Swap failed. Please try again."}, false)
		return nil, fmt.Errorf("swap failed: %w", err)
	}

	receipt := &Receipt{
		ID:          uuid.NewString(),
		FromAmount:  snap.FromAmount,
		FromSymbol:  snap.FromToken.Symbol,
		ToAmount:    snap.ToAmount,
		ToSymbol:    snap.ToToken.Symbol,
		CompletedAt: time.Now(),
	}
	text := fmt.Sprintf("Successfully swapped %s %s for %s %s",
		receipt.FromAmount, receipt.FromSymbol, receipt.ToAmount, receipt.ToSymbol)
	f.setMessageLocked(Message{Kind: MessageSuccess, Text: text}, true)
	f.logger.Info("simulated swap completed", zap.String("receipt", receipt.ID))
	return receipt, nil
}

// settle is the simulated settlement step: a fixed delay, no real transfer
func (f *Form) settle(ctx context.Context) error {
	if f.cfg.SubmitFn != nil {
		return f.cfg.SubmitFn(ctx)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(f.cfg.SubmitDelay):
		return nil
	}
}

func (f *Form) setMessageLocked(m Message, autoClear bool) {
	f.clearMessageLocked()
	msg := m
	f.message = &msg
	if !autoClear {
		return
	}
	f.msgTimer = time.AfterFunc(f.cfg.MessageWindow, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.message != nil && *f.message == msg {
			f.message = nil
		}
	})
}

func (f *Form) clearMessageLocked() {
	if f.msgTimer != nil {
		f.msgTimer.Stop()
		f.msgTimer = nil
	}
	f.message = nil
}

// State returns a snapshot of the form's field values
func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Phase returns the current lifecycle phase
func (f *Form) Phase() Phase {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.phase
}

// Tokens returns a copy of the current catalog
func (f *Form) Tokens() []token.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]token.Token, len(f.tokens))
	copy(out, f.tokens)
	return out
}

// RefreshStatus returns a snapshot of the fetch lifecycle state
func (f *Form) RefreshStatus() RefreshState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refresh
}

// Message returns the current banner, or nil once it has been cleared
func (f *Form) Message() *Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.message == nil {
		return nil
	}
	msg := *f.message
	return &msg
}
