package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/nao1215/foilscan/internal/metrics"
	"github.com/nao1215/foilscan/internal/model"
	"github.com/nao1215/foilscan/internal/session"
)

// Engine defaults.
const (
	DefaultIterations       = 15
	DefaultMinDelay         = 1500 * time.Millisecond
	DefaultMaxDelay         = 3 * time.Second
	DefaultScrollMin        = 300
	DefaultScrollMax        = 600
	DefaultSettleDelay      = 3 * time.Second
	DefaultOperationTimeout = 60 * time.Second
)

// EmitFunc receives each content block as soon as it is captured.
// Returning an error stops discovery with that error.
type EmitFunc func(block model.RawContentBlock) error

// Engine drives one browser session through login, navigation and
// scroll-based discovery. An Engine is used for a single run.
type Engine struct {
	launcher  Launcher
	store     session.Store
	targetURL string

	surface      string
	warmupURL    string
	selector     string
	loginMarkers []string
	iterations   int
	minDelay     time.Duration
	maxDelay     time.Duration
	scrollMin    int
	scrollMax    int
	settleDelay  time.Duration
	opTimeout    time.Duration
	resume       ResumeFunc
	logger       *slog.Logger
	metrics      *metrics.Recorder
	rng          *rand.Rand
	sleep        func(context.Context, time.Duration) error

	mu        sync.Mutex
	state     State
	browser   Browser
	closed    bool
	cred      *model.SessionCredential
	refreshed bool
	order     int
}

// Option configures an Engine.
type Option func(*Engine)

// WithSurface names the surface in logs, metrics and login prompts.
func WithSurface(name string) Option {
	return func(e *Engine) {
		e.surface = name
	}
}

// WithWarmupURL makes the engine load url before the content surface,
// the way a person would arrive from the site's home page.
func WithWarmupURL(url string) Option {
	return func(e *Engine) {
		e.warmupURL = url
	}
}

// WithContainerSelector sets the CSS selector of a post container.
func WithContainerSelector(selector string) Option {
	return func(e *Engine) {
		e.selector = selector
	}
}

// WithLoginMarkers sets the URL fragments that identify a login page.
func WithLoginMarkers(markers []string) Option {
	return func(e *Engine) {
		e.loginMarkers = markers
	}
}

// WithIterations sets the number of scroll passes.
func WithIterations(n int) Option {
	return func(e *Engine) {
		e.iterations = n
	}
}

// WithDelay sets the bounds of the random pause after each scroll.
func WithDelay(minDelay, maxDelay time.Duration) Option {
	return func(e *Engine) {
		e.minDelay = minDelay
		e.maxDelay = maxDelay
	}
}

// WithScrollDistance sets the bounds of the random scroll distance in
// pixels. A maximum of zero scrolls to the bottom of the page every pass.
func WithScrollDistance(minPx, maxPx int) Option {
	return func(e *Engine) {
		e.scrollMin = minPx
		e.scrollMax = maxPx
	}
}

// WithSettleDelay sets the pause after each navigation.
func WithSettleDelay(d time.Duration) Option {
	return func(e *Engine) {
		e.settleDelay = d
	}
}

// WithOperationTimeout bounds every single browser operation.
func WithOperationTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.opTimeout = d
	}
}

// WithResume enables manual login. Without it a login page is retried
// once and then reported as ErrAuthenticationFailed.
func WithResume(fn ResumeFunc) Option {
	return func(e *Engine) {
		e.resume = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMetrics records scroll passes.
func WithMetrics(recorder *metrics.Recorder) Option {
	return func(e *Engine) {
		e.metrics = recorder
	}
}

// WithRand sets the random source for delays and scroll distances.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) {
		e.rng = rng
	}
}

// WithSleep replaces the context-aware sleep between passes.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(e *Engine) {
		e.sleep = sleep
	}
}

// NewEngine creates an engine for targetURL. Cookies are loaded from and
// refreshed into store.
func NewEngine(launcher Launcher, store session.Store, targetURL string, opts ...Option) *Engine {
	e := &Engine{
		launcher:     launcher,
		store:        store,
		targetURL:    targetURL,
		selector:     DefaultContainerSelector,
		loginMarkers: DefaultLoginMarkers,
		iterations:   DefaultIterations,
		minDelay:     DefaultMinDelay,
		maxDelay:     DefaultMaxDelay,
		scrollMin:    DefaultScrollMin,
		scrollMax:    DefaultScrollMax,
		settleDelay:  DefaultSettleDelay,
		opTimeout:    DefaultOperationTimeout,
		sleep:        sleepContext,
		state:        StateUnauthenticated,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.rng == nil {
		now := uint64(time.Now().UnixNano()) //nolint:gosec // seed only
		e.rng = rand.New(rand.NewPCG(now, now>>7))
	}
	return e
}

// State returns the current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// CredentialRefreshed reports whether a manual login replaced the stored
// session during this run.
func (e *Engine) CredentialRefreshed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.refreshed
}

// Run performs Open, Navigate and Discover and always closes the browser.
func (e *Engine) Run(ctx context.Context, emit EmitFunc) error {
	defer func() {
		if cerr := e.Close(); cerr != nil {
			e.logger.Warn("closing browser failed", "surface", e.surface, "error", cerr)
		}
	}()

	if err := e.Open(ctx); err != nil {
		return err
	}
	if err := e.Navigate(ctx); err != nil {
		return err
	}
	return e.Discover(ctx, emit)
}

// Open starts the browser and applies the stored session.
// A missing or unreadable credential is not an error; the engine then
// continues without cookies and relies on the login handling in Navigate.
func (e *Engine) Open(ctx context.Context) error {
	if err := e.expect(StateUnauthenticated); err != nil {
		return err
	}

	browser, err := e.launcher.Launch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return e.fail(ctx.Err())
		}
		return e.fail(fmt.Errorf("%w: %v", ErrBrowserUnavailable, err))
	}
	e.mu.Lock()
	e.browser = browser
	e.mu.Unlock()

	cred, err := e.store.Load(ctx)
	switch {
	case errors.Is(err, session.ErrCredentialMissing):
		e.logger.Info("no stored session, continuing without cookies", "surface", e.surface)
	case errors.Is(err, session.ErrCorruptCredential):
		e.logger.Warn("ignoring unreadable stored session", "surface", e.surface, "error", err)
	case err != nil:
		return e.fail(fmt.Errorf("%w: load session: %v", ErrAuthenticationFailed, err))
	case cred.Empty():
		e.logger.Info("stored session holds no cookies", "surface", e.surface)
	default:
		err := e.op(ctx, func(ctx context.Context) error {
			return browser.SetCookies(ctx, cred.Cookies)
		})
		if err != nil {
			return e.fail(e.classify(ctx, fmt.Errorf("apply session cookies: %w", err), ErrNavigationFailed))
		}
		e.cred = cred
		e.logger.Debug("session applied", "surface", e.surface, "session", cred)
	}

	e.setState(StateAuthenticated)
	return nil
}

// Navigate loads the content surface.
//
// When the surface answers with a login page the engine suspends in
// StateAwaitingManualAuth and calls the ResumeFunc, then persists the
// cookies of the fresh login. Either way it navigates exactly one more
// time; a second login page fails the run with ErrAuthenticationFailed.
func (e *Engine) Navigate(ctx context.Context) error {
	if err := e.expect(StateAuthenticated); err != nil {
		return err
	}

	if e.warmupURL != "" {
		if _, err := e.visit(ctx, e.warmupURL); err != nil {
			return e.fail(err)
		}
	}

	location, err := e.visit(ctx, e.targetURL)
	if err != nil {
		return e.fail(err)
	}

	if isLoginSurface(location, e.loginMarkers) {
		if e.resume != nil {
			if err := e.manualLogin(ctx, location); err != nil {
				return e.fail(err)
			}
		} else {
			e.logger.Warn("landed on login page, retrying once",
				"surface", e.surface,
				"location", location,
			)
		}

		location, err = e.visit(ctx, e.targetURL)
		if err != nil {
			return e.fail(err)
		}
		if isLoginSurface(location, e.loginMarkers) {
			return e.fail(fmt.Errorf("%w: still redirected to %s", ErrAuthenticationFailed, location))
		}
	}

	if e.cred != nil {
		e.cred.Valid = true
	}
	e.logger.Info("content surface loaded", "surface", e.surface, "location", location)
	e.setState(StateNavigated)
	return nil
}

// Discover runs the scroll passes and emits every visible container after
// each pass. Containers still visible from earlier passes are emitted again;
// removing repeats is the consumer's job.
func (e *Engine) Discover(ctx context.Context, emit EmitFunc) error {
	if err := e.expect(StateNavigated); err != nil {
		return err
	}
	e.setState(StateDiscovering)
	browser := e.currentBrowser()

	for pass := 0; pass < e.iterations; pass++ {
		if err := ctx.Err(); err != nil {
			return e.fail(err)
		}

		distance := e.scrollDistance()
		err := e.op(ctx, func(ctx context.Context) error {
			return browser.Scroll(ctx, distance)
		})
		if err != nil {
			return e.fail(e.classify(ctx, fmt.Errorf("scroll: %w", err), ErrNavigationFailed))
		}

		if err := e.sleep(ctx, e.jitter()); err != nil {
			return e.fail(err)
		}

		var containers []string
		err = e.op(ctx, func(ctx context.Context) error {
			var err error
			containers, err = browser.ContainerHTML(ctx, e.selector)
			return err
		})
		if err != nil {
			return e.fail(e.classify(ctx, fmt.Errorf("enumerate containers: %w", err), ErrNavigationFailed))
		}

		for _, fragment := range containers {
			text := ContainerText(fragment)
			if text == "" {
				continue
			}
			block := model.RawContentBlock{Text: text, Order: e.order, Pass: pass}
			e.order++
			if err := emit(block); err != nil {
				return e.fail(err)
			}
		}

		e.metrics.ScrollPass(e.surface)
		e.logger.Debug("scroll pass finished",
			"surface", e.surface,
			"pass", pass+1,
			"of", e.iterations,
			"containers", len(containers),
		)
	}

	e.setState(StateDone)
	return nil
}

// Close releases the browser. It is safe to call more than once and on
// an engine that never opened a browser.
func (e *Engine) Close() error {
	e.mu.Lock()
	browser := e.browser
	already := e.closed
	e.closed = true
	e.mu.Unlock()

	if already || browser == nil {
		return nil
	}
	return browser.Close()
}

// visit navigates to url, waits for the page to settle and returns the
// final location.
func (e *Engine) visit(ctx context.Context, url string) (string, error) {
	browser := e.currentBrowser()

	err := e.op(ctx, func(ctx context.Context) error {
		return browser.Navigate(ctx, url)
	})
	if err != nil {
		return "", e.classify(ctx, fmt.Errorf("navigate to %s: %w", url, err), ErrNavigationFailed)
	}

	if err := e.sleep(ctx, e.settleDelay); err != nil {
		return "", err
	}

	var location string
	err = e.op(ctx, func(ctx context.Context) error {
		var err error
		location, err = browser.Location(ctx)
		return err
	})
	if err != nil {
		return "", e.classify(ctx, fmt.Errorf("read location: %w", err), ErrNavigationFailed)
	}
	return location, nil
}

// manualLogin suspends until the ResumeFunc returns and stores the cookies
// of the new login.
func (e *Engine) manualLogin(ctx context.Context, location string) error {
	e.setState(StateAwaitingManualAuth)
	e.logger.Warn("manual login required", "surface", e.surface, "location", location)

	req := AuthRequest{Surface: e.surface, TargetURL: e.targetURL, Location: location}
	if err := e.resume(ctx, req); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: manual login abandoned: %v", ErrAuthenticationFailed, err)
	}

	browser := e.currentBrowser()
	var cookies []model.Cookie
	err := e.op(ctx, func(ctx context.Context) error {
		var err error
		cookies, err = browser.Cookies(ctx)
		return err
	})
	if err != nil {
		return e.classify(ctx, fmt.Errorf("read cookies after login: %w", err), ErrAuthenticationFailed)
	}
	if len(cookies) == 0 {
		return fmt.Errorf("%w: no cookies after manual login", ErrAuthenticationFailed)
	}

	cred := model.NewSessionCredential(cookies)
	if err := e.store.Save(ctx, cred); err != nil {
		e.logger.Warn("could not persist refreshed session", "surface", e.surface, "error", err)
	} else {
		e.logger.Info("refreshed session saved", "surface", e.surface, "session", cred)
	}

	e.mu.Lock()
	e.cred = cred
	e.refreshed = true
	e.mu.Unlock()
	e.setState(StateAuthenticated)
	return nil
}

// op runs one browser operation under the operation timeout.
func (e *Engine) op(ctx context.Context, fn func(context.Context) error) error {
	if e.opTimeout <= 0 {
		return fn(ctx)
	}
	opCtx, cancel := context.WithTimeout(ctx, e.opTimeout)
	defer cancel()
	return fn(opCtx)
}

// classify maps a browser error to the engine's error taxonomy.
// Cancellation of the run itself is returned unchanged.
func (e *Engine) classify(ctx context.Context, err, fallback error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrDiscoveryTimeout, err)
	}
	return fmt.Errorf("%w: %v", fallback, err)
}

func (e *Engine) jitter() time.Duration {
	if e.maxDelay <= e.minDelay {
		return e.minDelay
	}
	return e.minDelay + time.Duration(e.rng.Int64N(int64(e.maxDelay-e.minDelay)+1))
}

func (e *Engine) scrollDistance() int {
	if e.scrollMax <= 0 {
		return 0
	}
	if e.scrollMax <= e.scrollMin {
		return e.scrollMin
	}
	return e.scrollMin + e.rng.IntN(e.scrollMax-e.scrollMin+1)
}

func (e *Engine) expect(want State) error {
	if got := e.State(); got != want {
		return fmt.Errorf("%w: expected %s, engine is %s", ErrInvalidState, want, got)
	}
	return nil
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = s
}

func (e *Engine) currentBrowser() Browser {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.browser
}

// fail moves the engine to StateFailed and returns err.
func (e *Engine) fail(err error) error {
	e.setState(StateFailed)
	e.logger.Debug("engine failed", "surface", e.surface, "error", err)
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
