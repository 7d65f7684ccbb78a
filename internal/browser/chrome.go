package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/nao1215/foilscan/internal/crawler"
	"github.com/nao1215/foilscan/internal/model"
)

// Default browser identity and viewport.
const (
	DefaultUserAgent    = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	DefaultWindowWidth  = 1920
	DefaultWindowHeight = 1080
)

// webdriverMask hides the automation flag from page scripts.
const webdriverMask = `Object.defineProperty(navigator, 'webdriver', { get: () => undefined });`

// Options configures a Chrome launch.
type Options struct {
	// Headless runs Chrome without a window. Manual login needs a window.
	Headless bool

	// UserAgent is the declared browser identity.
	UserAgent string

	// Stealth suppresses the automation markers Chrome exposes to pages.
	Stealth bool

	// WindowWidth and WindowHeight set the viewport size.
	WindowWidth  int
	WindowHeight int

	// ExecPath overrides the Chrome binary. Empty means auto-detect.
	ExecPath string

	// StartTimeout bounds how long Launch waits for Chrome to come up.
	StartTimeout time.Duration
}

// DefaultOptions returns options for a stealthy headless browser.
func DefaultOptions() Options {
	return Options{
		Headless:     true,
		UserAgent:    DefaultUserAgent,
		Stealth:      true,
		WindowWidth:  DefaultWindowWidth,
		WindowHeight: DefaultWindowHeight,
		StartTimeout: 30 * time.Second,
	}
}

// Chrome is a running Chrome tab.
type Chrome struct {
	tab         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	closeOnce   sync.Once
	closeErr    error
}

var _ crawler.Browser = (*Chrome)(nil)

// Launch starts Chrome with opts.
//
// The browser outlives ctx; only the start-up is bounded by it. Call Close
// to stop the browser.
func Launch(ctx context.Context, opts Options) (*Chrome, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocatorOptions(opts)...)
	tab, cancelTab := chromedp.NewContext(allocCtx)

	c := &Chrome{tab: tab, cancelTab: cancelTab, cancelAlloc: cancelAlloc}

	actions := []chromedp.Action{chromedp.ActionFunc(func(ctx context.Context) error {
		return network.Enable().Do(ctx)
	})}
	if opts.Stealth {
		actions = append(actions, chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(webdriverMask).Do(ctx)
			return err
		}))
	}

	// The first Run allocates Chrome on the context it is given, so it runs
	// on the tab itself rather than a derived context.
	err := startBounded(ctx, opts.StartTimeout, cancelTab, func() error {
		return chromedp.Run(tab, actions...)
	})
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("start chrome: %w", err)
	}
	return c, nil
}

// startBounded runs start and calls abort when ctx ends or timeout elapses
// first. Once abort has fired the start is reported as failed, even if start
// itself returned nil.
func startBounded(ctx context.Context, timeout time.Duration, abort func(), start func() error) error {
	var timer *time.Timer
	if timeout > 0 {
		timer = time.AfterFunc(timeout, abort)
	}
	stop := context.AfterFunc(ctx, abort)

	err := start()

	ctxFired := !stop()
	timerFired := timer != nil && !timer.Stop()
	switch {
	case ctxFired:
		return ctx.Err()
	case timerFired:
		return fmt.Errorf("%w after %s", context.DeadlineExceeded, timeout)
	}
	return err
}

// Launcher returns a crawler.Launcher that starts Chrome with opts.
func Launcher(opts Options) crawler.Launcher {
	return crawler.LauncherFunc(func(ctx context.Context) (crawler.Browser, error) {
		c, err := Launch(ctx, opts)
		if err != nil {
			return nil, err
		}
		return c, nil
	})
}

func allocatorOptions(opts Options) []chromedp.ExecAllocatorOption {
	width, height := opts.WindowWidth, opts.WindowHeight
	if width <= 0 || height <= 0 {
		width, height = DefaultWindowWidth, DefaultWindowHeight
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("lang", "en-US"),
		chromedp.WindowSize(width, height),
		chromedp.UserAgent(ua),
	)
	if opts.Stealth {
		allocOpts = append(allocOpts,
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
			chromedp.Flag("enable-automation", false),
		)
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	return allocOpts
}

// run executes actions in the already started tab, bounded by the deadline
// and cancellation of ctx.
func (c *Chrome) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(c.tab)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// SetCookies installs cookies in the browser profile.
func (c *Chrome) SetCookies(ctx context.Context, cookies []model.Cookie) error {
	params := toCookieParams(cookies)
	return c.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return network.SetCookies(params).Do(ctx)
	}))
}

// Cookies returns the cookies visible to the current page.
func (c *Chrome) Cookies(ctx context.Context) ([]model.Cookie, error) {
	var cookies []*network.Cookie
	err := c.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = network.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, err
	}
	return fromNetworkCookies(cookies), nil
}

// Navigate loads url and waits for the body to be ready.
func (c *Chrome) Navigate(ctx context.Context, url string) error {
	return c.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// Location returns the current URL.
func (c *Chrome) Location(ctx context.Context) (string, error) {
	var loc string
	if err := c.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", err
	}
	return loc, nil
}

// Scroll moves the viewport down.
func (c *Chrome) Scroll(ctx context.Context, distance int) error {
	return c.run(ctx, chromedp.Evaluate(scrollScript(distance), nil))
}

// ContainerHTML returns the outer HTML of every element matching selector.
func (c *Chrome) ContainerHTML(ctx context.Context, selector string) ([]string, error) {
	script, err := containerScript(selector)
	if err != nil {
		return nil, err
	}
	var fragments []string
	if err := c.run(ctx, chromedp.Evaluate(script, &fragments)); err != nil {
		return nil, err
	}
	return fragments, nil
}

// Close stops the tab and the Chrome process.
func (c *Chrome) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = chromedp.Cancel(c.tab)
		c.cancelTab()
		c.cancelAlloc()
	})
	return c.closeErr
}

func scrollScript(distance int) string {
	if distance <= 0 {
		return "window.scrollTo(0, document.body.scrollHeight)"
	}
	return fmt.Sprintf("window.scrollBy(0, %d)", distance)
}

func containerScript(selector string) (string, error) {
	quoted, err := json.Marshal(selector)
	if err != nil {
		return "", fmt.Errorf("encode selector: %w", err)
	}
	return fmt.Sprintf("Array.from(document.querySelectorAll(%s)).map(e => e.outerHTML)", quoted), nil
}

func toCookieParams(cookies []model.Cookie) []*network.CookieParam {
	params := make([]*network.CookieParam, 0, len(cookies))
	for _, ck := range cookies {
		p := &network.CookieParam{
			Name:     ck.Name,
			Value:    ck.Value,
			Domain:   ck.Domain,
			Path:     ck.Path,
			Secure:   ck.Secure,
			HTTPOnly: ck.HTTPOnly,
		}
		switch ck.SameSite {
		case "Strict", "Lax", "None":
			p.SameSite = network.CookieSameSite(ck.SameSite)
		}
		if ck.Expires > 0 {
			sec := int64(ck.Expires)
			nsec := int64((ck.Expires - float64(sec)) * float64(time.Second))
			exp := cdp.TimeSinceEpoch(time.Unix(sec, nsec))
			p.Expires = &exp
		}
		params = append(params, p)
	}
	return params
}

func fromNetworkCookies(cookies []*network.Cookie) []model.Cookie {
	out := make([]model.Cookie, 0, len(cookies))
	for _, ck := range cookies {
		if ck == nil {
			continue
		}
		c := model.Cookie{
			Name:     ck.Name,
			Value:    ck.Value,
			Domain:   ck.Domain,
			Path:     ck.Path,
			HTTPOnly: ck.HTTPOnly,
			Secure:   ck.Secure,
			SameSite: string(ck.SameSite),
		}
		if !ck.Session && ck.Expires > 0 {
			c.Expires = ck.Expires
		}
		out = append(out, c)
	}
	return out
}
