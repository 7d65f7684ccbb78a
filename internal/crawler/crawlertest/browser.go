// Package crawlertest provides a scripted in-memory browser for testing
// code that drives the discovery engine.
package crawlertest

import (
	"context"
	"sync"

	"github.com/nao1215/foilscan/internal/model"
)

// Browser is a scripted browser. Navigation follows Redirects, and each
// call to ContainerHTML returns the next snapshot of Feed, repeating the
// last snapshot once the feed is exhausted.
type Browser struct {
	mu sync.Mutex

	redirects map[string]string
	feed      [][]string
	cookies   []model.Cookie

	// NavigateErr, when set, is returned by every Navigate call.
	NavigateErr error

	// ScrollErr is returned by the Scroll call with index ScrollErrAt.
	ScrollErr   error
	ScrollErrAt int

	// HangOnScroll makes Scroll block until its context is done.
	HangOnScroll bool

	location    string
	snapshot    int
	navigations []string
	scrolls     []int
	applied     []model.Cookie
	closeCalls  int
}

// NewBrowser returns a browser serving feed.
func NewBrowser(feed ...[]string) *Browser {
	return &Browser{
		redirects:   make(map[string]string),
		feed:        feed,
		ScrollErrAt: -1,
	}
}

// Redirect makes navigation to from land on to.
func (b *Browser) Redirect(from, to string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.redirects[from] = to
}

// ClearRedirects removes every redirect, as a successful login would.
func (b *Browser) ClearRedirects() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.redirects = make(map[string]string)
}

// SetSessionCookies sets the cookies reported by Cookies.
func (b *Browser) SetSessionCookies(cookies []model.Cookie) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cookies = cookies
}

// SetCookies records the applied cookies.
func (b *Browser) SetCookies(ctx context.Context, cookies []model.Cookie) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.applied = append(b.applied, cookies...)
	return nil
}

// Cookies returns the session cookies.
func (b *Browser) Cookies(ctx context.Context) ([]model.Cookie, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]model.Cookie, len(b.cookies))
	copy(out, b.cookies)
	return out, nil
}

// Navigate follows the configured redirect for url.
func (b *Browser) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.navigations = append(b.navigations, url)
	if b.NavigateErr != nil {
		return b.NavigateErr
	}
	if to, ok := b.redirects[url]; ok {
		b.location = to
	} else {
		b.location = url
	}
	return nil
}

// Location returns the current page.
func (b *Browser) Location(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.location, nil
}

// Scroll records the distance.
func (b *Browser) Scroll(ctx context.Context, distance int) error {
	if b.HangOnScroll {
		<-ctx.Done()
		return ctx.Err()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	idx := len(b.scrolls)
	b.scrolls = append(b.scrolls, distance)
	if b.ScrollErr != nil && idx == b.ScrollErrAt {
		return b.ScrollErr
	}
	return nil
}

// ContainerHTML returns the next feed snapshot.
func (b *Browser) ContainerHTML(ctx context.Context, _ string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.feed) == 0 {
		return nil, nil
	}
	i := b.snapshot
	if i >= len(b.feed) {
		i = len(b.feed) - 1
	}
	b.snapshot++
	return append([]string(nil), b.feed[i]...), nil
}

// Close counts calls.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closeCalls++
	return nil
}

// Navigations returns every navigated URL in order.
func (b *Browser) Navigations() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.navigations...)
}

// Scrolls returns every scroll distance in order.
func (b *Browser) Scrolls() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]int(nil), b.scrolls...)
}

// AppliedCookies returns the cookies installed with SetCookies.
func (b *Browser) AppliedCookies() []model.Cookie {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.Cookie(nil), b.applied...)
}

// CloseCalls returns how many times Close was called.
func (b *Browser) CloseCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closeCalls
}

// Article wraps text in a post container the way a feed renders it.
func Article(text string) string {
	return `<div role="article"><div><span>` + text + `</span></div></div>`
}
