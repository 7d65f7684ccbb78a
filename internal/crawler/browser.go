package crawler

import (
	"context"

	"github.com/nao1215/foilscan/internal/model"
)

// Browser is a single browser tab driven by the engine.
// Implementations need not be safe for concurrent use; the engine never
// issues two operations at once.
type Browser interface {
	// SetCookies installs cookies before the first navigation.
	SetCookies(ctx context.Context, cookies []model.Cookie) error

	// Cookies returns every cookie currently held by the browser.
	Cookies(ctx context.Context) ([]model.Cookie, error)

	// Navigate loads url and waits for the page to finish loading.
	Navigate(ctx context.Context, url string) error

	// Location returns the URL of the current page after redirects.
	Location(ctx context.Context) (string, error)

	// Scroll moves the viewport down by distance pixels.
	// A distance of zero or less scrolls to the bottom of the page.
	Scroll(ctx context.Context, distance int) error

	// ContainerHTML returns the outer HTML of every element currently
	// matching selector, in document order.
	ContainerHTML(ctx context.Context, selector string) ([]string, error)

	// Close releases the browser and its OS processes.
	Close() error
}

// Launcher starts browser sessions.
type Launcher interface {
	Launch(ctx context.Context) (Browser, error)
}

// LauncherFunc adapts a function to the Launcher interface.
type LauncherFunc func(ctx context.Context) (Browser, error)

// Launch calls f(ctx).
func (f LauncherFunc) Launch(ctx context.Context) (Browser, error) {
	return f(ctx)
}

// AuthRequest describes a pending manual login.
type AuthRequest struct {
	// Surface is the configured surface name, possibly empty.
	Surface string

	// TargetURL is the content surface the engine is trying to reach.
	TargetURL string

	// Location is the login page the browser was redirected to.
	Location string
}

// ResumeFunc is called when the engine needs a human to log in.
// It must block until the login was completed in the browser window, and
// return an error to abandon the login.
type ResumeFunc func(ctx context.Context, req AuthRequest) error
