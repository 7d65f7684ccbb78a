package browser

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/foilscan/internal/model"
)

func TestScrollScript(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		distance int
		want     string
	}{
		{name: "relative", distance: 450, want: "window.scrollBy(0, 450)"},
		{name: "zero scrolls to bottom", distance: 0, want: "window.scrollTo(0, document.body.scrollHeight)"},
		{name: "negative scrolls to bottom", distance: -1, want: "window.scrollTo(0, document.body.scrollHeight)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := scrollScript(tt.distance); got != tt.want {
				t.Errorf("scrollScript(%d) = %q, want %q", tt.distance, got, tt.want)
			}
		})
	}
}

func TestContainerScriptQuotesSelector(t *testing.T) {
	t.Parallel()

	got, err := containerScript(`[role="article"]`)
	if err != nil {
		t.Fatalf("containerScript() error = %v", err)
	}
	want := `Array.from(document.querySelectorAll("[role=\"article\"]")).map(e => e.outerHTML)`
	if got != want {
		t.Errorf("containerScript() = %q, want %q", got, want)
	}
}

func TestToCookieParams(t *testing.T) {
	t.Parallel()

	cookies := []model.Cookie{
		{Name: "c_user", Value: "1", Domain: ".facebook.com", Path: "/", Expires: 1700000000, Secure: true, SameSite: "None"},
		{Name: "xs", Value: "2", Domain: ".facebook.com", Path: "/", HTTPOnly: true, SameSite: "bogus"},
	}
	params := toCookieParams(cookies)
	if len(params) != 2 {
		t.Fatalf("len(params) = %d, want 2", len(params))
	}

	first := params[0]
	if first.SameSite != network.CookieSameSiteNone {
		t.Errorf("SameSite = %q, want None", first.SameSite)
	}
	if first.Expires == nil {
		t.Fatal("Expires = nil, want a timestamp")
	}
	if got := time.Time(*first.Expires).Unix(); got != 1700000000 {
		t.Errorf("Expires = %d, want 1700000000", got)
	}

	second := params[1]
	if second.SameSite != "" {
		t.Errorf("unknown SameSite should be dropped, got %q", second.SameSite)
	}
	if second.Expires != nil {
		t.Error("session cookie should have no expiry")
	}
	if !second.HTTPOnly {
		t.Error("HTTPOnly was not carried over")
	}
}

func TestFromNetworkCookies(t *testing.T) {
	t.Parallel()

	in := []*network.Cookie{
		{Name: "c_user", Value: "1", Domain: ".facebook.com", Path: "/", Expires: 1700000000, Secure: true, SameSite: network.CookieSameSiteLax},
		nil,
		{Name: "presence", Value: "x", Domain: ".facebook.com", Path: "/", Expires: -1, Session: true},
	}
	want := []model.Cookie{
		{Name: "c_user", Value: "1", Domain: ".facebook.com", Path: "/", Expires: 1700000000, Secure: true, SameSite: "Lax"},
		{Name: "presence", Value: "x", Domain: ".facebook.com", Path: "/"},
	}
	if diff := cmp.Diff(want, fromNetworkCookies(in)); diff != "" {
		t.Errorf("fromNetworkCookies() mismatch (-want +got):\n%s", diff)
	}
}

func TestDefaultOptions(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	if !opts.Headless || !opts.Stealth {
		t.Errorf("DefaultOptions() = %+v, want headless stealth browser", opts)
	}
	if got := len(allocatorOptions(opts)); got <= len(allocatorOptions(Options{})) {
		t.Errorf("stealth options should add allocator flags, got %d", got)
	}
}

func TestStartBounded(t *testing.T) {
	t.Parallel()

	t.Run("success leaves the browser running", func(t *testing.T) {
		t.Parallel()
		var aborted atomic.Bool
		err := startBounded(context.Background(), time.Minute, func() { aborted.Store(true) }, func() error {
			return nil
		})
		if err != nil {
			t.Fatalf("startBounded() error = %v", err)
		}
		time.Sleep(10 * time.Millisecond)
		if aborted.Load() {
			t.Error("abort was called after a successful start")
		}
	})

	t.Run("start error is returned as is", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("boom")
		err := startBounded(context.Background(), time.Minute, func() {}, func() error {
			return boom
		})
		if !errors.Is(err, boom) {
			t.Errorf("startBounded() error = %v, want %v", err, boom)
		}
	})

	t.Run("timeout aborts a hung start", func(t *testing.T) {
		t.Parallel()
		released := make(chan struct{})
		var once sync.Once
		abort := func() { once.Do(func() { close(released) }) }
		err := startBounded(context.Background(), 20*time.Millisecond, abort, func() error {
			<-released
			return errors.New("allocation cancelled")
		})
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("startBounded() error = %v, want deadline exceeded", err)
		}
	})

	t.Run("cancellation aborts a hung start", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		released := make(chan struct{})
		var once sync.Once
		abort := func() { once.Do(func() { close(released) }) }
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()
		err := startBounded(ctx, time.Minute, abort, func() error {
			<-released
			return errors.New("allocation cancelled")
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("startBounded() error = %v, want context canceled", err)
		}
	})
}

// findChrome returns a local Chrome binary, or "" when none is installed.
func findChrome() string {
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}

func TestLaunchKeepsBrowserAlive(t *testing.T) {
	t.Parallel()

	if testing.Short() {
		t.Skip("skipping chrome integration test in short mode")
	}
	chrome := findChrome()
	if chrome == "" {
		t.Skip("chrome is not installed")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, `<html><body><div role="article">Surge 950 in chop</div></body></html>`)
	}))
	t.Cleanup(srv.Close)

	opts := DefaultOptions()
	opts.ExecPath = chrome

	launchCtx, cancelLaunch := context.WithTimeout(context.Background(), time.Minute)
	c, err := Launch(launchCtx, opts)
	cancelLaunch()
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := c.Navigate(ctx, srv.URL+"/group"); err != nil {
		t.Fatalf("Navigate() after Launch returned error = %v", err)
	}
	loc, err := c.Location(ctx)
	if err != nil {
		t.Fatalf("Location() error = %v", err)
	}
	if loc != srv.URL+"/group" {
		t.Errorf("Location() = %q, want %q", loc, srv.URL+"/group")
	}
	fragments, err := c.ContainerHTML(ctx, `[role="article"]`)
	if err != nil {
		t.Fatalf("ContainerHTML() error = %v", err)
	}
	if len(fragments) != 1 {
		t.Errorf("got %d containers, want 1", len(fragments))
	}
}
