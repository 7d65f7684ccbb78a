// Package browser implements the crawler's Browser on top of a real Chrome
// instance driven through the DevTools protocol with chromedp.
//
// Each Launch starts its own Chrome process with its own profile, so
// concurrent surfaces never share cookies or tabs. Close must be called to
// stop the process.
package browser
