// Package crawler discovers post text on a scroll-paginated content surface.
//
// # Architecture
//
// The package is built around the Engine type, a state machine that owns one
// browser session for the duration of a run:
//
//	Unauthenticated -> Authenticated -> Navigated -> Discovering -> Done
//	                        |  ^             |
//	                        v  |             v
//	              AwaitingManualAuth       Failed
//
// Open launches the browser and applies the stored session cookies. Navigate
// goes to the content surface; if the surface answers with a login page the
// engine either hands control to a ResumeFunc for a manual login or simply
// retries once. Discover then scrolls the page a fixed number of times and
// emits the text of every visible post container after each scroll.
//
// The surface has no stable cursor, so discovery is bounded by the
// iteration budget rather than by reaching the end of the content.
//
// # Components
//
//   - Engine: the discovery state machine
//   - Browser and Launcher: the browser session the engine drives
//   - ContainerText: turns a container's HTML into plain text
//
// # Usage
//
//	engine := crawler.NewEngine(launcher, store, "https://example.com/groups/riders",
//	    crawler.WithIterations(15),
//	    crawler.WithResume(promptForLogin),
//	)
//	err := engine.Run(ctx, func(b model.RawContentBlock) error {
//	    // consume block
//	    return nil
//	})
//
// # Detection
//
// Hosts of social content actively detect automation. The engine waits a
// random delay between scrolls and scrolls by a random distance; the
// browser identity is declared through the Launcher configuration.
package crawler
