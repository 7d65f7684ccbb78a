// Package pipeline runs a content capture as a sequence of steps.
//
// A run moves through four steps: session (start the browser and apply the
// stored credential), navigate (reach the content surface, handling login
// walls), discover (scroll, extract and collect qualifying posts) and
// aggregate (compute statistics). Each step receives the accumulated
// model.Run and adds to it.
//
// The Runner wraps a pipeline with the work that must happen however the
// steps ended: the browser is closed, statistics are computed over whatever
// was collected, and the resulting document is handed to every Sink. A run
// that fails after collecting posts therefore still produces a document.
//
// BatchProcessor runs several surfaces concurrently, each with its own
// browser, using errgroup to bound the concurrency.
package pipeline
